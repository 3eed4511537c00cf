package backendextract

import (
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// render stringifies a type annotation or name expression: dotted access
// becomes `a.b`, subscripts become `X[Y, Z]`. Unknown shapes fall back to
// their source text with whitespace collapsed.
func (f *fileWalker) render(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "identifier", "none", "true", "false", "integer", "float":
		return f.text(n)
	case "type":
		if kids := namedChildren(n); len(kids) == 1 {
			return f.render(kids[0])
		}
	case "attribute":
		return f.render(n.ChildByFieldName("object")) + "." + f.text(n.ChildByFieldName("attribute"))
	case "member_type":
		kids := namedChildren(n)
		parts := make([]string, 0, len(kids))
		for _, k := range kids {
			parts = append(parts, f.render(k))
		}
		return strings.Join(parts, ".")
	case "subscript":
		kids := namedChildren(n)
		if len(kids) == 0 {
			break
		}
		args := make([]string, 0, len(kids)-1)
		for _, k := range kids[1:] {
			args = append(args, f.render(k))
		}
		return f.render(kids[0]) + "[" + strings.Join(args, ", ") + "]"
	case "generic_type":
		kids := namedChildren(n)
		if len(kids) != 2 {
			break
		}
		return f.render(kids[0]) + "[" + f.render(kids[1]) + "]"
	case "type_parameter", "tuple", "expression_list":
		kids := namedChildren(n)
		parts := make([]string, 0, len(kids))
		for _, k := range kids {
			parts = append(parts, f.render(k))
		}
		return strings.Join(parts, ", ")
	case "list":
		kids := namedChildren(n)
		parts := make([]string, 0, len(kids))
		for _, k := range kids {
			parts = append(parts, f.render(k))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case "union_type":
		kids := namedChildren(n)
		parts := make([]string, 0, len(kids))
		for _, k := range kids {
			parts = append(parts, f.render(k))
		}
		return strings.Join(parts, " | ")
	}
	return strings.Join(strings.Fields(f.text(n)), " ")
}

// literal returns the Go value of a constant expression, or nil.
func (f *fileWalker) literal(n *tree_sitter.Node) any {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "string":
		if s, ok := f.stringLiteral(n); ok {
			return s
		}
	case "integer":
		if v, err := strconv.ParseInt(strings.ReplaceAll(f.text(n), "_", ""), 0, 64); err == nil {
			return v
		}
	case "float":
		if v, err := strconv.ParseFloat(strings.ReplaceAll(f.text(n), "_", ""), 64); err == nil {
			return v
		}
	case "true":
		return true
	case "false":
		return false
	}
	return nil
}

// stringLiteral returns the contents of a plain string node. Interpolated
// f-strings are not literals.
func (f *fileWalker) stringLiteral(n *tree_sitter.Node) (string, bool) {
	if n == nil || n.Kind() != "string" {
		return "", false
	}
	for _, c := range namedChildren(n) {
		if c.Kind() == "interpolation" {
			return "", false
		}
	}
	raw := strings.TrimLeft(f.text(n), "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(raw) >= 2*len(q) && strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) {
			return raw[len(q) : len(raw)-len(q)], true
		}
	}
	return "", false
}
