package backendextract

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// collectValidators records every function, at any depth, whose name
// mentions validate or whose decorator mentions validator.
func (f *fileWalker) collectValidators(root *tree_sitter.Node) {
	walk(root, func(n *tree_sitter.Node) bool {
		if n.Kind() != "function_definition" {
			return true
		}
		name := f.text(n.ChildByFieldName("name"))
		if name == "" || !f.isValidator(n, name) {
			return true
		}
		f.res.Validators = append(f.res.Validators, Validator{
			Name:  name,
			Owner: f.enclosingClass(n),
			File:  f.file,
			Line:  lineOf(n),
		})
		return true
	})
}

func (f *fileWalker) isValidator(fn *tree_sitter.Node, name string) bool {
	if strings.Contains(strings.ToLower(name), validateMarker) {
		return true
	}
	for _, dec := range decoratorsOf(fn) {
		if strings.Contains(strings.ToLower(f.decoratorName(dec)), validatorMarker) {
			return true
		}
	}
	return false
}

func (f *fileWalker) enclosingClass(n *tree_sitter.Node) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == "class_definition" {
			return f.text(p.ChildByFieldName("name"))
		}
	}
	return ""
}
