// Package backendextract derives routes, schema models, ORM models and
// service functions from Python/FastAPI sources using a tree-sitter syntax
// tree.
package backendextract

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/starford/stackscope/internal/apperr"
)

var (
	routeVerbs    = set("get", "post", "put", "delete", "patch")
	dbVerbs       = set("query", "add", "commit", "delete", "update", "filter", "join")
	externalVerbs = set("get", "post", "put", "delete", "request")
	columnCtors   = set("Column", "mapped_column")
)

const (
	dependsMarker    = "Depends"
	schemaBaseMarker = "BaseModel"
	validatorMarker  = "validator"
	validateMarker   = "validate"
	middlewareMarker = "middleware"
)

var errSyntax = errors.New("syntax errors in source")

// Extractor parses Python sources. It is safe for concurrent use; each call
// to Extract uses its own parser.
type Extractor struct {
	lang *tree_sitter.Language
}

// New returns an Extractor for the Python grammar.
func New() *Extractor {
	return &Extractor{lang: tree_sitter.NewLanguage(tree_sitter_python.Language())}
}

// Extract parses src and returns the records it contains. A file whose tree
// has syntax errors yields an empty result and an *apperr.ExtractionError.
func (x *Extractor) Extract(src []byte, file string) (*Result, error) {
	res := emptyResult(file)

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(x.lang); err != nil {
		return res, &apperr.ExtractionError{Path: file, Err: fmt.Errorf("set language: %w", err)}
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return res, &apperr.ExtractionError{Path: file, Err: errors.New("parse returned no tree")}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return res, &apperr.ExtractionError{Path: file, Err: errSyntax}
	}

	f := &fileWalker{src: src, file: file, res: res}
	f.collectRoutes(root)
	f.collectClasses(root)
	f.collectServiceFunctions(root)
	f.collectValidators(root)
	f.collectImports(root)
	return res, nil
}

type fileWalker struct {
	src  []byte
	file string
	res  *Result
}

func (f *fileWalker) text(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(f.src)
}

func lineOf(n *tree_sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

// walk visits n and its named descendants depth-first. Returning false from
// fn skips the node's children.
func walk(n *tree_sitter.Node, fn func(*tree_sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		walk(n.NamedChild(i), fn)
	}
}

func namedChildren(n *tree_sitter.Node) []*tree_sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*tree_sitter.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil || c.Kind() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// decoratorsOf returns the decorator expressions attached to a definition.
func decoratorsOf(def *tree_sitter.Node) []*tree_sitter.Node {
	parent := def.Parent()
	if parent == nil || parent.Kind() != "decorated_definition" {
		return nil
	}
	var out []*tree_sitter.Node
	for _, c := range namedChildren(parent) {
		if c.Kind() != "decorator" {
			continue
		}
		if expr := namedChildren(c); len(expr) > 0 {
			out = append(out, expr[0])
		}
	}
	return out
}

// decoratorName renders the callable part of a decorator: `app.get` for
// `@app.get("/x")`, `field_validator` for `@field_validator("a")`.
func (f *fileWalker) decoratorName(expr *tree_sitter.Node) string {
	if expr.Kind() == "call" {
		return f.render(expr.ChildByFieldName("function"))
	}
	return f.render(expr)
}

func isAsync(fn *tree_sitter.Node) bool {
	first := fn.Child(0)
	return first != nil && first.Kind() == "async"
}

func (f *fileWalker) collectRoutes(root *tree_sitter.Node) {
	walk(root, func(n *tree_sitter.Node) bool {
		if n.Kind() != "function_definition" {
			return true
		}
		for _, dec := range decoratorsOf(n) {
			method, path, ok := f.routeDecorator(dec)
			if !ok {
				continue
			}
			f.res.Routes = append(f.res.Routes, f.route(n, method, path))
		}
		return true
	})
}

// routeDecorator recognises `@<obj>.<verb>(<path>, ...)`.
func (f *fileWalker) routeDecorator(dec *tree_sitter.Node) (method, path string, ok bool) {
	if dec.Kind() != "call" {
		return "", "", false
	}
	fn := dec.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "attribute" {
		return "", "", false
	}
	verb := f.text(fn.ChildByFieldName("attribute"))
	if _, known := routeVerbs[verb]; !known {
		return "", "", false
	}
	for _, arg := range namedChildren(dec.ChildByFieldName("arguments")) {
		if arg.Kind() == "keyword_argument" {
			continue
		}
		if s, lit := f.stringLiteral(arg); lit {
			path = s
		}
		break
	}
	return strings.ToUpper(verb), path, true
}

func (f *fileWalker) route(fn *tree_sitter.Node, method, path string) Route {
	params := f.params(fn)
	deps := []string{}
	for _, p := range params {
		if p.Injected {
			deps = append(deps, p.Name)
		}
	}
	middleware := []string{}
	for _, dec := range decoratorsOf(fn) {
		if dec.Kind() == "call" {
			continue
		}
		if name := f.render(dec); strings.Contains(strings.ToLower(name), middlewareMarker) {
			middleware = append(middleware, name)
		}
	}
	return Route{
		Name:         f.text(fn.ChildByFieldName("name")),
		Method:       method,
		Path:         path,
		File:         f.file,
		Line:         lineOf(fn),
		IsAsync:      isAsync(fn),
		Params:       params,
		ReturnType:   f.render(fn.ChildByFieldName("return_type")),
		Dependencies: deps,
		Middleware:   middleware,
		Calls:        f.callNames(fn.ChildByFieldName("body")),
	}
}

// params lists the parameters of fn. A parameter is injected when its
// annotation or default mentions Depends.
func (f *fileWalker) params(fn *tree_sitter.Node) []Param {
	out := []Param{}
	for _, p := range namedChildren(fn.ChildByFieldName("parameters")) {
		var param Param
		var defaultNode *tree_sitter.Node
		switch p.Kind() {
		case "identifier":
			param.Name = f.text(p)
		case "typed_parameter":
			if kids := namedChildren(p); len(kids) > 0 {
				param.Name = f.text(kids[0])
			}
			param.Annotation = f.render(p.ChildByFieldName("type"))
		case "default_parameter":
			param.Name = f.text(p.ChildByFieldName("name"))
			defaultNode = p.ChildByFieldName("value")
		case "typed_default_parameter":
			param.Name = f.text(p.ChildByFieldName("name"))
			param.Annotation = f.render(p.ChildByFieldName("type"))
			defaultNode = p.ChildByFieldName("value")
		default:
			continue
		}
		if defaultNode != nil {
			param.Default = f.literal(defaultNode)
		}
		param.Injected = strings.Contains(param.Annotation, dependsMarker) ||
			strings.Contains(f.text(defaultNode), dependsMarker)
		out = append(out, param)
	}
	return out
}

// callNames returns the sorted set of callee names invoked under n, using
// the attribute name for method calls.
func (f *fileWalker) callNames(n *tree_sitter.Node) []string {
	seen := map[string]struct{}{}
	walk(n, func(c *tree_sitter.Node) bool {
		if c.Kind() != "call" {
			return true
		}
		switch fn := c.ChildByFieldName("function"); {
		case fn == nil:
		case fn.Kind() == "identifier":
			seen[f.text(fn)] = struct{}{}
		case fn.Kind() == "attribute":
			seen[f.text(fn.ChildByFieldName("attribute"))] = struct{}{}
		}
		return true
	})
	return sortedKeys(seen)
}

// attributeCalls returns the sorted set of method names called under n that
// belong to verbs.
func (f *fileWalker) attributeCalls(n *tree_sitter.Node, verbs map[string]struct{}) []string {
	seen := map[string]struct{}{}
	walk(n, func(c *tree_sitter.Node) bool {
		if c.Kind() != "call" {
			return true
		}
		fn := c.ChildByFieldName("function")
		if fn == nil || fn.Kind() != "attribute" {
			return true
		}
		if name := f.text(fn.ChildByFieldName("attribute")); name != "" {
			if _, ok := verbs[name]; ok {
				seen[name] = struct{}{}
			}
		}
		return true
	})
	return sortedKeys(seen)
}

// topLevel returns module-level definitions of the given kind, unwrapping
// decorated definitions.
func topLevel(root *tree_sitter.Node, kind string) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	for _, c := range namedChildren(root) {
		if c.Kind() == "decorated_definition" {
			c = c.ChildByFieldName("definition")
		}
		if c != nil && c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

func (f *fileWalker) collectServiceFunctions(root *tree_sitter.Node) {
	for _, fn := range topLevel(root, "function_definition") {
		name := f.text(fn.ChildByFieldName("name"))
		if name == "" || strings.HasPrefix(name, "_") {
			continue
		}
		body := fn.ChildByFieldName("body")
		f.res.ServiceFunctions = append(f.res.ServiceFunctions, ServiceFunction{
			Name:          name,
			Line:          lineOf(fn),
			IsAsync:       isAsync(fn),
			Params:        f.params(fn),
			ReturnType:    f.render(fn.ChildByFieldName("return_type")),
			DBOperations:  f.attributeCalls(body, dbVerbs),
			ExternalCalls: f.attributeCalls(body, externalVerbs),
		})
	}
}

func (f *fileWalker) collectImports(root *tree_sitter.Node) {
	for _, c := range namedChildren(root) {
		switch c.Kind() {
		case "import_statement":
			for _, name := range namedChildren(c) {
				f.res.Imports = append(f.res.Imports, f.importName(name))
			}
		case "import_from_statement":
			kids := namedChildren(c)
			if len(kids) == 0 {
				continue
			}
			module := f.text(kids[0])
			for _, name := range kids[1:] {
				f.res.Imports = append(f.res.Imports, module+"."+f.importName(name))
			}
		}
	}
}

func (f *fileWalker) importName(n *tree_sitter.Node) string {
	switch n.Kind() {
	case "aliased_import":
		return f.text(n.ChildByFieldName("name"))
	case "wildcard_import":
		return "*"
	}
	return f.text(n)
}

func set(items ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		if k != "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
