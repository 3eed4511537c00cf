package backendextract

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// collectClasses classifies every class definition. A class whose bases
// mention BaseModel is a schema model; otherwise a base mentioning Base or
// Model makes it a persistence model.
func (f *fileWalker) collectClasses(root *tree_sitter.Node) {
	walk(root, func(n *tree_sitter.Node) bool {
		if n.Kind() != "class_definition" {
			return true
		}
		bases := f.bases(n)
		switch {
		case anyContains(bases, schemaBaseMarker):
			f.res.DataModels = append(f.res.DataModels, f.dataModel(n, bases))
		case anyContains(bases, "Base") || anyContains(bases, "Model"):
			f.res.PersistenceModels = append(f.res.PersistenceModels, f.persistenceModel(n, bases))
		}
		return true
	})
}

func (f *fileWalker) bases(class *tree_sitter.Node) []string {
	out := []string{}
	for _, b := range namedChildren(class.ChildByFieldName("superclasses")) {
		if b.Kind() == "keyword_argument" {
			continue
		}
		out = append(out, f.render(b))
	}
	return out
}

func anyContains(items []string, marker string) bool {
	for _, it := range items {
		if strings.Contains(it, marker) {
			return true
		}
	}
	return false
}

// classBody yields the statements directly inside a class body.
func classBody(class *tree_sitter.Node) []*tree_sitter.Node {
	return namedChildren(class.ChildByFieldName("body"))
}

// assignmentOf unwraps `expression_statement > assignment`.
func assignmentOf(stmt *tree_sitter.Node) *tree_sitter.Node {
	if stmt.Kind() != "expression_statement" {
		return nil
	}
	kids := namedChildren(stmt)
	if len(kids) == 0 || kids[0].Kind() != "assignment" {
		return nil
	}
	return kids[0]
}

func (f *fileWalker) dataModel(class *tree_sitter.Node, bases []string) DataModel {
	m := DataModel{
		Name:       f.text(class.ChildByFieldName("name")),
		Line:       lineOf(class),
		Bases:      bases,
		Fields:     []Field{},
		Validators: []string{},
	}
	for _, stmt := range classBody(class) {
		if asg := assignmentOf(stmt); asg != nil {
			left, typ := asg.ChildByFieldName("left"), asg.ChildByFieldName("type")
			if typ == nil || left == nil || left.Kind() != "identifier" {
				continue
			}
			field := Field{Name: f.text(left), Type: f.render(typ)}
			if right := asg.ChildByFieldName("right"); right != nil {
				field.Default = f.literal(right)
			}
			m.Fields = append(m.Fields, field)
			continue
		}
		if stmt.Kind() != "decorated_definition" {
			continue
		}
		def := stmt.ChildByFieldName("definition")
		if def == nil || def.Kind() != "function_definition" {
			continue
		}
		for _, dec := range decoratorsOf(def) {
			if strings.Contains(strings.ToLower(f.decoratorName(dec)), validatorMarker) {
				m.Validators = append(m.Validators, f.text(def.ChildByFieldName("name")))
				break
			}
		}
	}
	return m
}

func (f *fileWalker) persistenceModel(class *tree_sitter.Node, bases []string) PersistenceModel {
	m := PersistenceModel{
		Name:          f.text(class.ChildByFieldName("name")),
		Line:          lineOf(class),
		Bases:         bases,
		Columns:       []Column{},
		Relationships: []Relation{},
	}
	for _, stmt := range classBody(class) {
		asg := assignmentOf(stmt)
		if asg == nil {
			continue
		}
		left, right := asg.ChildByFieldName("left"), asg.ChildByFieldName("right")
		if left == nil || right == nil || left.Kind() != "identifier" {
			continue
		}
		name := f.text(left)
		if name == "__tablename__" {
			if s, ok := f.stringLiteral(right); ok {
				m.TableName = s
			}
			continue
		}
		if right.Kind() != "call" {
			continue
		}
		callee := lastSegment(f.render(right.ChildByFieldName("function")))
		switch {
		case hasKey(columnCtors, callee):
			m.Columns = append(m.Columns, f.column(name, asg, right))
		case callee == "relationship":
			m.Relationships = append(m.Relationships, Relation{Name: name, Target: f.firstArgName(right)})
		}
	}
	return m
}

var columnFlags = []string{"primary_key", "nullable", "unique", "index"}

func (f *fileWalker) column(name string, asg, call *tree_sitter.Node) Column {
	col := Column{Name: name, Constraints: []string{}}
	for _, arg := range namedChildren(call.ChildByFieldName("arguments")) {
		if arg.Kind() == "keyword_argument" {
			key := f.text(arg.ChildByFieldName("name"))
			for _, flag := range columnFlags {
				if key == flag {
					col.Constraints = append(col.Constraints, key+"="+f.text(arg.ChildByFieldName("value")))
				}
			}
			continue
		}
		if col.Type == "" {
			if arg.Kind() == "call" {
				col.Type = f.render(arg.ChildByFieldName("function"))
			} else {
				col.Type = f.render(arg)
			}
		}
	}
	if col.Type == "" {
		// mapped_column(...) without a type argument: use Mapped[T].
		col.Type = unwrapMapped(f.render(asg.ChildByFieldName("type")))
	}
	return col
}

func (f *fileWalker) firstArgName(call *tree_sitter.Node) string {
	for _, arg := range namedChildren(call.ChildByFieldName("arguments")) {
		if arg.Kind() == "keyword_argument" {
			continue
		}
		if s, ok := f.stringLiteral(arg); ok {
			return s
		}
		return f.render(arg)
	}
	return ""
}

func unwrapMapped(s string) string {
	if strings.HasPrefix(s, "Mapped[") && strings.HasSuffix(s, "]") {
		return strings.TrimSuffix(strings.TrimPrefix(s, "Mapped["), "]")
	}
	return s
}

func lastSegment(dotted string) string {
	if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}

func hasKey(m map[string]struct{}, k string) bool {
	_, ok := m[k]
	return ok
}
