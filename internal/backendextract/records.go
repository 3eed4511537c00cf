package backendextract

// Param is one function parameter. Default is set only for literal
// constants (string, int, float, bool); anything else is nil.
type Param struct {
	Name       string `json:"name"`
	Annotation string `json:"annotation,omitempty"`
	Default    any    `json:"default"`
	Injected   bool   `json:"injected,omitempty"`
}

// Route is a decorator-registered HTTP handler.
type Route struct {
	Name         string   `json:"name"`
	Method       string   `json:"method"`
	Path         string   `json:"path"`
	File         string   `json:"file"`
	Line         int      `json:"line"`
	IsAsync      bool     `json:"is_async"`
	Params       []Param  `json:"parameters"`
	ReturnType   string   `json:"return_type,omitempty"`
	Dependencies []string `json:"dependencies"`
	Middleware   []string `json:"middleware"`
	Calls        []string `json:"calls"`
}

// Field is an annotated class attribute of a schema model.
type Field struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default any    `json:"default"`
}

// DataModel is a request/response schema class.
type DataModel struct {
	Name       string   `json:"name"`
	Line       int      `json:"line"`
	Bases      []string `json:"bases"`
	Fields     []Field  `json:"fields"`
	Validators []string `json:"validators"`
}

// Column is a mapped table column. Constraints are rendered "key=value".
type Column struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Constraints []string `json:"constraints"`
}

// Relation is an ORM relationship attribute.
type Relation struct {
	Name   string `json:"name"`
	Target string `json:"target"`
}

// PersistenceModel is an ORM-mapped class.
type PersistenceModel struct {
	Name          string     `json:"name"`
	Line          int        `json:"line"`
	Bases         []string   `json:"bases"`
	TableName     string     `json:"table_name,omitempty"`
	Columns       []Column   `json:"columns"`
	Relationships []Relation `json:"relationships"`
}

// ServiceFunction is a public module-level function. Route handlers are
// service functions too.
type ServiceFunction struct {
	Name          string   `json:"name"`
	Line          int      `json:"line"`
	IsAsync       bool     `json:"is_async"`
	Params        []Param  `json:"parameters"`
	ReturnType    string   `json:"return_type,omitempty"`
	DBOperations  []string `json:"database_operations"`
	ExternalCalls []string `json:"external_calls"`
}

// Validator is a function named like a validation or carrying a validator
// decorator. Owner is the enclosing class, empty at module level.
type Validator struct {
	Name  string `json:"name"`
	Owner string `json:"owner,omitempty"`
	File  string `json:"file"`
	Line  int    `json:"line"`
}

// Result holds everything extracted from one file.
type Result struct {
	File              string             `json:"file"`
	Routes            []Route            `json:"routes"`
	DataModels        []DataModel        `json:"data_models"`
	PersistenceModels []PersistenceModel `json:"persistence_models"`
	ServiceFunctions  []ServiceFunction  `json:"service_functions"`
	Validators        []Validator        `json:"validators"`
	Imports           []string           `json:"imports"`
}

func emptyResult(file string) *Result {
	return &Result{
		File:              file,
		Routes:            []Route{},
		DataModels:        []DataModel{},
		PersistenceModels: []PersistenceModel{},
		ServiceFunctions:  []ServiceFunction{},
		Validators:        []Validator{},
		Imports:           []string{},
	}
}
