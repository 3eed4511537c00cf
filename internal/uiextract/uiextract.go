// Package uiextract pulls structural facts out of Flutter/Dart source text:
// widgets, bloc/cubit state containers, outbound HTTP calls, navigation,
// validators and imports. Extraction is a pattern match on declaration
// signatures followed by a brace-depth scan for each declaration's extent.
// Braces inside string literals and comments are counted like any other.
package uiextract

import (
	"regexp"
	"sort"
	"strings"
)

// WidgetKind distinguishes immutable from stateful widgets.
type WidgetKind string

const (
	WidgetStateless WidgetKind = "stateless"
	WidgetStateful  WidgetKind = "stateful"
)

// ContainerKind distinguishes event-driven blocs from single-state cubits.
type ContainerKind string

const (
	ContainerBloc  ContainerKind = "bloc"
	ContainerCubit ContainerKind = "cubit"
)

// Call styles.
const (
	CallStyleClient = "client"
	CallStyleHTTP   = "http"
)

// Navigation kinds.
const (
	NavPush            = "push"
	NavGo              = "go"
	NavRouteDefinition = "route_definition"
)

// Component is a widget class declaration.
type Component struct {
	Name          string     `json:"name"`
	Kind          WidgetKind `json:"kind"`
	LineStart     int        `json:"line_start"`
	LineEnd       int        `json:"line_end"`
	Dependencies  []string   `json:"dependencies"`
	CallVerbs     []string   `json:"call_verbs"`
	Navigation    []string   `json:"navigation"`
	FormFields    []string   `json:"form_fields"`
	ValidatorRefs []string   `json:"validator_refs"`
	StateRefs     []string   `json:"state_refs"`

	span span
}

// StateContainer is a Bloc or Cubit declaration with the events and states
// declared in the same file.
type StateContainer struct {
	Name      string        `json:"name"`
	Kind      ContainerKind `json:"kind"`
	EventType string        `json:"event_type,omitempty"`
	StateType string        `json:"state_type"`
	Events    []string      `json:"events"`
	States    []string      `json:"states"`
	LineStart int           `json:"line_start"`
	LineEnd   int           `json:"line_end"`

	span span
}

// Call is an outbound HTTP call site with a literal path.
type Call struct {
	Style  string `json:"style"`
	Method string `json:"method"`
	Path   string `json:"path"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Owner  string `json:"owner,omitempty"`
}

// Navigation is a push/go call or a route table entry.
type Navigation struct {
	Kind   string `json:"kind"`
	Route  string `json:"route"`
	Target string `json:"target,omitempty"`
	Line   int    `json:"line"`
	Owner  string `json:"owner,omitempty"`
}

// Validator is an inline validator closure. Body is kept verbatim.
type Validator struct {
	Body  string `json:"body"`
	File  string `json:"file"`
	Line  int    `json:"line"`
	Owner string `json:"owner,omitempty"`
}

// Result holds everything extracted from one file.
type Result struct {
	File            string           `json:"file"`
	Components      []Component      `json:"components"`
	StateContainers []StateContainer `json:"state_containers"`
	Calls           []Call           `json:"calls"`
	Navigations     []Navigation     `json:"navigations"`
	Validators      []Validator      `json:"validators"`
	Imports         []string         `json:"imports"`
}

var (
	// Class names may carry type parameters: class ListView<T> extends ...
	widgetRe = regexp.MustCompile(`class\s+(\w+)(?:<[^>{]*>)?\s+extends\s+(StatelessWidget|StatefulWidget)\b[^{;]*\{`)
	stateRe  = regexp.MustCompile(`class\s+(\w+)(?:<[^>{]*>)?\s+extends\s+State<\s*(\w+)\s*(?:<[^>{]*>)?\s*>[^{;]*\{`)
	blocRe   = regexp.MustCompile(`class\s+(\w+)(?:<[^>{]*>)?\s+extends\s+Bloc<\s*(\w+)\s*,\s*(\w+)\s*>[^{;]*\{`)
	cubitRe  = regexp.MustCompile(`class\s+(\w+)(?:<[^>{]*>)?\s+extends\s+Cubit<\s*(\w+)\s*>[^{;]*\{`)

	clientCallRe = regexp.MustCompile(`\b(?:dio|_dio|client|_client|apiClient|_apiClient)\.(get|post|put|delete|patch)(?:<[^>(]*>)?\(\s*['"]([^'"\s]+)['"]`)
	httpCallRe   = regexp.MustCompile(`\bhttp\.(get|post|put|delete|patch)\(\s*Uri\.parse\(\s*['"]([^'"\s]+)['"]`)

	pushRe     = regexp.MustCompile(`Navigator\.push\w*\([^,]+,\s*['"]([^'"]+)['"]`)
	goRe       = regexp.MustCompile(`context\.(?:go|push|goNamed|pushNamed)\(\s*['"]([^'"]+)['"]`)
	routeDefRe = regexp.MustCompile(`['"]([^'"\s]+)['"]\s*:\s*\([^)]*\)\s*=>\s*(?:const\s+)?([A-Z]\w*)\(`)

	inlineValidatorRe = regexp.MustCompile(`(?s)validator:\s*\([^)]*\)\s*\{([^}]*)\}`)
	arrowValidatorRe  = regexp.MustCompile(`validator:\s*\([^)]*\)\s*=>\s*([^\n]+)`)

	importRe = regexp.MustCompile(`import\s+['"]([^'"]+)['"]`)

	dependencyRe   = regexp.MustCompile(`\b([A-Z]\w*)[(.]`)
	callVerbRe     = regexp.MustCompile(`\b(?:dio|_dio|http|client|_client|apiClient|_apiClient|ApiClient)\.(\w+)\(`)
	formFieldRe    = regexp.MustCompile(`\b(TextFormField|DropdownButtonFormField|CheckboxFormField|RadioFormField)\s*(?:<[^>(]*>)?\(`)
	validatorRefRe = regexp.MustCompile(`Validators\.(\w+)|validator:\s*([A-Za-z_]\w*)`)
	stateRefRe     = regexp.MustCompile(`\b(?:BlocProvider|BlocBuilder|BlocListener|BlocConsumer|BlocSelector|ChangeNotifierProvider|Provider|Consumer)<\s*(\w+)|context\.(?:read|watch|select)<\s*(\w+)`)
)

// Control-flow words never reported as dependencies.
var controlFlow = map[string]struct{}{
	"if": {}, "for": {}, "while": {}, "return": {}, "switch": {}, "catch": {}, "assert": {},
}

// Extract scans src. It never fails: input that does not match any known
// shape simply produces empty lists.
func Extract(src, file string) *Result {
	lines := newLineIndex(src)
	res := &Result{
		File:            file,
		Components:      []Component{},
		StateContainers: []StateContainer{},
		Calls:           []Call{},
		Navigations:     []Navigation{},
		Validators:      []Validator{},
		Imports:         []string{},
	}

	var stateOwners []owned
	res.Components, stateOwners = extractComponents(src, lines)
	res.StateContainers = extractContainers(src, lines)

	owners := make([]owned, 0, len(res.Components)+len(res.StateContainers)+len(stateOwners))
	owners = append(owners, stateOwners...)
	for _, c := range res.Components {
		owners = append(owners, owned{name: c.Name, span: c.span})
	}
	for _, sc := range res.StateContainers {
		owners = append(owners, owned{name: sc.Name, span: sc.span})
	}
	ownerAt := func(off int) string { return innermost(owners, off) }

	res.Calls = extractCalls(src, file, lines, ownerAt)
	res.Navigations = extractNavigation(src, lines, ownerAt)
	res.Validators = extractValidators(src, file, lines, ownerAt)
	for _, m := range importRe.FindAllStringSubmatch(src, -1) {
		res.Imports = append(res.Imports, m[1])
	}
	return res
}

// extractComponents finds widget declarations. A stateful widget's facts
// include the body of its State<T> class when it is declared in the same file.
func extractComponents(src string, lines lineIndex) ([]Component, []owned) {
	stateSpans := map[string]span{}
	for _, m := range stateRe.FindAllStringSubmatchIndex(src, -1) {
		widget := src[m[4]:m[5]]
		if _, dup := stateSpans[widget]; !dup {
			stateSpans[widget] = span{start: m[0], end: scopeEnd(src, m[0])}
		}
	}

	out := []Component{}
	var stateOwners []owned
	for _, m := range widgetRe.FindAllStringSubmatchIndex(src, -1) {
		name := src[m[2]:m[3]]
		kind := WidgetStateless
		if src[m[4]:m[5]] == "StatefulWidget" {
			kind = WidgetStateful
		}
		sp := span{start: m[0], end: scopeEnd(src, m[0])}
		body := sp.text(src)
		if kind == WidgetStateful {
			if st, ok := stateSpans[name]; ok {
				body += "\n" + st.text(src)
				stateOwners = append(stateOwners, owned{name: name, span: st})
			}
		}
		out = append(out, Component{
			Name:          name,
			Kind:          kind,
			LineStart:     lines.line(sp.start),
			LineEnd:       lines.line(sp.end),
			Dependencies:  dependencies(body, name),
			CallVerbs:     uniqueGroups(callVerbRe, body),
			Navigation:    navigationTargets(body),
			FormFields:    formFields(body),
			ValidatorRefs: validatorRefs(body),
			StateRefs:     uniqueGroups(stateRefRe, body),
			span:          sp,
		})
	}
	return out, stateOwners
}

func extractContainers(src string, lines lineIndex) []StateContainer {
	out := []StateContainer{}
	for _, m := range blocRe.FindAllStringSubmatchIndex(src, -1) {
		sp := span{start: m[0], end: scopeEnd(src, m[0])}
		event, state := src[m[4]:m[5]], src[m[6]:m[7]]
		out = append(out, StateContainer{
			Name:      src[m[2]:m[3]],
			Kind:      ContainerBloc,
			EventType: event,
			StateType: state,
			Events:    subclassesOf(src, event),
			States:    subclassesOf(src, state),
			LineStart: lines.line(sp.start),
			LineEnd:   lines.line(sp.end),
			span:      sp,
		})
	}
	for _, m := range cubitRe.FindAllStringSubmatchIndex(src, -1) {
		sp := span{start: m[0], end: scopeEnd(src, m[0])}
		state := src[m[4]:m[5]]
		out = append(out, StateContainer{
			Name:      src[m[2]:m[3]],
			Kind:      ContainerCubit,
			StateType: state,
			Events:    []string{},
			States:    subclassesOf(src, state),
			LineStart: lines.line(sp.start),
			LineEnd:   lines.line(sp.end),
			span:      sp,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].span.start < out[j].span.start })
	return out
}

// subclassesOf returns every class in src that directly extends typeName.
func subclassesOf(src, typeName string) []string {
	re := regexp.MustCompile(`class\s+(\w+)\s+extends\s+` + regexp.QuoteMeta(typeName) + `\b`)
	out := []string{}
	for _, m := range re.FindAllStringSubmatch(src, -1) {
		out = append(out, m[1])
	}
	return out
}

func extractCalls(src, file string, lines lineIndex, ownerAt func(int) string) []Call {
	out := []Call{}
	collect := func(re *regexp.Regexp, style string) {
		for _, m := range re.FindAllStringSubmatchIndex(src, -1) {
			out = append(out, Call{
				Style:  style,
				Method: strings.ToUpper(src[m[2]:m[3]]),
				Path:   src[m[4]:m[5]],
				File:   file,
				Line:   lines.line(m[0]),
				Owner:  ownerAt(m[0]),
			})
		}
	}
	collect(clientCallRe, CallStyleClient)
	collect(httpCallRe, CallStyleHTTP)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

func extractNavigation(src string, lines lineIndex, ownerAt func(int) string) []Navigation {
	type hit struct {
		off int
		nav Navigation
	}
	var hits []hit
	for _, m := range pushRe.FindAllStringSubmatchIndex(src, -1) {
		hits = append(hits, hit{m[0], Navigation{Kind: NavPush, Route: src[m[2]:m[3]]}})
	}
	for _, m := range goRe.FindAllStringSubmatchIndex(src, -1) {
		hits = append(hits, hit{m[0], Navigation{Kind: NavGo, Route: src[m[2]:m[3]]}})
	}
	for _, m := range routeDefRe.FindAllStringSubmatchIndex(src, -1) {
		hits = append(hits, hit{m[0], Navigation{Kind: NavRouteDefinition, Route: src[m[2]:m[3]], Target: src[m[4]:m[5]]}})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].off < hits[j].off })

	out := make([]Navigation, 0, len(hits))
	for _, h := range hits {
		h.nav.Line = lines.line(h.off)
		h.nav.Owner = ownerAt(h.off)
		out = append(out, h.nav)
	}
	return out
}

func extractValidators(src, file string, lines lineIndex, ownerAt func(int) string) []Validator {
	type hit struct {
		off  int
		body string
	}
	var hits []hit
	for _, m := range inlineValidatorRe.FindAllStringSubmatchIndex(src, -1) {
		hits = append(hits, hit{m[0], strings.TrimSpace(src[m[2]:m[3]])})
	}
	for _, m := range arrowValidatorRe.FindAllStringSubmatchIndex(src, -1) {
		hits = append(hits, hit{m[0], strings.TrimRight(strings.TrimSpace(src[m[2]:m[3]]), ",")})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].off < hits[j].off })

	out := make([]Validator, 0, len(hits))
	for _, h := range hits {
		out = append(out, Validator{Body: h.body, File: file, Line: lines.line(h.off), Owner: ownerAt(h.off)})
	}
	return out
}

func dependencies(body, self string) []string {
	seen := map[string]struct{}{}
	for _, m := range dependencyRe.FindAllStringSubmatch(body, -1) {
		name := m[1]
		if name == self {
			continue
		}
		if _, skip := controlFlow[strings.ToLower(name)]; skip {
			continue
		}
		seen[name] = struct{}{}
	}
	return sortedKeys(seen)
}

func navigationTargets(body string) []string {
	out := []string{}
	for _, re := range []*regexp.Regexp{pushRe, goRe} {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			out = append(out, m[1])
		}
	}
	return out
}

func formFields(body string) []string {
	out := []string{}
	for _, m := range formFieldRe.FindAllStringSubmatch(body, -1) {
		out = append(out, m[1])
	}
	return out
}

func validatorRefs(body string) []string {
	seen := map[string]struct{}{}
	for _, m := range validatorRefRe.FindAllStringSubmatch(body, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name == "" || name == "Validators" {
			continue
		}
		seen[name] = struct{}{}
	}
	return sortedKeys(seen)
}

// uniqueGroups returns the sorted set of the first non-empty capture group
// of every match of re in s.
func uniqueGroups(re *regexp.Regexp, s string) []string {
	seen := map[string]struct{}{}
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		for _, g := range m[1:] {
			if g != "" {
				seen[g] = struct{}{}
				break
			}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
