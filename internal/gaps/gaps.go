// Package gaps reconciles declared API contracts against the routes the
// backend defines and the endpoints the UI calls.
package gaps

import (
	"sort"
	"strings"

	"github.com/starford/stackscope/internal/backendextract"
	"github.com/starford/stackscope/internal/contracts"
	"github.com/starford/stackscope/internal/pathmatch"
	"github.com/starford/stackscope/internal/uiextract"
)

// Reasons attached to report items.
const (
	ReasonMissingEndpoint = "no matching endpoint"
	ReasonMethodMismatch  = "method differs between contract and backend"
	ReasonNotCalled       = "not called from the UI"
	ReasonNoContract      = "endpoint not covered by a contract"
)

// Item is one entry of the missing, unused or uncovered lists.
type Item struct {
	Path   string `json:"path"`
	Method string `json:"method"`
	Reason string `json:"reason"`
}

// Mismatch is a contract whose path exists in the backend under other
// methods only.
type Mismatch struct {
	Path           string   `json:"path"`
	ContractMethod string   `json:"contract_method"`
	BackendMethods []string `json:"backend_methods"`
	Reason         string   `json:"reason"`
}

// Report is the four-way reconciliation result. Lists are never nil.
type Report struct {
	MissingBackendEndpoints []Item     `json:"missing_backend_endpoints"`
	BackendWithoutContract  []Item     `json:"backend_without_contract"`
	ContractsNotUsedInUI    []Item     `json:"contracts_not_used_in_flutter"`
	MethodMismatches        []Mismatch `json:"method_mismatches"`
}

// Counts returns the length of each list keyed by its JSON name.
func (r Report) Counts() map[string]int {
	return map[string]int{
		"missing_backend_endpoints":     len(r.MissingBackendEndpoints),
		"backend_without_contract":      len(r.BackendWithoutContract),
		"contracts_not_used_in_flutter": len(r.ContractsNotUsedInUI),
		"method_mismatches":             len(r.MethodMismatches),
	}
}

// Empty reports whether every list is empty.
func (r Report) Empty() bool {
	for _, n := range r.Counts() {
		if n > 0 {
			return false
		}
	}
	return true
}

// Compute builds the report. Paths are compared with pathmatch.Match and
// methods case-insensitively. Each contract lands in exactly one of
// matched, missing or mismatched; the UI usage check is independent.
func Compute(declared []contracts.Contract, routes []backendextract.Route, calls []uiextract.Call) Report {
	rep := Report{
		MissingBackendEndpoints: []Item{},
		BackendWithoutContract:  []Item{},
		ContractsNotUsedInUI:    []Item{},
		MethodMismatches:        []Mismatch{},
	}

	methodsByPath := make(map[string]map[string]struct{})
	for _, r := range routes {
		key := pathmatch.Normalize(r.Path)
		if methodsByPath[key] == nil {
			methodsByPath[key] = map[string]struct{}{}
		}
		methodsByPath[key][strings.ToUpper(r.Method)] = struct{}{}
	}

	for _, c := range declared {
		method := strings.ToUpper(c.Method)
		if !hasRoute(routes, c.Path, method) {
			if others := methodsAt(methodsByPath, c.Path); len(others) > 0 {
				rep.MethodMismatches = append(rep.MethodMismatches, Mismatch{
					Path:           c.Path,
					ContractMethod: method,
					BackendMethods: others,
					Reason:         ReasonMethodMismatch,
				})
			} else {
				rep.MissingBackendEndpoints = append(rep.MissingBackendEndpoints, Item{
					Path: c.Path, Method: method, Reason: ReasonMissingEndpoint,
				})
			}
		}
		if !calledFromUI(calls, c.Path) {
			rep.ContractsNotUsedInUI = append(rep.ContractsNotUsedInUI, Item{
				Path: c.Path, Method: method, Reason: ReasonNotCalled,
			})
		}
	}

	for _, r := range routes {
		method := strings.ToUpper(r.Method)
		if !hasContract(declared, r.Path, method) {
			rep.BackendWithoutContract = append(rep.BackendWithoutContract, Item{
				Path: r.Path, Method: method, Reason: ReasonNoContract,
			})
		}
	}
	return rep
}

func hasRoute(routes []backendextract.Route, path, method string) bool {
	for _, r := range routes {
		if pathmatch.SameMethod(r.Method, method) && pathmatch.Match(path, r.Path) {
			return true
		}
	}
	return false
}

func hasContract(declared []contracts.Contract, path, method string) bool {
	for _, c := range declared {
		if pathmatch.SameMethod(c.Method, method) && pathmatch.Match(c.Path, path) {
			return true
		}
	}
	return false
}

func calledFromUI(calls []uiextract.Call, path string) bool {
	for _, c := range calls {
		if pathmatch.Match(path, c.Path) {
			return true
		}
	}
	return false
}

// methodsAt returns the sorted union of methods over every backend path
// matching path.
func methodsAt(methodsByPath map[string]map[string]struct{}, path string) []string {
	seen := map[string]struct{}{}
	for p, methods := range methodsByPath {
		if !pathmatch.Match(path, p) {
			continue
		}
		for m := range methods {
			seen[m] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
