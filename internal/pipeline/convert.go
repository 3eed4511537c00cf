package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/stackscope/internal/backendextract"
	"github.com/starford/stackscope/internal/graph"
	"github.com/starford/stackscope/internal/models"
	"github.com/starford/stackscope/internal/uiextract"
)

// uiEntities converts one UI result into entities: components first, then
// state containers.
func uiEntities(res *uiextract.Result) ([]models.Entity, []error) {
	var (
		out  []models.Entity
		errs []error
	)
	add := func(e models.Entity, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		out = append(out, e)
	}

	for _, comp := range res.Components {
		endpoints := []string{}
		for _, call := range res.Calls {
			if call.Owner == comp.Name {
				endpoints = append(endpoints, call.Method+" "+call.Path)
			}
		}
		add(models.NewEntity(models.EntityUIComponent, comp.Name, res.File, models.LanguageDart, map[string]any{
			"widget_type":    string(comp.Kind),
			"line_start":     comp.LineStart,
			"line_end":       comp.LineEnd,
			"dependencies":   comp.Dependencies,
			"api_calls":      comp.CallVerbs,
			"api_endpoints":  endpoints,
			"navigation":     comp.Navigation,
			"form_fields":    comp.FormFields,
			"validators":     comp.ValidatorRefs,
			"state_refs":     comp.StateRefs,
			"inline_checks":  ownedValidators(res.Validators, comp.Name),
			"imports":        res.Imports,
			"route_bindings": ownedRoutes(res.Navigations, comp.Name),
		}))
	}
	for _, sc := range res.StateContainers {
		add(models.NewEntity(models.EntityStateContainer, sc.Name, res.File, models.LanguageDart, map[string]any{
			"container_type": string(sc.Kind),
			"event_type":     sc.EventType,
			"state_type":     sc.StateType,
			"events":         sc.Events,
			"states":         sc.States,
			"line_start":     sc.LineStart,
			"line_end":       sc.LineEnd,
		}))
	}
	return out, errs
}

func ownedValidators(vs []uiextract.Validator, owner string) []string {
	out := []string{}
	for _, v := range vs {
		if v.Owner == owner {
			out = append(out, v.Body)
		}
	}
	return out
}

func ownedRoutes(navs []uiextract.Navigation, owner string) []string {
	out := []string{}
	for _, n := range navs {
		if n.Owner == owner {
			out = append(out, n.Route)
		}
	}
	return out
}

// backendEntities converts one backend result into entities: routes, schema
// models, persistence models, then service functions.
func backendEntities(res *backendextract.Result) ([]models.Entity, []error) {
	var (
		out  []models.Entity
		errs []error
	)
	add := func(e models.Entity, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		out = append(out, e)
	}

	for _, r := range res.Routes {
		add(models.NewEntity(models.EntityAPIEndpoint, r.Name, res.File, models.LanguagePython, map[string]any{
			"method":       r.Method,
			"path":         r.Path,
			"line":         r.Line,
			"is_async":     r.IsAsync,
			"parameters":   r.Params,
			"return_type":  r.ReturnType,
			"dependencies": r.Dependencies,
			"middleware":   r.Middleware,
			"calls":        r.Calls,
		}))
	}
	for _, m := range res.DataModels {
		add(models.NewEntity(models.EntityDataModel, m.Name, res.File, models.LanguagePython, map[string]any{
			"model_kind": models.ModelKindSchema,
			"line":       m.Line,
			"bases":      m.Bases,
			"fields":     m.Fields,
			"validators": m.Validators,
		}))
	}
	for _, m := range res.PersistenceModels {
		add(models.NewEntity(models.EntityDataModel, m.Name, res.File, models.LanguagePython, map[string]any{
			"model_kind":    models.ModelKindPersistence,
			"line":          m.Line,
			"bases":         m.Bases,
			"table_name":    m.TableName,
			"columns":       m.Columns,
			"relationships": m.Relationships,
		}))
	}
	for _, fn := range res.ServiceFunctions {
		add(models.NewEntity(models.EntityServiceFunction, fn.Name, res.File, models.LanguagePython, map[string]any{
			"line":                fn.Line,
			"is_async":            fn.IsAsync,
			"parameters":          fn.Params,
			"return_type":         fn.ReturnType,
			"database_operations": fn.DBOperations,
			"external_calls":      fn.ExternalCalls,
		}))
	}
	return out, errs
}

// document renders the searchable text of e: a header line followed by one
// line per scalar or list metadata value, in key order.
func document(e models.Entity) graph.Document {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s %s\n", e.Type, e.Name, e.Language, e.FilePath)

	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := e.Metadata[k].(type) {
		case string:
			if v != "" {
				fmt.Fprintf(&b, "%s: %s\n", k, v)
			}
		case []any:
			var parts []string
			for _, item := range v {
				if s, ok := item.(string); ok {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				fmt.Fprintf(&b, "%s: %s\n", k, strings.Join(parts, ", "))
			}
		}
	}
	return graph.Document{EntityID: e.ID, Title: e.Name, Body: b.String()}
}
