package pipeline

import (
	"context"
	"strings"

	"github.com/starford/stackscope/internal/models"
)

// persistRelationships adds the structural edges that do not come from
// the cross-reference builder:
//   - ui_component uses state_container when the component names it
//   - api_endpoint uses service_function when the route body calls it
//   - data_model extends data_model when a base class names another model
//
// Names resolve across files; a name declared in several files links to
// each declaration.
func (c *Coordinator) persistRelationships(ctx context.Context, ext *extraction, sum *Summary) {
	containers := map[string][]string{}
	for _, res := range ext.ui {
		for _, sc := range res.StateContainers {
			containers[sc.Name] = append(containers[sc.Name], models.EntityID(models.EntityStateContainer, sc.Name, res.File))
		}
	}
	for _, res := range ext.ui {
		for _, comp := range res.Components {
			src := models.EntityID(models.EntityUIComponent, comp.Name, res.File)
			for _, name := range union(comp.Dependencies, comp.StateRefs) {
				for _, tgt := range containers[name] {
					c.upsertEdge(ctx, src, tgt, models.RelUses, map[string]any{"via": "dependency"}, sum)
				}
			}
		}
	}

	services := map[string][]string{}
	dataModels := map[string][]string{}
	for _, res := range ext.backend {
		for _, fn := range res.ServiceFunctions {
			services[fn.Name] = append(services[fn.Name], models.EntityID(models.EntityServiceFunction, fn.Name, res.File))
		}
		for _, m := range res.DataModels {
			dataModels[m.Name] = append(dataModels[m.Name], models.EntityID(models.EntityDataModel, m.Name, res.File))
		}
		for _, m := range res.PersistenceModels {
			dataModels[m.Name] = append(dataModels[m.Name], models.EntityID(models.EntityDataModel, m.Name, res.File))
		}
	}
	for _, res := range ext.backend {
		for _, r := range res.Routes {
			src := models.EndpointID(r.Name, r.Method, r.Path, res.File)
			for _, name := range r.Calls {
				for _, tgt := range services[name] {
					c.upsertEdge(ctx, src, tgt, models.RelUses, map[string]any{"via": "call"}, sum)
				}
			}
		}
		extend := func(name string, bases []string) {
			src := models.EntityID(models.EntityDataModel, name, res.File)
			for _, base := range bases {
				for _, tgt := range dataModels[lastSegment(base)] {
					if tgt != src {
						c.upsertEdge(ctx, src, tgt, models.RelExtends, map[string]any{"base": base}, sum)
					}
				}
			}
		}
		for _, m := range res.DataModels {
			extend(m.Name, m.Bases)
		}
		for _, m := range res.PersistenceModels {
			extend(m.Name, m.Bases)
		}
	}
}

func union(a, b []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func lastSegment(dotted string) string {
	if i := strings.LastIndex(dotted, "."); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}
