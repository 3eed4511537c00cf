package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/starford/stackscope/internal/apperr"
	"github.com/starford/stackscope/internal/contracts"
	"github.com/starford/stackscope/internal/gaps"
	"github.com/starford/stackscope/internal/models"
	"github.com/starford/stackscope/internal/uiextract"
	"github.com/starford/stackscope/internal/xref"
)

// persistEntities writes every extracted entity and its search document.
// Writes are sequential; each is its own transaction.
func (c *Coordinator) persistEntities(ctx context.Context, ext *extraction, sum *Summary) {
	for _, res := range ext.ui {
		ents, errs := uiEntities(res)
		c.upsertEntities(ctx, ents, errs, sum)
	}
	for _, res := range ext.backend {
		ents, errs := backendEntities(res)
		c.upsertEntities(ctx, ents, errs, sum)
	}
}

func (c *Coordinator) upsertEntities(ctx context.Context, ents []models.Entity, invalid []error, sum *Summary) {
	for _, err := range invalid {
		c.persistFailed(&apperr.PersistenceError{Op: "validate entity", Err: err}, sum)
	}
	for _, e := range ents {
		if err := c.store.UpsertEntity(ctx, e); err != nil {
			c.persistFailed(&apperr.PersistenceError{Op: "entity", ID: e.ID, Err: err}, sum)
			continue
		}
		sum.Entities++
		if err := c.store.IndexDocument(ctx, document(e)); err != nil {
			c.persistFailed(&apperr.PersistenceError{Op: "document", ID: e.ID, Err: err}, sum)
		}
	}
}

func (c *Coordinator) persistFailed(err *apperr.PersistenceError, sum *Summary) {
	sum.PersistenceErrors++
	c.logger.Warn("pipeline: persist failed",
		slog.String("op", err.Op),
		slog.String("id", err.ID),
		slog.String("error", err.Err.Error()))
}

// upsertEdge writes one relationship. A referential warning still counts
// the edge as written.
func (c *Coordinator) upsertEdge(ctx context.Context, src, tgt string, t models.RelationshipType, md map[string]any, sum *Summary) {
	rel, err := models.NewRelationship(src, tgt, t, md)
	if err != nil {
		c.persistFailed(&apperr.PersistenceError{Op: "validate relationship", ID: src + "->" + tgt, Err: err}, sum)
		return
	}
	err = c.store.UpsertRelationship(ctx, rel)
	var warn *apperr.ReferentialWarning
	switch {
	case err == nil:
		sum.Relationships++
	case errors.As(err, &warn):
		sum.Relationships++
		sum.ReferentialWarnings++
		c.logger.Debug("pipeline: referential warning",
			slog.String("relationship", warn.RelationshipID),
			slog.Any("missing", warn.MissingIDs))
	default:
		c.persistFailed(&apperr.PersistenceError{Op: "relationship", ID: rel.ID, Err: err}, sum)
	}
}

// ownerIndex maps (file, declaration name) to the id of the component or
// state container declared there.
type ownerIndex map[[2]string]string

func newOwnerIndex(results []*uiextract.Result) ownerIndex {
	idx := ownerIndex{}
	for _, res := range results {
		for _, sc := range res.StateContainers {
			idx[[2]string{res.File, sc.Name}] = models.EntityID(models.EntityStateContainer, sc.Name, res.File)
		}
		for _, comp := range res.Components {
			idx[[2]string{res.File, comp.Name}] = models.EntityID(models.EntityUIComponent, comp.Name, res.File)
		}
	}
	return idx
}

// sourceOf returns the entity id that owns call, or a call-site id when the
// call sits outside every declaration.
func (idx ownerIndex) sourceOf(call uiextract.Call) string {
	if id, ok := idx[[2]string{call.File, call.Owner}]; ok && call.Owner != "" {
		return id
	}
	return models.CallSiteID(call.File, call.Line)
}

// persistCrossReferences links UI calls to backend routes with a calls edge
// and an api mapping per match.
func (c *Coordinator) persistCrossReferences(ctx context.Context, ext *extraction, sum *Summary) {
	owners := newOwnerIndex(ext.ui)
	for _, link := range xref.Build(ext.calls(), ext.routes()) {
		src := owners.sourceOf(link.Call)
		tgt := models.EndpointID(link.Route.Name, link.Route.Method, link.Route.Path, link.Route.File)
		md := link.Metadata()
		if link.Call.Owner == "" {
			md["call_site"] = true
		}
		c.upsertEdge(ctx, src, tgt, models.RelCalls, md, sum)
		if _, err := c.store.UpsertAPIMapping(ctx, src, tgt, models.MappingTypeAPICall, md); err != nil {
			c.persistFailed(&apperr.PersistenceError{Op: "api mapping", ID: models.MappingID(src, tgt), Err: err}, sum)
			continue
		}
		sum.APIMappings++
	}
}

// persistValidations links a component to the backend model or function
// whose validator checks the same kind of input as one of its inline
// validators. Checks outside a declaration and validators without an
// entity of their own are skipped.
func (c *Coordinator) persistValidations(ctx context.Context, ext *extraction, sum *Summary) {
	owners := newOwnerIndex(ext.ui)
	dataModels := map[[2]string]string{}
	for _, res := range ext.backend {
		for _, m := range res.DataModels {
			dataModels[[2]string{res.File, m.Name}] = models.EntityID(models.EntityDataModel, m.Name, res.File)
		}
		for _, m := range res.PersistenceModels {
			dataModels[[2]string{res.File, m.Name}] = models.EntityID(models.EntityDataModel, m.Name, res.File)
		}
	}

	seen := map[[2]string]struct{}{}
	for _, link := range xref.BuildValidations(ext.checks(), ext.validators()) {
		src, ok := owners[[2]string{link.Check.File, link.Check.Owner}]
		if !ok {
			continue
		}
		var tgt string
		switch v := link.Validator; {
		case v.Owner != "":
			tgt = dataModels[[2]string{v.File, v.Owner}]
		case !strings.HasPrefix(v.Name, "_"):
			tgt = models.EntityID(models.EntityServiceFunction, v.Name, v.File)
		}
		if tgt == "" {
			continue
		}
		if _, dup := seen[[2]string{src, tgt}]; dup {
			continue
		}
		seen[[2]string{src, tgt}] = struct{}{}
		c.upsertEdge(ctx, src, tgt, models.RelUses, link.Metadata(), sum)
		sum.ValidationLinks++
	}
}

// reconcile loads declared contracts and computes the gap report. A
// contracts file that cannot be read is reported and treated as empty.
func (c *Coordinator) reconcile(ext *extraction, sum *Summary) gaps.Report {
	var declared []contracts.Contract
	if c.contracts != "" {
		var err error
		declared, err = contracts.Load(c.contracts)
		if err != nil {
			sum.ContractsError = err.Error()
			c.logger.Warn("pipeline: load contracts failed",
				slog.String("path", c.contracts),
				slog.String("error", err.Error()))
		}
	}
	sum.Contracts = len(declared)
	return gaps.Compute(declared, ext.routes(), ext.calls())
}

// pruneStale removes entities whose file was not listed in this run.
func (c *Coordinator) pruneStale(ctx context.Context, uiFiles, beFiles []models.SourceFile, sum *Summary) {
	present := make(map[string]struct{}, len(uiFiles)+len(beFiles))
	for _, f := range uiFiles {
		present[f.Path] = struct{}{}
	}
	for _, f := range beFiles {
		present[f.Path] = struct{}{}
	}
	stored, err := c.store.EntityFilePaths(ctx)
	if err != nil {
		c.logger.Warn("pipeline: prune failed", slog.String("error", err.Error()))
		return
	}
	for p := range stored {
		if _, ok := present[p]; ok {
			continue
		}
		n, err := c.store.DeleteEntitiesByFile(ctx, p)
		if err != nil {
			c.persistFailed(&apperr.PersistenceError{Op: "prune", ID: p, Err: err}, sum)
			continue
		}
		sum.Pruned += n
		c.logger.Debug("pipeline: pruned stale file", slog.String("path", p), slog.Int("entities", n))
	}
}
