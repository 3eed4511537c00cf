// Package pipeline runs an analysis end to end: list sources, extract,
// persist, cross-reference, relate and reconcile against declared contracts.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/starford/stackscope/internal/backendextract"
	"github.com/starford/stackscope/internal/cache"
	"github.com/starford/stackscope/internal/gaps"
	"github.com/starford/stackscope/internal/graph"
	"github.com/starford/stackscope/internal/models"
	"github.com/starford/stackscope/internal/source"
	"github.com/starford/stackscope/internal/uiextract"
)

// Source file extensions per side.
var (
	UIExtensions      = []string{".dart"}
	BackendExtensions = []string{".py"}
)

// Coordinator owns one analysis configuration. Runs are serialised; reads
// go straight to the graph store.
type Coordinator struct {
	store     graph.GraphStore
	ui        source.Provider
	backend   source.Provider
	contracts string
	skipDirs  []string
	workers   int
	prune     bool
	debounce  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	cacheSize int
	cacheTTL  time.Duration
	uiCache   *cache.Cache[*uiextract.Result]
	beCache   *cache.Cache[*backendextract.Result]
	backendX  *backendextract.Extractor

	runMu sync.Mutex

	mu         sync.RWMutex
	last       *Summary
	lastReport *gaps.Report
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithUISource sets the Flutter/Dart source tree.
func WithUISource(p source.Provider) Option {
	return func(c *Coordinator) { c.ui = p }
}

// WithBackendSource sets the Python/FastAPI source tree.
func WithBackendSource(p source.Provider) Option {
	return func(c *Coordinator) { c.backend = p }
}

// WithContractsPath sets the declared contracts file. Empty means none.
func WithContractsPath(path string) Option {
	return func(c *Coordinator) { c.contracts = path }
}

// WithSkipDirs replaces the directory names never descended into.
func WithSkipDirs(dirs []string) Option {
	return func(c *Coordinator) { c.skipDirs = dirs }
}

// WithWorkers bounds parallel extraction. Zero or less means one worker per CPU.
func WithWorkers(n int) Option {
	return func(c *Coordinator) { c.workers = n }
}

// WithCache sizes the per-file extraction cache and its freshness window.
func WithCache(size int, ttl time.Duration) Option {
	return func(c *Coordinator) {
		c.cacheSize = size
		c.cacheTTL = ttl
	}
}

// WithPruneStale enables removal of entities whose file no longer exists.
func WithPruneStale(enabled bool) Option {
	return func(c *Coordinator) { c.prune = enabled }
}

// WithWatchDebounce sets how long Watch waits for changes to settle.
func WithWatchDebounce(d time.Duration) Option {
	return func(c *Coordinator) { c.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithClock overrides the clock used for run timing and cache ageing.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New creates a Coordinator writing to store.
func New(store graph.GraphStore, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		store:     store,
		skipDirs:  source.DefaultSkipDirs,
		debounce:  500 * time.Millisecond,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		cacheSize: 4096,
		backendX:  backendextract.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers <= 0 {
		c.workers = runtime.NumCPU()
	}
	if c.ui == nil && c.backend == nil {
		return nil, fmt.Errorf("pipeline: at least one source tree is required")
	}

	var err error
	if c.uiCache, err = cache.New[*uiextract.Result](c.cacheSize, c.cacheTTL, cache.WithClock(c.now)); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if c.beCache, err = cache.New[*backendextract.Result](c.cacheSize, c.cacheTTL, cache.WithClock(c.now)); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return c, nil
}

// Run performs one full analysis. Per-file and per-record failures are
// counted in the summary; only failing to list a source tree is an error.
func (c *Coordinator) Run(ctx context.Context) (*Summary, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	start := c.now()
	sum := newSummary(start)
	c.logger.Info("pipeline: run started")

	uiFiles, beFiles, err := c.listSources()
	if err != nil {
		return nil, err
	}
	sum.UIFiles, sum.BackendFiles = len(uiFiles), len(beFiles)
	sum.FilesScanned = len(uiFiles) + len(beFiles)
	c.evictUnlisted(uiFiles, beFiles)

	ext, err := c.extract(ctx, uiFiles, beFiles, sum)
	if err != nil {
		return nil, err
	}

	c.persistEntities(ctx, ext, sum)
	c.persistCrossReferences(ctx, ext, sum)
	c.persistRelationships(ctx, ext, sum)
	c.persistValidations(ctx, ext, sum)

	report := c.reconcile(ext, sum)

	if c.prune {
		c.pruneStale(ctx, uiFiles, beFiles, sum)
	}

	sum.finish(c.now(), report)
	c.mu.Lock()
	c.last = sum
	c.lastReport = &report
	c.mu.Unlock()

	c.logger.Info("pipeline: run finished",
		slog.Int("files", sum.FilesScanned),
		slog.Int("extraction_errors", sum.ExtractionErrors),
		slog.Int("entities", sum.Entities),
		slog.Int("relationships", sum.Relationships),
		slog.Int("api_mappings", sum.APIMappings),
		slog.Int("validation_links", sum.ValidationLinks),
		slog.Int("persistence_errors", sum.PersistenceErrors),
		slog.Int("referential_warnings", sum.ReferentialWarnings),
		slog.Duration("duration", sum.Duration))
	return sum, nil
}

func (c *Coordinator) listSources() (ui, backend []models.SourceFile, err error) {
	if c.ui != nil {
		if ui, err = c.ui.List(UIExtensions, c.skipDirs); err != nil {
			return nil, nil, fmt.Errorf("pipeline: list ui sources: %w", err)
		}
	}
	if c.backend != nil {
		if backend, err = c.backend.List(BackendExtensions, c.skipDirs); err != nil {
			return nil, nil, fmt.Errorf("pipeline: list backend sources: %w", err)
		}
	}
	return ui, backend, nil
}

// LastSummary returns the summary of the most recent run, or nil.
func (c *Coordinator) LastSummary() *Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// GapReport returns the report of the most recent run, running an analysis
// first if none has completed yet.
func (c *Coordinator) GapReport(ctx context.Context) (*gaps.Report, error) {
	c.mu.RLock()
	rep := c.lastReport
	c.mu.RUnlock()
	if rep != nil {
		return rep, nil
	}
	if _, err := c.Run(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastReport, nil
}

// Stats returns graph counts.
func (c *Coordinator) Stats(ctx context.Context) (*graph.Stats, error) {
	return c.store.Stats(ctx)
}

// EntitiesByType lists entities of one type.
func (c *Coordinator) EntitiesByType(ctx context.Context, t models.EntityType) ([]models.Entity, error) {
	return c.store.EntitiesByType(ctx, t)
}

// Entity returns one entity.
func (c *Coordinator) Entity(ctx context.Context, id string) (*models.Entity, error) {
	return c.store.Entity(ctx, id)
}

// RelatedEntities returns neighbours of id, optionally by relationship type.
func (c *Coordinator) RelatedEntities(ctx context.Context, id string, relType models.RelationshipType) ([]models.Entity, error) {
	return c.store.RelatedEntities(ctx, id, relType)
}

// APIMappings lists UI-to-backend mappings.
func (c *Coordinator) APIMappings(ctx context.Context, uiID, backendID string) ([]models.APIMapping, error) {
	return c.store.APIMappings(ctx, uiID, backendID)
}

// Search queries the entity documents.
func (c *Coordinator) Search(ctx context.Context, query string, limit int) ([]graph.SearchResult, error) {
	return c.store.Search(ctx, query, limit)
}
