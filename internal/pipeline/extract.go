package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/stackscope/internal/apperr"
	"github.com/starford/stackscope/internal/backendextract"
	"github.com/starford/stackscope/internal/models"
	"github.com/starford/stackscope/internal/uiextract"
)

// extraction holds per-file results in listing order. Results may come from
// the cache and must not be modified.
type extraction struct {
	ui      []*uiextract.Result
	backend []*backendextract.Result
}

func (e *extraction) calls() []uiextract.Call {
	var out []uiextract.Call
	for _, r := range e.ui {
		out = append(out, r.Calls...)
	}
	return out
}

func (e *extraction) routes() []backendextract.Route {
	var out []backendextract.Route
	for _, r := range e.backend {
		out = append(out, r.Routes...)
	}
	return out
}

func (e *extraction) checks() []uiextract.Validator {
	var out []uiextract.Validator
	for _, r := range e.ui {
		out = append(out, r.Validators...)
	}
	return out
}

func (e *extraction) validators() []backendextract.Validator {
	var out []backendextract.Validator
	for _, r := range e.backend {
		out = append(out, r.Validators...)
	}
	return out
}

// extract runs the extractors over every listed file with at most
// c.workers files in flight. A file that cannot be read or parsed
// contributes an empty result.
func (c *Coordinator) extract(ctx context.Context, uiFiles, beFiles []models.SourceFile, sum *Summary) (*extraction, error) {
	ext := &extraction{
		ui:      make([]*uiextract.Result, len(uiFiles)),
		backend: make([]*backendextract.Result, len(beFiles)),
	}

	var mu sync.Mutex
	record := func(path string, hit bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		if hit {
			sum.CacheHits++
		}
		if err != nil {
			sum.fileFailed(path, err)
			c.logger.Warn("pipeline: extract failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, f := range uiFiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, hit, err := c.extractUI(f)
			ext.ui[i] = res
			record(f.Path, hit, err)
			return nil
		})
	}
	for i, f := range beFiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, hit, err := c.extractBackend(f)
			ext.backend[i] = res
			record(f.Path, hit, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline: extract: %w", err)
	}
	return ext, nil
}

func (c *Coordinator) extractUI(f models.SourceFile) (*uiextract.Result, bool, error) {
	if res, ok := c.uiCache.Get(f.Path, f.Checksum); ok {
		return res, true, nil
	}
	data, err := c.ui.Read(f.Path)
	if err != nil {
		return uiextract.Extract("", f.Path), false, &apperr.ExtractionError{Path: f.Path, Err: err}
	}
	res := uiextract.Extract(string(data), f.Path)
	c.uiCache.Put(f.Path, f.Checksum, res)
	return res, false, nil
}

func (c *Coordinator) extractBackend(f models.SourceFile) (*backendextract.Result, bool, error) {
	if res, ok := c.beCache.Get(f.Path, f.Checksum); ok {
		return res, true, nil
	}
	data, err := c.backend.Read(f.Path)
	if err != nil {
		return &backendextract.Result{File: f.Path}, false, &apperr.ExtractionError{Path: f.Path, Err: err}
	}
	res, err := c.backendX.Extract(data, f.Path)
	if err != nil {
		var xerr *apperr.ExtractionError
		if !errors.As(err, &xerr) {
			err = &apperr.ExtractionError{Path: f.Path, Err: err}
		}
		return res, false, err
	}
	c.beCache.Put(f.Path, f.Checksum, res)
	return res, false, nil
}

// evictUnlisted drops cached results for files no longer listed.
func (c *Coordinator) evictUnlisted(uiFiles, beFiles []models.SourceFile) {
	evict := func(keys []string, listed []models.SourceFile, remove func(string)) {
		present := make(map[string]struct{}, len(listed))
		for _, f := range listed {
			present[f.Path] = struct{}{}
		}
		for _, k := range keys {
			if _, ok := present[k]; !ok {
				remove(k)
			}
		}
	}
	evict(c.uiCache.Keys(), uiFiles, c.uiCache.Remove)
	evict(c.beCache.Keys(), beFiles, c.beCache.Remove)
}
