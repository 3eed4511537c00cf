// Package apperr defines the error values shared across the analysis pipeline.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalid       = errors.New("invalid")
	ErrSelfReference = errors.New("self reference")
	ErrReferential   = errors.New("referential warning")
)

// ExtractionError reports a source file that could not be read or parsed.
// The file contributes an empty result to the run.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PersistenceError reports a single record the graph store failed to write.
type PersistenceError struct {
	Op  string
	ID  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ReferentialWarning is returned when an edge was written but one of its
// endpoints is not (yet) present in the store.
type ReferentialWarning struct {
	RelationshipID string
	MissingIDs     []string
}

func (w *ReferentialWarning) Error() string {
	return fmt.Sprintf("relationship %s references missing entities: %s",
		w.RelationshipID, strings.Join(w.MissingIDs, ", "))
}

func (w *ReferentialWarning) Unwrap() error { return ErrReferential }
