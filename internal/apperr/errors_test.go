package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractionError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("pipeline: %w", &ExtractionError{Path: "lib/a.dart", Err: cause})

	var ee *ExtractionError
	assert.True(t, errors.As(err, &ee))
	assert.Equal(t, "lib/a.dart", ee.Path)
	assert.ErrorIs(t, err, cause)
}

func TestReferentialWarning_IsErrReferential(t *testing.T) {
	w := &ReferentialWarning{RelationshipID: "r1", MissingIDs: []string{"a", "b"}}
	assert.ErrorIs(t, w, ErrReferential)
	assert.Contains(t, w.Error(), "a, b")
}

func TestPersistenceError_Message(t *testing.T) {
	err := &PersistenceError{Op: "upsert entity", ID: "e1", Err: ErrInvalid}
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "persist upsert entity e1: invalid", err.Error())
}
