//go:build sqlite_fts5

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFTS5_TableExists(t *testing.T) {
	s, _ := testStore(t)
	var count int
	require.NoError(t, s.conn.QueryRow(`SELECT count(*) FROM documents_fts`).Scan(&count))
}

func TestFTS5_ReindexReplacesDocument(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.IndexDocument(ctx, Document{EntityID: "e1", Title: "AuthBloc", Body: "state_container handles LoginRequested"}))
	require.NoError(t, s.IndexDocument(ctx, Document{EntityID: "e1", Title: "AuthBloc", Body: "state_container handles LogoutRequested"}))

	hits, err := s.Search(ctx, "LoginRequested", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.Search(ctx, "LogoutRequested", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Snippet, "<b>")
}
