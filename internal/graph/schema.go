// Package graph persists the entity graph in SQLite: entities, directed
// relationships, UI-to-backend API mappings and a text search index over
// entity documents.
package graph

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Endpoints of relationships and mappings are not foreign keys: edges may be
// written before their endpoints and are reported as referential warnings.
const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS entities (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	name       TEXT NOT NULL,
	file_path  TEXT NOT NULL,
	language   TEXT NOT NULL DEFAULT '',
	metadata   TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS relationships (
	id                TEXT PRIMARY KEY,
	source_id         TEXT NOT NULL,
	target_id         TEXT NOT NULL,
	relationship_type TEXT NOT NULL,
	metadata          TEXT NOT NULL DEFAULT '{}',
	created_at        DATETIME NOT NULL,
	CHECK (source_id <> target_id)
);

CREATE TABLE IF NOT EXISTS api_mappings (
	id                TEXT PRIMARY KEY,
	ui_entity_id      TEXT NOT NULL,
	backend_entity_id TEXT NOT NULL,
	mapping_type      TEXT NOT NULL,
	metadata          TEXT NOT NULL DEFAULT '{}',
	created_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	entity_id TEXT PRIMARY KEY,
	title     TEXT NOT NULL DEFAULT '',
	body      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);
CREATE INDEX IF NOT EXISTS idx_entities_language ON entities(language);
CREATE INDEX IF NOT EXISTS idx_entities_file ON entities(file_path);
CREATE INDEX IF NOT EXISTS idx_relationships_type ON relationships(relationship_type);
CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_id);
CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_id);
CREATE INDEX IF NOT EXISTS idx_api_mappings_type ON api_mappings(mapping_type);
CREATE INDEX IF NOT EXISTS idx_api_mappings_ui ON api_mappings(ui_entity_id);
CREATE INDEX IF NOT EXISTS idx_api_mappings_backend ON api_mappings(backend_entity_id);
`

// Store wraps a sql.DB with entity graph operations.
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string, opts ...Option) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("graph: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("graph: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("graph: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("graph: apply fts schema: %w", err)
	}
	s := &Store{conn: conn, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}
