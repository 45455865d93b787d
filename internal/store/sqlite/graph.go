// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

// Package sqlite persists the graph SSOT in a single SQLite database.
// Every read funnels through the three access-filtered fetch operations;
// every write runs on an explicit transaction obtained from WithTx.
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brainbase-dev/brainbase/internal/policy"
	"github.com/brainbase-dev/brainbase/internal/store"
	bberr "github.com/brainbase-dev/brainbase/pkg/errors"
)

// GraphStore owns the SQLite connection pool for the graph SSOT.
type GraphStore struct {
	db *sql.DB
}

// NewGraphStore opens (or creates) the SQLite database at dbPath and
// initialises the graph tables.
func NewGraphStore(dbPath string) (*GraphStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, bberr.Wrapf(err, bberr.CodeStoreDatabaseFailure, "opening graph db %s", dbPath)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, bberr.Wrapf(err, bberr.CodeStoreDatabaseFailure, "pinging graph db %s", dbPath)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, bberr.Wrapf(err, bberr.CodeStoreDatabaseFailure, "migrating graph db %s", dbPath)
	}

	return &GraphStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS projects (
	id   TEXT PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS people (
	id     TEXT PRIMARY KEY,
	name   TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS graph_entities (
	id          TEXT PRIMARY KEY,
	entity_type TEXT NOT NULL,
	project_id  TEXT,
	payload     TEXT NOT NULL DEFAULT '{}',
	role_min    TEXT NOT NULL,
	sensitivity TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_graph_entities_project
	ON graph_entities(project_id, entity_type);
CREATE INDEX IF NOT EXISTS idx_graph_entities_updated
	ON graph_entities(updated_at);

CREATE TABLE IF NOT EXISTS graph_edges (
	id          TEXT NOT NULL,
	from_id     TEXT NOT NULL,
	to_id       TEXT NOT NULL,
	rel_type    TEXT NOT NULL,
	project_id  TEXT NOT NULL,
	payload     TEXT NOT NULL DEFAULT '{}',
	role_min    TEXT NOT NULL,
	sensitivity TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	PRIMARY KEY (from_id, to_id, rel_type)
);

CREATE INDEX IF NOT EXISTS idx_graph_edges_project ON graph_edges(project_id);
CREATE INDEX IF NOT EXISTS idx_graph_edges_to      ON graph_edges(to_id);

CREATE TABLE IF NOT EXISTS decisions (
	id              TEXT PRIMARY KEY,
	project_id      TEXT NOT NULL,
	owner_person_id TEXT NOT NULL,
	title           TEXT NOT NULL,
	context         TEXT NOT NULL DEFAULT '{}',
	options         TEXT NOT NULL DEFAULT '[]',
	chosen          TEXT NOT NULL DEFAULT '{}',
	reason          TEXT NOT NULL DEFAULT '',
	decided_at      TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'decided',
	role_min        TEXT NOT NULL,
	sensitivity     TEXT NOT NULL,
	source_event_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_project ON decisions(project_id);

CREATE TABLE IF NOT EXISTS raci_assignments (
	id              TEXT NOT NULL,
	project_id      TEXT NOT NULL,
	person_id       TEXT NOT NULL,
	role_code       TEXT NOT NULL,
	authority_scope TEXT NOT NULL DEFAULT '',
	sensitivity_min TEXT NOT NULL,
	sensitivity     TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL,
	PRIMARY KEY (project_id, person_id, role_code)
);

CREATE TABLE IF NOT EXISTS events (
	id              TEXT PRIMARY KEY,
	project_id      TEXT NOT NULL,
	actor_person_id TEXT NOT NULL,
	event_type      TEXT NOT NULL,
	payload         TEXT NOT NULL DEFAULT '{}',
	occurred_at     TEXT NOT NULL,
	source          TEXT NOT NULL DEFAULT 'manual',
	confidence      REAL NOT NULL DEFAULT 1,
	role_min        TEXT NOT NULL,
	sensitivity     TEXT NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_project ON events(project_id, occurred_at);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database connection.
func (g *GraphStore) Close() error { return g.db.Close() }

// Tx exposes graph reads and writes on one open transaction. Write
// operations exist only here: there is no write path outside WithTx.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a single transaction. The transaction is rolled
// back on any error, including a panic unwinding through fn.
func (g *GraphStore) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return bberr.Wrap(err, bberr.CodeStoreDatabaseFailure, "beginning graph tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return bberr.Wrap(err, bberr.CodeStoreDatabaseFailure, "committing graph tx")
	}
	return nil
}

// querier abstracts *sql.DB and *sql.Tx so the fetch and upsert helpers
// run identically inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Pool-backed reads.

func (g *GraphStore) FetchGraphEntities(ctx context.Context, access policy.AccessContext, q store.EntityQuery) ([]*store.GraphEntity, error) {
	return fetchEntities(ctx, g.db, access, q)
}

func (g *GraphStore) FetchGraphEdges(ctx context.Context, access policy.AccessContext, q store.EdgeQuery) ([]*store.GraphEdge, error) {
	return fetchEdges(ctx, g.db, access, q)
}

func (g *GraphStore) FetchGraphEntitiesByIDs(ctx context.Context, access policy.AccessContext, ids []string, projectCode string) ([]*store.GraphEntity, error) {
	return fetchEntitiesByIDs(ctx, g.db, access, ids, projectCode)
}

// Transaction-scoped reads (the AI-query write path reads inside its own
// transaction).

func (t *Tx) FetchGraphEntities(ctx context.Context, access policy.AccessContext, q store.EntityQuery) ([]*store.GraphEntity, error) {
	return fetchEntities(ctx, t.tx, access, q)
}

func (t *Tx) FetchGraphEdges(ctx context.Context, access policy.AccessContext, q store.EdgeQuery) ([]*store.GraphEdge, error) {
	return fetchEdges(ctx, t.tx, access, q)
}

func (t *Tx) FetchGraphEntitiesByIDs(ctx context.Context, access policy.AccessContext, ids []string, projectCode string) ([]*store.GraphEntity, error) {
	return fetchEntitiesByIDs(ctx, t.tx, access, ids, projectCode)
}

// placeholders renders n comma-separated SQL placeholders.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// roleRankExpr converts a stored role_min column to its ordinal rank.
func roleRankExpr(column string) string {
	return "(CASE " + column + " WHEN 'member' THEN 1 WHEN 'gm' THEN 2 WHEN 'ceo' THEN 3 ELSE 0 END)"
}

// Fixed-width UTC timestamp format; lexical order equals chronological
// order, which ORDER BY on the text columns relies on.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Legacy rows may carry plain RFC3339.
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}
