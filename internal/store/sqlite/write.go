// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/brainbase-dev/brainbase/internal/policy"
	"github.com/brainbase-dev/brainbase/internal/store"
	bberr "github.com/brainbase-dev/brainbase/pkg/errors"
)

// EntityUpsert carries the writable fields of a graph entity.
type EntityUpsert struct {
	ID          string
	EntityType  string
	ProjectID   string // empty for global nodes (people)
	Payload     store.Payload
	RoleMin     string
	Sensitivity string
}

// EdgeUpsert carries the writable fields of a graph edge. Identity is
// the (FromID, ToID, RelType) triple; the surrogate id is minted on
// first insert only.
type EdgeUpsert struct {
	FromID      string
	ToID        string
	RelType     string
	ProjectID   string
	Payload     store.Payload
	RoleMin     string
	Sensitivity string
}

// UpsertGraphEntity inserts the entity or, on id conflict, refreshes its
// type, project, payload, policy columns, and updated_at.
func (t *Tx) UpsertGraphEntity(ctx context.Context, e EntityUpsert) error {
	now := formatTime(time.Now())
	const q = `INSERT INTO graph_entities (id, entity_type, project_id, payload, role_min, sensitivity, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	entity_type = excluded.entity_type,
	project_id  = excluded.project_id,
	payload     = excluded.payload,
	role_min    = excluded.role_min,
	sensitivity = excluded.sensitivity,
	updated_at  = excluded.updated_at`

	_, err := t.tx.ExecContext(ctx, q,
		e.ID, e.EntityType, nullable(e.ProjectID), encodePayload(e.Payload),
		e.RoleMin, e.Sensitivity, now, now,
	)
	if err != nil {
		return bberr.Wrapf(err, bberr.CodeStoreDatabaseFailure, "upserting graph entity %s", e.ID)
	}
	return nil
}

// UpsertGraphEdge inserts the edge or, on triple conflict, refreshes
// payload, policy columns, and updated_at. Calling it twice with the
// same (from, to, rel) never creates a second edge.
func (t *Tx) UpsertGraphEdge(ctx context.Context, e EdgeUpsert) error {
	now := formatTime(time.Now())
	const q = `INSERT INTO graph_edges (id, from_id, to_id, rel_type, project_id, payload, role_min, sensitivity, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (from_id, to_id, rel_type) DO UPDATE SET
	payload     = excluded.payload,
	role_min    = excluded.role_min,
	sensitivity = excluded.sensitivity,
	updated_at  = excluded.updated_at`

	_, err := t.tx.ExecContext(ctx, q,
		store.NewID(store.PrefixEdge), e.FromID, e.ToID, e.RelType, e.ProjectID,
		encodePayload(e.Payload), e.RoleMin, e.Sensitivity, now, now,
	)
	if err != nil {
		return bberr.Wrapf(err, bberr.CodeStoreDatabaseFailure,
			"upserting graph edge %s -[%s]-> %s", e.FromID, e.RelType, e.ToID)
	}
	return nil
}

// EnsureProject resolves a project code to its id, creating the project
// and its mirrored graph entity on first reference. Concurrent calls for
// the same code converge on one row through the unique code constraint.
func (t *Tx) EnsureProject(ctx context.Context, code, name string) (string, error) {
	id, err := t.lookupProjectID(ctx, code)
	if err != nil && !bberr.HasCode(err, bberr.CodeProjectUnknown) {
		return "", err
	}

	if err != nil {
		if name == "" {
			return "", bberr.Errorf(bberr.CodeProjectUnknown, "unknown project: %s", code)
		}
		const ins = `INSERT INTO projects (id, code, name) VALUES (?, ?, ?) ON CONFLICT (code) DO NOTHING`
		if _, err := t.tx.ExecContext(ctx, ins, store.NewID(store.PrefixProject), code, name); err != nil {
			return "", bberr.Wrapf(err, bberr.CodeStoreDatabaseFailure, "inserting project %s", code)
		}
		if id, err = t.lookupProjectID(ctx, code); err != nil {
			return "", err
		}
	}

	err = t.UpsertGraphEntity(ctx, EntityUpsert{
		ID:          id,
		EntityType:  store.EntityProject,
		ProjectID:   id,
		Payload:     store.Payload{"code": code, "name": name},
		RoleMin:     policy.RoleMember,
		Sensitivity: policy.SensitivityInternal,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ProjectID resolves an existing project code without creating anything.
func (t *Tx) ProjectID(ctx context.Context, code string) (string, error) {
	return t.lookupProjectID(ctx, code)
}

func (t *Tx) lookupProjectID(ctx context.Context, code string) (string, error) {
	var id string
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE code = ? LIMIT 1`, code).Scan(&id)
	if err == sql.ErrNoRows {
		return "", bberr.Errorf(bberr.CodeProjectUnknown, "unknown project: %s", code)
	}
	if err != nil {
		return "", bberr.Wrapf(err, bberr.CodeStoreDatabaseFailure, "resolving project %s", code)
	}
	return id, nil
}

// EnsurePerson resolves a person by id or by name lookup-or-insert,
// mirroring the person as a global graph entity. Person nodes carry no
// project; visibility flows through member_of edges.
func (t *Tx) EnsurePerson(ctx context.Context, personID, personName string) (string, error) {
	if personID != "" {
		return personID, nil
	}
	if personName == "" {
		return "", bberr.New(bberr.CodePersonIdentifierRequired, "personId or personName is required")
	}

	var id string
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM people WHERE name = ? LIMIT 1`, personName).Scan(&id)
	if err != nil && err != sql.ErrNoRows {
		return "", bberr.Wrapf(err, bberr.CodeStoreDatabaseFailure, "resolving person %s", personName)
	}
	if err == sql.ErrNoRows {
		const ins = `INSERT INTO people (id, name, status) VALUES (?, ?, 'active') ON CONFLICT (name) DO NOTHING`
		if _, err := t.tx.ExecContext(ctx, ins, store.NewID(store.PrefixPerson), personName); err != nil {
			return "", bberr.Wrapf(err, bberr.CodeStoreDatabaseFailure, "inserting person %s", personName)
		}
		if err := t.tx.QueryRowContext(ctx, `SELECT id FROM people WHERE name = ? LIMIT 1`, personName).Scan(&id); err != nil {
			return "", bberr.Wrapf(err, bberr.CodeStoreDatabaseFailure, "re-resolving person %s", personName)
		}
	}

	err = t.UpsertGraphEntity(ctx, EntityUpsert{
		ID:          id,
		EntityType:  store.EntityPerson,
		Payload:     store.Payload{"name": personName},
		RoleMin:     policy.RoleMember,
		Sensitivity: policy.SensitivityInternal,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// HasDecisionAuthority reports whether the person holds a RACI grant in
// the project for any of the given decision role codes.
func (t *Tx) HasDecisionAuthority(ctx context.Context, projectID, personID string, roleCodes []string) (bool, error) {
	if len(roleCodes) == 0 {
		return false, nil
	}
	query := `SELECT 1 FROM raci_assignments WHERE project_id = ? AND person_id = ? AND role_code IN (` +
		placeholders(len(roleCodes)) + `) LIMIT 1`
	args := []any{projectID, personID}
	for _, rc := range roleCodes {
		args = append(args, rc)
	}

	var one int
	err := t.tx.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, bberr.Wrapf(err, bberr.CodeStoreDatabaseFailure,
			"checking decision authority for %s in %s", personID, projectID)
	}
	return true, nil
}

// InsertEvent appends one immutable audit record. There is no update or
// delete statement for events anywhere in this package.
func (t *Tx) InsertEvent(ctx context.Context, ev *store.Event) error {
	const q = `INSERT INTO events (id, project_id, actor_person_id, event_type, payload, occurred_at, source, confidence, role_min, sensitivity, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := t.tx.ExecContext(ctx, q,
		ev.ID, ev.ProjectID, ev.ActorPersonID, ev.EventType,
		encodePayload(ev.Payload), formatTime(ev.OccurredAt), ev.Source,
		ev.Confidence, ev.RoleMin, ev.Sensitivity, formatTime(time.Now()),
	)
	if err != nil {
		return bberr.Wrapf(err, bberr.CodeStoreDatabaseFailure, "inserting event %s", ev.ID)
	}
	return nil
}

// InsertDecision writes the specialized decision row.
func (t *Tx) InsertDecision(ctx context.Context, d *store.Decision) error {
	const q = `INSERT INTO decisions (id, project_id, owner_person_id, title, context, options, chosen, reason, decided_at, status, role_min, sensitivity, source_event_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := t.tx.ExecContext(ctx, q,
		d.ID, d.ProjectID, d.OwnerPersonID, d.Title,
		encodePayload(d.Context), encodeList(d.Options), encodePayload(d.Chosen),
		d.Reason, formatTime(d.DecidedAt), d.Status, d.RoleMin, d.Sensitivity,
		d.SourceEventID,
	)
	if err != nil {
		return bberr.Wrapf(err, bberr.CodeStoreDatabaseFailure, "inserting decision %s", d.ID)
	}
	return nil
}

// UpsertRaci writes the RACI grant, keyed by (project, person, role
// code), and returns the id of the surviving row — the pre-existing one
// on conflict, so repeated grants converge.
func (t *Tx) UpsertRaci(ctx context.Context, r *store.RaciAssignment) (string, error) {
	now := formatTime(time.Now())
	const q = `INSERT INTO raci_assignments (id, project_id, person_id, role_code, authority_scope, sensitivity_min, sensitivity, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (project_id, person_id, role_code) DO UPDATE SET
	authority_scope = excluded.authority_scope,
	sensitivity_min = excluded.sensitivity_min,
	sensitivity     = excluded.sensitivity,
	updated_at      = excluded.updated_at`

	_, err := t.tx.ExecContext(ctx, q,
		r.ID, r.ProjectID, r.PersonID, r.RoleCode, r.AuthorityScope,
		r.SensitivityMin, r.Sensitivity, now, now,
	)
	if err != nil {
		return "", bberr.Wrapf(err, bberr.CodeStoreDatabaseFailure,
			"upserting raci %s/%s/%s", r.ProjectID, r.PersonID, r.RoleCode)
	}

	var id string
	err = t.tx.QueryRowContext(ctx,
		`SELECT id FROM raci_assignments WHERE project_id = ? AND person_id = ? AND role_code = ?`,
		r.ProjectID, r.PersonID, r.RoleCode,
	).Scan(&id)
	if err != nil {
		return "", bberr.Wrapf(err, bberr.CodeStoreDatabaseFailure,
			"resolving raci %s/%s/%s", r.ProjectID, r.PersonID, r.RoleCode)
	}
	return id, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func encodeList(items []any) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
