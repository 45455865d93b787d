// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/brainbase-dev/brainbase/internal/policy"
	"github.com/brainbase-dev/brainbase/internal/store"
	bberr "github.com/brainbase-dev/brainbase/pkg/errors"
)

const entityColumns = `ge.id, ge.entity_type, ge.project_id, COALESCE(p.code, ''), ge.payload, ge.role_min, ge.sensitivity, ge.created_at, ge.updated_at`

// memberOfClause renders the transitive visibility rule for person
// entities: a global person node is visible through any member_of edge
// into one of the given projects.
func memberOfClause(codeCount int) string {
	return `EXISTS (
	SELECT 1 FROM graph_edges gx
	JOIN projects px ON px.id = gx.project_id
	WHERE gx.from_id = ge.id AND gx.rel_type = 'member_of' AND px.code IN (` +
		placeholders(codeCount) + `))`
}

// fetchEntities is one of the three read operations every entity read
// funnels through. A caller can never observe a row whose sensitivity or
// role_min it is not cleared for, regardless of how the id was found.
func fetchEntities(ctx context.Context, q querier, access policy.AccessContext, opts store.EntityQuery) ([]*store.GraphEntity, error) {
	if len(access.ProjectCodes) == 0 || len(access.Clearance) == 0 {
		return nil, nil
	}

	var conditions []string
	var args []any

	if opts.ProjectCode != "" {
		conditions = append(conditions,
			"(p.code = ? OR (ge.entity_type = 'person' AND "+memberOfClause(1)+"))")
		args = append(args, opts.ProjectCode, opts.ProjectCode)
	}
	if opts.EntityType != "" {
		conditions = append(conditions, "ge.entity_type = ?")
		args = append(args, opts.EntityType)
	}

	conditions, args = appendAccessConditions(conditions, args, access)

	query := "SELECT " + entityColumns + `
FROM graph_entities ge
LEFT JOIN projects p ON p.id = ge.project_id
WHERE ` + strings.Join(conditions, " AND ") + `
ORDER BY ge.updated_at DESC LIMIT ?`
	args = append(args, store.ClampLimit(opts.Limit))

	return scanEntities(ctx, q, query, args)
}

// fetchEntitiesByIDs applies the identical access filters keyed by an
// explicit id set. Used to re-validate ids discovered during traversal
// and to check seed visibility.
func fetchEntitiesByIDs(ctx context.Context, q querier, access policy.AccessContext, ids []string, projectCode string) ([]*store.GraphEntity, error) {
	if len(ids) == 0 || len(access.ProjectCodes) == 0 || len(access.Clearance) == 0 {
		return nil, nil
	}

	conditions := []string{"ge.id IN (" + placeholders(len(ids)) + ")"}
	var args []any
	for _, id := range ids {
		args = append(args, id)
	}

	if projectCode != "" {
		conditions = append(conditions,
			"(p.code = ? OR (ge.entity_type = 'person' AND "+memberOfClause(1)+"))")
		args = append(args, projectCode, projectCode)
	}

	conditions, args = appendAccessConditions(conditions, args, access)

	query := "SELECT " + entityColumns + `
FROM graph_entities ge
LEFT JOIN projects p ON p.id = ge.project_id
WHERE ` + strings.Join(conditions, " AND ") + `
ORDER BY ge.updated_at DESC`

	return scanEntities(ctx, q, query, args)
}

// appendAccessConditions adds the mandatory scope, clearance, and role
// filters shared by both entity reads.
func appendAccessConditions(conditions []string, args []any, access policy.AccessContext) ([]string, []any) {
	scope := "((ge.project_id IS NOT NULL AND p.code IN (" +
		placeholders(len(access.ProjectCodes)) +
		")) OR (ge.entity_type = 'person' AND " +
		memberOfClause(len(access.ProjectCodes)) + "))"
	conditions = append(conditions, scope)
	for _, code := range access.ProjectCodes {
		args = append(args, code)
	}
	for _, code := range access.ProjectCodes {
		args = append(args, code)
	}

	conditions = append(conditions, "ge.sensitivity IN ("+placeholders(len(access.Clearance))+")")
	for _, c := range access.Clearance {
		args = append(args, c)
	}

	conditions = append(conditions, roleRankExpr("ge.role_min")+" <= ?")
	args = append(args, policy.RoleRank(access.Role))

	return conditions, args
}

// fetchEdges is the access-filtered edge read. Edges carry their own
// project_id, so no transitive case applies.
func fetchEdges(ctx context.Context, q querier, access policy.AccessContext, opts store.EdgeQuery) ([]*store.GraphEdge, error) {
	if len(access.ProjectCodes) == 0 || len(access.Clearance) == 0 {
		return nil, nil
	}

	var conditions []string
	var args []any

	if opts.ProjectCode != "" {
		conditions = append(conditions, "p.code = ?")
		args = append(args, opts.ProjectCode)
	}
	if opts.RelType != "" {
		conditions = append(conditions, "ge.rel_type = ?")
		args = append(args, opts.RelType)
	}
	if opts.FromID != "" {
		conditions = append(conditions, "ge.from_id = ?")
		args = append(args, opts.FromID)
	}
	if opts.ToID != "" {
		conditions = append(conditions, "ge.to_id = ?")
		args = append(args, opts.ToID)
	}
	if opts.TouchingID != "" {
		conditions = append(conditions, "(ge.from_id = ? OR ge.to_id = ?)")
		args = append(args, opts.TouchingID, opts.TouchingID)
	}

	conditions = append(conditions, "p.code IN ("+placeholders(len(access.ProjectCodes))+")")
	for _, code := range access.ProjectCodes {
		args = append(args, code)
	}
	conditions = append(conditions, "ge.sensitivity IN ("+placeholders(len(access.Clearance))+")")
	for _, c := range access.Clearance {
		args = append(args, c)
	}
	conditions = append(conditions, roleRankExpr("ge.role_min")+" <= ?")
	args = append(args, policy.RoleRank(access.Role))

	query := `SELECT ge.id, ge.from_id, ge.to_id, ge.rel_type, ge.project_id, p.code, ge.payload, ge.role_min, ge.sensitivity, ge.created_at, ge.updated_at
FROM graph_edges ge
JOIN projects p ON p.id = ge.project_id
WHERE ` + strings.Join(conditions, " AND ") + `
ORDER BY ge.updated_at DESC LIMIT ?`
	args = append(args, store.ClampLimit(opts.Limit))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, bberr.Wrap(err, bberr.CodeStoreDatabaseFailure, "querying graph edges")
	}
	defer rows.Close() //nolint:errcheck // error on read-path close is not actionable

	var edges []*store.GraphEdge
	for rows.Next() {
		var e store.GraphEdge
		var payload, createdAt, updatedAt string
		if err := rows.Scan(&e.ID, &e.FromID, &e.ToID, &e.RelType, &e.ProjectID, &e.ProjectCode,
			&payload, &e.RoleMin, &e.Sensitivity, &createdAt, &updatedAt); err != nil {
			return nil, bberr.Wrap(err, bberr.CodeStoreDatabaseFailure, "scanning graph edge row")
		}
		e.Payload = decodePayload(payload)
		e.CreatedAt = parseTime(createdAt)
		e.UpdatedAt = parseTime(updatedAt)
		edges = append(edges, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, bberr.Wrap(err, bberr.CodeStoreDatabaseFailure, "iterating graph edge rows")
	}
	return edges, nil
}

func scanEntities(ctx context.Context, q querier, query string, args []any) ([]*store.GraphEntity, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, bberr.Wrap(err, bberr.CodeStoreDatabaseFailure, "querying graph entities")
	}
	defer rows.Close() //nolint:errcheck // error on read-path close is not actionable

	var entities []*store.GraphEntity
	for rows.Next() {
		var e store.GraphEntity
		var projectID sql.NullString
		var payload, createdAt, updatedAt string
		if err := rows.Scan(&e.ID, &e.EntityType, &projectID, &e.ProjectCode,
			&payload, &e.RoleMin, &e.Sensitivity, &createdAt, &updatedAt); err != nil {
			return nil, bberr.Wrap(err, bberr.CodeStoreDatabaseFailure, "scanning graph entity row")
		}
		e.ProjectID = projectID.String
		e.Payload = decodePayload(payload)
		e.CreatedAt = parseTime(createdAt)
		e.UpdatedAt = parseTime(updatedAt)
		entities = append(entities, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, bberr.Wrap(err, bberr.CodeStoreDatabaseFailure, "iterating graph entity rows")
	}
	return entities, nil
}

func decodePayload(raw string) store.Payload {
	if raw == "" || raw == "{}" {
		return store.Payload{}
	}
	var p store.Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return store.Payload{}
	}
	return p
}

func encodePayload(p store.Payload) string {
	if len(p) == 0 {
		return "{}"
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}
