// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

// Package store defines the domain types the graph SSOT persists and the
// query options its read paths accept.
package store

import (
	"slices"
	"time"
)

// Entity types of the generic graph. The enumeration is closed; any
// other value is a validation error.
const (
	EntityProject      = "project"
	EntityPerson       = "person"
	EntityDecision     = "decision"
	EntityRaci         = "raci_assignment"
	EntityAIQuery      = "ai_query"
	EntityAIDecision   = "ai_decision"
	EntityGlossaryTerm = "glossary_term"
	EntityKPI          = "kpi"
	EntityInitiative   = "initiative"
)

// Relation types of the generic graph.
const (
	RelBelongsToProject = "belongs_to_project"
	RelOwnedBy          = "owned_by"
	RelAssignedTo       = "assigned_to"
	RelRequestedBy      = "requested_by"
	RelMadeBy           = "made_by"
	RelReferences       = "references"
	RelMemberOf         = "member_of"
)

var entityTypes = []string{
	EntityProject, EntityPerson, EntityDecision, EntityRaci,
	EntityAIQuery, EntityAIDecision, EntityGlossaryTerm, EntityKPI,
	EntityInitiative,
}

var relTypes = []string{
	RelBelongsToProject, RelOwnedBy, RelAssignedTo, RelRequestedBy,
	RelMadeBy, RelReferences, RelMemberOf,
}

// ValidEntityType reports whether t is a known entity type.
func ValidEntityType(t string) bool {
	return slices.Contains(entityTypes, t)
}

// ValidRelType reports whether t is a known relation type.
func ValidRelType(t string) bool {
	return slices.Contains(relTypes, t)
}

// Payload is the type-specific JSON document carried by graph rows.
type Payload = map[string]any

// Project is the specialized row behind project entities. Created lazily
// on first reference by code.
type Project struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Person is the specialized row behind person entities. Created lazily
// by name lookup-or-insert; person nodes are global (no project).
type Person struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// GraphEntity is a generic node. Upsert key: ID.
type GraphEntity struct {
	ID          string    `json:"id"`
	EntityType  string    `json:"entity_type"`
	ProjectID   string    `json:"project_id,omitempty"`
	ProjectCode string    `json:"project_code,omitempty"`
	Payload     Payload   `json:"payload"`
	RoleMin     string    `json:"role_min"`
	Sensitivity string    `json:"sensitivity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GraphEdge is a generic relation. Relationship identity is the
// (FromID, ToID, RelType) triple; ID is a surrogate minted on first
// insert only.
type GraphEdge struct {
	ID          string    `json:"id"`
	FromID      string    `json:"from_id"`
	ToID        string    `json:"to_id"`
	RelType     string    `json:"rel_type"`
	ProjectID   string    `json:"project_id"`
	ProjectCode string    `json:"project_code,omitempty"`
	Payload     Payload   `json:"payload"`
	RoleMin     string    `json:"role_min"`
	Sensitivity string    `json:"sensitivity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Decision is the specialized mirror of a decision entity.
type Decision struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	OwnerPersonID string    `json:"owner_person_id"`
	Title         string    `json:"title"`
	Context       Payload   `json:"context"`
	Options       []any     `json:"options"`
	Chosen        Payload   `json:"chosen"`
	Reason        string    `json:"reason"`
	DecidedAt     time.Time `json:"decided_at"`
	Status        string    `json:"status"`
	RoleMin       string    `json:"role_min"`
	Sensitivity   string    `json:"sensitivity"`
	SourceEventID string    `json:"source_event_id"`
}

// RaciAssignment is the specialized mirror of a RACI grant.
// Unique: (ProjectID, PersonID, RoleCode).
type RaciAssignment struct {
	ID             string `json:"id"`
	ProjectID      string `json:"project_id"`
	PersonID       string `json:"person_id"`
	RoleCode       string `json:"role_code"`
	AuthorityScope string `json:"authority_scope"`
	SensitivityMin string `json:"sensitivity_min"`
	Sensitivity    string `json:"sensitivity"`
}

// Event is one append-only audit record. Events are never updated or
// deleted.
type Event struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	ActorPersonID string    `json:"actor_person_id"`
	EventType     string    `json:"event_type"`
	Payload       Payload   `json:"payload"`
	OccurredAt    time.Time `json:"occurred_at"`
	Source        string    `json:"source"`
	Confidence    float64   `json:"confidence"`
	RoleMin       string    `json:"role_min"`
	Sensitivity   string    `json:"sensitivity"`
}

// EntityQuery selects graph entities on the access-filtered read path.
type EntityQuery struct {
	ProjectCode string
	EntityType  string
	Limit       int
}

// EdgeQuery selects graph edges on the access-filtered read path.
// TouchingID matches edges whose from or to endpoint equals the id,
// used by the traversal frontier.
type EdgeQuery struct {
	ProjectCode string
	RelType     string
	FromID      string
	ToID        string
	TouchingID  string
	Limit       int
}

// Limit bounds for read queries.
const (
	DefaultQueryLimit = 200
	MaxQueryLimit     = 500
)

// ClampLimit applies the default and maximum read limits.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}
