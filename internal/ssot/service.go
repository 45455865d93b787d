// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

// Package ssot implements the domain operations of the graph
// single-source-of-truth: transactional writes that project every domain
// fact into the generic graph, and bounded graph expansion with
// human-readable reporting.
package ssot

import (
	"context"
	"log/slog"
	"time"

	"github.com/brainbase-dev/brainbase/internal/policy"
	"github.com/brainbase-dev/brainbase/internal/store"
	"github.com/brainbase-dev/brainbase/internal/store/sqlite"
	bberr "github.com/brainbase-dev/brainbase/pkg/errors"
)

// Event types recorded in the audit trail.
const (
	EventDecisionCreated = "DECISION_CREATED"
	EventRaciAssigned    = "RACI_ASSIGNED"
	EventAIQuery         = "AI_QUERY"
	EventAIDecision      = "AI_DECISION"
	EventGlossaryCreated = "GLOSSARY_TERM_CREATED"
	EventKPICreated      = "KPI_CREATED"
	EventInitiative      = "INITIATIVE_CREATED"
)

// Service exposes the graph SSOT operations. Every write is one
// transaction; the event row, the specialized row, and the graph
// projection succeed or fail together.
type Service struct {
	graph *sqlite.GraphStore
	log   *slog.Logger
}

// New creates the SSOT service.
func New(graph *sqlite.GraphStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{graph: graph, log: log}
}

// ListGraphEntities is the access-filtered entity read.
func (s *Service) ListGraphEntities(ctx context.Context, access policy.AccessContext, q store.EntityQuery) ([]*store.GraphEntity, error) {
	return s.graph.FetchGraphEntities(ctx, access, q)
}

// ListGraphEdges is the access-filtered edge read.
func (s *Service) ListGraphEdges(ctx context.Context, access policy.AccessContext, q store.EdgeQuery) ([]*store.GraphEdge, error) {
	return s.graph.FetchGraphEdges(ctx, access, q)
}

// WriteInput carries the fields shared by every write operation.
type WriteInput struct {
	ProjectCode string   `json:"projectCode"`
	ProjectName string   `json:"projectName,omitempty"`
	RoleMin     string   `json:"roleMin,omitempty"`
	Sensitivity string   `json:"sensitivity,omitempty"`
	Source      string   `json:"source,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	OccurredAt  string   `json:"occurredAt,omitempty"`
}

func (w WriteInput) confidence() float64 {
	if w.Confidence == nil {
		return 1
	}
	return *w.Confidence
}

func (w WriteInput) occurredAt() time.Time {
	if w.OccurredAt == "" {
		return time.Now()
	}
	t, err := time.Parse(time.RFC3339Nano, w.OccurredAt)
	if err != nil {
		return time.Now()
	}
	return t
}

func (w WriteInput) source(fallback string) string {
	if w.Source == "" {
		return fallback
	}
	return w.Source
}

// EventInput describes a bare audit event write.
type EventInput struct {
	WriteInput
	ActorPersonID   string        `json:"actorPersonId,omitempty"`
	ActorPersonName string        `json:"actorPersonName,omitempty"`
	EventType       string        `json:"eventType"`
	Payload         store.Payload `json:"payload,omitempty"`
}

// EventResult returns the generated event id.
type EventResult struct {
	EventID string `json:"event_id"`
}

// CreateEvent appends one audit event. Events have no graph projection
// of their own; they are the canonical audit trail behind every other
// write.
func (s *Service) CreateEvent(ctx context.Context, access policy.AccessContext, in EventInput) (*EventResult, error) {
	roleMin := policy.NormalizeRole(in.RoleMin)
	sensitivity := policy.NormalizeSensitivity(in.Sensitivity)
	if err := policy.CheckWriteAccess(access, policy.WriteRequest{
		ProjectCode: in.ProjectCode, RoleMin: roleMin, Sensitivity: sensitivity,
	}); err != nil {
		return nil, err
	}

	var res EventResult
	err := s.graph.WithTx(ctx, func(tx *sqlite.Tx) error {
		projectID, err := tx.EnsureProject(ctx, in.ProjectCode, in.ProjectName)
		if err != nil {
			return err
		}
		actorID, err := tx.EnsurePerson(ctx, in.ActorPersonID, in.ActorPersonName)
		if err != nil {
			return err
		}

		res.EventID = store.NewID(store.PrefixEvent)
		return tx.InsertEvent(ctx, &store.Event{
			ID:            res.EventID,
			ProjectID:     projectID,
			ActorPersonID: actorID,
			EventType:     in.EventType,
			Payload:       in.Payload,
			OccurredAt:    in.occurredAt(),
			Source:        in.source("manual"),
			Confidence:    in.confidence(),
			RoleMin:       roleMin,
			Sensitivity:   sensitivity,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event recorded", "event_id", res.EventID, "project", in.ProjectCode, "type", in.EventType)
	return &res, nil
}

// DecisionInput describes a decision write.
type DecisionInput struct {
	WriteInput
	OwnerPersonID   string        `json:"ownerPersonId,omitempty"`
	OwnerPersonName string        `json:"ownerPersonName,omitempty"`
	Title           string        `json:"title"`
	Context         store.Payload `json:"context,omitempty"`
	Options         []any         `json:"options,omitempty"`
	Chosen          store.Payload `json:"chosen,omitempty"`
	Reason          string        `json:"reason,omitempty"`
	DecidedAt       string        `json:"decidedAt,omitempty"`
	Status          string        `json:"status,omitempty"`
	DecisionDomain  string        `json:"decisionDomain,omitempty"`
	DecisionType    string        `json:"decisionType,omitempty"` // legacy spelling
	EnforceRACI     *bool         `json:"enforceRaci,omitempty"`
}

func (in DecisionInput) decidedAt() time.Time {
	if in.DecidedAt == "" {
		return time.Now()
	}
	t, err := time.Parse(time.RFC3339Nano, in.DecidedAt)
	if err != nil {
		return time.Now()
	}
	return t
}

func (in DecisionInput) status() string {
	if in.Status == "" {
		return "decided"
	}
	return in.Status
}

func (in DecisionInput) domain() string {
	return policy.ResolveDecisionDomain(policy.DomainInput{
		DecisionDomain: in.DecisionDomain,
		DecisionType:   in.DecisionType,
		Context:        in.Context,
	})
}

// DecisionResult returns the generated decision and event ids.
type DecisionResult struct {
	DecisionID string `json:"decision_id"`
	EventID    string `json:"event_id"`
}

// CreateDecision records a decision: audit event, specialized row,
// mirrored graph entity, and its edges, all in one transaction. Unless
// EnforceRACI is explicitly false (migration/test tooling only), the
// owner must hold decision authority for the resolved domain.
func (s *Service) CreateDecision(ctx context.Context, access policy.AccessContext, in DecisionInput) (*DecisionResult, error) {
	roleMin := policy.NormalizeRole(in.RoleMin)
	sensitivity := policy.NormalizeSensitivity(in.Sensitivity)
	if err := policy.CheckWriteAccess(access, policy.WriteRequest{
		ProjectCode: in.ProjectCode, RoleMin: roleMin, Sensitivity: sensitivity,
	}); err != nil {
		return nil, err
	}

	var res DecisionResult
	err := s.graph.WithTx(ctx, func(tx *sqlite.Tx) error {
		projectID, err := tx.EnsureProject(ctx, in.ProjectCode, in.ProjectName)
		if err != nil {
			return err
		}
		ownerID, err := tx.EnsurePerson(ctx, in.OwnerPersonID, in.OwnerPersonName)
		if err != nil {
			return err
		}

		if in.EnforceRACI == nil || *in.EnforceRACI {
			domain := in.domain()
			if domain == "" {
				return bberr.New(bberr.CodeDecisionDomainRequired, "decision domain is required for RACI guard")
			}
			ok, err := tx.HasDecisionAuthority(ctx, projectID, ownerID, policy.DecisionRoleCodes(domain))
			if err != nil {
				return err
			}
			if !ok {
				return bberr.Errorf(bberr.CodeDecisionAuthorityDenied,
					"decision authority missing for domain: %s", domain)
			}
		}

		res.EventID = store.NewID(store.PrefixEvent)
		res.DecisionID = store.NewID(store.PrefixDecision)
		decidedAt := in.decidedAt()
		domain := in.domain()

		err = tx.InsertEvent(ctx, &store.Event{
			ID:            res.EventID,
			ProjectID:     projectID,
			ActorPersonID: ownerID,
			EventType:     EventDecisionCreated,
			Payload: store.Payload{
				"title":           in.Title,
				"decision_domain": emptyToNil(domain),
				"context":         orPayload(in.Context),
				"options":         orList(in.Options),
				"chosen":          orPayload(in.Chosen),
				"reason":          in.Reason,
			},
			OccurredAt:  decidedAt,
			Source:      in.source("manual"),
			Confidence:  in.confidence(),
			RoleMin:     roleMin,
			Sensitivity: sensitivity,
		})
		if err != nil {
			return err
		}

		err = tx.InsertDecision(ctx, &store.Decision{
			ID:            res.DecisionID,
			ProjectID:     projectID,
			OwnerPersonID: ownerID,
			Title:         in.Title,
			Context:       in.Context,
			Options:       in.Options,
			Chosen:        in.Chosen,
			Reason:        in.Reason,
			DecidedAt:     decidedAt,
			Status:        in.status(),
			RoleMin:       roleMin,
			Sensitivity:   sensitivity,
			SourceEventID: res.EventID,
		})
		if err != nil {
			return err
		}

		err = tx.UpsertGraphEntity(ctx, sqlite.EntityUpsert{
			ID:         res.DecisionID,
			EntityType: store.EntityDecision,
			ProjectID:  projectID,
			Payload: store.Payload{
				"title":           in.Title,
				"decision_domain": emptyToNil(domain),
				"decided_at":      decidedAt.UTC().Format(time.RFC3339Nano),
				"status":          in.status(),
			},
			RoleMin:     roleMin,
			Sensitivity: sensitivity,
		})
		if err != nil {
			return err
		}

		if err := projectEdges(ctx, tx, res.DecisionID, projectID, roleMin, sensitivity); err != nil {
			return err
		}
		err = tx.UpsertGraphEdge(ctx, sqlite.EdgeUpsert{
			FromID: res.DecisionID, ToID: ownerID, RelType: store.RelOwnedBy,
			ProjectID: projectID, RoleMin: roleMin, Sensitivity: sensitivity,
		})
		if err != nil {
			return err
		}
		return memberOfEdge(ctx, tx, ownerID, projectID, nil)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("decision recorded", "decision_id", res.DecisionID, "project", in.ProjectCode)
	return &res, nil
}

// RaciInput describes a RACI grant write. RoleMin is the viewer floor;
// SensitivityMin is the legacy spelling of the same field and is only
// honored when RoleMin is absent. A role code is never promoted to a
// viewer floor.
type RaciInput struct {
	WriteInput
	PersonID       string `json:"personId,omitempty"`
	PersonName     string `json:"personName,omitempty"`
	RoleCode       string `json:"roleCode"`
	AuthorityScope string `json:"authorityScope,omitempty"`
	SensitivityMin string `json:"sensitivityMin,omitempty"` // legacy alias for roleMin
}

// RaciResult returns the generated assignment and event ids.
type RaciResult struct {
	RaciID  string `json:"raci_id"`
	EventID string `json:"event_id"`
}

// CreateRaci grants a RACI authority and derives the person's project
// membership edge.
func (s *Service) CreateRaci(ctx context.Context, access policy.AccessContext, in RaciInput) (*RaciResult, error) {
	roleMin := policy.NormalizeRole(in.RoleMin)
	if roleMin == "" {
		roleMin = policy.NormalizeRole(in.SensitivityMin)
	}
	sensitivity := policy.NormalizeSensitivity(in.Sensitivity)
	if sensitivity == "" {
		sensitivity = policy.SensitivityInternal
	}
	if err := policy.CheckWriteAccess(access, policy.WriteRequest{
		ProjectCode: in.ProjectCode, RoleMin: roleMin, Sensitivity: sensitivity,
	}); err != nil {
		return nil, err
	}

	var res RaciResult
	err := s.graph.WithTx(ctx, func(tx *sqlite.Tx) error {
		projectID, err := tx.EnsureProject(ctx, in.ProjectCode, in.ProjectName)
		if err != nil {
			return err
		}
		personID, err := tx.EnsurePerson(ctx, in.PersonID, in.PersonName)
		if err != nil {
			return err
		}

		res.EventID = store.NewID(store.PrefixEvent)
		err = tx.InsertEvent(ctx, &store.Event{
			ID:            res.EventID,
			ProjectID:     projectID,
			ActorPersonID: personID,
			EventType:     EventRaciAssigned,
			Payload: store.Payload{
				"role_code":       in.RoleCode,
				"authority_scope": in.AuthorityScope,
				"sensitivity_min": roleMin,
			},
			OccurredAt:  in.occurredAt(),
			Source:      in.source("manual"),
			Confidence:  in.confidence(),
			RoleMin:     roleMin,
			Sensitivity: sensitivity,
		})
		if err != nil {
			return err
		}

		res.RaciID, err = tx.UpsertRaci(ctx, &store.RaciAssignment{
			ID:             store.NewID(store.PrefixRaci),
			ProjectID:      projectID,
			PersonID:       personID,
			RoleCode:       in.RoleCode,
			AuthorityScope: in.AuthorityScope,
			SensitivityMin: roleMin,
			Sensitivity:    sensitivity,
		})
		if err != nil {
			return err
		}

		err = tx.UpsertGraphEntity(ctx, sqlite.EntityUpsert{
			ID:         res.RaciID,
			EntityType: store.EntityRaci,
			ProjectID:  projectID,
			Payload: store.Payload{
				"role_code":       in.RoleCode,
				"authority_scope": in.AuthorityScope,
				"sensitivity_min": roleMin,
			},
			RoleMin:     roleMin,
			Sensitivity: sensitivity,
		})
		if err != nil {
			return err
		}

		if err := projectEdges(ctx, tx, res.RaciID, projectID, roleMin, sensitivity); err != nil {
			return err
		}
		err = tx.UpsertGraphEdge(ctx, sqlite.EdgeUpsert{
			FromID: res.RaciID, ToID: personID, RelType: store.RelAssignedTo,
			ProjectID: projectID, Payload: store.Payload{"role_code": in.RoleCode},
			RoleMin: roleMin, Sensitivity: sensitivity,
		})
		if err != nil {
			return err
		}
		return memberOfEdge(ctx, tx, personID, projectID, store.Payload{"role_code": in.RoleCode})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("raci recorded", "raci_id", res.RaciID, "project", in.ProjectCode, "role_code", in.RoleCode)
	return &res, nil
}

// projectEdges writes the belongs_to_project edge for a new entity.
func projectEdges(ctx context.Context, tx *sqlite.Tx, entityID, projectID, roleMin, sensitivity string) error {
	return tx.UpsertGraphEdge(ctx, sqlite.EdgeUpsert{
		FromID: entityID, ToID: projectID, RelType: store.RelBelongsToProject,
		ProjectID: projectID, RoleMin: roleMin, Sensitivity: sensitivity,
	})
}

// memberOfEdge derives a person's membership in a project. Membership is
// always member/internal so membership itself never hides behind the
// acted-on row's policy, and it is never independently granted.
func memberOfEdge(ctx context.Context, tx *sqlite.Tx, personID, projectID string, payload store.Payload) error {
	return tx.UpsertGraphEdge(ctx, sqlite.EdgeUpsert{
		FromID: personID, ToID: projectID, RelType: store.RelMemberOf,
		ProjectID: projectID, Payload: payload,
		RoleMin: policy.RoleMember, Sensitivity: policy.SensitivityInternal,
	})
}

func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orPayload(p store.Payload) store.Payload {
	if p == nil {
		return store.Payload{}
	}
	return p
}

func orList(l []any) []any {
	if l == nil {
		return []any{}
	}
	return l
}
