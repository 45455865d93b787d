// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

package ssot

import (
	"context"

	"github.com/brainbase-dev/brainbase/internal/policy"
	"github.com/brainbase-dev/brainbase/internal/store"
	"github.com/brainbase-dev/brainbase/internal/store/sqlite"
	bberr "github.com/brainbase-dev/brainbase/pkg/errors"
)

// GlossaryInput describes a glossary term write.
type GlossaryInput struct {
	WriteInput
	ActorPersonID   string `json:"actorPersonId,omitempty"`
	ActorPersonName string `json:"actorPersonName,omitempty"`
	Term            string `json:"term"`
	Definition      string `json:"definition,omitempty"`
	Aliases         []any  `json:"aliases,omitempty"`
}

// KPIInput describes a KPI write.
type KPIInput struct {
	WriteInput
	OwnerPersonID   string `json:"ownerPersonId,omitempty"`
	OwnerPersonName string `json:"ownerPersonName,omitempty"`
	Name            string `json:"name"`
	Target          string `json:"target,omitempty"`
	Current         string `json:"current,omitempty"`
	Unit            string `json:"unit,omitempty"`
	Period          string `json:"period,omitempty"`
}

// InitiativeInput describes an initiative write.
type InitiativeInput struct {
	WriteInput
	OwnerPersonID   string `json:"ownerPersonId,omitempty"`
	OwnerPersonName string `json:"ownerPersonName,omitempty"`
	Title           string `json:"title"`
	Summary         string `json:"summary,omitempty"`
	Status          string `json:"status,omitempty"`
}

// ArtifactResult returns the generated entity and event ids shared by
// the glossary, KPI, and initiative writes.
type ArtifactResult struct {
	EntityID string `json:"entity_id"`
	EventID  string `json:"event_id"`
}

// CreateGlossaryTerm records a shared vocabulary term for a project.
func (s *Service) CreateGlossaryTerm(ctx context.Context, access policy.AccessContext, in GlossaryInput) (*ArtifactResult, error) {
	if in.Term == "" {
		return nil, bberr.New(bberr.CodeRequestInvalid, "term is required")
	}
	return s.createArtifact(ctx, access, artifactWrite{
		WriteInput: in.WriteInput,
		PersonID:   in.ActorPersonID, PersonName: in.ActorPersonName,
		EntityType: store.EntityGlossaryTerm,
		IDPrefix:   store.PrefixGlossary,
		EventType:  EventGlossaryCreated,
		Payload: store.Payload{
			"term":       in.Term,
			"definition": in.Definition,
			"aliases":    orList(in.Aliases),
		},
	})
}

// CreateKPI records a measurable target, owned by a person.
func (s *Service) CreateKPI(ctx context.Context, access policy.AccessContext, in KPIInput) (*ArtifactResult, error) {
	if in.Name == "" {
		return nil, bberr.New(bberr.CodeRequestInvalid, "name is required")
	}
	return s.createArtifact(ctx, access, artifactWrite{
		WriteInput: in.WriteInput,
		PersonID:   in.OwnerPersonID, PersonName: in.OwnerPersonName,
		EntityType: store.EntityKPI,
		IDPrefix:   store.PrefixKPI,
		EventType:  EventKPICreated,
		OwnedBy:    true,
		Payload: store.Payload{
			"name":    in.Name,
			"target":  in.Target,
			"current": in.Current,
			"unit":    in.Unit,
			"period":  in.Period,
		},
	})
}

// CreateInitiative records a workstream, owned by a person.
func (s *Service) CreateInitiative(ctx context.Context, access policy.AccessContext, in InitiativeInput) (*ArtifactResult, error) {
	if in.Title == "" {
		return nil, bberr.New(bberr.CodeRequestInvalid, "title is required")
	}
	status := in.Status
	if status == "" {
		status = "active"
	}
	return s.createArtifact(ctx, access, artifactWrite{
		WriteInput: in.WriteInput,
		PersonID:   in.OwnerPersonID, PersonName: in.OwnerPersonName,
		EntityType: store.EntityInitiative,
		IDPrefix:   store.PrefixInitiative,
		EventType:  EventInitiative,
		OwnedBy:    true,
		Payload: store.Payload{
			"title":   in.Title,
			"summary": in.Summary,
			"status":  status,
		},
	})
}

// artifactWrite is the shared shape behind the three artifact writes:
// event, graph entity, project edge, optional owned_by edge, membership.
type artifactWrite struct {
	WriteInput
	PersonID   string
	PersonName string
	EntityType string
	IDPrefix   string
	EventType  string
	OwnedBy    bool
	Payload    store.Payload
}

func (s *Service) createArtifact(ctx context.Context, access policy.AccessContext, w artifactWrite) (*ArtifactResult, error) {
	roleMin := policy.NormalizeRole(w.RoleMin)
	if roleMin == "" {
		roleMin = policy.RoleMember
	}
	sensitivity := policy.NormalizeSensitivity(w.Sensitivity)
	if sensitivity == "" {
		sensitivity = policy.SensitivityInternal
	}
	if err := policy.CheckWriteAccess(access, policy.WriteRequest{
		ProjectCode: w.ProjectCode, RoleMin: roleMin, Sensitivity: sensitivity,
	}); err != nil {
		return nil, err
	}

	var res ArtifactResult
	err := s.graph.WithTx(ctx, func(tx *sqlite.Tx) error {
		projectID, err := tx.EnsureProject(ctx, w.ProjectCode, w.ProjectName)
		if err != nil {
			return err
		}
		personID, err := tx.EnsurePerson(ctx, w.PersonID, w.PersonName)
		if err != nil {
			return err
		}

		res.EventID = store.NewID(store.PrefixEvent)
		res.EntityID = store.NewID(w.IDPrefix)

		err = tx.InsertEvent(ctx, &store.Event{
			ID:            res.EventID,
			ProjectID:     projectID,
			ActorPersonID: personID,
			EventType:     w.EventType,
			Payload:       w.Payload,
			OccurredAt:    w.occurredAt(),
			Source:        w.source("manual"),
			Confidence:    w.confidence(),
			RoleMin:       roleMin,
			Sensitivity:   sensitivity,
		})
		if err != nil {
			return err
		}

		err = tx.UpsertGraphEntity(ctx, sqlite.EntityUpsert{
			ID:         res.EntityID,
			EntityType: w.EntityType,
			ProjectID:  projectID,
			Payload:    w.Payload,
			RoleMin:    roleMin, Sensitivity: sensitivity,
		})
		if err != nil {
			return err
		}

		if err := projectEdges(ctx, tx, res.EntityID, projectID, roleMin, sensitivity); err != nil {
			return err
		}
		if w.OwnedBy {
			err = tx.UpsertGraphEdge(ctx, sqlite.EdgeUpsert{
				FromID: res.EntityID, ToID: personID, RelType: store.RelOwnedBy,
				ProjectID: projectID, RoleMin: roleMin, Sensitivity: sensitivity,
			})
			if err != nil {
				return err
			}
		}
		return memberOfEdge(ctx, tx, personID, projectID, nil)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("artifact recorded", "entity_id", res.EntityID, "entity_type", w.EntityType, "project", w.ProjectCode)
	return &res, nil
}
