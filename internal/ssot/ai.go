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

// Query types an AI agent may run. The query is interpreted against the
// validated enum, never as free-form SQL.
const (
	QueryEntities = "entities"
	QueryEdges    = "edges"
)

// AIQueryInput describes a logged AI read.
type AIQueryInput struct {
	WriteInput
	RequestedByPersonID   string `json:"requestedByPersonId,omitempty"`
	RequestedByPersonName string `json:"requestedByPersonName,omitempty"`
	Intent                string `json:"intent,omitempty"`
	QueryType             string `json:"queryType"`
	EntityType            string `json:"entityType,omitempty"`
	RelType               string `json:"relType,omitempty"`
	FromID                string `json:"fromId,omitempty"`
	ToID                  string `json:"toId,omitempty"`
	Limit                 int    `json:"limit,omitempty"`
	HumanReadable         bool   `json:"humanReadable,omitempty"`
}

// AIQueryResult carries the query records plus the ids of the audit
// trail the query left behind. Records holds entities or edges
// depending on the query type.
type AIQueryResult struct {
	QueryID      string   `json:"query_id"`
	EventID      string   `json:"event_id"`
	ResultCount  int      `json:"result_count"`
	Records      any      `json:"records"`
	SummaryLines []string `json:"summary_lines,omitempty"`
}

// CreateAIQuery runs an access-filtered graph read on behalf of an AI
// agent and records the query itself as a first-class node. The read and
// its audit trail share one transaction, so the logged result count is
// exactly what the caller saw.
func (s *Service) CreateAIQuery(ctx context.Context, access policy.AccessContext, in AIQueryInput) (*AIQueryResult, error) {
	roleMin := policy.NormalizeRole(in.RoleMin)
	if roleMin == "" {
		roleMin = policy.RoleMember
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

	if in.QueryType != QueryEntities && in.QueryType != QueryEdges {
		return nil, bberr.Errorf(bberr.CodeQueryTypeInvalid, "unknown query type: %s", in.QueryType)
	}
	if in.EntityType != "" && !store.ValidEntityType(in.EntityType) {
		return nil, bberr.Errorf(bberr.CodeEntityTypeInvalid, "unknown entity type: %s", in.EntityType)
	}
	if in.RelType != "" && !store.ValidRelType(in.RelType) {
		return nil, bberr.Errorf(bberr.CodeRelTypeInvalid, "unknown rel type: %s", in.RelType)
	}

	var res AIQueryResult
	err := s.graph.WithTx(ctx, func(tx *sqlite.Tx) error {
		projectID, err := tx.ProjectID(ctx, in.ProjectCode)
		if err != nil {
			return err
		}
		requesterID, err := tx.EnsurePerson(ctx, in.RequestedByPersonID, requesterName(in.RequestedByPersonName))
		if err != nil {
			return err
		}

		var entities []*store.GraphEntity
		var edges []*store.GraphEdge
		switch in.QueryType {
		case QueryEntities:
			entities, err = tx.FetchGraphEntities(ctx, access, store.EntityQuery{
				ProjectCode: in.ProjectCode, EntityType: in.EntityType, Limit: in.Limit,
			})
			res.Records, res.ResultCount = entities, len(entities)
		case QueryEdges:
			edges, err = tx.FetchGraphEdges(ctx, access, store.EdgeQuery{
				ProjectCode: in.ProjectCode, RelType: in.RelType,
				FromID: in.FromID, ToID: in.ToID, Limit: in.Limit,
			})
			res.Records, res.ResultCount = edges, len(edges)
		}
		if err != nil {
			return err
		}

		res.EventID = store.NewID(store.PrefixEvent)
		res.QueryID = store.NewID(store.PrefixAIQuery)
		queryPayload := store.Payload{
			"intent":       in.Intent,
			"query_type":   in.QueryType,
			"entity_type":  emptyToNil(in.EntityType),
			"rel_type":     emptyToNil(in.RelType),
			"from_id":      emptyToNil(in.FromID),
			"to_id":        emptyToNil(in.ToID),
			"limit":        store.ClampLimit(in.Limit),
			"project_code": in.ProjectCode,
			"result_count": res.ResultCount,
		}

		err = tx.InsertEvent(ctx, &store.Event{
			ID:            res.EventID,
			ProjectID:     projectID,
			ActorPersonID: requesterID,
			EventType:     EventAIQuery,
			Payload:       queryPayload,
			OccurredAt:    in.occurredAt(),
			Source:        in.source("ai"),
			Confidence:    in.confidence(),
			RoleMin:       roleMin,
			Sensitivity:   sensitivity,
		})
		if err != nil {
			return err
		}

		err = tx.UpsertGraphEntity(ctx, sqlite.EntityUpsert{
			ID:         res.QueryID,
			EntityType: store.EntityAIQuery,
			ProjectID:  projectID,
			Payload:    queryPayload,
			RoleMin:    roleMin, Sensitivity: sensitivity,
		})
		if err != nil {
			return err
		}

		if err := projectEdges(ctx, tx, res.QueryID, projectID, roleMin, sensitivity); err != nil {
			return err
		}
		err = tx.UpsertGraphEdge(ctx, sqlite.EdgeUpsert{
			FromID: res.QueryID, ToID: requesterID, RelType: store.RelRequestedBy,
			ProjectID: projectID, RoleMin: roleMin, Sensitivity: sensitivity,
		})
		if err != nil {
			return err
		}
		if err := memberOfEdge(ctx, tx, requesterID, projectID, nil); err != nil {
			return err
		}

		if in.HumanReadable {
			if in.QueryType == QueryEntities {
				res.SummaryLines = summarizeEntities(entities)
			} else {
				res.SummaryLines, err = summarizeEdges(ctx, tx, access, in.ProjectCode, edges)
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ai query recorded", "query_id", res.QueryID, "project", in.ProjectCode,
		"query_type", in.QueryType, "result_count", res.ResultCount)
	return &res, nil
}

// AIDecisionLogInput describes an AI decision record.
type AIDecisionLogInput struct {
	WriteInput
	MadeByPersonID    string        `json:"madeByPersonId,omitempty"`
	MadeByPersonName  string        `json:"madeByPersonName,omitempty"`
	Summary           string        `json:"summary"`
	DecisionType      string        `json:"decisionType,omitempty"`
	Detail            store.Payload `json:"detail,omitempty"`
	RelatedDecisionID string        `json:"relatedDecisionId,omitempty"`
	RelatedEntityID   string        `json:"relatedEntityId,omitempty"`
	DecidedAt         string        `json:"decidedAt,omitempty"`
}

// AIDecisionLogResult returns the generated ids.
type AIDecisionLogResult struct {
	AIDecisionID string `json:"ai_decision_id"`
	EventID      string `json:"event_id"`
}

// CreateAIDecisionLog records a decision made autonomously by an AI
// agent, optionally linked to the human decision or entity it acted on.
func (s *Service) CreateAIDecisionLog(ctx context.Context, access policy.AccessContext, in AIDecisionLogInput) (*AIDecisionLogResult, error) {
	if in.Summary == "" {
		return nil, bberr.New(bberr.CodeRequestInvalid, "summary is required")
	}
	roleMin := policy.NormalizeRole(in.RoleMin)
	if roleMin == "" {
		roleMin = policy.RoleMember
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

	var res AIDecisionLogResult
	err := s.graph.WithTx(ctx, func(tx *sqlite.Tx) error {
		projectID, err := tx.ProjectID(ctx, in.ProjectCode)
		if err != nil {
			return err
		}
		actorID, err := tx.EnsurePerson(ctx, in.MadeByPersonID, requesterName(in.MadeByPersonName))
		if err != nil {
			return err
		}

		res.EventID = store.NewID(store.PrefixEvent)
		res.AIDecisionID = store.NewID(store.PrefixAIDecision)
		decidedAt := WriteInput{OccurredAt: in.DecidedAt}.occurredAt()
		payload := store.Payload{
			"summary":       in.Summary,
			"decision_type": emptyToNil(in.DecisionType),
			"detail":        orPayload(in.Detail),
			"decided_at":    formatStamp(decidedAt),
			"confidence":    in.confidence(),
		}

		err = tx.InsertEvent(ctx, &store.Event{
			ID:            res.EventID,
			ProjectID:     projectID,
			ActorPersonID: actorID,
			EventType:     EventAIDecision,
			Payload:       payload,
			OccurredAt:    decidedAt,
			Source:        in.source("ai"),
			Confidence:    in.confidence(),
			RoleMin:       roleMin,
			Sensitivity:   sensitivity,
		})
		if err != nil {
			return err
		}

		err = tx.UpsertGraphEntity(ctx, sqlite.EntityUpsert{
			ID:         res.AIDecisionID,
			EntityType: store.EntityAIDecision,
			ProjectID:  projectID,
			Payload:    payload,
			RoleMin:    roleMin, Sensitivity: sensitivity,
		})
		if err != nil {
			return err
		}

		if err := projectEdges(ctx, tx, res.AIDecisionID, projectID, roleMin, sensitivity); err != nil {
			return err
		}
		err = tx.UpsertGraphEdge(ctx, sqlite.EdgeUpsert{
			FromID: res.AIDecisionID, ToID: actorID, RelType: store.RelMadeBy,
			ProjectID: projectID, RoleMin: roleMin, Sensitivity: sensitivity,
		})
		if err != nil {
			return err
		}
		if related := firstNonEmpty(in.RelatedDecisionID, in.RelatedEntityID); related != "" {
			err = tx.UpsertGraphEdge(ctx, sqlite.EdgeUpsert{
				FromID: res.AIDecisionID, ToID: related, RelType: store.RelReferences,
				ProjectID: projectID, RoleMin: roleMin, Sensitivity: sensitivity,
			})
			if err != nil {
				return err
			}
		}
		return memberOfEdge(ctx, tx, actorID, projectID, nil)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ai decision recorded", "ai_decision_id", res.AIDecisionID, "project", in.ProjectCode)
	return &res, nil
}

// requesterName defaults the acting agent's name so AI writes never fail
// on the person-identifier requirement.
func requesterName(name string) string {
	if name == "" {
		return "AI"
	}
	return name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
