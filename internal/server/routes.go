// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/brainbase-dev/brainbase/internal/ssot"
	"github.com/brainbase-dev/brainbase/internal/store"
)

func (s *Server) registerRoutes() {
	// Graph reads
	huma.Register(s.api, huma.Operation{
		OperationID: "list-graph-entities",
		Method:      http.MethodGet,
		Path:        "/graph/entities",
		Summary:     "List visible graph entities",
		Tags:        []string{"graph"},
	}, s.handleListEntities)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-graph-edges",
		Method:      http.MethodGet,
		Path:        "/graph/edges",
		Summary:     "List visible graph edges",
		Tags:        []string{"graph"},
	}, s.handleListEdges)

	huma.Register(s.api, huma.Operation{
		OperationID: "expand-graph",
		Method:      http.MethodGet,
		Path:        "/graph/expand",
		Summary:     "Expand the graph from a seed entity",
		Tags:        []string{"graph"},
	}, s.handleExpand)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-graph-context",
		Method:      http.MethodGet,
		Path:        "/graph/context",
		Summary:     "Project context grouped by entity type",
		Tags:        []string{"graph"},
	}, s.handleContext)

	// Domain writes
	huma.Register(s.api, huma.Operation{
		OperationID:   "create-event",
		Method:        http.MethodPost,
		Path:          "/events",
		Summary:       "Append an audit event",
		Tags:          []string{"events"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateEvent)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-decision",
		Method:        http.MethodPost,
		Path:          "/decisions",
		Summary:       "Record a decision",
		Tags:          []string{"decisions"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateDecision)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-raci",
		Method:        http.MethodPost,
		Path:          "/raci",
		Summary:       "Grant a RACI authority",
		Tags:          []string{"raci"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateRaci)

	huma.Register(s.api, huma.Operation{
		OperationID: "ai-query",
		Method:      http.MethodPost,
		Path:        "/ai/query",
		Summary:     "Run a logged AI graph query",
		Tags:        []string{"ai"},
	}, s.handleAIQuery)

	huma.Register(s.api, huma.Operation{
		OperationID:   "ai-decision-log",
		Method:        http.MethodPost,
		Path:          "/ai/decision-log",
		Summary:       "Record an AI decision",
		Tags:          []string{"ai"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAIDecisionLog)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-glossary-term",
		Method:        http.MethodPost,
		Path:          "/glossary",
		Summary:       "Record a glossary term",
		Tags:          []string{"artifacts"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateGlossary)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-kpi",
		Method:        http.MethodPost,
		Path:          "/kpi",
		Summary:       "Record a KPI",
		Tags:          []string{"artifacts"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateKPI)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-initiative",
		Method:        http.MethodPost,
		Path:          "/initiatives",
		Summary:       "Record an initiative",
		Tags:          []string{"artifacts"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateInitiative)

	// Legacy read fences. The per-table reads are gone on purpose: the
	// graph is the only read surface, so a filter can never be bypassed
	// by reading a side table.
	s.registerGoneRoute("legacy-list-decisions", "/decisions", "decisions")
	s.registerGoneRoute("legacy-list-raci", "/raci", "raci assignments")
	s.registerGoneRoute("legacy-list-events", "/events", "events")
}

func (s *Server) registerGoneRoute(id, path, what string) {
	huma.Register(s.api, huma.Operation{
		OperationID: id,
		Method:      http.MethodGet,
		Path:        path,
		Summary:     "Removed legacy read",
		Tags:        []string{"legacy"},
	}, func(_ context.Context, _ *struct{}) (*struct{}, error) {
		return nil, huma.NewError(http.StatusGone, what+" are read via Graph SSOT only")
	})
}

// --- Graph reads ---

type listEntitiesInput struct {
	ProjectCode string `query:"project" doc:"Filter to one project code"`
	EntityType  string `query:"type" doc:"Filter to one entity type"`
	Limit       int    `query:"limit" doc:"Max rows, capped at 500"`
}

type listEntitiesOutput struct {
	Body struct {
		Entities []*store.GraphEntity `json:"entities"`
	}
}

func (s *Server) handleListEntities(ctx context.Context, in *listEntitiesInput) (*listEntitiesOutput, error) {
	entities, err := s.svc.ListGraphEntities(ctx, accessFrom(ctx), store.EntityQuery{
		ProjectCode: in.ProjectCode, EntityType: in.EntityType, Limit: in.Limit,
	})
	if err != nil {
		return nil, s.svcError(err)
	}
	out := &listEntitiesOutput{}
	out.Body.Entities = entities
	if out.Body.Entities == nil {
		out.Body.Entities = []*store.GraphEntity{}
	}
	return out, nil
}

type listEdgesInput struct {
	ProjectCode string `query:"project"`
	RelType     string `query:"type"`
	FromID      string `query:"from"`
	ToID        string `query:"to"`
	Limit       int    `query:"limit"`
}

type listEdgesOutput struct {
	Body struct {
		Edges []*store.GraphEdge `json:"edges"`
	}
}

func (s *Server) handleListEdges(ctx context.Context, in *listEdgesInput) (*listEdgesOutput, error) {
	edges, err := s.svc.ListGraphEdges(ctx, accessFrom(ctx), store.EdgeQuery{
		ProjectCode: in.ProjectCode, RelType: in.RelType,
		FromID: in.FromID, ToID: in.ToID, Limit: in.Limit,
	})
	if err != nil {
		return nil, s.svcError(err)
	}
	out := &listEdgesOutput{}
	out.Body.Edges = edges
	if out.Body.Edges == nil {
		out.Body.Edges = []*store.GraphEdge{}
	}
	return out, nil
}

type expandInput struct {
	SeedID        string `query:"seed"`
	ProjectCode   string `query:"project"`
	Depth         int    `query:"depth" doc:"Hops from the seed, 1..3"`
	Limit         int    `query:"limit" doc:"Max nodes, capped at 500"`
	HumanReadable bool   `query:"humanReadable"`
}

type expandOutput struct {
	Body ssot.ExpandResult
}

func (s *Server) handleExpand(ctx context.Context, in *expandInput) (*expandOutput, error) {
	res, err := s.svc.ExpandGraph(ctx, accessFrom(ctx), ssot.ExpandInput{
		SeedID: in.SeedID, ProjectCode: in.ProjectCode,
		Depth: in.Depth, Limit: in.Limit, HumanReadable: in.HumanReadable,
	})
	if err != nil {
		return nil, s.svcError(err)
	}
	return &expandOutput{Body: *res}, nil
}

type contextInput struct {
	ProjectCode   string   `query:"project"`
	EntityTypes   []string `query:"types"`
	Limit         int      `query:"limit"`
	IncludeEdges  bool     `query:"includeEdges"`
	HumanReadable bool     `query:"humanReadable"`
}

type contextOutput struct {
	Body ssot.ContextResult
}

func (s *Server) handleContext(ctx context.Context, in *contextInput) (*contextOutput, error) {
	res, err := s.svc.GetContext(ctx, accessFrom(ctx), ssot.ContextInput{
		ProjectCode: in.ProjectCode, EntityTypes: in.EntityTypes,
		Limit: in.Limit, IncludeEdges: in.IncludeEdges, HumanReadable: in.HumanReadable,
	})
	if err != nil {
		return nil, s.svcError(err)
	}
	return &contextOutput{Body: *res}, nil
}

// --- Domain writes ---

type createEventInput struct {
	Body ssot.EventInput
}

type createEventOutput struct {
	Body ssot.EventResult
}

func (s *Server) handleCreateEvent(ctx context.Context, in *createEventInput) (*createEventOutput, error) {
	res, err := s.svc.CreateEvent(ctx, accessFrom(ctx), in.Body)
	if err != nil {
		return nil, s.svcError(err)
	}
	return &createEventOutput{Body: *res}, nil
}

type createDecisionInput struct {
	Body ssot.DecisionInput
}

type createDecisionOutput struct {
	Body ssot.DecisionResult
}

func (s *Server) handleCreateDecision(ctx context.Context, in *createDecisionInput) (*createDecisionOutput, error) {
	res, err := s.svc.CreateDecision(ctx, accessFrom(ctx), in.Body)
	if err != nil {
		return nil, s.svcError(err)
	}
	return &createDecisionOutput{Body: *res}, nil
}

type createRaciInput struct {
	Body ssot.RaciInput
}

type createRaciOutput struct {
	Body ssot.RaciResult
}

func (s *Server) handleCreateRaci(ctx context.Context, in *createRaciInput) (*createRaciOutput, error) {
	res, err := s.svc.CreateRaci(ctx, accessFrom(ctx), in.Body)
	if err != nil {
		return nil, s.svcError(err)
	}
	return &createRaciOutput{Body: *res}, nil
}

type aiQueryInput struct {
	Body ssot.AIQueryInput
}

type aiQueryOutput struct {
	Body ssot.AIQueryResult
}

func (s *Server) handleAIQuery(ctx context.Context, in *aiQueryInput) (*aiQueryOutput, error) {
	res, err := s.svc.CreateAIQuery(ctx, accessFrom(ctx), in.Body)
	if err != nil {
		return nil, s.svcError(err)
	}
	return &aiQueryOutput{Body: *res}, nil
}

type aiDecisionLogInput struct {
	Body ssot.AIDecisionLogInput
}

type aiDecisionLogOutput struct {
	Body ssot.AIDecisionLogResult
}

func (s *Server) handleAIDecisionLog(ctx context.Context, in *aiDecisionLogInput) (*aiDecisionLogOutput, error) {
	res, err := s.svc.CreateAIDecisionLog(ctx, accessFrom(ctx), in.Body)
	if err != nil {
		return nil, s.svcError(err)
	}
	return &aiDecisionLogOutput{Body: *res}, nil
}

type glossaryInput struct {
	Body ssot.GlossaryInput
}

type artifactOutput struct {
	Body ssot.ArtifactResult
}

func (s *Server) handleCreateGlossary(ctx context.Context, in *glossaryInput) (*artifactOutput, error) {
	res, err := s.svc.CreateGlossaryTerm(ctx, accessFrom(ctx), in.Body)
	if err != nil {
		return nil, s.svcError(err)
	}
	return &artifactOutput{Body: *res}, nil
}

type kpiInput struct {
	Body ssot.KPIInput
}

func (s *Server) handleCreateKPI(ctx context.Context, in *kpiInput) (*artifactOutput, error) {
	res, err := s.svc.CreateKPI(ctx, accessFrom(ctx), in.Body)
	if err != nil {
		return nil, s.svcError(err)
	}
	return &artifactOutput{Body: *res}, nil
}

type initiativeInput struct {
	Body ssot.InitiativeInput
}

func (s *Server) handleCreateInitiative(ctx context.Context, in *initiativeInput) (*artifactOutput, error) {
	res, err := s.svc.CreateInitiative(ctx, accessFrom(ctx), in.Body)
	if err != nil {
		return nil, s.svcError(err)
	}
	return &artifactOutput{Body: *res}, nil
}
