// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

package ssot

import (
	"context"
	"strings"

	"github.com/brainbase-dev/brainbase/internal/policy"
	"github.com/brainbase-dev/brainbase/internal/store"
	"github.com/brainbase-dev/brainbase/internal/store/sqlite"
	bberr "github.com/brainbase-dev/brainbase/pkg/errors"
)

// Traversal bounds. Depth is clamped hard; a deeper walk is a different
// product, not a bigger parameter.
const (
	DefaultExpandDepth = 1
	MaxExpandDepth     = 3
)

// ExpandInput describes a graph expansion request.
type ExpandInput struct {
	SeedID        string `json:"seedId"`
	ProjectCode   string `json:"projectCode"`
	Depth         int    `json:"depth,omitempty"`
	Limit         int    `json:"limit,omitempty"`
	HumanReadable bool   `json:"humanReadable,omitempty"`
}

// ExpandResult is the visible neighborhood of the seed.
type ExpandResult struct {
	Nodes        []*store.GraphEntity `json:"nodes"`
	Edges        []*store.GraphEdge   `json:"edges"`
	SummaryLines []string             `json:"summary_lines,omitempty"`
	Report       *Report              `json:"report,omitempty"`
}

// ExpandGraph walks the graph breadth-first from the seed, bounded by
// depth and node limit, with every hop access-filtered. The whole walk
// runs on one transaction so it observes a single consistent snapshot.
// A seed the caller cannot see is indistinguishable from a seed that
// does not exist.
func (s *Service) ExpandGraph(ctx context.Context, access policy.AccessContext, in ExpandInput) (*ExpandResult, error) {
	if in.SeedID == "" {
		return nil, bberr.New(bberr.CodeRequestInvalid, "seedId is required")
	}
	if in.ProjectCode == "" {
		return nil, bberr.New(bberr.CodeRequestInvalid, "projectCode is required")
	}
	depth := clampDepth(in.Depth)
	limit := store.ClampLimit(in.Limit)

	var res ExpandResult
	err := s.graph.WithTx(ctx, func(tx *sqlite.Tx) error {
		seed, err := tx.FetchGraphEntitiesByIDs(ctx, access, []string{in.SeedID}, in.ProjectCode)
		if err != nil {
			return err
		}
		if len(seed) == 0 {
			return bberr.New(bberr.CodeExpandSeedDenied, "seed entity not found or not accessible")
		}

		visited := map[string]struct{}{in.SeedID: {}}
		ids := []string{in.SeedID}
		frontier := []string{in.SeedID}

		for d := 0; d < depth && len(frontier) > 0 && len(visited) < limit; d++ {
			if err := ctx.Err(); err != nil {
				return bberr.Wrap(err, bberr.CodeServerFailure, "expansion canceled")
			}
			var next []string
			for _, id := range frontier {
				if len(visited) >= limit {
					break
				}
				edges, err := tx.FetchGraphEdges(ctx, access, store.EdgeQuery{
					ProjectCode: in.ProjectCode, TouchingID: id, Limit: limit,
				})
				if err != nil {
					return err
				}
				for _, e := range edges {
					other := e.ToID
					if other == id {
						other = e.FromID
					}
					if _, seen := visited[other]; seen {
						continue
					}
					visited[other] = struct{}{}
					ids = append(ids, other)
					next = append(next, other)
					if len(visited) >= limit {
						break
					}
				}
			}
			frontier = next
		}

		// Re-validate every discovered id through the filtered fetch; an
		// edge endpoint the caller cannot see drops out here.
		res.Nodes, err = tx.FetchGraphEntitiesByIDs(ctx, access, ids, in.ProjectCode)
		if err != nil {
			return err
		}

		kept := make(map[string]struct{}, len(res.Nodes))
		for _, n := range res.Nodes {
			kept[n.ID] = struct{}{}
		}
		all, err := tx.FetchGraphEdges(ctx, access, store.EdgeQuery{
			ProjectCode: in.ProjectCode, Limit: store.MaxQueryLimit,
		})
		if err != nil {
			return err
		}
		// Edges touching the visited set are kept even when the far
		// endpoint sits beyond the depth bound; the frontier stays
		// visible without admitting the node itself.
		for _, e := range all {
			_, fromOK := kept[e.FromID]
			_, toOK := kept[e.ToID]
			if fromOK || toOK {
				res.Edges = append(res.Edges, e)
			}
		}

		if in.HumanReadable {
			res.SummaryLines, err = summarizeEdges(ctx, tx, access, in.ProjectCode, res.Edges)
			if err != nil {
				return err
			}
			res.Report = buildReport(seed[0], in.ProjectCode, res.Nodes, len(res.Edges), res.SummaryLines)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Nodes == nil {
		res.Nodes = []*store.GraphEntity{}
	}
	if res.Edges == nil {
		res.Edges = []*store.GraphEdge{}
	}
	return &res, nil
}

func clampDepth(depth int) int {
	if depth <= 0 {
		return DefaultExpandDepth
	}
	if depth > MaxExpandDepth {
		return MaxExpandDepth
	}
	return depth
}

// ContextInput describes a project context read.
type ContextInput struct {
	ProjectCode   string   `json:"projectCode"`
	EntityTypes   []string `json:"entityTypes,omitempty"`
	Limit         int      `json:"limit,omitempty"`
	IncludeEdges  bool     `json:"includeEdges,omitempty"`
	HumanReadable bool     `json:"humanReadable,omitempty"`
}

// ContextResult groups a project's visible entities by type.
type ContextResult struct {
	ProjectCode  string                          `json:"project_code"`
	Records      map[string][]*store.GraphEntity `json:"records"`
	Counts       map[string]int                  `json:"counts"`
	Edges        []*store.GraphEdge              `json:"edges,omitempty"`
	SummaryLines []string                        `json:"summary_lines,omitempty"`
}

// GetContext assembles the visible slice of one project, grouped by
// entity type, for feeding a briefing or an agent prompt.
func (s *Service) GetContext(ctx context.Context, access policy.AccessContext, in ContextInput) (*ContextResult, error) {
	if in.ProjectCode == "" {
		return nil, bberr.New(bberr.CodeRequestInvalid, "projectCode is required")
	}
	// A single "a,b,c" value and repeated params are both accepted.
	var types []string
	for _, raw := range in.EntityTypes {
		for _, et := range strings.Split(raw, ",") {
			if et = strings.TrimSpace(et); et != "" {
				types = append(types, et)
			}
		}
	}
	if len(types) == 0 {
		types = []string{
			store.EntityDecision, store.EntityRaci, store.EntityPerson,
			store.EntityAIDecision, store.EntityAIQuery,
			store.EntityGlossaryTerm, store.EntityKPI, store.EntityInitiative,
		}
	}

	res := ContextResult{
		ProjectCode: in.ProjectCode,
		Records:     make(map[string][]*store.GraphEntity, len(types)),
		Counts:      make(map[string]int, len(types)),
	}
	for _, et := range types {
		if !store.ValidEntityType(et) {
			return nil, bberr.Errorf(bberr.CodeEntityTypeInvalid, "unknown entity type: %s", et)
		}
		entities, err := s.graph.FetchGraphEntities(ctx, access, store.EntityQuery{
			ProjectCode: in.ProjectCode, EntityType: et, Limit: in.Limit,
		})
		if err != nil {
			return nil, err
		}
		res.Records[et] = entities
		res.Counts[et] = len(entities)
		if in.HumanReadable {
			res.SummaryLines = append(res.SummaryLines, summarizeEntities(entities)...)
		}
	}

	if in.IncludeEdges {
		edges, err := s.graph.FetchGraphEdges(ctx, access, store.EdgeQuery{
			ProjectCode: in.ProjectCode, Limit: in.Limit,
		})
		if err != nil {
			return nil, err
		}
		res.Edges = edges
	}
	return &res, nil
}
