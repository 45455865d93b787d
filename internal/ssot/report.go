// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

package ssot

import (
	"context"
	"fmt"
	"time"

	"github.com/brainbase-dev/brainbase/internal/policy"
	"github.com/brainbase-dev/brainbase/internal/store"
	"github.com/brainbase-dev/brainbase/internal/store/sqlite"
)

// Report is the human-readable projection of an expansion: a header for
// the seed, per-type sections with trimmed fields, and relation lines.
type Report struct {
	Header    ReportHeader    `json:"header"`
	Meta      ReportMeta      `json:"meta"`
	Sections  []ReportSection `json:"sections"`
	Relations []string        `json:"relations"`
}

type ReportHeader struct {
	SeedID      string `json:"seed_id"`
	SeedLabel   string `json:"seed_label"`
	SeedType    string `json:"seed_type"`
	ProjectCode string `json:"project_code"`
}

type ReportMeta struct {
	NodeCount   int    `json:"node_count"`
	EdgeCount   int    `json:"edge_count"`
	GeneratedAt string `json:"generated_at"`
}

type ReportSection struct {
	Title string          `json:"title"`
	Items []store.Payload `json:"items"`
}

// sectionOrder fixes the report layout; types without visible nodes are
// omitted.
var sectionOrder = []struct {
	entityType string
	title      string
}{
	{store.EntityDecision, "Decisions"},
	{store.EntityRaci, "RACI"},
	{store.EntityPerson, "People"},
	{store.EntityAIDecision, "AI Decisions"},
	{store.EntityAIQuery, "AI Queries"},
	{store.EntityGlossaryTerm, "Glossary"},
	{store.EntityKPI, "KPIs"},
	{store.EntityInitiative, "Initiatives"},
	{store.EntityProject, "Projects"},
}

func buildReport(seed *store.GraphEntity, projectCode string, nodes []*store.GraphEntity, edgeCount int, relations []string) *Report {
	byType := make(map[string][]*store.GraphEntity)
	for _, n := range nodes {
		byType[n.EntityType] = append(byType[n.EntityType], n)
	}

	r := &Report{
		Header: ReportHeader{
			SeedID:      seed.ID,
			SeedLabel:   entityLabel(seed),
			SeedType:    seed.EntityType,
			ProjectCode: projectCode,
		},
		Meta: ReportMeta{
			NodeCount:   len(nodes),
			EdgeCount:   edgeCount,
			GeneratedAt: formatStamp(time.Now()),
		},
		Relations: relations,
	}
	if r.Relations == nil {
		r.Relations = []string{}
	}

	for _, sec := range sectionOrder {
		entities := byType[sec.entityType]
		if len(entities) == 0 {
			continue
		}
		items := make([]store.Payload, 0, len(entities))
		for _, e := range entities {
			items = append(items, sectionItem(e))
		}
		r.Sections = append(r.Sections, ReportSection{Title: sec.title, Items: items})
	}
	if r.Sections == nil {
		r.Sections = []ReportSection{}
	}
	return r
}

// sectionItem projects an entity down to the fields a reader wants per
// type; unknown types fall back to id and label.
func sectionItem(e *store.GraphEntity) store.Payload {
	p := e.Payload
	switch e.EntityType {
	case store.EntityDecision:
		return store.Payload{"id": e.ID, "title": p["title"], "status": p["status"], "decided_at": p["decided_at"]}
	case store.EntityRaci:
		return store.Payload{"id": e.ID, "role_code": p["role_code"], "authority_scope": p["authority_scope"], "sensitivity_min": p["sensitivity_min"]}
	case store.EntityPerson:
		return store.Payload{"id": e.ID, "name": p["name"]}
	case store.EntityAIDecision:
		return store.Payload{"id": e.ID, "summary": p["summary"], "decision_type": p["decision_type"], "decided_at": p["decided_at"], "confidence": p["confidence"]}
	case store.EntityAIQuery:
		return store.Payload{"id": e.ID, "intent": p["intent"], "query_type": p["query_type"], "result_count": p["result_count"]}
	case store.EntityGlossaryTerm:
		return store.Payload{"id": e.ID, "term": p["term"], "definition": p["definition"]}
	case store.EntityKPI:
		return store.Payload{"id": e.ID, "name": p["name"], "target": p["target"], "current": p["current"], "period": p["period"]}
	case store.EntityInitiative:
		return store.Payload{"id": e.ID, "title": p["title"], "status": p["status"]}
	case store.EntityProject:
		return store.Payload{"id": e.ID, "code": p["code"], "name": p["name"]}
	default:
		return store.Payload{"id": e.ID, "label": entityLabel(e)}
	}
}

// entityLabel picks the human name of a node from its payload, falling
// back to the id.
func entityLabel(e *store.GraphEntity) string {
	for _, key := range []string{"title", "name", "term", "summary", "intent", "code"} {
		if v, ok := e.Payload[key].(string); ok && v != "" {
			return v
		}
	}
	return e.ID
}

// summarizeEntities renders one "<type>: <label>" line per entity.
func summarizeEntities(entities []*store.GraphEntity) []string {
	lines := make([]string, 0, len(entities))
	for _, e := range entities {
		lines = append(lines, fmt.Sprintf("%s: %s", e.EntityType, entityLabel(e)))
	}
	return lines
}

// summarizeEdges renders "<from> -[rel]-> <to>" lines. Endpoint labels
// resolve through the access-filtered fetch; an endpoint the caller
// cannot see keeps its opaque id.
func summarizeEdges(ctx context.Context, tx *sqlite.Tx, access policy.AccessContext, projectCode string, edges []*store.GraphEdge) ([]string, error) {
	idSet := make(map[string]struct{}, len(edges)*2)
	ids := make([]string, 0, len(edges)*2)
	for _, e := range edges {
		for _, id := range []string{e.FromID, e.ToID} {
			if _, ok := idSet[id]; !ok {
				idSet[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	labels := make(map[string]string, len(ids))
	if len(ids) > 0 {
		entities, err := tx.FetchGraphEntitiesByIDs(ctx, access, ids, projectCode)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			labels[e.ID] = entityLabel(e)
		}
	}

	label := func(id string) string {
		if l, ok := labels[id]; ok {
			return l
		}
		return id
	}

	lines := make([]string, 0, len(edges))
	for _, e := range edges {
		lines = append(lines, fmt.Sprintf("%s -[%s]-> %s", label(e.FromID), e.RelType, label(e.ToID)))
	}
	return lines, nil
}

func formatStamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
