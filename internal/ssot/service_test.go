// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

package ssot_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainbase-dev/brainbase/internal/policy"
	"github.com/brainbase-dev/brainbase/internal/ssot"
	"github.com/brainbase-dev/brainbase/internal/store"
	"github.com/brainbase-dev/brainbase/internal/store/sqlite"
	bberr "github.com/brainbase-dev/brainbase/pkg/errors"
)

func newTestService(t *testing.T) *ssot.Service {
	t.Helper()
	g, err := sqlite.NewGraphStore(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return ssot.New(g, nil)
}

func fullAccess(role string, projects ...string) policy.AccessContext {
	return policy.AccessContext{
		Role:         role,
		ProjectCodes: projects,
		Clearance: []string{
			policy.SensitivityInternal, policy.SensitivityRestricted,
			policy.SensitivityFinance, policy.SensitivityHR, policy.SensitivityContract,
		},
	}
}

func writeInput(project string) ssot.WriteInput {
	return ssot.WriteInput{
		ProjectCode: project, ProjectName: "Project " + project,
		RoleMin: policy.RoleMember, Sensitivity: policy.SensitivityInternal,
	}
}

// grantPricing gives Alice pricing decision authority in the project.
func grantPricing(t *testing.T, svc *ssot.Service, access policy.AccessContext, project string) {
	t.Helper()
	_, err := svc.CreateRaci(context.Background(), access, ssot.RaciInput{
		WriteInput: writeInput(project),
		PersonName: "Alice",
		RoleCode:   "decision:pricing",
	})
	require.NoError(t, err)
}

func TestCreateEvent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	access := fullAccess("member", "acme")

	res, err := svc.CreateEvent(ctx, access, ssot.EventInput{
		WriteInput:      writeInput("acme"),
		ActorPersonName: "Alice",
		EventType:       "NOTE",
		Payload:         store.Payload{"text": "hello"},
	})
	require.NoError(t, err)
	assert.Contains(t, res.EventID, "evt_")

	// A bare event leaves no graph node behind; the project and person
	// mirrors are the only entities.
	entities, err := svc.ListGraphEntities(ctx, access, store.EntityQuery{ProjectCode: "acme"})
	require.NoError(t, err)
	for _, e := range entities {
		assert.NotEqual(t, "event", e.EntityType)
	}
}

func TestCreateEvent_CrossProjectDenied(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateEvent(context.Background(), fullAccess("ceo", "acme"), ssot.EventInput{
		WriteInput: writeInput("other"),
		EventType:  "NOTE",
	})
	require.Error(t, err)
	assert.Equal(t, bberr.CodePolicyProjectDenied, bberr.CodeOf(err))
}

func TestCreateEvent_HighSensitivityFloor(t *testing.T) {
	svc := newTestService(t)

	in := ssot.EventInput{
		WriteInput: ssot.WriteInput{
			ProjectCode: "acme", ProjectName: "Acme",
			RoleMin: policy.RoleMember, Sensitivity: policy.SensitivityFinance,
		},
		EventType: "NOTE",
	}
	_, err := svc.CreateEvent(context.Background(), fullAccess("ceo", "acme"), in)
	require.Error(t, err)
	assert.Equal(t, bberr.CodePolicyRoleFloorInvalid, bberr.CodeOf(err))
}

func TestCreateDecision(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	access := fullAccess("member", "acme")
	grantPricing(t, svc, access, "acme")

	res, err := svc.CreateDecision(ctx, access, ssot.DecisionInput{
		WriteInput:      writeInput("acme"),
		OwnerPersonName: "Alice",
		Title:           "Adopt tiered pricing",
		DecisionDomain:  "pricing",
		Reason:          "simplifies the catalog",
	})
	require.NoError(t, err)
	assert.Contains(t, res.DecisionID, "dec_")
	assert.Contains(t, res.EventID, "evt_")

	// The decision is mirrored into the graph with its edges.
	entities, err := svc.ListGraphEntities(ctx, access, store.EntityQuery{
		ProjectCode: "acme", EntityType: store.EntityDecision,
	})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Adopt tiered pricing", entities[0].Payload["title"])

	edges, err := svc.ListGraphEdges(ctx, access, store.EdgeQuery{
		ProjectCode: "acme", FromID: res.DecisionID,
	})
	require.NoError(t, err)
	relTypes := make(map[string]bool)
	for _, e := range edges {
		relTypes[e.RelType] = true
	}
	assert.True(t, relTypes[store.RelBelongsToProject])
	assert.True(t, relTypes[store.RelOwnedBy])
}

func TestCreateDecision_DomainRequired(t *testing.T) {
	svc := newTestService(t)
	access := fullAccess("member", "acme")

	_, err := svc.CreateDecision(context.Background(), access, ssot.DecisionInput{
		WriteInput:      writeInput("acme"),
		OwnerPersonName: "Alice",
		Title:           "No domain",
	})
	require.Error(t, err)
	assert.Equal(t, bberr.CodeDecisionDomainRequired, bberr.CodeOf(err))
}

func TestCreateDecision_AuthorityMissing(t *testing.T) {
	svc := newTestService(t)
	access := fullAccess("member", "acme")
	grantPricing(t, svc, access, "acme")

	// Alice holds pricing, not hiring.
	_, err := svc.CreateDecision(context.Background(), access, ssot.DecisionInput{
		WriteInput:      writeInput("acme"),
		OwnerPersonName: "Alice",
		Title:           "Hire a CFO",
		DecisionDomain:  "hiring",
	})
	require.Error(t, err)
	assert.Equal(t, bberr.CodeDecisionAuthorityDenied, bberr.CodeOf(err))
}

func TestCreateDecision_UniversalAuthority(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	access := fullAccess("member", "acme")

	_, err := svc.CreateRaci(ctx, access, ssot.RaciInput{
		WriteInput: writeInput("acme"),
		PersonName: "Chair",
		RoleCode:   policy.UniversalDecisionRole,
	})
	require.NoError(t, err)

	// The universal role authorizes any domain.
	_, err = svc.CreateDecision(ctx, access, ssot.DecisionInput{
		WriteInput:      writeInput("acme"),
		OwnerPersonName: "Chair",
		Title:           "Anything goes",
		DecisionDomain:  "hiring",
	})
	assert.NoError(t, err)
}

func TestCreateDecision_EnforceRaciOff(t *testing.T) {
	svc := newTestService(t)
	off := false

	_, err := svc.CreateDecision(context.Background(), fullAccess("member", "acme"), ssot.DecisionInput{
		WriteInput:      writeInput("acme"),
		OwnerPersonName: "Nobody",
		Title:           "Backfill import",
		EnforceRACI:     &off,
	})
	assert.NoError(t, err)
}

func TestCreateRaci_LegacySensitivityMin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	access := fullAccess("gm", "acme")

	_, err := svc.CreateRaci(ctx, access, ssot.RaciInput{
		WriteInput: ssot.WriteInput{ProjectCode: "acme", ProjectName: "Acme"},
		PersonName: "Alice",
		RoleCode:   "decision:pricing",
		// Legacy spelling of the viewer floor.
		SensitivityMin: "gm",
	})
	require.NoError(t, err)

	entities, err := svc.ListGraphEntities(ctx, access, store.EntityQuery{
		ProjectCode: "acme", EntityType: store.EntityRaci,
	})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "gm", entities[0].RoleMin)

	// A plain member cannot see the gm-floored grant.
	memberView, err := svc.ListGraphEntities(ctx, fullAccess("member", "acme"), store.EntityQuery{
		ProjectCode: "acme", EntityType: store.EntityRaci,
	})
	require.NoError(t, err)
	assert.Empty(t, memberView)
}

func TestCreateRaci_Regrant(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	access := fullAccess("member", "acme")

	first, err := svc.CreateRaci(ctx, access, ssot.RaciInput{
		WriteInput: writeInput("acme"), PersonName: "Alice", RoleCode: "decision:pricing",
	})
	require.NoError(t, err)
	second, err := svc.CreateRaci(ctx, access, ssot.RaciInput{
		WriteInput: writeInput("acme"), PersonName: "Alice", RoleCode: "decision:pricing",
		AuthorityScope: "expanded",
	})
	require.NoError(t, err)
	assert.Equal(t, first.RaciID, second.RaciID, "regrant keeps the assignment id")
	assert.NotEqual(t, first.EventID, second.EventID, "each grant leaves its own audit event")
}

func TestCreateAIQuery(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	access := fullAccess("member", "acme")
	grantPricing(t, svc, access, "acme")

	res, err := svc.CreateAIQuery(ctx, access, ssot.AIQueryInput{
		WriteInput: ssot.WriteInput{ProjectCode: "acme"},
		Intent:     "who holds pricing authority",
		QueryType:  ssot.QueryEntities,
		EntityType: store.EntityRaci,
	})
	require.NoError(t, err)
	assert.Contains(t, res.QueryID, "qry_")
	assert.Equal(t, 1, res.ResultCount)
	records, ok := res.Records.([]*store.GraphEntity)
	require.True(t, ok)
	require.Len(t, records, 1)

	// The query itself became a graph node carrying the result count.
	entities, err := svc.ListGraphEntities(ctx, access, store.EntityQuery{
		ProjectCode: "acme", EntityType: store.EntityAIQuery,
	})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.EqualValues(t, 1, entities[0].Payload["result_count"])
}

func TestCreateAIQuery_EdgeEndpoints(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	access := fullAccess("member", "acme")
	grantPricing(t, svc, access, "acme")

	dec, err := svc.CreateDecision(ctx, access, ssot.DecisionInput{
		WriteInput: writeInput("acme"), OwnerPersonName: "Alice",
		Title: "Adopt tiered pricing", DecisionDomain: "pricing",
	})
	require.NoError(t, err)

	res, err := svc.CreateAIQuery(ctx, access, ssot.AIQueryInput{
		WriteInput: ssot.WriteInput{ProjectCode: "acme"},
		Intent:     "who owns this decision",
		QueryType:  ssot.QueryEdges,
		RelType:    store.RelOwnedBy,
		FromID:     dec.DecisionID,
	})
	require.NoError(t, err)
	records, ok := res.Records.([]*store.GraphEdge)
	require.True(t, ok)
	require.Len(t, records, 1)
	assert.Equal(t, dec.DecisionID, records[0].FromID)

	// The logged query node records the full shape of the read,
	// endpoints and limit included.
	entities, err := svc.ListGraphEntities(ctx, access, store.EntityQuery{
		ProjectCode: "acme", EntityType: store.EntityAIQuery,
	})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, dec.DecisionID, entities[0].Payload["from_id"])
	assert.Nil(t, entities[0].Payload["to_id"])
	assert.EqualValues(t, store.DefaultQueryLimit, entities[0].Payload["limit"])
	assert.Equal(t, "acme", entities[0].Payload["project_code"])
}

// Acting on a project derives exactly one membership edge, regardless
// of how many grants the person accumulates.
func TestRaciDerivesMembership(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	access := fullAccess("member", "acme")

	for _, roleCode := range []string{"gm", "decision:pricing"} {
		_, err := svc.CreateRaci(ctx, access, ssot.RaciInput{
			WriteInput: writeInput("acme"), PersonName: "Bob", RoleCode: roleCode,
		})
		require.NoError(t, err)
	}

	people, err := svc.ListGraphEntities(ctx, access, store.EntityQuery{
		ProjectCode: "acme", EntityType: store.EntityPerson,
	})
	require.NoError(t, err)
	require.Len(t, people, 1)
	bobID := people[0].ID

	edges, err := svc.ListGraphEdges(ctx, access, store.EdgeQuery{
		RelType: store.RelMemberOf, FromID: bobID,
	})
	require.NoError(t, err)
	require.Len(t, edges, 1, "membership stays one edge per person/project")
	assert.Equal(t, store.RelMemberOf, edges[0].RelType)
	assert.Equal(t, "acme", edges[0].ProjectCode)
}

func TestCreateAIQuery_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	access := fullAccess("member", "acme")
	grantPricing(t, svc, access, "acme")

	_, err := svc.CreateAIQuery(ctx, access, ssot.AIQueryInput{
		WriteInput: ssot.WriteInput{ProjectCode: "acme"},
		QueryType:  "sql",
	})
	require.Error(t, err)
	assert.Equal(t, bberr.CodeQueryTypeInvalid, bberr.CodeOf(err))

	_, err = svc.CreateAIQuery(ctx, access, ssot.AIQueryInput{
		WriteInput: ssot.WriteInput{ProjectCode: "acme"},
		QueryType:  ssot.QueryEntities,
		EntityType: "secrets",
	})
	require.Error(t, err)
	assert.Equal(t, bberr.CodeEntityTypeInvalid, bberr.CodeOf(err))
}

func TestCreateAIQuery_UnknownProject(t *testing.T) {
	svc := newTestService(t)

	// AI queries never create projects as a side effect.
	_, err := svc.CreateAIQuery(context.Background(), fullAccess("member", "ghost"), ssot.AIQueryInput{
		WriteInput: ssot.WriteInput{ProjectCode: "ghost"},
		QueryType:  ssot.QueryEntities,
	})
	require.Error(t, err)
	assert.Equal(t, bberr.CodeProjectUnknown, bberr.CodeOf(err))
}

func TestCreateAIDecisionLog(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	access := fullAccess("member", "acme")
	grantPricing(t, svc, access, "acme")

	_, err := svc.CreateAIDecisionLog(ctx, access, ssot.AIDecisionLogInput{
		WriteInput: ssot.WriteInput{ProjectCode: "acme"},
	})
	require.Error(t, err)
	assert.Equal(t, bberr.CodeRequestInvalid, bberr.CodeOf(err))

	dec, err := svc.CreateDecision(ctx, access, ssot.DecisionInput{
		WriteInput: writeInput("acme"), OwnerPersonName: "Alice",
		Title: "Adopt tiered pricing", DecisionDomain: "pricing",
	})
	require.NoError(t, err)

	res, err := svc.CreateAIDecisionLog(ctx, access, ssot.AIDecisionLogInput{
		WriteInput:        ssot.WriteInput{ProjectCode: "acme"},
		Summary:           "rebalanced tier thresholds",
		DecisionType:      "tuning",
		RelatedDecisionID: dec.DecisionID,
	})
	require.NoError(t, err)
	assert.Contains(t, res.AIDecisionID, "aid_")

	edges, err := svc.ListGraphEdges(ctx, access, store.EdgeQuery{
		ProjectCode: "acme", RelType: store.RelReferences,
	})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, res.AIDecisionID, edges[0].FromID)
	assert.Equal(t, dec.DecisionID, edges[0].ToID)
}

func TestCreateArtifacts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	access := fullAccess("member", "acme")

	_, err := svc.CreateGlossaryTerm(ctx, access, ssot.GlossaryInput{
		WriteInput: writeInput("acme"), ActorPersonName: "Alice",
		Term: "ARR", Definition: "annual recurring revenue",
	})
	require.NoError(t, err)

	_, err = svc.CreateKPI(ctx, access, ssot.KPIInput{
		WriteInput: writeInput("acme"), OwnerPersonName: "Alice",
		Name: "ARR growth", Target: "20%", Period: "FY26",
	})
	require.NoError(t, err)

	_, err = svc.CreateInitiative(ctx, access, ssot.InitiativeInput{
		WriteInput: writeInput("acme"), OwnerPersonName: "Alice",
		Title: "Self-serve onboarding",
	})
	require.NoError(t, err)

	for _, et := range []string{store.EntityGlossaryTerm, store.EntityKPI, store.EntityInitiative} {
		entities, err := svc.ListGraphEntities(ctx, access, store.EntityQuery{ProjectCode: "acme", EntityType: et})
		require.NoError(t, err)
		assert.Len(t, entities, 1, et)
	}

	// KPI and initiative carry an owner edge; the glossary term does not.
	edges, err := svc.ListGraphEdges(ctx, access, store.EdgeQuery{ProjectCode: "acme", RelType: store.RelOwnedBy})
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	_, err = svc.CreateGlossaryTerm(ctx, access, ssot.GlossaryInput{WriteInput: writeInput("acme")})
	require.Error(t, err)
	assert.Equal(t, bberr.CodeRequestInvalid, bberr.CodeOf(err))
}
