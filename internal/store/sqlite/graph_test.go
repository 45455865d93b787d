// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainbase-dev/brainbase/internal/policy"
	"github.com/brainbase-dev/brainbase/internal/store"
	"github.com/brainbase-dev/brainbase/internal/store/sqlite"
	bberr "github.com/brainbase-dev/brainbase/pkg/errors"
)

func newTestStore(t *testing.T) *sqlite.GraphStore {
	t.Helper()
	g, err := sqlite.NewGraphStore(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
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

func TestEnsureProject(t *testing.T) {
	g := newTestStore(t)
	ctx := context.Background()

	var first, second string
	err := g.WithTx(ctx, func(tx *sqlite.Tx) error {
		var err error
		first, err = tx.EnsureProject(ctx, "acme", "Acme Corp")
		require.NoError(t, err)
		second, err = tx.EnsureProject(ctx, "acme", "Acme Corp")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, first, second, "repeated ensure converges on one row")

	// The project is mirrored as a graph entity.
	entities, err := g.FetchGraphEntities(ctx, fullAccess("member", "acme"), store.EntityQuery{
		ProjectCode: "acme", EntityType: store.EntityProject,
	})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, first, entities[0].ID)
	assert.Equal(t, "acme", entities[0].Payload["code"])
}

func TestEnsureProject_UnknownWithoutName(t *testing.T) {
	g := newTestStore(t)
	ctx := context.Background()

	err := g.WithTx(ctx, func(tx *sqlite.Tx) error {
		_, err := tx.EnsureProject(ctx, "ghost", "")
		return err
	})
	require.Error(t, err)
	assert.Equal(t, bberr.CodeProjectUnknown, bberr.CodeOf(err))
}

func TestEnsurePerson(t *testing.T) {
	g := newTestStore(t)
	ctx := context.Background()

	var first, second string
	err := g.WithTx(ctx, func(tx *sqlite.Tx) error {
		var err error
		first, err = tx.EnsurePerson(ctx, "", "Alice")
		require.NoError(t, err)
		second, err = tx.EnsurePerson(ctx, "", "Alice")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	err = g.WithTx(ctx, func(tx *sqlite.Tx) error {
		_, err := tx.EnsurePerson(ctx, "", "")
		return err
	})
	require.Error(t, err)
	assert.Equal(t, bberr.CodePersonIdentifierRequired, bberr.CodeOf(err))

	// An explicit id short-circuits the lookup.
	err = g.WithTx(ctx, func(tx *sqlite.Tx) error {
		id, err := tx.EnsurePerson(ctx, "per_known", "")
		assert.Equal(t, "per_known", id)
		return err
	})
	require.NoError(t, err)
}

func TestUpsertGraphEdge_Idempotent(t *testing.T) {
	g := newTestStore(t)
	ctx := context.Background()
	access := fullAccess("member", "acme")

	var projectID string
	err := g.WithTx(ctx, func(tx *sqlite.Tx) error {
		var err error
		projectID, err = tx.EnsureProject(ctx, "acme", "Acme")
		require.NoError(t, err)

		edge := sqlite.EdgeUpsert{
			FromID: "dec_1", ToID: projectID, RelType: store.RelBelongsToProject,
			ProjectID: projectID, Payload: store.Payload{"v": "one"},
			RoleMin: policy.RoleMember, Sensitivity: policy.SensitivityInternal,
		}
		require.NoError(t, tx.UpsertGraphEdge(ctx, edge))

		edge.Payload = store.Payload{"v": "two"}
		return tx.UpsertGraphEdge(ctx, edge)
	})
	require.NoError(t, err)

	edges, err := g.FetchGraphEdges(ctx, access, store.EdgeQuery{ProjectCode: "acme"})
	require.NoError(t, err)
	require.Len(t, edges, 1, "same (from,to,rel) triple stays one edge")
	assert.Equal(t, "two", edges[0].Payload["v"], "payload refreshed on re-upsert")
	assert.NotEmpty(t, edges[0].ID)
}

func TestFetchGraphEntities_AccessFiltering(t *testing.T) {
	g := newTestStore(t)
	ctx := context.Background()

	var projectID string
	err := g.WithTx(ctx, func(tx *sqlite.Tx) error {
		var err error
		projectID, err = tx.EnsureProject(ctx, "acme", "Acme")
		require.NoError(t, err)

		for _, e := range []sqlite.EntityUpsert{
			{ID: "dec_open", EntityType: store.EntityDecision, ProjectID: projectID,
				Payload: store.Payload{"title": "open"}, RoleMin: policy.RoleMember, Sensitivity: policy.SensitivityInternal},
			{ID: "dec_money", EntityType: store.EntityDecision, ProjectID: projectID,
				Payload: store.Payload{"title": "money"}, RoleMin: policy.RoleGM, Sensitivity: policy.SensitivityFinance},
		} {
			require.NoError(t, tx.UpsertGraphEntity(ctx, e))
		}
		return nil
	})
	require.NoError(t, err)

	// A member without finance clearance sees only the open row.
	member := policy.AccessContext{
		Role: "member", ProjectCodes: []string{"acme"},
		Clearance: []string{policy.SensitivityInternal},
	}
	entities, err := g.FetchGraphEntities(ctx, member, store.EntityQuery{ProjectCode: "acme", EntityType: store.EntityDecision})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "dec_open", entities[0].ID)

	// Finance clearance alone is not enough; the row's role_min is gm.
	clearedMember := policy.AccessContext{
		Role: "member", ProjectCodes: []string{"acme"},
		Clearance: []string{policy.SensitivityInternal, policy.SensitivityFinance},
	}
	entities, err = g.FetchGraphEntities(ctx, clearedMember, store.EntityQuery{ProjectCode: "acme", EntityType: store.EntityDecision})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "dec_open", entities[0].ID)

	// A cleared GM sees both.
	entities, err = g.FetchGraphEntities(ctx, fullAccess("gm", "acme"), store.EntityQuery{ProjectCode: "acme", EntityType: store.EntityDecision})
	require.NoError(t, err)
	assert.Len(t, entities, 2)

	// Scope to another project hides everything.
	entities, err = g.FetchGraphEntities(ctx, fullAccess("ceo", "other"), store.EntityQuery{EntityType: store.EntityDecision})
	require.NoError(t, err)
	assert.Empty(t, entities)

	// Empty scope or clearance yields nothing at all.
	entities, err = g.FetchGraphEntities(ctx, policy.AccessContext{Role: "ceo"}, store.EntityQuery{})
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestFetchGraphEntities_MemberOfVisibility(t *testing.T) {
	g := newTestStore(t)
	ctx := context.Background()

	err := g.WithTx(ctx, func(tx *sqlite.Tx) error {
		projectID, err := tx.EnsureProject(ctx, "acme", "Acme")
		require.NoError(t, err)
		bobID, err := tx.EnsurePerson(ctx, "", "Bob")
		require.NoError(t, err)
		_, err = tx.EnsurePerson(ctx, "", "Eve")
		require.NoError(t, err)

		// Bob is a member of acme; Eve belongs to nothing.
		return tx.UpsertGraphEdge(ctx, sqlite.EdgeUpsert{
			FromID: bobID, ToID: projectID, RelType: store.RelMemberOf,
			ProjectID: projectID, RoleMin: policy.RoleMember, Sensitivity: policy.SensitivityInternal,
		})
	})
	require.NoError(t, err)

	entities, err := g.FetchGraphEntities(ctx, fullAccess("member", "acme"), store.EntityQuery{
		ProjectCode: "acme", EntityType: store.EntityPerson,
	})
	require.NoError(t, err)
	require.Len(t, entities, 1, "global person nodes surface only through member_of")
	assert.Equal(t, "Bob", entities[0].Payload["name"])
}

func TestUpsertRaci_Converges(t *testing.T) {
	g := newTestStore(t)
	ctx := context.Background()

	var firstID, secondID string
	err := g.WithTx(ctx, func(tx *sqlite.Tx) error {
		projectID, err := tx.EnsureProject(ctx, "acme", "Acme")
		require.NoError(t, err)
		personID, err := tx.EnsurePerson(ctx, "", "Alice")
		require.NoError(t, err)

		grant := &store.RaciAssignment{
			ID: store.NewID(store.PrefixRaci), ProjectID: projectID, PersonID: personID,
			RoleCode: "decision:pricing", AuthorityScope: "pricing",
			SensitivityMin: policy.RoleMember, Sensitivity: policy.SensitivityInternal,
		}
		firstID, err = tx.UpsertRaci(ctx, grant)
		require.NoError(t, err)

		grant.ID = store.NewID(store.PrefixRaci)
		grant.AuthorityScope = "pricing and discounts"
		secondID, err = tx.UpsertRaci(ctx, grant)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, firstID, secondID, "regrant keeps the original id")
}

func TestHasDecisionAuthority(t *testing.T) {
	g := newTestStore(t)
	ctx := context.Background()

	err := g.WithTx(ctx, func(tx *sqlite.Tx) error {
		projectID, err := tx.EnsureProject(ctx, "acme", "Acme")
		require.NoError(t, err)
		aliceID, err := tx.EnsurePerson(ctx, "", "Alice")
		require.NoError(t, err)

		_, err = tx.UpsertRaci(ctx, &store.RaciAssignment{
			ID: store.NewID(store.PrefixRaci), ProjectID: projectID, PersonID: aliceID,
			RoleCode: "decision:pricing", SensitivityMin: policy.RoleMember,
			Sensitivity: policy.SensitivityInternal,
		})
		require.NoError(t, err)

		ok, err := tx.HasDecisionAuthority(ctx, projectID, aliceID, []string{"decision:pricing", policy.UniversalDecisionRole})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tx.HasDecisionAuthority(ctx, projectID, aliceID, []string{"decision:hiring", policy.UniversalDecisionRole})
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = tx.HasDecisionAuthority(ctx, projectID, aliceID, nil)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	g := newTestStore(t)
	ctx := context.Background()

	err := g.WithTx(ctx, func(tx *sqlite.Tx) error {
		_, err := tx.EnsureProject(ctx, "acme", "Acme")
		require.NoError(t, err)
		return bberr.New(bberr.CodeServerFailure, "boom")
	})
	require.Error(t, err)

	entities, err := g.FetchGraphEntities(ctx, fullAccess("ceo", "acme"), store.EntityQuery{ProjectCode: "acme"})
	require.NoError(t, err)
	assert.Empty(t, entities, "failed transaction leaves no rows behind")
}
