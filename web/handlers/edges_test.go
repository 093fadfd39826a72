package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KomuDhara/nocturne-memory/internal/graph"
	"github.com/KomuDhara/nocturne-memory/pkg/types"
)

func TestCreateDirectEdgeDefaultsInheritable(t *testing.T) {
	var gotInheritable bool
	store := &mockStore{
		createDirectEdgeFn: func(ctx context.Context, from, to, relation, content string, inheritable bool) (*types.DirectEdge, error) {
			gotInheritable = inheritable
			return &types.DirectEdge{
				EdgeID:       graph.DirectEdgeID(from, to),
				FromEntityID: from,
				ToEntityID:   to,
				Relation:     relation,
				Content:      content,
				Inheritable:  inheritable,
			}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "POST", "/edges/direct",
		`{"from_entity_id":"alice","to_entity_id":"bob","content":"Trusts him."}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotInheritable)

	var edge types.DirectEdge
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edge))
	assert.Equal(t, "alice__DIRECT__bob", edge.EdgeID)
}

func TestCreateDirectEdgeExplicitInheritableFalse(t *testing.T) {
	var gotInheritable bool
	store := &mockStore{
		createDirectEdgeFn: func(ctx context.Context, from, to, relation, content string, inheritable bool) (*types.DirectEdge, error) {
			gotInheritable = inheritable
			return &types.DirectEdge{EdgeID: graph.DirectEdgeID(from, to)}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "POST", "/edges/direct",
		`{"from_entity_id":"alice","to_entity_id":"bob","content":"x","inheritable":false}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gotInheritable)
}

func TestGetDirectEdgeNotFound(t *testing.T) {
	store := &mockStore{
		getDirectEdgeFn: func(ctx context.Context, from, to string) (*types.DirectEdge, error) {
			return nil, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "GET", "/edges/direct/alice/bob", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Direct edge not found between alice and bob", body.Detail)
}

func TestDeleteDirectEdgeForceFlag(t *testing.T) {
	var gotForce bool
	store := &mockStore{
		deleteDirectEdgeFn: func(ctx context.Context, from, to string, force bool) (*graph.DeleteDirectEdgeResult, error) {
			gotForce = force
			return &graph.DeleteDirectEdgeResult{FromEntityID: from, ToEntityID: to, DeletedRelayEdges: 2}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "DELETE", "/edges/direct/alice/bob?force=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotForce)

	rec = doRequest(h, "DELETE", "/edges/direct/alice/bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gotForce)
}

func TestDeleteDirectEdgeBlockedByChapters(t *testing.T) {
	store := &mockStore{
		deleteDirectEdgeFn: func(ctx context.Context, from, to string, force bool) (*graph.DeleteDirectEdgeResult, error) {
			return nil, &graph.ConflictError{Reason: "direct edge has 2 dependent chapters"}
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "DELETE", "/edges/direct/alice/bob", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateRelayEdge(t *testing.T) {
	store := &mockStore{
		createRelayEdgeFn: func(ctx context.Context, from, to, relation, content string, inheritable bool, parentID string) (*types.RelayEdgeResult, error) {
			assert.Equal(t, "first_meeting", relation)
			assert.Equal(t, graph.DirectEdgeID("alice", "bob"), parentID)
			return &types.RelayEdgeResult{
				EdgeID:      graph.EdgeID("alice", relation, "bob"),
				RelayNodeID: graph.RelayEntityID("alice", relation, "bob"),
				Relation:    relation,
				Inheritable: inheritable,
			}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "POST", "/edges/relay",
		`{"from_entity_id":"alice","to_entity_id":"bob","relation":"first_meeting","content":"They met at the archive.","parent_direct_edge_id":"alice__DIRECT__bob"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var result types.RelayEdgeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "alice__first_meeting__bob", result.EdgeID)
	assert.Equal(t, "relay__alice__first_meeting__bob", result.RelayNodeID)
}

func TestGetChapterRecomputesRelayID(t *testing.T) {
	var gotEntityID string
	store := &mockStore{
		entityInfoFn: func(ctx context.Context, entityID string, opts graph.InfoOptions) (*types.EntityInfo, error) {
			gotEntityID = entityID
			return &types.EntityInfo{
				EntityID: entityID,
				Basic: &types.State{
					ID:       entityID + "_v1",
					EntityID: entityID,
					Version:  1,
					Name:     "first_meeting",
					Content:  "They met at the archive.",
				},
			}, nil
		},
		stateInfoFn: func(ctx context.Context, id string) (*types.StateInfo, error) {
			return &types.StateInfo{
				State:    types.State{ID: id, Version: 1, Name: "first_meeting"},
				InCount:  2,
				OutCount: 0,
			}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "GET", "/edges/relay/alice/bob/first_meeting", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "relay__alice__first_meeting__bob", gotEntityID)

	var resp GetChapterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice__first_meeting__bob", resp.EdgeID)
	require.NotNil(t, resp.State)
	assert.Equal(t, int64(2), resp.State.InCount)
}

func TestGetChapterMissingMapsTo404(t *testing.T) {
	store := &mockStore{
		entityInfoFn: func(ctx context.Context, entityID string, opts graph.InfoOptions) (*types.EntityInfo, error) {
			return nil, &graph.NotFoundError{Reason: "Entity not found"}
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "GET", "/edges/relay/alice/bob/never_happened", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Detail, "never_happened")
}

func TestDeleteRelayEdge(t *testing.T) {
	store := &mockStore{
		deleteRelayEdgeFn: func(ctx context.Context, edgeID string) error {
			assert.Equal(t, "alice__first_meeting__bob", edgeID)
			return nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "DELETE", "/edges/relay/alice__first_meeting__bob", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DeleteRelayEdgeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Deleted)
}

func TestUpdateDirectEdgeWrapsEvolution(t *testing.T) {
	var gotOpts graph.EvolveOptions
	store := &mockStore{
		evolveRelationshipFn: func(ctx context.Context, viewer, target string, opts graph.EvolveOptions) (*types.EvolveResult, error) {
			gotOpts = opts
			return &types.EvolveResult{
				ViewerEntityID:   viewer,
				TargetEntityID:   target,
				ViewerNewVersion: 4,
			}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "PUT", "/edges/direct/alice/bob",
		`{"new_content":"Distrusts him now.","new_relation":"rival"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotOpts.DirectPatch)
	require.NotNil(t, gotOpts.DirectPatch.Content)
	assert.Equal(t, "Distrusts him now.", *gotOpts.DirectPatch.Content)
	require.NotNil(t, gotOpts.DirectPatch.Relation)
	assert.Equal(t, "rival", *gotOpts.DirectPatch.Relation)

	var resp UpdateDirectEdgeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(4), resp.ViewerNewVersion)
	assert.Equal(t, "Direct edge updated. Viewer evolved to v4.", resp.Message)
}

func TestUpdateChapterWrapsEvolution(t *testing.T) {
	var gotOpts graph.EvolveOptions
	store := &mockStore{
		evolveRelationshipFn: func(ctx context.Context, viewer, target string, opts graph.EvolveOptions) (*types.EvolveResult, error) {
			gotOpts = opts
			return &types.EvolveResult{ViewerNewVersion: 2, UpdatedChapters: []string{"first_meeting"}}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "PUT", "/edges/chapter/alice/bob/first_meeting",
		`{"new_content":"They met at the burned archive."}`)

	require.Equal(t, http.StatusOK, rec.Code)
	update, ok := gotOpts.ChapterUpdates["first_meeting"]
	require.True(t, ok)
	require.NotNil(t, update.Content)
	assert.Equal(t, "They met at the burned archive.", *update.Content)

	var resp UpdateChapterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Chapter 'first_meeting' updated. Viewer evolved to v2.", resp.Message)
}

func TestEvolveRelationship(t *testing.T) {
	store := &mockStore{
		evolveRelationshipFn: func(ctx context.Context, viewer, target string, opts graph.EvolveOptions) (*types.EvolveResult, error) {
			assert.Equal(t, "alice", viewer)
			assert.Equal(t, "bob", target)
			assert.Len(t, opts.NewChapters, 1)
			return &types.EvolveResult{
				ViewerEntityID:   viewer,
				TargetEntityID:   target,
				ViewerNewVersion: 3,
				CreatedChapters:  []string{"betrayal"},
				MigratedChapters: []string{"first_meeting"},
			}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "POST", "/relationships/alice/bob/evolve",
		`{"direct_patch":{"content":"Everything changed."},"new_chapters":{"betrayal":{"content":"He sold the ledger."}}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var result types.EvolveResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []string{"betrayal"}, result.CreatedChapters)
	assert.Equal(t, []string{"first_meeting"}, result.MigratedChapters)
}

func TestEvolveWithoutRelationshipMapsTo404(t *testing.T) {
	store := &mockStore{
		evolveRelationshipFn: func(ctx context.Context, viewer, target string, opts graph.EvolveOptions) (*types.EvolveResult, error) {
			return nil, &graph.NotFoundError{Reason: "No relationship exists from alice to bob"}
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "POST", "/relationships/alice/bob/evolve", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchDefaultsAndCapsLimit(t *testing.T) {
	var gotLimit int
	var gotKinds []types.EntityKind
	store := &mockStore{
		searchNodesFn: func(ctx context.Context, query string, kinds []types.EntityKind, limit int) ([]types.SearchResult, error) {
			gotLimit = limit
			gotKinds = kinds
			return []types.SearchResult{{ResourceID: "alice", Name: "Alice", Kind: "character", Score: 1.0}}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "POST", "/exploration/search", `{"query":"archive"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, gotLimit)
	assert.Empty(t, gotKinds)

	rec = doRequest(h, "POST", "/exploration/search",
		`{"query":"archive","limit":5000,"node_types":["character","location"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, gotLimit)
	assert.Equal(t, []types.EntityKind{types.KindCharacter, types.KindLocation}, gotKinds)
}

func TestGetCatalog(t *testing.T) {
	store := &mockStore{
		catalogFn: func(ctx context.Context) ([]types.CatalogEntry, error) {
			return []types.CatalogEntry{{
				EntityID: "alice",
				Name:     "Alice",
				Kind:     "character",
				Edges: []types.CatalogEdge{
					{TargetEntityID: "bob", Relation: "DIRECT", ChapterCount: 2},
				},
			}}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "GET", "/catalog", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var entries []types.CatalogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].Edges[0].ChapterCount)
}

func TestGetRelationshipStructure(t *testing.T) {
	store := &mockStore{
		relationshipStructureFn: func(ctx context.Context, viewer, target string) (*types.RelationshipStructure, error) {
			return &types.RelationshipStructure{
				Direct: &types.DirectEdge{EdgeID: graph.DirectEdgeID(viewer, target)},
				Relays: []types.RelayInfo{},
			}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "GET", "/catalog/relation/alice/bob", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var structure types.RelationshipStructure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &structure))
	require.NotNil(t, structure.Direct)
	assert.Equal(t, "alice__DIRECT__bob", structure.Direct.EdgeID)
}
