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

func TestCreateEntity(t *testing.T) {
	store := &mockStore{
		createEntityFn: func(ctx context.Context, entityID string, kind types.EntityKind, name, content, task string) (*types.CreateEntityResult, error) {
			assert.Equal(t, "alice", entityID)
			assert.Equal(t, types.KindCharacter, kind)
			assert.Equal(t, "Alice", name)
			return &types.CreateEntityResult{EntityID: "alice", StateID: "alice_v1", Version: 1}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "POST", "/nodes/entities",
		`{"entity_id":"alice","node_type":"character","name":"Alice","content":"A wandering scholar."}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var result types.CreateEntityResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "alice_v1", result.StateID)
	assert.Equal(t, int64(1), result.Version)
}

func TestCreateEntityValidationMapsTo400(t *testing.T) {
	store := &mockStore{
		createEntityFn: func(ctx context.Context, entityID string, kind types.EntityKind, name, content, task string) (*types.CreateEntityResult, error) {
			return nil, &graph.ValidationError{Reason: "entity_id cannot contain '__'"}
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "POST", "/nodes/entities",
		`{"entity_id":"bad__id","node_type":"character","name":"x","content":"y"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "entity_id cannot contain '__'", body.Detail)
}

func TestCreateEntityRejectsMalformedJSON(t *testing.T) {
	h := NewHandlers(&mockStore{}, nil, nil)
	rec := doRequest(h, "POST", "/nodes/entities", `{"entity_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateEntity(t *testing.T) {
	var gotName *string
	store := &mockStore{
		updateEntityFn: func(ctx context.Context, entityID, content string, name *string, inheritable *bool, task string) (*types.UpdateEntityResult, error) {
			assert.Equal(t, "alice", entityID)
			assert.Equal(t, "She moved to the capital.", content)
			gotName = name
			return &types.UpdateEntityResult{EntityID: "alice", OldVersion: 1, NewVersion: 2, StateID: "alice_v2"}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "POST", "/nodes/entities/alice/update",
		`{"new_content":"She moved to the capital.","new_name":"Alice of the Capital"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotName)
	assert.Equal(t, "Alice of the Capital", *gotName)

	var result types.UpdateEntityResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, int64(2), result.NewVersion)
}

func TestUpdateEntityNotFoundMapsTo404(t *testing.T) {
	store := &mockStore{
		updateEntityFn: func(ctx context.Context, entityID, content string, name *string, inheritable *bool, task string) (*types.UpdateEntityResult, error) {
			return nil, &graph.NotFoundError{Reason: "Entity 'ghost' not found"}
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "POST", "/nodes/entities/ghost/update", `{"new_content":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetEntityInfoDefaultsToBasic(t *testing.T) {
	var gotOpts graph.InfoOptions
	store := &mockStore{
		entityInfoFn: func(ctx context.Context, entityID string, opts graph.InfoOptions) (*types.EntityInfo, error) {
			gotOpts = opts
			return &types.EntityInfo{
				EntityID: entityID,
				Basic:    &types.State{ID: "alice_v3", EntityID: entityID, Version: 3, Name: "Alice"},
			}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "GET", "/nodes/entities/alice", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotOpts.Basic)
	assert.False(t, gotOpts.History)
	assert.False(t, gotOpts.Edges)
	assert.False(t, gotOpts.Children)
}

func TestGetEntityInfoQueryFlags(t *testing.T) {
	var gotOpts graph.InfoOptions
	store := &mockStore{
		entityInfoFn: func(ctx context.Context, entityID string, opts graph.InfoOptions) (*types.EntityInfo, error) {
			gotOpts = opts
			return &types.EntityInfo{EntityID: entityID}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "GET",
		"/nodes/entities/alice?include_basic=false&include_history=true&include_edges=true&include_children=true", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gotOpts.Basic)
	assert.True(t, gotOpts.History)
	assert.True(t, gotOpts.Edges)
	assert.True(t, gotOpts.Children)
}

func TestDeleteEntityConflictMapsTo409(t *testing.T) {
	store := &mockStore{
		deleteEntityFn: func(ctx context.Context, entityID string) (*types.DeleteEntityResult, error) {
			return nil, &graph.ConflictError{Reason: "Entity 'alice' still has 3 states"}
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "DELETE", "/nodes/entities/alice", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteState(t *testing.T) {
	newVersion := int64(2)
	store := &mockStore{
		deleteStateFn: func(ctx context.Context, id string) (*types.DeleteStateResult, error) {
			assert.Equal(t, "alice_v3", id)
			return &types.DeleteStateResult{
				DeletedStateID:    id,
				EntityID:          "alice",
				NewCurrentVersion: &newVersion,
			}, nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "DELETE", "/nodes/states/alice_v3", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var result types.DeleteStateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.NewCurrentVersion)
	assert.Equal(t, int64(2), *result.NewCurrentVersion)
}

func TestLinkParent(t *testing.T) {
	store := &mockStore{
		linkParentFn: func(ctx context.Context, child, parent string) error {
			assert.Equal(t, "alice", child)
			assert.Equal(t, "scholars_guild", parent)
			return nil
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "POST", "/nodes/parent-child/link",
		`{"child_id":"alice","parent_id":"scholars_guild"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp LinkParentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Linked)
}

func TestLinkParentSelfLinkMapsTo400(t *testing.T) {
	store := &mockStore{
		linkParentFn: func(ctx context.Context, child, parent string) error {
			return &graph.ValidationError{Reason: "an entity cannot be its own parent"}
		},
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "POST", "/nodes/parent-child/link",
		`{"child_id":"alice","parent_id":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnlinkParent(t *testing.T) {
	store := &mockStore{
		unlinkParentFn: func(ctx context.Context, child, parent string) error { return nil },
	}
	h := NewHandlers(store, nil, nil)

	rec := doRequest(h, "POST", "/nodes/parent-child/unlink",
		`{"child_id":"alice","parent_id":"scholars_guild"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp LinkParentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Linked)
}

func TestRootAndHealth(t *testing.T) {
	h := NewHandlers(&mockStore{}, nil, nil)

	rec := doRequest(h, "GET", "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(h, "GET", "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}
