package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/KomuDhara/nocturne-memory/internal/graph"
	"github.com/KomuDhara/nocturne-memory/pkg/types"
)

// mockStore implements GraphStore with overridable functions. Unset
// functions panic so tests fail loudly on unexpected calls.
type mockStore struct {
	createEntityFn          func(ctx context.Context, entityID string, kind types.EntityKind, name, content, task string) (*types.CreateEntityResult, error)
	updateEntityFn          func(ctx context.Context, entityID, content string, name *string, inheritable *bool, task string) (*types.UpdateEntityResult, error)
	entityInfoFn            func(ctx context.Context, entityID string, opts graph.InfoOptions) (*types.EntityInfo, error)
	stateInfoFn             func(ctx context.Context, id string) (*types.StateInfo, error)
	deleteStateFn           func(ctx context.Context, id string) (*types.DeleteStateResult, error)
	deleteEntityFn          func(ctx context.Context, entityID string) (*types.DeleteEntityResult, error)
	createDirectEdgeFn      func(ctx context.Context, from, to, relation, content string, inheritable bool) (*types.DirectEdge, error)
	getDirectEdgeFn         func(ctx context.Context, from, to string) (*types.DirectEdge, error)
	deleteDirectEdgeFn      func(ctx context.Context, from, to string, force bool) (*graph.DeleteDirectEdgeResult, error)
	createRelayEdgeFn       func(ctx context.Context, from, to, relation, content string, inheritable bool, parentID string) (*types.RelayEdgeResult, error)
	deleteRelayEdgeFn       func(ctx context.Context, edgeID string) error
	relationshipStructureFn func(ctx context.Context, viewer, target string) (*types.RelationshipStructure, error)
	evolveRelationshipFn    func(ctx context.Context, viewer, target string, opts graph.EvolveOptions) (*types.EvolveResult, error)
	linkParentFn            func(ctx context.Context, child, parent string) error
	unlinkParentFn          func(ctx context.Context, child, parent string) error
	findOrphanStatesFn      func(ctx context.Context, mode string, limit int) ([]types.OrphanState, error)
	findOrphanEntitiesFn    func(ctx context.Context, limit int) ([]types.OrphanEntity, error)
	catalogFn               func(ctx context.Context) ([]types.CatalogEntry, error)
	searchNodesFn           func(ctx context.Context, query string, kinds []types.EntityKind, limit int) ([]types.SearchResult, error)
}

func (m *mockStore) CreateEntity(ctx context.Context, entityID string, kind types.EntityKind, name, content, task string) (*types.CreateEntityResult, error) {
	return m.createEntityFn(ctx, entityID, kind, name, content, task)
}

func (m *mockStore) UpdateEntity(ctx context.Context, entityID, content string, name *string, inheritable *bool, task string) (*types.UpdateEntityResult, error) {
	return m.updateEntityFn(ctx, entityID, content, name, inheritable, task)
}

func (m *mockStore) EntityInfo(ctx context.Context, entityID string, opts graph.InfoOptions) (*types.EntityInfo, error) {
	return m.entityInfoFn(ctx, entityID, opts)
}

func (m *mockStore) StateInfo(ctx context.Context, id string) (*types.StateInfo, error) {
	return m.stateInfoFn(ctx, id)
}

func (m *mockStore) DeleteState(ctx context.Context, id string) (*types.DeleteStateResult, error) {
	return m.deleteStateFn(ctx, id)
}

func (m *mockStore) DeleteEntity(ctx context.Context, entityID string) (*types.DeleteEntityResult, error) {
	return m.deleteEntityFn(ctx, entityID)
}

func (m *mockStore) CreateDirectEdge(ctx context.Context, from, to, relation, content string, inheritable bool) (*types.DirectEdge, error) {
	return m.createDirectEdgeFn(ctx, from, to, relation, content, inheritable)
}

func (m *mockStore) GetDirectEdge(ctx context.Context, from, to string) (*types.DirectEdge, error) {
	return m.getDirectEdgeFn(ctx, from, to)
}

func (m *mockStore) DeleteDirectEdge(ctx context.Context, from, to string, force bool) (*graph.DeleteDirectEdgeResult, error) {
	return m.deleteDirectEdgeFn(ctx, from, to, force)
}

func (m *mockStore) CreateRelayEdge(ctx context.Context, from, to, relation, content string, inheritable bool, parentID string) (*types.RelayEdgeResult, error) {
	return m.createRelayEdgeFn(ctx, from, to, relation, content, inheritable, parentID)
}

func (m *mockStore) DeleteRelayEdge(ctx context.Context, edgeID string) error {
	return m.deleteRelayEdgeFn(ctx, edgeID)
}

func (m *mockStore) RelationshipStructure(ctx context.Context, viewer, target string) (*types.RelationshipStructure, error) {
	return m.relationshipStructureFn(ctx, viewer, target)
}

func (m *mockStore) EvolveRelationship(ctx context.Context, viewer, target string, opts graph.EvolveOptions) (*types.EvolveResult, error) {
	return m.evolveRelationshipFn(ctx, viewer, target, opts)
}

func (m *mockStore) LinkParent(ctx context.Context, child, parent string) error {
	return m.linkParentFn(ctx, child, parent)
}

func (m *mockStore) UnlinkParent(ctx context.Context, child, parent string) error {
	return m.unlinkParentFn(ctx, child, parent)
}

func (m *mockStore) FindOrphanStates(ctx context.Context, mode string, limit int) ([]types.OrphanState, error) {
	return m.findOrphanStatesFn(ctx, mode, limit)
}

func (m *mockStore) FindOrphanEntities(ctx context.Context, limit int) ([]types.OrphanEntity, error) {
	return m.findOrphanEntitiesFn(ctx, limit)
}

func (m *mockStore) Catalog(ctx context.Context) ([]types.CatalogEntry, error) {
	return m.catalogFn(ctx)
}

func (m *mockStore) SearchNodes(ctx context.Context, query string, kinds []types.EntityKind, limit int) ([]types.SearchResult, error) {
	return m.searchNodesFn(ctx, query, kinds, limit)
}

// doRequest routes a request through a fresh mux with the handler set
// registered and returns the recorder.
func doRequest(h *Handlers, method, path, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}
