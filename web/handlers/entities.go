package handlers

import (
	"net/http"

	"github.com/KomuDhara/nocturne-memory/internal/graph"
	"github.com/KomuDhara/nocturne-memory/pkg/types"
)

// CreateEntity handles POST /nodes/entities.
func (h *Handlers) CreateEntity(w http.ResponseWriter, r *http.Request) {
	var req CreateEntityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.store.CreateEntity(r.Context(), req.EntityID, types.EntityKind(req.NodeType),
		req.Name, req.Content, req.TaskDescription)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.broadcast("entity.created", map[string]any{
		"entity_id": result.EntityID,
		"state_id":  result.StateID,
	})
	respondJSON(w, http.StatusOK, result)
}

// UpdateEntity handles POST /nodes/entities/{entity_id}/update. Every update
// appends a new version; history is never modified in place.
func (h *Handlers) UpdateEntity(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("entity_id")

	var req UpdateEntityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.store.UpdateEntity(r.Context(), entityID, req.NewContent,
		req.NewName, req.NewInheritable, req.TaskDescription)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.broadcast("entity.updated", map[string]any{
		"entity_id":   result.EntityID,
		"new_version": result.NewVersion,
	})
	respondJSON(w, http.StatusOK, result)
}

// GetEntityInfo handles GET /nodes/entities/{entity_id}. The include_*
// query parameters select which sections are loaded.
func (h *Handlers) GetEntityInfo(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("entity_id")
	q := r.URL.Query()

	opts := graph.InfoOptions{
		Basic:    parseBool(q.Get("include_basic"), true),
		History:  parseBool(q.Get("include_history"), false),
		Edges:    parseBool(q.Get("include_edges"), false),
		Children: parseBool(q.Get("include_children"), false),
	}

	info, err := h.store.EntityInfo(r.Context(), entityID, opts)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// DeleteEntity handles DELETE /nodes/entities/{entity_id}.
func (h *Handlers) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("entity_id")

	result, err := h.store.DeleteEntity(r.Context(), entityID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.broadcast("entity.deleted", map[string]any{"entity_id": entityID})
	respondJSON(w, http.StatusOK, result)
}

// GetStateInfo handles GET /nodes/states/{state_id}.
func (h *Handlers) GetStateInfo(w http.ResponseWriter, r *http.Request) {
	stateID := r.PathValue("state_id")

	info, err := h.store.StateInfo(r.Context(), stateID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// DeleteState handles DELETE /nodes/states/{state_id}.
func (h *Handlers) DeleteState(w http.ResponseWriter, r *http.Request) {
	stateID := r.PathValue("state_id")

	result, err := h.store.DeleteState(r.Context(), stateID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.broadcast("state.deleted", map[string]any{
		"state_id":  stateID,
		"entity_id": result.EntityID,
	})
	respondJSON(w, http.StatusOK, result)
}

// LinkParent handles POST /nodes/parent-child/link.
func (h *Handlers) LinkParent(w http.ResponseWriter, r *http.Request) {
	var req LinkParentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.store.LinkParent(r.Context(), req.ChildID, req.ParentID); err != nil {
		respondStoreError(w, err)
		return
	}

	h.broadcast("hierarchy.linked", map[string]any{
		"child_id":  req.ChildID,
		"parent_id": req.ParentID,
	})
	respondJSON(w, http.StatusOK, LinkParentResponse{
		ChildID:  req.ChildID,
		ParentID: req.ParentID,
		Linked:   true,
	})
}

// UnlinkParent handles POST /nodes/parent-child/unlink.
func (h *Handlers) UnlinkParent(w http.ResponseWriter, r *http.Request) {
	var req LinkParentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.store.UnlinkParent(r.Context(), req.ChildID, req.ParentID); err != nil {
		respondStoreError(w, err)
		return
	}

	h.broadcast("hierarchy.unlinked", map[string]any{
		"child_id":  req.ChildID,
		"parent_id": req.ParentID,
	})
	respondJSON(w, http.StatusOK, LinkParentResponse{
		ChildID:  req.ChildID,
		ParentID: req.ParentID,
		Linked:   false,
	})
}
