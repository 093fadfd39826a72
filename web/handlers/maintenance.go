package handlers

import (
	"net/http"
)

// FindOrphanStates handles GET /nodes/maintenance/orphan_states.
func (h *Handlers) FindOrphanStates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("mode")
	if mode == "" {
		mode = "in_zero"
	}
	limit := parseInt(q.Get("limit"), 100)

	states, err := h.store.FindOrphanStates(r.Context(), mode, limit)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, OrphanStatesResponse{
		Mode:   mode,
		Count:  len(states),
		States: states,
	})
}

// DeleteStatesBatch handles POST /nodes/maintenance/delete_states. Each
// state is deleted independently; one failure does not abort the rest.
func (h *Handlers) DeleteStatesBatch(w http.ResponseWriter, r *http.Request) {
	var req DeleteStatesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.StateIDs) == 0 {
		respondError(w, http.StatusBadRequest, "state_ids cannot be empty")
		return
	}

	deleted := []string{}
	failed := []DeleteStateFailure{}
	for _, stateID := range req.StateIDs {
		if _, err := h.store.DeleteState(r.Context(), stateID); err != nil {
			failed = append(failed, DeleteStateFailure{StateID: stateID, Error: err.Error()})
			continue
		}
		deleted = append(deleted, stateID)
	}

	if len(deleted) > 0 {
		h.broadcast("maintenance.states_deleted", map[string]any{"count": len(deleted)})
	}
	respondJSON(w, http.StatusOK, DeleteStatesResponse{
		DeletedCount: len(deleted),
		FailedCount:  len(failed),
		Deleted:      deleted,
		Failed:       failed,
	})
}

// FindOrphanEntities handles GET /nodes/maintenance/orphan_entities.
func (h *Handlers) FindOrphanEntities(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 100)

	entities, err := h.store.FindOrphanEntities(r.Context(), limit)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, OrphanEntitiesResponse{
		Count:    len(entities),
		Entities: entities,
	})
}

// DeleteEntitiesBatch handles POST /nodes/maintenance/delete_entities with
// the same per-id isolation as the state batch.
func (h *Handlers) DeleteEntitiesBatch(w http.ResponseWriter, r *http.Request) {
	var req DeleteEntitiesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.EntityIDs) == 0 {
		respondError(w, http.StatusBadRequest, "entity_ids cannot be empty")
		return
	}

	deleted := []string{}
	failed := []DeleteEntityFailure{}
	for _, entityID := range req.EntityIDs {
		if _, err := h.store.DeleteEntity(r.Context(), entityID); err != nil {
			failed = append(failed, DeleteEntityFailure{EntityID: entityID, Error: err.Error()})
			continue
		}
		deleted = append(deleted, entityID)
	}

	if len(deleted) > 0 {
		h.broadcast("maintenance.entities_deleted", map[string]any{"count": len(deleted)})
	}
	respondJSON(w, http.StatusOK, DeleteEntitiesResponse{
		DeletedCount: len(deleted),
		FailedCount:  len(failed),
		Deleted:      deleted,
		Failed:       failed,
	})
}
