// Package handlers provides the HTTP handlers and middleware for the
// Nocturne memory graph API.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/KomuDhara/nocturne-memory/internal/graph"
)

// Handlers carries the dependencies of the HTTP layer.
type Handlers struct {
	store   GraphStore
	journal SnapshotJournal
	hub     *WebSocketHub
}

// NewHandlers creates the handler set. journal and hub may be nil; the
// corresponding routes then respond 503 / are not registered.
func NewHandlers(store GraphStore, jrnl SnapshotJournal, hub *WebSocketHub) *Handlers {
	return &Handlers{store: store, journal: jrnl, hub: hub}
}

// RegisterRoutes attaches every route to mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /nodes/entities", h.CreateEntity)
	mux.HandleFunc("POST /nodes/entities/{entity_id}/update", h.UpdateEntity)
	mux.HandleFunc("GET /nodes/entities/{entity_id}", h.GetEntityInfo)
	mux.HandleFunc("DELETE /nodes/entities/{entity_id}", h.DeleteEntity)
	mux.HandleFunc("GET /nodes/states/{state_id}", h.GetStateInfo)
	mux.HandleFunc("DELETE /nodes/states/{state_id}", h.DeleteState)

	mux.HandleFunc("GET /nodes/maintenance/orphan_states", h.FindOrphanStates)
	mux.HandleFunc("POST /nodes/maintenance/delete_states", h.DeleteStatesBatch)
	mux.HandleFunc("GET /nodes/maintenance/orphan_entities", h.FindOrphanEntities)
	mux.HandleFunc("POST /nodes/maintenance/delete_entities", h.DeleteEntitiesBatch)

	mux.HandleFunc("POST /nodes/parent-child/link", h.LinkParent)
	mux.HandleFunc("POST /nodes/parent-child/unlink", h.UnlinkParent)

	mux.HandleFunc("POST /edges/direct", h.CreateDirectEdge)
	mux.HandleFunc("GET /edges/direct/{from_entity_id}/{to_entity_id}", h.GetDirectEdge)
	mux.HandleFunc("DELETE /edges/direct/{from_entity_id}/{to_entity_id}", h.DeleteDirectEdge)
	mux.HandleFunc("PUT /edges/direct/{viewer_id}/{target_id}", h.UpdateDirectEdge)
	mux.HandleFunc("POST /edges/relay", h.CreateRelayEdge)
	mux.HandleFunc("GET /edges/relay/{viewer_id}/{target_id}/{chapter_name}", h.GetChapter)
	mux.HandleFunc("DELETE /edges/relay/{edge_id}", h.DeleteRelayEdge)
	mux.HandleFunc("PUT /edges/chapter/{viewer_id}/{target_id}/{chapter_name}", h.UpdateChapter)

	mux.HandleFunc("POST /relationships/{viewer_id}/{target_id}/evolve", h.EvolveRelationship)
	mux.HandleFunc("GET /catalog", h.GetCatalog)
	mux.HandleFunc("GET /catalog/relation/{viewer_id}/{target_id}", h.GetRelationshipStructure)
	mux.HandleFunc("POST /exploration/search", h.Search)

	mux.HandleFunc("GET /journal/sessions", h.ListSessions)
	mux.HandleFunc("POST /journal/snapshots", h.CreateSnapshot)
	mux.HandleFunc("GET /journal/sessions/{session_id}/snapshots", h.ListSnapshots)
	mux.HandleFunc("GET /journal/sessions/{session_id}/diff/{resource_id}", h.DiffResource)
	mux.HandleFunc("POST /journal/sessions/{session_id}/rollback/{resource_id}", h.RollbackResource)
	mux.HandleFunc("DELETE /journal/sessions/{session_id}", h.ClearSession)

	if h.hub != nil {
		mux.Handle("GET /ws", h.hub)
	}
}

// Root handles GET / with basic service metadata.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Nocturne Memory Graph API",
		"version": "0.1.0",
	})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// broadcast publishes a mutation event to websocket subscribers, if a hub is
// attached.
func (h *Handlers) broadcast(eventType string, payload map[string]any) {
	if h.hub == nil {
		return
	}
	event := map[string]any{"type": eventType}
	for k, v := range payload {
		event[k] = v
	}
	h.hub.Broadcast(event)
}

// respondJSON writes data as a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent, nothing more to do.
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes an error body with the reason passed through verbatim.
func respondError(w http.ResponseWriter, statusCode int, detail string) {
	respondJSON(w, statusCode, ErrorResponse{Detail: detail})
}

// respondStoreError maps the store's error taxonomy onto HTTP status codes:
// validation 400, not found 404, conflict 409, anything else 500.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case graph.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case graph.IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	case graph.IsConflict(err):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON decodes the request body into dst, responding 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// parseInt parses s as an int, returning defaultValue on empty or invalid
// input.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return v
}

// parseBool parses s as a bool, returning defaultValue on empty or invalid
// input.
func parseBool(s string, defaultValue bool) bool {
	if s == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return defaultValue
	}
	return v
}
