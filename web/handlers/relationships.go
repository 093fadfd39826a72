package handlers

import (
	"net/http"

	"github.com/KomuDhara/nocturne-memory/internal/graph"
	"github.com/KomuDhara/nocturne-memory/pkg/types"
)

// EvolveRelationship handles POST /relationships/{viewer_id}/{target_id}/evolve.
func (h *Handlers) EvolveRelationship(w http.ResponseWriter, r *http.Request) {
	viewerID := r.PathValue("viewer_id")
	targetID := r.PathValue("target_id")

	var req EvolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.store.EvolveRelationship(r.Context(), viewerID, targetID, graph.EvolveOptions{
		DirectPatch:     req.DirectPatch,
		ChapterUpdates:  req.ChapterUpdates,
		NewChapters:     req.NewChapters,
		TaskDescription: req.TaskDescription,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.broadcast("relationship.evolved", map[string]any{
		"viewer_id": viewerID,
		"target_id": targetID,
	})
	respondJSON(w, http.StatusOK, result)
}

// GetCatalog handles GET /catalog.
func (h *Handlers) GetCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.store.Catalog(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, catalog)
}

// GetRelationshipStructure handles GET /catalog/relation/{viewer_id}/{target_id}.
func (h *Handlers) GetRelationshipStructure(w http.ResponseWriter, r *http.Request) {
	viewerID := r.PathValue("viewer_id")
	targetID := r.PathValue("target_id")

	structure, err := h.store.RelationshipStructure(r.Context(), viewerID, targetID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, structure)
}

// Search handles POST /exploration/search.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	kinds := make([]types.EntityKind, 0, len(req.NodeTypes))
	for _, nt := range req.NodeTypes {
		kinds = append(kinds, types.EntityKind(nt))
	}

	results, err := h.store.SearchNodes(r.Context(), req.Query, kinds, limit)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SearchResponse{Results: results})
}
