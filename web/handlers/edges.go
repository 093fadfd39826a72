package handlers

import (
	"fmt"
	"net/http"

	"github.com/KomuDhara/nocturne-memory/internal/graph"
	"github.com/KomuDhara/nocturne-memory/pkg/types"
)

// CreateDirectEdge handles POST /edges/direct. The edge attaches to both
// entities' CURRENT states; at most one direct edge exists per ordered pair.
func (h *Handlers) CreateDirectEdge(w http.ResponseWriter, r *http.Request) {
	var req CreateDirectEdgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	inheritable := true
	if req.Inheritable != nil {
		inheritable = *req.Inheritable
	}

	edge, err := h.store.CreateDirectEdge(r.Context(), req.FromEntityID, req.ToEntityID,
		req.Relation, req.Content, inheritable)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.broadcast("edge.direct.created", map[string]any{"edge_id": edge.EdgeID})
	respondJSON(w, http.StatusOK, edge)
}

// GetDirectEdge handles GET /edges/direct/{from_entity_id}/{to_entity_id}.
func (h *Handlers) GetDirectEdge(w http.ResponseWriter, r *http.Request) {
	fromID := r.PathValue("from_entity_id")
	toID := r.PathValue("to_entity_id")

	edge, err := h.store.GetDirectEdge(r.Context(), fromID, toID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if edge == nil {
		respondError(w, http.StatusNotFound,
			fmt.Sprintf("Direct edge not found between %s and %s", fromID, toID))
		return
	}
	respondJSON(w, http.StatusOK, edge)
}

// DeleteDirectEdge handles DELETE /edges/direct/{from_entity_id}/{to_entity_id}.
// By default dependent chapters block the delete with 409; ?force=true
// cascades the chapter halves.
func (h *Handlers) DeleteDirectEdge(w http.ResponseWriter, r *http.Request) {
	fromID := r.PathValue("from_entity_id")
	toID := r.PathValue("to_entity_id")
	force := parseBool(r.URL.Query().Get("force"), false)

	result, err := h.store.DeleteDirectEdge(r.Context(), fromID, toID, force)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.broadcast("edge.direct.deleted", map[string]any{
		"from_entity_id": fromID,
		"to_entity_id":   toID,
	})
	respondJSON(w, http.StatusOK, result)
}

// CreateRelayEdge handles POST /edges/relay.
func (h *Handlers) CreateRelayEdge(w http.ResponseWriter, r *http.Request) {
	var req CreateRelayEdgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	inheritable := true
	if req.Inheritable != nil {
		inheritable = *req.Inheritable
	}

	result, err := h.store.CreateRelayEdge(r.Context(), req.FromEntityID, req.ToEntityID,
		req.Relation, req.Content, inheritable, req.ParentDirectEdgeID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.broadcast("edge.relay.created", map[string]any{"edge_id": result.EdgeID})
	respondJSON(w, http.StatusOK, result)
}

// GetChapter handles GET /edges/relay/{viewer_id}/{target_id}/{chapter_name}.
// The relay entity id is deterministic, so the chapter is looked up by
// recomputing it from the path.
func (h *Handlers) GetChapter(w http.ResponseWriter, r *http.Request) {
	viewerID := r.PathValue("viewer_id")
	targetID := r.PathValue("target_id")
	chapterName := r.PathValue("chapter_name")

	relayEntityID := graph.RelayEntityID(viewerID, chapterName, targetID)
	edgeID := graph.EdgeID(viewerID, chapterName, targetID)

	info, err := h.store.EntityInfo(r.Context(), relayEntityID, graph.InfoOptions{Basic: true})
	if err != nil {
		if graph.IsNotFound(err) {
			respondError(w, http.StatusNotFound,
				fmt.Sprintf("Chapter '%s' not found between %s and %s", chapterName, viewerID, targetID))
			return
		}
		respondStoreError(w, err)
		return
	}

	state, err := h.store.StateInfo(r.Context(), info.Basic.ID)
	if err != nil {
		if graph.IsNotFound(err) {
			// The CURRENT pointer exists but the state lookup raced a
			// delete; fall back to the basic view with zero counts.
			state = &types.StateInfo{State: *info.Basic}
		} else {
			respondStoreError(w, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, GetChapterResponse{EdgeID: edgeID, State: state})
}

// DeleteRelayEdge handles DELETE /edges/relay/{edge_id}.
func (h *Handlers) DeleteRelayEdge(w http.ResponseWriter, r *http.Request) {
	edgeID := r.PathValue("edge_id")

	if err := h.store.DeleteRelayEdge(r.Context(), edgeID); err != nil {
		respondStoreError(w, err)
		return
	}

	h.broadcast("edge.relay.deleted", map[string]any{"edge_id": edgeID})
	respondJSON(w, http.StatusOK, DeleteRelayEdgeResponse{EdgeID: edgeID, Deleted: true})
}

// UpdateDirectEdge handles PUT /edges/direct/{viewer_id}/{target_id}. It is
// a thin wrapper over relationship evolution: the viewer gets a new version
// and the edge is rebuilt with the patched fields.
func (h *Handlers) UpdateDirectEdge(w http.ResponseWriter, r *http.Request) {
	viewerID := r.PathValue("viewer_id")
	targetID := r.PathValue("target_id")

	var req UpdateDirectEdgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := &types.DirectPatch{Content: &req.NewContent}
	if req.NewRelation != "" {
		patch.Relation = &req.NewRelation
	}

	result, err := h.store.EvolveRelationship(r.Context(), viewerID, targetID, graph.EvolveOptions{
		DirectPatch:     patch,
		TaskDescription: req.TaskDescription,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.broadcast("edge.direct.updated", map[string]any{
		"viewer_id": viewerID,
		"target_id": targetID,
	})
	respondJSON(w, http.StatusOK, UpdateDirectEdgeResponse{
		ViewerID:         viewerID,
		TargetID:         targetID,
		ViewerNewVersion: result.ViewerNewVersion,
		Message:          fmt.Sprintf("Direct edge updated. Viewer evolved to v%d.", result.ViewerNewVersion),
	})
}

// UpdateChapter handles PUT /edges/chapter/{viewer_id}/{target_id}/{chapter_name},
// another thin wrapper over evolution targeting a single chapter.
func (h *Handlers) UpdateChapter(w http.ResponseWriter, r *http.Request) {
	viewerID := r.PathValue("viewer_id")
	targetID := r.PathValue("target_id")
	chapterName := r.PathValue("chapter_name")

	var req UpdateChapterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.store.EvolveRelationship(r.Context(), viewerID, targetID, graph.EvolveOptions{
		ChapterUpdates: map[string]types.ChapterUpdate{
			chapterName: {Content: &req.NewContent},
		},
		TaskDescription: req.TaskDescription,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.broadcast("edge.chapter.updated", map[string]any{
		"viewer_id": viewerID,
		"target_id": targetID,
		"chapter":   chapterName,
	})
	respondJSON(w, http.StatusOK, UpdateChapterResponse{
		ViewerID:         viewerID,
		TargetID:         targetID,
		ChapterName:      chapterName,
		ViewerNewVersion: result.ViewerNewVersion,
		Message:          fmt.Sprintf("Chapter '%s' updated. Viewer evolved to v%d.", chapterName, result.ViewerNewVersion),
	})
}
