package handlers

import (
	"fmt"
	"net/http"

	"github.com/KomuDhara/nocturne-memory/internal/graph"
	"github.com/KomuDhara/nocturne-memory/internal/journal"
	"github.com/KomuDhara/nocturne-memory/internal/textdiff"
)

// The review endpoints let a caller inspect what an agent session changed
// and roll individual resources back to their pre-session snapshot. Diff and
// rollback work on entity-backed resources (entities and relay entities);
// direct-edge snapshots are record-only since edges are rebuilt, not
// versioned in place.

func (h *Handlers) requireJournal(w http.ResponseWriter) bool {
	if h.journal == nil {
		respondError(w, http.StatusServiceUnavailable, "snapshot journal is not configured")
		return false
	}
	return true
}

// ListSessions handles GET /journal/sessions.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	if !h.requireJournal(w) {
		return
	}
	sessions, err := h.journal.Sessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}

// CreateSnapshot handles POST /journal/snapshots.
func (h *Handlers) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	if !h.requireJournal(w) {
		return
	}

	var req CreateSnapshotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	switch req.ResourceType {
	case journal.ResourceEntity, journal.ResourceDirectEdge, journal.ResourceRelayEdge:
	default:
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid resource_type %q", req.ResourceType))
		return
	}

	created, err := h.journal.CreateSnapshot(r.Context(), req.SessionID, req.ResourceID,
		req.ResourceType, req.OperationType, req.Data)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, CreateSnapshotResponse{Created: created})
}

// ListSnapshots handles GET /journal/sessions/{session_id}/snapshots.
func (h *Handlers) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if !h.requireJournal(w) {
		return
	}
	snapshots, err := h.journal.Snapshots(r.Context(), r.PathValue("session_id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, snapshots)
}

// DiffResource handles GET /journal/sessions/{session_id}/diff/{resource_id}:
// the snapshot content against the resource's current content.
func (h *Handlers) DiffResource(w http.ResponseWriter, r *http.Request) {
	if !h.requireJournal(w) {
		return
	}
	sessionID := r.PathValue("session_id")
	resourceID := r.PathValue("resource_id")

	snap, err := h.journal.Get(r.Context(), sessionID, resourceID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snap == nil {
		respondError(w, http.StatusNotFound,
			fmt.Sprintf("no snapshot of %s in session %s", resourceID, sessionID))
		return
	}

	current, err := h.currentContent(r, snap)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	diff := textdiff.Diff(snap.Data.Content, current)
	respondJSON(w, http.StatusOK, ResourceDiffResponse{
		ResourceID:      snap.ResourceID,
		ResourceType:    snap.ResourceType,
		SnapshotTime:    snap.CreatedAt,
		SnapshotContent: snap.Data.Content,
		CurrentContent:  current,
		DiffHTML:        diff.HTML,
		DiffUnified:     diff.Unified,
		DiffSummary:     diff.Summary,
		HasChanges:      snap.Data.Content != current,
	})
}

// RollbackResource handles POST /journal/sessions/{session_id}/rollback/{resource_id}.
// Rollback appends a new version carrying the snapshot content; it never
// rewrites history.
func (h *Handlers) RollbackResource(w http.ResponseWriter, r *http.Request) {
	if !h.requireJournal(w) {
		return
	}
	sessionID := r.PathValue("session_id")
	resourceID := r.PathValue("resource_id")

	var req RollbackRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}
	taskDescription := req.TaskDescription
	if taskDescription == "" {
		taskDescription = "Rollback to snapshot"
	}

	snap, err := h.journal.Get(r.Context(), sessionID, resourceID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snap == nil {
		respondError(w, http.StatusNotFound,
			fmt.Sprintf("no snapshot of %s in session %s", resourceID, sessionID))
		return
	}
	if snap.ResourceType == journal.ResourceDirectEdge {
		respondError(w, http.StatusBadRequest,
			"direct edge snapshots cannot be rolled back, re-create the edge instead")
		return
	}

	entityID := snap.Data.EntityID
	if entityID == "" {
		entityID = snap.ResourceID
	}

	var name *string
	if snap.Data.Name != "" {
		name = &snap.Data.Name
	}

	result, err := h.store.UpdateEntity(r.Context(), entityID, snap.Data.Content,
		name, snap.Data.Inheritable, taskDescription)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.broadcast("journal.rolled_back", map[string]any{
		"session_id":  sessionID,
		"resource_id": resourceID,
	})
	respondJSON(w, http.StatusOK, RollbackResponse{
		ResourceID:   resourceID,
		ResourceType: snap.ResourceType,
		Success:      true,
		Message:      fmt.Sprintf("Rolled back to snapshot from %s", snap.CreatedAt),
		NewVersion:   &result.NewVersion,
	})
}

// ClearSession handles DELETE /journal/sessions/{session_id}.
func (h *Handlers) ClearSession(w http.ResponseWriter, r *http.Request) {
	if !h.requireJournal(w) {
		return
	}
	sessionID := r.PathValue("session_id")

	removed, err := h.journal.ClearSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ClearSessionResponse{
		SessionID: sessionID,
		Removed:   removed,
		Message:   fmt.Sprintf("Session %s cleared (%d snapshots removed)", sessionID, removed),
	})
}

// currentContent resolves the live content of a snapshotted resource.
func (h *Handlers) currentContent(r *http.Request, snap *journal.Snapshot) (string, error) {
	if snap.ResourceType == journal.ResourceDirectEdge {
		// Direct-edge snapshots carry no entity; compare against the
		// stored content only.
		return snap.Data.Content, nil
	}

	entityID := snap.Data.EntityID
	if entityID == "" {
		entityID = snap.ResourceID
	}
	info, err := h.store.EntityInfo(r.Context(), entityID, graph.InfoOptions{Basic: true})
	if err != nil {
		return "", err
	}
	return info.Basic.Content, nil
}
