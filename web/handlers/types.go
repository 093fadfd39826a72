package handlers

import (
	"context"

	"github.com/KomuDhara/nocturne-memory/internal/graph"
	"github.com/KomuDhara/nocturne-memory/internal/journal"
	"github.com/KomuDhara/nocturne-memory/pkg/types"
)

// GraphStore is the store surface the handlers need. *graph.Store satisfies
// it; tests substitute a mock.
type GraphStore interface {
	CreateEntity(ctx context.Context, entityID string, kind types.EntityKind, name, content, taskDescription string) (*types.CreateEntityResult, error)
	UpdateEntity(ctx context.Context, entityID, newContent string, newName *string, newInheritable *bool, taskDescription string) (*types.UpdateEntityResult, error)
	EntityInfo(ctx context.Context, entityID string, opts graph.InfoOptions) (*types.EntityInfo, error)
	StateInfo(ctx context.Context, id string) (*types.StateInfo, error)
	DeleteState(ctx context.Context, id string) (*types.DeleteStateResult, error)
	DeleteEntity(ctx context.Context, entityID string) (*types.DeleteEntityResult, error)

	CreateDirectEdge(ctx context.Context, fromEntityID, toEntityID, relation, content string, inheritable bool) (*types.DirectEdge, error)
	GetDirectEdge(ctx context.Context, fromEntityID, toEntityID string) (*types.DirectEdge, error)
	DeleteDirectEdge(ctx context.Context, fromEntityID, toEntityID string, force bool) (*graph.DeleteDirectEdgeResult, error)
	CreateRelayEdge(ctx context.Context, fromEntityID, toEntityID, relation, content string, inheritable bool, parentDirectEdgeID string) (*types.RelayEdgeResult, error)
	DeleteRelayEdge(ctx context.Context, edgeID string) error

	RelationshipStructure(ctx context.Context, viewerEntityID, targetEntityID string) (*types.RelationshipStructure, error)
	EvolveRelationship(ctx context.Context, viewerEntityID, targetEntityID string, opts graph.EvolveOptions) (*types.EvolveResult, error)

	LinkParent(ctx context.Context, childEntityID, parentEntityID string) error
	UnlinkParent(ctx context.Context, childEntityID, parentEntityID string) error

	FindOrphanStates(ctx context.Context, mode string, limit int) ([]types.OrphanState, error)
	FindOrphanEntities(ctx context.Context, limit int) ([]types.OrphanEntity, error)
	Catalog(ctx context.Context) ([]types.CatalogEntry, error)
	SearchNodes(ctx context.Context, query string, kinds []types.EntityKind, limit int) ([]types.SearchResult, error)
}

// SnapshotJournal is the journal surface the review handlers need.
// *journal.Journal satisfies it.
type SnapshotJournal interface {
	CreateSnapshot(ctx context.Context, sessionID, resourceID, resourceType, operationType string, data journal.SnapshotData) (bool, error)
	Sessions(ctx context.Context) ([]journal.SessionInfo, error)
	Snapshots(ctx context.Context, sessionID string) ([]journal.Snapshot, error)
	Get(ctx context.Context, sessionID, resourceID string) (*journal.Snapshot, error)
	ClearSession(ctx context.Context, sessionID string) (int64, error)
}

// ErrorResponse is the JSON error body. Detail carries the reason verbatim.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ---- node requests/responses ----

type CreateEntityRequest struct {
	EntityID        string `json:"entity_id"`
	NodeType        string `json:"node_type"`
	Name            string `json:"name"`
	Content         string `json:"content"`
	TaskDescription string `json:"task_description,omitempty"`
}

type UpdateEntityRequest struct {
	NewContent      string  `json:"new_content"`
	NewName         *string `json:"new_name,omitempty"`
	NewInheritable  *bool   `json:"new_inheritable,omitempty"`
	TaskDescription string  `json:"task_description,omitempty"`
}

type LinkParentRequest struct {
	ChildID  string `json:"child_id"`
	ParentID string `json:"parent_id"`
}

type LinkParentResponse struct {
	ChildID  string `json:"child_id"`
	ParentID string `json:"parent_id"`
	Linked   bool   `json:"linked"`
}

type DeleteStatesRequest struct {
	StateIDs []string `json:"state_ids"`
}

type DeleteStateFailure struct {
	StateID string `json:"state_id"`
	Error   string `json:"error"`
}

type DeleteStatesResponse struct {
	DeletedCount int                  `json:"deleted_count"`
	FailedCount  int                  `json:"failed_count"`
	Deleted      []string             `json:"deleted"`
	Failed       []DeleteStateFailure `json:"failed"`
}

type DeleteEntitiesRequest struct {
	EntityIDs []string `json:"entity_ids"`
}

type DeleteEntityFailure struct {
	EntityID string `json:"entity_id"`
	Error    string `json:"error"`
}

type DeleteEntitiesResponse struct {
	DeletedCount int                   `json:"deleted_count"`
	FailedCount  int                   `json:"failed_count"`
	Deleted      []string              `json:"deleted"`
	Failed       []DeleteEntityFailure `json:"failed"`
}

type OrphanStatesResponse struct {
	Mode   string              `json:"mode"`
	Count  int                 `json:"count"`
	States []types.OrphanState `json:"states"`
}

type OrphanEntitiesResponse struct {
	Count    int                  `json:"count"`
	Entities []types.OrphanEntity `json:"entities"`
}

// ---- edge requests/responses ----

type CreateDirectEdgeRequest struct {
	FromEntityID string `json:"from_entity_id"`
	ToEntityID   string `json:"to_entity_id"`
	Relation     string `json:"relation,omitempty"`
	Content      string `json:"content"`
	Inheritable  *bool  `json:"inheritable,omitempty"`
}

type CreateRelayEdgeRequest struct {
	FromEntityID       string `json:"from_entity_id"`
	ToEntityID         string `json:"to_entity_id"`
	Relation           string `json:"relation"`
	Content            string `json:"content"`
	Inheritable        *bool  `json:"inheritable,omitempty"`
	ParentDirectEdgeID string `json:"parent_direct_edge_id"`
}

type GetChapterResponse struct {
	EdgeID string           `json:"edge_id"`
	State  *types.StateInfo `json:"state"`
}

type DeleteRelayEdgeResponse struct {
	EdgeID  string `json:"edge_id"`
	Deleted bool   `json:"deleted"`
}

type UpdateDirectEdgeRequest struct {
	NewContent      string `json:"new_content"`
	NewRelation     string `json:"new_relation,omitempty"`
	TaskDescription string `json:"task_description,omitempty"`
}

type UpdateDirectEdgeResponse struct {
	ViewerID         string `json:"viewer_id"`
	TargetID         string `json:"target_id"`
	ViewerNewVersion int64  `json:"viewer_new_version"`
	Message          string `json:"message"`
}

type UpdateChapterRequest struct {
	NewContent      string `json:"new_content"`
	TaskDescription string `json:"task_description,omitempty"`
}

type UpdateChapterResponse struct {
	ViewerID         string `json:"viewer_id"`
	TargetID         string `json:"target_id"`
	ChapterName      string `json:"chapter_name"`
	ViewerNewVersion int64  `json:"viewer_new_version"`
	Message          string `json:"message"`
}

// ---- relationship evolution ----

type EvolveRequest struct {
	DirectPatch     *types.DirectPatch             `json:"direct_patch,omitempty"`
	ChapterUpdates  map[string]types.ChapterUpdate `json:"chapter_updates,omitempty"`
	NewChapters     map[string]types.NewChapter    `json:"new_chapters,omitempty"`
	TaskDescription string                         `json:"task_description,omitempty"`
}

// ---- exploration ----

type SearchRequest struct {
	Query     string   `json:"query"`
	NodeTypes []string `json:"node_types,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

type SearchResponse struct {
	Results []types.SearchResult `json:"results"`
}

// ---- journal/review ----

type CreateSnapshotRequest struct {
	SessionID     string               `json:"session_id"`
	ResourceID    string               `json:"resource_id"`
	ResourceType  string               `json:"resource_type"`
	OperationType string               `json:"operation_type,omitempty"`
	Data          journal.SnapshotData `json:"data"`
}

type CreateSnapshotResponse struct {
	Created bool `json:"created"`
}

type ResourceDiffResponse struct {
	ResourceID      string `json:"resource_id"`
	ResourceType    string `json:"resource_type"`
	SnapshotTime    string `json:"snapshot_time"`
	SnapshotContent string `json:"snapshot_content"`
	CurrentContent  string `json:"current_content"`
	DiffHTML        string `json:"diff_html"`
	DiffUnified     string `json:"diff_unified"`
	DiffSummary     string `json:"diff_summary"`
	HasChanges      bool   `json:"has_changes"`
}

type RollbackRequest struct {
	TaskDescription string `json:"task_description,omitempty"`
}

type RollbackResponse struct {
	ResourceID   string `json:"resource_id"`
	ResourceType string `json:"resource_type"`
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	NewVersion   *int64 `json:"new_version,omitempty"`
}

type ClearSessionResponse struct {
	SessionID string `json:"session_id"`
	Removed   int64  `json:"removed"`
	Message   string `json:"message"`
}
