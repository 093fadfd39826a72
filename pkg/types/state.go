package types

// State is one immutable content snapshot of an entity at a given version.
// Versions for an entity start at 1 and increase by exactly 1 per update;
// gaps appear only when intermediate versions are deleted.
type State struct {
	ID              string `json:"state_id"`
	EntityID        string `json:"entity_id"`
	Version         int64  `json:"version"`
	Name            string `json:"name"`
	Content         string `json:"content"`
	Inheritable     *bool  `json:"inheritable,omitempty"`
	CreatedAt       string `json:"created_at"`
	TaskDescription string `json:"task_description,omitempty"`
}

// StateInfo is a state plus its edge statistics. Counts exclude the
// version-management edges (CURRENT, PREVIOUS).
type StateInfo struct {
	State
	InCount  int64 `json:"in_count"`
	OutCount int64 `json:"out_count"`
}

// StateVersion is one entry of an entity's version history.
type StateVersion struct {
	StateID         string `json:"state_id"`
	Version         int64  `json:"version"`
	CreatedAt       string `json:"created_at"`
	TaskDescription string `json:"task_description,omitempty"`
}

// EntityInfo is the aggregate view of an entity: its current state plus
// optional history, outgoing edges, and children. Sections that were not
// requested are nil.
type EntityInfo struct {
	EntityID string         `json:"entity_id"`
	Basic    *State         `json:"basic,omitempty"`
	History  []StateVersion `json:"history,omitempty"`
	Edges    []OutboundEdge `json:"edges,omitempty"`
	Children []ChildNode    `json:"children,omitempty"`
}

// OutboundEdge summarizes one outgoing direct edge of an entity, with the
// number of chapters (relay edges) attached to it.
type OutboundEdge struct {
	TargetEntityID string `json:"target_entity_id"`
	TargetName     string `json:"target_name"`
	Relation       string `json:"relation"`
	ContentSnippet string `json:"content_snippet"`
	Inheritable    bool   `json:"inheritable"`
	ViewerVersion  int64  `json:"viewer_version"`
	TargetVersion  int64  `json:"target_version"`
	RelayCount     int64  `json:"relay_count"`
}

// ChildNode summarizes one entity that BELONGS_TO a parent.
type ChildNode struct {
	EntityID       string `json:"entity_id"`
	StateID        string `json:"state_id"`
	Name           string `json:"name"`
	Kind           string `json:"node_type"`
	Content        string `json:"content"`
	ContentSnippet string `json:"content_snippet"`
	Version        int64  `json:"version"`
	CreatedAt      string `json:"created_at"`
}

// CreateEntityResult is returned by entity creation.
type CreateEntityResult struct {
	EntityID string `json:"entity_id"`
	StateID  string `json:"state_id"`
	Version  int64  `json:"version"`
}

// UpdateEntityResult is returned by a versioned update.
type UpdateEntityResult struct {
	EntityID   string `json:"entity_id"`
	OldVersion int64  `json:"old_version"`
	NewVersion int64  `json:"new_version"`
	StateID    string `json:"state_id"`
}

// DeleteStateResult is returned by a state deletion. NewCurrentVersion is
// set only when the deleted state was CURRENT and a predecessor took over.
type DeleteStateResult struct {
	DeletedStateID    string `json:"deleted_state_id"`
	EntityID          string `json:"entity_id"`
	NewCurrentVersion *int64 `json:"new_current_version,omitempty"`
}

// DeleteEntityResult is returned by an entity deletion. DeletedEdges counts
// the outgoing hierarchy edges removed alongside the entity.
type DeleteEntityResult struct {
	DeletedEntityID string `json:"deleted_entity_id"`
	DeletedStates   int64  `json:"deleted_states"`
	DeletedEdges    int64  `json:"deleted_edges"`
}

// OrphanState is one candidate surfaced by the orphan-state scan.
// IsCurrent is informational: a current state is usually kept unless the
// whole entity is being retired.
type OrphanState struct {
	StateID        string `json:"state_id"`
	EntityID       string `json:"entity_id"`
	Version        int64  `json:"version"`
	Name           string `json:"name"`
	ContentSnippet string `json:"content_snippet"`
	CreatedAt      string `json:"created_at"`
	IsCurrent      bool   `json:"is_current"`
	InCount        int64  `json:"in_count"`
	OutCount       int64  `json:"out_count"`
	EntityKind     string `json:"entity_type"`
}

// OrphanEntity is one candidate surfaced by the orphan-entity scan: an
// entity with no states and no blocking edges.
type OrphanEntity struct {
	EntityID  string `json:"entity_id"`
	Name      string `json:"name"`
	Kind      string `json:"node_type"`
	CreatedAt string `json:"created_at"`
}
