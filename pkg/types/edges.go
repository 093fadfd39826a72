package types

// DirectEdge is a 1-hop relationship record between two entities, anchored
// to the states that were current when it was created. At most one direct
// edge exists per ordered (from, to) entity pair.
type DirectEdge struct {
	EdgeID       string `json:"edge_id"`
	FromStateID  string `json:"from_state_id"`
	ToStateID    string `json:"to_state_id"`
	FromEntityID string `json:"from_entity_id"`
	ToEntityID   string `json:"to_entity_id"`
	Relation     string `json:"relation"`
	Content      string `json:"content"`
	Inheritable  bool   `json:"inheritable"`
	CreatedAt    string `json:"created_at"`
}

// RelayEdgeResult is returned by relay-edge creation: the shared edge id of
// the two halves plus the relay entity that carries the chapter content.
type RelayEdgeResult struct {
	EdgeID      string `json:"edge_id"`
	FromStateID string `json:"from_state_id"`
	ToStateID   string `json:"to_state_id"`
	RelayNodeID string `json:"relay_node_id"`
	Relation    string `json:"relation"`
	Inheritable bool   `json:"inheritable"`
	CreatedAt   string `json:"created_at"`
}

// RelayInfo describes one chapter hanging off a direct edge: the shared
// edge id plus the relay state holding the chapter content.
type RelayInfo struct {
	EdgeID      string `json:"edge_id"`
	Relation    string `json:"relation"`
	Inheritable bool   `json:"inheritable"`
	State       State  `json:"state"`
}

// StateRef identifies a state inside a relationship structure.
type StateRef struct {
	ID       string `json:"id"`
	Version  int64  `json:"version"`
	Name     string `json:"name"`
	EntityID string `json:"entity_id"`
}

// RelationshipStructure is the latest relationship between two entities:
// the direct edge (nil when no relationship exists) and its chapters.
type RelationshipStructure struct {
	ViewerState *StateRef   `json:"viewer_state,omitempty"`
	TargetState *StateRef   `json:"target_state,omitempty"`
	Direct      *DirectEdge `json:"direct,omitempty"`
	Relays      []RelayInfo `json:"relays"`
}

// DirectPatch overlays new values onto an existing direct edge during
// evolution. Nil fields carry the current value forward.
type DirectPatch struct {
	Content     *string `json:"content,omitempty"`
	Relation    *string `json:"relation,omitempty"`
	Inheritable *bool   `json:"inheritable,omitempty"`
}

// ChapterUpdate patches an existing chapter during evolution. Nil fields
// leave the chapter's current value in place.
type ChapterUpdate struct {
	Content     *string `json:"content,omitempty"`
	Inheritable *bool   `json:"inheritable,omitempty"`
}

// NewChapter describes a chapter to create during evolution. Inheritable
// defaults to true when nil (subject to the parent edge's own flag).
type NewChapter struct {
	Content     string `json:"content"`
	Inheritable *bool  `json:"inheritable,omitempty"`
}

// EvolveResult reports what an evolution did: the viewer's new version and
// anchor state, the new direct edge, and the chapters that were created,
// content-updated, and migrated.
type EvolveResult struct {
	ViewerEntityID   string   `json:"viewer_entity_id"`
	TargetEntityID   string   `json:"target_entity_id"`
	ViewerNewVersion int64    `json:"viewer_new_version"`
	ViewerNewStateID string   `json:"viewer_new_state_id"`
	DirectEdgeID     string   `json:"direct_edge_id"`
	CreatedChapters  []string `json:"created_chapters"`
	UpdatedChapters  []string `json:"updated_chapters"`
	MigratedChapters []string `json:"migrated_chapters"`
}

// CatalogEdge is one outgoing direct edge in a catalog entry.
type CatalogEdge struct {
	TargetEntityID string `json:"target_entity_id"`
	Relation       string `json:"relation"`
	TargetName     string `json:"target_name"`
	EdgeID         string `json:"edge_id"`
	ChapterCount   int64  `json:"chapter_count"`
}

// CatalogEntry is one visible entity in the whole-graph catalog with its
// outgoing direct edges, deduplicated by target.
type CatalogEntry struct {
	EntityID string        `json:"entity_id"`
	Name     string        `json:"name"`
	Kind     string        `json:"node_type"`
	Edges    []CatalogEdge `json:"edges"`
}

// SearchResult is one match from the substring search over current states
// and direct edges.
type SearchResult struct {
	ResourceID   string  `json:"resource_id"`
	Name         string  `json:"name"`
	Kind         string  `json:"node_type"`
	MatchSnippet string  `json:"match_snippet,omitempty"`
	Score        float64 `json:"score"`
}
