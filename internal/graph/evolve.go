package graph

import (
	"context"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/KomuDhara/nocturne-memory/pkg/types"
)

// RelationshipStructure returns the latest relationship between two
// entities: the newest direct edge between their state sets (relationships
// may lag on older versions under lazy migration, so the viewer-version
// ordering picks the live one) and the chapters attached to it.
func (s *Store) RelationshipStructure(ctx context.Context, viewerEntityID, targetEntityID string) (*types.RelationshipStructure, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (v:State)-[d:DIRECT_EDGE]->(t:State)
			WHERE v.entity_id = $viewer_entity_id
			  AND t.entity_id = $target_entity_id
			WITH v, d, t
			ORDER BY v.version DESC
			LIMIT 1
			OPTIONAL MATCH (v)-[r1:RELAY_EDGE]->(relay:State)-[r2:RELAY_EDGE]->(t)
			WHERE r1.edge_id = r2.edge_id
			  AND r1.parent_direct_edge_id = d.edge_id
			WITH v, d, t,
			     collect(
			         CASE WHEN relay IS NOT NULL THEN {
			             edge_id: r1.edge_id,
			             state_id: relay.id,
			             entity_id: relay.entity_id,
			             version: relay.version,
			             name: relay.name,
			             content: relay.content,
			             inheritable: relay.inheritable,
			             created_at: relay.created_at
			         } ELSE NULL END
			     ) AS relays
			RETURN v.id AS viewer_state_id, v.version AS viewer_version,
			       v.name AS viewer_name, v.entity_id AS viewer_entity_id,
			       t.id AS target_state_id, t.version AS target_version,
			       t.name AS target_name, t.entity_id AS target_entity_id,
			       d.edge_id AS edge_id, d.from_entity_id AS from_entity_id,
			       d.to_entity_id AS to_entity_id, d.relation AS relation,
			       d.content AS content, d.inheritable AS inheritable,
			       d.created_at AS created_at,
			       relays`, map[string]any{
			"viewer_entity_id": viewerEntityID,
			"target_entity_id": targetEntityID,
		})
		if err != nil {
			return nil, err
		}
		record, err := one(ctx, res)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return &types.RelationshipStructure{Relays: []types.RelayInfo{}}, nil
		}

		structure := &types.RelationshipStructure{
			ViewerState: &types.StateRef{
				ID:       recordString(record, "viewer_state_id"),
				Version:  recordInt(record, "viewer_version"),
				Name:     recordString(record, "viewer_name"),
				EntityID: recordString(record, "viewer_entity_id"),
			},
			TargetState: &types.StateRef{
				ID:       recordString(record, "target_state_id"),
				Version:  recordInt(record, "target_version"),
				Name:     recordString(record, "target_name"),
				EntityID: recordString(record, "target_entity_id"),
			},
			Direct: &types.DirectEdge{
				EdgeID:       recordString(record, "edge_id"),
				FromStateID:  recordString(record, "viewer_state_id"),
				ToStateID:    recordString(record, "target_state_id"),
				FromEntityID: recordString(record, "from_entity_id"),
				ToEntityID:   recordString(record, "to_entity_id"),
				Relation:     recordString(record, "relation"),
				Content:      recordString(record, "content"),
				Inheritable:  recordBool(record, "inheritable"),
				CreatedAt:    recordString(record, "created_at"),
			},
			Relays: []types.RelayInfo{},
		}

		rawRelays, _ := record.Get("relays")
		if items, ok := rawRelays.([]any); ok {
			for _, item := range items {
				props, ok := item.(map[string]any)
				if !ok || props == nil {
					continue
				}
				relay := types.RelayInfo{
					EdgeID:   mapString(props, "edge_id"),
					Relation: mapString(props, "name"),
					State: types.State{
						ID:        mapString(props, "state_id"),
						EntityID:  mapString(props, "entity_id"),
						Version:   mapInt(props, "version"),
						Name:      mapString(props, "name"),
						Content:   mapString(props, "content"),
						CreatedAt: mapString(props, "created_at"),
					},
				}
				if b, ok := props["inheritable"].(bool); ok {
					relay.Inheritable = b
					relay.State.Inheritable = &b
				}
				structure.Relays = append(structure.Relays, relay)
			}
		}

		return structure, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.RelationshipStructure), nil
}

func mapString(props map[string]any, key string) string {
	str, _ := props[key].(string)
	return str
}

func mapInt(props map[string]any, key string) int64 {
	n, _ := props[key].(int64)
	return n
}

// EvolveOptions parameterizes a relationship evolution. Nil/empty fields
// carry everything forward unchanged.
type EvolveOptions struct {
	DirectPatch     *types.DirectPatch
	ChapterUpdates  map[string]types.ChapterUpdate
	NewChapters     map[string]types.NewChapter
	TaskDescription string
}

// EvolveRelationship advances the relationship from viewer to target to the
// viewer's newest form: it creates a fresh viewer version as the new anchor,
// rebuilds the direct edge between the new viewer state and the target's
// CURRENT state with the patch overlaid, creates any new chapters, and
// updates/migrates every surviving chapter onto the new anchors.
//
// This is a sequence of independently committing transactions, not one
// atomic operation. A crash or conflicting write mid-sequence leaves a
// partially evolved relationship with no compensating rollback; the orphan
// maintenance scans exist to detect and repair such leftovers. Callers are
// expected not to interleave edits to the same relationship.
func (s *Store) EvolveRelationship(ctx context.Context, viewerEntityID, targetEntityID string, opts EvolveOptions) (*types.EvolveResult, error) {
	structure, err := s.RelationshipStructure(ctx, viewerEntityID, targetEntityID)
	if err != nil {
		return nil, err
	}
	if structure.Direct == nil {
		return nil, notFoundf("no relationship found from %q to %q, create the direct edge first", viewerEntityID, targetEntityID)
	}

	// Overlay the patch onto the current direct-edge fields.
	finalContent := structure.Direct.Content
	finalRelation := structure.Direct.Relation
	finalInheritable := structure.Direct.Inheritable
	if opts.DirectPatch != nil {
		if opts.DirectPatch.Content != nil {
			finalContent = *opts.DirectPatch.Content
		}
		if opts.DirectPatch.Relation != nil {
			finalRelation = *opts.DirectPatch.Relation
		}
		if opts.DirectPatch.Inheritable != nil {
			finalInheritable = *opts.DirectPatch.Inheritable
		}
	}

	viewerInfo, err := s.EntityInfo(ctx, viewerEntityID, InfoOptions{Basic: true})
	if err != nil {
		if IsNotFound(err) {
			return nil, notFoundf("viewer entity %q not found", viewerEntityID)
		}
		return nil, err
	}
	if _, err := s.EntityInfo(ctx, targetEntityID, InfoOptions{Basic: true}); err != nil {
		if IsNotFound(err) {
			return nil, notFoundf("target entity %q not found", targetEntityID)
		}
		return nil, err
	}

	taskDescription := opts.TaskDescription
	if taskDescription == "" {
		taskDescription = "Relationship evolution"
	}

	// A fresh version marker even when the content is identical: the new
	// state is the anchor everything below re-attaches to.
	viewerUpdate, err := s.UpdateEntity(ctx, viewerEntityID, viewerInfo.Basic.Content, nil, nil, taskDescription)
	if err != nil {
		return nil, err
	}

	// The old edge and its relay halves must go before the same
	// deterministic id can be recreated. Chapter states survive and are
	// re-attached below.
	if _, err := s.DeleteDirectEdge(ctx, viewerEntityID, targetEntityID, true); err != nil {
		return nil, err
	}

	newDirect, err := s.CreateDirectEdge(ctx, viewerEntityID, targetEntityID, finalRelation, finalContent, finalInheritable)
	if err != nil {
		return nil, err
	}

	result := &types.EvolveResult{
		ViewerEntityID:   viewerEntityID,
		TargetEntityID:   targetEntityID,
		ViewerNewVersion: viewerUpdate.NewVersion,
		ViewerNewStateID: viewerUpdate.StateID,
		DirectEdgeID:     newDirect.EdgeID,
		CreatedChapters:  []string{},
		UpdatedChapters:  []string{},
		MigratedChapters: []string{},
	}

	for _, name := range sortedChapterNames(opts.NewChapters) {
		chapter := opts.NewChapters[name]
		inheritable := true
		if chapter.Inheritable != nil {
			inheritable = *chapter.Inheritable
		}
		if _, err := s.CreateRelayEdge(ctx, viewerEntityID, targetEntityID, name, chapter.Content, inheritable, newDirect.EdgeID); err != nil {
			return nil, err
		}
		result.CreatedChapters = append(result.CreatedChapters, name)
	}

	for _, relay := range structure.Relays {
		chapterName := relay.State.Name
		relayStateID := relay.State.ID

		if update, ok := opts.ChapterUpdates[chapterName]; ok && (update.Content != nil || update.Inheritable != nil) {
			content := relay.State.Content
			if update.Content != nil {
				content = *update.Content
			}
			updateRes, err := s.UpdateEntity(ctx, relay.State.EntityID, content, nil, update.Inheritable, "Chapter update: "+chapterName)
			if err != nil {
				return nil, err
			}
			relayStateID = updateRes.StateID
			result.UpdatedChapters = append(result.UpdatedChapters, chapterName)
		}

		if _, err := s.MoveRelayEdge(ctx, viewerEntityID, targetEntityID, relayStateID, newDirect.EdgeID); err != nil {
			return nil, err
		}
		result.MigratedChapters = append(result.MigratedChapters, chapterName)
	}

	return result, nil
}

func sortedChapterNames(chapters map[string]types.NewChapter) []string {
	names := make([]string, 0, len(chapters))
	for name := range chapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
