package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/KomuDhara/nocturne-memory/pkg/types"
)

// CreateEntity creates a new entity together with its version-1 state and
// the CURRENT link, atomically. The id is caller-chosen and must be unique.
func (s *Store) CreateEntity(ctx context.Context, entityID string, kind types.EntityKind, name, content, taskDescription string) (*types.CreateEntityResult, error) {
	if err := validateEntityID(entityID); err != nil {
		return nil, err
	}
	if !types.IsValidEntityKind(kind) {
		return nil, validationf("invalid node_type %q, allowed types: %v", kind, types.ValidEntityKinds)
	}

	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		existing, err := tx.Run(ctx, `MATCH (e:Entity {id: $entity_id}) RETURN e.id`, map[string]any{
			"entity_id": entityID,
		})
		if err != nil {
			return nil, err
		}
		if record, err := one(ctx, existing); err != nil {
			return nil, err
		} else if record != nil {
			return nil, conflictf("entity with id %q already exists", entityID)
		}

		// The classifying label comes from a closed enum, never from raw
		// caller input, so splicing it into the query text is safe.
		query := fmt.Sprintf(`
			CREATE (e:Entity:%s {
				id: $entity_id,
				created_at: $now
			})
			CREATE (s:State {
				id: $state_id,
				entity_id: $entity_id,
				version: 1,
				name: $name,
				content: $content,
				created_at: $now,
				created_by: $created_by,
				task_description: $task_description
			})
			CREATE (e)-[:CURRENT {time: $now}]->(s)
			RETURN e.id AS entity_id, s.id AS state_id, s.version AS version`, kind.Label())

		res, err := tx.Run(ctx, query, map[string]any{
			"entity_id":        entityID,
			"state_id":         stateID(entityID, 1),
			"name":             name,
			"content":          content,
			"created_by":       s.createdBy,
			"task_description": taskDescription,
			"now":              now(),
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}

		return &types.CreateEntityResult{
			EntityID: recordString(record, "entity_id"),
			StateID:  recordString(record, "state_id"),
			Version:  recordInt(record, "version"),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.CreateEntityResult), nil
}

// UpdateEntity creates a new state version for an entity.
//
// The base version is the state with the maximum version number currently
// present for the entity, independent of the CURRENT pointer. A missing or
// stale CURRENT link therefore never breaks updates; the single new CURRENT
// link written here also repairs accidental duplicates.
func (s *Store) UpdateEntity(ctx context.Context, entityID, newContent string, newName *string, newInheritable *bool, taskDescription string) (*types.UpdateEntityResult, error) {
	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (e:Entity {id: $entity_id})
			MATCH (s:State {entity_id: $entity_id})
			WITH s
			ORDER BY s.version DESC
			LIMIT 1
			RETURN s.version AS max_version,
			       s.name AS max_name,
			       s.inheritable AS max_inheritable,
			       s.id AS max_state_id`, map[string]any{
			"entity_id": entityID,
		})
		if err != nil {
			return nil, err
		}
		record, err := one(ctx, res)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, notFoundf("entity %s not found", entityID)
		}

		oldVersion := recordInt(record, "max_version")
		oldStateID := recordString(record, "max_state_id")

		// Omitted fields inherit from the base version.
		name := recordString(record, "max_name")
		if newName != nil {
			name = *newName
		}
		inheritable := recordBoolPtr(record, "max_inheritable")
		if newInheritable != nil {
			inheritable = newInheritable
		}

		newVersion := oldVersion + 1

		// Replace every existing CURRENT link with a single new one;
		// business edges are left alone, only the version chain moves.
		updateRes, err := tx.Run(ctx, `
			MATCH (e:Entity {id: $entity_id})
			MATCH (old_state:State {id: $old_state_id})
			OPTIONAL MATCH (e)-[old_curr:CURRENT]->(:State)
			WITH e, old_state, collect(old_curr) AS old_currs
			CREATE (new_state:State {
				id: $state_id,
				entity_id: $entity_id,
				version: $new_version,
				name: $name,
				content: $new_content,
				inheritable: $inheritable,
				created_at: $now,
				created_by: $created_by,
				task_description: $task_description
			})
			CREATE (new_state)-[:PREVIOUS]->(old_state)
			FOREACH (c IN old_currs | DELETE c)
			CREATE (e)-[:CURRENT {time: $now}]->(new_state)
			RETURN new_state.version AS new_version, new_state.id AS state_id`, map[string]any{
			"entity_id":        entityID,
			"old_state_id":     oldStateID,
			"state_id":         stateID(entityID, newVersion),
			"new_version":      newVersion,
			"name":             name,
			"new_content":      newContent,
			"inheritable":      boolPtrParam(inheritable),
			"created_by":       s.createdBy,
			"task_description": taskDescription,
			"now":              now(),
		})
		if err != nil {
			return nil, err
		}
		updateRecord, err := updateRes.Single(ctx)
		if err != nil {
			return nil, err
		}

		return &types.UpdateEntityResult{
			EntityID:   entityID,
			OldVersion: oldVersion,
			NewVersion: recordInt(updateRecord, "new_version"),
			StateID:    recordString(updateRecord, "state_id"),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.UpdateEntityResult), nil
}

// boolPtrParam maps a *bool onto a driver parameter, preserving null.
func boolPtrParam(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

// InfoOptions selects which sections EntityInfo assembles.
type InfoOptions struct {
	Basic    bool
	History  bool
	Edges    bool
	Children bool
}

// EntityInfo returns the aggregate view of an entity. When Basic is
// requested and the entity owns no states, the entity is treated as absent.
func (s *Store) EntityInfo(ctx context.Context, entityID string, opts InfoOptions) (*types.EntityInfo, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		info := &types.EntityInfo{EntityID: entityID}

		if opts.Basic {
			res, err := tx.Run(ctx, `
				MATCH (s:State {entity_id: $entity_id})
				RETURN s.id AS state_id, s.version AS version, s.content AS content,
				       s.created_at AS created_at, s.task_description AS task_description,
				       s.name AS name, s.entity_id AS entity_id, s.inheritable AS inheritable
				ORDER BY s.version DESC
				LIMIT 1`, map[string]any{"entity_id": entityID})
			if err != nil {
				return nil, err
			}
			record, err := one(ctx, res)
			if err != nil {
				return nil, err
			}
			if record == nil {
				return nil, notFoundf("entity %s not found", entityID)
			}
			info.Basic = &types.State{
				ID:              recordString(record, "state_id"),
				EntityID:        recordString(record, "entity_id"),
				Version:         recordInt(record, "version"),
				Name:            recordString(record, "name"),
				Content:         recordString(record, "content"),
				Inheritable:     recordBoolPtr(record, "inheritable"),
				CreatedAt:       recordString(record, "created_at"),
				TaskDescription: recordString(record, "task_description"),
			}
		}

		if opts.History {
			res, err := tx.Run(ctx, `
				MATCH (s:State {entity_id: $entity_id})
				RETURN s.id AS state_id, s.version AS version,
				       s.created_at AS created_at, s.task_description AS task_description
				ORDER BY s.version DESC`, map[string]any{"entity_id": entityID})
			if err != nil {
				return nil, err
			}
			records, err := res.Collect(ctx)
			if err != nil {
				return nil, err
			}
			for _, record := range records {
				info.History = append(info.History, types.StateVersion{
					StateID:         recordString(record, "state_id"),
					Version:         recordInt(record, "version"),
					CreatedAt:       recordString(record, "created_at"),
					TaskDescription: recordString(record, "task_description"),
				})
			}
		}

		if opts.Edges {
			res, err := tx.Run(ctx, `
				MATCH (from_s:State)-[d:DIRECT_EDGE]->(to_s:State)
				WHERE d.from_entity_id = $entity_id
				OPTIONAL MATCH ()-[r:RELAY_EDGE]->()
				WHERE r.parent_direct_edge_id = d.edge_id AND r.part = 1
				RETURN d.to_entity_id AS target_entity_id,
				       to_s.name AS target_name,
				       d.relation AS relation,
				       d.content AS content,
				       d.inheritable AS inheritable,
				       from_s.version AS viewer_version,
				       to_s.version AS target_version,
				       count(r) AS relay_count
				ORDER BY target_entity_id`, map[string]any{"entity_id": entityID})
			if err != nil {
				return nil, err
			}
			records, err := res.Collect(ctx)
			if err != nil {
				return nil, err
			}
			for _, record := range records {
				name := recordString(record, "target_name")
				if name == "" {
					name = "Unnamed"
				}
				info.Edges = append(info.Edges, types.OutboundEdge{
					TargetEntityID: recordString(record, "target_entity_id"),
					TargetName:     name,
					Relation:       recordString(record, "relation"),
					ContentSnippet: snippet(recordString(record, "content"), 100),
					Inheritable:    recordBool(record, "inheritable"),
					ViewerVersion:  recordInt(record, "viewer_version"),
					TargetVersion:  recordInt(record, "target_version"),
					RelayCount:     recordInt(record, "relay_count"),
				})
			}
		}

		if opts.Children {
			children, err := childrenTx(ctx, tx, entityID, 50)
			if err != nil {
				return nil, err
			}
			info.Children = children
		}

		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.EntityInfo), nil
}

// StateInfo returns a single state with its edge statistics. CURRENT and
// PREVIOUS links are excluded from the counts.
func (s *Store) StateInfo(ctx context.Context, id string) (*types.StateInfo, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (s:State {id: $state_id})
			OPTIONAL MATCH (other)-[r_in]->(s)
			WHERE type(r_in) <> 'CURRENT' AND type(r_in) <> 'PREVIOUS'
			WITH s, count(r_in) AS in_count
			OPTIONAL MATCH (s)-[r_out]->(other)
			WHERE type(r_out) <> 'PREVIOUS'
			WITH s, in_count, count(r_out) AS out_count
			RETURN s.id AS state_id, s.entity_id AS entity_id, s.version AS version,
			       s.content AS content, s.created_at AS created_at,
			       s.task_description AS task_description, s.name AS name,
			       s.inheritable AS inheritable,
			       in_count, out_count`, map[string]any{"state_id": id})
		if err != nil {
			return nil, err
		}
		record, err := one(ctx, res)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, notFoundf("state %s not found", id)
		}

		return &types.StateInfo{
			State: types.State{
				ID:              recordString(record, "state_id"),
				EntityID:        recordString(record, "entity_id"),
				Version:         recordInt(record, "version"),
				Name:            recordString(record, "name"),
				Content:         recordString(record, "content"),
				Inheritable:     recordBoolPtr(record, "inheritable"),
				CreatedAt:       recordString(record, "created_at"),
				TaskDescription: recordString(record, "task_description"),
			},
			InCount:  recordInt(record, "in_count"),
			OutCount: recordInt(record, "out_count"),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.StateInfo), nil
}

// DeleteState removes one state version.
//
// Deletion is blocked while any incoming business edge still references the
// state; outgoing edges never block (nothing points at you, you may go).
// Deleting the CURRENT state hands the pointer to its PREVIOUS neighbor;
// deleting a mid-chain state splices its neighbors back together.
func (s *Store) DeleteState(ctx context.Context, id string) (*types.DeleteStateResult, error) {
	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (s:State {id: $state_id}) RETURN s.entity_id AS entity_id`,
			map[string]any{"state_id": id})
		if err != nil {
			return nil, err
		}
		record, err := one(ctx, res)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, notFoundf("state %s not found", id)
		}
		entityID := recordString(record, "entity_id")

		depRes, err := tx.Run(ctx, `
			MATCH (s:State {id: $state_id})
			OPTIONAL MATCH (s)<-[r_in]-(other_in)
			WHERE type(r_in) <> 'CURRENT' AND type(r_in) <> 'PREVIOUS'
			WITH s,
			     collect(DISTINCT type(r_in)) AS in_types,
			     count(DISTINCT r_in) AS in_count
			RETURN in_count, in_types`, map[string]any{"state_id": id})
		if err != nil {
			return nil, err
		}
		depRecord, err := depRes.Single(ctx)
		if err != nil {
			return nil, err
		}
		if inCount := recordInt(depRecord, "in_count"); inCount > 0 {
			return nil, conflictf("cannot delete state %s: %d incoming edges (references) still exist: %v",
				id, inCount, recordStrings(depRecord, "in_types"))
		}

		curRes, err := tx.Run(ctx, `
			MATCH (e:Entity)-[curr:CURRENT]->(s:State {id: $state_id})
			RETURN e.id AS entity_id`, map[string]any{"state_id": id})
		if err != nil {
			return nil, err
		}
		curRecord, err := one(ctx, curRes)
		if err != nil {
			return nil, err
		}

		deleted := &types.DeleteStateResult{DeletedStateID: id, EntityID: entityID}

		if curRecord != nil {
			// CURRENT version: hand the pointer to PREVIOUS, or drop it
			// entirely when this was the last state.
			res, err := tx.Run(ctx, `
				MATCH (e:Entity)-[curr:CURRENT]->(s:State {id: $state_id})
				OPTIONAL MATCH (s)-[:PREVIOUS]->(prev:State)
				DELETE curr
				DETACH DELETE s
				WITH e, prev
				WHERE prev IS NOT NULL
				CREATE (e)-[:CURRENT {time: $now}]->(prev)
				RETURN prev.version AS new_version`, map[string]any{
				"state_id": id,
				"now":      now(),
			})
			if err != nil {
				return nil, err
			}
			record, err := one(ctx, res)
			if err != nil {
				return nil, err
			}
			if record != nil {
				version := recordInt(record, "new_version")
				deleted.NewCurrentVersion = &version
			}
		} else {
			// Mid-chain version: splice the PREVIOUS chain around it.
			_, err := tx.Run(ctx, `
				MATCH (s:State {id: $state_id})
				OPTIONAL MATCH (prev:State)-[p:PREVIOUS]->(s)
				OPTIONAL MATCH (s)-[n:PREVIOUS]->(next:State)
				WITH s, prev, next, p, n
				DELETE p, n
				WITH s, prev, next
				FOREACH (_ IN CASE WHEN prev IS NOT NULL AND next IS NOT NULL THEN [1] ELSE [] END |
					CREATE (prev)-[:PREVIOUS]->(next)
				)
				DETACH DELETE s`, map[string]any{"state_id": id})
			if err != nil {
				return nil, err
			}
		}

		return deleted, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.DeleteStateResult), nil
}

// DeleteEntity removes an entity that owns no states. Outgoing hierarchy
// edges are removed with it; any other attached edge blocks deletion. An
// incoming hierarchy edge means the entity is someone's parent and must
// outlive that relationship.
func (s *Store) DeleteEntity(ctx context.Context, entityID string) (*types.DeleteEntityResult, error) {
	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (e:Entity {id: $entity_id}) RETURN e.id`,
			map[string]any{"entity_id": entityID})
		if err != nil {
			return nil, err
		}
		record, err := one(ctx, res)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, notFoundf("entity %s not found", entityID)
		}

		statesRes, err := tx.Run(ctx, `
			MATCH (s:State)
			WHERE s.entity_id = $entity_id
			RETURN count(s) AS state_count`, map[string]any{"entity_id": entityID})
		if err != nil {
			return nil, err
		}
		statesRecord, err := statesRes.Single(ctx)
		if err != nil {
			return nil, err
		}
		if count := recordInt(statesRecord, "state_count"); count > 0 {
			return nil, conflictf("cannot delete entity %s: it still has %d state(s), delete states first",
				entityID, count)
		}

		edgeRes, err := tx.Run(ctx, `
			MATCH (e:Entity {id: $entity_id})
			OPTIONAL MATCH (e)-[r]-(other)
			WHERE NOT (type(r) = 'BELONGS_TO' AND startNode(r) = e)
			RETURN count(r) AS blocking_count, collect(DISTINCT type(r)) AS blocking_types`,
			map[string]any{"entity_id": entityID})
		if err != nil {
			return nil, err
		}
		edgeRecord, err := edgeRes.Single(ctx)
		if err != nil {
			return nil, err
		}
		if blocking := recordInt(edgeRecord, "blocking_count"); blocking > 0 {
			return nil, conflictf("cannot delete entity %s: %d blocking edge(s) still attached %v (an incoming BELONGS_TO means this entity is a parent and cannot be deleted yet)",
				entityID, blocking, recordStrings(edgeRecord, "blocking_types"))
		}

		outRes, err := tx.Run(ctx, `
			MATCH (e:Entity {id: $entity_id})-[r:BELONGS_TO]->()
			RETURN count(r) AS outgoing_count`, map[string]any{"entity_id": entityID})
		if err != nil {
			return nil, err
		}
		outRecord, err := outRes.Single(ctx)
		if err != nil {
			return nil, err
		}
		deletedEdges := recordInt(outRecord, "outgoing_count")

		if _, err := tx.Run(ctx, `MATCH (e:Entity {id: $entity_id}) DETACH DELETE e`,
			map[string]any{"entity_id": entityID}); err != nil {
			return nil, err
		}

		return &types.DeleteEntityResult{
			DeletedEntityID: entityID,
			DeletedEdges:    deletedEdges,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.DeleteEntityResult), nil
}
