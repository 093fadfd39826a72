package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/KomuDhara/nocturne-memory/pkg/types"
)

// Orphan-state scan modes.
const (
	OrphanModeInZero  = "in_zero"  // no business in-edges; out-edges allowed
	OrphanModeAllZero = "all_zero" // no business edges in either direction
)

// FindOrphanStates lists State nodes that nothing references anymore.
// CURRENT and PREVIOUS links are version bookkeeping and are excluded from
// the counts, so a state can be "orphaned" while still sitting on a version
// chain. Candidates with IsCurrent set should only go as part of deleting
// the whole entity.
func (s *Store) FindOrphanStates(ctx context.Context, mode string, limit int) ([]types.OrphanState, error) {
	var whereClause string
	switch mode {
	case OrphanModeAllZero:
		whereClause = "in_count = 0 AND out_count = 0"
	case OrphanModeInZero, "":
		whereClause = "in_count = 0"
	default:
		return nil, validationf("unknown orphan scan mode %q, expected %q or %q", mode, OrphanModeInZero, OrphanModeAllZero)
	}

	query := fmt.Sprintf(`
		MATCH (s:State)
		OPTIONAL MATCH (other_in)-[r_in]->(s)
		WHERE type(r_in) <> 'CURRENT' AND type(r_in) <> 'PREVIOUS'
		WITH s, count(DISTINCT r_in) AS in_count
		OPTIONAL MATCH (s)-[r_out]->(other_out)
		WHERE type(r_out) <> 'PREVIOUS'
		WITH s, in_count, count(DISTINCT r_out) AS out_count
		OPTIONAL MATCH (e:Entity)-[curr:CURRENT]->(s)
		WITH s, in_count, out_count, (curr IS NOT NULL) AS is_current
		WHERE %s
		OPTIONAL MATCH (entity:Entity {id: s.entity_id})
		RETURN s.id AS state_id,
		       s.entity_id AS entity_id,
		       s.version AS version,
		       s.name AS name,
		       s.content AS content,
		       s.created_at AS created_at,
		       is_current,
		       in_count,
		       out_count,
		       labels(entity) AS entity_labels
		ORDER BY s.entity_id, s.version DESC
		LIMIT $limit`, whereClause)

	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"limit": limit})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		orphans := make([]types.OrphanState, 0, len(records))
		for _, record := range records {
			name := recordString(record, "name")
			if name == "" {
				name = "Unnamed"
			}
			orphans = append(orphans, types.OrphanState{
				StateID:        recordString(record, "state_id"),
				EntityID:       recordString(record, "entity_id"),
				Version:        recordInt(record, "version"),
				Name:           name,
				ContentSnippet: snippet(recordString(record, "content"), 150),
				CreatedAt:      recordString(record, "created_at"),
				IsCurrent:      recordBool(record, "is_current"),
				InCount:        recordInt(record, "in_count"),
				OutCount:       recordInt(record, "out_count"),
				EntityKind:     kindFromLabels(recordStrings(record, "entity_labels")),
			})
		}
		return orphans, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]types.OrphanState), nil
}

// FindOrphanEntities lists Entity nodes with no states at all and no edges
// that would block deletion. An outgoing BELONGS_TO does not count as
// blocking: an empty entity is still a candidate even while filed under a
// parent.
func (s *Store) FindOrphanEntities(ctx context.Context, limit int) ([]types.OrphanEntity, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (e:Entity)
			WHERE NOT EXISTS {
			    MATCH (s:State)
			    WHERE s.entity_id = e.id
			}
			AND NOT EXISTS {
			    MATCH (e)-[r]-(other)
			    WHERE NOT (type(r) = 'BELONGS_TO' AND startNode(r) = e)
			}
			RETURN e.id AS entity_id,
			       e.name AS name,
			       e.created_at AS created_at,
			       labels(e) AS entity_labels
			ORDER BY e.id
			LIMIT $limit`, map[string]any{"limit": limit})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		orphans := make([]types.OrphanEntity, 0, len(records))
		for _, record := range records {
			name := recordString(record, "name")
			if name == "" {
				name = "Unnamed"
			}
			orphans = append(orphans, types.OrphanEntity{
				EntityID:  recordString(record, "entity_id"),
				Name:      name,
				Kind:      kindFromLabels(recordStrings(record, "entity_labels")),
				CreatedAt: recordString(record, "created_at"),
			})
		}
		return orphans, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]types.OrphanEntity), nil
}
