package graph

import (
	"context"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/KomuDhara/nocturne-memory/pkg/types"
)

// CreateDirectEdge creates the single 1-hop edge between an ordered entity
// pair, attached to both sides' CURRENT states. The edge id is deterministic
// on the entity ids, so the pairwise-uniqueness check is a plain existence
// check inside the same transaction.
func (s *Store) CreateDirectEdge(ctx context.Context, fromEntityID, toEntityID, relation, content string, inheritable bool) (*types.DirectEdge, error) {
	if fromEntityID == toEntityID {
		return nil, validationf("self-referential relationships (from %q to itself) are not allowed; information about the self belongs in the entity content", fromEntityID)
	}
	if err := validateNoDoubleUnderscore(relation, "relation"); err != nil {
		return nil, err
	}

	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		fromStateID, toStateID, err := currentStatePair(ctx, tx, fromEntityID, toEntityID, "direct edge")
		if err != nil {
			return nil, err
		}

		edgeID := DirectEdgeID(fromEntityID, toEntityID)

		existsRes, err := tx.Run(ctx, `
			MATCH (:State)-[r:DIRECT_EDGE]->(:State)
			WHERE r.edge_id = $edge_id
			RETURN r.edge_id AS edge_id`, map[string]any{"edge_id": edgeID})
		if err != nil {
			return nil, err
		}
		existing, err := one(ctx, existsRes)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, conflictf("direct edge already exists between entities %q and %q (edge_id=%s), delete it explicitly before creating a new one",
				fromEntityID, toEntityID, edgeID)
		}

		createRes, err := tx.Run(ctx, `
			MATCH (from:State {id: $from_state_id})
			MATCH (to:State {id: $to_state_id})
			CREATE (from)-[r:DIRECT_EDGE {
				edge_id: $edge_id,
				from_entity_id: $from_entity_id,
				to_entity_id: $to_entity_id,
				relation: $relation,
				content: $content,
				inheritable: $inheritable,
				created_at: $now
			}]->(to)
			RETURN r.edge_id AS edge_id, r.created_at AS created_at`, map[string]any{
			"from_state_id":  fromStateID,
			"to_state_id":    toStateID,
			"edge_id":        edgeID,
			"from_entity_id": fromEntityID,
			"to_entity_id":   toEntityID,
			"relation":       relation,
			"content":        content,
			"inheritable":    inheritable,
			"now":            now(),
		})
		if err != nil {
			return nil, err
		}
		record, err := createRes.Single(ctx)
		if err != nil {
			return nil, err
		}

		return &types.DirectEdge{
			EdgeID:       recordString(record, "edge_id"),
			FromStateID:  fromStateID,
			ToStateID:    toStateID,
			FromEntityID: fromEntityID,
			ToEntityID:   toEntityID,
			Relation:     relation,
			Content:      content,
			Inheritable:  inheritable,
			CreatedAt:    recordString(record, "created_at"),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.DirectEdge), nil
}

// GetDirectEdge looks up the direct edge between two entities by its
// deterministic id. Absence is reported as (nil, nil), not an error.
func (s *Store) GetDirectEdge(ctx context.Context, fromEntityID, toEntityID string) (*types.DirectEdge, error) {
	edgeID := DirectEdgeID(fromEntityID, toEntityID)

	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (from:State)-[r:DIRECT_EDGE {edge_id: $edge_id}]->(to:State)
			RETURN r.edge_id AS edge_id,
			       r.from_entity_id AS from_entity_id,
			       r.to_entity_id AS to_entity_id,
			       r.relation AS relation,
			       r.content AS content,
			       r.inheritable AS inheritable,
			       r.created_at AS created_at,
			       from.id AS from_state_id,
			       to.id AS to_state_id`, map[string]any{"edge_id": edgeID})
		if err != nil {
			return nil, err
		}
		record, err := one(ctx, res)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return (*types.DirectEdge)(nil), nil
		}
		return directEdgeFromRecord(record), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.DirectEdge), nil
}

func directEdgeFromRecord(record *neo4j.Record) *types.DirectEdge {
	return &types.DirectEdge{
		EdgeID:       recordString(record, "edge_id"),
		FromStateID:  recordString(record, "from_state_id"),
		ToStateID:    recordString(record, "to_state_id"),
		FromEntityID: recordString(record, "from_entity_id"),
		ToEntityID:   recordString(record, "to_entity_id"),
		Relation:     recordString(record, "relation"),
		Content:      recordString(record, "content"),
		Inheritable:  recordBool(record, "inheritable"),
		CreatedAt:    recordString(record, "created_at"),
	}
}

// DeleteDirectEdgeResult reports a direct-edge deletion and how many relay
// edges were cascaded with it (always zero without force).
type DeleteDirectEdgeResult struct {
	FromEntityID      string `json:"from_entity_id"`
	ToEntityID        string `json:"to_entity_id"`
	DeletedRelayEdges int    `json:"deleted_relay_edges"`
}

// DeleteDirectEdge removes the direct edge between two entities. Dependent
// relay edges block the deletion unless force is set, in which case their
// edge halves are cascaded; relay entities and their states always survive.
func (s *Store) DeleteDirectEdge(ctx context.Context, fromEntityID, toEntityID string, force bool) (*DeleteDirectEdgeResult, error) {
	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return deleteDirectEdgeTx(ctx, tx, fromEntityID, toEntityID, force)
	})
	if err != nil {
		return nil, err
	}
	return result.(*DeleteDirectEdgeResult), nil
}

func deleteDirectEdgeTx(ctx context.Context, tx neo4j.ManagedTransaction, fromEntityID, toEntityID string, force bool) (*DeleteDirectEdgeResult, error) {
	edgeID := DirectEdgeID(fromEntityID, toEntityID)

	checkRes, err := tx.Run(ctx, `
		MATCH ()-[r:DIRECT_EDGE {edge_id: $edge_id}]->()
		RETURN r.edge_id AS direct_edge_id`, map[string]any{"edge_id": edgeID})
	if err != nil {
		return nil, err
	}
	checkRecord, err := one(ctx, checkRes)
	if err != nil {
		return nil, err
	}
	if checkRecord == nil {
		return nil, notFoundf("direct edge not found between entities %s and %s", fromEntityID, toEntityID)
	}
	directEdgeID := recordString(checkRecord, "direct_edge_id")

	relayRes, err := tx.Run(ctx, `
		MATCH (:State)-[r:RELAY_EDGE]->(:State)
		WHERE r.parent_direct_edge_id = $direct_edge_id
		RETURN collect(DISTINCT r.edge_id) AS relay_edge_ids,
		       count(DISTINCT r.edge_id) AS relay_count`, map[string]any{"direct_edge_id": directEdgeID})
	if err != nil {
		return nil, err
	}
	relayRecord, err := relayRes.Single(ctx)
	if err != nil {
		return nil, err
	}
	relayEdgeIDs := recordStrings(relayRecord, "relay_edge_ids")
	relayCount := recordInt(relayRecord, "relay_count")

	if relayCount > 0 && !force {
		return nil, conflictf("cannot delete direct edge between %s and %s: %d relay edges exist (%s), delete relay edges first or retry with force",
			fromEntityID, toEntityID, relayCount, strings.Join(relayEdgeIDs, ", "))
	}

	deletedRelays := 0
	if relayCount > 0 && force {
		for _, relayEdgeID := range relayEdgeIDs {
			if err := deleteRelayEdgeTx(ctx, tx, relayEdgeID); err != nil {
				return nil, err
			}
		}
		deletedRelays = len(relayEdgeIDs)
	}

	if _, err := tx.Run(ctx, `
		MATCH ()-[r:DIRECT_EDGE {edge_id: $edge_id}]->()
		DELETE r`, map[string]any{"edge_id": edgeID}); err != nil {
		return nil, err
	}

	return &DeleteDirectEdgeResult{
		FromEntityID:      fromEntityID,
		ToEntityID:        toEntityID,
		DeletedRelayEdges: deletedRelays,
	}, nil
}

// currentStatePair resolves both entities' CURRENT states in one shot,
// falling back to per-side checks to report exactly which side is missing.
func currentStatePair(ctx context.Context, tx neo4j.ManagedTransaction, fromEntityID, toEntityID, op string) (string, string, error) {
	res, err := tx.Run(ctx, `
		MATCH (from_e:Entity {id: $from_entity_id})-[:CURRENT]->(from_s:State)
		MATCH (to_e:Entity {id: $to_entity_id})-[:CURRENT]->(to_s:State)
		RETURN from_s.id AS from_state_id, to_s.id AS to_state_id`, map[string]any{
		"from_entity_id": fromEntityID,
		"to_entity_id":   toEntityID,
	})
	if err != nil {
		return "", "", err
	}
	record, err := one(ctx, res)
	if err != nil {
		return "", "", err
	}
	if record != nil {
		return recordString(record, "from_state_id"), recordString(record, "to_state_id"), nil
	}

	var missing []string
	for _, entityID := range []string{fromEntityID, toEntityID} {
		checkRes, err := tx.Run(ctx, `MATCH (e:Entity {id: $id})-[:CURRENT]->(s:State) RETURN s.id`,
			map[string]any{"id": entityID})
		if err != nil {
			return "", "", err
		}
		checkRecord, err := one(ctx, checkRes)
		if err != nil {
			return "", "", err
		}
		if checkRecord == nil {
			missing = append(missing, "entity '"+entityID+"'")
		}
	}

	return "", "", notFoundf("cannot create %s: current state not found for %s", op, strings.Join(missing, ", "))
}
