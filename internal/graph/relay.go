package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/KomuDhara/nocturne-memory/pkg/types"
)

// CreateRelayEdge creates a chapter: a hidden relay entity with its v1
// state, plus the two edge halves routing from_state -> relay_state ->
// to_state, all in one transaction.
//
// Creation is first-time-only; evolving an existing chapter goes through
// UpdateEntity on the relay entity followed by MoveRelayEdge. A relay edge
// can never be inheritable when its parent direct edge is not.
func (s *Store) CreateRelayEdge(ctx context.Context, fromEntityID, toEntityID, relation, content string, inheritable bool, parentDirectEdgeID string) (*types.RelayEdgeResult, error) {
	if err := validateNoDoubleUnderscore(relation, "relation"); err != nil {
		return nil, err
	}

	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return createRelayEdgeTx(ctx, tx, s.createdBy, fromEntityID, toEntityID, relation, content, inheritable, parentDirectEdgeID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.RelayEdgeResult), nil
}

func createRelayEdgeTx(ctx context.Context, tx neo4j.ManagedTransaction, createdBy, fromEntityID, toEntityID, relation, content string, inheritable bool, parentDirectEdgeID string) (*types.RelayEdgeResult, error) {
	parentRes, err := tx.Run(ctx, `
		MATCH ()-[r:DIRECT_EDGE {edge_id: $edge_id}]->()
		RETURN r.inheritable AS inheritable`, map[string]any{"edge_id": parentDirectEdgeID})
	if err != nil {
		return nil, err
	}
	parentRecord, err := one(ctx, parentRes)
	if err != nil {
		return nil, err
	}
	if parentRecord == nil {
		return nil, notFoundf("parent direct edge %q not found", parentDirectEdgeID)
	}

	// A non-inheritable parent forces the chapter non-inheritable too.
	finalInheritable := inheritable
	if !recordBool(parentRecord, "inheritable") {
		finalInheritable = false
	}

	fromStateID, toStateID, err := currentStatePair(ctx, tx, fromEntityID, toEntityID, "relay edge")
	if err != nil {
		return nil, err
	}

	relayNodeID := RelayEntityID(fromEntityID, relation, toEntityID)

	existRes, err := tx.Run(ctx, `MATCH (relay:Entity {id: $relay_node_id}) RETURN relay.id`,
		map[string]any{"relay_node_id": relayNodeID})
	if err != nil {
		return nil, err
	}
	existRecord, err := one(ctx, existRes)
	if err != nil {
		return nil, err
	}
	if existRecord != nil {
		return nil, conflictf("relay entity %q already exists; update its entity and move the relay edge instead", relayNodeID)
	}

	edgeID := EdgeID(fromEntityID, relation, toEntityID)
	createdAt := now()

	res, err := tx.Run(ctx, `
		MATCH (from:State {id: $from_state_id})
		MATCH (to:State {id: $to_state_id})
		CREATE (relay:Entity:Relationship {
			id: $relay_node_id,
			created_at: $now,
			is_relay: true,
			hidden: true,
			parent_direct_edge_id: $parent_direct_edge_id
		})
		CREATE (relay_state:State {
			id: $relay_state_id,
			entity_id: $relay_node_id,
			version: 1,
			name: $relation,
			content: $content,
			inheritable: $inheritable,
			created_at: $now,
			created_by: $created_by,
			parent_direct_edge_id: $parent_direct_edge_id
		})
		CREATE (relay)-[:CURRENT {time: $now}]->(relay_state)
		CREATE (from)-[:RELAY_EDGE {
			edge_id: $edge_id,
			parent_direct_edge_id: $parent_direct_edge_id,
			part: 1,
			created_at: $now
		}]->(relay_state)
		CREATE (relay_state)-[:RELAY_EDGE {
			edge_id: $edge_id,
			parent_direct_edge_id: $parent_direct_edge_id,
			part: 2,
			created_at: $now
		}]->(to)
		RETURN $edge_id AS edge_id, $relay_node_id AS relay_node_id`, map[string]any{
		"from_state_id":         fromStateID,
		"to_state_id":           toStateID,
		"edge_id":               edgeID,
		"relay_node_id":         relayNodeID,
		"relay_state_id":        stateID(relayNodeID, 1),
		"parent_direct_edge_id": parentDirectEdgeID,
		"relation":              relation,
		"content":               content,
		"inheritable":           finalInheritable,
		"created_by":            createdBy,
		"now":                   createdAt,
	})
	if err != nil {
		return nil, err
	}
	if _, err := res.Single(ctx); err != nil {
		return nil, err
	}

	return &types.RelayEdgeResult{
		EdgeID:      edgeID,
		FromStateID: fromStateID,
		ToStateID:   toStateID,
		RelayNodeID: relayNodeID,
		Relation:    relation,
		Inheritable: finalInheritable,
		CreatedAt:   createdAt,
	}, nil
}

// MoveRelayEdge re-anchors a chapter onto the CURRENT states of its two
// entities. The deterministic edge id is recomputed from the relay state's
// stored name (the relation); every existing half pair sharing that id is
// detached and both halves are recreated against the new states. The relay
// state itself is never touched.
func (s *Store) MoveRelayEdge(ctx context.Context, fromEntityID, toEntityID, relayStateID, parentDirectEdgeID string) (string, error) {
	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return moveRelayEdgeTx(ctx, tx, fromEntityID, toEntityID, relayStateID, parentDirectEdgeID)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func moveRelayEdgeTx(ctx context.Context, tx neo4j.ManagedTransaction, fromEntityID, toEntityID, relayStateID, parentDirectEdgeID string) (string, error) {
	currentState := func(entityID string) (string, error) {
		res, err := tx.Run(ctx, `MATCH (e:Entity {id: $eid})-[:CURRENT]->(s:State) RETURN s.id AS id`,
			map[string]any{"eid": entityID})
		if err != nil {
			return "", err
		}
		record, err := one(ctx, res)
		if err != nil {
			return "", err
		}
		if record == nil {
			return "", notFoundf("current state for entity %s not found", entityID)
		}
		return recordString(record, "id"), nil
	}

	fromStateID, err := currentState(fromEntityID)
	if err != nil {
		return "", err
	}
	toStateID, err := currentState(toEntityID)
	if err != nil {
		return "", err
	}

	relayRes, err := tx.Run(ctx, `MATCH (s:State {id: $sid}) RETURN s.name AS name`,
		map[string]any{"sid": relayStateID})
	if err != nil {
		return "", err
	}
	relayRecord, err := one(ctx, relayRes)
	if err != nil {
		return "", err
	}
	if relayRecord == nil {
		return "", notFoundf("relay state %s not found", relayStateID)
	}
	relation := recordString(relayRecord, "name")

	edgeID := EdgeID(fromEntityID, relation, toEntityID)

	// Detach every existing half pair for this logical edge; the relay
	// state keeps its content and history.
	if _, err := tx.Run(ctx, `
		MATCH ()-[r:RELAY_EDGE {edge_id: $edge_id}]-()
		DELETE r`, map[string]any{"edge_id": edgeID}); err != nil {
		return "", err
	}

	res, err := tx.Run(ctx, `
		MATCH (from:State {id: $from_state_id})
		MATCH (to:State {id: $to_state_id})
		MATCH (relay_state:State {id: $relay_state_id})
		CREATE (from)-[:RELAY_EDGE {
			edge_id: $edge_id,
			parent_direct_edge_id: $parent_direct_edge_id,
			part: 1,
			created_at: $now
		}]->(relay_state)
		CREATE (relay_state)-[:RELAY_EDGE {
			edge_id: $edge_id,
			parent_direct_edge_id: $parent_direct_edge_id,
			part: 2,
			created_at: $now
		}]->(to)
		RETURN $edge_id AS edge_id`, map[string]any{
		"from_state_id":         fromStateID,
		"to_state_id":           toStateID,
		"relay_state_id":        relayStateID,
		"edge_id":               edgeID,
		"parent_direct_edge_id": parentDirectEdgeID,
		"now":                   now(),
	})
	if err != nil {
		return "", err
	}
	if _, err := res.Single(ctx); err != nil {
		return "", err
	}

	return edgeID, nil
}

// DeleteRelayEdge removes both halves of a chapter edge by id. The relay
// entity and its states are left untouched: an edge-only operation never
// destroys content.
func (s *Store) DeleteRelayEdge(ctx context.Context, edgeID string) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, deleteRelayEdgeTx(ctx, tx, edgeID)
	})
	return err
}

func deleteRelayEdgeTx(ctx context.Context, tx neo4j.ManagedTransaction, edgeID string) error {
	checkRes, err := tx.Run(ctx, `
		MATCH ()-[r:RELAY_EDGE {edge_id: $edge_id}]-()
		RETURN count(r) AS c`, map[string]any{"edge_id": edgeID})
	if err != nil {
		return err
	}
	checkRecord, err := checkRes.Single(ctx)
	if err != nil {
		return err
	}
	if recordInt(checkRecord, "c") == 0 {
		return notFoundf("relay edge with id %s not found", edgeID)
	}

	_, err = tx.Run(ctx, `
		MATCH ()-[r:RELAY_EDGE {edge_id: $edge_id}]-()
		DELETE r`, map[string]any{"edge_id": edgeID})
	return err
}
