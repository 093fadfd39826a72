package graph

import (
	"context"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/KomuDhara/nocturne-memory/pkg/types"
)

// LinkParent attaches childEntityID under parentEntityID with a BELONGS_TO
// link. An entity may belong to several parents. Self-links, duplicate
// links, and direct two-entity cycles are rejected; longer cycles are not
// checked and are the caller's responsibility.
func (s *Store) LinkParent(ctx context.Context, childEntityID, parentEntityID string) error {
	if err := validateEntityID(childEntityID); err != nil {
		return err
	}
	if err := validateEntityID(parentEntityID); err != nil {
		return err
	}
	if childEntityID == parentEntityID {
		return validationf("entity %q cannot belong to itself", childEntityID)
	}

	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			OPTIONAL MATCH (child:Entity {id: $child_id})
			OPTIONAL MATCH (parent:Entity {id: $parent_id})
			RETURN child IS NOT NULL AS child_exists,
			       parent IS NOT NULL AS parent_exists`, map[string]any{
			"child_id":  childEntityID,
			"parent_id": parentEntityID,
		})
		if err != nil {
			return nil, err
		}
		record, err := one(ctx, res)
		if err != nil {
			return nil, err
		}
		var missing []string
		if record == nil || !recordBool(record, "child_exists") {
			missing = append(missing, "entity '"+childEntityID+"'")
		}
		if record == nil || !recordBool(record, "parent_exists") {
			missing = append(missing, "entity '"+parentEntityID+"'")
		}
		if len(missing) > 0 {
			return nil, notFoundf("%s not found", strings.Join(missing, ", "))
		}

		res, err = tx.Run(ctx, `
			OPTIONAL MATCH (:Entity {id: $child_id})-[existing:BELONGS_TO]->(:Entity {id: $parent_id})
			OPTIONAL MATCH (:Entity {id: $parent_id})-[reverse:BELONGS_TO]->(:Entity {id: $child_id})
			RETURN existing IS NOT NULL AS already_linked,
			       reverse IS NOT NULL AS reverse_linked`, map[string]any{
			"child_id":  childEntityID,
			"parent_id": parentEntityID,
		})
		if err != nil {
			return nil, err
		}
		record, err = one(ctx, res)
		if err != nil {
			return nil, err
		}
		if record != nil && recordBool(record, "already_linked") {
			return nil, conflictf("entity %q already belongs to %q", childEntityID, parentEntityID)
		}
		if record != nil && recordBool(record, "reverse_linked") {
			return nil, validationf("entity %q already belongs to %q, linking both ways would create a cycle", parentEntityID, childEntityID)
		}

		res, err = tx.Run(ctx, `
			MATCH (child:Entity {id: $child_id})
			MATCH (parent:Entity {id: $parent_id})
			CREATE (child)-[:BELONGS_TO {created_at: $created_at, created_by: $created_by}]->(parent)`, map[string]any{
			"child_id":   childEntityID,
			"parent_id":  parentEntityID,
			"created_at": now(),
			"created_by": s.createdBy,
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// UnlinkParent removes the BELONGS_TO link from childEntityID to
// parentEntityID.
func (s *Store) UnlinkParent(ctx context.Context, childEntityID, parentEntityID string) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (:Entity {id: $child_id})-[link:BELONGS_TO]->(:Entity {id: $parent_id})
			DELETE link
			RETURN count(link) AS deleted`, map[string]any{
			"child_id":  childEntityID,
			"parent_id": parentEntityID,
		})
		if err != nil {
			return nil, err
		}
		record, err := one(ctx, res)
		if err != nil {
			return nil, err
		}
		if record == nil || recordInt(record, "deleted") == 0 {
			return nil, notFoundf("entity %q does not belong to %q", childEntityID, parentEntityID)
		}
		return nil, nil
	})
	return err
}

// HasParentLink reports whether childEntityID belongs to parentEntityID.
func (s *Store) HasParentLink(ctx context.Context, childEntityID, parentEntityID string) (bool, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			OPTIONAL MATCH (:Entity {id: $child_id})-[link:BELONGS_TO]->(:Entity {id: $parent_id})
			RETURN link IS NOT NULL AS linked`, map[string]any{
			"child_id":  childEntityID,
			"parent_id": parentEntityID,
		})
		if err != nil {
			return nil, err
		}
		record, err := one(ctx, res)
		if err != nil {
			return nil, err
		}
		return record != nil && recordBool(record, "linked"), nil
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

// Children lists the entities that belong to parentEntityID, each with its
// CURRENT state.
func (s *Store) Children(ctx context.Context, parentEntityID string, limit int) ([]types.ChildNode, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return childrenTx(ctx, tx, parentEntityID, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]types.ChildNode), nil
}

func childrenTx(ctx context.Context, tx neo4j.ManagedTransaction, parentEntityID string, limit int) ([]types.ChildNode, error) {
	res, err := tx.Run(ctx, `
		MATCH (child:Entity)-[:BELONGS_TO]->(:Entity {id: $parent_id})
		MATCH (child)-[:CURRENT]->(s:State)
		RETURN child.id AS entity_id, labels(child) AS labels,
		       s.id AS state_id, s.name AS name, s.content AS content,
		       s.version AS version, s.created_at AS created_at
		ORDER BY s.name
		LIMIT $limit`, map[string]any{
		"parent_id": parentEntityID,
		"limit":     limit,
	})
	if err != nil {
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}

	children := make([]types.ChildNode, 0, len(records))
	for _, record := range records {
		content := recordString(record, "content")
		children = append(children, types.ChildNode{
			EntityID:       recordString(record, "entity_id"),
			StateID:        recordString(record, "state_id"),
			Name:           recordString(record, "name"),
			Kind:           kindFromLabels(recordStrings(record, "labels")),
			Content:        content,
			ContentSnippet: snippet(content, 100),
			Version:        recordInt(record, "version"),
			CreatedAt:      recordString(record, "created_at"),
		})
	}
	return children, nil
}
