package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/KomuDhara/nocturne-memory/pkg/types"
)

// Catalog returns every visible entity with its current name and its
// outgoing direct edges. Relay entities are hidden and excluded. Edges from
// older viewer versions can linger under lazy migration, so edges are
// ordered newest-viewer-first and deduplicated by target entity.
func (s *Store) Catalog(ctx context.Context) ([]types.CatalogEntry, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (e:Entity)-[:CURRENT]->(s:State)
			WHERE NOT COALESCE(e.hidden, false)
			OPTIONAL MATCH (v:State)-[d:DIRECT_EDGE]->(target_state:State)
			WHERE v.entity_id = e.id
			OPTIONAL MATCH (v)-[r1:RELAY_EDGE]->(:State)
			WHERE r1.parent_direct_edge_id = d.edge_id
			  AND r1.part = 1
			WITH e, s, v, d, target_state, count(r1) AS chapter_count
			ORDER BY e.id, d.to_entity_id, v.version DESC
			WITH e, s, collect(
			    CASE WHEN d IS NOT NULL THEN {
			        target_entity_id: d.to_entity_id,
			        relation: d.relation,
			        target_name: target_state.name,
			        edge_id: d.edge_id,
			        chapter_count: chapter_count
			    } ELSE NULL END
			) AS all_edges
			RETURN e.id AS entity_id,
			       s.name AS name,
			       labels(e) AS labels,
			       all_edges AS edges
			ORDER BY e.id`, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		catalog := make([]types.CatalogEntry, 0, len(records))
		for _, record := range records {
			entry := types.CatalogEntry{
				EntityID: recordString(record, "entity_id"),
				Name:     recordString(record, "name"),
				Kind:     kindFromLabels(recordStrings(record, "labels")),
				Edges:    []types.CatalogEdge{},
			}

			rawEdges, _ := record.Get("edges")
			items, _ := rawEdges.([]any)
			seen := make(map[string]bool, len(items))
			for _, item := range items {
				props, ok := item.(map[string]any)
				if !ok || props == nil {
					continue
				}
				targetID := mapString(props, "target_entity_id")
				if seen[targetID] {
					continue
				}
				seen[targetID] = true
				entry.Edges = append(entry.Edges, types.CatalogEdge{
					TargetEntityID: targetID,
					Relation:       mapString(props, "relation"),
					TargetName:     mapString(props, "target_name"),
					EdgeID:         mapString(props, "edge_id"),
					ChapterCount:   mapInt(props, "chapter_count"),
				})
			}
			catalog = append(catalog, entry)
		}
		return catalog, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]types.CatalogEntry), nil
}

// SearchNodes runs a case-insensitive substring search over the names and
// contents of current states, plus the relations and contents of direct
// edges. kinds narrows the entity labels searched; direct edges are only
// included when no kind filter is given or "relationship" is among them.
// Substring matching has no ranking, every hit scores 1.0.
func (s *Store) SearchNodes(ctx context.Context, query string, kinds []types.EntityKind, limit int) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, validationf("search query must not be empty")
	}

	typeFilter := ""
	if len(kinds) > 0 {
		labels := make([]string, 0, len(kinds))
		for _, kind := range kinds {
			if types.IsValidEntityKind(kind) {
				labels = append(labels, fmt.Sprintf("'%s'", kind.Label()))
			}
		}
		if len(labels) > 0 {
			typeFilter = fmt.Sprintf("AND any(l IN labels(e) WHERE l IN [%s])", strings.Join(labels, ", "))
		}
	}

	includeEdges := len(kinds) == 0
	for _, kind := range kinds {
		if kind == types.KindRelationship {
			includeEdges = true
		}
	}

	cypher := fmt.Sprintf(`
		MATCH (e:Entity)-[:CURRENT]->(s:State)
		WHERE (toLower(s.name) CONTAINS toLower($query) OR toLower(s.content) CONTAINS toLower($query))
		%s
		RETURN e.id AS resource_id,
		       s.name AS name,
		       labels(e) AS labels,
		       s.content AS content`, typeFilter)
	if includeEdges {
		cypher += `
		UNION ALL
		MATCH (vs:State)-[r:DIRECT_EDGE]->(ts:State)
		WHERE (toLower(r.content) CONTAINS toLower($query) OR toLower(r.relation) CONTAINS toLower($query))
		RETURN 'rel:' + vs.entity_id + '>' + ts.entity_id AS resource_id,
		       vs.name + ' -> ' + ts.name + ' (' + r.relation + ')' AS name,
		       ['DirectEdge'] AS labels,
		       r.content AS content`
	}
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"query": query})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		// A LIMIT after a UNION binds to the last sub-query only, so the
		// cap is applied here instead.
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}

		items := make([]types.SearchResult, 0, len(records))
		for _, record := range records {
			name := recordString(record, "name")
			if name == "" {
				name = "Unnamed"
			}
			items = append(items, types.SearchResult{
				ResourceID:   recordString(record, "resource_id"),
				Name:         name,
				Kind:         kindFromLabels(recordStrings(record, "labels")),
				MatchSnippet: snippet(recordString(record, "content"), 100),
				Score:        1.0,
			})
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]types.SearchResult), nil
}
