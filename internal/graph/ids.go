package graph

import (
	"strconv"
	"strings"

	"github.com/KomuDhara/nocturne-memory/pkg/types"
)

// Edge and relay-entity identities are fully recomputable from semantic
// triples, so existence checks never need a lookup table. The double
// underscore is the structural separator; component-internal runs of "__"
// are collapsed to "_" so the separator stays unambiguous.

// directRelation is the fixed relation component of a direct-edge id.
const directRelation = "DIRECT"

// relayEntityPrefix prefixes every hidden relay entity id.
const relayEntityPrefix = "relay__"

// EdgeID derives the deterministic edge id for a (from, relation, to) triple.
func EdgeID(fromEntityID, relation, toEntityID string) string {
	return collapseSeparators(fromEntityID) + "__" +
		collapseSeparators(relation) + "__" +
		collapseSeparators(toEntityID)
}

// DirectEdgeID derives the edge id of the single direct edge allowed
// between an ordered entity pair.
func DirectEdgeID(fromEntityID, toEntityID string) string {
	return EdgeID(fromEntityID, directRelation, toEntityID)
}

// RelayEntityID derives the id of the hidden relay entity that carries the
// chapter named by relation between two entities.
func RelayEntityID(fromEntityID, relation, toEntityID string) string {
	return relayEntityPrefix + EdgeID(fromEntityID, relation, toEntityID)
}

// stateID names the state node for a given entity version.
func stateID(entityID string, version int64) string {
	return entityID + "_v" + strconv.FormatInt(version, 10)
}

func collapseSeparators(component string) string {
	for strings.Contains(component, "__") {
		component = strings.ReplaceAll(component, "__", "_")
	}
	return component
}

// validateNoDoubleUnderscore rejects caller-supplied identifier components
// containing the separator. They fail outright rather than being silently
// sanitized; collapsing happens only inside edge-id composition.
func validateNoDoubleUnderscore(value, fieldName string) error {
	if strings.Contains(value, "__") {
		return validationf("%s cannot contain double underscores ('__'): %q", fieldName, value)
	}
	return nil
}

// validateEntityID checks format and reserved keywords for a new entity id.
func validateEntityID(entityID string) error {
	if entityID == "" {
		return validationf("entity_id cannot be empty")
	}
	if err := validateNoDoubleUnderscore(entityID, "entity_id"); err != nil {
		return err
	}
	if types.ReservedEntityIDs[entityID] {
		return validationf("entity_id %q is reserved for internal routes, choose a different identifier", entityID)
	}
	return nil
}
