// Package types defines the core data structures for the Nocturne memory
// graph: entities, versioned states, direct and relay edges, and the
// request/result shapes shared between the store and the transport layer.
package types

// EntityKind classifies an entity node. The set is closed: unknown kinds are
// rejected at the boundary rather than mapped dynamically.
type EntityKind string

const (
	KindCharacter    EntityKind = "character"
	KindLocation     EntityKind = "location"
	KindFaction      EntityKind = "faction"
	KindEvent        EntityKind = "event"
	KindItem         EntityKind = "item"
	KindRelationship EntityKind = "relationship"
)

// kindLabels maps each kind to its fixed storage label.
var kindLabels = map[EntityKind]string{
	KindCharacter:    "Character",
	KindLocation:     "Location",
	KindFaction:      "Faction",
	KindEvent:        "Event",
	KindItem:         "Item",
	KindRelationship: "Relationship",
}

// ValidEntityKinds lists all accepted entity kinds, in declaration order.
var ValidEntityKinds = []EntityKind{
	KindCharacter,
	KindLocation,
	KindFaction,
	KindEvent,
	KindItem,
	KindRelationship,
}

// IsValidEntityKind checks if the given kind is part of the closed set.
func IsValidEntityKind(kind EntityKind) bool {
	_, ok := kindLabels[kind]
	return ok
}

// Label returns the storage label for the kind, or an empty string for an
// unknown kind. Callers must validate the kind first.
func (k EntityKind) Label() string {
	return kindLabels[k]
}

// KindFromLabel maps a storage label back to its entity kind. The second
// return value is false for labels outside the closed set (including the
// generic "Entity" label).
func KindFromLabel(label string) (EntityKind, bool) {
	for kind, l := range kindLabels {
		if l == label {
			return kind, true
		}
	}
	return "", false
}

// ReservedEntityIDs are identifiers that collide with fixed API routes and
// can never be used as an entity id.
var ReservedEntityIDs = map[string]bool{
	"states": true,
}
