package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEntityKind(t *testing.T) {
	for _, kind := range ValidEntityKinds {
		assert.True(t, IsValidEntityKind(kind), "kind %q should be valid", kind)
	}

	assert.False(t, IsValidEntityKind("dragon"))
	assert.False(t, IsValidEntityKind(""))
	assert.False(t, IsValidEntityKind("Character"), "labels are not kinds")
}

func TestKindLabelRoundTrip(t *testing.T) {
	for _, kind := range ValidEntityKinds {
		label := kind.Label()
		assert.NotEmpty(t, label)

		back, ok := KindFromLabel(label)
		assert.True(t, ok)
		assert.Equal(t, kind, back)
	}
}

func TestKindFromLabelRejectsGenericLabel(t *testing.T) {
	_, ok := KindFromLabel("Entity")
	assert.False(t, ok)

	_, ok = KindFromLabel("character")
	assert.False(t, ok, "lookup is by storage label, not kind")
}

func TestUnknownKindHasNoLabel(t *testing.T) {
	assert.Empty(t, EntityKind("dragon").Label())
}
