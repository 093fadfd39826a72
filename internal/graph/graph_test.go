package graph

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 10))
	assert.Equal(t, "long text [truncated]", snippet("long text overflowing", 9))
}

func TestSnippetCountsRunes(t *testing.T) {
	// Multi-byte text must be cut between runes, never through one.
	content := strings.Repeat("日本語", 10)
	got := snippet(content, 5)
	assert.Equal(t, "日本語日本 [truncated]", got)
	assert.True(t, utf8.ValidString(got))
}
