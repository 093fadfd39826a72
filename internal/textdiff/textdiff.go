// Package textdiff renders the difference between two versions of a text
// block in the three shapes the journal surfaces: highlighted HTML for
// display, a line-oriented unified diff, and a one-line summary.
package textdiff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Result holds the three renderings of one comparison.
type Result struct {
	HTML    string `json:"diff_html"`
	Unified string `json:"diff_unified"`
	Summary string `json:"summary"`
}

// Diff compares oldText and newText.
func Diff(oldText, newText string) Result {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	return Result{
		HTML:    dmp.DiffPrettyHtml(diffs),
		Unified: unified(oldText, newText),
		Summary: summarize(diffs, oldText, newText),
	}
}

// unified renders a git-style unified diff with a single hunk covering the
// whole texts. Fine-grained hunk splitting is not worth it for journal
// snapshots, which are compared whole.
func unified(oldText, newText string) string {
	if oldText == newText {
		return ""
	}
	oldLines := splitLines(oldText)
	newLines := splitLines(newText)

	var b strings.Builder
	b.WriteString("--- old_version\n")
	b.WriteString("+++ new_version\n")
	fmt.Fprintf(&b, "@@ -1,%d +1,%d @@\n", len(oldLines), len(newLines))

	dmp := diffmatchpatch.New()
	a, c, lineArray := dmp.DiffLinesToChars(oldText, newText)
	lineDiffs := dmp.DiffCharsToLines(dmp.DiffMain(a, c, false), lineArray)

	for _, d := range lineDiffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range splitLines(d.Text) {
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func summarize(diffs []diffmatchpatch.Diff, oldText, newText string) string {
	var additions, deletions int
	for _, d := range diffs {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			additions += n
		case diffmatchpatch.DiffDelete:
			deletions += n
		}
	}

	totalOld := len([]rune(oldText))
	totalNew := len([]rune(newText))

	if totalOld == 0 {
		return fmt.Sprintf("all new content, %d characters", totalNew)
	}
	if totalNew == 0 {
		return fmt.Sprintf("all content removed, was %d characters", totalOld)
	}

	changeRatio := float64(additions+deletions) / float64(totalOld+totalNew) * 100
	switch {
	case changeRatio < 5:
		return fmt.Sprintf("minor change: +%d/-%d characters", additions, deletions)
	case changeRatio < 20:
		return fmt.Sprintf("moderate change: +%d/-%d characters", additions, deletions)
	default:
		return fmt.Sprintf("major change: +%d/-%d characters (%.1f%%)", additions, deletions, changeRatio)
	}
}
