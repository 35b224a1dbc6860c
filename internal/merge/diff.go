package merge

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// TextChange is a single line-level edit relative to a base text. Deletions
// span one base line (EndLine == StartLine+1); insertions are zero-width
// (EndLine == StartLine). Line ranges are half-open over base lines.
type TextChange struct {
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Content   string `json:"content"`
}

// Conflict is an overlapping pair of edits that cannot be merged
// automatically. Content fields carry the affected line region from each of
// the three texts, joined with \n.
type Conflict struct {
	StartLine      int    `json:"start_line"`
	EndLine        int    `json:"end_line"`
	BaseContent    string `json:"base_content"`
	YourContent    string `json:"your_content"`
	CurrentContent string `json:"current_content"`
}

// Result is the outcome of a three-way comparison. Changes concatenates the
// base->yours and base->theirs line edits; CanAutoMerge is true iff no two
// edits overlap.
type Result struct {
	Changes      []TextChange `json:"changes"`
	Conflicts    []Conflict   `json:"conflicts"`
	CanAutoMerge bool         `json:"can_auto_merge"`
}

// Compare diffs both modified texts against their common base and detects
// overlapping edit regions.
func Compare(base, yours, theirs string) Result {
	yourChanges := DiffLines(base, yours)
	theirChanges := DiffLines(base, theirs)

	changes := make([]TextChange, 0, len(yourChanges)+len(theirChanges))
	changes = append(changes, yourChanges...)
	changes = append(changes, theirChanges...)

	conflicts := detectConflicts(yourChanges, theirChanges, base, yours, theirs)

	return Result{
		Changes:      changes,
		Conflicts:    conflicts,
		CanAutoMerge: len(conflicts) == 0,
	}
}

// DiffLines computes the line-level edits that turn oldText into newText.
// Positions are tracked in oldText coordinates: deletions and unchanged
// lines advance the cursor, insertions do not.
func DiffLines(oldText, newText string) []TextChange {
	changes := []TextChange{}
	if oldText == newText {
		return changes
	}

	dmp := diffmatchpatch.New()
	src, dst, lineArray := dmp.DiffLinesToRunes(oldText, newText)
	diffs := dmp.DiffMainRunes(src, dst, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	line := 0
	for _, d := range diffs {
		segment := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			for _, content := range segment {
				changes = append(changes, TextChange{StartLine: line, EndLine: line + 1, Content: content})
				line++
			}
		case diffmatchpatch.DiffInsert:
			for _, content := range segment {
				changes = append(changes, TextChange{StartLine: line, EndLine: line, Content: content})
			}
		case diffmatchpatch.DiffEqual:
			line += len(segment)
		}
	}

	return changes
}

func detectConflicts(yourChanges, theirChanges []TextChange, base, yours, theirs string) []Conflict {
	conflicts := []Conflict{}

	baseLines := splitLines(base)
	yourLines := splitLines(yours)
	theirLines := splitLines(theirs)

	for _, yc := range yourChanges {
		for _, tc := range theirChanges {
			if !changesOverlap(yc, tc) {
				continue
			}
			conflicts = append(conflicts, Conflict{
				StartLine:      yc.StartLine,
				EndLine:        yc.EndLine,
				BaseContent:    extractLines(baseLines, yc.StartLine, yc.EndLine),
				YourContent:    extractLines(yourLines, yc.StartLine, yc.EndLine),
				CurrentContent: extractLines(theirLines, tc.StartLine, tc.EndLine),
			})
		}
	}

	return conflicts
}

// changesOverlap reports whether two half-open line ranges intersect.
// Zero-width insertions only collide when they fall strictly inside the
// other change's span, so edits on adjacent lines stay mergeable.
func changesOverlap(a, b TextChange) bool {
	return a.StartLine < b.EndLine && b.StartLine < a.EndLine
}

func extractLines(lines []string, start, end int) string {
	if start > len(lines) {
		start = len(lines)
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

// splitLines yields the \n-delimited lines of s without a trailing empty
// element: "a\nb\n" and "a\nb" both produce ["a" "b"].
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
