package merge

import "strings"

// AttemptAutoMerge performs a best-effort three-way textual merge. It
// succeeds only when Compare finds no overlapping edits; even then a
// divergent same-line edit discovered during the walk aborts the merge.
// The second return value reports success.
func AttemptAutoMerge(base, yours, theirs string) (string, bool) {
	result := Compare(base, yours, theirs)
	if !result.CanAutoMerge {
		return "", false
	}

	baseLines := splitLines(base)
	yourLines := splitLines(yours)
	theirLines := splitLines(theirs)

	maxLines := len(baseLines)
	if len(yourLines) > maxLines {
		maxLines = len(yourLines)
	}
	if len(theirLines) > maxLines {
		maxLines = len(theirLines)
	}

	merged := make([]string, 0, maxLines)
	for i := 0; i < maxLines; i++ {
		switch {
		case i < len(yourLines) && i < len(theirLines) && i < len(baseLines):
			yourChanged := yourLines[i] != baseLines[i]
			theirChanged := theirLines[i] != baseLines[i]
			switch {
			case yourChanged && theirChanged:
				if yourLines[i] != theirLines[i] {
					// Divergent edits on the same line.
					return "", false
				}
				merged = append(merged, yourLines[i])
			case yourChanged:
				merged = append(merged, yourLines[i])
			case theirChanged:
				merged = append(merged, theirLines[i])
			default:
				merged = append(merged, baseLines[i])
			}
		case i < len(yourLines) && i < len(baseLines):
			merged = append(merged, yourLines[i])
		case i < len(theirLines) && i < len(baseLines):
			merged = append(merged, theirLines[i])
		case i < len(yourLines):
			merged = append(merged, yourLines[i])
		case i < len(theirLines):
			merged = append(merged, theirLines[i])
		}
	}

	out := strings.Join(merged, "\n")
	if out != "" && (strings.HasSuffix(yours, "\n") || strings.HasSuffix(theirs, "\n")) {
		out += "\n"
	}
	return out, true
}

// CreateMarkedMerge renders a merge for client-side resolution. Conflicting
// regions of theirs are replaced with conflict marker blocks carrying both
// sides; conflict-free inputs fall back to the automatic merge.
func CreateMarkedMerge(base, yours, theirs string) string {
	result := Compare(base, yours, theirs)

	if len(result.Conflicts) == 0 {
		if merged, ok := AttemptAutoMerge(base, yours, theirs); ok {
			return merged
		}
		return theirs
	}

	lines := append([]string(nil), splitLines(theirs)...)

	// Walk conflicts back to front so earlier splices keep their offsets.
	for i := len(result.Conflicts) - 1; i >= 0; i-- {
		c := result.Conflicts[i]
		section := []string{
			MarkerCurrent,
			c.CurrentContent,
			MarkerSeparator,
			c.YourContent,
			MarkerYours,
		}

		if c.StartLine < len(lines) {
			end := c.EndLine
			if end > len(lines) {
				end = len(lines)
			}
			tail := append([]string(nil), lines[end:]...)
			lines = append(lines[:c.StartLine], append(section, tail...)...)
		} else {
			lines = append(lines, section...)
		}
	}

	marked := strings.Join(lines, "\n")
	if marked != "" && strings.HasSuffix(theirs, "\n") {
		marked += "\n"
	}
	return marked
}
