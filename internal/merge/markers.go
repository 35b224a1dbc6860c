package merge

import "strings"

// Conflict marker lines emitted by CreateMarkedMerge. Stripping accepts any
// label after the angle brackets, so git-style markers resolve too.
const (
	MarkerCurrent   = "<<<<<<< CURRENT CHANGES"
	MarkerSeparator = "======="
	MarkerYours     = ">>>>>>> YOUR CHANGES"

	markerCurrentPrefix = "<<<<<<< "
	markerYoursPrefix   = ">>>>>>> "
)

// ExtractResolvedContent strips conflict markers from a resolved text,
// keeping the accepted (your) side of every block and every line outside the
// blocks. Input without markers is returned verbatim.
func ExtractResolvedContent(content string) string {
	if !strings.Contains(content, markerCurrentPrefix) {
		return content
	}

	var resolved []string
	inConflict := false
	currentSection := false

	for _, line := range splitLines(content) {
		if strings.HasPrefix(line, markerCurrentPrefix) {
			inConflict = true
			currentSection = true
			continue
		}
		if line == MarkerSeparator {
			currentSection = false
			continue
		}
		if strings.HasPrefix(line, markerYoursPrefix) {
			inConflict = false
			continue
		}
		if !inConflict || !currentSection {
			resolved = append(resolved, line)
		}
	}

	out := strings.Join(resolved, "\n")
	if out != "" && strings.HasSuffix(content, "\n") {
		out += "\n"
	}
	return out
}
