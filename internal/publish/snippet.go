package publish

import (
	"strings"

	"github.com/seelehq/seele-review/internal/model"
	"github.com/seelehq/seele-review/internal/patch"
)

const (
	snippetContextBefore = 3
	snippetContextAfter  = 3
)

// diffSnippet reconstructs the part of the raw patch around a finding, with
// three lines of context before start and after end. Line numbers are
// tracked per hunk on the side the finding references.
func diffSnippet(item *model.DiffItem, side model.ReviewSide, startLine, endLine int) string {
	if item == nil || item.Patch == "" {
		return ""
	}

	targetStart := startLine - snippetContextBefore
	targetEnd := endLine + snippetContextAfter

	var out []string
	for _, hunk := range patch.SplitHunks(item.Patch) {
		oldNo := hunk.OldStart
		newNo := hunk.NewStart

		for _, line := range hunk.Lines[1:] {
			lineNo := newNo
			if side == model.SideOld {
				lineNo = oldNo
			}
			if targetStart <= lineNo && lineNo <= targetEnd {
				out = append(out, line)
			}

			switch {
			case strings.HasPrefix(line, "-"):
				oldNo++
			case strings.HasPrefix(line, "+"):
				newNo++
			default:
				oldNo++
				newNo++
			}
		}
	}

	return strings.Join(out, "\n")
}
