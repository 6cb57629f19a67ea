package patch

import (
	"strings"

	"github.com/seelehq/seele-review/internal/model"
)

// Extend annotates every diff item in place: AnnotatedDiff gets per-line
// (old, new) prefixes and NewLines/OldLines map post-hunk line numbers to the
// raw marker-bearing lines. Items with an empty patch are left untouched.
func Extend(items []*model.DiffItem) {
	for _, item := range items {
		if item.Patch == "" {
			continue
		}

		var annotated []string
		newLines := make(map[int]string)
		oldLines := make(map[int]string)

		for _, hunk := range SplitHunks(item.Patch) {
			hunkLines, hunkNew, hunkOld := annotateHunk(hunk)
			annotated = append(annotated, hunkLines...)
			for no, line := range hunkNew {
				newLines[no] = line
			}
			for no, line := range hunkOld {
				oldLines[no] = line
			}
		}

		item.AnnotatedDiff = strings.Join(annotated, "\n")
		item.NewLines = newLines
		item.OldLines = oldLines
	}
}

// BuildContent assembles the annotated diffs into the text handed to the
// model: a one-line commit message header, then per file a two-line path
// header followed by the annotated diff. Items without an annotated diff are
// omitted.
func BuildContent(commitMessage string, items []*model.DiffItem) string {
	var b strings.Builder
	b.WriteString("commit message: ")
	b.WriteString(commitMessage)
	b.WriteString("\n\n")

	for _, item := range items {
		if item.AnnotatedDiff == "" {
			continue
		}
		b.WriteString("## new_path: ")
		b.WriteString(item.NewPath)
		b.WriteString("\n## old_path: ")
		b.WriteString(item.OldPath)
		b.WriteString("\n")
		b.WriteString(item.AnnotatedDiff)
		b.WriteString("\n\n")
	}

	return b.String()
}
