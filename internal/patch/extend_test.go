package patch

import (
	"strings"
	"testing"

	"github.com/seelehq/seele-review/internal/model"
)

func TestExtend(t *testing.T) {
	items := []*model.DiffItem{
		{
			NewPath: "main.py",
			OldPath: "main.py",
			Patch:   "@@ -1,3 +1,4 @@\n import os\n+import sys\n \n print(1)",
		},
		{NewPath: "empty.py", OldPath: "empty.py"},
	}

	Extend(items)

	if items[0].AnnotatedDiff == "" {
		t.Fatal("expected annotated diff for first item")
	}
	if !strings.HasPrefix(items[0].AnnotatedDiff, "@@ -1,3 +1,4 @@") {
		t.Errorf("annotated diff must keep the hunk header first, got %q", items[0].AnnotatedDiff)
	}
	if got := items[0].NewLines[2]; got != "+import sys" {
		t.Errorf("NewLines[2] = %q, want %q", got, "+import sys")
	}
	for no, line := range items[0].OldLines {
		if line == "+import sys" {
			t.Errorf("added line must not appear in OldLines, found at %d", no)
		}
	}

	if items[1].AnnotatedDiff != "" {
		t.Error("item without patch must stay untouched")
	}
}

// Annotated lines must strip back to the raw patch lines recorded in the
// line maps.
func TestExtend_RawLinesRecoverable(t *testing.T) {
	item := &model.DiffItem{
		NewPath: "a.go",
		OldPath: "a.go",
		Patch:   "@@ -10,3 +10,3 @@\n keep\n-was\n+is",
	}

	Extend([]*model.DiffItem{item})

	raw := strings.Split(item.Patch, "\n")[1:]
	annotated := strings.Split(item.AnnotatedDiff, "\n")[1:]
	if len(annotated) != len(raw) {
		t.Fatalf("got %d annotated lines, want %d", len(annotated), len(raw))
	}

	for i, want := range raw {
		line := annotated[i]

		// The prefix block has a uniform width per hunk, so stripping it
		// recovers the original patch line.
		prefix := line[:len(line)-len(want)]
		if !strings.HasPrefix(prefix, "(") || !strings.Contains(prefix, ")") {
			t.Fatalf("line %d: unexpected prefix %q", i, prefix)
		}
		if got := line[len(prefix):]; got != want {
			t.Errorf("line %d: recovered %q, want %q", i, got, want)
		}
	}
}

func TestBuildContent(t *testing.T) {
	items := []*model.DiffItem{
		{NewPath: "a.go", OldPath: "a.go", AnnotatedDiff: "@@ -1 +1 @@\n(1, 1)  x"},
		{NewPath: "skipped.go", OldPath: "skipped.go"},
	}

	content := BuildContent("fix bug", items)

	if !strings.HasPrefix(content, "commit message: fix bug\n\n") {
		t.Errorf("content must start with the commit message header, got %q", content)
	}
	if !strings.Contains(content, "## new_path: a.go\n## old_path: a.go\n") {
		t.Error("content must carry the two-line file header")
	}
	if strings.Contains(content, "skipped.go") {
		t.Error("files without an annotated diff must be omitted")
	}
}
