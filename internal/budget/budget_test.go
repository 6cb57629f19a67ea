package budget

import (
	"strings"
	"testing"
)

// runeEncoder is a deterministic, perfectly reversible encoder: one token
// per rune.
type runeEncoder struct{}

func (runeEncoder) Encode(text string) []int {
	runes := []rune(text)
	tokens := make([]int, len(runes))
	for i, r := range runes {
		tokens[i] = int(r)
	}
	return tokens
}

func (runeEncoder) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, tok := range tokens {
		runes[i] = rune(tok)
	}
	return string(runes)
}

func newTestBudgeter(maxTokens, overlap int) *Budgeter {
	return NewWithEncoder(Config{MaxTokens: maxTokens, ChunkOverlap: overlap}, runeEncoder{})
}

func TestCountTokens(t *testing.T) {
	b := newTestBudgeter(100, 10)
	if got := b.CountTokens("hello"); got != 5 {
		t.Errorf("CountTokens = %d, want 5", got)
	}
}

func TestSplitDiff_SingleChunk(t *testing.T) {
	b := newTestBudgeter(1000, 10)
	content := "commit message: small\n\n## new_path: a.go\n## old_path: a.go\n@@ -1 +1 @@\n(1, 1)  x"

	chunks := b.SplitDiff(content)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != content {
		t.Error("single chunk must be the unmodified content")
	}
}

func TestSplitDiff_FileBoundaries(t *testing.T) {
	header := "commit message: split me"
	fileA := "## new_path: a.go\n## old_path: a.go\n" + strings.Repeat("a", 120)
	fileB := "## new_path: b.go\n## old_path: b.go\n" + strings.Repeat("b", 120)
	content := header + "\n\n" + fileA + "\n\n" + fileB + "\n\n"

	// Each file is ~155 tokens: both together exceed the budget, one fits.
	b := newTestBudgeter(250, 10)
	chunks := b.SplitDiff(content)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if !strings.HasPrefix(chunk, header) {
			t.Errorf("chunk %d must carry the commit-message header", i)
		}
		if strings.Count(chunk, "## new_path:") != 1 {
			t.Errorf("chunk %d must hold exactly one file", i)
		}
	}
	if !strings.Contains(chunks[0], "a.go") || !strings.Contains(chunks[1], "b.go") {
		t.Error("files must stay in order")
	}
}

func TestSplitDiff_SafetyMargin(t *testing.T) {
	header := "commit message: m"
	fileA := "## new_path: a.go\n" + strings.Repeat("a", 30)
	fileB := "## new_path: b.go\n" + strings.Repeat("b", 30)
	content := header + "\n\n" + fileA + "\n\n" + fileB

	total := len([]rune(content))

	// The raw budget covers the content, but the 5% margin must not.
	b := newTestBudgeter(total, 2)
	chunks := b.SplitDiff(content)
	if len(chunks) < 2 {
		t.Errorf("expected the safety margin to force a split, got %d chunk(s)", len(chunks))
	}
}

func TestSplitDiff_OversizedFileOverlap(t *testing.T) {
	const overlap = 20
	header := "commit message: big"
	body := strings.Repeat("x", 60) + strings.Repeat("y", 60) + strings.Repeat("z", 60)
	content := header + "\n\n## new_path: big.go\n" + body

	b := newTestBudgeter(100, overlap)
	chunks := b.SplitDiff(content)

	if len(chunks) < 2 {
		t.Fatalf("expected the oversized file to be sub-split, got %d chunk(s)", len(chunks))
	}

	for i, chunk := range chunks {
		if !strings.HasPrefix(chunk, header) {
			t.Errorf("chunk %d must carry the commit-message header", i)
		}
	}

	// Consecutive windows must overlap so hunks are not cut cleanly in half.
	stripHeader := func(chunk string) string {
		return strings.TrimPrefix(chunk, header+"\n\n")
	}
	for i := 0; i+1 < len(chunks); i++ {
		left := []rune(stripHeader(chunks[i]))
		right := []rune(stripHeader(chunks[i+1]))
		if len(left) < overlap || len(right) < overlap {
			continue
		}
		tail := string(left[len(left)-overlap:])
		head := string(right[:overlap])
		if tail != head {
			t.Errorf("chunks %d/%d do not overlap by %d tokens", i, i+1, overlap)
		}
	}
}

func TestSplitFiles(t *testing.T) {
	content := "commit message: t\n\n## new_path: a.go\nbody a\n\n## new_path: b.go\nbody b\n"

	header, files := splitFiles(content)

	if header != "commit message: t" {
		t.Errorf("header = %q", header)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if !strings.HasPrefix(files[0], "## new_path: a.go") {
		t.Errorf("first file = %q", files[0])
	}
	if !strings.HasPrefix(files[1], "## new_path: b.go") {
		t.Errorf("second file = %q", files[1])
	}
}
