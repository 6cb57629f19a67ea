package budget

import (
	"strings"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
	"github.com/pkoukk/tiktoken-go"
)

const (
	defaultMaxTokens = 8000
	defaultOverlap   = 200

	// fallbackEncoding is used when the configured model has no known encoder.
	fallbackEncoding = "cl100k_base"

	// separatorTokens accounts for the "\n\n" joining files inside a chunk.
	separatorTokens = 2

	filePathMarker = "## new_path:"
)

// Config holds the token budgeting options.
type Config struct {
	Model        string `yaml:"model" env:"BUDGET_MODEL"`
	MaxTokens    int    `yaml:"max_tokens" env:"BUDGET_MAX_TOKENS"`
	ChunkOverlap int    `yaml:"chunk_overlap" env:"BUDGET_CHUNK_OVERLAP"`
}

// Encoder turns text into tokens and back. The production implementation
// wraps a tiktoken encoding; tests may substitute a deterministic one.
type Encoder interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Budgeter keeps every model call under the configured token budget and
// merges per-chunk outputs losslessly. It is stateless per call and safe for
// concurrent use.
type Budgeter struct {
	enc Encoder
	cfg Config
	log logze.Logger
}

// New creates a budgeter with a model-appropriate token encoder, falling
// back to a generic byte-pair encoder for unknown models.
func New(cfg Config) (*Budgeter, error) {
	enc, err := tiktoken.EncodingForModel(cfg.Model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, errm.Wrap(err, "failed to get fallback encoding")
		}
	}
	return NewWithEncoder(cfg, tiktokenEncoder{enc}), nil
}

// NewWithEncoder creates a budgeter around an explicit encoder.
func NewWithEncoder(cfg Config, enc Encoder) *Budgeter {
	cfg.MaxTokens = lang.Check(cfg.MaxTokens, defaultMaxTokens)
	cfg.ChunkOverlap = lang.Check(cfg.ChunkOverlap, defaultOverlap)

	return &Budgeter{
		enc: enc,
		cfg: cfg,
		log: logze.With("module", "budget"),
	}
}

type tiktokenEncoder struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenEncoder) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t tiktokenEncoder) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// CountTokens counts tokens in text.
func (b *Budgeter) CountTokens(text string) int {
	return len(b.enc.Encode(text))
}

// limit is the effective per-chunk budget: the configured maximum minus a 5%
// safety margin against pessimistic encoder overhead.
func (b *Budgeter) limit() int {
	return b.cfg.MaxTokens - b.cfg.MaxTokens/20
}

// SplitDiff splits the assembled diff content into chunks that fit the token
// budget. Splitting happens along file boundaries; a single file that alone
// exceeds the budget is sub-split by raw token windows with overlap. Every
// chunk is a standalone prompt carrying the commit-message header.
func (b *Budgeter) SplitDiff(content string) []string {
	limit := b.limit()

	if b.CountTokens(content) <= limit {
		return []string{content}
	}

	header, files := splitFiles(content)
	headerTokens := 0
	if header != "" {
		headerTokens = b.CountTokens(header) + separatorTokens
	}

	var chunks []string
	var current []string
	currentTokens := headerTokens

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, b.assemble(header, current))
		current = nil
		currentTokens = headerTokens
	}

	for _, file := range files {
		fileTokens := b.CountTokens(file)

		if headerTokens+fileTokens > limit {
			flush()
			b.log.Warn("single file exceeds token budget, splitting by token windows",
				"file_tokens", fileTokens, "limit", limit)
			for _, part := range b.splitByTokens(file, limit-headerTokens) {
				chunks = append(chunks, b.assemble(header, []string{part}))
			}
			continue
		}

		if currentTokens+fileTokens+separatorTokens > limit {
			flush()
		}
		current = append(current, file)
		currentTokens += fileTokens + separatorTokens
	}
	flush()

	return chunks
}

func (b *Budgeter) assemble(header string, files []string) string {
	if header == "" {
		return strings.Join(files, "\n\n")
	}
	return header + "\n\n" + strings.Join(files, "\n\n")
}

// splitByTokens splits text into raw token windows of at most limit tokens,
// overlapping by the configured chunk overlap to avoid cutting a hunk
// cleanly in half.
func (b *Budgeter) splitByTokens(text string, limit int) []string {
	tokens := b.enc.Encode(text)
	if len(tokens) <= limit {
		return []string{text}
	}

	var parts []string
	start := 0
	for start < len(tokens) {
		end := min(start+limit, len(tokens))
		parts = append(parts, b.enc.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
		start = end - b.cfg.ChunkOverlap
	}

	return parts
}

// splitFiles separates the leading commit-message header from the per-file
// segments delimited by "## new_path:" markers.
func splitFiles(content string) (header string, files []string) {
	lines := strings.Split(content, "\n")

	i := 0
	var headerLines []string
	for ; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], filePathMarker) {
			break
		}
		headerLines = append(headerLines, lines[i])
	}
	header = strings.TrimSpace(strings.Join(headerLines, "\n"))

	var current []string
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, filePathMarker) && len(current) > 0 {
			files = append(files, strings.TrimRight(strings.Join(current, "\n"), "\n"))
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		file := strings.TrimRight(strings.Join(current, "\n"), "\n")
		if strings.TrimSpace(file) != "" {
			files = append(files, file)
		}
	}

	return header, files
}
