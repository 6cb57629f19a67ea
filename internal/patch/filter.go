package patch

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/maxbolgarin/logze/v2"
	"github.com/seelehq/seele-review/internal/model"
)

// DefaultCodeExtensions lists file extensions that are always reviewed.
var DefaultCodeExtensions = []string{
	".py", ".js", ".jsx", ".ts", ".tsx", ".json", ".html", ".css", ".scss",
	".go", ".rs", ".java", ".kt", ".c", ".h", ".cpp", ".hpp",
	".yml", ".yaml", ".toml", ".sh", ".sql",
}

// DefaultExcludeExtensions lists extensions that never reach the model.
var DefaultExcludeExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".svg", ".ico",
	".pdf", ".zip", ".tar", ".gz", ".rar", ".7z",
	".exe", ".dll", ".so", ".dylib", ".bin",
	".mp4", ".avi", ".mov", ".mp3", ".wav",
	".ttf", ".woff", ".woff2", ".eot",
}

// Filter drops diff items that must not reach the model: deleted and binary
// files, oversized/collapsed/generated records, excluded extensions. A file
// is kept iff its extension is in the code set, or it is not excluded and
// carries non-empty UTF-8 patch text.
type Filter struct {
	codeExtensions    map[string]struct{}
	excludeExtensions map[string]struct{}
}

// NewFilter builds a filter from extension sets, using the defaults when a
// set is empty.
func NewFilter(codeExtensions, excludeExtensions []string) *Filter {
	if len(codeExtensions) == 0 {
		codeExtensions = DefaultCodeExtensions
	}
	if len(excludeExtensions) == 0 {
		excludeExtensions = DefaultExcludeExtensions
	}

	f := &Filter{
		codeExtensions:    make(map[string]struct{}, len(codeExtensions)),
		excludeExtensions: make(map[string]struct{}, len(excludeExtensions)),
	}
	for _, ext := range codeExtensions {
		f.codeExtensions[strings.ToLower(ext)] = struct{}{}
	}
	for _, ext := range excludeExtensions {
		f.excludeExtensions[strings.ToLower(ext)] = struct{}{}
	}
	return f
}

// Apply returns the items that survive filtering.
func (f *Filter) Apply(items []*model.DiffItem, log logze.Logger) []*model.DiffItem {
	var kept []*model.DiffItem

	for _, item := range items {
		if item.Status == model.FileStatusDeleted || item.IsBinary {
			continue
		}
		if item.TooLarge || item.Collapsed || item.Generated {
			log.Debug("skipping oversized or generated file", "file", item.NewPath)
			continue
		}
		if !f.keep(item) {
			log.Debug("skipping non-code file", "file", item.NewPath)
			continue
		}
		kept = append(kept, item)
	}

	return kept
}

func (f *Filter) keep(item *model.DiffItem) bool {
	path := item.NewPath
	if path == "" {
		path = item.OldPath
	}
	ext := strings.ToLower(filepath.Ext(path))

	if _, ok := f.codeExtensions[ext]; ok {
		return true
	}
	if _, ok := f.excludeExtensions[ext]; ok {
		return false
	}
	return item.Patch != "" && utf8.ValidString(item.Patch)
}
