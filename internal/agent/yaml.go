package agent

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/maxbolgarin/errm"
	"github.com/seelehq/seele-review/internal/model"
	"gopkg.in/yaml.v3"
)

var yamlBlockRe = regexp.MustCompile("(?s)```yaml\\s*(.*?)\\s*```")

// ParsedReview is the outcome of extracting and parsing the model's YAML
// answer from its Markdown response.
type ParsedReview struct {
	Reviews    []*model.ReviewItem
	RawYAML    string
	FixApplied bool
}

// ParseReviewYAML extracts the first fenced yaml block from the response,
// parses it and, on failure, retries once after a best-effort format repair.
// The original parse error is propagated when the repair does not help.
func ParseReviewYAML(markdown string) (*ParsedReview, error) {
	m := yamlBlockRe.FindStringSubmatch(markdown)
	if m == nil {
		return nil, errm.Wrap(model.ErrParse, "no yaml block in model response")
	}
	content := m[1]

	reviews, err := parseReviews(content)
	if err == nil && (len(reviews) > 0 || !strings.Contains(content, "newPath")) {
		return &ParsedReview{Reviews: reviews, RawYAML: content}, nil
	}

	// A malformed item list sometimes still parses as an unrelated mapping,
	// so an empty result that mentions review fields goes through repair too.
	fixed := repairYAML(content)
	fixedReviews, fixErr := parseReviews(fixed)
	if fixErr != nil {
		if err != nil {
			return nil, errm.Wrap(model.ErrParse, "yaml parse failed after repair: "+err.Error())
		}
		return &ParsedReview{Reviews: reviews, RawYAML: content}, nil
	}

	return &ParsedReview{Reviews: fixedReviews, RawYAML: fixed, FixApplied: true}, nil
}

func parseReviews(content string) ([]*model.ReviewItem, error) {
	var doc struct {
		Reviews []map[string]any `yaml:"reviews"`
	}
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, err
	}

	var out []*model.ReviewItem
	for _, raw := range doc.Reviews {
		if item := canonicalize(raw); item != nil {
			out = append(out, item)
		}
	}
	return out, nil
}

// canonicalize maps one raw review entry onto the typed item. Both camelCase
// and snake_case field names are accepted, numeric fields are coerced, and
// extra fields are silently dropped to stay forward-compatible with prompt
// evolution.
func canonicalize(raw map[string]any) *model.ReviewItem {
	item := &model.ReviewItem{
		NewPath:      cleanPath(stringField(raw, "newPath", "new_path", "file_path")),
		OldPath:      cleanPath(stringField(raw, "oldPath", "old_path")),
		StartLine:    intField(raw, "startLine", "start_line", "line_number"),
		EndLine:      intField(raw, "endLine", "end_line"),
		IssueHeader:  strings.TrimSpace(stringField(raw, "issueHeader", "issue_header")),
		IssueContent: strings.TrimSpace(stringField(raw, "issueContent", "issue_content", "comment")),
	}

	side := cleanPath(stringField(raw, "type"))
	if side != string(model.SideOld) {
		side = string(model.SideNew)
	}
	item.Type = model.ReviewSide(side)

	if item.NewPath == "" {
		item.NewPath = item.OldPath
	}
	if item.OldPath == "" {
		item.OldPath = item.NewPath
	}
	if item.EndLine == 0 {
		item.EndLine = item.StartLine
	}

	if item.NewPath == "" || item.StartLine < 1 || item.EndLine < item.StartLine {
		return nil
	}
	return item
}

// cleanPath strips stray newlines the model sometimes leaves inside short
// string fields, plus surrounding whitespace.
func cleanPath(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", ""))
}

func stringField(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func intField(raw map[string]any, keys ...string) int {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		case string:
			if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return parsed
			}
		}
	}
	return 0
}

var reviewFieldNames = []string{
	"newPath", "oldPath", "startLine", "endLine", "type", "issueHeader", "issueContent",
}

var blockScalarFields = map[string]bool{
	"newPath": true, "oldPath": true, "type": true, "issueHeader": true, "issueContent": true,
}

// repairYAML reformats a malformed reviews block: it detects each item start
// (tolerating a missing space after "-"), rewrites known string-valued
// fields as block scalars, keeps numeric fields inline and re-indents
// continuation lines uniformly.
func repairYAML(content string) string {
	lines := strings.Split(content, "\n")
	fixed := make([]string, 0, len(lines))
	inItem := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "- newPath:") || strings.HasPrefix(trimmed, "-newPath:") {
			inItem = true
			value := strings.TrimSpace(trimmed[strings.Index(trimmed, ":")+1:])
			fixed = append(fixed, "  - newPath: |")
			if value != "" {
				fixed = append(fixed, "      "+value)
			}
			continue
		}

		if !inItem {
			fixed = append(fixed, line)
			continue
		}

		if idx := strings.Index(trimmed, ":"); idx != -1 {
			field := strings.TrimSpace(trimmed[:idx])
			value := strings.TrimSpace(trimmed[idx+1:])

			if slices.Contains(reviewFieldNames, field) {
				if blockScalarFields[field] {
					fixed = append(fixed, "    "+field+": |")
					if value != "" {
						fixed = append(fixed, "      "+value)
					}
				} else {
					fixed = append(fixed, "    "+field+": "+value)
				}
				continue
			}

			// Unknown field name, most likely an indentation problem.
			fixed = append(fixed, "    "+trimmed)
			continue
		}

		if trimmed != "" {
			// Continuation of a block scalar value.
			fixed = append(fixed, "      "+trimmed)
			continue
		}

		fixed = append(fixed, line)
	}

	return strings.Join(fixed, "\n")
}
