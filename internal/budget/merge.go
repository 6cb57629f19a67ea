package budget

import (
	"sort"
	"strings"

	"github.com/seelehq/seele-review/internal/model"
)

// MergeReviews flattens per-chunk review lists into one deduplicated list.
// Results are processed in chunk-index order so the merge is deterministic
// regardless of review fan-out. The first finding at a given
// (new_path, start_line, end_line, type) coordinate wins; later findings at
// the same coordinate have their content appended with a "---" separator
// unless it is already contained.
func MergeReviews(results []*model.ChunkResult) []*model.ReviewItem {
	sorted := make([]*model.ChunkResult, 0, len(results))
	for _, result := range results {
		if result != nil {
			sorted = append(sorted, result)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	seen := make(map[string]*model.ReviewItem)
	var merged []*model.ReviewItem

	for _, result := range sorted {
		for _, review := range result.Reviews {
			if review == nil {
				continue
			}
			key := review.Key()
			existing, ok := seen[key]
			if !ok {
				seen[key] = review
				merged = append(merged, review)
				continue
			}
			if review.IssueContent == "" || strings.Contains(existing.IssueContent, review.IssueContent) {
				continue
			}
			existing.IssueContent = strings.TrimSpace(existing.IssueContent + "\n---\n" + review.IssueContent)
		}
	}

	return merged
}
