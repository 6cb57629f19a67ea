package publish

import (
	"strconv"
	"strings"

	"github.com/seelehq/seele-review/internal/model"
)

// Marker is the idempotency anchor embedded in every published body. It is
// the only state the service relies on across invocations: a marker-bearing
// comment found on the MR/PR is updated in place instead of duplicated.
const Marker = "<!-- powered by seele-review -->"

// DefaultBotName is the display name prepended to every published body.
const DefaultBotName = "🤖 AI Review Bot"

const issueCommentTemplate = `<table><thead><tr><td><strong>Issue</strong></td><td><strong>Description</strong></td></tr></thead>` +
	`<tbody><tr><td>__issue_header__</td><td>__issue_content__</td></tr></tbody></table>`

const issueReportRowTemplate = `<tr>
  <td>__issue_header__</td>
  <td>__issue_code_url__</td>
  <td>__issue_content__</td>
</tr>`

// renderCommentBody renders one finding as a small Markdown/HTML table with
// the bot signature and the idempotency marker on top.
func (p *Publisher) renderCommentBody(review *model.ReviewItem) string {
	table := strings.NewReplacer(
		"__issue_header__", review.IssueHeader,
		"__issue_content__", review.IssueContent,
	).Replace(issueCommentTemplate)

	return p.botName + "\n\n" + Marker + "\n\n" + table
}

// renderReportBody renders all findings as a single Markdown document with
// one HTML table and collapsible diff snippets.
func (p *Publisher) renderReportBody(mr *model.MergeRequest, reviews []*model.ReviewItem, diffs []*model.DiffItem) string {
	var rows strings.Builder

	for _, review := range reviews {
		path := review.NewPath
		if review.Type == model.SideOld {
			path = review.OldPath
		}

		link := "[Lines " + strconv.Itoa(review.StartLine) + " to " + strconv.Itoa(review.EndLine) + " in " + path + "](" +
			p.forge.BlobURL(mr, path, review.StartLine, review.EndLine, review.Type) + ")"

		if snippet := diffSnippet(findDiff(diffs, review), review.Type, review.StartLine, review.EndLine); snippet != "" {
			link += "\n<details><summary>diff</summary>\n\n```diff\n" + snippet + "\n```\n\n</details>"
		}

		rows.WriteString(strings.NewReplacer(
			"__issue_header__", review.IssueHeader,
			"__issue_code_url__", link,
			"__issue_content__", review.IssueContent,
		).Replace(issueReportRowTemplate))
		rows.WriteString("\n")
	}

	return p.botName + "\n\n" + Marker + "\n\n" +
		"## Issue List\n" +
		"<table>\n" +
		"  <thead><tr><td><strong>Issue</strong></td><td><strong>Code Location</strong></td><td><strong>Description</strong></td></tr></thead>\n" +
		"  <tbody>\n" + rows.String() + "</tbody>\n</table>"
}

func findDiff(diffs []*model.DiffItem, review *model.ReviewItem) *model.DiffItem {
	for _, diff := range diffs {
		if diff.NewPath == review.NewPath || diff.OldPath == review.OldPath {
			return diff
		}
	}
	return nil
}
