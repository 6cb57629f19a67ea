package notify

import (
	"context"
	"fmt"

	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/logze/v2"
	"github.com/seelehq/seele-review/internal/model"
)

var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier delivers plain-text payloads with embedded links.
type SlackNotifier struct {
	cli        *cliex.HTTP
	webhookURL string
}

type slackPayload struct {
	Text string `json:"text"`
}

// SendReviewCompleted posts the completion summary.
func (s *SlackNotifier) SendReviewCompleted(ctx context.Context, n *model.Notification) error {
	webhook := resolveWebhook(s.webhookURL, n)
	if webhook == "" {
		logze.Debug("no notification webhook configured, skipping")
		return nil
	}

	icon, result := "✅", "No issues found"
	if n.ReviewsCount > 0 {
		icon = "📝"
		result = fmt.Sprintf("%d review comment%s", n.ReviewsCount, plural(n.ReviewsCount))
	}

	message := fmt.Sprintf(
		"%s *AI Code Review Completed*\n\n"+
			"*Project:* %s\n"+
			"*MR:* %s\n"+
			"*Author:* %s\n"+
			"*Branch:* `%s` → `%s`\n"+
			"*Result:* %s",
		icon, n.ProjectName, slackLink(n.MRURL, n.MRTitle), n.UserName,
		n.SourceBranch, n.TargetBranch, result,
	)

	return post(ctx, s.cli, webhook, slackPayload{Text: message})
}

// SendReviewFailed posts the error template.
func (s *SlackNotifier) SendReviewFailed(ctx context.Context, n *model.Notification, errMsg string) error {
	webhook := resolveWebhook(s.webhookURL, n)
	if webhook == "" {
		return nil
	}

	message := fmt.Sprintf(
		"❌ *AI Code Review Failed*\n\n"+
			"*Project:* %s\n"+
			"*MR:* %s\n"+
			"*Error:* %s",
		n.ProjectName, slackLink(n.MRURL, n.MRTitle), errMsg,
	)

	return post(ctx, s.cli, webhook, slackPayload{Text: message})
}

func slackLink(url, title string) string {
	switch {
	case url != "" && title != "":
		return "<" + url + "|" + title + ">"
	case url != "":
		return "<" + url + "|View MR>"
	case title != "":
		return title
	default:
		return "N/A"
	}
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}
