package notify

import (
	"context"
	"fmt"

	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/seelehq/seele-review/internal/model"
)

var _ model.Notifier = (*LarkNotifier)(nil)

// LarkNotifier delivers interactive card payloads with a field grid and a
// primary action button.
type LarkNotifier struct {
	cli        *cliex.HTTP
	webhookURL string
}

type larkPayload struct {
	MsgType string         `json:"msg_type"`
	Card    map[string]any `json:"card"`
}

type larkResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// SendReviewCompleted posts the completion card. The header is green when no
// issues were found and orange otherwise.
func (l *LarkNotifier) SendReviewCompleted(ctx context.Context, n *model.Notification) error {
	webhook := resolveWebhook(l.webhookURL, n)
	if webhook == "" {
		logze.Debug("no notification webhook configured, skipping")
		return nil
	}

	icon, result, color := "✅", "No issues found", "green"
	if n.ReviewsCount > 0 {
		icon = "📝"
		result = fmt.Sprintf("%d review comment%s", n.ReviewsCount, plural(n.ReviewsCount))
		color = "orange"
	}

	elements := []any{
		map[string]any{
			"tag": "div",
			"fields": []any{
				larkField(true, "**Project:**\n"+n.ProjectName),
				larkField(true, "**Author:**\n"+n.UserName),
				larkField(true, "**MR:**\n"+larkLink(n.MRURL, n.MRTitle)),
				larkField(true, "**Result:**\n"+result),
			},
		},
		map[string]any{
			"tag": "div",
			"fields": []any{
				larkField(false, fmt.Sprintf("**Branch:**\n`%s` → `%s`", n.SourceBranch, n.TargetBranch)),
			},
		},
	}

	if n.MRURL != "" {
		elements = append(elements, map[string]any{
			"tag": "action",
			"actions": []any{map[string]any{
				"tag":  "button",
				"text": map[string]any{"tag": "plain_text", "content": "View Merge Request"},
				"type": "primary",
				"url":  n.MRURL,
			}},
		})
	}

	return l.post(ctx, webhook, larkPayload{
		MsgType: "interactive",
		Card: map[string]any{
			"config": map[string]any{"wide_screen_mode": true},
			"header": map[string]any{
				"title":    map[string]any{"tag": "plain_text", "content": icon + " AI Code Review Completed"},
				"template": color,
			},
			"elements": elements,
		},
	})
}

// SendReviewFailed posts the error card.
func (l *LarkNotifier) SendReviewFailed(ctx context.Context, n *model.Notification, errMsg string) error {
	webhook := resolveWebhook(l.webhookURL, n)
	if webhook == "" {
		return nil
	}

	return l.post(ctx, webhook, larkPayload{
		MsgType: "interactive",
		Card: map[string]any{
			"config": map[string]any{"wide_screen_mode": true},
			"header": map[string]any{
				"title":    map[string]any{"tag": "plain_text", "content": "❌ AI Code Review Failed"},
				"template": "red",
			},
			"elements": []any{
				map[string]any{
					"tag": "div",
					"fields": []any{
						larkField(false, "**Project:**\n"+n.ProjectName),
						larkField(false, "**MR:**\n"+larkLink(n.MRURL, n.MRTitle)),
						larkField(false, "**Error:**\n"+errMsg),
					},
				},
			},
		},
	})
}

// post delivers the card and checks Lark's application-level status code.
func (l *LarkNotifier) post(ctx context.Context, webhook string, payload larkPayload) error {
	var resp larkResponse
	if _, err := l.cli.Post(ctx, webhook, payload, &resp); err != nil {
		return errm.Wrap(err, "failed to deliver notification")
	}
	if resp.Code != 0 {
		return errm.Errorf("lark webhook rejected notification: %s", resp.Msg)
	}
	return nil
}

func larkField(short bool, content string) map[string]any {
	return map[string]any{
		"is_short": short,
		"text":     map[string]any{"tag": "lark_md", "content": content},
	}
}

func larkLink(url, title string) string {
	switch {
	case url != "" && title != "":
		return "[" + title + "](" + url + ")"
	case url != "":
		return "[View MR](" + url + ")"
	case title != "":
		return title
	default:
		return "N/A"
	}
}
