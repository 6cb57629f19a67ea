package notify

import (
	"context"

	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/errm"
	"github.com/seelehq/seele-review/internal/model"
)

// New creates a notifier for the configured platform. The "none" platform
// still honors per-request push URLs by falling back to the Slack-style
// plain text payload, matching the original webhook override behavior.
func New(cfg Config) (model.Notifier, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}

	cli, err := cliex.NewWithConfig(cliex.Config{
		RequestTimeout: defaultTimeout,
	})
	if err != nil {
		return nil, errm.Wrap(err, "failed to create HTTP client")
	}

	switch Platform(cfg.Platform) {
	case Lark:
		return &LarkNotifier{cli: cli, webhookURL: cfg.WebhookURL}, nil
	default:
		return &SlackNotifier{cli: cli, webhookURL: cfg.WebhookURL}, nil
	}
}

// resolveWebhook picks the per-request push URL over the configured one.
// An empty result means notification is disabled for this request.
func resolveWebhook(configured string, n *model.Notification) string {
	if n != nil && n.PushURL != "" {
		return n.PushURL
	}
	return configured
}

func post(ctx context.Context, cli *cliex.HTTP, url string, payload any) error {
	var resp map[string]any
	if _, err := cli.Post(ctx, url, payload, &resp); err != nil {
		return errm.Wrap(err, "failed to deliver notification")
	}
	return nil
}
