package forge

import (
	"github.com/maxbolgarin/errm"
	"github.com/seelehq/seele-review/internal/forge/github"
	"github.com/seelehq/seele-review/internal/forge/gitlab"
	"github.com/seelehq/seele-review/internal/model"
)

// New creates clients for every enabled platform.
func New(cfg Config, botName string) (map[Platform]model.ForgeClient, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}

	clients := make(map[Platform]model.ForgeClient, len(cfg.Platforms))

	if cfg.Enabled(GitHub) {
		client, err := github.New(model.ForgeConfig{
			BaseURL:       cfg.GitHubBaseURL,
			Token:         cfg.GitHubToken,
			WebhookSecret: cfg.GitHubWebhookSecret,
			BotName:       botName,
		})
		if err != nil {
			return nil, errm.Wrap(err, "failed to create github client")
		}
		clients[GitHub] = client
	}

	if cfg.Enabled(GitLab) {
		client, err := gitlab.New(model.ForgeConfig{
			BaseURL:       cfg.GitLabBaseURL,
			Token:         cfg.GitLabToken,
			WebhookSecret: cfg.GitLabWebhookSecret,
			BotName:       botName,
		})
		if err != nil {
			return nil, errm.Wrap(err, "failed to create gitlab client")
		}
		clients[GitLab] = client
	}

	return clients, nil
}
