package forge

import (
	"slices"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
)

// Platform identifies a forge variant.
type Platform string

const (
	GitHub Platform = "github"
	GitLab Platform = "gitlab"
)

var supportedPlatforms = []Platform{GitHub, GitLab}

const (
	defaultGitHubBaseURL = "https://api.github.com"
	defaultGitLabBaseURL = "https://gitlab.com"
)

// Config represents forge configuration for the enabled platform set.
// Webhook secrets are required: verification fails closed, so a platform
// without a secret cannot be served.
type Config struct {
	Platforms []string `yaml:"platforms" env:"PLATFORMS" env-separator:"," env-default:"gitlab"`

	GitHubBaseURL       string `yaml:"github_base_url" env:"GITHUB_API_BASE"`
	GitHubToken         string `yaml:"github_token" env:"GITHUB_API_TOKEN"`
	GitHubWebhookSecret string `yaml:"github_webhook_secret" env:"GITHUB_WEBHOOK_SECRET"`

	GitLabBaseURL       string `yaml:"gitlab_base_url" env:"GITLAB_API_BASE"`
	GitLabToken         string `yaml:"gitlab_token" env:"GITLAB_TOKEN"`
	GitLabWebhookSecret string `yaml:"gitlab_webhook_secret" env:"GITLAB_WEBHOOK_SECRET"`
}

func (c *Config) PrepareAndValidate() error {
	if len(c.Platforms) == 0 {
		return errm.New("at least one platform is required")
	}

	for _, p := range c.Platforms {
		if !slices.Contains(supportedPlatforms, Platform(p)) {
			return errm.Errorf("unsupported platform: %s", p)
		}
	}

	c.GitHubBaseURL = lang.Check(c.GitHubBaseURL, defaultGitHubBaseURL)
	c.GitLabBaseURL = lang.Check(c.GitLabBaseURL, defaultGitLabBaseURL)

	if c.Enabled(GitHub) {
		if c.GitHubToken == "" {
			return errm.New("github token is required")
		}
		if c.GitHubWebhookSecret == "" {
			return errm.New("github webhook secret is required")
		}
	}
	if c.Enabled(GitLab) {
		if c.GitLabToken == "" {
			return errm.New("gitlab token is required")
		}
		if c.GitLabWebhookSecret == "" {
			return errm.New("gitlab webhook secret is required")
		}
	}

	return nil
}

// Enabled reports whether the platform is in the configured set.
func (c *Config) Enabled(p Platform) bool {
	return slices.Contains(c.Platforms, string(p))
}
