package notify

import (
	"time"

	"github.com/maxbolgarin/errm"
)

// Platform selects the chat payload flavor.
type Platform string

const (
	None  Platform = "none"
	Slack Platform = "slack"
	Lark  Platform = "lark"
)

const defaultTimeout = 10 * time.Second

// Config represents notification configuration
type Config struct {
	Platform   string `yaml:"platform" env:"NOTIFY_PLATFORM" env-default:"none"`
	WebhookURL string `yaml:"webhook_url" env:"NOTIFY_WEBHOOK_URL"`
}

func (c *Config) PrepareAndValidate() error {
	switch Platform(c.Platform) {
	case None, Slack, Lark:
		return nil
	case "":
		c.Platform = string(None)
		return nil
	default:
		return errm.Errorf("unsupported notification platform: %s", c.Platform)
	}
}
