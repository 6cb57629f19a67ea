package config

import (
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/maxbolgarin/errm"
	"github.com/seelehq/seele-review/internal/agent"
	"github.com/seelehq/seele-review/internal/budget"
	"github.com/seelehq/seele-review/internal/forge"
	"github.com/seelehq/seele-review/internal/notify"
	"github.com/seelehq/seele-review/internal/review"
	"github.com/seelehq/seele-review/internal/server"
)

// Config represents the main application configuration
type Config struct {
	Forge  forge.Config  `yaml:"forge"`
	Agent  agent.Config  `yaml:"agent"`
	Budget budget.Config `yaml:"budget"`
	Review review.Config `yaml:"review"`
	Notify notify.Config `yaml:"notify"`

	Server server.Config `yaml:"server"`
}

// Load reads configuration from a YAML file, or from the environment when no
// path is given.
func Load(path string) (Config, error) {
	cfg := Config{}

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, errm.Wrap(err, "failed to load config from env")
		}
		return cfg, nil
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return Config{}, errm.Wrap(err, "failed to load config")
	}

	return cfg, nil
}
