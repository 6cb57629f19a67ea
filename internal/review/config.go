package review

import (
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
)

const (
	defaultMaxFilesPerMR = 50
	defaultFanOut        = 1
	maxFanOut            = 16
)

// Config represents review pipeline configuration
type Config struct {
	BotName       string `yaml:"bot_name" env:"REVIEW_BOT_NAME"`
	MaxFilesPerMR int    `yaml:"max_files_per_mr" env:"REVIEW_MAX_FILES_PER_MR"`

	// FanOut bounds how many chunks are reviewed concurrently. The default
	// of 1 preserves strict rate control towards the model API.
	FanOut int `yaml:"fan_out" env:"REVIEW_FAN_OUT"`

	CodeExtensions    []string `yaml:"code_extensions" env:"REVIEW_CODE_EXTENSIONS" env-separator:","`
	ExcludeExtensions []string `yaml:"exclude_extensions" env:"REVIEW_EXCLUDE_EXTENSIONS" env-separator:","`
}

func (c *Config) PrepareAndValidate() error {
	c.MaxFilesPerMR = lang.Check(c.MaxFilesPerMR, defaultMaxFilesPerMR)
	c.FanOut = lang.Check(c.FanOut, defaultFanOut)

	if c.FanOut < 0 || c.FanOut > maxFanOut {
		return errm.Errorf("fan_out must be between 1 and %d", maxFanOut)
	}

	return nil
}
