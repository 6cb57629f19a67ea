package agent

import (
	"time"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/seelehq/seele-review/internal/model"
)

const (
	defaultModel       = "qwen3-max"
	defaultBaseURL     = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultTemperature = 0.2
	defaultMaxTokens   = 6000
	defaultTimeout     = 120 * time.Second
	defaultUserAgent   = "seele-review/0.1.0 (https://github.com/seelehq/seele-review)"
)

// Config represents LLM agent configuration
type Config struct {
	APIKey      string  `yaml:"api_key" env:"LLM_API_KEY"`
	Model       string  `yaml:"model" env:"LLM_MODEL"`
	BaseURL     string  `yaml:"base_url" env:"LLM_BASE_URL"`
	Temperature float32 `yaml:"temperature" env:"LLM_TEMPERATURE"`
	MaxTokens   int     `yaml:"max_tokens" env:"LLM_MAX_TOKENS"`

	Timeout   time.Duration `yaml:"timeout" env:"LLM_TIMEOUT"`
	UserAgent string        `yaml:"user_agent" env:"LLM_USER_AGENT"`

	Language model.Language `yaml:"language" env:"REVIEW_LANGUAGE"`
}

func (c *Config) PrepareAndValidate() error {
	if c.APIKey == "" {
		return errm.New("LLM api key is required")
	}

	c.Model = lang.Check(c.Model, defaultModel)
	c.BaseURL = lang.Check(c.BaseURL, defaultBaseURL)
	c.Temperature = lang.Check(c.Temperature, defaultTemperature)
	c.MaxTokens = lang.Check(c.MaxTokens, defaultMaxTokens)
	c.Timeout = lang.Check(c.Timeout, defaultTimeout)
	c.UserAgent = lang.Check(c.UserAgent, defaultUserAgent)
	c.Language = lang.Check(c.Language, model.LanguageEnglish)

	return nil
}
