package model

// Language selects the review language of the system prompt.
type Language string

const (
	LanguageEnglish  Language = "en"
	LanguageChinese  Language = "zh"
	LanguageJapanese Language = "ja"
)

// APIRequest represents a request to an LLM API
type APIRequest struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
	Stream       bool
}

// Prompt represents a structured prompt for the LLM
type Prompt struct {
	SystemPrompt string
	UserPrompt   string
	Language     Language
}
