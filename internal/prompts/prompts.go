package prompts

import (
	"github.com/maxbolgarin/abstract"
	"github.com/seelehq/seele-review/internal/model"
)

// Builder assembles the messages sent to the model. The prompt cache is
// loaded once and read-only afterwards, so it is safe for concurrent use.
type Builder struct {
	language model.Language
	cache    *abstract.SafeMap[model.Language, string]
}

// NewBuilder creates a prompt builder for the given review language.
// Unknown languages fall back to English.
func NewBuilder(language model.Language) *Builder {
	return &Builder{
		language: language,
		cache: abstract.NewSafeMap[model.Language, string](map[model.Language]string{
			model.LanguageEnglish:  systemPromptEnglish,
			model.LanguageChinese:  systemPromptChinese,
			model.LanguageJapanese: systemPromptJapanese,
		}),
	}
}

// SystemPrompt returns the cached system prompt for the builder's language.
func (b *Builder) SystemPrompt() string {
	if prompt := b.cache.Get(b.language); prompt != "" {
		return prompt
	}
	return b.cache.Get(model.LanguageEnglish)
}

// BuildReviewPrompt pairs the system prompt with the annotated diff chunk.
// The message list is always [system, user] — no other roles.
func (b *Builder) BuildReviewPrompt(extendedDiff string) model.Prompt {
	return model.Prompt{
		SystemPrompt: b.SystemPrompt(),
		UserPrompt:   extendedDiff,
		Language:     b.language,
	}
}
