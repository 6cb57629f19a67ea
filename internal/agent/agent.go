package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/seelehq/seele-review/internal/model"
	"github.com/seelehq/seele-review/internal/prompts"
)

const chatCompletionsPath = "/chat/completions"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Agent reviews annotated diff chunks through an OpenAI-compatible
// chat completion endpoint in streaming mode.
type Agent struct {
	cfg Config
	cli *cliex.HTTP
	pb  *prompts.Builder
	log logze.Logger
}

// New creates an agent. It fails fast when the API key is missing.
func New(cfg Config, pb *prompts.Builder) (*Agent, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}

	cli, err := cliex.NewWithConfig(cliex.Config{
		BaseURL:        cfg.BaseURL,
		UserAgent:      cfg.UserAgent,
		RequestTimeout: cfg.Timeout,
	})
	if err != nil {
		return nil, errm.Wrap(err, "failed to create HTTP client")
	}
	cli.C().SetAuthToken(cfg.APIKey)

	return &Agent{
		cfg: cfg,
		cli: cli,
		pb:  pb,
		log: logze.With("module", "agent"),
	}, nil
}

// Review sends one annotated diff chunk to the model and returns the parsed
// findings. fixApplied reports whether the YAML repair pass was needed.
func (a *Agent) Review(ctx context.Context, extendedDiff string) (reviews []*model.ReviewItem, fixApplied bool, err error) {
	prompt := a.pb.BuildReviewPrompt(extendedDiff)

	answer, err := a.complete(ctx, model.APIRequest{
		SystemPrompt: prompt.SystemPrompt,
		Prompt:       prompt.UserPrompt,
		Temperature:  a.cfg.Temperature,
		MaxTokens:    a.cfg.MaxTokens,
		Stream:       true,
	})
	if err != nil {
		return nil, false, err
	}

	parsed, err := ParseReviewYAML(answer)
	if err != nil {
		return nil, false, err
	}

	return parsed.Reviews, parsed.FixApplied, nil
}

// complete calls the chat completion endpoint and accumulates the streamed
// delta tokens into a single response string. On error the partial text is
// discarded.
func (a *Agent) complete(ctx context.Context, req model.APIRequest) (string, error) {
	body := chatCompletionRequest{
		Model: a.cfg.Model,
		Messages: []message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	}

	resp, err := a.cli.C().R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetDoNotParseResponse(true).
		Post(chatCompletionsPath)
	if err != nil {
		return "", errm.Wrap(err, "failed to call chat completion API")
	}

	raw := resp.RawBody()
	defer raw.Close()

	if resp.StatusCode() >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(raw, 4096))
		return "", &statusError{status: resp.StatusCode(), body: string(errBody)}
	}

	var answer strings.Builder
	scanner := bufio.NewScanner(raw)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			a.log.Debug("skipping malformed stream chunk", "error", err.Error())
			continue
		}
		if chunk.Error != nil {
			return "", errm.Errorf("chat completion API error: %s", chunk.Error.Message)
		}
		for _, choice := range chunk.Choices {
			answer.WriteString(choice.Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", errm.Wrap(err, "stream interrupted")
	}

	if answer.Len() == 0 {
		return "", errm.New("empty response from model")
	}

	return answer.String(), nil
}

// statusError marks a non-2xx chat completion response.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("chat completion API returned status %d: %s", e.status, e.body)
}

// IsRetryable reports whether a review call may be retried: network errors
// and 429/5xx responses qualify, parse failures do not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status == 429 || se.status >= 500
	}
	if errors.Is(err, model.ErrParse) {
		return false
	}
	// Network and timeout errors carry no status.
	return true
}
