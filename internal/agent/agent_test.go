package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seelehq/seele-review/internal/model"
	"github.com/seelehq/seele-review/internal/prompts"
)

const streamedYAML = "```yaml\n" +
	"reviews:\n" +
	"  - newPath: main.py\n" +
	"    oldPath: main.py\n" +
	"    type: new\n" +
	"    startLine: 5\n" +
	"    endLine: 5\n" +
	"    issueHeader: Off by one\n" +
	"    issueContent: Loop bound misses the last element.\n" +
	"```"

// sseServer streams the given answer back in small SSE deltas.
func sseServer(t *testing.T, answer string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"overloaded"}}`)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < len(answer); i += 7 {
			end := i + 7
			if end > len(answer) {
				end = len(answer)
			}
			delta, _ := json.Marshal(map[string]any{
				"choices": []any{map[string]any{"delta": map[string]any{"content": answer[i:end]}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", delta)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func newTestAgent(t *testing.T, baseURL string) *Agent {
	t.Helper()
	a, err := New(Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
	}, prompts.NewBuilder(model.LanguageEnglish))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestAgent_Review_StreamAccumulated(t *testing.T) {
	srv := sseServer(t, streamedYAML, http.StatusOK)
	defer srv.Close()

	a := newTestAgent(t, srv.URL)

	reviews, fixApplied, err := a.Review(context.Background(), "commit message: t\n\n## new_path: main.py\n...")
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if fixApplied {
		t.Error("no repair expected")
	}
	if len(reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(reviews))
	}
	if reviews[0].NewPath != "main.py" || reviews[0].EndLine != 5 {
		t.Errorf("unexpected review: %+v", reviews[0])
	}
}

func TestAgent_Review_ServerErrorRetryable(t *testing.T) {
	srv := sseServer(t, "", http.StatusInternalServerError)
	defer srv.Close()

	a := newTestAgent(t, srv.URL)

	_, _, err := a.Review(context.Background(), "diff")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsRetryable(err) {
		t.Errorf("5xx from the model must be retryable, got %v", err)
	}
}

func TestAgent_Review_ParseFailureNotRetryable(t *testing.T) {
	srv := sseServer(t, "no yaml here, sorry", http.StatusOK)
	defer srv.Close()

	a := newTestAgent(t, srv.URL)

	_, _, err := a.Review(context.Background(), "diff")
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if !errors.Is(err, model.ErrParse) {
		t.Errorf("error must wrap ErrParse, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("parse failures must not be retried")
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, prompts.NewBuilder(model.LanguageEnglish))
	if err == nil {
		t.Fatal("expected an error for a missing API key")
	}
}
