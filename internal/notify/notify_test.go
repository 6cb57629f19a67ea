package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/seelehq/seele-review/internal/model"
)

func notification(pushURL string) *model.Notification {
	return &model.Notification{
		PushURL:      pushURL,
		UserName:     "alice",
		ProjectName:  "group/proj",
		SourceBranch: "feature",
		TargetBranch: "main",
		MRURL:        "https://forge.test/mr/7",
		MRTitle:      "Add feature",
		ReviewsCount: 2,
	}
}

func TestSlackNotifier_SendReviewCompleted(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	n, err := New(Config{Platform: "slack", WebhookURL: srv.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := n.SendReviewCompleted(context.Background(), notification("")); err != nil {
		t.Fatalf("SendReviewCompleted() error = %v", err)
	}

	text, _ := received["text"].(string)
	for _, want := range []string{"group/proj", "alice", "feature", "main", "2 review comments", "https://forge.test/mr/7"} {
		if !strings.Contains(text, want) {
			t.Errorf("payload text missing %q: %s", want, text)
		}
	}
}

func TestSlackNotifier_PushURLOverride(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	// Configured URL is empty; per-request push URL must still deliver.
	n, err := New(Config{Platform: "slack"})
	if err != nil {
		t.Fatal(err)
	}
	if err := n.SendReviewCompleted(context.Background(), notification(srv.URL)); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("per-request push URL was not used")
	}
}

func TestSlackNotifier_NoWebhookIsNoop(t *testing.T) {
	n, err := New(Config{Platform: "slack"})
	if err != nil {
		t.Fatal(err)
	}
	if err := n.SendReviewCompleted(context.Background(), notification("")); err != nil {
		t.Errorf("missing webhook must be a silent noop, got %v", err)
	}
}

func TestLarkNotifier_CardPayload(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.Write([]byte(`{"code":0}`))
	}))
	defer srv.Close()

	n, err := New(Config{Platform: "lark", WebhookURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if err := n.SendReviewCompleted(context.Background(), notification("")); err != nil {
		t.Fatalf("SendReviewCompleted() error = %v", err)
	}

	if received["msg_type"] != "interactive" {
		t.Errorf("msg_type = %v, want interactive", received["msg_type"])
	}
	card, _ := received["card"].(map[string]any)
	if card == nil {
		t.Fatal("card missing")
	}
	header, _ := card["header"].(map[string]any)
	if header["template"] != "orange" {
		t.Errorf("header template = %v, want orange for findings", header["template"])
	}
}

func TestLarkNotifier_ApplicationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":19001,"msg":"bad webhook"}`))
	}))
	defer srv.Close()

	n, err := New(Config{Platform: "lark", WebhookURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if err := n.SendReviewCompleted(context.Background(), notification("")); err == nil {
		t.Error("lark application error must surface as an error")
	}
}

func TestNew_UnsupportedPlatform(t *testing.T) {
	if _, err := New(Config{Platform: "teams"}); err == nil {
		t.Error("expected an error for an unsupported platform")
	}
}
