package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"testing"

	"github.com/seelehq/seele-review/internal/model"
)

func testClient(t *testing.T, secret string) *Client {
	t.Helper()
	c, err := New(model.ForgeConfig{Token: "token", WebhookSecret: secret})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhook(t *testing.T) {
	payload := []byte(`{"action":"opened"}`)

	tests := []struct {
		name      string
		secret    string
		signature string
		wantErr   bool
	}{
		{"valid signature", "s3cret", sign("s3cret", payload), false},
		{"wrong secret", "s3cret", sign("other", payload), true},
		{"missing header", "s3cret", "", true},
		{"bad format", "s3cret", "sha1=abcdef", true},
		{"empty secret fails closed", "", sign("", payload), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, tt.secret)

			header := http.Header{}
			if tt.signature != "" {
				header.Set("X-Hub-Signature-256", tt.signature)
			}

			err := c.VerifyWebhook(header, payload)
			if (err != nil) != tt.wantErr {
				t.Errorf("VerifyWebhook() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, model.ErrAuth) {
				t.Errorf("error must wrap ErrAuth, got %v", err)
			}
		})
	}
}

func TestVerifyWebhook_TamperedBody(t *testing.T) {
	c := testClient(t, "s3cret")

	header := http.Header{}
	header.Set("X-Hub-Signature-256", sign("s3cret", []byte("original")))

	if err := c.VerifyWebhook(header, []byte("tampered")); err == nil {
		t.Error("tampered body must be rejected")
	}
}

func TestParseWebhookEvent(t *testing.T) {
	payload := []byte(`{
		"action": "opened",
		"pull_request": {
			"id": 99, "number": 12, "title": "Add feature", "body": "desc",
			"state": "open", "draft": true,
			"head": {"ref": "feature", "sha": "headsha"},
			"base": {"ref": "main", "sha": "basesha"},
			"html_url": "https://github.com/o/r/pull/12",
			"user": {"id": 1, "login": "alice"}
		},
		"repository": {"id": 3, "name": "r", "full_name": "o/r"},
		"sender": {"id": 1, "login": "alice"}
	}`)

	c := testClient(t, "s")
	event, err := c.ParseWebhookEvent(payload)
	if err != nil {
		t.Fatalf("ParseWebhookEvent() error = %v", err)
	}

	if event.Type != "pull_request" || event.Action != "opened" {
		t.Errorf("event = %+v", event)
	}
	if event.ProjectID != "o/r" {
		t.Errorf("ProjectID = %q, want o/r", event.ProjectID)
	}
	mr := event.MergeRequest
	if mr.IID != 12 || mr.SourceBranch != "feature" || mr.TargetBranch != "main" || mr.SHA != "headsha" {
		t.Errorf("merge request = %+v", mr)
	}
	if !mr.WorkInProgress {
		t.Error("draft flag must map to WorkInProgress")
	}
}

func TestParseWebhookEvent_SchemaError(t *testing.T) {
	c := testClient(t, "s")

	for _, payload := range []string{`not json`, `{"action":"opened"}`} {
		if _, err := c.ParseWebhookEvent([]byte(payload)); !errors.Is(err, model.ErrSchema) {
			t.Errorf("payload %q: error must wrap ErrSchema, got %v", payload, err)
		}
	}
}

func TestBlobURL(t *testing.T) {
	c := testClient(t, "s")
	mr := &model.MergeRequest{
		URL: "https://github.com/o/r/pull/12",
		DiffRefs: model.DiffRefs{
			BaseSHA: "basesha",
			HeadSHA: "headsha",
		},
	}

	got := c.BlobURL(mr, "pkg/main.go", 10, 20, model.SideNew)
	want := "https://github.com/o/r/blob/headsha/pkg/main.go#L10-L20"
	if got != want {
		t.Errorf("BlobURL(new) = %q, want %q", got, want)
	}

	got = c.BlobURL(mr, "pkg/main.go", 10, 20, model.SideOld)
	want = "https://github.com/o/r/blob/basesha/pkg/main.go#L10-L20"
	if got != want {
		t.Errorf("BlobURL(old) = %q, want %q", got, want)
	}
}

func TestFileStatus(t *testing.T) {
	tests := []struct {
		in   string
		want model.FileStatus
	}{
		{"added", model.FileStatusAdded},
		{"removed", model.FileStatusDeleted},
		{"renamed", model.FileStatusRenamed},
		{"modified", model.FileStatusModified},
		{"changed", model.FileStatusModified},
	}
	for _, tt := range tests {
		if got := fileStatus(tt.in); got != tt.want {
			t.Errorf("fileStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
