package gitlab

import (
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

func TestVerifyWebhook(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		token   string
		wantErr bool
	}{
		{"valid token", "s3cret", "s3cret", false},
		{"wrong token", "s3cret", "other", true},
		{"missing header", "s3cret", "", true},
		{"empty secret fails closed", "", "anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, tt.secret)

			header := http.Header{}
			if tt.token != "" {
				header.Set("X-Gitlab-Token", tt.token)
			}

			err := c.VerifyWebhook(header, []byte(`{}`))
			if (err != nil) != tt.wantErr {
				t.Errorf("VerifyWebhook() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, model.ErrAuth) {
				t.Errorf("error must wrap ErrAuth, got %v", err)
			}
		})
	}
}

func TestParseWebhookEvent(t *testing.T) {
	payload := []byte(`{
		"object_kind": "merge_request",
		"user": {"id": 2, "username": "bob", "name": "Bob"},
		"project": {"id": 42, "name": "proj", "path_with_namespace": "group/proj"},
		"object_attributes": {
			"iid": 7, "action": "open", "state": "opened",
			"source_branch": "feature", "target_branch": "main",
			"url": "https://gitlab.test/group/proj/-/merge_requests/7",
			"title": "Add feature", "description": "words",
			"work_in_progress": false, "draft": false,
			"last_commit": {"id": "abc123"}
		}
	}`)

	c := testClient(t, "s")
	event, err := c.ParseWebhookEvent(payload)
	if err != nil {
		t.Fatalf("ParseWebhookEvent() error = %v", err)
	}

	if event.Type != "merge_request" || event.Action != "open" {
		t.Errorf("event = %+v", event)
	}
	if event.ProjectID != "42" {
		t.Errorf("ProjectID = %q, want 42", event.ProjectID)
	}
	mr := event.MergeRequest
	if mr.IID != 7 || mr.SHA != "abc123" || mr.State != "opened" {
		t.Errorf("merge request = %+v", mr)
	}
}

func TestParseWebhookEvent_DraftFlags(t *testing.T) {
	tests := []struct {
		name    string
		attrs   string
		wantWIP bool
	}{
		{"work_in_progress", `"work_in_progress": true, "draft": false`, true},
		{"draft", `"work_in_progress": false, "draft": true`, true},
		{"neither", `"work_in_progress": false, "draft": false`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := []byte(`{
				"object_kind": "merge_request",
				"user": {"id": 1, "username": "a"},
				"project": {"id": 1},
				"object_attributes": {
					"iid": 1, "action": "open", "state": "opened",
					"title": "t", ` + tt.attrs + `,
					"last_commit": {"id": "x"}
				}
			}`)

			c := testClient(t, "s")
			event, err := c.ParseWebhookEvent(payload)
			if err != nil {
				t.Fatal(err)
			}
			if event.MergeRequest.WorkInProgress != tt.wantWIP {
				t.Errorf("WorkInProgress = %v, want %v", event.MergeRequest.WorkInProgress, tt.wantWIP)
			}
		})
	}
}

func TestParseWebhookEvent_SchemaError(t *testing.T) {
	c := testClient(t, "s")

	for _, payload := range []string{`not json`, `{"object_kind":"merge_request"}`} {
		if _, err := c.ParseWebhookEvent([]byte(payload)); !errors.Is(err, model.ErrSchema) {
			t.Errorf("payload %q: error must wrap ErrSchema, got %v", payload, err)
		}
	}
}

func TestBlobURL(t *testing.T) {
	c := testClient(t, "s")
	mr := &model.MergeRequest{
		URL: "https://gitlab.test/group/proj/-/merge_requests/7",
		DiffRefs: model.DiffRefs{
			BaseSHA: "basesha",
			HeadSHA: "headsha",
		},
	}

	got := c.BlobURL(mr, "app/main.py", 3, 9, model.SideNew)
	want := "https://gitlab.test/group/proj/-/blob/headsha/app/main.py#L3-9"
	if got != want {
		t.Errorf("BlobURL(new) = %q, want %q", got, want)
	}

	got = c.BlobURL(mr, "app/main.py", 3, 9, model.SideOld)
	want = "https://gitlab.test/group/proj/-/blob/basesha/app/main.py#L3-9"
	if got != want {
		t.Errorf("BlobURL(old) = %q, want %q", got, want)
	}
}
