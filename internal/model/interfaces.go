package model

import (
	"context"
	"net/http"
)

// ForgeClient defines the capability set of a hosted code forge
// (GitHub-style or GitLab-style). The envelope holds a concrete variant and
// dispatches through this interface.
type ForgeClient interface {
	// Webhook handling
	VerifyWebhook(header http.Header, payload []byte) error
	ParseWebhookEvent(payload []byte) (*CodeEvent, error)

	// MR/PR operations
	FetchChanges(ctx context.Context, projectID string, iid int) ([]*DiffItem, *MergeRequest, error)

	// Comments
	CreateInlineComment(ctx context.Context, projectID string, iid int, pos InlinePosition, body string) error
	CreateGeneralComment(ctx context.Context, projectID string, iid int, body string) error
	ListComments(ctx context.Context, projectID string, iid int) ([]*Comment, error)
	UpdateComment(ctx context.Context, projectID string, iid int, comment *Comment, body string) error

	// BlobURL builds a deep link to the forge's blob view for a line range,
	// pinned to the diff's SHAs rather than branch refs.
	BlobURL(mr *MergeRequest, path string, startLine, endLine int, side ReviewSide) string

	// WithToken derives a client using a per-request token override.
	WithToken(token string) (ForgeClient, error)
}

// InlinePosition anchors an inline comment to one side of a diff line.
type InlinePosition struct {
	NewPath   string
	OldPath   string
	Line      int
	Side      ReviewSide
	CommitSHA string
	DiffRefs  DiffRefs
}

// Notifier delivers an optional completion message to a chat webhook.
// Failures are logged and never fail the pipeline.
type Notifier interface {
	SendReviewCompleted(ctx context.Context, n *Notification) error
	SendReviewFailed(ctx context.Context, n *Notification, errMsg string) error
}

// Notification carries the fields every chat payload flavor needs.
type Notification struct {
	PushURL      string // per-request override of the configured webhook URL
	UserName     string
	ProjectName  string
	SourceBranch string
	TargetBranch string
	MRURL        string
	MRTitle      string
	ReviewsCount int
}
