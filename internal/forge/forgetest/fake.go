// Package forgetest provides an in-memory ForgeClient for tests.
package forgetest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/seelehq/seele-review/internal/model"
)

var _ model.ForgeClient = (*Fake)(nil)

// InlineCall records one CreateInlineComment invocation.
type InlineCall struct {
	Position model.InlinePosition
	Body     string
}

// UpdateCall records one UpdateComment invocation.
type UpdateCall struct {
	CommentID string
	Body      string
}

// Fake is a scriptable in-memory forge client.
type Fake struct {
	VerifyErr error

	Event    *model.CodeEvent
	ParseErr error

	Diffs    []*model.DiffItem
	MR       *model.MergeRequest
	FetchErr error

	Comments []*model.Comment
	ListErr  error

	CreateInlineErr  error
	CreateGeneralErr error
	UpdateErr        error

	FetchCalls    int
	InlineCalls   []InlineCall
	GeneralCalls  []string
	UpdateCalls   []UpdateCall
	DerivedTokens []string
}

func (f *Fake) VerifyWebhook(header http.Header, payload []byte) error {
	return f.VerifyErr
}

func (f *Fake) ParseWebhookEvent(payload []byte) (*model.CodeEvent, error) {
	if f.ParseErr != nil {
		return nil, f.ParseErr
	}
	return f.Event, nil
}

func (f *Fake) FetchChanges(ctx context.Context, projectID string, iid int) ([]*model.DiffItem, *model.MergeRequest, error) {
	f.FetchCalls++
	if f.FetchErr != nil {
		return nil, nil, f.FetchErr
	}
	return f.Diffs, f.MR, nil
}

func (f *Fake) CreateInlineComment(ctx context.Context, projectID string, iid int, pos model.InlinePosition, body string) error {
	if f.CreateInlineErr != nil {
		return f.CreateInlineErr
	}
	f.InlineCalls = append(f.InlineCalls, InlineCall{Position: pos, Body: body})
	return nil
}

func (f *Fake) CreateGeneralComment(ctx context.Context, projectID string, iid int, body string) error {
	if f.CreateGeneralErr != nil {
		return f.CreateGeneralErr
	}
	f.GeneralCalls = append(f.GeneralCalls, body)
	return nil
}

func (f *Fake) ListComments(ctx context.Context, projectID string, iid int) ([]*model.Comment, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Comments, nil
}

func (f *Fake) UpdateComment(ctx context.Context, projectID string, iid int, comment *model.Comment, body string) error {
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.UpdateCalls = append(f.UpdateCalls, UpdateCall{CommentID: comment.ID, Body: body})
	return nil
}

func (f *Fake) BlobURL(mr *model.MergeRequest, path string, startLine, endLine int, side model.ReviewSide) string {
	sha := mr.DiffRefs.HeadSHA
	if side == model.SideOld {
		sha = mr.DiffRefs.BaseSHA
	}
	return "https://forge.test/blob/" + sha + "/" + path + "#L" + strconv.Itoa(startLine) + "-" + strconv.Itoa(endLine)
}

func (f *Fake) WithToken(token string) (model.ForgeClient, error) {
	if token != "" {
		f.DerivedTokens = append(f.DerivedTokens, token)
	}
	return f, nil
}
