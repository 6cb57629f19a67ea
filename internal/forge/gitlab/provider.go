package gitlab

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/seelehq/seele-review/internal/model"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

const (
	tokenHeader = "X-Gitlab-Token"

	defaultBaseURL = "https://gitlab.com"
	requestTimeout = 30 * time.Second
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var _ model.ForgeClient = (*Client)(nil)

// Client implements the ForgeClient interface for GitLab
type Client struct {
	client *gitlab.Client
	config model.ForgeConfig
	logger logze.Logger
}

// New creates a new GitLab client
func New(config model.ForgeConfig) (*Client, error) {
	if config.Token == "" {
		return nil, errm.New("GitLab token is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client, err := newSDKClient(baseURL, config.Token)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: client,
		config: config,
		logger: logze.With("forge", "gitlab"),
	}, nil
}

func newSDKClient(baseURL, token string) (*gitlab.Client, error) {
	client, err := gitlab.NewClient(token,
		gitlab.WithBaseURL(baseURL),
		gitlab.WithHTTPClient(&http.Client{Timeout: requestTimeout}),
	)
	if err != nil {
		return nil, errm.Wrap(err, "failed to create GitLab client")
	}
	return client, nil
}

// WithToken derives a client that authenticates with a per-request token.
func (c *Client) WithToken(token string) (model.ForgeClient, error) {
	if token == "" {
		return c, nil
	}

	baseURL := c.config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client, err := newSDKClient(baseURL, token)
	if err != nil {
		return nil, err
	}

	derived := *c
	derived.client = client
	return &derived, nil
}

// VerifyWebhook compares the plaintext token header against the configured
// secret in constant time. Verification fails closed.
func (c *Client) VerifyWebhook(header http.Header, payload []byte) error {
	if c.config.WebhookSecret == "" {
		return errm.Wrap(model.ErrAuth, "webhook secret is not configured")
	}

	token := header.Get(tokenHeader)
	if token == "" {
		return errm.Wrap(model.ErrAuth, "missing "+tokenHeader+" header")
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(c.config.WebhookSecret)) != 1 {
		return errm.Wrap(model.ErrAuth, "invalid webhook token")
	}

	return nil
}

// ParseWebhookEvent parses a GitLab merge_request webhook payload
func (c *Client) ParseWebhookEvent(payload []byte) (*model.CodeEvent, error) {
	var p gitlabPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errm.Wrap(model.ErrSchema, "failed to parse GitLab webhook payload: "+err.Error())
	}
	if p.Project.ID == 0 || p.ObjectAttributes.IID == 0 {
		return nil, errm.Wrap(model.ErrSchema, "missing project or merge request data")
	}

	attrs := p.ObjectAttributes
	return &model.CodeEvent{
		Type:      p.ObjectKind,
		Action:    attrs.Action,
		ProjectID: strconv.Itoa(p.Project.ID),
		User: &model.User{
			ID:       strconv.Itoa(p.User.ID),
			Username: p.User.Username,
			Name:     p.User.Name,
		},
		MergeRequest: &model.MergeRequest{
			ID:             strconv.Itoa(attrs.IID),
			IID:            attrs.IID,
			Title:          attrs.Title,
			Description:    attrs.Description,
			SourceBranch:   attrs.SourceBranch,
			TargetBranch:   attrs.TargetBranch,
			URL:            attrs.URL,
			State:          attrs.State,
			SHA:            attrs.LastCommit.ID,
			WorkInProgress: attrs.WorkInProgress || attrs.Draft,
		},
	}, nil
}

// FetchChanges retrieves the merge request object and its file diffs.
func (c *Client) FetchChanges(ctx context.Context, projectID string, iid int) ([]*model.DiffItem, *model.MergeRequest, error) {
	pid, err := strconv.Atoi(projectID)
	if err != nil {
		return nil, nil, errm.Wrap(err, "invalid project ID")
	}

	mr, resp, err := c.client.MergeRequests.GetMergeRequest(pid, iid, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, nil, forgeErr(resp, err, "failed to get merge request")
	}

	result := &model.MergeRequest{
		ID:           strconv.Itoa(mr.ID),
		IID:          mr.IID,
		Title:        mr.Title,
		Description:  mr.Description,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		URL:          mr.WebURL,
		State:        mr.State,
		SHA:          mr.SHA,
		DiffRefs: model.DiffRefs{
			BaseSHA:  mr.DiffRefs.BaseSha,
			StartSHA: mr.DiffRefs.StartSha,
			HeadSHA:  mr.DiffRefs.HeadSha,
		},
		WorkInProgress: mr.WorkInProgress,
		Author: model.User{
			ID:       strconv.Itoa(mr.Author.ID),
			Username: mr.Author.Username,
			Name:     mr.Author.Name,
		},
	}

	var allDiffs []*gitlab.MergeRequestDiff
	page := 1
	for {
		opts := &gitlab.ListMergeRequestDiffsOptions{
			ListOptions: gitlab.ListOptions{Page: page},
		}
		diffs, resp, err := c.client.MergeRequests.ListMergeRequestDiffs(pid, iid, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, nil, forgeErr(resp, err, "failed to list merge request diffs")
		}
		allDiffs = append(allDiffs, diffs...)
		if resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	items := make([]*model.DiffItem, 0, len(allDiffs))
	for _, diff := range allDiffs {
		items = append(items, &model.DiffItem{
			OldPath:   diff.OldPath,
			NewPath:   diff.NewPath,
			Patch:     diff.Diff,
			Status:    fileStatus(diff),
			Generated: diff.GeneratedFile,
			IsBinary:  diff.Diff == "" && !diff.DeletedFile && !diff.NewFile,
		})
	}

	return items, result, nil
}

func fileStatus(diff *gitlab.MergeRequestDiff) model.FileStatus {
	switch {
	case diff.NewFile:
		return model.FileStatusAdded
	case diff.DeletedFile:
		return model.FileStatusDeleted
	case diff.RenamedFile:
		return model.FileStatusRenamed
	default:
		return model.FileStatusModified
	}
}

// CreateInlineComment creates a positioned discussion carrying the diff refs
// and exactly one of new_line/old_line.
func (c *Client) CreateInlineComment(ctx context.Context, projectID string, iid int, pos model.InlinePosition, body string) error {
	pid, err := strconv.Atoi(projectID)
	if err != nil {
		return errm.Wrap(err, "invalid project ID")
	}

	positionType := "text"
	position := &gitlab.PositionOptions{
		BaseSHA:      &pos.DiffRefs.BaseSHA,
		StartSHA:     &pos.DiffRefs.StartSHA,
		HeadSHA:      &pos.DiffRefs.HeadSHA,
		PositionType: &positionType,
		NewPath:      &pos.NewPath,
		OldPath:      &pos.OldPath,
	}
	line := pos.Line
	if pos.Side == model.SideOld {
		position.OldLine = &line
	} else {
		position.NewLine = &line
	}

	opts := &gitlab.CreateMergeRequestDiscussionOptions{
		Body:     &body,
		Position: position,
	}
	c.logger.Debug("creating positioned discussion", "file", pos.NewPath, "line", line, "side", pos.Side)

	_, resp, err := c.client.Discussions.CreateMergeRequestDiscussion(pid, iid, opts, gitlab.WithContext(ctx))
	if err != nil {
		return forgeErr(resp, err, "failed to create merge request discussion")
	}
	return nil
}

// CreateGeneralComment posts a note to the merge request.
func (c *Client) CreateGeneralComment(ctx context.Context, projectID string, iid int, body string) error {
	pid, err := strconv.Atoi(projectID)
	if err != nil {
		return errm.Wrap(err, "invalid project ID")
	}

	opts := &gitlab.CreateMergeRequestNoteOptions{Body: &body}
	_, resp, err := c.client.Notes.CreateMergeRequestNote(pid, iid, opts, gitlab.WithContext(ctx))
	if err != nil {
		return forgeErr(resp, err, "failed to create merge request note")
	}
	return nil
}

// ListComments returns all notes of a merge request across its discussions.
func (c *Client) ListComments(ctx context.Context, projectID string, iid int) ([]*model.Comment, error) {
	pid, err := strconv.Atoi(projectID)
	if err != nil {
		return nil, errm.Wrap(err, "invalid project ID")
	}

	var comments []*model.Comment
	page := 1
	for {
		opts := &gitlab.ListMergeRequestDiscussionsOptions{Page: page}
		discussions, resp, err := c.client.Discussions.ListMergeRequestDiscussions(pid, iid, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, forgeErr(resp, err, "failed to list merge request discussions")
		}

		for _, discussion := range discussions {
			for _, note := range discussion.Notes {
				comment := &model.Comment{
					ID:   strconv.Itoa(note.ID),
					Body: note.Body,
					Author: model.User{
						ID:       strconv.Itoa(note.Author.ID),
						Username: note.Author.Username,
					},
				}
				if note.Position != nil && note.Position.NewPath != "" {
					comment.Inline = true
					comment.FilePath = note.Position.NewPath
					if note.Position.OldLine != 0 && note.Position.NewLine == 0 {
						comment.Side = model.SideOld
						comment.Line = note.Position.OldLine
						comment.FilePath = note.Position.OldPath
					} else {
						comment.Side = model.SideNew
						comment.Line = note.Position.NewLine
					}
				}
				comments = append(comments, comment)
			}
		}

		if resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	return comments, nil
}

// UpdateComment updates an existing note in place. The note is located by
// walking the merge request discussions.
func (c *Client) UpdateComment(ctx context.Context, projectID string, iid int, comment *model.Comment, body string) error {
	pid, err := strconv.Atoi(projectID)
	if err != nil {
		return errm.Wrap(err, "invalid project ID")
	}

	discussions, resp, err := c.client.Discussions.ListMergeRequestDiscussions(pid, iid, nil, gitlab.WithContext(ctx))
	if err != nil {
		return forgeErr(resp, err, "failed to list merge request discussions")
	}

	for _, discussion := range discussions {
		for _, note := range discussion.Notes {
			if strconv.Itoa(note.ID) != comment.ID {
				continue
			}
			opts := &gitlab.UpdateMergeRequestDiscussionNoteOptions{Body: &body}
			_, resp, err := c.client.Discussions.UpdateMergeRequestDiscussionNote(pid, iid, discussion.ID, note.ID, opts, gitlab.WithContext(ctx))
			if err != nil {
				return forgeErr(resp, err, "failed to update note")
			}
			return nil
		}
	}

	return errm.New("comment not found")
}

// BlobURL builds a permalink to the blob view pinned at the diff's SHA
// rather than a branch ref, which can move.
func (c *Client) BlobURL(mr *model.MergeRequest, path string, startLine, endLine int, side model.ReviewSide) string {
	projectURL := mr.URL
	if idx := strings.Index(projectURL, "/-/merge_requests/"); idx != -1 {
		projectURL = projectURL[:idx]
	}

	sha := mr.DiffRefs.HeadSHA
	if side == model.SideOld {
		sha = mr.DiffRefs.BaseSHA
	}

	return projectURL + "/-/blob/" + sha + "/" + path +
		"#L" + strconv.Itoa(startLine) + "-" + strconv.Itoa(endLine)
}

// forgeErr converts an SDK error into the typed forge error so callers can
// apply retry policy by status code.
func forgeErr(resp *gitlab.Response, err error, msg string) error {
	if resp != nil {
		return errm.Wrap(&model.ForgeError{StatusCode: resp.StatusCode, Body: err.Error()}, msg)
	}
	return errm.Wrap(err, msg)
}
