package github

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/seelehq/seele-review/internal/model"
	"golang.org/x/oauth2"
)

const (
	signatureHeader = "X-Hub-Signature-256"
	signaturePrefix = "sha256="

	defaultBaseURL = "https://api.github.com"
	requestTimeout = 30 * time.Second
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var _ model.ForgeClient = (*Client)(nil)

// Client implements the ForgeClient interface for GitHub
type Client struct {
	client *github.Client
	config model.ForgeConfig
	logger logze.Logger
}

// New creates a new GitHub client
func New(config model.ForgeConfig) (*Client, error) {
	if config.Token == "" {
		return nil, errm.New("GitHub token is required")
	}

	client, err := newSDKClient(config.BaseURL, config.Token)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: client,
		config: config,
		logger: logze.With("forge", "github"),
	}, nil
}

func newSDKClient(baseURL, token string) (*github.Client, error) {
	// Classic and fine-grained personal tokens use the "token" scheme,
	// everything else is sent as a bearer token.
	tokenType := "Bearer"
	if strings.HasPrefix(token, "ghp_") || strings.HasPrefix(token, "github_pat_") {
		tokenType = "token"
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: tokenType})
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = requestTimeout

	client := github.NewClient(tc)
	if baseURL != "" && baseURL != defaultBaseURL {
		var err error
		client, err = github.NewClient(tc).WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, errm.Wrap(err, "failed to create GitHub Enterprise client")
		}
	}
	return client, nil
}

// WithToken derives a client that authenticates with a per-request token.
func (c *Client) WithToken(token string) (model.ForgeClient, error) {
	if token == "" {
		return c, nil
	}
	client, err := newSDKClient(c.config.BaseURL, token)
	if err != nil {
		return nil, err
	}
	derived := *c
	derived.client = client
	return &derived, nil
}

// VerifyWebhook checks the HMAC-SHA256 signature of the raw body against the
// configured secret. Verification fails closed: a missing secret, missing
// header or mismatched digest all reject the request.
func (c *Client) VerifyWebhook(header http.Header, payload []byte) error {
	if c.config.WebhookSecret == "" {
		return errm.Wrap(model.ErrAuth, "webhook secret is not configured")
	}

	signature := header.Get(signatureHeader)
	if signature == "" {
		return errm.Wrap(model.ErrAuth, "missing "+signatureHeader+" header")
	}
	if !strings.HasPrefix(signature, signaturePrefix) {
		return errm.Wrap(model.ErrAuth, "invalid signature format")
	}

	mac := hmac.New(sha256.New, []byte(c.config.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(strings.TrimPrefix(signature, signaturePrefix)), []byte(expected)) {
		return errm.Wrap(model.ErrAuth, "webhook signature verification failed")
	}

	return nil
}

// ParseWebhookEvent parses a GitHub pull_request webhook payload
func (c *Client) ParseWebhookEvent(payload []byte) (*model.CodeEvent, error) {
	var p githubPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errm.Wrap(model.ErrSchema, "failed to parse GitHub webhook payload: "+err.Error())
	}
	if p.Repository.FullName == "" || p.PullRequest.Number == 0 {
		return nil, errm.Wrap(model.ErrSchema, "missing repository or pull request data")
	}

	return &model.CodeEvent{
		Type:      "pull_request",
		Action:    p.Action,
		ProjectID: p.Repository.FullName, // "owner/repo"
		User: &model.User{
			ID:       strconv.Itoa(p.Sender.ID),
			Username: p.Sender.Login,
			Name:     p.Sender.Name,
		},
		MergeRequest: &model.MergeRequest{
			ID:             strconv.Itoa(p.PullRequest.ID),
			IID:            p.PullRequest.Number,
			Title:          p.PullRequest.Title,
			Description:    p.PullRequest.Body,
			SourceBranch:   p.PullRequest.Head.Ref,
			TargetBranch:   p.PullRequest.Base.Ref,
			URL:            p.PullRequest.HTMLURL,
			State:          p.PullRequest.State,
			SHA:            p.PullRequest.Head.SHA,
			WorkInProgress: p.PullRequest.Draft,
		},
	}, nil
}

// FetchChanges retrieves the pull request object and its file diffs.
func (c *Client) FetchChanges(ctx context.Context, projectID string, iid int) ([]*model.DiffItem, *model.MergeRequest, error) {
	owner, repo, err := splitProjectID(projectID)
	if err != nil {
		return nil, nil, err
	}

	pr, resp, err := c.client.PullRequests.Get(ctx, owner, repo, iid)
	if err != nil {
		return nil, nil, forgeErr(resp, err, "failed to get pull request")
	}

	mr := &model.MergeRequest{
		ID:           strconv.FormatInt(pr.GetID(), 10),
		IID:          pr.GetNumber(),
		Title:        pr.GetTitle(),
		Description:  pr.GetBody(),
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: pr.GetBase().GetRef(),
		URL:          pr.GetHTMLURL(),
		State:        pr.GetState(),
		SHA:          pr.GetHead().GetSHA(),
		DiffRefs: model.DiffRefs{
			BaseSHA:  pr.GetBase().GetSHA(),
			StartSHA: pr.GetBase().GetSHA(),
			HeadSHA:  pr.GetHead().GetSHA(),
		},
		WorkInProgress: pr.GetDraft(),
		Author: model.User{
			ID:       strconv.FormatInt(pr.GetUser().GetID(), 10),
			Username: pr.GetUser().GetLogin(),
			Name:     pr.GetUser().GetName(),
		},
	}

	opts := &github.ListOptions{PerPage: 100}
	var allFiles []*github.CommitFile
	for {
		files, resp, err := c.client.PullRequests.ListFiles(ctx, owner, repo, iid, opts)
		if err != nil {
			return nil, nil, forgeErr(resp, err, "failed to list pull request files")
		}
		allFiles = append(allFiles, files...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	items := make([]*model.DiffItem, 0, len(allFiles))
	for _, file := range allFiles {
		item := &model.DiffItem{
			OldPath:  file.GetPreviousFilename(),
			NewPath:  file.GetFilename(),
			Patch:    file.GetPatch(),
			Status:   fileStatus(file.GetStatus()),
			IsBinary: file.GetPatch() == "" && file.GetStatus() != "removed" && file.GetStatus() != "added",
		}
		if item.OldPath == "" {
			item.OldPath = item.NewPath
		}
		items = append(items, item)
	}

	return items, mr, nil
}

func fileStatus(status string) model.FileStatus {
	switch status {
	case "added":
		return model.FileStatusAdded
	case "removed":
		return model.FileStatusDeleted
	case "renamed":
		return model.FileStatusRenamed
	default:
		return model.FileStatusModified
	}
}

// CreateInlineComment posts a review comment anchored to a diff line.
func (c *Client) CreateInlineComment(ctx context.Context, projectID string, iid int, pos model.InlinePosition, body string) error {
	owner, repo, err := splitProjectID(projectID)
	if err != nil {
		return err
	}

	side := "RIGHT"
	path := pos.NewPath
	if pos.Side == model.SideOld {
		side = "LEFT"
		if pos.OldPath != "" {
			path = pos.OldPath
		}
	}
	line := pos.Line

	comment := &github.PullRequestComment{
		Body:     &body,
		CommitID: &pos.CommitSHA,
		Path:     &path,
		Line:     &line,
		Side:     &side,
	}
	c.logger.Debug("creating positioned comment", "file", path, "line", line, "side", side)

	_, resp, err := c.client.PullRequests.CreateComment(ctx, owner, repo, iid, comment)
	if err != nil {
		return forgeErr(resp, err, "failed to create review comment")
	}
	return nil
}

// CreateGeneralComment posts a comment to the issue-comments endpoint.
func (c *Client) CreateGeneralComment(ctx context.Context, projectID string, iid int, body string) error {
	owner, repo, err := splitProjectID(projectID)
	if err != nil {
		return err
	}

	_, resp, err := c.client.Issues.CreateComment(ctx, owner, repo, iid, &github.IssueComment{Body: &body})
	if err != nil {
		return forgeErr(resp, err, "failed to create issue comment")
	}
	return nil
}

// ListComments returns both general issue comments and inline review
// comments of a pull request.
func (c *Client) ListComments(ctx context.Context, projectID string, iid int) ([]*model.Comment, error) {
	owner, repo, err := splitProjectID(projectID)
	if err != nil {
		return nil, err
	}

	var comments []*model.Comment

	issueOpts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		page, resp, err := c.client.Issues.ListComments(ctx, owner, repo, iid, issueOpts)
		if err != nil {
			return nil, forgeErr(resp, err, "failed to list issue comments")
		}
		for _, ic := range page {
			comments = append(comments, &model.Comment{
				ID:   strconv.FormatInt(ic.GetID(), 10),
				Body: ic.GetBody(),
				Author: model.User{
					ID:       strconv.FormatInt(ic.GetUser().GetID(), 10),
					Username: ic.GetUser().GetLogin(),
				},
			})
		}
		if resp.NextPage == 0 {
			break
		}
		issueOpts.Page = resp.NextPage
	}

	reviewOpts := &github.PullRequestListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		page, resp, err := c.client.PullRequests.ListComments(ctx, owner, repo, iid, reviewOpts)
		if err != nil {
			return nil, forgeErr(resp, err, "failed to list review comments")
		}
		for _, rc := range page {
			side := model.SideNew
			if rc.GetSide() == "LEFT" {
				side = model.SideOld
			}
			comments = append(comments, &model.Comment{
				ID:       strconv.FormatInt(rc.GetID(), 10),
				Body:     rc.GetBody(),
				FilePath: rc.GetPath(),
				Line:     rc.GetLine(),
				Side:     side,
				Inline:   true,
				Author: model.User{
					ID:       strconv.FormatInt(rc.GetUser().GetID(), 10),
					Username: rc.GetUser().GetLogin(),
				},
			})
		}
		if resp.NextPage == 0 {
			break
		}
		reviewOpts.Page = resp.NextPage
	}

	return comments, nil
}

// UpdateComment edits an existing comment in place.
func (c *Client) UpdateComment(ctx context.Context, projectID string, iid int, comment *model.Comment, body string) error {
	owner, repo, err := splitProjectID(projectID)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(comment.ID, 10, 64)
	if err != nil {
		return errm.Wrap(err, "invalid comment ID")
	}

	if comment.Inline {
		_, resp, err := c.client.PullRequests.EditComment(ctx, owner, repo, id, &github.PullRequestComment{Body: &body})
		if err != nil {
			return forgeErr(resp, err, "failed to edit review comment")
		}
		return nil
	}

	_, resp, err := c.client.Issues.EditComment(ctx, owner, repo, id, &github.IssueComment{Body: &body})
	if err != nil {
		return forgeErr(resp, err, "failed to edit issue comment")
	}
	return nil
}

// BlobURL builds a permalink to the blob view pinned at the diff's SHA, so
// the link stays valid when branches move.
func (c *Client) BlobURL(mr *model.MergeRequest, path string, startLine, endLine int, side model.ReviewSide) string {
	repoURL := mr.URL
	if idx := strings.Index(repoURL, "/pull/"); idx != -1 {
		repoURL = repoURL[:idx]
	}

	sha := mr.DiffRefs.HeadSHA
	if side == model.SideOld {
		sha = mr.DiffRefs.BaseSHA
	}

	return repoURL + "/blob/" + sha + "/" + path +
		"#L" + strconv.Itoa(startLine) + "-L" + strconv.Itoa(endLine)
}

func splitProjectID(projectID string) (owner, repo string, err error) {
	parts := strings.Split(projectID, "/")
	if len(parts) != 2 {
		return "", "", errm.New("invalid GitHub project ID format, expected 'owner/repo'")
	}
	return parts[0], parts[1], nil
}

// forgeErr converts an SDK error into the typed forge error so callers can
// apply retry policy by status code.
func forgeErr(resp *github.Response, err error, msg string) error {
	if resp != nil {
		return errm.Wrap(&model.ForgeError{StatusCode: resp.StatusCode, Body: err.Error()}, msg)
	}
	return errm.Wrap(err, msg)
}
