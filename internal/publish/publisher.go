package publish

import (
	"context"
	"strconv"
	"strings"

	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
	"github.com/seelehq/seele-review/internal/model"
)

// Publisher renders merged findings as Markdown and posts them back onto the
// MR/PR, either as inline comments or as a single summary report.
type Publisher struct {
	forge   model.ForgeClient
	botName string
	log     logze.Logger
}

// New creates a publisher for one forge client.
func New(forge model.ForgeClient, botName string) *Publisher {
	return &Publisher{
		forge:   forge,
		botName: lang.Check(botName, DefaultBotName),
		log:     logze.With("module", "publish"),
	}
}

// Publish posts the findings in the requested mode and returns the number of
// comments created or updated. Individual inline-comment failures are logged
// and skipped; the loop continues.
func (p *Publisher) Publish(
	ctx context.Context,
	mode model.ReviewMode,
	projectID string,
	mr *model.MergeRequest,
	reviews []*model.ReviewItem,
	diffs []*model.DiffItem,
) (int, error) {
	if len(reviews) == 0 {
		return 0, nil
	}

	existing := p.listMarkerComments(ctx, projectID, mr.IID)

	if mode == model.ModeReport {
		return p.publishReport(ctx, projectID, mr, reviews, diffs, existing)
	}
	return p.publishComments(ctx, projectID, mr, reviews, existing)
}

// publishComments posts one inline comment per finding at end_line of the
// referenced side. Existing marker comments at the same (path, line, side)
// are updated in place instead of duplicated.
func (p *Publisher) publishComments(
	ctx context.Context,
	projectID string,
	mr *model.MergeRequest,
	reviews []*model.ReviewItem,
	existing []*model.Comment,
) (int, error) {
	inlineIndex := make(map[string]*model.Comment)
	for _, comment := range existing {
		if comment.Inline {
			inlineIndex[inlineKey(comment.FilePath, comment.Line, comment.Side)] = comment
		}
	}

	created := 0
	for _, review := range reviews {
		log := p.log.WithFields("file", review.NewPath, "line", review.EndLine, "side", review.Type)

		body := p.renderCommentBody(review)

		path := review.NewPath
		if review.Type == model.SideOld && review.OldPath != "" {
			path = review.OldPath
		}

		if prior, ok := inlineIndex[inlineKey(path, review.EndLine, review.Type)]; ok {
			if err := p.forge.UpdateComment(ctx, projectID, mr.IID, prior, body); err != nil {
				log.Err(err, "failed to update inline comment")
				continue
			}
			created++
			continue
		}

		pos := model.InlinePosition{
			NewPath:   review.NewPath,
			OldPath:   review.OldPath,
			Line:      review.EndLine,
			Side:      review.Type,
			CommitSHA: mr.SHA,
			DiffRefs:  mr.DiffRefs,
		}
		if err := p.forge.CreateInlineComment(ctx, projectID, mr.IID, pos, body); err != nil {
			log.Err(err, "failed to create inline comment")
			continue
		}
		created++
	}

	return created, nil
}

// publishReport posts all findings as a single general comment, updating the
// previous marker-bearing report when one exists.
func (p *Publisher) publishReport(
	ctx context.Context,
	projectID string,
	mr *model.MergeRequest,
	reviews []*model.ReviewItem,
	diffs []*model.DiffItem,
	existing []*model.Comment,
) (int, error) {
	body := p.renderReportBody(mr, reviews, diffs)

	for _, comment := range existing {
		if comment.Inline {
			continue
		}
		if err := p.forge.UpdateComment(ctx, projectID, mr.IID, comment, body); err != nil {
			return 0, err
		}
		return 1, nil
	}

	if err := p.forge.CreateGeneralComment(ctx, projectID, mr.IID, body); err != nil {
		return 0, err
	}
	return 1, nil
}

// listMarkerComments returns the existing marker-bearing comments. Lookup
// failures degrade to creating fresh comments.
func (p *Publisher) listMarkerComments(ctx context.Context, projectID string, iid int) []*model.Comment {
	comments, err := p.forge.ListComments(ctx, projectID, iid)
	if err != nil {
		p.log.Warn("failed to list existing comments, posting fresh ones", "error", err.Error())
		return nil
	}

	var marked []*model.Comment
	for _, comment := range comments {
		if strings.Contains(comment.Body, Marker) {
			marked = append(marked, comment)
		}
	}
	return marked
}

func inlineKey(path string, line int, side model.ReviewSide) string {
	return path + ":" + strconv.Itoa(line) + ":" + string(side)
}
