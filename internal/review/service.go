package review

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/seelehq/seele-review/internal/agent"
	"github.com/seelehq/seele-review/internal/budget"
	"github.com/seelehq/seele-review/internal/model"
	"github.com/seelehq/seele-review/internal/patch"
	"github.com/seelehq/seele-review/internal/publish"
)

const (
	fetchAttempts = 3
	agentAttempts = 3

	retryBaseDelay = 500 * time.Millisecond
	retryMaxJitter = 250 * time.Millisecond
)

// Agent reviews one annotated diff chunk.
type Agent interface {
	Review(ctx context.Context, extendedDiff string) (reviews []*model.ReviewItem, fixApplied bool, err error)
}

// Budgeter counts tokens and splits the assembled diff into chunks.
type Budgeter interface {
	CountTokens(text string) int
	SplitDiff(content string) []string
}

// Service runs the review pipeline for one webhook invocation:
// fetch -> filter -> extend -> chunk -> review -> merge -> publish -> notify.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	agent    Agent
	budgeter Budgeter
	filter   *patch.Filter
	notifier model.Notifier
	cfg      Config
	log      logze.Logger
	pool     *ants.Pool
}

// NewService creates the pipeline service.
func NewService(reviewAgent Agent, budgeter Budgeter, notifier model.Notifier, cfg Config) (*Service, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}

	pool, err := ants.NewPool(cfg.FanOut)
	if err != nil {
		return nil, errm.Wrap(err, "failed to create worker pool")
	}

	return &Service{
		agent:    reviewAgent,
		budgeter: budgeter,
		filter:   patch.NewFilter(cfg.CodeExtensions, cfg.ExcludeExtensions),
		notifier: notifier,
		cfg:      cfg,
		log:      logze.With("module", "review"),
		pool:     pool,
	}, nil
}

// Run executes the pipeline for one job. Chunk parse failures yield zero
// findings for that chunk and do not abort the run; fetch and publish
// failures do.
func (s *Service) Run(ctx context.Context, fc model.ForgeClient, job *model.ReviewJob) (*model.ReviewResult, error) {
	log := s.log.WithFields("project_id", job.ProjectID, "mr_iid", job.IID, "mode", job.Mode)
	start := time.Now()

	if job.APIToken != "" {
		derived, err := fc.WithToken(job.APIToken)
		if err != nil {
			return nil, errm.Wrap(err, "failed to apply request token")
		}
		fc = derived
	}

	var (
		diffs []*model.DiffItem
		mr    *model.MergeRequest
	)
	err := retryBackoff(ctx, fetchAttempts, retryableForge, func() error {
		var err error
		diffs, mr, err = fc.FetchChanges(ctx, job.ProjectID, job.IID)
		return err
	})
	if err != nil {
		s.notifyFailure(ctx, job, mr, err, log)
		return nil, errm.Wrap(err, "failed to fetch changes")
	}

	files := s.filter.Apply(diffs, log)
	if len(files) == 0 {
		log.Info("no code file changes to review")
		return &model.ReviewResult{}, nil
	}
	if len(files) > s.cfg.MaxFilesPerMR {
		log.Warn("truncating files to review", "total", len(files), "limit", s.cfg.MaxFilesPerMR)
		files = files[:s.cfg.MaxFilesPerMR]
	}

	patch.Extend(files)
	content := patch.BuildContent(mr.Title, files)
	chunks := s.budgeter.SplitDiff(content)

	log.Info("reviewing merge request",
		"files", len(files),
		"chunks", len(chunks),
		"total_tokens", s.budgeter.CountTokens(content),
	)

	results := s.reviewChunks(ctx, chunks, log)
	merged := budget.MergeReviews(results)

	publisher := publish.New(fc, s.cfg.BotName)
	created, err := publisher.Publish(ctx, job.Mode, job.ProjectID, mr, merged, files)
	if err != nil {
		s.notifyFailure(ctx, job, mr, err, log)
		return nil, errm.Wrap(err, "failed to publish reviews")
	}

	s.notifySuccess(ctx, job, mr, len(merged), log)

	log.Info("review pipeline finished",
		"reviews", len(merged),
		"comments_created", created,
		"duration", time.Since(start),
	)

	return &model.ReviewResult{
		ProcessedFiles:  len(files),
		ChunksReviewed:  len(chunks),
		ReviewsCount:    len(merged),
		CommentsCreated: created,
	}, nil
}

// reviewChunks fans chunk reviews out over the worker pool and collects the
// results by chunk index so merging stays deterministic.
func (s *Service) reviewChunks(ctx context.Context, chunks []string, log logze.Logger) []*model.ChunkResult {
	results := make([]*model.ChunkResult, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		i, chunk := i, chunk
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			results[i] = s.reviewChunk(ctx, i, chunk, log)
		})
		if err != nil {
			wg.Done()
			results[i] = &model.ChunkResult{Index: i, Err: err}
			log.Err(err, "failed to submit chunk review", "chunk_index", i)
		}
	}
	wg.Wait()

	return results
}

// reviewChunk reviews one chunk with retry. A parse failure after repair is
// final for the chunk: it reports zero findings and the pipeline continues.
func (s *Service) reviewChunk(ctx context.Context, index int, chunk string, log logze.Logger) *model.ChunkResult {
	result := &model.ChunkResult{
		Index:      index,
		Content:    chunk,
		TokenCount: s.budgeter.CountTokens(chunk),
	}
	log = log.WithFields("chunk_index", index, "chunk_tokens", result.TokenCount)

	start := time.Now()
	err := retryBackoff(ctx, agentAttempts, agent.IsRetryable, func() error {
		reviews, fixApplied, err := s.agent.Review(ctx, chunk)
		if err != nil {
			return err
		}
		result.Reviews = reviews
		if fixApplied {
			log.Warn("yaml repair pass was applied to model output")
		}
		return nil
	})
	if err != nil {
		result.Err = err
		if errors.Is(err, model.ErrParse) {
			log.Warn("model output unparsable, chunk yields zero findings", "error", err.Error())
		} else {
			log.Err(err, "chunk review failed")
		}
		return result
	}

	log.Info("chunk reviewed", "reviews", len(result.Reviews), "duration", time.Since(start))
	return result
}

func (s *Service) notifySuccess(ctx context.Context, job *model.ReviewJob, mr *model.MergeRequest, reviewsCount int, log logze.Logger) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendReviewCompleted(ctx, s.notification(job, mr, reviewsCount)); err != nil {
		log.Warn("failed to send notification", "error", err.Error())
	}
}

func (s *Service) notifyFailure(ctx context.Context, job *model.ReviewJob, mr *model.MergeRequest, cause error, log logze.Logger) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendReviewFailed(ctx, s.notification(job, mr, 0), cause.Error()); err != nil {
		log.Warn("failed to send failure notification", "error", err.Error())
	}
}

func (s *Service) notification(job *model.ReviewJob, mr *model.MergeRequest, reviewsCount int) *model.Notification {
	n := &model.Notification{
		PushURL:      job.PushURL,
		ProjectName:  job.ProjectID,
		ReviewsCount: reviewsCount,
	}
	if job.Event != nil && job.Event.User != nil {
		n.UserName = job.Event.User.Username
	}
	if mr != nil {
		n.SourceBranch = mr.SourceBranch
		n.TargetBranch = mr.TargetBranch
		n.MRURL = mr.URL
		n.MRTitle = mr.Title
	}
	return n
}

// retryBackoff retries call with exponential backoff and jitter while the
// error stays retryable.
func retryBackoff(ctx context.Context, attempts int, retryable func(error) bool, call func() error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = call(); err == nil {
			return nil
		}
		if !retryable(err) || attempt == attempts-1 {
			return err
		}

		delay := retryBaseDelay<<attempt + time.Duration(rand.Int63n(int64(retryMaxJitter)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// retryableForge treats 429/5xx statuses and plain network failures as
// retryable; other 4xx responses are fatal for the operation.
func retryableForge(err error) bool {
	var fe *model.ForgeError
	if errors.As(err, &fe) {
		return fe.StatusCode == 429 || fe.StatusCode >= 500
	}
	return true
}
