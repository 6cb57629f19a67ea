package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/servex/v2"
	"github.com/seelehq/seele-review/internal/forge"
	"github.com/seelehq/seele-review/internal/model"
	"github.com/seelehq/seele-review/internal/review"
)

const (
	githubEndpoint = "/webhook/github"
	gitlabEndpoint = "/webhook/gitlab"

	githubEventHeader = "X-GitHub-Event"

	aiModeHeader   = "X-Ai-Mode"
	pushURLHeader  = "X-Push-Url"
	apiTokenHeader = "X-Gitlab-Api-Token"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	githubActions = []string{"opened", "reopened", "synchronize"}
	gitlabActions = []string{"open", "reopen", "update"}
	openStates    = []string{"opened", "open"}
)

// Server is the webhook envelope: it authenticates, filters and hands
// interesting events off to the review pipeline.
type Server struct {
	clients map[forge.Platform]model.ForgeClient
	service *review.Service
	config  Config
	log     logze.Logger
	server  *servex.Server
}

// New creates the webhook server with one endpoint per enabled platform and
// a liveness route.
func New(cfg Config, clients map[forge.Platform]model.ForgeClient, service *review.Service) (*Server, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}

	log := logze.With("module", "server")

	srv, err := servex.NewServer(
		servex.WithReadTimeout(cfg.Timeout),
		servex.WithIdleTimeout(cfg.Timeout*2),
		servex.WithLogger(log),
		servex.WithHealthEndpoint(),
		servex.WithDefaultMetrics(),
		servex.WithCertificate(cfg.Certificate),
	)
	if err != nil {
		return nil, errm.Wrap(err, "failed to create server")
	}

	s := &Server{
		clients: clients,
		service: service,
		config:  cfg,
		log:     log,
		server:  srv,
	}

	srv.HandleFunc("/", s.handleLiveness)
	if client, ok := clients[forge.GitHub]; ok {
		srv.HandleFunc(githubEndpoint, s.webhookHandler(forge.GitHub, client))
	}
	if client, ok := clients[forge.GitLab]; ok {
		srv.HandleFunc(gitlabEndpoint, s.webhookHandler(forge.GitLab, client))
	}

	return s, nil
}

// Start starts the webhook server
func (s *Server) Start(ctx context.Context) error {
	if s.config.EnableHTTPS {
		return s.server.StartHTTPS(s.config.Address)
	}
	return s.server.StartHTTP(s.config.Address)
}

// Stop stops the webhook server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]any{"status": "ok"})
}

// webhookHandler builds the handler for one platform. The raw body is read
// before any JSON parse so signature verification sees the exact bytes.
func (s *Server) webhookHandler(platform forge.Platform, client model.ForgeClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx := servex.NewContext(w, r)
		log := s.log.WithFields("forge", platform)

		body, err := ctx.Read()
		if err != nil {
			ctx.BadRequest(err, "failed to read webhook body")
			return
		}

		if err := client.VerifyWebhook(r.Header, body); err != nil {
			// The body is never logged on auth failures.
			log.Warn("webhook verification failed", "error", err.Error())
			ctx.Unauthorized(err, "webhook verification failed")
			return
		}

		if platform == forge.GitHub {
			if event := r.Header.Get(githubEventHeader); event != "pull_request" {
				s.respondSkipped(w, "event "+event)
				return
			}
		}

		event, err := client.ParseWebhookEvent(body)
		if err != nil {
			if errors.Is(err, model.ErrSchema) {
				ctx.BadRequest(err, "invalid webhook payload")
				return
			}
			ctx.BadRequest(err, "failed to parse webhook event")
			return
		}

		log = log.WithFields("project_id", event.ProjectID, "mr_iid", event.MergeRequest.IID, "action", event.Action)

		if skip := skipReason(platform, event); skip != "" {
			log.Debug("skipping webhook event", "reason", skip)
			s.respondSkipped(w, skip)
			return
		}

		job := s.buildJob(platform, event, r)
		log.Info("processing webhook event", "mr_title", event.MergeRequest.Title, "mode", job.Mode)

		result, err := s.service.Run(r.Context(), client, job)
		if err != nil {
			log.Err(err, "failed to process webhook event")
			s.respond(w, http.StatusInternalServerError, map[string]any{
				"message": "review pipeline failed",
				"error":   err.Error(),
			})
			return
		}

		s.respond(w, http.StatusOK, map[string]any{
			"ok":            true,
			"reviews_count": result.ReviewsCount,
			"mode":          job.Mode,
		})
	}
}

// skipReason filters events down to reviewable MR/PR lifecycle transitions:
// opened/reopened/updated, still open, and not a draft.
func skipReason(platform forge.Platform, event *model.CodeEvent) string {
	mr := event.MergeRequest

	if platform == forge.GitLab && event.Type != "merge_request" {
		return "kind " + event.Type
	}

	actions := gitlabActions
	if platform == forge.GitHub {
		actions = githubActions
	}
	if !slices.Contains(actions, event.Action) {
		return "action " + event.Action
	}

	// GitHub PR webhooks carry state "open"; GitLab uses "opened".
	if mr.State != "" && !slices.Contains(openStates, mr.State) {
		return "action/state " + event.Action + "/" + mr.State
	}

	if mr.WorkInProgress || isDraftTitle(mr.Title) {
		return "draft/WIP"
	}

	return ""
}

func isDraftTitle(title string) bool {
	lower := strings.ToLower(title)
	return strings.HasPrefix(lower, "wip") || strings.HasPrefix(lower, "draft")
}

// buildJob extracts the per-request overrides: review mode, notification
// push URL and an optional forge token.
func (s *Server) buildJob(platform forge.Platform, event *model.CodeEvent, r *http.Request) *model.ReviewJob {
	job := &model.ReviewJob{
		ProjectID: event.ProjectID,
		IID:       event.MergeRequest.IID,
		Event:     event,
	}

	if platform == forge.GitHub {
		query := r.URL.Query()
		job.Mode = model.ParseReviewMode(strings.ToLower(query.Get("mode")))
		job.PushURL = query.Get("push_url")
		job.APIToken = query.Get("token")
		if job.APIToken != "" {
			s.log.Warn("forge token passed in URL, prefer configuration")
		}
		return job
	}

	job.Mode = model.ParseReviewMode(strings.ToLower(r.Header.Get(aiModeHeader)))
	job.PushURL = r.Header.Get(pushURLHeader)
	job.APIToken = r.Header.Get(apiTokenHeader)
	return job
}

func (s *Server) respondSkipped(w http.ResponseWriter, reason string) {
	s.respond(w, http.StatusOK, map[string]any{"ok": true, "skipped": reason})
}

func (s *Server) respond(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Err(err, "failed to write response")
	}
}
