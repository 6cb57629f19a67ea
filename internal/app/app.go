package app

import (
	"context"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/seelehq/seele-review/internal/agent"
	"github.com/seelehq/seele-review/internal/budget"
	"github.com/seelehq/seele-review/internal/config"
	"github.com/seelehq/seele-review/internal/forge"
	"github.com/seelehq/seele-review/internal/model"
	"github.com/seelehq/seele-review/internal/notify"
	"github.com/seelehq/seele-review/internal/prompts"
	"github.com/seelehq/seele-review/internal/review"
	"github.com/seelehq/seele-review/internal/server"
)

// Seele is the main service that wires all components together.
type Seele struct {
	config  config.Config
	logger  logze.Logger
	clients map[forge.Platform]model.ForgeClient
	agent   *agent.Agent
	service *review.Service
	server  *server.Server
}

// New creates the service from configuration.
func New(cfg config.Config, logger logze.Logger) *Seele {
	return &Seele{
		config: cfg,
		logger: logger,
	}
}

// Initialize builds all components. Missing required secrets fail here, at
// process start.
func (s *Seele) Initialize(ctx context.Context) error {
	s.logger.Info("initializing review service",
		"platforms", s.config.Forge.Platforms,
		"model", s.config.Agent.Model,
	)

	var err error
	s.clients, err = forge.New(s.config.Forge, s.config.Review.BotName)
	if err != nil {
		return errm.Wrap(err, "failed to create forge clients")
	}

	promptBuilder := prompts.NewBuilder(s.config.Agent.Language)

	s.agent, err = agent.New(s.config.Agent, promptBuilder)
	if err != nil {
		return errm.Wrap(err, "failed to create agent")
	}

	// The token budgeter follows the review model unless overridden.
	if s.config.Budget.Model == "" {
		s.config.Budget.Model = s.config.Agent.Model
	}
	budgeter, err := budget.New(s.config.Budget)
	if err != nil {
		return errm.Wrap(err, "failed to create token budgeter")
	}

	notifier, err := notify.New(s.config.Notify)
	if err != nil {
		return errm.Wrap(err, "failed to create notifier")
	}

	s.service, err = review.NewService(s.agent, budgeter, notifier, s.config.Review)
	if err != nil {
		return errm.Wrap(err, "failed to create review service")
	}

	s.server, err = server.New(s.config.Server, s.clients, s.service)
	if err != nil {
		return errm.Wrap(err, "failed to create webhook server")
	}

	s.logger.Info("review service initialized successfully")
	return nil
}

// Start starts the webhook server and blocks until the context is cancelled.
func (s *Seele) Start(ctx context.Context) error {
	if err := s.server.Start(ctx); err != nil {
		return errm.Wrap(err, "failed to start webhook server")
	}

	s.logger.Info("review service started")
	<-ctx.Done()

	if err := s.server.Stop(context.Background()); err != nil {
		s.logger.Err(err, "failed to stop webhook server gracefully")
	}

	s.logger.Info("review service stopped")
	return nil
}
