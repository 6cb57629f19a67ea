package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/seelehq/seele-review/internal/app"
	"github.com/seelehq/seele-review/internal/config"
)

var (
	Version, Branch, Commit, BuildDate string
)

func main() {
	configPath := kingpin.Flag("config", "path to config file").Short('c').String()
	kingpin.Parse()

	logze.Info("starting seele-review",
		"version", Version,
		"branch", Branch,
		"commit", Commit,
		"build_date", BuildDate,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logze.Info("received shutdown signal")
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		logze.Fatal(err, "application failed")
	}
}

func run(ctx context.Context, configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return errm.Wrap(err, "failed to load config")
	}

	logger := logze.With("service", "seele-review")

	service := app.New(cfg, logger)
	if err := service.Initialize(ctx); err != nil {
		return errm.Wrap(err, "failed to initialize review service")
	}

	if err := service.Start(ctx); err != nil {
		return errm.Wrap(err, "failed to start review service")
	}

	return nil
}
