package main

import (
	"context"
	"os"

	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/logging"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	logger, err := logging.New(cfg.Server.LogLevel, cfg.Server.Environment)
	if err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	a, err := newApp(context.Background(), cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to start task tracker")
	}

	go func() {
		if err := a.serve(); err != nil {
			logger.WithError(err).Fatal("http server failed")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"task-tracker": func(ctx context.Context) error {
				logger.Info("graceful shutdown initiated")
				return a.shutdown(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.WithField("exit_code", exitCode).Info("task tracker stopped")
	os.Exit(exitCode)
}
