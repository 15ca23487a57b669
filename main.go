// package main is the entry point of the weekly report backend: it loads the
// configuration, opens the store, wires the tracker client and the
// services, and serves the HTTP API until SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/siriusuniversity/report-backend/database"
	report "github.com/siriusuniversity/report-backend/events/modules/reports"
	gqlschema "github.com/siriusuniversity/report-backend/graphql"
	"github.com/siriusuniversity/report-backend/internal/api"
	"github.com/siriusuniversity/report-backend/internal/config"
	"github.com/siriusuniversity/report-backend/internal/kafka"
	"github.com/siriusuniversity/report-backend/internal/logger"
	"github.com/siriusuniversity/report-backend/internal/services"
	"github.com/siriusuniversity/report-backend/internal/tracker"
	"github.com/siriusuniversity/report-backend/internal/uploads"
	"github.com/siriusuniversity/report-backend/restapi"
	"github.com/siriusuniversity/report-backend/restapi/modules/auth"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "report-backend: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	trackerClient := tracker.New(cfg.Tracker, log)
	files := uploads.New(cfg.UploadDir)

	signer, err := auth.NewSigner(cfg.SecretKey)
	if err != nil {
		return err
	}
	sessions := auth.NewSessions(signer, store, cfg.AdminLogins, !cfg.IsDev(), log)
	oauth := auth.NewOAuth(cfg.OAuth, trackerClient, sessions, log)

	var events services.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := kafka.Ping(pingCtx, cfg.Kafka, log); err != nil {
			log.Warn("kafka unreachable, report events may be lost", zap.Error(err))
		}
		cancel()

		producer := report.NewReportProducer(cfg.Kafka)
		defer producer.Close()
		events = producer
		log.Info("report events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	schema, err := gqlschema.CreateSchema(store)
	if err != nil {
		return fmt.Errorf("create GraphQL schema: %w", err)
	}

	app := api.NewFiberApp(cfg, restapi.Deps{
		Sessions:  sessions,
		OAuth:     oauth,
		Reports:   services.NewReportService(store, trackerClient, files, events, cfg.Tracker.WebURL, cfg.Tracker.NextStatus, log),
		Tasks:     services.NewTaskService(store, trackerClient, cfg.PublicBaseURL, cfg.Tracker.StartStatus, log),
		Dashboard: services.NewDashboardService(store, trackerClient, cfg.Tracker.Queue, log),
		Users:     store,
		Tracker:   trackerClient,
		Uploads:   files,
		Schema:    schema,
		Log:       log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.AppEnv))
		errCh <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}
