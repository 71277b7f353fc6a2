package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"github.com/alexkarpov/image-hosting/internal/api/handlers/image"
	"github.com/alexkarpov/image-hosting/internal/api/router"
	"github.com/alexkarpov/image-hosting/internal/api/server"
	"github.com/alexkarpov/image-hosting/internal/config"
	"github.com/alexkarpov/image-hosting/internal/infra/rabbit"
	"github.com/alexkarpov/image-hosting/internal/publisher"
	imagerepo "github.com/alexkarpov/image-hosting/internal/repository/image"
	imagesvc "github.com/alexkarpov/image-hosting/internal/service/image"
	"github.com/alexkarpov/image-hosting/internal/storage/file"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	// Connect to PostgreSQL (master and slaves).
	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Connect to the broker and declare the queues this process publishes to.
	// A process that cannot reach its queues must not run.
	mq, err := rabbit.Connect(cfg.Rabbit.URL, cfg.Rabbit.DialTimeout)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to broker")
	}
	defer mq.Close()

	if err := mq.DeclareQueues(
		cfg.Rabbit.Queues.Jobs,
		cfg.Rabbit.Queues.DatabaseLogs,
		cfg.Rabbit.Queues.WorkerLogs,
	); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to declare queues")
	}

	// Initialize file storage.
	storage, err := file.NewStorage(cfg.Storage.Dir)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	// Initialize repository, publishers, and the service layer.
	repo := imagerepo.NewRepository(db)
	jobs := publisher.NewJobPublisher(mq, cfg.Rabbit.Queues.Jobs)
	logs := publisher.NewLogPublisher(mq, cfg.Rabbit.Queues.DatabaseLogs)
	service := imagesvc.NewService(repo, storage, jobs, logs)

	// HTTP handler for image routes.
	imgHandler := image.NewHandler(service)

	// Start HTTP server in a separate goroutine.
	r := router.Setup(imgHandler)
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Close master and slave databases.
	if err := db.Master.Close(); err != nil {
		zlog.Logger.Printf("failed to close master DB: %v", err)
	}
	for i, s := range db.Slaves {
		if err := s.Close(); err != nil {
			zlog.Logger.Printf("failed to close slave DB %d: %v", i, err)
		}
	}
}
