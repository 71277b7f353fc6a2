package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/wb-go/wbf/zlog"

	"github.com/alexkarpov/image-hosting/internal/config"
	"github.com/alexkarpov/image-hosting/internal/infra/rabbit"
	"github.com/alexkarpov/image-hosting/internal/processor"
	"github.com/alexkarpov/image-hosting/internal/publisher"
	"github.com/alexkarpov/image-hosting/internal/superres"
	"github.com/alexkarpov/image-hosting/internal/worker"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	// Connect to the broker and declare the queues this process touches.
	mq, err := rabbit.Connect(cfg.Rabbit.URL, cfg.Rabbit.DialTimeout)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to broker")
	}
	defer mq.Close()

	if err := mq.DeclareQueues(
		cfg.Rabbit.Queues.Jobs,
		cfg.Rabbit.Queues.WorkerLogs,
	); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to declare queues")
	}

	// Worker-side telemetry goes to the workers logging queue.
	logs := publisher.NewLogPublisher(mq, cfg.Rabbit.Queues.WorkerLogs)

	// Transformation pipeline with the super-resolution collaborator.
	upscaler := superres.New(cfg.Upscale.Endpoint, cfg.Upscale.Timeout)
	proc := processor.New(upscaler, logs)

	w := worker.New(mq, proc, logs, cfg.Rabbit.Queues.Jobs)
	if err := w.Run(ctx); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("worker stopped")
	}
}
