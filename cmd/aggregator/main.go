package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/wb-go/wbf/zlog"

	"github.com/alexkarpov/image-hosting/internal/aggregator"
	"github.com/alexkarpov/image-hosting/internal/config"
	"github.com/alexkarpov/image-hosting/internal/infra/rabbit"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	// Connect to the broker and declare both logging queues.
	mq, err := rabbit.Connect(cfg.Rabbit.URL, cfg.Rabbit.DialTimeout)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to broker")
	}
	defer mq.Close()

	if err := mq.DeclareQueues(
		cfg.Rabbit.Queues.DatabaseLogs,
		cfg.Rabbit.Queues.WorkerLogs,
	); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to declare queues")
	}

	// The sink is one file per calendar day, fixed at startup.
	sink, err := aggregator.NewSink(cfg.Logger.Dir)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to open log sink")
	}
	defer sink.Close()

	a := aggregator.New(mq, sink, cfg.Rabbit.Queues.DatabaseLogs, cfg.Rabbit.Queues.WorkerLogs)
	if err := a.Run(ctx); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("aggregator stopped")
	}
}
