package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobyard/sui-indexer/internal/config"
	"github.com/bobyard/sui-indexer/internal/worker"
	"github.com/bobyard/sui-indexer/pkg/db/postgres"
	nftstore "github.com/bobyard/sui-indexer/pkg/db/postgres/nft"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const queueStatsInterval = time.Minute

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("ignoring .env file", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	setupLogging(cfg.LogLevel)

	slog.Info("starting supply worker",
		"chain_id", cfg.ChainID,
		"consumer_group", cfg.ConsumerGroup,
		"concurrency", cfg.WorkerConcurrency,
	)

	logger, err := zap.NewProduction()
	if err != nil {
		slog.Error("failed to create zap logger", "err", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := nftstore.NewWithPoolConfig(ctx, logger, cfg.PostgresURL, cfg.PostgresSchema, cfg.ChainID,
		postgres.DefaultPoolConfig("worker"))
	if err != nil {
		slog.Error("failed to connect to postgres", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("failed to parse redis url", "err", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	wrk, err := worker.New(worker.Config{
		RedisClient:   redisClient,
		Store:         db,
		ConsumerGroup: cfg.ConsumerGroup,
		Concurrency:   cfg.WorkerConcurrency,
		RetryDelay:    5 * time.Second,
	})
	if err != nil {
		slog.Error("failed to create worker", "err", err)
		os.Exit(1)
	}
	defer wrk.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting worker")
		return wrk.Run(ctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(queueStatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				wrk.LogQueueStats(ctx)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker error", "err", err)
		os.Exit(1)
	}

	slog.Info("shutdown complete")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
