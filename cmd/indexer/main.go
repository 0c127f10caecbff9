package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobyard/sui-indexer/internal/api"
	"github.com/bobyard/sui-indexer/internal/config"
	"github.com/bobyard/sui-indexer/internal/indexer"
	"github.com/bobyard/sui-indexer/internal/market"
	"github.com/bobyard/sui-indexer/internal/publisher"
	"github.com/bobyard/sui-indexer/internal/registry"
	"github.com/bobyard/sui-indexer/pkg/db/postgres"
	nftstore "github.com/bobyard/sui-indexer/pkg/db/postgres/nft"
	"github.com/bobyard/sui-indexer/pkg/rpc"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("ignoring .env file", "err", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// Setup logging
	setupLogging(cfg.LogLevel)

	slog.Info("starting sui-indexer",
		"chain_id", cfg.ChainID,
		"endpoints", len(cfg.RPCURLs),
		"batch_index", cfg.BatchIndex,
		"bobyard", cfg.BobYardContract != "",
		"originbyte", cfg.OriginByteContract != "",
	)

	logger, err := zap.NewProduction()
	if err != nil {
		slog.Error("failed to create zap logger", "err", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Connect to PostgreSQL
	db, err := nftstore.NewWithPoolConfig(ctx, logger, cfg.PostgresURL, cfg.PostgresSchema, cfg.ChainID,
		postgres.DefaultPoolConfig("indexer"))
	if err != nil {
		slog.Error("failed to connect to postgres", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("failed to parse redis url", "err", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Collection registry
	reg := registry.New(registry.NewRedisBackend(redisClient, cfg.ChainID))
	if err := reg.Load(ctx); err != nil {
		slog.Error("failed to load collection registry", "err", err)
		os.Exit(1)
	}

	rpcClient := rpc.NewHTTPWithOpts(rpc.Opts{
		Endpoints: cfg.RPCURLs,
		RPS:       cfg.RPCRPS,
		Burst:     cfg.RPCBurst,
	})

	// Create notifier
	notifier, err := publisher.New(redisClient, cfg.ChainID, cfg.NotifyBuffer)
	if err != nil {
		slog.Error("failed to create notifier", "err", err)
		os.Exit(1)
	}
	defer notifier.Close()

	retry := indexer.FixedDelay(cfg.FetchRetryDelay)
	retry.MaxAttempts = cfg.FetchMaxAttempts
	downloader := indexer.NewDownloader(rpcClient, cfg.MultiGetChunkSize, retry)

	committer := indexer.NewCommitter(
		indexer.PostgresTransactor{DB: db},
		indexer.NewClassifier(reg, cfg.ChainID),
		market.NewDecoder(market.Addresses{
			BobYard:    cfg.BobYardContract,
			OriginByte: cfg.OriginByteContract,
		}),
		notifier,
		cfg.ChainID,
	)

	idx := indexer.New(downloader, rpcClient, db, committer, indexer.Options{
		BatchIndex:      cfg.BatchIndex,
		StartCheckpoint: cfg.StartCheckpoint,
		CycleBackoff:    cfg.CycleBackoff,
		RestartDelay:    cfg.SessionRestartDelay,
		PipelineBuffer:  cfg.PipelineBuffer,
	})

	// Run all components
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting notifier")
		return notifier.Run(ctx)
	})

	g.Go(func() error {
		return idx.Run(ctx)
	})

	if cfg.LagCheckInterval > 0 {
		g.Go(func() error {
			return runPeriodicLagCheck(ctx, db, rpcClient, cfg.LagCheckInterval, cfg.LagWarnThreshold)
		})
	}

	if cfg.HTTPEnabled {
		server := api.NewServer(api.Deps{Cursor: db, Head: rpcClient, Streams: notifier}, logger, cfg.HTTPAddr, cfg.AdminToken)
		g.Go(func() error {
			return server.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("indexer error", "err", err)
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

// runPeriodicLagCheck compares the durable cursor with the node head.
func runPeriodicLagCheck(ctx context.Context, cursor indexer.CursorReader, head indexer.HeadSource, interval time.Duration, threshold uint64) error {
	slog.Info("starting periodic lag check", "interval", interval, "threshold", threshold)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			st, err := indexer.CheckStatus(ctx, cursor, head)
			if err != nil {
				slog.Warn("lag check failed", "err", err)
				continue
			}

			if st.Lag > threshold {
				slog.Warn("indexer is lagging",
					"cursor", st.Cursor,
					"latest", st.Latest,
					"lag", st.Lag,
				)
			} else {
				slog.Debug("lag check passed", "cursor", st.Cursor, "lag", st.Lag)
			}
		}
	}
}
