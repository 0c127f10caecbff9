package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the indexer and the worker.
type Config struct {
	// Sui node
	RPCURLs           []string
	RPCRPS            int
	RPCBurst          int
	FetchRetryDelay   time.Duration
	FetchMaxAttempts  int // 0 retries forever
	MultiGetChunkSize int

	// Ingestion
	ChainID             int64
	StartCheckpoint     uint64
	BatchIndex          int
	CycleBackoff        time.Duration
	SessionRestartDelay time.Duration
	PipelineBuffer      int
	NotifyBuffer        int
	BobYardContract     string
	OriginByteContract  string
	LagCheckInterval    time.Duration // 0 = disabled
	LagWarnThreshold    uint64
	PostgresSchema      string

	// PostgreSQL
	PostgresURL string

	// Redis
	RedisURL      string
	ConsumerGroup string

	// Worker
	WorkerConcurrency int

	// Logging
	LogLevel string

	// HTTP API
	HTTPEnabled bool
	HTTPAddr    string
	AdminToken  string
}

// LoadDotEnv loads a .env file into the environment when present. Variables
// already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		RPCRPS:              20,
		RPCBurst:            40,
		FetchRetryDelay:     time.Second,
		MultiGetChunkSize:   50,
		ChainID:             1,
		BatchIndex:          10,
		CycleBackoff:        500 * time.Millisecond,
		SessionRestartDelay: 5 * time.Second,
		PipelineBuffer:      4,
		NotifyBuffer:        1024,
		LagCheckInterval:    30 * time.Second,
		LagWarnThreshold:    100,
		PostgresSchema:      "public",
		ConsumerGroup:       "supply-workers",
		WorkerConcurrency:   1,
		LogLevel:            "info",
		HTTPAddr:            ":8080",
	}

	// Required
	if v := os.Getenv("SUI_RPC_URL"); v != "" {
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.RPCURLs = append(cfg.RPCURLs, u)
			}
		}
	}
	if len(cfg.RPCURLs) == 0 {
		return nil, fmt.Errorf("SUI_RPC_URL is required")
	}

	cfg.PostgresURL = os.Getenv("POSTGRES_URL")
	if cfg.PostgresURL == "" {
		return nil, fmt.Errorf("POSTGRES_URL is required")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	// Optional overrides
	var err error
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" && err == nil {
			n, convErr := strconv.Atoi(v)
			if convErr != nil {
				err = fmt.Errorf("%s: %w", key, convErr)
				return
			}
			*dst = n
		}
	}
	setUint := func(key string, dst *uint64) {
		if v := os.Getenv(key); v != "" && err == nil {
			n, convErr := strconv.ParseUint(v, 10, 64)
			if convErr != nil {
				err = fmt.Errorf("%s: %w", key, convErr)
				return
			}
			*dst = n
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" && err == nil {
			d, convErr := time.ParseDuration(v)
			if convErr != nil {
				err = fmt.Errorf("%s: %w", key, convErr)
				return
			}
			*dst = d
		}
	}

	setInt("RPC_RPS", &cfg.RPCRPS)
	setInt("RPC_BURST", &cfg.RPCBurst)
	setDuration("FETCH_RETRY_DELAY", &cfg.FetchRetryDelay)
	setInt("FETCH_MAX_ATTEMPTS", &cfg.FetchMaxAttempts)
	setInt("MULTI_GET_CHUNK_SIZE", &cfg.MultiGetChunkSize)
	setUint("START_CHECKPOINT", &cfg.StartCheckpoint)
	setInt("BATCH_INDEX", &cfg.BatchIndex)
	setDuration("CYCLE_BACKOFF", &cfg.CycleBackoff)
	setDuration("SESSION_RESTART_DELAY", &cfg.SessionRestartDelay)
	setInt("PIPELINE_BUFFER", &cfg.PipelineBuffer)
	setInt("NOTIFY_BUFFER", &cfg.NotifyBuffer)
	setDuration("LAG_CHECK_INTERVAL", &cfg.LagCheckInterval)
	setUint("LAG_WARN_THRESHOLD", &cfg.LagWarnThreshold)
	setInt("WORKER_CONCURRENCY", &cfg.WorkerConcurrency)

	if v := os.Getenv("CHAIN_ID"); v != "" && err == nil {
		n, convErr := strconv.ParseInt(v, 10, 64)
		if convErr != nil {
			err = fmt.Errorf("CHAIN_ID: %w", convErr)
		}
		cfg.ChainID = n
	}
	if err != nil {
		return nil, err
	}

	if cfg.BatchIndex <= 0 {
		return nil, fmt.Errorf("BATCH_INDEX must be positive, got %d", cfg.BatchIndex)
	}
	if cfg.MultiGetChunkSize <= 0 || cfg.MultiGetChunkSize > 50 {
		return nil, fmt.Errorf("MULTI_GET_CHUNK_SIZE must be in 1..50, got %d", cfg.MultiGetChunkSize)
	}

	cfg.BobYardContract = os.Getenv("BOBYARD_CONTRACT")
	cfg.OriginByteContract = os.Getenv("ORIGINBYTE_CONTRACT")

	if v := os.Getenv("DB_SCHEMA"); v != "" {
		cfg.PostgresSchema = v
	}

	if v := os.Getenv("CONSUMER_GROUP"); v != "" {
		cfg.ConsumerGroup = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	// HTTP API Configuration
	if v := os.Getenv("HTTP_ENABLED"); v != "" {
		cfg.HTTPEnabled = v == "true" || v == "1"
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}

	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")

	return cfg, nil
}
