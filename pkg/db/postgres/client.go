package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PoolConfig tunes the connection pool. Zero values fall back to defaults.
type PoolConfig struct {
	MinConns        int32
	MaxConns        int32
	MaxConnLifetime time.Duration
	Component       string
}

// DefaultPoolConfig returns the pool settings used by the indexer.
func DefaultPoolConfig(component string) PoolConfig {
	return PoolConfig{
		MinConns:        2,
		MaxConns:        20,
		MaxConnLifetime: time.Hour,
		Component:       component,
	}
}

// Client is a thin wrapper over a pgx pool that logs through zap.
type Client struct {
	Pool   *pgxpool.Pool
	Logger *zap.Logger
}

// New creates a new connection pool to PostgreSQL and verifies it with a ping.
func New(ctx context.Context, logger *zap.Logger, url string, poolConfig *PoolConfig) (Client, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return Client{}, fmt.Errorf("parse config: %w", err)
	}

	if poolConfig != nil {
		if poolConfig.MinConns > 0 {
			config.MinConns = poolConfig.MinConns
		}
		if poolConfig.MaxConns > 0 {
			config.MaxConns = poolConfig.MaxConns
		}
		if poolConfig.MaxConnLifetime > 0 {
			config.MaxConnLifetime = poolConfig.MaxConnLifetime
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return Client{}, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return Client{}, fmt.Errorf("ping: %w", err)
	}

	logger.Info("connected to postgres",
		zap.Int32("min_conns", config.MinConns),
		zap.Int32("max_conns", config.MaxConns))

	return Client{Pool: pool, Logger: logger}, nil
}

// Exec runs a statement that returns no rows.
func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.Pool.Exec(ctx, query, args...)
	return err
}

// ExecResult runs a statement and returns its command tag.
func (c *Client) ExecResult(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return c.Pool.Exec(ctx, query, args...)
}

// Query runs a query that returns rows.
func (c *Client) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return c.Pool.Query(ctx, query, args...)
}

// QueryRow runs a query that returns at most one row.
func (c *Client) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return c.Pool.QueryRow(ctx, query, args...)
}

// BeginFunc runs fn in a read-write transaction, committing when fn returns nil.
func (c *Client) BeginFunc(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, c.Pool, pgx.TxOptions{AccessMode: pgx.ReadWrite}, fn)
}

// CreateSchemaIfNotExists creates the schema when missing.
func (c *Client) CreateSchemaIfNotExists(ctx context.Context, schema string) error {
	query := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{schema}.Sanitize())
	return c.Exec(ctx, query)
}

// Close releases all pooled connections.
func (c *Client) Close() {
	c.Pool.Close()
}

var unsafeName = regexp.MustCompile(`[^a-z0-9_]`)

// SanitizeName lower-cases a name and replaces anything that is not [a-z0-9_].
func SanitizeName(name string) string {
	return unsafeName.ReplaceAllString(strings.ToLower(name), "_")
}
