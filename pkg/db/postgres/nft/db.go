package nft

import (
	"context"
	"fmt"

	"github.com/bobyard/sui-indexer/pkg/db/postgres"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// DB holds the marketplace projection: cursor, collections, tokens, market
// records and the activity feed.
type DB struct {
	postgres.Client
	ChainID int64
	Schema  string // Schema name (e.g., "sui")
}

// NewWithPoolConfig connects to url and creates the schema and tables when missing.
func NewWithPoolConfig(ctx context.Context, logger *zap.Logger, url, schema string, chainID int64, poolConfig postgres.PoolConfig) (*DB, error) {
	schemaName := postgres.SanitizeName(schema)

	client, err := postgres.New(ctx, logger.With(
		zap.String("schema", schemaName),
		zap.Int64("chain_id", chainID),
		zap.String("component", poolConfig.Component),
	), url, &poolConfig)
	if err != nil {
		return nil, err
	}

	db := &DB{
		Client:  client,
		ChainID: chainID,
		Schema:  schemaName,
	}

	if err := db.InitializeDB(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return db, nil
}

// SchemaTable returns a schema-qualified table name.
func (db *DB) SchemaTable(tableName string) string {
	return schemaTable(db.Schema, tableName)
}

func schemaTable(schema, tableName string) string {
	return fmt.Sprintf("%s.%s", schema, tableName)
}

// InitializeDB ensures the schema and every table exist.
func (db *DB) InitializeDB(ctx context.Context) error {
	db.Logger.Info("Initializing nft database", zap.String("schema", db.Schema))

	if err := db.CreateSchemaIfNotExists(ctx, db.Schema); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", db.Schema, err)
	}

	inits := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"check_point", db.initCheckpoint},
		{"collections", db.initCollections},
		{"tokens", db.initTokens},
		{"lists", db.initLists},
		{"offers", db.initOffers},
		{"orders", db.initOrders},
		{"activities", db.initActivities},
	}

	for _, in := range inits {
		db.Logger.Debug("Initialize table", zap.String("table", in.name))
		if err := in.fn(ctx); err != nil {
			return fmt.Errorf("init %s: %w", in.name, err)
		}
	}

	return nil
}

// InTx runs fn inside one read-write transaction. Returning an error rolls
// the whole unit back.
func (db *DB) InTx(ctx context.Context, fn func(*Tx) error) error {
	return db.BeginFunc(ctx, func(tx pgx.Tx) error {
		return fn(&Tx{tx: tx, chainID: db.ChainID, schema: db.Schema})
	})
}

// Tx exposes the write path of one checkpoint transaction.
type Tx struct {
	tx      pgx.Tx
	chainID int64
	schema  string
}

func (t *Tx) table(name string) string {
	return schemaTable(t.schema, name)
}

// sendBatch executes every queued statement and returns the rows affected by each.
func (t *Tx) sendBatch(ctx context.Context, batch *pgx.Batch) ([]int64, error) {
	if batch.Len() == 0 {
		return nil, nil
	}

	br := t.tx.SendBatch(ctx, batch)
	defer br.Close()

	affected := make([]int64, batch.Len())
	for i := 0; i < batch.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			return nil, fmt.Errorf("batch statement %d: %w", i, err)
		}
		affected[i] = tag.RowsAffected()
	}

	return affected, nil
}
