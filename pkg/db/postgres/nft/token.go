package nft

import (
	"context"
	"fmt"
	"time"

	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
	"github.com/jackc/pgx/v5"
)

func (db *DB) initTokens(ctx context.Context) error {
	table := db.SchemaTable(nftmodels.TokensTableName)
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			token_id TEXT PRIMARY KEY,
			chain_id BIGINT NOT NULL,
			collection_id TEXT NOT NULL,
			collection_type TEXT NOT NULL,
			collection_name TEXT NOT NULL,
			token_name TEXT NOT NULL DEFAULT '',
			attributes TEXT NOT NULL DEFAULT '{}',
			owner_address TEXT,
			metadata_uri TEXT NOT NULL DEFAULT '',
			metadata_json TEXT NOT NULL DEFAULT '{}',
			image TEXT,
			version BIGINT NOT NULL,
			tx TEXT,
			status TEXT NOT NULL CHECK (status IN ('exist', 'delete')),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tokens_collection ON %s(collection_id, status);
		CREATE INDEX IF NOT EXISTS idx_tokens_owner ON %s(owner_address);
	`, table, table, table)

	return db.Exec(ctx, query)
}

// InsertTokens inserts newly created tokens and no-ops on existing ids.
func (t *Tx) InsertTokens(ctx context.Context, tokens []*nftmodels.Token) error {
	query := insertSQL(t.table(nftmodels.TokensTableName), nftmodels.TokenColumns) +
		" ON CONFLICT (token_id) DO NOTHING"

	batch := &pgx.Batch{}
	for _, tok := range tokens {
		batch.Queue(query, tok.Values()...)
	}

	if _, err := t.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("insert tokens: %w", err)
	}
	return nil
}

// UpsertTokens writes the decoded fields of changed tokens. A row is only
// replaced by an equal or newer version; image is left untouched.
func (t *Tx) UpsertTokens(ctx context.Context, tokens []*nftmodels.Token) error {
	table := t.table(nftmodels.TokensTableName)
	query := insertSQL(table, nftmodels.TokenColumns) + fmt.Sprintf(`
		ON CONFLICT (token_id) DO UPDATE SET
			token_name = EXCLUDED.token_name,
			attributes = EXCLUDED.attributes,
			owner_address = EXCLUDED.owner_address,
			metadata_uri = EXCLUDED.metadata_uri,
			metadata_json = EXCLUDED.metadata_json,
			version = EXCLUDED.version,
			tx = EXCLUDED.tx,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		WHERE %s.version <= EXCLUDED.version`, table)

	batch := &pgx.Batch{}
	for _, tok := range tokens {
		batch.Queue(query, tok.Values()...)
	}

	if _, err := t.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("upsert tokens: %w", err)
	}
	return nil
}

// MarkTokensDeleted flags the given ids as deleted and returns the ids that
// matched a token row. Ids of non-token objects are ignored.
func (t *Tx) MarkTokensDeleted(ctx context.Context, ids []string, at time.Time) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		UPDATE %s SET status = $2, updated_at = $3
		WHERE token_id = ANY($1)
		RETURNING token_id
	`, t.table(nftmodels.TokensTableName))

	rows, err := t.tx.Query(ctx, query, ids, string(nftmodels.TokenDelete), at)
	if err != nil {
		return nil, fmt.Errorf("mark tokens deleted: %w", err)
	}

	deleted, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("mark tokens deleted: %w", err)
	}
	return deleted, nil
}

// TokenCollection returns the collection id of a token, or "" if unknown.
func (db *DB) TokenCollection(ctx context.Context, tokenID string) (string, error) {
	query := fmt.Sprintf(`SELECT collection_id FROM %s WHERE token_id = $1`,
		db.SchemaTable(nftmodels.TokensTableName))

	rows, err := db.Query(ctx, query, tokenID)
	if err != nil {
		return "", fmt.Errorf("query token %s: %w", tokenID, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return "", fmt.Errorf("query token %s: %w", tokenID, err)
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}

// ExistingTokens returns the subset of ids that have a token row.
func (t *Tx) ExistingTokens(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT token_id FROM %s WHERE token_id = ANY($1)`, t.table(nftmodels.TokensTableName))

	rows, err := t.tx.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query existing tokens: %w", err)
	}

	existing, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("query existing tokens: %w", err)
	}
	return existing, nil
}
