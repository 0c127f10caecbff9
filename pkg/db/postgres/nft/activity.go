package nft

import (
	"context"
	"fmt"

	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
	"github.com/jackc/pgx/v5"
)

func (db *DB) initActivities(ctx context.Context) error {
	table := db.SchemaTable(nftmodels.ActivitiesTableName)
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			chain_id BIGINT NOT NULL,
			sequence_number BIGINT NOT NULL,
			version BIGINT NOT NULL DEFAULT 0,
			tx TEXT,
			collection_id TEXT NOT NULL DEFAULT '',
			token_id TEXT NOT NULL DEFAULT '',
			collection_name TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			transfer_type TEXT NOT NULL CHECK (transfer_type IN ('created', 'minted', 'transferred', 'listed', 'canceled', 'sold')),
			from_address TEXT,
			to_address TEXT,
			token_amount BIGINT NOT NULL DEFAULT 0,
			transaction_timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_activities_token ON %s(token_id, transaction_timestamp);
		CREATE INDEX IF NOT EXISTS idx_activities_collection ON %s(collection_id, transaction_timestamp);
		CREATE INDEX IF NOT EXISTS idx_activities_sequence ON %s(sequence_number);
	`, table, table, table, table)

	return db.Exec(ctx, query)
}

// InsertActivities appends feed rows. Market activities carry only a token id,
// so collection and token names are filled from the tokens table when empty.
func (t *Tx) InsertActivities(ctx context.Context, activities []*nftmodels.Activity) error {
	tokens := t.table(nftmodels.TokensTableName)
	query := fmt.Sprintf(`
		INSERT INTO %s (chain_id, sequence_number, version, tx, collection_id, token_id, collection_name, name,
			transfer_type, from_address, to_address, token_amount, transaction_timestamp)
		SELECT $1, $2, $3, $4,
			COALESCE(NULLIF($5, ''), tok.collection_id, ''),
			$6,
			COALESCE(NULLIF($7, ''), tok.collection_name, ''),
			COALESCE(NULLIF($8, ''), tok.token_name, ''),
			$9, $10, $11, $12, $13
		FROM (SELECT 1) AS one
		LEFT JOIN %s AS tok ON tok.token_id = $6
	`, t.table(nftmodels.ActivitiesTableName), tokens)

	batch := &pgx.Batch{}
	for _, a := range activities {
		batch.Queue(query, a.Values()...)
	}

	if _, err := t.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("insert activities: %w", err)
	}
	return nil
}
