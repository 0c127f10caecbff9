package nft

import (
	"context"
	"fmt"
	"strings"

	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
	"github.com/jackc/pgx/v5"
)

func (db *DB) initCollections(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			collection_id TEXT PRIMARY KEY,
			chain_id BIGINT NOT NULL,
			collection_type TEXT NOT NULL,
			creator_address TEXT NOT NULL,
			collection_name TEXT NOT NULL,
			display_name TEXT,
			description TEXT NOT NULL DEFAULT '',
			website TEXT,
			icon TEXT,
			metadata_uri TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}',
			verify BOOLEAN NOT NULL DEFAULT FALSE,
			supply BIGINT NOT NULL DEFAULT 0,
			version BIGINT NOT NULL,
			tx TEXT,
			last_metadata_sync TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_collections_type ON %s(chain_id, collection_type);
	`, db.SchemaTable(nftmodels.CollectionsTableName), db.SchemaTable(nftmodels.CollectionsTableName))

	return db.Exec(ctx, query)
}

// insertSQL builds "INSERT INTO table (cols) VALUES ($1..$n)".
func insertSQL(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

// InsertCollections inserts new collections. An existing collection is never
// overwritten, so replays leave enrichment columns intact.
func (t *Tx) InsertCollections(ctx context.Context, collections []*nftmodels.Collection) error {
	query := insertSQL(t.table(nftmodels.CollectionsTableName), nftmodels.CollectionColumns) +
		" ON CONFLICT DO NOTHING"

	batch := &pgx.Batch{}
	for _, c := range collections {
		batch.Queue(query, c.Values()...)
	}

	if _, err := t.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("insert collections: %w", err)
	}
	return nil
}

// CollectionSupply counts live tokens of a collection.
func (db *DB) CollectionSupply(ctx context.Context, collectionID string) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE collection_id = $1 AND status = $2`,
		db.SchemaTable(nftmodels.TokensTableName))

	var n int64
	if err := db.QueryRow(ctx, query, collectionID, string(nftmodels.TokenExist)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tokens for %s: %w", collectionID, err)
	}
	return n, nil
}

// UpdateCollectionSupply stores a recomputed supply for a collection.
func (db *DB) UpdateCollectionSupply(ctx context.Context, collectionID string, supply int64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET supply = $2, last_metadata_sync = NOW(), updated_at = NOW()
		WHERE collection_id = $1
	`, db.SchemaTable(nftmodels.CollectionsTableName))

	return db.Exec(ctx, query, collectionID, supply)
}
