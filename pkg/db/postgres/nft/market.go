package nft

import (
	"context"
	"fmt"

	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
)

func (db *DB) initLists(ctx context.Context) error {
	table := db.SchemaTable(nftmodels.ListsTableName)
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			list_id TEXT PRIMARY KEY,
			chain_id BIGINT NOT NULL,
			token_id TEXT NOT NULL,
			seller_address TEXT NOT NULL,
			seller_value BIGINT NOT NULL,
			market_type TEXT NOT NULL,
			list_type TEXT NOT NULL CHECK (list_type IN ('listed', 'expired', 'canceled', 'sold')),
			list_time TIMESTAMP WITH TIME ZONE NOT NULL,
			expire_time TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_lists_token ON %s(token_id, list_type);
	`, table, table)

	return db.Exec(ctx, query)
}

func (db *DB) initOffers(ctx context.Context) error {
	table := db.SchemaTable(nftmodels.OffersTableName)
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			offer_id TEXT PRIMARY KEY,
			chain_id BIGINT NOT NULL,
			list_id TEXT NOT NULL,
			buyer_address TEXT NOT NULL,
			offer_value BIGINT NOT NULL,
			offer_type TEXT NOT NULL CHECK (offer_type IN ('listed', 'expired', 'canceled', 'sold')),
			expire_time TIMESTAMP WITH TIME ZONE,
			offer_time TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_offers_list ON %s(list_id);
	`, table, table)

	return db.Exec(ctx, query)
}

// Orders are unique per (list_id, tx): one sale per listing per transaction.
// Kiosk listings reuse the item id as list id, so a relisted item can sell again.
func (db *DB) initOrders(ctx context.Context) error {
	table := db.SchemaTable(nftmodels.OrdersTableName)
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			list_id TEXT NOT NULL,
			tx TEXT NOT NULL,
			chain_id BIGINT NOT NULL,
			token_id TEXT NOT NULL,
			offer_id TEXT,
			seller_address TEXT NOT NULL,
			buyer_address TEXT NOT NULL,
			value BIGINT NOT NULL,
			order_type TEXT NOT NULL CHECK (order_type IN ('sold', 'offer', 'exchange')),
			market_type TEXT NOT NULL,
			sell_time TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			UNIQUE (list_id, tx)
		);

		CREATE INDEX IF NOT EXISTS idx_orders_token ON %s(token_id);
	`, table, table)

	return db.Exec(ctx, query)
}

// InsertList opens a listing. Listing an id again reopens it with the new terms.
func (t *Tx) InsertList(ctx context.Context, l *nftmodels.List) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (list_id, chain_id, token_id, seller_address, seller_value, market_type, list_type, list_time, expire_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (list_id) DO UPDATE SET
			token_id = EXCLUDED.token_id,
			seller_address = EXCLUDED.seller_address,
			seller_value = EXCLUDED.seller_value,
			list_type = EXCLUDED.list_type,
			list_time = EXCLUDED.list_time,
			expire_time = EXCLUDED.expire_time,
			updated_at = NOW()
	`, t.table(nftmodels.ListsTableName))

	_, err := t.tx.Exec(ctx, query, l.ListID, t.chainID, l.TokenID, l.SellerAddress, l.SellerValue,
		string(l.MarketType), string(l.ListType), l.ListTime, l.ExpireTime)
	if err != nil {
		return fmt.Errorf("insert list %s: %w", l.ListID, err)
	}
	return nil
}

// CloseList sets the state of a listing and returns the number of rows matched.
func (t *Tx) CloseList(ctx context.Context, listID string, state nftmodels.ListType) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET list_type = $2, updated_at = NOW() WHERE list_id = $1`,
		t.table(nftmodels.ListsTableName))

	tag, err := t.tx.Exec(ctx, query, listID, string(state))
	if err != nil {
		return 0, fmt.Errorf("close list %s: %w", listID, err)
	}
	return tag.RowsAffected(), nil
}

// ListedToken returns the token and seller of a listing, if indexed.
func (t *Tx) ListedToken(ctx context.Context, listID string) (tokenID, seller string, ok bool, err error) {
	query := fmt.Sprintf(`SELECT token_id, seller_address FROM %s WHERE list_id = $1`,
		t.table(nftmodels.ListsTableName))

	rows, err := t.tx.Query(ctx, query, listID)
	if err != nil {
		return "", "", false, fmt.Errorf("query list %s: %w", listID, err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&tokenID, &seller); err != nil {
			return "", "", false, fmt.Errorf("scan list %s: %w", listID, err)
		}
		ok = true
	}
	return tokenID, seller, ok, rows.Err()
}

// InsertOffer records a new standing offer.
func (t *Tx) InsertOffer(ctx context.Context, o *nftmodels.Offer) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (offer_id, chain_id, list_id, buyer_address, offer_value, offer_type, expire_time, offer_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (offer_id) DO UPDATE SET
			offer_value = EXCLUDED.offer_value,
			offer_type = EXCLUDED.offer_type,
			expire_time = EXCLUDED.expire_time,
			offer_time = EXCLUDED.offer_time,
			updated_at = NOW()
	`, t.table(nftmodels.OffersTableName))

	_, err := t.tx.Exec(ctx, query, o.OfferID, t.chainID, o.ListID, o.BuyerAddress, o.OfferValue,
		string(o.OfferType), o.ExpireTime, o.OfferTime)
	if err != nil {
		return fmt.Errorf("insert offer %s: %w", o.OfferID, err)
	}
	return nil
}

// CloseOffer sets the state of an offer and returns the number of rows matched.
func (t *Tx) CloseOffer(ctx context.Context, offerID string, state nftmodels.OfferType) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET offer_type = $2, updated_at = NOW() WHERE offer_id = $1`,
		t.table(nftmodels.OffersTableName))

	tag, err := t.tx.Exec(ctx, query, offerID, string(state))
	if err != nil {
		return 0, fmt.Errorf("close offer %s: %w", offerID, err)
	}
	return tag.RowsAffected(), nil
}

// InsertOrder records a completed trade. A second insert for the same
// listing and transaction is a no-op.
func (t *Tx) InsertOrder(ctx context.Context, o *nftmodels.Order) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (list_id, tx, chain_id, token_id, offer_id, seller_address, buyer_address, value, order_type, market_type, sell_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (list_id, tx) DO NOTHING
	`, t.table(nftmodels.OrdersTableName))

	_, err := t.tx.Exec(ctx, query, o.ListID, o.Tx, t.chainID, o.TokenID, o.OfferID, o.SellerAddress,
		o.BuyerAddress, o.Value, string(o.OrderType), string(o.MarketType), o.SellTime)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ListID, err)
	}
	return nil
}
