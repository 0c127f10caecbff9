package market

import (
	"context"
	"fmt"
	"time"

	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
)

// Store is the write path the state machine runs against. Close methods
// return the number of rows they matched.
type Store interface {
	InsertList(ctx context.Context, l *nftmodels.List) error
	CloseList(ctx context.Context, listID string, state nftmodels.ListType) (int64, error)
	ListedToken(ctx context.Context, listID string) (tokenID, seller string, ok bool, err error)
	InsertOffer(ctx context.Context, o *nftmodels.Offer) error
	CloseOffer(ctx context.Context, offerID string, state nftmodels.OfferType) (int64, error)
	InsertOrder(ctx context.Context, o *nftmodels.Order) error
}

// Apply runs ops in order against store. Events without a timestamp are
// stamped with at. A reference to a listing or offer the store does not
// have fails with ErrNotIndexed.
func Apply(ctx context.Context, store Store, ops []Operation, at time.Time) error {
	for _, op := range ops {
		if err := applyOne(ctx, store, op, at); err != nil {
			m := op.EventMeta()
			return fmt.Errorf("apply %T (tx %s, seq %d): %w", op, m.Tx, m.EventSeq, err)
		}
	}
	return nil
}

func applyOne(ctx context.Context, store Store, op Operation, at time.Time) error {
	ts := op.EventMeta().Time
	if ts.IsZero() {
		ts = at
	}

	switch o := op.(type) {
	case *List:
		return store.InsertList(ctx, &nftmodels.List{
			ListID:        o.ListID,
			TokenID:       o.TokenID,
			SellerAddress: o.Seller,
			SellerValue:   o.Price,
			MarketType:    o.Market,
			ListType:      nftmodels.ListListed,
			ListTime:      ts,
			ExpireTime:    o.ExpireTime,
		})

	case *DeList:
		return closeList(ctx, store, o.ListID)

	case *Buy:
		if o.Seller == "" || o.TokenID == "" {
			tokenID, seller, ok, err := store.ListedToken(ctx, o.ListID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: list %s", ErrNotIndexed, o.ListID)
			}
			if o.TokenID == "" {
				o.TokenID = tokenID
			}
			if o.Seller == "" {
				o.Seller = seller
			}
		}
		if err := closeList(ctx, store, o.ListID); err != nil {
			return err
		}
		return store.InsertOrder(ctx, &nftmodels.Order{
			ListID:        o.ListID,
			Tx:            o.Tx,
			TokenID:       o.TokenID,
			SellerAddress: o.Seller,
			BuyerAddress:  o.Buyer,
			Value:         o.Price,
			OrderType:     nftmodels.OrderSold,
			MarketType:    o.Market,
			SellTime:      ts,
		})

	case *AcceptOffer:
		if err := closeList(ctx, store, o.ListID); err != nil {
			return err
		}
		if err := closeOffer(ctx, store, o.OfferID); err != nil {
			return err
		}
		offerID := o.OfferID
		return store.InsertOrder(ctx, &nftmodels.Order{
			ListID:        o.ListID,
			Tx:            o.Tx,
			TokenID:       o.TokenID,
			OfferID:       &offerID,
			SellerAddress: o.Seller,
			BuyerAddress:  o.Buyer,
			Value:         o.Amount,
			OrderType:     nftmodels.OrderOffer,
			MarketType:    o.Market,
			SellTime:      ts,
		})

	case *MakeOffer:
		return store.InsertOffer(ctx, &nftmodels.Offer{
			OfferID:      o.OfferID,
			ListID:       o.ListID,
			BuyerAddress: o.Buyer,
			OfferValue:   o.Amount,
			OfferType:    nftmodels.OfferListed,
			ExpireTime:   o.ExpireTime,
			OfferTime:    ts,
		})

	case *CancelOffer:
		return closeOffer(ctx, store, o.OfferID)

	case *Ignored:
		return nil
	}

	return fmt.Errorf("unhandled operation %T", op)
}

func closeList(ctx context.Context, store Store, listID string) error {
	n, err := store.CloseList(ctx, listID, nftmodels.ListCanceled)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: list %s", ErrNotIndexed, listID)
	}
	return nil
}

func closeOffer(ctx context.Context, store Store, offerID string) error {
	n, err := store.CloseOffer(ctx, offerID, nftmodels.OfferCanceled)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: offer %s", ErrNotIndexed, offerID)
	}
	return nil
}
