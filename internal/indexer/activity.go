package indexer

import (
	"time"

	"github.com/bobyard/sui-indexer/internal/market"
	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
)

// DeriveActivities builds the feed rows for one checkpoint. Ops must already
// have been applied, so that sellers resolved from the store are filled in.
func DeriveActivities(chainID int64, seq uint64, classified *Classified, ops []market.Operation, at time.Time) []*nftmodels.Activity {
	var out []*nftmodels.Activity

	for _, c := range classified.Collections {
		if c.Status != Created {
			continue
		}
		col := c.Collection
		out = append(out, &nftmodels.Activity{
			ChainID:              chainID,
			SequenceNumber:       seq,
			Version:              col.Version,
			Tx:                   col.Tx,
			CollectionID:         col.CollectionID,
			CollectionName:       col.CollectionName,
			TransferType:         nftmodels.ActivityCreated,
			FromAddress:          optional(col.CreatorAddress),
			TransactionTimestamp: col.CreatedAt,
		})
	}

	traded := make(map[string]struct{})
	for _, op := range ops {
		if id := market.TokenOf(op); id != "" {
			traded[id] = struct{}{}
		}
	}

	for _, t := range classified.Tokens {
		tok := t.Token
		a := &nftmodels.Activity{
			ChainID:              chainID,
			SequenceNumber:       seq,
			Version:              tok.Version,
			Tx:                   tok.Tx,
			CollectionID:         tok.CollectionID,
			TokenID:              tok.TokenID,
			CollectionName:       tok.CollectionName,
			Name:                 tok.TokenName,
			ToAddress:            tok.OwnerAddress,
			TransactionTimestamp: tok.UpdatedAt,
		}

		switch {
		case t.Minted:
			a.TransferType = nftmodels.ActivityMinted
		case t.Status == Mutated || t.Status == Unwrapped:
			if _, ok := traded[tok.TokenID]; ok {
				continue
			}
			a.TransferType = nftmodels.ActivityTransferred
			a.FromAddress = optional(t.Sender)
		default:
			continue
		}
		out = append(out, a)
	}

	for _, op := range ops {
		if a := marketActivity(chainID, seq, op, at); a != nil {
			out = append(out, a)
		}
	}

	return out
}

func marketActivity(chainID int64, seq uint64, op market.Operation, at time.Time) *nftmodels.Activity {
	m := op.EventMeta()
	ts := m.Time
	if ts.IsZero() {
		ts = at
	}
	a := &nftmodels.Activity{
		ChainID:              chainID,
		SequenceNumber:       seq,
		Tx:                   optional(m.Tx),
		TransactionTimestamp: ts,
	}

	switch o := op.(type) {
	case *market.List:
		a.TransferType = nftmodels.ActivityListed
		a.TokenID = o.TokenID
		a.FromAddress = optional(o.Seller)
		a.TokenAmount = o.Price
	case *market.DeList:
		a.TransferType = nftmodels.ActivityCanceled
		a.TokenID = o.TokenID
		a.FromAddress = optional(o.Seller)
		a.TokenAmount = o.Price
	case *market.Buy:
		a.TransferType = nftmodels.ActivitySold
		a.TokenID = o.TokenID
		a.FromAddress = optional(o.Seller)
		a.ToAddress = optional(o.Buyer)
		a.TokenAmount = o.Price
	case *market.AcceptOffer:
		a.TransferType = nftmodels.ActivitySold
		a.TokenID = o.TokenID
		a.FromAddress = optional(o.Seller)
		a.ToAddress = optional(o.Buyer)
		a.TokenAmount = o.Amount
	default:
		return nil
	}
	return a
}
