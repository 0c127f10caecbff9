package market

import (
	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
	"github.com/bobyard/sui-indexer/pkg/rpc"
	"github.com/shopspring/decimal"
)

type bobYardDialect struct{}

func (bobYardDialect) Market() nftmodels.MarketType { return nftmodels.MarketBobYard }

type bobYardList struct {
	ListID     string          `json:"list_id"`
	ListItemID string          `json:"list_item_id"`
	ExpireTime decimal.Decimal `json:"expire_time"`
	Ask        decimal.Decimal `json:"ask"`
	Owner      string          `json:"owner"`
}

type bobYardBuy struct {
	ListID string          `json:"list_id"`
	ItemID string          `json:"item_id"`
	Ask    decimal.Decimal `json:"ask"`
	Owner  string          `json:"owner"`
	Buyer  string          `json:"buyer"`
}

type bobYardAcceptOffer struct {
	OfferID     string          `json:"offer_id"`
	ListID      string          `json:"list_id"`
	ItemID      string          `json:"item_id"`
	OfferAmount decimal.Decimal `json:"offer_amount"`
	Owner       string          `json:"owner"`
	Buyer       string          `json:"buyer"`
}

type bobYardOffer struct {
	OfferID     string          `json:"offer_id"`
	ListID      string          `json:"list_id"`
	OfferAmount decimal.Decimal `json:"offer_amount"`
	ExpireTime  decimal.Decimal `json:"expire_time"`
	Owner       string          `json:"owner"`
}

type bobYardCancelOffer struct {
	OfferID string `json:"offer_id"`
	ListID  string `json:"list_id"`
	Owner   string `json:"owner"`
}

func (bobYardDialect) Decode(ev rpc.Event, meta Meta) (Operation, error) {
	switch ev.TypeName() {
	case "ListEvent", "DeListEvent":
		var e bobYardList
		if err := unmarshalPayload(ev, &e); err != nil {
			return nil, err
		}
		if err := require("list_id", e.ListID, "list_item_id", e.ListItemID, "owner", e.Owner); err != nil {
			return nil, err
		}
		price, err := toAmount("ask", e.Ask)
		if err != nil {
			return nil, err
		}
		if ev.TypeName() == "DeListEvent" {
			return &DeList{Meta: meta, ListID: e.ListID, TokenID: e.ListItemID, Seller: e.Owner, Price: price}, nil
		}
		expire, err := toExpiry("expire_time", e.ExpireTime)
		if err != nil {
			return nil, err
		}
		return &List{Meta: meta, ListID: e.ListID, TokenID: e.ListItemID, Seller: e.Owner, Price: price, ExpireTime: expire}, nil

	case "BuyEvent":
		var e bobYardBuy
		if err := unmarshalPayload(ev, &e); err != nil {
			return nil, err
		}
		if err := require("list_id", e.ListID, "item_id", e.ItemID, "buyer", e.Buyer); err != nil {
			return nil, err
		}
		price, err := toAmount("ask", e.Ask)
		if err != nil {
			return nil, err
		}
		return &Buy{Meta: meta, ListID: e.ListID, TokenID: e.ItemID, Seller: e.Owner, Buyer: e.Buyer, Price: price}, nil

	case "AcceptOfferEvent":
		var e bobYardAcceptOffer
		if err := unmarshalPayload(ev, &e); err != nil {
			return nil, err
		}
		if err := require("offer_id", e.OfferID, "list_id", e.ListID, "item_id", e.ItemID); err != nil {
			return nil, err
		}
		amount, err := toAmount("offer_amount", e.OfferAmount)
		if err != nil {
			return nil, err
		}
		return &AcceptOffer{
			Meta:    meta,
			OfferID: e.OfferID,
			ListID:  e.ListID,
			TokenID: e.ItemID,
			Seller:  e.Owner,
			Buyer:   e.Buyer,
			Amount:  amount,
		}, nil

	case "OfferEvent":
		var e bobYardOffer
		if err := unmarshalPayload(ev, &e); err != nil {
			return nil, err
		}
		if err := require("offer_id", e.OfferID, "list_id", e.ListID, "owner", e.Owner); err != nil {
			return nil, err
		}
		amount, err := toAmount("offer_amount", e.OfferAmount)
		if err != nil {
			return nil, err
		}
		expire, err := toExpiry("expire_time", e.ExpireTime)
		if err != nil {
			return nil, err
		}
		return &MakeOffer{Meta: meta, OfferID: e.OfferID, ListID: e.ListID, Buyer: e.Owner, Amount: amount, ExpireTime: expire}, nil

	case "CancelOfferEvent":
		var e bobYardCancelOffer
		if err := unmarshalPayload(ev, &e); err != nil {
			return nil, err
		}
		if err := require("offer_id", e.OfferID); err != nil {
			return nil, err
		}
		return &CancelOffer{Meta: meta, OfferID: e.OfferID, ListID: e.ListID, Buyer: e.Owner}, nil
	}

	return &Ignored{Meta: meta, Type: ev.Type}, nil
}
