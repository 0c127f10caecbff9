package market

import (
	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
	"github.com/bobyard/sui-indexer/pkg/rpc"
	"github.com/shopspring/decimal"
)

// kioskDialect decodes the framework kiosk module. A kiosk listing is keyed
// by the item id, so relisting an item reopens the same listing row.
type kioskDialect struct{}

func (kioskDialect) Market() nftmodels.MarketType { return nftmodels.MarketKiosk }

type kioskItem struct {
	ID    string          `json:"id"`
	Kiosk string          `json:"kiosk"`
	Price decimal.Decimal `json:"price"`
}

func (kioskDialect) Decode(ev rpc.Event, meta Meta) (Operation, error) {
	if ev.Module() != "kiosk" {
		return &Ignored{Meta: meta, Type: ev.Type}, nil
	}

	name := ev.TypeName()
	switch name {
	case "ItemListed", "ItemDelisted", "ItemPurchased":
	default:
		return &Ignored{Meta: meta, Type: ev.Type}, nil
	}

	var e kioskItem
	if err := unmarshalPayload(ev, &e); err != nil {
		return nil, err
	}
	if err := require("id", e.ID); err != nil {
		return nil, err
	}

	switch name {
	case "ItemListed":
		if err := require("sender", ev.Sender); err != nil {
			return nil, err
		}
		price, err := toAmount("price", e.Price)
		if err != nil {
			return nil, err
		}
		return &List{Meta: meta, ListID: e.ID, TokenID: e.ID, Seller: ev.Sender, Price: price}, nil

	case "ItemDelisted":
		return &DeList{Meta: meta, ListID: e.ID, TokenID: e.ID, Seller: ev.Sender}, nil
	}

	price, err := toAmount("price", e.Price)
	if err != nil {
		return nil, err
	}
	return &Buy{Meta: meta, ListID: e.ID, TokenID: e.ID, Buyer: ev.Sender, Price: price}, nil
}
