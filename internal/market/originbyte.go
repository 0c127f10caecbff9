package market

import (
	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
	"github.com/bobyard/sui-indexer/pkg/rpc"
	"github.com/shopspring/decimal"
)

// originByteDialect decodes the OriginByte orderbook. Asks are keyed by the
// nft id they sell.
type originByteDialect struct{}

func (originByteDialect) Market() nftmodels.MarketType { return nftmodels.MarketOriginByte }

type originByteAsk struct {
	NFT   string          `json:"nft"`
	Owner string          `json:"owner"`
	Price decimal.Decimal `json:"price"`
}

type originByteTrade struct {
	NFT    string          `json:"nft"`
	Buyer  string          `json:"buyer"`
	Seller string          `json:"seller"`
	Price  decimal.Decimal `json:"price"`
}

func (originByteDialect) Decode(ev rpc.Event, meta Meta) (Operation, error) {
	switch ev.TypeName() {
	case "AskCreatedEvent", "AskClosedEvent":
		var e originByteAsk
		if err := unmarshalPayload(ev, &e); err != nil {
			return nil, err
		}
		if err := require("nft", e.NFT, "owner", e.Owner); err != nil {
			return nil, err
		}
		price, err := toAmount("price", e.Price)
		if err != nil {
			return nil, err
		}
		if ev.TypeName() == "AskClosedEvent" {
			return &DeList{Meta: meta, ListID: e.NFT, TokenID: e.NFT, Seller: e.Owner, Price: price}, nil
		}
		return &List{Meta: meta, ListID: e.NFT, TokenID: e.NFT, Seller: e.Owner, Price: price}, nil

	case "TradeFilledEvent":
		var e originByteTrade
		if err := unmarshalPayload(ev, &e); err != nil {
			return nil, err
		}
		// Bid-side fills without an nft settle later and never touched an indexed ask.
		if e.NFT == "" {
			return &Ignored{Meta: meta, Type: ev.Type}, nil
		}
		if err := require("buyer", e.Buyer); err != nil {
			return nil, err
		}
		price, err := toAmount("price", e.Price)
		if err != nil {
			return nil, err
		}
		return &Buy{Meta: meta, ListID: e.NFT, TokenID: e.NFT, Seller: e.Seller, Buyer: e.Buyer, Price: price}, nil
	}

	return &Ignored{Meta: meta, Type: ev.Type}, nil
}
