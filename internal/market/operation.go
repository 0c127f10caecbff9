package market

import (
	"time"

	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
)

// Operation is one decoded marketplace action. The concrete types are
// *List, *DeList, *Buy, *AcceptOffer, *MakeOffer, *CancelOffer and *Ignored.
type Operation interface {
	EventMeta() *Meta
}

// Meta is what every operation carries about the event it came from.
type Meta struct {
	Market   nftmodels.MarketType
	Tx       string
	EventSeq uint64
	Sender   string
	Time     time.Time // zero when the event had no timestamp
}

// EventMeta returns the event metadata.
func (m *Meta) EventMeta() *Meta { return m }

// List opens a listing.
type List struct {
	Meta
	ListID     string
	TokenID    string
	Seller     string
	Price      int64
	ExpireTime *time.Time
}

// DeList cancels a listing.
type DeList struct {
	Meta
	ListID  string
	TokenID string
	Seller  string
	Price   int64
}

// Buy fills a listing. Seller may be empty when the event does not carry
// it; Apply then fills it in from the indexed listing.
type Buy struct {
	Meta
	ListID  string
	TokenID string
	Seller  string
	Buyer   string
	Price   int64
}

// AcceptOffer fills a listing through a standing offer.
type AcceptOffer struct {
	Meta
	OfferID string
	ListID  string
	TokenID string
	Seller  string
	Buyer   string
	Amount  int64
}

// MakeOffer opens an offer against a listing.
type MakeOffer struct {
	Meta
	OfferID    string
	ListID     string
	Buyer      string
	Amount     int64
	ExpireTime *time.Time
}

// CancelOffer withdraws an offer.
type CancelOffer struct {
	Meta
	OfferID string
	ListID  string
	Buyer   string
}

// Ignored is an event from a known contract that is not a market action.
type Ignored struct {
	Meta
	Type string
}

// TokenOf returns the token an operation touches, or "" if it does not name one.
func TokenOf(op Operation) string {
	switch o := op.(type) {
	case *List:
		return o.TokenID
	case *DeList:
		return o.TokenID
	case *Buy:
		return o.TokenID
	case *AcceptOffer:
		return o.TokenID
	}
	return ""
}
