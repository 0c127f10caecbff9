package nft

import "time"

const (
	ListsTableName  = "lists"
	OffersTableName = "offers"
	OrdersTableName = "orders"
)

// MarketType names the marketplace dialect a record originated from.
type MarketType string

const (
	MarketBobYard    MarketType = "bobyard"
	MarketKiosk      MarketType = "kiosk"
	MarketOriginByte MarketType = "originbyte"
)

// ListType is the state of a listing.
type ListType string

const (
	ListListed   ListType = "listed"
	ListExpired  ListType = "expired"
	ListCanceled ListType = "canceled"
	ListSold     ListType = "sold"
)

// OfferType is the state of an offer. It shares the listing state names.
type OfferType string

const (
	OfferListed   OfferType = "listed"
	OfferExpired  OfferType = "expired"
	OfferCanceled OfferType = "canceled"
	OfferSold     OfferType = "sold"
)

// OrderType is the kind of completed trade.
type OrderType string

const (
	OrderSold     OrderType = "sold"
	OrderOffer    OrderType = "offer"
	OrderExchange OrderType = "exchange"
)

// List is an open (or closed) marketplace listing.
type List struct {
	ListID        string     `json:"list_id" db:"list_id"`
	ChainID       int64      `json:"chain_id" db:"chain_id"`
	TokenID       string     `json:"token_id" db:"token_id"`
	SellerAddress string     `json:"seller_address" db:"seller_address"`
	SellerValue   int64      `json:"seller_value" db:"seller_value"`
	MarketType    MarketType `json:"market_type" db:"market_type"`
	ListType      ListType   `json:"list_type" db:"list_type"`
	ListTime      time.Time  `json:"list_time" db:"list_time"`
	ExpireTime    *time.Time `json:"expire_time,omitempty" db:"expire_time"`
}

// Offer is a standing buy offer against a listing.
type Offer struct {
	OfferID      string     `json:"offer_id" db:"offer_id"`
	ChainID      int64      `json:"chain_id" db:"chain_id"`
	ListID       string     `json:"list_id" db:"list_id"`
	BuyerAddress string     `json:"buyer_address" db:"buyer_address"`
	OfferValue   int64      `json:"offer_value" db:"offer_value"`
	OfferType    OfferType  `json:"offer_type" db:"offer_type"`
	ExpireTime   *time.Time `json:"expire_time,omitempty" db:"expire_time"`
	OfferTime    time.Time  `json:"offer_time" db:"offer_time"`
}

// Order is a completed trade. Orders are immutable.
type Order struct {
	ListID        string     `json:"list_id" db:"list_id"`
	Tx            string     `json:"tx" db:"tx"`
	ChainID       int64      `json:"chain_id" db:"chain_id"`
	TokenID       string     `json:"token_id" db:"token_id"`
	OfferID       *string    `json:"offer_id,omitempty" db:"offer_id"`
	SellerAddress string     `json:"seller_address" db:"seller_address"`
	BuyerAddress  string     `json:"buyer_address" db:"buyer_address"`
	Value         int64      `json:"value" db:"value"`
	OrderType     OrderType  `json:"order_type" db:"order_type"`
	MarketType    MarketType `json:"market_type" db:"market_type"`
	SellTime      time.Time  `json:"sell_time" db:"sell_time"`
}
