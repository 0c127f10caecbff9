package market

import (
	"encoding/json"
	"errors"
	"testing"

	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
	"github.com/bobyard/sui-indexer/pkg/rpc"
)

const (
	bobYardPkg    = "0xB0B"
	originBytePkg = "0x0b"
)

func event(typ, sender string, payload any) rpc.Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	ts := rpc.BigInt(1700000000000)
	return rpc.Event{
		ID:          rpc.EventID{TxDigest: "TX1", EventSeq: 0},
		Sender:      sender,
		Type:        typ,
		ParsedJSON:  raw,
		TimestampMs: &ts,
	}
}

func newTestDecoder() *Decoder {
	return NewDecoder(Addresses{BobYard: bobYardPkg, OriginByte: originBytePkg})
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0x2", "0x0000000000000000000000000000000000000000000000000000000000000002"},
		{"0xB0B", "0x0000000000000000000000000000000000000000000000000000000000000b0b"},
		{"0x0000000000000000000000000000000000000000000000000000000000000002", "0x0000000000000000000000000000000000000000000000000000000000000002"},
	}

	for _, tt := range tests {
		if got := NormalizeAddress(tt.in); got != tt.want {
			t.Errorf("NormalizeAddress(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeBobYard(t *testing.T) {
	d := newTestDecoder()
	typ := "0x0000000000000000000000000000000000000000000000000000000000000b0b::market::"

	op, err := d.DecodeEvent(event(typ+"ListEvent<0x5::nft::Ape>", "0xseller", map[string]any{
		"list_id":      "L1",
		"list_item_id": "T1",
		"expire_time":  "1700000100000",
		"ask":          "100",
		"owner":        "0xseller",
	}))
	if err != nil {
		t.Fatalf("DecodeEvent(ListEvent) error = %v", err)
	}
	l, ok := op.(*List)
	if !ok {
		t.Fatalf("DecodeEvent(ListEvent) = %T; want *List", op)
	}
	if l.ListID != "L1" || l.TokenID != "T1" || l.Price != 100 || l.Seller != "0xseller" {
		t.Errorf("List = %+v", l)
	}
	if l.Market != nftmodels.MarketBobYard {
		t.Errorf("Market = %s; want %s", l.Market, nftmodels.MarketBobYard)
	}
	if l.ExpireTime == nil || l.ExpireTime.UnixMilli() != 1700000100000 {
		t.Errorf("ExpireTime = %v; want 1700000100000ms", l.ExpireTime)
	}

	op, err = d.DecodeEvent(event(typ+"BuyEvent<0x5::nft::Ape>", "0xbuyer", map[string]any{
		"list_id": "L1",
		"item_id": "T1",
		"ask":     100,
		"owner":   "0xseller",
		"buyer":   "0xbuyer",
	}))
	if err != nil {
		t.Fatalf("DecodeEvent(BuyEvent) error = %v", err)
	}
	b, ok := op.(*Buy)
	if !ok {
		t.Fatalf("DecodeEvent(BuyEvent) = %T; want *Buy", op)
	}
	if b.Buyer != "0xbuyer" || b.Price != 100 {
		t.Errorf("Buy = %+v", b)
	}

	op, err = d.DecodeEvent(event(typ+"OfferEvent<0x5::nft::Ape>", "0xbidder", map[string]any{
		"offer_id":     "O1",
		"list_id":      "L1",
		"offer_amount": "90",
		"expire_time":  "0",
		"owner":        "0xbidder",
	}))
	if err != nil {
		t.Fatalf("DecodeEvent(OfferEvent) error = %v", err)
	}
	mo, ok := op.(*MakeOffer)
	if !ok {
		t.Fatalf("DecodeEvent(OfferEvent) = %T; want *MakeOffer", op)
	}
	if mo.ExpireTime != nil {
		t.Errorf("zero expire_time should decode to nil, got %v", mo.ExpireTime)
	}

	op, err = d.DecodeEvent(event(typ+"SomethingElse", "0x1", map[string]any{}))
	if err != nil {
		t.Fatalf("DecodeEvent(unknown name) error = %v", err)
	}
	if _, ok := op.(*Ignored); !ok {
		t.Errorf("DecodeEvent(unknown name) = %T; want *Ignored", op)
	}
}

func TestDecodeKiosk(t *testing.T) {
	d := newTestDecoder()

	op, err := d.DecodeEvent(event("0x2::kiosk::ItemListed<0x5::nft::Ape>", "0xseller", map[string]any{
		"id":    "0xitem",
		"kiosk": "0xkiosk",
		"price": "42",
	}))
	if err != nil {
		t.Fatalf("DecodeEvent(ItemListed) error = %v", err)
	}
	l, ok := op.(*List)
	if !ok {
		t.Fatalf("DecodeEvent(ItemListed) = %T; want *List", op)
	}
	if l.ListID != "0xitem" || l.Seller != "0xseller" || l.Price != 42 || l.Market != nftmodels.MarketKiosk {
		t.Errorf("List = %+v", l)
	}

	op, err = d.DecodeEvent(event("0x2::kiosk::ItemPurchased<0x5::nft::Ape>", "0xbuyer", map[string]any{
		"id":    "0xitem",
		"kiosk": "0xkiosk",
		"price": "42",
	}))
	if err != nil {
		t.Fatalf("DecodeEvent(ItemPurchased) error = %v", err)
	}
	b, ok := op.(*Buy)
	if !ok {
		t.Fatalf("DecodeEvent(ItemPurchased) = %T; want *Buy", op)
	}
	if b.Buyer != "0xbuyer" || b.Seller != "" {
		t.Errorf("Buy = %+v; want buyer from sender and empty seller", b)
	}

	// Other framework events share the address but are not market actions.
	op, err = d.DecodeEvent(event("0x2::display::DisplayCreated<0x5::nft::Ape>", "0x1", map[string]any{"id": "0xd"}))
	if err != nil {
		t.Fatalf("DecodeEvent(DisplayCreated) error = %v", err)
	}
	if _, ok := op.(*Ignored); !ok {
		t.Errorf("DecodeEvent(DisplayCreated) = %T; want *Ignored", op)
	}
}

func TestDecodeOriginByte(t *testing.T) {
	d := newTestDecoder()
	typ := "0xb::orderbook::"

	op, err := d.DecodeEvent(event(typ+"TradeFilledEvent", "0x1", map[string]any{
		"nft":    "0xnft",
		"buyer":  "0xbuyer",
		"seller": "0xseller",
		"price":  "7",
	}))
	if err != nil {
		t.Fatalf("DecodeEvent(TradeFilledEvent) error = %v", err)
	}
	if b, ok := op.(*Buy); !ok || b.ListID != "0xnft" || b.Market != nftmodels.MarketOriginByte {
		t.Errorf("DecodeEvent(TradeFilledEvent) = %+v", op)
	}

	op, err = d.DecodeEvent(event(typ+"TradeFilledEvent", "0x1", map[string]any{"buyer": "0xbuyer", "price": "7"}))
	if err != nil {
		t.Fatalf("DecodeEvent(TradeFilledEvent without nft) error = %v", err)
	}
	if _, ok := op.(*Ignored); !ok {
		t.Errorf("trade without nft = %T; want *Ignored", op)
	}
}

func TestDecodeMalformed(t *testing.T) {
	d := newTestDecoder()
	typ := "0xb0b::market::"

	tests := []struct {
		name string
		ev   rpc.Event
	}{
		{"missing list id", event(typ+"ListEvent", "0x1", map[string]any{"list_item_id": "T", "owner": "0x1", "ask": "1"})},
		{"negative ask", event(typ+"BuyEvent", "0x1", map[string]any{"list_id": "L", "item_id": "T", "buyer": "0x1", "ask": "-1"})},
		{"fractional ask", event(typ+"BuyEvent", "0x1", map[string]any{"list_id": "L", "item_id": "T", "buyer": "0x1", "ask": "1.5"})},
		{"overflow", event(typ+"BuyEvent", "0x1", map[string]any{"list_id": "L", "item_id": "T", "buyer": "0x1", "ask": "18446744073709551615"})},
		{"not an object", rpc.Event{Type: typ + "ListEvent", ParsedJSON: json.RawMessage(`[1,2]`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.DecodeEvent(tt.ev); !errors.Is(err, ErrMalformed) {
				t.Errorf("DecodeEvent() err = %v; want ErrMalformed", err)
			}
		})
	}
}

func TestDecodeDropsUnknownContracts(t *testing.T) {
	d := newTestDecoder()

	ops, err := d.Decode([]rpc.Event{
		event("0xdead::coin::Minted", "0x1", map[string]any{"amount": "1"}),
		event("0xb0b::market::CancelOfferEvent", "0x1", map[string]any{"offer_id": "O1", "list_id": "L1", "owner": "0x1"}),
	})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("len(ops) = %d; want 1", len(ops))
	}
	if _, ok := ops[0].(*CancelOffer); !ok {
		t.Errorf("ops[0] = %T; want *CancelOffer", ops[0])
	}
}
