package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
	"github.com/bobyard/sui-indexer/pkg/rpc"
)

var (
	// ErrMalformed is returned for an event of a known kind whose payload cannot be decoded.
	ErrMalformed = errors.New("malformed market event")
	// ErrNotIndexed is returned when an event references a listing or offer that was never indexed.
	ErrNotIndexed = errors.New("market record not indexed")
)

// SystemAddress is the Sui framework package that defines the kiosk events.
const SystemAddress = "0x2"

// Dialect decodes the events of one marketplace contract.
type Dialect interface {
	Market() nftmodels.MarketType
	// Decode returns *Ignored for event types the dialect does not handle.
	Decode(ev rpc.Event, meta Meta) (Operation, error)
}

// Addresses configures the package address of each marketplace contract.
// An empty address disables that dialect.
type Addresses struct {
	BobYard    string
	OriginByte string
}

// Decoder routes events to a dialect by the address that defines the event type.
type Decoder struct {
	dialects map[string]Dialect
}

// NewDecoder builds the address→dialect table. The kiosk dialect is always enabled.
func NewDecoder(addrs Addresses) *Decoder {
	d := &Decoder{dialects: make(map[string]Dialect)}
	d.dialects[NormalizeAddress(SystemAddress)] = kioskDialect{}
	if addrs.BobYard != "" {
		d.dialects[NormalizeAddress(addrs.BobYard)] = bobYardDialect{}
	}
	if addrs.OriginByte != "" {
		d.dialects[NormalizeAddress(addrs.OriginByte)] = originByteDialect{}
	}
	return d
}

// DecodeEvent decodes one event. Events from unknown contracts decode to *Ignored.
func (d *Decoder) DecodeEvent(ev rpc.Event) (Operation, error) {
	meta := Meta{
		Tx:       ev.ID.TxDigest,
		EventSeq: uint64(ev.ID.EventSeq),
		Sender:   ev.Sender,
	}
	if ev.TimestampMs != nil {
		meta.Time = time.UnixMilli(int64(*ev.TimestampMs)).UTC()
	}

	dialect, ok := d.dialects[NormalizeAddress(ev.SourceAddress())]
	if !ok {
		return &Ignored{Meta: meta, Type: ev.Type}, nil
	}
	meta.Market = dialect.Market()

	op, err := dialect.Decode(ev, meta)
	if err != nil {
		return nil, fmt.Errorf("decode %s (tx %s, seq %d): %w", ev.Type, meta.Tx, meta.EventSeq, err)
	}
	return op, nil
}

// Decode decodes events in order and drops the ignored ones.
func (d *Decoder) Decode(events []rpc.Event) ([]Operation, error) {
	var ops []Operation
	for _, ev := range events {
		op, err := d.DecodeEvent(ev)
		if err != nil {
			return nil, err
		}
		if _, ignored := op.(*Ignored); ignored {
			continue
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// NormalizeAddress lower-cases an address and left-pads it to 32 bytes.
func NormalizeAddress(addr string) string {
	a := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X"))
	if len(a) < 64 {
		a = strings.Repeat("0", 64-len(a)) + a
	}
	return "0x" + a
}

func unmarshalPayload(ev rpc.Event, v any) error {
	if err := json.Unmarshal(ev.ParsedJSON, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// require takes name/value pairs and fails on the first empty value.
func require(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("%w: missing %s", ErrMalformed, pairs[i])
		}
	}
	return nil
}
