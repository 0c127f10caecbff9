package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bobyard/sui-indexer/internal/publisher"
	"github.com/bobyard/sui-indexer/internal/registry"
	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
	"github.com/bobyard/sui-indexer/pkg/rpc"
)

// memBackend is a registry backend held in memory.
type memBackend struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memBackend) LoadAll(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memBackend) Store(ctx context.Context, collectionType, collectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]string)
	}
	if _, ok := m.data[collectionType]; !ok {
		m.data[collectionType] = collectionID
	}
	return nil
}

func newRegistry() *registry.Registry {
	return registry.New(&memBackend{})
}

// memState is a snapshot of every table.
type memState struct {
	cursor      *uint64
	collections map[string]nftmodels.Collection
	tokens      map[string]nftmodels.Token
	lists       map[string]nftmodels.List
	offers      map[string]nftmodels.Offer
	orders      []nftmodels.Order
	activities  []nftmodels.Activity
}

func newMemState() *memState {
	return &memState{
		collections: make(map[string]nftmodels.Collection),
		tokens:      make(map[string]nftmodels.Token),
		lists:       make(map[string]nftmodels.List),
		offers:      make(map[string]nftmodels.Offer),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	if s.cursor != nil {
		v := *s.cursor
		c.cursor = &v
	}
	for k, v := range s.collections {
		c.collections[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for k, v := range s.lists {
		c.lists[k] = v
	}
	for k, v := range s.offers {
		c.offers[k] = v
	}
	c.orders = append(c.orders, s.orders...)
	c.activities = append(c.activities, s.activities...)
	return c
}

// memDB commits a transaction by swapping in the modified snapshot.
type memDB struct {
	mu         sync.Mutex
	state      *memState
	failCursor error // returned by AdvanceCursor when set
}

func newMemDB() *memDB {
	return &memDB{state: newMemState()}
}

func (m *memDB) InTx(ctx context.Context, fn func(UnitOfWork) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(&memTx{s: work, failCursor: m.failCursor}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memDB) Cursor(ctx context.Context) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.cursor == nil {
		return 0, false, nil
	}
	return *m.state.cursor, true, nil
}

func (m *memDB) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

type memTx struct {
	s          *memState
	failCursor error
}

func (t *memTx) LockCursor(ctx context.Context) (uint64, bool, error) {
	if t.s.cursor == nil {
		return 0, false, nil
	}
	return *t.s.cursor, true, nil
}

func (t *memTx) AdvanceCursor(ctx context.Context, seq uint64) error {
	if t.failCursor != nil {
		return t.failCursor
	}
	t.s.cursor = &seq
	return nil
}

func (t *memTx) InsertCollections(ctx context.Context, collections []*nftmodels.Collection) error {
	for _, c := range collections {
		if _, ok := t.s.collections[c.CollectionID]; !ok {
			t.s.collections[c.CollectionID] = *c
		}
	}
	return nil
}

func (t *memTx) InsertTokens(ctx context.Context, tokens []*nftmodels.Token) error {
	for _, tok := range tokens {
		if _, ok := t.s.tokens[tok.TokenID]; !ok {
			t.s.tokens[tok.TokenID] = *tok
		}
	}
	return nil
}

func (t *memTx) UpsertTokens(ctx context.Context, tokens []*nftmodels.Token) error {
	for _, tok := range tokens {
		existing, ok := t.s.tokens[tok.TokenID]
		if !ok {
			t.s.tokens[tok.TokenID] = *tok
			continue
		}
		if existing.Version > tok.Version {
			continue
		}
		image := existing.Image
		created := existing.CreatedAt
		existing = *tok
		existing.Image = image
		existing.CreatedAt = created
		t.s.tokens[tok.TokenID] = existing
	}
	return nil
}

func (t *memTx) MarkTokensDeleted(ctx context.Context, ids []string, at time.Time) ([]string, error) {
	var out []string
	for _, id := range ids {
		tok, ok := t.s.tokens[id]
		if !ok {
			continue
		}
		tok.Status = nftmodels.TokenDelete
		tok.UpdatedAt = at
		t.s.tokens[id] = tok
		out = append(out, id)
	}
	return out, nil
}

func (t *memTx) ExistingTokens(ctx context.Context, ids []string) ([]string, error) {
	var out []string
	for _, id := range ids {
		if _, ok := t.s.tokens[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (t *memTx) InsertActivities(ctx context.Context, activities []*nftmodels.Activity) error {
	for _, a := range activities {
		row := *a
		if tok, ok := t.s.tokens[row.TokenID]; ok {
			if row.CollectionID == "" {
				row.CollectionID = tok.CollectionID
			}
			if row.Name == "" {
				row.Name = tok.TokenName
			}
		}
		t.s.activities = append(t.s.activities, row)
	}
	return nil
}

func (t *memTx) InsertList(ctx context.Context, l *nftmodels.List) error {
	t.s.lists[l.ListID] = *l
	return nil
}

func (t *memTx) CloseList(ctx context.Context, listID string, state nftmodels.ListType) (int64, error) {
	l, ok := t.s.lists[listID]
	if !ok {
		return 0, nil
	}
	l.ListType = state
	t.s.lists[listID] = l
	return 1, nil
}

func (t *memTx) ListedToken(ctx context.Context, listID string) (string, string, bool, error) {
	l, ok := t.s.lists[listID]
	if !ok {
		return "", "", false, nil
	}
	return l.TokenID, l.SellerAddress, true, nil
}

func (t *memTx) InsertOffer(ctx context.Context, o *nftmodels.Offer) error {
	t.s.offers[o.OfferID] = *o
	return nil
}

func (t *memTx) CloseOffer(ctx context.Context, offerID string, state nftmodels.OfferType) (int64, error) {
	o, ok := t.s.offers[offerID]
	if !ok {
		return 0, nil
	}
	o.OfferType = state
	t.s.offers[offerID] = o
	return 1, nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *nftmodels.Order) error {
	for _, existing := range t.s.orders {
		if existing.ListID == o.ListID && existing.Tx == o.Tx {
			return nil
		}
	}
	t.s.orders = append(t.s.orders, *o)
	return nil
}

// recordingNotifier keeps every enqueued notification.
type recordingNotifier struct {
	mu    sync.Mutex
	notes []publisher.Notification
}

func (r *recordingNotifier) Enqueue(ctx context.Context, note publisher.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note)
	return nil
}

func (r *recordingNotifier) routingKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, len(r.notes))
	for i, n := range r.notes {
		keys[i] = n.RoutingKey
	}
	return keys
}

// Object and event builders.

const (
	fooType     = "0xabc::foo::Foo"
	displayFoo  = "0x2::display::Display<0xabc::foo::Foo>"
	bobYardAddr = "0xb0b"
	checkpointT = 1700000000000
)

func displayObject(id string, version uint64) *rpc.ObjectData {
	fields := map[string]any{
		"id": map[string]any{"id": id},
		"fields": map[string]any{
			"type": "0x2::vec_map::VecMap<0x1::string::String, 0x1::string::String>",
			"fields": map[string]any{
				"contents": []any{
					map[string]any{"type": "0x2::vec_map::Entry", "fields": map[string]any{"key": "name", "value": "{name}"}},
					map[string]any{"type": "0x2::vec_map::Entry", "fields": map[string]any{"key": "image_url", "value": "ipfs://{img}"}},
					map[string]any{"type": "0x2::vec_map::Entry", "fields": map[string]any{"key": "description", "value": "Foo things"}},
					map[string]any{"type": "0x2::vec_map::Entry", "fields": map[string]any{"key": "project_url", "value": "https://foo.xyz"}},
				},
			},
		},
		"version": "1",
	}
	raw, _ := json.Marshal(fields)
	return &rpc.ObjectData{
		ObjectID:            id,
		Version:             rpc.BigInt(version),
		Type:                displayFoo,
		Owner:               &rpc.ObjectOwner{Kind: "AddressOwner", Address: "0xcreator"},
		PreviousTransaction: "TXD",
		Content:             &rpc.ParsedData{DataType: "moveObject", Type: displayFoo, Fields: raw},
	}
}

func tokenObject(id string, version uint64, owner string) *rpc.ObjectData {
	return &rpc.ObjectData{
		ObjectID:            id,
		Version:             rpc.BigInt(version),
		Type:                fooType,
		Owner:               &rpc.ObjectOwner{Kind: "AddressOwner", Address: owner},
		PreviousTransaction: fmt.Sprintf("TX%d", version),
		Display: &rpc.DisplayField{Data: map[string]string{
			"name":      fmt.Sprintf("Foo %s", id),
			"image_url": "ipfs://" + id,
		}},
	}
}

func checkpoint(seq uint64) *CheckpointData {
	return &CheckpointData{
		Checkpoint: &rpc.Checkpoint{
			SequenceNumber: rpc.BigInt(seq),
			TimestampMs:    rpc.BigInt(checkpointT + seq),
		},
	}
}

func change(status ObjectStatus, obj *rpc.ObjectData, sender string) ResolvedChange {
	return ResolvedChange{Status: status, Object: obj, Sender: sender, TimestampMs: checkpointT}
}

func marketEvent(name, tx string, payload map[string]any) rpc.Event {
	raw, _ := json.Marshal(payload)
	return rpc.Event{
		ID:         rpc.EventID{TxDigest: tx},
		Type:       bobYardAddr + "::market::" + name + "<" + fooType + ">",
		ParsedJSON: raw,
	}
}
