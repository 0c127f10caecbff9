package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
)

type fakeStore struct {
	tokens  map[string]string // token -> collection
	live    map[string]int64  // collection -> live tokens
	updated map[string]int64
	err     error
}

func (f *fakeStore) TokenCollection(ctx context.Context, tokenID string) (string, error) {
	return f.tokens[tokenID], nil
}

func (f *fakeStore) CollectionSupply(ctx context.Context, collectionID string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.live[collectionID], nil
}

func (f *fakeStore) UpdateCollectionSupply(ctx context.Context, collectionID string, supply int64) error {
	if f.updated == nil {
		f.updated = make(map[string]int64)
	}
	f.updated[collectionID] = supply
	return nil
}

func tokenMessage(t *testing.T, tok nftmodels.Token) *message.Message {
	t.Helper()
	payload, err := json.Marshal(tok)
	if err != nil {
		t.Fatal(err)
	}
	return message.NewMessage(watermill.NewUUID(), payload)
}

func TestHandleTokenUpdatesSupply(t *testing.T) {
	store := &fakeStore{
		tokens: map[string]string{"0xt2": "0xd2"},
		live:   map[string]int64{"0xd1": 3, "0xd2": 1},
	}
	w := &Worker{store: store}

	tests := []struct {
		name       string
		tok        nftmodels.Token
		collection string
		want       int64
	}{
		{"create carries collection", nftmodels.Token{TokenID: "0xt1", CollectionID: "0xd1"}, "0xd1", 3},
		{"delete looks collection up", nftmodels.Token{TokenID: "0xt2"}, "0xd2", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := w.handleToken(tokenMessage(t, tt.tok)); err != nil {
				t.Fatalf("handleToken() error = %v", err)
			}
			if got, ok := store.updated[tt.collection]; !ok || got != tt.want {
				t.Errorf("supply[%s] = %d (set %v); want %d", tt.collection, got, ok, tt.want)
			}
		})
	}
}

func TestHandleTokenAcksUnusablePayloads(t *testing.T) {
	store := &fakeStore{}
	w := &Worker{store: store}

	if err := w.handleToken(message.NewMessage(watermill.NewUUID(), []byte("not json"))); err != nil {
		t.Errorf("handleToken(invalid) error = %v; want ack", err)
	}
	if err := w.handleToken(tokenMessage(t, nftmodels.Token{TokenID: "0xunknown"})); err != nil {
		t.Errorf("handleToken(unknown token) error = %v; want ack", err)
	}
	if len(store.updated) != 0 {
		t.Errorf("updated = %v; want none", store.updated)
	}
}

func TestHandleTokenRedeliversOnStoreError(t *testing.T) {
	boom := errors.New("db down")
	w := &Worker{store: &fakeStore{err: boom}}

	err := w.handleToken(tokenMessage(t, nftmodels.Token{TokenID: "0xt1", CollectionID: "0xd1"}))
	if !errors.Is(err, boom) {
		t.Fatalf("handleToken() error = %v; want %v", err, boom)
	}
}
