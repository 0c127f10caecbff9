package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bobyard/sui-indexer/pkg/rpc"
)

// fakeNode serves checkpoints from memory.
type fakeNode struct {
	mu          sync.Mutex
	latest      uint64
	checkpoints map[uint64]*rpc.Checkpoint
	txs         map[string]rpc.TransactionBlockResponse
	objects     map[string]*rpc.ObjectData // "id@version"
	missing     map[string]bool
	failGet     map[uint64]bool

	txBatches  []int
	objBatches []int
	flaky      atomic.Int32 // remaining failures of TryMultiGetPastObjects
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		checkpoints: make(map[uint64]*rpc.Checkpoint),
		txs:         make(map[string]rpc.TransactionBlockResponse),
		objects:     make(map[string]*rpc.ObjectData),
		missing:     make(map[string]bool),
		failGet:     make(map[uint64]bool),
	}
}

func (n *fakeNode) addCheckpoint(seq uint64, txs ...rpc.TransactionBlockResponse) {
	n.mu.Lock()
	defer n.mu.Unlock()
	cp := &rpc.Checkpoint{SequenceNumber: rpc.BigInt(seq), TimestampMs: rpc.BigInt(checkpointT + seq)}
	for _, tx := range txs {
		cp.Transactions = append(cp.Transactions, tx.Digest)
		n.txs[tx.Digest] = tx
	}
	n.checkpoints[seq] = cp
	if seq > n.latest {
		n.latest = seq
	}
}

func (n *fakeNode) addObject(obj *rpc.ObjectData) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.objects[fmt.Sprintf("%s@%d", obj.ObjectID, obj.Version)] = obj
}

func (n *fakeNode) GetCheckpoint(ctx context.Context, seq uint64) (*rpc.Checkpoint, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failGet[seq] {
		return nil, fmt.Errorf("checkpoint %d unavailable", seq)
	}
	cp, ok := n.checkpoints[seq]
	if !ok {
		return nil, fmt.Errorf("checkpoint %d not found", seq)
	}
	c := *cp
	return &c, nil
}

func (n *fakeNode) LatestCheckpointSequenceNumber(ctx context.Context) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.latest, nil
}

func (n *fakeNode) MultiGetTransactionBlocks(ctx context.Context, digests []string) ([]rpc.TransactionBlockResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.txBatches = append(n.txBatches, len(digests))
	out := make([]rpc.TransactionBlockResponse, len(digests))
	for i, d := range digests {
		tx, ok := n.txs[d]
		if !ok {
			return nil, fmt.Errorf("transaction %s not found", d)
		}
		out[i] = tx
	}
	return out, nil
}

func (n *fakeNode) TryMultiGetPastObjects(ctx context.Context, reqs []rpc.PastObjectRequest) ([]rpc.PastObjectResponse, error) {
	if n.flaky.Load() > 0 {
		n.flaky.Add(-1)
		return nil, errors.New("connection reset")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.objBatches = append(n.objBatches, len(reqs))
	out := make([]rpc.PastObjectResponse, len(reqs))
	for i, r := range reqs {
		key := fmt.Sprintf("%s@%d", r.ObjectID, r.Version)
		obj, ok := n.objects[key]
		if !ok || n.missing[key] {
			out[i] = rpc.PastObjectResponse{Status: "VersionNotFound", Details: json.RawMessage(`["` + r.ObjectID + `"]`)}
			continue
		}
		raw, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		out[i] = rpc.PastObjectResponse{Status: rpc.VersionFound, Details: raw}
	}
	return out, nil
}

func createTx(digest, sender string, created ...string) rpc.TransactionBlockResponse {
	tx := rpc.TransactionBlockResponse{
		Digest:      digest,
		Transaction: &rpc.TransactionBlock{Data: rpc.TransactionBlockData{Sender: sender}},
		Effects:     &rpc.TransactionEffects{},
	}
	for _, id := range created {
		tx.Effects.Created = append(tx.Effects.Created, rpc.OwnedObjectRef{Reference: rpc.ObjectRef{ObjectID: id, Version: 1}})
	}
	return tx
}

func TestDownloadChunksAndKeepsOrder(t *testing.T) {
	node := newFakeNode()

	var txs []rpc.TransactionBlockResponse
	for i := 0; i < 7; i++ {
		id := fmt.Sprintf("0xt%d", i)
		node.addObject(tokenObject(id, 1, "0xa"))
		txs = append(txs, createTx(fmt.Sprintf("TX%d", i), "0xa", id))
	}
	node.addCheckpoint(9, txs...)

	d := NewDownloader(node, 3, FixedDelay(0))
	data, err := d.Download(context.Background(), 9)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if len(data.Transactions) != 7 {
		t.Fatalf("transactions = %d; want 7", len(data.Transactions))
	}
	for i, tx := range data.Transactions {
		if want := fmt.Sprintf("TX%d", i); tx.Digest != want {
			t.Errorf("transactions[%d] = %s; want %s", i, tx.Digest, want)
		}
		if tx.TimestampMs == nil || uint64(*tx.TimestampMs) != checkpointT+9 {
			t.Errorf("transactions[%d] not stamped with checkpoint time", i)
		}
	}
	for i, ch := range data.Changes {
		if want := fmt.Sprintf("0xt%d", i); ch.Object.ObjectID != want {
			t.Errorf("changes[%d] = %s; want %s", i, ch.Object.ObjectID, want)
		}
		if ch.Object.Owner == nil || ch.Object.Owner.OwnerAddress() != "0xa" {
			t.Errorf("changes[%d] owner = %v", i, ch.Object.Owner)
		}
	}
	for _, n := range append(node.txBatches, node.objBatches...) {
		if n > 3 {
			t.Errorf("request of %d items exceeds chunk size 3", n)
		}
	}
}

func TestDownloadSkipsObjectsDeletedInCheckpoint(t *testing.T) {
	node := newFakeNode()
	node.addObject(tokenObject("0xkeep", 1, "0xa"))

	burn := rpc.TransactionBlockResponse{
		Digest:      "TX2",
		Transaction: &rpc.TransactionBlock{Data: rpc.TransactionBlockData{Sender: "0xa"}},
		Effects:     &rpc.TransactionEffects{Deleted: []rpc.ObjectRef{{ObjectID: "0xgone", Version: 2}}},
	}
	node.addCheckpoint(1, createTx("TX1", "0xa", "0xkeep", "0xgone"), burn)

	data, err := NewDownloader(node, 0, FixedDelay(0)).Download(context.Background(), 1)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if len(data.Changes) != 1 || data.Changes[0].Object.ObjectID != "0xkeep" {
		t.Errorf("changes = %+v; want only 0xkeep", data.Changes)
	}
	if len(data.Deleted) != 1 || data.Deleted[0].ObjectID != "0xgone" {
		t.Errorf("deleted = %+v; want 0xgone", data.Deleted)
	}
}

func TestDownloadFailsOnUnresolvedVersion(t *testing.T) {
	node := newFakeNode()
	node.addCheckpoint(1, createTx("TX1", "0xa", "0xnope"))

	_, err := NewDownloader(node, 0, FixedDelay(0)).Download(context.Background(), 1)
	if err == nil || !strings.Contains(err.Error(), "VersionNotFound") {
		t.Fatalf("Download() error = %v; want VersionNotFound", err)
	}
}

func TestDownloadRetriesNodeErrors(t *testing.T) {
	node := newFakeNode()
	node.addObject(tokenObject("0xt", 1, "0xa"))
	node.addCheckpoint(1, createTx("TX1", "0xa", "0xt"))
	node.flaky.Store(2)

	d := NewDownloader(node, 0, RetryPolicy{MaxAttempts: 3, Delay: func(int) time.Duration { return time.Millisecond }})
	data, err := d.Download(context.Background(), 1)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if len(data.Changes) != 1 {
		t.Errorf("changes = %d; want 1", len(data.Changes))
	}

	node.flaky.Store(5)
	if _, err := d.Download(context.Background(), 1); err == nil {
		t.Fatal("Download() error = nil; want error after attempts run out")
	}
}

func TestRetryPolicyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := FixedDelay(time.Hour).Do(ctx, "op", func() error {
		calls++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v; want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d; want 1", calls)
	}
}

func TestChunk(t *testing.T) {
	got := chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(got) != 3 || len(got[2]) != 1 || got[2][0] != 5 {
		t.Errorf("chunk() = %v", got)
	}
	if got := chunk([]int{}, 2); len(got) != 0 {
		t.Errorf("chunk(empty) = %v", got)
	}
}
