package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bobyard/sui-indexer/pkg/rpc"
	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the node's per-request limit for multi-get calls.
const DefaultChunkSize = 50

// NodeClient is the subset of the Sui read API the indexer uses.
type NodeClient interface {
	GetCheckpoint(ctx context.Context, seq uint64) (*rpc.Checkpoint, error)
	LatestCheckpointSequenceNumber(ctx context.Context) (uint64, error)
	MultiGetTransactionBlocks(ctx context.Context, digests []string) ([]rpc.TransactionBlockResponse, error)
	TryMultiGetPastObjects(ctx context.Context, reqs []rpc.PastObjectRequest) ([]rpc.PastObjectResponse, error)
}

// RetryPolicy decides how often and how fast a failed node call is retried.
type RetryPolicy struct {
	MaxAttempts int // 0 retries forever
	Delay       func(attempt int) time.Duration
}

// FixedDelay retries forever, waiting d between attempts.
func FixedDelay(d time.Duration) RetryPolicy {
	return RetryPolicy{Delay: func(int) time.Duration { return d }}
}

// Do calls fn until it succeeds, the attempts run out or ctx is done.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return fmt.Errorf("%s: giving up after %d attempts: %w", op, attempt, err)
		}

		var delay time.Duration
		if p.Delay != nil {
			delay = p.Delay(attempt)
		}
		slog.Warn("node call failed, retrying", "op", op, "attempt", attempt, "delay", delay, "err", err)

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// Downloader fetches a checkpoint with its transactions and the content of
// every object it changed.
type Downloader struct {
	client    NodeClient
	chunkSize int
	retry     RetryPolicy
}

// NewDownloader creates a Downloader. chunkSize <= 0 uses DefaultChunkSize.
func NewDownloader(client NodeClient, chunkSize int, retry RetryPolicy) *Downloader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Downloader{client: client, chunkSize: chunkSize, retry: retry}
}

// Download fetches checkpoint seq. Node calls are retried per the policy; an
// object whose version cannot be resolved fails the whole checkpoint.
func (d *Downloader) Download(ctx context.Context, seq uint64) (*CheckpointData, error) {
	start := time.Now()

	var cp *rpc.Checkpoint
	err := d.retry.Do(ctx, "get_checkpoint", func() error {
		var err error
		cp, err = d.client.GetCheckpoint(ctx, seq)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("checkpoint %d: %w", seq, err)
	}

	txs, err := d.fetchTransactions(ctx, cp.Transactions)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %d: %w", seq, err)
	}

	data := &CheckpointData{Checkpoint: cp, Transactions: txs}

	var pending []ObjectChange
	for i := range txs {
		if txs[i].TimestampMs == nil {
			ts := cp.TimestampMs
			txs[i].TimestampMs = &ts
		}
		changes, gone, err := ExtractChanges(&txs[i])
		if err != nil {
			return nil, fmt.Errorf("checkpoint %d: %w", seq, err)
		}
		pending = append(pending, changes...)
		data.Deleted = append(data.Deleted, gone...)
		data.Events = append(data.Events, ExtractEvents(&txs[i])...)
	}

	// Objects deleted later in the checkpoint have no content left to resolve.
	deleted := make(map[string]struct{})
	for _, g := range data.Deleted {
		if g.Status == Deleted || g.Status == UnwrappedThenDeleted {
			deleted[g.ObjectID] = struct{}{}
		}
	}
	live := pending[:0]
	for _, c := range pending {
		if _, ok := deleted[c.ObjectID]; !ok {
			live = append(live, c)
		}
	}

	data.Changes, err = d.resolveObjects(ctx, live)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %d: %w", seq, err)
	}

	slog.Debug("downloaded checkpoint",
		"seq", seq,
		"transactions", len(txs),
		"changes", len(data.Changes),
		"deleted", len(data.Deleted),
		"events", len(data.Events),
		"duration", time.Since(start),
	)
	return data, nil
}

// fetchTransactions multi-gets digests in chunks concurrently and keeps chunk order.
func (d *Downloader) fetchTransactions(ctx context.Context, digests []string) ([]rpc.TransactionBlockResponse, error) {
	chunks := chunk(digests, d.chunkSize)
	results := make([][]rpc.TransactionBlockResponse, len(chunks))

	g, gCtx := errgroup.WithContext(ctx)
	for i, c := range chunks {
		g.Go(func() error {
			return d.retry.Do(gCtx, "multi_get_transactions", func() error {
				var err error
				results[i], err = d.client.MultiGetTransactionBlocks(gCtx, c)
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	out := make([]rpc.TransactionBlockResponse, 0, len(digests))
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// resolveObjects fetches every change at its version, in change order.
func (d *Downloader) resolveObjects(ctx context.Context, changes []ObjectChange) ([]ResolvedChange, error) {
	chunks := chunk(changes, d.chunkSize)
	results := make([][]rpc.PastObjectResponse, len(chunks))

	g, gCtx := errgroup.WithContext(ctx)
	for i, c := range chunks {
		reqs := make([]rpc.PastObjectRequest, len(c))
		for j, ch := range c {
			reqs[j] = rpc.PastObjectRequest{ObjectID: ch.ObjectID, Version: rpc.BigInt(ch.Version)}
		}
		g.Go(func() error {
			return d.retry.Do(gCtx, "multi_get_past_objects", func() error {
				var err error
				results[i], err = d.client.TryMultiGetPastObjects(gCtx, reqs)
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve objects: %w", err)
	}

	resolved := make([]ResolvedChange, 0, len(changes))
	for i, c := range chunks {
		if len(results[i]) != len(c) {
			return nil, fmt.Errorf("resolve objects: got %d results for %d requests", len(results[i]), len(c))
		}
		for j, ch := range c {
			obj, err := results[i][j].Object()
			if err != nil {
				return nil, fmt.Errorf("resolve %s@%d: %w", ch.ObjectID, ch.Version, err)
			}
			resolved = append(resolved, ResolvedChange{
				Status:      ch.Status,
				Object:      obj,
				Sender:      ch.Sender,
				TimestampMs: ch.TimestampMs,
			})
		}
	}
	return resolved, nil
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size:size])
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
