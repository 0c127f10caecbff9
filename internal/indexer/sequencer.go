package indexer

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// CheckpointSource downloads one checkpoint.
type CheckpointSource interface {
	Download(ctx context.Context, seq uint64) (*CheckpointData, error)
}

// HeadSource reports the newest checkpoint the node has.
type HeadSource interface {
	LatestCheckpointSequenceNumber(ctx context.Context) (uint64, error)
}

// Sequencer downloads checkpoints concurrently and emits them in strictly
// increasing order.
type Sequencer struct {
	source     CheckpointSource
	head       HeadSource
	next       uint64
	batchIndex int
	backoff    time.Duration
}

// NewSequencer starts at next. head may be nil, in which case every cycle
// requests a full batch.
func NewSequencer(source CheckpointSource, head HeadSource, next uint64, batchIndex int, backoff time.Duration) *Sequencer {
	if batchIndex <= 0 {
		batchIndex = 1
	}
	return &Sequencer{
		source:     source,
		head:       head,
		next:       next,
		batchIndex: batchIndex,
		backoff:    backoff,
	}
}

// Next returns the next sequence number that has not been emitted.
func (s *Sequencer) Next() uint64 {
	return s.next
}

// Run emits ordered batches on out until ctx is done. The in-memory cursor
// only moves once a batch has been handed over.
func (s *Sequencer) Run(ctx context.Context, out chan<- []*CheckpointData) error {
	for {
		batch := s.Cycle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if len(batch) == 0 {
			if err := sleep(ctx, s.backoff); err != nil {
				return err
			}
			continue
		}

		select {
		case out <- batch:
			s.next += uint64(len(batch))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Cycle downloads [next, next+n) concurrently and returns the longest
// prefix that succeeded, in sequence order.
func (s *Sequencer) Cycle(ctx context.Context) []*CheckpointData {
	n := s.batchSize(ctx)
	if n == 0 {
		return nil
	}

	cycleCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		data *CheckpointData
		err  error
	}
	results := make([]result, n)
	done := make([]chan struct{}, n)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		done[i] = make(chan struct{})
		seq := s.next + uint64(i)
		g.Go(func() error {
			defer close(done[i])
			results[i].data, results[i].err = s.source.Download(cycleCtx, seq)
			return nil
		})
	}

	batch := make([]*CheckpointData, 0, n)
	for i := 0; i < n; i++ {
		<-done[i]
		if err := results[i].err; err != nil {
			if ctx.Err() == nil {
				slog.Warn("checkpoint download failed, truncating batch",
					"seq", s.next+uint64(i),
					"kept", len(batch),
					"err", err,
				)
			}
			break
		}
		batch = append(batch, results[i].data)
	}

	cancel()
	_ = g.Wait()
	return batch
}

// batchSize caps the cycle at the node head. It returns 0 when caught up.
func (s *Sequencer) batchSize(ctx context.Context) int {
	if s.head == nil {
		return s.batchIndex
	}

	latest, err := s.head.LatestCheckpointSequenceNumber(ctx)
	if err != nil {
		slog.Warn("latest checkpoint lookup failed", "err", err)
		return s.batchIndex
	}
	if latest < s.next {
		return 0
	}
	if ahead := latest - s.next + 1; ahead < uint64(s.batchIndex) {
		return int(ahead)
	}
	return s.batchIndex
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
