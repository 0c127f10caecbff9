package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options tunes the ingestion loop.
type Options struct {
	BatchIndex      int           // concurrent downloads per cycle
	StartCheckpoint uint64        // first checkpoint when no cursor exists
	CycleBackoff    time.Duration // wait when a cycle produced nothing
	RestartDelay    time.Duration // wait before restarting a failed session
	PipelineBuffer  int           // batches buffered between download and commit
}

// Indexer runs the download → commit pipeline from the durable cursor.
type Indexer struct {
	source    CheckpointSource
	head      HeadSource
	cursor    CursorReader
	committer *Committer
	opts      Options
}

// New creates an Indexer.
func New(source CheckpointSource, head HeadSource, cursor CursorReader, committer *Committer, opts Options) *Indexer {
	if opts.PipelineBuffer <= 0 {
		opts.PipelineBuffer = 1
	}
	return &Indexer{
		source:    source,
		head:      head,
		cursor:    cursor,
		committer: committer,
		opts:      opts,
	}
}

// Run indexes until ctx is done. A failed session is restarted from the
// durable cursor; an ErrInvariant stops the indexer and is returned.
func (idx *Indexer) Run(ctx context.Context) error {
	for {
		err := idx.runSession(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrInvariant) {
			slog.Error("indexer stopped on invariant violation", "err", err)
			return err
		}

		slog.Error("indexer session failed, restarting from cursor",
			"delay", idx.opts.RestartDelay,
			"err", err,
		)
		if err := sleep(ctx, idx.opts.RestartDelay); err != nil {
			return nil
		}
	}
}

// NextCheckpoint returns the checkpoint after the durable cursor.
func (idx *Indexer) NextCheckpoint(ctx context.Context) (uint64, error) {
	cursor, ok, err := idx.cursor.Cursor(ctx)
	if err != nil {
		return 0, fmt.Errorf("read cursor: %w", err)
	}
	if !ok {
		return idx.opts.StartCheckpoint, nil
	}
	return cursor + 1, nil
}

func (idx *Indexer) runSession(ctx context.Context) error {
	next, err := idx.NextCheckpoint(ctx)
	if err != nil {
		return err
	}

	slog.Info("indexer session starting", "next_checkpoint", next, "batch_index", idx.opts.BatchIndex)

	seq := NewSequencer(idx.source, idx.head, next, idx.opts.BatchIndex, idx.opts.CycleBackoff)
	batches := make(chan []*CheckpointData, idx.opts.PipelineBuffer)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return seq.Run(gCtx, batches)
	})
	g.Go(func() error {
		return idx.process(gCtx, batches)
	})

	return g.Wait()
}

// process commits every checkpoint of every batch, in order.
func (idx *Indexer) process(ctx context.Context, batches <-chan []*CheckpointData) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch := <-batches:
			for _, data := range batch {
				if _, err := idx.committer.Commit(ctx, data); err != nil {
					return err
				}
			}
		}
	}
}
