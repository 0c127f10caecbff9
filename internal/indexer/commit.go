package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bobyard/sui-indexer/internal/market"
	"github.com/bobyard/sui-indexer/internal/publisher"
	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
	nftstore "github.com/bobyard/sui-indexer/pkg/db/postgres/nft"
)

// UnitOfWork is the write path of one checkpoint transaction.
type UnitOfWork interface {
	market.Store
	LockCursor(ctx context.Context) (seq uint64, ok bool, err error)
	AdvanceCursor(ctx context.Context, seq uint64) error
	InsertCollections(ctx context.Context, collections []*nftmodels.Collection) error
	InsertTokens(ctx context.Context, tokens []*nftmodels.Token) error
	UpsertTokens(ctx context.Context, tokens []*nftmodels.Token) error
	MarkTokensDeleted(ctx context.Context, ids []string, at time.Time) ([]string, error)
	ExistingTokens(ctx context.Context, ids []string) ([]string, error)
	InsertActivities(ctx context.Context, activities []*nftmodels.Activity) error
}

// Transactor runs fn in one transaction; an error from fn rolls it back.
type Transactor interface {
	InTx(ctx context.Context, fn func(UnitOfWork) error) error
}

// CursorReader reads the durable cursor outside a transaction.
type CursorReader interface {
	Cursor(ctx context.Context) (seq uint64, ok bool, err error)
}

// Notifier accepts notifications for asynchronous publication. Enqueue
// must not block; a notification it cannot accept is dropped.
type Notifier interface {
	Enqueue(ctx context.Context, note publisher.Notification) error
}

// PostgresTransactor adapts the nft store to Transactor.
type PostgresTransactor struct {
	DB *nftstore.DB
}

// InTx implements Transactor.
func (p PostgresTransactor) InTx(ctx context.Context, fn func(UnitOfWork) error) error {
	return p.DB.InTx(ctx, func(tx *nftstore.Tx) error {
		return fn(tx)
	})
}

// errAlreadyCommitted aborts the transaction of a replayed checkpoint.
var errAlreadyCommitted = errors.New("checkpoint already committed")

// Committer persists one checkpoint and advances the cursor atomically.
type Committer struct {
	tx         Transactor
	classifier *Classifier
	decoder    *market.Decoder
	notifier   Notifier
	chainID    int64
}

// NewCommitter creates a Committer. notifier may be nil.
func NewCommitter(tx Transactor, classifier *Classifier, decoder *market.Decoder, notifier Notifier, chainID int64) *Committer {
	return &Committer{
		tx:         tx,
		classifier: classifier,
		decoder:    decoder,
		notifier:   notifier,
		chainID:    chainID,
	}
}

// Commit writes collections, tokens, market transitions and activities for
// data and moves the cursor to its sequence number, all in one transaction.
// It returns false without writing when the cursor is already at or past
// the checkpoint. Errors wrapping ErrInvariant will not succeed on retry.
func (c *Committer) Commit(ctx context.Context, data *CheckpointData) (bool, error) {
	start := time.Now()
	seq := data.Sequence()
	at := data.Time()

	classified, err := c.classifier.Classify(ctx, data)
	if err != nil {
		return false, fmt.Errorf("classify checkpoint %d: %w", seq, err)
	}

	ops, err := c.decoder.Decode(data.Events)
	if err != nil {
		return false, fmt.Errorf("%w: checkpoint %d: %w", ErrInvariant, seq, err)
	}

	var notes []publisher.Notification
	var activityCount int

	err = c.tx.InTx(ctx, func(uow UnitOfWork) error {
		cursor, ok, err := uow.LockCursor(ctx)
		if err != nil {
			return err
		}
		if ok && seq <= cursor {
			return errAlreadyCommitted
		}
		if ok && seq != cursor+1 {
			return fmt.Errorf("%w: checkpoint %d does not follow cursor %d", ErrInvariant, seq, cursor)
		}

		notes, err = c.writeObjects(ctx, uow, classified, at)
		if err != nil {
			return err
		}

		if err := market.Apply(ctx, uow, ops, at); err != nil {
			if errors.Is(err, market.ErrNotIndexed) {
				return fmt.Errorf("%w: %w", ErrInvariant, err)
			}
			return err
		}

		activities := DeriveActivities(c.chainID, seq, classified, ops, at)
		if err := uow.InsertActivities(ctx, activities); err != nil {
			return err
		}
		activityCount = len(activities)

		return uow.AdvanceCursor(ctx, seq)
	})
	if errors.Is(err, errAlreadyCommitted) {
		slog.Debug("checkpoint already committed, skipping", "seq", seq)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("commit checkpoint %d: %w", seq, err)
	}

	slog.Info("committed checkpoint",
		"seq", seq,
		"collections", len(classified.Collections),
		"tokens", len(classified.Tokens),
		"market_ops", len(ops),
		"activities", activityCount,
		"duration", time.Since(start),
	)

	c.notify(ctx, notes)
	return true, nil
}

// writeObjects persists collections and tokens and returns the
// notifications their changes produce.
func (c *Committer) writeObjects(ctx context.Context, uow UnitOfWork, classified *Classified, at time.Time) ([]publisher.Notification, error) {
	var notes []publisher.Notification

	collections := make([]*nftmodels.Collection, 0, len(classified.Collections))
	for _, col := range classified.Collections {
		collections = append(collections, col.Collection)
		notes = append(notes, publisher.CollectionNotification(col.Collection))
	}
	if err := uow.InsertCollections(ctx, collections); err != nil {
		return nil, err
	}

	var created, changed []*nftmodels.Token
	for _, t := range classified.Tokens {
		// A token created and then changed in the same checkpoint is still a mint.
		if t.Minted {
			created = append(created, t.Token)
			notes = append(notes, publisher.TokenNotification(publisher.TokenCreate, t.Token))
			if t.Status != Created {
				changed = append(changed, t.Token)
			}
			continue
		}
		switch t.Status {
		case Created:
			created = append(created, t.Token)
			notes = append(notes, publisher.TokenNotification(publisher.TokenCreate, t.Token))
		case Mutated:
			changed = append(changed, t.Token)
			notes = append(notes, publisher.TokenNotification(publisher.TokenUpdate, t.Token))
		case Unwrapped:
			changed = append(changed, t.Token)
			notes = append(notes, publisher.TokenNotification(publisher.TokenUnwrap, t.Token))
		}
	}
	if err := uow.InsertTokens(ctx, created); err != nil {
		return nil, err
	}
	if err := uow.UpsertTokens(ctx, changed); err != nil {
		return nil, err
	}

	var deletedIDs, wrappedIDs []string
	kinds := make(map[string]publisher.TokenChange)
	for _, d := range classified.Deleted {
		switch d.Status {
		case Deleted:
			deletedIDs = append(deletedIDs, d.ObjectID)
			kinds[d.ObjectID] = publisher.TokenDelete
		case UnwrappedThenDeleted:
			deletedIDs = append(deletedIDs, d.ObjectID)
			kinds[d.ObjectID] = publisher.TokenUnwrapThenDelete
		case Wrapped:
			wrappedIDs = append(wrappedIDs, d.ObjectID)
		}
	}

	deleted, err := uow.MarkTokensDeleted(ctx, deletedIDs, at)
	if err != nil {
		return nil, err
	}
	for _, id := range deleted {
		notes = append(notes, publisher.TokenNotification(kinds[id], &nftmodels.Token{
			TokenID:   id,
			ChainID:   c.chainID,
			Status:    nftmodels.TokenDelete,
			UpdatedAt: at,
		}))
	}

	wrapped, err := uow.ExistingTokens(ctx, wrappedIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range wrapped {
		notes = append(notes, publisher.TokenNotification(publisher.TokenWrap, &nftmodels.Token{
			TokenID:   id,
			ChainID:   c.chainID,
			Status:    nftmodels.TokenExist,
			UpdatedAt: at,
		}))
	}

	return notes, nil
}

func (c *Committer) notify(ctx context.Context, notes []publisher.Notification) {
	if c.notifier == nil {
		return
	}
	dropped := 0
	for _, note := range notes {
		if err := c.notifier.Enqueue(ctx, note); err != nil {
			slog.Debug("notification dropped", "routing_key", note.RoutingKey, "err", err)
			dropped++
		}
	}
	if dropped > 0 {
		slog.Warn("notifications dropped", "count", dropped, "total", len(notes))
	}
}
