package indexer

import (
	"fmt"

	"github.com/bobyard/sui-indexer/pkg/rpc"
)

// ExtractChanges lists the object effects of one transaction in effect
// order: created, mutated, unwrapped, then the objects that left the live set.
func ExtractChanges(tx *rpc.TransactionBlockResponse) ([]ObjectChange, []DeletedObject, error) {
	if tx.Effects == nil {
		return nil, nil, fmt.Errorf("transaction %s has no effects", tx.Digest)
	}

	var sender string
	if tx.Transaction != nil {
		sender = tx.Transaction.Data.Sender
	}
	var ts uint64
	if tx.TimestampMs != nil {
		ts = uint64(*tx.TimestampMs)
	}

	eff := tx.Effects
	changes := make([]ObjectChange, 0, len(eff.Created)+len(eff.Mutated)+len(eff.Unwrapped))
	owned := func(refs []rpc.OwnedObjectRef, status ObjectStatus) {
		for _, r := range refs {
			changes = append(changes, ObjectChange{
				ObjectID:    r.Reference.ObjectID,
				Version:     uint64(r.Reference.Version),
				Status:      status,
				Sender:      sender,
				TimestampMs: ts,
			})
		}
	}
	owned(eff.Created, Created)
	owned(eff.Mutated, Mutated)
	owned(eff.Unwrapped, Unwrapped)

	var gone []DeletedObject
	refs := func(refs []rpc.ObjectRef, status ObjectStatus) {
		for _, r := range refs {
			gone = append(gone, DeletedObject{
				ObjectID:    r.ObjectID,
				Version:     uint64(r.Version),
				Status:      status,
				TimestampMs: ts,
			})
		}
	}
	refs(eff.Deleted, Deleted)
	refs(eff.UnwrappedThenDeleted, UnwrappedThenDeleted)
	refs(eff.Wrapped, Wrapped)

	return changes, gone, nil
}

// ExtractEvents returns the events of one transaction, stamped with the
// transaction time when the node omitted it.
func ExtractEvents(tx *rpc.TransactionBlockResponse) []rpc.Event {
	events := make([]rpc.Event, len(tx.Events))
	copy(events, tx.Events)
	if tx.TimestampMs != nil {
		for i := range events {
			if events[i].TimestampMs == nil {
				ts := *tx.TimestampMs
				events[i].TimestampMs = &ts
			}
		}
	}
	return events
}
