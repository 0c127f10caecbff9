package indexer

import (
	"errors"
	"time"

	"github.com/bobyard/sui-indexer/pkg/rpc"
)

// ErrInvariant marks failures that retrying the same checkpoint cannot fix:
// an unregistered collection type, a malformed market event, a market event
// referencing an unindexed listing or offer, or a cursor gap. The indexer
// stops on these instead of restarting.
var ErrInvariant = errors.New("indexer invariant violated")

// ObjectStatus is the lifecycle stage of an object within one transaction's effects.
type ObjectStatus int

const (
	Created ObjectStatus = iota
	Mutated
	Deleted
	Wrapped
	Unwrapped
	UnwrappedThenDeleted
)

func (s ObjectStatus) String() string {
	switch s {
	case Created:
		return "created"
	case Mutated:
		return "mutated"
	case Deleted:
		return "deleted"
	case Wrapped:
		return "wrapped"
	case Unwrapped:
		return "unwrapped"
	case UnwrappedThenDeleted:
		return "unwrapped_then_deleted"
	}
	return "unknown"
}

// ObjectChange is an object effect whose content has not been fetched yet.
type ObjectChange struct {
	ObjectID    string
	Version     uint64
	Status      ObjectStatus
	Sender      string
	TimestampMs uint64
}

// DeletedObject is an object that left the live set in this checkpoint:
// deleted, unwrapped-then-deleted or wrapped. Its content cannot be resolved.
type DeletedObject struct {
	ObjectID    string
	Version     uint64
	Status      ObjectStatus
	TimestampMs uint64
}

// ResolvedChange is an object change together with the object at that version.
type ResolvedChange struct {
	Status      ObjectStatus
	Object      *rpc.ObjectData
	Sender      string
	TimestampMs uint64
}

// CheckpointData is everything the processing stage needs for one checkpoint.
type CheckpointData struct {
	Checkpoint   *rpc.Checkpoint
	Transactions []rpc.TransactionBlockResponse
	Changes      []ResolvedChange
	Deleted      []DeletedObject
	Events       []rpc.Event
}

// Sequence returns the checkpoint sequence number.
func (d *CheckpointData) Sequence() uint64 {
	return uint64(d.Checkpoint.SequenceNumber)
}

// Time returns the checkpoint timestamp.
func (d *CheckpointData) Time() time.Time {
	return time.UnixMilli(int64(d.Checkpoint.TimestampMs)).UTC()
}
