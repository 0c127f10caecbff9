package indexer

import (
	"context"
	"fmt"
)

// Status compares the durable cursor with the node head.
type Status struct {
	Cursor    uint64 `json:"cursor"`
	HasCursor bool   `json:"has_cursor"`
	Latest    uint64 `json:"latest"`
	Lag       uint64 `json:"lag"`
}

// CheckStatus reads the cursor and the node head.
func CheckStatus(ctx context.Context, cursor CursorReader, head HeadSource) (Status, error) {
	var st Status

	seq, ok, err := cursor.Cursor(ctx)
	if err != nil {
		return st, fmt.Errorf("read cursor: %w", err)
	}
	st.Cursor, st.HasCursor = seq, ok

	latest, err := head.LatestCheckpointSequenceNumber(ctx)
	if err != nil {
		return st, fmt.Errorf("latest checkpoint: %w", err)
	}
	st.Latest = latest

	switch {
	case !ok:
		st.Lag = latest + 1
	case latest > seq:
		st.Lag = latest - seq
	}
	return st, nil
}
