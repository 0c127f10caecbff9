package nft

import "time"

const ActivitiesTableName = "activities"

// ActivityType is the transfer_type of a feed row.
type ActivityType string

const (
	ActivityCreated     ActivityType = "created" // collections only
	ActivityMinted      ActivityType = "minted"
	ActivityTransferred ActivityType = "transferred"
	ActivityListed      ActivityType = "listed"
	ActivityCanceled    ActivityType = "canceled"
	ActivitySold        ActivityType = "sold"
)

// ActivityColumns is the insert column order for the activities table.
var ActivityColumns = []string{
	"chain_id",
	"sequence_number",
	"version",
	"tx",
	"collection_id",
	"token_id",
	"collection_name",
	"name",
	"transfer_type",
	"from_address",
	"to_address",
	"token_amount",
	"transaction_timestamp",
}

// Activity is an append-only feed entry.
type Activity struct {
	ChainID              int64        `json:"chain_id" db:"chain_id"`
	SequenceNumber       uint64       `json:"sequence_number" db:"sequence_number"`
	Version              int64        `json:"version" db:"version"`
	Tx                   *string      `json:"tx,omitempty" db:"tx"`
	CollectionID         string       `json:"collection_id" db:"collection_id"`
	TokenID              string       `json:"token_id" db:"token_id"`
	CollectionName       string       `json:"collection_name" db:"collection_name"`
	Name                 string       `json:"name" db:"name"`
	TransferType         ActivityType `json:"transfer_type" db:"transfer_type"`
	FromAddress          *string      `json:"from_address,omitempty" db:"from_address"`
	ToAddress            *string      `json:"to_address,omitempty" db:"to_address"`
	TokenAmount          int64        `json:"token_amount" db:"token_amount"`
	TransactionTimestamp time.Time    `json:"transaction_timestamp" db:"transaction_timestamp"`
}

// Values returns the row in ActivityColumns order.
func (a *Activity) Values() []any {
	return []any{
		a.ChainID,
		int64(a.SequenceNumber),
		a.Version,
		a.Tx,
		a.CollectionID,
		a.TokenID,
		a.CollectionName,
		a.Name,
		string(a.TransferType),
		a.FromAddress,
		a.ToAddress,
		a.TokenAmount,
		a.TransactionTimestamp,
	}
}
