package nft

import "time"

const TokensTableName = "tokens"

// TokenStatus is the logical lifecycle flag of a token row. Rows are never removed.
type TokenStatus string

const (
	TokenExist  TokenStatus = "exist"
	TokenDelete TokenStatus = "delete"
)

// TokenColumns is the insert column order for the tokens table.
var TokenColumns = []string{
	"token_id",
	"chain_id",
	"collection_id",
	"collection_type",
	"collection_name",
	"token_name",
	"attributes",
	"owner_address",
	"metadata_uri",
	"metadata_json",
	"version",
	"tx",
	"status",
	"created_at",
	"updated_at",
}

// Token is one NFT-like object, keyed by its object id.
// Image is owned by the enrichment worker and is never written by the indexer.
type Token struct {
	TokenID        string      `json:"token_id" db:"token_id"`
	ChainID        int64       `json:"chain_id" db:"chain_id"`
	CollectionID   string      `json:"collection_id" db:"collection_id"`
	CollectionType string      `json:"collection_type" db:"collection_type"`
	CollectionName string      `json:"collection_name" db:"collection_name"`
	TokenName      string      `json:"token_name" db:"token_name"`
	Attributes     string      `json:"attributes" db:"attributes"`
	OwnerAddress   *string     `json:"owner_address,omitempty" db:"owner_address"`
	MetadataURI    string      `json:"metadata_uri" db:"metadata_uri"`
	MetadataJSON   string      `json:"metadata_json" db:"metadata_json"`
	Image          *string     `json:"image,omitempty" db:"image"`
	Version        int64       `json:"version" db:"version"`
	Tx             *string     `json:"tx,omitempty" db:"tx"`
	Status         TokenStatus `json:"status" db:"status"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// Values returns the row in TokenColumns order.
func (t *Token) Values() []any {
	return []any{
		t.TokenID,
		t.ChainID,
		t.CollectionID,
		t.CollectionType,
		t.CollectionName,
		t.TokenName,
		t.Attributes,
		t.OwnerAddress,
		t.MetadataURI,
		t.MetadataJSON,
		t.Version,
		t.Tx,
		string(t.Status),
		t.CreatedAt,
		t.UpdatedAt,
	}
}
