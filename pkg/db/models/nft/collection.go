package nft

import "time"

const CollectionsTableName = "collections"

// CollectionColumns is the insert column order for the collections table.
var CollectionColumns = []string{
	"collection_id",
	"chain_id",
	"collection_type",
	"creator_address",
	"collection_name",
	"display_name",
	"description",
	"website",
	"icon",
	"metadata_uri",
	"metadata",
	"verify",
	"supply",
	"version",
	"tx",
	"created_at",
	"updated_at",
}

// Collection is one row per Display<T> object observed on chain.
// DisplayName, Icon and Supply are filled in later by the enrichment worker.
type Collection struct {
	CollectionID   string    `json:"collection_id" db:"collection_id"`
	ChainID        int64     `json:"chain_id" db:"chain_id"`
	CollectionType string    `json:"collection_type" db:"collection_type"`
	CreatorAddress string    `json:"creator_address" db:"creator_address"`
	CollectionName string    `json:"collection_name" db:"collection_name"`
	DisplayName    *string   `json:"display_name,omitempty" db:"display_name"`
	Description    string    `json:"description" db:"description"`
	Website        *string   `json:"website,omitempty" db:"website"`
	Icon           *string   `json:"icon,omitempty" db:"icon"`
	MetadataURI    string    `json:"metadata_uri" db:"metadata_uri"`
	Metadata       string    `json:"metadata" db:"metadata"` // JSON object of the display key/value pairs
	Verify         bool      `json:"verify" db:"verify"`
	Supply         int64     `json:"supply" db:"supply"`
	Version        int64     `json:"version" db:"version"`
	Tx             *string   `json:"tx,omitempty" db:"tx"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Values returns the row in CollectionColumns order.
func (c *Collection) Values() []any {
	return []any{
		c.CollectionID,
		c.ChainID,
		c.CollectionType,
		c.CreatorAddress,
		c.CollectionName,
		c.DisplayName,
		c.Description,
		c.Website,
		c.Icon,
		c.MetadataURI,
		c.Metadata,
		c.Verify,
		c.Supply,
		c.Version,
		c.Tx,
		c.CreatedAt,
		c.UpdatedAt,
	}
}
