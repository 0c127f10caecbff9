package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bobyard/sui-indexer/internal/registry"
	nftmodels "github.com/bobyard/sui-indexer/pkg/db/models/nft"
)

const displayPrefix = "0x2::display::Display<"

// CollectionChange is a Display object seen in a checkpoint.
type CollectionChange struct {
	Status     ObjectStatus
	Collection *nftmodels.Collection
}

// TokenChange is a token-bearing object seen in a checkpoint.
type TokenChange struct {
	Status ObjectStatus
	Token  *nftmodels.Token
	Sender string
	// Minted is set when any change for this token in the unit was a creation.
	Minted bool
}

// Classified is the domain view of one checkpoint's object changes.
type Classified struct {
	Collections []CollectionChange
	Tokens      []TokenChange
	Deleted     []DeletedObject
}

// Classifier turns resolved objects into collections and tokens.
type Classifier struct {
	registry *registry.Registry
	chainID  int64
}

// NewClassifier creates a Classifier backed by reg.
func NewClassifier(reg *registry.Registry, chainID int64) *Classifier {
	return &Classifier{registry: reg, chainID: chainID}
}

// Classify registers every Display type first so that tokens of a
// collection created in the same checkpoint resolve. A token whose type was
// never registered, or content that cannot be decoded, is an ErrInvariant.
func (c *Classifier) Classify(ctx context.Context, data *CheckpointData) (*Classified, error) {
	out := &Classified{Deleted: data.Deleted}

	for _, ch := range data.Changes {
		collectionType, ok := displayType(ch.Object.Type)
		if !ok {
			continue
		}
		col, err := c.collection(ch, collectionType)
		if err != nil {
			return nil, fmt.Errorf("%w: collection %s: %w", ErrInvariant, ch.Object.ObjectID, err)
		}
		if err := c.registry.Register(ctx, collectionType, col.CollectionID); err != nil {
			return nil, err
		}
		out.Collections = append(out.Collections, CollectionChange{Status: ch.Status, Collection: col})
	}

	var tokens []TokenChange
	for _, ch := range data.Changes {
		if _, ok := displayType(ch.Object.Type); ok {
			continue
		}
		if ch.Object.Display == nil || ch.Object.Display.Data == nil {
			continue
		}
		tok, err := c.token(ch)
		if err != nil {
			return nil, fmt.Errorf("%w: token %s: %w", ErrInvariant, ch.Object.ObjectID, err)
		}
		tokens = append(tokens, TokenChange{
			Status: ch.Status,
			Token:  tok,
			Sender: ch.Sender,
			Minted: ch.Status == Created,
		})
	}
	out.Tokens = ReduceTokenVersions(tokens)

	return out, nil
}

// ReduceTokenVersions keeps, per token id, only the change with the highest
// version. The result is in order of first appearance.
func ReduceTokenVersions(changes []TokenChange) []TokenChange {
	index := make(map[string]int, len(changes))
	out := make([]TokenChange, 0, len(changes))

	for _, ch := range changes {
		i, seen := index[ch.Token.TokenID]
		if !seen {
			index[ch.Token.TokenID] = len(out)
			out = append(out, ch)
			continue
		}
		minted := out[i].Minted || ch.Minted
		if ch.Token.Version > out[i].Token.Version {
			out[i] = ch
		}
		out[i].Minted = minted
	}
	return out
}

func displayType(objectType string) (string, bool) {
	if !strings.HasPrefix(objectType, displayPrefix) || !strings.HasSuffix(objectType, ">") {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(objectType, displayPrefix), ">"), true
}

// typeName returns the last path segment of a Move type, without type parameters.
func typeName(moveType string) string {
	if i := strings.Index(moveType, "<"); i >= 0 {
		moveType = moveType[:i]
	}
	if i := strings.LastIndex(moveType, "::"); i >= 0 {
		return moveType[i+2:]
	}
	return moveType
}

func (c *Classifier) collection(ch ResolvedChange, collectionType string) (*nftmodels.Collection, error) {
	obj := ch.Object
	var kv map[string]string
	if obj.Content != nil && len(obj.Content.Fields) > 0 {
		var err error
		kv, err = displayContents(obj.Content.Fields)
		if err != nil {
			return nil, err
		}
	}
	if kv == nil {
		kv = map[string]string{}
	}

	metadata, err := json.Marshal(kv)
	if err != nil {
		return nil, err
	}

	ts := time.UnixMilli(int64(ch.TimestampMs)).UTC()
	col := &nftmodels.Collection{
		CollectionID:   obj.ObjectID,
		ChainID:        c.chainID,
		CollectionType: collectionType,
		CreatorAddress: ch.Sender,
		CollectionName: typeName(collectionType),
		Description:    kv["description"],
		MetadataURI:    kv["image_url"],
		Metadata:       string(metadata),
		Version:        int64(obj.Version),
		Tx:             optional(obj.PreviousTransaction),
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	if website, ok := kv["project_url"]; ok {
		col.Website = &website
	}
	return col, nil
}

func (c *Classifier) token(ch ResolvedChange) (*nftmodels.Token, error) {
	obj := ch.Object
	collectionID, err := c.registry.Lookup(obj.Type)
	if err != nil {
		return nil, err
	}

	display, err := json.Marshal(obj.Display.Data)
	if err != nil {
		return nil, err
	}

	var owner *string
	if obj.Owner != nil {
		owner = optional(obj.Owner.OwnerAddress())
	}

	ts := time.UnixMilli(int64(ch.TimestampMs)).UTC()
	return &nftmodels.Token{
		TokenID:        obj.ObjectID,
		ChainID:        c.chainID,
		CollectionID:   collectionID,
		CollectionType: obj.Type,
		CollectionName: typeName(obj.Type),
		TokenName:      obj.Display.Data["name"],
		Attributes:     string(display),
		OwnerAddress:   owner,
		MetadataURI:    obj.Display.Data["image_url"],
		MetadataJSON:   string(display),
		Version:        int64(obj.Version),
		Tx:             optional(obj.PreviousTransaction),
		Status:         nftmodels.TokenExist,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}, nil
}

// displayContents decodes the key/value pairs of a Display object. The node
// renders the VecMap either as {"fields":{"contents":[...]}} or with an extra
// typed {"type":..,"fields":{...}} layer; entries are {key,value} or wrapped
// in "fields". A plain object is taken as the map itself.
func displayContents(raw json.RawMessage) (map[string]string, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("display content: %w", err)
	}

	node, ok := root["fields"]
	if !ok {
		return kvMap(raw)
	}

	var vecMap map[string]json.RawMessage
	if err := json.Unmarshal(node, &vecMap); err != nil {
		return nil, fmt.Errorf("display fields: %w", err)
	}
	if inner, ok := vecMap["fields"]; ok {
		vecMap = nil
		if err := json.Unmarshal(inner, &vecMap); err != nil {
			return nil, fmt.Errorf("display fields: %w", err)
		}
	}
	contents, ok := vecMap["contents"]
	if !ok {
		return kvMap(node)
	}
	return kvMap(contents)
}

// kvMap decodes either an array of {key,value} entries or a plain object.
// The "id" key is storage plumbing and is dropped.
func kvMap(raw json.RawMessage) (map[string]string, error) {
	out := make(map[string]string)

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err == nil {
		for _, e := range entries {
			var entry struct {
				Key    json.RawMessage `json:"key"`
				Value  json.RawMessage `json:"value"`
				Fields *struct {
					Key   json.RawMessage `json:"key"`
					Value json.RawMessage `json:"value"`
				} `json:"fields"`
			}
			if err := json.Unmarshal(e, &entry); err != nil {
				return nil, fmt.Errorf("display entry: %w", err)
			}
			key, value := entry.Key, entry.Value
			if entry.Fields != nil {
				key, value = entry.Fields.Key, entry.Fields.Value
			}
			k := jsonText(key)
			if k == "" || k == "id" {
				continue
			}
			out[k] = jsonText(value)
		}
		return out, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("display map: %w", err)
	}
	for k, v := range obj {
		if k == "id" {
			continue
		}
		out[k] = jsonText(v)
	}
	return out, nil
}

// jsonText returns a JSON string unquoted, and any other value as its JSON text.
func jsonText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
