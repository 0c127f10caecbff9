package rpc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// BigInt is a u64 that the node encodes either as a JSON number or as a decimal string.
type BigInt uint64

// UnmarshalJSON accepts both "123" and 123.
func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*b = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("bigint %q: %w", s, err)
	}
	*b = BigInt(n)
	return nil
}

// MarshalJSON encodes the value as a decimal string, which is what the node expects in requests.
func (b BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatUint(uint64(b), 10) + `"`), nil
}

// Checkpoint is the header of a checkpoint and the digests of the transactions it finalized.
type Checkpoint struct {
	Epoch          BigInt   `json:"epoch"`
	SequenceNumber BigInt   `json:"sequenceNumber"`
	Digest         string   `json:"digest"`
	PreviousDigest string   `json:"previousDigest,omitempty"`
	TimestampMs    BigInt   `json:"timestampMs"`
	Transactions   []string `json:"transactions"`
}

// TransactionBlockResponse is one entry of sui_multiGetTransactionBlocks.
type TransactionBlockResponse struct {
	Digest         string              `json:"digest"`
	Transaction    *TransactionBlock   `json:"transaction,omitempty"`
	RawTransaction string              `json:"rawTransaction,omitempty"`
	Effects        *TransactionEffects `json:"effects,omitempty"`
	Events         []Event             `json:"events,omitempty"`
	TimestampMs    *BigInt             `json:"timestampMs,omitempty"`
	Checkpoint     *BigInt             `json:"checkpoint,omitempty"`
}

// TransactionBlock wraps the signed transaction data.
type TransactionBlock struct {
	Data         TransactionBlockData `json:"data"`
	TxSignatures []string             `json:"txSignatures,omitempty"`
}

// TransactionBlockData only carries the fields the indexer reads.
type TransactionBlockData struct {
	MessageVersion string `json:"messageVersion"`
	Sender         string `json:"sender"`
}

// ExecutionStatus is the success/failure of a transaction.
type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// TransactionEffects lists the object effects of one transaction.
type TransactionEffects struct {
	Status               ExecutionStatus  `json:"status"`
	Created              []OwnedObjectRef `json:"created,omitempty"`
	Mutated              []OwnedObjectRef `json:"mutated,omitempty"`
	Unwrapped            []OwnedObjectRef `json:"unwrapped,omitempty"`
	Deleted              []ObjectRef      `json:"deleted,omitempty"`
	UnwrappedThenDeleted []ObjectRef      `json:"unwrappedThenDeleted,omitempty"`
	Wrapped              []ObjectRef      `json:"wrapped,omitempty"`
}

// ObjectRef identifies an object at a version.
type ObjectRef struct {
	ObjectID string `json:"objectId"`
	Version  BigInt `json:"version"`
	Digest   string `json:"digest"`
}

// OwnedObjectRef is an object reference together with its owner after the transaction.
type OwnedObjectRef struct {
	Owner     ObjectOwner `json:"owner"`
	Reference ObjectRef   `json:"reference"`
}

// ObjectOwner is the node's owner enum: "Immutable", {"AddressOwner": addr},
// {"ObjectOwner": addr} or {"Shared": {...}}.
type ObjectOwner struct {
	Kind    string
	Address string
}

// UnmarshalJSON decodes every owner variant the node emits.
func (o *ObjectOwner) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = ObjectOwner{Kind: s}
		return nil
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("object owner: %w", err)
	}
	for kind, raw := range m {
		o.Kind = kind
		var addr string
		if err := json.Unmarshal(raw, &addr); err == nil {
			o.Address = addr
			return nil
		}
		var nested struct {
			Owner string `json:"owner"`
		}
		if err := json.Unmarshal(raw, &nested); err == nil {
			o.Address = nested.Owner
		}
		return nil
	}
	return nil
}

// MarshalJSON encodes the owner back into the node's enum form.
func (o ObjectOwner) MarshalJSON() ([]byte, error) {
	if o.Address == "" {
		return json.Marshal(o.Kind)
	}
	return json.Marshal(map[string]string{o.Kind: o.Address})
}

// OwnerAddress returns the owning address or object id, empty for shared and immutable objects.
func (o ObjectOwner) OwnerAddress() string {
	switch o.Kind {
	case "AddressOwner", "ObjectOwner", "ConsensusAddressOwner":
		return o.Address
	}
	return ""
}

// EventID uniquely identifies an event.
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq BigInt `json:"eventSeq"`
}

// Event is a Move event emitted by a transaction.
type Event struct {
	ID                EventID         `json:"id"`
	PackageID         string          `json:"packageId"`
	TransactionModule string          `json:"transactionModule"`
	Sender            string          `json:"sender"`
	Type              string          `json:"type"`
	ParsedJSON        json.RawMessage `json:"parsedJson"`
	TimestampMs       *BigInt         `json:"timestampMs,omitempty"`
}

// SourceAddress is the address of the package that defines the event type.
func (e Event) SourceAddress() string {
	addr, _, _ := splitStructTag(e.Type)
	return addr
}

// Module is the Move module that defines the event type.
func (e Event) Module() string {
	_, module, _ := splitStructTag(e.Type)
	return module
}

// TypeName is the event struct name without module path or type parameters.
func (e Event) TypeName() string {
	_, _, name := splitStructTag(e.Type)
	return name
}

// splitStructTag splits "0xabc::module::Name<T>" into its address, module and name.
func splitStructTag(tag string) (address, module, name string) {
	if i := strings.Index(tag, "<"); i >= 0 {
		tag = tag[:i]
	}
	parts := strings.Split(tag, "::")
	if len(parts) != 3 {
		return "", "", tag
	}
	return parts[0], parts[1], parts[2]
}

// PastObjectRequest asks for an object at a specific version.
type PastObjectRequest struct {
	ObjectID string `json:"objectId"`
	Version  BigInt `json:"version"`
}

// PastObjectResponse is one entry of sui_tryMultiGetPastObjects.
type PastObjectResponse struct {
	Status  string          `json:"status"`
	Details json.RawMessage `json:"details"`
}

// VersionFound is the only past-object status that carries object data.
const VersionFound = "VersionFound"

// Object decodes the object data when the requested version was found.
func (r PastObjectResponse) Object() (*ObjectData, error) {
	if r.Status != VersionFound {
		return nil, fmt.Errorf("past object status %s: %s", r.Status, string(r.Details))
	}
	var obj ObjectData
	if err := json.Unmarshal(r.Details, &obj); err != nil {
		return nil, fmt.Errorf("decode past object: %w", err)
	}
	return &obj, nil
}

// ObjectData is a resolved object with its content and display rendering.
type ObjectData struct {
	ObjectID            string        `json:"objectId"`
	Version             BigInt        `json:"version"`
	Digest              string        `json:"digest"`
	Type                string        `json:"type,omitempty"`
	Owner               *ObjectOwner  `json:"owner,omitempty"`
	PreviousTransaction string        `json:"previousTransaction,omitempty"`
	Content             *ParsedData   `json:"content,omitempty"`
	Display             *DisplayField `json:"display,omitempty"`
}

// ParsedData is the Move content of an object.
type ParsedData struct {
	DataType          string          `json:"dataType"`
	Type              string          `json:"type,omitempty"`
	HasPublicTransfer bool            `json:"hasPublicTransfer,omitempty"`
	Fields            json.RawMessage `json:"fields,omitempty"`
}

// DisplayField is the rendered Display<T> template for an object, if its type has one.
type DisplayField struct {
	Data  map[string]string `json:"data"`
	Error json.RawMessage   `json:"error,omitempty"`
}
