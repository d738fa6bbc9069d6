package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind names an event type in the bridge event log.
type EventKind string

const (
	KindTokensMinted                EventKind = "tokens_minted"
	KindCrossChainTransferInitiated EventKind = "cross_chain_transfer_initiated"
	KindCrossChainTransferReceived  EventKind = "cross_chain_transfer_received"
)

// Event is a domain event emitted for relay and indexing consumers.
type Event interface {
	Kind() EventKind
}

// TokensMinted is emitted by a local mint.
type TokensMinted struct {
	Recipient Identity `json:"recipient"`
	Amount    uint64   `json:"amount,string"`
	NewSupply uint64   `json:"new_supply,string"`
}

func (TokensMinted) Kind() EventKind { return KindTokensMinted }

// CrossChainTransferInfo describes an outbound transfer for the relay layer.
type CrossChainTransferInfo struct {
	SourceChain      ChainID  `json:"source_chain"`
	DestinationChain ChainID  `json:"destination_chain"`
	Recipient        Identity `json:"recipient"`
	Amount           uint64   `json:"amount,string"`
	Nonce            Nonce    `json:"nonce"`
	Timestamp        int64    `json:"timestamp"`
}

// CrossChainTransferInitiated is emitted once the outbound burn is committed.
type CrossChainTransferInitiated struct {
	TransferInfo CrossChainTransferInfo `json:"transfer_info"`
}

func (CrossChainTransferInitiated) Kind() EventKind { return KindCrossChainTransferInitiated }

// CrossChainTransferReceived is emitted once an inbound transfer is minted.
type CrossChainTransferReceived struct {
	SourceChain ChainID  `json:"source_chain"`
	Sender      Identity `json:"sender"`
	Recipient   Identity `json:"recipient"`
	Amount      uint64   `json:"amount,string"`
	Nonce       Nonce    `json:"nonce"`
}

func (CrossChainTransferReceived) Kind() EventKind { return KindCrossChainTransferReceived }

// EventRecord is one committed entry of the append-only event log.
type EventRecord struct {
	Seq       int64     `json:"seq"`
	ID        uuid.UUID `json:"id"`
	AssetID   string    `json:"asset_id"`
	Kind      EventKind `json:"kind"`
	Event     Event     `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEventRecord wraps ev for appending; Seq is assigned by the store.
func NewEventRecord(assetID string, ev Event, at time.Time) EventRecord {
	return EventRecord{
		ID:        uuid.New(),
		AssetID:   assetID,
		Kind:      ev.Kind(),
		Event:     ev,
		CreatedAt: at,
	}
}

// DecodeEvent rebuilds a typed event from its kind and JSON payload.
func DecodeEvent(kind EventKind, payload []byte) (Event, error) {
	var ev Event
	switch kind {
	case KindTokensMinted:
		var e TokensMinted
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		ev = e
	case KindCrossChainTransferInitiated:
		var e CrossChainTransferInitiated
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		ev = e
	case KindCrossChainTransferReceived:
		var e CrossChainTransferReceived
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		ev = e
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	return ev, nil
}

// UnmarshalJSON decodes the payload according to the record kind.
func (r *EventRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Seq       int64           `json:"seq"`
		ID        uuid.UUID       `json:"id"`
		AssetID   string          `json:"asset_id"`
		Kind      EventKind       `json:"kind"`
		Payload   json.RawMessage `json:"payload"`
		CreatedAt time.Time       `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ev, err := DecodeEvent(raw.Kind, raw.Payload)
	if err != nil {
		return err
	}
	*r = EventRecord{
		Seq:       raw.Seq,
		ID:        raw.ID,
		AssetID:   raw.AssetID,
		Kind:      raw.Kind,
		Event:     ev,
		CreatedAt: raw.CreatedAt,
	}
	return nil
}
