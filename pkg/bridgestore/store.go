// Package bridgestore persists bridge assets and their event log. Every state change
// goes through Update, which runs a unit of work against an exclusively held asset
// and commits the resulting state and events atomically.
package bridgestore

import (
	"context"
	"errors"

	"github.com/chainsafe/spiral-bridge/pkg/bridge"
)

var (
	ErrAssetNotFound = errors.New("asset not found")
	ErrAssetExists   = errors.New("asset already exists")
)

// Work mutates asset and returns the events to append. Returning an error discards
// every change made to asset. The postgres store passes a ctx carrying its transaction
// (pgutil.WithTx) so writers on the same database can join it.
type Work func(ctx context.Context, asset *bridge.Asset) ([]bridge.Event, error)

// Store defines bridge state persistence.
type Store interface {
	Create(ctx context.Context, asset *bridge.Asset) error
	Get(ctx context.Context, assetID string) (*bridge.Asset, error)
	// Update holds assetID exclusively while work runs. Operations on other assets
	// proceed concurrently.
	Update(ctx context.Context, assetID string, work Work) ([]bridge.EventRecord, error)
	ListEvents(ctx context.Context, assetID string, afterSeq int64, limit int) ([]bridge.EventRecord, error)
}
