// Package ledger defines the Token Ledger Service the bridge delegates balances to,
// and ships an in-memory and a PostgreSQL implementation of it.
package ledger

import (
	"context"
	"errors"

	"github.com/chainsafe/spiral-bridge/pkg/bridge"
)

// AssetHandle identifies an asset created by InitializeAsset.
type AssetHandle string

var (
	ErrAssetNotFound     = errors.New("ledger asset not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnauthorized      = errors.New("burn authority mismatch")
	ErrBalanceOverflow   = errors.New("balance overflow")
)

// Ledger holds balances and performs primitive mints and burns. It does not track
// bridge supply limits; those belong to the supply ledger.
type Ledger interface {
	InitializeAsset(ctx context.Context, decimals uint8, authority bridge.Identity) (AssetHandle, error)
	MintTo(ctx context.Context, asset AssetHandle, recipient bridge.Identity, amount uint64) error
	// BurnFrom removes amount from source. Authority must be the identity the asset
	// was initialized with.
	BurnFrom(ctx context.Context, asset AssetHandle, source, authority bridge.Identity, amount uint64) error
	BalanceOf(ctx context.Context, asset AssetHandle, account bridge.Identity) (uint64, error)
}

// TxJoiner is implemented by ledgers whose writes can join a transaction the caller
// carries in ctx. When JoinsTx reports true, rolling that transaction back also undoes
// the write.
type TxJoiner interface {
	JoinsTx(ctx context.Context) bool
}

// JoinsTx reports whether l writes inside the transaction carried by ctx.
func JoinsTx(ctx context.Context, l Ledger) bool {
	j, ok := l.(TxJoiner)
	return ok && j.JoinsTx(ctx)
}
