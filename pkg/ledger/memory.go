package ledger

import (
	"context"
	"fmt"
	"math/bits"
	"sync"

	"github.com/google/uuid"

	"github.com/chainsafe/spiral-bridge/pkg/bridge"
)

type memoryAsset struct {
	decimals  uint8
	authority bridge.Identity
	balances  map[bridge.Identity]uint64
}

// MemoryLedger is a process-local Ledger used by tests and the memory driver.
type MemoryLedger struct {
	mu     sync.RWMutex
	assets map[AssetHandle]*memoryAsset
}

// NewMemoryLedger returns an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{assets: make(map[AssetHandle]*memoryAsset)}
}

func (l *MemoryLedger) InitializeAsset(_ context.Context, decimals uint8, authority bridge.Identity) (AssetHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	handle := AssetHandle(uuid.NewString())
	l.assets[handle] = &memoryAsset{
		decimals:  decimals,
		authority: authority,
		balances:  make(map[bridge.Identity]uint64),
	}
	return handle, nil
}

func (l *MemoryLedger) MintTo(_ context.Context, asset AssetHandle, recipient bridge.Identity, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.assets[asset]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
	}
	next, carry := bits.Add64(a.balances[recipient], amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, recipient)
	}
	a.balances[recipient] = next
	return nil
}

func (l *MemoryLedger) BurnFrom(_ context.Context, asset AssetHandle, source, authority bridge.Identity, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.assets[asset]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
	}
	if authority != a.authority {
		return fmt.Errorf("%w: %s", ErrUnauthorized, authority)
	}
	balance := a.balances[source]
	if balance < amount {
		return fmt.Errorf("%w: %s holds %d, need %d", ErrInsufficientFunds, source, balance, amount)
	}
	a.balances[source] = balance - amount
	return nil
}

func (l *MemoryLedger) BalanceOf(_ context.Context, asset AssetHandle, account bridge.Identity) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.assets[asset]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
	}
	return a.balances[account], nil
}
