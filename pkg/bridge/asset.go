package bridge

import "time"

// Asset is the aggregate owned by one bridge deployment of one token.
// Every operation receives it explicitly from the store that serializes access to it.
type Asset struct {
	ID        string
	Supply    *SupplyLedger
	Nonces    *NonceRegistry
	Remotes   *RemoteRegistry
	CreatedAt time.Time
}

// NewAsset returns a fresh asset with empty registries.
func NewAsset(id string, supply *SupplyLedger, maxNonces int) *Asset {
	return &Asset{
		ID:      id,
		Supply:  supply,
		Nonces:  NewNonceRegistry(maxNonces),
		Remotes: NewRemoteRegistry(),
	}
}

// Clone returns a deep copy that can be mutated without affecting a.
func (a *Asset) Clone() *Asset {
	supply := *a.Supply
	return &Asset{
		ID:        a.ID,
		Supply:    &supply,
		Nonces:    a.Nonces.Clone(),
		Remotes:   a.Remotes.Clone(),
		CreatedAt: a.CreatedAt,
	}
}

// MarkPersisted clears the change tracking of both registries.
func (a *Asset) MarkPersisted() {
	a.Nonces.MarkPersisted()
	a.Remotes.MarkPersisted()
}
