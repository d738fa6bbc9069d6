package bridge

import "fmt"

// NonceRegistry is the bounded, append-only replay set of one asset.
// It never evicts: once Len reaches Capacity every MarkUsed fails.
type NonceRegistry struct {
	capacity int
	used     map[Nonce]struct{}
	order    []Nonce
	// persisted is the prefix of order already held by the store.
	persisted int
}

// NewNonceRegistry returns a registry holding existing, in order. Existing nonces are
// treated as already persisted. A non-positive capacity means DefaultMaxNonces.
func NewNonceRegistry(capacity int, existing ...Nonce) *NonceRegistry {
	if capacity <= 0 {
		capacity = DefaultMaxNonces
	}
	r := &NonceRegistry{
		capacity: capacity,
		used:     make(map[Nonce]struct{}, len(existing)),
		order:    make([]Nonce, 0, len(existing)),
	}
	for _, n := range existing {
		if _, ok := r.used[n]; ok {
			continue
		}
		r.used[n] = struct{}{}
		r.order = append(r.order, n)
	}
	r.persisted = len(r.order)
	return r
}

// IsUsed reports whether n was already applied.
func (r *NonceRegistry) IsUsed(n Nonce) bool {
	_, ok := r.used[n]
	return ok
}

// MarkUsed records n. It fails if n is already present or the registry is full.
func (r *NonceRegistry) MarkUsed(n Nonce) error {
	if r.IsUsed(n) {
		return fmt.Errorf("%w: %s", ErrNonceAlreadyUsed, n)
	}
	if len(r.order) >= r.capacity {
		return fmt.Errorf("%w: %d of %d", ErrNonceRegistryFull, len(r.order), r.capacity)
	}
	r.used[n] = struct{}{}
	r.order = append(r.order, n)
	return nil
}

// Len returns the number of used nonces.
func (r *NonceRegistry) Len() int { return len(r.order) }

// Capacity returns the registry bound.
func (r *NonceRegistry) Capacity() int { return r.capacity }

// Nonces returns all used nonces in insertion order.
func (r *NonceRegistry) Nonces() []Nonce {
	return append([]Nonce(nil), r.order...)
}

// Added returns the nonces marked since the registry was loaded or last persisted.
func (r *NonceRegistry) Added() []Nonce {
	return append([]Nonce(nil), r.order[r.persisted:]...)
}

// MarkPersisted clears the Added set.
func (r *NonceRegistry) MarkPersisted() {
	r.persisted = len(r.order)
}

// Clone returns a deep copy.
func (r *NonceRegistry) Clone() *NonceRegistry {
	c := &NonceRegistry{
		capacity:  r.capacity,
		used:      make(map[Nonce]struct{}, len(r.used)),
		order:     append(make([]Nonce, 0, len(r.order)), r.order...),
		persisted: r.persisted,
	}
	for n := range r.used {
		c.used[n] = struct{}{}
	}
	return c
}
