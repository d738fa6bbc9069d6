package bridge

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Accepted remote address lengths: EVM (20) and 32-byte account chains.
const (
	AddressLengthEVM    uint8 = 20
	AddressLength32Byte uint8 = 32
)

// TrustedRemote is the authorized sender registered for a remote chain.
// Address holds the significant AddressLength bytes left-padded to 32.
type TrustedRemote struct {
	ChainID       ChainID  `json:"chain_id"`
	Address       [32]byte `json:"-"`
	AddressLength uint8    `json:"address_length"`
}

// NewTrustedRemote validates and pads a remote registration.
func NewTrustedRemote(chainID ChainID, address []byte, addressLength uint8) (TrustedRemote, error) {
	var t TrustedRemote
	if chainID == 0 {
		return t, fmt.Errorf("%w: zero", ErrInvalidChainID)
	}
	if addressLength != AddressLengthEVM && addressLength != AddressLength32Byte {
		return t, fmt.Errorf("%w: address length %d not in {20, 32}", ErrInvalidRecipient, addressLength)
	}
	if len(address) > int(addressLength) {
		return t, fmt.Errorf("%w: address has %d bytes, declared %d", ErrInvalidRecipient, len(address), addressLength)
	}
	t.ChainID = chainID
	t.AddressLength = addressLength
	copy(t.Address[:], common.LeftPadBytes(address, len(t.Address)))
	return t, nil
}

// SignificantAddress returns the AddressLength trailing bytes of the padded address.
func (t TrustedRemote) SignificantAddress() []byte {
	return append([]byte(nil), t.Address[len(t.Address)-int(t.AddressLength):]...)
}

// AddressHex is the 0x-hex form of SignificantAddress.
func (t TrustedRemote) AddressHex() string {
	return hexutil.Encode(t.SignificantAddress())
}

// RemoteRegistry maps remote chain ids to their trusted sender.
type RemoteRegistry struct {
	entries map[ChainID]TrustedRemote
	dirty   map[ChainID]struct{}
}

// NewRemoteRegistry returns a registry holding existing entries, treated as persisted.
func NewRemoteRegistry(existing ...TrustedRemote) *RemoteRegistry {
	r := &RemoteRegistry{
		entries: make(map[ChainID]TrustedRemote, len(existing)),
		dirty:   make(map[ChainID]struct{}),
	}
	for _, t := range existing {
		r.entries[t.ChainID] = t
	}
	return r
}

// Set creates or replaces the entry for chainID.
func (r *RemoteRegistry) Set(chainID ChainID, address []byte, addressLength uint8) (TrustedRemote, error) {
	t, err := NewTrustedRemote(chainID, address, addressLength)
	if err != nil {
		return TrustedRemote{}, err
	}
	r.entries[chainID] = t
	r.dirty[chainID] = struct{}{}
	return t, nil
}

// Get returns the entry for chainID.
func (r *RemoteRegistry) Get(chainID ChainID) (TrustedRemote, bool) {
	t, ok := r.entries[chainID]
	return t, ok
}

// ValidateSource decides whether an inbound message claiming to come from
// (chainID, sender) is accepted.
//
// In permissive mode an unregistered chain is accepted without any check, and a
// registered chain is accepted on chain id match alone; the sender is not compared.
// Strict mode requires a registered remote whose padded address equals sender.
func (r *RemoteRegistry) ValidateSource(chainID ChainID, sender Identity, strict bool) bool {
	t, ok := r.entries[chainID]
	if !ok {
		return !strict
	}
	if t.ChainID != chainID {
		return false
	}
	if strict {
		return Identity(t.Address) == sender
	}
	return true
}

// List returns all entries ordered by chain id.
func (r *RemoteRegistry) List() []TrustedRemote {
	out := make([]TrustedRemote, 0, len(r.entries))
	for _, t := range r.entries {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

// Dirty returns entries changed since load or the last MarkPersisted, ordered by chain id.
func (r *RemoteRegistry) Dirty() []TrustedRemote {
	out := make([]TrustedRemote, 0, len(r.dirty))
	for id := range r.dirty {
		out = append(out, r.entries[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

// MarkPersisted clears the Dirty set.
func (r *RemoteRegistry) MarkPersisted() {
	r.dirty = make(map[ChainID]struct{})
}

// Clone returns a deep copy.
func (r *RemoteRegistry) Clone() *RemoteRegistry {
	c := &RemoteRegistry{
		entries: make(map[ChainID]TrustedRemote, len(r.entries)),
		dirty:   make(map[ChainID]struct{}, len(r.dirty)),
	}
	for id, t := range r.entries {
		c.entries[id] = t
	}
	for id := range r.dirty {
		c.dirty[id] = struct{}{}
	}
	return c
}
