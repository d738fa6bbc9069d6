// Package bridge holds the accounting core of the cross-chain bridge: the supply ledger,
// the nonce registry and the trusted remote registry of one asset, and the events the
// bridge emits for the relay layer.
package bridge

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

const (
	// LocalChainID is the chain id this bridge reports as the source of outbound transfers.
	LocalChainID ChainID = 102

	// DefaultMaxNonces caps the replay registry of a single asset.
	DefaultMaxNonces = 1000

	// DefaultMaxSupplyCeiling is the largest max supply an asset may be initialized with (10^18).
	DefaultMaxSupplyCeiling uint64 = 1_000_000_000_000_000_000

	// MaxDecimals is the largest accepted decimals value.
	MaxDecimals uint8 = 18

	identitySize = 32
	nonceSize    = 32
)

// ChainID identifies a chain in the bridge network. Zero is never a valid chain.
type ChainID uint16

// Identity is a 32-byte account public key. The zero value is the default identity.
type Identity [identitySize]byte

// ParseIdentity decodes a base58 encoded 32-byte public key.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	raw := base58.Decode(s)
	if len(raw) != identitySize {
		return id, fmt.Errorf("invalid identity %q: expected %d bytes, got %d", s, identitySize, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// MustParseIdentity is like ParseIdentity but panics on malformed input.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether id is the default identity.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

func (id Identity) String() string {
	return base58.Encode(id[:])
}

// MarshalText encodes the identity as base58.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a base58 identity.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Nonce is a one-time token attached to a cross-chain message.
type Nonce [nonceSize]byte

// ParseNonce decodes a 0x-prefixed hex string of exactly 32 bytes.
func ParseNonce(s string) (Nonce, error) {
	var n Nonce
	raw, err := hexutil.Decode(s)
	if err != nil {
		return n, fmt.Errorf("invalid nonce %q: %w", s, err)
	}
	if len(raw) != nonceSize {
		return n, fmt.Errorf("invalid nonce %q: expected %d bytes, got %d", s, nonceSize, len(raw))
	}
	copy(n[:], raw)
	return n, nil
}

func (n Nonce) String() string {
	return hexutil.Encode(n[:])
}

// MarshalText encodes the nonce as 0x-prefixed hex.
func (n Nonce) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText decodes a 0x-prefixed hex nonce.
func (n *Nonce) UnmarshalText(text []byte) error {
	parsed, err := ParseNonce(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// FormatAmount renders base units as a decimal string using the asset decimals,
// e.g. 150000000 with 8 decimals is "1.5".
func FormatAmount(amount uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals)).String()
}
