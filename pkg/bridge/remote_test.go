package bridge

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestRemoteRegistry_Set(t *testing.T) {
	r := NewRemoteRegistry()
	evm := common.HexToAddress("0x00000000000000000000000000000000000000AB")

	got, err := r.Set(1, evm.Bytes(), AddressLengthEVM)
	require.NoError(t, err)
	require.Equal(t, ChainID(1), got.ChainID)
	require.Equal(t, AddressLengthEVM, got.AddressLength)
	require.True(t, bytes.Equal(got.Address[:12], make([]byte, 12)), "EVM address must be left padded")
	require.Equal(t, byte(0xab), got.Address[31])
	require.Equal(t, evm.Bytes(), got.SignificantAddress())
	require.Equal(t, "0x00000000000000000000000000000000000000ab", got.AddressHex())

	stored, ok := r.Get(1)
	require.True(t, ok)
	require.Equal(t, got, stored)
}

func TestRemoteRegistry_SetReplaces(t *testing.T) {
	r := NewRemoteRegistry()
	_, err := r.Set(7, bytes.Repeat([]byte{0x11}, 32), AddressLength32Byte)
	require.NoError(t, err)
	_, err = r.Set(7, bytes.Repeat([]byte{0x22}, 20), AddressLengthEVM)
	require.NoError(t, err)

	stored, ok := r.Get(7)
	require.True(t, ok)
	require.Equal(t, AddressLengthEVM, stored.AddressLength)
	require.Len(t, r.List(), 1)
}

func TestRemoteRegistry_SetRejects(t *testing.T) {
	r := NewRemoteRegistry()

	_, err := r.Set(0, make([]byte, 20), AddressLengthEVM)
	require.ErrorIs(t, err, ErrInvalidChainID)

	_, err = r.Set(1, make([]byte, 16), 16)
	require.ErrorIs(t, err, ErrInvalidRecipient)

	_, err = r.Set(1, make([]byte, 32), AddressLengthEVM)
	require.ErrorIs(t, err, ErrInvalidRecipient)

	require.Empty(t, r.List())
	require.Empty(t, r.Dirty())
}

func TestRemoteRegistry_ValidateSource(t *testing.T) {
	r := NewRemoteRegistry()
	addr := bytes.Repeat([]byte{0x33}, 32)
	_, err := r.Set(5, addr, AddressLength32Byte)
	require.NoError(t, err)

	var trusted Identity
	copy(trusted[:], addr)
	other := Identity{0x44}

	// Unregistered chains pass in permissive mode only.
	require.True(t, r.ValidateSource(9, other, false))
	require.False(t, r.ValidateSource(9, other, true))

	// Registered chains ignore the sender unless strict.
	require.True(t, r.ValidateSource(5, other, false))
	require.True(t, r.ValidateSource(5, trusted, true))
	require.False(t, r.ValidateSource(5, other, true))
}

func TestRemoteRegistry_DirtyAndClone(t *testing.T) {
	existing, err := NewTrustedRemote(3, []byte{0x01}, AddressLengthEVM)
	require.NoError(t, err)
	r := NewRemoteRegistry(existing)
	require.Empty(t, r.Dirty())

	c := r.Clone()
	_, err = c.Set(4, []byte{0x02}, AddressLengthEVM)
	require.NoError(t, err)

	_, ok := r.Get(4)
	require.False(t, ok)
	require.Len(t, c.Dirty(), 1)
	require.Equal(t, ChainID(4), c.Dirty()[0].ChainID)

	c.MarkPersisted()
	require.Empty(t, c.Dirty())
	require.Len(t, c.List(), 2)
}
