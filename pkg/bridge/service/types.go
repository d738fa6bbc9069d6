package service

import (
	"time"

	"github.com/chainsafe/spiral-bridge/pkg/bridge"
)

// InitializeRequest creates an asset whose authority is the caller.
type InitializeRequest struct {
	Caller    bridge.Identity
	Decimals  uint8
	MaxSupply uint64
}

// MintRequest mints local supply to a recipient.
type MintRequest struct {
	AssetID   string
	Caller    bridge.Identity
	Recipient bridge.Identity
	Amount    uint64
}

// TransferRequest burns supply held by Sender for delivery on DestinationChain.
// The nonce is chosen by the caller and forwarded in the event untouched.
type TransferRequest struct {
	AssetID          string
	Caller           bridge.Identity
	Sender           bridge.Identity
	DestinationChain bridge.ChainID
	Recipient        bridge.Identity
	Amount           uint64
	Nonce            bridge.Nonce
}

// SetRemoteRequest registers the trusted sender of a remote chain.
type SetRemoteRequest struct {
	AssetID       string
	Caller        bridge.Identity
	ChainID       bridge.ChainID
	Address       []byte
	AddressLength uint8
}

// ReceiveRequest applies an inbound transfer relayed from SourceChain.
type ReceiveRequest struct {
	AssetID     string
	Caller      bridge.Identity
	SourceChain bridge.ChainID
	Sender      bridge.Identity
	Recipient   bridge.Identity
	Amount      uint64
	Nonce       bridge.Nonce
}

// RemoteState is the API view of a trusted remote.
type RemoteState struct {
	ChainID       bridge.ChainID `json:"chain_id"`
	Address       string         `json:"address"`
	AddressLength uint8          `json:"address_length"`
}

// AssetState is a read-only snapshot of an asset.
type AssetState struct {
	AssetID              string          `json:"asset_id"`
	Authority            bridge.Identity `json:"authority"`
	Decimals             uint8           `json:"decimals"`
	MaxSupply            uint64          `json:"max_supply,string"`
	CurrentSupply        uint64          `json:"current_supply,string"`
	DisplayMaxSupply     string          `json:"display_max_supply"`
	DisplayCurrentSupply string          `json:"display_current_supply"`
	NoncesUsed           int             `json:"nonces_used"`
	MaxNonces            int             `json:"max_nonces"`
	TrustedRemotes       []RemoteState   `json:"trusted_remotes"`
	CreatedAt            time.Time       `json:"created_at"`
}

// Receipt is the outcome of a committed supply change.
type Receipt struct {
	AssetID       string               `json:"asset_id"`
	CurrentSupply uint64               `json:"current_supply,string"`
	Events        []bridge.EventRecord `json:"events"`
}

func newRemoteState(t bridge.TrustedRemote) RemoteState {
	return RemoteState{
		ChainID:       t.ChainID,
		Address:       t.AddressHex(),
		AddressLength: t.AddressLength,
	}
}

func newAssetState(a *bridge.Asset) *AssetState {
	remotes := a.Remotes.List()
	state := &AssetState{
		AssetID:              a.ID,
		Authority:            a.Supply.Authority,
		Decimals:             a.Supply.Decimals,
		MaxSupply:            a.Supply.MaxSupply,
		CurrentSupply:        a.Supply.CurrentSupply,
		DisplayMaxSupply:     bridge.FormatAmount(a.Supply.MaxSupply, a.Supply.Decimals),
		DisplayCurrentSupply: bridge.FormatAmount(a.Supply.CurrentSupply, a.Supply.Decimals),
		NoncesUsed:           a.Nonces.Len(),
		MaxNonces:            a.Nonces.Capacity(),
		TrustedRemotes:       make([]RemoteState, 0, len(remotes)),
		CreatedAt:            a.CreatedAt,
	}
	for _, t := range remotes {
		state.TrustedRemotes = append(state.TrustedRemotes, newRemoteState(t))
	}
	return state
}
