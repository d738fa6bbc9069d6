package bridgestore

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/chainsafe/spiral-bridge/pkg/bridge"
	"github.com/chainsafe/spiral-bridge/pkg/bridgestore/dao"
)

// toSupplyLedgerDao converts an asset to its supply_ledgers row.
func toSupplyLedgerDao(asset *bridge.Asset) *dao.SupplyLedgerDao {
	return &dao.SupplyLedgerDao{
		AssetID:       asset.ID,
		MaxSupply:     int64(asset.Supply.MaxSupply),
		CurrentSupply: int64(asset.Supply.CurrentSupply),
		Authority:     asset.Supply.Authority.String(),
		Decimals:      int16(asset.Supply.Decimals),
		MaxNonces:     asset.Nonces.Capacity(),
	}
}

// toSupplyLedger converts a supply_ledgers row to a SupplyLedger.
func toSupplyLedger(d *dao.SupplyLedgerDao) (*bridge.SupplyLedger, error) {
	authority, err := bridge.ParseIdentity(d.Authority)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", d.AssetID, err)
	}
	return &bridge.SupplyLedger{
		MaxSupply:     uint64(d.MaxSupply),
		CurrentSupply: uint64(d.CurrentSupply),
		Authority:     authority,
		Decimals:      uint8(d.Decimals),
	}, nil
}

func toUsedNonceDaos(assetID string, nonces *bridge.NonceRegistry) []dao.UsedNonceDao {
	added := nonces.Added()
	first := nonces.Len() - len(added)
	daos := make([]dao.UsedNonceDao, len(added))
	for i, n := range added {
		daos[i] = dao.UsedNonceDao{
			AssetID:  assetID,
			Nonce:    n.String(),
			Position: first + i,
		}
	}
	return daos
}

func toTrustedRemoteDao(assetID string, t bridge.TrustedRemote) dao.TrustedRemoteDao {
	return dao.TrustedRemoteDao{
		AssetID:       assetID,
		ChainID:       int32(t.ChainID),
		Address:       hexutil.Encode(t.Address[:]),
		AddressLength: int16(t.AddressLength),
	}
}

func toTrustedRemote(d *dao.TrustedRemoteDao) (bridge.TrustedRemote, error) {
	var t bridge.TrustedRemote
	raw, err := hexutil.Decode(d.Address)
	if err != nil {
		return t, fmt.Errorf("trusted remote %d: %w", d.ChainID, err)
	}
	if len(raw) != len(t.Address) {
		return t, fmt.Errorf("trusted remote %d: stored address has %d bytes", d.ChainID, len(raw))
	}
	t.ChainID = bridge.ChainID(d.ChainID)
	t.AddressLength = uint8(d.AddressLength)
	copy(t.Address[:], raw)
	return t, nil
}

func toBridgeEventDao(rec bridge.EventRecord) (*dao.BridgeEventDao, error) {
	payload, err := json.Marshal(rec.Event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", rec.Kind, err)
	}
	return &dao.BridgeEventDao{
		ID:      rec.ID,
		AssetID: rec.AssetID,
		Kind:    string(rec.Kind),
		Payload: string(payload),
	}, nil
}

func toEventRecord(d *dao.BridgeEventDao) (bridge.EventRecord, error) {
	ev, err := bridge.DecodeEvent(bridge.EventKind(d.Kind), []byte(d.Payload))
	if err != nil {
		return bridge.EventRecord{}, fmt.Errorf("event %d: %w", d.Seq, err)
	}
	return bridge.EventRecord{
		Seq:       d.Seq,
		ID:        d.ID,
		AssetID:   d.AssetID,
		Kind:      bridge.EventKind(d.Kind),
		Event:     ev,
		CreatedAt: d.CreatedAt,
	}, nil
}
