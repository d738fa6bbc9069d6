package service

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/chainsafe/spiral-bridge/pkg/bridge"
	"github.com/chainsafe/spiral-bridge/pkg/bridgestore"
	"github.com/chainsafe/spiral-bridge/pkg/ledger"
)

var errCommit = errors.New("commit failed")

// MockLedger is a MemoryLedger with injectable faults. A Func field, when set, runs
// before the real call and its error short-circuits it.
type MockLedger struct {
	*ledger.MemoryLedger

	MintToFunc   func(asset ledger.AssetHandle, recipient bridge.Identity, amount uint64) error
	BurnFromFunc func(asset ledger.AssetHandle, source bridge.Identity, amount uint64) error

	InitializeCalls int
	MintCalls       int
	BurnCalls       int
}

func NewMockLedger() *MockLedger {
	return &MockLedger{MemoryLedger: ledger.NewMemoryLedger()}
}

func (m *MockLedger) InitializeAsset(ctx context.Context, decimals uint8, authority bridge.Identity) (ledger.AssetHandle, error) {
	m.InitializeCalls++
	return m.MemoryLedger.InitializeAsset(ctx, decimals, authority)
}

func (m *MockLedger) MintTo(ctx context.Context, asset ledger.AssetHandle, recipient bridge.Identity, amount uint64) error {
	m.MintCalls++
	if m.MintToFunc != nil {
		if err := m.MintToFunc(asset, recipient, amount); err != nil {
			return err
		}
	}
	return m.MemoryLedger.MintTo(ctx, asset, recipient, amount)
}

func (m *MockLedger) BurnFrom(ctx context.Context, asset ledger.AssetHandle, source, authority bridge.Identity, amount uint64) error {
	m.BurnCalls++
	if m.BurnFromFunc != nil {
		if err := m.BurnFromFunc(asset, source, amount); err != nil {
			return err
		}
	}
	return m.MemoryLedger.BurnFrom(ctx, asset, source, authority, amount)
}

// joinedLedger reports every write as part of the store transaction, the way the
// postgres ledger does under the postgres store.
type joinedLedger struct {
	*MockLedger
}

func (joinedLedger) JoinsTx(context.Context) bool { return true }

// commitFailStore runs work to completion and then fails the commit, so every change
// made by work is discarded after the ledger was already called.
type commitFailStore struct {
	bridgestore.Store
}

func (s *commitFailStore) Update(ctx context.Context, assetID string, work bridgestore.Work) ([]bridge.EventRecord, error) {
	_, err := s.Store.Update(ctx, assetID, func(ctx context.Context, asset *bridge.Asset) ([]bridge.Event, error) {
		if _, err := work(ctx, asset); err != nil {
			return nil, err
		}
		return nil, errCommit
	})
	return nil, err
}

// MockService is a testify mock of Service.
type MockService struct {
	mock.Mock
}

func (m *MockService) Initialize(ctx context.Context, req *InitializeRequest) (*AssetState, error) {
	args := m.Called(ctx, req)
	state, _ := args.Get(0).(*AssetState)
	return state, args.Error(1)
}

func (m *MockService) MintTokens(ctx context.Context, req *MintRequest) (*Receipt, error) {
	args := m.Called(ctx, req)
	receipt, _ := args.Get(0).(*Receipt)
	return receipt, args.Error(1)
}

func (m *MockService) CrossChainTransfer(ctx context.Context, req *TransferRequest) (*Receipt, error) {
	args := m.Called(ctx, req)
	receipt, _ := args.Get(0).(*Receipt)
	return receipt, args.Error(1)
}

func (m *MockService) SetTrustedRemote(ctx context.Context, req *SetRemoteRequest) (*RemoteState, error) {
	args := m.Called(ctx, req)
	state, _ := args.Get(0).(*RemoteState)
	return state, args.Error(1)
}

func (m *MockService) ReceiveCrossChainTransfer(ctx context.Context, req *ReceiveRequest) (*Receipt, error) {
	args := m.Called(ctx, req)
	receipt, _ := args.Get(0).(*Receipt)
	return receipt, args.Error(1)
}

func (m *MockService) GetAsset(ctx context.Context, assetID string) (*AssetState, error) {
	args := m.Called(ctx, assetID)
	state, _ := args.Get(0).(*AssetState)
	return state, args.Error(1)
}

func (m *MockService) ListEvents(ctx context.Context, assetID string, afterSeq int64, limit int) ([]bridge.EventRecord, error) {
	args := m.Called(ctx, assetID, afterSeq, limit)
	events, _ := args.Get(0).([]bridge.EventRecord)
	return events, args.Error(1)
}
