// Package service implements the bridge coordinator: the caller facing operations that
// validate a request against one asset, call the Token Ledger Service and commit the
// new state together with the emitted events.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/spiral-bridge/internal/metrics"
	"github.com/chainsafe/spiral-bridge/pkg/bridge"
	"github.com/chainsafe/spiral-bridge/pkg/bridgestore"
	"github.com/chainsafe/spiral-bridge/pkg/ledger"
)

// Operation names used in logs and metrics.
const (
	opInitialize         = "initialize"
	opMintTokens         = "mint_tokens"
	opCrossChainTransfer = "cross_chain_transfer"
	opSetTrustedRemote   = "set_trusted_remote"
	opReceiveTransfer    = "receive_cross_chain_transfer"
)

const (
	DefaultEventLimit = 100
	MaxEventLimit     = 1000
)

// LedgerError reports a failed Token Ledger Service call. The wrapped error is the
// ledger's own.
type LedgerError struct {
	Op  string
	Err error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// Service defines the bridge coordinator operations
type Service interface {
	Initialize(ctx context.Context, req *InitializeRequest) (*AssetState, error)
	MintTokens(ctx context.Context, req *MintRequest) (*Receipt, error)
	CrossChainTransfer(ctx context.Context, req *TransferRequest) (*Receipt, error)
	SetTrustedRemote(ctx context.Context, req *SetRemoteRequest) (*RemoteState, error)
	ReceiveCrossChainTransfer(ctx context.Context, req *ReceiveRequest) (*Receipt, error)
	GetAsset(ctx context.Context, assetID string) (*AssetState, error)
	ListEvents(ctx context.Context, assetID string, afterSeq int64, limit int) ([]bridge.EventRecord, error)
}

// Config holds the coordinator settings.
type Config struct {
	// LocalChainID is reported as the source chain of outbound transfers.
	LocalChainID bridge.ChainID
	// MaxNonces bounds the replay registry of assets created by Initialize.
	MaxNonces int
	// MaxSupplyCeiling bounds the max supply accepted by Initialize.
	MaxSupplyCeiling uint64
	// ConsumeNonceOnFailure keeps an inbound nonce marked when the mint that
	// follows it fails. The default rolls the mark back with everything else.
	ConsumeNonceOnFailure bool
	// StrictTrustedRemotes requires a registered remote whose address equals the
	// inbound sender.
	StrictTrustedRemotes bool
}

// DefaultConfig returns the coordinator defaults.
func DefaultConfig() Config {
	return Config{
		LocalChainID:     bridge.LocalChainID,
		MaxNonces:        bridge.DefaultMaxNonces,
		MaxSupplyCeiling: bridge.DefaultMaxSupplyCeiling,
	}
}

// Option configures the coordinator.
type Option func(*bridgeService)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *bridgeService) { s.logger = logger }
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *bridgeService) { s.now = now }
}

type bridgeService struct {
	store  bridgestore.Store
	ledger ledger.Ledger
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new bridge coordinator
func NewService(store bridgestore.Store, tokenLedger ledger.Ledger, cfg Config, opts ...Option) Service {
	if cfg.LocalChainID == 0 {
		cfg.LocalChainID = bridge.LocalChainID
	}
	if cfg.MaxNonces <= 0 {
		cfg.MaxNonces = bridge.DefaultMaxNonces
	}
	if cfg.MaxSupplyCeiling == 0 {
		cfg.MaxSupplyCeiling = bridge.DefaultMaxSupplyCeiling
	}
	s := &bridgeService{
		store:  store,
		ledger: tokenLedger,
		cfg:    cfg,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize validates the supply parameters, creates the asset on the Token Ledger
// Service with the caller as burn authority and stores the new asset under the
// returned handle.
func (s *bridgeService) Initialize(ctx context.Context, req *InitializeRequest) (_ *AssetState, err error) {
	defer observe(opInitialize, time.Now(), &err)

	supply, err := bridge.NewSupplyLedger(req.Decimals, req.MaxSupply, req.Caller, s.cfg.MaxSupplyCeiling)
	if err != nil {
		return nil, err
	}

	handle, err := s.ledger.InitializeAsset(ctx, req.Decimals, req.Caller)
	if err != nil {
		return nil, &LedgerError{Op: "initialize_asset", Err: err}
	}

	asset := bridge.NewAsset(string(handle), supply, s.cfg.MaxNonces)
	asset.CreatedAt = s.now().UTC()
	if err := s.store.Create(ctx, asset); err != nil {
		// The ledger has no delete; the handle stays unused.
		s.logger.Error("Ledger asset orphaned",
			zap.String("asset_id", string(handle)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to save asset: %w", err)
	}

	metrics.CurrentSupply.WithLabelValues(asset.ID).Set(0)
	metrics.NoncesUsed.WithLabelValues(asset.ID).Set(0)
	return newAssetState(asset), nil
}

// MintTokens mints amount to recipient. Only the asset authority may mint.
func (s *bridgeService) MintTokens(ctx context.Context, req *MintRequest) (_ *Receipt, err error) {
	defer observe(opMintTokens, time.Now(), &err)

	if req.Amount == 0 {
		return nil, bridge.ErrInvalidAmount
	}
	if req.Recipient.IsZero() {
		return nil, fmt.Errorf("%w: default identity", bridge.ErrInvalidRecipient)
	}

	var (
		undoMint   bool
		newSupply  uint64
		noncesUsed int
		authority  bridge.Identity
	)
	records, err := s.store.Update(ctx, req.AssetID, func(ctx context.Context, asset *bridge.Asset) ([]bridge.Event, error) {
		if err := asset.Supply.CheckAuthority(req.Caller); err != nil {
			return nil, err
		}
		supply, err := asset.Supply.Increase(req.Amount)
		if err != nil {
			return nil, err
		}
		if err := s.ledger.MintTo(ctx, ledger.AssetHandle(asset.ID), req.Recipient, req.Amount); err != nil {
			return nil, &LedgerError{Op: "mint_to", Err: err}
		}
		undoMint = !ledger.JoinsTx(ctx, s.ledger)
		newSupply, authority, noncesUsed = supply, asset.Supply.Authority, asset.Nonces.Len()
		return []bridge.Event{bridge.TokensMinted{
			Recipient: req.Recipient,
			Amount:    req.Amount,
			NewSupply: supply,
		}}, nil
	})
	if err != nil {
		if undoMint {
			s.compensate(ctx, opMintTokens, req.AssetID, err, func(ctx context.Context) error {
				return s.ledger.BurnFrom(ctx, ledger.AssetHandle(req.AssetID), req.Recipient, authority, req.Amount)
			})
		}
		return nil, err
	}

	return s.committed(req.AssetID, newSupply, noncesUsed, records), nil
}

// CrossChainTransfer burns amount held by sender and emits the transfer for the relay
// layer. The supply decrease is checked before the ledger is called.
func (s *bridgeService) CrossChainTransfer(ctx context.Context, req *TransferRequest) (_ *Receipt, err error) {
	defer observe(opCrossChainTransfer, time.Now(), &err)

	if req.Amount == 0 {
		return nil, bridge.ErrInvalidAmount
	}
	if req.Recipient.IsZero() {
		return nil, fmt.Errorf("%w: default identity", bridge.ErrInvalidRecipient)
	}
	if req.DestinationChain == 0 {
		return nil, fmt.Errorf("%w: destination chain is zero", bridge.ErrInvalidChainID)
	}
	if req.Sender.IsZero() {
		return nil, fmt.Errorf("%w: default identity", bridge.ErrInvalidSender)
	}

	var (
		undoBurn   bool
		newSupply  uint64
		noncesUsed int
	)
	records, err := s.store.Update(ctx, req.AssetID, func(ctx context.Context, asset *bridge.Asset) ([]bridge.Event, error) {
		if err := asset.Supply.CheckAuthority(req.Caller); err != nil {
			return nil, err
		}
		supply, err := asset.Supply.Decrease(req.Amount)
		if err != nil {
			return nil, err
		}
		if err := s.ledger.BurnFrom(ctx, ledger.AssetHandle(asset.ID), req.Sender, req.Caller, req.Amount); err != nil {
			return nil, &LedgerError{Op: "burn_from", Err: err}
		}
		undoBurn = !ledger.JoinsTx(ctx, s.ledger)
		newSupply, noncesUsed = supply, asset.Nonces.Len()
		return []bridge.Event{bridge.CrossChainTransferInitiated{
			TransferInfo: bridge.CrossChainTransferInfo{
				SourceChain:      s.cfg.LocalChainID,
				DestinationChain: req.DestinationChain,
				Recipient:        req.Recipient,
				Amount:           req.Amount,
				Nonce:            req.Nonce,
				Timestamp:        s.now().Unix(),
			},
		}}, nil
	})
	if err != nil {
		if undoBurn {
			s.compensate(ctx, opCrossChainTransfer, req.AssetID, err, func(ctx context.Context) error {
				return s.ledger.MintTo(ctx, ledger.AssetHandle(req.AssetID), req.Sender, req.Amount)
			})
		}
		return nil, err
	}

	return s.committed(req.AssetID, newSupply, noncesUsed, records), nil
}

// SetTrustedRemote creates or replaces the trusted sender of a remote chain.
func (s *bridgeService) SetTrustedRemote(ctx context.Context, req *SetRemoteRequest) (_ *RemoteState, err error) {
	defer observe(opSetTrustedRemote, time.Now(), &err)

	var remote bridge.TrustedRemote
	_, err = s.store.Update(ctx, req.AssetID, func(_ context.Context, asset *bridge.Asset) ([]bridge.Event, error) {
		if err := asset.Supply.CheckAuthority(req.Caller); err != nil {
			return nil, err
		}
		t, err := asset.Remotes.Set(req.ChainID, req.Address, req.AddressLength)
		if err != nil {
			return nil, err
		}
		remote = t
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	state := newRemoteState(remote)
	return &state, nil
}

// ReceiveCrossChainTransfer applies an inbound transfer: the source is checked
// against the trusted remotes, the nonce is marked, then supply is increased and
// the recipient minted.
func (s *bridgeService) ReceiveCrossChainTransfer(ctx context.Context, req *ReceiveRequest) (_ *Receipt, err error) {
	defer observe(opReceiveTransfer, time.Now(), &err)

	if req.Amount == 0 {
		return nil, bridge.ErrInvalidAmount
	}
	if req.Recipient.IsZero() {
		return nil, fmt.Errorf("%w: default identity", bridge.ErrInvalidRecipient)
	}
	if req.SourceChain == 0 {
		return nil, fmt.Errorf("%w: source chain is zero", bridge.ErrInvalidChainID)
	}
	if req.Sender.IsZero() {
		return nil, fmt.Errorf("%w: default identity", bridge.ErrInvalidSender)
	}

	var (
		undoMint  bool
		newSupply uint64
		authority bridge.Identity
		// unverified is set when the source chain has no registered remote and the
		// transfer is accepted on chain id alone.
		unverified bool
		noncesUsed int
		// consumed is the failure that followed a nonce mark kept under the
		// consume policy. The store commits the mark; the caller sees consumed.
		consumed error
	)
	records, err := s.store.Update(ctx, req.AssetID, func(ctx context.Context, asset *bridge.Asset) ([]bridge.Event, error) {
		if err := asset.Supply.CheckAuthority(req.Caller); err != nil {
			return nil, err
		}
		_, registered := asset.Remotes.Get(req.SourceChain)
		unverified = !registered && !s.cfg.StrictTrustedRemotes
		if !asset.Remotes.ValidateSource(req.SourceChain, req.Sender, s.cfg.StrictTrustedRemotes) {
			return nil, fmt.Errorf("%w: %d is not a trusted source for %s", bridge.ErrInvalidChainID, req.SourceChain, req.Sender)
		}
		if err := asset.Nonces.MarkUsed(req.Nonce); err != nil {
			return nil, err
		}
		noncesUsed = asset.Nonces.Len()

		snapshot := *asset.Supply
		fail := func(err error) ([]bridge.Event, error) {
			if !s.cfg.ConsumeNonceOnFailure {
				return nil, err
			}
			*asset.Supply = snapshot
			consumed = err
			return nil, nil
		}

		supply, err := asset.Supply.Increase(req.Amount)
		if err != nil {
			return fail(err)
		}
		if err := s.ledger.MintTo(ctx, ledger.AssetHandle(asset.ID), req.Recipient, req.Amount); err != nil {
			return fail(&LedgerError{Op: "mint_to", Err: err})
		}
		undoMint = !ledger.JoinsTx(ctx, s.ledger)
		newSupply, authority = supply, asset.Supply.Authority
		return []bridge.Event{bridge.CrossChainTransferReceived{
			SourceChain: req.SourceChain,
			Sender:      req.Sender,
			Recipient:   req.Recipient,
			Amount:      req.Amount,
			Nonce:       req.Nonce,
		}}, nil
	})
	if err != nil {
		if undoMint {
			s.compensate(ctx, opReceiveTransfer, req.AssetID, err, func(ctx context.Context) error {
				return s.ledger.BurnFrom(ctx, ledger.AssetHandle(req.AssetID), req.Recipient, authority, req.Amount)
			})
		}
		return nil, err
	}
	if consumed != nil {
		s.logger.Info("Nonce consumed by failed inbound transfer",
			zap.String("asset_id", req.AssetID),
			zap.String("nonce", req.Nonce.String()),
			zap.Error(consumed),
		)
		metrics.NoncesUsed.WithLabelValues(req.AssetID).Set(float64(noncesUsed))
		return nil, consumed
	}
	if unverified {
		s.logger.Warn("No trusted remote registered, accepted inbound transfer on chain id alone",
			zap.String("asset_id", req.AssetID),
			zap.Uint16("source_chain", uint16(req.SourceChain)),
			zap.String("sender", req.Sender.String()),
		)
		metrics.TrustedRemoteSkips.WithLabelValues(strconv.Itoa(int(req.SourceChain))).Inc()
	}

	return s.committed(req.AssetID, newSupply, noncesUsed, records), nil
}

// GetAsset returns a snapshot of the asset state.
func (s *bridgeService) GetAsset(ctx context.Context, assetID string) (*AssetState, error) {
	asset, err := s.store.Get(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return newAssetState(asset), nil
}

// ListEvents returns up to limit events of assetID with a sequence above afterSeq.
func (s *bridgeService) ListEvents(ctx context.Context, assetID string, afterSeq int64, limit int) ([]bridge.EventRecord, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	if limit > MaxEventLimit {
		limit = MaxEventLimit
	}
	if afterSeq < 0 {
		afterSeq = 0
	}
	return s.store.ListEvents(ctx, assetID, afterSeq, limit)
}

// committed publishes the metrics of a successful state change.
func (s *bridgeService) committed(assetID string, supply uint64, noncesUsed int, records []bridge.EventRecord) *Receipt {
	metrics.CurrentSupply.WithLabelValues(assetID).Set(float64(supply))
	metrics.NoncesUsed.WithLabelValues(assetID).Set(float64(noncesUsed))
	for _, rec := range records {
		metrics.EventsEmitted.WithLabelValues(string(rec.Kind)).Inc()
	}
	return &Receipt{
		AssetID:       assetID,
		CurrentSupply: supply,
		Events:        records,
	}
}

// compensate undoes a ledger call that ran outside the store transaction when the
// commit failed. It runs even when ctx is already canceled. Failures are logged and counted, never returned: the
// caller always sees the commit error.
func (s *bridgeService) compensate(ctx context.Context, op, assetID string, cause error, undo func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	if err := undo(ctx); err != nil {
		s.logger.Error("Compensating ledger call failed, ledger and supply diverge",
			zap.String("operation", op),
			zap.String("asset_id", assetID),
			zap.NamedError("commit_error", cause),
			zap.Error(err),
		)
		metrics.CompensationsTotal.WithLabelValues(op, "failed").Inc()
		return
	}
	s.logger.Warn("Commit failed after ledger call, ledger call compensated",
		zap.String("operation", op),
		zap.String("asset_id", assetID),
		zap.Error(cause),
	)
	metrics.CompensationsTotal.WithLabelValues(op, "ok").Inc()
}

func observe(op string, start time.Time, errp *error) {
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.OperationsTotal.WithLabelValues(op, resultCode(*errp)).Inc()
}

func resultCode(err error) string {
	var ledgerErr *LedgerError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ledgerErr):
		return "ledger_error"
	case errors.Is(err, bridgestore.ErrAssetNotFound):
		return "asset_not_found"
	default:
		return bridge.Code(err)
	}
}
