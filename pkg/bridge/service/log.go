package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/spiral-bridge/pkg/bridge"
)

const serviceName = "BridgeService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the bridge Service.
// It logs method entry/exit, duration, errors and the request parameters.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) done(method string, start time.Time, err error, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("service", serviceName),
		zap.String("method", method),
		zap.Duration("duration", time.Since(start)),
	}, fields...)

	if err != nil {
		fields = append(fields, zap.String("code", bridge.Code(err)), zap.Error(err))
		ls.logger.Error(method+" failed", fields...)
		return
	}
	ls.logger.Info(method+" completed", fields...)
}

func (ls *logService) started(method string, fields ...zap.Field) {
	ls.logger.Info(method+" started", append([]zap.Field{
		zap.String("service", serviceName),
		zap.String("method", method),
	}, fields...)...)
}

// Initialize wraps the service method with logging
func (ls *logService) Initialize(ctx context.Context, req *InitializeRequest) (resp *AssetState, err error) {
	start := time.Now()
	ls.started("Initialize",
		zap.String("caller", req.Caller.String()),
		zap.Uint8("decimals", req.Decimals),
		zap.Uint64("max_supply", req.MaxSupply),
	)

	defer func() {
		if err != nil {
			ls.done("Initialize", start, err)
			return
		}
		ls.done("Initialize", start, nil,
			zap.String("asset_id", resp.AssetID),
			zap.String("max_supply_display", resp.DisplayMaxSupply),
		)
	}()

	return ls.svc.Initialize(ctx, req)
}

// MintTokens wraps the service method with logging
func (ls *logService) MintTokens(ctx context.Context, req *MintRequest) (resp *Receipt, err error) {
	start := time.Now()
	ls.started("MintTokens",
		zap.String("asset_id", req.AssetID),
		zap.String("caller", req.Caller.String()),
		zap.String("recipient", req.Recipient.String()),
		zap.Uint64("amount", req.Amount),
	)

	defer func() {
		if err != nil {
			ls.done("MintTokens", start, err, zap.String("asset_id", req.AssetID))
			return
		}
		ls.done("MintTokens", start, nil,
			zap.String("asset_id", req.AssetID),
			zap.Uint64("current_supply", resp.CurrentSupply),
		)
	}()

	return ls.svc.MintTokens(ctx, req)
}

// CrossChainTransfer wraps the service method with logging
func (ls *logService) CrossChainTransfer(ctx context.Context, req *TransferRequest) (resp *Receipt, err error) {
	start := time.Now()
	ls.started("CrossChainTransfer",
		zap.String("asset_id", req.AssetID),
		zap.String("sender", req.Sender.String()),
		zap.Uint16("destination_chain", uint16(req.DestinationChain)),
		zap.String("recipient", req.Recipient.String()),
		zap.Uint64("amount", req.Amount),
		zap.String("nonce", req.Nonce.String()),
	)

	defer func() {
		if err != nil {
			ls.done("CrossChainTransfer", start, err, zap.String("asset_id", req.AssetID))
			return
		}
		ls.done("CrossChainTransfer", start, nil,
			zap.String("asset_id", req.AssetID),
			zap.Uint64("current_supply", resp.CurrentSupply),
		)
	}()

	return ls.svc.CrossChainTransfer(ctx, req)
}

// SetTrustedRemote wraps the service method with logging
func (ls *logService) SetTrustedRemote(ctx context.Context, req *SetRemoteRequest) (resp *RemoteState, err error) {
	start := time.Now()
	ls.started("SetTrustedRemote",
		zap.String("asset_id", req.AssetID),
		zap.String("caller", req.Caller.String()),
		zap.Uint16("chain_id", uint16(req.ChainID)),
		zap.Uint8("address_length", req.AddressLength),
	)

	defer func() {
		if err != nil {
			ls.done("SetTrustedRemote", start, err, zap.String("asset_id", req.AssetID))
			return
		}
		ls.done("SetTrustedRemote", start, nil,
			zap.String("asset_id", req.AssetID),
			zap.String("address", resp.Address),
		)
	}()

	return ls.svc.SetTrustedRemote(ctx, req)
}

// ReceiveCrossChainTransfer wraps the service method with logging
func (ls *logService) ReceiveCrossChainTransfer(ctx context.Context, req *ReceiveRequest) (resp *Receipt, err error) {
	start := time.Now()
	ls.started("ReceiveCrossChainTransfer",
		zap.String("asset_id", req.AssetID),
		zap.Uint16("source_chain", uint16(req.SourceChain)),
		zap.String("sender", req.Sender.String()),
		zap.String("recipient", req.Recipient.String()),
		zap.Uint64("amount", req.Amount),
		zap.String("nonce", req.Nonce.String()),
	)

	defer func() {
		if err != nil {
			ls.done("ReceiveCrossChainTransfer", start, err,
				zap.String("asset_id", req.AssetID),
				zap.String("nonce", req.Nonce.String()),
			)
			return
		}
		ls.done("ReceiveCrossChainTransfer", start, nil,
			zap.String("asset_id", req.AssetID),
			zap.Uint64("current_supply", resp.CurrentSupply),
		)
	}()

	return ls.svc.ReceiveCrossChainTransfer(ctx, req)
}

// GetAsset is read-only and logged at debug level
func (ls *logService) GetAsset(ctx context.Context, assetID string) (*AssetState, error) {
	resp, err := ls.svc.GetAsset(ctx, assetID)
	ls.logger.Debug("GetAsset",
		zap.String("service", serviceName),
		zap.String("asset_id", assetID),
		zap.Error(err),
	)
	return resp, err
}

// ListEvents is read-only and logged at debug level
func (ls *logService) ListEvents(ctx context.Context, assetID string, afterSeq int64, limit int) ([]bridge.EventRecord, error) {
	resp, err := ls.svc.ListEvents(ctx, assetID, afterSeq, limit)
	ls.logger.Debug("ListEvents",
		zap.String("service", serviceName),
		zap.String("asset_id", assetID),
		zap.Int64("after", afterSeq),
		zap.Int("returned", len(resp)),
		zap.Error(err),
	)
	return resp, err
}
