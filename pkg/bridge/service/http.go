package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/spiral-bridge/pkg/app/errors"
	apphttp "github.com/chainsafe/spiral-bridge/pkg/app/http"
	"github.com/chainsafe/spiral-bridge/pkg/auth"
	"github.com/chainsafe/spiral-bridge/pkg/bridge"
	"github.com/chainsafe/spiral-bridge/pkg/bridgestore"
	"github.com/chainsafe/spiral-bridge/pkg/ledger"
)

const maxBodySize = 1 << 20 // 1MB

type initializeBody struct {
	Decimals  int64  `json:"decimals"`
	MaxSupply string `json:"max_supply" validate:"required,numeric"`
}

type mintBody struct {
	Recipient string `json:"recipient" validate:"required"`
	Amount    string `json:"amount" validate:"required,numeric"`
}

type transferBody struct {
	Sender           string `json:"sender" validate:"required"`
	DestinationChain uint16 `json:"destination_chain"`
	Recipient        string `json:"recipient" validate:"required"`
	Amount           string `json:"amount" validate:"required,numeric"`
	Nonce            string `json:"nonce" validate:"required,startswith=0x,len=66"`
}

type receiveBody struct {
	SourceChain uint16 `json:"source_chain"`
	Sender      string `json:"sender" validate:"required"`
	Recipient   string `json:"recipient" validate:"required"`
	Amount      string `json:"amount" validate:"required,numeric"`
	Nonce       string `json:"nonce" validate:"required,startswith=0x,len=66"`
}

type remoteBody struct {
	Address       string `json:"address" validate:"required,startswith=0x"`
	AddressLength uint8  `json:"address_length"`
}

type eventsResponse struct {
	Events []bridge.EventRecord `json:"events"`
	Next   int64                `json:"next"`
}

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service  Service
	logger   *zap.Logger
	validate *validator.Validate
}

// RegisterRoutes registers the bridge endpoints on the given chi router. Every route
// expects the caller identity in the request context.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}

	r.Route("/assets", func(r chi.Router) {
		r.Post("/", apphttp.HandleError(h.initialize))
		r.Route("/{assetID}", func(r chi.Router) {
			r.Get("/", apphttp.HandleError(h.getAsset))
			r.Post("/mint", apphttp.HandleError(h.mint))
			r.Post("/transfers", apphttp.HandleError(h.transfer))
			r.Post("/inbound", apphttp.HandleError(h.receive))
			r.Put("/remotes/{chainID}", apphttp.HandleError(h.setRemote))
			r.Get("/events", apphttp.HandleError(h.listEvents))
		})
	})
}

func (h *HTTP) initialize(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerFrom(r)
	if err != nil {
		return err
	}
	var body initializeBody
	if err := h.decode(r, &body); err != nil {
		return err
	}
	if body.Decimals < 0 || body.Decimals > math.MaxUint8 {
		return apperrors.BadRequestError(
			fmt.Errorf("%w: %d", bridge.ErrInvalidDecimals, body.Decimals), bridge.Code(bridge.ErrInvalidDecimals))
	}
	maxSupply, err := parseAmount(body.MaxSupply, bridge.ErrInvalidMaxSupply)
	if err != nil {
		return err
	}

	resp, err := h.service.Initialize(r.Context(), &InitializeRequest{
		Caller:    caller,
		Decimals:  uint8(body.Decimals),
		MaxSupply: maxSupply,
	})
	if err != nil {
		return h.fail(err)
	}
	writeJSON(w, http.StatusCreated, resp)
	return nil
}

func (h *HTTP) getAsset(w http.ResponseWriter, r *http.Request) error {
	resp, err := h.service.GetAsset(r.Context(), chi.URLParam(r, "assetID"))
	if err != nil {
		return h.fail(err)
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) mint(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerFrom(r)
	if err != nil {
		return err
	}
	var body mintBody
	if err := h.decode(r, &body); err != nil {
		return err
	}
	recipient, err := parseIdentity(body.Recipient, bridge.ErrInvalidRecipient)
	if err != nil {
		return err
	}
	amount, err := parseAmount(body.Amount, bridge.ErrInvalidAmount)
	if err != nil {
		return err
	}

	resp, err := h.service.MintTokens(r.Context(), &MintRequest{
		AssetID:   chi.URLParam(r, "assetID"),
		Caller:    caller,
		Recipient: recipient,
		Amount:    amount,
	})
	if err != nil {
		return h.fail(err)
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) transfer(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerFrom(r)
	if err != nil {
		return err
	}
	var body transferBody
	if err := h.decode(r, &body); err != nil {
		return err
	}
	sender, err := parseIdentity(body.Sender, bridge.ErrInvalidSender)
	if err != nil {
		return err
	}
	recipient, err := parseIdentity(body.Recipient, bridge.ErrInvalidRecipient)
	if err != nil {
		return err
	}
	amount, err := parseAmount(body.Amount, bridge.ErrInvalidAmount)
	if err != nil {
		return err
	}
	nonce, err := bridge.ParseNonce(body.Nonce)
	if err != nil {
		return apperrors.BadRequestError(err, "invalid_nonce")
	}

	resp, err := h.service.CrossChainTransfer(r.Context(), &TransferRequest{
		AssetID:          chi.URLParam(r, "assetID"),
		Caller:           caller,
		Sender:           sender,
		DestinationChain: bridge.ChainID(body.DestinationChain),
		Recipient:        recipient,
		Amount:           amount,
		Nonce:            nonce,
	})
	if err != nil {
		return h.fail(err)
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) receive(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerFrom(r)
	if err != nil {
		return err
	}
	var body receiveBody
	if err := h.decode(r, &body); err != nil {
		return err
	}
	sender, err := parseIdentity(body.Sender, bridge.ErrInvalidSender)
	if err != nil {
		return err
	}
	recipient, err := parseIdentity(body.Recipient, bridge.ErrInvalidRecipient)
	if err != nil {
		return err
	}
	amount, err := parseAmount(body.Amount, bridge.ErrInvalidAmount)
	if err != nil {
		return err
	}
	nonce, err := bridge.ParseNonce(body.Nonce)
	if err != nil {
		return apperrors.BadRequestError(err, "invalid_nonce")
	}

	resp, err := h.service.ReceiveCrossChainTransfer(r.Context(), &ReceiveRequest{
		AssetID:     chi.URLParam(r, "assetID"),
		Caller:      caller,
		SourceChain: bridge.ChainID(body.SourceChain),
		Sender:      sender,
		Recipient:   recipient,
		Amount:      amount,
		Nonce:       nonce,
	})
	if err != nil {
		return h.fail(err)
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) setRemote(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerFrom(r)
	if err != nil {
		return err
	}
	chainID, err := strconv.ParseUint(chi.URLParam(r, "chainID"), 10, 16)
	if err != nil {
		return apperrors.BadRequestError(err, bridge.Code(bridge.ErrInvalidChainID))
	}
	var body remoteBody
	if err := h.decode(r, &body); err != nil {
		return err
	}
	address, err := hexutil.Decode(body.Address)
	if err != nil {
		return apperrors.BadRequestError(err, bridge.Code(bridge.ErrInvalidRecipient))
	}

	resp, err := h.service.SetTrustedRemote(r.Context(), &SetRemoteRequest{
		AssetID:       chi.URLParam(r, "assetID"),
		Caller:        caller,
		ChainID:       bridge.ChainID(chainID),
		Address:       address,
		AddressLength: body.AddressLength,
	})
	if err != nil {
		return h.fail(err)
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) listEvents(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	var (
		after int64
		limit int
		err   error
	)
	if v := q.Get("after"); v != "" {
		if after, err = strconv.ParseInt(v, 10, 64); err != nil || after < 0 {
			return apperrors.BadRequestError(err, "invalid after cursor")
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return apperrors.BadRequestError(err, "invalid limit")
		}
	}

	events, err := h.service.ListEvents(r.Context(), chi.URLParam(r, "assetID"), after, limit)
	if err != nil {
		return h.fail(err)
	}
	next := after
	if len(events) > 0 {
		next = events[len(events)-1].Seq
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, Next: next})
	return nil
}

func (h *HTTP) decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	if err := h.validate.Struct(dst); err != nil {
		return apperrors.BadRequestError(err, "invalid request")
	}
	return nil
}

// fail maps a service error to its transport category. The message is the stable
// bridge error code.
func (h *HTTP) fail(err error) error {
	var ledgerErr *LedgerError
	switch {
	case errors.Is(err, bridgestore.ErrAssetNotFound), errors.Is(err, ledger.ErrAssetNotFound):
		return apperrors.ResourceNotFoundError(err, "asset_not_found")
	case errors.Is(err, bridgestore.ErrAssetExists):
		return apperrors.ConflictError(err, "asset_exists")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return apperrors.UnprocessableError(err, "insufficient_funds")
	case errors.Is(err, ledger.ErrUnauthorized):
		return apperrors.ForbiddenError(err, "ledger_unauthorized")
	case errors.As(err, &ledgerErr):
		h.logger.Error("Token ledger call failed", zap.String("op", ledgerErr.Op), zap.Error(err))
		return apperrors.DependencyFailureError(err, "ledger_error")
	case errors.Is(err, bridge.ErrInvalidAuthority):
		return apperrors.ForbiddenError(err, bridge.Code(err))
	case errors.Is(err, bridge.ErrNonceAlreadyUsed):
		return apperrors.ConflictError(err, bridge.Code(err))
	case errors.Is(err, bridge.ErrExceedsMaxSupply),
		errors.Is(err, bridge.ErrSupplyOverflow),
		errors.Is(err, bridge.ErrSupplyUnderflow),
		errors.Is(err, bridge.ErrNonceRegistryFull):
		return apperrors.UnprocessableError(err, bridge.Code(err))
	}

	if code := bridge.Code(err); code != "internal" {
		return apperrors.BadRequestError(err, code)
	}
	h.logger.Error("Unexpected bridge error", zap.Error(err))
	return apperrors.GeneralError(err)
}

func callerFrom(r *http.Request) (bridge.Identity, error) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		return bridge.Identity{}, apperrors.UnAuthorizedError(nil, "missing caller identity")
	}
	return caller, nil
}

func parseIdentity(s string, kind error) (bridge.Identity, error) {
	id, err := bridge.ParseIdentity(s)
	if err != nil {
		return id, apperrors.BadRequestError(err, bridge.Code(kind))
	}
	return id, nil
}

func parseAmount(s string, kind error) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, apperrors.BadRequestError(err, bridge.Code(kind))
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
