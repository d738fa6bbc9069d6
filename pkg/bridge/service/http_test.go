package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainsafe/spiral-bridge/pkg/auth"
	"github.com/chainsafe/spiral-bridge/pkg/bridge"
	"github.com/chainsafe/spiral-bridge/pkg/bridgestore"
	"github.com/chainsafe/spiral-bridge/pkg/ledger"
)

type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// newTestServer mounts the routes behind a middleware that authenticates every
// request as caller.
func newTestServer(svc Service, caller *bridge.Identity) http.Handler {
	r := chi.NewRouter()
	if caller != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(auth.WithCaller(req.Context(), *caller)))
			})
		})
	}
	RegisterRoutes(r, svc, zap.NewNop())
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var got errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	return got
}

func TestHTTP_MissingCaller_ReturnsUnauthorized(t *testing.T) {
	svc := &MockService{}
	rec := do(t, newTestServer(svc, nil), http.MethodPost, "/assets", `{"decimals":8,"max_supply":"1000"}`)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "Initialize", mock.Anything, mock.Anything)
}

func TestHTTP_BadRequests(t *testing.T) {
	caller := authority
	svc := &MockService{}
	h := newTestServer(svc, &caller)

	tests := []struct {
		name, method, path, body, wantErr string
	}{
		{"invalid JSON", http.MethodPost, "/assets", "{invalid", "invalid JSON"},
		{"missing max supply", http.MethodPost, "/assets", `{"decimals":8}`, "invalid request"},
		{"decimals above a byte", http.MethodPost, "/assets", `{"decimals":300,"max_supply":"1000"}`, "invalid_decimals"},
		{"negative decimals", http.MethodPost, "/assets", `{"decimals":-1,"max_supply":"1000"}`, "invalid_decimals"},
		{"negative amount", http.MethodPost, "/assets/a/mint", `{"recipient":"` + alice.String() + `","amount":"-1"}`, "invalid_amount"},
		{"bad recipient", http.MethodPost, "/assets/a/mint", `{"recipient":"0OIl","amount":"1"}`, "invalid_recipient"},
		{"short nonce", http.MethodPost, "/assets/a/inbound", fmt.Sprintf(
			`{"source_chain":2,"sender":%q,"recipient":%q,"amount":"1","nonce":"0x01"}`, remote, alice), "invalid request"},
		{"bad chain id", http.MethodPut, "/assets/a/remotes/70000", `{"address":"0x01","address_length":20}`, "invalid_chain_id"},
		{"bad address hex", http.MethodPut, "/assets/a/remotes/2", `{"address":"0xzz","address_length":20}`, "invalid_recipient"},
		{"bad cursor", http.MethodGet, "/assets/a/events?after=x", "", "invalid after cursor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tt.wantErr, decodeError(t, rec).Error)
		})
	}
	svc.AssertExpectations(t)
}

func TestHTTP_ErrorMapping(t *testing.T) {
	caller := authority
	tests := []struct {
		err        error
		wantStatus int
		wantErr    string
	}{
		{bridge.ErrInvalidAuthority, http.StatusForbidden, "invalid_authority"},
		{fmt.Errorf("wrapped: %w", bridge.ErrNonceAlreadyUsed), http.StatusConflict, "nonce_already_used"},
		{bridge.ErrExceedsMaxSupply, http.StatusUnprocessableEntity, "exceeds_max_supply"},
		{bridge.ErrNonceRegistryFull, http.StatusUnprocessableEntity, "nonce_registry_full"},
		{bridge.ErrInvalidSender, http.StatusBadRequest, "invalid_sender"},
		{bridgestore.ErrAssetNotFound, http.StatusNotFound, "asset_not_found"},
		{&LedgerError{Op: "mint_to", Err: ledger.ErrInsufficientFunds}, http.StatusUnprocessableEntity, "insufficient_funds"},
		{&LedgerError{Op: "mint_to", Err: errors.New("timeout")}, http.StatusBadGateway, "ledger_error"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.wantErr, func(t *testing.T) {
			svc := &MockService{}
			svc.On("MintTokens", mock.Anything, mock.Anything).Return(nil, tt.err)
			rec := do(t, newTestServer(svc, &caller), http.MethodPost, "/assets/a/mint",
				`{"recipient":"`+alice.String()+`","amount":"5"}`)

			require.Equal(t, tt.wantStatus, rec.Code)
			got := decodeError(t, rec)
			require.Equal(t, tt.wantErr, got.Error)
			require.Equal(t, tt.wantStatus, got.Code)
		})
	}
}

func TestHTTP_MintPassesRequest(t *testing.T) {
	caller := authority
	svc := &MockService{}
	want := &MintRequest{AssetID: "asset-1", Caller: authority, Recipient: alice, Amount: 600}
	svc.On("MintTokens", mock.Anything, want).Return(&Receipt{AssetID: "asset-1", CurrentSupply: 600}, nil)

	rec := do(t, newTestServer(svc, &caller), http.MethodPost, "/assets/asset-1/mint",
		`{"recipient":"`+alice.String()+`","amount":"600"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, uint64(600), got.CurrentSupply)
	svc.AssertExpectations(t)
}

func TestHTTP_ListEventsCursor(t *testing.T) {
	caller := authority
	svc := &MockService{}
	svc.On("ListEvents", mock.Anything, "asset-1", int64(4), 2).
		Return([]bridge.EventRecord{{Seq: 5}, {Seq: 9}}, nil)

	rec := do(t, newTestServer(svc, &caller), http.MethodGet, "/assets/asset-1/events?after=4&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Next int64 `json:"next"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, int64(9), got.Next)
	svc.AssertExpectations(t)
}

func TestHTTP_EndToEnd(t *testing.T) {
	caller := authority
	f := newFixture(t, DefaultConfig())
	h := newTestServer(f.svc, &caller)

	rec := do(t, h, http.MethodPost, "/assets", `{"decimals":8,"max_supply":"1000"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var state AssetState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Equal(t, uint64(1000), state.MaxSupply)
	require.Equal(t, "0.00001", state.DisplayMaxSupply)
	base := "/assets/" + state.AssetID

	rec = do(t, h, http.MethodPut, base+"/remotes/2",
		`{"address":"0xdeadbeef00000000000000000000000000000001","address_length":20}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/inbound", fmt.Sprintf(
		`{"source_chain":2,"sender":%q,"recipient":%q,"amount":"250","nonce":%q}`, remote, alice, nonceOf(1)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, base+"/inbound", fmt.Sprintf(
		`{"source_chain":2,"sender":%q,"recipient":%q,"amount":"250","nonce":%q}`, remote, alice, nonceOf(1)))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/transfers", fmt.Sprintf(
		`{"sender":%q,"destination_chain":7,"recipient":%q,"amount":"50","nonce":%q}`, alice, bob, nonceOf(2)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Equal(t, uint64(200), state.CurrentSupply)
	require.Equal(t, 1, state.NoncesUsed)
	require.Len(t, state.TrustedRemotes, 1)

	rec = do(t, h, http.MethodGet, base+"/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events struct {
		Events []struct {
			Kind    bridge.EventKind `json:"kind"`
			Payload json.RawMessage  `json:"payload"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events.Events, 2)
	require.Equal(t, bridge.KindCrossChainTransferReceived, events.Events[0].Kind)
	require.Equal(t, bridge.KindCrossChainTransferInitiated, events.Events[1].Kind)
	require.Contains(t, string(events.Events[1].Payload), `"destination_chain":7`)
	require.Contains(t, string(events.Events[1].Payload), `"amount":"50"`)
}
