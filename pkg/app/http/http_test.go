package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/chainsafe/spiral-bridge/pkg/app/errors"
	"github.com/chainsafe/spiral-bridge/pkg/config"
)

type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func TestHandleError_ServiceError(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		{apperrors.BadRequestError(nil, "invalid_amount"), http.StatusBadRequest, "invalid_amount"},
		{apperrors.ForbiddenError(nil, "invalid_authority"), http.StatusForbidden, "invalid_authority"},
		{apperrors.ConflictError(nil, "nonce_already_used"), http.StatusConflict, "nonce_already_used"},
		{apperrors.UnprocessableError(nil, "exceeds_max_supply"), http.StatusUnprocessableEntity, "exceeds_max_supply"},
		{apperrors.DependencyFailureError(errors.New("down"), "ledger_unavailable"), http.StatusBadGateway, "ledger_unavailable"},
		{fmt.Errorf("wrapped: %w", apperrors.ResourceNotFoundError(nil, "asset_not_found")), http.StatusNotFound, "asset_not_found"},
		{errors.New("boom"), http.StatusInternalServerError, "Unexpected Service Error"},
	}

	for _, tc := range cases {
		h := HandleError(func(http.ResponseWriter, *http.Request) error { return tc.err })
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != tc.wantStatus {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.wantStatus, rec.Code)
		}
		var got errorBody
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode response JSON: %v", err)
		}
		if got.Error != tc.wantMsg || got.Code != tc.wantStatus {
			t.Fatalf("unexpected body %+v", got)
		}
	}
}

func TestIsInternalError(t *testing.T) {
	if apperrors.IsInternalError(apperrors.UnprocessableError(nil, "x")) {
		t.Fatal("unprocessable must not be internal")
	}
	if !apperrors.IsInternalError(apperrors.DependencyFailureError(nil, "x")) {
		t.Fatal("dependency failure must be internal")
	}
	if !apperrors.IsInternalError(errors.New("plain")) {
		t.Fatal("plain errors are internal")
	}
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, ln, handler, zap.NewNop(), &config.ServerConfig{ShutdownTimeout: time.Second})
	}()

	resp, err := http.Get("http://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Fatalf("expected %d, got %d", http.StatusTeapot, resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not stop after cancel")
	}
}
