package auth

import (
	"net/http"

	apperrors "github.com/chainsafe/spiral-bridge/pkg/app/errors"
	apphttp "github.com/chainsafe/spiral-bridge/pkg/app/http"
	"github.com/chainsafe/spiral-bridge/pkg/bridge"
)

// HeaderCaller is the header carrying the caller identity when auth is disabled.
const HeaderCaller = "X-Bridge-Caller"

// HeaderMiddleware takes the caller identity from HeaderCaller without any proof
// of ownership. It is meant for local setups running with auth disabled.
func HeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(apphttp.HandleError(func(w http.ResponseWriter, r *http.Request) error {
		caller, err := bridge.ParseIdentity(r.Header.Get(HeaderCaller))
		if err != nil {
			return apperrors.UnAuthorizedError(err, "missing or malformed "+HeaderCaller+" header")
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		return nil
	}))
}
