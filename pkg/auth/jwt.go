package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/chainsafe/spiral-bridge/pkg/app/errors"
	apphttp "github.com/chainsafe/spiral-bridge/pkg/app/http"
	"github.com/chainsafe/spiral-bridge/pkg/bridge"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// JWTValidator validates HS256 caller tokens. The subject claim carries the
// caller's base58 identity.
type JWTValidator struct {
	secret []byte
	issuer string
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(secret, issuer string) *JWTValidator {
	return &JWTValidator{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// ValidateToken validates a JWT token and returns the caller identity
func (v *JWTValidator) ValidateToken(tokenString string) (bridge.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return bridge.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	caller, err := bridge.ParseIdentity(claims.Subject)
	if err != nil {
		return bridge.Identity{}, fmt.Errorf("%w: subject: %w", ErrInvalidToken, err)
	}
	if caller.IsZero() {
		return bridge.Identity{}, fmt.Errorf("%w: default identity as subject", ErrInvalidToken)
	}
	return caller, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// caller identity in the request context.
func (v *JWTValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(apphttp.HandleError(func(w http.ResponseWriter, r *http.Request) error {
		token, ok := bearerToken(r)
		if !ok {
			return apperrors.UnAuthorizedError(ErrMissingToken, "missing bearer token")
		}
		caller, err := v.ValidateToken(token)
		if err != nil {
			return apperrors.UnAuthorizedError(err, "invalid token")
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		return nil
	}))
}

// Issue signs a token for caller. Operators use it to provision relayer and
// authority credentials.
func Issue(secret, issuer string, caller bridge.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   caller.String(),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
