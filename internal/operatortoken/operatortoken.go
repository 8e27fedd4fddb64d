// Package operatortoken issues and validates the short-lived JWTs that guard
// the operator endpoints: issuance, revocation, and schema mapping. Scanner
// clients never hold one of these; they authenticate with scanner keys.
package operatortoken

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/requesttime"
)

const (
	// DefaultTTL keeps operator sessions short; tooling re-issues freely.
	DefaultTTL = 15 * time.Minute

	issuer   = "gatepass"
	audience = "gatepass-operator"
)

// Claims carries the operator identity inside the JWT.
type Claims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// Service signs and validates operator tokens with a process-wide HS256 key.
type Service struct {
	signingKey []byte
	ttl        time.Duration
}

// NewService creates the operator token service. The key is configuration;
// an empty key disables operator endpoints at startup rather than at runtime.
func NewService(signingKey string, ttl time.Duration) (*Service, error) {
	if signingKey == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "operator signing key is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{signingKey: []byte(signingKey), ttl: ttl}, nil
}

// Generate issues a token naming the operator.
func (s *Service) Generate(ctx context.Context, operator string) (string, error) {
	if operator == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "operator name is required")
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate token id")
	}
	now := requesttime.Now(ctx)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Audience:  []string{audience},
			ID:        hex.EncodeToString(b),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign operator token")
	}
	return signed, nil
}

// Validate parses and verifies a token, returning its claims.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing operator token")
	}

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing algorithm")
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "operator token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid operator token")
	}
	if !token.Valid || claims.Operator == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid operator token")
	}
	return claims, nil
}
