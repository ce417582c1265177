package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource yields the bearer token attached to outgoing ledger calls.
type TokenSource interface {
	Token() (string, error)
}

// staticTokenSource holds a token from configuration. When the token is
// a JWT its expiry is checked locally before every use, so an expired
// credential fails fast instead of burning a round trip on a 401.
type staticTokenSource struct {
	raw    string
	claims jwt.MapClaims
}

func NewStaticTokenSource(raw string) TokenSource {
	src := &staticTokenSource{raw: raw}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err == nil {
		src.claims = claims
	}
	// Not a JWT: treat as an opaque credential and send it as-is.
	return src
}

func (s *staticTokenSource) Token() (string, error) {
	if s.claims != nil {
		exp, err := s.claims.GetExpirationTime()
		if err == nil && exp != nil && exp.Before(time.Now()) {
			return "", fmt.Errorf("configured bearer token expired at %s", exp.Format(time.RFC3339))
		}
	}
	return s.raw, nil
}

// NewIdempotencyKey returns 32 hex characters, unique per payment
// submission attempt.
func NewIdempotencyKey() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
