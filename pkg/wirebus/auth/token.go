package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Errors returned by token verification.
var (
	// ErrTokenExpired indicates the token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidSignature indicates the signature did not verify.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrMalformedToken indicates the token could not be parsed.
	ErrMalformedToken = errors.New("malformed token")

	// ErrTokenRevoked indicates the token was revoked in the store.
	ErrTokenRevoked = errors.New("token revoked")
)

// claims is the signed JWT payload: a capability bitmask plus the standard
// subject/issued-at/expiry fields.
type claims struct {
	Caps uint32 `json:"caps"`
	jwt.RegisteredClaims
}

// Token is a verified capability token.
type Token struct {
	// ID is the unique token identifier (jti claim).
	ID string

	// Subject identifies the holder, if set.
	Subject string

	// Caps is the granted capability set.
	Caps CapabilitySet

	// IssuedAt and ExpiresAt bound the token's validity.
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Raw is the signed compact encoding.
	Raw string
}

// Has reports whether the token grants c.
func (t *Token) Has(c Capability) bool {
	return t.Caps.Has(c)
}

// Hash returns the hex SHA-256 of the raw token, used as the store key so
// raw tokens never touch disk.
func (t *Token) Hash() string {
	return HashToken(t.Raw)
}

// HashToken returns the hex SHA-256 of a raw token string.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Issue creates a signed token granting caps for ttl, optionally bound to a
// subject identifier.
func Issue(caps CapabilitySet, ttl time.Duration, secret []byte, subject string) (*Token, error) {
	now := time.Now()
	id := uuid.NewString()

	c := claims{
		Caps: uint32(caps),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Token{
		ID:        id,
		Subject:   subject,
		Caps:      caps,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		Raw:       raw,
	}, nil
}

// Verify parses raw and checks its signature and expiry.
func Verify(raw string, secret []byte) (*Token, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	switch {
	case err == nil && tok.Valid:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	default:
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	t := &Token{
		ID:      c.ID,
		Subject: c.Subject,
		Caps:    CapabilitySet(c.Caps),
		Raw:     raw,
	}
	if c.IssuedAt != nil {
		t.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		t.ExpiresAt = c.ExpiresAt.Time
	}
	return t, nil
}
