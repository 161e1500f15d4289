// Package auth encodes and decodes the signed tokens handed to clients.
// It is the only place that touches signing keys.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/timex"
	"github.com/golang-jwt/jwt/v5"
)

// Decode failure kinds. They are distinguishable for logging but Malformed and
// InvalidSignature both match common.ErrInvalidToken, so callers that only
// check the common errors cannot tell them apart. Expired matches
// common.ErrTokenExpired and is only reported for authentic tokens.
var (
	ErrMalformed        = fmt.Errorf("%w: malformed", common.ErrInvalidToken)
	ErrInvalidSignature = fmt.Errorf("%w: signature", common.ErrInvalidToken)
	ErrExpired          = fmt.Errorf("%w: exp", common.ErrTokenExpired)
	ErrIssuedInFuture   = fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrClockSkewSuspected)
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// AccessClaims is what an access token asserts. It is never persisted.
type AccessClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// RefreshClaims is what a refresh token asserts. TokenID mirrors the
// server-side record.
type RefreshClaims struct {
	Subject   string
	ExpiresAt time.Time
	TokenID   string
}

// Claims is the JWT payload of both token kinds.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
}

// Codec signs and verifies tokens with a single symmetric secret under a single
// algorithm fixed at construction. It holds no mutable state.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	clock  timex.Clock
	leeway time.Duration
	parser *jwt.Parser
	// lenient skips claim validation; used only where an expired token is still acceptable.
	lenient *jwt.Parser
}

// NewCodec builds a Codec for algorithm ("HS256", "HS384" or "HS512").
// leeway bounds how far in the future a token's iat may be.
func NewCodec(secret []byte, algorithm string, clock timex.Clock, leeway time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty signing secret")
	}
	method, err := signingMethod(algorithm)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = timex.SystemClock{}
	}

	c := &Codec{secret: secret, method: method, clock: clock, leeway: leeway}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(clock.Now),
	)
	c.lenient = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	return c, nil
}

func signingMethod(algorithm string) (jwt.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(algorithm)) {
	case "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
}

// Algorithm returns the JWT "alg" this codec signs with and accepts.
func (c *Codec) Algorithm() string { return c.method.Alg() }

func (c *Codec) EncodeAccess(claims AccessClaims) (string, error) {
	return c.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(c.clock.Now()),
		},
		Type: typeAccess,
	})
}

func (c *Codec) EncodeRefresh(claims RefreshClaims) (string, error) {
	if claims.TokenID == "" {
		return "", errors.New("refresh token requires a token id")
	}
	return c.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(c.clock.Now()),
			ID:        claims.TokenID,
		},
		Type: typeRefresh,
	})
}

func (c *Codec) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(c.method, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// DecodeAccess verifies an access token and returns its claims.
func (c *Codec) DecodeAccess(token string) (AccessClaims, error) {
	claims, err := c.decode(c.parser, token, typeAccess)
	if err != nil {
		return AccessClaims{}, err
	}
	return AccessClaims{Subject: claims.Subject, ExpiresAt: claims.ExpiresAt.Time.UTC()}, nil
}

// DecodeRefresh verifies a refresh token and returns its claims.
func (c *Codec) DecodeRefresh(token string) (RefreshClaims, error) {
	return c.decodeRefresh(c.parser, token)
}

// DecodeRefreshIgnoreExpiry is DecodeRefresh for callers that act on a token
// id even after expiry, such as logout. The signature is still verified.
func (c *Codec) DecodeRefreshIgnoreExpiry(token string) (RefreshClaims, error) {
	return c.decodeRefresh(c.lenient, token)
}

func (c *Codec) decodeRefresh(parser *jwt.Parser, token string) (RefreshClaims, error) {
	claims, err := c.decode(parser, token, typeRefresh)
	if err != nil {
		return RefreshClaims{}, err
	}
	if claims.ID == "" {
		return RefreshClaims{}, ErrMalformed
	}
	return RefreshClaims{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		TokenID:   claims.ID,
	}, nil
}

func (c *Codec) decode(parser *jwt.Parser, raw string, wantType string) (*Claims, error) {
	claims := &Claims{}
	_, err := parser.ParseWithClaims(Normalize(raw), claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if claims.Type != wantType || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}
	if claims.IssuedAt != nil && claims.IssuedAt.After(c.clock.Now().Add(c.leeway)) {
		return nil, ErrIssuedInFuture
	}
	return claims, nil
}

// classify folds jwt library errors into the codec's kinds. The library
// verifies the signature before it looks at exp, so ErrExpired is only ever
// returned for tokens we signed.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	default:
		return ErrMalformed
	}
}

// Normalize strips surrounding whitespace and a leading, case-insensitive
// "Bearer" scheme from a presented token. Encoded tokens never need it.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	const scheme = "bearer"
	if len(s) >= len(scheme) && strings.EqualFold(s[:len(scheme)], scheme) {
		s = strings.TrimSpace(s[len(scheme):])
	}
	return s
}
