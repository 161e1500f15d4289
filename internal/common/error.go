// Package common defines shared constants and sentinel errors used across
// the server, transport and client layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal        = errors.New("internal error")
	ErrorUnauthorized    = errors.New("unauthorized")
	ErrorInvalidArgument = errors.New("invalid argument")

	// Token errors. ErrInvalidToken deliberately covers malformed tokens,
	// bad signatures, foreign algorithms and unknown token ids alike.
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrClockSkewSuspected = errors.New("clock skew suspected")

	// Store errors. ErrDuplicateTokenID is an integrity fault and must not be retried;
	// ErrStoreUnavailable is transient and the whole operation may be retried.
	ErrDuplicateTokenID = errors.New("duplicate token id")
	ErrStoreUnavailable = errors.New("store unavailable")
)
