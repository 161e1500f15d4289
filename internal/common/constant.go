// Package common contains shared constants and sentinel errors used across
// tokenkeeper components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound and outbound requests.
const AccessTokenHeaderName = "authorization"

// TokenTypeBearer is the token type reported to clients alongside a token pair.
const TokenTypeBearer = "bearer"
