// Package client is the gRPC client of the token service.
//
// GRPCClient keeps the current access and refresh token in memory and
// attaches the access token to every call. When the server answers a call
// with Unauthenticated "token expired", the client rotates its refresh token
// once and retries the call with the new access token. Callers that persist
// tokens read them back with Tokens after each call.
//
// Transport errors are mapped to ErrUnauthorized and ErrUnavailable so the
// CLI can react without inspecting gRPC status codes.
package client
