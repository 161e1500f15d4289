package grpc

import (
	"errors"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Status messages. Every refresh token rejection shares one message so a
// caller cannot tell a forged token from a spent or expired one.
const (
	msgUnauthorized        = "unauthorized"
	msgSubjectTaken        = "subject already registered"
	msgInvalidRefreshToken = "invalid refresh token"
	msgInvalidToken        = "invalid token"
	msgTokenExpired        = "token expired"
	msgMissingToken        = "missing token"
	msgUnavailable         = "service unavailable"
	msgInternal            = "internal error"
)

// serverStatus maps faults that are not the caller's.
func serverStatus(err error) error {
	if errors.Is(err, common.ErrStoreUnavailable) {
		return status.Error(codes.Unavailable, msgUnavailable)
	}
	return status.Error(codes.Internal, msgInternal)
}

func loginStatus(err error) error {
	if errors.Is(err, common.ErrorUnauthorized) {
		return status.Error(codes.Unauthenticated, msgUnauthorized)
	}
	return serverStatus(err)
}

// registerStatus passes validation detail through; it only describes the
// caller's own input.
func registerStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrorInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, msgSubjectTaken)
	}
	return serverStatus(err)
}

func refreshStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenRevoked):
		return status.Error(codes.Unauthenticated, msgInvalidRefreshToken)
	}
	return serverStatus(err)
}

// accessStatus tells an expired access token apart so clients know to refresh.
func accessStatus(err error) error {
	switch {
	case err == nil:
		return status.Error(codes.Unauthenticated, msgMissingToken)
	case errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, msgTokenExpired)
	case errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, msgInvalidToken)
	}
	return serverStatus(err)
}
