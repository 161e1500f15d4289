// Package services contains server-side business logic. This file implements
// TokenService, which issues, rotates, revokes and checks tokens on top of
// the token codec and the refresh token store.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/auth"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/config"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/users"
	"github.com/dmitrijs2005/tokenkeeper/internal/timex"
	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService is safe for concurrent use. All shared state lives in the
// repository; Rotate relies on Repository.Rotate being atomic.
//
// Errors returned are common.ErrInvalidToken, common.ErrTokenExpired,
// common.ErrTokenRevoked, common.ErrorUnauthorized, common.ErrorAlreadyExists,
// or errors wrapping common.ErrorInvalidArgument,
// common.ErrDuplicateTokenID, common.ErrStoreUnavailable or common.ErrorInternal.
type TokenService struct {
	repo         refreshtokens.Repository
	codec        *auth.Codec
	users        users.Directory
	clock        timex.Clock
	logger       logging.Logger
	accessTTL    time.Duration
	refreshTTL   time.Duration
	storeTimeout time.Duration
	newID        func() string
}

// NewTokenService constructs a TokenService. codec must share clock.
func NewTokenService(
	repo refreshtokens.Repository,
	codec *auth.Codec,
	dir users.Directory,
	cfg *config.Config,
	clock timex.Clock,
	logger logging.Logger,
) *TokenService {
	if clock == nil {
		clock = timex.SystemClock{}
	}
	return &TokenService{
		repo:         repo,
		codec:        codec,
		users:        dir,
		clock:        clock,
		logger:       logger,
		accessTTL:    cfg.AccessTokenValidityDuration,
		refreshTTL:   cfg.RefreshTokenValidityDuration,
		storeTimeout: cfg.StoreTimeout,
		newID:        uuid.NewString,
	}
}

// Login verifies credentials with the users directory and issues a pair.
func (s *TokenService) Login(ctx context.Context, subject, password string) (*TokenPair, error) {
	if err := s.users.Verify(ctx, subject, password); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.logger.Warn(ctx, "login rejected", "subject", subject)
			return nil, common.ErrorUnauthorized
		}
		return nil, s.directoryFailure(ctx, "verify", err)
	}
	return s.IssuePair(ctx, subject)
}

// Register adds subject to the users directory. It does not log the subject in.
func (s *TokenService) Register(ctx context.Context, subject, password string) error {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	err := s.users.Register(ctx, subject, password)
	switch {
	case err == nil:
		s.logger.Info(ctx, "subject registered", "subject", subject)
		return nil
	case errors.Is(err, common.ErrorInvalidArgument):
		return err
	case errors.Is(err, common.ErrorAlreadyExists):
		s.logger.Warn(ctx, "registration rejected", "reason", "subject taken", "subject", subject)
		return common.ErrorAlreadyExists
	default:
		return s.directoryFailure(ctx, "register", err)
	}
}

// IssuePair mints an access token and a refresh token for subject and
// persists the refresh token record.
func (s *TokenService) IssuePair(ctx context.Context, subject string) (*TokenPair, error) {
	if subject == "" {
		return nil, fmt.Errorf("%w: empty subject", common.ErrorInternal)
	}

	pair, record, err := s.mint(subject)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, s.storeFailure(ctx, "insert", record.TokenID, err)
	}
	return pair, nil
}

// Rotate exchanges a refresh token for a new pair. A refresh token is
// accepted at most once, however many callers present it concurrently.
//
// If ctx ends after the store committed the rotation the new pair is lost,
// but the presented token stays revoked.
func (s *TokenService) Rotate(ctx context.Context, presented string) (*TokenPair, error) {
	claims, err := s.codec.DecodeRefresh(presented)
	if err != nil {
		return nil, s.rejectDecode(ctx, "rotate", err)
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	record, err := s.repo.FindByTokenID(ctx, claims.TokenID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "refresh rejected", "reason", "unknown token id", "jti", claims.TokenID)
			return nil, common.ErrInvalidToken
		}
		return nil, s.storeFailure(ctx, "find", claims.TokenID, err)
	}
	// An unknown id and a foreign subject look the same from outside.
	if record.Subject != claims.Subject {
		s.logger.Warn(ctx, "refresh rejected", "reason", "subject mismatch", "jti", claims.TokenID)
		return nil, common.ErrInvalidToken
	}
	if record.Revoked {
		s.logger.Warn(ctx, "refresh rejected", "reason", "revoked", "jti", claims.TokenID, "subject", record.Subject)
		return nil, common.ErrTokenRevoked
	}
	if !s.clock.Now().Before(record.ExpiresAt) {
		s.logger.Warn(ctx, "refresh rejected", "reason", "record expired", "jti", claims.TokenID)
		return nil, common.ErrTokenExpired
	}
	if err := s.users.Active(ctx, record.Subject); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.logger.Warn(ctx, "refresh rejected", "reason", "subject inactive", "jti", claims.TokenID, "subject", record.Subject)
			return nil, common.ErrInvalidToken
		}
		return nil, s.directoryFailure(ctx, "active", err)
	}

	pair, next, err := s.mint(record.Subject)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Rotate(ctx, claims.TokenID, next); err != nil {
		switch {
		case errors.Is(err, common.ErrTokenRevoked):
			s.logger.Warn(ctx, "refresh rejected", "reason", "lost rotation race", "jti", claims.TokenID)
			return nil, common.ErrTokenRevoked
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrInvalidToken
		default:
			return nil, s.storeFailure(ctx, "rotate", claims.TokenID, err)
		}
	}

	s.logger.Debug(ctx, "refresh token rotated", "jti", claims.TokenID, "next", next.TokenID)
	return pair, nil
}

// Revoke marks a refresh token unusable. Revoking an already revoked,
// expired or never issued token succeeds; a token that is not ours does not.
func (s *TokenService) Revoke(ctx context.Context, presented string) error {
	claims, err := s.codec.DecodeRefreshIgnoreExpiry(presented)
	if err != nil {
		return s.rejectDecode(ctx, "revoke", err)
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.repo.Revoke(ctx, claims.TokenID); err != nil {
		return s.storeFailure(ctx, "revoke", claims.TokenID, err)
	}
	return nil
}

// RevokeAll revokes every live refresh token of subject and reports how many.
func (s *TokenService) RevokeAll(ctx context.Context, subject string) (int64, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	n, err := s.repo.RevokeAllForSubject(ctx, subject, s.clock.Now())
	if err != nil {
		return 0, s.storeFailure(ctx, "revoke all", "", err)
	}
	s.logger.Info(ctx, "refresh tokens revoked", "subject", subject, "count", n)
	return n, nil
}

// Authenticate checks an access token and returns its subject. Access tokens
// are stateless: they stay valid until they expire, even after logout.
func (s *TokenService) Authenticate(ctx context.Context, presented string) (string, error) {
	claims, err := s.codec.DecodeAccess(presented)
	if err != nil {
		return "", s.rejectDecode(ctx, "authenticate", err)
	}
	return claims.Subject, nil
}

// Authorize is Authenticate plus a check that the subject is still allowed
// to log in, so disabling a subject takes effect before its access tokens
// expire.
func (s *TokenService) Authorize(ctx context.Context, presented string) (string, error) {
	subject, err := s.Authenticate(ctx, presented)
	if err != nil {
		return "", err
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.users.Active(ctx, subject); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.logger.Warn(ctx, "token rejected", "op", "authorize", "reason", "subject inactive", "subject", subject)
			return "", common.ErrInvalidToken
		}
		return "", s.directoryFailure(ctx, "active", err)
	}
	return subject, nil
}

// mint encodes a new pair and the record for its refresh token. Times are
// whole seconds so the record agrees exactly with the encoded exp.
func (s *TokenService) mint(subject string) (*TokenPair, *models.RefreshToken, error) {
	now := s.clock.Now().UTC().Truncate(time.Second)

	access, err := s.codec.EncodeAccess(auth.AccessClaims{
		Subject:   subject,
		ExpiresAt: now.Add(s.accessTTL),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	record := &models.RefreshToken{
		TokenID:   s.newID(),
		Subject:   subject,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	refresh, err := s.codec.EncodeRefresh(auth.RefreshClaims{
		Subject:   record.Subject,
		ExpiresAt: record.ExpiresAt,
		TokenID:   record.TokenID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, record, nil
}

func (s *TokenService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// rejectDecode logs which check failed and returns the caller-facing error.
// Only expiry of an authentic token is reported as such.
func (s *TokenService) rejectDecode(ctx context.Context, op string, err error) error {
	reason := "malformed"
	switch {
	case errors.Is(err, auth.ErrExpired):
		reason = "expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		reason = "signature"
	case errors.Is(err, common.ErrClockSkewSuspected):
		reason = "issued in the future"
	}
	s.logger.Warn(ctx, "token rejected", "op", op, "reason", reason)

	if errors.Is(err, common.ErrTokenExpired) {
		return common.ErrTokenExpired
	}
	return common.ErrInvalidToken
}

func (s *TokenService) directoryFailure(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, "users directory failure", "op", op, "error", err)
	if errors.Is(err, common.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: users %s: %v", common.ErrStoreUnavailable, op, err)
}

func (s *TokenService) storeFailure(ctx context.Context, op, jti string, err error) error {
	if errors.Is(err, common.ErrDuplicateTokenID) {
		s.logger.Error(ctx, "refresh token id collision", "op", op, "jti", jti)
		return err
	}
	s.logger.Error(ctx, "refresh token store failure", "op", op, "jti", jti, "error", err)
	if errors.Is(err, common.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", common.ErrStoreUnavailable, op, err)
}
