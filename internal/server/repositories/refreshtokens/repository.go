// Package refreshtokens declares the server-side store of refresh token
// records and its PostgreSQL, Redis and in-memory implementations.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
)

// Repository persists refresh token records keyed by token id.
//
// Errors: common.ErrorNotFound for absent records, common.ErrDuplicateTokenID
// when an id already exists, common.ErrTokenRevoked when Rotate loses the
// compare-and-set, and anything else wraps common.ErrStoreUnavailable.
type Repository interface {
	// Insert stores a new record. The token id must not exist yet.
	Insert(ctx context.Context, token *models.RefreshToken) error

	// FindByTokenID returns the record for id.
	FindByTokenID(ctx context.Context, id string) (*models.RefreshToken, error)

	// Revoke marks id revoked. Revoking an absent or already revoked id succeeds.
	Revoke(ctx context.Context, id string) error

	// Rotate marks oldID revoked only if it is currently not revoked, and
	// inserts next, as one atomic unit. If either step fails nothing changes.
	Rotate(ctx context.Context, oldID string, next *models.RefreshToken) error

	// RevokeAllForSubject revokes every record of subject that is neither
	// revoked nor expired at now, returning how many were revoked.
	RevokeAllForSubject(ctx context.Context, subject string, now time.Time) (int64, error)
}
