package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token_id, subject, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, token.TokenID, token.Subject, token.ExpiresAt, token.Revoked, token.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", common.ErrDuplicateTokenID, token.TokenID)
		}
		return storeError("error performing sql request", err)
	}
	return nil
}

func (r *PostgresRepository) FindByTokenID(ctx context.Context, id string) (*models.RefreshToken, error) {
	query := `
		SELECT token_id, subject, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE token_id = $1
	`
	t := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.TokenID, &t.Subject, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, storeError("db error", err)
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE token_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return storeError("db error", err)
	}
	return nil
}

func (r *PostgresRepository) Rotate(ctx context.Context, oldID string, next *models.RefreshToken) error {
	return dbx.RunInTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewPostgresRepository(tx)
		if err := repo.revokeActive(ctx, oldID); err != nil {
			return err
		}
		return repo.Insert(ctx, next)
	})
}

// revokeActive is the compare-and-set half of Rotate. Under concurrent
// updates of the same row Postgres re-evaluates the WHERE clause after the
// first writer commits, so only one caller sees a row affected.
func (r *PostgresRepository) revokeActive(ctx context.Context, id string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE token_id = $1 AND revoked = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return storeError("db error", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeError("db error", err)
	}
	if n == 1 {
		return nil
	}

	if _, err := r.FindByTokenID(ctx, id); err != nil {
		return err
	}
	return common.ErrTokenRevoked
}

func (r *PostgresRepository) RevokeAllForSubject(ctx context.Context, subject string, now time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE subject = $1 AND revoked = FALSE AND expires_at > $2
	`
	res, err := r.db.ExecContext(ctx, query, subject, now)
	if err != nil {
		return 0, storeError("db error", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeError("db error", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// sqlite, used by tests and local runs
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func storeError(msg string, err error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrStoreUnavailable, msg, err)
}
