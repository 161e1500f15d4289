package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) error {
	query :=
		`INSERT INTO users (subject, password_hash, disabled, created_at)
		 VALUES ($1, $2, $3, $4)
		 `

	_, err := r.db.ExecContext(ctx, query, user.Subject, user.PasswordHash, user.Disabled, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, user.Subject)
		}
		return fmt.Errorf("%w: db error: %v", common.ErrStoreUnavailable, err)
	}

	return nil
}

func (r *PostgresRepository) GetBySubject(ctx context.Context, subject string) (*models.User, error) {
	query :=
		`SELECT subject, password_hash, disabled, created_at FROM users
		 WHERE subject = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, subject).Scan(&user.Subject, &user.PasswordHash, &user.Disabled, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: db error: %v", common.ErrStoreUnavailable, err)
	}
	user.CreatedAt = user.CreatedAt.UTC()

	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
