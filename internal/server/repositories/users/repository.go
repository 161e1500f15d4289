package users

import (
	"context"

	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
)

// Repository persists registered accounts. Create reports
// common.ErrorAlreadyExists for a taken subject; GetBySubject reports
// common.ErrorNotFound for an unknown one.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetBySubject(ctx context.Context, subject string) (*models.User, error)
}
