package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	userrepo "github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/users"
)

// AccountDirectory is a Directory backed by the users table.
type AccountDirectory struct {
	repo userrepo.Repository
	now  func() time.Time
}

func NewAccountDirectory(repo userrepo.Repository) *AccountDirectory {
	return &AccountDirectory{repo: repo, now: time.Now}
}

func (d *AccountDirectory) get(ctx context.Context, subject string) (*User, error) {
	u, err := d.repo.GetBySubject(ctx, subject)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return u, err
}

func (d *AccountDirectory) Verify(ctx context.Context, subject, password string) error {
	u, err := d.get(ctx, subject)
	if err != nil {
		return err
	}
	return checkPassword(u, password)
}

func (d *AccountDirectory) Active(ctx context.Context, subject string) error {
	u, err := d.get(ctx, subject)
	if err != nil {
		return err
	}
	if u == nil || u.Disabled {
		return common.ErrorUnauthorized
	}
	return nil
}

func (d *AccountDirectory) Register(ctx context.Context, subject, password string) error {
	if err := validateCredentials(subject, password); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return d.repo.Create(ctx, &models.User{
		Subject:      subject,
		PasswordHash: hash,
		CreatedAt:    d.now().UTC(),
	})
}

// Import stores the users that are not registered yet and reports how many
// were added. Existing accounts are left untouched.
func (d *AccountDirectory) Import(ctx context.Context, list []User) (int, error) {
	added := 0
	for _, u := range list {
		if u.CreatedAt.IsZero() {
			u.CreatedAt = d.now().UTC()
		}
		err := d.repo.Create(ctx, &u)
		switch {
		case err == nil:
			added++
		case errors.Is(err, common.ErrorAlreadyExists):
		default:
			return added, fmt.Errorf("import %q: %w", u.Subject, err)
		}
	}
	return added, nil
}
