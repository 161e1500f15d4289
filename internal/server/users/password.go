package users

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLen = 6
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordLen = 72
)

// dummyHash is compared against when the subject is unknown, so the response
// time does not reveal whether the subject exists.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("tokenkeeper-dummy"), bcrypt.DefaultCost)
	return h
})

// checkPassword compares password against u, treating a nil u as unknown.
func checkPassword(u *User, password string) error {
	if u == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return common.ErrorUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil || u.Disabled {
		return common.ErrorUnauthorized
	}
	return nil
}

// validateCredentials rejects what Register must never store.
func validateCredentials(subject, password string) error {
	switch {
	case strings.TrimSpace(subject) == "" || subject != strings.TrimSpace(subject):
		return fmt.Errorf("%w: subject must be non-empty without surrounding spaces", common.ErrorInvalidArgument)
	case len(password) < MinPasswordLen:
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorInvalidArgument, MinPasswordLen)
	case len(password) > MaxPasswordLen:
		return fmt.Errorf("%w: password must be at most %d bytes", common.ErrorInvalidArgument, MaxPasswordLen)
	}
	return nil
}

// HashPassword returns the bcrypt hash stored in a users file.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
