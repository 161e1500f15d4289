package users

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// StaticDirectory is an in-memory Directory seeded from a users file.
// Registered subjects live only as long as the process.
type StaticDirectory struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewStaticDirectory indexes users by subject. Later duplicates win.
func NewStaticDirectory(users []User) *StaticDirectory {
	d := &StaticDirectory{users: make(map[string]User, len(users))}
	for _, u := range users {
		d.users[u.Subject] = u
	}
	return d
}

// LoadFile reads a JSON array of users from path.
func LoadFile(path string) (*StaticDirectory, error) {
	list, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewStaticDirectory(list), nil
}

// ReadFile parses a users file and checks every entry carries a subject and
// a bcrypt hash.
func ReadFile(path string) ([]User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var list []User
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", path, err)
	}
	for i, u := range list {
		if u.Subject == "" {
			return nil, fmt.Errorf("users file %s: entry %d has no subject", path, i)
		}
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return nil, fmt.Errorf("users file %s: subject %q: %w", path, u.Subject, err)
		}
	}
	return list, nil
}

// Len returns how many subjects the directory knows.
func (d *StaticDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

func (d *StaticDirectory) lookup(subject string) *User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[subject]
	if !ok {
		return nil
	}
	return &u
}

func (d *StaticDirectory) Verify(_ context.Context, subject, password string) error {
	return checkPassword(d.lookup(subject), password)
}

func (d *StaticDirectory) Active(_ context.Context, subject string) error {
	u := d.lookup(subject)
	if u == nil || u.Disabled {
		return common.ErrorUnauthorized
	}
	return nil
}

func (d *StaticDirectory) Register(_ context.Context, subject, password string) error {
	if err := validateCredentials(subject, password); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[subject]; ok {
		return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, subject)
	}
	d.users[subject] = User{Subject: subject, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	return nil
}

// Disable marks subject disabled. It reports whether the subject was known.
func (d *StaticDirectory) Disable(subject string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[subject]
	if !ok {
		return false
	}
	u.Disabled = true
	d.users[subject] = u
	return true
}
