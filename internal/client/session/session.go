// Package session keeps the CLI's token pair on disk between invocations.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/filex"
)

type fileData struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Store is a session file. The file is written with owner-only permissions.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load returns the saved pair. A missing file yields empty tokens.
func (s *Store) Load() (client.Tokens, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return client.Tokens{}, nil
	}
	if err != nil {
		return client.Tokens{}, fmt.Errorf("read session: %w", err)
	}

	var d fileData
	if err := json.Unmarshal(b, &d); err != nil {
		return client.Tokens{}, fmt.Errorf("decode session %s: %w", s.path, err)
	}
	return client.Tokens{AccessToken: d.AccessToken, RefreshToken: d.RefreshToken}, nil
}

// Save replaces the file with t. Empty tokens remove the file.
func (s *Store) Save(t client.Tokens) error {
	if t == (client.Tokens{}) {
		return s.Clear()
	}

	b, err := json.Marshal(fileData{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken})
	if err != nil {
		return err
	}
	return filex.WritePrivateFile(s.path, b)
}

func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
