package client

import (
	"context"
)

// Tokens is the pair a session holds.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

type Client interface {
	Close() error
	Register(ctx context.Context, subject, password string) error
	Login(ctx context.Context, subject, password string) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) (int64, error)
	WhoAmI(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
	Tokens() Tokens
	SetTokens(t Tokens)
}
