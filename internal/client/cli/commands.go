package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/users"
)

// Register creates an account on the server. The session is left as is.
func (a *App) Register(ctx context.Context) error {
	subject, err := GetSimpleText(a.reader, "Subject", a.out)
	if err != nil {
		return err
	}
	if subject == "" {
		return errors.New("subject is required")
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	confirm, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(confirm)
	if !bytes.Equal(password, confirm) {
		return errors.New("passwords do not match")
	}

	err = a.call(ctx, func(ctx context.Context) error {
		return a.client.Register(ctx, subject, string(password))
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Registered", subject)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	subject, err := GetSimpleText(a.reader, "Subject", a.out)
	if err != nil {
		return err
	}
	if subject == "" {
		return errors.New("subject is required")
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	err = a.call(ctx, func(ctx context.Context) error {
		return a.client.Login(ctx, subject, string(password))
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Logged in as", subject)
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	if !a.isLoggedIn() {
		return client.ErrNotLoggedIn
	}

	var subject string
	err := a.call(ctx, func(ctx context.Context) error {
		var err error
		subject, err = a.client.WhoAmI(ctx)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, subject)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.call(ctx, a.client.Refresh); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Tokens rotated")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.call(ctx, a.client.Logout); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) LogoutAll(ctx context.Context) error {
	if !a.isLoggedIn() {
		return client.ErrNotLoggedIn
	}

	var n int64
	err := a.call(ctx, func(ctx context.Context) error {
		var err error
		n, err = a.client.LogoutAll(ctx)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Revoked %d session(s)\n", n)
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	if err := a.call(ctx, a.client.Ping); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "OK")
	return nil
}

// HashPassword prints the bcrypt hash of a password for the server's users file.
func (a *App) HashPassword(ctx context.Context) error {
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	h, err := users.HashPassword(string(password))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, h)
	return nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
