package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/config"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/session"
)

type App struct {
	config  *config.Config
	client  client.Client
	session *session.Store
	reader  *bufio.Reader
	out     io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewTokenKeeperClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}

	store := session.NewStore(c.SessionFile)
	tokens, err := store.Load()
	if err != nil {
		_ = apiClient.Close()
		return nil, err
	}
	apiClient.SetTokens(tokens)

	return newApp(c, apiClient, store, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, cl client.Client, store *session.Store, in io.Reader, out io.Writer) *App {
	return &App{config: c, client: cl, session: store, reader: bufio.NewReader(in), out: out}
}

// Run executes command when it is non-empty, otherwise starts the REPL.
func (a *App) Run(ctx context.Context, command string) error {
	defer a.client.Close()

	if command != "" {
		return runCommand(ctx, a, command)
	}

	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.client.Tokens().RefreshToken != ""
}

func (a *App) status() string {
	if a.isLoggedIn() {
		return "logged in"
	}
	return "logged out"
}

// call runs fn under the request timeout and saves whatever token pair the
// client holds afterwards, rotations made by the client included.
func (a *App) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.RequestTimeout)
		defer cancel()
	}

	err := fn(ctx)
	if serr := a.session.Save(a.client.Tokens()); serr != nil {
		fmt.Fprintln(a.out, "warning: session not saved:", serr)
	}
	return err
}
