// Package server wires the token service together: configuration, the
// refresh token store, the users directory, the JWT codec and the gRPC
// endpoint. It also owns graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/auth"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/config"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/services"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/users"
	"github.com/dmitrijs2005/tokenkeeper/internal/timex"

	gs "github.com/dmitrijs2005/tokenkeeper/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  repomanager.RepositoryManager
	server *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clock := timex.SystemClock{}
	codec, err := auth.NewCodec([]byte(c.SecretKey), c.SigningAlgorithm, clock, c.Leeway)
	if err != nil {
		return nil, fmt.Errorf("codec: %w", err)
	}

	store, err := repomanager.New(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}
	if err := store.RunMigrations(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	dir, err := newDirectory(ctx, c, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("users: %w", err)
	}

	tokens := services.NewTokenService(store.RefreshTokens(), codec, dir, c, clock, logger)
	server := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, tokens)

	logger.Info(ctx, "app initialized",
		"store", c.StoreBackend,
		"alg", codec.Algorithm(),
	)

	return &App{config: c, logger: logger, store: store, server: server}, nil
}

// newDirectory keeps accounts in the store when it can hold them, seeding it
// from the users file if one exists. Other stores serve the users file from
// memory, and registrations there last until restart.
func newDirectory(ctx context.Context, c *config.Config, store repomanager.RepositoryManager, logger logging.Logger) (users.Directory, error) {
	us, ok := store.(repomanager.UserStore)
	if !ok {
		dir, err := users.LoadFile(c.UsersFile)
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "users loaded", "source", c.UsersFile, "count", dir.Len())
		return dir, nil
	}

	dir := users.NewAccountDirectory(us.Users())
	if c.UsersFile == "" {
		return dir, nil
	}
	list, err := users.ReadFile(c.UsersFile)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info(ctx, "no users file to import", "source", c.UsersFile)
		return dir, nil
	}
	if err != nil {
		return nil, err
	}
	n, err := dir.Import(ctx, list)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "users imported", "source", c.UsersFile, "added", n)
	return dir, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the store.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	stop := app.initSignalHandler(cancelFunc)
	defer stop()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddrGRPC)

	err := app.server.Run(ctx)
	if err != nil {
		app.logger.Error(ctx, "grpc server stopped", "error", err)
	}

	if cerr := app.store.Close(); cerr != nil {
		app.logger.Error(context.Background(), "store close", "error", cerr)
		if err == nil {
			err = cerr
		}
	}

	app.logger.Info(context.Background(), "app stopped")
	return err
}
