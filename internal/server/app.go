// Package server wires storage, sessions and services together and runs
// the identity gRPC service next to the catalog HTTP API.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/equiplookup/internal/logging"
	"github.com/dmitrijs2005/equiplookup/internal/server/config"
	"github.com/dmitrijs2005/equiplookup/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/equiplookup/internal/server/services"
	"github.com/dmitrijs2005/equiplookup/internal/server/sessions"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/equiplookup/internal/server/grpc"
	hs "github.com/dmitrijs2005/equiplookup/internal/server/http"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    repomanager.RepositoryManager
	redis    *redis.Client
	identity *services.IdentityService
	catalog  *services.CatalogService
	out      io.Writer
}

// NewApp opens storage and builds the services. An empty DSN selects the
// in-memory store; an empty redis address selects in-process sessions.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogFormat, c.LogLevel, os.Stdout)

	var repos repomanager.RepositoryManager
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database DSN configured, using in-memory store")
		repos = repomanager.NewInMemoryRepositoryManager()
	} else {
		pg, err := repomanager.NewPostgresRepositoryManager(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		repos = pg
	}

	app := &App{config: c, logger: logger, repos: repos, out: os.Stdout}

	var store sessions.RevocationStore
	var broker sessions.Broker
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			_ = repos.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		store = sessions.NewRedisStore(app.redis)
		broker = sessions.NewRedisBroker(app.redis, logger)
	} else {
		store = sessions.NewMemoryStore()
		broker = sessions.NewMemoryBroker()
	}

	app.identity = services.NewIdentityService(repos, store, broker, c, logger)
	app.catalog = services.NewCatalogService(repos, services.NewImagePresigner(c, logger), logger)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// bootstrap migrates the schema and creates the first admin. The generated
// password is shown once.
func (app *App) bootstrap(ctx context.Context) error {
	if err := app.repos.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	password, created, err := app.identity.EnsureAdmin(ctx)
	if err != nil {
		return fmt.Errorf("admin bootstrap: %w", err)
	}
	if created {
		app.logger.Warn(ctx, "admin account created", "email", app.config.AdminEmail)
		fmt.Fprintf(app.out, "\nAdmin login: %s\nAdmin password: %s\nStore it now, it will not be shown again.\n\n", app.config.AdminEmail, password)
	}
	return nil
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.identity)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := hs.NewServer(app.config.EndpointAddrHTTP, app.config.ServicePath, app.catalog, app.identity, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	defer app.close(ctx)

	if err := app.bootstrap(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.logger.Info(ctx, "App stopped")
	return nil
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close failed", "error", err)
		}
	}
	if err := app.repos.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err)
	}
}
