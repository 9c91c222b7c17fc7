// Package app wires the configured adapters into the core services for the
// CLI entrypoint.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dnsbridge/internal/adapters/accountrepo"
	"dnsbridge/internal/adapters/boltdb"
	"dnsbridge/internal/adapters/cache"
	"dnsbridge/internal/adapters/credstore"
	"dnsbridge/internal/config"
	"dnsbridge/internal/core/ports"
	"dnsbridge/internal/core/services"
	"dnsbridge/internal/provider"
	"dnsbridge/internal/provider/transport"
	"dnsbridge/internal/registry"
)

// App holds the wired services and the resources that need closing.
type App struct {
	Log *slog.Logger

	Accounts  ports.AccountService
	Records   ports.RecordService
	Bootstrap ports.BootstrapService
	Migration ports.MigrationService
	Transfer  ports.TransferService

	closers []func() error
}

// New builds the full service graph from configuration.
func New(cfg *config.Config, version string) (*App, error) {
	a := &App{Log: newLogger(cfg.Logging)}

	repo, store, err := a.openStorage(cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}

	domainCache, err := a.openCache(cfg.Cache)
	if err != nil {
		a.Close()
		return nil, err
	}

	reg := registry.New()
	httpClient := transport.NewClient(a.Log)
	if cfg.HTTP.MaxAttempts > 0 {
		httpClient.MaxAttempts = cfg.HTTP.MaxAttempts
	}
	factory := provider.NewFactory(provider.Options{
		Logger:      a.Log,
		HTTP:        httpClient,
		DomainCache: domainCache,
	})

	creds := services.NewCredentialService(store, reg, factory, a.Log)
	migration := services.NewMigrationService(store, repo, a.Log)
	accounts := services.NewAccountService(repo, creds, a.Log)

	a.Accounts = accounts
	a.Records = services.NewRecordService(reg, repo, a.Log)
	a.Bootstrap = services.NewBootstrapService(repo, store, reg, factory, migration, a.Log)
	a.Migration = migration
	a.Transfer = services.NewTransferService(repo, store, accounts, version, a.Log)
	return a, nil
}

// RestoreProviders rebuilds the provider registry; commands touching zones or
// records call this before dispatching.
func (a *App) RestoreProviders(ctx context.Context) error {
	_, err := a.Bootstrap.Restore(ctx)
	return err
}

// Close releases storage and cache handles in reverse open order.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *App) openStorage(cfg config.StorageConfig) (ports.AccountRepository, ports.CredentialStore, error) {
	switch cfg.Backend {
	case "bolt":
		db, err := boltdb.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, db.Close)

		repo, err := accountrepo.NewBoltRepository(db)
		if err != nil {
			return nil, nil, err
		}
		store, err := credstore.NewBoltStore(db)
		if err != nil {
			return nil, nil, err
		}
		return repo, store, nil

	case "postgres":
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		repo := accountrepo.NewPostgresRepository(db)
		store := credstore.NewPostgresStore(db, cfg.StorePassword)
		ctx := context.Background()
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		return repo, store, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

func (a *App) openCache(cfg config.CacheConfig) (ports.DomainCache, error) {
	switch cfg.Backend {
	case "memory":
		return cache.NewMemoryCache(), nil
	case "redis":
		r := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		a.closers = append(a.closers, r.Close)
		return r, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
