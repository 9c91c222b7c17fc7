package services

import (
	"context"
	"fmt"
	"log/slog"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/core/ports"
)

type bootstrapService struct {
	repo      ports.AccountRepository
	store     ports.CredentialStore
	registry  ports.ProviderRegistry
	factory   ports.ProviderFactory
	migration ports.MigrationService
	logger    *slog.Logger
}

// NewBootstrapService returns the startup restorer that rebuilds the
// provider registry from persisted accounts and credentials. Restore is
// idempotent: a second run re-registers the same providers.
func NewBootstrapService(repo ports.AccountRepository, store ports.CredentialStore, registry ports.ProviderRegistry, factory ports.ProviderFactory, migration ports.MigrationService, logger *slog.Logger) ports.BootstrapService {
	return &bootstrapService{repo: repo, store: store, registry: registry, factory: factory, migration: migration, logger: logger}
}

func (s *bootstrapService) Restore(ctx context.Context) (*domain.RestoreResult, error) {
	accounts, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	creds, err := s.store.LoadAll(ctx)
	if domain.IsCode(err, domain.CodeMigrationRequired) {
		s.logger.Info("legacy credential format detected, migrating")
		if _, merr := s.migration.Migrate(ctx); merr != nil {
			return nil, merr
		}
		creds, err = s.store.LoadAll(ctx)
	}
	if err != nil {
		// The whole store is unreadable: every account is unusable.
		for _, a := range accounts {
			s.updateStatus(ctx, a.ID, domain.StatusError, err.Error())
		}
		return &domain.RestoreResult{ErrorCount: len(accounts)}, nil
	}

	result := &domain.RestoreResult{}
	for _, a := range accounts {
		c, ok := creds[a.ID]
		if !ok {
			s.updateStatus(ctx, a.ID, domain.StatusError, "credentials missing")
			result.ErrorCount++
			continue
		}
		if c.Provider != a.Provider {
			s.updateStatus(ctx, a.ID, domain.StatusError,
				fmt.Sprintf("credential format error: provider tag %q does not match account provider %q", c.Provider, a.Provider))
			result.ErrorCount++
			continue
		}

		p, err := s.factory(c)
		if err != nil {
			s.updateStatus(ctx, a.ID, domain.StatusError, err.Error())
			result.ErrorCount++
			continue
		}
		s.registry.Register(a.ID, p)
		s.updateStatus(ctx, a.ID, domain.StatusActive, "")
		result.SuccessCount++
	}

	s.logger.Info("bootstrap complete", "restored", result.SuccessCount, "errors", result.ErrorCount)
	return result, nil
}

// updateStatus is log-only on failure so one bad row never aborts the loop.
func (s *bootstrapService) updateStatus(ctx context.Context, id string, status domain.AccountStatus, msg string) {
	if err := s.repo.UpdateStatus(ctx, id, status, msg); err != nil {
		s.logger.Error("could not update account status during bootstrap",
			"account_id", id, "status", status, "error", err)
	}
}
