package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/core/ports"
)

type migrationService struct {
	store  ports.CredentialStore
	repo   ports.AccountRepository
	logger *slog.Logger
}

// NewMigrationService returns the converter from the legacy untyped
// credential blob (account ID -> string map) to the typed format. The host
// is expected to back up the raw blob before calling Migrate and restore it
// if the whole migration errors out.
func NewMigrationService(store ports.CredentialStore, repo ports.AccountRepository, logger *slog.Logger) ports.MigrationService {
	return &migrationService{store: store, repo: repo, logger: logger}
}

func (s *migrationService) Migrate(ctx context.Context) (*domain.MigrationResult, error) {
	_, err := s.store.LoadAll(ctx)
	if err == nil {
		return &domain.MigrationResult{Needed: false}, nil
	}
	if !domain.IsCode(err, domain.CodeMigrationRequired) {
		return nil, err
	}

	raw, err := s.store.LoadRawJSON(ctx)
	if err != nil {
		return nil, domain.Wrap(domain.CodeMigrationFailed, err, "read raw credential blob")
	}

	var legacy map[string]map[string]string
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		return nil, domain.Wrap(domain.CodeMigrationFailed, err, "parse legacy credential blob")
	}

	accounts, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, domain.Wrap(domain.CodeMigrationFailed, err, "load account metadata")
	}
	providerByID := make(map[string]domain.ProviderKind, len(accounts))
	for _, a := range accounts {
		providerByID[a.ID] = a.Provider
	}

	// Per-account tolerant: one malformed row never aborts the rest.
	result := &domain.MigrationResult{Needed: true}
	converted := make(map[string]domain.ProviderCredentials, len(legacy))
	for id, kv := range legacy {
		provider, ok := providerByID[id]
		if !ok {
			result.FailedAccounts = append(result.FailedAccounts, domain.MigrationFailure{
				AccountID: id, Reason: "no account metadata for credential row",
			})
			continue
		}
		creds, err := domain.CredentialsFromMap(provider, kv)
		if err != nil {
			result.FailedAccounts = append(result.FailedAccounts, domain.MigrationFailure{
				AccountID: id, Reason: err.Error(),
			})
			continue
		}
		converted[id] = creds
	}

	if len(converted) > 0 {
		if err := s.store.SaveAll(ctx, converted); err != nil {
			return nil, domain.Wrap(domain.CodeMigrationFailed, err, "persist migrated credentials")
		}
	}
	result.MigratedCount = len(converted)

	s.logger.Info("credential migration finished",
		"migrated", result.MigratedCount, "failed", len(result.FailedAccounts))
	return result, nil
}
