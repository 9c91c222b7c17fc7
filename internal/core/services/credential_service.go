// Package services implements the dnsbridge business logic on top of the
// ports contracts: credential management, the account lifecycle, startup
// bootstrap, storage-format migration, import/export and record dispatch.
package services

import (
	"context"
	"log/slog"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/core/ports"
)

type credentialService struct {
	store    ports.CredentialStore
	registry ports.ProviderRegistry
	factory  ports.ProviderFactory
	logger   *slog.Logger
}

func NewCredentialService(store ports.CredentialStore, registry ports.ProviderRegistry, factory ports.ProviderFactory, logger *slog.Logger) ports.CredentialService {
	return &credentialService{store: store, registry: registry, factory: factory, logger: logger}
}

// ValidateAndCreateProvider builds a provider from the credentials and
// verifies them with a lightweight API call. A definitive rejection becomes
// CodeInvalidCredentials; transport failures propagate as-is.
func (s *credentialService) ValidateAndCreateProvider(ctx context.Context, creds domain.ProviderCredentials) (ports.Provider, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	p, err := s.factory(creds)
	if err != nil {
		return nil, err
	}
	ok, err := p.ValidateCredentials(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Warn("credential validation rejected", "provider", creds.Provider)
		return nil, domain.ErrInvalidCredentials(creds.Provider, "")
	}
	return p, nil
}

func (s *credentialService) SaveCredentials(ctx context.Context, accountID string, creds domain.ProviderCredentials) error {
	return s.store.Set(ctx, accountID, creds)
}

func (s *credentialService) LoadCredentials(ctx context.Context, accountID string) (domain.ProviderCredentials, error) {
	c, err := s.store.Get(ctx, accountID)
	if err != nil {
		return domain.ProviderCredentials{}, err
	}
	if c == nil {
		return domain.ProviderCredentials{}, domain.E(domain.CodeCredentialError, "no credentials stored for account %s", accountID)
	}
	return *c, nil
}

func (s *credentialService) DeleteCredentials(ctx context.Context, accountID string) error {
	return s.store.Remove(ctx, accountID)
}

func (s *credentialService) LoadAllCredentials(ctx context.Context) (map[string]domain.ProviderCredentials, error) {
	return s.store.LoadAll(ctx)
}

func (s *credentialService) RegisterProvider(accountID string, p ports.Provider) {
	s.registry.Register(accountID, p)
}

func (s *credentialService) UnregisterProvider(accountID string) {
	s.registry.Unregister(accountID)
}
