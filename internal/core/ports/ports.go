// Package ports defines the contracts between the dnsbridge core and its
// collaborators: cloud providers, persistence adapters and the services the
// UI/CLI/MCP layers call.
package ports

import (
	"context"
	"time"

	"dnsbridge/internal/core/domain"
)

// Provider is the polymorphic contract every cloud DNS backend implements.
// Implementations translate provider-native codes into *domain.Error; no
// raw API error strings cross this boundary.
type Provider interface {
	Kind() domain.ProviderKind

	// ValidateCredentials performs a lightweight API call and reports
	// whether the configured credentials are accepted. A definitive
	// rejection returns (false, nil); anything else propagates as error.
	ValidateCredentials(ctx context.Context) (bool, error)

	ListDomains(ctx context.Context, params domain.PaginationParams) (*domain.PaginatedResponse[domain.ProviderDomain], error)
	GetDomain(ctx context.Context, zoneID string) (*domain.ProviderDomain, error)
	ListRecords(ctx context.Context, zoneID string, params domain.RecordQueryParams) (*domain.PaginatedResponse[domain.DnsRecord], error)
	CreateRecord(ctx context.Context, req domain.CreateDnsRecordRequest) (*domain.DnsRecord, error)
	UpdateRecord(ctx context.Context, recordID string, req domain.UpdateDnsRecordRequest) (*domain.DnsRecord, error)
	DeleteRecord(ctx context.Context, recordID, zoneID string) error
}

// ProviderFactory builds a live provider from validated credentials. The
// concrete factory lives in internal/provider; services depend on this type
// so tests can substitute fakes.
type ProviderFactory func(creds domain.ProviderCredentials) (Provider, error)

// CredentialStore persists provider credentials keyed by account ID.
// Get/Set/Remove are read-modify-write updates over the whole mapping.
// LoadAll returns CodeMigrationRequired when the stored blob is still in the
// legacy untyped shape.
type CredentialStore interface {
	LoadAll(ctx context.Context) (map[string]domain.ProviderCredentials, error)
	SaveAll(ctx context.Context, creds map[string]domain.ProviderCredentials) error
	Get(ctx context.Context, accountID string) (*domain.ProviderCredentials, error)
	Set(ctx context.Context, accountID string, creds domain.ProviderCredentials) error
	Remove(ctx context.Context, accountID string) error

	// LoadRawJSON / SaveRawJSON bypass the typed codec. Migration only.
	LoadRawJSON(ctx context.Context) (string, error)
	SaveRawJSON(ctx context.Context, blob string) error
}

// AccountRepository persists account metadata.
type AccountRepository interface {
	FindAll(ctx context.Context) ([]domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	Save(ctx context.Context, account *domain.Account) error
	SaveAll(ctx context.Context, accounts []domain.Account) error
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status domain.AccountStatus, errMsg string) error
}

// ProviderRegistry is the in-memory map from account ID to live provider.
// Register atomically replaces any existing entry.
type ProviderRegistry interface {
	Register(accountID string, p Provider)
	Unregister(accountID string)
	Get(accountID string) (Provider, bool)
	ListAccountIDs() []string
}

// DomainCache is a latency-only cache for zone listings. Misses always fall
// through to the provider; entries are never authoritative.
type DomainCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration)
}

// CredentialService wraps the credential store and provider registry.
type CredentialService interface {
	ValidateAndCreateProvider(ctx context.Context, creds domain.ProviderCredentials) (Provider, error)
	SaveCredentials(ctx context.Context, accountID string, creds domain.ProviderCredentials) error
	LoadCredentials(ctx context.Context, accountID string) (domain.ProviderCredentials, error)
	DeleteCredentials(ctx context.Context, accountID string) error
	LoadAllCredentials(ctx context.Context) (map[string]domain.ProviderCredentials, error)
	RegisterProvider(accountID string, p Provider)
	UnregisterProvider(accountID string)
}

// CreateAccountRequest carries the inputs of the account-create operation.
type CreateAccountRequest struct {
	Name        string
	Credentials domain.ProviderCredentials
}

// UpdateAccountRequest mutates an existing account. Nil fields are left
// untouched.
type UpdateAccountRequest struct {
	Name        *string
	Credentials *domain.ProviderCredentials
}

// AccountService owns the account lifecycle: create with compensating
// cleanup, update with gap-free provider replacement, delete with
// account-first ordering.
type AccountService interface {
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*domain.Account, error)
	UpdateAccount(ctx context.Context, id string, req UpdateAccountRequest) (*domain.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	DeleteAccounts(ctx context.Context, ids []string) (*domain.BatchDeleteResult, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
}

// RecordService dispatches zone and record operations to the live provider
// registered for an account.
type RecordService interface {
	ListDomains(ctx context.Context, accountID string, params domain.PaginationParams) (*domain.PaginatedResponse[domain.ProviderDomain], error)
	GetDomain(ctx context.Context, accountID, zoneID string) (*domain.ProviderDomain, error)
	ListRecords(ctx context.Context, accountID, zoneID string, params domain.RecordQueryParams) (*domain.PaginatedResponse[domain.DnsRecord], error)
	CreateRecord(ctx context.Context, accountID string, req domain.CreateDnsRecordRequest) (*domain.DnsRecord, error)
	UpdateRecord(ctx context.Context, accountID, recordID string, req domain.UpdateDnsRecordRequest) (*domain.DnsRecord, error)
	DeleteRecord(ctx context.Context, accountID, recordID, zoneID string) error
}

// BootstrapService reconstructs the provider registry from persisted state
// at startup.
type BootstrapService interface {
	Restore(ctx context.Context) (*domain.RestoreResult, error)
}

// MigrationService upgrades legacy untyped credential blobs to the typed
// format, tolerating per-account failures.
type MigrationService interface {
	Migrate(ctx context.Context) (*domain.MigrationResult, error)
}

// TransferService serializes account bundles to export files and back.
type TransferService interface {
	Export(ctx context.Context, req domain.ExportRequest) ([]byte, string, error)
	Preview(ctx context.Context, data []byte, password string) (*domain.ImportPreview, error)
	Import(ctx context.Context, data []byte, password string) (*domain.ImportResult, error)
}
