package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory ports.CredentialStore. When legacy is true the
// typed accessors report the blob as unmigrated, matching the persistent
// adapters' behavior on pre-tag data.
type fakeStore struct {
	mu     sync.Mutex
	creds  map[string]domain.ProviderCredentials
	raw    string
	legacy bool

	loadAllErr error
	setErr     error
	removeErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{creds: map[string]domain.ProviderCredentials{}}
}

func (f *fakeStore) LoadAll(ctx context.Context) (map[string]domain.ProviderCredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadAllErr != nil {
		return nil, f.loadAllErr
	}
	if f.legacy {
		return nil, domain.E(domain.CodeMigrationRequired, "credential blob is in the legacy format")
	}
	out := make(map[string]domain.ProviderCredentials, len(f.creds))
	for k, v := range f.creds {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) SaveAll(ctx context.Context, creds map[string]domain.ProviderCredentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds = make(map[string]domain.ProviderCredentials, len(creds))
	for k, v := range creds {
		f.creds[k] = v
	}
	f.legacy = false
	return nil
}

func (f *fakeStore) Get(ctx context.Context, accountID string) (*domain.ProviderCredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creds[accountID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeStore) Set(ctx context.Context, accountID string, creds domain.ProviderCredentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.creds[accountID] = creds
	return nil
}

func (f *fakeStore) Remove(ctx context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.creds, accountID)
	return nil
}

func (f *fakeStore) LoadRawJSON(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.raw, nil
}

func (f *fakeStore) SaveRawJSON(ctx context.Context, blob string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = blob
	return nil
}

// setLegacy seeds the store with an untyped blob, the shape the v1 format
// persisted.
func (f *fakeStore) setLegacy(blob map[string]map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, _ := json.Marshal(blob)
	f.raw = string(b)
	f.legacy = true
}

// fakeRepo is an in-memory ports.AccountRepository.
type fakeRepo struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
	order    []string

	saveErr   error
	deleteErr error
	updateErr error
	statusLog []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{accounts: map[string]domain.Account{}}
}

func (f *fakeRepo) FindAll(ctx context.Context) ([]domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Account, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.accounts[id])
	}
	return out, nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (f *fakeRepo) Save(ctx context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.accounts[account.ID]; !ok {
		f.order = append(f.order, account.ID)
	}
	f.accounts[account.ID] = *account
	return nil
}

func (f *fakeRepo) SaveAll(ctx context.Context, accounts []domain.Account) error {
	for i := range accounts {
		if err := f.Save(ctx, &accounts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.accounts, id)
	for i, oid := range f.order {
		if oid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound(id)
	}
	a.Status = status
	a.ErrorMessage = errMsg
	f.accounts[id] = a
	f.statusLog = append(f.statusLog, id+":"+string(status))
	return nil
}

// fakeRegistry is an in-memory ports.ProviderRegistry that counts traffic.
type fakeRegistry struct {
	mu          sync.Mutex
	providers   map[string]ports.Provider
	registers   int
	unregisters int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{providers: map[string]ports.Provider{}}
}

func (f *fakeRegistry) Register(accountID string, p ports.Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers[accountID] = p
	f.registers++
}

func (f *fakeRegistry) Unregister(accountID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.providers, accountID)
	f.unregisters++
}

func (f *fakeRegistry) Get(accountID string) (ports.Provider, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.providers[accountID]
	return p, ok
}

func (f *fakeRegistry) ListAccountIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.providers))
	for id := range f.providers {
		ids = append(ids, id)
	}
	return ids
}

// fakeProvider implements ports.Provider with injectable outcomes.
type fakeProvider struct {
	kind        domain.ProviderKind
	validateOK  bool
	validateErr error
	callErr     error
	calls       int
}

func (f *fakeProvider) Kind() domain.ProviderKind { return f.kind }

func (f *fakeProvider) ValidateCredentials(ctx context.Context) (bool, error) {
	return f.validateOK, f.validateErr
}

func (f *fakeProvider) ListDomains(ctx context.Context, params domain.PaginationParams) (*domain.PaginatedResponse[domain.ProviderDomain], error) {
	f.calls++
	if f.callErr != nil {
		return nil, f.callErr
	}
	return &domain.PaginatedResponse[domain.ProviderDomain]{
		Items: []domain.ProviderDomain{{ID: "z1", Name: "example.com", Provider: f.kind}},
	}, nil
}

func (f *fakeProvider) GetDomain(ctx context.Context, zoneID string) (*domain.ProviderDomain, error) {
	f.calls++
	if f.callErr != nil {
		return nil, f.callErr
	}
	return &domain.ProviderDomain{ID: zoneID, Name: "example.com", Provider: f.kind}, nil
}

func (f *fakeProvider) ListRecords(ctx context.Context, zoneID string, params domain.RecordQueryParams) (*domain.PaginatedResponse[domain.DnsRecord], error) {
	f.calls++
	if f.callErr != nil {
		return nil, f.callErr
	}
	return &domain.PaginatedResponse[domain.DnsRecord]{}, nil
}

func (f *fakeProvider) CreateRecord(ctx context.Context, req domain.CreateDnsRecordRequest) (*domain.DnsRecord, error) {
	f.calls++
	if f.callErr != nil {
		return nil, f.callErr
	}
	return &domain.DnsRecord{ID: "r1", ZoneID: req.ZoneID, Name: req.Name, TTL: req.TTL, Data: req.Data}, nil
}

func (f *fakeProvider) UpdateRecord(ctx context.Context, recordID string, req domain.UpdateDnsRecordRequest) (*domain.DnsRecord, error) {
	f.calls++
	if f.callErr != nil {
		return nil, f.callErr
	}
	return &domain.DnsRecord{ID: recordID, ZoneID: req.ZoneID, Name: req.Name, TTL: req.TTL, Data: req.Data}, nil
}

func (f *fakeProvider) DeleteRecord(ctx context.Context, recordID, zoneID string) error {
	f.calls++
	return f.callErr
}

// okFactory builds validating fake providers of the credentials' kind.
func okFactory(creds domain.ProviderCredentials) (ports.Provider, error) {
	return &fakeProvider{kind: creds.Provider, validateOK: true}, nil
}

func cloudflareCreds(token string) domain.ProviderCredentials {
	return domain.ProviderCredentials{
		Provider:   domain.ProviderCloudflare,
		Cloudflare: &domain.CloudflareCredentials{APIToken: token},
	}
}

func aliyunCreds() domain.ProviderCredentials {
	return domain.ProviderCredentials{
		Provider: domain.ProviderAliyun,
		Aliyun:   &domain.AliyunCredentials{AccessKeyID: "ak", AccessKeySecret: "sk"},
	}
}
