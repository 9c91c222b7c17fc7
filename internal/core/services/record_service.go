package services

import (
	"context"
	"log/slog"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/core/ports"
)

type recordService struct {
	registry ports.ProviderRegistry
	repo     ports.AccountRepository
	logger   *slog.Logger
}

// NewRecordService returns the dispatcher the UI/CLI/MCP adapters call for
// zone and record operations. It resolves the account's live provider from
// the registry and applies the invalid-credential side-effect policy.
func NewRecordService(registry ports.ProviderRegistry, repo ports.AccountRepository, logger *slog.Logger) ports.RecordService {
	return &recordService{registry: registry, repo: repo, logger: logger}
}

func (s *recordService) provider(accountID string) (ports.Provider, error) {
	p, ok := s.registry.Get(accountID)
	if !ok {
		return nil, domain.ErrProviderNotFound(accountID)
	}
	return p, nil
}

// afterCall marks the account as errored when the provider reports that its
// credentials are no longer valid. Status-update failures are logged only.
func (s *recordService) afterCall(ctx context.Context, accountID string, err error) {
	if err == nil || !domain.IsCode(err, domain.CodeInvalidCredentials) {
		return
	}
	if uerr := s.repo.UpdateStatus(ctx, accountID, domain.StatusError, "credentials invalidated"); uerr != nil {
		s.logger.Error("could not flag account after credential rejection",
			"account_id", accountID, "error", uerr)
	}
}

func (s *recordService) ListDomains(ctx context.Context, accountID string, params domain.PaginationParams) (*domain.PaginatedResponse[domain.ProviderDomain], error) {
	p, err := s.provider(accountID)
	if err != nil {
		return nil, err
	}
	resp, err := p.ListDomains(ctx, params)
	s.afterCall(ctx, accountID, err)
	return resp, err
}

func (s *recordService) GetDomain(ctx context.Context, accountID, zoneID string) (*domain.ProviderDomain, error) {
	p, err := s.provider(accountID)
	if err != nil {
		return nil, err
	}
	d, err := p.GetDomain(ctx, zoneID)
	s.afterCall(ctx, accountID, err)
	return d, err
}

func (s *recordService) ListRecords(ctx context.Context, accountID, zoneID string, params domain.RecordQueryParams) (*domain.PaginatedResponse[domain.DnsRecord], error) {
	p, err := s.provider(accountID)
	if err != nil {
		return nil, err
	}
	resp, err := p.ListRecords(ctx, zoneID, params)
	s.afterCall(ctx, accountID, err)
	return resp, err
}

func (s *recordService) CreateRecord(ctx context.Context, accountID string, req domain.CreateDnsRecordRequest) (*domain.DnsRecord, error) {
	p, err := s.provider(accountID)
	if err != nil {
		return nil, err
	}
	req.Name = domain.NormalizeName(req.Name)
	rec, err := p.CreateRecord(ctx, req)
	s.afterCall(ctx, accountID, err)
	return rec, err
}

func (s *recordService) UpdateRecord(ctx context.Context, accountID, recordID string, req domain.UpdateDnsRecordRequest) (*domain.DnsRecord, error) {
	p, err := s.provider(accountID)
	if err != nil {
		return nil, err
	}
	req.Name = domain.NormalizeName(req.Name)
	rec, err := p.UpdateRecord(ctx, recordID, req)
	s.afterCall(ctx, accountID, err)
	return rec, err
}

func (s *recordService) DeleteRecord(ctx context.Context, accountID, recordID, zoneID string) error {
	p, err := s.provider(accountID)
	if err != nil {
		return err
	}
	err = p.DeleteRecord(ctx, recordID, zoneID)
	s.afterCall(ctx, accountID, err)
	return err
}
