package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/core/ports"
)

type accountService struct {
	repo   ports.AccountRepository
	creds  ports.CredentialService
	logger *slog.Logger
	now    func() time.Time
}

func NewAccountService(repo ports.AccountRepository, creds ports.CredentialService, logger *slog.Logger) ports.AccountService {
	return &accountService{repo: repo, creds: creds, logger: logger, now: time.Now}
}

// CreateAccount validates the credentials, persists them under a fresh UUID,
// registers the live provider and finally persists the account metadata. If
// the final save fails, the credential and registry entries are rolled back
// best-effort so no orphans remain for the new ID.
func (s *accountService) CreateAccount(ctx context.Context, req ports.CreateAccountRequest) (*domain.Account, error) {
	p, err := s.creds.ValidateAndCreateProvider(ctx, req.Credentials)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()

	if err := s.creds.SaveCredentials(ctx, id, req.Credentials); err != nil {
		// Nothing persisted yet; no cleanup needed.
		return nil, err
	}
	s.creds.RegisterProvider(id, p)

	now := domain.NewFlexTime(s.now())
	account := &domain.Account{
		ID:        id,
		Name:      req.Name,
		Provider:  req.Credentials.Provider,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Save(ctx, account); err != nil {
		s.cleanupCreate(ctx, id)
		return nil, err
	}

	s.logger.Info("account created", "account_id", id, "provider", account.Provider)
	return account, nil
}

// cleanupCreate undoes the side effects of a failed create. Errors here are
// logged and never replace the original failure.
func (s *accountService) cleanupCreate(ctx context.Context, id string) {
	s.creds.UnregisterProvider(id)
	if err := s.creds.DeleteCredentials(ctx, id); err != nil {
		s.logger.Error("cleanup after failed account save could not delete credentials",
			"account_id", id, "error", err)
	}
}

func (s *accountService) UpdateAccount(ctx context.Context, id string, req ports.UpdateAccountRequest) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound(id)
	}

	if req.Credentials != nil {
		if req.Credentials.Provider != account.Provider {
			return nil, domain.E(domain.CodeValidationError,
				"credentials provider %q does not match account provider %q",
				req.Credentials.Provider, account.Provider)
		}
		p, err := s.creds.ValidateAndCreateProvider(ctx, *req.Credentials)
		if err != nil {
			return nil, err
		}
		if err := s.creds.SaveCredentials(ctx, id, *req.Credentials); err != nil {
			return nil, err
		}
		// Register replaces the old handle atomically, so concurrent
		// readers never observe a gap between old and new provider.
		s.creds.RegisterProvider(id, p)
		account.MarkActive()
	}

	if req.Name != nil {
		account.Name = *req.Name
	}
	account.UpdatedAt = domain.NewFlexTime(s.now())

	if err := s.repo.Save(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount removes the metadata first so a partial failure never leaves
// a ghost account visible, then drops the in-memory provider and finally the
// credentials (best-effort: the account is already gone).
func (s *accountService) DeleteAccount(ctx context.Context, id string) error {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.ErrAccountNotFound(id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.creds.UnregisterProvider(id)
	if err := s.creds.DeleteCredentials(ctx, id); err != nil {
		s.logger.Warn("account deleted but credentials could not be removed",
			"account_id", id, "error", err)
	}

	s.logger.Info("account deleted", "account_id", id)
	return nil
}

func (s *accountService) DeleteAccounts(ctx context.Context, ids []string) (*domain.BatchDeleteResult, error) {
	result := &domain.BatchDeleteResult{}
	for _, id := range ids {
		if err := s.DeleteAccount(ctx, id); err != nil {
			result.FailedCount++
			result.Failures = append(result.Failures, domain.BatchDeleteFailure{
				ID:     id,
				Reason: fmt.Sprintf("%s", err),
			})
			continue
		}
		result.SuccessCount++
	}
	return result, nil
}

func (s *accountService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return s.repo.FindAll(ctx)
}

func (s *accountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound(id)
	}
	return account, nil
}
