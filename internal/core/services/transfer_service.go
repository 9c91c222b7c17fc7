package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/core/ports"
	"dnsbridge/internal/crypto"
)

// exportFile is the on-disk envelope: a plaintext header plus either an
// inline account array or base64 ciphertext of that array.
type exportFile struct {
	Header domain.ExportHeader `json:"header"`
	Data   json.RawMessage     `json:"data"`
}

type transferService struct {
	repo       ports.AccountRepository
	store      ports.CredentialStore
	accounts   ports.AccountService
	appVersion string
	logger     *slog.Logger
	now        func() time.Time
}

// NewTransferService returns the import/export service. Imports go through
// the account lifecycle create path, so credentials are re-validated against
// the live provider.
func NewTransferService(repo ports.AccountRepository, store ports.CredentialStore, accounts ports.AccountService, appVersion string, logger *slog.Logger) ports.TransferService {
	return &transferService{repo: repo, store: store, accounts: accounts, appVersion: appVersion, logger: logger, now: time.Now}
}

func (s *transferService) Export(ctx context.Context, req domain.ExportRequest) ([]byte, string, error) {
	if len(req.AccountIDs) == 0 {
		return nil, "", &domain.Error{Code: domain.CodeNoAccountsSelected}
	}
	if req.Encrypt && req.Password == "" {
		return nil, "", domain.E(domain.CodeValidationError, "password required for encrypted export")
	}

	exported := make([]domain.ExportedAccount, 0, len(req.AccountIDs))
	for _, id := range req.AccountIDs {
		account, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, "", err
		}
		if account == nil {
			return nil, "", domain.ErrAccountNotFound(id)
		}
		creds, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, "", err
		}
		if creds == nil {
			return nil, "", domain.E(domain.CodeCredentialError, "no credentials stored for account %s", id)
		}
		exported = append(exported, domain.ExportedAccount{
			ID:          account.ID,
			Name:        account.Name,
			Provider:    account.Provider,
			CreatedAt:   account.CreatedAt,
			UpdatedAt:   account.UpdatedAt,
			Credentials: creds.ToMap(),
		})
	}

	header := domain.ExportHeader{
		Version:    crypto.CurrentVersion,
		Encrypted:  req.Encrypt,
		ExportedAt: domain.NewFlexTime(s.now()),
		AppVersion: s.appVersion,
	}

	var data json.RawMessage
	if req.Encrypt {
		payload, err := json.Marshal(exported)
		if err != nil {
			return nil, "", domain.Wrap(domain.CodeSerializationError, err, "serialize export payload")
		}
		enc, err := crypto.Encrypt(payload, req.Password)
		if err != nil {
			return nil, "", domain.Wrap(domain.CodeImportExportError, err, "encrypt export payload")
		}
		header.Salt = enc.Salt
		header.Nonce = enc.Nonce
		data, err = json.Marshal(enc.Ciphertext)
		if err != nil {
			return nil, "", domain.Wrap(domain.CodeSerializationError, err, "serialize ciphertext")
		}
	} else {
		var err error
		data, err = json.Marshal(exported)
		if err != nil {
			return nil, "", domain.Wrap(domain.CodeSerializationError, err, "serialize export payload")
		}
	}

	out, err := json.MarshalIndent(exportFile{Header: header, Data: data}, "", "  ")
	if err != nil {
		return nil, "", domain.Wrap(domain.CodeSerializationError, err, "serialize export file")
	}

	filename := fmt.Sprintf("dns-accounts-%s.json", s.now().UTC().Format("20060102-150405"))
	s.logger.Info("exported accounts", "count", len(exported), "encrypted", req.Encrypt)
	return out, filename, nil
}

func (s *transferService) Preview(ctx context.Context, data []byte, password string) (*domain.ImportPreview, error) {
	file, err := parseExportFile(data)
	if err != nil {
		return nil, err
	}

	if file.Header.Encrypted && password == "" {
		// Without the password even the account count stays unknown.
		return &domain.ImportPreview{Encrypted: true}, nil
	}

	accounts, err := decodeAccounts(file, password)
	if err != nil {
		return nil, err
	}

	existing, err := s.existingNames(ctx)
	if err != nil {
		return nil, err
	}

	preview := &domain.ImportPreview{Encrypted: file.Header.Encrypted}
	count := len(accounts)
	preview.AccountCount = &count
	for _, a := range accounts {
		preview.Accounts = append(preview.Accounts, domain.AccountPreview{
			Name:        a.Name,
			Provider:    a.Provider,
			HasConflict: existing[a.Name],
		})
	}
	return preview, nil
}

func (s *transferService) Import(ctx context.Context, data []byte, password string) (*domain.ImportResult, error) {
	file, err := parseExportFile(data)
	if err != nil {
		return nil, err
	}
	accounts, err := decodeAccounts(file, password)
	if err != nil {
		return nil, err
	}

	existing, err := s.existingNames(ctx)
	if err != nil {
		return nil, err
	}

	result := &domain.ImportResult{}
	for _, a := range accounts {
		if existing[a.Name] {
			result.Failures = append(result.Failures, domain.ImportFailure{Name: a.Name, Reason: "name conflict"})
			continue
		}
		creds, err := domain.CredentialsFromMap(a.Provider, a.Credentials)
		if err != nil {
			result.Failures = append(result.Failures, domain.ImportFailure{Name: a.Name, Reason: err.Error()})
			continue
		}
		if _, err := s.accounts.CreateAccount(ctx, ports.CreateAccountRequest{Name: a.Name, Credentials: creds}); err != nil {
			result.Failures = append(result.Failures, domain.ImportFailure{Name: a.Name, Reason: err.Error()})
			continue
		}
		existing[a.Name] = true
		result.SuccessCount++
	}

	s.logger.Info("import finished", "imported", result.SuccessCount, "failed", len(result.Failures))
	return result, nil
}

func (s *transferService) existingNames(ctx context.Context) (map[string]bool, error) {
	accounts, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		names[a.Name] = true
	}
	return names, nil
}

func parseExportFile(data []byte) (*exportFile, error) {
	var file exportFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, domain.Wrap(domain.CodeImportExportError, err, "parse export file")
	}
	if _, ok := crypto.IterationsForVersion(file.Header.Version); !ok {
		return nil, domain.E(domain.CodeUnsupportedVersion, "export file version %d", file.Header.Version)
	}
	return &file, nil
}

// decodeAccounts unwraps the data payload, decrypting with the iteration
// count implied by the header version.
func decodeAccounts(file *exportFile, password string) ([]domain.ExportedAccount, error) {
	payload := []byte(file.Data)
	if file.Header.Encrypted {
		var ciphertext string
		if err := json.Unmarshal(file.Data, &ciphertext); err != nil {
			return nil, domain.Wrap(domain.CodeImportExportError, err, "parse encrypted payload")
		}
		iterations, _ := crypto.IterationsForVersion(file.Header.Version)
		plaintext, err := crypto.Decrypt(ciphertext, password, file.Header.Salt, file.Header.Nonce, iterations)
		if err != nil {
			return nil, domain.Wrap(domain.CodeImportExportError, err, "decrypt export payload")
		}
		payload = plaintext
	}

	var accounts []domain.ExportedAccount
	if err := json.Unmarshal(payload, &accounts); err != nil {
		return nil, domain.Wrap(domain.CodeImportExportError, err, "parse account list")
	}
	return accounts, nil
}
