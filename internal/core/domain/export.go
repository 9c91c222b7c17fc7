package domain

// ExportHeader is the plaintext header of an export file. Crypto parameters
// are implied by Version: v1 pairs with PBKDF2 100k iterations, v2 with 600k.
type ExportHeader struct {
	Version    uint32   `json:"version"`
	Encrypted  bool     `json:"encrypted"`
	Salt       string   `json:"salt,omitempty"`
	Nonce      string   `json:"nonce,omitempty"`
	ExportedAt FlexTime `json:"exported_at"`
	AppVersion string   `json:"app_version"`
}

// ExportedAccount is one account inside an export payload. Credentials stay
// in the legacy string-map shape for backward compatibility; the importer
// rebuilds typed credentials via CredentialsFromMap.
type ExportedAccount struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Provider    ProviderKind      `json:"provider"`
	CreatedAt   FlexTime          `json:"createdAt"`
	UpdatedAt   FlexTime          `json:"updatedAt"`
	Credentials map[string]string `json:"credentials"`
}

// ExportRequest selects which accounts to export and how.
type ExportRequest struct {
	AccountIDs []string
	Encrypt    bool
	Password   string
}

// AccountPreview is one row of an import preview.
type AccountPreview struct {
	Name        string       `json:"name"`
	Provider    ProviderKind `json:"provider"`
	HasConflict bool         `json:"has_conflict"`
}

// ImportPreview summarizes an export file before import.
type ImportPreview struct {
	Encrypted    bool             `json:"encrypted"`
	AccountCount *int             `json:"account_count,omitempty"`
	Accounts     []AccountPreview `json:"accounts,omitempty"`
}

// ImportFailure records one account the importer skipped.
type ImportFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ImportResult aggregates per-account import outcomes.
type ImportResult struct {
	SuccessCount int             `json:"success_count"`
	Failures     []ImportFailure `json:"failures"`
}

// BatchDeleteFailure records one account a batch delete could not remove.
type BatchDeleteFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchDeleteResult aggregates per-account delete outcomes.
type BatchDeleteResult struct {
	SuccessCount int                  `json:"success_count"`
	FailedCount  int                  `json:"failed_count"`
	Failures     []BatchDeleteFailure `json:"failures"`
}

// RestoreResult summarizes a bootstrap run.
type RestoreResult struct {
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`
}

// MigrationFailure records one legacy credential row that did not convert.
type MigrationFailure struct {
	AccountID string `json:"account_id"`
	Reason    string `json:"reason"`
}

// MigrationResult reports the outcome of a storage-format migration.
type MigrationResult struct {
	// Needed is false when the store was already in the typed format.
	Needed         bool               `json:"needed"`
	MigratedCount  int                `json:"migrated_count"`
	FailedAccounts []MigrationFailure `json:"failed_accounts"`
}
