package accountrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/core/ports"
)

const accountsSchema = `
CREATE TABLE IF NOT EXISTS dnsbridge_accounts (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	provider      TEXT NOT NULL,
	status        TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
)`

// PostgresRepository persists account metadata in a single table. Timestamps
// are stored as timestamptz and surfaced through the flexible-time codec.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var _ ports.AccountRepository = (*PostgresRepository)(nil)

// EnsureSchema creates the accounts table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, accountsSchema); err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "create accounts table")
	}
	return nil
}

func (r *PostgresRepository) FindAll(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, provider, status, error_message, created_at, updated_at
		FROM dnsbridge_accounts ORDER BY created_at`)
	if err != nil {
		return nil, domain.Wrap(domain.CodeStorageError, err, "read accounts")
	}
	defer rows.Close() //nolint:errcheck

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Wrap(domain.CodeStorageError, err, "iterate accounts")
	}
	return accounts, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, provider, status, error_message, created_at, updated_at
		FROM dnsbridge_accounts WHERE id = $1`, id)
	a, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *PostgresRepository) Save(ctx context.Context, account *domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dnsbridge_accounts (id, name, provider, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, provider = EXCLUDED.provider,
		    status = EXCLUDED.status, error_message = EXCLUDED.error_message,
		    updated_at = EXCLUDED.updated_at`,
		account.ID, account.Name, string(account.Provider), string(account.Status),
		account.ErrorMessage, account.CreatedAt.Time, account.UpdatedAt.Time)
	if err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "write account")
	}
	return nil
}

func (r *PostgresRepository) SaveAll(ctx context.Context, accounts []domain.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "begin account save")
	}
	defer tx.Rollback() //nolint:errcheck

	for i := range accounts {
		a := &accounts[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dnsbridge_accounts (id, name, provider, status, error_message, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, provider = EXCLUDED.provider,
			    status = EXCLUDED.status, error_message = EXCLUDED.error_message,
			    updated_at = EXCLUDED.updated_at`,
			a.ID, a.Name, string(a.Provider), string(a.Status),
			a.ErrorMessage, a.CreatedAt.Time, a.UpdatedAt.Time)
		if err != nil {
			return domain.Wrap(domain.CodeStorageError, err, "write account")
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "commit account save")
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM dnsbridge_accounts WHERE id = $1`, id); err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "delete account")
	}
	return nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus, errMsg string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE dnsbridge_accounts SET status = $2, error_message = $3 WHERE id = $1`,
		id, string(status), errMsg)
	if err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "update account status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrAccountNotFound(id)
	}
	return nil
}

func scanAccount(scan func(dest ...any) error) (*domain.Account, error) {
	var a domain.Account
	var provider, status string
	var createdAt, updatedAt time.Time
	err := scan(&a.ID, &a.Name, &provider, &status, &a.ErrorMessage, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, domain.Wrap(domain.CodeStorageError, err, "scan account")
	}
	a.Provider = domain.ProviderKind(provider)
	a.Status = domain.AccountStatus(status)
	a.CreatedAt = domain.NewFlexTime(createdAt)
	a.UpdatedAt = domain.NewFlexTime(updatedAt)
	return &a, nil
}
