package credstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/core/ports"
	"dnsbridge/internal/crypto"
)

const credentialsSchema = `
CREATE TABLE IF NOT EXISTS dnsbridge_credentials (
	account_id TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	salt       TEXT NOT NULL,
	nonce      TEXT NOT NULL,
	ciphertext TEXT NOT NULL
)`

// PostgresStore encrypts each account's credential document individually
// with a process-wide password. Rows carry their format version so blobs
// written at the older PBKDF2 cost stay readable.
type PostgresStore struct {
	db       *sql.DB
	password string
}

func NewPostgresStore(db *sql.DB, password string) *PostgresStore {
	return &PostgresStore{db: db, password: password}
}

var _ ports.CredentialStore = (*PostgresStore)(nil)

// EnsureSchema creates the credentials table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, credentialsSchema); err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "create credentials table")
	}
	return nil
}

func (s *PostgresStore) LoadAll(ctx context.Context) (map[string]domain.ProviderCredentials, error) {
	rows, err := s.loadRows(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.ProviderCredentials, len(rows))
	for id, doc := range rows {
		var probe struct {
			Provider string `json:"provider"`
		}
		if err := json.Unmarshal(doc, &probe); err != nil {
			return nil, domain.Wrap(domain.CodeParseError, err, "parse credential row")
		}
		if probe.Provider == "" {
			return nil, domain.E(domain.CodeMigrationRequired, "credential row %s is in the legacy format", id)
		}
		var c domain.ProviderCredentials
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, err
		}
		out[id] = c
	}
	return out, nil
}

func (s *PostgresStore) SaveAll(ctx context.Context, creds map[string]domain.ProviderCredentials) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "begin credential save")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM dnsbridge_credentials`); err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "clear credential rows")
	}
	for id, c := range creds {
		if err := s.upsert(ctx, tx, id, c); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "commit credential save")
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, accountID string) (*domain.ProviderCredentials, error) {
	var version uint32
	var salt, nonce, ciphertext string
	err := s.db.QueryRowContext(ctx,
		`SELECT version, salt, nonce, ciphertext FROM dnsbridge_credentials WHERE account_id = $1`,
		accountID).Scan(&version, &salt, &nonce, &ciphertext)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Wrap(domain.CodeStorageError, err, "read credential row")
	}

	doc, err := s.open(version, salt, nonce, ciphertext)
	if err != nil {
		return nil, err
	}
	var c domain.ProviderCredentials
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) Set(ctx context.Context, accountID string, creds domain.ProviderCredentials) error {
	return s.upsert(ctx, s.db, accountID, creds)
}

func (s *PostgresStore) Remove(ctx context.Context, accountID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM dnsbridge_credentials WHERE account_id = $1`, accountID); err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "delete credential row")
	}
	return nil
}

// LoadRawJSON reassembles the decrypted rows into the blob shape the
// migration service consumes.
func (s *PostgresStore) LoadRawJSON(ctx context.Context) (string, error) {
	rows, err := s.loadRows(ctx)
	if err != nil {
		return "", err
	}
	blob, err := json.Marshal(rows)
	if err != nil {
		return "", domain.Wrap(domain.CodeSerializationError, err, "serialize credential blob")
	}
	return string(blob), nil
}

func (s *PostgresStore) SaveRawJSON(ctx context.Context, blob string) error {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal([]byte(blob), &entries); err != nil {
		return domain.Wrap(domain.CodeParseError, err, "parse credential blob")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "begin raw credential save")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM dnsbridge_credentials`); err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "clear credential rows")
	}
	for id, doc := range entries {
		if err := s.put(ctx, tx, id, []byte(doc)); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "commit raw credential save")
	}
	return nil
}

// execer covers *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) upsert(ctx context.Context, db execer, accountID string, creds domain.ProviderCredentials) error {
	doc, err := json.Marshal(creds)
	if err != nil {
		return domain.Wrap(domain.CodeSerializationError, err, "serialize credentials")
	}
	return s.put(ctx, db, accountID, doc)
}

func (s *PostgresStore) put(ctx context.Context, db execer, accountID string, doc []byte) error {
	enc, err := crypto.Encrypt(doc, s.password)
	if err != nil {
		return domain.Wrap(domain.CodeCredentialError, err, "encrypt credentials")
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO dnsbridge_credentials (account_id, version, salt, nonce, ciphertext)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id) DO UPDATE
		SET version = EXCLUDED.version, salt = EXCLUDED.salt,
		    nonce = EXCLUDED.nonce, ciphertext = EXCLUDED.ciphertext`,
		accountID, crypto.CurrentVersion, enc.Salt, enc.Nonce, enc.Ciphertext)
	if err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "write credential row")
	}
	return nil
}

func (s *PostgresStore) loadRows(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id, version, salt, nonce, ciphertext FROM dnsbridge_credentials`)
	if err != nil {
		return nil, domain.Wrap(domain.CodeStorageError, err, "read credential rows")
	}
	defer rows.Close() //nolint:errcheck

	out := map[string]json.RawMessage{}
	for rows.Next() {
		var id string
		var version uint32
		var salt, nonce, ciphertext string
		if err := rows.Scan(&id, &version, &salt, &nonce, &ciphertext); err != nil {
			return nil, domain.Wrap(domain.CodeStorageError, err, "scan credential row")
		}
		doc, err := s.open(version, salt, nonce, ciphertext)
		if err != nil {
			return nil, err
		}
		out[id] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Wrap(domain.CodeStorageError, err, "iterate credential rows")
	}
	return out, nil
}

func (s *PostgresStore) open(version uint32, salt, nonce, ciphertext string) ([]byte, error) {
	iterations, ok := crypto.IterationsForVersion(version)
	if !ok {
		return nil, domain.E(domain.CodeUnsupportedVersion, "credential row version %d", version)
	}
	doc, err := crypto.Decrypt(ciphertext, s.password, salt, nonce, iterations)
	if err != nil {
		return nil, domain.Wrap(domain.CodeCredentialError, err, "decrypt credential row")
	}
	return doc, nil
}
