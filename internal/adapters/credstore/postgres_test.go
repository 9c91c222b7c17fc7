package credstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/crypto"
)

const storePassword = "store-password"

func newPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db, storePassword), mock
}

// sealRow encrypts a credential document the way the store writes it, so
// read paths can be fed realistic rows.
func sealRow(t *testing.T, doc any) (salt, nonce, ciphertext string) {
	t.Helper()
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	enc, err := crypto.Encrypt(b, storePassword)
	require.NoError(t, err)
	return enc.Salt, enc.Nonce, enc.Ciphertext
}

func TestPostgresStoreGet(t *testing.T) {
	store, mock := newPostgresStore(t)
	salt, nonce, ct := sealRow(t, map[string]string{"provider": "cloudflare", "api_token": "tok"})

	mock.ExpectQuery(`SELECT version, salt, nonce, ciphertext FROM dnsbridge_credentials WHERE account_id = \$1`).
		WithArgs("acc1").
		WillReturnRows(sqlmock.NewRows([]string{"version", "salt", "nonce", "ciphertext"}).
			AddRow(crypto.CurrentVersion, salt, nonce, ct))

	c, err := store.Get(context.Background(), "acc1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, domain.ProviderCloudflare, c.Provider)
	assert.Equal(t, "tok", c.Cloudflare.APIToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetMissing(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectQuery(`SELECT version, salt, nonce, ciphertext FROM dnsbridge_credentials`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"version", "salt", "nonce", "ciphertext"}))

	c, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetWrongPassword(t *testing.T) {
	store, mock := newPostgresStore(t)

	b, err := json.Marshal(map[string]string{"provider": "cloudflare", "api_token": "tok"})
	require.NoError(t, err)
	enc, err := crypto.Encrypt(b, "different-password")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT version, salt, nonce, ciphertext FROM dnsbridge_credentials`).
		WithArgs("acc1").
		WillReturnRows(sqlmock.NewRows([]string{"version", "salt", "nonce", "ciphertext"}).
			AddRow(crypto.CurrentVersion, enc.Salt, enc.Nonce, enc.Ciphertext))

	_, err = store.Get(context.Background(), "acc1")
	assert.True(t, domain.IsCode(err, domain.CodeCredentialError))
}

func TestPostgresStoreGetUnknownVersion(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectQuery(`SELECT version, salt, nonce, ciphertext FROM dnsbridge_credentials`).
		WithArgs("acc1").
		WillReturnRows(sqlmock.NewRows([]string{"version", "salt", "nonce", "ciphertext"}).
			AddRow(99, "c2FsdA==", "bm9uY2U=", "Y3Q="))

	_, err := store.Get(context.Background(), "acc1")
	assert.True(t, domain.IsCode(err, domain.CodeUnsupportedVersion))
}

func TestPostgresStoreSet(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectExec(`INSERT INTO dnsbridge_credentials`).
		WithArgs("acc1", crypto.CurrentVersion, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Set(context.Background(), "acc1", domain.ProviderCredentials{
		Provider:   domain.ProviderCloudflare,
		Cloudflare: &domain.CloudflareCredentials{APIToken: "tok"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreRemove(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectExec(`DELETE FROM dnsbridge_credentials WHERE account_id = \$1`).
		WithArgs("acc1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Remove(context.Background(), "acc1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreLoadAll(t *testing.T) {
	store, mock := newPostgresStore(t)
	salt1, nonce1, ct1 := sealRow(t, map[string]string{"provider": "cloudflare", "api_token": "tok"})
	salt2, nonce2, ct2 := sealRow(t, map[string]string{
		"provider": "aliyun", "access_key_id": "ak", "access_key_secret": "sk",
	})

	mock.ExpectQuery(`SELECT account_id, version, salt, nonce, ciphertext FROM dnsbridge_credentials`).
		WillReturnRows(sqlmock.NewRows([]string{"account_id", "version", "salt", "nonce", "ciphertext"}).
			AddRow("acc1", crypto.CurrentVersion, salt1, nonce1, ct1).
			AddRow("acc2", crypto.CurrentVersion, salt2, nonce2, ct2))

	all, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "tok", all["acc1"].Cloudflare.APIToken)
	assert.Equal(t, "ak", all["acc2"].Aliyun.AccessKeyID)
}

func TestPostgresStoreLoadAllDetectsLegacyRows(t *testing.T) {
	store, mock := newPostgresStore(t)
	// A row written before the typed format carries no provider tag.
	salt, nonce, ct := sealRow(t, map[string]string{"api_token": "tok"})

	mock.ExpectQuery(`SELECT account_id, version, salt, nonce, ciphertext FROM dnsbridge_credentials`).
		WillReturnRows(sqlmock.NewRows([]string{"account_id", "version", "salt", "nonce", "ciphertext"}).
			AddRow("acc1", uint32(1), salt, nonce, ct))

	_, err := store.LoadAll(context.Background())
	assert.True(t, domain.IsCode(err, domain.CodeMigrationRequired))
}

func TestPostgresStoreLoadRawJSON(t *testing.T) {
	store, mock := newPostgresStore(t)
	salt, nonce, ct := sealRow(t, map[string]string{"api_token": "tok"})

	mock.ExpectQuery(`SELECT account_id, version, salt, nonce, ciphertext FROM dnsbridge_credentials`).
		WillReturnRows(sqlmock.NewRows([]string{"account_id", "version", "salt", "nonce", "ciphertext"}).
			AddRow("acc1", crypto.CurrentVersion, salt, nonce, ct))

	raw, err := store.LoadRawJSON(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"acc1":{"api_token":"tok"}}`, raw)
}

func TestPostgresStoreSaveAll(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM dnsbridge_credentials`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO dnsbridge_credentials`).
		WithArgs("acc1", crypto.CurrentVersion, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SaveAll(context.Background(), map[string]domain.ProviderCredentials{
		"acc1": {
			Provider:   domain.ProviderCloudflare,
			Cloudflare: &domain.CloudflareCredentials{APIToken: "tok"},
		},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreEnsureSchema(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS dnsbridge_credentials`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
