package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnsbridge/internal/core/domain"
)

func TestMigrateSkipsTypedStore(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Set(context.Background(), "acc1", cloudflareCreds("tok")))

	svc := NewMigrationService(store, newFakeRepo(), testLogger())
	result, err := svc.Migrate(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Needed)
	assert.Zero(t, result.MigratedCount)
}

func TestMigrateConvertsLegacyBlob(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	seedAccount(t, repo, "acc1", domain.ProviderCloudflare)
	seedAccount(t, repo, "acc2", domain.ProviderAliyun)
	store.setLegacy(map[string]map[string]string{
		"acc1": {"api_token": "tok"},
		"acc2": {"access_key_id": "ak", "access_key_secret": "sk"},
	})

	svc := NewMigrationService(store, repo, testLogger())
	result, err := svc.Migrate(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Needed)
	assert.Equal(t, 2, result.MigratedCount)
	assert.Empty(t, result.FailedAccounts)

	creds, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", creds["acc1"].Cloudflare.APIToken)
	assert.Equal(t, "ak", creds["acc2"].Aliyun.AccessKeyID)
}

func TestMigrateToleratesBadRows(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	seedAccount(t, repo, "acc1", domain.ProviderCloudflare)
	seedAccount(t, repo, "acc2", domain.ProviderDnspod)
	store.setLegacy(map[string]map[string]string{
		"acc1":   {"api_token": "tok"},
		"acc2":   {"secret_id": "id"}, // secret_key missing
		"orphan": {"api_token": "x"},  // no account metadata
	})

	svc := NewMigrationService(store, repo, testLogger())
	result, err := svc.Migrate(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Needed)
	assert.Equal(t, 1, result.MigratedCount)
	assert.Len(t, result.FailedAccounts, 2)

	failed := map[string]bool{}
	for _, f := range result.FailedAccounts {
		failed[f.AccountID] = true
	}
	assert.True(t, failed["acc2"])
	assert.True(t, failed["orphan"])

	creds, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, creds, 1)
}

func TestMigrateFailsOnUnparseableBlob(t *testing.T) {
	store := newFakeStore()
	store.legacy = true
	store.raw = "{not json"

	svc := NewMigrationService(store, newFakeRepo(), testLogger())
	_, err := svc.Migrate(context.Background())
	assert.True(t, domain.IsCode(err, domain.CodeMigrationFailed))
}
