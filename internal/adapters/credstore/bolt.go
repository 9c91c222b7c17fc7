// Package credstore provides ports.CredentialStore implementations: an
// embedded bbolt store holding the whole mapping as one JSON blob, and a
// postgres store encrypting each account's credentials per row.
package credstore

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/core/ports"
)

var (
	bucketCredentials = []byte("credentials")
	keyBlob           = []byte("blob")
)

// BoltStore keeps all credentials in a single JSON document, the same shape
// the legacy file store used. Entries written before the typed format lack
// the "provider" tag; LoadAll reports those as CodeMigrationRequired.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCredentials)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create credentials bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

var _ ports.CredentialStore = (*BoltStore)(nil)

func (s *BoltStore) LoadAll(ctx context.Context) (map[string]domain.ProviderCredentials, error) {
	blob, err := s.readBlob(ctx)
	if err != nil {
		return nil, err
	}
	return decodeTyped(blob)
}

func (s *BoltStore) SaveAll(ctx context.Context, creds map[string]domain.ProviderCredentials) error {
	blob, err := json.Marshal(creds)
	if err != nil {
		return domain.Wrap(domain.CodeSerializationError, err, "serialize credential blob")
	}
	return s.writeBlob(ctx, blob)
}

func (s *BoltStore) Get(ctx context.Context, accountID string) (*domain.ProviderCredentials, error) {
	all, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	c, ok := all[accountID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *BoltStore) Set(ctx context.Context, accountID string, creds domain.ProviderCredentials) error {
	all, err := s.LoadAll(ctx)
	if err != nil {
		return err
	}
	all[accountID] = creds
	return s.SaveAll(ctx, all)
}

func (s *BoltStore) Remove(ctx context.Context, accountID string) error {
	all, err := s.LoadAll(ctx)
	if err != nil {
		return err
	}
	delete(all, accountID)
	return s.SaveAll(ctx, all)
}

func (s *BoltStore) LoadRawJSON(ctx context.Context) (string, error) {
	blob, err := s.readBlob(ctx)
	if err != nil {
		return "", err
	}
	return string(blob), nil
}

func (s *BoltStore) SaveRawJSON(ctx context.Context, blob string) error {
	return s.writeBlob(ctx, []byte(blob))
}

func (s *BoltStore) readBlob(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var blob []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketCredentials).Get(keyBlob)
		if v != nil {
			blob = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, domain.Wrap(domain.CodeStorageError, err, "read credential blob")
	}
	return blob, nil
}

func (s *BoltStore) writeBlob(ctx context.Context, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCredentials).Put(keyBlob, blob)
	})
	if err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "write credential blob")
	}
	return nil
}

// decodeTyped parses a credential blob, distinguishing the typed format from
// the legacy untyped one by the presence of the "provider" tag per entry.
func decodeTyped(blob []byte) (map[string]domain.ProviderCredentials, error) {
	if len(blob) == 0 {
		return map[string]domain.ProviderCredentials{}, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(blob, &entries); err != nil {
		return nil, domain.Wrap(domain.CodeParseError, err, "parse credential blob")
	}

	out := make(map[string]domain.ProviderCredentials, len(entries))
	for id, raw := range entries {
		var probe struct {
			Provider string `json:"provider"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, domain.Wrap(domain.CodeParseError, err, "parse credential entry")
		}
		if probe.Provider == "" {
			return nil, domain.E(domain.CodeMigrationRequired, "credential entry %s is in the legacy format", id)
		}
		var c domain.ProviderCredentials
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		out[id] = c
	}
	return out, nil
}
