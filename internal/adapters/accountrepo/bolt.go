// Package accountrepo provides ports.AccountRepository implementations
// backed by bbolt and postgres.
package accountrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/core/ports"
)

var bucketAccounts = []byte("accounts")

// BoltRepository stores one JSON document per account, keyed by ID.
type BoltRepository struct {
	db *bolt.DB
}

func NewBoltRepository(db *bolt.DB) (*BoltRepository, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketAccounts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create accounts bucket: %w", err)
	}
	return &BoltRepository{db: db}, nil
}

var _ ports.AccountRepository = (*BoltRepository)(nil)

func (r *BoltRepository) FindAll(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var accounts []domain.Account
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAccounts).ForEach(func(_, v []byte) error {
			var a domain.Account
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			accounts = append(accounts, a)
			return nil
		})
	})
	if err != nil {
		return nil, domain.Wrap(domain.CodeStorageError, err, "read accounts")
	}
	// Stable ordering for list views.
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].CreatedAt.Before(accounts[j].CreatedAt.Time) })
	return accounts, nil
}

func (r *BoltRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var account *domain.Account
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketAccounts).Get([]byte(id))
		if v == nil {
			return nil
		}
		var a domain.Account
		if err := json.Unmarshal(v, &a); err != nil {
			return err
		}
		account = &a
		return nil
	})
	if err != nil {
		return nil, domain.Wrap(domain.CodeStorageError, err, "read account")
	}
	return account, nil
}

func (r *BoltRepository) Save(ctx context.Context, account *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(account)
	if err != nil {
		return domain.Wrap(domain.CodeSerializationError, err, "serialize account")
	}
	err = r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAccounts).Put([]byte(account.ID), data)
	})
	if err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "write account")
	}
	return nil
}

func (r *BoltRepository) SaveAll(ctx context.Context, accounts []domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAccounts)
		for i := range accounts {
			data, err := json.Marshal(&accounts[i])
			if err != nil {
				return err
			}
			if err := b.Put([]byte(accounts[i].ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "write accounts")
	}
	return nil
}

func (r *BoltRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAccounts).Delete([]byte(id))
	})
	if err != nil {
		return domain.Wrap(domain.CodeStorageError, err, "delete account")
	}
	return nil
}

func (r *BoltRepository) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus, errMsg string) error {
	account, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.ErrAccountNotFound(id)
	}
	account.Status = status
	account.ErrorMessage = errMsg
	return r.Save(ctx, account)
}
