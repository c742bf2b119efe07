package securestorekeystore

import (
	"context"
	"errors"

	"github.com/vaultline/walletd/internal/core/ports"
	"github.com/vaultline/walletd/pkg/securestore"
	boltsecurestore "github.com/vaultline/walletd/pkg/securestore/bolt"
)

type keystore struct {
	store securestore.SecureStorage
}

// NewKeystore returns a SecureKeyStore backed by the given encrypted store,
// which must be unlocked by the caller.
func NewKeystore(store securestore.SecureStorage) ports.SecureKeyStore {
	return &keystore{store}
}

func (k *keystore) Has(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return k.store.Has(key)
}

func (k *keystore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, err := k.store.Get(key)
	if err != nil {
		if errors.Is(err, boltsecurestore.ErrDataNotFound) {
			return nil, ports.ErrSecretNotFound
		}
		return nil, err
	}
	return value, nil
}

func (k *keystore) Write(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.store.Put(key, value)
}
