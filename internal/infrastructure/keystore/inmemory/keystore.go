package inmemorykeystore

import (
	"context"
	"sync"

	"github.com/vaultline/walletd/internal/core/ports"
)

// Keystore is a SecureKeyStore keeping secrets in memory, for tests and
// throwaway setups.
type Keystore struct {
	lock    sync.RWMutex
	secrets map[string][]byte
}

func NewKeystore() *Keystore {
	return &Keystore{secrets: make(map[string][]byte)}
}

func (k *Keystore) Has(_ context.Context, key string) (bool, error) {
	k.lock.RLock()
	defer k.lock.RUnlock()

	_, ok := k.secrets[key]
	return ok, nil
}

func (k *Keystore) Read(_ context.Context, key string) ([]byte, error) {
	k.lock.RLock()
	defer k.lock.RUnlock()

	value, ok := k.secrets[key]
	if !ok {
		return nil, ports.ErrSecretNotFound
	}
	return append([]byte{}, value...), nil
}

func (k *Keystore) Write(_ context.Context, key string, value []byte) error {
	k.lock.Lock()
	defer k.lock.Unlock()

	k.secrets[key] = append([]byte{}, value...)
	return nil
}

// Keys returns the keys of all stored secrets.
func (k *Keystore) Keys() []string {
	k.lock.RLock()
	defer k.lock.RUnlock()

	keys := make([]string, 0, len(k.secrets))
	for key := range k.secrets {
		keys = append(keys, key)
	}
	return keys
}
