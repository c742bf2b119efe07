package ports

import (
	"context"
	"errors"
)

// ErrSecretNotFound is returned by SecureKeyStore.Read for missing entries.
var ErrSecretNotFound = errors.New("secret not found")

// SecureKeyStore is the confidential, string-keyed secret store. It is
// trusted for confidentiality but not for consistency with the wallet
// metadata.
type SecureKeyStore interface {
	// Has returns whether an entry exists for the given key.
	Has(ctx context.Context, key string) (bool, error)
	// Read returns the secret stored for the given key, or ErrSecretNotFound.
	Read(ctx context.Context, key string) ([]byte, error)
	// Write stores the secret for the given key, overwriting any existing one.
	Write(ctx context.Context, key string, value []byte) error
}
