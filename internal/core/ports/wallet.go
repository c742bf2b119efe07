package ports

import "context"

// Keypair is the result of an account key derivation.
type Keypair struct {
	Address    string
	PrivateKey []byte
}

// KeyDeriver deterministically derives account keypairs.
type KeyDeriver interface {
	// Derive returns the keypair at the given index for a wallet whose seed
	// is already in the secure key store.
	Derive(ctx context.Context, walletID string, index uint32) (*Keypair, error)
	// DeriveFromSecret returns the keypair at the given index for the given
	// mnemonic or private key, without touching any store.
	DeriveFromSecret(secret []byte, index uint32) (*Keypair, error)
}
