package domain

import "errors"

var (
	// ErrWalletNotFound is returned when the referenced wallet id is not part
	// of the collection.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrAccountNotFound is returned when the referenced address does not
	// belong to the wallet.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNoWallets is returned when loading an empty collection.
	ErrNoWallets = errors.New("no wallets found, create or import one")
	// ErrInconsistentSelection is returned when no selected wallet can be
	// resolved at load time. Recovery requires the user to re-import.
	ErrInconsistentSelection = errors.New("selected wallet cannot be resolved")
	// ErrNoVisibleAccount is returned when a wallet would end up (or already is)
	// without any visible account.
	ErrNoVisibleAccount = errors.New("wallet has no visible account")
	// ErrDuplicateAccount is returned when adding an account whose address or
	// index is already in use.
	ErrDuplicateAccount = errors.New("account address or index already in use")
	// ErrWalletReadOnly is returned when trying to derive accounts for a
	// watch-only wallet.
	ErrWalletReadOnly = errors.New("wallet is read-only")
	// ErrWalletDamaged is returned when trying to write to a damaged wallet.
	ErrWalletDamaged = errors.New("wallet is damaged, re-import it to restore write operations")
	// ErrInvalidWalletType ...
	ErrInvalidWalletType = errors.New("invalid wallet type")
	// ErrInvalidAddress ...
	ErrInvalidAddress = errors.New("invalid address")

	// ErrDerivationFailure is returned when the key derivation service fails.
	ErrDerivationFailure = errors.New("key derivation failed")
	// ErrStoreRead is returned on read failures of the secure key store or the
	// wallet repository.
	ErrStoreRead = errors.New("store read error")
	// ErrSecretMismatch is returned when restoring a wallet whose stored seed
	// differs from the imported secret.
	ErrSecretMismatch = errors.New("imported secret does not match the stored seed")
	// ErrStoreWrite is returned on write failures of the secure key store or
	// the wallet repository.
	ErrStoreWrite = errors.New("store write error")
)
