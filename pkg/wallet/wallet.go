package wallet

import (
	"crypto/ecdsa"
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

var (
	// ErrNullMnemonic ...
	ErrNullMnemonic = errors.New("mnemonic is null")
	// ErrNullPrivateKey ...
	ErrNullPrivateKey = errors.New("private key is null")
	// ErrNullDerivationPath ...
	ErrNullDerivationPath = errors.New("derivation path must not be null")

	// ErrInvalidMnemonic ...
	ErrInvalidMnemonic = errors.New("mnemonic is invalid")
	// ErrInvalidPrivateKey ...
	ErrInvalidPrivateKey = errors.New("private key must be a 32 byte array in hex format")
	// ErrInvalidEntropySize ...
	ErrInvalidEntropySize = errors.New(
		"entropy size must be a multiple of 32 in the range [128,256]",
	)
	// ErrInvalidDerivationPath ...
	ErrInvalidDerivationPath = errors.New("invalid derivation path")
	// ErrMalformedDerivationPath ...
	ErrMalformedDerivationPath = errors.New(
		"path must not start or end with a '/' and " +
			"can optionally start with 'm/' for absolute paths",
	)
	// ErrHardenedIndex ...
	ErrHardenedIndex = errors.New("account index must not be hardened")
	// ErrImportedKeyIndex is returned when deriving an index other than 0 from
	// a wallet made of a single imported key.
	ErrImportedKeyIndex = errors.New("imported key wallet has only index 0")
)

// Wallet derives Ethereum account keys either from a BIP39 mnemonic, along
// the BIP44 path, or from a single imported private key.
type Wallet struct {
	mnemonic   string
	masterKey  *hdkeychain.ExtendedKey
	privateKey *ecdsa.PrivateKey
}

// KeyPair is an account key with its checksummed address.
type KeyPair struct {
	PrivateKey *ecdsa.PrivateKey
	Address    string
}

// NewWalletFromMnemonicOpts is the struct given to the NewWalletFromMnemonic method
type NewWalletFromMnemonicOpts struct {
	Mnemonic   string
	Passphrase string
	// BasePath defaults to DefaultBaseDerivationPath.
	BasePath DerivationPath
}

func (o NewWalletFromMnemonicOpts) validate() error {
	if len(o.Mnemonic) <= 0 {
		return ErrNullMnemonic
	}
	if !bip39.IsMnemonicValid(o.Mnemonic) {
		return ErrInvalidMnemonic
	}
	return nil
}

// NewWalletFromMnemonic generates the master key at the base derivation path
// from the given mnemonic.
func NewWalletFromMnemonic(opts NewWalletFromMnemonicOpts) (*Wallet, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	basePath := opts.BasePath
	if len(basePath) <= 0 {
		basePath = DefaultBaseDerivationPath
	}

	seed := bip39.NewSeed(opts.Mnemonic, opts.Passphrase)
	masterKey, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	for _, step := range basePath {
		masterKey, err = masterKey.Derive(step)
		if err != nil {
			return nil, err
		}
	}

	return &Wallet{
		mnemonic:  opts.Mnemonic,
		masterKey: masterKey,
	}, nil
}

// NewWalletFromPrivateKey returns a wallet made of the single given hex
// encoded private key, with or without 0x prefix.
func NewWalletFromPrivateKey(hexKey string) (*Wallet, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if len(hexKey) <= 0 {
		return nil, ErrNullPrivateKey
	}
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	return &Wallet{privateKey: privateKey}, nil
}

// Mnemonic returns the mnemonic of the wallet, empty for imported keys.
func (w *Wallet) Mnemonic() string {
	return w.mnemonic
}

// IsImported returns whether the wallet is made of a single imported key.
func (w *Wallet) IsImported() bool {
	return w.privateKey != nil
}

// DeriveKeyPair returns the account key at the given (non hardened) index.
func (w *Wallet) DeriveKeyPair(index uint32) (*KeyPair, error) {
	if w.IsImported() {
		if index != 0 {
			return nil, ErrImportedKeyIndex
		}
		return newKeyPair(w.privateKey), nil
	}
	if index >= hdkeychain.HardenedKeyStart {
		return nil, ErrHardenedIndex
	}

	child, err := w.masterKey.Derive(index)
	if err != nil {
		return nil, err
	}
	ecPrivKey, err := child.ECPrivKey()
	if err != nil {
		return nil, err
	}
	privateKey, err := crypto.ToECDSA(ecPrivKey.Serialize())
	if err != nil {
		return nil, err
	}
	return newKeyPair(privateKey), nil
}

func newKeyPair(privateKey *ecdsa.PrivateKey) *KeyPair {
	return &KeyPair{
		PrivateKey: privateKey,
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey).Hex(),
	}
}
