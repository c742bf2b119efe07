package hdwallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vaultline/walletd/internal/core/domain"
	"github.com/vaultline/walletd/internal/core/ports"
	"github.com/vaultline/walletd/pkg/wallet"
)

type keyDeriver struct {
	keystore ports.SecureKeyStore
	basePath wallet.DerivationPath
}

// NewKeyDeriver returns a KeyDeriver that reads the wallet seeds from the
// given store. A seed is either a BIP39 mnemonic, derived along
// basePath/index, or a hex private key that only has index 0. An empty
// basePath means m/44'/60'/0'/0.
func NewKeyDeriver(
	keystore ports.SecureKeyStore, basePath wallet.DerivationPath,
) ports.KeyDeriver {
	if len(basePath) <= 0 {
		basePath = wallet.DefaultBaseDerivationPath
	}
	return &keyDeriver{keystore, basePath}
}

func (d *keyDeriver) Derive(
	ctx context.Context, walletID string, index uint32,
) (*ports.Keypair, error) {
	secret, err := d.keystore.Read(ctx, domain.SeedPhraseKey(walletID))
	if err != nil {
		return nil, fmt.Errorf("failed to read seed of wallet %s: %w", walletID, err)
	}
	return d.DeriveFromSecret(secret, index)
}

func (d *keyDeriver) DeriveFromSecret(
	secret []byte, index uint32,
) (*ports.Keypair, error) {
	w, err := d.newWallet(string(secret))
	if err != nil {
		return nil, err
	}
	keyPair, err := w.DeriveKeyPair(index)
	if err != nil {
		return nil, err
	}
	return &ports.Keypair{
		Address:    keyPair.Address,
		PrivateKey: crypto.FromECDSA(keyPair.PrivateKey),
	}, nil
}

// NewMnemonic returns a fresh 12 words mnemonic.
func NewMnemonic() ([]string, error) {
	return wallet.NewMnemonic(wallet.NewMnemonicOpts{})
}

func (d *keyDeriver) newWallet(secret string) (*wallet.Wallet, error) {
	words := strings.Fields(secret)
	if len(words) > 1 {
		return wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
			Mnemonic: strings.Join(words, " "),
			BasePath: d.basePath,
		})
	}
	return wallet.NewWalletFromPrivateKey(secret)
}
