package hdwallet_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
	"github.com/vaultline/walletd/internal/core/domain"
	"github.com/vaultline/walletd/internal/core/ports"
	"github.com/vaultline/walletd/internal/infrastructure/keyderiver/hdwallet"
	inmemorykeystore "github.com/vaultline/walletd/internal/infrastructure/keystore/inmemory"
	"github.com/vaultline/walletd/pkg/wallet"
)

const (
	mnemonic   = "test test test test test test test test test test test junk"
	privateKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

func TestDerive(t *testing.T) {
	ctx := context.Background()
	keystore := inmemorykeystore.NewKeystore()
	deriver := hdwallet.NewKeyDeriver(keystore, nil)

	err := keystore.Write(ctx, domain.SeedPhraseKey("W1"), []byte(mnemonic))
	require.NoError(t, err)
	err = keystore.Write(ctx, domain.SeedPhraseKey("W2"), []byte(privateKey))
	require.NoError(t, err)

	tests := []struct {
		name       string
		walletID   string
		index      uint32
		address    string
		privateKey string
	}{
		{
			name:       "mnemonic first account",
			walletID:   "W1",
			index:      0,
			address:    "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
			privateKey: "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
		},
		{
			name:       "mnemonic second account",
			walletID:   "W1",
			index:      1,
			address:    "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
			privateKey: "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
		},
		{
			name:       "imported key",
			walletID:   "W2",
			index:      0,
			address:    "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
			privateKey: "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			keypair, err := deriver.Derive(ctx, tt.walletID, tt.index)
			require.NoError(t, err)
			require.Equal(t, tt.address, keypair.Address)
			require.Equal(t, tt.privateKey, hexutil.Encode(keypair.PrivateKey))
		})
	}
}

func TestFailingDerive(t *testing.T) {
	ctx := context.Background()
	keystore := inmemorykeystore.NewKeystore()
	deriver := hdwallet.NewKeyDeriver(keystore, nil)

	_, err := deriver.Derive(ctx, "W1", 0)
	require.ErrorIs(t, err, ports.ErrSecretNotFound)

	_, err = deriver.DeriveFromSecret([]byte(privateKey), 1)
	require.ErrorIs(t, err, wallet.ErrImportedKeyIndex)

	_, err = deriver.DeriveFromSecret([]byte("not a valid mnemonic"), 0)
	require.ErrorIs(t, err, wallet.ErrInvalidMnemonic)
}

func TestNewMnemonic(t *testing.T) {
	words, err := hdwallet.NewMnemonic()
	require.NoError(t, err)
	require.Len(t, words, 12)
	require.True(t, wallet.IsMnemonicValid(words))
}

func TestDeriveWithBasePath(t *testing.T) {
	keystore := inmemorykeystore.NewKeystore()

	defaultPath, err := wallet.ParseDerivationPath("m/44'/60'/0'/0")
	require.NoError(t, err)
	keypair, err := hdwallet.NewKeyDeriver(keystore, defaultPath).
		DeriveFromSecret([]byte(mnemonic), 0)
	require.NoError(t, err)
	require.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", keypair.Address)

	otherPath, err := wallet.ParseDerivationPath("m/44'/60'/1'/0")
	require.NoError(t, err)
	deriver := hdwallet.NewKeyDeriver(keystore, otherPath)
	keypair, err = deriver.DeriveFromSecret([]byte(mnemonic), 0)
	require.NoError(t, err)
	require.NotEqual(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", keypair.Address)

	// imported keys ignore the base path
	keypair, err = deriver.DeriveFromSecret([]byte(privateKey), 0)
	require.NoError(t, err)
	require.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", keypair.Address)
}
