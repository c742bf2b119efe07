package application_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
	"github.com/vaultline/walletd/internal/core/application"
	"github.com/vaultline/walletd/internal/core/domain"
	"github.com/vaultline/walletd/internal/core/ports"
	"github.com/vaultline/walletd/internal/infrastructure/keyderiver/hdwallet"
	dbinmemory "github.com/vaultline/walletd/internal/infrastructure/storage/db/inmemory"
)

const (
	testMnemonic = "test test test test test test test test test test test junk"

	addr0 = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	addr1 = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	addr2 = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
	addr3 = "0x90F79bf6EB2c4f870365E785982E1f101E93b906"

	key0 = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	key1 = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	key3 = "0x7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6"
)

var ctx = context.Background()

type testEnv struct {
	repo      *faultyRepository
	keystore  *faultyKeystore
	deriver   ports.KeyDeriver
	telemetry *mockTelemetry
}

func newTestEnv() *testEnv {
	keystore := newFaultyKeystore()
	return &testEnv{
		repo: &faultyRepository{
			WalletRepository: dbinmemory.NewWalletRepositoryImpl(),
		},
		keystore:  keystore,
		deriver:   hdwallet.NewKeyDeriver(keystore, nil),
		telemetry: newMockTelemetry(),
	}
}

func (e *testEnv) walletService() application.WalletService {
	return application.NewWalletService(e.repo, e.keystore, e.deriver, e.telemetry)
}

func (e *testEnv) integrityService(
	walletSvc application.WalletService, opts application.IntegrityOpts,
) application.IntegrityService {
	return application.NewIntegrityService(walletSvc, e.keystore, e.telemetry, opts)
}

// seed persists the given wallets along with the selection and current
// address. Secrets are stored only for the wallets listed in withSecrets.
func (e *testEnv) seed(
	t *testing.T,
	wallets []*domain.Wallet,
	selected, current string,
	withSecrets ...string,
) {
	collection := domain.NewWalletCollection()
	for _, w := range wallets {
		collection.Wallets[w.ID] = w
	}
	require.NoError(t, e.repo.SaveCollection(ctx, collection))
	require.NoError(t, e.repo.SaveSelectedID(ctx, selected))
	require.NoError(t, e.repo.SaveCurrentAddress(ctx, current))

	for _, id := range withSecrets {
		w := collection.Wallets[id]
		e.storeSecrets(t, w)
	}
}

func (e *testEnv) storeSecrets(t *testing.T, w *domain.Wallet) {
	err := e.keystore.Write(ctx, domain.SeedPhraseKey(w.ID), []byte(testMnemonic))
	require.NoError(t, err)
	for _, a := range w.Addresses {
		keypair, err := e.deriver.DeriveFromSecret([]byte(testMnemonic), a.Index)
		require.NoError(t, err)
		err = e.keystore.Write(
			ctx, domain.PrivateKeyKey(a.Address), []byte(hexutil.Encode(keypair.PrivateKey)),
		)
		require.NoError(t, err)
	}
}

func newWallet(
	id string, walletType domain.WalletType, accounts ...domain.Account,
) *domain.Wallet {
	return &domain.Wallet{
		ID:        id,
		Type:      walletType,
		Name:      id,
		Addresses: accounts,
	}
}

func account(addr string, index uint32) domain.Account {
	return domain.Account{Address: addr, Index: index, Visible: true}
}

func hiddenAccount(addr string, index uint32) domain.Account {
	a := account(addr, index)
	a.Visible = false
	return a
}

func fakeAddress(i int64) string {
	return common.BigToAddress(big.NewInt(i)).Hex()
}
