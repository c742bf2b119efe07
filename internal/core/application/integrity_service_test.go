package application_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vaultline/walletd/internal/core/application"
	"github.com/vaultline/walletd/internal/core/domain"
)

func TestIntegrityCheckHealthy(t *testing.T) {
	env := newTestEnv()
	env.seed(t, []*domain.Wallet{
		newWallet("W1", domain.WalletTypeStandard, account(addr0, 0), account(addr1, 1)),
		newWallet("W2", domain.WalletTypeStandard, account(addr2, 2)),
		newWallet("W3", domain.WalletTypeReadOnly, account(addr3, 0)),
	}, "W1", addr0, "W1", "W2")
	walletSvc := env.walletService()
	_, err := walletSvc.Load(ctx)
	require.NoError(t, err)
	svc := env.integrityService(walletSvc, application.IntegrityOpts{})

	before := walletSvc.State()
	for i := 0; i < 2; i++ {
		report := svc.Check(ctx)
		require.True(t, report.Healthy)
		require.Len(t, report.Wallets, 3)
		require.Empty(t, report.DamagedWallets())
		require.True(t, report.Wallets[2].Skipped)
		require.True(t, svc.RunCheck(ctx))
	}
	require.Equal(t, before, walletSvc.State())
	env.telemetry.AssertNotCalled(t, "ReportAnomaly", mock.Anything, mock.Anything)
}

func TestIntegrityCheckMissingSecrets(t *testing.T) {
	t.Run("missing private key", func(t *testing.T) {
		env := newTestEnv()
		env.seed(t, []*domain.Wallet{
			newWallet("W1", domain.WalletTypeStandard, account(addr0, 0)),
			newWallet("W2", domain.WalletTypeStandard, account(addr1, 0)),
		}, "W1", addr0, "W1")
		// W2 only has its seed.
		err := env.keystore.Write(ctx, domain.SeedPhraseKey("W2"), []byte(testMnemonic))
		require.NoError(t, err)

		walletSvc := env.walletService()
		_, err = walletSvc.Load(ctx)
		require.NoError(t, err)
		svc := env.integrityService(walletSvc, application.IntegrityOpts{})

		report := svc.Check(ctx)
		require.False(t, report.Healthy)
		require.Equal(t, []string{"W2"}, report.DamagedWallets())
		require.False(t, report.Wallets[1].MissingSeed)
		require.Equal(
			t, []string{domain.PrivateKeyKey(addr1)}, report.Wallets[1].MissingKeys,
		)
		env.telemetry.AssertCalled(
			t, "ReportAnomaly", application.AnomalyIntegrityNotOK, mock.Anything,
		)

		w, _ := walletSvc.GetCollection().Wallet("W2")
		require.True(t, w.Damaged)
		require.Equal(t, "W1", walletSvc.State().Collection.Selected)

		// Damage is not undone by following checks.
		require.False(t, svc.RunCheck(ctx))
		w, _ = walletSvc.GetCollection().Wallet("W2")
		require.True(t, w.Damaged)
	})

	t.Run("missing seed of selected wallet", func(t *testing.T) {
		env := newTestEnv()
		env.seed(t, []*domain.Wallet{
			newWallet("W1", domain.WalletTypeStandard, account(addr0, 0)),
			newWallet("W2", domain.WalletTypeStandard, account(addr1, 0)),
		}, "W1", addr0, "W2")
		err := env.keystore.Write(ctx, domain.PrivateKeyKey(addr0), []byte(key1))
		require.NoError(t, err)

		walletSvc := env.walletService()
		_, err = walletSvc.Load(ctx)
		require.NoError(t, err)
		svc := env.integrityService(walletSvc, application.IntegrityOpts{})

		report := svc.Check(ctx)
		require.False(t, report.Healthy)
		require.True(t, report.Wallets[0].MissingSeed)
		require.Empty(t, report.Wallets[0].MissingKeys)

		state := walletSvc.State()
		w, _ := state.Collection.Wallet("W1")
		require.True(t, w.Damaged)
		require.Equal(t, "W2", state.Collection.Selected)
		require.Equal(t, addr1, state.CurrentAddress)

		persisted, err := env.repo.LoadCollection(ctx)
		require.NoError(t, err)
		require.True(t, persisted.Wallets["W1"].Damaged)

		_, err = walletSvc.AddAccount(ctx, "W1", 0, "")
		require.ErrorIs(t, err, domain.ErrWalletDamaged)
	})
}

func TestIntegrityCheckUnreadableStore(t *testing.T) {
	t.Run("probe failure", func(t *testing.T) {
		env := newTestEnv()
		env.seed(t, []*domain.Wallet{
			newWallet("W1", domain.WalletTypeStandard, account(addr0, 0)),
		}, "W1", addr0, "W1")
		env.keystore.failHas(domain.SeedPhraseKey("W1"), fmt.Errorf("interaction not allowed"))

		walletSvc := env.walletService()
		_, err := walletSvc.Load(ctx)
		require.NoError(t, err)
		svc := env.integrityService(walletSvc, application.IntegrityOpts{})

		report := svc.Check(ctx)
		require.False(t, report.Healthy)
		require.Contains(t, report.Wallets[0].ReadErrors, domain.SeedPhraseKey("W1"))
		require.Empty(t, report.DamagedWallets())

		w, _ := walletSvc.GetCollection().Wallet("W1")
		require.False(t, w.Damaged)
	})

	t.Run("probe timeout", func(t *testing.T) {
		env := newTestEnv()
		env.seed(t, []*domain.Wallet{
			newWallet("W1", domain.WalletTypeStandard, account(addr0, 0)),
		}, "W1", addr0, "W1")
		env.keystore.hang(domain.PrivateKeyKey(addr0))

		walletSvc := env.walletService()
		_, err := walletSvc.Load(ctx)
		require.NoError(t, err)
		svc := env.integrityService(walletSvc, application.IntegrityOpts{
			ProbeTimeout: 50 * time.Millisecond,
		})

		start := time.Now()
		report := svc.Check(ctx)
		require.Less(t, time.Since(start), 2*time.Second)
		require.False(t, report.Healthy)
		require.ErrorIs(
			t, report.Wallets[0].ReadErrors[domain.PrivateKeyKey(addr0)],
			context.DeadlineExceeded,
		)

		w, _ := walletSvc.GetCollection().Wallet("W1")
		require.False(t, w.Damaged)
	})
}

func TestIntegrityCheckDoesNotOverlapMutations(t *testing.T) {
	env := newTestEnv()
	env.seed(t, []*domain.Wallet{
		newWallet("W1", domain.WalletTypeStandard, account(addr0, 0)),
		newWallet("W2", domain.WalletTypeStandard, account(addr2, 2)),
	}, "W1", addr0, "W1", "W2")
	started, release := env.keystore.block(domain.PrivateKeyKey(addr0))

	walletSvc := env.walletService()
	_, err := walletSvc.Load(ctx)
	require.NoError(t, err)
	svc := env.integrityService(walletSvc, application.IntegrityOpts{
		ProbeTimeout: 10 * time.Second,
	})

	reports := make(chan *application.IntegrityReport, 1)
	go func() {
		reports <- svc.Check(ctx)
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		release()
		t.Fatal("integrity check never reached the blocked key")
	}

	added := make(chan error, 1)
	go func() {
		_, err := walletSvc.AddAccount(ctx, "W1", 0, "")
		added <- err
	}()

	// Other wallets are not held by the pending check.
	acc, err := walletSvc.AddAccount(ctx, "W2", 0, "")
	require.NoError(t, err)
	require.Equal(t, addr3, acc.Address)

	select {
	case err := <-added:
		release()
		t.Fatalf("account added while its wallet was being checked: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	w, _ := walletSvc.GetCollection().Wallet("W1")
	require.Len(t, w.Addresses, 1)

	release()
	report := <-reports
	require.True(t, report.Healthy)

	require.NoError(t, <-added)
	w, _ = walletSvc.GetCollection().Wallet("W1")
	require.Len(t, w.Addresses, 2)
	require.Equal(t, addr1, w.Addresses[1].Address)
}
