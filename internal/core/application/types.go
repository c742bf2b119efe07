package application

import (
	"time"

	"github.com/vaultline/walletd/internal/core/domain"
)

// WalletsState is the snapshot of the wallet model handed to subscribers and
// callers. It is a deep copy and can be freely retained.
type WalletsState struct {
	Collection        *domain.WalletCollection
	CurrentAddress    string
	DisplayNames      map[string]string
	IsCreatingAccount bool
}

// SelectedWallet is a shortcut for resolving the selected wallet of the
// snapshot.
func (s WalletsState) SelectedWallet() (*domain.Wallet, bool) {
	return s.Collection.SelectedWallet()
}

// ImportWalletOpts are the arguments of WalletService.ImportWallet. Input is
// either a mnemonic, a hex private key or an address, the type of the
// resulting wallet depends on it.
type ImportWalletOpts struct {
	Input string
	Name  string
	Label string
	Color int
	// Imported distinguishes a wallet restored from an existing secret from
	// one generated on this device.
	Imported bool
}

// AccountPatch lists the account fields to update, nil fields are left
// untouched.
type AccountPatch struct {
	Label   *string
	Color   *int
	Visible *bool
}

// IntegrityReport is the detailed outcome of an integrity check.
type IntegrityReport struct {
	Healthy bool
	Wallets []WalletReport
	Legacy  LegacyKeysReport
}

// DamagedWallets returns the ids of the wallets found with missing secrets.
func (r *IntegrityReport) DamagedWallets() []string {
	ids := make([]string, 0)
	for _, w := range r.Wallets {
		if !w.Skipped && !w.Healthy {
			ids = append(ids, w.WalletID)
		}
	}
	return ids
}

// WalletReport is the integrity outcome of a single wallet. ReadErrors maps
// the probed key to the error preventing to tell whether it exists.
type WalletReport struct {
	WalletID    string
	Skipped     bool
	Healthy     bool
	MissingSeed bool
	MissingKeys []string
	ReadErrors  map[string]error
	MarkError   error
}

// LegacyKeysReport tells which of the keychain entries of the single-wallet
// era are still around. These are diagnostic only.
type LegacyKeysReport struct {
	Address            bool
	SeedPhraseMigrated bool
	SeedPhrase         bool
	ReadErrors         map[string]error
}

// IntegrityOpts tunes the integrity checker.
type IntegrityOpts struct {
	// ProbeTimeout bounds every single secure store probe.
	ProbeTimeout time.Duration
	// Concurrency caps the number of wallets, and of keys within a wallet,
	// probed in parallel.
	Concurrency int
}

// NameServiceOpts tunes the name resolution cache.
type NameServiceOpts struct {
	// LookupTimeout bounds every single name lookup.
	LookupTimeout time.Duration
	// Rate is the max number of lookups per second, 0 means unlimited.
	Rate int
	// CacheTTL is how long a lookup result is reused, 0 disables caching.
	CacheTTL time.Duration
}
