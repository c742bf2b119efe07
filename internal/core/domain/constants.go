package domain

const (
	seedPhraseSuffix = "_seedPhrase"
	privateKeySuffix = "_privateKey"

	// LegacyAddressKey is the keychain entry of the single-wallet era holding
	// the current address.
	LegacyAddressKey = "address"
	// LegacySeedPhraseMigratedKey flags that the legacy seed was migrated to
	// the per-wallet layout.
	LegacySeedPhraseMigratedKey = "seedPhraseMigrated"
	// LegacySeedPhraseKey is the single-wallet era seed entry.
	LegacySeedPhraseKey = "seedPhrase"
)

// SeedPhraseKey is the keychain entry holding the seed of a wallet.
func SeedPhraseKey(walletID string) string {
	return walletID + seedPhraseSuffix
}

// PrivateKeyKey is the keychain entry holding the private key of an account.
func PrivateKeyKey(addr string) string {
	return addr + privateKeySuffix
}
