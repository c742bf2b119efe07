package application

import "time"

const (
	// DefaultProbeTimeout ...
	DefaultProbeTimeout = 3 * time.Second
	// DefaultCheckConcurrency ...
	DefaultCheckConcurrency = 4
	// DefaultLookupTimeout ...
	DefaultLookupTimeout = 5 * time.Second

	integrityComponent = "KeychainIntegrityCheck"
	walletIDPrefix     = "wallet_"
)

// Anomalies reported to telemetry.
const (
	AnomalyIntegrityNotOK       = "Keychain Integrity is not OK"
	AnomalyInconsistentSelected = "Selected wallet cannot be resolved"
	AnomalyNoVisibleAccount     = "Selected wallet has no visible account"
	AnomalyNoHealthyWallet      = "Damaged wallet selected and no healthy wallet to switch to"
)
