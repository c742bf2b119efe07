package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
	"github.com/vaultline/walletd/internal/core/application"
	"github.com/vaultline/walletd/pkg/wallet"
)

const (
	// DatadirKey is the local data directory to store the wallet metadata and
	// the encrypted key store
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// DBTypeKey is used to switch database type between those supported
	DBTypeKey = "DB_TYPE"
	// KeystoreTypeKey is used to switch the secure key store between the
	// encrypted bolt one and the volatile in-memory one
	KeystoreTypeKey = "KEYSTORE_TYPE"
	// KeystorePasswordFileKey defines full path to a file that contains the
	// password for unlocking the key store
	KeystorePasswordFileKey = "KEYSTORE_PASSWORD_FILE"
	// KeystoreTimeoutKey is the timeout in milliseconds of every key store
	// probe of the integrity check
	KeystoreTimeoutKey = "KEYSTORE_TIMEOUT"
	// CheckConcurrencyKey is the max number of wallets, and of keys per wallet,
	// probed in parallel
	CheckConcurrencyKey = "CHECK_CONCURRENCY"
	// NameResolutionRPCEndpointKey is the Ethereum rpc endpoint used for the
	// reverse name lookups. Name resolution is disabled if empty
	NameResolutionRPCEndpointKey = "NAME_RESOLUTION_RPC_ENDPOINT"
	// NameResolutionTimeoutKey is the timeout in milliseconds of a single name
	// lookup
	NameResolutionTimeoutKey = "NAME_RESOLUTION_TIMEOUT"
	// NameResolutionRateKey is the max number of name lookups per second
	NameResolutionRateKey = "NAME_RESOLUTION_RATE"
	// NameCacheTTLKey is the duration in seconds a name lookup result is reused
	NameCacheTTLKey = "NAME_CACHE_TTL"
	// NameRefreshIntervalKey is the interval in seconds between name refreshes
	// of the daemon
	NameRefreshIntervalKey = "NAME_REFRESH_INTERVAL"
	// MetricsListeningPortKey is the port where the prometheus metrics are
	// served. Metrics are disabled if 0
	MetricsListeningPortKey = "METRICS_LISTENING_PORT"
	// StatsIntervalKey defines interval in seconds for logging memory stats,
	// disabled if 0
	StatsIntervalKey = "STATS_INTERVAL"
	// DerivationPathKey is the BIP32 base path of the accounts derived from
	// a mnemonic, account i is at <path>/i
	DerivationPathKey = "DERIVATION_PATH"

	KeystoreBolt     = "bolt"
	KeystoreInMemory = "inmemory"

	DbLocation       = "db"
	KeystoreLocation = "keystore"
	StatsLocation    = "stats"
)

var (
	vip            *viper.Viper
	defaultDatadir = btcutil.AppDataDir("walletd", false)

	supportedKeystoreTypes = map[string]struct{}{
		KeystoreBolt:     {},
		KeystoreInMemory: {},
	}
)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("WALLETD")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DBTypeKey, application.DBBadger)
	vip.SetDefault(KeystoreTypeKey, KeystoreBolt)
	vip.SetDefault(KeystoreTimeoutKey, 3000)
	vip.SetDefault(CheckConcurrencyKey, application.DefaultCheckConcurrency)
	vip.SetDefault(NameResolutionTimeoutKey, 5000)
	vip.SetDefault(NameResolutionRateKey, 10)
	vip.SetDefault(NameCacheTTLKey, 300)
	vip.SetDefault(NameRefreshIntervalKey, 600)
	vip.SetDefault(MetricsListeningPortKey, 9090)
	vip.SetDefault(StatsIntervalKey, 0)
	vip.SetDefault(DerivationPathKey, wallet.DefaultBaseDerivationPath.String())

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func Set(key string, value interface{}) {
	vip.Set(key, value)
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

// GetMilliseconds reads an integer key as a number of milliseconds.
func GetMilliseconds(key string) time.Duration {
	return time.Duration(GetInt(key)) * time.Millisecond
}

// GetSeconds reads an integer key as a number of seconds.
func GetSeconds(key string) time.Duration {
	return time.Duration(GetInt(key)) * time.Second
}

func GetDbDir() string {
	return filepath.Join(GetDatadir(), DbLocation)
}

func GetKeystorePath() string {
	return filepath.Join(GetDatadir(), KeystoreLocation, "secrets.db")
}

func GetDerivationPath() (wallet.DerivationPath, error) {
	return wallet.ParseDerivationPath(GetString(DerivationPathKey))
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	if _, ok := application.SupportedDBType[GetString(DBTypeKey)]; !ok {
		return fmt.Errorf("%s must be one of badger, inmemory", DBTypeKey)
	}
	if _, ok := supportedKeystoreTypes[GetString(KeystoreTypeKey)]; !ok {
		return fmt.Errorf("%s must be one of bolt, inmemory", KeystoreTypeKey)
	}

	level := GetInt(LogLevelKey)
	if level < 0 || level > 6 {
		return fmt.Errorf("%s must be in range [0, 6]", LogLevelKey)
	}

	for _, key := range []string{
		KeystoreTimeoutKey, CheckConcurrencyKey, NameResolutionTimeoutKey,
		NameRefreshIntervalKey,
	} {
		if GetInt(key) <= 0 {
			return fmt.Errorf("%s must be greater than 0", key)
		}
	}
	for _, key := range []string{
		NameResolutionRateKey, NameCacheTTLKey, MetricsListeningPortKey,
		StatsIntervalKey,
	} {
		if GetInt(key) < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}

	if _, err := GetDerivationPath(); err != nil {
		return fmt.Errorf("%s: %w", DerivationPathKey, err)
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if GetString(DBTypeKey) == application.DBBadger {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
			return err
		}
	}
	if GetString(KeystoreTypeKey) == KeystoreBolt {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, KeystoreLocation)); err != nil {
			return err
		}
	}
	if GetInt(StatsIntervalKey) > 0 {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, StatsLocation)); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
