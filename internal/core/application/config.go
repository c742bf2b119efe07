package application

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vaultline/walletd/internal/core/ports"
	dbbadger "github.com/vaultline/walletd/internal/infrastructure/storage/db/badger"
	dbinmemory "github.com/vaultline/walletd/internal/infrastructure/storage/db/inmemory"
)

const (
	DBBadger   = "badger"
	DBInMemory = "inmemory"
)

var (
	SupportedDBType = map[string]struct{}{
		DBBadger:   {},
		DBInMemory: {},
	}
)

// Config wires the application services together. Services are built lazily
// and memoized, the repo manager is opened according to DBType.
type Config struct {
	DBType   string
	DBConfig interface{}

	Keystore     ports.SecureKeyStore
	KeyDeriver   ports.KeyDeriver
	NameResolver ports.NameResolver
	Telemetry    ports.Telemetry

	ProbeTimeout      time.Duration
	CheckConcurrency  int
	NameLookupTimeout time.Duration
	NameLookupRate    int
	NameCacheTTL      time.Duration

	repo      ports.RepoManager
	wallet    WalletService
	integrity IntegrityService
	names     NameService
}

func (c *Config) Validate() error {
	if _, ok := SupportedDBType[c.DBType]; !ok {
		return fmt.Errorf("db type not supported")
	}
	if c.DBType == DBBadger {
		if datadir, ok := c.DBConfig.(string); !ok || datadir == "" {
			return fmt.Errorf("missing datadir for badger db")
		}
	}
	if c.Keystore == nil {
		return fmt.Errorf("missing secure key store")
	}
	if c.KeyDeriver == nil {
		return fmt.Errorf("missing key deriver")
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}
	return nil
}

func (c *Config) RepoManager() ports.RepoManager {
	repo, _ := c.repoManager()
	return repo
}

func (c *Config) WalletService() WalletService {
	svc, _ := c.walletService()
	return svc
}

func (c *Config) IntegrityService() IntegrityService {
	svc, _ := c.integrityService()
	return svc
}

// NameService returns nil if no name resolver is configured.
func (c *Config) NameService() NameService {
	svc, _ := c.nameService()
	return svc
}

func (c *Config) repoManager() (ports.RepoManager, error) {
	if c.repo == nil {
		switch c.DBType {
		case DBBadger:
			datadir := c.DBConfig.(string)
			repoManager, err := dbbadger.NewRepoManager(datadir, log.New())
			if err != nil {
				return nil, err
			}
			c.repo = repoManager
		case DBInMemory:
			c.repo = dbinmemory.NewRepoManager()
		}
	}
	return c.repo, nil
}

func (c *Config) walletService() (WalletService, error) {
	if c.wallet == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		c.wallet = NewWalletService(
			repo.WalletRepository(), c.Keystore, c.KeyDeriver, c.Telemetry,
		)
	}
	return c.wallet, nil
}

func (c *Config) integrityService() (IntegrityService, error) {
	if c.integrity == nil {
		wallet, err := c.walletService()
		if err != nil {
			return nil, err
		}
		c.integrity = NewIntegrityService(
			wallet, c.Keystore, c.Telemetry, IntegrityOpts{
				ProbeTimeout: c.ProbeTimeout,
				Concurrency:  c.CheckConcurrency,
			},
		)
	}
	return c.integrity, nil
}

func (c *Config) nameService() (NameService, error) {
	if c.names == nil && c.NameResolver != nil {
		wallet, err := c.walletService()
		if err != nil {
			return nil, err
		}
		c.names = NewNameService(wallet, c.NameResolver, NameServiceOpts{
			LookupTimeout: c.NameLookupTimeout,
			Rate:          c.NameLookupRate,
			CacheTTL:      c.NameCacheTTL,
		})
	}
	return c.names, nil
}
