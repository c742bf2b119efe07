package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/vaultline/walletd/internal/config"
	"github.com/vaultline/walletd/internal/core/application"
	"github.com/vaultline/walletd/internal/core/domain"
	"github.com/vaultline/walletd/internal/core/ports"
	"github.com/vaultline/walletd/internal/infrastructure/keyderiver/hdwallet"
	inmemorykeystore "github.com/vaultline/walletd/internal/infrastructure/keystore/inmemory"
	securestorekeystore "github.com/vaultline/walletd/internal/infrastructure/keystore/securestore"
	"github.com/vaultline/walletd/internal/infrastructure/nameresolver/ens"
	"github.com/vaultline/walletd/internal/infrastructure/telemetry"
	"github.com/vaultline/walletd/pkg/securestore"
	boltsecurestore "github.com/vaultline/walletd/pkg/securestore/bolt"
)

type services struct {
	config    *application.Config
	registry  *prometheus.Registry
	telemetry *telemetry.Service
	store     securestore.SecureStorage

	closeResolver func()
}

// newServices opens the stores configured for the given context and loads
// the persisted wallets.
func newServices(ctx *cli.Context) (*services, error) {
	registry := prometheus.NewRegistry()
	tel, err := telemetry.NewService(registry, telemetry.DefaultBufferSize)
	if err != nil {
		return nil, err
	}
	svcs := &services{
		registry:      registry,
		telemetry:     tel,
		closeResolver: func() {},
	}

	keystore, store, err := openKeystore(ctx)
	if err != nil {
		svcs.close()
		return nil, err
	}
	svcs.store = store

	var resolver ports.NameResolver
	if endpoint := config.GetString(config.NameResolutionRPCEndpointKey); endpoint != "" {
		dialCtx, cancel := context.WithTimeout(
			ctx.Context, config.GetMilliseconds(config.NameResolutionTimeoutKey),
		)
		r, closeFn, err := ens.Dial(dialCtx, endpoint)
		cancel()
		if err != nil {
			svcs.close()
			return nil, err
		}
		resolver = r
		svcs.closeResolver = closeFn
	}

	derivationPath, err := config.GetDerivationPath()
	if err != nil {
		svcs.close()
		return nil, err
	}

	cfg := &application.Config{
		DBType:            config.GetString(config.DBTypeKey),
		DBConfig:          config.GetDbDir(),
		Keystore:          keystore,
		KeyDeriver:        hdwallet.NewKeyDeriver(keystore, derivationPath),
		NameResolver:      resolver,
		Telemetry:         tel,
		ProbeTimeout:      config.GetMilliseconds(config.KeystoreTimeoutKey),
		CheckConcurrency:  config.GetInt(config.CheckConcurrencyKey),
		NameLookupTimeout: config.GetMilliseconds(config.NameResolutionTimeoutKey),
		NameLookupRate:    config.GetInt(config.NameResolutionRateKey),
		NameCacheTTL:      config.GetSeconds(config.NameCacheTTLKey),
	}
	if err := cfg.Validate(); err != nil {
		svcs.close()
		return nil, err
	}
	svcs.config = cfg

	walletSvc := svcs.config.WalletService()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "walletd",
			Name:      "damaged_wallets",
			Help:      "Number of wallets marked as damaged.",
		}, func() float64 {
			count := 0
			for _, w := range walletSvc.GetCollection().Wallets {
				if w.Damaged {
					count++
				}
			}
			return float64(count)
		}),
	)

	if _, err := walletSvc.Load(ctx.Context); err != nil {
		if !errors.Is(err, domain.ErrNoWallets) {
			log.WithError(err).Warn("wallets loaded with errors")
		}
	}
	return svcs, nil
}

func (s *services) walletService() application.WalletService {
	return s.config.WalletService()
}

func (s *services) close() {
	if s.telemetry != nil {
		s.telemetry.Close()
	}
	if s.config != nil {
		if repo := s.config.RepoManager(); repo != nil {
			repo.Close()
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.WithError(err).Warn("failed to close key store")
		}
	}
	s.closeResolver()
}

func openKeystore(
	ctx *cli.Context,
) (ports.SecureKeyStore, securestore.SecureStorage, error) {
	if config.GetString(config.KeystoreTypeKey) == config.KeystoreInMemory {
		log.Warn("using in-memory key store, secrets are lost on exit")
		return inmemorykeystore.NewKeystore(), nil, nil
	}

	password, err := readPassword(ctx)
	if err != nil {
		return nil, nil, err
	}
	store, err := openSecureStorage()
	if err != nil {
		return nil, nil, err
	}
	if err := store.CreateUnlock(&password); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to unlock key store: %w", err)
	}
	return securestorekeystore.NewKeystore(store), store, nil
}

func openSecureStorage() (securestore.SecureStorage, error) {
	path := config.GetKeystorePath()
	return boltsecurestore.NewSecureStorage(filepath.Dir(path), filepath.Base(path))
}

func readPassword(ctx *cli.Context) ([]byte, error) {
	if password := ctx.String(passwordFlagName); password != "" {
		return []byte(password), nil
	}

	pwdPath := config.GetString(config.KeystorePasswordFileKey)
	if pwdPath == "" {
		return nil, fmt.Errorf(
			"missing key store password, use --%s or WALLETD_%s",
			passwordFlagName, config.KeystorePasswordFileKey,
		)
	}
	password, err := os.ReadFile(pwdPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read password file: %w", err)
	}
	return bytes.TrimSpace(password), nil
}
