package application

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vaultline/walletd/internal/core/domain"
	"github.com/vaultline/walletd/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

// IntegrityService reconciles the wallet metadata against the secure key
// store. Wallets whose secrets are missing are marked as damaged, nothing is
// ever deleted.
type IntegrityService interface {
	// RunCheck runs a check and returns whether the keychain is healthy.
	RunCheck(ctx context.Context) bool
	// Check runs a check and returns the detailed outcome.
	Check(ctx context.Context) *IntegrityReport
}

type integrityService struct {
	walletSvc    WalletService
	keystore     ports.SecureKeyStore
	telemetry    ports.Telemetry
	probeTimeout time.Duration
	concurrency  int
}

func NewIntegrityService(
	walletSvc WalletService,
	keystore ports.SecureKeyStore,
	telemetry ports.Telemetry,
	opts IntegrityOpts,
) IntegrityService {
	if telemetry == nil {
		telemetry = noopTelemetry{}
	}
	probeTimeout := opts.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultCheckConcurrency
	}
	return &integrityService{
		walletSvc:    walletSvc,
		keystore:     keystore,
		telemetry:    telemetry,
		probeTimeout: probeTimeout,
		concurrency:  concurrency,
	}
}

func (s *integrityService) RunCheck(ctx context.Context) bool {
	return s.Check(ctx).Healthy
}

func (s *integrityService) Check(ctx context.Context) *IntegrityReport {
	logger := log.WithField("component", integrityComponent)
	logger.Debug("starting keychain integrity check")

	report := &IntegrityReport{
		Legacy: s.checkLegacyKeys(ctx),
	}

	ids := s.walletSvc.GetCollection().SortedIDs()
	reports := make([]WalletReport, len(ids))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			reports[i] = s.checkWallet(ctx, id)
			return nil
		})
	}
	//nolint
	g.Wait()

	report.Wallets = reports
	report.Healthy = true
	for _, r := range reports {
		if r.Skipped {
			continue
		}
		if !r.Healthy || len(r.ReadErrors) > 0 || r.MarkError != nil {
			report.Healthy = false
		}
	}

	if report.Healthy {
		logger.Info("keychain integrity is OK")
		return report
	}

	damaged := report.DamagedWallets()
	unreadable := make([]string, 0)
	for _, r := range reports {
		if len(r.ReadErrors) > 0 {
			unreadable = append(unreadable, r.WalletID)
		}
	}
	logger.WithFields(log.Fields{
		"damaged":    damaged,
		"unreadable": unreadable,
	}).Warn("keychain integrity is not OK")
	s.telemetry.ReportAnomaly(AnomalyIntegrityNotOK, map[string]interface{}{
		"damaged":    damaged,
		"unreadable": unreadable,
	})
	return report
}

func (s *integrityService) checkWallet(
	ctx context.Context, walletID string,
) WalletReport {
	logger := log.WithFields(log.Fields{
		"component": integrityComponent,
		"wallet":    walletID,
	})
	report := WalletReport{WalletID: walletID}

	err := s.walletSvc.InspectWallet(ctx, walletID, func(w *domain.Wallet) error {
		if w.IsReadOnly() {
			report.Skipped = true
			return nil
		}

		seedKey := domain.SeedPhraseKey(w.ID)
		keys := []string{seedKey}
		for _, a := range w.Addresses {
			keys = append(keys, domain.PrivateKeyKey(a.Address))
		}

		found, readErrors := s.probeKeys(ctx, keys)
		for _, key := range keys {
			if _, ok := readErrors[key]; ok {
				continue
			}
			if found[key] {
				continue
			}
			if key == seedKey {
				report.MissingSeed = true
				continue
			}
			report.MissingKeys = append(report.MissingKeys, key)
		}
		if len(readErrors) > 0 {
			report.ReadErrors = readErrors
		}
		report.Healthy = !report.MissingSeed && len(report.MissingKeys) <= 0
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			report.Skipped = true
			return report
		}
		report.ReadErrors = map[string]error{walletID: err}
		logger.WithError(err).Warn("failed to inspect wallet")
		return report
	}
	if report.Skipped {
		logger.Debug("skipping read-only wallet")
		return report
	}

	for key, err := range report.ReadErrors {
		logger.WithError(err).Warnf("failed to probe %s", key)
	}
	if report.Healthy {
		return report
	}

	logger.WithFields(log.Fields{
		"missing_seed": report.MissingSeed,
		"missing_keys": report.MissingKeys,
	}).Warn("wallet has missing secrets")
	if err := s.walletSvc.MarkDamaged(ctx, walletID); err != nil {
		logger.WithError(err).Error("failed to mark wallet as damaged")
		report.MarkError = err
	}
	return report
}

func (s *integrityService) checkLegacyKeys(ctx context.Context) LegacyKeysReport {
	keys := []string{
		domain.LegacyAddressKey,
		domain.LegacySeedPhraseMigratedKey,
		domain.LegacySeedPhraseKey,
	}
	found, readErrors := s.probeKeys(ctx, keys)
	report := LegacyKeysReport{
		Address:            found[domain.LegacyAddressKey],
		SeedPhraseMigrated: found[domain.LegacySeedPhraseMigratedKey],
		SeedPhrase:         found[domain.LegacySeedPhraseKey],
	}
	if len(readErrors) > 0 {
		report.ReadErrors = readErrors
	}

	log.WithFields(log.Fields{
		"component":            integrityComponent,
		"address":              report.Address,
		"seed_phrase_migrated": report.SeedPhraseMigrated,
		"seed_phrase":          report.SeedPhrase,
	}).Debug("legacy keychain entries")
	return report
}

// probeKeys checks the existence of every key in parallel. Keys that could
// not be probed are returned in the error map rather than as missing.
func (s *integrityService) probeKeys(
	ctx context.Context, keys []string,
) (map[string]bool, map[string]error) {
	found := make(map[string]bool, len(keys))
	readErrors := make(map[string]error)
	var lock sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			ok, err := s.probe(ctx, key)

			lock.Lock()
			defer lock.Unlock()
			if err != nil {
				readErrors[key] = err
				return nil
			}
			found[key] = ok
			return nil
		})
	}
	//nolint
	g.Wait()

	return found, readErrors
}

// probe is Has bounded by the probe timeout. A store ignoring the context is
// abandoned once the deadline expires.
func (s *integrityService) probe(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	type result struct {
		found bool
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		found, err := s.keystore.Has(ctx, key)
		ch <- result{found, err}
	}()

	select {
	case res := <-ch:
		return res.found, res.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
