package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/vaultline/walletd/internal/config"
	"github.com/vaultline/walletd/internal/core/application"
	httpinterface "github.com/vaultline/walletd/internal/interfaces/http"
	"github.com/vaultline/walletd/pkg/stats"
)

var run = cli.Command{
	Name:   "run",
	Usage:  "check the keychain integrity, then keep display names fresh and serve metrics and wallets state until stopped",
	Action: runAction,
}

func runAction(c *cli.Context) error {
	svcs, err := newServices(c)
	if err != nil {
		return err
	}
	defer svcs.close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	walletSvc := svcs.walletService()
	unsubscribe := walletSvc.Subscribe(func(state application.WalletsState) {
		log.WithFields(log.Fields{
			"selected":        state.Collection.Selected,
			"current_address": state.CurrentAddress,
		}).Debug("wallets state changed")
	})
	defer unsubscribe()

	if port := config.GetInt(config.MetricsListeningPortKey); port > 0 {
		server := httpinterface.NewServer(walletSvc, svcs.registry, port)
		if err := server.Start(); err != nil {
			return err
		}
		defer server.Stop()
	}

	if interval := config.GetSeconds(config.StatsIntervalKey); interval > 0 {
		dumpPath := filepath.Join(config.GetDatadir(), config.StatsLocation, "metrics")
		stats.EnableMemoryStatistics(ctx, interval, svcs.registry, dumpPath)
	}

	if !svcs.config.IntegrityService().RunCheck(ctx) {
		log.Warn("keychain integrity is not OK, damaged wallets are read-only until re-imported")
	}

	wg := &sync.WaitGroup{}
	if nameSvc := svcs.config.NameService(); nameSvc != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			refreshNames(ctx, nameSvc, config.GetSeconds(config.NameRefreshIntervalKey))
		}()
	}

	log.Info("walletd started")
	<-ctx.Done()
	log.Info("shutting down")
	wg.Wait()
	return nil
}

func refreshNames(
	ctx context.Context, nameSvc application.NameService, interval time.Duration,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		displayNames, err := nameSvc.Refresh(ctx)
		if err != nil {
			log.WithError(err).Warn("failed to store display names")
		} else {
			log.WithField("count", len(displayNames)).Debug("display names refreshed")
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
