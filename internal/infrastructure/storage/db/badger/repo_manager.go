package dbbadger

import (
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
	"github.com/vaultline/walletd/internal/core/domain"
	"github.com/vaultline/walletd/internal/core/ports"
)

type repoManager struct {
	store            *badgerhold.Store
	walletRepository domain.WalletRepository
}

// NewRepoManager opens (or creates if not exists) the badger store on disk.
// It expects a base data dir and an optional logger.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	var dbDir string
	if len(baseDbDir) > 0 {
		dbDir = filepath.Join(baseDbDir, "wallets")
	}
	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening wallets db: %w", err)
	}

	return &repoManager{
		store:            store,
		walletRepository: NewWalletRepositoryImpl(store),
	}, nil
}

func (r *repoManager) WalletRepository() domain.WalletRepository {
	return r.walletRepository
}

func (r *repoManager) Close() {
	if err := r.store.Close(); err != nil {
		log.WithError(err).Warn("failed to close wallets db")
	}
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger
	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
