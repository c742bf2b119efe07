package inmemory

import (
	"context"
	"sync"

	"github.com/vaultline/walletd/internal/core/domain"
)

// WalletRepositoryImpl represents an in memory storage
type WalletRepositoryImpl struct {
	locker         sync.RWMutex
	wallets        map[string]*domain.Wallet
	selectedID     string
	currentAddress string
	displayNames   map[string]string
}

// NewWalletRepositoryImpl returns a new empty WalletRepositoryImpl
func NewWalletRepositoryImpl() domain.WalletRepository {
	return &WalletRepositoryImpl{
		wallets:      map[string]*domain.Wallet{},
		displayNames: map[string]string{},
	}
}

func (r *WalletRepositoryImpl) LoadCollection(
	_ context.Context,
) (*domain.WalletCollection, error) {
	r.locker.RLock()
	defer r.locker.RUnlock()

	collection := domain.NewWalletCollection()
	for id, w := range r.wallets {
		collection.Wallets[id] = w.Clone()
	}
	return collection, nil
}

func (r *WalletRepositoryImpl) SaveCollection(
	_ context.Context, collection *domain.WalletCollection,
) error {
	r.locker.Lock()
	defer r.locker.Unlock()

	wallets := make(map[string]*domain.Wallet, len(collection.Wallets))
	for id, w := range collection.Wallets {
		wallets[id] = w.Clone()
	}
	r.wallets = wallets
	return nil
}

func (r *WalletRepositoryImpl) LoadSelectedID(_ context.Context) (string, error) {
	r.locker.RLock()
	defer r.locker.RUnlock()

	return r.selectedID, nil
}

func (r *WalletRepositoryImpl) SaveSelectedID(_ context.Context, walletID string) error {
	r.locker.Lock()
	defer r.locker.Unlock()

	r.selectedID = walletID
	return nil
}

func (r *WalletRepositoryImpl) LoadCurrentAddress(_ context.Context) (string, error) {
	r.locker.RLock()
	defer r.locker.RUnlock()

	return r.currentAddress, nil
}

func (r *WalletRepositoryImpl) SaveCurrentAddress(_ context.Context, addr string) error {
	r.locker.Lock()
	defer r.locker.Unlock()

	r.currentAddress = addr
	return nil
}

func (r *WalletRepositoryImpl) LoadDisplayNames(
	_ context.Context,
) (map[string]string, error) {
	r.locker.RLock()
	defer r.locker.RUnlock()

	names := make(map[string]string, len(r.displayNames))
	for k, v := range r.displayNames {
		names[k] = v
	}
	return names, nil
}

func (r *WalletRepositoryImpl) SaveDisplayNames(
	_ context.Context, names map[string]string,
) error {
	r.locker.Lock()
	defer r.locker.Unlock()

	displayNames := make(map[string]string, len(names))
	for k, v := range names {
		displayNames[k] = v
	}
	r.displayNames = displayNames
	return nil
}
