package dbbadger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
	"github.com/vaultline/walletd/internal/core/domain"
)

const (
	selectedWalletKey = "selectedWallet"
	currentAddressKey = "currentAddress"
	displayNamesKey   = "displayNames"
)

type accountRecord struct {
	Address string
	Index   uint32
	Label   string
	Color   int
	Visible bool
	Image   *string
}

type walletRecord struct {
	ID        string
	Type      int
	Name      string
	Addresses []accountRecord
	Damaged   bool
	Imported  bool
}

type settingRecord struct {
	Value string
}

type displayNamesRecord struct {
	Names map[string]string
}

type walletRepositoryImpl struct {
	store *badgerhold.Store
}

func NewWalletRepositoryImpl(store *badgerhold.Store) domain.WalletRepository {
	return walletRepositoryImpl{store}
}

func (r walletRepositoryImpl) LoadCollection(
	ctx context.Context,
) (*domain.WalletCollection, error) {
	var records []walletRecord
	if err := r.store.Find(&records, nil); err != nil {
		return nil, err
	}

	collection := domain.NewWalletCollection()
	for _, rec := range records {
		w := toWallet(rec)
		collection.Wallets[w.ID] = w
	}
	return collection, nil
}

// SaveCollection replaces all the stored wallets with those of the given
// collection in a single transaction.
func (r walletRepositoryImpl) SaveCollection(
	ctx context.Context, collection *domain.WalletCollection,
) error {
	return r.store.Badger().Update(func(tx *badger.Txn) error {
		var stored []walletRecord
		if err := r.store.TxFind(tx, &stored, nil); err != nil {
			return err
		}
		for _, rec := range stored {
			if _, ok := collection.Wallets[rec.ID]; ok {
				continue
			}
			if err := r.store.TxDelete(tx, rec.ID, walletRecord{}); err != nil {
				return err
			}
		}
		for _, w := range collection.Wallets {
			if err := r.store.TxUpsert(tx, w.ID, toWalletRecord(w)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r walletRepositoryImpl) LoadSelectedID(ctx context.Context) (string, error) {
	return r.getSetting(selectedWalletKey)
}

func (r walletRepositoryImpl) SaveSelectedID(
	ctx context.Context, walletID string,
) error {
	return r.store.Upsert(selectedWalletKey, settingRecord{walletID})
}

func (r walletRepositoryImpl) LoadCurrentAddress(ctx context.Context) (string, error) {
	return r.getSetting(currentAddressKey)
}

func (r walletRepositoryImpl) SaveCurrentAddress(
	ctx context.Context, addr string,
) error {
	return r.store.Upsert(currentAddressKey, settingRecord{addr})
}

func (r walletRepositoryImpl) LoadDisplayNames(
	ctx context.Context,
) (map[string]string, error) {
	var rec displayNamesRecord
	if err := r.store.Get(displayNamesKey, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	if rec.Names == nil {
		return map[string]string{}, nil
	}
	return rec.Names, nil
}

func (r walletRepositoryImpl) SaveDisplayNames(
	ctx context.Context, names map[string]string,
) error {
	return r.store.Upsert(displayNamesKey, displayNamesRecord{names})
}

func (r walletRepositoryImpl) getSetting(key string) (string, error) {
	var rec settingRecord
	if err := r.store.Get(key, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return rec.Value, nil
}

func toWalletRecord(w *domain.Wallet) walletRecord {
	accounts := make([]accountRecord, 0, len(w.Addresses))
	for _, a := range w.Addresses {
		accounts = append(accounts, accountRecord{
			Address: a.Address,
			Index:   a.Index,
			Label:   a.Label,
			Color:   a.Color,
			Visible: a.Visible,
			Image:   a.Image,
		})
	}
	return walletRecord{
		ID:        w.ID,
		Type:      int(w.Type),
		Name:      w.Name,
		Addresses: accounts,
		Damaged:   w.Damaged,
		Imported:  w.Imported,
	}
}

func toWallet(rec walletRecord) *domain.Wallet {
	accounts := make([]domain.Account, 0, len(rec.Addresses))
	for _, a := range rec.Addresses {
		accounts = append(accounts, domain.Account{
			Address: a.Address,
			Index:   a.Index,
			Label:   a.Label,
			Color:   a.Color,
			Visible: a.Visible,
			Image:   a.Image,
		})
	}
	return &domain.Wallet{
		ID:        rec.ID,
		Type:      domain.WalletType(rec.Type),
		Name:      rec.Name,
		Addresses: accounts,
		Damaged:   rec.Damaged,
		Imported:  rec.Imported,
	}
}
