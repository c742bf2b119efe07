package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/vaultline/walletd/internal/core/domain"
	"github.com/vaultline/walletd/internal/core/ports"
)

// WalletService is the single owner of the wallet model. Every mutation goes
// through it and is persisted before being applied in memory, subscribers are
// notified with a fresh snapshot after each change.
type WalletService interface {
	Load(ctx context.Context) (WalletsState, error)
	EnsureSelectedAddressVisible(ctx context.Context) error
	SetSelected(ctx context.Context, walletID string) error
	SetSelectedAddress(ctx context.Context, addr string) error
	AddAccount(
		ctx context.Context, walletID string, color int, label string,
	) (*domain.Account, error)
	UpdateAccount(
		ctx context.Context, walletID, addr string, patch AccountPatch,
	) error
	ImportWallet(ctx context.Context, opts ImportWalletOpts) (*domain.Wallet, error)
	MarkDamaged(ctx context.Context, walletID string) error
	SetDisplayNames(ctx context.Context, names map[string]string) error
	// InspectWallet calls fn with a copy of the wallet while holding its read
	// lock, so that no mutation of the same wallet can happen meanwhile.
	InspectWallet(
		ctx context.Context, walletID string, fn func(w *domain.Wallet) error,
	) error
	GetCollection() *domain.WalletCollection
	State() WalletsState
	IsCreatingAccount() bool
	Subscribe(listener func(WalletsState)) (unsubscribe func())
}

type walletService struct {
	repo      domain.WalletRepository
	keystore  ports.SecureKeyStore
	deriver   ports.KeyDeriver
	telemetry ports.Telemetry

	lock           sync.RWMutex
	collection     *domain.WalletCollection
	currentAddress string
	displayNames   map[string]string

	locker          *walletLocker
	creatingAccount atomic.Int32

	listenersLock  sync.Mutex
	listeners      map[int]func(WalletsState)
	nextListenerID int
}

// NewWalletService returns a WalletService with an empty state, Load must be
// called to read the persisted one.
func NewWalletService(
	repo domain.WalletRepository,
	keystore ports.SecureKeyStore,
	deriver ports.KeyDeriver,
	telemetry ports.Telemetry,
) WalletService {
	if telemetry == nil {
		telemetry = noopTelemetry{}
	}
	return newWalletService(repo, keystore, deriver, telemetry)
}

func newWalletService(
	repo domain.WalletRepository,
	keystore ports.SecureKeyStore,
	deriver ports.KeyDeriver,
	telemetry ports.Telemetry,
) *walletService {
	return &walletService{
		repo:         repo,
		keystore:     keystore,
		deriver:      deriver,
		telemetry:    telemetry,
		collection:   domain.NewWalletCollection(),
		displayNames: make(map[string]string),
		locker:       newWalletLocker(),
		listeners:    make(map[int]func(WalletsState)),
	}
}

func (s *walletService) Load(ctx context.Context) (WalletsState, error) {
	collection, err := s.repo.LoadCollection(ctx)
	if err != nil {
		return WalletsState{}, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	selectedID, err := s.repo.LoadSelectedID(ctx)
	if err != nil {
		return WalletsState{}, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	currentAddress, err := s.repo.LoadCurrentAddress(ctx)
	if err != nil {
		return WalletsState{}, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	displayNames, err := s.repo.LoadDisplayNames(ctx)
	if err != nil {
		return WalletsState{}, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}

	if collection == nil {
		collection = domain.NewWalletCollection()
	}
	collection.Selected = selectedID
	if displayNames == nil {
		displayNames = make(map[string]string)
	}

	s.lock.Lock()
	s.collection = collection
	s.currentAddress = currentAddress
	s.displayNames = displayNames
	s.lock.Unlock()

	if collection.IsEmpty() {
		log.Debug("no wallets found")
		s.notify()
		return s.State(), domain.ErrNoWallets
	}

	var legacyAddress string
	if _, ok := collection.SelectedWallet(); !ok || currentAddress == "" {
		legacyAddress = s.readLegacyAddress(ctx)
	}

	var visibilityErr error
	changed, err := s.commit(ctx, func(d *walletsDraft) error {
		if _, ok := d.collection.SelectedWallet(); !ok {
			w, ok := d.collection.FindWalletByAddress(legacyAddress)
			if !ok {
				return domain.ErrInconsistentSelection
			}
			log.WithFields(log.Fields{
				"previous": selectedID,
				"wallet":   w.ID,
			}).Info("recovered selected wallet from legacy address entry")
			d.collection.Selected = w.ID
		}
		if d.currentAddress == "" {
			d.currentAddress = legacyAddress
		}
		visibilityErr = ensureSelectedAddressVisible(d)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInconsistentSelection) {
			log.WithField("selected", selectedID).Error(
				"selected wallet cannot be resolved, wallets must be re-imported",
			)
			s.telemetry.ReportAnomaly(AnomalyInconsistentSelected, map[string]interface{}{
				"selected": selectedID,
				"wallets":  len(collection.Wallets),
			})
		}
		s.notify()
		return s.State(), err
	}

	if visibilityErr != nil {
		log.WithError(visibilityErr).Warn("selected wallet has no visible account")
		s.telemetry.ReportAnomaly(AnomalyNoVisibleAccount, map[string]interface{}{
			"wallet": s.GetCollection().Selected,
		})
	}
	if !changed {
		s.notify()
	}
	return s.State(), nil
}

func (s *walletService) EnsureSelectedAddressVisible(ctx context.Context) error {
	_, err := s.commit(ctx, func(d *walletsDraft) error {
		if d.collection.IsEmpty() {
			return domain.ErrNoWallets
		}
		return ensureSelectedAddressVisible(d)
	})
	return err
}

func (s *walletService) SetSelected(ctx context.Context, walletID string) error {
	_, err := s.commit(ctx, func(d *walletsDraft) error {
		if _, ok := d.collection.Wallet(walletID); !ok {
			return domain.ErrWalletNotFound
		}
		d.collection.Selected = walletID
		return ensureSelectedAddressVisible(d)
	})
	return err
}

func (s *walletService) SetSelectedAddress(ctx context.Context, addr string) error {
	_, err := s.commit(ctx, func(d *walletsDraft) error {
		w, ok := d.collection.SelectedWallet()
		if !ok {
			return domain.ErrInconsistentSelection
		}
		account, ok := w.VisibleAccount(addr)
		if !ok {
			return domain.ErrAccountNotFound
		}
		d.currentAddress = account.Address
		return nil
	})
	return err
}

func (s *walletService) AddAccount(
	ctx context.Context, walletID string, color int, label string,
) (*domain.Account, error) {
	s.beginAccountCreation()
	defer s.endAccountCreation()

	unlock := s.locker.Lock(walletID)
	defer unlock()

	w, ok := s.wallet(walletID)
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	if w.IsReadOnly() {
		return nil, domain.ErrWalletReadOnly
	}
	if w.Damaged {
		return nil, domain.ErrWalletDamaged
	}

	index := w.NextIndex()
	keypair, err := s.deriver.Derive(ctx, walletID, index)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDerivationFailure, err)
	}
	account, err := domain.NewAccount(keypair.Address, index, color, label)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDerivationFailure, err)
	}
	if w.HasAddress(account.Address) {
		return nil, domain.ErrDuplicateAccount
	}

	if err := s.writeSecret(
		ctx, domain.PrivateKeyKey(account.Address), privateKeyHex(keypair),
	); err != nil {
		return nil, err
	}

	if _, err := s.commit(ctx, func(d *walletsDraft) error {
		w, ok := d.collection.Wallet(walletID)
		if !ok {
			return domain.ErrWalletNotFound
		}
		if err := w.AddAccount(*account); err != nil {
			return err
		}
		d.collection.Selected = walletID
		d.currentAddress = account.Address
		return nil
	}); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"wallet":  walletID,
		"index":   index,
		"address": account.Address,
	}).Info("account added")
	return account, nil
}

func (s *walletService) UpdateAccount(
	ctx context.Context, walletID, addr string, patch AccountPatch,
) error {
	unlock := s.locker.Lock(walletID)
	defer unlock()

	_, err := s.commit(ctx, func(d *walletsDraft) error {
		w, ok := d.collection.Wallet(walletID)
		if !ok {
			return domain.ErrWalletNotFound
		}
		account, ok := w.Account(addr)
		if !ok {
			return domain.ErrAccountNotFound
		}

		if patch.Label != nil {
			account.Label = *patch.Label
		}
		if patch.Color != nil {
			account.Color = *patch.Color
		}
		if patch.Visible != nil {
			if !*patch.Visible && account.Visible && w.CountVisible() <= 1 {
				return domain.ErrNoVisibleAccount
			}
			account.Visible = *patch.Visible
		}

		if d.collection.Selected == walletID {
			return ensureSelectedAddressVisible(d)
		}
		return nil
	})
	return err
}

func (s *walletService) ImportWallet(
	ctx context.Context, opts ImportWalletOpts,
) (*domain.Wallet, error) {
	input := strings.TrimSpace(opts.Input)
	walletType, err := domain.IdentifyWalletType(input)
	if err != nil {
		return nil, err
	}

	if walletType == domain.WalletTypeReadOnly {
		account, err := domain.NewAccount(input, 0, opts.Color, opts.Label)
		if err != nil {
			return nil, err
		}
		return s.addWallet(ctx, walletType, opts, *account, nil)
	}

	secret := normalizeSecret(walletType, input)
	keypair, err := s.deriver.DeriveFromSecret(secret, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDerivationFailure, err)
	}
	account, err := domain.NewAccount(keypair.Address, 0, opts.Color, opts.Label)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDerivationFailure, err)
	}

	if existing, ok := s.GetCollection().FindWalletByAddress(account.Address); ok {
		if !existing.Damaged || existing.Type != walletType {
			return nil, domain.ErrDuplicateAccount
		}
		return s.restoreWallet(ctx, existing.ID, secret)
	}

	return s.addWallet(ctx, walletType, opts, *account, func(walletID string) error {
		if err := s.writeSecret(ctx, domain.SeedPhraseKey(walletID), secret); err != nil {
			return err
		}
		return s.writeSecret(
			ctx, domain.PrivateKeyKey(account.Address), privateKeyHex(keypair),
		)
	})
}

func (s *walletService) MarkDamaged(ctx context.Context, walletID string) error {
	unlock := s.locker.Lock(walletID)
	defer unlock()

	var noCandidate bool
	changed, err := s.commit(ctx, func(d *walletsDraft) error {
		w, ok := d.collection.Wallet(walletID)
		if !ok {
			return domain.ErrWalletNotFound
		}
		// A wallet selected while already damaged stays selected.
		if w.Damaged {
			return nil
		}
		w.Damaged = true

		if d.collection.Selected != walletID {
			return nil
		}
		candidate, ok := d.collection.ReselectCandidate(walletID)
		if !ok {
			noCandidate = true
			return nil
		}
		account, _ := candidate.FirstVisible()
		d.collection.Selected = candidate.ID
		d.currentAddress = account.Address
		return nil
	})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	log.WithField("wallet", walletID).Warn("wallet marked as damaged")
	if noCandidate {
		log.WithField("wallet", walletID).Warn(
			"damaged wallet is selected and no healthy wallet is available",
		)
		s.telemetry.ReportAnomaly(AnomalyNoHealthyWallet, map[string]interface{}{
			"wallet": walletID,
		})
	}
	return nil
}

func (s *walletService) SetDisplayNames(
	ctx context.Context, names map[string]string,
) error {
	_, err := s.commit(ctx, func(d *walletsDraft) error {
		d.displayNames = copyNames(names)
		return nil
	})
	return err
}

func (s *walletService) InspectWallet(
	ctx context.Context, walletID string, fn func(w *domain.Wallet) error,
) error {
	unlock := s.locker.RLock(walletID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	w, ok := s.wallet(walletID)
	if !ok {
		return domain.ErrWalletNotFound
	}
	return fn(w)
}

func (s *walletService) GetCollection() *domain.WalletCollection {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.collection.Clone()
}

func (s *walletService) State() WalletsState {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return WalletsState{
		Collection:        s.collection.Clone(),
		CurrentAddress:    s.currentAddress,
		DisplayNames:      copyNames(s.displayNames),
		IsCreatingAccount: s.IsCreatingAccount(),
	}
}

func (s *walletService) IsCreatingAccount() bool {
	return s.creatingAccount.Load() > 0
}

func (s *walletService) Subscribe(listener func(WalletsState)) func() {
	s.listenersLock.Lock()
	defer s.listenersLock.Unlock()

	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = listener

	return func() {
		s.listenersLock.Lock()
		defer s.listenersLock.Unlock()
		delete(s.listeners, id)
	}
}

// addWallet commits a brand new wallet made of the given account. The
// optional writeSecrets is called with the new wallet id before touching the
// metadata.
func (s *walletService) addWallet(
	ctx context.Context,
	walletType domain.WalletType,
	opts ImportWalletOpts,
	account domain.Account,
	writeSecrets func(walletID string) error,
) (*domain.Wallet, error) {
	if _, ok := s.GetCollection().FindWalletByAddress(account.Address); ok {
		return nil, domain.ErrDuplicateAccount
	}

	walletID := walletIDPrefix + uuid.New().String()
	unlock := s.locker.Lock(walletID)
	defer unlock()

	if writeSecrets != nil {
		if err := writeSecrets(walletID); err != nil {
			return nil, err
		}
	}

	wallet := &domain.Wallet{
		ID:        walletID,
		Type:      walletType,
		Name:      opts.Name,
		Addresses: []domain.Account{account},
		Imported:  opts.Imported,
	}
	if _, err := s.commit(ctx, func(d *walletsDraft) error {
		if _, ok := d.collection.FindWalletByAddress(account.Address); ok {
			return domain.ErrDuplicateAccount
		}
		d.collection.Wallets[walletID] = wallet.Clone()
		d.collection.Selected = walletID
		d.currentAddress = account.Address
		return nil
	}); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"wallet": walletID,
		"type":   walletType,
	}).Info("wallet imported")
	return wallet, nil
}

// restoreWallet rewrites all the secrets of a damaged wallet from the given
// one and clears its damaged flag. Every account must be re-derivable from
// the secret.
func (s *walletService) restoreWallet(
	ctx context.Context, walletID string, secret []byte,
) (*domain.Wallet, error) {
	unlock := s.locker.Lock(walletID)
	defer unlock()

	w, ok := s.wallet(walletID)
	if !ok {
		return nil, domain.ErrWalletNotFound
	}

	keypairs := make([]*ports.Keypair, 0, len(w.Addresses))
	for _, account := range w.Addresses {
		keypair, err := s.deriver.DeriveFromSecret(secret, account.Index)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrDerivationFailure, err)
		}
		if !domain.SameAddress(keypair.Address, account.Address) {
			return nil, fmt.Errorf(
				"%w: account %d does not match the imported secret",
				domain.ErrDerivationFailure, account.Index,
			)
		}
		keypairs = append(keypairs, keypair)
	}

	// A seed still in place must be the imported one, it is never replaced.
	seedKey := domain.SeedPhraseKey(walletID)
	stored, err := s.keystore.Read(ctx, seedKey)
	switch {
	case err == nil:
		if !bytes.Equal(normalizeSecret(w.Type, string(stored)), secret) {
			return nil, domain.ErrSecretMismatch
		}
	case errors.Is(err, ports.ErrSecretNotFound):
		if err := s.writeSecret(ctx, seedKey, secret); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	for i, keypair := range keypairs {
		key := domain.PrivateKeyKey(w.Addresses[i].Address)
		if err := s.writeSecret(ctx, key, privateKeyHex(keypair)); err != nil {
			return nil, err
		}
	}

	var restored *domain.Wallet
	if _, err := s.commit(ctx, func(d *walletsDraft) error {
		w, ok := d.collection.Wallet(walletID)
		if !ok {
			return domain.ErrWalletNotFound
		}
		w.Damaged = false
		d.collection.Selected = walletID
		restored = w.Clone()
		return ensureSelectedAddressVisible(d)
	}); err != nil {
		return nil, err
	}

	log.WithField("wallet", walletID).Info("damaged wallet restored")
	return restored, nil
}

type walletsDraft struct {
	collection     *domain.WalletCollection
	currentAddress string
	displayNames   map[string]string
}

// commit applies mutate to a copy of the state, persists whatever changed
// and only then swaps the in-memory state. On any error the state is left
// untouched and the repository is rolled back best-effort.
func (s *walletService) commit(
	ctx context.Context, mutate func(d *walletsDraft) error,
) (bool, error) {
	changed, err := func() (bool, error) {
		s.lock.Lock()
		defer s.lock.Unlock()

		prev, next := s.draft(), s.draft()
		if err := mutate(next); err != nil {
			return false, err
		}

		changed, err := s.persist(ctx, prev, next)
		if err != nil {
			return false, err
		}
		if changed {
			s.collection = next.collection
			s.currentAddress = next.currentAddress
			s.displayNames = next.displayNames
		}
		return changed, nil
	}()
	if err != nil {
		return false, err
	}

	if changed {
		s.notify()
	}
	return changed, nil
}

func (s *walletService) draft() *walletsDraft {
	return &walletsDraft{
		collection:     s.collection.Clone(),
		currentAddress: s.currentAddress,
		displayNames:   copyNames(s.displayNames),
	}
}

type persistStep struct {
	name   string
	apply  func(ctx context.Context) error
	revert func(ctx context.Context) error
}

func (s *walletService) persist(
	ctx context.Context, prev, next *walletsDraft,
) (bool, error) {
	steps := make([]persistStep, 0, 4)
	if !reflect.DeepEqual(prev.collection.Wallets, next.collection.Wallets) {
		steps = append(steps, persistStep{
			name: "wallet collection",
			apply: func(ctx context.Context) error {
				return s.repo.SaveCollection(ctx, next.collection)
			},
			revert: func(ctx context.Context) error {
				return s.repo.SaveCollection(ctx, prev.collection)
			},
		})
	}
	if prev.collection.Selected != next.collection.Selected {
		steps = append(steps, persistStep{
			name: "selected wallet",
			apply: func(ctx context.Context) error {
				return s.repo.SaveSelectedID(ctx, next.collection.Selected)
			},
			revert: func(ctx context.Context) error {
				return s.repo.SaveSelectedID(ctx, prev.collection.Selected)
			},
		})
	}
	if prev.currentAddress != next.currentAddress {
		steps = append(steps, persistStep{
			name: "current address",
			apply: func(ctx context.Context) error {
				return s.repo.SaveCurrentAddress(ctx, next.currentAddress)
			},
			revert: func(ctx context.Context) error {
				return s.repo.SaveCurrentAddress(ctx, prev.currentAddress)
			},
		})
	}
	if !reflect.DeepEqual(prev.displayNames, next.displayNames) {
		steps = append(steps, persistStep{
			name: "display names",
			apply: func(ctx context.Context) error {
				return s.repo.SaveDisplayNames(ctx, next.displayNames)
			},
			revert: func(ctx context.Context) error {
				return s.repo.SaveDisplayNames(ctx, prev.displayNames)
			},
		})
	}

	for i, step := range steps {
		if err := step.apply(ctx); err != nil {
			rollback(ctx, steps[:i])
			return false, fmt.Errorf(
				"%w: failed to persist %s: %w", domain.ErrStoreWrite, step.name, err,
			)
		}
	}
	return len(steps) > 0, nil
}

func rollback(ctx context.Context, steps []persistStep) {
	ctx = context.WithoutCancel(ctx)
	for i := len(steps) - 1; i >= 0; i-- {
		if err := steps[i].revert(ctx); err != nil {
			log.WithError(err).Warnf("failed to roll back %s", steps[i].name)
		}
	}
}

func (s *walletService) notify() {
	s.listenersLock.Lock()
	listeners := make([]func(WalletsState), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersLock.Unlock()

	if len(listeners) <= 0 {
		return
	}
	state := s.State()
	for _, l := range listeners {
		l(state)
	}
}

func (s *walletService) beginAccountCreation() {
	s.creatingAccount.Add(1)
	s.notify()
}

func (s *walletService) endAccountCreation() {
	s.creatingAccount.Add(-1)
	s.notify()
}

func (s *walletService) wallet(walletID string) (*domain.Wallet, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	w, ok := s.collection.Wallet(walletID)
	if !ok {
		return nil, false
	}
	return w.Clone(), true
}

func (s *walletService) writeSecret(
	ctx context.Context, key string, value []byte,
) error {
	if err := s.keystore.Write(ctx, key, value); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

func (s *walletService) readLegacyAddress(ctx context.Context) string {
	value, err := s.keystore.Read(ctx, domain.LegacyAddressKey)
	if err != nil {
		if !errors.Is(err, ports.ErrSecretNotFound) {
			log.WithError(err).Warn("failed to read legacy address entry")
		}
		return ""
	}
	addr, err := domain.ChecksumAddress(strings.TrimSpace(string(value)))
	if err != nil {
		log.WithError(err).Warn("legacy address entry is malformed")
		return ""
	}
	return addr
}

// ensureSelectedAddressVisible moves the current address to the first
// visible account of the selected wallet unless it already is a visible one.
func ensureSelectedAddressVisible(d *walletsDraft) error {
	w, ok := d.collection.SelectedWallet()
	if !ok {
		return domain.ErrInconsistentSelection
	}
	if account, ok := w.VisibleAccount(d.currentAddress); ok {
		d.currentAddress = account.Address
		return nil
	}
	account, ok := w.FirstVisible()
	if !ok {
		return domain.ErrNoVisibleAccount
	}
	d.currentAddress = account.Address
	return nil
}

func normalizeSecret(walletType domain.WalletType, input string) []byte {
	if walletType == domain.WalletTypeStandard {
		return []byte(strings.Join(strings.Fields(strings.ToLower(input)), " "))
	}
	return []byte(strings.ToLower(strings.TrimPrefix(input, "0x")))
}

func privateKeyHex(keypair *ports.Keypair) []byte {
	return []byte(hexutil.Encode(keypair.PrivateKey))
}

func copyNames(names map[string]string) map[string]string {
	c := make(map[string]string, len(names))
	for k, v := range names {
		c[k] = v
	}
	return c
}

type noopTelemetry struct{}

func (noopTelemetry) ReportAnomaly(string, map[string]interface{}) {}
