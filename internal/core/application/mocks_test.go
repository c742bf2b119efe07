package application_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/vaultline/walletd/internal/core/domain"
	"github.com/vaultline/walletd/internal/core/ports"
	inmemorykeystore "github.com/vaultline/walletd/internal/infrastructure/keystore/inmemory"
)

// **** Key deriver ****

type mockKeyDeriver struct {
	mock.Mock
}

func (m *mockKeyDeriver) Derive(
	ctx context.Context, walletID string, index uint32,
) (*ports.Keypair, error) {
	args := m.Called(ctx, walletID, index)

	var res *ports.Keypair
	if a := args.Get(0); a != nil {
		res = a.(*ports.Keypair)
	}
	return res, args.Error(1)
}

func (m *mockKeyDeriver) DeriveFromSecret(
	secret []byte, index uint32,
) (*ports.Keypair, error) {
	args := m.Called(secret, index)

	var res *ports.Keypair
	if a := args.Get(0); a != nil {
		res = a.(*ports.Keypair)
	}
	return res, args.Error(1)
}

// **** Name resolver ****

type mockNameResolver struct {
	mock.Mock
}

func (m *mockNameResolver) Resolve(ctx context.Context, addr string) (string, error) {
	args := m.Called(ctx, addr)
	return args.String(0), args.Error(1)
}

// **** Telemetry ****

type mockTelemetry struct {
	mock.Mock
}

func newMockTelemetry() *mockTelemetry {
	m := &mockTelemetry{}
	m.On("ReportAnomaly", mock.Anything, mock.Anything).Return()
	return m
}

func (m *mockTelemetry) ReportAnomaly(message string, fields map[string]interface{}) {
	m.Called(message, fields)
}

// **** Secure key store ****

// faultyKeystore is an in-memory key store whose operations can be made to
// fail or hang per key.
type faultyKeystore struct {
	*inmemorykeystore.Keystore

	lock     sync.RWMutex
	writeErr error
	hasErrs  map[string]error
	hanging  map[string]bool
	blocked  map[string]*blockedKey
}

// blockedKey holds the Has calls for a key until released.
type blockedKey struct {
	started  chan struct{}
	once     sync.Once
	released chan struct{}
}

func newFaultyKeystore() *faultyKeystore {
	return &faultyKeystore{
		Keystore: inmemorykeystore.NewKeystore(),
		hasErrs:  make(map[string]error),
		hanging:  make(map[string]bool),
		blocked:  make(map[string]*blockedKey),
	}
}

func (k *faultyKeystore) failWrites(err error) {
	k.lock.Lock()
	defer k.lock.Unlock()
	k.writeErr = err
}

func (k *faultyKeystore) failHas(key string, err error) {
	k.lock.Lock()
	defer k.lock.Unlock()
	k.hasErrs[key] = err
}

func (k *faultyKeystore) hang(key string) {
	k.lock.Lock()
	defer k.lock.Unlock()
	k.hanging[key] = true
}

// block makes Has of key wait for release. started is closed once the first
// call is waiting.
func (k *faultyKeystore) block(key string) (started <-chan struct{}, release func()) {
	k.lock.Lock()
	defer k.lock.Unlock()

	b := &blockedKey{
		started:  make(chan struct{}),
		released: make(chan struct{}),
	}
	k.blocked[key] = b
	return b.started, func() { close(b.released) }
}

func (k *faultyKeystore) Has(ctx context.Context, key string) (bool, error) {
	k.lock.RLock()
	err, hanging, blocked := k.hasErrs[key], k.hanging[key], k.blocked[key]
	k.lock.RUnlock()

	if blocked != nil {
		blocked.once.Do(func() { close(blocked.started) })
		select {
		case <-blocked.released:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if hanging {
		<-ctx.Done()
		return false, ctx.Err()
	}
	if err != nil {
		return false, err
	}
	return k.Keystore.Has(ctx, key)
}

func (k *faultyKeystore) Write(ctx context.Context, key string, value []byte) error {
	k.lock.RLock()
	err := k.writeErr
	k.lock.RUnlock()

	if err != nil {
		return err
	}
	return k.Keystore.Write(ctx, key, value)
}

// **** Wallet repository ****

type faultyRepository struct {
	domain.WalletRepository

	lock              sync.RWMutex
	saveCollectionErr error
	saveSelectedErr   error
}

func (r *faultyRepository) failSaveCollection(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.saveCollectionErr = err
}

func (r *faultyRepository) failSaveSelected(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.saveSelectedErr = err
}

func (r *faultyRepository) SaveCollection(
	ctx context.Context, collection *domain.WalletCollection,
) error {
	r.lock.RLock()
	err := r.saveCollectionErr
	r.lock.RUnlock()

	if err != nil {
		return err
	}
	return r.WalletRepository.SaveCollection(ctx, collection)
}

func (r *faultyRepository) SaveSelectedID(ctx context.Context, walletID string) error {
	r.lock.RLock()
	err := r.saveSelectedErr
	r.lock.RUnlock()

	if err != nil {
		return err
	}
	return r.WalletRepository.SaveSelectedID(ctx, walletID)
}
