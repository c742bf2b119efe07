package application

import "sync"

// walletLocker hands out one RWMutex per wallet id. Mutations of a wallet
// take the write lock, integrity probes the read one.
type walletLocker struct {
	lock    sync.Mutex
	mutexes map[string]*sync.RWMutex
}

func newWalletLocker() *walletLocker {
	return &walletLocker{mutexes: make(map[string]*sync.RWMutex)}
}

func (l *walletLocker) get(walletID string) *sync.RWMutex {
	l.lock.Lock()
	defer l.lock.Unlock()

	mu, ok := l.mutexes[walletID]
	if !ok {
		mu = &sync.RWMutex{}
		l.mutexes[walletID] = mu
	}
	return mu
}

func (l *walletLocker) Lock(walletID string) (unlock func()) {
	mu := l.get(walletID)
	mu.Lock()
	return mu.Unlock
}

func (l *walletLocker) RLock(walletID string) (unlock func()) {
	mu := l.get(walletID)
	mu.RLock()
	return mu.RUnlock
}
