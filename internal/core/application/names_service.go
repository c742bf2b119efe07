package application

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/vaultline/walletd/internal/core/domain"
	"github.com/vaultline/walletd/internal/core/ports"
	"github.com/vaultline/walletd/pkg/circuitbreaker"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"
)

// NameService keeps the display names of the visible accounts in sync with
// an external naming service.
type NameService interface {
	// Refresh resolves the names of all visible accounts and stores the
	// merged mapping as the display names of the wallet state. Lookup
	// failures never fail the refresh, the previous name is kept instead.
	Refresh(ctx context.Context) (map[string]string, error)
}

type nameService struct {
	walletSvc     WalletService
	resolver      ports.NameResolver
	lookupTimeout time.Duration
	limiter       ratelimit.Limiter
	breaker       *gobreaker.CircuitBreaker
	cache         *nameCache
}

func NewNameService(
	walletSvc WalletService,
	resolver ports.NameResolver,
	opts NameServiceOpts,
) NameService {
	lookupTimeout := opts.LookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = DefaultLookupTimeout
	}
	limiter := ratelimit.NewUnlimited()
	if opts.Rate > 0 {
		limiter = ratelimit.New(opts.Rate)
	}
	return &nameService{
		walletSvc:     walletSvc,
		resolver:      resolver,
		lookupTimeout: lookupTimeout,
		limiter:       limiter,
		breaker:       circuitbreaker.NewCircuitBreaker("name-resolver"),
		cache:         newNameCache(opts.CacheTTL),
	}
}

type lookupResult struct {
	name string
	err  error
}

func (s *nameService) Refresh(ctx context.Context) (map[string]string, error) {
	state := s.walletSvc.State()
	addresses := state.Collection.VisibleAddresses()
	results := make([]lookupResult, len(addresses))

	// Lookups don't share a cancellation, a failing one must not abort the
	// others.
	g := new(errgroup.Group)
	for i, addr := range addresses {
		i, addr := i, addr
		g.Go(func() error {
			name, err := s.lookup(ctx, addr)
			results[i] = lookupResult{name, err}
			return nil
		})
	}
	//nolint
	g.Wait()

	names := make(map[string]string)
	for i, addr := range addresses {
		res := results[i]
		prev, hasPrev := state.DisplayNames[addr]

		switch {
		case res.err == nil:
			if res.name != "" && !domain.SameAddress(res.name, addr) {
				names[addr] = res.name
			} else if hasPrev {
				names[addr] = prev
			}
		case errors.Is(res.err, ports.ErrNameNotFound):
		default:
			log.WithError(res.err).WithField("address", addr).Debug(
				"name lookup failed, keeping previous name",
			)
			if hasPrev {
				names[addr] = prev
			}
		}
	}

	if err := s.walletSvc.SetDisplayNames(ctx, names); err != nil {
		return names, err
	}
	return names, nil
}

// lookup resolves a single address going through the cache, the rate
// limiter and the circuit breaker. Names not found don't count as breaker
// failures.
func (s *nameService) lookup(ctx context.Context, addr string) (string, error) {
	if entry, ok := s.cache.get(addr); ok {
		return entry.name, entry.err
	}

	s.limiter.Take()

	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	var notFound bool
	res, err := s.breaker.Execute(func() (interface{}, error) {
		name, err := s.resolve(ctx, addr)
		if errors.Is(err, ports.ErrNameNotFound) {
			notFound = true
			return "", nil
		}
		return name, err
	})
	if err != nil {
		return "", err
	}
	if notFound {
		s.cache.set(addr, "", ports.ErrNameNotFound)
		return "", ports.ErrNameNotFound
	}

	name := res.(string)
	s.cache.set(addr, name, nil)
	return name, nil
}

func (s *nameService) resolve(ctx context.Context, addr string) (string, error) {
	ch := make(chan lookupResult, 1)
	go func() {
		name, err := s.resolver.Resolve(ctx, addr)
		ch <- lookupResult{name, err}
	}()

	select {
	case res := <-ch:
		return res.name, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type nameCacheEntry struct {
	name     string
	err      error
	expireAt time.Time
}

// nameCache memoizes names and not-found results for a fixed ttl.
type nameCache struct {
	ttl     time.Duration
	lock    sync.Mutex
	entries map[string]nameCacheEntry
}

func newNameCache(ttl time.Duration) *nameCache {
	return &nameCache{
		ttl:     ttl,
		entries: make(map[string]nameCacheEntry),
	}
}

func (c *nameCache) get(addr string) (nameCacheEntry, bool) {
	if c.ttl <= 0 {
		return nameCacheEntry{}, false
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	entry, ok := c.entries[addr]
	if !ok {
		return nameCacheEntry{}, false
	}
	if time.Now().After(entry.expireAt) {
		delete(c.entries, addr)
		return nameCacheEntry{}, false
	}
	return entry, true
}

func (c *nameCache) set(addr, name string, err error) {
	if c.ttl <= 0 {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.entries[addr] = nameCacheEntry{
		name:     name,
		err:      err,
		expireAt: time.Now().Add(c.ttl),
	}
}
