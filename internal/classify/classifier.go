// internal/classify/classifier.go
package classify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// AccountInfoFetcher is the on-chain lookup the classifier depends on.
type AccountInfoFetcher interface {
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

type cacheEntry struct {
	isUserWallet bool
	checkedAt    time.Time
}

// Classifier decides whether an address is a human-controlled wallet or
// a program/pool account. Results are cached for a TTL; entries older
// than the TTL are treated as misses, so the periodic sweep is pure
// housekeeping.
type Classifier struct {
	lookup AccountInfoFetcher
	ttl    time.Duration
	clock  clockwork.Clock
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func New(lookup AccountInfoFetcher, ttl time.Duration, clock clockwork.Clock, logger *zap.Logger) *Classifier {
	return &Classifier{
		lookup: lookup,
		ttl:    ttl,
		clock:  clock,
		logger: logger.Named("classifier"),
		cache:  make(map[string]cacheEntry),
	}
}

// Classify reports whether the address belongs to a user wallet. A
// missing account or a plain system-owned account counts as a user
// wallet; executable accounts and program-owned accounts do not. On
// lookup failure it returns false: under-counting a trader is preferred
// over crediting volume to a pool.
func (c *Classifier) Classify(ctx context.Context, addr solana.PublicKey) bool {
	now := c.clock.Now()
	key := addr.String()

	c.mu.Lock()
	if entry, ok := c.cache[key]; ok && now.Sub(entry.checkedAt) < c.ttl {
		c.mu.Unlock()
		return entry.isUserWallet
	}
	c.mu.Unlock()

	isUser, err := c.classifyRemote(ctx, addr)
	if err != nil {
		c.logger.Warn("Account lookup failed, excluding wallet",
			zap.String("address", key),
			zap.Error(err))
		return false
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{isUserWallet: isUser, checkedAt: now}
	c.mu.Unlock()

	return isUser
}

func (c *Classifier) classifyRemote(ctx context.Context, addr solana.PublicKey) (bool, error) {
	result, err := c.lookup.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			// No on-chain account yet: a fresh user wallet.
			return true, nil
		}
		return false, err
	}
	if result == nil || result.Value == nil {
		return true, nil
	}

	account := result.Value
	if account.Executable {
		return false, nil
	}
	if !account.Owner.Equals(solana.SystemProgramID) {
		// Program-derived or pool account.
		return false, nil
	}
	return true, nil
}

// RunEvictionLoop sweeps entries older than 2×TTL until the context is
// cancelled.
func (c *Classifier) RunEvictionLoop(ctx context.Context) {
	ticker := c.clock.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.evictStale()
		}
	}
}

func (c *Classifier) evictStale() {
	now := c.clock.Now()
	cutoff := 2 * c.ttl

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.cache {
		if now.Sub(entry.checkedAt) >= cutoff {
			delete(c.cache, key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("Evicted stale classifications",
			zap.Int("removed", removed),
			zap.Int("remaining", len(c.cache)))
	}
}

// CacheSize returns the number of cached classifications.
func (c *Classifier) CacheSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
