// internal/ledger/ledger.go
package ledger

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entry is one wallet's accumulated trading activity for the current
// round.
type Entry struct {
	Wallet    string
	Volume    float64 // SOL
	Trades    int
	LastTrade time.Time
}

// Ledger aggregates per-wallet trade volume for a single round. Volume
// only grows within a round; Reset is the only operation that lowers it.
type Ledger struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	seen     map[string]struct{} // processed tx signatures this round
	excluded uint64
	frozen   bool
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Ledger {
	return &Ledger{
		entries: make(map[string]*Entry),
		seen:    make(map[string]struct{}),
		logger:  logger.Named("ledger"),
	}
}

// RecordTrade adds a qualifying trade to the wallet's entry. It returns
// false when the trade was dropped: redelivered signature, or the
// ledger is frozen for winner determination.
func (l *Ledger) RecordTrade(wallet string, solAmount float64, signature string, ts time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.frozen {
		l.logger.Debug("Trade dropped, ledger frozen", zap.String("wallet", wallet))
		return false
	}
	if signature != "" {
		if _, dup := l.seen[signature]; dup {
			l.logger.Debug("Duplicate trade notification dropped",
				zap.String("signature", signature))
			return false
		}
		l.seen[signature] = struct{}{}
	}

	entry, ok := l.entries[wallet]
	if !ok {
		entry = &Entry{Wallet: wallet}
		l.entries[wallet] = entry
	}
	entry.Volume += solAmount
	entry.Trades++
	entry.LastTrade = ts

	return true
}

// MarkExcluded counts a trade attributed to a non-user wallet.
func (l *Ledger) MarkExcluded() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.excluded++
}

// Excluded returns the number of trades excluded this round.
func (l *Ledger) Excluded() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.excluded
}

// Winner returns the entry with the highest volume. Ties break to the
// wallet whose last trade is earliest, so the result does not depend on
// map iteration order.
func (l *Ledger) Winner() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var best *Entry
	for _, e := range l.entries {
		if e.Volume <= 0 {
			continue
		}
		if best == nil ||
			e.Volume > best.Volume ||
			(e.Volume == best.Volume && e.LastTrade.Before(best.LastTrade)) {
			best = e
		}
	}
	if best == nil {
		return Entry{}, false
	}
	return *best, true
}

// Freeze closes the ledger to new recordings for the round-end
// settlement window. Winner determination and Reset happen while
// frozen, so no trade can land between the final read and the reset.
func (l *Ledger) Freeze() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frozen = true
}

// Unfreeze reopens a frozen ledger without clearing it, used when a
// paused round resumes with its entries intact.
func (l *Ledger) Unfreeze() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frozen = false
}

// Reset prepares the ledger for the next round and reopens it. With
// clearVolume the whole map is dropped; otherwise entries survive but
// round-scoped counters are zeroed.
func (l *Ledger) Reset(clearVolume bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if clearVolume {
		l.entries = make(map[string]*Entry)
	} else {
		for _, e := range l.entries {
			e.Volume = 0
			e.Trades = 0
		}
	}
	l.seen = make(map[string]struct{})
	l.excluded = 0
	l.frozen = false
}

// Snapshot returns up to n entries ordered by volume descending, for
// the status endpoint.
func (l *Ledger) Snapshot(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Volume > out[j].Volume })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Size returns the number of wallets tracked this round.
func (l *Ledger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
