// internal/ledger/ledger_test.go
package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLedger() *Ledger {
	return New(zap.NewNop())
}

func TestRecordTradeAccumulates(t *testing.T) {
	l := newTestLedger()
	now := time.Now()

	require.True(t, l.RecordTrade("walletA", 2.0, "sig1", now))
	require.True(t, l.RecordTrade("walletA", 3.5, "sig2", now.Add(time.Second)))

	winner, ok := l.Winner()
	require.True(t, ok)
	assert.Equal(t, "walletA", winner.Wallet)
	assert.InDelta(t, 5.5, winner.Volume, 1e-9)
	assert.Equal(t, 2, winner.Trades)
}

func TestDuplicateSignatureDropped(t *testing.T) {
	l := newTestLedger()
	now := time.Now()

	require.True(t, l.RecordTrade("walletA", 1.0, "sig1", now))
	require.False(t, l.RecordTrade("walletA", 1.0, "sig1", now))

	winner, ok := l.Winner()
	require.True(t, ok)
	assert.InDelta(t, 1.0, winner.Volume, 1e-9)
	assert.Equal(t, 1, winner.Trades)
}

func TestWinnerHighestVolume(t *testing.T) {
	l := newTestLedger()
	now := time.Now()

	l.RecordTrade("small", 1.0, "s1", now)
	l.RecordTrade("big", 4.0, "s2", now)
	l.RecordTrade("medium", 2.0, "s3", now)

	winner, ok := l.Winner()
	require.True(t, ok)
	assert.Equal(t, "big", winner.Wallet)
}

func TestWinnerTieBreaksToEarlierLastTrade(t *testing.T) {
	l := newTestLedger()
	now := time.Now()

	l.RecordTrade("late", 3.0, "s1", now.Add(time.Minute))
	l.RecordTrade("early", 3.0, "s2", now)

	winner, ok := l.Winner()
	require.True(t, ok)
	assert.Equal(t, "early", winner.Wallet)
}

func TestWinnerEmptyLedger(t *testing.T) {
	l := newTestLedger()
	_, ok := l.Winner()
	assert.False(t, ok)
}

func TestFrozenLedgerDropsTrades(t *testing.T) {
	l := newTestLedger()
	now := time.Now()

	l.RecordTrade("walletA", 1.0, "s1", now)
	l.Freeze()
	require.False(t, l.RecordTrade("walletB", 9.0, "s2", now))

	winner, ok := l.Winner()
	require.True(t, ok)
	assert.Equal(t, "walletA", winner.Wallet)

	l.Unfreeze()
	require.True(t, l.RecordTrade("walletB", 9.0, "s2", now))
}

func TestResetClearVolume(t *testing.T) {
	l := newTestLedger()
	now := time.Now()

	l.RecordTrade("walletA", 2.0, "s1", now)
	l.MarkExcluded()
	l.Freeze()

	l.Reset(true)

	assert.Equal(t, 0, l.Size())
	assert.Equal(t, uint64(0), l.Excluded())
	// Reset reopens the ledger and clears the signature history.
	require.True(t, l.RecordTrade("walletA", 1.0, "s1", now))
}

func TestResetKeepEntries(t *testing.T) {
	l := newTestLedger()
	now := time.Now()

	l.RecordTrade("walletA", 2.0, "s1", now)
	l.Reset(false)

	assert.Equal(t, 1, l.Size())
	_, ok := l.Winner()
	assert.False(t, ok, "zeroed entries must not qualify as winner")

	snap := l.Snapshot(10)
	require.Len(t, snap, 1)
	assert.Zero(t, snap[0].Volume)
	assert.Zero(t, snap[0].Trades)
}

func TestSnapshotOrderedAndLimited(t *testing.T) {
	l := newTestLedger()
	now := time.Now()

	l.RecordTrade("a", 1.0, "s1", now)
	l.RecordTrade("b", 3.0, "s2", now)
	l.RecordTrade("c", 2.0, "s3", now)

	snap := l.Snapshot(2)
	require.Len(t, snap, 2)
	assert.Equal(t, "b", snap[0].Wallet)
	assert.Equal(t, "c", snap[1].Wallet)
}
