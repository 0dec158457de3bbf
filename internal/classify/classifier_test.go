// internal/classify/classifier_test.go
package classify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLookup struct {
	result *rpc.GetAccountInfoResult
	err    error
	calls  int
}

func (f *fakeLookup) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	f.calls++
	return f.result, f.err
}

func systemOwnedAccount() *rpc.GetAccountInfoResult {
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{Owner: solana.SystemProgramID},
	}
}

func TestClassifySystemOwnedIsUser(t *testing.T) {
	lookup := &fakeLookup{result: systemOwnedAccount()}
	c := New(lookup, time.Minute, clockwork.NewFakeClock(), zap.NewNop())

	assert.True(t, c.Classify(context.Background(), solana.NewWallet().PublicKey()))
}

func TestClassifyMissingAccountIsUser(t *testing.T) {
	lookup := &fakeLookup{err: rpc.ErrNotFound}
	c := New(lookup, time.Minute, clockwork.NewFakeClock(), zap.NewNop())

	assert.True(t, c.Classify(context.Background(), solana.NewWallet().PublicKey()))
}

func TestClassifyExecutableExcluded(t *testing.T) {
	lookup := &fakeLookup{result: &rpc.GetAccountInfoResult{
		Value: &rpc.Account{Owner: solana.SystemProgramID, Executable: true},
	}}
	c := New(lookup, time.Minute, clockwork.NewFakeClock(), zap.NewNop())

	assert.False(t, c.Classify(context.Background(), solana.NewWallet().PublicKey()))
}

func TestClassifyProgramOwnedExcluded(t *testing.T) {
	lookup := &fakeLookup{result: &rpc.GetAccountInfoResult{
		Value: &rpc.Account{Owner: solana.TokenProgramID},
	}}
	c := New(lookup, time.Minute, clockwork.NewFakeClock(), zap.NewNop())

	assert.False(t, c.Classify(context.Background(), solana.NewWallet().PublicKey()))
}

func TestClassifyLookupErrorExcludesWithoutCaching(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("rpc down")}
	c := New(lookup, time.Minute, clockwork.NewFakeClock(), zap.NewNop())
	addr := solana.NewWallet().PublicKey()

	assert.False(t, c.Classify(context.Background(), addr))
	assert.Equal(t, 0, c.CacheSize())

	// A later lookup succeeds once the endpoint recovers.
	lookup.err = rpc.ErrNotFound
	assert.True(t, c.Classify(context.Background(), addr))
}

func TestClassifyCachedWithinTTL(t *testing.T) {
	lookup := &fakeLookup{result: systemOwnedAccount()}
	clock := clockwork.NewFakeClock()
	c := New(lookup, time.Minute, clock, zap.NewNop())
	addr := solana.NewWallet().PublicKey()

	assert.True(t, c.Classify(context.Background(), addr))
	assert.True(t, c.Classify(context.Background(), addr))
	assert.Equal(t, 1, lookup.calls)

	clock.Advance(2 * time.Minute)
	assert.True(t, c.Classify(context.Background(), addr))
	assert.Equal(t, 2, lookup.calls, "expired entry must trigger a fresh lookup")
}

func TestEvictStale(t *testing.T) {
	lookup := &fakeLookup{result: systemOwnedAccount()}
	clock := clockwork.NewFakeClock()
	c := New(lookup, time.Minute, clock, zap.NewNop())

	c.Classify(context.Background(), solana.NewWallet().PublicKey())
	require.Equal(t, 1, c.CacheSize())

	clock.Advance(time.Minute)
	c.evictStale()
	assert.Equal(t, 1, c.CacheSize(), "entries younger than 2x TTL stay")

	clock.Advance(time.Minute)
	c.evictStale()
	assert.Equal(t, 0, c.CacheSize())
}
