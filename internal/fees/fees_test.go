// internal/fees/fees_test.go
package fees

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/volumewars/volumewars-bot/internal/wallet"
)

// fakeChain satisfies Chain with scripted balances and per-call send
// outcomes.
type fakeChain struct {
	balances []uint64 // consumed per GetBalance call
	balIdx   int
	balErr   error

	sendErrs []error // outcome per SendAndConfirm call, nil past the end
	sent     int
}

func (f *fakeChain) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	if f.balErr != nil {
		return 0, f.balErr
	}
	if f.balIdx >= len(f.balances) {
		return 0, errors.New("no scripted balance left")
	}
	b := f.balances[f.balIdx]
	f.balIdx++
	return b, nil
}

func (f *fakeChain) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}

func (f *fakeChain) SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	call := f.sent
	f.sent++
	if call < len(f.sendErrs) && f.sendErrs[call] != nil {
		return solana.Signature{}, f.sendErrs[call]
	}
	var sig solana.Signature
	sig[0] = byte(call + 1)
	return sig, nil
}

func testWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.New(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	return w
}

func defaultShares() Shares {
	return Shares{TreasuryPct: 70, WinnerPct: 15, SeedPct: 5, BuybackPct: 10}
}

func newTestDistributor(chain Chain, creator *wallet.Wallet) *Distributor {
	return NewDistributor(chain, creator,
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		defaultShares(), 0.001, 0.02, zap.NewNop())
}

func TestSplitPercentages(t *testing.T) {
	d := newTestDistributor(&fakeChain{}, nil)

	dist := d.Split(10)
	assert.InDelta(t, 7.0, dist.TreasuryAmount, 1e-9)
	assert.InDelta(t, 1.5, dist.WinnerAmount, 1e-9)
	assert.InDelta(t, 0.5, dist.NextRoundSeedAmount, 1e-9)
	assert.InDelta(t, 0.98, dist.BuybackAmount, 1e-9)
}

func TestSplitBuybackReserveFloorsAtZero(t *testing.T) {
	d := newTestDistributor(&fakeChain{}, nil)

	dist := d.Split(0.1)
	assert.Zero(t, dist.BuybackAmount)
	assert.InDelta(t, 0.07, dist.TreasuryAmount, 1e-9)
}

func TestDistributeExecutesBothTransfers(t *testing.T) {
	chain := &fakeChain{}
	d := newTestDistributor(chain, testWallet(t))

	dist := d.Distribute(context.Background(), 10)
	require.True(t, dist.Success)
	assert.Equal(t, 2, chain.sent)
	assert.Contains(t, dist.Signatures, "treasury")
	assert.Contains(t, dist.Signatures, "next_round_seed")
}

func TestDistributeAbortsOnFirstFailure(t *testing.T) {
	chain := &fakeChain{sendErrs: []error{nil, errors.New("blockhash expired")}}
	d := newTestDistributor(chain, testWallet(t))

	dist := d.Distribute(context.Background(), 10)
	require.False(t, dist.Success)
	assert.Contains(t, dist.Err, "next_round_seed")
	assert.Contains(t, dist.Signatures, "treasury")
	assert.NotContains(t, dist.Signatures, "next_round_seed")
}

func TestDistributeSkipsTransfersBelowMinimum(t *testing.T) {
	chain := &fakeChain{}
	d := newTestDistributor(chain, testWallet(t))

	// Seed share 0.0005 SOL falls under the 0.001 minimum.
	dist := d.Distribute(context.Background(), 0.01)
	require.True(t, dist.Success)
	assert.Equal(t, 1, chain.sent)
	assert.NotContains(t, dist.Signatures, "next_round_seed")
}

func TestDistributeWithoutCreatorKey(t *testing.T) {
	chain := &fakeChain{}
	d := newTestDistributor(chain, nil)

	dist := d.Distribute(context.Background(), 10)
	require.False(t, dist.Success)
	assert.Zero(t, chain.sent)
}

func TestClaimMeasuresBalanceDelta(t *testing.T) {
	chain := &fakeChain{balances: []uint64{1_000_000_000, 11_000_000_000}}
	c := NewClaimer(true, chain, testWallet(t), 0.001, zap.NewNop())

	result := c.Claim(context.Background())
	require.True(t, result.Success)
	assert.InDelta(t, 10.0, result.Amount, 1e-9)
	assert.NotEmpty(t, result.Signature)
}

func TestClaimBelowMinimumReportsZero(t *testing.T) {
	chain := &fakeChain{balances: []uint64{1_000_000_000, 1_000_500_000}}
	c := NewClaimer(true, chain, testWallet(t), 0.001, zap.NewNop())

	result := c.Claim(context.Background())
	require.True(t, result.Success)
	assert.Zero(t, result.Amount)
}

func TestClaimBalanceDecreaseReportsZero(t *testing.T) {
	// Transaction fee exceeded the claimed amount.
	chain := &fakeChain{balances: []uint64{1_000_000_000, 999_000_000}}
	c := NewClaimer(true, chain, testWallet(t), 0.001, zap.NewNop())

	result := c.Claim(context.Background())
	require.True(t, result.Success)
	assert.Zero(t, result.Amount)
}

func TestClaimDisabled(t *testing.T) {
	chain := &fakeChain{}
	c := NewClaimer(false, chain, testWallet(t), 0.001, zap.NewNop())

	result := c.Claim(context.Background())
	assert.False(t, result.Success)
	assert.Zero(t, chain.sent)
}

func TestClaimWithoutCreatorKey(t *testing.T) {
	c := NewClaimer(true, &fakeChain{}, nil, 0.001, zap.NewNop())

	result := c.Claim(context.Background())
	assert.False(t, result.Success)
}

func TestClaimSendFailure(t *testing.T) {
	chain := &fakeChain{
		balances: []uint64{1_000_000_000},
		sendErrs: []error{errors.New("node unavailable")},
	}
	c := NewClaimer(true, chain, testWallet(t), 0.001, zap.NewNop())

	result := c.Claim(context.Background())
	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "claim transaction failed")
}

func TestPayWinner(t *testing.T) {
	chain := &fakeChain{}
	p := NewRewardPayer(true, chain, testWallet(t), 0.001, zap.NewNop())

	result := p.Pay(context.Background(), solana.NewWallet().PublicKey(), 1.7)
	require.True(t, result.Success)
	assert.NotEmpty(t, result.Signature)
	assert.Equal(t, 1, chain.sent)
}

func TestPayGuards(t *testing.T) {
	chain := &fakeChain{}
	winner := solana.NewWallet().PublicKey()

	disabled := NewRewardPayer(false, chain, testWallet(t), 0.001, zap.NewNop())
	assert.False(t, disabled.Pay(context.Background(), winner, 1.0).Success)

	noKey := NewRewardPayer(true, chain, nil, 0.001, zap.NewNop())
	assert.False(t, noKey.Pay(context.Background(), winner, 1.0).Success)

	p := NewRewardPayer(true, chain, testWallet(t), 0.001, zap.NewNop())
	assert.False(t, p.Pay(context.Background(), winner, 0.0005).Success)

	assert.Zero(t, chain.sent)
}

func TestPaySendFailure(t *testing.T) {
	chain := &fakeChain{sendErrs: []error{errors.New("node unavailable")}}
	p := NewRewardPayer(true, chain, testWallet(t), 0.001, zap.NewNop())

	result := p.Pay(context.Background(), solana.NewWallet().PublicKey(), 1.0)
	assert.False(t, result.Success)
	assert.Empty(t, result.Signature)
}
