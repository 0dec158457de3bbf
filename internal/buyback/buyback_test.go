// internal/buyback/buyback_test.go
package buyback

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/volumewars/volumewars-bot/internal/wallet"
)

type fakeChain struct {
	tokenAmount uint64
	decimals    uint8
	tokenErr    error

	sendErrs []error // outcome per SendAndConfirm call, nil past the end
	sent     int
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

func (f *fakeChain) GetTokenBalance(ctx context.Context, account solana.PublicKey) (uint64, uint8, error) {
	return f.tokenAmount, f.decimals, f.tokenErr
}

type fakeProvider struct {
	quoteErr error
	buildErr error
	gotInput uint64
}

func (f *fakeProvider) Quote(ctx context.Context, inputLamports uint64) (*SwapQuote, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	f.gotInput = inputLamports
	return &SwapQuote{InAmount: inputLamports, OutAmount: 1000, Raw: []byte(`{}`)}, nil
}

func (f *fakeProvider) BuildSwap(ctx context.Context, quote *SwapQuote, user solana.PublicKey) (*solana.Transaction, error) {
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	ix := system.NewTransferInstruction(1, user, user).Build()
	return solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(user))
}

func testWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.New(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	return w
}

func newTestBurner(chain Chain, provider SwapProvider, w *wallet.Wallet) *Burner {
	return New(true, chain, provider, w, solana.NewWallet().PublicKey(), 0.01, zap.NewNop())
}

func TestExecuteSuccess(t *testing.T) {
	chain := &fakeChain{tokenAmount: 5_000_000, decimals: 6}
	provider := &fakeProvider{}
	b := newTestBurner(chain, provider, testWallet(t))

	result := b.Execute(context.Background(), 0.98)
	require.True(t, result.Success)
	assert.InDelta(t, 5.0, result.TokensBurned, 1e-9)
	assert.NotEmpty(t, result.SwapSignature)
	assert.NotEmpty(t, result.BurnSignature)
	assert.Equal(t, uint64(980_000_000), provider.gotInput)
	assert.Equal(t, 2, chain.sent)
}

func TestExecuteDisabled(t *testing.T) {
	b := New(false, &fakeChain{}, &fakeProvider{}, testWallet(t), solana.NewWallet().PublicKey(), 0.01, zap.NewNop())

	result := b.Execute(context.Background(), 1.0)
	assert.False(t, result.Success)
	assert.False(t, result.NeedsManualIntervention)
}

func TestExecuteBelowMinimum(t *testing.T) {
	chain := &fakeChain{}
	b := newTestBurner(chain, &fakeProvider{}, testWallet(t))

	result := b.Execute(context.Background(), 0.005)
	assert.False(t, result.Success)
	assert.Zero(t, chain.sent)
}

func TestExecuteQuoteFailureIsClean(t *testing.T) {
	chain := &fakeChain{}
	b := newTestBurner(chain, &fakeProvider{quoteErr: errors.New("no route")}, testWallet(t))

	result := b.Execute(context.Background(), 1.0)
	assert.False(t, result.Success)
	assert.False(t, result.NeedsManualIntervention)
	assert.Zero(t, chain.sent)
}

func TestExecuteSwapFailureIsClean(t *testing.T) {
	chain := &fakeChain{sendErrs: []error{errors.New("slippage exceeded")}}
	b := newTestBurner(chain, &fakeProvider{}, testWallet(t))

	result := b.Execute(context.Background(), 1.0)
	assert.False(t, result.Success)
	assert.False(t, result.NeedsManualIntervention)
	assert.Empty(t, result.SwapSignature)
}

func TestBurnFailureNeedsManualIntervention(t *testing.T) {
	chain := &fakeChain{
		tokenAmount: 1_000_000,
		decimals:    6,
		sendErrs:    []error{nil, errors.New("burn rejected")},
	}
	b := newTestBurner(chain, &fakeProvider{}, testWallet(t))

	result := b.Execute(context.Background(), 1.0)
	require.False(t, result.Success)
	assert.True(t, result.NeedsManualIntervention)
	assert.NotEmpty(t, result.SwapSignature, "operator needs the swap signature to reconcile")
	assert.Empty(t, result.BurnSignature)
}

func TestZeroTokenBalanceAfterSwapNeedsManualIntervention(t *testing.T) {
	chain := &fakeChain{tokenAmount: 0}
	b := newTestBurner(chain, &fakeProvider{}, testWallet(t))

	result := b.Execute(context.Background(), 1.0)
	require.False(t, result.Success)
	assert.True(t, result.NeedsManualIntervention)
}

func TestTokenBalanceReadFailureNeedsManualIntervention(t *testing.T) {
	chain := &fakeChain{tokenErr: errors.New("rpc down")}
	b := newTestBurner(chain, &fakeProvider{}, testWallet(t))

	result := b.Execute(context.Background(), 1.0)
	require.False(t, result.Success)
	assert.True(t, result.NeedsManualIntervention)
}
