// internal/buyback/buyback.go
package buyback

import (
	"context"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"

	solbc "github.com/volumewars/volumewars-bot/internal/blockchain/solana"
	"github.com/volumewars/volumewars-bot/internal/wallet"
)

// Chain is the blockchain capability the burner needs.
type Chain interface {
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	GetTokenBalance(ctx context.Context, account solana.PublicKey) (uint64, uint8, error)
}

// SwapQuote is an aggregator quote, kept raw so it can be echoed back
// into the swap build request.
type SwapQuote struct {
	InAmount  uint64
	OutAmount uint64
	Raw       []byte
}

// SwapProvider quotes and builds token swaps.
type SwapProvider interface {
	Quote(ctx context.Context, inputLamports uint64) (*SwapQuote, error)
	BuildSwap(ctx context.Context, quote *SwapQuote, user solana.PublicKey) (*solana.Transaction, error)
}

// Result reports one buyback-and-burn run. A successful swap followed
// by a failed burn is not a clean failure: the tokens sit in the
// creator wallet and need an operator, which NeedsManualIntervention
// flags.
type Result struct {
	Success                 bool
	TokensBurned            float64
	SwapSignature           string
	BurnSignature           string
	NeedsManualIntervention bool
	Err                     string
}

// Burner converts a SOL amount into the project token and destroys the
// resulting balance.
type Burner struct {
	enabled    bool
	chain      Chain
	provider   SwapProvider
	wallet     *wallet.Wallet
	mint       solana.PublicKey
	minBuyback float64
	logger     *zap.Logger
}

func New(enabled bool, chain Chain, provider SwapProvider, w *wallet.Wallet, mint solana.PublicKey, minBuyback float64, logger *zap.Logger) *Burner {
	return &Burner{
		enabled:    enabled,
		chain:      chain,
		provider:   provider,
		wallet:     w,
		mint:       mint,
		minBuyback: minBuyback,
		logger:     logger.Named("buyback"),
	}
}

// Execute runs the quote, swap and burn phases in sequence.
func (b *Burner) Execute(ctx context.Context, amountSOL float64) Result {
	if !b.enabled {
		return Result{Err: "buyback disabled"}
	}
	if b.wallet == nil {
		b.logger.Warn("Buyback skipped, signing key not configured")
		return Result{Err: "buyback key not configured"}
	}
	if amountSOL < b.minBuyback {
		return Result{Err: fmt.Sprintf("buyback amount %.9f below minimum %.9f", amountSOL, b.minBuyback)}
	}

	inputLamports := solbc.SolToLamports(amountSOL)

	// Phase 1: quote.
	quote, err := b.provider.Quote(ctx, inputLamports)
	if err != nil {
		return Result{Err: fmt.Sprintf("swap quote failed: %v", err)}
	}
	b.logger.Info("Buyback quote received",
		zap.Float64("in_sol", amountSOL),
		zap.Uint64("expected_out", quote.OutAmount))

	// Phase 2: swap.
	swapTx, err := b.provider.BuildSwap(ctx, quote, b.wallet.PublicKey)
	if err != nil {
		return Result{Err: fmt.Sprintf("swap build failed: %v", err)}
	}
	if err := b.wallet.SignTransaction(swapTx); err != nil {
		return Result{Err: fmt.Sprintf("swap signing failed: %v", err)}
	}
	swapSig, err := b.chain.SendAndConfirm(ctx, swapTx)
	if err != nil {
		return Result{Err: fmt.Sprintf("swap transaction failed: %v", err)}
	}

	// Phase 3: burn the full received balance.
	return b.burnBalance(ctx, swapSig.String())
}

func (b *Burner) burnBalance(ctx context.Context, swapSignature string) Result {
	ata, err := b.wallet.GetATA(b.mint)
	if err != nil {
		return b.strandedResult(swapSignature, fmt.Sprintf("failed to derive token account: %v", err))
	}

	amount, decimals, err := b.chain.GetTokenBalance(ctx, ata)
	if err != nil {
		return b.strandedResult(swapSignature, fmt.Sprintf("token balance read failed: %v", err))
	}
	if amount == 0 {
		return b.strandedResult(swapSignature, "swap confirmed but token balance is zero")
	}

	burnIx := token.NewBurnInstruction(
		amount,
		ata,
		b.mint,
		b.wallet.PublicKey,
		nil,
	).Build()

	blockhash, err := b.chain.GetLatestBlockhash(ctx)
	if err != nil {
		return b.strandedResult(swapSignature, fmt.Sprintf("failed to get blockhash: %v", err))
	}

	burnTx, err := solana.NewTransaction(
		[]solana.Instruction{burnIx},
		blockhash,
		solana.TransactionPayer(b.wallet.PublicKey),
	)
	if err != nil {
		return b.strandedResult(swapSignature, fmt.Sprintf("failed to build burn transaction: %v", err))
	}
	if err := b.wallet.SignTransaction(burnTx); err != nil {
		return b.strandedResult(swapSignature, fmt.Sprintf("burn signing failed: %v", err))
	}

	burnSig, err := b.chain.SendAndConfirm(ctx, burnTx)
	if err != nil {
		return b.strandedResult(swapSignature, fmt.Sprintf("burn transaction failed: %v", err))
	}

	burned := float64(amount) / math.Pow10(int(decimals))
	b.logger.Info("Buyback completed, tokens burned",
		zap.Float64("tokens_burned", burned),
		zap.String("swap_signature", swapSignature),
		zap.String("burn_signature", burnSig.String()))

	return Result{
		Success:       true,
		TokensBurned:  burned,
		SwapSignature: swapSignature,
		BurnSignature: burnSig.String(),
	}
}

// strandedResult marks the swap-succeeded/burn-failed case: tokens are
// in the creator wallet, not lost, but not yet burned.
func (b *Burner) strandedResult(swapSignature, errMsg string) Result {
	b.logger.Error("Buyback swap succeeded but burn did not, manual intervention required",
		zap.String("swap_signature", swapSignature),
		zap.String("error", errMsg))
	return Result{
		SwapSignature:           swapSignature,
		NeedsManualIntervention: true,
		Err:                     errMsg,
	}
}
