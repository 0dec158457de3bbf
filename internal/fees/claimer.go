// internal/fees/claimer.go
package fees

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	solbc "github.com/volumewars/volumewars-bot/internal/blockchain/solana"
	"github.com/volumewars/volumewars-bot/internal/wallet"
)

// Pump.fun bonding-curve program and the creator-vault PDA seed used to
// derive the account holding accrued creator fees.
var (
	pumpFunProgramID      = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	pumpFunEventAuthority = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")

	collectCreatorFeeDiscriminator = []byte{20, 22, 86, 123, 198, 28, 219, 132}
)

// ClaimResult reports one fee-claim attempt.
type ClaimResult struct {
	Success   bool
	Amount    float64 // SOL actually received, measured as balance delta
	Signature string
	Err       string
}

// Claimer collects accrued creator fees into the creator wallet. The
// claimed amount is not taken from the transaction response but
// measured as the wallet balance delta around the confirmed claim.
type Claimer struct {
	enabled  bool
	chain    Chain
	creator  *wallet.Wallet
	minClaim float64
	logger   *zap.Logger
}

func NewClaimer(enabled bool, chain Chain, creator *wallet.Wallet, minClaim float64, logger *zap.Logger) *Claimer {
	return &Claimer{
		enabled:  enabled,
		chain:    chain,
		creator:  creator,
		minClaim: minClaim,
		logger:   logger.Named("claimer"),
	}
}

// Claim runs one fee collection. When the feature is disabled or the
// signing key is missing it returns success=false without touching the
// chain.
func (c *Claimer) Claim(ctx context.Context) ClaimResult {
	if !c.enabled {
		return ClaimResult{Success: false, Err: "fee claiming disabled"}
	}
	if c.creator == nil {
		c.logger.Warn("Fee claim skipped, creator key not configured")
		return ClaimResult{Success: false, Err: "creator key not configured"}
	}

	before, err := c.chain.GetBalance(ctx, c.creator.PublicKey)
	if err != nil {
		return ClaimResult{Success: false, Err: fmt.Sprintf("balance read failed: %v", err)}
	}

	tx, err := c.buildClaimTransaction(ctx)
	if err != nil {
		return ClaimResult{Success: false, Err: fmt.Sprintf("claim build failed: %v", err)}
	}

	sig, err := c.chain.SendAndConfirm(ctx, tx)
	if err != nil {
		return ClaimResult{Success: false, Err: fmt.Sprintf("claim transaction failed: %v", err)}
	}

	after, err := c.chain.GetBalance(ctx, c.creator.PublicKey)
	if err != nil {
		return ClaimResult{Success: false, Signature: sig.String(),
			Err: fmt.Sprintf("post-claim balance read failed: %v", err)}
	}

	var claimed float64
	if after > before {
		claimed = solbc.LamportsToSol(after - before)
	}
	if claimed > 0 && claimed < c.minClaim {
		c.logger.Debug("Claimed amount below minimum, reporting zero",
			zap.Float64("claimed", claimed),
			zap.Float64("min_claim", c.minClaim))
		claimed = 0
	}

	c.logger.Info("Creator fees claimed",
		zap.Float64("amount_sol", claimed),
		zap.String("signature", sig.String()))

	return ClaimResult{Success: true, Amount: claimed, Signature: sig.String()}
}

func (c *Claimer) buildClaimTransaction(ctx context.Context) (*solana.Transaction, error) {
	creatorVault, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("creator-vault"), c.creator.PublicKey.Bytes()},
		pumpFunProgramID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to derive creator vault: %w", err)
	}

	data := make([]byte, len(collectCreatorFeeDiscriminator))
	copy(data, collectCreatorFeeDiscriminator)

	// Account order must match the program's expectation exactly.
	accounts := []*solana.AccountMeta{
		{PublicKey: c.creator.PublicKey, IsSigner: true, IsWritable: true},
		{PublicKey: creatorVault, IsSigner: false, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: pumpFunEventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: pumpFunProgramID, IsSigner: false, IsWritable: false},
	}

	ix := solana.NewInstruction(pumpFunProgramID, accounts, data)

	blockhash, err := c.chain.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		blockhash,
		solana.TransactionPayer(c.creator.PublicKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	if err := c.creator.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return tx, nil
}
