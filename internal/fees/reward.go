// internal/fees/reward.go
package fees

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/volumewars/volumewars-bot/internal/wallet"
)

// PayResult reports one winner payment attempt.
type PayResult struct {
	Success   bool
	Signature string
	Err       string
}

// RewardPayer pays the round winner from the reward wallet. A failed
// payment is not retried at this level; the orchestrator surfaces it
// and moves on without persisting a winner record.
type RewardPayer struct {
	enabled      bool
	chain        Chain
	rewardWallet *wallet.Wallet
	minTransfer  float64
	logger       *zap.Logger
}

func NewRewardPayer(enabled bool, chain Chain, rewardWallet *wallet.Wallet, minTransfer float64, logger *zap.Logger) *RewardPayer {
	return &RewardPayer{
		enabled:      enabled,
		chain:        chain,
		rewardWallet: rewardWallet,
		minTransfer:  minTransfer,
		logger:       logger.Named("reward_payer"),
	}
}

// Pay transfers amount SOL from the reward wallet to the winner and
// waits for confirmation.
func (p *RewardPayer) Pay(ctx context.Context, winner solana.PublicKey, amount float64) PayResult {
	if !p.enabled {
		return PayResult{Success: false, Err: "reward distribution disabled"}
	}
	if p.rewardWallet == nil {
		p.logger.Warn("Reward payment skipped, reward wallet key not configured")
		return PayResult{Success: false, Err: "reward wallet key not configured"}
	}
	if amount < p.minTransfer {
		return PayResult{Success: false, Err: fmt.Sprintf("reward %.9f below minimum %.9f", amount, p.minTransfer)}
	}

	sig, err := sendTransfer(ctx, p.chain, p.rewardWallet, winner, amount)
	if err != nil {
		p.logger.Error("Winner payment failed",
			zap.String("winner", winner.String()),
			zap.Float64("amount_sol", amount),
			zap.Error(err))
		return PayResult{Success: false, Err: err.Error()}
	}

	p.logger.Info("Winner paid",
		zap.String("winner", winner.String()),
		zap.Float64("amount_sol", amount),
		zap.String("signature", sig.String()))

	return PayResult{Success: true, Signature: sig.String()}
}
