// internal/fees/distributor.go
package fees

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/volumewars/volumewars-bot/internal/wallet"
)

// Shares are the fee split percentages. They must sum to 100.
type Shares struct {
	TreasuryPct float64
	WinnerPct   float64
	SeedPct     float64
	BuybackPct  float64
}

// Distribution is the result of splitting one round's claimed fees.
// WinnerAmount is tracked for reporting only: the winner is paid from
// the reward wallet by the RewardPayer, not from this split.
type Distribution struct {
	TreasuryAmount      float64
	NextRoundSeedAmount float64
	BuybackAmount       float64
	WinnerAmount        float64
	Signatures          map[string]string
	Success             bool
	Err                 string
}

// Distributor moves the treasury and next-round-seed shares out of the
// creator wallet, in that order. The first failed transfer aborts the
// remainder; signatures already obtained are returned so an operator
// can reconcile a half-completed split.
type Distributor struct {
	chain             Chain
	creator           *wallet.Wallet
	treasury          solana.PublicKey
	rewardWallet      solana.PublicKey
	shares            Shares
	minTransfer       float64
	buybackFeeReserve float64
	logger            *zap.Logger
}

func NewDistributor(chain Chain, creator *wallet.Wallet, treasury, rewardWallet solana.PublicKey,
	shares Shares, minTransfer, buybackFeeReserve float64, logger *zap.Logger) *Distributor {
	return &Distributor{
		chain:             chain,
		creator:           creator,
		treasury:          treasury,
		rewardWallet:      rewardWallet,
		shares:            shares,
		minTransfer:       minTransfer,
		buybackFeeReserve: buybackFeeReserve,
		logger:            logger.Named("distributor"),
	}
}

// Split computes the share amounts without executing any transfer.
func (d *Distributor) Split(totalFees float64) Distribution {
	dist := Distribution{
		TreasuryAmount:      totalFees * d.shares.TreasuryPct / 100,
		NextRoundSeedAmount: totalFees * d.shares.SeedPct / 100,
		WinnerAmount:        totalFees * d.shares.WinnerPct / 100,
		Signatures:          make(map[string]string),
	}
	buyback := totalFees*d.shares.BuybackPct/100 - d.buybackFeeReserve
	if buyback < 0 {
		buyback = 0
	}
	dist.BuybackAmount = buyback
	return dist
}

// Distribute splits totalFees and executes the treasury and seed
// transfers in strict order.
func (d *Distributor) Distribute(ctx context.Context, totalFees float64) Distribution {
	dist := d.Split(totalFees)

	if d.creator == nil {
		dist.Err = "creator key not configured"
		return dist
	}
	if totalFees <= 0 {
		dist.Success = true
		return dist
	}

	d.logger.Info("Distributing claimed fees",
		zap.Float64("total_sol", totalFees),
		zap.Float64("treasury", dist.TreasuryAmount),
		zap.Float64("seed", dist.NextRoundSeedAmount),
		zap.Float64("buyback", dist.BuybackAmount),
		zap.Float64("winner_tracked", dist.WinnerAmount))

	transfers := []struct {
		purpose string
		to      solana.PublicKey
		amount  float64
	}{
		{"treasury", d.treasury, dist.TreasuryAmount},
		{"next_round_seed", d.rewardWallet, dist.NextRoundSeedAmount},
	}

	for _, t := range transfers {
		if t.amount < d.minTransfer {
			d.logger.Debug("Skipping transfer below minimum",
				zap.String("purpose", t.purpose),
				zap.Float64("amount", t.amount))
			continue
		}

		sig, err := sendTransfer(ctx, d.chain, d.creator, t.to, t.amount)
		if err != nil {
			// Remaining transfers are not attempted. A completed
			// treasury transfer with a failed seed transfer requires
			// manual reconciliation.
			dist.Err = fmt.Sprintf("%s transfer failed: %v", t.purpose, err)
			d.logger.Error("Fee distribution aborted",
				zap.String("failed_transfer", t.purpose),
				zap.Float64("amount", t.amount),
				zap.Error(err))
			return dist
		}

		dist.Signatures[t.purpose] = sig.String()
		d.logger.Info("Distribution transfer confirmed",
			zap.String("purpose", t.purpose),
			zap.Float64("amount_sol", t.amount),
			zap.String("signature", sig.String()))
	}

	dist.Success = true
	return dist
}
