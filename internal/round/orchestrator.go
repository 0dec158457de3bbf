// internal/round/orchestrator.go
package round

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/volumewars/volumewars-bot/internal/buyback"
	"github.com/volumewars/volumewars-bot/internal/fees"
	"github.com/volumewars/volumewars-bot/internal/ledger"
	"github.com/volumewars/volumewars-bot/internal/logger"
	"github.com/volumewars/volumewars-bot/internal/storage"
	"github.com/volumewars/volumewars-bot/internal/storage/models"
)

var (
	ErrRoundEndInProgress = errors.New("round end already in progress")
	ErrNotActive          = errors.New("no active round")
	ErrAlreadyActive      = errors.New("round already active")
	ErrNotPaused          = errors.New("orchestrator is not paused")
)

// Claimer collects creator fees.
type Claimer interface {
	Claim(ctx context.Context) fees.ClaimResult
}

// Distributor splits claimed fees and executes the transfers.
type Distributor interface {
	Distribute(ctx context.Context, totalFees float64) fees.Distribution
}

// Payer pays the round winner from the reward wallet.
type Payer interface {
	Pay(ctx context.Context, winner solana.PublicKey, amount float64) fees.PayResult
}

// Burner runs the buyback-and-burn pipeline.
type Burner interface {
	Execute(ctx context.Context, amountSOL float64) buyback.Result
}

// Config holds the orchestrator's timing and policy knobs.
type Config struct {
	RoundDuration    time.Duration
	ClaimInterval    time.Duration
	SettlementWindow time.Duration
	ConfirmSettle    time.Duration

	WinnerPct float64
	SeedPct   float64

	AutoClaim   bool
	StartMode   string // "manual" or "auto"
	FailureMode string // "pause" or "continue"
}

// Orchestrator drives the round lifecycle: trade accrual, periodic fee
// claims, and the end-of-round settlement pipeline. It is the sole
// owner of RoundState; every mutation funnels through its methods.
type Orchestrator struct {
	cfg         Config
	ledger      *ledger.Ledger
	claimer     Claimer
	distributor Distributor
	payer       Payer
	burner      Burner
	store       storage.Storage
	clock       clockwork.Clock
	logger      *zap.Logger

	mu          sync.Mutex
	state       State
	round       RoundState
	pauseReason string

	// Reentrancy guards. Overlapping claim ticks become no-ops via
	// TryLock; EndRound takes claimMu for real so an outstanding claim
	// lands its amount before the settlement snapshot.
	endInProgress atomic.Bool
	claimMu       sync.Mutex
}

func NewOrchestrator(cfg Config, lg *ledger.Ledger, claimer Claimer, distributor Distributor,
	payer Payer, burner Burner, store storage.Storage, clock clockwork.Clock, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		ledger:      lg,
		claimer:     claimer,
		distributor: distributor,
		payer:       payer,
		burner:      burner,
		store:       store,
		clock:       clock,
		logger:      logger.Named("orchestrator"),
		state:       StateInactive,
		round:       RoundState{Number: 1},
	}
}

// Restore loads cumulative totals and the carried seed reward from
// durable storage so a restart continues the sequence.
func (o *Orchestrator) Restore(ctx context.Context) error {
	if o.store == nil {
		return nil
	}
	stats, err := o.store.GetGlobalStats(ctx)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.round.Number = stats.LastRound + 1
	o.round.BaseReward = stats.BaseReward
	o.round.TotalRoundsCompleted = stats.TotalRoundsCompleted
	o.round.TotalRewardsPaid = stats.TotalRewardsPaid
	o.round.TotalSupplyBurned = stats.TotalSupplyBurned

	o.logger.Info("Round state restored",
		zap.Int64("round", o.round.Number),
		zap.Float64("base_reward", o.round.BaseReward),
		zap.Int64("rounds_completed", o.round.TotalRoundsCompleted))
	return nil
}

// StartRound transitions INACTIVE -> ACTIVE and opens a fresh round.
func (o *Orchestrator) StartRound(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateActive || o.state == StateEnding {
		return ErrAlreadyActive
	}
	if o.state == StatePaused {
		return ErrNotPaused
	}

	o.state = StateActive
	o.round.StartedAt = o.clock.Now()
	o.round.ClaimedFees = 0
	o.round.InProgress = true

	o.logger.Info("Round started",
		zap.Int64("round", o.round.Number),
		zap.Float64("base_reward", o.round.BaseReward),
		zap.Duration("duration", o.cfg.RoundDuration))
	return nil
}

// Resume transitions PAUSED -> ACTIVE after an operator has reconciled
// a failed pipeline. The round keeps its ledger and claimed fees.
func (o *Orchestrator) Resume(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StatePaused {
		o.mu.Unlock()
		return ErrNotPaused
	}
	o.state = StateActive
	reason := o.pauseReason
	o.pauseReason = ""
	o.mu.Unlock()

	o.ledger.Unfreeze()
	o.logger.Warn("Orchestrator resumed by operator", zap.String("previous_pause_reason", reason))
	return nil
}

// Run drives the timers until the context is cancelled. A new tick
// never starts work while the prior tick's work is outstanding.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.cfg.StartMode == "auto" {
		if err := o.StartRound(ctx); err != nil && !errors.Is(err, ErrAlreadyActive) {
			return err
		}
	}

	claimTicker := o.clock.NewTicker(o.cfg.ClaimInterval)
	defer claimTicker.Stop()
	boundaryTicker := o.clock.NewTicker(time.Second)
	defer boundaryTicker.Stop()

	o.logger.Info("Orchestrator running",
		zap.String("start_mode", o.cfg.StartMode),
		zap.String("failure_mode", o.cfg.FailureMode))

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("Orchestrator stopping")
			return ctx.Err()
		case <-claimTicker.Chan():
			o.tickClaim(ctx)
		case <-boundaryTicker.Chan():
			if o.roundExpired() {
				if err := o.EndRound(ctx); err != nil &&
					!errors.Is(err, ErrRoundEndInProgress) && !errors.Is(err, ErrNotActive) {
					o.logger.Error("Round end failed", zap.Error(err))
				}
			}
		}
	}
}

// tickClaim performs one periodic fee claim while a round is active.
func (o *Orchestrator) tickClaim(ctx context.Context) {
	if !o.cfg.AutoClaim {
		return
	}
	if !o.claimMu.TryLock() {
		o.logger.Debug("Fee claim tick skipped, prior claim outstanding")
		return
	}
	defer o.claimMu.Unlock()

	o.mu.Lock()
	if o.state != StateActive {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	result := o.claimer.Claim(ctx)
	if !result.Success {
		o.logger.Debug("Periodic fee claim skipped", zap.String("reason", result.Err))
		return
	}

	o.mu.Lock()
	o.round.ClaimedFees += result.Amount
	total := o.round.ClaimedFees
	o.mu.Unlock()

	o.logger.Info("Fees accrued to round",
		zap.Float64("claimed_sol", result.Amount),
		zap.Float64("round_total_sol", total))
}

func (o *Orchestrator) roundExpired() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateActive && o.clock.Now().Sub(o.round.StartedAt) >= o.cfg.RoundDuration
}

// EndRound runs the settlement pipeline: settle, final claim, winner
// determination, distribution, payment, buyback, persistence, reset.
// It executes to completion or aborts; there is no partial re-entry.
func (o *Orchestrator) EndRound(ctx context.Context) error {
	if !o.endInProgress.CompareAndSwap(false, true) {
		return ErrRoundEndInProgress
	}
	defer o.endInProgress.Store(false)

	o.mu.Lock()
	if o.state != StateActive {
		o.mu.Unlock()
		return ErrNotActive
	}
	o.state = StateEnding
	o.round.InProgress = false
	roundNumber := o.round.Number
	o.mu.Unlock()

	// Drain a periodic claim still awaiting confirmation so its amount
	// lands in ClaimedFees before the settlement snapshot. New claim
	// ticks see ENDING and bail out.
	o.claimMu.Lock()
	defer o.claimMu.Unlock()

	log := logger.WithOperation(o.logger, "round_end").With(zap.Int64("round", roundNumber))
	log.Info("Round ending, waiting for in-flight trades to settle",
		zap.Duration("settlement_window", o.cfg.SettlementWindow))

	// Let in-flight trade notifications land before the final read.
	o.clock.Sleep(o.cfg.SettlementWindow)

	// One final fee claim for the round.
	if result := o.claimer.Claim(ctx); result.Success {
		o.mu.Lock()
		o.round.ClaimedFees += result.Amount
		o.mu.Unlock()
	} else {
		log.Debug("Final fee claim skipped", zap.String("reason", result.Err))
	}

	// Winner determination and the eventual reset are one atomic
	// section relative to new trade recordings.
	o.ledger.Freeze()

	o.mu.Lock()
	claimed := o.round.ClaimedFees
	baseReward := o.round.BaseReward
	o.mu.Unlock()

	winnerShare := claimed * o.cfg.WinnerPct / 100
	seedShare := claimed * o.cfg.SeedPct / 100
	winnerReward := baseReward + winnerShare

	winner, hasWinner := o.ledger.Winner()
	if !hasWinner {
		log.Info("Round ended with no qualifying trades")
	}

	dist := fees.Distribution{Success: true}
	if claimed > 0 {
		dist = o.distributor.Distribute(ctx, claimed)
		if !dist.Success {
			return o.handlePipelineFailure(ctx, log, "fee distribution failed: "+dist.Err)
		}
		// Let the distribution transfers settle before paying out.
		o.clock.Sleep(o.cfg.ConfirmSettle)
	}

	if hasWinner && winnerReward > 0 {
		o.settleWinner(ctx, log, roundNumber, winner, winnerReward)
	}

	// A round with no qualifying trades distributes its fees but skips
	// the buyback along with the winner payment.
	if hasWinner && dist.BuybackAmount > 0 {
		o.runBuyback(ctx, log, roundNumber, dist.BuybackAmount)
	}

	o.advanceRound(ctx, log, seedShare)
	return nil
}

// settleWinner pays the winner and persists the outcome. A winner
// record is only written with a confirmed payment signature; on payment
// failure nothing is persisted and the round still advances.
func (o *Orchestrator) settleWinner(ctx context.Context, log *zap.Logger, roundNumber int64, winner ledger.Entry, reward float64) {
	winnerKey, err := solana.PublicKeyFromBase58(winner.Wallet)
	if err != nil {
		log.Error("Winner wallet is not a valid address, skipping payment",
			zap.String("wallet", winner.Wallet), zap.Error(err))
		return
	}

	pay := o.payer.Pay(ctx, winnerKey, reward)
	if !pay.Success {
		log.Error("WINNER PAYMENT FAILED, no winner record persisted",
			zap.String("wallet", winner.Wallet),
			zap.Float64("reward_sol", reward),
			zap.String("error", pay.Err))
		return
	}

	o.mu.Lock()
	o.round.TotalRewardsPaid += reward
	o.mu.Unlock()

	if o.store == nil {
		return
	}
	if err := o.store.SaveWinner(ctx, &models.Winner{
		Wallet:    winner.Wallet,
		Volume:    winner.Volume,
		Reward:    reward,
		Signature: pay.Signature,
		Round:     roundNumber,
	}); err != nil {
		log.Error("Failed to persist winner record", zap.Error(err))
	}
	if err := o.store.SaveRewardTransfer(ctx, &models.RewardTransfer{
		Wallet:    winner.Wallet,
		Amount:    reward,
		Signature: pay.Signature,
		Round:     roundNumber,
	}); err != nil {
		log.Error("Failed to persist reward transfer", zap.Error(err))
	}

	log.Info("Winner settled",
		zap.String("wallet", winner.Wallet),
		zap.Float64("volume_sol", winner.Volume),
		zap.Int("trades", winner.Trades),
		zap.Float64("reward_sol", reward))
}

// runBuyback executes the buyback-and-burn. Failure never blocks round
// advancement.
func (o *Orchestrator) runBuyback(ctx context.Context, log *zap.Logger, roundNumber int64, amountSOL float64) {
	result := o.burner.Execute(ctx, amountSOL)
	if !result.Success {
		if result.NeedsManualIntervention {
			log.Error("BUYBACK NEEDS MANUAL INTERVENTION: swap confirmed, burn missing",
				zap.String("swap_signature", result.SwapSignature),
				zap.String("error", result.Err))
		} else {
			log.Warn("Buyback skipped or failed", zap.String("error", result.Err))
		}
		return
	}
	if result.TokensBurned <= 0 {
		return
	}

	o.mu.Lock()
	o.round.TotalSupplyBurned += result.TokensBurned
	o.mu.Unlock()

	if o.store != nil {
		if err := o.store.SaveBurn(ctx, &models.Burn{
			SolSpent:     amountSOL,
			TokensBurned: result.TokensBurned,
			Signature:    result.BurnSignature,
			Round:        roundNumber,
		}); err != nil {
			log.Error("Failed to persist burn record", zap.Error(err))
		}
	}
}

// advanceRound rolls the seed reward forward, opens the next round and
// clears the ledger.
func (o *Orchestrator) advanceRound(ctx context.Context, log *zap.Logger, seedShare float64) {
	o.mu.Lock()
	o.round.BaseReward = seedShare
	o.round.Number++
	o.round.TotalRoundsCompleted++
	o.round.ClaimedFees = 0
	o.round.StartedAt = o.clock.Now()
	o.round.InProgress = true
	o.state = StateActive
	next := o.round.Number
	o.mu.Unlock()

	o.ledger.Reset(true)
	o.persistGlobalStats(ctx, log)

	log.Info("Round advanced",
		zap.Int64("next_round", next),
		zap.Float64("next_base_reward", seedShare))
}

// handlePipelineFailure applies the configured failure policy. Pausing
// leaves the round un-advanced with a frozen ledger so the state is
// inspectable; continuing logs and advances with a gap in the records.
func (o *Orchestrator) handlePipelineFailure(ctx context.Context, log *zap.Logger, reason string) error {
	if o.cfg.FailureMode == "continue" {
		log.Error("Pipeline failure ignored by policy, advancing round",
			zap.String("reason", reason))
		o.mu.Lock()
		seedShare := o.round.ClaimedFees * o.cfg.SeedPct / 100
		o.mu.Unlock()
		o.advanceRound(ctx, log, seedShare)
		return nil
	}

	o.mu.Lock()
	o.state = StatePaused
	o.pauseReason = reason
	o.mu.Unlock()

	log.Error("ROUND PAUSED, operator action required",
		zap.String("reason", reason))
	return errors.New(reason)
}

// persistGlobalStats writes the cumulative totals row. Best effort: a
// storage error is logged, not fatal to the round.
func (o *Orchestrator) persistGlobalStats(ctx context.Context, log *zap.Logger) {
	if o.store == nil {
		return
	}

	o.mu.Lock()
	stats := &models.GlobalStats{
		TotalRoundsCompleted: o.round.TotalRoundsCompleted,
		TotalRewardsPaid:     o.round.TotalRewardsPaid,
		TotalSupplyBurned:    o.round.TotalSupplyBurned,
		LastRound:            o.round.Number - 1,
		BaseReward:           o.round.BaseReward,
	}
	o.mu.Unlock()

	if err := o.store.UpdateGlobalStats(ctx, stats); err != nil {
		log.Error("Failed to persist global stats", zap.Error(err))
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Round returns a copy of the live round record.
func (o *Orchestrator) Round() RoundState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.round
}

// Snapshot builds the status view.
func (o *Orchestrator) Snapshot(topN int) Snapshot {
	o.mu.Lock()
	snap := Snapshot{
		State:                o.state.String(),
		PauseReason:          o.pauseReason,
		Round:                o.round.Number,
		StartedAt:            o.round.StartedAt,
		EndsAt:               o.round.StartedAt.Add(o.cfg.RoundDuration),
		ClaimedFees:          o.round.ClaimedFees,
		BaseReward:           o.round.BaseReward,
		TotalRoundsCompleted: o.round.TotalRoundsCompleted,
		TotalRewardsPaid:     o.round.TotalRewardsPaid,
		TotalSupplyBurned:    o.round.TotalSupplyBurned,
	}
	o.mu.Unlock()

	snap.ExcludedTrades = o.ledger.Excluded()
	snap.Leaders = o.ledger.Snapshot(topN)
	return snap
}
