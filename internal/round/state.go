// internal/round/state.go
package round

import (
	"time"

	"github.com/volumewars/volumewars-bot/internal/ledger"
)

// State is the orchestrator's lifecycle state.
type State int32

const (
	// StateInactive means no automation is running.
	StateInactive State = iota
	// StateActive means the round is accepting trades and periodic fee
	// claims are running.
	StateActive
	// StateEnding means round-close is in progress; the ledger is still
	// readable but closed to new fee-claim ticks.
	StateEnding
	// StatePaused means an unrecoverable pipeline failure occurred and
	// an operator must resume.
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// RoundState is the single live round record, owned and mutated only by
// the Orchestrator.
type RoundState struct {
	Number      int64
	StartedAt   time.Time
	ClaimedFees float64 // SOL claimed this round, reset at round start
	BaseReward  float64 // seed carried from the prior round's allocation
	InProgress  bool

	// Cumulative lifetime counters, persisted and never reset.
	TotalRoundsCompleted int64
	TotalRewardsPaid     float64
	TotalSupplyBurned    float64
}

// Snapshot is a read-only view of the orchestrator for the status
// endpoint.
type Snapshot struct {
	State                string         `json:"state"`
	PauseReason          string         `json:"pause_reason,omitempty"`
	Round                int64          `json:"round"`
	StartedAt            time.Time      `json:"started_at"`
	EndsAt               time.Time      `json:"ends_at"`
	ClaimedFees          float64        `json:"claimed_fees"`
	BaseReward           float64        `json:"base_reward"`
	TotalRoundsCompleted int64          `json:"total_rounds_completed"`
	TotalRewardsPaid     float64        `json:"total_rewards_paid"`
	TotalSupplyBurned    float64        `json:"total_supply_burned"`
	ExcludedTrades       uint64         `json:"excluded_trades"`
	Leaders              []ledger.Entry `json:"leaders"`
}
