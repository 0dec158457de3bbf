// internal/ingest/estimator.go
package ingest

import (
	"strconv"

	solbc "github.com/volumewars/volumewars-bot/internal/blockchain/solana"
)

// ValueEstimator extracts the SOL value of a trade and the wallet it
// should be attributed to. It is a pluggable strategy so the heuristic
// can be replaced without touching ledger or orchestration code.
type ValueEstimator interface {
	Estimate(n *TradeNotification) (wallet string, amountSOL float64, ok bool)
}

// LargestTransferEstimator approximates trade value from the
// transaction shape rather than exact trade parsing: the largest native
// transfer tied to the fee payer wins, unless a structured swap event
// carries a larger SOL leg. An accepted approximation, not exact
// accounting.
type LargestTransferEstimator struct {
	// DustThreshold filters out rent and fee noise, in SOL.
	DustThreshold float64
}

func NewLargestTransferEstimator(dustThreshold float64) *LargestTransferEstimator {
	return &LargestTransferEstimator{DustThreshold: dustThreshold}
}

func (e *LargestTransferEstimator) Estimate(n *TradeNotification) (string, float64, bool) {
	wallet := n.FeePayer
	var best float64

	for _, t := range n.NativeTransfers {
		if t.FromUserAccount != n.FeePayer && t.ToUserAccount != n.FeePayer {
			continue
		}
		sol := solbc.LamportsToSol(t.Amount)
		if sol >= e.DustThreshold && sol > best {
			best = sol
		}
	}

	if n.Events != nil && n.Events.Swap != nil {
		swap := n.Events.Swap
		for _, leg := range []*SwapLeg{swap.NativeInput, swap.NativeOutput} {
			if leg == nil {
				continue
			}
			lamports, err := strconv.ParseUint(leg.Amount, 10, 64)
			if err != nil {
				continue
			}
			sol := solbc.LamportsToSol(lamports)
			if sol > best {
				best = sol
				if leg.Account != "" {
					wallet = leg.Account
				} else {
					wallet = n.FeePayer
				}
			}
		}
	}

	if best < e.DustThreshold || best == 0 || wallet == "" {
		return "", 0, false
	}
	return wallet, best, true
}
