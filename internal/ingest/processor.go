// internal/ingest/processor.go
package ingest

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/volumewars/volumewars-bot/internal/ledger"
)

// WalletClassifier decides whether an address is a user wallet.
type WalletClassifier interface {
	Classify(ctx context.Context, addr solana.PublicKey) bool
}

// Processor turns raw trade notifications into ledger recordings.
type Processor struct {
	mint       string
	estimator  ValueEstimator
	classifier WalletClassifier
	ledger     *ledger.Ledger
	logger     *zap.Logger
}

func NewProcessor(mint string, estimator ValueEstimator, classifier WalletClassifier, lg *ledger.Ledger, logger *zap.Logger) *Processor {
	return &Processor{
		mint:       mint,
		estimator:  estimator,
		classifier: classifier,
		ledger:     lg,
		logger:     logger.Named("ingest"),
	}
}

// Process handles one notification. It runs after the webhook has
// already been acknowledged, so failures here are logged, never
// surfaced upstream.
func (p *Processor) Process(ctx context.Context, n *TradeNotification) {
	if n == nil || !n.InvolvesMint(p.mint) {
		return
	}

	walletAddr, amountSOL, ok := p.estimator.Estimate(n)
	if !ok {
		p.logger.Debug("No SOL value extracted from notification",
			zap.String("signature", n.Signature))
		return
	}

	pubkey, err := solana.PublicKeyFromBase58(walletAddr)
	if err != nil {
		p.logger.Debug("Attributed wallet is not a valid address",
			zap.String("wallet", walletAddr),
			zap.String("signature", n.Signature))
		return
	}

	if !p.classifier.Classify(ctx, pubkey) {
		p.ledger.MarkExcluded()
		p.logger.Debug("Trade excluded, wallet is not user-controlled",
			zap.String("wallet", walletAddr),
			zap.Float64("amount_sol", amountSOL))
		return
	}

	ts := time.Unix(n.Timestamp, 0)
	if n.Timestamp == 0 {
		ts = time.Now()
	}

	if p.ledger.RecordTrade(walletAddr, amountSOL, n.Signature, ts) {
		p.logger.Debug("Trade recorded",
			zap.String("wallet", walletAddr),
			zap.Float64("amount_sol", amountSOL),
			zap.String("signature", n.Signature))
	}
}
