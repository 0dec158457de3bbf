// ====================================
// File: cmd/bot/main.go
// ====================================
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	solbc "github.com/volumewars/volumewars-bot/internal/blockchain/solana"
	"github.com/volumewars/volumewars-bot/internal/buyback"
	"github.com/volumewars/volumewars-bot/internal/classify"
	"github.com/volumewars/volumewars-bot/internal/config"
	"github.com/volumewars/volumewars-bot/internal/fees"
	"github.com/volumewars/volumewars-bot/internal/ingest"
	"github.com/volumewars/volumewars-bot/internal/ledger"
	"github.com/volumewars/volumewars-bot/internal/logger"
	"github.com/volumewars/volumewars-bot/internal/round"
	"github.com/volumewars/volumewars-bot/internal/storage"
	"github.com/volumewars/volumewars-bot/internal/storage/postgres"
	"github.com/volumewars/volumewars-bot/internal/wallet"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	appLogger, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer appLogger.Sync()
	log := appLogger.Logger

	log.Info("Starting volume wars bot",
		zap.String("config", *configPath),
		zap.Int("rpc_endpoints", len(cfg.RPCList)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("Bot execution error", zap.Error(err))
	}
	log.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	mint, err := solana.PublicKeyFromBase58(cfg.TokenMint)
	if err != nil {
		return errors.New("invalid token_mint address")
	}
	treasury, err := solana.PublicKeyFromBase58(cfg.TreasuryWallet)
	if err != nil {
		return errors.New("invalid treasury_wallet address")
	}

	chain, err := solbc.NewClient(cfg.RPCList, log)
	if err != nil {
		return err
	}

	// Signing keys are optional: a missing key disables the features
	// that need it instead of preventing startup. Volume tracking and
	// the status surface keep working either way.
	creatorWallet := loadWallet(cfg.CreatorKey, "creator", log)
	rewardWallet := loadWallet(cfg.RewardWalletKey, "reward", log)

	var store storage.Storage
	if cfg.PostgresURL != "" {
		store, err = postgres.NewStorage(cfg.PostgresURL, log)
		if err != nil {
			return err
		}
		if err := store.RunMigrations(); err != nil {
			return err
		}
	} else {
		log.Warn("No postgres_url configured, round history will not survive restarts")
	}

	clock := clockwork.NewRealClock()
	lg := ledger.New(log)
	classifier := classify.New(chain, cfg.CacheTTL(), clock, log)
	estimator := ingest.NewLargestTransferEstimator(cfg.DustThreshold)
	processor := ingest.NewProcessor(cfg.TokenMint, estimator, classifier, lg, log)

	seedTarget := treasury
	if rewardWallet != nil {
		seedTarget = rewardWallet.PublicKey
	} else {
		log.Warn("No reward wallet configured, next-round seed will be routed to the treasury")
	}

	claimer := fees.NewClaimer(cfg.FeeClaimEnabled && creatorWallet != nil, chain, creatorWallet, cfg.MinClaim, log)
	distributor := fees.NewDistributor(chain, creatorWallet, treasury, seedTarget, fees.Shares{
		TreasuryPct: cfg.TreasuryPct,
		WinnerPct:   cfg.WinnerPct,
		SeedPct:     cfg.SeedPct,
		BuybackPct:  cfg.BuybackPct,
	}, cfg.MinTransfer, cfg.BuybackFeeReserve, log)
	payer := fees.NewRewardPayer(cfg.RewardEnabled && rewardWallet != nil, chain, rewardWallet, cfg.MinTransfer, log)

	jupiter := buyback.NewJupiterClient(cfg.JupiterBaseURL, mint, cfg.SlippageBps, log)
	burner := buyback.New(cfg.BuybackEnabled && creatorWallet != nil, chain, jupiter, creatorWallet, mint, cfg.MinBuyback, log)

	orchestrator := round.NewOrchestrator(round.Config{
		RoundDuration:    cfg.RoundDuration(),
		ClaimInterval:    cfg.ClaimInterval(),
		SettlementWindow: cfg.SettlementWindow(),
		ConfirmSettle:    cfg.ConfirmSettle(),
		WinnerPct:        cfg.WinnerPct,
		SeedPct:          cfg.SeedPct,
		AutoClaim:        cfg.AutoClaim,
		StartMode:        cfg.StartMode,
		FailureMode:      cfg.FailureMode,
	}, lg, claimer, distributor, payer, burner, store, clock, log)

	if err := orchestrator.Restore(ctx); err != nil {
		return err
	}

	server := ingest.NewServer(cfg.ListenAddr, cfg.AdminToken, processor, orchestrator, store, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return orchestrator.Run(gctx) })
	g.Go(func() error {
		classifier.RunEvictionLoop(gctx)
		return nil
	})

	return g.Wait()
}

// loadWallet parses an optional signing key. Invalid keys are treated
// the same as absent ones so a typo degrades features rather than
// crash-looping the service.
func loadWallet(key, name string, log *zap.Logger) *wallet.Wallet {
	if key == "" {
		log.Warn("Signing key not configured", zap.String("wallet", name))
		return nil
	}
	w, err := wallet.New(key)
	if err != nil {
		log.Error("Failed to parse signing key, feature disabled",
			zap.String("wallet", name), zap.Error(err))
		return nil
	}
	log.Info("Wallet loaded", zap.String("wallet", name), zap.String("pubkey", w.String()))
	return w
}
