// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	RPCList     []string `mapstructure:"rpc_list"`
	PostgresURL string   `mapstructure:"postgres_url"`
	ListenAddr  string   `mapstructure:"listen_addr"`
	AdminToken  string   `mapstructure:"admin_token"`

	TokenMint       string `mapstructure:"token_mint"`
	TreasuryWallet  string `mapstructure:"treasury_wallet"`
	CreatorKey      string `mapstructure:"creator_key"`
	RewardWalletKey string `mapstructure:"reward_wallet_key"`

	RoundDurationSec    int `mapstructure:"round_duration_sec"`
	ClaimIntervalSec    int `mapstructure:"claim_interval_sec"`
	SettlementWindowSec int `mapstructure:"settlement_window_sec"`
	ConfirmSettleSec    int `mapstructure:"confirm_settle_sec"`
	CacheTTLSec         int `mapstructure:"cache_ttl_sec"`

	TreasuryPct float64 `mapstructure:"treasury_pct"`
	WinnerPct   float64 `mapstructure:"winner_pct"`
	SeedPct     float64 `mapstructure:"seed_pct"`
	BuybackPct  float64 `mapstructure:"buyback_pct"`

	MinClaim          float64 `mapstructure:"min_claim"`
	MinTransfer       float64 `mapstructure:"min_transfer"`
	MinBuyback        float64 `mapstructure:"min_buyback"`
	BuybackFeeReserve float64 `mapstructure:"buyback_fee_reserve"`
	DustThreshold     float64 `mapstructure:"dust_threshold"`

	FeeClaimEnabled bool `mapstructure:"fee_claim_enabled"`
	RewardEnabled   bool `mapstructure:"reward_enabled"`
	BuybackEnabled  bool `mapstructure:"buyback_enabled"`
	AutoClaim       bool `mapstructure:"auto_claim"`

	StartMode   string `mapstructure:"start_mode"`   // "manual" or "auto"
	FailureMode string `mapstructure:"failure_mode"` // "pause" or "continue"

	JupiterBaseURL string `mapstructure:"jupiter_base_url"`
	SlippageBps    int    `mapstructure:"slippage_bps"`
	DebugLogging   bool   `mapstructure:"debug_logging"`
}

const (
	DefaultRoundDurationSec    = 3600
	DefaultClaimIntervalSec    = 300
	DefaultSettlementWindowSec = 10
	DefaultConfirmSettleSec    = 5
	DefaultCacheTTLSec         = 600
	DefaultSlippageBps         = 300
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"listen_addr":           ":8080",
		"round_duration_sec":    DefaultRoundDurationSec,
		"claim_interval_sec":    DefaultClaimIntervalSec,
		"settlement_window_sec": DefaultSettlementWindowSec,
		"confirm_settle_sec":    DefaultConfirmSettleSec,
		"cache_ttl_sec":         DefaultCacheTTLSec,
		"treasury_pct":          70.0,
		"winner_pct":            15.0,
		"seed_pct":              5.0,
		"buyback_pct":           10.0,
		"min_claim":             0.001,
		"min_transfer":          0.001,
		"min_buyback":           0.01,
		"buyback_fee_reserve":   0.02,
		"dust_threshold":        0.001,
		"fee_claim_enabled":     true,
		"reward_enabled":        true,
		"buyback_enabled":       true,
		"auto_claim":            true,
		"start_mode":            "manual",
		"failure_mode":          "pause",
		"jupiter_base_url":      "https://quote-api.jup.ag/v6",
		"slippage_bps":          DefaultSlippageBps,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvironmentVariables(v, &cfg)

	return &cfg, ValidateConfig(&cfg)
}

func ValidateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURL(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.TokenMint == "" {
		return errors.New("missing token_mint in configuration")
	}
	if cfg.TreasuryWallet == "" {
		return errors.New("missing treasury_wallet in configuration")
	}
	if cfg.StartMode != "manual" && cfg.StartMode != "auto" {
		return errors.New("start_mode must be manual or auto")
	}
	if cfg.FailureMode != "pause" && cfg.FailureMode != "continue" {
		return errors.New("failure_mode must be pause or continue")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.RoundDurationSec <= 0 {
		return errors.New("invalid round_duration_sec")
	}
	if cfg.ClaimIntervalSec <= 0 {
		return errors.New("invalid claim_interval_sec")
	}
	if cfg.SettlementWindowSec < 0 {
		return errors.New("invalid settlement_window_sec")
	}
	if cfg.CacheTTLSec <= 0 {
		return errors.New("invalid cache_ttl_sec")
	}
	sum := cfg.TreasuryPct + cfg.WinnerPct + cfg.SeedPct + cfg.BuybackPct
	if sum < 99.999 || sum > 100.001 {
		return errors.New("fee split percentages must sum to 100")
	}
	if cfg.MinTransfer < 0 || cfg.MinClaim < 0 || cfg.MinBuyback < 0 {
		return errors.New("minimum thresholds must be non-negative")
	}
	if cfg.SlippageBps <= 0 || cfg.SlippageBps > 10_000 {
		return errors.New("invalid slippage_bps")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

// loadEnvironmentVariables applies VOLUMEWARS_* overrides. Signing keys
// are expected to come from the environment in production deployments.
func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	v.AutomaticEnv()
	v.SetEnvPrefix("VOLUMEWARS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if key := v.GetString("CREATOR_KEY"); key != "" {
		cfg.CreatorKey = key
	}
	if key := v.GetString("REWARD_WALLET_KEY"); key != "" {
		cfg.RewardWalletKey = key
	}
	if token := v.GetString("ADMIN_TOKEN"); token != "" {
		cfg.AdminToken = token
	}
	if dsn := v.GetString("POSTGRES_URL"); dsn != "" {
		cfg.PostgresURL = dsn
	}
	if envRPCList := v.GetString("RPC_LIST"); envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}
}

func (c *Config) RoundDuration() time.Duration {
	return time.Duration(c.RoundDurationSec) * time.Second
}

func (c *Config) ClaimInterval() time.Duration {
	return time.Duration(c.ClaimIntervalSec) * time.Second
}

func (c *Config) SettlementWindow() time.Duration {
	return time.Duration(c.SettlementWindowSec) * time.Second
}

func (c *Config) ConfirmSettle() time.Duration {
	return time.Duration(c.ConfirmSettleSec) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}
