// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
rpc_list:
  - https://api.mainnet-beta.solana.com
token_mint: So11111111111111111111111111111111111111112
treasury_wallet: "11111111111111111111111111111111"
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, time.Hour, cfg.RoundDuration())
	assert.Equal(t, 5*time.Minute, cfg.ClaimInterval())
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL())
	assert.InDelta(t, 70.0, cfg.TreasuryPct, 1e-9)
	assert.InDelta(t, 15.0, cfg.WinnerPct, 1e-9)
	assert.InDelta(t, 5.0, cfg.SeedPct, 1e-9)
	assert.InDelta(t, 10.0, cfg.BuybackPct, 1e-9)
	assert.InDelta(t, 0.02, cfg.BuybackFeeReserve, 1e-9)
	assert.Equal(t, "manual", cfg.StartMode)
	assert.Equal(t, "pause", cfg.FailureMode)
	assert.True(t, cfg.AutoClaim)
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig+`
round_duration_sec: 120
start_mode: auto
failure_mode: continue
buyback_enabled: false
`))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.RoundDuration())
	assert.Equal(t, "auto", cfg.StartMode)
	assert.Equal(t, "continue", cfg.FailureMode)
	assert.False(t, cfg.BuybackEnabled)
}

func TestValidateRejectsBadPercentages(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, minimalConfig+`
treasury_pct: 80
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 100")
}

func TestValidateRejectsMissingMint(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
rpc_list:
  - https://api.mainnet-beta.solana.com
treasury_wallet: "11111111111111111111111111111111"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token_mint")
}

func TestValidateRejectsEmptyRPCList(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
token_mint: So11111111111111111111111111111111111111112
treasury_wallet: "11111111111111111111111111111111"
`))
	require.Error(t, err)
}

func TestValidateRejectsBadStartMode(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, minimalConfig+`
start_mode: sometimes
`))
	require.Error(t, err)
}

func TestValidateRejectsNonHTTPRPC(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
rpc_list:
  - ftp://example.com
token_mint: So11111111111111111111111111111111111111112
treasury_wallet: "11111111111111111111111111111111"
`))
	require.Error(t, err)
}

func TestEnvironmentKeyOverride(t *testing.T) {
	t.Setenv("VOLUMEWARS_CREATOR_KEY", "env-secret-key")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "env-secret-key", cfg.CreatorKey)
}
