package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/ladder/internal/clients/solana"
	"github.com/vadiminshakov/ladder/internal/domain"
)

const (
	testMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	testPair = "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
pair: `+testPair+`
asset_mint: `+testMint+`
poll_interval: 30s
dry_run: true
ladder:
  initial_rung_native: "0.01"
  max_rungs: 3
  volume_multiplier: "2"
  base_drop_pct: "10"
  drop_multiplier: "1"
  sell_profit_pct: "5"
  indicator_period: 20
  indicator_spread_multiplier: "2"
  no_buy_zone: true
  slippage_cap_bps: 100
solana:
  rpc_url: https://rpc.example
notify:
  telegram:
    chat_id: 42
    events: [BUY, SELL]
  webhook:
    url: https://hook.example
    events: [ALL]
metrics:
  listen: ":9090"
`)
	t.Setenv(EnvTelegramToken, "token-from-env")

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, testPair, conf.Pair.Address)
	assert.Equal(t, testMint, conf.Pair.AssetMint)
	assert.Equal(t, 30*time.Second, conf.PollInterval)
	assert.True(t, conf.DryRun)
	assert.Equal(t, uint64(10_000_000), conf.Ladder.InitialRungNative)
	assert.Equal(t, 3, conf.Ladder.MaxRungs)
	assert.True(t, conf.Ladder.UnderflowTolerance.Equal(decimal.RequireFromString("0.9")))
	assert.True(t, conf.Ladder.NoBuyZoneEnabled)
	assert.Equal(t, solana.TokenProgramID, conf.Solana.TokenProgram)
	assert.Equal(t, DefaultConfirmTimeout, conf.Solana.ConfirmTimeout)
	assert.Equal(t, DefaultJupiterURL, conf.JupiterURL)
	assert.True(t, conf.Tip.FlushThresholdQuote.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "token-from-env", conf.Notify.TelegramToken)
	assert.Equal(t, int64(42), conf.Notify.TelegramChatID)
	assert.Equal(t, []string{"BUY", "SELL"}, conf.Notify.TelegramEvents)
	assert.Equal(t, ":9090", conf.MetricsListen)
}

func validTmp() ConfigTmp {
	tmp := DefaultTmp()
	tmp.Pair = testPair
	tmp.AssetMint = testMint
	tmp.DryRun = true
	tmp.Solana.RPCURL = "https://rpc.example"
	return tmp
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConfigTmp)
	}{
		{"missing pair", func(c *ConfigTmp) { c.Pair = "" }},
		{"missing asset mint", func(c *ConfigTmp) { c.AssetMint = "" }},
		{"bad asset mint", func(c *ConfigTmp) { c.AssetMint = "not-base58-0OIl" }},
		{"missing rpc", func(c *ConfigTmp) { c.Solana.RPCURL = "" }},
		{"wallet required when live", func(c *ConfigTmp) { c.DryRun = false }},
		{"bad wallet key", func(c *ConfigTmp) { c.Solana.WalletKey = "abc" }},
		{"bad decimal", func(c *ConfigTmp) { c.Ladder.BaseDropPct = "ten" }},
		{"invalid ladder", func(c *ConfigTmp) { c.Ladder.SellProfitPct = "0" }},
		{"tolerance above one", func(c *ConfigTmp) { c.Ladder.UnderflowTolerance = "1.5" }},
		{"zero threshold", func(c *ConfigTmp) { c.Tip.FlushThresholdQuote = "0" }},
		{"bad tip destination", func(c *ConfigTmp) { c.Tip.Destination = "xyz" }},
		{"unknown event kind", func(c *ConfigTmp) { c.Notify.Webhook.Events = []string{"TRADE"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := validTmp()
			tt.mutate(&tmp)
			_, err := tmp.Parse()
			assert.Error(t, err)
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	conf, err := validTmp().Parse()
	require.NoError(t, err)

	assert.Equal(t, DefaultPollInterval, conf.PollInterval)
	assert.Equal(t, DefaultStateDir, conf.StateDir)
	assert.Equal(t, DefaultNativeRefSymbol, conf.NativeRefSymbol)
	assert.Equal(t, float64(DefaultRPCRateLimit), conf.Solana.RateLimit)
	assert.Empty(t, conf.Tip.Destination)
	assert.NoError(t, conf.Ladder.Validate())
	assert.Equal(t, domain.NativeToLamports(decimal.RequireFromString("0.01")), conf.Ladder.InitialRungNative)
}

func TestParse_TipDestination(t *testing.T) {
	tmp := validTmp()
	tmp.Tip.Destination = solana.NewKeypairFromSeed(make([]byte, 32)).PublicKey().String()
	conf, err := tmp.Parse()
	require.NoError(t, err)
	assert.Equal(t, tmp.Tip.Destination, conf.Tip.Destination)
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags([]string{"--config", "x.yaml", "--debug", "status"})
	require.NoError(t, err)
	assert.Equal(t, Flags{ConfigPath: "x.yaml", Debug: true, Command: CommandStatus}, f)

	f, err = ParseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, CommandRun, f.Command)
	assert.Equal(t, "config.yaml", f.ConfigPath)

	_, err = ParseFlags([]string{"trade"})
	assert.Error(t, err)
}
