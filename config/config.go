package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/ladder/internal/clients/solana"
	"github.com/vadiminshakov/ladder/internal/domain"
)

// environment overrides for secrets
const (
	EnvWalletKey     = "LADDER_WALLET_KEY"
	EnvTelegramToken = "LADDER_TELEGRAM_TOKEN"
	EnvRPCURL        = "LADDER_RPC_URL"
)

const (
	DefaultPollInterval    = time.Minute
	DefaultStateDir        = "./state"
	DefaultNativeRefSymbol = "SOLUSDT"
	DefaultJupiterURL      = "https://lite-api.jup.ag/swap/v1"
	DefaultDexScreenerURL  = "https://api.dexscreener.com"
	DefaultRPCRateLimit    = 5
	DefaultConfirmInterval = 2 * time.Second
	DefaultConfirmTimeout  = 90 * time.Second
)

type Config struct {
	Pair            domain.Pair
	NativeRefSymbol string
	PollInterval    time.Duration
	DryRun          bool
	StateDir        string
	Ladder          domain.LadderConfig
	Solana          SolanaConfig
	JupiterURL      string
	DexScreenerURL  string
	Tip             TipConfig
	Notify          NotifyConfig
	MetricsListen   string
}

type SolanaConfig struct {
	RPCURL          string
	WalletKey       string
	TokenProgram    solana.PublicKey
	RateLimit       float64
	ConfirmInterval time.Duration
	ConfirmTimeout  time.Duration
}

type TipConfig struct {
	Destination         string
	FlushThresholdQuote decimal.Decimal
}

type NotifyConfig struct {
	LogEvents      []string
	TelegramToken  string
	TelegramChatID int64
	TelegramEvents []string
	WebhookURL     string
	WebhookEvents  []string
}

// ConfigTmp mirrors the YAML file. Decimal values are kept as strings until parsed.
type ConfigTmp struct {
	Pair            string        `yaml:"pair"`
	AssetMint       string        `yaml:"asset_mint"`
	NativeRefSymbol string        `yaml:"native_ref_symbol,omitempty"`
	PollInterval    time.Duration `yaml:"poll_interval,omitempty"`
	DryRun          bool          `yaml:"dry_run,omitempty"`
	StateDir        string        `yaml:"state_dir,omitempty"`
	Ladder          LadderTmp     `yaml:"ladder"`
	Solana          SolanaTmp     `yaml:"solana"`
	Jupiter         struct {
		BaseURL string `yaml:"base_url,omitempty"`
	} `yaml:"jupiter,omitempty"`
	DexScreener struct {
		BaseURL string `yaml:"base_url,omitempty"`
	} `yaml:"dexscreener,omitempty"`
	Tip     TipTmp    `yaml:"tip,omitempty"`
	Notify  NotifyTmp `yaml:"notify,omitempty"`
	Metrics struct {
		Listen string `yaml:"listen,omitempty"`
	} `yaml:"metrics,omitempty"`
}

type LadderTmp struct {
	InitialRungNative         string `yaml:"initial_rung_native"`
	MaxRungs                  int    `yaml:"max_rungs"`
	VolumeMultiplier          string `yaml:"volume_multiplier"`
	BaseDropPct               string `yaml:"base_drop_pct"`
	DropMultiplier            string `yaml:"drop_multiplier"`
	SellProfitPct             string `yaml:"sell_profit_pct"`
	IndicatorPeriod           int    `yaml:"indicator_period"`
	IndicatorSpreadMultiplier string `yaml:"indicator_spread_multiplier"`
	NoBuyZone                 bool   `yaml:"no_buy_zone"`
	SlippageCapBps            int    `yaml:"slippage_cap_bps"`
	UnderflowTolerance        string `yaml:"underflow_tolerance,omitempty"`
}

type SolanaTmp struct {
	RPCURL          string        `yaml:"rpc_url,omitempty"`
	WalletKey       string        `yaml:"wallet_key,omitempty"`
	TokenProgram    string        `yaml:"token_program,omitempty"`
	RateLimit       float64       `yaml:"rate_limit,omitempty"`
	ConfirmInterval time.Duration `yaml:"confirm_interval,omitempty"`
	ConfirmTimeout  time.Duration `yaml:"confirm_timeout,omitempty"`
}

type TipTmp struct {
	Destination         string `yaml:"destination,omitempty"`
	FlushThresholdQuote string `yaml:"flush_threshold_quote,omitempty"`
}

type ChannelTmp struct {
	Token  string   `yaml:"token,omitempty"`
	ChatID int64    `yaml:"chat_id,omitempty"`
	URL    string   `yaml:"url,omitempty"`
	Events []string `yaml:"events,omitempty"`
}

type NotifyTmp struct {
	Log      ChannelTmp `yaml:"log,omitempty"`
	Telegram ChannelTmp `yaml:"telegram,omitempty"`
	Webhook  ChannelTmp `yaml:"webhook,omitempty"`
}

// DefaultTmp returns a template with the recommended ladder settings.
func DefaultTmp() ConfigTmp {
	return ConfigTmp{
		NativeRefSymbol: DefaultNativeRefSymbol,
		PollInterval:    DefaultPollInterval,
		StateDir:        DefaultStateDir,
		Ladder: LadderTmp{
			InitialRungNative:         "0.01",
			MaxRungs:                  3,
			VolumeMultiplier:          "2",
			BaseDropPct:               "10",
			DropMultiplier:            "1",
			SellProfitPct:             "5",
			IndicatorPeriod:           20,
			IndicatorSpreadMultiplier: "2",
			NoBuyZone:                 true,
			SlippageCapBps:            100,
			UnderflowTolerance:        domain.DefaultUnderflowTolerance.String(),
		},
		Tip: TipTmp{FlushThresholdQuote: "1"},
	}
}

// Load reads .env (if present) and the YAML file at path, applies environment overrides
// and validates the result.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	tmp := DefaultTmp()
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("failed to parse yaml config %s: %w", path, err)
	}
	applyEnv(&tmp)

	return tmp.Parse()
}

func applyEnv(tmp *ConfigTmp) {
	if v := os.Getenv(EnvWalletKey); v != "" {
		tmp.Solana.WalletKey = v
	}
	if v := os.Getenv(EnvTelegramToken); v != "" {
		tmp.Notify.Telegram.Token = v
	}
	if v := os.Getenv(EnvRPCURL); v != "" {
		tmp.Solana.RPCURL = v
	}
}

// Parse converts the raw YAML values into a validated Config.
func (c ConfigTmp) Parse() (Config, error) {
	if strings.TrimSpace(c.Pair) == "" {
		return Config{}, fmt.Errorf("'pair' is required")
	}
	if strings.TrimSpace(c.AssetMint) == "" {
		return Config{}, fmt.Errorf("'asset_mint' is required")
	}
	if _, err := solana.ParsePublicKey(c.AssetMint); err != nil {
		return Config{}, fmt.Errorf("incorrect 'asset_mint' param in yaml config: %w", err)
	}

	ladder, err := c.Ladder.parse()
	if err != nil {
		return Config{}, err
	}

	conf := Config{
		Pair:            domain.Pair{Address: c.Pair, AssetMint: c.AssetMint},
		NativeRefSymbol: valueOr(c.NativeRefSymbol, DefaultNativeRefSymbol),
		PollInterval:    c.PollInterval,
		DryRun:          c.DryRun,
		StateDir:        valueOr(c.StateDir, DefaultStateDir),
		Ladder:          ladder,
		JupiterURL:      valueOr(c.Jupiter.BaseURL, DefaultJupiterURL),
		DexScreenerURL:  valueOr(c.DexScreener.BaseURL, DefaultDexScreenerURL),
		MetricsListen:   c.Metrics.Listen,
		Notify: NotifyConfig{
			LogEvents:      c.Notify.Log.Events,
			TelegramToken:  c.Notify.Telegram.Token,
			TelegramChatID: c.Notify.Telegram.ChatID,
			TelegramEvents: c.Notify.Telegram.Events,
			WebhookURL:     c.Notify.Webhook.URL,
			WebhookEvents:  c.Notify.Webhook.Events,
		},
	}
	if conf.PollInterval <= 0 {
		conf.PollInterval = DefaultPollInterval
	}

	conf.Solana, err = c.Solana.parse(c.DryRun)
	if err != nil {
		return Config{}, err
	}

	conf.Tip, err = c.Tip.parse()
	if err != nil {
		return Config{}, err
	}

	for _, events := range [][]string{c.Notify.Log.Events, c.Notify.Telegram.Events, c.Notify.Webhook.Events} {
		for _, name := range events {
			if strings.EqualFold(strings.TrimSpace(name), domain.AllEvents) {
				continue
			}
			if _, err := domain.ParseEventKind(name); err != nil {
				return Config{}, fmt.Errorf("incorrect notify events: %w", err)
			}
		}
	}

	return conf, nil
}

func (l LadderTmp) parse() (domain.LadderConfig, error) {
	initial, err := parseDecimal("initial_rung_native", l.InitialRungNative)
	if err != nil {
		return domain.LadderConfig{}, err
	}
	cfg := domain.LadderConfig{
		InitialRungNative: domain.NativeToLamports(initial),
		MaxRungs:          l.MaxRungs,
		IndicatorPeriod:   l.IndicatorPeriod,
		NoBuyZoneEnabled:  l.NoBuyZone,
		SlippageCapBps:    l.SlippageCapBps,
	}

	fields := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"volume_multiplier", l.VolumeMultiplier, &cfg.VolumeMultiplier},
		{"base_drop_pct", l.BaseDropPct, &cfg.BaseDropPct},
		{"drop_multiplier", l.DropMultiplier, &cfg.DropMultiplier},
		{"sell_profit_pct", l.SellProfitPct, &cfg.SellProfitPct},
		{"indicator_spread_multiplier", l.IndicatorSpreadMultiplier, &cfg.IndicatorSpreadMultiplier},
		{"underflow_tolerance", valueOr(l.UnderflowTolerance, domain.DefaultUnderflowTolerance.String()), &cfg.UnderflowTolerance},
	}
	for _, f := range fields {
		if *f.dst, err = parseDecimal(f.name, f.value); err != nil {
			return domain.LadderConfig{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return domain.LadderConfig{}, fmt.Errorf("invalid ladder config: %w", err)
	}
	return cfg, nil
}

func (s SolanaTmp) parse(dryRun bool) (SolanaConfig, error) {
	if s.RPCURL == "" {
		return SolanaConfig{}, fmt.Errorf("'solana.rpc_url' is required (or set %s)", EnvRPCURL)
	}
	if s.WalletKey == "" && !dryRun {
		return SolanaConfig{}, fmt.Errorf("'solana.wallet_key' is required unless dry_run is set (or set %s)", EnvWalletKey)
	}
	if s.WalletKey != "" {
		if _, err := solana.ParseKeypair(s.WalletKey); err != nil {
			return SolanaConfig{}, fmt.Errorf("incorrect wallet key: %w", err)
		}
	}

	program := solana.TokenProgramID
	if s.TokenProgram != "" {
		var err error
		if program, err = solana.ParsePublicKey(s.TokenProgram); err != nil {
			return SolanaConfig{}, fmt.Errorf("incorrect 'solana.token_program': %w", err)
		}
	}

	conf := SolanaConfig{
		RPCURL:          s.RPCURL,
		WalletKey:       s.WalletKey,
		TokenProgram:    program,
		RateLimit:       s.RateLimit,
		ConfirmInterval: s.ConfirmInterval,
		ConfirmTimeout:  s.ConfirmTimeout,
	}
	if conf.RateLimit <= 0 {
		conf.RateLimit = DefaultRPCRateLimit
	}
	if conf.ConfirmInterval <= 0 {
		conf.ConfirmInterval = DefaultConfirmInterval
	}
	if conf.ConfirmTimeout <= 0 {
		conf.ConfirmTimeout = DefaultConfirmTimeout
	}
	return conf, nil
}

func (t TipTmp) parse() (TipConfig, error) {
	threshold, err := parseDecimal("tip.flush_threshold_quote", valueOr(t.FlushThresholdQuote, "1"))
	if err != nil {
		return TipConfig{}, err
	}
	if !threshold.IsPositive() {
		return TipConfig{}, fmt.Errorf("'tip.flush_threshold_quote' must be positive, got %s", threshold)
	}
	if t.Destination != "" {
		if err := solana.ValidateWalletAddress(t.Destination); err != nil {
			return TipConfig{}, fmt.Errorf("incorrect 'tip.destination': %w", err)
		}
	}
	return TipConfig{Destination: t.Destination, FlushThresholdQuote: threshold}, nil
}

func parseDecimal(name, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("incorrect '%s' param in yaml config (must be a decimal), error: %w", name, err)
	}
	return d, nil
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
