package setup

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/ladder/config"
	"github.com/vadiminshakov/ladder/internal/clients/solana"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

const title = "LADDER CONFIG WIZARD"

func screen(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render(title))
	fmt.Println(stepStyle.Render(step))
}

// RunTUI launches the terminal configuration wizard and writes the YAML config to path.
func RunTUI(path string) error {
	tmp := config.DefaultTmp()

	var (
		pollIntervalStr = tmp.PollInterval.String()
		maxRungsStr     = strconv.Itoa(tmp.Ladder.MaxRungs)
		periodStr       = strconv.Itoa(tmp.Ladder.IndicatorPeriod)
		slippageStr     = strconv.Itoa(tmp.Ladder.SlippageCapBps)
		chatIDStr       string
		confirm         bool
	)

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render(title))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Configure a DCA ladder on a Solana DEX pair.\n"))

	// pair
	fmt.Println(stepStyle.Render("STEP 1: PAIR"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("DEX pair address").
				Description("Pool address used for price lookups").
				Value(&tmp.Pair).
				Validate(validateAddress),
			huh.NewInput().
				Title("Asset mint").
				Description("Mint of the token to accumulate").
				Value(&tmp.AssetMint).
				Validate(validateAddress),
		),
	).Run()
	if err != nil {
		return err
	}

	// ladder
	screen("STEP 2: LADDER")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Initial rung (SOL)").
				Value(&tmp.Ladder.InitialRungNative).
				Validate(validatePositive),
			huh.NewInput().
				Title("Max rungs").
				Description("0 means unbounded").
				Value(&maxRungsStr).
				Validate(validateNonNegativeInt),
			huh.NewInput().
				Title("Volume multiplier").
				Value(&tmp.Ladder.VolumeMultiplier).
				Validate(validatePositive),
			huh.NewInput().
				Title("Base drop %").
				Value(&tmp.Ladder.BaseDropPct).
				Validate(validatePositive),
			huh.NewInput().
				Title("Drop multiplier").
				Value(&tmp.Ladder.DropMultiplier).
				Validate(validatePositive),
			huh.NewInput().
				Title("Sell profit %").
				Value(&tmp.Ladder.SellProfitPct).
				Validate(validatePositive),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Skip buys above the upper indicator band?").
				Value(&tmp.Ladder.NoBuyZone),
			huh.NewInput().
				Title("Indicator period").
				Value(&periodStr).
				Validate(validateNonNegativeInt),
			huh.NewInput().
				Title("Indicator spread multiplier").
				Value(&tmp.Ladder.IndicatorSpreadMultiplier),
			huh.NewInput().
				Title("Slippage cap (bps)").
				Value(&slippageStr).
				Validate(validateNonNegativeInt),
		),
	).Run()
	if err != nil {
		return err
	}

	// chain
	screen("STEP 3: CHAIN")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Solana RPC URL").
				Description(fmt.Sprintf("Can be left empty and set via %s", config.EnvRPCURL)).
				Value(&tmp.Solana.RPCURL),
			huh.NewInput().
				Title("Poll interval").
				Description("Duration string (e.g. 30s, 1m, 5m)").
				Value(&pollIntervalStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
			huh.NewConfirm().
				Title("Dry run?").
				Description("Paper trading against live prices").
				Value(&tmp.DryRun),
		),
	).Run()
	if err != nil {
		return err
	}

	// tip and notifications
	screen("STEP 4: TIP AND NOTIFICATIONS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Tip destination").
				Description("Wallet receiving 1% of realised profit, empty to only accrue").
				Value(&tmp.Tip.Destination).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					return solana.ValidateWalletAddress(s)
				}),
			huh.NewInput().
				Title("Telegram chat id").
				Description(fmt.Sprintf("Empty disables Telegram; the token is read from %s", config.EnvTelegramToken)).
				Value(&chatIDStr),
			huh.NewInput().
				Title("Webhook URL").
				Description("Empty disables the webhook").
				Value(&tmp.Notify.Webhook.URL),
		),
	).Run()
	if err != nil {
		return err
	}

	tmp.PollInterval, _ = time.ParseDuration(pollIntervalStr)
	tmp.Ladder.MaxRungs, _ = strconv.Atoi(maxRungsStr)
	tmp.Ladder.IndicatorPeriod, _ = strconv.Atoi(periodStr)
	tmp.Ladder.SlippageCapBps, _ = strconv.Atoi(slippageStr)
	if chatIDStr != "" {
		if tmp.Notify.Telegram.ChatID, err = strconv.ParseInt(chatIDStr, 10, 64); err != nil {
			return fmt.Errorf("invalid telegram chat id: %w", err)
		}
		tmp.Notify.Telegram.Events = []string{"BUY", "SELL"}
	}
	if tmp.Notify.Webhook.URL != "" {
		tmp.Notify.Webhook.Events = []string{"ALL"}
	}

	// confirmation
	screen("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Pair: %s\nAsset: %s\nInitial rung: %s SOL\nMax rungs: %s\nDrop: %s%% x%s\nSell at: +%s%%\nDry run: %t\n",
		tmp.Pair, tmp.AssetMint, tmp.Ladder.InitialRungNative, maxRungsStr,
		tmp.Ladder.BaseDropPct, tmp.Ladder.DropMultiplier, tmp.Ladder.SellProfitPct, tmp.DryRun,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := Write(path, tmp); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting bot...", path)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

// Write stores tmp as YAML at path.
func Write(path string, tmp config.ConfigTmp) error {
	data, err := yaml.Marshal(tmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func validateAddress(s string) error {
	if s == "" {
		return fmt.Errorf("address cannot be empty")
	}
	_, err := solana.ParsePublicKey(s)
	return err
}

func validatePositive(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateNonNegativeInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
