// Package status renders the persisted ladder for the status command.
package status

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/vadiminshakov/ladder/internal/domain"
)

// Windows are the rolling periods summarised under the rung table.
var Windows = []struct {
	Label string
	Span  time.Duration
}{
	{"24h", 24 * time.Hour},
	{"7d", 7 * 24 * time.Hour},
	{"all", 0},
}

// Render writes the rung table, triggers and rolling sell statistics of state.
func Render(out io.Writer, pair domain.Pair, cfg domain.LadderConfig, state *domain.LadderState, assetDecimals uint8, now time.Time) {
	if state == nil {
		state = domain.NewLadderState(pair.AssetMint)
	}

	fmt.Fprintf(out, "\n%s  asset %s\n", pair.String(), pair.AssetMint)

	if state.IsEmpty() {
		fmt.Fprintln(out, "  no open rungs")
	} else {
		table := tablewriter.NewWriter(out)
		table.Header("#", "Time", "Price", "Spent SOL", "Asset", "Tx")
		for i, b := range state.Buys {
			table.Append(
				fmt.Sprintf("%d", i),
				b.Time.UTC().Format("2006-01-02 15:04"),
				b.Price.String(),
				domain.LamportsToNative(b.NativeAmount).String(),
				b.AssetAmount.Units(assetDecimals).String(),
				domain.ShortID(b.TxID),
			)
		}
		table.Render()

		fmt.Fprintf(out, "  avg cost:     %s\n", state.AvgCost().StringFixed(10))
		fmt.Fprintf(out, "  buy trigger:  %s", state.BuyTrigger(cfg).StringFixed(10))
		if cfg.Bounded() && state.RungIndex() >= cfg.MaxRungs {
			fmt.Fprint(out, " (rung cap reached)")
		} else {
			fmt.Fprintf(out, " next rung %s SOL", domain.LamportsToNative(cfg.NextRungNative(state.RungIndex())))
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  sell trigger: %s\n", state.SellTrigger(cfg).StringFixed(10))
	}

	fmt.Fprintf(out, "  pending tip:  %s SOL\n\n", domain.LamportsToNative(state.PendingTipNative.Uint64()))

	stats := tablewriter.NewWriter(out)
	stats.Header("Window", "Sells", "Profit", "Win rate")
	for _, w := range Windows {
		var since time.Time
		if w.Span > 0 {
			since = now.Add(-w.Span)
		}
		s := state.SellStatsSince(since)
		stats.Append(
			w.Label,
			fmt.Sprintf("%d", s.Count),
			s.ProfitQuote.StringFixed(4),
			fmt.Sprintf("%s%%", s.WinRate().StringFixed(1)),
		)
	}
	stats.Render()
}
