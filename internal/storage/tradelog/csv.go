// Package tradelog appends confirmed trades to a CSV ledger.
package tradelog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/ladder/internal/domain"
)

// Header is the fixed column order of the trade ledger.
var Header = []string{
	"timestamp", "symbol", "event", "txId", "assetAmount", "price",
	"nativeDelta", "nativeRefPrice", "quoteDelta", "pnlPct", "pnlQuote",
}

// Writer appends trade rows, writing the header once for a new file.
type Writer struct {
	mu   sync.Mutex
	path string
}

// NewWriter creates a ledger writer for path.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create trade ledger dir")
	}
	return &Writer{path: path}, nil
}

// Append writes one trade row and flushes it to disk.
func (w *Writer) Append(ev domain.TradeEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open trade ledger")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "stat trade ledger")
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(Header); err != nil {
			return errors.Wrap(err, "write trade ledger header")
		}
	}

	if err := cw.Write(row(ev)); err != nil {
		return errors.Wrap(err, "write trade ledger row")
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "flush trade ledger")
	}

	return f.Sync()
}

func row(ev domain.TradeEvent) []string {
	pnlPct, pnlQuote := "", ""
	if ev.PnLPct != nil {
		pnlPct = ev.PnLPct.StringFixed(4)
	}
	if ev.PnLQuote != nil {
		pnlQuote = ev.PnLQuote.StringFixed(6)
	}

	return []string{
		ev.Time.UTC().Format(time.RFC3339),
		ev.Symbol,
		ev.Kind().String(),
		ev.TxID,
		ev.AssetAmount.String(),
		ev.Price.String(),
		ev.NativeDelta.String(),
		ev.NativeRefPrice.String(),
		ev.QuoteDelta.StringFixed(6),
		pnlPct,
		pnlQuote,
	}
}
