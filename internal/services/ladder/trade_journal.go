package ladder

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/ladder/internal/domain"
)

const (
	tradeIntentKeyPrefix       = "ladder_trade_intent_"
	tradeIntentStatusPending   = "pending"
	tradeIntentStatusSubmitted = "submitted"
	tradeIntentStatusDone      = "done"
	tradeIntentStatusFailed    = "failed"

	walSegmentThreshold = 1000
	walMaxSegments      = 100
	walDirPermissions   = 0o755
)

type tradeIntentAction string

const (
	intentActionBuy  tradeIntentAction = "buy"
	intentActionSell tradeIntentAction = "sell"
	intentActionTip  tradeIntentAction = "tip"
)

type tradeIntentRecord struct {
	ID     string            `json:"id"`
	Status string            `json:"status"`
	Action tradeIntentAction `json:"action"`
	Price  decimal.Decimal   `json:"price"`
	Time   time.Time         `json:"time"`
	// NativeAmount is lamports spent on a buy or paid as a tip.
	NativeAmount uint64 `json:"native_amount,omitempty"`
	// AssetAmount is the quoted asset out of a buy or the asset sold.
	AssetAmount domain.RawAmount `json:"asset_amount"`
	// Sell carries the expected outcome of a sell, tip included.
	Sell        *domain.SellSummary `json:"sell,omitempty"`
	TipLamports uint64              `json:"tip_lamports,omitempty"`
	TxID        string              `json:"tx_id,omitempty"`
	Error       string              `json:"error,omitempty"`
}

type tradeJournal struct {
	wal     *gowal.Wal
	intents []*tradeIntentRecord
	index   map[string]*tradeIntentRecord
}

func openJournalWAL(dir string) (*gowal.Wal, error) {
	if err := os.MkdirAll(dir, walDirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to ensure WAL directory %s", dir)
	}

	return gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "intent_",
		SegmentThreshold: walSegmentThreshold,
		MaxSegments:      walMaxSegments,
		IsInSyncDiskMode: true,
	})
}

// loadTradeJournal replays the WAL. Later records of the same intent replace earlier ones.
func loadTradeJournal(wal *gowal.Wal) (*tradeJournal, []error) {
	j := &tradeJournal{wal: wal, index: make(map[string]*tradeIntentRecord)}
	var errs []error

	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, tradeIntentKeyPrefix) {
			continue
		}
		var intent tradeIntentRecord
		if err := json.Unmarshal(msg.Value, &intent); err != nil {
			errs = append(errs, errors.Wrapf(err, "unmarshal trade intent %s", msg.Key))
			continue
		}
		if existing, ok := j.index[intent.ID]; ok {
			*existing = intent
			continue
		}
		rec := intent
		j.intents = append(j.intents, &rec)
		j.index[rec.ID] = &rec
	}

	return j, errs
}

func (j *tradeJournal) Prepare(intent *tradeIntentRecord) (*tradeIntentRecord, error) {
	intent.ID = uuid.New().String()
	intent.Status = tradeIntentStatusPending

	if err := j.persist(intent); err != nil {
		return nil, err
	}

	j.intents = append(j.intents, intent)
	j.index[intent.ID] = intent
	return intent, nil
}

func (j *tradeJournal) MarkSubmitted(intent *tradeIntentRecord, txID string) error {
	intent.Status = tradeIntentStatusSubmitted
	intent.TxID = txID
	return j.persist(intent)
}

func (j *tradeJournal) MarkFailed(intent *tradeIntentRecord, err error) error {
	if intent == nil {
		return nil
	}
	intent.Status = tradeIntentStatusFailed
	if err != nil {
		intent.Error = err.Error()
	} else {
		intent.Error = ""
	}
	return j.persist(intent)
}

func (j *tradeJournal) MarkDone(intent *tradeIntentRecord) error {
	if intent == nil {
		return nil
	}
	intent.Status = tradeIntentStatusDone
	intent.Error = ""
	return j.persist(intent)
}

// Open returns intents that are neither done nor failed.
func (j *tradeJournal) Open() []*tradeIntentRecord {
	open := make([]*tradeIntentRecord, 0)
	for _, it := range j.intents {
		if it.Status == tradeIntentStatusPending || it.Status == tradeIntentStatusSubmitted {
			open = append(open, it)
		}
	}
	return open
}

func (j *tradeJournal) Intents() []*tradeIntentRecord {
	return j.intents
}

func (j *tradeJournal) persist(intent *tradeIntentRecord) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return errors.Wrap(err, "failed to marshal trade intent")
	}
	key := fmt.Sprintf("%s%s", tradeIntentKeyPrefix, intent.ID)
	nextIndex := j.wal.CurrentIndex() + 1
	return j.wal.Write(nextIndex, key, data)
}

func (j *tradeJournal) Close() error {
	return j.wal.Close()
}
