package decisions

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/ladder/internal/domain"
)

func TestWALStore_SaveAndReadBack(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	start := store.CurrentIndex()

	for i, action := range []domain.Action{domain.ActionFirstBuy, domain.ActionHold, domain.ActionSell} {
		ev := domain.DecisionEvent{
			Timestamp:    time.Now().UTC(),
			Pair:         "BONK/SOL",
			Action:       action.String(),
			CurrentPrice: decimal.NewFromInt(int64(100 + i)),
			RungIndex:    i,
		}
		require.NoError(t, store.Save(ev))
	}

	records, err := store.EventsAfter(start)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "first_buy", records[0].Event.Action)
	require.Equal(t, "sell", records[2].Event.Action)
	require.True(t, records[1].Event.CurrentPrice.Equal(decimal.NewFromInt(101)))

	tail, err := store.EventsAfter(records[1].Index)
	require.NoError(t, err)
	require.Len(t, tail, 1)
}

func TestWALStore_RequiresPair(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.Error(t, store.Save(domain.DecisionEvent{Action: "hold"}))
}
