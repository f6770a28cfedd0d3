package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladder/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(zap.NewNop(), t.TempDir())
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

func TestLoad_MissingFile(t *testing.T) {
	s := newTestStore(t)

	state, err := s.Load()
	require.NoError(t, err)
	require.Nil(t, state)
}

func TestLoad_EmptyFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), nil, 0o644))

	state, err := s.Load()
	require.NoError(t, err)
	require.Nil(t, state)
}

func TestLoad_CorruptFileIsQuarantined(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"trackedAssetId": "x", "buys": [`), 0o644))

	state, err := s.Load()
	require.NoError(t, err)
	require.Nil(t, state)

	_, err = os.Stat(s.Path())
	require.True(t, os.IsNotExist(err), "corrupt file must be moved away")

	quarantined := s.Path() + ".corrupt-20260102T030405Z"
	payload, err := os.ReadFile(quarantined)
	require.NoError(t, err)
	require.Contains(t, string(payload), "trackedAssetId")
}

func TestLoad_UntaggedBigIntIsCorrupt(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"trackedAssetId":"x","buys":[],"sells":[],"pendingTipNative":5}`), 0o644))

	state, err := s.Load()
	require.NoError(t, err)
	require.Nil(t, state)

	matches, err := filepath.Glob(s.Path() + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	state := domain.NewLadderState("mint")
	require.NoError(t, state.AddBuy(decimal.RequireFromString("0.5"), 10_000_000, domain.RawAmountFromUint64(20_000_000), "tx1", time.Unix(1700000000, 0).UTC()))
	state.AccrueTip(1234)

	require.NoError(t, s.Save(state))

	_, err := os.Stat(s.Path() + ".tmp")
	require.True(t, os.IsNotExist(err), "temp file must be renamed")

	loaded, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "mint", loaded.TrackedAssetID)
	require.Len(t, loaded.Buys, 1)
	require.Equal(t, "tx1", loaded.Buys[0].TxID)
	require.Equal(t, "20000000", loaded.Buys[0].AssetAmount.String())
	require.Equal(t, uint64(1234), loaded.PendingTipNative.Uint64())
	require.NotNil(t, loaded.Sells)
}
