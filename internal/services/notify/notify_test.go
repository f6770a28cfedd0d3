package notify

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladder/internal/domain"
)

type recordingChannel struct {
	name  string
	err   error
	delay time.Duration

	mu    sync.Mutex
	kinds []domain.EventKind
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Deliver(ctx context.Context, kind domain.EventKind, _ string) error {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	c.kinds = append(c.kinds, kind)
	c.mu.Unlock()
	return c.err
}

func (c *recordingChannel) received() []domain.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.EventKind(nil), c.kinds...)
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name     string
		names    []string
		failOpen bool
		allowed  []domain.EventKind
		wantErr  bool
	}{
		{name: "primary empty is allow-all", failOpen: true, allowed: domain.EventKinds()},
		{name: "optional empty admits nothing", failOpen: false},
		{name: "sentinel", names: []string{"all"}, allowed: domain.EventKinds()},
		{name: "subset", names: []string{"BUY", "sell"}, allowed: []domain.EventKind{domain.EventBuy, domain.EventSell}},
		{name: "unknown kind", names: []string{"TRADE"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.names, tt.failOpen)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, kind := range domain.EventKinds() {
				assert.Equal(t, contains(tt.allowed, kind), f.Allows(kind), kind.String())
			}
		})
	}
}

func contains(kinds []domain.EventKind, k domain.EventKind) bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}

func TestRouter_FilterOverArbitrarySequence(t *testing.T) {
	trades, err := ParseFilter([]string{"BUY", "SELL"}, false)
	require.NoError(t, err)

	tradesOnly := &recordingChannel{name: "trades"}
	everything := &recordingChannel{name: "everything"}

	r := NewRouter(zap.NewNop(), time.Second)
	r.Add(tradesOnly, trades)
	r.Add(everything, AllowAll())

	kinds := domain.EventKinds()
	rng := rand.New(rand.NewSource(7))
	var sent, wantTrades []domain.EventKind
	for i := 0; i < 200; i++ {
		k := kinds[rng.Intn(len(kinds))]
		sent = append(sent, k)
		if k == domain.EventBuy || k == domain.EventSell {
			wantTrades = append(wantTrades, k)
		}
		r.Send(context.Background(), k, "msg")
	}

	assert.Equal(t, wantTrades, tradesOnly.received())
	assert.Equal(t, sent, everything.received())
}

func TestRouter_SwallowsFailuresAndJoinsAll(t *testing.T) {
	failing := &recordingChannel{name: "failing", err: errors.New("boom")}
	slow := &recordingChannel{name: "slow", delay: 50 * time.Millisecond}
	stuck := &recordingChannel{name: "stuck", delay: time.Hour}

	r := NewRouter(zap.NewNop(), 100*time.Millisecond)
	r.Add(failing, AllowAll())
	r.Add(slow, AllowAll())
	r.Add(stuck, AllowAll())

	start := time.Now()
	r.Send(context.Background(), domain.EventSell, "sold")

	assert.Len(t, failing.received(), 1)
	assert.Len(t, slow.received(), 1, "router waits for every delivery")
	assert.Empty(t, stuck.received())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRouter_EmptyFilterNotRegistered(t *testing.T) {
	r := NewRouter(zap.NewNop(), time.Second)
	ch := &recordingChannel{name: "optional"}
	r.Add(ch, Filter{})

	r.Send(context.Background(), domain.EventBuy, "x")
	assert.Empty(t, r.Channels())
	assert.Empty(t, ch.received())
}

func TestBuild_AbsentEndpointsNeverAttempted(t *testing.T) {
	r, err := Build(zap.NewNop(), Settings{
		TelegramEvents: []string{"ALL"},
		WebhookEvents:  []string{"ALL"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"log"}, r.Channels())

	r.Send(context.Background(), domain.EventBuy, "bought")
}

func TestBuild_WebhookDeliversFilteredKinds(t *testing.T) {
	var got []webhookMessage
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m webhookMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	}))
	defer srv.Close()

	r, err := Build(zap.NewNop(), Settings{WebhookURL: srv.URL, WebhookEvents: []string{"BUY", "SELL"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"log", "webhook"}, r.Channels())

	for _, k := range domain.EventKinds() {
		r.Send(context.Background(), k, "event "+k.String())
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, "BUY", got[0].Event)
	assert.Equal(t, "event BUY", got[0].Message)
	assert.Equal(t, "SELL", got[1].Event)
}

func TestBuild_WebhookWithoutFilterIsClosed(t *testing.T) {
	r, err := Build(zap.NewNop(), Settings{WebhookURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"log"}, r.Channels())
}

func TestWebhookChannel_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookChannel(srv.URL).Deliver(context.Background(), domain.EventTick, "tick")
	assert.Error(t, err)
}

func TestTelegramChannel_Deliver(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/sendMessage"))
		calls.Add(1)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	}))
	defer srv.Close()

	ch, err := NewTelegramChannel("123:abc", 42, bot.WithServerURL(srv.URL))
	require.NoError(t, err)
	require.NoError(t, ch.Deliver(context.Background(), domain.EventSell, "sold"))
	assert.Equal(t, int32(1), calls.Load())

	_, err = NewTelegramChannel("", 42)
	assert.Error(t, err)
}
