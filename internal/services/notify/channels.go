package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladder/internal/domain"
)

// LogChannel writes events to the process log. It is always available.
type LogChannel struct {
	l *zap.Logger
}

func NewLogChannel(l *zap.Logger) *LogChannel {
	return &LogChannel{l: l}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Deliver(_ context.Context, kind domain.EventKind, msg string) error {
	c.l.Info(msg, zap.Stringer("event", kind))
	return nil
}

// TelegramChannel sends events to one chat.
type TelegramChannel struct {
	bot    *bot.Bot
	chatID int64
}

// NewTelegramChannel builds the channel without contacting the API.
func NewTelegramChannel(token string, chatID int64, opts ...bot.Option) (*TelegramChannel, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := bot.New(token, append([]bot.Option{bot.WithSkipGetMe()}, opts...)...)
	if err != nil {
		return nil, errors.Wrap(err, "create telegram bot")
	}
	return &TelegramChannel{bot: b, chatID: chatID}, nil
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Deliver(ctx context.Context, kind domain.EventKind, msg string) error {
	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: c.chatID,
		Text:   "[" + kind.String() + "] " + msg,
	})
	return err
}

// WebhookChannel posts events as JSON to a URL.
type WebhookChannel struct {
	url        string
	httpClient *http.Client
}

func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{url: url, httpClient: &http.Client{}}
}

func (c *WebhookChannel) Name() string { return "webhook" }

type webhookMessage struct {
	Event     string `json:"event"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

func (c *WebhookChannel) Deliver(ctx context.Context, kind domain.EventKind, msg string) error {
	var buf bytes.Buffer
	m := webhookMessage{Event: kind.String(), Message: msg, Timestamp: time.Now().Unix()}
	if err := json.NewEncoder(&buf).Encode(m); err != nil {
		return errors.Wrap(err, "could not json-encode message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return errors.Wrap(err, "could not create post request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "could not perform post request")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("webhook returned http-status %d", resp.StatusCode)
	}
	return nil
}
