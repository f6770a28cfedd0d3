package notify

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Settings describes the channels to build.
type Settings struct {
	LogEvents []string

	TelegramToken  string
	TelegramChatID int64
	TelegramEvents []string

	WebhookURL    string
	WebhookEvents []string
}

// Build assembles a router. The log channel fails open; optional channels fail closed and are
// only constructed when their endpoint is configured.
func Build(l *zap.Logger, s Settings) (*Router, error) {
	r := NewRouter(l, DefaultDeliveryTimeout)

	logFilter, err := ParseFilter(s.LogEvents, true)
	if err != nil {
		return nil, errors.Wrap(err, "log channel")
	}
	r.Add(NewLogChannel(l), logFilter)

	if s.TelegramToken != "" && s.TelegramChatID != 0 {
		f, err := ParseFilter(s.TelegramEvents, false)
		if err != nil {
			return nil, errors.Wrap(err, "telegram channel")
		}
		if !f.Empty() {
			ch, err := NewTelegramChannel(s.TelegramToken, s.TelegramChatID)
			if err != nil {
				return nil, err
			}
			r.Add(ch, f)
		}
	}

	if s.WebhookURL != "" {
		f, err := ParseFilter(s.WebhookEvents, false)
		if err != nil {
			return nil, errors.Wrap(err, "webhook channel")
		}
		r.Add(NewWebhookChannel(s.WebhookURL), f)
	}

	return r, nil
}
