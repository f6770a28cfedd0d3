// Package notify routes engine events to the configured delivery channels.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/ladder/internal/domain"
)

const DefaultDeliveryTimeout = 10 * time.Second

// Channel delivers one message to one destination.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, kind domain.EventKind, msg string) error
}

type route struct {
	ch     Channel
	filter Filter
}

// Router fans an event out to every channel whose filter admits it.
type Router struct {
	l       *zap.Logger
	routes  []route
	timeout time.Duration
}

func NewRouter(l *zap.Logger, timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	return &Router{l: l, timeout: timeout}
}

// Add registers ch behind filter. A filter that admits nothing is not registered.
func (r *Router) Add(ch Channel, filter Filter) {
	if filter.Empty() {
		r.l.Debug("notification channel disabled by empty filter", zap.String("channel", ch.Name()))
		return
	}
	r.routes = append(r.routes, route{ch: ch, filter: filter})
}

// Channels lists the names of registered channels.
func (r *Router) Channels() []string {
	names := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		names = append(names, rt.ch.Name())
	}
	return names
}

// Send delivers msg to all admitting channels concurrently and waits for every attempt.
// Failures are logged and never returned.
func (r *Router) Send(ctx context.Context, kind domain.EventKind, msg string) {
	var g errgroup.Group
	for _, rt := range r.routes {
		if !rt.filter.Allows(kind) {
			continue
		}
		g.Go(func() error {
			dctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			if err := rt.ch.Deliver(dctx, kind, msg); err != nil {
				r.l.Warn("notification delivery failed",
					zap.String("channel", rt.ch.Name()),
					zap.Stringer("kind", kind),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}
