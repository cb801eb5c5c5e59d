package events

import (
	"context"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-envelope/pkg/envelope"
)

const defaultDeliveryTimeout = 5 * time.Second

// Notifier turns unauthorized envelopes into Events. Each event goes to the
// in-process Bus synchronously and to the downstream Fanout in the background.
type Notifier struct {
	bus     *Bus
	fanout  *Fanout
	timeout time.Duration
	log     Logger
	wg      sync.WaitGroup
}

// NotifierOption customises a Notifier.
type NotifierOption func(*Notifier)

// WithDeliveryTimeout bounds each background fanout delivery.
func WithDeliveryTimeout(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithNotifierLogger sets the logger used for delivery failures.
func WithNotifierLogger(log Logger) NotifierOption {
	return func(n *Notifier) { n.log = ensureLogger(log) }
}

// NewNotifier builds a Notifier. Either bus or fanout may be nil.
func NewNotifier(bus *Bus, fanout *Fanout, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		bus:     bus,
		fanout:  fanout,
		timeout: defaultDeliveryTimeout,
		log:     noopLogger{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var _ envelope.UnauthorizedNotifier = (*Notifier)(nil)

// Unauthorized implements envelope.UnauthorizedNotifier.
func (n *Notifier) Unauthorized(u envelope.UnauthorizedEvent) {
	if n == nil {
		return
	}
	evt := NewUnauthorizedEvent(u.Profile, u.StatusCode)
	n.bus.Publish(evt)

	if n.fanout.Size() == 0 {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		delivered, err := n.fanout.Publish(ctx, evt)
		if err != nil {
			n.log.WarnObj("unauthorized event delivery failed", "events_delivery_error", map[string]any{
				"source":    evt.Source,
				"delivered": delivered,
				"error":     err.Error(),
			})
			return
		}
		n.log.DebugObj("unauthorized event delivered", "events_delivery", map[string]any{
			"source":    evt.Source,
			"delivered": delivered,
		})
	}()
}

// Wait blocks until background deliveries have finished.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}
