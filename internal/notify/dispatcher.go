package notify

import (
	"context"
	"log/slog"

	"github.com/example/lab-booking/internal/application"
)

// Publisher sends a change to an external channel.
type Publisher interface {
	Publish(ctx context.Context, change application.EventChange) error
}

// Dispatcher implements application.ChangeNotifier by fanning each change
// out to live subscribers and, when configured, to the queue publisher.
// The application layer only calls it for observable changes, so no
// suppression logic lives here.
type Dispatcher struct {
	registry  *Registry
	publisher Publisher
	logger    *slog.Logger
}

// NewDispatcher wires the dispatcher. registry and publisher may each be
// nil, leaving the corresponding channel inactive.
func NewDispatcher(registry *Registry, publisher Publisher, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, publisher: publisher, logger: logger}
}

// EventChanged delivers one observable change. Queue failures are already
// logged by the publisher; the dispatcher never propagates them into the
// request that caused the change.
func (d *Dispatcher) EventChanged(ctx context.Context, change application.EventChange) {
	if d == nil {
		return
	}
	if d.registry != nil {
		d.registry.Broadcast(change)
	}
	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, change); err != nil {
			d.logger.DebugContext(ctx, "change publish dropped", "event_id", change.EventID)
		}
	}
}
