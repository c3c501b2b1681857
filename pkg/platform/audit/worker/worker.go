// Package worker drains the audit fan-out inbox into a sink.
package worker

import (
	"context"
	"log/slog"

	audit "github.com/navigategovuk/telldoug2-sub001/pkg/platform/audit"
)

// Worker consumes audit events from a channel and forwards them to a sink.
// Sink failures are logged, never fatal: the store write already happened
// on the request path, the sink is fan-out only.
type Worker struct {
	sink   audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func New(sink audit.Sink, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Publish(ctx, event); err != nil && w.logger != nil {
				w.logger.WarnContext(ctx, "audit sink publish failed",
					"event_type", event.EventType,
					"entity_id", event.EntityID,
					"error", err,
				)
			}
		}
	}
}
