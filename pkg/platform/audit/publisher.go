package audit

import (
	"context"
	"log/slog"

	"github.com/navigategovuk/telldoug2-sub001/pkg/requestcontext"
)

// Store persists audit events. It is append-only; sinks and stores can be
// swapped in tests.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Sink receives a copy of every event for fan-out (e.g. Kafka). Sinks are
// best-effort: a sink failure never fails the emitting request.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. Persistence goes through the
// store; optional sinks receive copies asynchronously via the worker inbox.
type Publisher struct {
	store  Store
	inbox  chan<- Event
	logger *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithSinkInbox attaches a fan-out channel drained by a worker. Emission
// never blocks: when the inbox is full the event is dropped from the sink
// path (it is already persisted in the store).
func WithSinkInbox(inbox chan<- Event) Option {
	return func(p *Publisher) { p.inbox = inbox }
}

// NewPublisher constructs a Publisher backed by the given store.
func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit persists an audit event, filling in timestamp and correlation ID
// from context when unset.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.CorrelationID == "" {
		event.CorrelationID = requestcontext.CorrelationID(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		return err
	}

	if p.inbox != nil {
		select {
		case p.inbox <- event:
		default:
			if p.logger != nil {
				p.logger.WarnContext(ctx, "audit sink inbox full, dropping fan-out copy",
					"event_type", event.EventType,
					"entity_id", event.EntityID,
				)
			}
		}
	}
	return nil
}

// ListByEntity returns the audit trail for one entity, newest first.
func (p *Publisher) ListByEntity(ctx context.Context, entityType, entityID string) ([]Event, error) {
	return p.store.ListByEntity(ctx, entityType, entityID)
}
