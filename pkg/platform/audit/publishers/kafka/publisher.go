// Package kafka fans audit events out to a Kafka topic for downstream
// compliance and SIEM consumers. The Postgres store remains the source of
// truth; this sink is best-effort and guarded by a circuit breaker so a
// broker outage cannot back up the worker.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "github.com/navigategovuk/telldoug2-sub001/pkg/platform/audit"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/circuit"
)

// Publisher implements audit.Sink on a Kafka topic via franz-go.
type Publisher struct {
	client  *kgo.Client
	topic   string
	breaker *circuit.Breaker
	logger  *slog.Logger
	skipped int // only touched by the single worker goroutine
}

// probeInterval is how many events are skipped while the circuit is open
// before one is let through to test broker recovery.
const probeInterval = 50

// payload is the wire format published to Kafka. Field names are stable;
// consumers deserialize by name.
type payload struct {
	EventType      string         `json:"event_type"`
	EntityType     string         `json:"entity_type"`
	EntityID       string         `json:"entity_id"`
	OrganizationID string         `json:"organization_id"`
	ActorUserID    string         `json:"actor_user_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CorrelationID  string         `json:"correlation_id,omitempty"`
	Timestamp      string         `json:"timestamp"`
}

// New connects to the given brokers and returns a sink for the topic.
func New(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{
		client:  client,
		topic:   topic,
		breaker: circuit.New("audit-kafka", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		logger:  logger,
	}, nil
}

// Publish sends one event to the topic, keyed by entity ID so per-entity
// ordering is preserved across partitions.
func (p *Publisher) Publish(ctx context.Context, event audit.Event) error {
	if p.breaker.IsOpen() {
		p.skipped++
		if p.skipped%probeInterval != 0 {
			return nil
		}
		// Let this event through as a recovery probe.
	}

	body := payload{
		EventType:      event.EventType,
		EntityType:     event.EntityType,
		EntityID:       event.EntityID,
		OrganizationID: event.OrgID.String(),
		Metadata:       event.Metadata,
		CorrelationID:  event.CorrelationID,
		Timestamp:      event.Timestamp.Format(time.RFC3339Nano),
	}
	if event.ActorUserID != nil {
		body.ActorUserID = event.ActorUserID.String()
	}

	value, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.EntityID),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		if _, change := p.breaker.RecordFailure(); change.Opened && p.logger != nil {
			p.logger.WarnContext(ctx, "audit kafka circuit opened", "topic", p.topic, "error", err)
		}
		return fmt.Errorf("produce audit event: %w", err)
	}

	if _, change := p.breaker.RecordSuccess(); change.Closed && p.logger != nil {
		p.logger.InfoContext(ctx, "audit kafka circuit closed", "topic", p.topic)
	}
	return nil
}

// Close flushes and closes the underlying client.
func (p *Publisher) Close() {
	p.client.Close()
}
