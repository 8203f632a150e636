// Package kafka wraps the event transport. Inbound events are keyed by
// customer identifier so the broker preserves per-customer ordering.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Topics carries the topic names the service produces to and consumes
// from.
type Topics struct {
	Inbound     string
	Outbound    string
	Escalations string
	Metrics     string
	DeadLetter  string
}

// DefaultTopics returns the standard topic layout.
func DefaultTopics() Topics {
	return Topics{
		Inbound:     "deskroute.tickets.incoming",
		Outbound:    "deskroute.messages.outbound",
		Escalations: "deskroute.escalations",
		Metrics:     "deskroute.metrics",
		DeadLetter:  "deskroute.dlq",
	}
}

// Producer sends events to the service topics.
type Producer struct {
	inbound     *kafka.Writer
	outbound    *kafka.Writer
	escalations *kafka.Writer
	metrics     *kafka.Writer
	deadLetter  *kafka.Writer
}

// NewProducer creates writers for every topic. The inbound writer hashes
// on the message key so events for one customer land on one partition;
// the metrics writer is async because telemetry is best-effort and must
// never block processing.
func NewProducer(brokers []string, topics Topics) *Producer {
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		}
	}

	metricsWriter := newWriter(topics.Metrics)
	metricsWriter.Async = true

	return &Producer{
		inbound:     newWriter(topics.Inbound),
		outbound:    newWriter(topics.Outbound),
		escalations: newWriter(topics.Escalations),
		metrics:     metricsWriter,
		deadLetter:  newWriter(topics.DeadLetter),
	}
}

func send(ctx context.Context, w *kafka.Writer, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	})
}

// PublishInbound publishes a validated inbound event keyed by the
// customer identifier.
func (p *Producer) PublishInbound(ctx context.Context, key string, event any) error {
	return send(ctx, p.inbound, key, event)
}

// PublishOutbound publishes a rendered reply for channel delivery.
func (p *Producer) PublishOutbound(ctx context.Context, key string, msg OutboundMessage) error {
	return send(ctx, p.outbound, key, msg)
}

// PublishEscalation publishes an escalation record.
func (p *Producer) PublishEscalation(ctx context.Context, ev EscalationEvent) error {
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return send(ctx, p.escalations, ev.TicketID, ev)
}

// PublishMetric publishes a telemetry record. Best-effort: the writer is
// async, so errors surface in the writer's completion callback, not here.
func (p *Producer) PublishMetric(ctx context.Context, ev MetricEvent) error {
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return send(ctx, p.metrics, ev.Channel, ev)
}

// PublishDeadLetter routes an unprocessable event to the dead-letter
// topic.
func (p *Producer) PublishDeadLetter(ctx context.Context, dl DeadLetter) error {
	if dl.Timestamp == "" {
		dl.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return send(ctx, p.deadLetter, dl.Reason, dl)
}

// Close closes all writers.
func (p *Producer) Close() error {
	var firstErr error
	for _, w := range []*kafka.Writer{p.inbound, p.outbound, p.escalations, p.metrics, p.deadLetter} {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
