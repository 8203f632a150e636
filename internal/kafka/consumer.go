package kafka

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
)

// Handler processes one consumed record. Returning an error does not
// block the partition: the pipeline owns retries and dead-lettering, so
// the offset is committed either way.
type Handler func(ctx context.Context, key, value []byte) error

// Consumer reads one topic within a consumer group. Offsets are committed
// only after the handler returns, giving at-least-once delivery.
type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer creates a group consumer for a topic.
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10 << 20,
		}),
	}
}

// Run consumes until the context is canceled. Records within a partition
// are handled sequentially, which preserves per-customer ordering for
// key-hashed topics.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		// Handler errors are terminal for the event (already retried or
		// dead-lettered downstream); the offset still advances.
		_ = handle(ctx, msg.Key, msg.Value)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
