package metrics

import (
	"auth_gateway/internal/models"
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes usage events keyed by user email.
type KafkaSink struct {
	writer messageWriter
	log    *slog.Logger
}

func NewKafkaSink(brokers []string, topic string, log *slog.Logger) *KafkaSink {
	log = log.With(slog.String("component", "metrics.kafka"), slog.String("topic", topic))

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 100 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error("failed to publish usage events", slog.Int("count", len(messages)), slog.Any("error", err))
			}
		},
	}

	return &KafkaSink{writer: w, log: log}
}

func (s *KafkaSink) Record(ctx context.Context, event models.UsageEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		s.log.Error("failed to encode usage event", slog.Any("error", err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.User),
		Value: value,
		Time:  event.At,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.log.Error("failed to publish usage event", slog.String("action", string(event.Action)), slog.Any("error", err))
	}
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
