// Package publisher emits scored report events to Kafka.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/okian/matchreport/internal/domain/model"
	"github.com/okian/matchreport/pkg/logger"
	"github.com/okian/matchreport/pkg/metrics"
)

const defaultWriteTimeout = 5 * time.Second

// ErrNoTopic is returned when brokers are configured without a topic.
var ErrNoTopic = errors.New("kafka topic must not be empty")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config selects the brokers and topic. No brokers means publishing is off.
type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// KafkaPublisher writes one message per scored report, keyed by report id so
// every event of a report lands on the same partition.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	enabled bool
	log     logger.Logger
}

// New builds a publisher. With no brokers it returns a disabled publisher
// whose Publish is a no-op.
func New(cfg Config) (*KafkaPublisher, error) {
	log := logger.Get().Named("publisher")
	if len(cfg.Brokers) == 0 {
		log.Info(context.Background(), "event publishing disabled")
		return &KafkaPublisher{log: log}, nil
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, ErrNoTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	log.Info(context.Background(), "event publishing enabled",
		logger.String("topic", cfg.Topic),
		logger.String("brokers", strings.Join(cfg.Brokers, ",")),
	)
	return newWithWriter(w, cfg.WriteTimeout, log), nil
}

func newWithWriter(w messageWriter, timeout time.Duration, log logger.Logger) *KafkaPublisher {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &KafkaPublisher{writer: w, timeout: timeout, enabled: true, log: log}
}

// Enabled reports whether events are actually sent.
func (p *KafkaPublisher) Enabled() bool { return p.enabled }

// Publish writes e to the topic.
func (p *KafkaPublisher) Publish(ctx context.Context, e model.ScoredEvent) error {
	if !p.enabled {
		return nil
	}
	value, err := e.MarshalValue()
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.ReportID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{Key: e.MarshalKey(), Value: value, Time: e.ScoredAt}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.RecordPublishFailure()
		metrics.RecordErrorByComponent("publisher", "write")
		return fmt.Errorf("publish event %s: %w", e.ReportID, err)
	}
	metrics.RecordEventPublished()
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	if !p.enabled {
		return nil
	}
	return p.writer.Close()
}
