package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"tenantsim/internal/config"
	"tenantsim/internal/schema"
)

// Stream topic suffixes, appended to the configured topic prefix.
const (
	topicAudit    = "audit"
	topicActivity = "officeactivity"
	topicSignIn   = "signin"
)

// Publisher emits the generated streams to Kafka, one topic per
// stream, so consumers can replay the tenant as a live feed.
type Publisher struct {
	writer *kafka.Writer
	cfg    config.KafkaConfig
	logger *slog.Logger
	closed bool
}

// NewPublisher creates a Kafka publisher. Topics are addressed per
// message, so a single writer serves all three streams.
func NewPublisher(cfg config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, &SinkError{Op: "NewPublisher", Err: fmt.Errorf("%w: no brokers configured", ErrConnectionFailed)}
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		MaxAttempts:            cfg.MaxRetries,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: cfg.CreateMissing,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(msg, args...), "component", "kafka-writer")
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf(msg, args...), "component", "kafka-writer")
		}),
	}

	logger.Info("kafka publisher initialized",
		"brokers", cfg.Brokers,
		"topic_prefix", cfg.TopicPrefix,
		"batch_size", cfg.BatchSize,
	)

	return &Publisher{writer: writer, cfg: cfg, logger: logger}, nil
}

func (p *Publisher) topic(suffix string) string {
	return p.cfg.TopicPrefix + suffix
}

// PublishAudit publishes the audit stream.
func (p *Publisher) PublishAudit(ctx context.Context, runID uuid.UUID, events []schema.AuditEvent) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := p.message(p.topic(topicAudit), runID, e.TimeGenerated, e)
		if err != nil {
			return &SinkError{Op: "PublishAudit", Stream: topicAudit, Err: err}
		}
		msgs = append(msgs, msg)
	}
	return p.publish(ctx, topicAudit, msgs)
}

// PublishActivity publishes the office-activity stream.
func (p *Publisher) PublishActivity(ctx context.Context, runID uuid.UUID, events []schema.OfficeActivityEvent) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := p.message(p.topic(topicActivity), runID, e.TimeGenerated, e)
		if err != nil {
			return &SinkError{Op: "PublishActivity", Stream: topicActivity, Err: err}
		}
		msgs = append(msgs, msg)
	}
	return p.publish(ctx, topicActivity, msgs)
}

// PublishSignIns publishes the sign-in stream.
func (p *Publisher) PublishSignIns(ctx context.Context, runID uuid.UUID, events []schema.SignInEvent) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := p.message(p.topic(topicSignIn), runID, e.TimeGenerated, e)
		if err != nil {
			return &SinkError{Op: "PublishSignIns", Stream: topicSignIn, Err: err}
		}
		msgs = append(msgs, msg)
	}
	return p.publish(ctx, topicSignIn, msgs)
}

// message builds a kafka message with the run ID as key so one run's
// rows land on the same partition in order.
func (p *Publisher) message(topic string, runID uuid.UUID, ts time.Time, event any) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(runID.String()),
		Value: value,
		Time:  ts,
	}, nil
}

func (p *Publisher) publish(ctx context.Context, stream string, msgs []kafka.Message) error {
	if p.closed {
		return &SinkError{Op: "publish", Stream: stream, Err: ErrSinkClosed}
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return &SinkError{Op: "publish", Stream: stream, Err: fmt.Errorf("%w: %v", ErrWriteFailed, err)}
	}

	p.logger.Debug("published messages", "stream", stream, "count", len(msgs))
	return nil
}

// Close flushes buffered messages and closes the writer.
func (p *Publisher) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.writer.Close(); err != nil {
		return &SinkError{Op: "Close", Err: err}
	}
	return nil
}
