package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/IgorGrieder/linkhive/internal/events"
	"github.com/IgorGrieder/linkhive/internal/processing/analytics"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// Publisher is an analytics.Recorder that hands events to Kafka. The click
// counter is applied later by the consumer, so ClickCount lags by the
// consumer delay.
type Publisher struct {
	writer       MessageWriter
	topic        string
	writeTimeout time.Duration
	tracer       trace.Tracer
}

func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewPublisher(writer MessageWriter, topic string, writeTimeout time.Duration) *Publisher {
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	return &Publisher{
		writer:       writer,
		topic:        topic,
		writeTimeout: writeTimeout,
		tracer:       otel.Tracer("click-publisher"),
	}
}

// Record publishes the event keyed by its subject id, so every event for a
// link lands on the same partition.
func (p *Publisher) Record(ctx context.Context, ev analytics.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	value, err := events.Encode(ev)
	if err != nil {
		return fmt.Errorf("encode click event: %w", err)
	}
	key := ev.Subject.SubjectID()

	ctx, span := p.tracer.Start(ctx, "kafka.publish.click_recorded",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", p.topic),
			attribute.String("messaging.operation", "publish"),
			attribute.String("messaging.message.id", ev.ID),
			attribute.String("messaging.kafka.message_key", key),
		),
	)
	defer span.End()

	writeCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	err = p.writer.WriteMessages(writeCtx, kafkago.Message{
		Key:     []byte(key),
		Value:   value,
		Time:    ev.CreatedAt.UTC(),
		Headers: injectHeaders(ctx),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "kafka publish failed")
		return fmt.Errorf("publish click event: %w", err)
	}
	return nil
}
