package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/IgorGrieder/linkhive/internal/events"
	"github.com/IgorGrieder/linkhive/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkhive/internal/processing/analytics"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

type ConsumerOptions struct {
	OperationTimeout time.Duration
	Backoff          time.Duration
}

// Consumer applies published events to the store recorder. Offsets are
// committed only after the recorder succeeds; the recorder treats a repeated
// event id as applied, which makes redelivery safe.
type Consumer struct {
	reader   MessageReader
	recorder analytics.Recorder
	opts     ConsumerOptions
	tracer   trace.Tracer
}

func NewReader(brokers []string, topic, groupID string, maxWait time.Duration) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     maxWait,
		StartOffset: kafkago.FirstOffset,
	})
}

func NewConsumer(reader MessageReader, recorder analytics.Recorder, opts ConsumerOptions) *Consumer {
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = 5 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	return &Consumer{
		reader:   reader,
		recorder: recorder,
		opts:     opts,
		tracer:   otel.Tracer("click-consumer"),
	}
}

// Run consumes until ctx is canceled. A message is not left behind until it
// has been recorded and committed: a group reader never hands an uncommitted
// message back within the same session, so fetching past it would lose it.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("failed to fetch kafka message", zap.Error(err))
			if !sleep(ctx, c.opts.Backoff) {
				return nil
			}
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			// Only cancellation ends handle early.
			return nil
		}
	}
}

// handle processes and commits msg, retrying each step with backoff. It
// returns an error only when ctx is done before the message was committed.
func (c *Consumer) handle(ctx context.Context, msg kafkago.Message) error {
	consumeCtx := contextFromHeaders(ctx, msg.Headers)
	consumeCtx, span := c.tracer.Start(consumeCtx, "kafka.consume.click_recorded",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.String("messaging.operation", "process"),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	fields := []zap.Field{
		zap.String("topic", msg.Topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	}

	for attempt := 1; ; attempt++ {
		err := c.Process(consumeCtx, msg)
		if err == nil {
			break
		}
		span.RecordError(err)
		logger.Error("failed to process click event", append(fields, zap.Error(err), zap.Int("attempt", attempt))...)
		if !sleep(ctx, c.opts.Backoff) {
			span.SetStatus(codes.Error, "process click event failed")
			return ctx.Err()
		}
	}

	for {
		err := c.reader.CommitMessages(consumeCtx, msg)
		if err == nil {
			return nil
		}
		span.RecordError(err)
		logger.Error("failed to commit kafka offset", append(fields, zap.Error(err))...)
		if !sleep(ctx, c.opts.Backoff) {
			span.SetStatus(codes.Error, "commit kafka offset failed")
			return ctx.Err()
		}
	}
}

// Process records one message. Payloads that can never decode are logged and
// skipped so they do not block the partition.
func (c *Consumer) Process(ctx context.Context, msg kafkago.Message) error {
	ev, err := events.Decode(msg.Value)
	if err != nil {
		logger.Warn("invalid click event payload, skipping",
			zap.Error(err),
			zap.ByteString("payload", msg.Value),
		)
		return nil
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opts.OperationTimeout)
	defer cancel()

	if err := c.recorder.Record(opCtx, ev); err != nil {
		if errors.Is(err, analytics.ErrInvalidEvent) {
			logger.Warn("click event rejected by store, skipping", zap.Error(err), zap.String("event_id", ev.ID))
			return nil
		}
		return err
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
