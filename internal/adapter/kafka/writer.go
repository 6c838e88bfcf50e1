package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/gerontech-demand-etl/internal/artifact"
	"github.com/couchcryptid/gerontech-demand-etl/internal/config"
	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys set on every artifact message.
const (
	HeaderRunID       = "run_id"
	HeaderArtifact    = "artifact"
	HeaderGeneratedAt = "generated_at"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes artifact rows to a Kafka topic, one JSON message per row.
// It implements pipeline.Loader.
type Writer struct {
	writer   messageWriter
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSinkTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, attempts: cfg.KafkaMaxAttempts, backoff: initialBackoff, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Load serializes every artifact row and publishes the whole run in a single
// WriteMessages call. Messages are keyed by artifact so each artifact keeps
// its row order within one partition.
func (w *Writer) Load(ctx context.Context, res *domain.Results) error {
	var msgs []kafkago.Message
	for _, t := range artifact.Build(res) {
		for _, rec := range t.Records {
			msg, err := serializeToMessage(res, t.Name, rec)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := w.publish(ctx, msgs); err != nil {
		return fmt.Errorf("publish artifacts: %w", err)
	}
	w.logger.Info("artifacts published", "messages", len(msgs), "run_id", res.RunID)
	return nil
}

// publish retries the whole batch with exponential backoff until it succeeds,
// the attempts run out, or ctx ends.
func (w *Writer) publish(ctx context.Context, msgs []kafkago.Message) error {
	backoff := w.backoff
	for attempt := 1; ; attempt++ {
		err := w.writer.WriteMessages(ctx, msgs...)
		if err == nil {
			return nil
		}
		if attempt >= w.attempts {
			return err
		}
		w.logger.Warn("publish failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return fmt.Errorf("%w (last error: %w)", ctx.Err(), err)
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one artifact row into a Kafka message.
func serializeToMessage(res *domain.Results, name string, rec any) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s row: %w", name, err)
	}
	return kafkago.Message{
		Key:   []byte(name),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderRunID, Value: []byte(res.RunID)},
			{Key: HeaderArtifact, Value: []byte(name)},
			{Key: HeaderGeneratedAt, Value: []byte(res.GeneratedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
