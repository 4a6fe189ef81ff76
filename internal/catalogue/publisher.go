package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/RichardScottOZ/hiperseis/internal/config"
	"github.com/RichardScottOZ/hiperseis/internal/observability"
)

// Publisher produces converted event summaries to a Kafka topic.
type Publisher struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger, metrics: metrics}
}

// PublishBatch serialises and publishes the summaries in a single
// WriteMessages call.
func (p *Publisher) PublishBatch(ctx context.Context, summaries []Summary) error {
	if len(summaries) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(summaries))
	for i := range summaries {
		msg, err := serializeToMessage(summaries[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publishing summaries: %w", err)
	}
	p.metrics.RecordsPublished.Add(float64(len(summaries)))
	p.logger.Info("summaries published", "count", len(summaries))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a summary into a Kafka message keyed by event
// id.
func serializeToMessage(s Summary) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(s.EventID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "evaluation_status", Value: []byte(s.EvaluationStatus)},
			{Key: "origin_time", Value: []byte(s.OriginTime.Format(time.RFC3339))},
		},
	}, nil
}
