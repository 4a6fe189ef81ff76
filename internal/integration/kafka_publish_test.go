//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/RichardScottOZ/hiperseis/internal/catalogue"
	"github.com/RichardScottOZ/hiperseis/internal/config"
	"github.com/RichardScottOZ/hiperseis/internal/observability"
)

const testTopic = "catalogue-events"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka in a container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestPublishSummaries converts feed documents and verifies the published
// summaries round-trip through a real broker with the expected key, value
// and headers.
func TestPublishSummaries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testTopic,
	}

	docs := []*catalogue.Document{
		feedDocument("ga2019aaaa", "2019-06-02 05:04:03.000000", 4.3),
		feedDocument("ga2019bbbb", "2019-07-15 11:22:33.000000", 5.1),
	}

	summaries := make([]catalogue.Summary, 0, len(docs))
	for _, doc := range docs {
		s, err := catalogue.Summarize(doc)
		require.NoError(t, err)
		summaries = append(summaries, s)
	}

	metrics := observability.NewMetricsForTesting()
	publisher := catalogue.NewPublisher(cfg, discardLogger(), metrics)
	t.Cleanup(func() { _ = publisher.Close() })

	require.NoError(t, publisher.PublishBatch(ctx, summaries))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := map[string]catalogue.Summary{}
	for len(received) < len(docs) {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from topic")

		var s catalogue.Summary
		require.NoError(t, json.Unmarshal(msg.Value, &s))
		assert.Equal(t, s.EventID, string(msg.Key), "message keyed by event id")

		headers := map[string]string{}
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, "final", headers["evaluation_status"])
		_, err = time.Parse(time.RFC3339, headers["origin_time"])
		assert.NoError(t, err, "origin_time header should be RFC3339")

		received[s.EventID] = s
	}

	require.Len(t, received, 2)
	assert.Equal(t, 4.3, received["ga2019aaaa"].Magnitude)
	assert.Equal(t, 5.1, received["ga2019bbbb"].Magnitude)
	assert.Equal(t, time.Date(2019, 7, 15, 11, 22, 33, 0, time.UTC), received["ga2019bbbb"].OriginTime)
}

func feedDocument(eventID, originTime string, magnitude float64) *catalogue.Document {
	return &catalogue.Document{
		EventDetails: catalogue.EventFeature{Properties: catalogue.EventProperties{
			EventID:          eventID,
			OriginID:         "900100",
			Source:           "ga",
			OriginTime:       originTime,
			Longitude:        133.5,
			Latitude:         -23.2,
			Depth:            10.0,
			EvaluationMode:   "manual",
			EvaluationStatus: "FINL",
			StationCount:     8,
		}},
		Magnitudes: catalogue.MagnitudeCollection{Features: []catalogue.MagnitudeFeature{
			{Properties: catalogue.MagnitudeProperties{
				EarthquakeID:     1,
				Magnitude:        magnitude,
				Type:             "ML",
				EvaluationStatus: "confirmed",
			}},
		}},
	}
}
