//go:build integration

package integration_test

import (
	"context"
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
	"github.com/testcontainers/testcontainers-go"
	kafkacontainer "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/gridwatch/overwatch/internal/adapter/feed"
	"github.com/gridwatch/overwatch/internal/config"
	"github.com/gridwatch/overwatch/internal/domain"
	"github.com/gridwatch/overwatch/internal/engine"
	"github.com/gridwatch/overwatch/internal/observability"
	"github.com/gridwatch/overwatch/internal/topology"
)

const testFeedTopic = "test-fault-records"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := kafkacontainer.Run(ctx, "confluentinc/confluent-local:7.6.1",
		kafkacontainer.WithClusterID("test-cluster"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestFeedConsumerEndToEnd publishes fault records through real Kafka and
// verifies they land in the engine's report log, with duplicates and
// malformed rows dropped.
func TestFeedConsumerEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testFeedTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaFeedTopic: testFeedTopic,
		KafkaGroupID:   fmt.Sprintf("test-feed-%d", time.Now().UnixNano()),
	}

	topo, err := topology.Default()
	require.NoError(t, err)
	eng, err := engine.New(topo, discardLogger(), observability.NewMetricsForTesting(),
		engine.WithJitterFunc(func() float64 { return 1 }))
	require.NoError(t, err)

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testFeedTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{
			Key:   []byte("EXT-100"),
			Value: []byte(`{"id":"EXT-100","timestamp":"2026-08-30T06:10:00Z","sensor_id":"U2","type":"Single Line-to-Ground (Phase A)","distance_km":"1.4","amps":"9400","lat":"13.5547","lng":"123.2747"}`),
		},
		kafkago.Message{
			Key:   []byte("bad"),
			Value: []byte(`definitely not json`),
		},
		kafkago.Message{
			Key:   []byte("EXT-100"),
			Value: []byte(`{"id":"EXT-100","amps":"9400"}`), // re-delivery
		},
		kafkago.Message{
			Key:   []byte("EXT-101"),
			Value: []byte(`{"id":"EXT-101","sensor_id":"U3","type":"Line-to-Line (Phases B-C)","distance_km":"2.2","amps":"4100"}`),
		},
	))

	criticalAmps := topo.Detection.CriticalAmps
	consumer := feed.NewConsumer(cfg, criticalAmps, eng, discardLogger(),
		observability.NewMetricsForTesting())

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- consumer.Run(consumerCtx) }()

	require.Eventually(t, func() bool { return len(eng.ListReports()) == 2 },
		90*time.Second, 250*time.Millisecond, "waiting for feed records")

	consumerCancel()
	require.NoError(t, <-errCh)

	reports := eng.ListReports()
	require.Len(t, reports, 2)

	first := reports[0]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "U2", first.SensorID)
	assert.Equal(t, domain.SourceFeed, first.Source)
	assert.Equal(t, domain.SeverityCritical, first.Severity)
	assert.Equal(t, domain.StatusPending, first.Status)
	assert.Equal(t, time.Date(2026, 8, 30, 6, 10, 0, 0, time.UTC), first.Timestamp.UTC())
	assert.InDelta(t, 1.4, first.EstimatedDistanceKm, 1e-9)

	second := reports[1]
	assert.Equal(t, "U3", second.SensorID)
	assert.Equal(t, domain.SeverityWarning, second.Severity)
	assert.False(t, second.Timestamp.IsZero(), "ingestion time fallback")
}
