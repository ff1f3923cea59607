package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/gridwatch/overwatch/internal/config"
	"github.com/gridwatch/overwatch/internal/domain"
	"github.com/gridwatch/overwatch/internal/observability"
)

// Importer appends an externally sourced report to the log.
type Importer interface {
	ImportReport(r domain.FaultReport) domain.FaultReport
}

// messageSource abstracts the Kafka reader so tests can drive the consume
// loop without a broker.
type messageSource interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer pulls fault records from a Kafka topic and imports them.
type Consumer struct {
	source       messageSource
	importer     Importer
	seen         *Deduper
	criticalAmps float64
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// dedupeSize bounds the re-delivery window the consumer can recognize.
const dedupeSize = 4096

// NewConsumer creates a Kafka consumer for the configured feed topic.
func NewConsumer(cfg *config.Config, criticalAmps float64, imp Importer, logger *slog.Logger, metrics *observability.Metrics) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaFeedTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	return newConsumer(reader, criticalAmps, imp, logger, metrics)
}

func newConsumer(source messageSource, criticalAmps float64, imp Importer, logger *slog.Logger, metrics *observability.Metrics) *Consumer {
	return &Consumer{
		source:       source,
		importer:     imp,
		seen:         NewDeduper(dedupeSize),
		criticalAmps: criticalAmps,
		logger:       logger,
		metrics:      metrics,
	}
}

// Run consumes until the context is cancelled. Fetch errors back off
// exponentially; malformed records are logged, counted, and skipped so one
// bad row cannot stall the feed.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("feed consumer started")
	c.metrics.FeedRunning.Set(1)
	defer c.metrics.FeedRunning.Set(0)
	defer c.source.Close() //nolint:errcheck // best-effort close on shutdown

	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		msg, err := c.source.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("feed consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("fetch feed message failed", "error", err)
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 200 * time.Millisecond

		c.handleMessage(msg)

		if err := c.source.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("commit feed offset failed", "error", err,
				"partition", msg.Partition, "offset", msg.Offset)
		}
	}
}

func (c *Consumer) handleMessage(msg kafkago.Message) {
	var raw map[string]any
	if err := json.Unmarshal(msg.Value, &raw); err != nil {
		c.logger.Warn("feed message is not a JSON object, skipping",
			"error", err, "partition", msg.Partition, "offset", msg.Offset)
		c.metrics.FeedRecords.WithLabelValues("kafka", "decode_error").Inc()
		return
	}

	rec, err := DecodeRecord(raw)
	if err != nil {
		c.logger.Warn("feed record rejected, skipping", "error", err,
			"partition", msg.Partition, "offset", msg.Offset)
		c.metrics.FeedRecords.WithLabelValues("kafka", "decode_error").Inc()
		return
	}

	if !c.seen.Remember(rec.ID) {
		c.metrics.FeedRecords.WithLabelValues("kafka", "duplicate").Inc()
		return
	}

	stored := c.importer.ImportReport(rec.ToReport(c.criticalAmps))
	c.metrics.FeedRecords.WithLabelValues("kafka", "ingested").Inc()
	c.logger.Info("feed record imported",
		"id", stored.ID,
		"external_id", rec.ID,
		"amps", stored.EstimatedAmps,
		"severity", stored.Severity,
	)
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
