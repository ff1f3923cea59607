package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// TopologyPath points at a feeder topology YAML file. Empty selects the
	// embedded IEEE 13 node default.
	TopologyPath string

	// NoiseJitterPct is the simulated measurement jitter applied per phase,
	// in percent of the true current. Zero disables jitter.
	NoiseJitterPct float64

	// Kafka fault-record feed.
	FeedEnabled    bool
	KafkaBrokers   []string
	KafkaFeedTopic string
	KafkaGroupID   string

	// Published-spreadsheet fault-record feed. Enabled when SheetFeedURL is
	// non-empty.
	SheetFeedURL      string
	SheetPollInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	jitter, err := parseFloat("NOISE_JITTER_PCT", "1.0")
	if err != nil {
		return nil, err
	}
	if jitter < 0 {
		return nil, errors.New("NOISE_JITTER_PCT must not be negative")
	}

	pollInterval, err := parseDuration("SHEET_POLL_INTERVAL", "1m")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		TopologyPath:    os.Getenv("TOPOLOGY_PATH"),
		NoiseJitterPct:  jitter,

		FeedEnabled:    os.Getenv("FEED_ENABLED") == "true",
		KafkaBrokers:   parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaFeedTopic: envOrDefault("KAFKA_FEED_TOPIC", "fault-records"),
		KafkaGroupID:   envOrDefault("KAFKA_GROUP_ID", "overwatch-locator"),

		SheetFeedURL:      os.Getenv("SHEET_FEED_URL"),
		SheetPollInterval: pollInterval,
	}

	if cfg.FeedEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("FEED_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaFeedTopic == "" {
			return nil, errors.New("FEED_ENABLED is true but KAFKA_FEED_TOPIC is empty")
		}
	}
	if cfg.SheetFeedURL != "" && cfg.SheetPollInterval <= 0 {
		return nil, errors.New("SHEET_POLL_INTERVAL must be positive when SHEET_FEED_URL is set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	v := envOrDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return d, nil
}

func parseFloat(key, def string) (float64, error) {
	v := envOrDefault(key, def)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
