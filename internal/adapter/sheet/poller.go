// Package sheet polls a published-spreadsheet CSV export for third-party
// fault records. Crews in the field log faults into a shared sheet; the
// poller turns its rows into report-log entries.
package sheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gridwatch/overwatch/internal/adapter/feed"
	"github.com/gridwatch/overwatch/internal/config"
	"github.com/gridwatch/overwatch/internal/observability"
)

// dedupeSize bounds how many previously ingested row ids the poller recalls.
// Published sheets re-serve every row on every poll, so this must comfortably
// exceed the sheet length.
const dedupeSize = 8192

// Poller fetches the CSV export on a fixed interval and imports new rows.
type Poller struct {
	url          string
	interval     time.Duration
	client       *http.Client
	importer     feed.Importer
	seen         *feed.Deduper
	criticalAmps float64
	logger       *slog.Logger
	metrics      *observability.Metrics
	clock        clockwork.Clock
}

// Option adjusts poller construction.
type Option func(*Poller)

// WithClock swaps the ticker time source, letting tests drive polls.
func WithClock(c clockwork.Clock) Option {
	return func(p *Poller) { p.clock = c }
}

// WithHTTPClient replaces the HTTP client used for CSV fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Poller) { p.client = c }
}

// NewPoller creates a poller for the configured sheet export URL.
func NewPoller(cfg *config.Config, criticalAmps float64, imp feed.Importer, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Poller {
	p := &Poller{
		url:          cfg.SheetFeedURL,
		interval:     cfg.SheetPollInterval,
		client:       &http.Client{Timeout: 30 * time.Second},
		importer:     imp,
		seen:         feed.NewDeduper(dedupeSize),
		criticalAmps: criticalAmps,
		logger:       logger,
		metrics:      metrics,
		clock:        clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls immediately, then on every tick, until the context is cancelled.
// A failed poll is logged and retried on the next tick; the sheet is a slow
// human-curated source, so there is no tighter retry loop.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("sheet poller started", "url", p.url, "interval", p.interval)

	p.poll(ctx)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("sheet poller stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	rows, err := p.fetchRows(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("sheet poll failed", "error", err)
		p.metrics.FeedRecords.WithLabelValues("sheet", "fetch_error").Inc()
		return
	}

	imported := 0
	for _, raw := range rows {
		rec, err := feed.DecodeRecord(raw)
		if err != nil {
			p.logger.Warn("sheet row rejected, skipping", "error", err)
			p.metrics.FeedRecords.WithLabelValues("sheet", "decode_error").Inc()
			continue
		}
		if !p.seen.Remember(rec.ID) {
			p.metrics.FeedRecords.WithLabelValues("sheet", "duplicate").Inc()
			continue
		}
		stored := p.importer.ImportReport(rec.ToReport(p.criticalAmps))
		p.metrics.FeedRecords.WithLabelValues("sheet", "ingested").Inc()
		p.logger.Info("sheet record imported",
			"id", stored.ID, "external_id", rec.ID, "amps", stored.EstimatedAmps)
		imported++
	}
	if imported > 0 {
		p.logger.Info("sheet poll complete", "rows", len(rows), "imported", imported)
	}
}

// fetchRows downloads the CSV export and maps each data row onto the header
// row. All cells come back as strings; the weakly typed record decoder
// handles the numeric conversions.
func (p *Poller) fetchRows(ctx context.Context) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build sheet request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sheet: unexpected status %d", resp.StatusCode)
	}

	return parseCSV(resp.Body)
}

func parseCSV(r io.Reader) ([]map[string]any, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse sheet csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	rows := make([]map[string]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]any, len(header))
		for i, cell := range rec {
			if i < len(header) {
				row[header[i]] = cell
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
