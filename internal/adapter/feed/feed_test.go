package feed

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatch/overwatch/internal/domain"
	"github.com/gridwatch/overwatch/internal/observability"
)

func TestDecodeRecord_WeaklyTyped(t *testing.T) {
	// spreadsheet exports deliver every cell as a string
	rec, err := DecodeRecord(map[string]any{
		"id":          "EXT-41",
		"timestamp":   "2026-08-30T14:02:00Z",
		"sensor_id":   "U2",
		"type":        "Line-to-Line (Phases B-C)",
		"distance_km": "1.85",
		"amps":        "4211.5",
		"lat":         "13.5547",
		"lng":         "123.2747",
	})
	require.NoError(t, err)

	assert.Equal(t, "EXT-41", rec.ID)
	assert.Equal(t, "U2", rec.SensorID)
	assert.InDelta(t, 1.85, rec.DistanceKm, 1e-9)
	assert.InDelta(t, 4211.5, rec.Amps, 1e-9)
}

func TestDecodeRecord_Rejections(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{name: "missing id", raw: map[string]any{"amps": 100.0}},
		{name: "negative amps", raw: map[string]any{"id": "x", "amps": -5.0}},
		{name: "negative distance", raw: map[string]any{"id": "x", "distance_km": -1.0}},
		{name: "non-numeric amps", raw: map[string]any{"id": "x", "amps": "lots"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeRecord(tc.raw)
			assert.Error(t, err)
		})
	}
}

func TestRecordToReport(t *testing.T) {
	rec := Record{
		ID:        "EXT-7",
		Timestamp: "2026-08-30T14:02:00Z",
		SensorID:  "U3",
		Type:      "Three-Phase Balanced",
		Amps:      9100,
	}

	r := rec.ToReport(8000)
	assert.Equal(t, domain.SeverityCritical, r.Severity)
	assert.Equal(t, domain.SourceFeed, r.Source)
	assert.Equal(t, domain.StatusPending, r.Status)
	assert.Equal(t, time.Date(2026, 8, 30, 14, 2, 0, 0, time.UTC), r.Timestamp)

	assert.Equal(t, domain.SeverityWarning, Record{ID: "x", Amps: 500}.ToReport(8000).Severity)
}

func TestRecordToReport_BadTimestampFallsBackToClock(t *testing.T) {
	frozen := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { domain.SetClock(nil) })

	r := Record{ID: "x", Timestamp: "yesterday-ish"}.ToReport(8000)
	assert.Equal(t, frozen, r.Timestamp)
}

func TestSeenCache(t *testing.T) {
	c := NewDeduper(2)

	assert.True(t, c.Remember("a"))
	assert.False(t, c.Remember("a"))
	assert.True(t, c.Remember("b"))

	// "c" evicts the least recently used "a"
	assert.True(t, c.Remember("c"))
	assert.True(t, c.Remember("a"))
}

// fakeSource hands out queued messages, then blocks until cancellation.
type fakeSource struct {
	mu       sync.Mutex
	msgs     []kafkago.Message
	commits  int
	closed   bool
	fetchErr error
}

func (f *fakeSource) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	if f.fetchErr != nil {
		err := f.fetchErr
		f.fetchErr = nil
		f.mu.Unlock()
		return kafkago.Message{}, err
	}
	if len(f.msgs) > 0 {
		msg := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (f *fakeSource) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits += len(msgs)
	return nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) commitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits
}

type fakeImporter struct {
	mu      sync.Mutex
	reports []domain.FaultReport
}

func (f *fakeImporter) ImportReport(r domain.FaultReport) domain.FaultReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == "" {
		r.ID = domain.NewReportID()
	}
	f.reports = append(f.reports, r)
	return r
}

func (f *fakeImporter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

func TestConsumerRun_ImportsDedupesAndSkips(t *testing.T) {
	src := &fakeSource{msgs: []kafkago.Message{
		{Value: []byte(`{"id":"EXT-1","amps":"9000","type":"Three-Phase Balanced"}`)},
		{Value: []byte(`not json`)},
		{Value: []byte(`{"id":"EXT-1","amps":"9000"}`)}, // re-delivery
		{Value: []byte(`{"id":"EXT-2","amps":"300"}`)},
	}}
	imp := &fakeImporter{}
	c := newConsumer(src, 8000, imp, slog.Default(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return imp.count() == 2 },
		2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	// every message is committed, including the skipped and duplicate ones
	assert.Equal(t, 4, src.commitCount())
	assert.True(t, src.closed)

	imp.mu.Lock()
	defer imp.mu.Unlock()
	assert.Equal(t, domain.SeverityCritical, imp.reports[0].Severity)
	assert.Equal(t, domain.SeverityWarning, imp.reports[1].Severity)
}

func TestConsumerRun_RecoversFromFetchError(t *testing.T) {
	src := &fakeSource{
		fetchErr: assert.AnError,
		msgs: []kafkago.Message{
			{Value: []byte(`{"id":"EXT-9","amps":"1200"}`)},
		},
	}
	imp := &fakeImporter{}
	c := newConsumer(src, 8000, imp, slog.Default(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return imp.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
