// Package engine wires the fault-location physics to a feeder topology and
// owns the append-only fault-report log. An Engine is explicitly constructed
// once at startup; construction builds the lookup tables and fails
// immediately on invalid parameters.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/gridwatch/overwatch/internal/domain"
	"github.com/gridwatch/overwatch/internal/observability"
	"github.com/gridwatch/overwatch/internal/topology"
)

// Request-scoped error kinds. Each failed simulate call reports one of these
// (or a domain sentinel) and leaves the report log and tables untouched.
var (
	ErrUnknownNode             = errors.New("unknown node id")
	ErrBelowDetectionThreshold = errors.New("fault current below detection threshold")
	ErrReportNotFound          = errors.New("report not found")
)

// Engine holds the immutable physics state and the mutable report log.
// The lookup tables are built once here and are safe for unsynchronized
// concurrent reads; only report-log access takes the mutex.
type Engine struct {
	topo      *topology.Topology
	sensors   []domain.SensorRecord
	solver    domain.Solver
	tables    domain.TableSet
	detection domain.DetectionConfig
	jitter    func() float64
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu      sync.Mutex
	reports []domain.FaultReport
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithJitterPct sets the simulated per-phase measurement jitter as a percent
// of the true current, using a time-seeded random source. Zero selects the
// noise-free constant without touching a random source.
func WithJitterPct(pct float64) Option {
	if pct == 0 {
		return WithJitterFunc(func() float64 { return 1 })
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return WithJitterFunc(func() float64 {
		return 1 + pct/100*(2*r.Float64()-1)
	})
}

// WithJitterFunc injects the multiplicative jitter source directly. Tests
// pass a constant 1 to run noise-free.
func WithJitterFunc(f func() float64) Option {
	return func(e *Engine) { e.jitter = f }
}

// New builds an engine for the given feeder topology. The per-unit base, the
// impedance model, and the three lookup tables are derived here; any invalid
// parameter surfaces as a construction error rather than a runtime one.
func New(topo *topology.Topology, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) (*Engine, error) {
	base, err := domain.NewSystemBase(topo.System.LineToLineVolts, topo.System.ApparentPowerVA)
	if err != nil {
		return nil, fmt.Errorf("system base: %w", err)
	}
	model, err := domain.NewImpedanceModel(base,
		topo.System.ShortCircuitVA,
		topo.System.SourceResistanceFrac, topo.System.SourceReactanceFrac,
		topo.System.LineR1OhmPerKm, topo.System.LineX1OhmPerKm,
		topo.System.LineR0OhmPerKm, topo.System.LineX0OhmPerKm)
	if err != nil {
		return nil, fmt.Errorf("impedance model: %w", err)
	}
	detection := topo.Detection.Config()
	if err := detection.Validate(); err != nil {
		return nil, fmt.Errorf("detection config: %w", err)
	}
	grid, err := domain.DistanceGrid(topo.Grid.StepKm, topo.Grid.MaxKm)
	if err != nil {
		return nil, fmt.Errorf("distance grid: %w", err)
	}

	solver := domain.Solver{Base: base, Model: model}

	start := time.Now()
	tables, err := domain.BuildTables(solver, grid)
	if err != nil {
		return nil, fmt.Errorf("build lookup tables: %w", err)
	}
	buildTime := time.Since(start)

	e := &Engine{
		topo:      topo,
		sensors:   topo.SensorRecords(),
		solver:    solver,
		tables:    tables,
		detection: detection,
		jitter:    func() float64 { return 1 },
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(e)
	}

	metrics.TableBuildSeconds.Set(buildTime.Seconds())
	for _, ft := range domain.FaultTypes() {
		metrics.TableRows.WithLabelValues(ft.String()).Set(float64(len(tables.ForType(ft).Rows)))
	}
	logger.Info("lookup tables built",
		"rows_per_table", len(grid),
		"step_km", topo.Grid.StepKm,
		"max_km", topo.Grid.MaxKm,
		"duration", buildTime,
	)

	return e, nil
}

// Topology returns the static feeder description.
func (e *Engine) Topology() *topology.Topology {
	return e.topo
}

// CheckReadiness reports whether the engine can serve requests. The tables
// are built during construction, so a constructed engine is always ready.
func (e *Engine) CheckReadiness(_ context.Context) error {
	return nil
}

// SimulateFault injects a fault of the given type at a topology node and runs
// the full detection chain: sensor selection, ideal solve, measurement
// jitter, classification, and inverse locate. On success the assembled report
// is appended to the log and returned.
func (e *Engine) SimulateFault(nodeID string, ft domain.FaultType) (domain.FaultReport, error) {
	start := time.Now()

	report, err := e.simulate(nodeID, ft)
	e.metrics.SimulationsTotal.WithLabelValues(ft.String(), outcomeLabel(err)).Inc()
	if err != nil {
		e.logger.Warn("fault simulation failed",
			"node", nodeID, "fault_type", ft.String(), "error", err)
		return domain.FaultReport{}, err
	}

	e.mu.Lock()
	e.reports = append(e.reports, report)
	e.mu.Unlock()

	e.metrics.ReportsTotal.WithLabelValues(domain.SourceSimulation).Inc()
	e.metrics.LocateDuration.Observe(time.Since(start).Seconds())
	e.logger.Info("fault report created",
		"id", report.ID,
		"node", nodeID,
		"sensor", report.SensorID,
		"type", report.Type,
		"distance_km", report.EstimatedDistanceKm,
		"amps", report.EstimatedAmps,
		"severity", report.Severity,
	)
	return report, nil
}

func (e *Engine) simulate(nodeID string, ft domain.FaultType) (domain.FaultReport, error) {
	node, ok := e.topo.Node(nodeID)
	if !ok {
		return domain.FaultReport{}, fmt.Errorf("%w: %q", ErrUnknownNode, nodeID)
	}

	sensor, err := domain.SelectSensor(e.sensors, node.DistanceKm)
	if err != nil {
		return domain.FaultReport{}, err
	}

	ideal, err := e.solver.Solve(node.DistanceKm, ft, 0)
	if err != nil {
		return domain.FaultReport{}, err
	}

	// jitter is applied per phase, uncorrelated, outside the solver
	sensed := domain.PhaseCurrents{
		A: ideal.A * e.jitter(),
		B: ideal.B * e.jitter(),
		C: ideal.C * e.jitter(),
	}

	classification, detected := domain.Classify(sensed, e.detection)
	if !detected {
		return domain.FaultReport{}, ErrBelowDetectionThreshold
	}

	loc, err := domain.Locate(classification, e.tables.ForType(classification.Type), sensor.DistanceKm)
	if err != nil {
		return domain.FaultReport{}, err
	}

	return domain.NewFaultReport(sensor, node.ID, node.Lat, node.Lng, classification, loc, e.detection.CriticalAmps), nil
}

// ListReports returns the report log in insertion order. The returned slice
// is a copy; callers cannot mutate engine state through it.
func (e *Engine) ListReports() []domain.FaultReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.FaultReport, len(e.reports))
	copy(out, e.reports)
	return out
}

// AcknowledgeReport applies an operator acknowledgment to a report. Only the
// status fields change; everything else in the log stays immutable.
func (e *Engine) AcknowledgeReport(id, status, operator string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.reports {
		if e.reports[i].ID != id {
			continue
		}
		e.reports[i].Status = status
		e.reports[i].Acknowledged = true
		e.reports[i].AcknowledgedBy = operator
		e.metrics.AcksTotal.Inc()
		e.logger.Info("report acknowledged", "id", id, "status", status, "operator", operator)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrReportNotFound, id)
}

// ImportReport appends an externally sourced fault record to the log,
// bypassing the physics chain. Missing bookkeeping fields are filled in.
func (e *Engine) ImportReport(r domain.FaultReport) domain.FaultReport {
	if r.ID == "" {
		r.ID = domain.NewReportID()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = domain.Now()
	}
	if r.Source == "" {
		r.Source = domain.SourceFeed
	}
	if r.Status == "" {
		r.Status = domain.StatusPending
	}

	e.mu.Lock()
	e.reports = append(e.reports, r)
	e.mu.Unlock()

	e.metrics.ReportsTotal.WithLabelValues(r.Source).Inc()
	return r
}

// Stats summarizes the report log.
type Stats struct {
	Total    int            `json:"total"`
	Critical int            `json:"critical"`
	Warning  int            `json:"warning"`
	BySensor map[string]int `json:"by_sensor"`
}

// Stats counts reports by severity and by originating sensor.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{BySensor: make(map[string]int)}
	s.Total = len(e.reports)
	for _, r := range e.reports {
		switch r.Severity {
		case domain.SeverityCritical:
			s.Critical++
		case domain.SeverityWarning:
			s.Warning++
		}
		if r.SensorID != "" {
			s.BySensor[r.SensorID]++
		}
	}
	return s
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "located"
	case errors.Is(err, ErrUnknownNode):
		return "unknown_node"
	case errors.Is(err, domain.ErrUpstreamOfAllSensors):
		return "upstream_of_sensors"
	case errors.Is(err, ErrBelowDetectionThreshold):
		return "below_threshold"
	case errors.Is(err, domain.ErrLocateNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrDegenerateImpedance):
		return "degenerate"
	default:
		return "error"
	}
}
