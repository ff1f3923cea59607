// Package httpapi exposes the locator engine over a small JSON REST surface,
// plus the usual health, readiness, and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridwatch/overwatch/internal/domain"
	"github.com/gridwatch/overwatch/internal/engine"
	"github.com/gridwatch/overwatch/internal/topology"
)

// Engine is the narrow contract the API needs from the locator engine.
type Engine interface {
	Topology() *topology.Topology
	SimulateFault(nodeID string, ft domain.FaultType) (domain.FaultReport, error)
	ListReports() []domain.FaultReport
	AcknowledgeReport(id, status, operator string) error
	Stats() engine.Stats
	CheckReadiness(ctx context.Context) error
}

// Server exposes the locator API and operational HTTP endpoints.
type Server struct {
	httpServer *http.Server
	engine     Engine
	logger     *slog.Logger
}

// NewServer creates the HTTP server and wires all routes.
func NewServer(addr string, eng Engine, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		engine: eng,
		logger: logger,
	}

	mux.HandleFunc("GET /api/topology", s.handleTopology)
	mux.HandleFunc("POST /api/simulate", s.handleSimulate)
	mux.HandleFunc("GET /api/reports", s.handleReports)
	mux.HandleFunc("POST /api/reports/{id}/ack", s.handleAcknowledge)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleTopology(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Topology())
}

type simulateRequest struct {
	NodeID    string `json:"node_id"`
	FaultType string `json:"fault_type"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ft, err := domain.ParseFaultType(req.FaultType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.engine.SimulateFault(req.NodeID, ft)
	if err != nil {
		writeError(w, simulateStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// simulateStatus maps the engine's request-scoped error kinds onto HTTP
// status codes. Detection conditions are client-resolvable facts about the
// feeder, not server failures.
func simulateStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownNode):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUpstreamOfAllSensors),
		errors.Is(err, engine.ErrBelowDetectionThreshold),
		errors.Is(err, domain.ErrLocateNotFound),
		errors.Is(err, domain.ErrDegenerateImpedance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleReports(w http.ResponseWriter, _ *http.Request) {
	reports := s.engine.ListReports()
	if reports == nil {
		reports = []domain.FaultReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

type acknowledgeRequest struct {
	Status   string `json:"status"`
	Operator string `json:"operator"`
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	var req acknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	id := r.PathValue("id")
	if err := s.engine.AcknowledgeReport(id, req.Status, req.Operator); err != nil {
		if errors.Is(err, engine.ErrReportNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "acknowledged": true})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.engine.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
