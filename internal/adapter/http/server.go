package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/temperature-chart/internal/chart"
	"github.com/couchcryptid/temperature-chart/internal/domain"
	"github.com/couchcryptid/temperature-chart/internal/observability"
	"github.com/couchcryptid/temperature-chart/internal/pipeline"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Snapshots yields the most recently loaded dataset.
type Snapshots interface {
	Latest() (*pipeline.Result, bool)
}

// Renderer draws a chart for a point sequence.
type Renderer interface {
	ContentType() string
	Render(w io.Writer, title string, points []domain.DerivedPoint) error
}

// Renderers holds one Renderer per served format.
type Renderers struct {
	HTML Renderer
	PNG  Renderer
}

// Server exposes the chart, its data API, and health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	store      Snapshots
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server serving the latest snapshot from store.
func NewServer(addr string, ready ReadinessChecker, store Snapshots, r Renderers, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:   store,
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /{$}", s.handleChart("html", r.HTML))
	mux.HandleFunc("GET /chart.png", s.handleChart("png", r.PNG))
	mux.HandleFunc("GET /api/points", s.handlePoints)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/nearest", s.handleNearest)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Listen binds the configured address.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return ln, nil
}

// Serve accepts connections on ln. Returns http.ErrServerClosed on graceful
// shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server starting", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}


// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleChart(format string, renderer Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		res, ok := s.latest(w)
		if !ok {
			return
		}

		var buf bytes.Buffer
		if err := renderer.Render(&buf, chart.Title(res.Report.Source, res.Report.Table), res.Points); err != nil {
			s.logger.Error("chart render failed", "format", format, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		s.metrics.ChartRenders.WithLabelValues(format).Inc()

		w.Header().Set("Content-Type", renderer.ContentType())
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		buf.WriteTo(w) //nolint:errcheck // client went away
	}
}

type pointsResponse struct {
	Report   pipeline.Report       `json:"report"`
	LoadedAt time.Time             `json:"loaded_at"`
	Points   []domain.DerivedPoint `json:"points"`
}

func (s *Server) handlePoints(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.latest(w)
	if !ok {
		return
	}
	s.metrics.ChartRenders.WithLabelValues("json").Inc()
	writeJSON(w, http.StatusOK, pointsResponse{Report: res.Report, LoadedAt: res.LoadedAt, Points: res.Points})
}

type summaryResponse struct {
	Report  pipeline.Report `json:"report"`
	Summary domain.Summary  `json:"summary"`
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Report: res.Report, Summary: domain.Summarize(res.Points)})
}

type nearestResponse struct {
	Index   int                 `json:"index"`
	Point   domain.DerivedPoint `json:"point"`
	Tooltip []string            `json:"tooltip"`
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("t")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing query parameter t"})
		return
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("parameter t: %v", err)})
		return
	}

	res, ok := s.latest(w)
	if !ok {
		return
	}
	i := chart.Nearest(res.Points, at)
	p := res.Points[i]
	writeJSON(w, http.StatusOK, nearestResponse{Index: i, Point: p, Tooltip: chart.Tooltip(p)})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// latest returns the current snapshot, answering 503 when none exists yet.
func (s *Server) latest(w http.ResponseWriter) (*pipeline.Result, bool) {
	res, ok := s.store.Latest()
	if !ok || len(res.Points) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no dataset loaded"})
		return nil, false
	}
	return res, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n')) //nolint:errcheck // best-effort response
}
