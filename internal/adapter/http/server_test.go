package http_test

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/temperature-chart/internal/adapter/http"
	"github.com/couchcryptid/temperature-chart/internal/chart"
	"github.com/couchcryptid/temperature-chart/internal/domain"
	"github.com/couchcryptid/temperature-chart/internal/observability"
	"github.com/couchcryptid/temperature-chart/internal/pipeline"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type failingRenderer struct{}

func (failingRenderer) ContentType() string { return "text/plain" }

func (failingRenderer) Render(io.Writer, string, []domain.DerivedPoint) error {
	return errors.New("out of ink")
}

var baseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func loadedStore() *pipeline.Store {
	var s pipeline.Store
	s.Set(&pipeline.Result{
		Points: domain.DeriveSlopes(domain.Series{
			{Time: baseTime, Temperature: 20},
			{Time: baseTime.Add(time.Hour), Temperature: 22},
			{Time: baseTime.Add(2 * time.Hour), Temperature: 21},
		}),
		Report:   pipeline.Report{Source: "/data/living-room.xlsx", Table: "Sheet1", Rows: 4, Kept: 3, Skipped: 1},
		LoadedAt: baseTime.Add(3 * time.Hour),
	})
	return &s
}

func renderers(t *testing.T) httpadapter.Renderers {
	t.Helper()
	html, err := chart.NewHTMLRenderer(chart.Options{})
	require.NoError(t, err)
	pngR, err := chart.NewPNGRenderer(chart.Options{Width: 400, Height: 200})
	require.NoError(t, err)
	return httpadapter.Renderers{HTML: html, PNG: pngR}
}

func newTestServer(t *testing.T, readyErr error, store *pipeline.Store) (*httpadapter.Server, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	srv := httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, store, renderers(t), metrics, slog.Default())
	return srv, metrics
}

func get(srv http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(t, nil, &pipeline.Store{})

	rec := get(srv, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _ := newTestServer(t, nil, loadedStore())

	rec := get(srv, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv, _ := newTestServer(t, fmt.Errorf("not ready yet"), &pipeline.Store{})

	rec := get(srv, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil, &pipeline.Store{})

	rec := get(srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestChartRoutesReturn503BeforeFirstLoad(t *testing.T) {
	srv, _ := newTestServer(t, errors.New("no dataset loaded yet"), &pipeline.Store{})

	for _, target := range []string{"/", "/chart.png", "/api/points", "/api/summary", "/api/nearest?t=2025-01-01T00:00:00Z"} {
		t.Run(target, func(t *testing.T) {
			rec := get(srv, target)
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		})
	}
}

func TestChartPage(t *testing.T) {
	srv, metrics := newTestServer(t, nil, loadedStore())

	rec := get(srv, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<title>Temperature: living-room.xlsx (Sheet1)</title>")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ChartRenders.WithLabelValues("html")))
}

func TestChartPNG(t *testing.T) {
	srv, metrics := newTestServer(t, nil, loadedStore())

	rec := get(srv, "/chart.png")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ChartRenders.WithLabelValues("png")))
}

func TestChartRenderFailureReturns500(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	srv := httpadapter.NewServer(":0", &mockReadiness{}, loadedStore(),
		httpadapter.Renderers{HTML: failingRenderer{}, PNG: failingRenderer{}}, metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := get(srv, "/")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "out of ink")
	assert.Zero(t, testutil.ToFloat64(metrics.ChartRenders.WithLabelValues("html")))
}

func TestUnknownPathReturns404(t *testing.T) {
	srv, _ := newTestServer(t, nil, loadedStore())

	assert.Equal(t, http.StatusNotFound, get(srv, "/favicon.ico").Code)
}

func TestAPIPoints(t *testing.T) {
	srv, _ := newTestServer(t, nil, loadedStore())

	rec := get(srv, "/api/points")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Report struct {
			Table   string `json:"table"`
			Skipped int    `json:"skipped"`
		} `json:"report"`
		Points []struct {
			Time        time.Time `json:"time"`
			Temperature float64   `json:"temperature"`
			Slope       *float64  `json:"slope"`
		} `json:"points"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "Sheet1", body.Report.Table)
	assert.Equal(t, 1, body.Report.Skipped)
	require.Len(t, body.Points, 3)
	assert.True(t, baseTime.Equal(body.Points[0].Time))
	assert.Equal(t, 22.0, body.Points[1].Temperature)
	require.NotNil(t, body.Points[1].Slope)
	assert.InDelta(t, 0.5, *body.Points[1].Slope, 1e-9)
}

func TestAPISummary(t *testing.T) {
	srv, _ := newTestServer(t, nil, loadedStore())

	rec := get(srv, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Summary domain.Summary `json:"summary"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Summary.Count)
	assert.Equal(t, 20.0, body.Summary.Min)
	assert.Equal(t, 22.0, body.Summary.Max)
	require.NotNil(t, body.Summary.SteepestRise)
	assert.InDelta(t, 2.0, *body.Summary.SteepestRise, 1e-9)
}

func TestAPINearest(t *testing.T) {
	srv, _ := newTestServer(t, nil, loadedStore())

	rec := get(srv, "/api/nearest?t=2025-01-01T01:20:00Z")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Index   int      `json:"index"`
		Tooltip []string `json:"tooltip"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Index)
	assert.Equal(t, []string{"2025-01-01 01:00:00", "Temp: 22.0°C", "Slope: +0.50 °C/h"}, body.Tooltip)
}

func TestAPINearestRejectsBadTime(t *testing.T) {
	srv, _ := newTestServer(t, nil, loadedStore())

	assert.Equal(t, http.StatusBadRequest, get(srv, "/api/nearest").Code)
	assert.Equal(t, http.StatusBadRequest, get(srv, "/api/nearest?t=yesterday").Code)
}

func TestListenAndServe(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	srv := httpadapter.NewServer("127.0.0.1:0", &mockReadiness{}, loadedStore(), renderers(t), metrics, slog.Default())

	ln, err := srv.Listen()
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.ErrorIs(t, <-done, http.ErrServerClosed)
}

func TestListenFailsWhenAddressInUse(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	srv := httpadapter.NewServer(taken.Addr().String(), &mockReadiness{}, &pipeline.Store{}, renderers(t),
		observability.NewMetricsForTesting(), slog.Default())

	_, err = srv.Listen()
	require.Error(t, err)
	assert.Contains(t, err.Error(), taken.Addr().String())
}
