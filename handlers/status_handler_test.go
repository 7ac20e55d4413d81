package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/projectscraper/handlers"
	"github.com/gewnthar/projectscraper/logger"
	"github.com/gewnthar/projectscraper/metrics"
	"github.com/gewnthar/projectscraper/models"
)

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) LastRun(ctx context.Context) (*models.RunSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RunSummary), args.Error(1)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, r http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	h := handlers.NewStatusHandler(&mockHistory{}, nil, nil, prometheus.NewRegistry(), logger.NewNop())
	w := serve(t, handlers.NewRouter(h), http.MethodGet, "/api/health")

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHealth_DatabaseDown(t *testing.T) {
	db := pingerFunc(func(context.Context) error { return errors.New("refused") })
	h := handlers.NewStatusHandler(&mockHistory{}, db, nil, prometheus.NewRegistry(), logger.NewNop())

	w := serve(t, handlers.NewRouter(h), http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLastRun(t *testing.T) {
	hist := &mockHistory{}
	hist.On("LastRun", mock.Anything).Return(&models.RunSummary{ID: "run-1", Result: models.RunSuccess, Records: 2}, nil)

	h := handlers.NewStatusHandler(hist, nil, nil, prometheus.NewRegistry(), logger.NewNop())
	w := serve(t, handlers.NewRouter(h), http.MethodGet, "/api/runs/last")

	require.Equal(t, http.StatusOK, w.Code)
	var got models.RunSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, 2, got.Records)
	hist.AssertExpectations(t)
}

func TestLastRun_NoneAndError(t *testing.T) {
	none := &mockHistory{}
	none.On("LastRun", mock.Anything).Return(nil, nil)
	w := serve(t, handlers.NewRouter(handlers.NewStatusHandler(none, nil, nil, prometheus.NewRegistry(), logger.NewNop())),
		http.MethodGet, "/api/runs/last")
	assert.Equal(t, http.StatusNotFound, w.Code)

	failing := &mockHistory{}
	failing.On("LastRun", mock.Anything).Return(nil, errors.New("db down"))
	w = serve(t, handlers.NewRouter(handlers.NewStatusHandler(failing, nil, nil, prometheus.NewRegistry(), logger.NewNop())),
		http.MethodGet, "/api/runs/last")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTriggerRun(t *testing.T) {
	hist := &mockHistory{}
	hist.On("LastRun", mock.Anything).Return(&models.RunSummary{ID: "run-2"}, nil)

	calls := 0
	trigger := func(context.Context) bool { calls++; return calls == 1 }
	r := handlers.NewRouter(handlers.NewStatusHandler(hist, nil, trigger, prometheus.NewRegistry(), logger.NewNop()))

	w := serve(t, r, http.MethodPost, "/api/runs")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "run-2")

	w = serve(t, r, http.MethodPost, "/api/runs")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTriggerRun_SurvivesClientDisconnect(t *testing.T) {
	hist := &mockHistory{}
	hist.On("LastRun", mock.Anything).Return(&models.RunSummary{ID: "run-3"}, nil)

	var runErr error
	trigger := func(ctx context.Context) bool {
		runErr = ctx.Err()
		return true
	}
	r := handlers.NewRouter(handlers.NewStatusHandler(hist, nil, trigger, prometheus.NewRegistry(), logger.NewNop()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/runs", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, runErr)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveRecord(string(models.StatusSuccessLive))

	h := handlers.NewStatusHandler(&mockHistory{}, nil, nil, reg, logger.NewNop())
	w := serve(t, handlers.NewRouter(h), http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "projectscraper_engine_records_total"))
}
