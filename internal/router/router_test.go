package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shaibs3/careportal/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(router *mux.Router, _ *zap.Logger) {
	router.HandleFunc("/api/v1/ping/{id}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}).Methods(http.MethodGet)
}

func newTestRouter(t *testing.T, limiter *rate.Limiter) *Router {
	t.Helper()
	tel, err := telemetry.NewTelemetry(zap.NewNop())
	require.NoError(t, err)
	return NewRouter(limiter, tel, zap.NewNop(), []Handler{pingHandler{}}, WithAllowedOrigin("http://localhost:5173"))
}

func TestRouter_ServesHandlersAndMetrics(t *testing.T) {
	r := newTestRouter(t, rate.NewLimiter(rate.Inf, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping/7", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "careportal_http_requests_total")
	assert.Contains(t, w.Body.String(), `route="/api/v1/ping/{id}"`)
}

func TestRouter_NotFound(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"error":"Not found"}`, w.Body.String())
}

func TestRouter_RateLimit(t *testing.T) {
	r := newTestRouter(t, rate.NewLimiter(rate.Limit(0.0001), 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping/1", nil))
		codes = append(codes, w.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRouter_CORS(t *testing.T) {
	r := newTestRouter(t, nil)

	// Preflight from the frontend
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ping/1", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	// Foreign origin gets no grant
	req = httptest.NewRequest(http.MethodGet, "/api/v1/ping/1", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
