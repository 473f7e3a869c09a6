package router

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shaibs3/careportal/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Handler is implemented by every handler in internal/handlers
type Handler interface {
	RegisterRoutes(router *mux.Router, logger *zap.Logger)
}

type Router struct {
	mux         *mux.Router
	handler     http.Handler
	limiter     *rate.Limiter
	logger      *zap.Logger
	allowOrigin string

	requests metric.Int64Counter
	duration metric.Float64Histogram
}

type Option func(*Router)

// WithAllowedOrigin enables credentialed CORS for a single origin
func WithAllowedOrigin(origin string) Option {
	return func(r *Router) { r.allowOrigin = origin }
}

func NewRouter(limiter *rate.Limiter, tel *telemetry.Telemetry, logger *zap.Logger, handlers []Handler, opts ...Option) *Router {
	r := &Router{
		mux:     mux.NewRouter(),
		limiter: limiter,
		logger:  logger.Named("router"),
	}
	for _, opt := range opts {
		opt(r)
	}

	var err error
	r.requests, err = tel.Meter.Int64Counter("careportal_http_requests_total",
		metric.WithDescription("HTTP requests by method, route and status"))
	if err != nil {
		r.logger.Warn("failed to create request counter", zap.Error(err))
	}
	r.duration, err = tel.Meter.Float64Histogram("careportal_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"))
	if err != nil {
		r.logger.Warn("failed to create latency histogram", zap.Error(err))
	}

	r.mux.Handle("/metrics", tel.Handler()).Methods(http.MethodGet)
	for _, h := range handlers {
		h.RegisterRoutes(r.mux, logger)
	}
	r.mux.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.mux.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// instrument needs the matched route, the rest also guard unmatched requests
	r.mux.Use(r.instrument)
	r.handler = r.securityHeaders(r.cors(r.rateLimit(r.mux)))
	return r
}

// ServeHTTP implements the http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// CreateServer returns an http.Server serving this router on addr
func (r *Router) CreateServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}

func (r *Router) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "same-site")
		next.ServeHTTP(w, req)
	})
}

func (r *Router) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.allowOrigin != "" && req.Header.Get("Origin") == r.allowOrigin {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", r.allowOrigin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Add("Vary", "Origin")
		}
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.limiter != nil && !r.limiter.Allow() {
			r.logger.Warn("rate limit exceeded", zap.String("remote_addr", req.RemoteAddr))
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		elapsed := time.Since(start)

		route := req.URL.Path
		if m := mux.CurrentRoute(req); m != nil {
			if tpl, err := m.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		attrs := metric.WithAttributes(
			attribute.String("method", req.Method),
			attribute.String("route", route),
			attribute.String("status", strconv.Itoa(rec.status)),
		)
		ctx := context.Background()
		if r.requests != nil {
			r.requests.Add(ctx, 1, attrs)
		}
		if r.duration != nil {
			r.duration.Record(ctx, elapsed.Seconds(), attrs)
		}

		r.logger.Debug("request handled",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
