package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var processStartedAt = time.Now().UTC()

type httpMetrics struct {
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	sweeps    prometheus.Counter
	swept     prometheus.Counter
}

func newHTTPMetrics() *httpMetrics {
	return &httpMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tio_http_requests_total",
			Help: "HTTP requests by method and status.",
		}, []string{"method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tio_http_request_duration_seconds",
			Help:    "HTTP request duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tio_session_sweeps_total",
			Help: "Completed session housekeeping sweeps.",
		}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tio_sessions_swept_total",
			Help: "Sessions revoked by housekeeping.",
		}),
	}
}

func (s *Server) observeRequest(method string, status int, dur time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	s.metrics.durations.WithLabelValues(method).Observe(dur.Seconds())
}

func (s *Server) observeSweep(swept int64) {
	if s.metrics == nil {
		return
	}
	s.metrics.sweeps.Inc()
	s.metrics.swept.Add(float64(swept))
}

func (s *Server) registerObservabilityRoutes() {
	s.router.MethodFunc("GET", "/healthz", s.healthz)
	s.router.MethodFunc("GET", "/readyz", s.readyz)

	if s.cfg != nil && s.cfg.Observability.MetricsEnabled {
		reg := prometheus.NewRegistry()
		_ = reg.Register(collectors.NewGoCollector())
		_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "tio_uptime_seconds",
			Help: "Process uptime in seconds.",
		}, func() float64 {
			return time.Since(processStartedAt).Seconds()
		}))
		if s.metrics != nil {
			reg.MustRegister(s.metrics.requests, s.metrics.durations, s.metrics.sweeps, s.metrics.swept)
		}
		if s.recorder != nil {
			if c := s.recorder.FailureCounter(); c != nil {
				reg.MustRegister(c)
			}
		}
		handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		s.router.Method("GET", "/metrics", s.requireMetricsAuth(handler))
	}
}

func (s *Server) requireMetricsAuth(next http.Handler) http.Handler {
	if s == nil || s.cfg == nil {
		return next
	}
	token := strings.TrimSpace(s.cfg.Observability.MetricsToken)
	if token == "" {
		if s.cfg.IsDev() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
	expected := "Bearer " + token
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != expected {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	appEnv := ""
	if s != nil && s.cfg != nil {
		appEnv = s.cfg.AppEnv
	}
	writeJSONPlain(w, http.StatusOK, map[string]any{
		"ok":         true,
		"now":        time.Now().UTC().Format(time.RFC3339Nano),
		"uptime_sec": int64(time.Since(processStartedAt).Seconds()),
		"app_env":    appEnv,
	})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	if s == nil || s.db == nil {
		writeJSONPlain(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
		return
	}
	if err := s.db.PingContext(ctx); err != nil {
		writeJSONPlain(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
		return
	}
	writeJSONPlain(w, http.StatusOK, map[string]any{"ok": true})
}

func writeJSONPlain(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
