package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.started).Round(time.Second).String(),
	})
}

// handleReady checks the templates and the local store
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if len(s.templates) != len(pages) {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["cache"] = map[string]any{"profile_entries": s.profiles.Size(), "status": "ok"}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients(), "status": "ok"}
	checks["sheets_export"] = s.exports.SheetsEnabled()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	security := s.detector.GetMetrics()
	limits := s.limiter.GetMetrics()
	traffic := s.tracer.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", traffic.TotalRequests)
	metric("http_server_errors_total", "Responses with a 5xx status", "counter", traffic.ServerErrors)
	metric("http_response_time_microseconds", "Moving average response time", "gauge", traffic.AverageResponseTime)
	metric("logins_total", "Successful logins", "counter", s.metrics.logins.Load())
	metric("login_failures_total", "Rejected logins", "counter", s.metrics.loginFailures.Load())
	metric("sessions_ended_total", "Sessions ended by logout or token rejection", "counter", s.metrics.sessionsEnded.Load())
	metric("transactions_saved_total", "Transactions created or updated", "counter", s.metrics.transactions.Load())
	metric("exports_total", "Completed exports", "counter", s.metrics.exports.Load())
	metric("profile_cache_entries", "Cached profiles", "gauge", s.profiles.Size())
	metric("rate_limit_hits_total", "Requests refused by the rate limiter", "counter", limits.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", limits.ClientCount)
	metric("suspicious_requests_total", "Requests matching a scanner pattern", "counter", security.SuspiciousRequests)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", fmt.Sprintf("%.0f", time.Since(s.metrics.started).Seconds()))
}
