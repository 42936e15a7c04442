package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ledgerdesk/internal/log"
	"ledgerdesk/internal/view"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady checks the gateway with list_accounts_cmd.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), s.deps.ReadyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if _, err := s.deps.Gateway.ListAccounts(ctx); err != nil {
		checks["gateway"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
		s.requestLogger(r).WarnContext(ctx, "Readiness check failed",
			log.FieldError, err,
			"error_type", log.ErrorTypeGateway)
	} else {
		checks["gateway"] = "ok"
	}

	if cs, ok := s.deps.Gateway.(cacheStatser); ok {
		stats := cs.Stats()
		checks["cache"] = map[string]any{
			"entries": stats.Size,
			"status":  "ok",
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_requests_failed_total", "counter", "HTTP requests answered with a 5xx status", traceMetrics.FailedRequests)
	writeMetric(w, "http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)

	writeMetric(w, "transactions_created_total", "counter", "Transactions created through the form", s.appMetrics.transactionsCreated.Load())
	writeMetric(w, "submissions_rejected_total", "counter", "Submissions rejected before reaching the gateway", s.appMetrics.submissionsRejected.Load())
	writeMetric(w, "submissions_failed_total", "counter", "Submissions the gateway refused or could not complete", s.appMetrics.submissionsFailed.Load())

	fmt.Fprintf(w, "# HELP view_fetches_total Fetches issued by data-bound views\n")
	fmt.Fprintf(w, "# TYPE view_fetches_total counter\n")
	for _, v := range []struct {
		name  string
		stats view.Stats
	}{
		{"accounts", s.deps.Accounts.Stats()},
		{"transactions", s.deps.Transactions.Stats()},
	} {
		fmt.Fprintf(w, "view_fetches_total{view=%q,outcome=\"issued\"} %d\n", v.name, v.stats.Issued)
		fmt.Fprintf(w, "view_fetches_total{view=%q,outcome=\"committed\"} %d\n", v.name, v.stats.Committed)
		fmt.Fprintf(w, "view_fetches_total{view=%q,outcome=\"discarded\"} %d\n", v.name, v.stats.Discarded)
	}
	fmt.Fprintln(w)

	if cs, ok := s.deps.Gateway.(cacheStatser); ok {
		stats := cs.Stats()
		writeMetric(w, "cache_hits_total", "counter", "Total cache hits", stats.Hits)
		writeMetric(w, "cache_misses_total", "counter", "Total cache misses", stats.Misses)
		writeMetric(w, "cache_evictions_total", "counter", "Entries evicted by size", stats.Evictions)
		writeMetric(w, "cache_entries", "gauge", "Current cache entries", int64(stats.Size))
	}

	writeMetric(w, "rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	writeMetric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)

	if s.deps.Hub != nil {
		writeMetric(w, "live_clients", "gauge", "Connected live feed clients", int64(s.deps.Hub.Len()))
	}

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}
