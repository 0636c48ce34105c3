package http

import (
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady reports whether pages can be rendered and what the state holds.
// An unloaded state is not a failure: the dashboard loads it on first use.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
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

	snap := s.state.Snapshot()
	stateCheck := map[string]any{
		"loaded":  snap.Loaded(),
		"version": snap.Version,
		"bills":   len(snap.Bills),
	}
	if snap.Loaded() {
		stateCheck["loaded_at"] = snap.LoadedAt.Format(time.RFC3339)
	}
	if len(snap.Warnings) > 0 {
		stateCheck["warnings"] = snap.Warnings
	}
	checks["state"] = stateCheck

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	snap := s.state.Snapshot()

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_request_duration_ms_avg", "gauge", "Average request duration in milliseconds", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP actions_total Dashboard actions by outcome\n")
	fmt.Fprintf(w, "# TYPE actions_total counter\n")
	fmt.Fprintf(w, "actions_total{outcome=\"ok\"} %d\n", s.appMetrics.actionsOK.Load())
	fmt.Fprintf(w, "actions_total{outcome=\"failed\"} %d\n\n", s.appMetrics.actionsFailed.Load())

	metric("session_expired_total", "counter", "Requests answered with a login redirect", s.appMetrics.unauthorized.Load())
	metric("pdf_downloads_total", "counter", "PDFs streamed from the backend", s.appMetrics.pdfDownloads.Load())
	metric("xlsx_exports_total", "counter", "Excel exports served", s.appMetrics.exports.Load())
	metric("bills_loaded", "gauge", "Bills in the current snapshot", len(snap.Bills))
	metric("state_version", "gauge", "Version of the current snapshot", snap.Version)
	metric("rate_limit_rejected_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.Rejected)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.appMetrics.uptime).Seconds()))

	if s.cacheManager == nil {
		return
	}
	stats := s.cacheManager.Stats()
	fmt.Fprintf(w, "\n# HELP view_cache_hits_total View cache hits by view\n")
	fmt.Fprintf(w, "# TYPE view_cache_hits_total counter\n")
	for _, name := range s.cacheManager.Names() {
		fmt.Fprintf(w, "view_cache_hits_total{view=%q} %d\n", name, stats[name].Hits)
	}
	fmt.Fprintf(w, "\n# HELP view_cache_misses_total View cache misses by view\n")
	fmt.Fprintf(w, "# TYPE view_cache_misses_total counter\n")
	for _, name := range s.cacheManager.Names() {
		fmt.Fprintf(w, "view_cache_misses_total{view=%q} %d\n", name, stats[name].Misses)
	}
}
