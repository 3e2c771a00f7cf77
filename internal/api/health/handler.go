package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"econcal/pkg/logger"
)

// Check pings one dependency
type Check func(ctx context.Context) error

// Handler provides health check endpoints
type Handler struct {
	log         *logger.Logger
	required    map[string]Check
	optional    map[string]Check
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a new health check handler. Readiness fails when any required
// check fails; optional checks only degrade /health.
func New(log *logger.Logger, serviceName, version string) *Handler {
	return &Handler{
		log:         log.With("component", "health"),
		required:    make(map[string]Check),
		optional:    make(map[string]Check),
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// Require registers a dependency the service cannot work without
func (h *Handler) Require(name string, check Check) *Handler {
	h.required[name] = check
	return h
}

// Optional registers a best-effort dependency
func (h *Handler) Optional(name string, check Check) *Handler {
	h.optional[name] = check
	return h
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (c ComponentHealth) healthy() bool { return c.Status == "healthy" }

// HandleLiveness returns 200 OK if service is running
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HandleReadiness checks required dependencies only
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := h.run(ctx, h.required)
	status := h.status(checks)

	statusCode := http.StatusOK
	for _, c := range checks {
		if !c.healthy() {
			status.Status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		}
	}
	if statusCode != http.StatusOK {
		h.log.Warnw("Readiness check failed", "checks", checks)
	}

	writeJSON(w, statusCode, status)
}

// HandleHealth returns detailed status of every registered dependency
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks := h.run(ctx, h.required)
	optional := h.run(ctx, h.optional)
	status := h.status(checks)

	statusCode := http.StatusOK
	for _, c := range checks {
		if !c.healthy() {
			status.Status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		}
	}
	for name, c := range optional {
		status.Checks[name] = c
		if !c.healthy() && statusCode == http.StatusOK {
			status.Status = "degraded"
		}
	}

	writeJSON(w, statusCode, status)
}

func (h *Handler) status(checks map[string]ComponentHealth) HealthStatus {
	return HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}
}

func (h *Handler) run(ctx context.Context, set map[string]Check) map[string]ComponentHealth {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]ComponentHealth, len(set))
	for _, name := range names {
		start := time.Now()
		err := set[name](ctx)
		elapsed := time.Since(start)

		if err != nil {
			h.log.Warnw("Health check failed", "component", name, "error", err, "elapsed", elapsed)
			out[name] = ComponentHealth{Status: "unhealthy", ResponseTime: elapsed.String(), Error: err.Error()}
			continue
		}
		out[name] = ComponentHealth{Status: "healthy", ResponseTime: elapsed.String()}
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
