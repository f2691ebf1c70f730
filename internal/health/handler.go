// Package health reports whether the server can take conversions: the
// storage backend answers and the PDF and TXT extractors are registered.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// storageMarker is looked up by StorageCheck; it never needs to exist
const storageMarker = "conversions/.healthcheck"

// Probe checks one dependency. The returned detail is shown in the report.
type Probe func(ctx context.Context) (detail string, err error)

type check struct {
	name     string
	critical bool
	probe    Probe
}

// CheckResult is the outcome of one probe
type CheckResult struct {
	Name      string `json:"name"`
	Status    Status `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Report is the body of the health endpoints
type Report struct {
	Status    Status        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Checks    []CheckResult `json:"checks,omitempty"`
}

// Handler runs the registered probes
type Handler struct {
	mu      sync.RWMutex
	checks  []check
	version string
	now     func() time.Time
}

// NewHandler creates a new health check handler
func NewHandler(version string) *Handler {
	return &Handler{version: version, now: time.Now}
}

// Version returns the version reported by the health endpoints
func (h *Handler) Version() string {
	return h.version
}

// Routes registers /health, /health/live and /health/ready on r
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.HealthHandler())
	r.Get("/health/live", h.LivenessHandler())
	r.Get("/health/ready", h.ReadinessHandler())
}

// Register adds a probe. A failing critical probe makes the server
// unhealthy; any other failure only degrades it. Checks are reported in
// registration order.
func (h *Handler) Register(name string, critical bool, probe Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check{name: name, critical: critical, probe: probe})
}

// RunChecks runs every probe concurrently and folds the results
func (h *Handler) RunChecks(ctx context.Context) Report {
	h.mu.RLock()
	checks := append([]check(nil), h.checks...)
	h.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range checks {
		g.Go(func() error {
			start := h.now()
			detail, err := c.probe(gctx)
			res := CheckResult{
				Name:      c.name,
				Status:    StatusHealthy,
				Detail:    detail,
				LatencyMS: h.now().Sub(start).Milliseconds(),
			}
			if err != nil {
				res.Error = err.Error()
				res.Status = StatusDegraded
				if c.critical {
					res.Status = StatusUnhealthy
				}
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	overall := StatusHealthy
	for _, res := range results {
		switch {
		case res.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case res.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}

	return Report{
		Status:    overall,
		Timestamp: h.now().UTC(),
		Version:   h.version,
		Checks:    results,
	}
}

// StorageCheck looks up a marker object through the storage adapter. Any
// answer, found or not, means the backend is reachable. The adapter name is
// reported as the detail.
func StorageCheck(adapter string, exists func(ctx context.Context, path string) (bool, error)) Probe {
	return func(ctx context.Context) (string, error) {
		if _, err := exists(ctx, storageMarker); err != nil {
			return adapter, fmt.Errorf("%s storage unreachable: %w", adapter, err)
		}
		return adapter, nil
	}
}

// FormatCheck verifies that an extractor is registered for every format
func FormatCheck(lookup func(format string) error, formats ...string) Probe {
	return func(ctx context.Context) (string, error) {
		var missing []string
		for _, f := range formats {
			if err := lookup(f); err != nil {
				missing = append(missing, f)
			}
		}
		detail := strings.Join(formats, ", ")
		if len(missing) > 0 {
			return detail, fmt.Errorf("no extractor for %s", strings.Join(missing, ", "))
		}
		return detail, nil
	}
}

// LivenessHandler answers as long as the process serves HTTP
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeReport(w, http.StatusOK, Report{
			Status:    StatusHealthy,
			Timestamp: h.now().UTC(),
			Version:   h.version,
		})
	}
}

// ReadinessHandler returns 503 while a critical probe fails, so uploads are
// not routed to an instance that cannot store them
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		report := h.RunChecks(ctx)
		statusCode := http.StatusOK
		if report.Status == StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		writeReport(w, statusCode, report)
	}
}

// HealthHandler always answers 200 with the full report
func (h *Handler) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		writeReport(w, http.StatusOK, h.RunChecks(ctx))
	}
}

func writeReport(w http.ResponseWriter, statusCode int, report Report) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(report)
}
