package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Probe checks one dependency. A nil error means healthy.
type Probe func(ctx context.Context) error

type probeResult struct {
	OK        bool    `json:"ok"`
	LatencyMs float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// HealthStatus tracks dependency liveness for the /healthz endpoint.
// Dependencies registered as required make the status "unhealthy" when down;
// optional ones only degrade it.
type HealthStatus struct {
	mu sync.RWMutex

	probes   map[string]Probe
	required map[string]bool
	results  map[string]probeResult

	LastCheckAt time.Time
	StartedAt   time.Time
}

// NewHealthStatus returns a health status with no dependencies.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		probes:    make(map[string]Probe),
		required:  make(map[string]bool),
		results:   make(map[string]probeResult),
		StartedAt: time.Now(),
	}
}

// AddProbe registers a dependency check.
func (h *HealthStatus) AddProbe(name string, required bool, p Probe) {
	h.mu.Lock()
	h.probes[name] = p
	h.required[name] = required
	h.mu.Unlock()
}

// CheckAll runs every probe once and records latency + outcome.
func (h *HealthStatus) CheckAll(ctx context.Context) {
	h.mu.RLock()
	probes := make(map[string]Probe, len(h.probes))
	for name, p := range h.probes {
		probes[name] = p
	}
	h.mu.RUnlock()

	results := make(map[string]probeResult, len(probes))
	for name, p := range probes {
		start := time.Now()
		err := p(ctx)
		r := probeResult{
			OK:        err == nil,
			LatencyMs: float64(time.Since(start).Microseconds()) / 1000.0,
		}
		if err != nil {
			r.Error = err.Error()
		}
		results[name] = r
	}

	h.mu.Lock()
	h.results = results
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				h.CheckAll(probeCtx)
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make(map[string]probeResult, len(names))
	for _, name := range names {
		res, checked := h.results[name]
		deps[name] = res
		if checked && res.OK {
			continue
		}
		if h.required[name] {
			overallStatus = "unhealthy"
			httpCode = http.StatusServiceUnavailable
		} else if overallStatus == "healthy" {
			overallStatus = "degraded"
		}
	}

	status := struct {
		Status       string                 `json:"status"`
		Uptime       string                 `json:"uptime"`
		Dependencies map[string]probeResult `json:"dependencies"`
		LastCheckAt  string                 `json:"last_check_at"`
	}{
		Status:       overallStatus,
		Uptime:       time.Since(h.StartedAt).Round(time.Second).String(),
		Dependencies: deps,
		LastCheckAt:  h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server backed by gatherer.
func NewServer(addr string, health *HealthStatus, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
