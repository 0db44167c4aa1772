package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pulsepost/internal/resilience/circuitbreaker"
	"pulsepost/internal/resilience/recovery"
)

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status    string   `json:"status"`
	Unhealthy []string `json:"unhealthy_breakers,omitempty"`
}

// StatusResponse is the /status body: breaker counters plus the error ledger
// summary.
type StatusResponse struct {
	Breakers map[string]BreakerStatus `json:"breakers"`
	Errors   recovery.Stats           `json:"errors"`
}

// BreakerStatus is the per-breaker slice of StatusResponse.
type BreakerStatus struct {
	State        string  `json:"state"`
	TotalCalls   int64   `json:"total_calls"`
	SuccessRate  float64 `json:"success_rate"`
	TimesOpened  int64   `json:"times_opened"`
	TimeoutCount int64   `json:"timeout_count"`
}

// startAdminServer serves /metrics, /healthz and /status on the admin port.
// The server shuts down gracefully when ctx is canceled.
func startAdminServer(ctx context.Context, logger *slog.Logger, port int, breakers *circuitbreaker.Registry, orchestrator *recovery.Orchestrator) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthHandler(breakers))
	mux.HandleFunc("/status", statusHandler(breakers, orchestrator))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("admin server starting", slog.Int("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server error", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("admin server shutdown error", slog.Any("error", err))
		} else {
			logger.Info("admin server stopped")
		}
	}()

	return server
}

// healthHandler reports readiness: 503 while any breaker is unhealthy.
func healthHandler(breakers *circuitbreaker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unhealthy := breakers.Unhealthy()

		status := "healthy"
		statusCode := http.StatusOK
		if len(unhealthy) > 0 {
			status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status:    status,
			Unhealthy: unhealthy,
		})
	}
}

// statusHandler exposes breaker counters and the error summary for debugging.
func statusHandler(breakers *circuitbreaker.Registry, orchestrator *recovery.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := breakers.AllStats()

		resp := StatusResponse{
			Breakers: make(map[string]BreakerStatus, len(stats)),
			Errors:   orchestrator.Stats(),
		}
		for name, s := range stats {
			state := ""
			if cb := breakers.Get(name); cb != nil {
				state = cb.State().String()
			}
			resp.Breakers[name] = BreakerStatus{
				State:        state,
				TotalCalls:   s.TotalCalls,
				SuccessRate:  s.SuccessRate(),
				TimesOpened:  s.TimesOpened,
				TimeoutCount: s.TimeoutCount,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
