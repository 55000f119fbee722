package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rickgao/livewatch/internal/metrics"
	"github.com/rickgao/livewatch/internal/version"
)

// listenerStatus is the listener state reported by /health.
type listenerStatus interface {
	ID() string
	Connected() bool
}

// newHTTPHandler serves /health and the metrics endpoint. ping checks the
// token store and may be nil when none is configured.
func newHTTPHandler(metricsPath string, listener listenerStatus, ping func(context.Context) error) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, metrics.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Version    string         `json:"version"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.Version,
			Components: make(map[string]any),
		}

		// Check listener
		health.Components["eventsub"] = map[string]any{
			"listener_id": listener.ID(),
			"connected":   listener.Connected(),
		}
		if !listener.Connected() {
			health.Status = "degraded"
		}

		// Check token store
		if ping != nil {
			if err := ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["token_store"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["token_store"] = "connected"
			}
		}

		// Set response
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
