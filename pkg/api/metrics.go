package api

import (
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

// HandleMetrics exposes operation counters in Prometheus text format
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w, true)
}
