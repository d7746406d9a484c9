package api

import (
	"net/http"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Database string                 `json:"database,omitempty"`
	Stats    map[string]interface{} `json:"stats,omitempty"`
}

// HandleHealth handles GET requests to the health check endpoint
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Message: "neemo is running",
	}
	if d := h.mgr.Active(); d != nil {
		response.Database = d.Name()
		response.Stats = d.Stats()
	}
	writeJSON(w, http.StatusOK, response)
}
