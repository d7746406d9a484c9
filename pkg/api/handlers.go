package api

import (
	"net/http"

	"github.com/adfharrison1/neemo/pkg/db"
	"github.com/adfharrison1/neemo/pkg/logging"
)

// maxBodySize caps request bodies read into memory.
const maxBodySize = 32 << 20

// Handler provides HTTP handlers over the active database of a manager
type Handler struct {
	mgr    *db.Manager
	logger logging.Logger
}

// NewHandler creates a new API handler
func NewHandler(mgr *db.Manager, logger logging.Logger) *Handler {
	return &Handler{
		mgr:    mgr,
		logger: logging.OrDiscard(logger),
	}
}

// database returns the active database or writes a 503.
func (h *Handler) database(w http.ResponseWriter) (*db.Database, bool) {
	d := h.mgr.Active()
	if d == nil {
		WriteJSONError(w, http.StatusServiceUnavailable, "no database is open")
		return nil, false
	}
	return d, true
}
