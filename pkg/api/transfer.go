package api

import (
	"encoding/json"
	"net/http"
)

// PathRequest is the body of the export, import, backup and restore
// endpoints
type PathRequest struct {
	Path string `json:"path"`
}

// PathResponse reports a finished file operation
type PathResponse struct {
	Path      string `json:"path"`
	Database  string `json:"database"`
	Documents int    `json:"documents,omitempty"`
}

func decodePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req PathRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil || req.Path == "" {
		WriteJSONError(w, http.StatusBadRequest, "body must be {\"path\": \"...\"}")
		return "", false
	}
	return req.Path, true
}

// HandleExport handles POST /export, writing every document to a file on
// the server
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	path, ok := decodePath(w, r)
	if !ok {
		return
	}
	d, ok := h.database(w)
	if !ok {
		return
	}
	n, err := d.Export(path)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: path, Database: d.Name(), Documents: n})
}

// HandleImport handles POST /import, queueing a load of an export file
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	path, ok := decodePath(w, r)
	if !ok {
		return
	}
	d, ok := h.database(w)
	if !ok {
		return
	}
	writeAccepted(w, d.Import(path))
}
