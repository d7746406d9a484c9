package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// DatabaseRequest is the body of POST /databases
type DatabaseRequest struct {
	Name string `json:"name"`
}

// DatabasesResponse lists the databases in the data directory
type DatabasesResponse struct {
	Active    string   `json:"active"`
	Databases []string `json:"databases"`
}

// HandleListDatabases handles GET /databases
func (h *Handler) HandleListDatabases(w http.ResponseWriter, r *http.Request) {
	names, err := h.mgr.Databases()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := DatabasesResponse{Databases: names}
	if d := h.mgr.Active(); d != nil {
		resp.Active = d.Name()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleCreateDatabase handles POST /databases, creating a database and
// making it active
func (h *Handler) HandleCreateDatabase(w http.ResponseWriter, r *http.Request) {
	var req DatabaseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	d, err := h.mgr.Create(req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Infof("[api] created database %q", d.Name())
	writeJSON(w, http.StatusCreated, DatabasesResponse{Active: d.Name(), Databases: []string{d.Name()}})
}

// HandleUseDatabase handles POST /databases/{name}/use
func (h *Handler) HandleUseDatabase(w http.ResponseWriter, r *http.Request) {
	d, err := h.mgr.Use(mux.Vars(r)["name"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DatabasesResponse{Active: d.Name(), Databases: []string{d.Name()}})
}
