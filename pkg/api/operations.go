package api

import (
	"net/http"

	"github.com/adfharrison1/neemo/pkg/coordinator"
	"github.com/gorilla/mux"
)

// AcceptedResponse is returned by endpoints that queue an operation
type AcceptedResponse struct {
	OperationID string `json:"operation_id"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
}

// OperationResponse reports the state of a queued operation
type OperationResponse struct {
	coordinator.Status
	Result interface{} `json:"result,omitempty"`
}

func writeAccepted(w http.ResponseWriter, op *coordinator.Operation) {
	w.Header().Set("Location", "/operations/"+op.ID)
	writeJSON(w, http.StatusAccepted, AcceptedResponse{
		OperationID: op.ID,
		Kind:        op.Kind,
		Status:      "/operations/" + op.ID,
	})
}

// HandleOperation handles GET requests for the state of an operation
func (h *Handler) HandleOperation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	d, ok := h.database(w)
	if !ok {
		return
	}

	op, found := d.Operation(id)
	if !found {
		WriteJSONError(w, http.StatusNotFound, "operation "+id+" not found")
		return
	}
	resp := OperationResponse{Status: op.Status()}
	if op.State().Done() {
		resp.Result = op.Result()
	}
	writeJSON(w, http.StatusOK, resp)
}
