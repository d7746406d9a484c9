package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/adfharrison1/neemo/pkg/db"
	"github.com/adfharrison1/neemo/pkg/domain"
)

const maxBatchSize = 1000

// BatchRequest is the body of POST /batch
type BatchRequest struct {
	Requests []BatchItem `json:"requests"`
}

// BatchItem is one insert or delete of a batch
type BatchItem struct {
	Op     string         `json:"op"`
	Key    string         `json:"key"`
	Fields *domain.Fields `json:"fields,omitempty"`
}

func (item BatchItem) mutation() (db.Mutation, error) {
	switch strings.ToLower(item.Op) {
	case "insert":
		if item.Fields == nil {
			return db.Mutation{}, domain.Invalidf("insert of %q has no fields", item.Key)
		}
		return db.InsertMutation(item.Key, item.Fields), nil
	case "delete":
		return db.DeleteMutation(item.Key), nil
	default:
		return db.Mutation{}, domain.Invalidf("unknown op %q", item.Op)
	}
}

// HandleBatch handles POST requests applying a sequence of inserts and
// deletes as one queued operation
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Requests) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "No requests provided")
		return
	}
	if len(req.Requests) > maxBatchSize {
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Maximum %d requests allowed per batch", maxBatchSize))
		return
	}

	mutations := make([]db.Mutation, len(req.Requests))
	for i, item := range req.Requests {
		m, err := item.mutation()
		if err != nil {
			h.writeError(w, r, fmt.Errorf("request %d: %w", i, err))
			return
		}
		mutations[i] = m
	}

	d, ok := h.database(w)
	if !ok {
		return
	}
	op := d.Batch(mutations)
	h.logger.Debugf("[api] queued batch of %d requests as %s", len(mutations), op.ID)
	writeAccepted(w, op)
}
