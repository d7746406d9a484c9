package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/neemo/pkg/api"
	"github.com/adfharrison1/neemo/pkg/db"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mgr, err := db.NewManager(t.TempDir(), db.WithWorkers(2), db.WithCheckpointInterval(0))
	require.NoError(t, err)
	return NewServer(mgr, nil)
}

func TestRouterServesAPI(t *testing.T) {
	s := newTestServer(t)
	defer s.Shutdown(t.Context())

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var health api.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	s := newTestServer(t)
	defer s.Shutdown(t.Context())

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("GET", "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "no route for /nowhere", resp.Message)
}

func TestShutdownWithoutListenClosesDatabases(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Shutdown(t.Context()))
	assert.Nil(t, s.mgr.Active())
}
