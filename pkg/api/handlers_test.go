package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/adfharrison1/neemo/pkg/db"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	mgr    *db.Manager
	router *mux.Router
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	mgr, err := db.NewManager(t.TempDir(), db.WithWorkers(2), db.WithCheckpointInterval(0))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	router := mux.NewRouter()
	NewHandler(mgr, nil).RegisterRoutes(router)
	return &testAPI{mgr: mgr, router: router}
}

func (a *testAPI) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// drain waits for queued operations on the active database.
func (a *testAPI) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.mgr.Active().Drain(ctx))
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestDocumentLifecycle(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, "PUT", "/documents/user1", `{"name":"John Doe","age":30}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var accepted AcceptedResponse
	decode(t, w, &accepted)
	assert.NotEmpty(t, accepted.OperationID)
	assert.Equal(t, "insert", accepted.Kind)
	assert.Equal(t, "/operations/"+accepted.OperationID, w.Header().Get("Location"))
	a.drain(t)

	w = a.do(t, "GET", "/operations/"+accepted.OperationID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status OperationResponse
	decode(t, w, &status)
	assert.Equal(t, "completed", status.State)

	w = a.do(t, "GET", "/documents/user1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"key":"user1","fields":{"name":"John Doe","age":30}}`, w.Body.String())

	w = a.do(t, "GET", "/query?field=name&value="+url.QueryEscape(`"John Doe"`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var docs DocumentsResponse
	decode(t, w, &docs)
	require.Equal(t, 1, docs.Count)
	assert.Equal(t, "user1", docs.Documents[0].Key)

	w = a.do(t, "GET", "/range?field=age&low=25&high=35", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &docs)
	assert.Equal(t, 1, docs.Count)

	w = a.do(t, "DELETE", "/documents/user1", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	a.drain(t)

	w = a.do(t, "GET", "/documents/user1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var errResp ErrorResponse
	decode(t, w, &errResp)
	assert.Equal(t, http.StatusNotFound, errResp.Code)

	w = a.do(t, "GET", "/query?field=name&value="+url.QueryEscape(`"John Doe"`), nil)
	decode(t, w, &docs)
	assert.Zero(t, docs.Count)
	assert.NotNil(t, docs.Documents)
}

func TestBadRequests(t *testing.T) {
	a := newTestAPI(t)
	tests := []struct {
		name   string
		method string
		target string
		body   interface{}
		want   int
	}{
		{"fields not an object", "PUT", "/documents/k", `[1,2]`, http.StatusBadRequest},
		{"malformed value literal", "GET", "/query?field=name&value=John", nil, http.StatusBadRequest},
		{"missing value", "GET", "/query?field=name", nil, http.StatusBadRequest},
		{"inverted range", "GET", "/range?field=age&low=9&high=1", nil, http.StatusBadRequest},
		{"non-numeric range", "GET", "/range?field=age&low=a&high=1", nil, http.StatusBadRequest},
		{"unknown aggregate", "GET", "/aggregate?field=age&op=median", nil, http.StatusBadRequest},
		{"empty search", "GET", "/search", nil, http.StatusBadRequest},
		{"empty batch", "POST", "/batch", BatchRequest{}, http.StatusBadRequest},
		{"bad batch op", "POST", "/batch", `{"requests":[{"op":"upsert","key":"a"}]}`, http.StatusBadRequest},
		{"bad cursor", "GET", "/documents?after=not-base64!", nil, http.StatusBadRequest},
		{"missing path", "POST", "/export", `{}`, http.StatusBadRequest},
		{"unknown operation", "GET", "/operations/nope", nil, http.StatusNotFound},
		{"bad database name", "POST", "/databases", DatabaseRequest{Name: "a/b"}, http.StatusBadRequest},
		{"missing database", "POST", "/databases/ghost/use", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestBatchAndAggregate(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, "POST", "/batch", `{"requests":[
		{"op":"insert","key":"a","fields":{"dept":"eng","salary":100}},
		{"op":"insert","key":"b","fields":{"dept":"eng","salary":50.5}},
		{"op":"delete","key":"ghost"},
		{"op":"insert","key":"c","fields":{"dept":"ops","salary":10}}
	]}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var accepted AcceptedResponse
	decode(t, w, &accepted)
	a.drain(t)

	w = a.do(t, "GET", "/operations/"+accepted.OperationID, nil)
	var status struct {
		State  string `json:"state"`
		Error  string `json:"error"`
		Result struct {
			Applied  int `json:"applied"`
			Failures []struct {
				Index int    `json:"index"`
				Kind  string `json:"kind"`
				Error string `json:"error"`
			} `json:"failures"`
		} `json:"result"`
	}
	decode(t, w, &status)
	assert.Equal(t, "failed", status.State)
	assert.Equal(t, 3, status.Result.Applied)
	require.Len(t, status.Result.Failures, 1)
	assert.Equal(t, 2, status.Result.Failures[0].Index)
	assert.Equal(t, "delete", status.Result.Failures[0].Kind)
	assert.Contains(t, status.Result.Failures[0].Error, "not found")

	w = a.do(t, "GET", "/aggregate?field=salary&op=sum&where_field=dept&where_value="+url.QueryEscape(`"eng"`), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res map[string]interface{}
	decode(t, w, &res)
	assert.Equal(t, 150.5, res["value"])
	assert.Equal(t, float64(2), res["matched"])

	w = a.do(t, "GET", "/aggregate?field=dept&op=avg", nil)
	decode(t, w, &res)
	assert.Equal(t, true, res["no_data"])
	assert.Nil(t, res["value"])

	w = a.do(t, "GET", "/search?q=ENG", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var docs DocumentsResponse
	decode(t, w, &docs)
	assert.Equal(t, 2, docs.Count)
}

func TestListPagination(t *testing.T) {
	a := newTestAPI(t)
	for _, key := range []string{"a", "b", "c"} {
		require.Equal(t, http.StatusAccepted, a.do(t, "PUT", "/documents/"+key, `{"v":1}`).Code)
	}
	a.drain(t)

	w := a.do(t, "GET", "/documents?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Keys       []string `json:"keys"`
		HasNext    bool     `json:"has_next"`
		NextCursor string   `json:"next_cursor"`
	}
	decode(t, w, &page)
	assert.Equal(t, []string{"a", "b"}, page.Keys)
	require.True(t, page.HasNext)

	w = a.do(t, "GET", "/documents?limit=2&after="+url.QueryEscape(page.NextCursor), nil)
	decode(t, w, &page)
	assert.Equal(t, []string{"c"}, page.Keys)
	assert.False(t, page.HasNext)
}

func TestExportImportBackupRestore(t *testing.T) {
	a := newTestAPI(t)
	dir := t.TempDir()
	require.Equal(t, http.StatusAccepted, a.do(t, "PUT", "/documents/a", `{"n":1}`).Code)
	require.Equal(t, http.StatusAccepted, a.do(t, "PUT", "/documents/b", `{"n":2.5}`).Code)
	a.drain(t)

	dump := filepath.Join(dir, "dump.json")
	w := a.do(t, "POST", "/export", PathRequest{Path: dump})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pathResp PathResponse
	decode(t, w, &pathResp)
	assert.Equal(t, 2, pathResp.Documents)

	w = a.do(t, "GET", "/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"key":"a","fields":{"n":1}},{"key":"b","fields":{"n":2.5}}]`, w.Body.String())

	snap := filepath.Join(dir, "snap")
	require.Equal(t, http.StatusOK, a.do(t, "POST", "/backup", PathRequest{Path: snap}).Code)

	w = a.do(t, "POST", "/databases", DatabaseRequest{Name: "copy"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, http.StatusAccepted, a.do(t, "POST", "/import", PathRequest{Path: dump}).Code)
	a.drain(t)
	keys, err := a.mgr.Active().List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.Equal(t, http.StatusOK, a.do(t, "POST", "/databases/default/use", nil).Code)
	require.Equal(t, http.StatusAccepted, a.do(t, "DELETE", "/documents/a", nil).Code)
	w = a.do(t, "POST", "/restore", PathRequest{Path: snap})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusOK, a.do(t, "GET", "/documents/a", nil).Code)

	w = a.do(t, "GET", "/databases", nil)
	var dbs DatabasesResponse
	decode(t, w, &dbs)
	assert.Equal(t, "default", dbs.Active)
	assert.Equal(t, []string{"copy", "default"}, dbs.Databases)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	decode(t, w, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "default", health.Database)
	assert.Contains(t, health.Stats, "index")

	require.Equal(t, http.StatusAccepted, a.do(t, "PUT", "/documents/m", `{"v":1}`).Code)
	a.drain(t)
	w = a.do(t, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `neemo_operations_total{db="default",kind="insert",state="completed"}`)
}
