package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/may-la-specs/internal/store"
	"github.com/alucardeht/may-la-specs/pkg/specs"
	"github.com/alucardeht/may-la-specs/pkg/version"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore(
		&specs.Spec{ID: "A", Title: "Implement caching layer", Status: specs.StatusActive, UpdatedAt: time.Unix(10, 0).UTC()},
		&specs.Spec{ID: "B", Title: "Caching eviction policy", Status: specs.StatusDone, UpdatedAt: time.Unix(20, 0).UTC()},
		&specs.Spec{ID: "C", Title: "Session storage", Status: specs.StatusActive, UpdatedAt: time.Unix(5, 0).UTC()},
	)
	engine := specs.New(st, specs.DefaultOptions())
	_, err := engine.Load(context.Background())
	require.NoError(t, err)
	return NewRouter(engine), st
}

func do(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResults(t *testing.T, w *httptest.ResponseRecorder) []specs.SearchResult {
	t.Helper()
	var results []specs.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	return results
}

func TestHandleHealth(t *testing.T) {
	router, _ := setupRouter(t)

	t.Setenv(version.EnvVersion, "1.4.2")
	w := do(t, router, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.4.2", resp.Version)
}

func TestHandleHealthWithoutVersion(t *testing.T) {
	router, _ := setupRouter(t)
	t.Setenv(version.EnvVersion, "")

	w := do(t, router, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"status":"ok","version":%q}`, version.Resolve()), w.Body.String())
}

func TestHandleContext(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(t, router, http.MethodGet, "/api/context", "")
	require.Equal(t, http.StatusOK, w.Code)

	var pc specs.ProjectContext
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pc))
	assert.Equal(t, 3, pc.TotalSpecs)
	assert.Equal(t, map[specs.Status]int{
		specs.StatusDraft:    0,
		specs.StatusActive:   2,
		specs.StatusDone:     1,
		specs.StatusArchived: 0,
	}, pc.ByStatus)
	assert.Equal(t, []string{"B", "A", "C"}, pc.RecentlyUpdated)
}

func TestHandleContextStoreDown(t *testing.T) {
	router, st := setupRouter(t)
	st.Fail(errors.New("connection refused"))

	w := do(t, router, http.MethodGet, "/api/context", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "unavailable")
}

func TestHandleSearch(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(t, router, http.MethodGet, "/api/search?query=caching&limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	results := decodeResults(t, w)
	require.Len(t, results, 2)
	assert.Equal(t, "B", results[0].SpecID)
	assert.Equal(t, "A", results[1].SpecID)
	assert.Contains(t, w.Body.String(), `"highlightSpans":[{"start":0,"end":7}]`)
}

func TestHandleSearchParameters(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   []string
	}{
		{"alias q", http.MethodGet, "/api/search?q=caching", "", []string{"B", "A"}},
		{"status filter", http.MethodGet, "/api/search?query=caching&status=active", "", []string{"A"}},
		{"limit", http.MethodGet, "/api/search?query=caching&limit=1", "", []string{"B"}},
		{"bad limit", http.MethodGet, "/api/search?query=caching&limit=lots", "", []string{"B", "A"}},
		{"post body", http.MethodPost, "/api/search", `{"query":"caching","limit":1}`, []string{"B"}},
		{"post string limit", http.MethodPost, "/api/search", `{"query":"caching","limit":"1"}`, []string{"B"}},
		{"post status", http.MethodPost, "/api/search", `{"q":"caching","status":"ACTIVE"}`, []string{"A"}},
		{"post bad body", http.MethodPost, "/api/search?query=caching", `{not json`, []string{"B", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.target, tt.body)
			require.Equal(t, http.StatusOK, w.Code)

			var ids []string
			for _, r := range decodeResults(t, w) {
				ids = append(ids, r.SpecID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestHandleSearchEmptyQuery(t *testing.T) {
	router, _ := setupRouter(t)

	for _, target := range []string{"/api/search", "/api/search?query=", "/api/search?query=%20%20", "/api/search?query=!!"} {
		w := do(t, router, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, w.Code, target)
		assert.Equal(t, "[]", w.Body.String(), target)
	}

	w := do(t, router, http.MethodPost, "/api/search", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestHandleGetSpec(t *testing.T) {
	router, st := setupRouter(t)

	w := do(t, router, http.MethodGet, "/api/specs/A", "")
	require.Equal(t, http.StatusOK, w.Code)
	var s specs.Spec
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, "Implement caching layer", s.Title)

	w = do(t, router, http.MethodGet, "/api/specs/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	st.Fail(errors.New("down"))
	w = do(t, router, http.MethodGet, "/api/specs/A", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	router, _ := setupRouter(t)
	do(t, router, http.MethodGet, "/api/search?query=caching", "")

	w := do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mayla_specs_query_search_duration_seconds")
	assert.Contains(t, w.Body.String(), fmt.Sprintf("mayla_specs_index_documents %d", 3))
}

func TestRequestID(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(t, router, http.MethodGet, "/api/health", "")
	generated := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "trace-42")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "trace-42", w.Header().Get(RequestIDHeader))
}

func TestServerCompresses(t *testing.T) {
	payload := strings.Repeat("caching eviction policy ", 200)
	srv := NewServer("127.0.0.1:0", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, payload)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(w, req)

	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))

	w = httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, payload, w.Body.String())
}
