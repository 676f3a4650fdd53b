package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/service"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Embedding.Dimensions = 16

	docsDir := filepath.Join(root, cfg.DocsDir)
	require.NoError(t, os.MkdirAll(docsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "queues.md"),
		[]byte("message queues decouple producers from consumers"), 0o644))

	svc, err := service.Open(root, cfg, nil, false)
	require.NoError(t, err)
	_, err = svc.SyncDocs(context.Background())
	require.NoError(t, err)

	return NewServer(ServerConfig{Host: "127.0.0.1", Port: 0, Service: svc})
}

func TestSearchEndpoint(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=message+queues+decouple", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Query   string `json:"query"`
		Count   int    `json:"count"`
		Results []struct {
			SourcePath string  `json:"source_path"`
			Score      float64 `json:"score"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "message queues decouple", body.Query)
	require.Positive(t, body.Count)
	assert.Equal(t, "queues.md", body.Results[0].SourcePath)
}

func TestSearchEndpointRequiresQuery(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "q")
}

func TestSearchEndpointWithKParam(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=queues&k=1", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.LessOrEqual(t, body.Count, 1)
}

func TestStatusEndpoint(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Engine struct {
			Documents int    `json:"documents"`
			BackendID string `json:"backend_id"`
		} `json:"engine"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Engine.Documents)
	assert.Equal(t, "hash-v1-16", body.Engine.BackendID)
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}
