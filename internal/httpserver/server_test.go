package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/contextharness/ctx/internal/embedder"
	"github.com/contextharness/ctx/internal/model"
	"github.com/contextharness/ctx/internal/registry"
	"github.com/contextharness/ctx/internal/search"
	"github.com/contextharness/ctx/internal/store"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctx.db")
	st, err := store.Open(path, 4)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	doc := &model.Document{Source: "filesystem:docs", SourceID: "one", Title: "one", Body: "hello world"}
	id, _, err := st.UpsertDocument(doc)
	require.NoError(t, err)
	require.NoError(t, st.ReplaceChunks(id, []*model.Chunk{{DocumentID: id, Text: "hello world"}}))

	prov, err := embedder.New(embedder.Config{Provider: "disabled"})
	require.NoError(t, err)
	eng, err := search.New(st, prov)
	require.NoError(t, err)

	reg, err := registry.Build(context.Background(), registry.BuildDeps{Engine: eng, Store: st})
	require.NoError(t, err)
	return reg
}

func TestServer_Health(t *testing.T) {
	reg := newTestRegistry(t)
	srv := New(reg, func() HealthStatus { return HealthStatus{Documents: 1, Chunks: 1} })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
	require.Equal(t, 1, body.Documents)
}

func TestServer_ToolsSearch(t *testing.T) {
	reg := newTestRegistry(t)
	srv := New(reg, nil)

	payload, _ := json.Marshal(map[string]any{"query": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/tools/search", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "results")
}

func TestServer_UnknownToolReturnsNotFound(t *testing.T) {
	reg := newTestRegistry(t)
	srv := New(reg, nil)

	req := httptest.NewRequest(http.MethodPost, "/tools/does-not-exist", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	errBody := body["error"].(map[string]any)
	require.Equal(t, "not_found", errBody["code"])
}

func TestServer_BadRequestOnEmptyQuery(t *testing.T) {
	reg := newTestRegistry(t)
	srv := New(reg, nil)

	req := httptest.NewRequest(http.MethodPost, "/tools/search", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_MountMCP(t *testing.T) {
	reg := newTestRegistry(t)
	srv := New(reg, nil)
	srv.MountMCP(reg)

	req := httptest.NewRequest(http.MethodGet, "/tools/list", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
