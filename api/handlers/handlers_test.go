package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/teamflow/events"
	"github.com/BaSui01/teamflow/hierarchy"
	"github.com/BaSui01/teamflow/runs"
	"github.com/BaSui01/teamflow/store"
)

// testEnv 一套接到内存库与固定后端的完整路由
type testEnv struct {
	mux      *http.ServeMux
	store    *store.Store
	manager  *runs.Manager
	registry *events.Registry
}

func newTestEnv(t *testing.T, backend hierarchy.Invoker) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	st, err := store.Open(":memory:", logger)
	require.NoError(t, err)
	registry := events.NewRegistry(logger)
	manager := runs.NewManager(runs.DefaultConfig(), st, registry, backend, nil, logger)

	hierarchies := NewHierarchyHandler(st, logger)
	runHandler := NewRunHandler(manager, st, registry, 50*time.Millisecond, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/hierarchies", hierarchies.HandleCreate)
	mux.HandleFunc("GET /api/v1/hierarchies", hierarchies.HandleList)
	mux.HandleFunc("GET /api/v1/hierarchies/{id}", hierarchies.HandleGet)
	mux.HandleFunc("PUT /api/v1/hierarchies/{id}", hierarchies.HandleUpdate)
	mux.HandleFunc("DELETE /api/v1/hierarchies/{id}", hierarchies.HandleDelete)
	mux.HandleFunc("POST /api/v1/hierarchies/{id}/runs", runHandler.HandleStart)
	mux.HandleFunc("GET /api/v1/runs", runHandler.HandleList)
	mux.HandleFunc("GET /api/v1/runs/{id}", runHandler.HandleGet)
	mux.HandleFunc("POST /api/v1/runs/{id}/cancel", runHandler.HandleCancel)
	mux.HandleFunc("GET /api/v1/runs/{id}/events", runHandler.HandleStream)
	mux.HandleFunc("GET /api/v1/runs/{id}/statistics", runHandler.HandleStatistics)
	mux.HandleFunc("GET /api/v1/runs/{id}/calls", runHandler.HandleCallLog)

	return &testEnv{mux: mux, store: st, manager: manager, registry: registry}
}

// do 执行一个 JSON 请求并解析统一响应信封
func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)

	var envelope Response
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	}
	return rec, envelope
}

func validHierarchyRequest(name string) HierarchyRequest {
	return HierarchyRequest{
		Name:       name,
		RootPrompt: "coordinate the teams",
		Teams: []TeamRequest{{
			Name:             "Research",
			SupervisorPrompt: "supervise research",
			Workers: []WorkerRequest{
				{Name: "Scholar", Role: "researcher", SystemPrompt: "research things"},
			},
		}},
	}
}

// createHierarchy 建一个层级并返回其 ID
func (e *testEnv) createHierarchy(t *testing.T, name string) string {
	t.Helper()
	rec, envelope := e.do(t, http.MethodPost, "/api/v1/hierarchies", validHierarchyRequest(name))
	require.Equal(t, http.StatusCreated, rec.Code)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	id, _ := data["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func echoBackend() hierarchy.Invoker {
	return hierarchy.InvokerFunc(func(ctx context.Context, req hierarchy.InvokeRequest) (string, error) {
		for _, tool := range req.Tools {
			if _, err := tool.Call(ctx, req.Task); err != nil {
				return "", err
			}
		}
		return "completed", nil
	})
}
