package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ozone/pkg/storage"
)

type fakeRaft struct {
	leader     bool
	leaderAddr string
}

func (f fakeRaft) IsLeader() bool     { return f.leader }
func (f fakeRaft) LeaderAddr() string { return f.leaderAddr }

func doGet(t *testing.T, hs *HealthServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	hs.mux.ServeHTTP(w, req)
	return w
}

func TestHealthAlwaysOK(t *testing.T) {
	hs := NewHealthServer(nil, nil, nil)

	w := doGet(t, hs, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.False(t, resp.Timestamp.IsZero())
	assert.NotEmpty(t, resp.Version)
}

func TestHealthRejectsNonGet(t *testing.T) {
	hs := NewHealthServer(nil, nil, nil)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/health", nil)
		w := httptest.NewRecorder()
		hs.mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
	}
}

func TestReadyNotInitialized(t *testing.T) {
	hs := NewHealthServer(nil, nil, nil)

	w := doGet(t, hs, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ReadyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "not ready", resp.Status)
	assert.Contains(t, resp.Checks["raft"], "not initialized")
	assert.Contains(t, resp.Checks["storage"], "not initialized")
	assert.NotEmpty(t, resp.Message)
}

func TestReadyLeaderWithStore(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	hs := NewHealthServer(fakeRaft{leader: true}, store, nil)

	w := doGet(t, hs, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp ReadyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "leader", resp.Checks["raft"])
	assert.Equal(t, "ok", resp.Checks["storage"])
}

func TestReadyFollowerKnowsLeader(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	hs := NewHealthServer(fakeRaft{leaderAddr: "10.0.0.7:7946"}, store, nil)

	w := doGet(t, hs, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp ReadyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp.Checks["raft"], "10.0.0.7:7946")
}

func TestReadyNoLeaderElected(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	hs := NewHealthServer(fakeRaft{}, store, nil)

	w := doGet(t, hs, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ReadyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "no leader elected", resp.Checks["raft"])
	assert.Equal(t, "waiting for leader election", resp.Message)
}

func TestHealthServerRoutes(t *testing.T) {
	hs := NewHealthServer(nil, nil, nil)

	tests := []struct {
		path string
		code int
	}{
		{"/health", http.StatusOK},
		{"/ready", http.StatusServiceUnavailable},
		{"/metrics", http.StatusOK},
		{"/nonexistent", http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, doGet(t, hs, tt.path).Code, tt.path)
	}

	assert.NotNil(t, hs.GetHandler())
}
