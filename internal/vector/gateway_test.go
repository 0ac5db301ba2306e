package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/model"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Gateway, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	host, port := splitHostPort(t, srv.URL)
	gw := New(Config{Host: host, Port: port, Collection: "mem", VectorSize: 4, MaxRetries: 2, Timeout: time.Second}, nil)
	return gw, srv
}

func splitHostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return u.Hostname(), port
}

func TestSearchSuccess(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/mem/points/search", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"id": "1", "score": 0.95, "payload": map[string]any{"text": "hello"}},
			},
		})
	})

	results, err := gw.Search(context.Background(), []float32{0.1, 0.2, 0.3, 0.4}, 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].ID)
	assert.Equal(t, 0.95, results[0].Score)
}

func TestUpsertSendsPayload(t *testing.T) {
	var captured map[string]any
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.WriteHeader(http.StatusOK)
	})

	err := gw.Upsert(context.Background(), []model.MemoryPoint{{ID: "p1", Text: "hi", Namespace: "agent_decisions"}})
	require.NoError(t, err)
	require.NotNil(t, captured)
	points := captured["points"].([]any)
	require.Len(t, points, 1)
}

func TestRetriesOn5xxThenSucceeds(t *testing.T) {
	attempts := 0
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"result": []map[string]any{}})
	})

	_, err := gw.Search(context.Background(), []float32{0, 0, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestNonRetryable4xxFailsImmediately(t *testing.T) {
	attempts := 0
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad filter"}`))
	})

	_, err := gw.Search(context.Background(), []float32{0, 0, 0, 0}, 5, nil)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestBackoffFormula(t *testing.T) {
	assert.Equal(t, time.Second, backoff(1))
	assert.Equal(t, 2*time.Second, backoff(2))
	assert.Equal(t, 4*time.Second, backoff(3))
	assert.Equal(t, 10*time.Second, backoff(10))
}
