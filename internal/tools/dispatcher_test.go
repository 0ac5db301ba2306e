package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"agentmemory/internal/capture"
	memctx "agentmemory/internal/context"
	"agentmemory/internal/embed"
	"agentmemory/internal/llm"
	"agentmemory/internal/model"
	"agentmemory/internal/recall"
	"agentmemory/internal/store"
	"agentmemory/internal/vector"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"result": []map[string]any{}})
	}))
	t.Cleanup(srv.Close)
	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())
	vec := vector.New(vector.Config{Host: u.Hostname(), Port: port, Collection: "mem", VectorSize: 8, MaxRetries: 1, Timeout: time.Second}, nil)
	embedder := embed.New(embed.Config{BaseURL: "http://127.0.0.1:1", Dimensions: 8}, nil)
	extractor := llm.NewService(llm.NewMockProvider(`{"slot_updates":[],"slot_removals":[],"memories":[]}`), 0.7, nil)

	cap := capture.New(st, vec, embedder, extractor, memctx.DefaultConfig(), nil)
	rec := recall.New(st, vec, embedder, nil)
	return New(st, vec, embedder, cap, rec)
}

func TestMemorySlotSetAndGet(t *testing.T) {
	d := newTestDispatcher(t)
	setRes := d.MemorySlotSet("u1", "assistant", "profile.name", "MrC", "", "manual", "")
	require.False(t, setRes.IsError)

	getRes := d.MemorySlotGet("u1", "assistant", "profile.name", "", "")
	require.False(t, getRes.IsError)
	require.Contains(t, getRes.Summary, "profile.name")
}

func TestMemorySlotGetMissingKey(t *testing.T) {
	d := newTestDispatcher(t)
	res := d.MemorySlotGet("u1", "assistant", "missing.key", "", "")
	require.False(t, res.IsError)
	require.Nil(t, res.Details)
}

func TestMemorySlotSetRequiresKey(t *testing.T) {
	d := newTestDispatcher(t)
	res := d.MemorySlotSet("u1", "assistant", "", "value", "", "", "")
	require.True(t, res.IsError)
}

func TestMemorySlotGetAllTiersReturnsFirstHit(t *testing.T) {
	d := newTestDispatcher(t)
	setRes := d.MemorySlotSet("u1", "assistant", "profile.name", "TeamValue", "", "manual", "team")
	require.False(t, setRes.IsError)

	getRes := d.MemorySlotGet("u1", "assistant", "profile.name", "", "all")
	require.False(t, getRes.IsError)
	slot, ok := getRes.Details.(*model.Slot)
	require.True(t, ok)
	require.Equal(t, "TeamValue", slot.Value)
}

func TestMemorySlotListAllTiersGroupsByTier(t *testing.T) {
	d := newTestDispatcher(t)
	require.False(t, d.MemorySlotSet("u1", "assistant", "profile.name", "Private", "", "manual", "").IsError)
	require.False(t, d.MemorySlotSet("u1", "assistant", "profile.role", "Team", "", "manual", "team").IsError)

	listRes := d.MemorySlotList("u1", "assistant", "", "", "all")
	require.False(t, listRes.IsError)
	grouped, ok := listRes.Details.(map[string][]*model.Slot)
	require.True(t, ok)
	require.Len(t, grouped["private"], 1)
	require.Len(t, grouped["team"], 1)
	require.Empty(t, grouped["public"])
}

func TestGraphRelAddRejectsDanglingEntity(t *testing.T) {
	d := newTestDispatcher(t)
	a := d.MemoryGraphEntitySet("u1", "assistant", "", "Alice", "person", nil)
	require.False(t, a.IsError)
	aEnt := a.Details.(*model.Entity)

	res := d.MemoryGraphRelAdd("u1", "assistant", aEnt.ID, "missing-target-id", "knows", 1.0, nil)
	require.True(t, res.IsError)
}

func TestGraphEntityCreateAndLink(t *testing.T) {
	d := newTestDispatcher(t)
	a := d.MemoryGraphEntitySet("u1", "assistant", "", "Alice", "person", nil)
	require.False(t, a.IsError)
	b := d.MemoryGraphEntitySet("u1", "assistant", "", "Bob", "person", nil)
	require.False(t, b.IsError)

	aEnt := a.Details.(*model.Entity)
	bEnt := b.Details.(*model.Entity)

	rel := d.MemoryGraphRelAdd("u1", "assistant", aEnt.ID, bEnt.ID, "knows", 1.0, nil)
	require.False(t, rel.IsError)

	search := d.MemoryGraphSearch("u1", "assistant", aEnt.ID, 2)
	require.False(t, search.IsError)
}

func TestMemoryAutoCaptureViaTool(t *testing.T) {
	d := newTestDispatcher(t)
	res := d.MemoryAutoCapture(context.Background(), "u1", "assistant", "just chatting", false)
	require.False(t, res.IsError)
}

func TestMemoryStoreRejectsEmptyText(t *testing.T) {
	d := newTestDispatcher(t)
	res := d.MemoryStore(context.Background(), "u1", "assistant", "", "", "", nil)
	require.True(t, res.IsError)
}
