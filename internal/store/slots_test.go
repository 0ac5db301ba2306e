package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"agentmemory/internal/model"
	"agentmemory/internal/scope"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetIncrementsVersion(t *testing.T) {
	s := newTestStore(t)
	key := scope.Resolve("u1", "assistant", scope.TierPrivate)

	slot, err := s.Set(key, model.SetSlotInput{Key: "profile.name", Value: "MrC"})
	require.NoError(t, err)
	require.Equal(t, 1, slot.Version)

	slot2, err := s.Set(key, model.SetSlotInput{Key: "profile.name", Value: "MrC Dep Trai"})
	require.NoError(t, err)
	require.Equal(t, 2, slot2.Version)

	got, err := s.Get(key, "profile.name")
	require.NoError(t, err)
	require.Equal(t, "MrC Dep Trai", got.Value)
	require.Equal(t, 2, got.Version)
}

func TestCategoryInference(t *testing.T) {
	s := newTestStore(t)
	key := scope.Resolve("u1", "assistant", scope.TierPrivate)

	slot, err := s.Set(key, model.SetSlotInput{Key: "hobby.favorite_game", Value: "chess"})
	require.NoError(t, err)
	require.Equal(t, model.CategoryCustom, slot.Category)

	slot2, err := s.Set(key, model.SetSlotInput{Key: "project.tech_stack", Value: []string{"TypeScript", "SQLite"}})
	require.NoError(t, err)
	require.Equal(t, model.CategoryProject, slot2.Category)
}

func TestTTLCleanup(t *testing.T) {
	s := newTestStore(t)
	key := scope.Resolve("u1", "assistant", scope.TierPrivate)
	past := time.Now().Add(-24 * time.Hour)

	_, err := s.Set(key, model.SetSlotInput{Key: "temp.x", Value: "gone", ExpiresAt: &past})
	require.NoError(t, err)

	got, err := s.Get(key, "temp.x")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDeleteReturnsTrueOnlyWhenRemoved(t *testing.T) {
	s := newTestStore(t)
	key := scope.Resolve("u1", "assistant", scope.TierPrivate)
	_, err := s.Set(key, model.SetSlotInput{Key: "a.b", Value: 1})
	require.NoError(t, err)

	ok, err := s.Delete(key, "a.b")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Delete(key, "a.b")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetCurrentStateSkipsInternalKeys(t *testing.T) {
	s := newTestStore(t)
	key := scope.Resolve("u1", "assistant", scope.TierPrivate)
	_, err := s.Set(key, model.SetSlotInput{Key: "profile.name", Value: "A"})
	require.NoError(t, err)
	_, err = s.Set(key, model.SetSlotInput{Key: "_internal.marker", Value: "hidden"})
	require.NoError(t, err)

	state, err := s.GetCurrentState(key)
	require.NoError(t, err)
	require.Contains(t, state, model.CategoryProfile)
	require.NotContains(t, state, model.CategoryCustom)
}

func TestScopeIsolation(t *testing.T) {
	s := newTestStore(t)
	keyA := scope.Resolve("alice", "assistant", scope.TierPrivate)
	keyB := scope.Resolve("bob", "assistant", scope.TierPrivate)

	_, err := s.Set(keyA, model.SetSlotInput{Key: "profile.name", Value: "Alice"})
	require.NoError(t, err)
	_, err = s.Set(keyB, model.SetSlotInput{Key: "profile.name", Value: "Bob"})
	require.NoError(t, err)

	gotA, err := s.Get(keyA, "profile.name")
	require.NoError(t, err)
	gotB, err := s.Get(keyB, "profile.name")
	require.NoError(t, err)

	require.Equal(t, "Alice", gotA.Value)
	require.Equal(t, "Bob", gotB.Value)
}
