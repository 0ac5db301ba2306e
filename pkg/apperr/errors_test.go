package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	err := NewValidation("bad_key", "key is required")
	assert.Equal(t, KindValidation, err.Kind)
	assert.False(t, err.Retryable)
	assert.Contains(t, err.Error(), "key is required")
}

func TestWrapPreservesKind(t *testing.T) {
	base := NewRemoteTransient("timeout", errors.New("dial tcp: timeout"))
	wrapped := Wrap(base, "search failed")
	require.NotNil(t, wrapped)
	assert.Equal(t, KindRemoteTransient, wrapped.Kind)
	assert.True(t, wrapped.Retryable)
}

func TestWrapUnknownBecomesInternal(t *testing.T) {
	wrapped := Wrap(errors.New("boom"), "unexpected")
	require.NotNil(t, wrapped)
	assert.Equal(t, KindInternal, wrapped.Kind)
}

func TestIs(t *testing.T) {
	err := NewNotFound("slot_missing", "slot not found")
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(err, KindValidation))
	assert.False(t, Is(errors.New("plain"), KindNotFound))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "anything"))
}
