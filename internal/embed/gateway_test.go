package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedDeterministic(t *testing.T) {
	v1 := HashEmbed("hello world", 32)
	v2 := HashEmbed("hello world", 32)
	require.Equal(t, v1, v2)
	assert.Len(t, v1, 32)
}

func TestHashEmbedDiffersByText(t *testing.T) {
	v1 := HashEmbed("hello", 16)
	v2 := HashEmbed("goodbye", 16)
	assert.NotEqual(t, v1, v2)
}

func TestCosineSimilaritySelf(t *testing.T) {
	v := HashEmbed("same text", 16)
	sim := CosineSimilarity(v, v)
	assert.InDelta(t, 1.0, sim, 0.0001)
}

func TestGatewayFallsBackWhenUnreachable(t *testing.T) {
	gw := New(Config{BaseURL: "http://127.0.0.1:1", Dimensions: 8}, nil)
	vec := gw.Embed(context.Background(), "test")
	assert.Len(t, vec, 8)
}
