package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeForMatch(t *testing.T) {
	assert.Equal(t, "don't stop", CanonicalizeForMatch("Don’t   Stop!!"))
}

func TestIsBlocked(t *testing.T) {
	assert.True(t, New("debug").IsBlocked())
	assert.False(t, New("assistant").IsBlocked())
}

func TestShouldSkipGeneralPattern(t *testing.T) {
	f := New("assistant")
	assert.True(t, f.ShouldSkip("Sure, here is the answer"))
	assert.False(t, f.ShouldSkip("The project deadline moved to Friday"))
}

func TestTraderSkipsTradingSignalsOnly(t *testing.T) {
	trader := New("trader")
	other := New("assistant")

	assert.True(t, trader.ShouldSkip("issuing a buy signal now"))
	assert.False(t, other.ShouldSkip("issuing a buy signal now"))
}

func TestTargetNamespace(t *testing.T) {
	assert.Equal(t, "trading_signals", New("trader").GetTargetNamespace())
	assert.Equal(t, "agent_decisions", New("scrum").GetTargetNamespace())
	assert.Equal(t, "agent_decisions", New("unknown-agent").GetTargetNamespace())
}

func TestIsSelfGenerated(t *testing.T) {
	assert.True(t, IsSelfGenerated("Memory stored successfully"))
	assert.False(t, IsSelfGenerated("just a normal reply"))
}
