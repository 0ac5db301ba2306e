package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePrivate(t *testing.T) {
	k := Resolve("alice", "assistant", TierPrivate)
	assert.Equal(t, Key{User: "alice", Agent: "assistant"}, k)
}

func TestResolveTeam(t *testing.T) {
	k := Resolve("alice", "assistant", TierTeam)
	assert.Equal(t, Key{User: "alice", Agent: "__team__"}, k)
}

func TestResolvePublic(t *testing.T) {
	k := Resolve("alice", "assistant", TierPublic)
	assert.Equal(t, Key{User: "__public__", Agent: "__public__"}, k)
}

func TestNormalizeEmptyUser(t *testing.T) {
	k := Resolve("", "assistant", TierPrivate)
	assert.Equal(t, "default", k.User)
}

func TestAllTiersFor(t *testing.T) {
	tiers := AllTiersFor("bob", "scrum")
	assert.Equal(t, Key{"bob", "scrum"}, tiers[0])
	assert.Equal(t, Key{"bob", "__team__"}, tiers[1])
	assert.Equal(t, Key{"__public__", "__public__"}, tiers[2])
}

func TestParseSessionIDSplitsOnColon(t *testing.T) {
	user, agent := ParseSessionID("alice:assistant")
	assert.Equal(t, "alice", user)
	assert.Equal(t, "assistant", agent)
}

func TestParseSessionIDNoSeparator(t *testing.T) {
	user, agent := ParseSessionID("alice")
	assert.Equal(t, "alice", user)
	assert.Equal(t, "", agent)
}
