// Package scope resolves a session identifier into storage coordinates for
// the three sharing tiers described in the data model.
package scope

import "strings"

// Tier is one of the three sharing tiers a slot or entity can live under.
type Tier string

const (
	TierPrivate Tier = "private"
	TierTeam    Tier = "team"
	TierPublic  Tier = "public"
)

const (
	defaultUser  = "default"
	teamMarker   = "__team__"
	publicMarker = "__public__"
)

// Key is the (user, agent) pair that scopes every slot and entity row.
type Key struct {
	User  string
	Agent string
}

// Resolve computes the storage coordinates for a given user/agent pair under
// the requested tier. The user component for session-derived ids is always
// normalized to defaultUser except for the two reserved markers.
func Resolve(user, agent string, tier Tier) Key {
	u := normalizeUser(user)
	switch tier {
	case TierTeam:
		return Key{User: u, Agent: teamMarker}
	case TierPublic:
		return Key{User: publicMarker, Agent: publicMarker}
	default:
		return Key{User: u, Agent: agent}
	}
}

func normalizeUser(user string) string {
	if user == "" || user == teamMarker || user == publicMarker {
		return defaultUser
	}
	return user
}

// AllTiersFor returns the storage coordinates for private, team, and public,
// in that order, for a given user/agent pair — used by the freshness merge
// in auto-recall.
func AllTiersFor(user, agent string) [3]Key {
	return [3]Key{
		Resolve(user, agent, TierPrivate),
		Resolve(user, agent, TierTeam),
		Resolve(user, agent, TierPublic),
	}
}

// TiersInOrder returns the tier labels matching AllTiersFor's ordering.
func TiersInOrder() [3]Tier {
	return [3]Tier{TierPrivate, TierTeam, TierPublic}
}

// ParseSessionID splits a host-supplied "user:agent" session identifier into
// its components. Hosts that already pass split user/agent strings (every
// caller in this module does) have no need for it, but it's kept here so C1
// covers the full session-identifier-parsing responsibility rather than
// leaving it implicit in the host runtime. A missing separator yields the
// whole string as user with an empty agent.
func ParseSessionID(sessionID string) (user, agent string) {
	user, agent, found := strings.Cut(sessionID, ":")
	if !found {
		return sessionID, ""
	}
	return user, agent
}
