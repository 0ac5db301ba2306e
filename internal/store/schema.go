package store

// schema mirrors the reference sqlite store's practice of declaring the
// entire schema as one executed string at open time, rather than a
// migration framework.
const schema = `
CREATE TABLE IF NOT EXISTS slots (
	user       TEXT NOT NULL,
	agent      TEXT NOT NULL,
	key        TEXT NOT NULL,
	category   TEXT NOT NULL,
	value      TEXT NOT NULL,
	source     TEXT NOT NULL,
	confidence REAL NOT NULL,
	version    INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	expires_at TEXT,
	PRIMARY KEY (user, agent, key)
);
CREATE INDEX IF NOT EXISTS idx_slots_category ON slots(user, agent, category);
CREATE INDEX IF NOT EXISTS idx_slots_updated_at ON slots(user, agent, updated_at);

CREATE TABLE IF NOT EXISTS entities (
	id         TEXT NOT NULL PRIMARY KEY,
	user       TEXT NOT NULL,
	agent      TEXT NOT NULL,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL,
	properties TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entities_scope ON entities(user, agent);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(user, agent, type);

CREATE TABLE IF NOT EXISTS relationships (
	id            TEXT NOT NULL PRIMARY KEY,
	user          TEXT NOT NULL,
	agent         TEXT NOT NULL,
	source_id     TEXT NOT NULL,
	target_id     TEXT NOT NULL,
	relation_type TEXT NOT NULL,
	weight        REAL NOT NULL,
	properties    TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	UNIQUE(user, agent, source_id, target_id, relation_type)
);
CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(user, agent, source_id);
CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(user, agent, target_id);
`
