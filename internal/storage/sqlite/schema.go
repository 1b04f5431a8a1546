package sqlite

// schema defines the queue tables. CREATE IF NOT EXISTS keeps reopening a
// database idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS queue_items (
	id                TEXT PRIMARY KEY,
	source_url        TEXT NOT NULL UNIQUE,
	source_id         TEXT,
	source_platform   TEXT,
	status            TEXT NOT NULL DEFAULT 'PENDING',
	age_rating        TEXT,
	quality_score     REAL,
	content_tags      TEXT NOT NULL DEFAULT '[]',
	description       TEXT,
	source_rating     REAL,
	author            TEXT,
	gender            TEXT,
	species           TEXT,
	generated_char_id TEXT,
	rejection_reason  TEXT,
	processed_at      TIMESTAMP,
	rejected_at       TIMESTAMP,
	created_at        TIMESTAMP NOT NULL,
	updated_at        TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_queue_items_status_created
	ON queue_items(status, created_at);

CREATE INDEX IF NOT EXISTS idx_queue_items_status_quality
	ON queue_items(status, quality_score DESC);

CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id    TEXT NOT NULL REFERENCES queue_items(id),
	event_type TEXT NOT NULL,
	actor      TEXT,
	old_value  TEXT,
	new_value  TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_item
	ON events(item_id, created_at);
`
