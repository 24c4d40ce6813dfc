package store

// AUTOINCREMENT keeps ids strictly increasing and never reused, which
// the retention window depends on.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	position INTEGER NOT NULL UNIQUE,
	submitter_id TEXT NOT NULL,
	media_ref TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	artist TEXT NOT NULL DEFAULT '',
	duration INTEGER NOT NULL DEFAULT 0,
	thumbnail_url TEXT NOT NULL DEFAULT '',
	added_at INTEGER NOT NULL
);`,

	`CREATE INDEX IF NOT EXISTS idx_queue_position ON queue(position);`,

	`CREATE TABLE IF NOT EXISTS cursor (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	position INTEGER NOT NULL
);`,

	`CREATE TABLE IF NOT EXISTS playlists (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id TEXT NOT NULL,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT NOT NULL DEFAULT ''
);`,

	`CREATE TABLE IF NOT EXISTS playlist_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	playlist_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	owner_id TEXT NOT NULL,
	media_ref TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	artist TEXT NOT NULL DEFAULT '',
	duration INTEGER NOT NULL DEFAULT 0,
	thumbnail_url TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE
);`,

	`CREATE INDEX IF NOT EXISTS idx_playlist_items_playlist ON playlist_items(playlist_id, position);`,
}
