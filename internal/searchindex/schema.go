// Package searchindex implements the on-disk Search Catalog: an FTS5
// virtual table mirroring every record on disk, a key/value meta table, and
// the three debate catalog tables (debate_runs, debate_turns,
// debate_actions). The database file is created lazily — upsert/delete are
// no-ops until an operation that opens the database (a rebuild, a text
// query, Count, or a debate-catalog read or write) brings it into existence.
package searchindex

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
PRAGMA journal_mode=WAL;
CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
	structured_path UNINDEXED,
	rendered_path UNINDEXED,
	record_type,
	title,
	final_body,
	source_text,
	tags,
	created_at,
	date,
	sync_status,
	remote_page_id UNINDEXED,
	remote_url UNINDEXED,
	sync_error UNINDEXED
);
CREATE TABLE IF NOT EXISTS records_index_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS debate_runs (
	run_id TEXT PRIMARY KEY,
	output_type TEXT NOT NULL,
	problem TEXT NOT NULL,
	consensus_score REAL NOT NULL,
	confidence_score REAL NOT NULL,
	selected_option TEXT NOT NULL,
	degraded INTEGER NOT NULL DEFAULT 0,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	artifacts_root TEXT NOT NULL,
	final_packet_path TEXT NOT NULL,
	writeback_json_path TEXT
);
CREATE TABLE IF NOT EXISTS debate_turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	round_number INTEGER NOT NULL,
	role TEXT NOT NULL,
	provider TEXT NOT NULL,
	model_name TEXT NOT NULL,
	status TEXT NOT NULL,
	claim TEXT NOT NULL,
	rationale TEXT NOT NULL,
	challenges_json TEXT NOT NULL,
	revisions_json TEXT NOT NULL,
	error_code TEXT,
	error_message TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_debate_turns_run_id ON debate_turns(run_id);
CREATE TABLE IF NOT EXISTS debate_actions (
	run_id TEXT NOT NULL,
	action_id TEXT NOT NULL,
	action TEXT NOT NULL,
	owner TEXT NOT NULL,
	due TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'OPEN',
	PRIMARY KEY (run_id, action_id)
);
`

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
