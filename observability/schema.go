package observability

import "database/sql"

// Schema holds the DDL for the run journal. Pass it to dbopen.WithSchema or
// call Init.
const Schema = `
CREATE TABLE IF NOT EXISTS deck_runs (
    run_id        TEXT PRIMARY KEY,
    created_at    INTEGER NOT NULL,
    kind          TEXT NOT NULL,
    request_id    TEXT,
    transport     TEXT,
    provider      TEXT,
    model         TEXT,
    slide_count   INTEGER NOT NULL DEFAULT 0,
    layout_count  INTEGER NOT NULL DEFAULT 0,
    input_bytes   INTEGER NOT NULL DEFAULT 0,
    output_bytes  INTEGER NOT NULL DEFAULT 0,
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    status        TEXT NOT NULL,
    error         TEXT
);
CREATE INDEX IF NOT EXISTS idx_deck_runs_created ON deck_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_deck_runs_kind ON deck_runs(kind, created_at DESC);
`

// Init applies Schema to db.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
