package store

const schema = `
CREATE TABLE IF NOT EXISTS toggles (
    widget_id INTEGER PRIMARY KEY,
    is_on BOOLEAN NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    stopped_at TIMESTAMP,
    stop_reason TEXT,
    sample_count INTEGER NOT NULL DEFAULT 0,
    log_path TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
