package database

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    original_file TEXT NOT NULL,
    converted_file TEXT,
    remote_id TEXT,
    web_url TEXT,
    size INTEGER DEFAULT 0,
    folder TEXT,
    success BOOLEAN NOT NULL,
    error_kind TEXT,
    error_message TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_conversions_created ON conversions(created_at);
CREATE INDEX IF NOT EXISTS idx_conversions_success ON conversions(success);
`
