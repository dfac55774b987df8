package sqlite

// schema contains the database schema DDL.
const schema = `
-- Site settings captured at export time
CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    title TEXT NOT NULL DEFAULT '',
    url TEXT NOT NULL DEFAULT '',
    display_unit TEXT NOT NULL DEFAULT 'mgdl',
    target_low REAL NOT NULL,
    target_high REAL NOT NULL,
    target_unit TEXT NOT NULL DEFAULT 'mgdl',
    saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Window the archive was exported for, Unix milliseconds
CREATE TABLE IF NOT EXISTS export_window (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    from_ms INTEGER NOT NULL,
    to_ms INTEGER NOT NULL
);

-- Glucose samples, value in mg/dL, timestamp in Unix milliseconds
CREATE TABLE IF NOT EXISTS samples (
    timestamp INTEGER PRIMARY KEY,
    value REAL NOT NULL,
    direction TEXT NOT NULL DEFAULT '',
    trend INTEGER NOT NULL DEFAULT 0
);
`
