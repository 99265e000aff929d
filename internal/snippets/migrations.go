package snippets

import (
	"context"
	"database/sql"
	"fmt"
)

const migrationV1 = `
CREATE TABLE IF NOT EXISTS snippets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id TEXT NOT NULL,
    ref TEXT NOT NULL,
    symbol_stable_id TEXT NOT NULL,
    name TEXT NOT NULL,
    qualified_name TEXT,
    kind TEXT,
    language TEXT,
    path TEXT NOT NULL,
    start_line INTEGER NOT NULL DEFAULT 0,
    end_line INTEGER NOT NULL DEFAULT 0,
    content TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (project_id, ref, symbol_stable_id)
);

CREATE INDEX IF NOT EXISTS idx_snippets_scope ON snippets(project_id, ref);
CREATE INDEX IF NOT EXISTS idx_snippets_name ON snippets(name);

CREATE VIRTUAL TABLE IF NOT EXISTS snippets_fts USING fts5(
    name,
    qualified_name,
    content,
    content='snippets',
    content_rowid='id'
);

-- Triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS snippets_ai AFTER INSERT ON snippets BEGIN
    INSERT INTO snippets_fts(rowid, name, qualified_name, content)
    VALUES (new.id, new.name, new.qualified_name, new.content);
END;
CREATE TRIGGER IF NOT EXISTS snippets_ad AFTER DELETE ON snippets BEGIN
    INSERT INTO snippets_fts(snippets_fts, rowid, name, qualified_name, content)
    VALUES ('delete', old.id, old.name, old.qualified_name, old.content);
END;
CREATE TRIGGER IF NOT EXISTS snippets_au AFTER UPDATE ON snippets BEGIN
    INSERT INTO snippets_fts(snippets_fts, rowid, name, qualified_name, content)
    VALUES ('delete', old.id, old.name, old.qualified_name, old.content);
    INSERT INTO snippets_fts(rowid, name, qualified_name, content)
    VALUES (new.id, new.name, new.qualified_name, new.content);
END;
`

// applyMigrations brings the snippet schema to the current version.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, migrationV1); err != nil {
		return fmt.Errorf("apply snippet schema: %w", err)
	}
	return nil
}
