package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

const migrationV1 = `
CREATE TABLE IF NOT EXISTS vector_schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- One row per versioned embedding identity. The primary key is the full
-- compound identity: content-hash based, model-version partitioned.
CREATE TABLE IF NOT EXISTS embeddings (
    project_id TEXT NOT NULL,
    ref TEXT NOT NULL,
    symbol_stable_id TEXT NOT NULL,
    snippet_hash TEXT NOT NULL,
    model_version TEXT NOT NULL,
    dimension INTEGER NOT NULL,
    vector BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (project_id, ref, symbol_stable_id, snippet_hash, model_version)
);

-- Partition scan index: every query filters on these three columns first.
CREATE INDEX IF NOT EXISTS idx_embeddings_partition
    ON embeddings(project_id, ref, model_version);

CREATE INDEX IF NOT EXISTS idx_embeddings_symbol
    ON embeddings(project_id, ref, symbol_stable_id);
`

// applyMigrations brings the schema to the current version.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, migrationV1); err != nil {
		return fmt.Errorf("apply vector schema: %w", err)
	}
	_, err := db.ExecContext(ctx,
		"INSERT OR IGNORE INTO vector_schema_version(version) VALUES (?)", schemaVersion)
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}
