package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signalridge/codecompass/internal/sqlitedriver"
	"github.com/signalridge/codecompass/pkg/types"
)

var (
	// ErrDimensionMismatch is returned when a record's vector length does not
	// match its declared dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrIncompleteFilter is returned when Query is called without a fully
	// specified (project, ref, model version) partition.
	ErrIncompleteFilter = errors.New("filter must set project, ref, and model version")
)

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with the settings the store relies on:
// WAL for concurrent reads, a single writer connection so same-key upserts
// are serialized with last-writer-wins.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(sqlitedriver.Name, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (or creates) the vector store at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", types.ErrVectorStoreUnavailable, err)
	}
	if err := applyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", types.ErrVectorStoreUnavailable, err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStoreFromDB wraps an existing handle, sharing a database file with
// the snippet store.
func NewSQLiteStoreFromDB(db *sql.DB) (*SQLiteStore, error) {
	if err := applyMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrVectorStoreUnavailable, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the store can serve queries.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", types.ErrVectorStoreUnavailable, err)
	}
	return nil
}

func validateKey(key Key) error {
	if key.ProjectID == "" || key.Ref == "" || key.SymbolStableID == "" ||
		key.SnippetHash == "" || key.ModelVersion == "" {
		return fmt.Errorf("incomplete record key %+v", key)
	}
	return nil
}

// Upsert inserts or replaces the record at its identity key.
func (s *SQLiteStore) Upsert(ctx context.Context, rec *Record) error {
	return s.upsertTx(ctx, s.db, rec)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *SQLiteStore) upsertTx(ctx context.Context, ex execer, rec *Record) error {
	if err := validateKey(rec.Key); err != nil {
		return err
	}
	if rec.Dimension != len(rec.Vector) {
		return fmt.Errorf("%w: declared %d, got %d values",
			ErrDimensionMismatch, rec.Dimension, len(rec.Vector))
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO embeddings
			(project_id, ref, symbol_stable_id, snippet_hash, model_version, dimension, vector, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, ref, symbol_stable_id, snippet_hash, model_version)
		DO UPDATE SET dimension = excluded.dimension,
		              vector = excluded.vector,
		              updated_at = excluded.updated_at`,
		rec.Key.ProjectID, rec.Key.Ref, rec.Key.SymbolStableID,
		rec.Key.SnippetHash, rec.Key.ModelVersion,
		rec.Dimension, serializeVector(rec.Vector), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}
	return nil
}

// UpsertBatch upserts records in a single transaction so a crash mid-batch
// never leaves a partially visible write.
func (s *SQLiteStore) UpsertBatch(ctx context.Context, recs []*Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	for _, rec := range recs {
		if err := s.upsertTx(ctx, tx, rec); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Delete removes the record at the given key.
func (s *SQLiteStore) Delete(ctx context.Context, key Key) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM embeddings
		WHERE project_id = ? AND ref = ? AND symbol_stable_id = ?
		  AND snippet_hash = ? AND model_version = ?`,
		key.ProjectID, key.Ref, key.SymbolStableID, key.SnippetHash, key.ModelVersion)
	if err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	return nil
}

// DeleteBySymbol removes every record for a symbol across hashes and versions.
func (s *SQLiteStore) DeleteBySymbol(ctx context.Context, projectID, ref, symbolStableID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM embeddings
		WHERE project_id = ? AND ref = ? AND symbol_stable_id = ?`,
		projectID, ref, symbolStableID)
	if err != nil {
		return fmt.Errorf("delete embeddings for symbol: %w", err)
	}
	return nil
}

// Query returns up to k nearest records by cosine similarity within the
// filter's partition. The partition filter is applied in SQL before any
// distance computation.
func (s *SQLiteStore) Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Result, error) {
	if filter.ProjectID == "" || filter.Ref == "" || filter.ModelVersion == "" {
		return nil, ErrIncompleteFilter
	}
	if k <= 0 {
		return []Result{}, nil
	}
	if sqlitedriver.VectorExtensionAvailable {
		return s.queryOptimized(ctx, vector, k, filter)
	}
	return s.queryFallback(ctx, vector, k, filter)
}

// queryOptimized computes distance at the database layer via sqlite-vec.
func (s *SQLiteStore) queryOptimized(ctx context.Context, vector []float32, k int, filter Filter) ([]Result, error) {
	blob := serializeVector(vector)
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, ref, symbol_stable_id, snippet_hash, model_version,
		       1.0 - vec_distance_cosine(vector, ?) AS similarity
		FROM embeddings
		WHERE project_id = ? AND ref = ? AND model_version = ?
		ORDER BY similarity DESC
		LIMIT ?`,
		blob, filter.ProjectID, filter.Ref, filter.ModelVersion, k)
	if err != nil {
		return nil, fmt.Errorf("%w: vector query: %v", types.ErrVectorStoreUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]Result, 0, k)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Key.ProjectID, &r.Key.Ref, &r.Key.SymbolStableID,
			&r.Key.SnippetHash, &r.Key.ModelVersion, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// queryFallback loads the partition's vectors and ranks them in Go.
func (s *SQLiteStore) queryFallback(ctx context.Context, vector []float32, k int, filter Filter) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, ref, symbol_stable_id, snippet_hash, model_version, vector
		FROM embeddings
		WHERE project_id = ? AND ref = ? AND model_version = ?`,
		filter.ProjectID, filter.Ref, filter.ModelVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: vector query: %v", types.ErrVectorStoreUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]Result, 0, 64)
	for rows.Next() {
		var key Key
		var blob []byte
		if err := rows.Scan(&key.ProjectID, &key.Ref, &key.SymbolStableID,
			&key.SnippetHash, &key.ModelVersion, &blob); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		stored, err := deserializeVector(blob)
		if err != nil {
			return nil, err
		}
		sim, ok := cosineSimilarity(vector, stored)
		if !ok {
			// Dimension mismatch inside one model-version partition should
			// not happen; skip rather than poison the result set.
			continue
		}
		candidates = append(candidates, Result{Key: key, Score: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortResults(candidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// HasVectors reports whether the partition holds any records.
func (s *SQLiteStore) HasVectors(ctx context.Context, filter Filter) (bool, error) {
	if filter.ProjectID == "" || filter.Ref == "" || filter.ModelVersion == "" {
		return false, ErrIncompleteFilter
	}
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM embeddings
		WHERE project_id = ? AND ref = ? AND model_version = ?
		LIMIT 1`,
		filter.ProjectID, filter.Ref, filter.ModelVersion).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", types.ErrVectorStoreUnavailable, err)
	}
	return true, nil
}

// ListKeys returns every identity key in the partition.
func (s *SQLiteStore) ListKeys(ctx context.Context, filter Filter) ([]Key, error) {
	if filter.ProjectID == "" || filter.Ref == "" || filter.ModelVersion == "" {
		return nil, ErrIncompleteFilter
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, ref, symbol_stable_id, snippet_hash, model_version
		FROM embeddings
		WHERE project_id = ? AND ref = ? AND model_version = ?`,
		filter.ProjectID, filter.Ref, filter.ModelVersion)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.ProjectID, &k.Ref, &k.SymbolStableID,
			&k.SnippetHash, &k.ModelVersion); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// PruneModelVersions deletes records whose model version is not in keep.
func (s *SQLiteStore) PruneModelVersions(ctx context.Context, projectID, ref string, keep []string) (int, error) {
	if len(keep) == 0 {
		return 0, fmt.Errorf("refusing to prune every model version")
	}
	placeholders := strings.Repeat("?,", len(keep))
	placeholders = placeholders[:len(placeholders)-1]

	args := []interface{}{projectID, ref}
	for _, v := range keep {
		args = append(args, v)
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM embeddings WHERE project_id = ? AND ref = ? AND model_version NOT IN ("+placeholders+")",
		args...)
	if err != nil {
		return 0, fmt.Errorf("prune model versions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
