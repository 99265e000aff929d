package snippets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/signalridge/codecompass/internal/lexical"
	"github.com/signalridge/codecompass/internal/sqlitedriver"
	"github.com/signalridge/codecompass/pkg/types"
)

var (
	// ErrNotFound is returned when a requested snippet doesn't exist.
	ErrNotFound = errors.New("snippet not found")
)

// Store persists snippets and serves lexical search over them.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the snippet store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open(sqlitedriver.Name, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewStoreFromDB wraps an existing handle, sharing a database file with the
// vector store.
func NewStoreFromDB(db *sql.DB) (*Store, error) {
	if err := applyMigrations(context.Background(), db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle so the vector store can share the file.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts or replaces a snippet by its stable identity.
func (s *Store) Upsert(ctx context.Context, sn *types.Snippet) error {
	if sn.ID.ProjectID == "" || sn.ID.Ref == "" || sn.ID.SymbolStableID == "" {
		return fmt.Errorf("incomplete snippet identity %+v", sn.ID)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snippets
			(project_id, ref, symbol_stable_id, name, qualified_name, kind,
			 language, path, start_line, end_line, content, content_hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, ref, symbol_stable_id)
		DO UPDATE SET name = excluded.name,
		              qualified_name = excluded.qualified_name,
		              kind = excluded.kind,
		              language = excluded.language,
		              path = excluded.path,
		              start_line = excluded.start_line,
		              end_line = excluded.end_line,
		              content = excluded.content,
		              content_hash = excluded.content_hash,
		              updated_at = excluded.updated_at`,
		sn.ID.ProjectID, sn.ID.Ref, sn.ID.SymbolStableID,
		sn.Name, sn.QualifiedName, sn.Kind, sn.Language,
		sn.Location.Path, sn.Location.StartLine, sn.Location.EndLine,
		sn.Content, sn.ContentHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert snippet: %w", err)
	}
	return nil
}

// Delete removes a snippet by identity. Missing identities are not an error.
func (s *Store) Delete(ctx context.Context, id types.SnippetID) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM snippets
		WHERE project_id = ? AND ref = ? AND symbol_stable_id = ?`,
		id.ProjectID, id.Ref, id.SymbolStableID)
	if err != nil {
		return fmt.Errorf("delete snippet: %w", err)
	}
	return nil
}

const snippetColumns = `project_id, ref, symbol_stable_id, name, qualified_name,
	kind, language, path, start_line, end_line, content, content_hash`

func scanSnippet(scan func(...interface{}) error) (*types.Snippet, error) {
	var sn types.Snippet
	err := scan(&sn.ID.ProjectID, &sn.ID.Ref, &sn.ID.SymbolStableID,
		&sn.Name, &sn.QualifiedName, &sn.Kind, &sn.Language,
		&sn.Location.Path, &sn.Location.StartLine, &sn.Location.EndLine,
		&sn.Content, &sn.ContentHash)
	if err != nil {
		return nil, err
	}
	return &sn, nil
}

// Get resolves a stable identifier to its snippet.
func (s *Store) Get(ctx context.Context, id types.SnippetID) (*types.Snippet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snippetColumns+` FROM snippets
		WHERE project_id = ? AND ref = ? AND symbol_stable_id = ?`,
		id.ProjectID, id.Ref, id.SymbolStableID)

	sn, err := scanSnippet(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get snippet: %w", err)
	}
	return sn, nil
}

// List returns every snippet for a project/ref, for incremental reindexing.
func (s *Store) List(ctx context.Context, projectID, ref string) ([]*types.Snippet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+snippetColumns+` FROM snippets
		WHERE project_id = ? AND ref = ?
		ORDER BY symbol_stable_id`,
		projectID, ref)
	if err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Snippet
	for rows.Next() {
		sn, err := scanSnippet(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// LocateOptions narrow a symbol lookup.
type LocateOptions struct {
	Kind     string
	Language string
	Ref      string
	Limit    int
}

// LocateSymbol finds symbol definitions by exact name.
func (s *Store) LocateSymbol(ctx context.Context, projectID, name string, opts LocateOptions) ([]*types.Snippet, error) {
	query := `SELECT ` + snippetColumns + ` FROM snippets WHERE project_id = ? AND name = ?`
	args := []interface{}{projectID, name}

	if opts.Ref != "" {
		query += " AND ref = ?"
		args = append(args, opts.Ref)
	}
	if opts.Kind != "" {
		query += " AND kind = ?"
		args = append(args, opts.Kind)
	}
	if opts.Language != "" {
		query += " AND language = ?"
		args = append(args, opts.Language)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	query += " ORDER BY path, start_line LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("locate symbol: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Snippet
	for rows.Next() {
		sn, err := scanSnippet(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// Stats summarizes the index for status reporting.
type Stats struct {
	Snippets  int
	Languages []string
	UpdatedAt time.Time
}

// Stats returns index statistics for a project/ref.
func (s *Store) Stats(ctx context.Context, projectID, ref string) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM snippets WHERE project_id = ? AND ref = ?`,
		projectID, ref).Scan(&st.Snippets)
	if err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}

	var updated sql.NullTime
	err = s.db.QueryRowContext(ctx, `
		SELECT MAX(updated_at) FROM snippets WHERE project_id = ? AND ref = ?`,
		projectID, ref).Scan(&updated)
	if err == nil && updated.Valid {
		st.UpdatedAt = updated.Time
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT language FROM snippets
		WHERE project_id = ? AND ref = ? AND language != ''
		ORDER BY language`,
		projectID, ref)
	if err != nil {
		return nil, fmt.Errorf("index stats languages: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var lang string
		if err := rows.Scan(&lang); err != nil {
			return nil, err
		}
		st.Languages = append(st.Languages, lang)
	}
	return &st, rows.Err()
}

// Search implements the lexical retrieval port over FTS5. Scores are negated
// bm25() so higher is better; ordering follows bm25 relevance.
func (s *Store) Search(ctx context.Context, query string, filter lexical.Filter) ([]lexical.Hit, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, fmt.Errorf("empty search query")
	}

	sqlQuery := `
		SELECT sn.project_id, sn.ref, sn.symbol_stable_id,
		       bm25(snippets_fts, 5.0, 3.0, 1.0) AS score
		FROM snippets_fts
		INNER JOIN snippets sn ON snippets_fts.rowid = sn.id
		WHERE snippets_fts MATCH ?
		  AND sn.project_id = ?
	`
	args := []interface{}{sanitized, filter.ProjectID}

	if filter.Ref != "" {
		sqlQuery += " AND sn.ref = ?"
		args = append(args, filter.Ref)
	}
	if filter.Language != "" {
		sqlQuery += " AND sn.language = ?"
		args = append(args, filter.Language)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	// bm25() returns lower-is-better; ascending order puts best first.
	sqlQuery += " ORDER BY score LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []lexical.Hit
	rank := 0
	for rows.Next() {
		var hit lexical.Hit
		var raw float64
		if err := rows.Scan(&hit.ID.ProjectID, &hit.ID.Ref, &hit.ID.SymbolStableID, &raw); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		rank++
		hit.Rank = rank
		hit.Score = -raw
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// FTS5 operator pattern for escaping Boolean operators
var ftsOperatorPattern = regexp.MustCompile(`\b(AND|OR|NOT|NEAR)\b`)

// sanitizeFTSQuery escapes FTS5 operators and special characters so user
// queries cannot inject match expressions.
func sanitizeFTSQuery(query string) string {
	if strings.TrimSpace(query) == "" {
		return ""
	}

	replacer := strings.NewReplacer(
		`"`, ` `,
		`*`, ` `,
		`(`, ` `,
		`)`, ` `,
		`^`, ` `,
		`:`, ` `,
	)
	escaped := replacer.Replace(query)

	escaped = ftsOperatorPattern.ReplaceAllStringFunc(escaped, func(match string) string {
		return strings.ToLower(match)
	})

	return strings.TrimSpace(escaped)
}
