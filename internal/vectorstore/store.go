package vectorstore

import (
	"context"
	"time"

	"github.com/signalridge/codecompass/pkg/types"
)

// Key is the compound identity of a stored vector. It is a comparable value
// type: equality is structural, never reference-based.
type Key struct {
	ProjectID      string
	Ref            string
	SymbolStableID string
	SnippetHash    string
	ModelVersion   string
}

// SnippetID returns the stable snippet identity portion of the key.
func (k Key) SnippetID() types.SnippetID {
	return types.SnippetID{
		ProjectID:      k.ProjectID,
		Ref:            k.Ref,
		SymbolStableID: k.SymbolStableID,
	}
}

// Record is a stored embedding vector with its identity and metadata.
type Record struct {
	Key       Key
	Vector    []float32
	Dimension int
	UpdatedAt time.Time
}

// Filter scopes a similarity query. All three fields are required: filtering
// by model version before distance computation is what keeps cross-model
// comparisons impossible.
type Filter struct {
	ProjectID    string
	Ref          string
	ModelVersion string
}

// Result is one nearest-neighbor hit. Score is cosine similarity in [-1, 1],
// higher is closer.
type Result struct {
	Key   Key
	Score float64
}

// Store is the vector store adapter: CRUD over versioned vector records plus
// nearest-neighbor query. Implementations must support concurrent reads and
// serialize concurrent upserts to the same key (last-writer-wins, with the
// write visible to subsequent reads).
type Store interface {
	// Upsert inserts or replaces the record at its identity key.
	Upsert(ctx context.Context, rec *Record) error

	// UpsertBatch upserts several records in one transaction.
	UpsertBatch(ctx context.Context, recs []*Record) error

	// Delete removes the record at the given key. Missing keys are not an error.
	Delete(ctx context.Context, key Key) error

	// DeleteBySymbol removes all records for a symbol across hashes and model
	// versions, used when the underlying snippet is deleted from the index.
	DeleteBySymbol(ctx context.Context, projectID, ref, symbolStableID string) error

	// Query returns up to k nearest records by cosine similarity, restricted
	// to the filter's (project, ref, model version) partition.
	Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Result, error)

	// HasVectors reports whether any record exists in the filter's partition.
	// Used to detect a model-version bump that has not been re-embedded yet.
	HasVectors(ctx context.Context, filter Filter) (bool, error)

	// ListKeys returns every key in the filter's partition, for incremental
	// reindex diffing.
	ListKeys(ctx context.Context, filter Filter) ([]Key, error)

	// PruneModelVersions deletes records for the project/ref whose model
	// version is not in keep. Returns the number of records removed.
	PruneModelVersions(ctx context.Context, projectID, ref string, keep []string) (int, error)

	// Ping verifies the store can serve queries.
	Ping(ctx context.Context) error

	// Close releases the underlying database handle.
	Close() error
}
