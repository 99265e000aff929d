package retriever

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/signalridge/codecompass/internal/vectorstore"
	"github.com/signalridge/codecompass/pkg/types"
)

// ReindexStats summarizes one incremental reindex sweep.
type ReindexStats struct {
	Embedded int // snippets newly embedded and stored
	Skipped  int // snippets whose vector already existed at the same hash
	Deleted  int // stale vectors removed (symbol gone or content changed)
	Pruned   int // vectors removed from superseded model versions
	Duration time.Duration
}

const (
	embedBatchSize   = 32
	embedConcurrency = 4
)

// ReindexEmbeddings brings the vector partition for (projectID, ref,
// modelVersion) in sync with the snippet index. It is incremental: vectors
// whose (symbol, snippet hash, model version) key already exists are
// skipped, so re-running after a partial failure only embeds the remainder.
// After a clean sweep, vectors from other model versions are pruned.
//
// Unlike Retrieve, reindexing fails hard: a maintenance operation that
// cannot embed should report the error rather than leave the partition
// silently half-built.
func (e *Engine) ReindexEmbeddings(ctx context.Context, projectID, ref, modelVersion string) (*ReindexStats, error) {
	start := time.Now()

	if e.embedder == nil || e.vectors == nil {
		return nil, fmt.Errorf("reindex embeddings: %w", types.ErrEmbeddingUnavailable)
	}
	if got := e.embedder.ModelVersion(); got != modelVersion {
		return nil, fmt.Errorf("%w: embedder serves %s, requested %s",
			types.ErrModelVersionMismatch, got, modelVersion)
	}

	snippets, err := e.snippets.List(ctx, projectID, ref)
	if err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}

	filter := vectorstore.Filter{ProjectID: projectID, Ref: ref, ModelVersion: modelVersion}
	existingKeys, err := e.vectors.ListKeys(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list vector keys: %w", err)
	}
	existing := make(map[vectorstore.Key]bool, len(existingKeys))
	for _, k := range existingKeys {
		existing[k] = true
	}

	stats := &ReindexStats{}
	current := make(map[vectorstore.Key]bool, len(snippets))
	var pending []*types.Snippet
	for _, sn := range snippets {
		key := vectorstore.Key{
			ProjectID:      sn.ID.ProjectID,
			Ref:            sn.ID.Ref,
			SymbolStableID: sn.ID.SymbolStableID,
			SnippetHash:    sn.ContentHash,
			ModelVersion:   modelVersion,
		}
		current[key] = true
		if existing[key] {
			stats.Skipped++
			continue
		}
		pending = append(pending, sn)
	}

	if err := e.embedPending(ctx, pending, modelVersion); err != nil {
		return nil, err
	}
	stats.Embedded = len(pending)

	// Content edits change the snippet hash, leaving the old key behind;
	// deleted symbols leave all their keys behind. Both are stale now.
	for _, k := range existingKeys {
		if current[k] {
			continue
		}
		if err := e.vectors.Delete(ctx, k); err != nil {
			return nil, fmt.Errorf("delete stale vector: %w", err)
		}
		stats.Deleted++
	}

	pruned, err := e.vectors.PruneModelVersions(ctx, projectID, ref, []string{modelVersion})
	if err != nil {
		return nil, fmt.Errorf("prune model versions: %w", err)
	}
	stats.Pruned = pruned
	stats.Duration = time.Since(start)

	e.logger.Info("reindex complete",
		zap.String("project", projectID),
		zap.String("ref", ref),
		zap.String("model_version", modelVersion),
		zap.Int("embedded", stats.Embedded),
		zap.Int("skipped", stats.Skipped),
		zap.Int("deleted", stats.Deleted),
		zap.Int("pruned", stats.Pruned),
		zap.Duration("elapsed", stats.Duration),
	)
	return stats, nil
}

// embedPending embeds the given snippets in batches with bounded
// concurrency and upserts each batch atomically.
func (e *Engine) embedPending(ctx context.Context, pending []*types.Snippet, modelVersion string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for batchStart := 0; batchStart < len(pending); batchStart += embedBatchSize {
		batch := pending[batchStart:min(batchStart+embedBatchSize, len(pending))]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, sn := range batch {
				texts[i] = sn.Content
			}
			embs, err := e.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch: %w", err)
			}
			if len(embs) != len(batch) {
				return fmt.Errorf("embed batch: got %d embeddings for %d texts", len(embs), len(batch))
			}

			recs := make([]*vectorstore.Record, len(batch))
			for i, sn := range batch {
				if embs[i].ModelVersion != modelVersion {
					return fmt.Errorf("%w: provider %s, requested %s",
						types.ErrModelVersionMismatch, embs[i].ModelVersion, modelVersion)
				}
				recs[i] = &vectorstore.Record{
					Key: vectorstore.Key{
						ProjectID:      sn.ID.ProjectID,
						Ref:            sn.ID.Ref,
						SymbolStableID: sn.ID.SymbolStableID,
						SnippetHash:    sn.ContentHash,
						ModelVersion:   modelVersion,
					},
					Vector:    embs[i].Vector,
					Dimension: embs[i].Dimension,
				}
			}
			return e.vectors.UpsertBatch(gctx, recs)
		})
	}
	return g.Wait()
}
