package retriever

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/signalridge/codecompass/internal/config"
	"github.com/signalridge/codecompass/internal/embedder"
	"github.com/signalridge/codecompass/internal/intent"
	"github.com/signalridge/codecompass/internal/lexical"
	"github.com/signalridge/codecompass/internal/rerank"
	"github.com/signalridge/codecompass/internal/vectorstore"
	"github.com/signalridge/codecompass/pkg/types"
)

// SnippetStore is the slice of the snippet store the engine needs: identity
// resolution for presentation and enumeration for reindexing.
type SnippetStore interface {
	Get(ctx context.Context, id types.SnippetID) (*types.Snippet, error)
	List(ctx context.Context, projectID, ref string) ([]*types.Snippet, error)
}

// Engine is the adaptive hybrid retrieval engine: trigger policy, fusion,
// gated rerank, and confidence annotation over the lexical and semantic
// channels.
type Engine struct {
	cfg      *config.Config
	lexical  lexical.Searcher
	snippets SnippetStore
	embedder embedder.Embedder
	vectors  vectorstore.Store
	external rerank.Reranker // configured reranker, may be the local one
	local    *rerank.Local
	logger   *zap.Logger
	metrics  *Metrics
}

// Deps carries the engine's collaborators. Lexical and Snippets are
// required; Embedder and Vectors may be nil, which puts the engine in
// permanent lexical-only degraded mode. Reranker may be nil, in which case
// the local rule-based reranker is used.
type Deps struct {
	Lexical  lexical.Searcher
	Snippets SnippetStore
	Embedder embedder.Embedder
	Vectors  vectorstore.Store
	Reranker rerank.Reranker
	Logger   *zap.Logger
	Registry prometheus.Registerer
}

// New creates the engine.
func New(cfg *config.Config, deps Deps) (*Engine, error) {
	if deps.Lexical == nil {
		return nil, fmt.Errorf("lexical searcher is required")
	}
	if deps.Snippets == nil {
		return nil, fmt.Errorf("snippet store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Engine{
		cfg:      cfg,
		lexical:  deps.Lexical,
		snippets: deps.Snippets,
		embedder: deps.Embedder,
		vectors:  deps.Vectors,
		external: deps.Reranker,
		local:    rerank.NewLocal(),
		logger:   logger,
		metrics:  NewMetrics(registry),
	}, nil
}

// Options tune a single Retrieve call.
type Options struct {
	ProjectID string
	Language  string
	Limit     int // 0 uses the configured limit
	// ForceSemantic bypasses the short-circuit heuristics; the semantic
	// branch still degrades softly if it fails.
	ForceSemantic bool
}

const maxLimit = 100

// Retrieve answers one query with a confidence-annotated ranked result set.
//
// The query never fails because the semantic or rerank branch is
// unavailable: those degrade to the remaining channels and are reported via
// metadata flags and soft-failure counters. Only a lexical-channel error is
// fatal.
func (e *Engine) Retrieve(ctx context.Context, query, ref string, opts Options) (*types.RankedResultSet, error) {
	start := time.Now()
	snap := e.cfg.Snapshot()

	limit := opts.Limit
	if limit <= 0 {
		limit = snap.Limit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	// Fetch past the presentation limit so fusion sees candidates unique to
	// one channel.
	fetchLimit := limit * 2

	log := e.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("project", opts.ProjectID),
		zap.String("ref", ref),
	)

	lexHits, err := e.lexical.Search(ctx, query, lexical.Filter{
		ProjectID: opts.ProjectID,
		Ref:       ref,
		Language:  opts.Language,
		Limit:     fetchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	queryIntent := intent.Classify(query)
	semanticReady := e.embedder != nil && e.vectors != nil

	dec := decide(snap, lexHits, queryIntent, semanticReady, opts.ForceSemantic)
	semanticSkipped := dec.SkipSemantic
	skipReason := dec.Reason
	weight := dec.Weight

	var semHits []vectorstore.Result
	if !dec.SkipSemantic {
		semHits, err = e.semanticSearch(ctx, query, opts.ProjectID, ref, snap, fetchLimit)
		if err != nil {
			// Degrade, don't abort: the lexical channel still answers.
			e.metrics.SoftFailures.WithLabelValues(StageSemantic).Inc()
			log.Warn("semantic branch degraded to lexical-only", zap.Error(err))
			semanticSkipped = true
			skipReason = SkipReasonProviderFailed
			weight = 0
			semHits = nil
		}
	}

	cands := fuse(lexHits, semHits, weight, snap.RRFK)
	truncated := len(cands) > limit

	hydrateN := limit
	if snap.RerankTopN > hydrateN {
		hydrateN = snap.RerankTopN
	}
	e.hydrate(ctx, cands, hydrateN, log)

	// Confidence reads the fused scores, not the reranked ones: rerank
	// boosts and provider relevance scores live on their own scales.
	signal := buildSignal(cands, semanticSkipped)

	cands, rerankApplied, rerankProvider := e.rerankStage(ctx, query, cands, snap, log)

	if len(cands) > limit {
		cands = cands[:limit]
	}

	confidence, reason := classify(signal, snap)
	var followUps []types.FollowUp
	if confidence == types.ConfidenceLow {
		followUps = buildFollowUps(query, signal, snap)
	}

	mode := "hybrid"
	if semanticSkipped {
		mode = "lexical_only"
	}
	e.metrics.Queries.WithLabelValues(mode).Inc()
	e.metrics.Duration.Observe(time.Since(start).Seconds())

	log.Debug("retrieve complete",
		zap.Int("results", len(cands)),
		zap.Bool("semantic_skipped", semanticSkipped),
		zap.String("confidence", string(confidence)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &types.RankedResultSet{
		Candidates:         cands,
		Confidence:         confidence,
		ConfidenceReason:   reason,
		FollowUps:          followUps,
		SemanticSkipped:    semanticSkipped,
		SemanticSkipReason: skipReason,
		RerankApplied:      rerankApplied,
		RerankProviderUsed: rerankProvider,
		Truncated:          truncated,
	}, nil
}

// semanticSearch embeds the query and runs the vector query, pipelined: the
// vector query needs the embedding output, so the two cannot run in
// parallel. The embedding call carries its own deadline and is cancellable;
// failure here is always recoverable by the caller.
func (e *Engine) semanticSearch(ctx context.Context, query, projectID, ref string, snap config.Snapshot, k int) ([]vectorstore.Result, error) {
	embedCtx, cancel := context.WithTimeout(ctx, snap.EmbeddingTimeout)
	defer cancel()

	emb, err := e.embedder.Embed(embedCtx, query)
	if err != nil {
		return nil, err
	}
	// Cross-version comparison is never allowed; a provider serving a
	// different version than configured would poison the partition filter.
	if emb.ModelVersion != snap.EmbeddingModelVer {
		return nil, fmt.Errorf("%w: provider %s, configured %s",
			types.ErrModelVersionMismatch, emb.ModelVersion, snap.EmbeddingModelVer)
	}

	return e.vectors.Query(ctx, emb.Vector, k, vectorstore.Filter{
		ProjectID:    projectID,
		Ref:          ref,
		ModelVersion: snap.EmbeddingModelVer,
	})
}

// hydrate resolves the top candidates to their snippets for presentation and
// rerank payloads. Resolution failures drop the enrichment, not the result.
func (e *Engine) hydrate(ctx context.Context, cands []types.RetrievalCandidate, n int, log *zap.Logger) {
	if n > len(cands) {
		n = len(cands)
	}
	for i := 0; i < n; i++ {
		sn, err := e.snippets.Get(ctx, cands[i].ID)
		if err != nil {
			log.Debug("snippet resolution failed", zap.String("id", cands[i].ID.String()), zap.Error(err))
			continue
		}
		cands[i].Name = sn.Name
		cands[i].QualifiedName = sn.QualifiedName
		cands[i].Kind = sn.Kind
		cands[i].Location = sn.Location
		cands[i].Content = sn.Content
		if cands[i].SnippetHash == "" {
			cands[i].SnippetHash = sn.ContentHash
		}
	}
}

// rerankStage reorders the top-N candidates. External providers only run
// when the per-query snapshot has both privacy gates open; otherwise the
// local rule-based reranker runs unconditionally. On any external failure
// the pre-rerank fused order is kept and a soft-failure metric recorded.
func (e *Engine) rerankStage(ctx context.Context, query string, cands []types.RetrievalCandidate, snap config.Snapshot, log *zap.Logger) ([]types.RetrievalCandidate, bool, string) {
	if len(cands) == 0 {
		return cands, false, ""
	}

	var rr rerank.Reranker = e.local
	gatesOpen := snap.ExternalProviderEnabled && snap.AllowCodePayloadToExternal
	if snap.RerankProvider != rerank.ProviderLocal && gatesOpen && e.external != nil {
		rr = e.external
	}

	topN := snap.RerankTopN
	if topN > len(cands) {
		topN = len(cands)
	}

	docs := make([]rerank.Document, topN)
	for i := 0; i < topN; i++ {
		c := &cands[i]
		docs[i] = rerank.Document{
			ID:            c.ID,
			Name:          c.Name,
			QualifiedName: c.QualifiedName,
			Path:          c.Location.Path,
			Kind:          c.Kind,
			Content:       c.Content,
			Score:         c.FusedScore,
		}
	}

	rctx, cancel := context.WithTimeout(ctx, snap.RerankTimeout)
	defer cancel()

	results, err := rr.Rerank(rctx, query, docs, topN)
	if err != nil {
		e.metrics.SoftFailures.WithLabelValues(StageRerank).Inc()
		log.Warn("rerank degraded to fused order", zap.String("provider", rr.Provider()), zap.Error(err))
		return cands, false, ""
	}

	return applyRerank(cands, results, topN), true, rr.Provider()
}

// applyRerank rebuilds the candidate list with the reranked ordering for the
// top-N prefix; candidates beyond the prefix keep their fused order.
func applyRerank(cands []types.RetrievalCandidate, results []rerank.Result, topN int) []types.RetrievalCandidate {
	byID := make(map[types.SnippetID]*types.RetrievalCandidate, topN)
	for i := 0; i < topN; i++ {
		byID[cands[i].ID] = &cands[i]
	}

	out := make([]types.RetrievalCandidate, 0, len(cands))
	seen := make(map[types.SnippetID]bool, topN)
	for _, res := range results {
		cand, ok := byID[res.ID]
		if !ok || seen[res.ID] {
			continue
		}
		seen[res.ID] = true
		c := *cand
		c.FusedScore = res.Score
		out = append(out, c)
	}
	// Providers may return fewer than topN; keep the remainder in fused order.
	for i := 0; i < topN; i++ {
		if !seen[cands[i].ID] {
			out = append(out, cands[i])
		}
	}
	out = append(out, cands[topN:]...)
	return out
}
