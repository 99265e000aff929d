package types

// RetrievalCandidate is one document surfaced by either retrieval channel.
// Rank and score fields are pointers: a candidate present in only one channel
// has the other channel's fields nil, never zero, because zero is a valid
// real score.
type RetrievalCandidate struct {
	ID          SnippetID
	SnippetHash string

	LexicalRank   *int
	LexicalScore  *float64
	SemanticRank  *int
	SemanticScore *float64

	// FusedScore is the weighted RRF score; after an external rerank it is
	// replaced by the provider's relevance score for the reranked prefix.
	FusedScore float64

	Location      Location
	Name          string
	QualifiedName string
	Kind          string
	Content       string
}

// InBothChannels reports whether the candidate was surfaced by lexical and
// semantic retrieval.
func (c *RetrievalCandidate) InBothChannels() bool {
	return c.LexicalRank != nil && c.SemanticRank != nil
}

// Confidence classifies how trustworthy the ranked result set is.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// ConfidenceSignal is the composite input to confidence classification.
// Request-scoped, never persisted.
type ConfidenceSignal struct {
	TopScore        float64
	Margin          float64 // top1 - top2 fused score, 0 with fewer than two results
	ChannelsAgree   bool    // top lexical result equals top semantic result
	SemanticSkipped bool    // agreement was not even possible
}

// FollowUp is a machine-actionable suggestion emitted on low confidence.
type FollowUp struct {
	Operation string            `json:"operation"`
	Params    map[string]string `json:"params"`
	Reason    string            `json:"reason"`
}

// RankedResultSet is the engine's answer to one query.
type RankedResultSet struct {
	Candidates []RetrievalCandidate

	Confidence       Confidence
	ConfidenceReason string
	FollowUps        []FollowUp

	SemanticSkipped    bool
	SemanticSkipReason string
	RerankApplied      bool
	RerankProviderUsed string
	Truncated          bool
}
