package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/signalridge/codecompass/internal/retriever"
	"github.com/signalridge/codecompass/internal/snippets"
	"github.com/signalridge/codecompass/internal/vectorstore"
	"github.com/signalridge/codecompass/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32001 // Query parameter is empty
	ErrorCodeNotIndexed    = -32002 // Project has no indexed snippets
	ErrorCodeReindexFailed = -32003 // Embedding reindex could not complete
)

const defaultRef = "main"

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	project, ok := args["project"].(string)
	if !ok || project == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "project parameter is required", map[string]interface{}{
			"param":  "project",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 0)
	if limit < 0 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	ref := getStringDefault(args, "ref", defaultRef)
	set, err := s.engine.Retrieve(ctx, query, ref, retriever.Options{
		ProjectID:     project,
		Language:      getStringDefault(args, "language", ""),
		Limit:         limit,
		ForceSemantic: getBoolDefault(args, "force_semantic", false),
	})
	if err != nil {
		s.logger.Error("search failed", zap.String("project", project), zap.Error(err))
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(formatResultSet(set))), nil
}

// handleLocateSymbol handles the locate_symbol tool invocation
func (s *Server) handleLocateSymbol(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "name parameter is required", map[string]interface{}{
			"param":  "name",
			"reason": "missing or empty",
		})
	}

	project, ok := args["project"].(string)
	if !ok || project == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "project parameter is required", map[string]interface{}{
			"param":  "project",
			"reason": "missing or empty",
		})
	}

	found, err := s.snippets.LocateSymbol(ctx, project, name, snippets.LocateOptions{
		Kind:     getStringDefault(args, "kind", ""),
		Language: getStringDefault(args, "language", ""),
		Ref:      getStringDefault(args, "ref", defaultRef),
		Limit:    getIntDefault(args, "limit", 10),
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "symbol lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	definitions := make([]map[string]interface{}, 0, len(found))
	for _, sn := range found {
		definitions = append(definitions, formatSnippet(sn))
	}
	response := map[string]interface{}{
		"name":        name,
		"definitions": definitions,
		"count":       len(definitions),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexStatus handles the index_status tool invocation
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	project, ok := args["project"].(string)
	if !ok || project == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "project parameter is required", map[string]interface{}{
			"param":  "project",
			"reason": "missing or empty",
		})
	}
	ref := getStringDefault(args, "ref", defaultRef)

	stats, err := s.snippets.Stats(ctx, project, ref)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read index statistics", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if stats.Snippets == 0 {
		response := map[string]interface{}{
			"indexed": false,
			"project": project,
			"ref":     ref,
			"message": "No snippets indexed for this project and ref.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	modelVersion := s.cfg.Embedding.ModelVersion
	vectorsReady := false
	vectorsCurrent := false
	if s.vectors != nil {
		if err := s.vectors.Ping(ctx); err == nil {
			vectorsReady = true
			vectorsCurrent, _ = s.vectors.HasVectors(ctx, vectorstore.Filter{
				ProjectID:    project,
				Ref:          ref,
				ModelVersion: modelVersion,
			})
		}
	}

	response := map[string]interface{}{
		"indexed": true,
		"project": project,
		"ref":     ref,
		"statistics": map[string]interface{}{
			"snippets_count": stats.Snippets,
			"languages":      stats.Languages,
			"updated_at":     stats.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		},
		"health": map[string]interface{}{
			"vector_store_accessible": vectorsReady,
			"embeddings_current":      vectorsCurrent,
			"embedding_model_version": modelVersion,
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleReindexEmbeddings handles the reindex_embeddings tool invocation
func (s *Server) handleReindexEmbeddings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	project, ok := args["project"].(string)
	if !ok || project == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "project parameter is required", map[string]interface{}{
			"param":  "project",
			"reason": "missing or empty",
		})
	}
	ref := getStringDefault(args, "ref", defaultRef)
	modelVersion := getStringDefault(args, "model_version", s.cfg.Embedding.ModelVersion)

	stats, err := s.engine.ReindexEmbeddings(ctx, project, ref, modelVersion)
	if err != nil {
		s.logger.Error("reindex failed", zap.String("project", project), zap.Error(err))
		return nil, newMCPError(ErrorCodeReindexFailed, "reindex failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"model_version": modelVersion,
		"embedded":      stats.Embedded,
		"skipped":       stats.Skipped,
		"deleted":       stats.Deleted,
		"pruned":        stats.Pruned,
		"duration_ms":   stats.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// formatResultSet renders a ranked result set as a tool response payload.
func formatResultSet(set *types.RankedResultSet) map[string]interface{} {
	results := make([]map[string]interface{}, 0, len(set.Candidates))
	for i := range set.Candidates {
		c := &set.Candidates[i]
		entry := map[string]interface{}{
			"symbol":      c.ID.SymbolStableID,
			"name":        c.Name,
			"kind":        c.Kind,
			"path":        c.Location.Path,
			"start_line":  c.Location.StartLine,
			"end_line":    c.Location.EndLine,
			"fused_score": c.FusedScore,
			"snippet":     c.Content,
		}
		if c.QualifiedName != "" {
			entry["qualified_name"] = c.QualifiedName
		}
		if c.LexicalRank != nil {
			entry["lexical_rank"] = *c.LexicalRank
		}
		if c.SemanticRank != nil {
			entry["semantic_rank"] = *c.SemanticRank
		}
		results = append(results, entry)
	}

	response := map[string]interface{}{
		"results":           results,
		"confidence":        string(set.Confidence),
		"confidence_reason": set.ConfidenceReason,
		"semantic_skipped":  set.SemanticSkipped,
		"rerank_applied":    set.RerankApplied,
		"truncated":         set.Truncated,
	}
	if set.SemanticSkipReason != "" {
		response["semantic_skip_reason"] = set.SemanticSkipReason
	}
	if set.RerankProviderUsed != "" {
		response["rerank_provider"] = set.RerankProviderUsed
	}
	if len(set.FollowUps) > 0 {
		response["follow_ups"] = set.FollowUps
	}
	return response
}

func formatSnippet(sn *types.Snippet) map[string]interface{} {
	return map[string]interface{}{
		"symbol":         sn.ID.SymbolStableID,
		"name":           sn.Name,
		"qualified_name": sn.QualifiedName,
		"kind":           sn.Kind,
		"language":       sn.Language,
		"path":           sn.Location.Path,
		"start_line":     sn.Location.StartLine,
		"end_line":       sn.Location.EndLine,
		"snippet":        sn.Content,
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
