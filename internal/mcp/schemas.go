package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Search an indexed codebase with natural language, keyword, or identifier queries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language, keywords, or an identifier)",
				},
				"project": map[string]interface{}{
					"type":        "string",
					"description": "Project identifier the query is scoped to",
				},
				"ref": map[string]interface{}{
					"type":        "string",
					"description": "Branch, tag, or commit the query is scoped to",
					"default":     "main",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one language (e.g. 'go', 'python')",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"force_semantic": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, run semantic retrieval even when the trigger policy would skip it",
					"default":     false,
				},
			},
			Required: []string{"query", "project"},
		},
	}
}

// locateSymbolTool returns the tool definition for locate_symbol
func locateSymbolTool() mcp.Tool {
	return mcp.Tool{
		Name:        "locate_symbol",
		Description: "Look up symbol definitions by exact name, bypassing ranked search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Exact symbol name to locate",
				},
				"project": map[string]interface{}{
					"type":        "string",
					"description": "Project identifier to search within",
				},
				"ref": map[string]interface{}{
					"type":        "string",
					"description": "Branch, tag, or commit to search within",
					"default":     "main",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one symbol kind (function, method, struct, interface, type, const, var)",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one language",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of definitions to return",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"name", "project"},
		},
	}
}

// indexStatusTool returns the tool definition for index_status
func indexStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_status",
		Description: "Report index statistics and subsystem health for a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project": map[string]interface{}{
					"type":        "string",
					"description": "Project identifier",
				},
				"ref": map[string]interface{}{
					"type":        "string",
					"description": "Branch, tag, or commit",
					"default":     "main",
				},
			},
			Required: []string{"project"},
		},
	}
}

// reindexEmbeddingsTool returns the tool definition for reindex_embeddings
func reindexEmbeddingsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reindex_embeddings",
		Description: "Bring the vector index for a project in sync with its snippets, embedding only what changed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project": map[string]interface{}{
					"type":        "string",
					"description": "Project identifier",
				},
				"ref": map[string]interface{}{
					"type":        "string",
					"description": "Branch, tag, or commit",
					"default":     "main",
				},
				"model_version": map[string]interface{}{
					"type":        "string",
					"description": "Embedding model version to build; defaults to the configured version",
				},
			},
			Required: []string{"project"},
		},
	}
}
