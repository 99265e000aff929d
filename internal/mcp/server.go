package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/signalridge/codecompass/internal/config"
	"github.com/signalridge/codecompass/internal/retriever"
	"github.com/signalridge/codecompass/internal/snippets"
	"github.com/signalridge/codecompass/internal/vectorstore"
)

const (
	// ServerName is the MCP server name
	ServerName = "codecompass"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	engine   *retriever.Engine
	snippets *snippets.Store
	vectors  vectorstore.Store
	cfg      *config.Config
	logger   *zap.Logger
}

// Deps carries the server's collaborators. Vectors may be nil when the
// semantic subsystem is disabled.
type Deps struct {
	Engine   *retriever.Engine
	Snippets *snippets.Store
	Vectors  vectorstore.Store
	Logger   *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("retrieval engine is required")
	}
	if deps.Snippets == nil {
		return nil, fmt.Errorf("snippet store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		engine:   deps.Engine,
		snippets: deps.Snippets,
		vectors:  deps.Vectors,
		cfg:      cfg,
		logger:   logger,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(locateSymbolTool(), s.handleLocateSymbol)
	s.mcp.AddTool(indexStatusTool(), s.handleIndexStatus)
	s.mcp.AddTool(reindexEmbeddingsTool(), s.handleReindexEmbeddings)
}
