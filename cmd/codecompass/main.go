package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/signalridge/codecompass/internal/config"
	"github.com/signalridge/codecompass/internal/embedder"
	"github.com/signalridge/codecompass/internal/mcp"
	"github.com/signalridge/codecompass/internal/rerank"
	"github.com/signalridge/codecompass/internal/retriever"
	"github.com/signalridge/codecompass/internal/snippets"
	"github.com/signalridge/codecompass/internal/sqlitedriver"
	"github.com/signalridge/codecompass/internal/vectorstore"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("CodeCompass MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", sqlitedriver.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", sqlitedriver.Name)
		fmt.Printf("Vector Extension: %v\n", sqlitedriver.VectorExtensionAvailable)
		os.Exit(0)
	}

	cfg, err := config.Load(os.Getenv("CODECOMPASS_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol; everything else goes to stderr.
	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting",
		zap.String("version", version),
		zap.String("build_mode", sqlitedriver.BuildMode),
		zap.String("sqlite_driver", sqlitedriver.Name),
		zap.Bool("vector_extension", sqlitedriver.VectorExtensionAvailable),
	)

	dbPath, err := expandPath(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("resolve database path", zap.Error(err))
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		logger.Fatal("create database directory", zap.Error(err))
	}

	store, err := snippets.NewStore(dbPath)
	if err != nil {
		logger.Fatal("open snippet store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	// Snippets, FTS index, and vectors share one database file.
	vectors, err := vectorstore.NewSQLiteStoreFromDB(store.DB())
	if err != nil {
		logger.Fatal("open vector store", zap.Error(err))
	}

	emb, err := embedder.New(cfg.Embedding, cfg.Privacy)
	if err != nil {
		logger.Fatal("configure embedder", zap.Error(err))
	}
	defer func() { _ = emb.Close() }()

	reranker, err := rerank.New(cfg.Rerank, cfg.Privacy)
	if err != nil {
		logger.Fatal("configure reranker", zap.Error(err))
	}

	engine, err := retriever.New(cfg, retriever.Deps{
		Lexical:  store,
		Snippets: store,
		Embedder: emb,
		Vectors:  vectors,
		Reranker: reranker,
		Logger:   logger,
		Registry: prometheus.DefaultRegisterer,
	})
	if err != nil {
		logger.Fatal("build retrieval engine", zap.Error(err))
	}

	srv, err := mcp.NewServer(cfg, mcp.Deps{
		Engine:   engine,
		Snippets: store,
		Vectors:  vectors,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("build MCP server", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errChan <- srv.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

// newLogger builds a stderr-only zap logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// expandPath resolves a leading ~ to the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) < 2 || path[:2] != "~/" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
