//go:build sqlite_vec
// +build sqlite_vec

// Package sqlitedriver selects the SQLite driver at build time. The cgo
// build uses mattn/go-sqlite3 with the sqlite-vec extension so vector
// distance is computed at the database layer; the default pure Go build
// uses modernc.org/sqlite and computes similarity in Go.
package sqlitedriver

// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_vec fts5" ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// Name is the registered database/sql driver name.
	Name = "sqlite3"

	// VectorExtensionAvailable indicates if the sqlite-vec extension is available.
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"
)
