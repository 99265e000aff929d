//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

// Package sqlitedriver selects the SQLite driver at build time. The cgo
// build uses mattn/go-sqlite3 with the sqlite-vec extension so vector
// distance is computed at the database layer; the default pure Go build
// uses modernc.org/sqlite and computes similarity in Go.
package sqlitedriver

// Build command:
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// Name is the registered database/sql driver name.
	Name = "sqlite"

	// VectorExtensionAvailable indicates if the sqlite-vec extension is available.
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
