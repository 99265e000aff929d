// Package vectorstore implements the embedded vector index backing semantic
// retrieval.
//
// Records are keyed by the compound identity (project, ref, symbol stable id,
// snippet hash, embedding model version). Identity is content-hash based, so
// line-range drift does not create duplicates, and model version is part of
// the key, so vectors from different model versions live in disjoint
// partitions that are never compared.
//
// Two builds are supported, following the same scheme as the snippet store:
//   - cgo + sqlite_vec tag: mattn/go-sqlite3 with the sqlite-vec extension,
//     distance computed in SQL
//   - purego (default): modernc.org/sqlite with cosine similarity computed
//     in Go
//
// Queries filter to (project, ref, model version) before any distance
// computation. Upserts are serialized by SQLite's single-writer connection
// (last-writer-wins per key); reads run concurrently under WAL.
package vectorstore
