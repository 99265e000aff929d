// Package snippets implements the symbol/snippet store: resolution of stable
// identifiers to source locations and text, symbol lookup by name, and the
// FTS5-backed lexical search that fulfils the lexical retrieval port.
//
// Snippet extraction itself (parsing, tree-sitter, branch sync) happens in an
// external collaborator; this package only stores and serves what the indexer
// hands it.
package snippets
