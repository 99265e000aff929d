package types

import "fmt"

// SnippetID identifies a code snippet within a project and ref, independent of
// line-range drift. SymbolStableID survives edits that move the symbol; the
// snippet hash (carried separately) changes when content changes.
type SnippetID struct {
	ProjectID      string
	Ref            string
	SymbolStableID string
}

// String renders the identity in project:ref:symbol form for logs and tie-breaks.
func (id SnippetID) String() string {
	return fmt.Sprintf("%s:%s:%s", id.ProjectID, id.Ref, id.SymbolStableID)
}

// Location is a resolved source position for presentation.
type Location struct {
	Path      string
	StartLine int
	EndLine   int
}

// Snippet is the resolved content behind a stable identifier, as served by the
// symbol/snippet store.
type Snippet struct {
	ID            SnippetID
	Name          string
	QualifiedName string
	Kind          string
	Language      string
	Location      Location
	Content       string
	ContentHash   string
}
