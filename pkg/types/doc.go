// Package types defines the shared data model for the retrieval engine:
// versioned snippet identities, retrieval candidates, ranked result sets,
// confidence signals, and the error taxonomy used across packages.
package types
