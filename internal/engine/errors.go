package engine

import "errors"

var (
	// ErrConfigMismatch indicates the embedding backend or dimension recorded
	// in the manifest differs from the current configuration. The index must
	// be rebuilt explicitly; it is never silently re-embedded.
	ErrConfigMismatch = errors.New("index configuration mismatch")

	// ErrInternalConsistency indicates a chunk referenced by the vector index
	// is missing from the document store. Should not happen under the
	// referential integrity rules the indexer maintains.
	ErrInternalConsistency = errors.New("internal consistency violation")
)
