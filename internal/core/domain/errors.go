package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery marks malformed or out-of-range request input. Never retried.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrModelUnavailable means the embedding model is not initialized or crashed.
	// Fatal for the process until restart; never substituted with a zero vector.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrIndexUnavailable means the vector index could not be reached. Recovered
	// locally with an empty hit set and degraded confidence.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrCatalogInconsistency means a vector hit references a section or module
	// that has no catalog row. The hit is dropped, the query continues.
	ErrCatalogInconsistency = errors.New("catalog inconsistency")

	// ErrCatalogUnavailable means metadata lookups fail entirely. Recovered by
	// returning raw chunk text with incomplete citations.
	ErrCatalogUnavailable = errors.New("metadata catalog unavailable")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
