package domain

import (
	"fmt"
	"strings"
)

// FetchError means the ranking source was unreachable or produced an
// incomplete list. Always fatal to the run; a short ranking list is never
// published.
type FetchError struct {
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch: %s: %v", e.Reason, e.Err)
	}
	return "fetch: " + e.Reason
}

func (e *FetchError) Unwrap() error { return e.Err }

// EnrichmentError is a per-sign generation failure after retry exhaustion.
// Non-fatal by default; strict mode escalates it to a run failure.
type EnrichmentError struct {
	SignKey string
	Err     error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrich %s: %v", e.SignKey, e.Err)
}

func (e *EnrichmentError) Unwrap() error { return e.Err }

// ValidationError reports structural invariant violations in an assembled
// document. Always fatal; the document must never reach the output path.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "document validation failed: " + strings.Join(e.Problems, "; ")
}

// PersistenceError is a disk-write failure. The temp-then-rename discipline
// guarantees the previous good file is untouched when it occurs.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
