package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the read path. The HTTP layer maps these onto
// user-visible responses; everything else is a generic failure.
var (
	// ErrNoData means no snapshots have been generated yet.
	ErrNoData = errors.New("no snapshot data available yet")

	// ErrSnapshotNotFound means a specific snapshot artifact is missing.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrDomainNotFound means the requested domain does not appear in the
	// latest snapshot.
	ErrDomainNotFound = errors.New("unknown domain specified")
)

// CorruptDataError reports an artifact or cache entry that could not be
// deserialized into an Aggregation.
type CorruptDataError struct {
	Source string // "snapshot" or "cache"
	Key    string
	Err    error
}

// Error implements the error interface.
func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("corrupt %s data for %s: %v", e.Source, e.Key, e.Err)
}

// Unwrap returns the underlying deserialization error.
func (e *CorruptDataError) Unwrap() error {
	return e.Err
}
