package store

import "github.com/rotisserie/eris"

// Typed store errors. Callers translate these at the transport boundary;
// the store never retries or masks them.
var (
	// ErrNotFound means the targeted id has no corresponding row. Applies
	// uniformly to get and update; delete reports absence as false instead.
	ErrNotFound = eris.New("detection not found")

	// ErrStorageUnavailable means the persistence engine is unreachable or a
	// query failed for infrastructure reasons.
	ErrStorageUnavailable = eris.New("storage unavailable")
)

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return eris.Is(err, ErrNotFound)
}

// IsUnavailable reports whether err is, or wraps, ErrStorageUnavailable.
func IsUnavailable(err error) bool {
	return eris.Is(err, ErrStorageUnavailable)
}
