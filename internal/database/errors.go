package database

import (
	"errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when no review state exists for the owner and item
	ErrNotFound = errors.New("review state not found")
	// ErrVersionConflict means the state changed (or was created) since it was loaded
	ErrVersionConflict = errors.New("review state was modified concurrently")
	// ErrDuplicateEvent means the review event was already applied
	ErrDuplicateEvent = errors.New("review event already applied")
	// ErrHistoryRewritten means the state carries fewer history entries than are stored
	ErrHistoryRewritten = errors.New("review history is append-only")
)

// isUniqueViolation reports whether err is a unique / primary key constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}
	return false
}
