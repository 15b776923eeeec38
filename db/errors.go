package db

import (
	"strings"

	"github.com/muenster-imaging/tabblesync/errors"
)

// ErrDatabaseClosed is returned when operations are attempted on a closed
// database connection.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed checks if an error indicates the database connection is
// closed. This handles both:
// - Wrapped ErrDatabaseClosed errors from this package
// - Raw driver errors that contain "database is closed" in their message
//
// The string matching fallback is necessary because the underlying sql
// driver returns its own error types that we cannot wrap at the source.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "database is closed") ||
		strings.Contains(errMsg, "sql: database is closed")
}
