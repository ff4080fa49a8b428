package db

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type DB struct {
	*sql.DB
}

// Postgres error codes the linker cares about.
const (
	pgUniqueViolation   = "23505"
	pgReadOnlyTxn       = "25006"
	pgInsufficientPrivs = "42501"
)

// IsUniqueViolation reports whether err is a unique-constraint violation,
// optionally on the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != pgUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// IsReadOnly reports whether err means the database rejected a write
// because it is in read-only mode or the role lacks write privileges.
func IsReadOnly(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	code := string(pqErr.Code)
	return code == pgReadOnlyTxn || code == pgInsufficientPrivs
}
