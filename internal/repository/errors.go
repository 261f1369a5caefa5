package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate signals a storage-level unique constraint failure.
// Application-level duplicate pre-checks are advisory only; the constraint
// is authoritative and services translate this error to a conflict.
var ErrDuplicate = errors.New("duplicate key")

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err was caused by a unique constraint.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
