package service

import (
	"errors"

	"github.com/noah-isme/lms-api/internal/repository"
)

// isUniqueViolation reports whether a write failed on a storage unique
// constraint, surfaced by the repositories as repository.ErrDuplicate.
func isUniqueViolation(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}
