// Package authz holds the pure authorization decisions shared by the
// resource services. Handlers gate routes by role via middleware; services
// call these helpers when the decision needs resource data (owner fields,
// target IDs) that is only known after a fetch.
package authz

import (
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// RoleIn allows callers whose role is in the given set.
func RoleIn(role models.Role, allowed ...models.Role) error {
	for _, a := range allowed {
		if role == a {
			return nil
		}
	}
	return appErrors.ErrForbidden
}

// SelfOrAdmin allows admins, or callers acting on their own account.
func SelfOrAdmin(caller *models.User, targetID int64) error {
	if caller == nil {
		return appErrors.ErrUnauthorized
	}
	if caller.IsAdmin() || caller.ID == targetID {
		return nil
	}
	return appErrors.ErrForbidden
}

// OwnerOnly allows only the exact owner of a resource. A resource without an
// owner cannot be mutated through this gate.
func OwnerOnly(callerID int64, ownerID *int64) error {
	if ownerID == nil || *ownerID != callerID {
		return appErrors.ErrForbidden
	}
	return nil
}
