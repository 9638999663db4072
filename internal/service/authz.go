package service

import (
	"slices"

	"github.com/google/uuid"
	"github.com/yuki-disu/PPD-back/internal/domain"
)

// RequireRole denies users whose role is not in allowed.
func RequireRole(u *domain.User, allowed ...string) error {
	if u == nil || !slices.Contains(allowed, u.Role) {
		return domain.ErrForbidden
	}
	return nil
}

// RequireOwnership lets admins through and otherwise demands that u owns the
// resource. The resource must already be loaded.
func RequireOwnership(u *domain.User, ownerID uuid.UUID) error {
	if u == nil {
		return domain.ErrForbidden
	}
	if u.IsAdmin() || u.ID == ownerID {
		return nil
	}
	return domain.ErrForbidden
}
