package auth

import (
	"context"
	"errors"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

// Capability names checked around lifecycle transitions and read endpoints.
const (
	CapabilityView             = "mod/assign:view"
	CapabilitySubmit           = "mod/assign:submit"
	CapabilityGrade            = "mod/assign:grade"
	CapabilityViewParticipants = "moodle/course:viewparticipants"
)

// ErrPermissionDenied is returned when a required capability check fails.
var ErrPermissionDenied = errors.New("permission denied")

// Authorizer evaluates capabilities against a course context. The assignment
// module only consumes this interface; the host platform owns the rules.
type Authorizer interface {
	HasCapability(ctx context.Context, capability string, courseID, userID uint) (bool, error)
	RequireCapability(ctx context.Context, capability string, courseID, userID uint) error
	IsEnrolled(ctx context.Context, courseID, userID uint) (bool, error)
	// UsersWithCapability returns the enrolled users holding the capability,
	// ordered by last name then id.
	UsersWithCapability(ctx context.Context, capability string, courseID uint) ([]models.User, error)
}

// roleCapabilities maps enrollment roles to the capabilities they grant.
var roleCapabilities = map[string]map[string]bool{
	models.RoleStudent: {
		CapabilityView:   true,
		CapabilitySubmit: true,
	},
	models.RoleTeacher: {
		CapabilityView:             true,
		CapabilityGrade:            true,
		CapabilityViewParticipants: true,
	},
}

// RoleGrants reports whether a role carries a capability. Exposed so tests
// and fakes can share the same rules.
func RoleGrants(role, capability string) bool {
	caps, ok := roleCapabilities[role]
	return ok && caps[capability]
}
