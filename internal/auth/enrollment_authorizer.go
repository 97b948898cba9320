package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

type enrollmentAuthorizer struct {
	db *gorm.DB
}

// NewEnrollmentAuthorizer builds an Authorizer deriving capabilities from
// enrollment roles stored in the database.
func NewEnrollmentAuthorizer(db *gorm.DB) Authorizer {
	return &enrollmentAuthorizer{db: db}
}

func (a *enrollmentAuthorizer) enrollment(ctx context.Context, courseID, userID uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	err := a.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Where("user_id = ?", userID).
		First(&enrollment).Error
	return enrollment, err
}

func (a *enrollmentAuthorizer) HasCapability(ctx context.Context, capability string, courseID, userID uint) (bool, error) {
	enrollment, err := a.enrollment(ctx, courseID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return RoleGrants(enrollment.Role, capability), nil
}

func (a *enrollmentAuthorizer) RequireCapability(ctx context.Context, capability string, courseID, userID uint) error {
	ok, err := a.HasCapability(ctx, capability, courseID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}

func (a *enrollmentAuthorizer) IsEnrolled(ctx context.Context, courseID, userID uint) (bool, error) {
	_, err := a.enrollment(ctx, courseID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *enrollmentAuthorizer) UsersWithCapability(ctx context.Context, capability string, courseID uint) ([]models.User, error) {
	roles := make([]string, 0, len(roleCapabilities))
	for role := range roleCapabilities {
		if RoleGrants(role, capability) {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		return nil, nil
	}

	var enrollments []models.Enrollment
	err := a.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN users ON users.id = enrollments.user_id").
		Where("enrollments.course_id = ?", courseID).
		Where("enrollments.role IN ?", roles).
		Order("users.last_name ASC, users.id ASC").
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(enrollments))
	for _, enrollment := range enrollments {
		users = append(users, enrollment.User)
	}
	return users, nil
}
