package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

func setupAuthorizer(t *testing.T) (Authorizer, uint, map[string]models.User) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Course{}, &models.User{}, &models.Enrollment{}))

	course := models.Course{FullName: "Intro", ShortName: "I101"}
	require.NoError(t, db.Create(&course).Error)

	users := map[string]models.User{
		"student":  {FirstName: "Sam", LastName: "Zimmer", Email: "sam@example.com"},
		"student2": {FirstName: "Ana", LastName: "Acosta", Email: "ana@example.com"},
		"teacher":  {FirstName: "Tess", LastName: "Mills", Email: "tess@example.com"},
		"outsider": {FirstName: "Odd", LastName: "Out", Email: "odd@example.com"},
	}
	roles := map[string]string{
		"student":  models.RoleStudent,
		"student2": models.RoleStudent,
		"teacher":  models.RoleTeacher,
	}
	for key, user := range users {
		require.NoError(t, db.Create(&user).Error)
		users[key] = user
		if role, ok := roles[key]; ok {
			require.NoError(t, db.Create(&models.Enrollment{CourseID: course.ID, UserID: user.ID, Role: role}).Error)
		}
	}

	return NewEnrollmentAuthorizer(db), course.ID, users
}

func TestHasCapabilityPerRole(t *testing.T) {
	authz, courseID, users := setupAuthorizer(t)
	ctx := context.Background()

	ok, err := authz.HasCapability(ctx, CapabilitySubmit, courseID, users["student"].ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = authz.HasCapability(ctx, CapabilityGrade, courseID, users["student"].ID)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = authz.HasCapability(ctx, CapabilityGrade, courseID, users["teacher"].ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = authz.HasCapability(ctx, CapabilitySubmit, courseID, users["teacher"].ID)
	require.NoError(t, err)
	require.False(t, ok, "teachers do not submit")

	ok, err = authz.HasCapability(ctx, CapabilityView, courseID, users["outsider"].ID)
	require.NoError(t, err)
	require.False(t, ok, "unenrolled users hold no capabilities")
}

func TestRequireCapability(t *testing.T) {
	authz, courseID, users := setupAuthorizer(t)
	ctx := context.Background()

	require.NoError(t, authz.RequireCapability(ctx, CapabilityView, courseID, users["teacher"].ID))

	err := authz.RequireCapability(ctx, CapabilityGrade, courseID, users["student"].ID)
	require.ErrorIs(t, err, ErrPermissionDenied)

	err = authz.RequireCapability(ctx, CapabilityView, courseID, users["outsider"].ID)
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestIsEnrolled(t *testing.T) {
	authz, courseID, users := setupAuthorizer(t)
	ctx := context.Background()

	enrolled, err := authz.IsEnrolled(ctx, courseID, users["student"].ID)
	require.NoError(t, err)
	require.True(t, enrolled)

	enrolled, err = authz.IsEnrolled(ctx, courseID, users["outsider"].ID)
	require.NoError(t, err)
	require.False(t, enrolled)

	enrolled, err = authz.IsEnrolled(ctx, courseID+99, users["student"].ID)
	require.NoError(t, err)
	require.False(t, enrolled)
}

func TestUsersWithCapability(t *testing.T) {
	authz, courseID, users := setupAuthorizer(t)
	ctx := context.Background()

	submitters, err := authz.UsersWithCapability(ctx, CapabilitySubmit, courseID)
	require.NoError(t, err)
	require.Len(t, submitters, 2)
	require.Equal(t, users["student2"].ID, submitters[0].ID, "ordered by last name")
	require.Equal(t, users["student"].ID, submitters[1].ID)

	graders, err := authz.UsersWithCapability(ctx, CapabilityGrade, courseID)
	require.NoError(t, err)
	require.Len(t, graders, 1)
	require.Equal(t, users["teacher"].ID, graders[0].ID)

	none, err := authz.UsersWithCapability(ctx, "mod/assign:unknown", courseID)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestRoleGrants(t *testing.T) {
	require.True(t, RoleGrants(models.RoleStudent, CapabilitySubmit))
	require.True(t, RoleGrants(models.RoleTeacher, CapabilityViewParticipants))
	require.False(t, RoleGrants(models.RoleStudent, CapabilityGrade))
	require.False(t, RoleGrants("auditor", CapabilityView))
}
