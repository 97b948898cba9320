package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Course{},
		&models.User{},
		&models.Enrollment{},
		&models.Scale{},
		&models.Assignment{},
		&models.AssignPluginConfig{},
		&models.Submission{},
		&models.Grade{},
		&models.GradeHistory{},
	))
	return db
}

func TestSubmissionGetOrCreateDefaults(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	drafts := models.Assignment{CourseID: 1, Name: "Drafts", SubmissionDrafts: true}
	require.NoError(t, db.Create(&drafts).Error)
	direct := models.Assignment{CourseID: 1, Name: "Direct"}
	require.NoError(t, db.Create(&direct).Error)

	submission, err := repo.GetOrCreate(ctx, drafts, 10, true)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusDraft, submission.Status)
	require.Equal(t, models.FormatHTML, submission.OnlineFormat)

	submission, err = repo.GetOrCreate(ctx, direct, 10, true)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusSubmitted, submission.Status)
}

func TestSubmissionGetOrCreateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	assignment := models.Assignment{CourseID: 1, Name: "Essay", SubmissionDrafts: true}
	require.NoError(t, db.Create(&assignment).Error)

	first, err := repo.GetOrCreate(ctx, assignment, 10, true)
	require.NoError(t, err)

	second, err := repo.GetOrCreate(ctx, assignment, 10, true)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Submission{}).Where("assignment_id = ?", assignment.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestSubmissionGetOrCreateWithoutCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)

	assignment := models.Assignment{CourseID: 1, Name: "Essay"}
	require.NoError(t, db.Create(&assignment).Error)

	_, err := repo.GetOrCreate(context.Background(), assignment, 10, false)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubmissionListForAssignments(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	user := models.User{FirstName: "Sam", LastName: "Student", Email: "sam@example.com"}
	require.NoError(t, db.Create(&user).Error)

	first := models.Assignment{CourseID: 1, Name: "First"}
	second := models.Assignment{CourseID: 1, Name: "Second"}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	require.NoError(t, db.Create(&models.Submission{AssignmentID: first.ID, UserID: user.ID, Status: models.SubmissionStatusSubmitted}).Error)
	require.NoError(t, db.Create(&models.Submission{AssignmentID: second.ID, UserID: user.ID, Status: models.SubmissionStatusDraft}).Error)

	submissions, err := repo.ListForAssignments(ctx, SubmissionListFilter{AssignmentIDs: []uint{first.ID, second.ID}})
	require.NoError(t, err)
	require.Len(t, submissions, 2)
	require.Equal(t, first.ID, submissions[0].AssignmentID, "expected ordering by assignment then id")
	require.Equal(t, "Sam", submissions[0].User.FirstName, "expected the user preloaded")

	submissions, err = repo.ListForAssignments(ctx, SubmissionListFilter{
		AssignmentIDs: []uint{first.ID, second.ID},
		Status:        models.SubmissionStatusSubmitted,
	})
	require.NoError(t, err)
	require.Len(t, submissions, 1)
	require.Equal(t, first.ID, submissions[0].AssignmentID)

	cutoff := time.Now().Add(time.Hour)
	submissions, err = repo.ListForAssignments(ctx, SubmissionListFilter{
		AssignmentIDs: []uint{first.ID, second.ID},
		Since:         cutoff,
	})
	require.NoError(t, err)
	require.Empty(t, submissions)
}

func TestSubmissionListForAssignmentsTimeWindow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	first := models.Assignment{CourseID: 1, Name: "First"}
	second := models.Assignment{CourseID: 1, Name: "Second"}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i, stamp := range []time.Time{base.Add(100 * time.Second), base.Add(200 * time.Second), base.Add(300 * time.Second)} {
		submission := models.Submission{
			AssignmentID: first.ID,
			UserID:       uint(10 + i),
			Status:       models.SubmissionStatusSubmitted,
			CreatedAt:    stamp,
			UpdatedAt:    stamp,
		}
		require.NoError(t, db.Create(&submission).Error)
	}

	// The window is a closed interval: submissions modified exactly at
	// either bound are included.
	submissions, err := repo.ListForAssignments(ctx, SubmissionListFilter{
		AssignmentIDs: []uint{first.ID, second.ID},
		Since:         base.Add(100 * time.Second),
		Before:        base.Add(200 * time.Second),
	})
	require.NoError(t, err)
	require.Len(t, submissions, 2)
	require.Equal(t, uint(10), submissions[0].UserID)
	require.Equal(t, uint(11), submissions[1].UserID)
}

func TestSubmissionCountWithStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)

	assignment := models.Assignment{CourseID: 1, Name: "Essay"}
	require.NoError(t, db.Create(&assignment).Error)

	require.NoError(t, db.Create(&models.Submission{AssignmentID: assignment.ID, UserID: 10, Status: models.SubmissionStatusSubmitted}).Error)
	require.NoError(t, db.Create(&models.Submission{AssignmentID: assignment.ID, UserID: 11, Status: models.SubmissionStatusSubmitted}).Error)
	require.NoError(t, db.Create(&models.Submission{AssignmentID: assignment.ID, UserID: 12, Status: models.SubmissionStatusDraft}).Error)

	count, err := repo.CountWithStatus(context.Background(), assignment.ID, models.SubmissionStatusSubmitted)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	count, err = repo.CountWithStatus(context.Background(), assignment.ID, models.SubmissionStatusDraft)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestGradeGetOrCreateDefaults(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGradeRepository(db)
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, 1, 10, false)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	grade, err := repo.GetOrCreate(ctx, 1, 10, true)
	require.NoError(t, err)
	require.Equal(t, float64(models.GradeUngraded), grade.Grade)
	require.False(t, grade.Locked)
	require.False(t, grade.IsGraded())

	again, err := repo.GetOrCreate(ctx, 1, 10, false)
	require.NoError(t, err)
	require.Equal(t, grade.ID, again.ID)
}

func TestAssignmentDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	assignment := models.Assignment{CourseID: 1, Name: "Doomed"}
	require.NoError(t, db.Create(&assignment).Error)
	require.NoError(t, db.Create(&models.Submission{AssignmentID: assignment.ID, UserID: 10, Status: models.SubmissionStatusSubmitted}).Error)
	require.NoError(t, db.Create(&models.Grade{AssignmentID: assignment.ID, UserID: 10, Grade: 5}).Error)
	require.NoError(t, db.Create(&models.AssignPluginConfig{AssignmentID: assignment.ID, Plugin: "onlinetext", Subtype: "assignsubmission", Name: "enabled", Value: "1"}).Error)

	require.NoError(t, repo.Delete(ctx, assignment.ID))

	for _, model := range []interface{}{&models.Submission{}, &models.Grade{}, &models.AssignPluginConfig{}} {
		var count int64
		require.NoError(t, db.Model(model).Where("assignment_id = ?", assignment.ID).Count(&count).Error)
		require.Zero(t, count)
	}

	require.ErrorIs(t, repo.Delete(ctx, assignment.ID), gorm.ErrRecordNotFound)
}
