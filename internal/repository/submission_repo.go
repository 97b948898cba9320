package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

// SubmissionListFilter narrows the bulk submission query used by the
// external read API. Since/Before bound UpdatedAt; Before extends the open
// lower bound into a closed interval.
type SubmissionListFilter struct {
	AssignmentIDs []uint
	Status        string
	Since         time.Time
	Before        time.Time
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	// GetOrCreate returns the unique submission for (assignment, user). With
	// create set a missing record is inserted with its default status taken
	// from the assignment drafts flag; otherwise gorm.ErrRecordNotFound is
	// returned.
	GetOrCreate(ctx context.Context, assignment models.Assignment, userID uint, create bool) (models.Submission, error)
	Update(ctx context.Context, submission *models.Submission) error
	// ListForAssignments returns matching submissions ordered by
	// (assignment_id, id) so callers can group them per assignment in one
	// pass.
	ListForAssignments(ctx context.Context, filter SubmissionListFilter) ([]models.Submission, error)
	CountWithStatus(ctx context.Context, assignmentID uint, status string) (int64, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) GetOrCreate(ctx context.Context, assignment models.Assignment, userID uint, create bool) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignment.ID).
		Where("user_id = ?", userID).
		First(&submission).Error
	if err == nil {
		return submission, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) || !create {
		return models.Submission{}, err
	}

	status := models.SubmissionStatusSubmitted
	if assignment.SubmissionDrafts {
		status = models.SubmissionStatusDraft
	}
	submission = models.Submission{
		AssignmentID:  assignment.ID,
		UserID:        userID,
		Status:        status,
		OnlineFormat:  models.FormatHTML,
		CommentFormat: models.FormatHTML,
	}
	if err := r.db.WithContext(ctx).Create(&submission).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *submissionRepository) ListForAssignments(ctx context.Context, filter SubmissionListFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("User").
		Where("assignment_id IN ?", filter.AssignmentIDs)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if !filter.Since.IsZero() {
		query = query.Where("updated_at >= ?", filter.Since)
	}
	if !filter.Before.IsZero() {
		query = query.Where("updated_at <= ?", filter.Before)
	}

	var submissions []models.Submission
	if err := query.Order("assignment_id ASC, id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) CountWithStatus(ctx context.Context, assignmentID uint, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("assignment_id = ?", assignmentID).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
