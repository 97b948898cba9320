package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

// GradeRepository defines data operations for grade records.
type GradeRepository interface {
	// GetOrCreate mirrors SubmissionRepository.GetOrCreate for grades. New
	// records start ungraded and unlocked.
	GetOrCreate(ctx context.Context, assignmentID, userID uint, create bool) (models.Grade, error)
	Update(ctx context.Context, grade *models.Grade) error
	CreateHistory(ctx context.Context, history *models.GradeHistory) error
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository instantiates the repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) GetOrCreate(ctx context.Context, assignmentID, userID uint, create bool) (models.Grade, error) {
	var grade models.Grade
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("user_id = ?", userID).
		First(&grade).Error
	if err == nil {
		return grade, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) || !create {
		return models.Grade{}, err
	}

	grade = models.Grade{
		AssignmentID:   assignmentID,
		UserID:         userID,
		Grade:          models.GradeUngraded,
		FeedbackFormat: models.FormatHTML,
	}
	if err := r.db.WithContext(ctx).Create(&grade).Error; err != nil {
		return models.Grade{}, err
	}
	return grade, nil
}

func (r *gradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Save(grade).Error
}

func (r *gradeRepository) CreateHistory(ctx context.Context, history *models.GradeHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}
