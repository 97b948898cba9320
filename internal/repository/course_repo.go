package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

// CourseRepository exposes the course lookups the read API needs.
type CourseRepository interface {
	GetByID(ctx context.Context, id uint) (models.Course, error)
	// ListEnrolled returns the courses the user is enrolled in, ordered by id.
	ListEnrolled(ctx context.Context, userID uint) ([]models.Course, error)
	GetScale(ctx context.Context, id uint) (models.Scale, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository instantiates the repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *courseRepository) ListEnrolled(ctx context.Context, userID uint) ([]models.Course, error) {
	var courses []models.Course
	err := r.db.WithContext(ctx).
		Joins("JOIN enrollments ON enrollments.course_id = courses.id").
		Where("enrollments.user_id = ?", userID).
		Order("courses.id ASC").
		Find(&courses).Error
	if err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepository) GetScale(ctx context.Context, id uint) (models.Scale, error) {
	var scale models.Scale
	if err := r.db.WithContext(ctx).First(&scale, id).Error; err != nil {
		return models.Scale{}, err
	}
	return scale, nil
}
