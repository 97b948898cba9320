package gradebook

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

// Entry is the gradebook-relevant projection of a submission/grade pair.
type Entry struct {
	RawGrade      *float64
	GraderID      uint
	Feedback      string
	DateSubmitted *time.Time
	DateGraded    *time.Time
}

// Gradebook receives every gradebook-relevant state change. Pushes happen
// synchronously inside the operation that caused them.
type Gradebook interface {
	PushGrade(ctx context.Context, courseID, assignmentID, userID uint, entry Entry) error
}

type storeGradebook struct {
	db *gorm.DB
}

// NewStore builds a Gradebook maintaining a mirror table in the shared
// database.
func NewStore(db *gorm.DB) Gradebook {
	return &storeGradebook{db: db}
}

func (g *storeGradebook) PushGrade(ctx context.Context, courseID, assignmentID, userID uint, entry Entry) error {
	var record models.GradebookGrade
	err := g.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Where("assignment_id = ?", assignmentID).
		Where("user_id = ?", userID).
		First(&record).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	record.CourseID = courseID
	record.AssignmentID = assignmentID
	record.UserID = userID
	record.RawGrade = entry.RawGrade
	record.GraderID = entry.GraderID
	record.Feedback = entry.Feedback
	record.DateSubmitted = entry.DateSubmitted
	record.DateGraded = entry.DateGraded

	return g.db.WithContext(ctx).Save(&record).Error
}
