package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Grading table filters.
const (
	FilterNone           = ""
	FilterSubmitted      = "submitted"
	FilterRequireGrading = "require_grading"
)

// GradingTableQuery describes one page of the grading table.
type GradingTableQuery struct {
	AssignmentID uint
	// UserIDs is the set of enrolled users holding the submit capability;
	// the caller resolves it through the authorizer.
	UserIDs  []uint
	Filter   string
	SortBy   string
	SortDesc bool
	Page     int
	PageSize int
}

// GradingTableRow is one user row joined against their submission and grade.
// Submission and grade columns are nullable; absence is a valid state.
type GradingTableRow struct {
	UserID        uint       `gorm:"column:user_id"`
	FirstName     string     `gorm:"column:first_name"`
	LastName      string     `gorm:"column:last_name"`
	Email         string     `gorm:"column:email"`
	SubmissionID  *uint      `gorm:"column:submission_id"`
	Status        *string    `gorm:"column:status"`
	Comment       *string    `gorm:"column:comment"`
	TimeSubmitted *time.Time `gorm:"column:time_submitted"`
	GradeID       *uint      `gorm:"column:grade_id"`
	Grade         *float64   `gorm:"column:grade"`
	FeedbackText  *string    `gorm:"column:feedback_text"`
	Locked        *bool      `gorm:"column:locked"`
	TimeMarked    *time.Time `gorm:"column:time_marked"`
}

// GradingTableRepository runs the enrolled-users × submission × grade join.
type GradingTableRepository interface {
	Rows(ctx context.Context, query GradingTableQuery) ([]GradingTableRow, error)
	// Count returns the row total under the same filter the Rows query uses.
	Count(ctx context.Context, query GradingTableQuery) (int64, error)
	// UserIDForRow re-runs the identical filtered and sorted query restricted
	// to the single row at the given zero-based position. O(row) per call.
	UserIDForRow(ctx context.Context, query GradingTableQuery, row int) (uint, error)
}

// ErrRowOutOfRange is returned by UserIDForRow when the position is past the
// end of the filtered table.
var ErrRowOutOfRange = errors.New("grading table row out of range")

type gradingTableRepository struct {
	db *gorm.DB
}

// NewGradingTableRepository instantiates the repository.
func NewGradingTableRepository(db *gorm.DB) GradingTableRepository {
	return &gradingTableRepository{db: db}
}

const gradingTableSelect = `
SELECT u.id AS user_id, u.first_name, u.last_name, u.email,
       s.id AS submission_id, s.status, s.comment, s.updated_at AS time_submitted,
       g.id AS grade_id, g.grade, g.feedback_text, g.locked, g.updated_at AS time_marked
`

// gradingTableBody builds the FROM/WHERE shared by the count and data
// queries so the two can never disagree about which rows qualify.
func gradingTableBody(query GradingTableQuery) (string, []interface{}) {
	body := `
FROM users u
LEFT JOIN submissions s ON s.user_id = u.id AND s.assignment_id = ?
LEFT JOIN grades g ON g.user_id = u.id AND g.assignment_id = ?
WHERE u.id IN ?`
	args := []interface{}{query.AssignmentID, query.AssignmentID, query.UserIDs}

	switch query.Filter {
	case FilterSubmitted:
		body += " AND s.id IS NOT NULL"
	case FilterRequireGrading:
		// A missing grade row counts as requiring grading.
		body += " AND s.id IS NOT NULL AND (g.id IS NULL OR g.updated_at < s.updated_at)"
	}

	return body, args
}

var gradingTableSortColumns = map[string]string{
	"":               "u.last_name",
	"last_name":      "u.last_name",
	"first_name":     "u.first_name",
	"email":          "u.email",
	"status":         "s.status",
	"grade":          "g.grade",
	"time_submitted": "s.updated_at",
	"time_marked":    "g.updated_at",
}

func gradingTableOrder(query GradingTableQuery) (string, error) {
	column, ok := gradingTableSortColumns[query.SortBy]
	if !ok {
		return "", fmt.Errorf("unknown grading table sort column %q", query.SortBy)
	}
	direction := "ASC"
	if query.SortDesc {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, u.id ASC", column, direction), nil
}

func (r *gradingTableRepository) Rows(ctx context.Context, query GradingTableQuery) ([]GradingTableRow, error) {
	if len(query.UserIDs) == 0 {
		return nil, nil
	}

	body, args := gradingTableBody(query)
	order, err := gradingTableOrder(query)
	if err != nil {
		return nil, err
	}

	sql := gradingTableSelect + body + order
	if query.PageSize > 0 {
		page := query.Page
		if page < 0 {
			page = 0
		}
		sql += fmt.Sprintf(" LIMIT %d OFFSET %d", query.PageSize, page*query.PageSize)
	}

	var rows []GradingTableRow
	if err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gradingTableRepository) Count(ctx context.Context, query GradingTableQuery) (int64, error) {
	if len(query.UserIDs) == 0 {
		return 0, nil
	}

	body, args := gradingTableBody(query)
	var count int64
	if err := r.db.WithContext(ctx).Raw("SELECT COUNT(*)"+body, args...).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *gradingTableRepository) UserIDForRow(ctx context.Context, query GradingTableQuery, row int) (uint, error) {
	if len(query.UserIDs) == 0 || row < 0 {
		return 0, ErrRowOutOfRange
	}

	body, args := gradingTableBody(query)
	order, err := gradingTableOrder(query)
	if err != nil {
		return 0, err
	}

	sql := "SELECT u.id AS user_id" + body + order + fmt.Sprintf(" LIMIT 1 OFFSET %d", row)

	var userID *uint
	if err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&userID).Error; err != nil {
		return 0, err
	}
	if userID == nil {
		return 0, ErrRowOutOfRange
	}
	return *userID, nil
}
