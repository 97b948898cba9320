package models

import "time"

// AuditLogEntry records one lifecycle action for later inspection. Entries
// are append only; failures writing them never abort the action itself.
type AuditLogEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AssignmentID uint      `gorm:"not null;index" json:"assignment_id"`
	ActorID      uint      `gorm:"not null" json:"actor_id"`
	Action       string    `gorm:"size:64;not null" json:"action"`
	Info         string    `gorm:"type:text" json:"info"`
	CreatedAt    time.Time `json:"created_at"`
}

// Notification is a persisted copy of a message sent to a grader or student.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Type      string    `gorm:"size:64;not null" json:"type"`
	Subject   string    `gorm:"size:255;not null" json:"subject"`
	Message   string    `gorm:"type:text" json:"message"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// GradebookGrade mirrors the latest grading state into the course gradebook.
// One row per (course, assignment, user); every gradebook-relevant mutation
// rewrites it synchronously in the same operation.
type GradebookGrade struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CourseID      uint       `gorm:"not null;uniqueIndex:idx_gradebook_item_user" json:"course_id"`
	AssignmentID  uint       `gorm:"not null;uniqueIndex:idx_gradebook_item_user" json:"assignment_id"`
	UserID        uint       `gorm:"not null;uniqueIndex:idx_gradebook_item_user" json:"user_id"`
	RawGrade      *float64   `json:"raw_grade"`
	GraderID      uint       `gorm:"not null;default:0" json:"grader_id"`
	Feedback      string     `gorm:"type:text" json:"feedback"`
	DateSubmitted *time.Time `json:"date_submitted"`
	DateGraded    *time.Time `json:"date_graded"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
