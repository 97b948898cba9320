package models

import "time"

// GradeUngraded is the sentinel grade value meaning no grade has been given.
const GradeUngraded = -1

// Grade is the single per-student grading record for an assignment. Like
// Submission it is unique per (assignment, user). The Locked flag blocks all
// student-side submission mutation while set.
type Grade struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	AssignmentID     uint       `gorm:"not null;uniqueIndex:idx_grade_assignment_user" json:"assignment_id"`
	UserID           uint       `gorm:"not null;uniqueIndex:idx_grade_assignment_user" json:"user_id"`
	GraderID         uint       `gorm:"not null;default:0" json:"grader_id"`
	Grade            float64    `gorm:"not null;default:-1" json:"grade"`
	FeedbackText     string     `gorm:"type:text" json:"feedback_text"`
	FeedbackFormat   int        `gorm:"not null;default:0" json:"feedback_format"`
	NumFeedbackFiles int        `gorm:"not null;default:0" json:"num_feedback_files"`
	Locked           bool       `gorm:"not null;default:false" json:"locked"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Assignment       Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	User             User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
}

// IsGraded reports whether a real grade value has been recorded.
func (g Grade) IsGraded() bool {
	return g.Grade >= 0
}

// GradeHistory keeps an append-only trail of grading actions for audit.
type GradeHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	GradeID      uint      `gorm:"not null;index" json:"grade_id"`
	AssignmentID uint      `gorm:"not null" json:"assignment_id"`
	UserID       uint      `gorm:"not null" json:"user_id"`
	GraderID     uint      `gorm:"not null" json:"grader_id"`
	Grade        float64   `gorm:"not null" json:"grade"`
	FeedbackText string    `gorm:"type:text" json:"feedback_text"`
	GradedAt     time.Time `gorm:"not null" json:"graded_at"`
}
