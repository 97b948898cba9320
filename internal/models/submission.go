package models

import "time"

// Submission status values.
const (
	// SubmissionStatusDraft means the student still considers the work in progress.
	SubmissionStatusDraft = "draft"
	// SubmissionStatusSubmitted means the student has finished the work.
	SubmissionStatusSubmitted = "submitted"
)

// Content format codes carried alongside rich-text payloads.
const (
	FormatPlain = 0
	FormatHTML  = 1
)

// Submission is the single per-student record for an assignment. At most one
// row exists per (assignment, user); the database enforces it with a unique
// index.
type Submission struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	AssignmentID  uint       `gorm:"not null;uniqueIndex:idx_submission_assignment_user" json:"assignment_id"`
	UserID        uint       `gorm:"not null;uniqueIndex:idx_submission_assignment_user" json:"user_id"`
	Status        string     `gorm:"size:32;not null" json:"status"`
	OnlineText    string     `gorm:"type:text" json:"online_text"`
	OnlineFormat  int        `gorm:"not null;default:0" json:"online_format"`
	Comment       string     `gorm:"type:text" json:"comment"`
	CommentFormat int        `gorm:"not null;default:0" json:"comment_format"`
	NumFiles      int        `gorm:"not null;default:0" json:"num_files"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Assignment    Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	User          User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
}

// IsSubmitted reports whether the student has finished the submission.
func (s Submission) IsSubmitted() bool {
	return s.Status == SubmissionStatusSubmitted
}
