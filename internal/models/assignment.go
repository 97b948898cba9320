package models

import "time"

// Assignment represents one assignment activity inside a course.
//
// The Grade field is a signed grading descriptor: a positive value is the
// maximum number of points, a negative value references a named ordinal
// scale by id, and zero means the assignment carries no numeric grade.
type Assignment struct {
	ID                       uint      `gorm:"primaryKey" json:"id"`
	CourseID                 uint      `gorm:"not null;index" json:"course_id"`
	Name                     string    `gorm:"size:255;not null" json:"name"`
	Intro                    string    `gorm:"type:text" json:"intro"`
	Grade                    int       `gorm:"not null;default:0" json:"grade"`
	DueDate                  time.Time `json:"due_date"`
	AllowSubmissionsFromDate time.Time `json:"allow_submissions_from_date"`
	PreventLateSubmissions   bool      `gorm:"not null;default:false" json:"prevent_late_submissions"`
	SubmissionDrafts         bool      `gorm:"not null;default:false" json:"submission_drafts"`
	OnlineTextSubmission     bool      `gorm:"not null;default:false" json:"online_text_submission"`
	SubmissionComments       bool      `gorm:"not null;default:false" json:"submission_comments"`
	SendNotifications        bool      `gorm:"not null;default:false" json:"send_notifications"`
	MaxFilesSubmission       int       `gorm:"not null;default:0" json:"max_files_submission"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// HasDueDate reports whether a deadline has been configured.
func (a Assignment) HasDueDate() bool {
	return !a.DueDate.IsZero()
}

// SubmissionsOpenAt reports whether the submission window is open at the
// given instant. The window opens at AllowSubmissionsFromDate and, when late
// submissions are prevented and a due date exists, closes at DueDate.
func (a Assignment) SubmissionsOpenAt(reference time.Time) bool {
	if !a.AllowSubmissionsFromDate.IsZero() && reference.Before(a.AllowSubmissionsFromDate) {
		return false
	}
	if a.PreventLateSubmissions && a.HasDueDate() && reference.After(a.DueDate) {
		return false
	}
	return true
}

// IsGraded reports whether the assignment carries any grading at all.
func (a Assignment) IsGraded() bool {
	return a.Grade != 0
}

// UsesScale reports whether grades reference an ordinal scale.
func (a Assignment) UsesScale() bool {
	return a.Grade < 0
}

// ScaleID returns the referenced scale id when UsesScale is true.
func (a Assignment) ScaleID() uint {
	if a.Grade >= 0 {
		return 0
	}
	return uint(-a.Grade)
}

// AssignPluginConfig stores one key/value setting owned by a submission
// plugin for a specific assignment.
type AssignPluginConfig struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	AssignmentID uint   `gorm:"not null;index" json:"assignment_id"`
	Plugin       string `gorm:"size:64;not null" json:"plugin"`
	Subtype      string `gorm:"size:64;not null" json:"subtype"`
	Name         string `gorm:"size:128;not null" json:"name"`
	Value        string `gorm:"type:text" json:"value"`
}
