package dto

import (
	"time"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

// SaveSubmissionRequest is the student payload for saving submission content.
// Uploaded files ride alongside in the multipart body.
type SaveSubmissionRequest struct {
	OnlineText   string `json:"online_text" form:"online_text"`
	OnlineFormat int    `json:"online_format" form:"online_format" validate:"gte=0,lte=1"`
	Comment      string `json:"comment" form:"comment"`
}

// SaveGradeRequest is the teacher payload for grading a student.
type SaveGradeRequest struct {
	Grade    float64 `json:"grade" validate:"gte=-1"`
	Feedback string  `json:"feedback"`
}

// SubmissionResponse is returned after lifecycle operations.
type SubmissionResponse struct {
	ID           uint      `json:"id"`
	AssignmentID uint      `json:"assignment_id"`
	UserID       uint      `json:"user_id"`
	Status       string    `json:"status"`
	OnlineText   string    `json:"online_text"`
	Comment      string    `json:"comment"`
	NumFiles     int       `json:"num_files"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GradeResponse serializes a grade record.
type GradeResponse struct {
	ID           uint      `json:"id"`
	AssignmentID uint      `json:"assignment_id"`
	UserID       uint      `json:"user_id"`
	GraderID     uint      `json:"grader_id"`
	Grade        float64   `json:"grade"`
	GradeDisplay string    `json:"grade_display"`
	Feedback     string    `json:"feedback"`
	Locked       bool      `json:"locked"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		UserID:       model.UserID,
		Status:       model.Status,
		OnlineText:   model.OnlineText,
		Comment:      model.Comment,
		NumFiles:     model.NumFiles,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// NewGradeResponse converts a Grade model into a DTO.
func NewGradeResponse(model models.Grade, display string) GradeResponse {
	return GradeResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		UserID:       model.UserID,
		GraderID:     model.GraderID,
		Grade:        model.Grade,
		GradeDisplay: display,
		Feedback:     model.FeedbackText,
		Locked:       model.Locked,
		UpdatedAt:    model.UpdatedAt,
	}
}
