package dto

import (
	"time"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

// AssignmentCreateRequest is the payload for configuring a new assignment.
type AssignmentCreateRequest struct {
	CourseID                 uint       `json:"course_id" validate:"required,gt=0"`
	Name                     string     `json:"name" validate:"required,min=1,max=255"`
	Intro                    string     `json:"intro"`
	Grade                    int        `json:"grade"`
	DueDate                  *time.Time `json:"due_date"`
	AllowSubmissionsFromDate *time.Time `json:"allow_submissions_from_date"`
	PreventLateSubmissions   bool       `json:"prevent_late_submissions"`
	SubmissionDrafts         bool       `json:"submission_drafts"`
	OnlineTextSubmission     bool       `json:"online_text_submission"`
	SubmissionComments       bool       `json:"submission_comments"`
	SendNotifications        bool       `json:"send_notifications"`
	MaxFilesSubmission       int        `json:"max_files_submission" validate:"gte=0"`
}

// AssignmentUpdateRequest carries configuration updates; nil fields keep
// their current value.
type AssignmentUpdateRequest struct {
	Name                     *string    `json:"name" validate:"omitempty,min=1,max=255"`
	Intro                    *string    `json:"intro"`
	Grade                    *int       `json:"grade"`
	DueDate                  *time.Time `json:"due_date"`
	AllowSubmissionsFromDate *time.Time `json:"allow_submissions_from_date"`
	PreventLateSubmissions   *bool      `json:"prevent_late_submissions"`
	SubmissionDrafts         *bool      `json:"submission_drafts"`
	OnlineTextSubmission     *bool      `json:"online_text_submission"`
	SubmissionComments       *bool      `json:"submission_comments"`
	SendNotifications        *bool      `json:"send_notifications"`
	MaxFilesSubmission       *int       `json:"max_files_submission" validate:"omitempty,gte=0"`
}

// AssignmentResponse is returned when viewing assignment configuration.
type AssignmentResponse struct {
	ID                       uint             `json:"id"`
	CourseID                 uint             `json:"course_id"`
	Name                     string           `json:"name"`
	Intro                    string           `json:"intro"`
	Grade                    int              `json:"grade"`
	DueDate                  time.Time        `json:"due_date"`
	AllowSubmissionsFromDate time.Time        `json:"allow_submissions_from_date"`
	PreventLateSubmissions   bool             `json:"prevent_late_submissions"`
	SubmissionDrafts         bool             `json:"submission_drafts"`
	OnlineTextSubmission     bool             `json:"online_text_submission"`
	SubmissionComments       bool             `json:"submission_comments"`
	SendNotifications        bool             `json:"send_notifications"`
	MaxFilesSubmission       int              `json:"max_files_submission"`
	UpdatedAt                time.Time        `json:"updated_at"`
	Configs                  []ConfigResponse `json:"configs,omitempty"`
}

// ConfigResponse serializes one plugin configuration row.
type ConfigResponse struct {
	ID         uint   `json:"id"`
	Assignment uint   `json:"assignment"`
	Plugin     string `json:"plugin"`
	Subtype    string `json:"subtype"`
	Name       string `json:"name"`
	Value      string `json:"value"`
}

// GradingSummaryResponse carries the participant/draft/submitted counts
// shown on the teacher grading page.
type GradingSummaryResponse struct {
	Participants int64 `json:"participants"`
	Drafts       int64 `json:"drafts"`
	Submitted    int64 `json:"submitted"`
}

// NewAssignmentResponse converts an Assignment model into a DTO.
func NewAssignmentResponse(model models.Assignment, configs []models.AssignPluginConfig) AssignmentResponse {
	response := AssignmentResponse{
		ID:                       model.ID,
		CourseID:                 model.CourseID,
		Name:                     model.Name,
		Intro:                    model.Intro,
		Grade:                    model.Grade,
		DueDate:                  model.DueDate,
		AllowSubmissionsFromDate: model.AllowSubmissionsFromDate,
		PreventLateSubmissions:   model.PreventLateSubmissions,
		SubmissionDrafts:         model.SubmissionDrafts,
		OnlineTextSubmission:     model.OnlineTextSubmission,
		SubmissionComments:       model.SubmissionComments,
		SendNotifications:        model.SendNotifications,
		MaxFilesSubmission:       model.MaxFilesSubmission,
		UpdatedAt:                model.UpdatedAt,
	}
	for _, config := range configs {
		response.Configs = append(response.Configs, NewConfigResponse(config))
	}
	return response
}

// NewConfigResponse converts a plugin config row into a DTO.
func NewConfigResponse(model models.AssignPluginConfig) ConfigResponse {
	return ConfigResponse{
		ID:         model.ID,
		Assignment: model.AssignmentID,
		Plugin:     model.Plugin,
		Subtype:    model.Subtype,
		Name:       model.Name,
		Value:      model.Value,
	}
}
