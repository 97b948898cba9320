package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/auth"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/dto"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/plugin"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/repository"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/storage"
)

// AssignmentService manages assignment configuration.
type AssignmentService interface {
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Update(ctx context.Context, id uint, actor Actor, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	// Delete removes the assignment and cascades to its submissions, grades
	// and file areas.
	Delete(ctx context.Context, id uint, actor Actor) error
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	configs     repository.PluginConfigRepository
	authz       auth.Authorizer
	registry    *plugin.Registry
	files       storage.FileStore
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewAssignmentService constructs the configuration service.
func NewAssignmentService(
	assignments repository.AssignmentRepository,
	configs repository.PluginConfigRepository,
	authz auth.Authorizer,
	registry *plugin.Registry,
	files storage.FileStore,
	validate *validator.Validate,
	logger zerolog.Logger,
) AssignmentService {
	return &assignmentService{
		assignments: assignments,
		configs:     configs,
		authz:       authz,
		registry:    registry,
		files:       files,
		validator:   validate,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
	}
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	configs, err := s.configs.ListByAssignment(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	return dto.NewAssignmentResponse(assignment, configs), nil
}

func (s *assignmentService) Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.authz.RequireCapability(ctx, auth.CapabilityGrade, payload.CourseID, actor.ID); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		CourseID:               payload.CourseID,
		Name:                   payload.Name,
		Intro:                  payload.Intro,
		Grade:                  payload.Grade,
		PreventLateSubmissions: payload.PreventLateSubmissions,
		SubmissionDrafts:       payload.SubmissionDrafts,
		OnlineTextSubmission:   payload.OnlineTextSubmission,
		SubmissionComments:     payload.SubmissionComments,
		SendNotifications:      payload.SendNotifications,
		MaxFilesSubmission:     payload.MaxFilesSubmission,
	}
	if payload.DueDate != nil {
		assignment.DueDate = *payload.DueDate
	}
	if payload.AllowSubmissionsFromDate != nil {
		assignment.AllowSubmissionsFromDate = *payload.AllowSubmissionsFromDate
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	configs, err := s.savePluginSettings(ctx, assignment)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment created")
	return dto.NewAssignmentResponse(assignment, configs), nil
}

func (s *assignmentService) Update(ctx context.Context, id uint, actor Actor, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if err := s.authz.RequireCapability(ctx, auth.CapabilityGrade, assignment.CourseID, actor.ID); err != nil {
		return dto.AssignmentResponse{}, err
	}

	applyAssignmentUpdate(&assignment, payload)

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	configs, err := s.savePluginSettings(ctx, assignment)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	return dto.NewAssignmentResponse(assignment, configs), nil
}

func applyAssignmentUpdate(assignment *models.Assignment, payload dto.AssignmentUpdateRequest) {
	if payload.Name != nil {
		assignment.Name = *payload.Name
	}
	if payload.Intro != nil {
		assignment.Intro = *payload.Intro
	}
	if payload.Grade != nil {
		assignment.Grade = *payload.Grade
	}
	if payload.DueDate != nil {
		assignment.DueDate = *payload.DueDate
	}
	if payload.AllowSubmissionsFromDate != nil {
		assignment.AllowSubmissionsFromDate = *payload.AllowSubmissionsFromDate
	}
	if payload.PreventLateSubmissions != nil {
		assignment.PreventLateSubmissions = *payload.PreventLateSubmissions
	}
	if payload.SubmissionDrafts != nil {
		assignment.SubmissionDrafts = *payload.SubmissionDrafts
	}
	if payload.OnlineTextSubmission != nil {
		assignment.OnlineTextSubmission = *payload.OnlineTextSubmission
	}
	if payload.SubmissionComments != nil {
		assignment.SubmissionComments = *payload.SubmissionComments
	}
	if payload.SendNotifications != nil {
		assignment.SendNotifications = *payload.SendNotifications
	}
	if payload.MaxFilesSubmission != nil {
		assignment.MaxFilesSubmission = *payload.MaxFilesSubmission
	}
}

// savePluginSettings lets every registered plugin map the assignment's
// settings into its config rows, then swaps the stored set.
func (s *assignmentService) savePluginSettings(ctx context.Context, assignment models.Assignment) ([]models.AssignPluginConfig, error) {
	var configs []models.AssignPluginConfig
	for _, p := range s.registry.All() {
		configs = append(configs, p.SaveSettings(assignment)...)
	}
	if err := s.configs.Replace(ctx, assignment.ID, configs); err != nil {
		return nil, err
	}
	return s.configs.ListByAssignment(ctx, assignment.ID)
}

func (s *assignmentService) Delete(ctx context.Context, id uint, actor Actor) error {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	if err := s.authz.RequireCapability(ctx, auth.CapabilityGrade, assignment.CourseID, actor.ID); err != nil {
		return err
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		return err
	}

	// File areas are cleaned after the records; a failure here leaves
	// orphans, never dangling records.
	for _, area := range []string{storage.AreaSubmissionFiles, storage.AreaFeedbackFiles, storage.AreaOnlineText} {
		key := storage.AreaKey{ContextID: id, Component: storage.Component, Area: area}
		if err := s.files.DeleteArea(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("area", area).Uint("assignment_id", id).Msg("failed to delete file area")
		}
	}

	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")
	return nil
}

// SubmissionWindow reports the effective submission window of an assignment
// for display on the status page.
func SubmissionWindow(assignment models.Assignment, reference time.Time) (open bool, opensAt, closesAt time.Time) {
	opensAt = assignment.AllowSubmissionsFromDate
	if assignment.PreventLateSubmissions && assignment.HasDueDate() {
		closesAt = assignment.DueDate
	}
	return assignment.SubmissionsOpenAt(reference), opensAt, closesAt
}
