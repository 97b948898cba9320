package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/auth"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/dto"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/plugin"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/repository"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/storage"
)

// ExternalService is the parameter-validated read API exposed to web-service
// clients. Authorization is evaluated per item; failures become warnings
// collected alongside the successful items and never abort the request.
type ExternalService interface {
	GetAssignments(ctx context.Context, actor Actor, request dto.GetAssignmentsRequest) (dto.GetAssignmentsResponse, error)
	GetSubmissions(ctx context.Context, actor Actor, request dto.GetSubmissionsRequest) (dto.GetSubmissionsResponse, error)
}

type externalService struct {
	courses     repository.CourseRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	configs     repository.PluginConfigRepository
	authz       auth.Authorizer
	files       storage.FileStore
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewExternalService constructs the read API service.
func NewExternalService(
	courses repository.CourseRepository,
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	configs repository.PluginConfigRepository,
	authz auth.Authorizer,
	files storage.FileStore,
	validate *validator.Validate,
	logger zerolog.Logger,
) ExternalService {
	return &externalService{
		courses:     courses,
		assignments: assignments,
		submissions: submissions,
		configs:     configs,
		authz:       authz,
		files:       files,
		validator:   validate,
		logger:      logger.With().Str("component", "external_service").Logger(),
	}
}

func (s *externalService) GetAssignments(ctx context.Context, actor Actor, request dto.GetAssignmentsRequest) (dto.GetAssignmentsResponse, error) {
	if err := s.validator.Struct(request); err != nil {
		return dto.GetAssignmentsResponse{}, err
	}

	response := dto.GetAssignmentsResponse{
		Courses:  []dto.ExternalCourse{},
		Warnings: []dto.Warning{},
	}

	enrolled, err := s.courses.ListEnrolled(ctx, actor.ID)
	if err != nil {
		return dto.GetAssignmentsResponse{}, err
	}

	// Track explicitly requested ids so the unreachable ones get their own
	// warning, distinct from per-course access failures.
	unavailable := map[uint]bool{}
	for _, id := range request.CourseIDs {
		unavailable[id] = true
	}

	candidates := enrolled
	if len(request.CourseIDs) > 0 {
		candidates = candidates[:0]
		for _, course := range enrolled {
			if unavailable[course.ID] {
				delete(unavailable, course.ID)
				candidates = append(candidates, course)
			}
		}
	}

	for _, course := range candidates {
		ok, err := s.authz.HasCapability(ctx, auth.CapabilityViewParticipants, course.ID, actor.ID)
		if err != nil {
			return dto.GetAssignmentsResponse{}, err
		}
		if !ok {
			response.Warnings = append(response.Warnings, dto.Warning{
				Item:        "course",
				ItemID:      course.ID,
				WarningCode: dto.WarningCodeNoAccess,
				Message:     "No access rights in course context",
			})
			continue
		}

		filtered, err := s.lacksExtraCapability(ctx, actor, course.ID, request.Capabilities)
		if err != nil {
			return dto.GetAssignmentsResponse{}, err
		}
		if filtered {
			continue
		}

		entry, warnings, err := s.courseEntry(ctx, actor, course)
		if err != nil {
			return dto.GetAssignmentsResponse{}, err
		}
		response.Warnings = append(response.Warnings, warnings...)
		response.Courses = append(response.Courses, entry)
	}

	for id := range unavailable {
		response.Warnings = append(response.Warnings, dto.Warning{
			Item:        "course",
			ItemID:      id,
			WarningCode: dto.WarningCodeNotAvailable,
			Message:     "User is not enrolled or does not have requested capability",
		})
	}

	return response, nil
}

// lacksExtraCapability applies the ANDed capability filter from the request.
func (s *externalService) lacksExtraCapability(ctx context.Context, actor Actor, courseID uint, capabilities []string) (bool, error) {
	for _, capability := range capabilities {
		ok, err := s.authz.HasCapability(ctx, capability, courseID, actor.ID)
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *externalService) courseEntry(ctx context.Context, actor Actor, course models.Course) (dto.ExternalCourse, []dto.Warning, error) {
	entry := dto.ExternalCourse{
		ID:           course.ID,
		FullName:     course.FullName,
		ShortName:    course.ShortName,
		TimeModified: course.UpdatedAt.Unix(),
		Assignments:  []dto.ExternalAssignment{},
	}

	assignments, err := s.assignments.ListByCourse(ctx, course.ID)
	if err != nil {
		return dto.ExternalCourse{}, nil, err
	}

	var warnings []dto.Warning
	for _, assignment := range assignments {
		ok, err := s.authz.HasCapability(ctx, auth.CapabilityView, assignment.CourseID, actor.ID)
		if err != nil {
			return dto.ExternalCourse{}, nil, err
		}
		if !ok {
			warnings = append(warnings, dto.Warning{
				Item:        "module",
				ItemID:      assignment.ID,
				WarningCode: dto.WarningCodeNoAccess,
				Message:     "No access rights in module context",
			})
			continue
		}

		configs, err := s.configs.ListByAssignment(ctx, assignment.ID)
		if err != nil {
			return dto.ExternalCourse{}, nil, err
		}

		entry.Assignments = append(entry.Assignments, newExternalAssignment(assignment, configs))
	}

	return entry, warnings, nil
}

func newExternalAssignment(assignment models.Assignment, configs []models.AssignPluginConfig) dto.ExternalAssignment {
	external := dto.ExternalAssignment{
		ID:                     assignment.ID,
		Course:                 assignment.CourseID,
		Name:                   assignment.Name,
		PreventLateSubmissions: assignment.PreventLateSubmissions,
		SubmissionDrafts:       assignment.SubmissionDrafts,
		SendNotifications:      assignment.SendNotifications,
		Grade:                  assignment.Grade,
		TimeModified:           assignment.UpdatedAt.Unix(),
		Configs:                []dto.ConfigResponse{},
	}
	if assignment.HasDueDate() {
		external.DueDate = assignment.DueDate.Unix()
	}
	if !assignment.AllowSubmissionsFromDate.IsZero() {
		external.AllowSubmissionsFromDate = assignment.AllowSubmissionsFromDate.Unix()
	}
	for _, config := range configs {
		external.Configs = append(external.Configs, dto.NewConfigResponse(config))
	}
	return external
}

func (s *externalService) GetSubmissions(ctx context.Context, actor Actor, request dto.GetSubmissionsRequest) (dto.GetSubmissionsResponse, error) {
	if err := s.validator.Struct(request); err != nil {
		return dto.GetSubmissionsResponse{}, err
	}

	response := dto.GetSubmissionsResponse{
		Assignments: []dto.AssignmentSubmissions{},
		Warnings:    []dto.Warning{},
	}

	// Per-assignment grade capability gate; failing ids are dropped with a
	// warning and excluded from the query.
	var granted []models.Assignment
	for _, id := range request.AssignmentIDs {
		assignment, err := s.assignments.GetByID(ctx, id)
		if err == nil {
			ok, capErr := s.authz.HasCapability(ctx, auth.CapabilityGrade, assignment.CourseID, actor.ID)
			if capErr != nil {
				return dto.GetSubmissionsResponse{}, capErr
			}
			if ok {
				granted = append(granted, assignment)
				continue
			}
		}
		response.Warnings = append(response.Warnings, dto.Warning{
			Item:        "assignment",
			ItemID:      id,
			WarningCode: dto.WarningCodeNotAvailable,
			Message:     "User is not enrolled or does not have requested capability",
		})
	}

	filter := repository.SubmissionListFilter{Status: request.Status}
	for _, assignment := range granted {
		filter.AssignmentIDs = append(filter.AssignmentIDs, assignment.ID)
	}
	if request.Since > 0 {
		filter.Since = time.Unix(request.Since, 0)
	}
	if request.Before > 0 {
		filter.Before = time.Unix(request.Before, 0)
	}

	var submissions []models.Submission
	if len(filter.AssignmentIDs) > 0 {
		var err error
		submissions, err = s.submissions.ListForAssignments(ctx, filter)
		if err != nil {
			return dto.GetSubmissionsResponse{}, err
		}
	}

	// Submissions arrive ordered by (assignment, id); group in one pass.
	grouped := map[uint][]dto.ExternalSubmission{}
	for _, submission := range submissions {
		grouped[submission.AssignmentID] = append(grouped[submission.AssignmentID], s.externalSubmission(ctx, submission))
	}

	for _, assignment := range granted {
		items, ok := grouped[assignment.ID]
		if !ok {
			response.Warnings = append(response.Warnings, dto.Warning{
				Item:        "assignment",
				ItemID:      assignment.ID,
				WarningCode: dto.WarningCodeNoSubmissions,
				Message:     "No submissions found",
			})
			continue
		}
		response.Assignments = append(response.Assignments, dto.AssignmentSubmissions{
			AssignmentID: assignment.ID,
			Submissions:  items,
		})
	}

	return response, nil
}

func (s *externalService) externalSubmission(ctx context.Context, submission models.Submission) dto.ExternalSubmission {
	external := dto.ExternalSubmission{
		ID:           submission.ID,
		UserID:       submission.UserID,
		Status:       submission.Status,
		OnlineText:   plugin.StripOnlineText(submission.OnlineText),
		TimeCreated:  submission.CreatedAt.Unix(),
		TimeModified: submission.UpdatedAt.Unix(),
		Files:        []dto.ExternalFile{},
	}

	key := storage.AreaKey{
		ContextID: submission.AssignmentID,
		Component: storage.Component,
		Area:      storage.AreaSubmissionFiles,
		ItemID:    submission.UserID,
	}
	files, err := s.files.List(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to list submission files")
		return external
	}
	for _, file := range files {
		external.Files = append(external.Files, dto.ExternalFile{
			Name:     file.Name,
			Size:     file.Size,
			Modified: file.Modified.Unix(),
		})
	}
	return external
}
