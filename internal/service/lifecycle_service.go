package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/auth"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/dto"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/gradebook"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/observability"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/plugin"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/repository"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/storage"
)

// Actor identifies the user performing a lifecycle operation.
type Actor struct {
	ID uint
}

// GraderNotifier delivers best-effort notifications to graders when a
// student finalizes a submission. Failures never surface to the caller.
type GraderNotifier interface {
	SubmittedForGrading(ctx context.Context, assignment models.Assignment, submitter models.User, submission models.Submission)
}

// LifecycleService is the state machine over submission status and grade
// lock. Every transition runs its capability gate, mutates state through the
// repositories and mirrors the result into the gradebook synchronously.
type LifecycleService interface {
	SaveSubmission(ctx context.Context, assignmentID uint, actor Actor, payload dto.SaveSubmissionRequest, files []plugin.UploadedFile) (dto.SubmissionResponse, error)
	SubmitForGrading(ctx context.Context, assignmentID uint, actor Actor) (dto.SubmissionResponse, error)
	RevertToDraft(ctx context.Context, assignmentID uint, actor Actor, userID uint) (dto.SubmissionResponse, error)
	Lock(ctx context.Context, assignmentID uint, actor Actor, userID uint) (dto.GradeResponse, error)
	Unlock(ctx context.Context, assignmentID uint, actor Actor, userID uint) (dto.GradeResponse, error)
	SaveGrade(ctx context.Context, assignmentID uint, actor Actor, userID uint, payload dto.SaveGradeRequest) (dto.GradeResponse, error)
	// DownloadSubmissions packs every participant's submission files into a
	// single zip archive for offline marking.
	DownloadSubmissions(ctx context.Context, assignmentID uint, actor Actor) ([]byte, error)
}

type lifecycleService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	grades      repository.GradeRepository
	users       repository.UserRepository
	audit       repository.AuditLogRepository
	authz       auth.Authorizer
	gradebook   gradebook.Gradebook
	notifier    GraderNotifier
	registry    *plugin.Registry
	files       storage.FileStore
	courses     repository.CourseRepository
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewLifecycleService constructs the lifecycle controller.
func NewLifecycleService(
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	grades repository.GradeRepository,
	users repository.UserRepository,
	audit repository.AuditLogRepository,
	authz auth.Authorizer,
	book gradebook.Gradebook,
	notifier GraderNotifier,
	registry *plugin.Registry,
	files storage.FileStore,
	courses repository.CourseRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) LifecycleService {
	return &lifecycleService{
		assignments: assignments,
		submissions: submissions,
		grades:      grades,
		users:       users,
		audit:       audit,
		authz:       authz,
		gradebook:   book,
		notifier:    notifier,
		registry:    registry,
		files:       files,
		courses:     courses,
		validator:   validate,
		logger:      logger.With().Str("component", "lifecycle_service").Logger(),
		tracer:      otel.Tracer("github.com/Lightwork-Marking/moodle-mod-assign/internal/service/lifecycle"),
		now:         time.Now,
	}
}

func (s *lifecycleService) assignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

// submissionsOpen checks the submission window for a student. The grade lock
// is checked separately so the caller can surface the distinct error.
func (s *lifecycleService) submissionsOpen(ctx context.Context, assignment models.Assignment, userID uint) (bool, error) {
	if !assignment.SubmissionsOpenAt(s.now()) {
		return false, nil
	}

	enrolled, err := s.authz.IsEnrolled(ctx, assignment.CourseID, userID)
	if err != nil {
		return false, err
	}
	if !enrolled {
		return false, nil
	}

	submission, err := s.submissions.GetOrCreate(ctx, assignment, userID, false)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err == nil && assignment.SubmissionDrafts && submission.IsSubmitted() {
		// Drafts are tracked and the student already finalized.
		return false, nil
	}

	return true, nil
}

func (s *lifecycleService) gradeLocked(ctx context.Context, assignmentID, userID uint) (bool, error) {
	grade, err := s.grades.GetOrCreate(ctx, assignmentID, userID, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return grade.Locked, nil
}

func (s *lifecycleService) SaveSubmission(ctx context.Context, assignmentID uint, actor Actor, payload dto.SaveSubmissionRequest, files []plugin.UploadedFile) (dto.SubmissionResponse, error) {
	defer s.observe("save", s.now())

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignment(ctx, assignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if err := s.authz.RequireCapability(ctx, auth.CapabilityView, assignment.CourseID, actor.ID); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if err := s.authz.RequireCapability(ctx, auth.CapabilitySubmit, assignment.CourseID, actor.ID); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if !s.registry.AnyEnabled(assignment) {
		return dto.SubmissionResponse{}, ErrNoSubmissionPlugins
	}

	locked, err := s.gradeLocked(ctx, assignment.ID, actor.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if locked {
		return dto.SubmissionResponse{}, ErrSubmissionLocked
	}

	open, err := s.submissionsOpen(ctx, assignment, actor.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !open {
		return dto.SubmissionResponse{}, ErrSubmissionsClosed
	}

	submission, err := s.submissions.GetOrCreate(ctx, assignment, actor.ID, true)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	data := plugin.SaveData{
		OnlineText:   payload.OnlineText,
		OnlineFormat: payload.OnlineFormat,
		Comment:      payload.Comment,
		Files:        files,
	}
	for _, p := range s.registry.All() {
		if err := p.Save(ctx, assignment, &submission, data); err != nil {
			return dto.SubmissionResponse{}, fmt.Errorf("%s plugin: %w", p.Name(), err)
		}
	}
	if assignment.SubmissionComments {
		submission.Comment = payload.Comment
		submission.CommentFormat = payload.OnlineFormat
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.pushGradebook(ctx, assignment, actor.ID)
	s.recordAudit(ctx, assignment.ID, actor.ID, "submit", s.describeSubmission(submission))

	// Without drafts a save is already final, so graders hear about it now.
	if !assignment.SubmissionDrafts {
		s.notifyGraders(ctx, assignment, submission)
	}

	observability.LifecycleTransitions().WithLabelValues("save").Inc()
	return dto.NewSubmissionResponse(submission), nil
}

func (s *lifecycleService) SubmitForGrading(ctx context.Context, assignmentID uint, actor Actor) (dto.SubmissionResponse, error) {
	defer s.observe("submit", s.now())

	assignment, err := s.assignment(ctx, assignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if err := s.authz.RequireCapability(ctx, auth.CapabilityView, assignment.CourseID, actor.ID); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if err := s.authz.RequireCapability(ctx, auth.CapabilitySubmit, assignment.CourseID, actor.ID); err != nil {
		return dto.SubmissionResponse{}, err
	}

	locked, err := s.gradeLocked(ctx, assignment.ID, actor.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if locked {
		return dto.SubmissionResponse{}, ErrSubmissionLocked
	}

	open, err := s.submissionsOpen(ctx, assignment, actor.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !open {
		return dto.SubmissionResponse{}, ErrSubmissionsClosed
	}

	submission, err := s.submissions.GetOrCreate(ctx, assignment, actor.ID, true)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission.Status = models.SubmissionStatusSubmitted
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.pushGradebook(ctx, assignment, actor.ID)
	s.recordAudit(ctx, assignment.ID, actor.ID, "submit for grading", s.describeSubmission(submission))
	s.notifyGraders(ctx, assignment, submission)

	observability.LifecycleTransitions().WithLabelValues("submit").Inc()
	return dto.NewSubmissionResponse(submission), nil
}

func (s *lifecycleService) RevertToDraft(ctx context.Context, assignmentID uint, actor Actor, userID uint) (dto.SubmissionResponse, error) {
	defer s.observe("revert", s.now())

	assignment, err := s.assignment(ctx, assignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if err := s.requireGrader(ctx, assignment, actor); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetOrCreate(ctx, assignment, userID, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	submission.Status = models.SubmissionStatusDraft
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	// Touch the grade so the teacher action is attributed even though no
	// grade value changed.
	grade, err := s.grades.GetOrCreate(ctx, assignment.ID, userID, true)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if err := s.grades.Update(ctx, &grade); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.pushGradebook(ctx, assignment, userID)
	s.recordAudit(ctx, assignment.ID, actor.ID, "revert submission to draft", fmt.Sprintf("user %d", userID))

	observability.LifecycleTransitions().WithLabelValues("revert").Inc()
	return dto.NewSubmissionResponse(submission), nil
}

func (s *lifecycleService) Lock(ctx context.Context, assignmentID uint, actor Actor, userID uint) (dto.GradeResponse, error) {
	return s.setLocked(ctx, assignmentID, actor, userID, true)
}

func (s *lifecycleService) Unlock(ctx context.Context, assignmentID uint, actor Actor, userID uint) (dto.GradeResponse, error) {
	return s.setLocked(ctx, assignmentID, actor, userID, false)
}

func (s *lifecycleService) setLocked(ctx context.Context, assignmentID uint, actor Actor, userID uint, locked bool) (dto.GradeResponse, error) {
	action := "lock submission"
	if !locked {
		action = "unlock submission"
	}
	defer s.observe(action, s.now())

	assignment, err := s.assignment(ctx, assignmentID)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	if err := s.requireGrader(ctx, assignment, actor); err != nil {
		return dto.GradeResponse{}, err
	}

	grade, err := s.grades.GetOrCreate(ctx, assignment.ID, userID, true)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	grade.Locked = locked
	if err := s.grades.Update(ctx, &grade); err != nil {
		return dto.GradeResponse{}, err
	}

	s.pushGradebook(ctx, assignment, userID)
	s.recordAudit(ctx, assignment.ID, actor.ID, action, fmt.Sprintf("user %d", userID))

	observability.LifecycleTransitions().WithLabelValues(action).Inc()
	return dto.NewGradeResponse(grade, s.displayGrade(ctx, assignment, grade.Grade)), nil
}

func (s *lifecycleService) SaveGrade(ctx context.Context, assignmentID uint, actor Actor, userID uint, payload dto.SaveGradeRequest) (dto.GradeResponse, error) {
	defer s.observe("grade", s.now())

	ctx, span := s.tracer.Start(ctx, "lifecycle.save_grade")
	span.SetAttributes(
		attribute.Int64("assignment.id", int64(assignmentID)),
		attribute.Int64("grading.user_id", int64(userID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradeResponse{}, err
	}

	assignment, err := s.assignment(ctx, assignmentID)
	if err != nil {
		span.RecordError(err)
		return dto.GradeResponse{}, err
	}

	if err := s.requireGrader(ctx, assignment, actor); err != nil {
		span.SetStatus(codes.Error, "permission_denied")
		return dto.GradeResponse{}, err
	}

	if assignment.Grade > 0 && payload.Grade > float64(assignment.Grade) {
		span.SetStatus(codes.Error, "grade_out_of_range")
		return dto.GradeResponse{}, ErrGradeOutOfRange
	}

	grade, err := s.grades.GetOrCreate(ctx, assignment.ID, userID, true)
	if err != nil {
		span.RecordError(err)
		return dto.GradeResponse{}, err
	}

	grade.Grade = payload.Grade
	grade.GraderID = actor.ID
	grade.FeedbackText = payload.Feedback

	feedbackKey := storage.AreaKey{
		ContextID: assignment.ID,
		Component: storage.Component,
		Area:      storage.AreaFeedbackFiles,
		ItemID:    userID,
	}
	if count, err := storage.CountFiles(ctx, s.files, feedbackKey); err == nil {
		grade.NumFeedbackFiles = count
	} else {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to count feedback files")
	}

	if err := s.grades.Update(ctx, &grade); err != nil {
		span.RecordError(err)
		return dto.GradeResponse{}, err
	}

	history := models.GradeHistory{
		GradeID:      grade.ID,
		AssignmentID: assignment.ID,
		UserID:       userID,
		GraderID:     actor.ID,
		Grade:        payload.Grade,
		FeedbackText: payload.Feedback,
		GradedAt:     s.now(),
	}
	if err := s.grades.CreateHistory(ctx, &history); err != nil {
		s.logger.Warn().Err(err).Uint("grade_id", grade.ID).Msg("failed to persist grade history")
		span.RecordError(err)
	}

	s.pushGradebook(ctx, assignment, userID)
	s.recordAudit(ctx, assignment.ID, actor.ID, "grade submission", s.describeGrade(grade))

	span.SetAttributes(attribute.Float64("grading.grade", payload.Grade))
	observability.LifecycleTransitions().WithLabelValues("grade").Inc()
	return dto.NewGradeResponse(grade, s.displayGrade(ctx, assignment, grade.Grade)), nil
}

func (s *lifecycleService) DownloadSubmissions(ctx context.Context, assignmentID uint, actor Actor) ([]byte, error) {
	defer s.observe("download", s.now())

	assignment, err := s.assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	if err := s.requireGrader(ctx, assignment, actor); err != nil {
		return nil, err
	}

	participants, err := s.authz.UsersWithCapability(ctx, auth.CapabilitySubmit, assignment.CourseID)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]storage.AreaKey, len(participants))
	for _, user := range participants {
		dir := fmt.Sprintf("%s_%d", strings.ReplaceAll(user.FullName(), " ", "_"), user.ID)
		entries[dir] = storage.AreaKey{
			ContextID: assignment.ID,
			Component: storage.Component,
			Area:      storage.AreaSubmissionFiles,
			ItemID:    user.ID,
		}
	}

	archive, err := storage.ZipArea(ctx, s.files, entries)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, assignment.ID, actor.ID, "download all submissions", fmt.Sprintf("%d participants", len(participants)))
	return archive, nil
}

func (s *lifecycleService) requireGrader(ctx context.Context, assignment models.Assignment, actor Actor) error {
	if err := s.authz.RequireCapability(ctx, auth.CapabilityView, assignment.CourseID, actor.ID); err != nil {
		return err
	}
	return s.authz.RequireCapability(ctx, auth.CapabilityGrade, assignment.CourseID, actor.ID)
}

// pushGradebook mirrors the current submission/grade state into the course
// gradebook. Failures are logged; the primary mutation stays committed.
func (s *lifecycleService) pushGradebook(ctx context.Context, assignment models.Assignment, userID uint) {
	entry := gradebook.Entry{}

	submission, err := s.submissions.GetOrCreate(ctx, assignment, userID, false)
	if err == nil && submission.IsSubmitted() {
		submitted := submission.UpdatedAt
		entry.DateSubmitted = &submitted
	}

	grade, err := s.grades.GetOrCreate(ctx, assignment.ID, userID, false)
	if err == nil {
		if grade.IsGraded() {
			value := grade.Grade
			entry.RawGrade = &value
			graded := grade.UpdatedAt
			entry.DateGraded = &graded
		}
		entry.GraderID = grade.GraderID
		entry.Feedback = grade.FeedbackText
	}

	if err := s.gradebook.PushGrade(ctx, assignment.CourseID, assignment.ID, userID, entry); err != nil {
		observability.GradebookPushFailures().Inc()
		s.logger.Error().Err(err).
			Uint("assignment_id", assignment.ID).
			Uint("user_id", userID).
			Msg("gradebook push failed")
	}
}

func (s *lifecycleService) notifyGraders(ctx context.Context, assignment models.Assignment, submission models.Submission) {
	if s.notifier == nil || !assignment.SendNotifications {
		return
	}
	submitter, err := s.users.GetByID(ctx, submission.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("user_id", submission.UserID).Msg("failed to load submitter for notification")
		return
	}
	s.notifier.SubmittedForGrading(ctx, assignment, submitter, submission)
}

func (s *lifecycleService) recordAudit(ctx context.Context, assignmentID, actorID uint, action, info string) {
	entry := models.AuditLogEntry{
		AssignmentID: assignmentID,
		ActorID:      actorID,
		Action:       action,
		Info:         info,
	}
	if err := s.audit.Create(ctx, &entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to write audit entry")
	}
}

func (s *lifecycleService) describeSubmission(submission models.Submission) string {
	return fmt.Sprintf("user %d status %s files %d", submission.UserID, submission.Status, submission.NumFiles)
}

func (s *lifecycleService) describeGrade(grade models.Grade) string {
	return fmt.Sprintf("user %d grade %.2f grader %d", grade.UserID, grade.Grade, grade.GraderID)
}

func (s *lifecycleService) displayGrade(ctx context.Context, assignment models.Assignment, value float64) string {
	return DisplayGrade(ctx, s.courses, assignment, value)
}

func (s *lifecycleService) observe(action string, start time.Time) {
	observability.LifecycleLatency().WithLabelValues(action).Observe(s.now().Sub(start).Seconds())
}
