package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/auth"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/dto"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/repository"
)

const defaultGradingPageSize = 10

// ErrRowOutOfRange mirrors the repository sentinel for handler mapping.
var ErrRowOutOfRange = repository.ErrRowOutOfRange

// GradingTableService produces the paginated grading view for teachers.
type GradingTableService interface {
	Page(ctx context.Context, assignmentID uint, actor Actor, request dto.GradingTableRequest) (dto.GradingTablePage, error)
	// UserIDForRow resolves next/previous-student navigation by re-running
	// the same filtered query restricted to one row.
	UserIDForRow(ctx context.Context, assignmentID uint, actor Actor, request dto.GradingTableRequest, row int) (uint, error)
	Preferences(ctx context.Context, actor Actor) (dto.GradingPreferences, error)
	SavePreferences(ctx context.Context, actor Actor, prefs dto.GradingPreferences) error
	Summary(ctx context.Context, assignmentID uint, actor Actor) (dto.GradingSummaryResponse, error)
}

type gradingTableService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	table       repository.GradingTableRepository
	courses     repository.CourseRepository
	authz       auth.Authorizer
	redis       *redis.Client
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewGradingTableService constructs the grading table service.
func NewGradingTableService(
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	table repository.GradingTableRepository,
	courses repository.CourseRepository,
	authz auth.Authorizer,
	redisClient *redis.Client,
	validate *validator.Validate,
	logger zerolog.Logger,
) GradingTableService {
	return &gradingTableService{
		assignments: assignments,
		submissions: submissions,
		table:       table,
		courses:     courses,
		authz:       authz,
		redis:       redisClient,
		validator:   validate,
		logger:      logger.With().Str("component", "grading_table_service").Logger(),
	}
}

func (s *gradingTableService) query(ctx context.Context, assignmentID uint, actor Actor, request dto.GradingTableRequest) (models.Assignment, repository.GradingTableQuery, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, repository.GradingTableQuery{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, repository.GradingTableQuery{}, err
	}

	if err := s.authz.RequireCapability(ctx, auth.CapabilityGrade, assignment.CourseID, actor.ID); err != nil {
		return models.Assignment{}, repository.GradingTableQuery{}, err
	}

	participants, err := s.authz.UsersWithCapability(ctx, auth.CapabilitySubmit, assignment.CourseID)
	if err != nil {
		return models.Assignment{}, repository.GradingTableQuery{}, err
	}
	userIDs := make([]uint, 0, len(participants))
	for _, user := range participants {
		userIDs = append(userIDs, user.ID)
	}

	pageSize := request.PageSize
	if pageSize == 0 {
		pageSize = defaultGradingPageSize
	}

	return assignment, repository.GradingTableQuery{
		AssignmentID: assignment.ID,
		UserIDs:      userIDs,
		Filter:       request.Filter,
		SortBy:       request.SortBy,
		SortDesc:     request.SortDesc,
		Page:         request.Page,
		PageSize:     pageSize,
	}, nil
}

func (s *gradingTableService) Page(ctx context.Context, assignmentID uint, actor Actor, request dto.GradingTableRequest) (dto.GradingTablePage, error) {
	if err := s.validator.Struct(request); err != nil {
		return dto.GradingTablePage{}, err
	}

	assignment, query, err := s.query(ctx, assignmentID, actor, request)
	if err != nil {
		return dto.GradingTablePage{}, err
	}

	total, err := s.table.Count(ctx, query)
	if err != nil {
		return dto.GradingTablePage{}, err
	}

	rows, err := s.table.Rows(ctx, query)
	if err != nil {
		return dto.GradingTablePage{}, err
	}

	page := dto.GradingTablePage{
		Total:    total,
		Page:     query.Page,
		PageSize: query.PageSize,
		Rows:     make([]dto.GradingTableRowResponse, 0, len(rows)),
	}
	for _, row := range rows {
		page.Rows = append(page.Rows, s.renderRow(ctx, assignment, row))
	}
	return page, nil
}

func (s *gradingTableService) renderRow(ctx context.Context, assignment models.Assignment, row repository.GradingTableRow) dto.GradingTableRowResponse {
	rendered := dto.GradingTableRowResponse{
		UserID:        row.UserID,
		FullName:      strings.TrimSpace(row.FirstName + " " + row.LastName),
		Email:         row.Email,
		Status:        "no submission",
		GradeDisplay:  "-",
		TimeSubmitted: row.TimeSubmitted,
		TimeMarked:    row.TimeMarked,
	}
	if row.SubmissionID == nil {
		rendered.TimeSubmitted = nil
	}
	if row.Status != nil {
		rendered.Status = *row.Status
	}
	if row.Comment != nil {
		rendered.Comment = *row.Comment
	}
	if row.FeedbackText != nil {
		rendered.Feedback = *row.FeedbackText
	}
	if row.Locked != nil {
		rendered.Locked = *row.Locked
	}
	if row.GradeID != nil && row.Grade != nil {
		rendered.GradeDisplay = DisplayGrade(ctx, s.courses, assignment, *row.Grade)
	} else {
		rendered.TimeMarked = nil
		if !assignment.IsGraded() {
			rendered.GradeDisplay = ""
		}
	}
	return rendered
}

func (s *gradingTableService) UserIDForRow(ctx context.Context, assignmentID uint, actor Actor, request dto.GradingTableRequest, row int) (uint, error) {
	if err := s.validator.Struct(request); err != nil {
		return 0, err
	}

	_, query, err := s.query(ctx, assignmentID, actor, request)
	if err != nil {
		return 0, err
	}
	return s.table.UserIDForRow(ctx, query, row)
}

func gradingPrefsKey(userID uint) string {
	return fmt.Sprintf("assign:grading_prefs:%d", userID)
}

func (s *gradingTableService) Preferences(ctx context.Context, actor Actor) (dto.GradingPreferences, error) {
	prefs := dto.GradingPreferences{PageSize: defaultGradingPageSize}
	if s.redis == nil {
		return prefs, nil
	}

	raw, err := s.redis.Get(ctx, gradingPrefsKey(actor.ID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return prefs, nil
		}
		return prefs, err
	}
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", actor.ID).Msg("discarding corrupt grading preferences")
		return dto.GradingPreferences{PageSize: defaultGradingPageSize}, nil
	}
	return prefs, nil
}

func (s *gradingTableService) SavePreferences(ctx context.Context, actor Actor, prefs dto.GradingPreferences) error {
	if err := s.validator.Struct(prefs); err != nil {
		return err
	}
	if s.redis == nil {
		return nil
	}

	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, gradingPrefsKey(actor.ID), raw, 0).Err()
}

func (s *gradingTableService) Summary(ctx context.Context, assignmentID uint, actor Actor) (dto.GradingSummaryResponse, error) {
	assignment, query, err := s.query(ctx, assignmentID, actor, dto.GradingTableRequest{})
	if err != nil {
		return dto.GradingSummaryResponse{}, err
	}

	drafts, err := s.submissions.CountWithStatus(ctx, assignment.ID, models.SubmissionStatusDraft)
	if err != nil {
		return dto.GradingSummaryResponse{}, err
	}
	submitted, err := s.submissions.CountWithStatus(ctx, assignment.ID, models.SubmissionStatusSubmitted)
	if err != nil {
		return dto.GradingSummaryResponse{}, err
	}

	return dto.GradingSummaryResponse{
		Participants: int64(len(query.UserIDs)),
		Drafts:       drafts,
		Submitted:    submitted,
	}, nil
}
