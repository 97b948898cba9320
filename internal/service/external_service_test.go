package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/auth"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/dto"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/storage"
)

// fakeEnrolledCourses resolves course enrollment per user, unlike the
// simpler course fake the lifecycle tests use.
type fakeEnrolledCourses struct {
	courses  map[uint]models.Course
	enrolled map[uint][]uint // userID -> courseIDs in listing order
}

func (m *fakeEnrolledCourses) GetByID(_ context.Context, id uint) (models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return models.Course{}, gorm.ErrRecordNotFound
	}
	return course, nil
}

func (m *fakeEnrolledCourses) ListEnrolled(_ context.Context, userID uint) ([]models.Course, error) {
	var results []models.Course
	for _, id := range m.enrolled[userID] {
		results = append(results, m.courses[id])
	}
	return results, nil
}

func (m *fakeEnrolledCourses) GetScale(_ context.Context, _ uint) (models.Scale, error) {
	return models.Scale{}, gorm.ErrRecordNotFound
}

type fakePluginConfigRepo struct {
	configs map[uint][]models.AssignPluginConfig
}

func (m *fakePluginConfigRepo) ListByAssignment(_ context.Context, assignmentID uint) ([]models.AssignPluginConfig, error) {
	return m.configs[assignmentID], nil
}

func (m *fakePluginConfigRepo) Replace(_ context.Context, assignmentID uint, configs []models.AssignPluginConfig) error {
	m.configs[assignmentID] = configs
	return nil
}

type externalFixture struct {
	service     ExternalService
	assignments *fakeAssignmentRepo
	submissions *fakeSubmissionRepo
	configs     *fakePluginConfigRepo
	authz       *fakeAuthorizer
	files       storage.FileStore
	student     models.User
	teacher     models.User
}

// newExternalFixture seeds two courses. Both users are enrolled in course 1;
// only the student is enrolled in course 2.
func newExternalFixture(t *testing.T) *externalFixture {
	t.Helper()

	assignments := newFakeAssignmentRepo()
	submissions := newFakeSubmissionRepo()
	configs := &fakePluginConfigRepo{configs: make(map[uint][]models.AssignPluginConfig)}
	authz := newFakeAuthorizer()
	files := storage.NewMemoryStore()

	student := models.User{ID: 10, FirstName: "Sam", LastName: "Student", Email: "sam@example.com"}
	teacher := models.User{ID: 20, FirstName: "Tess", LastName: "Teacher", Email: "tess@example.com"}
	authz.enroll(1, student, models.RoleStudent)
	authz.enroll(1, teacher, models.RoleTeacher)
	authz.enroll(2, student, models.RoleStudent)

	courses := &fakeEnrolledCourses{
		courses: map[uint]models.Course{
			1: {ID: 1, FullName: "Intro", ShortName: "I101"},
			2: {ID: 2, FullName: "Advanced", ShortName: "A201"},
		},
		enrolled: map[uint][]uint{
			student.ID: {1, 2},
			teacher.ID: {1},
		},
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	svc := NewExternalService(courses, assignments, submissions, configs, authz, files, validate, logger)
	return &externalFixture{
		service:     svc,
		assignments: assignments,
		submissions: submissions,
		configs:     configs,
		authz:       authz,
		files:       files,
		student:     student,
		teacher:     teacher,
	}
}

func TestGetAssignmentsListsCoursesWithConfigs(t *testing.T) {
	fx := newExternalFixture(t)
	ctx := context.Background()

	assignment := models.Assignment{CourseID: 1, Name: "Essay", Grade: 100, SubmissionDrafts: true}
	require.NoError(t, fx.assignments.Create(ctx, &assignment))
	fx.configs.configs[assignment.ID] = []models.AssignPluginConfig{
		{AssignmentID: assignment.ID, Plugin: "onlinetext", Subtype: "assignsubmission", Name: "enabled", Value: "1"},
	}

	response, err := fx.service.GetAssignments(ctx, Actor{ID: fx.teacher.ID}, dto.GetAssignmentsRequest{})
	require.NoError(t, err)
	require.Empty(t, response.Warnings)
	require.Len(t, response.Courses, 1)

	course := response.Courses[0]
	require.Equal(t, uint(1), course.ID)
	require.Len(t, course.Assignments, 1)
	require.Equal(t, "Essay", course.Assignments[0].Name)
	require.True(t, course.Assignments[0].SubmissionDrafts)
	require.Len(t, course.Assignments[0].Configs, 1)
	require.Equal(t, "enabled", course.Assignments[0].Configs[0].Name)
}

func TestGetAssignmentsWarnsOnCourseWithoutAccess(t *testing.T) {
	fx := newExternalFixture(t)

	// Students cannot view the participant list, so every enrolled course
	// resolves to a code "1" warning.
	response, err := fx.service.GetAssignments(context.Background(), Actor{ID: fx.student.ID}, dto.GetAssignmentsRequest{})
	require.NoError(t, err)
	require.Empty(t, response.Courses)
	require.Len(t, response.Warnings, 2)
	for _, warning := range response.Warnings {
		require.Equal(t, "course", warning.Item)
		require.Equal(t, dto.WarningCodeNoAccess, warning.WarningCode)
	}
}

func TestGetAssignmentsWarnsOnUnavailableCourse(t *testing.T) {
	fx := newExternalFixture(t)

	// Course 2 exists but the teacher is not enrolled; course 99 does not
	// exist at all. Both get a code "2" warning.
	response, err := fx.service.GetAssignments(context.Background(), Actor{ID: fx.teacher.ID}, dto.GetAssignmentsRequest{
		CourseIDs: []uint{1, 2, 99},
	})
	require.NoError(t, err)
	require.Len(t, response.Courses, 1)
	require.Len(t, response.Warnings, 2)

	codes := map[uint]string{}
	for _, warning := range response.Warnings {
		require.Equal(t, "course", warning.Item)
		codes[warning.ItemID] = warning.WarningCode
	}
	require.Equal(t, dto.WarningCodeNotAvailable, codes[2])
	require.Equal(t, dto.WarningCodeNotAvailable, codes[99])
}

func TestGetAssignmentsCapabilityFilterDropsSilently(t *testing.T) {
	fx := newExternalFixture(t)

	response, err := fx.service.GetAssignments(context.Background(), Actor{ID: fx.teacher.ID}, dto.GetAssignmentsRequest{
		Capabilities: []string{auth.CapabilitySubmit},
	})
	require.NoError(t, err)
	// Teachers do not hold the submit capability; the course is dropped
	// without a warning.
	require.Empty(t, response.Courses)
	require.Empty(t, response.Warnings)
}

func TestGetSubmissionsGroupsPerAssignment(t *testing.T) {
	fx := newExternalFixture(t)
	ctx := context.Background()

	assignment := models.Assignment{CourseID: 1, Name: "Essay"}
	require.NoError(t, fx.assignments.Create(ctx, &assignment))

	submission, err := fx.submissions.GetOrCreate(ctx, assignment, fx.student.ID, true)
	require.NoError(t, err)
	submission.OnlineText = "<p>my <b>answer</b></p>"
	require.NoError(t, fx.submissions.Update(ctx, &submission))

	key := storage.AreaKey{ContextID: assignment.ID, Component: storage.Component, Area: storage.AreaSubmissionFiles, ItemID: fx.student.ID}
	require.NoError(t, fx.files.Put(ctx, key, "essay.pdf", strings.NewReader("pdf bytes"), 9))

	response, err := fx.service.GetSubmissions(ctx, Actor{ID: fx.teacher.ID}, dto.GetSubmissionsRequest{
		AssignmentIDs: []uint{assignment.ID},
	})
	require.NoError(t, err)
	require.Empty(t, response.Warnings)
	require.Len(t, response.Assignments, 1)
	require.Equal(t, assignment.ID, response.Assignments[0].AssignmentID)
	require.Len(t, response.Assignments[0].Submissions, 1)

	item := response.Assignments[0].Submissions[0]
	require.Equal(t, fx.student.ID, item.UserID)
	require.Equal(t, "my answer", item.OnlineText, "markup must be stripped")
	require.Len(t, item.Files, 1)
	require.Equal(t, "essay.pdf", item.Files[0].Name)
}

func TestGetSubmissionsWarnsWithoutGradeCapability(t *testing.T) {
	fx := newExternalFixture(t)
	ctx := context.Background()

	assignment := models.Assignment{CourseID: 1, Name: "Essay"}
	require.NoError(t, fx.assignments.Create(ctx, &assignment))

	response, err := fx.service.GetSubmissions(ctx, Actor{ID: fx.student.ID}, dto.GetSubmissionsRequest{
		AssignmentIDs: []uint{assignment.ID},
	})
	require.NoError(t, err)
	require.Empty(t, response.Assignments)
	require.Len(t, response.Warnings, 1)
	require.Equal(t, "assignment", response.Warnings[0].Item)
	require.Equal(t, dto.WarningCodeNotAvailable, response.Warnings[0].WarningCode)
}

func TestGetSubmissionsWarnsWhenNoneFound(t *testing.T) {
	fx := newExternalFixture(t)
	ctx := context.Background()

	assignment := models.Assignment{CourseID: 1, Name: "Essay"}
	require.NoError(t, fx.assignments.Create(ctx, &assignment))

	response, err := fx.service.GetSubmissions(ctx, Actor{ID: fx.teacher.ID}, dto.GetSubmissionsRequest{
		AssignmentIDs: []uint{assignment.ID, 404},
	})
	require.NoError(t, err)
	require.Empty(t, response.Assignments)
	require.Len(t, response.Warnings, 2)

	codes := map[uint]string{}
	for _, warning := range response.Warnings {
		codes[warning.ItemID] = warning.WarningCode
	}
	require.Equal(t, dto.WarningCodeNoSubmissions, codes[assignment.ID])
	require.Equal(t, dto.WarningCodeNotAvailable, codes[404])
}

func TestGetSubmissionsTimeWindow(t *testing.T) {
	fx := newExternalFixture(t)
	ctx := context.Background()

	inWindow := models.Assignment{CourseID: 1, Name: "Essay"}
	require.NoError(t, fx.assignments.Create(ctx, &inWindow))
	tooLate := models.Assignment{CourseID: 1, Name: "Report"}
	require.NoError(t, fx.assignments.Create(ctx, &tooLate))

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	fx.submissions.submissions[submissionKey{assignmentID: inWindow.ID, userID: fx.student.ID}] = models.Submission{
		ID:           1,
		AssignmentID: inWindow.ID,
		UserID:       fx.student.ID,
		Status:       models.SubmissionStatusSubmitted,
		UpdatedAt:    base.Add(150 * time.Second),
	}
	fx.submissions.submissions[submissionKey{assignmentID: tooLate.ID, userID: fx.student.ID}] = models.Submission{
		ID:           2,
		AssignmentID: tooLate.ID,
		UserID:       fx.student.ID,
		Status:       models.SubmissionStatusSubmitted,
		UpdatedAt:    base.Add(300 * time.Second),
	}

	response, err := fx.service.GetSubmissions(ctx, Actor{ID: fx.teacher.ID}, dto.GetSubmissionsRequest{
		AssignmentIDs: []uint{inWindow.ID, tooLate.ID},
		Since:         base.Add(100 * time.Second).Unix(),
		Before:        base.Add(200 * time.Second).Unix(),
	})
	require.NoError(t, err)
	require.Len(t, response.Assignments, 1)
	require.Equal(t, inWindow.ID, response.Assignments[0].AssignmentID)
	require.Len(t, response.Assignments[0].Submissions, 1)

	// The assignment whose submissions all fall outside the window reports
	// "no submissions found" rather than disappearing.
	require.Len(t, response.Warnings, 1)
	require.Equal(t, tooLate.ID, response.Warnings[0].ItemID)
	require.Equal(t, dto.WarningCodeNoSubmissions, response.Warnings[0].WarningCode)
}

func TestGetSubmissionsRequiresAssignmentIDs(t *testing.T) {
	fx := newExternalFixture(t)

	_, err := fx.service.GetSubmissions(context.Background(), Actor{ID: fx.teacher.ID}, dto.GetSubmissionsRequest{})
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
}
