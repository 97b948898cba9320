package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
)

type fakeNotificationRepo struct {
	created   []models.Notification
	createErr error
}

func (m *fakeNotificationRepo) Create(_ context.Context, notification *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	notification.ID = uint(len(m.created) + 1)
	m.created = append(m.created, *notification)
	return nil
}

func (m *fakeNotificationRepo) ListByUser(_ context.Context, userID uint, _, _ int) ([]models.Notification, error) {
	var results []models.Notification
	for _, notification := range m.created {
		if notification.UserID == userID {
			results = append(results, notification)
		}
	}
	return results, nil
}

func (m *fakeNotificationRepo) MarkRead(_ context.Context, id, userID uint) (models.Notification, error) {
	for i, notification := range m.created {
		if notification.ID == id && notification.UserID == userID {
			m.created[i].Read = true
			return m.created[i], nil
		}
	}
	return models.Notification{}, errors.New("not found")
}

func TestSubmittedForGradingNotifiesEachGrader(t *testing.T) {
	repo := &fakeNotificationRepo{}
	authz := newFakeAuthorizer()

	student := models.User{ID: 10, FirstName: "Sam", LastName: "Student"}
	graderA := models.User{ID: 20, FirstName: "Ada", LastName: "Able"}
	graderB := models.User{ID: 21, FirstName: "Ben", LastName: "Baker"}
	authz.enroll(1, student, models.RoleStudent)
	authz.enroll(1, graderA, models.RoleTeacher)
	authz.enroll(1, graderB, models.RoleTeacher)

	svc := NewNotificationService(repo, authz, nil, "", zerolog.New(io.Discard))

	assignment := models.Assignment{ID: 5, CourseID: 1, Name: "Essay <b>one</b>"}
	submission := models.Submission{AssignmentID: 5, UserID: student.ID, UpdatedAt: time.Now()}
	svc.SubmittedForGrading(context.Background(), assignment, student, submission)

	require.Len(t, repo.created, 2)
	recipients := []uint{repo.created[0].UserID, repo.created[1].UserID}
	require.ElementsMatch(t, []uint{graderA.ID, graderB.ID}, recipients)
	require.Contains(t, repo.created[0].Subject, "Sam Student")
	require.Contains(t, repo.created[0].Message, "Sam Student has submitted their work")
	require.NotContains(t, repo.created[0].Message, "<b>", "markup is stripped from the message")
}

func TestSubmittedForGradingSkipsSubmitter(t *testing.T) {
	repo := &fakeNotificationRepo{}
	authz := newFakeAuthorizer()

	// the submitter also holds the grade capability
	selfGrader := models.User{ID: 30, FirstName: "Solo", LastName: "Marker"}
	authz.enroll(1, selfGrader, models.RoleTeacher)

	svc := NewNotificationService(repo, authz, nil, "", zerolog.New(io.Discard))
	svc.SubmittedForGrading(context.Background(), models.Assignment{ID: 5, CourseID: 1, Name: "Essay"}, selfGrader, models.Submission{})

	require.Empty(t, repo.created)
}

func TestSubmittedForGradingSwallowsPersistFailure(t *testing.T) {
	repo := &fakeNotificationRepo{createErr: errors.New("db down")}
	authz := newFakeAuthorizer()

	student := models.User{ID: 10, FirstName: "Sam", LastName: "Student"}
	grader := models.User{ID: 20, FirstName: "Ada", LastName: "Able"}
	authz.enroll(1, student, models.RoleStudent)
	authz.enroll(1, grader, models.RoleTeacher)

	svc := NewNotificationService(repo, authz, nil, "", zerolog.New(io.Discard))

	// must not panic or surface the error
	svc.SubmittedForGrading(context.Background(), models.Assignment{ID: 5, CourseID: 1, Name: "Essay"}, student, models.Submission{})
	require.Empty(t, repo.created)
}
