package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/auth"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/observability"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/repository"
)

const graderNotificationType = "assign_updates"

type notificationEvent struct {
	Source  string    `json:"source"`
	UserID  uint      `json:"user_id"`
	Type    string    `json:"type"`
	Subject string    `json:"subject"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

type notificationService struct {
	repo        repository.NotificationRepository
	authz       auth.Authorizer
	nats        *nats.Conn
	natsSubject string
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	nodeID      string
	now         func() time.Time
}

// NewNotificationService builds the best-effort grader notifier. The NATS
// connection may be nil; delivery then only writes the persisted copy.
func NewNotificationService(repo repository.NotificationRepository, authz auth.Authorizer, natsConn *nats.Conn, natsSubject string, logger zerolog.Logger) GraderNotifier {
	return &notificationService{
		repo:        repo,
		authz:       authz,
		nats:        natsConn,
		natsSubject: natsSubject,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "notification_service").Logger(),
		nodeID:      uuid.NewString(),
		now:         time.Now,
	}
}

// SubmittedForGrading notifies every grader of the course except the
// submitter. All failures are logged and swallowed; submission state never
// depends on delivery.
func (s *notificationService) SubmittedForGrading(ctx context.Context, assignment models.Assignment, submitter models.User, submission models.Submission) {
	graders, err := s.authz.UsersWithCapability(ctx, auth.CapabilityGrade, assignment.CourseID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to resolve graders")
		return
	}

	subject := fmt.Sprintf("Submitted: %s -> %s", submitter.FullName(), assignment.Name)
	message := s.sanitizer.Sanitize(fmt.Sprintf(
		"%s has submitted their work for %q at %s.",
		submitter.FullName(), assignment.Name, submission.UpdatedAt.Format(time.RFC1123),
	))

	for _, grader := range graders {
		if grader.ID == submitter.ID {
			continue
		}

		notification := models.Notification{
			UserID:  grader.ID,
			Type:    graderNotificationType,
			Subject: subject,
			Message: message,
		}
		if err := s.repo.Create(ctx, &notification); err != nil {
			s.logger.Warn().Err(err).Uint("grader_id", grader.ID).Msg("failed to persist notification")
			continue
		}

		s.publish(notification)
		observability.NotificationsPublished().WithLabelValues(graderNotificationType).Inc()
	}
}

func (s *notificationService) publish(notification models.Notification) {
	if s.nats == nil || s.natsSubject == "" {
		return
	}

	event := notificationEvent{
		Source:  s.nodeID,
		UserID:  notification.UserID,
		Type:    notification.Type,
		Subject: notification.Subject,
		Message: notification.Message,
		SentAt:  s.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode notification event")
		return
	}
	if err := s.nats.Publish(s.natsSubject, payload); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish notification event")
	}
}
