package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/dto"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/service"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/utils"
)

// ExternalHandler exposes the web-service read API. Per-item authorization
// failures are reported in the warnings array of the response body rather
// than as HTTP errors.
type ExternalHandler struct {
	service service.ExternalService
	logger  zerolog.Logger
}

// NewExternalHandler constructs the handler.
func NewExternalHandler(service service.ExternalService, logger zerolog.Logger) *ExternalHandler {
	return &ExternalHandler{
		service: service,
		logger:  logger.With().Str("component", "external_handler").Logger(),
	}
}

// Register attaches the read API endpoints to the router group.
func (h *ExternalHandler) Register(router fiber.Router) {
	router.Get("/assignments", h.getAssignments)
	router.Get("/submissions", h.getSubmissions)
}

func (h *ExternalHandler) getAssignments(c *fiber.Ctx) error {
	courseIDs, err := parseUintList(c, "course_ids")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	request := dto.GetAssignmentsRequest{
		CourseIDs:    courseIDs,
		Capabilities: splitAndTrim(c.Query("capabilities")),
	}

	response, err := h.service.GetAssignments(c.Context(), actorFromContext(c), request)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignments retrieved", response)
}

func (h *ExternalHandler) getSubmissions(c *fiber.Ctx) error {
	assignmentIDs, err := parseUintList(c, "assignment_ids")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	since, err := parseQueryInt64(c, "since")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid since")
	}

	before, err := parseQueryInt64(c, "before")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid before")
	}

	request := dto.GetSubmissionsRequest{
		AssignmentIDs: assignmentIDs,
		Status:        c.Query("status"),
		Since:         since,
		Before:        before,
	}

	response, err := h.service.GetSubmissions(c.Context(), actorFromContext(c), request)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", response)
}

func (h *ExternalHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	}
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
