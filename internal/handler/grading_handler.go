package handler

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/auth"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/dto"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/service"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/utils"
)

// GradingHandler wires the teacher-facing grading routes: lifecycle
// overrides, the grading table and per-user grading.
type GradingHandler struct {
	lifecycle service.LifecycleService
	table     service.GradingTableService
	logger    zerolog.Logger
}

// NewGradingHandler constructs the handler.
func NewGradingHandler(lifecycle service.LifecycleService, table service.GradingTableService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		lifecycle: lifecycle,
		table:     table,
		logger:    logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches grading endpoints to the assignments group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/:id/submissions/:userId/revert", h.revert)
	router.Post("/:id/submissions/:userId/lock", h.lock)
	router.Post("/:id/submissions/:userId/unlock", h.unlock)
	router.Put("/:id/grades/:userId", h.saveGrade)
	router.Get("/:id/submissions/download", h.download)
	router.Get("/:id/grading-table", h.gradingTable)
	router.Get("/:id/grading-table/rows/:row", h.rowUser)
	router.Get("/:id/grading-summary", h.summary)
}

// RegisterPreferences attaches the per-teacher table preference endpoints.
func (h *GradingHandler) RegisterPreferences(router fiber.Router) {
	router.Get("/preferences", h.preferences)
	router.Put("/preferences", h.savePreferences)
}

func (h *GradingHandler) ids(c *fiber.Ctx) (uint, uint, error) {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return 0, 0, err
	}
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return 0, 0, err
	}
	return assignmentID, userID, nil
}

func (h *GradingHandler) revert(c *fiber.Ctx) error {
	assignmentID, userID, err := h.ids(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.lifecycle.RevertToDraft(c.Context(), assignmentID, actorFromContext(c), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission reverted to draft", submission)
}

func (h *GradingHandler) lock(c *fiber.Ctx) error {
	assignmentID, userID, err := h.ids(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	grade, err := h.lifecycle.Lock(c.Context(), assignmentID, actorFromContext(c), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions locked", grade)
}

func (h *GradingHandler) unlock(c *fiber.Ctx) error {
	assignmentID, userID, err := h.ids(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	grade, err := h.lifecycle.Unlock(c.Context(), assignmentID, actorFromContext(c), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions unlocked", grade)
}

func (h *GradingHandler) saveGrade(c *fiber.Ctx) error {
	assignmentID, userID, err := h.ids(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SaveGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	grade, err := h.lifecycle.SaveGrade(c.Context(), assignmentID, actorFromContext(c), userID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grade saved", grade)
}

func (h *GradingHandler) download(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	archive, err := h.lifecycle.DownloadSubmissions(c.Context(), assignmentID, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="assignment_%d_submissions.zip"`, assignmentID))
	return c.Send(archive)
}

func (h *GradingHandler) tableRequest(c *fiber.Ctx) (dto.GradingTableRequest, error) {
	request := dto.GradingTableRequest{
		Filter:   c.Query("filter"),
		SortBy:   c.Query("sort_by"),
		SortDesc: c.QueryBool("sort_desc"),
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return request, errors.New("invalid page")
	}
	request.Page = page

	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return request, errors.New("invalid page_size")
	}
	request.PageSize = pageSize

	return request, nil
}

func (h *GradingHandler) gradingTable(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	request, err := h.tableRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	page, err := h.table.Page(c.Context(), assignmentID, actorFromContext(c), request)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grading table retrieved", page)
}

func (h *GradingHandler) rowUser(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	row, err := parseUintParam(c, "row")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid row")
	}

	request, err := h.tableRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID, err := h.table.UserIDForRow(c.Context(), assignmentID, actorFromContext(c), request, int(row))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "row resolved", fiber.Map{"row": row, "user_id": userID})
}

func (h *GradingHandler) summary(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.table.Summary(c.Context(), assignmentID, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grading summary retrieved", summary)
}

func (h *GradingHandler) preferences(c *fiber.Ctx) error {
	prefs, err := h.table.Preferences(c.Context(), actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grading preferences retrieved", prefs)
}

func (h *GradingHandler) savePreferences(c *fiber.Ctx) error {
	var prefs dto.GradingPreferences
	if err := c.BodyParser(&prefs); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.table.SavePreferences(c.Context(), actorFromContext(c), prefs); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grading preferences saved", prefs)
}

func (h *GradingHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrRowOutOfRange):
		return utils.SendError(c, fiber.StatusNotFound, "row out of range")
	case errors.Is(err, auth.ErrPermissionDenied):
		return utils.SendError(c, fiber.StatusForbidden, "permission denied")
	case errors.Is(err, service.ErrGradeOutOfRange):
		return utils.SendError(c, fiber.StatusBadRequest, "grade out of range")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
