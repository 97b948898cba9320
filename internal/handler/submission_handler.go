package handler

import (
	"errors"
	"mime/multipart"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/auth"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/dto"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/plugin"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/service"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/utils"
)

// SubmissionHandler wires the student submission lifecycle routes.
type SubmissionHandler struct {
	lifecycle service.LifecycleService
	logger    zerolog.Logger
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(lifecycle service.LifecycleService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		lifecycle: lifecycle,
		logger:    logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches submission endpoints to the assignments group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("/:id/submissions", h.save)
	router.Post("/:id/submissions/submit", h.submit)
}

func (h *SubmissionHandler) save(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := dto.SaveSubmissionRequest{
		OnlineText: c.FormValue("online_text"),
		Comment:    c.FormValue("comment"),
	}
	if raw := c.FormValue("online_format"); raw != "" {
		format, err := strconv.Atoi(raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid online_format")
		}
		payload.OnlineFormat = format
	}

	files, closeAll, err := uploadedFiles(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	defer closeAll()

	submission, err := h.lifecycle.SaveSubmission(c.Context(), id, actorFromContext(c), payload, files)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission saved", submission)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.lifecycle.SubmitForGrading(c.Context(), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission submitted for grading", submission)
}

// uploadedFiles collects the multipart "files" parts. The returned closer
// releases the underlying readers once the save completes.
func uploadedFiles(c *fiber.Ctx) ([]plugin.UploadedFile, func(), error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, func() {}, nil
	}

	headers := form.File["files"]
	files := make([]plugin.UploadedFile, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	for _, header := range headers {
		reader, err := header.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, errors.New("unreadable uploaded file")
		}
		opened = append(opened, reader)
		files = append(files, plugin.UploadedFile{
			Name:   header.Filename,
			Size:   header.Size,
			Reader: reader,
		})
	}

	return files, closeAll, nil
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, auth.ErrPermissionDenied):
		return utils.SendError(c, fiber.StatusForbidden, "permission denied")
	case errors.Is(err, service.ErrSubmissionLocked):
		return utils.SendError(c, fiber.StatusConflict, "submission locked")
	case errors.Is(err, service.ErrSubmissionsClosed):
		return utils.SendError(c, fiber.StatusConflict, "submissions are not open")
	case errors.Is(err, service.ErrNoSubmissionPlugins):
		return utils.SendError(c, fiber.StatusConflict, "no submission types enabled")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
