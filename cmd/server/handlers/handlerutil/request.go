package handlerutil

import (
	"context"
	"errors"

	"note-sync/cmd/server/handlers/httperr"
	"note-sync/internal/logger"
	"note-sync/internal/services/notes"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ParseAndValidateBody parses request body and validates it
func ParseAndValidateBody(c *fiber.Ctx, req any, validator *validator.Validate, handlerName string) error {
	if err := c.BodyParser(req); err != nil {
		logger.L().Warn("failed to parse request body", "handler", handlerName, "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := validator.Struct(req); err != nil {
		logger.L().Warn("request validation failed", "handler", handlerName, "error", err)
		return httperr.InvalidInput(err)
	}

	return nil
}

// NoteID extracts the note id URL parameter. Ids are opaque strings, either
// server-assigned or locally minted.
func NoteID(c *fiber.Ctx, handlerName string) (string, error) {
	id := c.Params("id")
	if id == "" {
		logger.L().Warn("missing note ID parameter", "handler", handlerName, "path", c.Path())
		return "", httperr.Fail(httperr.ErrNotFound)
	}
	return id, nil
}

// HandleServiceError maps a notes service error to its HTTP response.
func HandleServiceError(err error, handlerName, noteID string) error {
	logFields := []any{"handler", handlerName, "error", err}
	if noteID != "" {
		logFields = append(logFields, "noteID", noteID)
	}

	switch {
	case errors.Is(err, notes.ErrNoteNotFound):
		logger.L().Info("note not found", logFields...)
		return httperr.Fail(httperr.ErrNotFound)
	case errors.Is(err, notes.ErrRejected):
		logger.L().Info("remote rejected request", logFields...)
		return httperr.Fail(httperr.E{Status: fiber.StatusBadRequest, Message: err.Error()})
	case errors.Is(err, notes.ErrOffline), errors.Is(err, notes.ErrTransient):
		logger.L().Warn("remote unavailable", logFields...)
		return httperr.Fail(httperr.ErrOffline)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.L().Info("request cancelled", logFields...)
		return httperr.Fail(httperr.Unavailable("Request cancelled"))
	}

	logger.L().Error("service operation failed", logFields...)
	return httperr.Fail(httperr.E{
		Status:  fiber.StatusInternalServerError,
		Message: err.Error(),
	})
}
