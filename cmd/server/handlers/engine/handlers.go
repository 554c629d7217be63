package engine

import (
	"context"
	"errors"

	"note-sync/cmd/server/handlers/handlerutil"
	"note-sync/cmd/server/handlers/httperr"
	"note-sync/internal/logger"
	"note-sync/internal/services/auth"
	"note-sync/internal/services/notes"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Engine is the sync engine surface used by the HTTP layer.
type Engine interface {
	Start(ctx context.Context)
	Sync(ctx context.Context) (notes.Report, error)
	LastReport() (notes.Report, bool)
	SignOut(ctx context.Context) error
}

// Session holds the bearer token presented to the remote API.
type Session interface {
	Set(token string) error
}

// SetSessionRequest carries a bearer token for the remote API.
type SetSessionRequest struct {
	Token string `json:"token" validate:"required" example:"eyJhbGciOiJIUzI1NiIs..."`
}

// Handlers exposes manual sync and session control.
type Handlers struct {
	engine    Engine
	session   Session
	validator *validator.Validate
	// appCtx bounds engine restarts; request contexts end with the request.
	appCtx context.Context
}

// NewHandlers creates engine handlers
func NewHandlers(appCtx context.Context, engine Engine, session Session, validator *validator.Validate) *Handlers {
	return &Handlers{
		engine:    engine,
		session:   session,
		validator: validator,
		appCtx:    appCtx,
	}
}

// Sync runs a reconciliation pass and returns its report
// @Summary Run a sync pass now
// @Description Skipped when offline, signed out or while another pass runs.
// @Tags sync
// @Produce json
// @Success 200 {object} notes.Report
// @Failure 429 {object} httperr.E
// @Router /sync [post]
func (h *Handlers) Sync(c *fiber.Ctx) error {
	rep, err := h.engine.Sync(c.UserContext())
	if err != nil {
		if errors.Is(err, notes.ErrStore) {
			return handlerutil.HandleServiceError(err, "Sync", "")
		}
		logger.L().Warn("sync pass incomplete", "handler", "Sync", "error", err)
	}
	return c.JSON(rep)
}

// Report returns the last completed pass
// @Summary Last sync report
// @Tags sync
// @Produce json
// @Success 200 {object} notes.Report
// @Success 204
// @Router /sync/report [get]
func (h *Handlers) Report(c *fiber.Ctx) error {
	rep, ok := h.engine.LastReport()
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(rep)
}

// SetSession stores the bearer token and (re)starts syncing
// @Summary Set the remote API token
// @Tags session
// @Accept json
// @Param request body SetSessionRequest true "Token"
// @Success 204
// @Failure 400 {object} httperr.E
// @Router /session [post]
func (h *Handlers) SetSession(c *fiber.Ctx) error {
	var req SetSessionRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "SetSession"); err != nil {
		return err
	}

	if err := h.session.Set(req.Token); err != nil {
		logger.L().Info("session token refused", "handler", "SetSession", "error", err)
		if errors.Is(err, auth.ErrSessionExpired) || errors.Is(err, auth.ErrTokenEmpty) {
			return httperr.Fail(httperr.E{Status: fiber.StatusBadRequest, Message: err.Error()})
		}
		return httperr.Fail(httperr.ErrInternal)
	}

	h.engine.Start(h.appCtx)
	return c.SendStatus(fiber.StatusNoContent)
}

// SignOut stops syncing and wipes local data
// @Summary Sign out and clear local data
// @Description Pending offline changes are discarded.
// @Tags session
// @Success 204
// @Failure 500 {object} httperr.E
// @Router /session [delete]
func (h *Handlers) SignOut(c *fiber.Ctx) error {
	if err := h.engine.SignOut(c.UserContext()); err != nil {
		return handlerutil.HandleServiceError(err, "SignOut", "")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
