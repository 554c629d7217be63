package notes

import (
	"context"

	"note-sync/cmd/server/handlers/handlerutil"
	"note-sync/internal/services/notes"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Service defines the interface for notes service
type Service interface {
	Online() bool
	GetAllNotes(ctx context.Context) ([]*notes.Note, error)
	CreateNote(ctx context.Context, req notes.CreateNoteRequest) (*notes.Note, error)
	UpdateNote(ctx context.Context, id string, req notes.UpdateNoteRequest) (*notes.Note, error)
	DeleteNote(ctx context.Context, id string) error
	ListArchived(ctx context.Context) ([]*notes.Note, error)
	DeleteArchived(ctx context.Context, id string) error
}

// Handlers contains the notes HTTP handlers
type Handlers struct {
	service   Service
	validator *validator.Validate
}

// NewHandlers creates new notes handlers
func NewHandlers(service Service, validator *validator.Validate) *Handlers {
	return &Handlers{
		service:   service,
		validator: validator,
	}
}

// List handles notes listing
// @Summary List notes, newest first
// @Description Served from the remote API when online, from the local cache otherwise.
// @Tags notes
// @Produce json
// @Success 200 {object} notes.ListNotesResponse
// @Failure 500 {object} httperr.E
// @Router /notes [get]
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.service.GetAllNotes(c.UserContext())
	if err != nil {
		return handlerutil.HandleServiceError(err, "List", "")
	}

	return c.JSON(notes.ListNotesResponse{Notes: list, Online: h.service.Online()})
}

// Create handles note creation
// @Summary Create a new note
// @Description Created locally with a temporary id and queued when the remote is unreachable.
// @Tags notes
// @Accept json
// @Produce json
// @Param request body notes.CreateNoteRequest true "Create note request"
// @Success 201 {object} notes.NoteResponse
// @Failure 400 {object} httperr.E
// @Router /notes [post]
func (h *Handlers) Create(c *fiber.Ctx) error {
	var req notes.CreateNoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Create"); err != nil {
		return err
	}

	n, err := h.service.CreateNote(c.UserContext(), req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Create", "")
	}

	return c.Status(fiber.StatusCreated).JSON(notes.NoteResponse{Note: n})
}

// Update handles note updates
// @Summary Update a note
// @Tags notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param request body notes.UpdateNoteRequest true "Update note request"
// @Success 200 {object} notes.NoteResponse
// @Failure 400 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id} [put]
func (h *Handlers) Update(c *fiber.Ctx) error {
	noteID, err := handlerutil.NoteID(c, "Update")
	if err != nil {
		return err
	}

	var req notes.UpdateNoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Update"); err != nil {
		return err
	}

	n, err := h.service.UpdateNote(c.UserContext(), noteID, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Update", noteID)
	}

	return c.JSON(notes.NoteResponse{Note: n})
}

// Delete handles note deletion
// @Summary Delete a note
// @Tags notes
// @Param id path string true "Note ID"
// @Success 204
// @Failure 404 {object} httperr.E
// @Router /notes/{id} [delete]
func (h *Handlers) Delete(c *fiber.Ctx) error {
	noteID, err := handlerutil.NoteID(c, "Delete")
	if err != nil {
		return err
	}

	if err := h.service.DeleteNote(c.UserContext(), noteID); err != nil {
		return handlerutil.HandleServiceError(err, "Delete", noteID)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ListArchived lists archived notes
// @Summary List archived notes
// @Tags archive
// @Produce json
// @Success 200 {object} notes.ListNotesResponse
// @Failure 503 {object} httperr.E
// @Router /notes/archive [get]
func (h *Handlers) ListArchived(c *fiber.Ctx) error {
	list, err := h.service.ListArchived(c.UserContext())
	if err != nil {
		return handlerutil.HandleServiceError(err, "ListArchived", "")
	}

	return c.JSON(notes.ListNotesResponse{Notes: list, Online: true})
}

// DeleteArchived permanently deletes an archived note
// @Summary Delete an archived note
// @Tags archive
// @Param id path string true "Note ID"
// @Success 204
// @Failure 404 {object} httperr.E
// @Failure 503 {object} httperr.E
// @Router /notes/archive/{id} [delete]
func (h *Handlers) DeleteArchived(c *fiber.Ctx) error {
	noteID, err := handlerutil.NoteID(c, "DeleteArchived")
	if err != nil {
		return err
	}

	if err := h.service.DeleteArchived(c.UserContext(), noteID); err != nil {
		return handlerutil.HandleServiceError(err, "DeleteArchived", noteID)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
