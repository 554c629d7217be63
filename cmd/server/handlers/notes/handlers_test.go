package notes

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"note-sync/cmd/server/testutil"
	"note-sync/internal/services/notes"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Online() bool {
	return m.Called().Bool(0)
}

func (m *MockService) GetAllNotes(ctx context.Context) ([]*notes.Note, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]*notes.Note)
	return list, args.Error(1)
}

func (m *MockService) CreateNote(ctx context.Context, req notes.CreateNoteRequest) (*notes.Note, error) {
	args := m.Called(ctx, req)
	n, _ := args.Get(0).(*notes.Note)
	return n, args.Error(1)
}

func (m *MockService) UpdateNote(ctx context.Context, id string, req notes.UpdateNoteRequest) (*notes.Note, error) {
	args := m.Called(ctx, id, req)
	n, _ := args.Get(0).(*notes.Note)
	return n, args.Error(1)
}

func (m *MockService) DeleteNote(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockService) ListArchived(ctx context.Context) ([]*notes.Note, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]*notes.Note)
	return list, args.Error(1)
}

func (m *MockService) DeleteArchived(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func setupApp(t *testing.T, svc *MockService) *fiber.App {
	t.Helper()
	app := testutil.CreateTestApp(t)
	h := NewHandlers(svc, validator.New())
	app.Get("/notes", h.List)
	app.Post("/notes", h.Create)
	app.Get("/notes/archive", h.ListArchived)
	app.Delete("/notes/archive/:id", h.DeleteArchived)
	app.Put("/notes/:id", h.Update)
	app.Delete("/notes/:id", h.Delete)
	return app
}

func TestList(t *testing.T) {
	svc := new(MockService)
	svc.On("GetAllNotes", mock.Anything).Return([]*notes.Note{{ID: "n1", Title: "a"}}, nil)
	svc.On("Online").Return(false)

	resp, err := setupApp(t, svc).Test(testutil.CreateJSONRequest(http.MethodGet, "/notes", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := testutil.DecodeJSON[notes.ListNotesResponse](t, resp)
	assert.False(t, body.Online)
	require.Len(t, body.Notes, 1)
	assert.Equal(t, "n1", body.Notes[0].ID)
	svc.AssertExpectations(t)
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		setup      func(*MockService)
		wantStatus int
	}{
		{
			name: "created",
			body: notes.CreateNoteRequest{Title: "t", Content: "c"},
			setup: func(m *MockService) {
				m.On("CreateNote", mock.Anything, notes.CreateNoteRequest{Title: "t", Content: "c"}).
					Return(&notes.Note{ID: "srv-1", Title: "t"}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing title",
			body:       map[string]string{"content": "c"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "remote rejected",
			body: notes.CreateNoteRequest{Title: "t"},
			setup: func(m *MockService) {
				m.On("CreateNote", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("create: %w: title too long", notes.ErrRejected))
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "store failure",
			body: notes.CreateNoteRequest{Title: "t"},
			setup: func(m *MockService) {
				m.On("CreateNote", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: put: disk full", notes.ErrStore))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.setup != nil {
				tt.setup(svc)
			}

			resp, err := setupApp(t, svc).Test(testutil.CreateJSONRequest(http.MethodPost, "/notes", tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			svc.AssertExpectations(t)
		})
	}
}

func TestUpdate(t *testing.T) {
	title := "renamed"

	t.Run("updated", func(t *testing.T) {
		svc := new(MockService)
		svc.On("UpdateNote", mock.Anything, "n1", notes.UpdateNoteRequest{Title: &title}).
			Return(&notes.Note{ID: "n1", Title: title}, nil)

		resp, err := setupApp(t, svc).Test(testutil.CreateJSONRequest(http.MethodPut, "/notes/n1", notes.UpdateNoteRequest{Title: &title}))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, title, testutil.DecodeJSON[notes.NoteResponse](t, resp).Note.Title)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockService)
		svc.On("UpdateNote", mock.Anything, "gone", mock.Anything).Return(nil, notes.ErrNoteNotFound)

		resp, err := setupApp(t, svc).Test(testutil.CreateJSONRequest(http.MethodPut, "/notes/gone", notes.UpdateNoteRequest{Title: &title}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDelete(t *testing.T) {
	svc := new(MockService)
	svc.On("DeleteNote", mock.Anything, "offline-01J0").Return(nil)

	resp, err := setupApp(t, svc).Test(testutil.CreateJSONRequest(http.MethodDelete, "/notes/offline-01J0", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	svc.AssertExpectations(t)
}

func TestArchiveOffline(t *testing.T) {
	svc := new(MockService)
	svc.On("ListArchived", mock.Anything).Return(nil, notes.ErrOffline)
	svc.On("DeleteArchived", mock.Anything, "a1").Return(notes.ErrOffline)
	app := setupApp(t, svc)

	resp, err := app.Test(testutil.CreateJSONRequest(http.MethodGet, "/notes/archive", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = app.Test(testutil.CreateJSONRequest(http.MethodDelete, "/notes/archive/a1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
