package handlerutil

import (
	"errors"
	"fmt"
	"testing"

	"note-sync/cmd/server/handlers/httperr"
	"note-sync/internal/config"
	"note-sync/internal/logger"
	"note-sync/internal/services/notes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleServiceError(t *testing.T) {
	_, err := logger.Init(config.Config{LogLevel: "error", LogFormat: "text"})
	require.NoError(t, err)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: fmt.Errorf("%w: x", notes.ErrNoteNotFound), want: 404},
		{name: "rejected", err: fmt.Errorf("%w: title required", notes.ErrRejected), want: 400},
		{name: "offline", err: notes.ErrOffline, want: 503},
		{name: "transient", err: fmt.Errorf("%w: 502", notes.ErrTransient), want: 503},
		{name: "store", err: fmt.Errorf("%w: disk", notes.ErrStore), want: 500},
		{name: "other", err: errors.New("boom"), want: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := HandleServiceError(tt.err, "Test", "n1")
			var e httperr.E
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.want, e.Status)
		})
	}
}
