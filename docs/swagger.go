// Package docs NoteSync local API
//
// @title  NoteSync API
// @version 0.1.0
// @description Offline-first notes: local CRUD, connectivity and sync control.
// @host      localhost:8090
// @BasePath /api/v1
// @schemes http
package docs

import (
	_ "note-sync/cmd/server/handlers/httperr"
	_ "note-sync/internal/services/notes"
)
