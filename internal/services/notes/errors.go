package notes

import "errors"

// ErrNoteNotFound - note not found locally or remotely (404).
var ErrNoteNotFound = errors.New("note not found")

// ErrRejected is returned when the remote definitively refused a request.
var ErrRejected = errors.New("request rejected by remote")

// ErrTransient marks remote failures worth retrying on the next pass:
// network errors, timeouts, 5xx responses and an open circuit.
var ErrTransient = errors.New("remote temporarily unavailable")

// ErrOffline is returned by operations that need the remote while offline.
var ErrOffline = errors.New("offline")

// ErrSyncHalted is returned when the queue drain stopped on a transient failure.
var ErrSyncHalted = errors.New("sync halted")

// ErrStore wraps local persistence failures.
var ErrStore = errors.New("local store failure")

// ErrCreateNote is returned when note creation fails.
var ErrCreateNote = errors.New("failed to create note")

// ErrUpdateNote is returned when note update fails.
var ErrUpdateNote = errors.New("failed to update note")

// ErrDeleteNote is returned when note deletion fails.
var ErrDeleteNote = errors.New("failed to delete note")

// ErrListNotes is returned when notes listing fails.
var ErrListNotes = errors.New("failed to list notes")
