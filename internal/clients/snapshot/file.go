// Package snapshot keeps the last remote note listing on disk for a limited
// time. It is the fallback when the local store is empty and the remote is
// unreachable.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"note-sync/internal/services/notes"
)

const tempFilePrefix = "notesync-snapshot-"

type envelope struct {
	SavedAt time.Time     `json:"savedAt"`
	Notes   []*notes.Note `json:"notes"`
}

// File is a notes.SnapshotCache backed by one JSON file. A ttl of zero
// disables expiry.
type File struct {
	path string
	ttl  time.Duration
	now  func() time.Time

	mu sync.Mutex
}

// NewFile creates a snapshot cache at path.
func NewFile(path string, ttl time.Duration, now func() time.Time) *File {
	if now == nil {
		now = time.Now
	}
	return &File{path: path, ttl: ttl, now: now}
}

// Save overwrites the snapshot with ns.
func (f *File) Save(_ context.Context, ns []*notes.Note) error {
	data, err := json.Marshal(envelope{SavedAt: f.now(), Notes: ns})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	return writeFileAtomic(f.path, data, 0o600)
}

// Load returns the snapshot, or nil when it is missing or older than the TTL.
func (f *File) Load(_ context.Context) ([]*notes.Note, error) {
	f.mu.Lock()
	data, err := os.ReadFile(f.path)
	f.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if f.ttl > 0 && f.now().Sub(env.SavedAt) > f.ttl {
		return nil, nil
	}
	return env.Notes, nil
}

// Clear removes the snapshot file.
func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over filename.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(filename), tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name()) // no-op after a successful rename

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	return nil
}
