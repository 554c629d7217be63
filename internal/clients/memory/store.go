// Package memory is an in-process notes.Store with the same semantics as the
// Mongo store. It backs STORE_DRIVER=memory and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"note-sync/internal/services/notes"
)

// Store keeps notes and queued operations in maps guarded by one RWMutex.
// Values are copied on the way in and out so callers never share memory
// with the store.
type Store struct {
	mu    sync.RWMutex
	notes map[string]*notes.Note
	ops   map[string]notes.SyncOperation
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		notes: make(map[string]*notes.Note),
		ops:   make(map[string]notes.SyncOperation),
	}
}

// Put upserts n by id.
func (s *Store) Put(ctx context.Context, n *notes.Note) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: put note: %w", notes.ErrStore, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[n.ID] = n.Clone()
	return nil
}

// PutAll swaps the whole note set.
func (s *Store) PutAll(ctx context.Context, ns []*notes.Note) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: put all notes: %w", notes.ErrStore, err)
	}
	next := make(map[string]*notes.Note, len(ns))
	for _, n := range ns {
		next[n.ID] = n.Clone()
	}
	s.mu.Lock()
	s.notes = next
	s.mu.Unlock()
	return nil
}

// Get returns the note stored under id.
func (s *Store) Get(ctx context.Context, id string) (*notes.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: get note: %w", notes.ErrStore, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, notes.ErrNoteNotFound
	}
	return n.Clone(), nil
}

// GetAll returns every cached note.
func (s *Store) GetAll(ctx context.Context) ([]*notes.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: get all notes: %w", notes.ErrStore, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*notes.Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n.Clone())
	}
	return out, nil
}

// Delete removes note id. Missing ids are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: delete note: %w", notes.ErrStore, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, id)
	return nil
}

// Enqueue appends op. Reusing an op id is refused.
func (s *Store) Enqueue(ctx context.Context, op notes.SyncOperation) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: enqueue: %w", notes.ErrStore, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ops[op.ID]; exists {
		return fmt.Errorf("%w: duplicate operation id %s", notes.ErrStore, op.ID)
	}
	s.ops[op.ID] = copyOp(op)
	return nil
}

// DequeueAll returns queued operations by timestamp, ties by id.
func (s *Store) DequeueAll(ctx context.Context) ([]notes.SyncOperation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: dequeue: %w", notes.ErrStore, err)
	}
	s.mu.RLock()
	out := make([]notes.SyncOperation, 0, len(s.ops))
	for _, op := range s.ops {
		out = append(out, copyOp(op))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Remove deletes a queued operation. Missing ids are not an error.
func (s *Store) Remove(ctx context.Context, opID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: remove operation: %w", notes.ErrStore, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ops, opID)
	return nil
}

// RetargetOperations points queued operations for from at to.
func (s *Store) RetargetOperations(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: retarget operations: %w", notes.ErrStore, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, op := range s.ops {
		if op.NoteID == from {
			op.NoteID = to
			s.ops[id] = op
		}
	}
	return nil
}

// Clear drops all notes and queued operations.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: clear: %w", notes.ErrStore, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = make(map[string]*notes.Note)
	s.ops = make(map[string]notes.SyncOperation)
	return nil
}

func copyOp(op notes.SyncOperation) notes.SyncOperation {
	if op.Payload != nil {
		p := *op.Payload
		if p.ReminderDatetime != nil {
			t := *p.ReminderDatetime
			p.ReminderDatetime = &t
		}
		op.Payload = &p
	}
	return op
}
