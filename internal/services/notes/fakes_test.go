package notes_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"note-sync/internal/services/notes"
)

var silentLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// testClock is a manual clock; every call to Now advances it by step.
type testClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newTestClock(start time.Time, step time.Duration) *testClock {
	return &testClock{t: start, step: step}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

// fakeRemote is an in-memory notes API. Server timestamps come from its own
// clock; fail lets a test inject errors per call.
type fakeRemote struct {
	mu       sync.Mutex
	notes    map[string]*notes.Note
	archived map[string]*notes.Note
	seq      int
	clock    *testClock
	calls    []string
	fail     func(call string, n int) error
	counts   map[string]int
	listGate chan struct{}
	entered  chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		notes:    make(map[string]*notes.Note),
		archived: make(map[string]*notes.Note),
		clock:    newTestClock(baseTime.Add(time.Hour), time.Second),
		counts:   make(map[string]int),
	}
}

// seed stores n as if the server created it.
func (r *fakeRemote) seed(n *notes.Note) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[n.ID] = n.Clone()
}

func (r *fakeRemote) call(name string) error {
	r.calls = append(r.calls, name)
	r.counts[name]++
	if r.fail != nil {
		return r.fail(name, r.counts[name])
	}
	return nil
}

func (r *fakeRemote) callCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

func (r *fakeRemote) snapshot() []*notes.Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*notes.Note, 0, len(r.notes))
	for _, n := range r.notes {
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeRemote) ListNotes(ctx context.Context) ([]*notes.Note, error) {
	if r.listGate != nil {
		r.entered <- struct{}{}
		<-r.listGate
	}
	r.mu.Lock()
	if err := r.call("list"); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()
	return r.snapshot(), nil
}

func (r *fakeRemote) CreateNote(_ context.Context, p notes.Payload) (*notes.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("create"); err != nil {
		return nil, err
	}
	r.seq++
	n := &notes.Note{
		ID:               fmt.Sprintf("srv-%d", r.seq),
		Title:            p.Title,
		Content:          p.Content,
		CreatedAt:        r.clock.Now(),
		ReminderDatetime: p.ReminderDatetime,
	}
	r.notes[n.ID] = n
	return n.Clone(), nil
}

func (r *fakeRemote) UpdateNote(_ context.Context, id string, p notes.Payload) (*notes.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("update"); err != nil {
		return nil, err
	}
	n, ok := r.notes[id]
	if !ok {
		return nil, fmt.Errorf("PUT /notes/%s: %w", id, notes.ErrNoteNotFound)
	}
	n.Title = p.Title
	n.Content = p.Content
	n.ReminderDatetime = p.ReminderDatetime
	n.UpdatedAt = r.clock.Now()
	return n.Clone(), nil
}

func (r *fakeRemote) DeleteNote(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("delete"); err != nil {
		return err
	}
	if _, ok := r.notes[id]; !ok {
		return fmt.Errorf("DELETE /notes/%s: %w", id, notes.ErrNoteNotFound)
	}
	delete(r.notes, id)
	return nil
}

func (r *fakeRemote) ListArchived(_ context.Context) ([]*notes.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("list-archived"); err != nil {
		return nil, err
	}
	out := make([]*notes.Note, 0, len(r.archived))
	for _, n := range r.archived {
		out = append(out, n.Clone())
	}
	return out, nil
}

func (r *fakeRemote) DeleteArchived(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("delete-archived"); err != nil {
		return err
	}
	if _, ok := r.archived[id]; !ok {
		return notes.ErrNoteNotFound
	}
	delete(r.archived, id)
	return nil
}

// fakeSnapshot is a SnapshotCache without TTL.
type fakeSnapshot struct {
	mu    sync.Mutex
	notes []*notes.Note
	saves int
}

func (s *fakeSnapshot) Save(_ context.Context, ns []*notes.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = make([]*notes.Note, 0, len(ns))
	for _, n := range ns {
		s.notes = append(s.notes, n.Clone())
	}
	s.saves++
	return nil
}

func (s *fakeSnapshot) Load(_ context.Context) ([]*notes.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notes, nil
}

func (s *fakeSnapshot) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = nil
	return nil
}

// fakeSession is a Session toggled by tests.
type fakeSession struct {
	mu      sync.Mutex
	active  bool
	cleared bool
}

func (s *fakeSession) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *fakeSession) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.cleared = true
}

func transientErr(call string) error {
	return fmt.Errorf("%s: dial tcp: connection refused: %w", call, notes.ErrTransient)
}

func byID(ns []*notes.Note) map[string]*notes.Note {
	out := make(map[string]*notes.Note, len(ns))
	for _, n := range ns {
		out[n.ID] = n
	}
	return out
}
