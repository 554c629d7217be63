package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"note-sync/internal/utils/sanitize"
)

// Service is the read/write façade used by the UI handlers. Online it talks
// to the remote and keeps the cache warm; offline it serves the cache and
// queues writes for the reconciler.
type Service struct {
	store    Store
	queue    *Queue
	remote   Remote
	conn     Connectivity
	snapshot SnapshotCache
	rec      *Reconciler
	now      func() time.Time
	log      *slog.Logger

	// kick asks for a pass after a write was queued while online. May be nil.
	kick func()
}

// NewService creates a new notes service. snapshot may be nil.
func NewService(store Store, queue *Queue, remote Remote, conn Connectivity, snapshot SnapshotCache, rec *Reconciler, now func() time.Time, log *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    store,
		queue:    queue,
		remote:   remote,
		conn:     conn,
		snapshot: snapshot,
		rec:      rec,
		now:      now,
		log:      log,
	}
}

// Online reports the current connectivity status.
func (s *Service) Online() bool { return s.conn.Online() }

// SubscribeConnectivity registers cb with the connectivity monitor.
func (s *Service) SubscribeConnectivity(cb func(online bool)) func() {
	return s.conn.Subscribe(cb)
}

// PendingCount returns the mutation queue depth.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.queue.Len(ctx)
}

// Syncing reports whether a reconciliation pass is in flight.
func (s *Service) Syncing() bool { return s.rec.Running() }

// GetAllNotes returns the notes visible to the user, newest first.
func (s *Service) GetAllNotes(ctx context.Context) ([]*Note, error) {
	if s.conn.Online() {
		list, err := s.listOnline(ctx)
		if err == nil {
			return list, nil
		}
		if errors.Is(err, ErrStore) || ctx.Err() != nil {
			return nil, err
		}
		s.remoteFailed(err)
		s.log.Warn("remote listing failed, serving cache", "error", err)
	}
	return s.listOffline(ctx)
}

func (s *Service) listOnline(ctx context.Context) ([]*Note, error) {
	local, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	remote, err := s.remote.ListNotes(ctx)
	if err != nil {
		return nil, err
	}

	pending := make(map[string]*Note)
	for _, n := range local {
		if n.IsOffline {
			pending[n.ID] = n
		}
	}

	out := make([]*Note, 0, len(remote)+len(pending))
	for _, rn := range remote {
		if ln, ok := pending[rn.ID]; ok {
			out = append(out, ln)
			delete(pending, rn.ID)
			continue
		}
		out = append(out, confirmed(rn))
	}
	for _, ln := range local {
		if _, ok := pending[ln.ID]; ok {
			out = append(out, ln)
		}
	}

	if err := s.store.PutAll(ctx, out); err != nil {
		s.log.Error("failed to refresh note cache", "error", err)
	}
	if s.snapshot != nil {
		if err := s.snapshot.Save(ctx, remote); err != nil {
			s.log.Warn("failed to save notes snapshot", "error", err)
		}
	}

	sortNewestFirst(out)
	return out, nil
}

func (s *Service) listOffline(ctx context.Context) ([]*Note, error) {
	local, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListNotes, err)
	}
	if len(local) == 0 && s.snapshot != nil {
		cached, err := s.snapshot.Load(ctx)
		if err != nil {
			s.log.Warn("failed to load notes snapshot", "error", err)
		}
		local = cached
	}
	if local == nil {
		local = []*Note{}
	}
	sortNewestFirst(local)
	return local, nil
}

// CreateNote creates a note remotely, or locally with a temporary id when offline.
func (s *Service) CreateNote(ctx context.Context, req CreateNoteRequest) (*Note, error) {
	p := Payload{
		Title:            sanitize.Title(req.Title),
		Content:          sanitize.Content(req.Content),
		ReminderDatetime: req.ReminderDatetime,
	}

	if s.conn.Online() {
		created, err := s.remote.CreateNote(ctx, p)
		if err == nil {
			n := confirmed(created)
			if err := s.store.Put(ctx, n); err != nil {
				s.log.Error("failed to cache created note", "note_id", n.ID, "error", err)
			}
			return n, nil
		}
		if !s.fallback(ctx, err) {
			return nil, fmt.Errorf("%w: %w", ErrCreateNote, err)
		}
	}

	now := s.now()
	n := &Note{
		ID:               NewOfflineID(),
		Title:            p.Title,
		Content:          p.Content,
		CreatedAt:        now,
		LastModified:     now.UnixMilli(),
		IsOffline:        true,
		ReminderDatetime: p.ReminderDatetime,
	}
	if err := s.store.Put(ctx, n); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateNote, err)
	}
	if _, err := s.queue.Enqueue(ctx, OpCreate, n.ID, n.Payload()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateNote, err)
	}
	return n, nil
}

// UpdateNote applies req to note id. Temporary ids are always handled
// offline since the remote does not know them yet, and so is any note that
// still has queued operations: writing it remotely now would be undone when
// the older queued ops replay.
func (s *Service) UpdateNote(ctx context.Context, id string, req UpdateNoteRequest) (*Note, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNoteNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrUpdateNote, err)
	}

	direct, err := s.writeThrough(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpdateNote, err)
	}
	if direct {
		n, err := s.updateOnline(ctx, id, current, req)
		if err == nil {
			return n, nil
		}
		if !s.fallback(ctx, err) {
			return nil, s.definite(ErrUpdateNote, err)
		}
	}

	if current == nil {
		current = s.snapshotNote(ctx, id)
	}
	if current == nil {
		// PUT replaces the whole note, so without a base copy every field must be given.
		if req.Title == nil || req.Content == nil {
			return nil, fmt.Errorf("%w: %w: note %s is not cached, title and content are required", ErrUpdateNote, ErrRejected, id)
		}
		current = &Note{ID: id, CreatedAt: s.now()}
	}

	next := applyUpdate(current, req)
	next.LastModified = s.now().UnixMilli()
	next.IsOffline = true
	if err := s.store.Put(ctx, next); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpdateNote, err)
	}
	if _, err := s.queue.Enqueue(ctx, OpUpdate, id, next.Payload()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpdateNote, err)
	}
	s.queued()
	return next, nil
}

// updateOnline writes req through to the remote. A note missing from the
// cache is fetched first so fields req leaves unset keep their server value.
func (s *Service) updateOnline(ctx context.Context, id string, current *Note, req UpdateNoteRequest) (*Note, error) {
	if current == nil {
		fetched, err := s.remoteNote(ctx, id)
		if err != nil {
			return nil, err
		}
		current = fetched
	}

	updated, err := s.remote.UpdateNote(ctx, id, *applyUpdate(current, req).Payload())
	if err != nil {
		return nil, err
	}
	n := confirmed(updated)
	if err := s.store.Put(ctx, n); err != nil {
		s.log.Error("failed to cache updated note", "note_id", id, "error", err)
	}
	return n, nil
}

// DeleteNote removes note id remotely, or locally plus a queued delete when
// offline or when the note still has queued operations.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	direct, err := s.writeThrough(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeleteNote, err)
	}
	if direct {
		err := s.remote.DeleteNote(ctx, id)
		if err == nil {
			if err := s.store.Delete(ctx, id); err != nil {
				s.log.Error("failed to drop deleted note from cache", "note_id", id, "error", err)
			}
			return nil
		}
		if !s.fallback(ctx, err) {
			return s.definite(ErrDeleteNote, err)
		}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: %w", ErrDeleteNote, err)
	}
	if _, err := s.queue.Enqueue(ctx, OpDelete, id, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrDeleteNote, err)
	}
	s.queued()
	return nil
}

// writeThrough reports whether a write to note id may go straight to the
// remote: online, a server id, and nothing queued for it.
func (s *Service) writeThrough(ctx context.Context, id string) (bool, error) {
	if !s.conn.Online() || IsOfflineID(id) {
		return false, nil
	}
	queued, err := s.queue.HasPending(ctx, id)
	if err != nil {
		return false, err
	}
	return !queued, nil
}

// remoteNote looks id up in the remote listing; the API has no single-note read.
func (s *Service) remoteNote(ctx context.Context, id string) (*Note, error) {
	list, err := s.remote.ListNotes(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range list {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoteNotFound, id)
}

// snapshotNote returns the copy of id held by the snapshot cache, if any.
func (s *Service) snapshotNote(ctx context.Context, id string) *Note {
	if s.snapshot == nil {
		return nil
	}
	list, err := s.snapshot.Load(ctx)
	if err != nil {
		s.log.Warn("failed to load notes snapshot", "error", err)
		return nil
	}
	for _, n := range list {
		if n.ID == id {
			return n.Clone()
		}
	}
	return nil
}

// queued nudges the engine when a write was queued although the remote is
// reachable, so it does not wait for the next reconnect.
func (s *Service) queued() {
	if s.kick != nil && s.conn.Online() {
		s.kick()
	}
}

// ListArchived lists archived notes. It needs the remote.
func (s *Service) ListArchived(ctx context.Context) ([]*Note, error) {
	if !s.conn.Online() {
		return nil, ErrOffline
	}
	list, err := s.remote.ListArchived(ctx)
	if err != nil {
		s.remoteFailed(err)
		return nil, err
	}
	sortNewestFirst(list)
	return list, nil
}

// DeleteArchived permanently removes an archived note. It needs the remote.
func (s *Service) DeleteArchived(ctx context.Context, id string) error {
	if !s.conn.Online() {
		return ErrOffline
	}
	if err := s.remote.DeleteArchived(ctx, id); err != nil {
		s.remoteFailed(err)
		return err
	}
	return nil
}

// fallback reports whether err allows retrying the write offline, flipping
// the monitor when the remote is unreachable.
func (s *Service) fallback(ctx context.Context, err error) bool {
	if ctx.Err() != nil || !errors.Is(err, ErrTransient) {
		return false
	}
	s.remoteFailed(err)
	s.log.Warn("remote unavailable, applying write offline", "error", err)
	return true
}

func (s *Service) remoteFailed(err error) {
	if errors.Is(err, ErrTransient) {
		s.conn.SetOnline(false)
	}
}

// definite keeps ErrNoteNotFound visible to callers and wraps everything
// else in the operation sentinel.
func (s *Service) definite(op, err error) error {
	if errors.Is(err, ErrNoteNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", op, err)
}

func applyUpdate(n *Note, req UpdateNoteRequest) *Note {
	next := n.Clone()
	if req.Title != nil {
		next.Title = sanitize.Title(*req.Title)
	}
	if req.Content != nil {
		next.Content = sanitize.Content(*req.Content)
	}
	if req.ReminderDatetime != nil {
		t := *req.ReminderDatetime
		next.ReminderDatetime = &t
	}
	return next
}

func sortNewestFirst(ns []*Note) {
	sort.SliceStable(ns, func(i, j int) bool {
		if ns[i].CreatedAt.Equal(ns[j].CreatedAt) {
			return ns[i].ID > ns[j].ID
		}
		return ns[i].CreatedAt.After(ns[j].CreatedAt)
	})
}
