package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// OpFailure describes a queued operation that was dropped after a definite
// remote refusal.
type OpFailure struct {
	OpID   string `json:"opId"`
	Type   OpType `json:"type"`
	NoteID string `json:"noteId"`
	Reason string `json:"reason"`
}

// MergeFailure describes a local note that could not be pushed during merge.
// The note stays cached as offline and is retried on the next pass.
type MergeFailure struct {
	NoteID string `json:"noteId"`
	Reason string `json:"reason"`
}

// Report summarises one reconciliation pass.
type Report struct {
	StartedAt  time.Time `json:"startedAt,omitzero"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
	Skipped    bool      `json:"skipped,omitempty"`

	Applied   int         `json:"applied"`
	Dropped   []OpFailure `json:"dropped,omitempty"`
	Halted    bool        `json:"halted,omitempty"`
	Remaining int         `json:"remaining"`

	Merged        int            `json:"merged"`
	Created       int            `json:"created"`
	Pushed        int            `json:"pushed"`
	Discarded     int            `json:"discarded"`
	MergeFailures []MergeFailure `json:"mergeFailures,omitempty"`

	Error string `json:"error,omitempty"`
}

// Failed reports whether the pass left anything unsynced or surfaced a drop.
func (r Report) Failed() bool {
	return r.Halted || r.Error != "" || len(r.Dropped) > 0 || len(r.MergeFailures) > 0
}

func (r Report) outcome() string {
	switch {
	case r.Halted:
		return "halted"
	case r.Error != "":
		return "error"
	case len(r.Dropped) > 0 || len(r.MergeFailures) > 0:
		return "partial"
	default:
		return "ok"
	}
}

// Reconciler brings the local cache and the remote into agreement: it
// replays the mutation queue, then merges note sets with last-writer-wins.
type Reconciler struct {
	store   Store
	queue   *Queue
	remote  Remote
	conn    Connectivity
	metrics *Metrics
	now     func() time.Time
	log     *slog.Logger

	running atomic.Bool
	stopped atomic.Bool

	mu   sync.RWMutex
	last *Report
}

// NewReconciler creates a new reconciler
func NewReconciler(store Store, queue *Queue, remote Remote, conn Connectivity, metrics *Metrics, now func() time.Time, log *slog.Logger) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		store:   store,
		queue:   queue,
		remote:  remote,
		conn:    conn,
		metrics: metrics,
		now:     now,
		log:     log,
	}
}

// Stop makes every later Run a no-op until Resume. A running pass finishes.
func (r *Reconciler) Stop() { r.stopped.Store(true) }

// Resume re-enables passes after Stop.
func (r *Reconciler) Resume() { r.stopped.Store(false) }

// Running reports whether a pass is in flight.
func (r *Reconciler) Running() bool { return r.running.Load() }

// LastReport returns the report of the last pass that was not skipped.
func (r *Reconciler) LastReport() (Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return Report{}, false
	}
	return *r.last, true
}

// Run executes one reconciliation pass. Concurrent calls, calls while offline
// and calls after Stop return a skipped report and no error.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	if r.stopped.Load() {
		return Report{Skipped: true}, nil
	}
	if !r.running.CompareAndSwap(false, true) {
		r.log.Debug("sync pass already running, skipping")
		return Report{Skipped: true}, nil
	}
	defer r.running.Store(false)

	if !r.conn.Online() {
		return Report{Skipped: true}, nil
	}

	rep := Report{StartedAt: r.now()}
	err := r.drain(ctx, &rep)
	if err == nil {
		err = r.merge(ctx, &rep)
	}
	rep.FinishedAt = r.now()
	if err != nil {
		rep.Error = err.Error()
	}

	r.record(ctx, rep)
	return rep, err
}

// drain replays queued operations in order until the queue is empty. It
// re-reads the queue after each batch so writes queued during the pass are
// replayed too. It stops at the first transient failure and acks definite
// failures so they are not retried.
func (r *Reconciler) drain(ctx context.Context, rep *Report) error {
	remap := make(map[string]string)
	for {
		ops, err := r.queue.Pending(ctx)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			return nil
		}
		if err := r.replay(ctx, ops, remap, rep); err != nil {
			return err
		}
	}
}

// replay applies one batch. Every op is acked or the batch returns an error,
// which bounds the loop in drain.
func (r *Reconciler) replay(ctx context.Context, ops []SyncOperation, remap map[string]string, rep *Report) error {
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			rep.Remaining = len(ops) - i
			return err
		}
		if to, ok := remap[op.NoteID]; ok {
			op.NoteID = to
		}

		note, err := r.apply(ctx, op)
		switch {
		case err == nil:
			if err := r.applied(ctx, op, note, remap); err != nil {
				rep.Remaining = len(ops) - i
				return err
			}
			rep.Applied++
			r.metrics.observeOp(op.Type, "applied")

		case ctx.Err() != nil:
			rep.Remaining = len(ops) - i
			return ctx.Err()

		case errors.Is(err, ErrTransient):
			r.conn.SetOnline(false)
			rep.Halted = true
			rep.Remaining = len(ops) - i
			r.metrics.observeOp(op.Type, "halted")
			r.log.Warn("sync halted", "op_id", op.ID, "remaining", rep.Remaining, "error", err)
			return fmt.Errorf("%w: %s %s: %w", ErrSyncHalted, op.Type, op.ID, err)

		default:
			if ackErr := r.queue.Ack(ctx, op.ID); ackErr != nil {
				rep.Remaining = len(ops) - i
				return ackErr
			}
			rep.Dropped = append(rep.Dropped, OpFailure{
				OpID:   op.ID,
				Type:   op.Type,
				NoteID: op.NoteID,
				Reason: err.Error(),
			})
			r.metrics.observeOp(op.Type, "dropped")
			r.log.Warn("dropping queued operation", "op_id", op.ID, "note_id", op.NoteID, "error", err)
		}
	}
	return nil
}

func (r *Reconciler) apply(ctx context.Context, op SyncOperation) (*Note, error) {
	switch op.Type {
	case OpCreate:
		if op.Payload == nil {
			return nil, fmt.Errorf("%w: create without payload", ErrRejected)
		}
		return r.remote.CreateNote(ctx, *op.Payload)
	case OpUpdate:
		if op.Payload == nil {
			return nil, fmt.Errorf("%w: update without payload", ErrRejected)
		}
		return r.remote.UpdateNote(ctx, op.NoteID, *op.Payload)
	case OpDelete:
		return nil, r.remote.DeleteNote(ctx, op.NoteID)
	default:
		return nil, fmt.Errorf("%w: unknown operation type %q", ErrRejected, op.Type)
	}
}

// applied persists the effects of an accepted operation. For a create that
// got a new server id, queued operations and the local copy move to that id
// before the op is acked, so a crash never strands them on the temp id.
func (r *Reconciler) applied(ctx context.Context, op SyncOperation, note *Note, remap map[string]string) error {
	switch op.Type {
	case OpCreate:
		if note == nil || note.ID == "" || note.ID == op.NoteID {
			return r.queue.Ack(ctx, op.ID)
		}
		if err := r.store.RetargetOperations(ctx, op.NoteID, note.ID); err != nil {
			return err
		}
		remap[op.NoteID] = note.ID
		if err := r.queue.Ack(ctx, op.ID); err != nil {
			return err
		}
		return r.rekey(ctx, op.NoteID, note)
	case OpDelete:
		if err := r.queue.Ack(ctx, op.ID); err != nil {
			return err
		}
		return r.store.Delete(ctx, op.NoteID)
	default:
		return r.queue.Ack(ctx, op.ID)
	}
}

// rekey moves the cached copy of an offline-created note to its server id.
func (r *Reconciler) rekey(ctx context.Context, tempID string, created *Note) error {
	local, err := r.store.Get(ctx, tempID)
	if errors.Is(err, ErrNoteNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	moved := local.Clone()
	moved.ID = created.ID
	moved.CreatedAt = created.CreatedAt
	moved.UpdatedAt = created.UpdatedAt
	if err := r.store.Put(ctx, moved); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, tempID); err != nil {
		return err
	}
	r.log.Debug("re-keyed offline note", "from", tempID, "to", created.ID)
	return nil
}

// merge reconciles note sets after a full drain. Local notes carrying
// unconfirmed edits are pushed when they are absent remotely or strictly
// newer; everything else takes the remote version. The cache is replaced in
// a single PutAll once every push has been decided.
func (r *Reconciler) merge(ctx context.Context, rep *Report) error {
	local, err := r.store.GetAll(ctx)
	if err != nil {
		return err
	}

	remote, err := r.remote.ListNotes(ctx)
	if err != nil {
		if errors.Is(err, ErrTransient) {
			r.conn.SetOnline(false)
		}
		return fmt.Errorf("fetch remote notes: %w", err)
	}

	merged := make([]*Note, 0, len(remote)+len(local))
	index := make(map[string]int, len(remote))
	for _, rn := range remote {
		index[rn.ID] = len(merged)
		merged = append(merged, confirmed(rn))
	}
	set := func(n *Note) {
		if i, ok := index[n.ID]; ok {
			merged[i] = n
			return
		}
		index[n.ID] = len(merged)
		merged = append(merged, n)
	}

	unreachable := false
	for _, ln := range local {
		if !ln.IsOffline {
			continue
		}
		if unreachable || ctx.Err() != nil {
			set(ln)
			rep.MergeFailures = append(rep.MergeFailures, MergeFailure{NoteID: ln.ID, Reason: "not attempted"})
			continue
		}

		var (
			pushed *Note
			err    error
		)
		i, exists := index[ln.ID]
		switch {
		case !exists:
			pushed, err = r.remote.CreateNote(ctx, *ln.Payload())
		case ln.LastModified > merged[i].LastModified:
			pushed, err = r.remote.UpdateNote(ctx, ln.ID, *ln.Payload())
		default:
			rep.Discarded++
			continue
		}

		if err != nil {
			set(ln)
			rep.MergeFailures = append(rep.MergeFailures, MergeFailure{NoteID: ln.ID, Reason: err.Error()})
			if errors.Is(err, ErrTransient) {
				r.conn.SetOnline(false)
				unreachable = true
			}
			r.log.Warn("failed to push local note", "note_id", ln.ID, "error", err)
			continue
		}

		set(confirmed(pushed))
		if exists {
			rep.Pushed++
		} else {
			rep.Created++
		}
	}

	if err := r.store.PutAll(context.WithoutCancel(ctx), merged); err != nil {
		return err
	}
	rep.Merged = len(merged)
	return nil
}

func (r *Reconciler) record(ctx context.Context, rep Report) {
	outcome := rep.outcome()
	r.metrics.observePass(outcome, rep.FinishedAt)
	if n, err := r.queue.Len(context.WithoutCancel(ctx)); err == nil {
		r.metrics.setQueueDepth(n)
	}

	r.mu.Lock()
	r.last = &rep
	r.mu.Unlock()

	r.log.Info("sync pass finished",
		"outcome", outcome,
		"applied", rep.Applied,
		"dropped", len(rep.Dropped),
		"remaining", rep.Remaining,
		"created", rep.Created,
		"pushed", rep.Pushed,
		"discarded", rep.Discarded,
		"duration", rep.FinishedAt.Sub(rep.StartedAt),
	)
}

// confirmed returns a copy of a remote note as it is cached locally.
func confirmed(n *Note) *Note {
	c := n.Clone()
	c.IsOffline = false
	c.LastModified = c.ModifiedAt().UnixMilli()
	return c
}
