package notes

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Queue is the ordered, durable log of local mutations. It assigns each
// operation a millisecond timestamp that is strictly increasing for this
// client, also across restarts.
type Queue struct {
	store Store
	now   func() time.Time

	mu     sync.Mutex
	last   int64
	seeded bool
}

// NewQueue creates a queue on top of store. A nil clock means time.Now.
func NewQueue(store Store, now func() time.Time) *Queue {
	if now == nil {
		now = time.Now
	}
	return &Queue{store: store, now: now}
}

// Enqueue appends an operation and returns it once it is durable.
func (q *Queue) Enqueue(ctx context.Context, t OpType, noteID string, p *Payload) (SyncOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.seed(ctx); err != nil {
		return SyncOperation{}, err
	}

	ts := q.now().UnixMilli()
	if ts <= q.last {
		ts = q.last + 1
	}

	op := SyncOperation{
		ID:        OperationID(t, noteID, ts),
		Type:      t,
		NoteID:    noteID,
		Payload:   p,
		Timestamp: ts,
	}
	if err := q.store.Enqueue(ctx, op); err != nil {
		return SyncOperation{}, fmt.Errorf("enqueue %s %s: %w", t, noteID, err)
	}
	q.last = ts
	return op, nil
}

// Pending returns queued operations in replay order.
func (q *Queue) Pending(ctx context.Context) ([]SyncOperation, error) {
	ops, err := q.store.DequeueAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending operations: %w", err)
	}
	return ops, nil
}

// Ack removes an operation that was applied or definitively dropped.
func (q *Queue) Ack(ctx context.Context, opID string) error {
	if err := q.store.Remove(ctx, opID); err != nil {
		return fmt.Errorf("ack %s: %w", opID, err)
	}
	return nil
}

// HasPending reports whether any queued operation targets noteID.
func (q *Queue) HasPending(ctx context.Context, noteID string) (bool, error) {
	ops, err := q.Pending(ctx)
	if err != nil {
		return false, err
	}
	for _, op := range ops {
		if op.NoteID == noteID {
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of queued operations.
func (q *Queue) Len(ctx context.Context) (int, error) {
	ops, err := q.Pending(ctx)
	if err != nil {
		return 0, err
	}
	return len(ops), nil
}

// seed loads the largest persisted timestamp once. Caller holds q.mu.
func (q *Queue) seed(ctx context.Context) error {
	if q.seeded {
		return nil
	}
	ops, err := q.store.DequeueAll(ctx)
	if err != nil {
		return fmt.Errorf("seed queue clock: %w", err)
	}
	for _, op := range ops {
		if op.Timestamp > q.last {
			q.last = op.Timestamp
		}
	}
	q.seeded = true
	return nil
}
