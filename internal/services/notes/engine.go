package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Session is the credential the engine syncs on behalf of.
type Session interface {
	Active() bool
	Clear()
}

// EngineDeps are the collaborators of an Engine. Snapshot, Metrics, Session
// and Clock are optional.
type EngineDeps struct {
	Store    Store
	Remote   Remote
	Snapshot SnapshotCache
	Monitor  Connectivity
	Metrics  *Metrics
	Session  Session
	Clock    func() time.Time
	Log      *slog.Logger
}

// Engine wires the queue, reconciler and façade around one monitor and
// starts a reconciliation pass on every transition to online.
type Engine struct {
	store    Store
	snapshot SnapshotCache
	conn     Connectivity
	session  Session
	metrics  *Metrics
	log      *slog.Logger

	queue   *Queue
	rec     *Reconciler
	service *Service

	mu          sync.Mutex
	started     bool
	ctx         context.Context
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewEngine creates a new engine
func NewEngine(d EngineDeps) *Engine {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	queue := NewQueue(d.Store, d.Clock)
	rec := NewReconciler(d.Store, queue, d.Remote, d.Monitor, d.Metrics, d.Clock, d.Log)
	e := &Engine{
		store:    d.Store,
		snapshot: d.Snapshot,
		conn:     d.Monitor,
		session:  d.Session,
		metrics:  d.Metrics,
		log:      d.Log,
		queue:    queue,
		rec:      rec,
		service:  NewService(d.Store, queue, d.Remote, d.Monitor, d.Snapshot, rec, d.Clock, d.Log),
	}
	e.service.kick = e.schedule
	return e
}

// Service returns the façade bound to this engine.
func (e *Engine) Service() *Service { return e.service }

// Start subscribes to connectivity changes. The subscription fires at once
// with the current status, so an online start triggers the initial pass.
// Calling Start on a started engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.ctx = ctx
	e.mu.Unlock()

	e.rec.Resume()
	unsubscribe := e.conn.Subscribe(e.onConnectivity)

	e.mu.Lock()
	e.unsubscribe = unsubscribe
	e.mu.Unlock()
	e.log.Info("sync engine started", "online", e.conn.Online())
}

// Stop unsubscribes and prevents new passes. A pass in flight is not interrupted.
func (e *Engine) Stop() {
	e.mu.Lock()
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.started = false
	e.mu.Unlock()

	e.rec.Stop()
	if unsubscribe != nil {
		unsubscribe()
		e.log.Info("sync engine stopped")
	}
}

// Wait blocks until every pass started by the engine returned.
func (e *Engine) Wait() { e.wg.Wait() }

// Sync runs a pass on demand.
func (e *Engine) Sync(ctx context.Context) (Report, error) {
	if !e.sessionActive() {
		return Report{Skipped: true}, nil
	}
	return e.rec.Run(ctx)
}

// LastReport returns the report of the last completed pass.
func (e *Engine) LastReport() (Report, bool) { return e.rec.LastReport() }

// SignOut stops syncing and wipes local notes, the queue, the snapshot cache
// and the session.
func (e *Engine) SignOut(ctx context.Context) error {
	e.Stop()

	var errs []error
	if err := e.store.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear local store: %w", err))
	}
	if e.snapshot != nil {
		if err := e.snapshot.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear snapshot: %w", err))
		}
	}
	if e.session != nil {
		e.session.Clear()
	}
	e.metrics.setQueueDepth(0)

	if err := errors.Join(errs...); err != nil {
		return err
	}
	e.log.Info("signed out, local data cleared")
	return nil
}

func (e *Engine) onConnectivity(online bool) {
	e.metrics.setOnline(online)
	if online {
		e.schedule()
	}
}

// schedule runs a pass in the background while the engine is started.
func (e *Engine) schedule() {
	e.mu.Lock()
	ctx, started := e.ctx, e.started
	e.mu.Unlock()
	if !started || ctx == nil || ctx.Err() != nil || !e.sessionActive() {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if _, err := e.rec.Run(ctx); err != nil && ctx.Err() == nil {
			e.log.Warn("sync pass failed", "error", err)
		}
	}()
}

func (e *Engine) sessionActive() bool {
	return e.session == nil || e.session.Active()
}
