package notes_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"note-sync/internal/clients/memory"
	"note-sync/internal/services/notes"
)

func TestEngineStartRunsInitialPassWhenOnline(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	h.remote.seed(&notes.Note{ID: "srv-1", Title: "remote", CreatedAt: baseTime})

	h.engine.Start(ctx)
	defer h.engine.Stop()
	h.engine.Wait()

	rep, ok := h.engine.LastReport()
	require.True(t, ok)
	assert.Equal(t, 1, rep.Merged)
	assert.Len(t, h.localNotes(t), 1)
}

func TestEngineSyncsOnReconnect(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	h.engine.Start(ctx)
	defer h.engine.Stop()

	_, err := h.svc.CreateNote(ctx, notes.CreateNoteRequest{Title: "offline"})
	require.NoError(t, err)
	h.engine.Wait()
	assert.Zero(t, h.remote.callCount("create"))

	h.mon.SetOnline(true)
	h.engine.Wait()

	assert.Equal(t, 1, h.remote.callCount("create"))
	assert.Empty(t, h.pending(t))
}

func TestEngineSyncsWriteQueuedWhileOnline(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	h.remote.seed(&notes.Note{ID: "srv-1", Title: "t", Content: "v0", CreatedAt: baseTime})

	h.engine.Start(ctx)
	defer h.engine.Stop()
	h.engine.Wait()

	require.NoError(t, h.store.Enqueue(ctx, notes.SyncOperation{
		ID:        notes.OperationID(notes.OpUpdate, "srv-1", 1),
		Type:      notes.OpUpdate,
		NoteID:    "srv-1",
		Payload:   &notes.Payload{Title: "t", Content: "v1"},
		Timestamp: 1,
	}))

	content := "v2"
	_, err := h.svc.UpdateNote(ctx, "srv-1", notes.UpdateNoteRequest{Content: &content})
	require.NoError(t, err)
	h.engine.Wait()

	assert.Empty(t, h.pending(t))
	remote := h.remote.snapshot()
	require.Len(t, remote, 1)
	assert.Equal(t, "v2", remote[0].Content)
}

func TestEngineStopPreventsPasses(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	h.engine.Start(ctx)
	h.engine.Stop()

	h.mon.SetOnline(true)
	h.engine.Wait()
	assert.Empty(t, h.remote.calls)

	rep, err := h.engine.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Skipped)
}

func TestEngineSignOutClearsEverything(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	_, err := h.svc.CreateNote(ctx, notes.CreateNoteRequest{Title: "private"})
	require.NoError(t, err)
	require.NoError(t, h.snap.Save(ctx, []*notes.Note{{ID: "srv-1"}}))

	h.engine.Start(ctx)
	require.NoError(t, h.engine.SignOut(ctx))

	assert.Empty(t, h.localNotes(t))
	assert.Empty(t, h.pending(t))
	cached, err := h.snap.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, cached)

	h.mon.SetOnline(true)
	h.engine.Wait()
	assert.Empty(t, h.remote.calls, "no pass after sign-out")
}

func TestEngineSkipsWithoutSession(t *testing.T) {
	ctx := context.Background()
	session := &fakeSession{}
	remote := newFakeRemote()
	mon := notes.NewMonitor(true, silentLogger)
	reg := prometheus.NewRegistry()
	metrics := notes.NewMetrics(reg)

	e := notes.NewEngine(notes.EngineDeps{
		Store:   memory.NewStore(),
		Remote:  remote,
		Monitor: mon,
		Metrics: metrics,
		Session: session,
		Clock:   newTestClock(baseTime, time.Millisecond).Now,
		Log:     silentLogger,
	})

	e.Start(ctx)
	e.Wait()
	assert.Empty(t, remote.calls)

	rep, err := e.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Skipped)

	session.mu.Lock()
	session.active = true
	session.mu.Unlock()

	rep, err = e.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, rep.Skipped)

	require.NoError(t, e.SignOut(ctx))
	assert.True(t, session.cleared)

	assert.Equal(t, float64(1), counterValue(t, reg, "notesync_sync_passes_total", "ok"))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{outcome=%q} not found", name, outcome)
	return 0
}
