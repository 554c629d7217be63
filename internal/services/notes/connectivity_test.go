package notes_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"note-sync/internal/services/notes"
)

func TestMonitorSubscribeDeliversCurrentStatus(t *testing.T) {
	m := notes.NewMonitor(true, silentLogger)

	var got []bool
	unsubscribe := m.Subscribe(func(online bool) { got = append(got, online) })
	defer unsubscribe()

	assert.Equal(t, []bool{true}, got)
}

func TestMonitorDispatchesTransitionsOnly(t *testing.T) {
	m := notes.NewMonitor(false, silentLogger)

	var got []bool
	unsubscribe := m.Subscribe(func(online bool) { got = append(got, online) })

	m.SetOnline(false)
	m.SetOnline(true)
	m.SetOnline(true)
	m.SetOnline(false)

	assert.Equal(t, []bool{false, true, false}, got)

	unsubscribe()
	m.SetOnline(true)
	assert.Len(t, got, 3, "no delivery after unsubscribe")

	subs, transitions := m.Stats()
	assert.Zero(t, subs)
	assert.Equal(t, uint64(3), transitions)
}

func TestMonitorSubscriberMayUnsubscribeDuringDispatch(t *testing.T) {
	m := notes.NewMonitor(false, silentLogger)

	var unsubscribe func()
	calls := 0
	unsubscribe = m.Subscribe(func(online bool) {
		calls++
		if online {
			unsubscribe()
		}
	})

	m.SetOnline(true)
	m.SetOnline(false)
	assert.Equal(t, 2, calls)
}

func TestMonitorConcurrentUse(t *testing.T) {
	m := notes.NewMonitor(false, silentLogger)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			m.SetOnline(i%2 == 0)
		}(i)
		go func() {
			defer wg.Done()
			unsubscribe := m.Subscribe(func(bool) {})
			unsubscribe()
		}()
	}
	wg.Wait()

	subs, _ := m.Stats()
	assert.Zero(t, subs)
}

// MockPinger is a mock implementation of Pinger
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestProberProbe(t *testing.T) {
	tests := []struct {
		name    string
		initial bool
		pingErr error
		want    bool
	}{
		{name: "reachable", initial: false, pingErr: nil, want: true},
		{name: "transient failure", initial: true, pingErr: transientErr("GET /health"), want: false},
		{name: "any http answer counts as online", initial: false, pingErr: notes.ErrRejected, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pinger := new(MockPinger)
			pinger.On("Ping", mock.Anything).Return(tt.pingErr)

			m := notes.NewMonitor(tt.initial, silentLogger)
			notes.NewProber(pinger, m, time.Hour, silentLogger).Probe(context.Background())

			assert.Equal(t, tt.want, m.Online())
			pinger.AssertExpectations(t)
		})
	}
}

func TestProberRunStopsWithContext(t *testing.T) {
	pinger := new(MockPinger)
	pinger.On("Ping", mock.Anything).Return(nil)
	m := notes.NewMonitor(false, silentLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- notes.NewProber(pinger, m, 5*time.Millisecond, silentLogger).Run(ctx)
	}()

	require.Eventually(t, m.Online, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("prober did not stop")
	}
}

func TestProberIgnoresResultAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pinger := new(MockPinger)
	pinger.On("Ping", mock.Anything).Run(func(mock.Arguments) { cancel() }).Return(errors.Join(context.Canceled, notes.ErrTransient))

	m := notes.NewMonitor(true, silentLogger)
	notes.NewProber(pinger, m, time.Hour, silentLogger).Probe(ctx)
	assert.True(t, m.Online())
}
