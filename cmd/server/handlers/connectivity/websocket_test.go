package connectivity

import (
	"errors"
	"fmt"
	"net"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"note-sync/cmd/server/testutil"

	"github.com/gofiber/contrib/websocket"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource mimics notes.Monitor: subscribers get the current status at once.
type fakeSource struct {
	mu     sync.Mutex
	online bool
	subs   map[int]func(bool)
	next   int
}

func newFakeSource(online bool) *fakeSource {
	return &fakeSource{online: online, subs: make(map[int]func(bool))}
}

func (f *fakeSource) Online() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeSource) SubscribeConnectivity(cb func(bool)) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = cb
	online := f.online
	f.mu.Unlock()

	cb(online)
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fakeSource) set(online bool) {
	f.mu.Lock()
	f.online = online
	cbs := make([]func(bool), 0, len(f.subs))
	for _, cb := range f.subs {
		cbs = append(cbs, cb)
	}
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(online)
	}
}

func (f *fakeSource) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func serve(t *testing.T, h *Handlers) string {
	t.Helper()
	app := testutil.CreateTestApp(t)
	app.Get("/ws/connectivity", h.WSUpgrade, websocket.New(h.WSStream))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return fmt.Sprintf("ws://%s/ws/connectivity", ln.Addr().String())
}

func readStatus(t *testing.T, conn *gorillaws.Conn) Status {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var s Status
	require.NoError(t, conn.ReadJSON(&s))
	return s
}

func TestGet(t *testing.T) {
	app := testutil.CreateTestApp(t)
	h := NewHandlers(newFakeSource(true), 900, 4)
	app.Get("/connectivity", h.Get)

	resp, err := app.Test(httptest.NewRequest("GET", "/connectivity", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestWSUpgradeRequiresWebSocket(t *testing.T) {
	app := testutil.CreateTestApp(t)
	h := NewHandlers(newFakeSource(true), 900, 4)
	app.Get("/ws/connectivity", h.WSUpgrade, websocket.New(h.WSStream))

	resp, err := app.Test(testutil.CreateJSONRequest("GET", "/ws/connectivity", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestWSStreamSendsTransitions(t *testing.T) {
	src := newFakeSource(false)
	url := serve(t, NewHandlers(src, 900, 4))

	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, Status{Online: false}, readStatus(t, conn), "first frame is the current status")

	src.set(true)
	assert.Equal(t, Status{Online: true}, readStatus(t, conn))

	src.set(false)
	assert.Equal(t, Status{Online: false}, readStatus(t, conn))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return src.subscribers() == 0 },
		2*time.Second, 10*time.Millisecond, "closing the socket unsubscribes")
}

func TestWSSessionTimeout(t *testing.T) {
	src := newFakeSource(true)
	url := serve(t, NewHandlers(src, 1, 4))

	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readStatus(t, conn)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	start := time.Now()
	_, _, err = conn.ReadMessage()
	require.Error(t, err)

	var closeErr *gorillaws.CloseError
	if errors.As(err, &closeErr) {
		assert.Equal(t, WSClosePolicyViolation, closeErr.Code)
	}
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestOutboxKeepsLatest(t *testing.T) {
	box := &outbox{ch: make(chan Status, 1)}
	box.push(Status{Online: true})
	box.push(Status{Online: false})

	require.Len(t, box.ch, 1)
	assert.Equal(t, Status{Online: false}, <-box.ch)
}
