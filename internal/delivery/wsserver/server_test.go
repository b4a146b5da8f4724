// internal/delivery/wsserver/server_test.go
package wsserver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nastiakostenyuk/alert-server-v1/internal/types"
)

type fakeTransport struct {
	mu       sync.Mutex
	writes   []interface{}
	writeErr error
	closed   bool
}

func (t *fakeTransport) WriteJSON(_ context.Context, v interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return t.writeErr
	}
	t.writes = append(t.writes, v)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) frames() []interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]interface{}(nil), t.writes...)
}

type fakeFallback struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeFallback) Send(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
}

func newTestServer() (*Server, *fakeFallback) {
	fallback := &fakeFallback{}
	return NewServer("127.0.0.1", 0, NewPendingQueue(8), fallback), fallback
}

func TestTickSendsPingAfterCooldown(t *testing.T) {
	srv, _ := newTestServer()
	transport := &fakeTransport{}
	sub := srv.hub.Add(transport)
	sub.lastPing = time.Now().Add(-pingCooldown)

	alive := srv.tick(sub)

	assert.True(t, alive)
	frames := transport.frames()
	require.Len(t, frames, 1)

	ping, ok := frames[0].(types.PingFrame)
	require.True(t, ok)
	assert.Equal(t, "PING", ping.Event)
	assert.NotZero(t, ping.EventTime)
	assert.WithinDuration(t, time.Now(), sub.lastPing, time.Second)
}

func TestTickPingFailureDropsConnection(t *testing.T) {
	srv, _ := newTestServer()
	transport := &fakeTransport{writeErr: errors.New("broken pipe")}
	sub := srv.hub.Add(transport)
	sub.lastPing = time.Now().Add(-pingCooldown)

	alive := srv.tick(sub)

	assert.False(t, alive)
	assert.Equal(t, 0, srv.hub.Count())
	assert.True(t, transport.closed)
}

func TestTickIdleWhenQueueEmpty(t *testing.T) {
	srv, fallback := newTestServer()
	transport := &fakeTransport{}
	sub := srv.hub.Add(transport)

	alive := srv.tick(sub)

	assert.True(t, alive)
	assert.Empty(t, transport.frames())
	assert.Empty(t, fallback.sent)
}

func TestTickDeliversAlertToAllConnections(t *testing.T) {
	srv, fallback := newTestServer()
	first := &fakeTransport{}
	second := &fakeTransport{}
	sub := srv.hub.Add(first)
	srv.hub.Add(second)

	srv.Enqueue(types.AlertPayload{Symbol: "BTCUSDT"})
	alive := srv.tick(sub)

	assert.True(t, alive)
	for _, transport := range []*fakeTransport{first, second} {
		frames := transport.frames()
		require.Len(t, frames, 1)

		alert, ok := frames[0].(types.AlertFrame)
		require.True(t, ok)
		assert.Equal(t, "Alert", alert.Event)
		assert.Equal(t, "BTCUSDT", alert.Symbol)
		assert.NotZero(t, alert.EventTime)
	}

	assert.Equal(t, []string{"BTCUSDT"}, fallback.sent)
	assert.Equal(t, 0, srv.queue.Len())
}

func TestTickPrunesDeadConnectionsDuringDelivery(t *testing.T) {
	srv, fallback := newTestServer()
	healthy := &fakeTransport{}
	dead := &fakeTransport{writeErr: errors.New("broken pipe")}
	sub := srv.hub.Add(healthy)
	srv.hub.Add(dead)

	srv.Enqueue(types.AlertPayload{Symbol: "ETHUSDT"})
	alive := srv.tick(sub)

	assert.True(t, alive)
	assert.Equal(t, 1, srv.hub.Count())
	assert.True(t, dead.closed)
	assert.Equal(t, []string{"ETHUSDT"}, fallback.sent)
}

func TestTickSelfWriteFailureEndsLoop(t *testing.T) {
	srv, _ := newTestServer()
	transport := &fakeTransport{writeErr: errors.New("broken pipe")}
	sub := srv.hub.Add(transport)

	srv.Enqueue(types.AlertPayload{Symbol: "SOLUSDT"})
	alive := srv.tick(sub)

	assert.False(t, alive)
	assert.Equal(t, 0, srv.hub.Count())
}

func TestHasSubscribers(t *testing.T) {
	srv, _ := newTestServer()
	assert.False(t, srv.HasSubscribers())

	srv.hub.Add(&fakeTransport{})
	assert.True(t, srv.HasSubscribers())
}

func TestHubRemoveIsIdempotent(t *testing.T) {
	hub := NewHub()
	sub := hub.Add(&fakeTransport{})

	assert.True(t, hub.Remove(sub.id))
	assert.False(t, hub.Remove(sub.id))
	assert.Equal(t, 0, hub.Count())
}
