package navigation

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	gorillaws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeConn struct {
	mu       sync.Mutex
	messages []Message
	writeErr error
	closed   bool
	deadline time.Time
	// block, when set, holds WriteJSON until it is closed.
	block chan struct{}
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.messages = append(f.messages, v.(Message))
	return nil
}

func (f *fakeConn) SetWriteDeadline(t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadline = t
	return nil
}

func (f *fakeConn) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.messages...)
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	return 0, nil, io.EOF
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestHubNavigateToWithoutSubscribers(t *testing.T) {
	hub := NewHub(quietLogger())

	err := hub.NavigateTo(context.Background(), "session-1", "/booking")
	assert.ErrorIs(t, err, ErrNoSubscribers)
}

func TestHubNavigateToEveryConnectionOfSession(t *testing.T) {
	hub := NewHub(quietLogger())
	first, second, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Register("session-1", first)
	hub.Register("session-1", second)
	hub.Register("session-2", other)

	require.NoError(t, hub.NavigateTo(context.Background(), "session-1", "/checkout"))

	want := []Message{{Type: "navigate", Path: "/checkout"}}
	assert.Equal(t, want, first.messages)
	assert.Equal(t, want, second.messages)
	assert.Empty(t, other.messages)
}

func TestHubDropsBrokenConnections(t *testing.T) {
	hub := NewHub(quietLogger())
	broken := &fakeConn{writeErr: errors.New("broken pipe")}
	hub.Register("session-1", broken)

	err := hub.NavigateTo(context.Background(), "session-1", "/")
	assert.ErrorIs(t, err, ErrNoSubscribers)
	assert.True(t, broken.closed)
	assert.Equal(t, 0, hub.Subscribers("session-1"))
}

func TestHubSetsWriteDeadline(t *testing.T) {
	hub := NewHub(quietLogger())
	conn := &fakeConn{}
	hub.Register("session-1", conn)

	before := time.Now()
	require.NoError(t, hub.NavigateTo(context.Background(), "session-1", "/booking"))

	conn.mu.Lock()
	deadline := conn.deadline
	conn.mu.Unlock()
	assert.False(t, deadline.IsZero())
	assert.True(t, deadline.After(before))
	assert.True(t, deadline.Before(before.Add(WriteTimeout+time.Second)))
}

func TestHubStalledSessionDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(quietLogger())
	stalled := &fakeConn{block: make(chan struct{})}
	healthy := &fakeConn{}
	hub.Register("session-1", stalled)
	hub.Register("session-2", healthy)

	stalledDone := make(chan error, 1)
	go func() {
		stalledDone <- hub.NavigateTo(context.Background(), "session-1", "/booking")
	}()

	done := make(chan error, 1)
	go func() {
		done <- hub.NavigateTo(context.Background(), "session-2", "/checkout")
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("navigation for session-2 blocked behind session-1")
	}
	assert.Equal(t, []Message{{Type: "navigate", Path: "/checkout"}}, healthy.Messages())
	assert.Equal(t, 1, hub.Subscribers("session-1"))

	close(stalled.block)
	require.NoError(t, <-stalledDone)
	assert.Equal(t, []Message{{Type: "navigate", Path: "/booking"}}, stalled.Messages())
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub(quietLogger())
	conn := &fakeConn{}
	hub.Register("session-1", conn)
	assert.Equal(t, 1, hub.Subscribers("session-1"))

	hub.Unregister("session-1", conn)
	hub.Unregister("session-1", conn)
	assert.Equal(t, 0, hub.Subscribers("session-1"))
}

func TestHubServeUnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(quietLogger())
	conn := &fakeConn{}

	hub.Serve("session-1", conn)

	assert.Equal(t, 0, hub.Subscribers("session-1"))
	assert.True(t, conn.closed)
}

func TestHubOverWebsocket(t *testing.T) {
	hub := NewHub(quietLogger())

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		hub.Serve(c.Query("session"), c)
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	client, _, err := gorillaws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws?session=session-1", nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool {
		return hub.Subscribers("session-1") == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.NavigateTo(context.Background(), "session-1", "/booking"))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, client.ReadJSON(&msg))
	assert.Equal(t, Message{Type: "navigate", Path: "/booking"}, msg)

	require.NoError(t, client.Close())
	require.Eventually(t, func() bool {
		return hub.Subscribers("session-1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLogNavigator(t *testing.T) {
	nav := NewLogNavigator(quietLogger())
	assert.NoError(t, nav.NavigateTo(context.Background(), "cli", "/"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, nav.NavigateTo(ctx, "cli", "/"), context.Canceled)
}
