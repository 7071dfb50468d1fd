package navigation

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// WriteTimeout bounds a single navigation write to one connection.
const WriteTimeout = 5 * time.Second

// Conn is the part of a websocket connection the hub needs.
type Conn interface {
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// subscriber serializes writes to one connection.
type subscriber struct {
	mu   sync.Mutex
	conn Conn
}

// Hub keeps the live websocket connections of every session and pushes
// navigation messages to them.
type Hub struct {
	mu           sync.Mutex
	sessions     map[string]map[Conn]*subscriber
	log          *logrus.Logger
	writeTimeout time.Duration
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		sessions:     make(map[string]map[Conn]*subscriber),
		log:          log,
		writeTimeout: WriteTimeout,
	}
}

func (h *Hub) Register(sessionID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.sessions[sessionID]
	if !ok {
		conns = make(map[Conn]*subscriber)
		h.sessions[sessionID] = conns
	}
	if _, ok := conns[conn]; !ok {
		conns[conn] = &subscriber{conn: conn}
	}
}

func (h *Hub) Unregister(sessionID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.sessions, sessionID)
	}
}

// Subscribers returns the number of open connections of a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[sessionID])
}

func (h *Hub) snapshot(sessionID string) []*subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := make([]*subscriber, 0, len(h.sessions[sessionID]))
	for _, sub := range h.sessions[sessionID] {
		subs = append(subs, sub)
	}
	return subs
}

// NavigateTo pushes the path to every connection of the session. Connections
// that fail to accept the write within the write timeout are dropped.
func (h *Hub) NavigateTo(ctx context.Context, sessionID, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subs := h.snapshot(sessionID)
	if len(subs) == 0 {
		return ErrNoSubscribers
	}

	msg := Message{Type: MessageTypeNavigate, Path: path}
	delivered := 0
	for _, sub := range subs {
		if err := h.write(ctx, sub, msg); err != nil {
			h.log.WithFields(logrus.Fields{
				"session_id": sessionID,
				"error":      err.Error(),
			}).Warn("Dropping navigation connection")
			_ = sub.conn.Close()
			h.Unregister(sessionID, sub.conn)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return ErrNoSubscribers
	}
	return nil
}

func (h *Hub) write(ctx context.Context, sub *subscriber, msg Message) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	deadline := time.Now().Add(h.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := sub.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return sub.conn.WriteJSON(msg)
}

// Serve registers conn and blocks until the client goes away.
func (h *Hub) Serve(sessionID string, conn Conn) {
	h.Register(sessionID, conn)
	defer func() {
		h.Unregister(sessionID, conn)
		_ = conn.Close()
	}()

	h.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"at":         time.Now().Format(time.RFC3339),
	}).Debug("Navigation subscriber connected")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.WithFields(logrus.Fields{
				"session_id": sessionID,
			}).Debug("Navigation subscriber disconnected")
			return
		}
	}
}
