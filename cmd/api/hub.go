package main

import (
	"fmt"
	"sync"

	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
)

// EventSender is the minimal interface the hub needs from a Subscribe stream.
type EventSender interface {
	Send(*chatv1.Event) error
}

// connection is one Subscribe stream. Sends on a gRPC stream must not run
// concurrently, so each connection serializes its own.
type connection struct {
	mu        sync.Mutex
	sender    EventSender
	sessionID string
	closed    chan struct{}
	closeOnce sync.Once
}

func (c *connection) send(ev *chatv1.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sender.Send(ev)
}

func (c *connection) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// ConnectionHub manages active event streams for connected users.
// It maps user ids to one or more active connections so the server can push
// events to every endpoint a user currently has open.
type ConnectionHub struct {
	mu      sync.RWMutex
	streams map[string]map[int64]*connection
	nextID  int64
}

// NewConnectionHub creates a new hub instance.
func NewConnectionHub() *ConnectionHub {
	return &ConnectionHub{streams: make(map[string]map[int64]*connection)}
}

// Register adds a stream for userID opened under sessionID. It returns the
// connection id to pass to Unregister and a channel that is closed when the
// session is ended through CloseSession.
func (h *ConnectionHub) Register(userID, sessionID string, s EventSender) (int64, <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.streams[userID]; !ok {
		h.streams[userID] = make(map[int64]*connection)
	}

	h.nextID++
	id := h.nextID
	conn := &connection{sender: s, sessionID: sessionID, closed: make(chan struct{})}
	h.streams[userID][id] = conn
	return id, conn.closed
}

// Unregister removes a previously registered stream.
func (h *ConnectionHub) Unregister(userID string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.streams[userID]; ok {
		delete(conns, id)
		if len(conns) == 0 {
			delete(h.streams, userID)
		}
	}
}

// Online reports whether userID has at least one open stream.
func (h *ConnectionHub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[userID]) > 0
}

func (h *ConnectionHub) snapshot(userID string) map[int64]*connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := h.streams[userID]
	out := make(map[int64]*connection, len(conns))
	for id, c := range conns {
		out[id] = c
	}
	return out
}

// SendToUser attempts to send ev to every connected stream of userID.
// Delivery is best-effort: every stream is tried, the first error is
// returned and failing streams are unregistered.
func (h *ConnectionHub) SendToUser(userID string, ev *chatv1.Event) error {
	conns := h.snapshot(userID)
	if len(conns) == 0 {
		return fmt.Errorf("user %s not connected", userID)
	}

	var firstErr error
	var failedIDs []int64
	for id, c := range conns {
		if err := c.send(ev); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failedIDs = append(failedIDs, id)
		}
	}

	for _, id := range failedIDs {
		h.Unregister(userID, id)
	}
	return firstErr
}

// CloseSession sends ev to the streams of userID opened under sessionID and
// then ends them. It returns the number of streams closed.
func (h *ConnectionHub) CloseSession(userID, sessionID string, ev *chatv1.Event) int {
	h.mu.RLock()
	matched := make(map[int64]*connection)
	for id, c := range h.streams[userID] {
		if c.sessionID == sessionID {
			matched[id] = c
		}
	}
	h.mu.RUnlock()

	closed := 0
	for id, c := range matched {
		if ev != nil {
			_ = c.send(ev)
		}
		c.close()
		h.Unregister(userID, id)
		closed++
	}
	return closed
}

// Rebind moves the streams of userID opened under oldSession to newSession.
func (h *ConnectionHub) Rebind(userID, oldSession, newSession string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.streams[userID] {
		if c.sessionID == oldSession {
			c.sessionID = newSession
		}
	}
}
