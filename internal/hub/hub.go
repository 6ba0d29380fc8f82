// Package hub fans inbound Kafka messages out to every connected
// WebSocket client, and forwards every client message to the outbound
// Kafka queue (and, per the documented self-echo contract, back out to
// every connected client, the sender included unless WithExcludeSender
// is set).
package hub

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/johnjansen/lootopia-bridge/internal/queue"
)

// DefaultRingSize is the number of pending outbound frames a single
// slow client may accumulate before new frames are dropped.
const DefaultRingSize = 64

// Option configures a Hub at construction time.
type Option func(*Hub)

// WithRingSize overrides DefaultRingSize.
func WithRingSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.ringSize = n
		}
	}
}

// WithExcludeSender controls whether a client's own message is echoed
// back to it: when enabled, a message is broadcast to every other
// connected session but not to the sender. The default (false)
// broadcasts to everyone, including the sender.
func WithExcludeSender(exclude bool) Option {
	return func(h *Hub) { h.excludeSender = exclude }
}

// Hub owns the session registry, the outbound queue, and the WebSocket
// upgrade endpoint. One Hub exists per process, constructed once in
// cmd/bridge and threaded explicitly into every HTTP handler rather than
// hung off a package-level global.
type Hub struct {
	registry      *Registry
	outbound      *queue.Queue
	ringSize      int
	excludeSender bool
	upgrader      websocket.Upgrader

	mu       sync.Mutex
	sessions map[*connSession]struct{}
}

// New creates a Hub that forwards client-originated messages onto
// outbound.
func New(outbound *queue.Queue, opts ...Option) *Hub {
	h := &Hub{
		registry: NewRegistry(),
		outbound: outbound,
		ringSize: DefaultRingSize,
		sessions: make(map[*connSession]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// No per-client authorization or origin policy; any origin
			// may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request to a WebSocket connection, registers
// the new session, and runs its read and write pumps until the
// connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("bridge/hub: upgrade failed: %v", err)
		return
	}

	id := newSessionID()
	cs := &connSession{
		Session: newSession(id, h.ringSize),
		conn:    conn,
		done:    make(chan struct{}),
	}

	h.registry.Append(cs.Session)
	h.mu.Lock()
	h.sessions[cs] = struct{}{}
	h.mu.Unlock()
	log.Printf("bridge/hub: client connected: %s", id)

	go cs.writePump()
	ctx := r.Context()
	cs.readPump(func(payload []byte) {
		var exclude *Session
		if h.excludeSender {
			exclude = cs.Session
		}
		h.registry.Broadcast(payload, exclude)
		if !h.outbound.Push(ctx, payload) {
			log.Printf("bridge/hub: failed to forward message to outbound queue; dropped")
		}
	})

	h.registry.Remove(cs.Session)
	h.mu.Lock()
	delete(h.sessions, cs)
	h.mu.Unlock()
	conn.Close()
	log.Printf("bridge/hub: client disconnected: %s", id)
}

// RunDispatcher drains the inbound queue and broadcasts every payload to
// every connected session (there is no "sender" to exclude for
// broker-originated traffic). The queue is drained about once a
// millisecond; RunDispatcher returns as soon as ctx is canceled, without
// a final drain, so payloads pushed after its last drain stay in the
// inbound queue.
func (h *Hub) RunDispatcher(ctx context.Context, inbound *queue.Queue) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		for {
			payload, ok := inbound.TryPop()
			if !ok {
				break
			}
			h.registry.Broadcast(payload, nil)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown closes every currently connected session's underlying
// connection, which unblocks each session's read and write pumps so
// they can exit and release their ring.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	sessions := make([]*connSession, 0, len(h.sessions))
	for cs := range h.sessions {
		sessions = append(sessions, cs)
	}
	h.mu.Unlock()

	for _, cs := range sessions {
		cs.conn.Close()
	}
}

// SessionCount reports the number of currently connected clients.
func (h *Hub) SessionCount() int {
	return h.registry.Count()
}

func newSessionID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "session-unknown"
	}
	return hex.EncodeToString(buf)
}
