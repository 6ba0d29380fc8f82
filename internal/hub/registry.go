package hub

import "sync"

// Session is a single connected client as seen by the registry: just
// enough to deliver it a frame. The transport-facing half (the actual
// socket, read/write pumps) lives in session.go; Registry only ever
// touches the ring.
type Session struct {
	id   string
	ring chan []byte
}

// newSession creates a session with a ring of the given capacity. Ring
// capacity is the slow-client policy knob: a full ring drops new frames
// rather than evicting old ones or stalling the broadcaster.
func newSession(id string, ringCapacity int) *Session {
	return &Session{
		id:   id,
		ring: make(chan []byte, ringCapacity),
	}
}

// ID returns the session's opaque identifier, used only for logging.
func (s *Session) ID() string { return s.id }

// Registry is the mutable set of connected sessions. All membership
// mutations and broadcasts are serialized through mu: a session is
// never walked by two broadcasts at once, and iteration never observes
// a partial membership update.
type Registry struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[*Session]struct{})}
}

// Append adds a session to the registry. O(1).
func (r *Registry) Append(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s] = struct{}{}
}

// Remove unlinks a session from the registry. O(1). Removing a session
// not present is a no-op.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s)
}

// Count reports the number of currently registered sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Broadcast delivers payload to every registered session's ring, except
// exclude if non-nil (the sender-exclusion mode for self-echo).
// Insertion into a full ring fails silently -- that frame is dropped for
// that one session, not the whole broadcast. Broadcast returns the
// number of sessions the frame was actually queued for.
func (r *Registry) Broadcast(payload []byte, exclude *Session) int {
	if len(payload) == 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for s := range r.sessions {
		if s == exclude {
			continue
		}
		frame := make([]byte, len(payload))
		copy(frame, payload)

		select {
		case s.ring <- frame:
			delivered++
		default:
			// Ring full: drop this frame for this session only.
		}
	}
	return delivered
}
