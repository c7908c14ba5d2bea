package chat

import (
	"sync"

	"github.com/coder/websocket"
)

// ThreadIDKey is the session store key holding the remote thread id.
const ThreadIDKey = "thread_id"

// Session is the per-connection state for one chat tab. It exposes a small
// key-value store to the rest of the application; the thread id is the
// only value the relay itself depends on.
type Session struct {
	UserID string
	ID     string

	conn *websocket.Conn

	mu     sync.RWMutex
	values map[string]string
}

// NewSession creates a session bound to a WebSocket connection.
func NewSession(userID, sessionID string, conn *websocket.Conn) *Session {
	return &Session{
		UserID: userID,
		ID:     sessionID,
		conn:   conn,
		values: make(map[string]string),
	}
}

// Get returns a stored session value.
func (s *Session) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a session value. The thread id is immutable once set; late
// writes to it are ignored so the session-to-thread correlation never
// changes mid-conversation.
func (s *Session) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == ThreadIDKey {
		if _, exists := s.values[key]; exists {
			return
		}
	}
	s.values[key] = value
}

// ThreadID returns the remote thread id, or "" before the first
// successful session start.
func (s *Session) ThreadID() string {
	v, _ := s.Get(ThreadIDKey)
	return v
}

// Close closes the underlying connection.
func (s *Session) Close(code websocket.StatusCode, reason string) {
	if s.conn != nil {
		_ = s.conn.Close(code, reason)
	}
}
