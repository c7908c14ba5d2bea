package chat

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// SessionManager tracks active chat sessions per user. Each browser tab is
// its own session.
type SessionManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*Session
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]map[string]*Session),
	}
}

// GetActive returns the active session for a user and tab.
func (m *SessionManager) GetActive(userID, sessionID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.active[userID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// Register adds a session, replacing any stale one for the same tab.
func (m *SessionManager) Register(sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[sess.UserID]; !exists {
		m.active[sess.UserID] = make(map[string]*Session)
	}

	if existing, exists := m.active[sess.UserID][sess.ID]; exists && existing != sess {
		existing.Close(websocket.StatusNormalClosure, "session replaced")
	}

	m.active[sess.UserID][sess.ID] = sess
	slog.Info("Chat session registered", "user_id", sess.UserID, "session_id", sess.ID)
}

// Unregister removes a session if it is still the active one for its tab.
func (m *SessionManager) Unregister(sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.active[sess.UserID]; ok {
		if current, exists := sessions[sess.ID]; exists && current == sess {
			delete(sessions, sess.ID)
			if len(sessions) == 0 {
				delete(m.active, sess.UserID)
			}
			slog.Info("Chat session unregistered", "user_id", sess.UserID, "session_id", sess.ID)
		}
	}
}

// Count returns the number of active sessions across all users.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sessions := range m.active {
		n += len(sessions)
	}
	return n
}
