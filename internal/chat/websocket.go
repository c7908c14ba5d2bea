package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jsylvan/foundrychat/internal/coordinator"
	"github.com/jsylvan/foundrychat/internal/foundry"
	"github.com/jsylvan/foundrychat/internal/identity"
	"github.com/jsylvan/foundrychat/internal/metrics"
)

// sessionStartTimeout bounds the thread-creation call on connect.
const sessionStartTimeout = 15 * time.Second

// Handler serves WebSocket chat sessions and maps their lifecycle onto
// the run coordinator: connect creates the remote thread, each inbound
// message runs one coordinator cycle, disconnect records the thread id.
type Handler struct {
	api           foundry.API
	coord         *coordinator.Coordinator
	sm            *SessionManager
	limiter       *RateLimiter
	log           ConversationLogger
	metrics       *metrics.Metrics
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a chat WebSocket handler. convLog and m may be nil.
func NewHandler(api foundry.API, coord *coordinator.Coordinator, sm *SessionManager, limiter *RateLimiter, convLog ConversationLogger, m *metrics.Metrics, allowedOrigin string, isDev bool) *Handler {
	if convLog == nil {
		convLog = NoopConversationLogger{}
	}
	return &Handler{
		api:           api,
		coord:         coord,
		sm:            sm,
		limiter:       limiter,
		log:           convLog,
		metrics:       m,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsMessage is the JSON frame exchanged with the browser.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("Chat connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	sess := NewSession(userID, sessionID, ws)
	h.sm.Register(sess)
	defer h.sm.Unregister(sess)

	if h.metrics != nil {
		h.metrics.ActiveSessions.Inc()
		defer h.metrics.ActiveSessions.Dec()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.onSessionStart(ctx, sess)
	defer h.onSessionEnd(sess)

	// One message is handled to completion before the next read, so a
	// session never has more than one run outstanding.
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("Ignoring malformed chat frame", "user_id", userID, "error", err)
			continue
		}

		switch msg.Type {
		case "message":
			if msg.Content == "" {
				continue
			}
			h.onMessage(ctx, sess, msg.Content)
		case "ping":
			h.send(sess, wsMessage{Type: "pong"})
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// onSessionStart creates the remote thread and greets the user. On
// failure the session stays open with no thread; the first message then
// renders the session-error notice.
func (h *Handler) onSessionStart(ctx context.Context, sess *Session) {
	startCtx, cancel := context.WithTimeout(ctx, sessionStartTimeout)
	defer cancel()

	thread, err := h.api.CreateThread(startCtx)
	if err != nil {
		slog.Error("Failed to create thread for session", "user_id", sess.UserID, "session_id", sess.ID, "error", err)
		h.send(sess, wsMessage{Type: "message", Content: connectionErrorNotice(err)})
		return
	}

	sess.Set(ThreadIDKey, thread.ID)
	slog.Info("Chat session started", "user_id", sess.UserID, "session_id", sess.ID, "thread_id", thread.ID)
	h.send(sess, wsMessage{Type: "message", Content: welcomeNotice})
}

// onMessage runs one coordinator cycle for an inbound user message and
// renders whatever comes back. Coordinator errors of any kind become chat
// notices; nothing here tears down the session.
func (h *Handler) onMessage(ctx context.Context, sess *Session, text string) {
	if h.metrics != nil {
		h.metrics.MessagesTotal.WithLabelValues("inbound").Inc()
	}
	h.log.Log(ConversationLogEvent{
		UserID:    sess.UserID,
		SessionID: sess.ID,
		ThreadID:  sess.ThreadID(),
		Direction: "outbound",
		EventType: "user_message",
		Content:   text,
	})

	if h.limiter != nil && !h.limiter.Allow(sess.UserID) {
		h.send(sess, wsMessage{Type: "message", Content: rateLimitNotice})
		return
	}

	h.send(sess, wsMessage{Type: "step", Content: "🤔 Processing your request..."})

	var rendered string
	res, err := h.coord.HandleUserMessage(ctx, sess.ThreadID(), text)
	if err != nil {
		slog.Error("Message handling failed", "user_id", sess.UserID, "session_id", sess.ID, "error", err)
		rendered = renderError(err)
		h.send(sess, wsMessage{Type: "step", Content: "❌ Something went wrong", Done: true})
	} else {
		rendered = renderResult(res)
		h.send(sess, wsMessage{Type: "step", Content: "✅ Response ready", Done: true})
	}

	h.send(sess, wsMessage{Type: "message", Content: rendered})

	if h.metrics != nil {
		h.metrics.MessagesTotal.WithLabelValues("outbound").Inc()
	}
	h.log.Log(ConversationLogEvent{
		UserID:    sess.UserID,
		SessionID: sess.ID,
		ThreadID:  sess.ThreadID(),
		Direction: "inbound",
		EventType: "agent_message",
		Content:   rendered,
	})
}

// onSessionEnd records the thread id for later inspection. The remote
// thread is intentionally retained.
func (h *Handler) onSessionEnd(sess *Session) {
	if threadID := sess.ThreadID(); threadID != "" {
		slog.Info("Chat session ended", "user_id", sess.UserID, "session_id", sess.ID, "thread_id", threadID)
		return
	}
	slog.Info("Chat session ended without thread", "user_id", sess.UserID, "session_id", sess.ID)
}

func (h *Handler) send(sess *Session, msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Warn("Failed to marshal chat frame", "error", err)
		return
	}
	if err := sess.conn.Write(context.Background(), websocket.MessageText, data); err != nil {
		slog.Debug("WebSocket write error", "error", err, "user_id", sess.UserID)
	}
}
