package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jsylvan/foundrychat/internal/config"
)

// ConversationLogEvent is one NDJSON record in a session's conversation
// log.
type ConversationLogEvent struct {
	Timestamp string         `json:"ts"`
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	ThreadID  string         `json:"thread_id,omitempty"`
	Direction string         `json:"direction"` // outbound = user to agent, inbound = agent to user
	EventType string         `json:"event_type"`
	Content   string         `json:"content"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// ConversationLogger records chat traffic for later review. Log must never
// block the chat path.
type ConversationLogger interface {
	Log(event ConversationLogEvent)
	Close() error
}

// NoopConversationLogger discards all events.
type NoopConversationLogger struct{}

func (NoopConversationLogger) Log(ConversationLogEvent) {}
func (NoopConversationLogger) Close() error             { return nil }

// fileConversationLogger appends events to per-session NDJSON files under
// a base directory, one writer goroutine draining a bounded queue.
type fileConversationLogger struct {
	dir    string
	queue  chan ConversationLogEvent
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewConversationLogger builds a logger from config. Disabled config
// yields the no-op logger.
func NewConversationLogger(cfg config.ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return NoopConversationLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}

	l := &fileConversationLogger{
		dir:    cfg.Dir,
		queue:  make(chan ConversationLogEvent, queueSize),
		logger: logger,
	}
	l.wg.Add(1)
	go l.drain()
	return l, nil
}

// Log enqueues an event, dropping it when the queue is full so a slow
// disk never stalls the chat.
func (l *fileConversationLogger) Log(event ConversationLogEvent) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case l.queue <- event:
	default:
		l.logger.Warn("conversation log queue full, dropping event",
			"user_id", event.UserID, "session_id", event.SessionID, "event_type", event.EventType)
	}
}

// Close flushes the queue and stops the writer.
func (l *fileConversationLogger) Close() error {
	l.closeOnce.Do(func() {
		close(l.queue)
	})
	l.wg.Wait()
	return nil
}

func (l *fileConversationLogger) drain() {
	defer l.wg.Done()
	for event := range l.queue {
		if err := l.append(event); err != nil {
			l.logger.Warn("failed to write conversation log event", "error", err,
				"user_id", event.UserID, "session_id", event.SessionID)
		}
	}
}

func (l *fileConversationLogger) append(event ConversationLogEvent) error {
	userDir := filepath.Join(l.dir, sanitizePathComponent(event.UserID))
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(userDir, sanitizePathComponent(event.SessionID)+".ndjson")

	line, err := json.Marshal(event)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = f.Write(append(line, '\n'))
	return err
}

// sanitizePathComponent keeps client-supplied ids from escaping the log
// directory.
func sanitizePathComponent(s string) string {
	if s == "" {
		return "unknown"
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
