package chat

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jsylvan/foundrychat/internal/config"
)

// waitForLogLines polls until the file at path holds at least n NDJSON
// lines, since the logger writes asynchronously.
func waitForLogLines(t *testing.T, path string, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) >= n && lines[0] != "" {
				return lines
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d log lines in %s", n, path)
	return nil
}

func TestConversationLoggerDisabled(t *testing.T) {
	t.Parallel()
	l, err := NewConversationLogger(config.ConversationLogConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger: %v", err)
	}
	if _, ok := l.(NoopConversationLogger); !ok {
		t.Fatalf("disabled config should yield the no-op logger, got %T", l)
	}
	l.Log(ConversationLogEvent{UserID: "u", SessionID: "s", Content: "dropped"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestConversationLoggerWritesNDJSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	l, err := NewConversationLogger(config.ConversationLogConfig{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 10,
	}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger: %v", err)
	}
	defer func() { _ = l.Close() }()

	l.Log(ConversationLogEvent{
		UserID:    "user-1",
		SessionID: "tab-1",
		ThreadID:  "thread_abc",
		Direction: "outbound",
		EventType: "user_message",
		Content:   "hello",
	})
	l.Log(ConversationLogEvent{
		UserID:    "user-1",
		SessionID: "tab-1",
		ThreadID:  "thread_abc",
		Direction: "inbound",
		EventType: "agent_message",
		Content:   "## 🤖 Agent Response\n\nhi",
	})

	path := filepath.Join(dir, "user-1", "tab-1.ndjson")
	lines := waitForLogLines(t, path, 2)

	var first ConversationLogEvent
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first line: %v", err)
	}
	if first.EventType != "user_message" || first.Content != "hello" {
		t.Fatalf("first line = %+v", first)
	}
	if first.Timestamp == "" {
		t.Fatal("logger should stamp events missing a timestamp")
	}
	if first.ThreadID != "thread_abc" {
		t.Fatalf("thread_id = %q, want thread_abc", first.ThreadID)
	}

	var second ConversationLogEvent
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal second line: %v", err)
	}
	if second.Direction != "inbound" || second.EventType != "agent_message" {
		t.Fatalf("second line = %+v", second)
	}
}

func TestConversationLoggerSeparatesSessions(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	l, err := NewConversationLogger(config.ConversationLogConfig{Enabled: true, Dir: dir, QueueSize: 10}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger: %v", err)
	}
	defer func() { _ = l.Close() }()

	l.Log(ConversationLogEvent{UserID: "user-1", SessionID: "tab-1", EventType: "user_message", Content: "a"})
	l.Log(ConversationLogEvent{UserID: "user-1", SessionID: "tab-2", EventType: "user_message", Content: "b"})

	waitForLogLines(t, filepath.Join(dir, "user-1", "tab-1.ndjson"), 1)
	waitForLogLines(t, filepath.Join(dir, "user-1", "tab-2.ndjson"), 1)
}

func TestConversationLoggerSanitizesIDs(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	l, err := NewConversationLogger(config.ConversationLogConfig{Enabled: true, Dir: dir, QueueSize: 10}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger: %v", err)
	}
	defer func() { _ = l.Close() }()

	l.Log(ConversationLogEvent{UserID: "../evil", SessionID: "a/b", EventType: "user_message", Content: "x"})

	waitForLogLines(t, filepath.Join(dir, "___evil", "a_b.ndjson"), 1)

	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "evil")); !os.IsNotExist(err) {
		t.Fatal("ids must not escape the log directory")
	}
}

func TestSanitizePathComponent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"user-1", "user-1"},
		{"", "unknown"},
		{"../../etc", "______etc"},
		{"a b.c", "a_b_c"},
	}
	for _, tt := range tests {
		if got := sanitizePathComponent(tt.in); got != tt.want {
			t.Errorf("sanitizePathComponent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
