package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsylvan/foundrychat/internal/foundry"
	"github.com/jsylvan/foundrychat/internal/metrics"
	"github.com/jsylvan/foundrychat/internal/reply"
)

// ErrSessionNotInitialized is returned when a message arrives before the
// session has a remote thread.
var ErrSessionNotInitialized = errors.New("chat session has no thread")

// SubmissionError wraps a failure to append the user message or start the
// run. These are not retried.
type SubmissionError struct {
	Op  string // "message" or "run"
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s: %v", e.Op, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// TimeoutError reports that the run did not reach a terminal status within
// the configured wait. A best-effort remote cancel has already been issued.
type TimeoutError struct {
	Wait time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("agent response timed out after %s", e.Wait)
}

// Kind classifies a coordinator outcome. Every kind is a normal, renderable
// result; errors are reserved for submission, polling, and timeout
// failures.
type Kind int

const (
	// KindAnswer carries formatted agent reply text.
	KindAnswer Kind = iota
	// KindNoResponse means the run completed but no assistant reply was
	// found by either extraction path.
	KindNoResponse
	// KindRunFailed carries the remote-provided failure message.
	KindRunFailed
	// KindUnexpectedStatus carries a terminal status outside the known
	// success/failure set, verbatim.
	KindUnexpectedStatus
)

// Result is the renderable outcome of one user message.
type Result struct {
	Kind   Kind
	Text   string
	Status foundry.RunStatus
}

// Config holds coordinator tuning.
type Config struct {
	AgentID      string
	PollInterval time.Duration
	MaxWait      time.Duration
}

// DefaultConfig returns default poll tuning.
func DefaultConfig() Config {
	return Config{
		PollInterval: time.Second,
		MaxWait:      60 * time.Second,
	}
}

// Coordinator drives one request/response cycle against the agent service:
// submit the message, start a run, poll to a terminal status under the
// deadline, and resolve the reply text. It holds no per-session state.
type Coordinator struct {
	api          foundry.API
	agentID      string
	pollInterval time.Duration
	maxWait      time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// New creates a coordinator. m may be nil to disable instrumentation.
func New(api foundry.API, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaults.MaxWait
	}
	return &Coordinator{
		api:          api,
		agentID:      cfg.AgentID,
		pollInterval: cfg.PollInterval,
		maxWait:      cfg.MaxWait,
		logger:       logger,
		metrics:      m,
	}
}

// HandleUserMessage relays one user message through the agent and returns
// the renderable outcome. threadID must already be set for the session.
func (c *Coordinator) HandleUserMessage(ctx context.Context, threadID, text string) (Result, error) {
	if threadID == "" {
		return Result{}, ErrSessionNotInitialized
	}

	if err := c.api.CreateMessage(ctx, threadID, foundry.RoleUser, text); err != nil {
		return Result{}, &SubmissionError{Op: "message", Err: err}
	}

	run, err := c.api.CreateRun(ctx, threadID, c.agentID)
	if err != nil {
		return Result{}, &SubmissionError{Op: "run", Err: err}
	}
	c.logger.Info("Agent run started", "thread_id", threadID, "run_id", run.ID)

	start := time.Now()
	run, err = c.waitForRun(ctx, threadID, run)
	if err != nil {
		return Result{}, err
	}

	if c.metrics != nil {
		c.metrics.RunsTotal.WithLabelValues(string(run.Status)).Inc()
		c.metrics.RunDuration.Observe(time.Since(start).Seconds())
	}
	c.logger.Info("Agent run finished", "thread_id", threadID, "run_id", run.ID, "status", run.Status)

	switch run.Status {
	case foundry.RunStatusCompleted:
		text, ok := c.resolveReply(ctx, threadID, run)
		if !ok {
			return Result{Kind: KindNoResponse, Status: run.Status}, nil
		}
		return Result{Kind: KindAnswer, Text: reply.Format(text), Status: run.Status}, nil

	case foundry.RunStatusFailed:
		msg := "Unknown error"
		if run.LastError != nil && run.LastError.Message != "" {
			msg = run.LastError.Message
		}
		return Result{Kind: KindRunFailed, Text: msg, Status: run.Status}, nil

	default:
		return Result{Kind: KindUnexpectedStatus, Status: run.Status}, nil
	}
}

// waitForRun polls the run until it reaches a terminal status. Past the
// deadline it issues a best-effort cancel and returns a TimeoutError. The
// inter-tick wait is context-aware so concurrent sessions are never
// blocked.
func (c *Coordinator) waitForRun(ctx context.Context, threadID string, run foundry.Run) (foundry.Run, error) {
	start := time.Now()
	for {
		cur, err := c.api.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return foundry.Run{}, fmt.Errorf("poll run %s: %w", run.ID, err)
		}
		if cur.Status.Terminal() {
			return cur, nil
		}

		if time.Since(start) > c.maxWait {
			c.cancelRun(ctx, threadID, run.ID)
			if c.metrics != nil {
				c.metrics.RunTimeoutsTotal.Inc()
			}
			return foundry.Run{}, &TimeoutError{Wait: c.maxWait}
		}

		select {
		case <-ctx.Done():
			return foundry.Run{}, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// cancelRun asks the service to stop a run we gave up on. Failure is
// swallowed; the run expires remotely either way.
func (c *Coordinator) cancelRun(ctx context.Context, threadID, runID string) {
	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.api.CancelRun(cancelCtx, threadID, runID); err != nil {
		c.logger.Warn("Failed to cancel timed-out run", "thread_id", threadID, "run_id", runID, "error", err)
	}
}

// replyStrategy is one way of locating the assistant's reply text.
type replyStrategy func(ctx context.Context, threadID string, run foundry.Run) (string, bool)

// resolveReply tries each extraction strategy in order until one yields
// text: first the service's last-message convenience lookup, then a scan
// of the thread filtered to assistant messages created by this run.
func (c *Coordinator) resolveReply(ctx context.Context, threadID string, run foundry.Run) (string, bool) {
	strategies := []replyStrategy{c.lastAssistantText, c.scanThreadMessages}
	for _, strategy := range strategies {
		if text, ok := strategy(ctx, threadID, run); ok {
			return text, true
		}
	}
	return "", false
}

func (c *Coordinator) lastAssistantText(ctx context.Context, threadID string, _ foundry.Run) (string, bool) {
	text, ok, err := c.api.LastMessageTextByRole(ctx, threadID, foundry.RoleAssistant)
	if err != nil {
		c.logger.Debug("Primary reply lookup failed, falling back to thread scan", "thread_id", threadID, "error", err)
		return "", false
	}
	return text, ok
}

func (c *Coordinator) scanThreadMessages(ctx context.Context, threadID string, run foundry.Run) (string, bool) {
	msgs, err := c.api.ListMessages(ctx, threadID)
	if err != nil {
		c.logger.Warn("Thread scan failed", "thread_id", threadID, "error", err)
		return "", false
	}
	for _, msg := range msgs {
		if msg.Role != foundry.RoleAssistant || msg.CreatedAt < run.CreatedAt {
			continue
		}
		if text, ok := reply.ExtractText(msg); ok {
			return text, true
		}
	}
	return "", false
}
