package foundry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// API is the set of remote agent service operations the application
// consumes. Implemented by Client; tests substitute fakes.
type API interface {
	CreateThread(ctx context.Context) (Thread, error)
	CreateMessage(ctx context.Context, threadID, role, content string) error
	CreateRun(ctx context.Context, threadID, agentID string) (Run, error)
	GetRun(ctx context.Context, threadID, runID string) (Run, error)
	CancelRun(ctx context.Context, threadID, runID string) error
	LastMessageTextByRole(ctx context.Context, threadID, role string) (string, bool, error)
	ListMessages(ctx context.Context, threadID string) ([]Message, error)
}

// Ensure Client implements API.
var _ API = (*Client)(nil)

// APIError is a non-2xx response from the agent service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("agent service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("agent service returned status %d: %s", e.StatusCode, e.Message)
}

// ClientConfig holds configuration for the HTTP client.
type ClientConfig struct {
	Endpoint       string
	APIVersion     string
	RequestTimeout time.Duration
}

// DefaultClientConfig returns default configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		APIVersion:     "2025-05-01",
		RequestTimeout: 30 * time.Second,
	}
}

// Client is an HTTP JSON client for the hosted agent service. It is a thin
// network client and safe for concurrent use across sessions.
type Client struct {
	baseURL    *url.URL
	apiVersion string
	tokens     oauth2.TokenSource
	httpc      *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the agent service at cfg.Endpoint,
// authenticating every request with a bearer token from tokens.
func NewClient(cfg ClientConfig, tokens oauth2.TokenSource, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("foundry: endpoint is required")
	}
	if tokens == nil {
		return nil, errors.New("foundry: token source is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("foundry: invalid endpoint %q: %w", cfg.Endpoint, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("foundry: endpoint %q must be http(s)", cfg.Endpoint)
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultClientConfig().APIVersion
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultClientConfig().RequestTimeout
	}
	return &Client{
		baseURL:    base,
		apiVersion: apiVersion,
		tokens:     tokens,
		httpc:      &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// CreateThread creates a new conversation thread.
func (c *Client) CreateThread(ctx context.Context) (Thread, error) {
	var t Thread
	if err := c.do(ctx, http.MethodPost, "/threads", nil, struct{}{}, &t); err != nil {
		return Thread{}, fmt.Errorf("create thread: %w", err)
	}
	return t, nil
}

// CreateMessage appends a message to a thread.
func (c *Client) CreateMessage(ctx context.Context, threadID, role, content string) error {
	body := struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{Role: role, Content: content}
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", nil, body, nil); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// CreateRun starts a run of the configured agent against the thread.
func (c *Client) CreateRun(ctx context.Context, threadID, agentID string) (Run, error) {
	body := struct {
		AgentID string `json:"agent_id"`
	}{AgentID: agentID}
	var r Run
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs", nil, body, &r); err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	return r, nil
}

// GetRun fetches the current state of a run.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	var r Run
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, nil, &r); err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// CancelRun requests cancellation of a run. Callers treat failures as
// best-effort.
func (c *Client) CancelRun(ctx context.Context, threadID, runID string) error {
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs/"+runID+"/cancel", nil, struct{}{}, nil); err != nil {
		return fmt.Errorf("cancel run: %w", err)
	}
	return nil
}

// LastMessageTextByRole fetches the newest message with the given role and
// returns its first text value. ok is false when the thread has no such
// message or it carries no text.
func (c *Client) LastMessageTextByRole(ctx context.Context, threadID, role string) (string, bool, error) {
	q := url.Values{}
	q.Set("role", role)
	q.Set("order", "desc")
	q.Set("limit", "1")
	var page messagePage
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/messages", q, nil, &page); err != nil {
		return "", false, fmt.Errorf("last message text: %w", err)
	}
	if len(page.Data) == 0 {
		return "", false, nil
	}
	for _, part := range page.Data[0].Content {
		if part.Text != nil && part.Text.Value != "" {
			return part.Text.Value, true, nil
		}
	}
	return "", false, nil
}

// ListMessages returns the thread's messages, newest first.
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	q := url.Values{}
	q.Set("order", "desc")
	var page messagePage
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/messages", q, nil, &page); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return page.Data, nil
}

type messagePage struct {
	Data []Message `json:"data"`
}

// do executes one authenticated JSON request. out may be nil when the
// response body is irrelevant.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	tok, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("acquire token: %w", err)
	}

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", c.apiVersion)
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	tok.SetAuthHeader(req)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil && json.Unmarshal(data, &envelope) == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
