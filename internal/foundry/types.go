package foundry

// Thread is a remote conversation context. The service owns its lifecycle;
// we only hold the opaque id.
type Thread struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
}

// RunStatus is the lifecycle state of an agent run. Unrecognised strings
// from the service are carried through verbatim rather than rejected.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
	RunStatusCancelled  RunStatus = "cancelled"
	RunStatusExpired    RunStatus = "expired"
)

// Terminal reports whether no further status change can occur.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired:
		return true
	}
	return false
}

// RunError describes why a run ended in the failed status.
type RunError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Run is one execution of the agent against a thread's messages.
type Run struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Status    RunStatus `json:"status"`
	CreatedAt int64     `json:"created_at"`
	LastError *RunError `json:"last_error,omitempty"`
}

// TextContent is the text payload of a message content part.
type TextContent struct {
	Value string `json:"value"`
}

// ContentPart is one element of a message's content sequence. Only text
// parts carry a payload we can render; other part types keep Text nil.
type ContentPart struct {
	Type string       `json:"type"`
	Text *TextContent `json:"text,omitempty"`
}

// Message is a remote thread message record.
type Message struct {
	ID        string        `json:"id"`
	Role      string        `json:"role"`
	Content   []ContentPart `json:"content"`
	CreatedAt int64         `json:"created_at"`
}

// Message roles used by the chat flow.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
