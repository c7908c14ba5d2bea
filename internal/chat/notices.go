package chat

import (
	"errors"
	"fmt"

	"github.com/jsylvan/foundrychat/internal/coordinator"
)

// Markdown notices rendered into the chat stream. Every failure surfaces
// here as a message; none tears down the session.

const welcomeNotice = `# 🤖 Welcome to Foundry Chat!

You're now connected to an intelligent AI agent.

## Getting Started
Simply type your question or request below and I'll respond with helpful, detailed information.

**Ready to chat? Ask me anything! 🚀**`

const sessionErrorNotice = `# ⚠️ Session Error

**Chat session not properly initialized**

Please refresh the page and try again.`

const noResponseNotice = `## 🤔 No Response

The agent processed your message but didn't provide a response.

**Please try:**
- Rephrasing your question
- Being more specific about what you need
- Asking a different question`

const rateLimitNotice = `## ⏳ Slow Down

You're sending messages faster than the agent can keep up.

Please wait a moment before trying again.`

func connectionErrorNotice(err error) string {
	return fmt.Sprintf(`# ❌ Connection Error

**Failed to initialize chat session**

`+"```\n%s\n```"+`

Please check the agent service configuration and try again.`, err)
}

func processingFailedNotice(message string) string {
	return fmt.Sprintf(`## ❌ Processing Failed

**The agent encountered an error while processing your message:**

`+"```\n%s\n```"+`

Please try rephrasing your question or ask something else.`, message)
}

func unexpectedStatusNotice(status string) string {
	return fmt.Sprintf(`## ❓ Unexpected Status

**The agent run completed with status:** `+"`%s`"+`

This is unusual. Please try sending your message again.`, status)
}

func processingErrorNotice(err error) string {
	return fmt.Sprintf(`## ❌ Processing Error

**An error occurred while processing your message:**

`+"```\n%s\n```"+`

Please try again or rephrase your question.`, err)
}

// renderResult maps a coordinator outcome to its chat notice.
func renderResult(res coordinator.Result) string {
	switch res.Kind {
	case coordinator.KindAnswer:
		return res.Text
	case coordinator.KindNoResponse:
		return noResponseNotice
	case coordinator.KindRunFailed:
		return processingFailedNotice(res.Text)
	case coordinator.KindUnexpectedStatus:
		return unexpectedStatusNotice(string(res.Status))
	default:
		return noResponseNotice
	}
}

// renderError maps a coordinator error to its chat notice. Anything
// without a dedicated notice, timeouts included, falls through to the
// generic processing-error text carrying the error description.
func renderError(err error) string {
	if errors.Is(err, coordinator.ErrSessionNotInitialized) {
		return sessionErrorNotice
	}
	return processingErrorNotice(err)
}
