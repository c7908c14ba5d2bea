package reply

import "strings"

// Heading prepended to agent replies that don't bring their own.
const Heading = "## 🤖 Agent Response"

// NoContentNotice is rendered when a completed run yields no reply text.
const NoContentNotice = Heading + "\n\nNo response content available."

// Format normalises extracted reply text into renderable markdown. Blank
// input yields the fixed no-content notice. Other input is trimmed and,
// unless it already starts with a markdown heading, prefixed with the
// agent-response heading. The prefix applies uniformly to prose and code
// alike.
//
// Known quirk, kept intentionally: the heading check is a bare "#" prefix
// test, so text that merely begins with a hash (a shell comment, a C
// preprocessor line) is treated as already headed and left bare.
func Format(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return NoContentNotice
	}
	if strings.HasPrefix(text, "#") {
		return text
	}
	return Heading + "\n\n" + text
}
