// Package reply turns raw agent messages into renderable markdown.
package reply

import "github.com/jsylvan/foundrychat/internal/foundry"

// ExtractText returns the first non-empty text value among the message's
// content parts. Parts either carry the text payload directly or are
// discriminated by Type == "text"; both shapes resolve through the same
// Text field. Missing or malformed structure yields ok == false, never a
// panic.
func ExtractText(msg foundry.Message) (string, bool) {
	for _, part := range msg.Content {
		if part.Text != nil && part.Text.Value != "" {
			return part.Text.Value, true
		}
	}
	return "", false
}
