// Package chat maps WebSocket connections onto agent conversations.
//
// Each connection is one session: on connect a remote thread is created
// and greeted, each inbound message runs one coordinator cycle whose
// outcome is rendered as a markdown notice, and on disconnect the thread
// id is recorded. Sessions are tracked per user and tab, throttled by a
// sliding-window rate limiter, and optionally logged as NDJSON.
package chat
