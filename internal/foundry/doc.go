// Package foundry provides the client for the hosted agent service.
//
// The service exposes a thread/message/run API: a thread accumulates
// messages, a run executes the agent against the thread, and the run's
// status is polled until it reaches a terminal state. All requests carry a
// bearer token from the configured credential source.
package foundry
