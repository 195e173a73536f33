// Package router turns inbound chat messages into conversation turns.
// Commands are applied directly to the store; plain text is serialized
// per conversation, sent to the completion provider and committed to
// history before the reply goes out.
package router

import "errors"

var (
	// ErrInboxFull indicates the inbox is at capacity and the message
	// was dropped.
	ErrInboxFull = errors.New("router: inbox full, message dropped")

	// ErrRouterStopped indicates the router no longer accepts messages.
	ErrRouterStopped = errors.New("router: stopped")

	// ErrNoStore indicates no conversation store was configured.
	ErrNoStore = errors.New("router: no conversation store configured")

	// ErrNoProvider indicates no completion provider was configured.
	ErrNoProvider = errors.New("router: no provider configured")

	// ErrNoSender indicates no outbound sender was configured.
	ErrNoSender = errors.New("router: no response sender configured")
)
