// Package channel defines the bridge between messaging platforms and the router.
// It provides the Channel interface, typing indicators, message chunking,
// allow-list filtering and outbound dispatch.
package channel

import (
	"context"

	"github.com/flemzord/chatmem/internal/core"
	"github.com/flemzord/chatmem/pkg/message"
)

// Channel is the bridge between a messaging platform and the router.
//
// A channel receives messages from its platform, checks its allow-list, and
// pushes them to the router via the inbox callback. It also receives outbound
// messages from the router via Send().
type Channel interface {
	core.Module

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg message.OutboundMessage) error

	// SetInbox gives the channel a function to push inbound messages to the router.
	// The router calls this during wiring, before Start().
	SetInbox(fn func(msg message.InboundMessage) error)
}

// Typer sends a single typing indicator to the platform.
type Typer interface {
	SendTyping(ctx context.Context, chat message.Chat, threadID int64) error
}

// TypingChannel is implemented by channels that can show typing indicators
// while a reply is being generated.
type TypingChannel interface {
	Channel
	Typer
}
