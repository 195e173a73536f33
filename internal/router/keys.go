package router

import (
	"github.com/flemzord/chatmem/internal/conversation"
	"github.com/flemzord/chatmem/pkg/message"
)

// KeyFromMessage derives the conversation key of an inbound message:
// the chat id owns the conversation and a forum topic, when present,
// selects a sub-thread.
func KeyFromMessage(msg message.InboundMessage) conversation.Key {
	key := conversation.NewKey(msg.Chat.ID)
	if msg.HasThread() {
		key = key.WithSub(msg.ThreadID)
	}
	return key
}
