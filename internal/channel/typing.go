package channel

import (
	"context"
	"time"

	"github.com/flemzord/chatmem/pkg/message"
)

// DefaultTypingInterval matches the lifetime of a Telegram chat action.
const DefaultTypingInterval = 4 * time.Second

// StartTypingLoop launches a goroutine that sends typing indicators at the
// given interval until ctx is cancelled. A non-positive interval uses
// DefaultTypingInterval.
func StartTypingLoop(ctx context.Context, ch Typer, chat message.Chat, threadID int64, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTypingInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Send an initial typing indicator immediately.
		_ = ch.SendTyping(ctx, chat, threadID)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = ch.SendTyping(ctx, chat, threadID)
			}
		}
	}()
}
