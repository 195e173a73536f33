package ctxengine

import (
	"github.com/flemzord/chatmem/internal/conversation"
	"github.com/flemzord/chatmem/internal/provider"
)

// Builder turns a dialog snapshot and a new user message into the
// message sequence for a completion request.
type Builder struct {
	styles *StyleTable
}

// NewBuilder creates a Builder resolving styles through styles.
// A nil table uses the built-in presets.
func NewBuilder(styles *StyleTable) *Builder {
	if styles == nil {
		styles = NewStyleTable(DefaultStyleKey, DefaultStyles())
	}
	return &Builder{styles: styles}
}

// Styles returns the builder's style table.
func (b *Builder) Styles() *StyleTable {
	return b.styles
}

// Build assembles the request messages:
//
//  1. the system prompt of d.Style (default prompt when unknown)
//  2. the last maxHistory history messages, oldest first, if memory is on
//  3. the user turn
//
// The result holds at most maxHistory+2 messages. Build never modifies d.
func (b *Builder) Build(d conversation.Dialog, userText string, maxHistory int) []provider.LLMMessage {
	window := d.Window(maxHistory)

	out := make([]provider.LLMMessage, 0, len(window)+2)
	out = append(out, provider.LLMMessage{
		Role:    provider.MessageRoleSystem,
		Content: b.styles.Resolve(d.Style),
	})
	for _, m := range window {
		out = append(out, provider.LLMMessage{Role: m.Role, Content: m.Content})
	}
	out = append(out, provider.LLMMessage{
		Role:    provider.MessageRoleUser,
		Content: userText,
	})
	return out
}
