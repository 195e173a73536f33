package conversation

import (
	"slices"
	"time"

	"github.com/flemzord/chatmem/internal/provider"
)

// Message is one entry of a dialog's history. Messages are never
// modified after they are appended.
type Message struct {
	Role      provider.MessageRole
	Content   string
	CreatedAt time.Time
}

// Dialog is the stored state of one conversation.
//
// Values returned by the Store are deep copies; mutating them has no
// effect on the stored dialog.
type Dialog struct {
	Key           Key
	Style         string
	MemoryEnabled bool
	History       []Message
	CreatedAt     time.Time
	LastUsed      time.Time
}

// Clone returns a deep copy of d.
func (d Dialog) Clone() Dialog {
	d.History = slices.Clone(d.History)
	return d
}

// Window returns the last n history messages, oldest first.
// It returns nil when memory is disabled or n <= 0.
func (d Dialog) Window(n int) []Message {
	if !d.MemoryEnabled || n <= 0 || len(d.History) == 0 {
		return nil
	}
	if len(d.History) <= n {
		return d.History
	}
	return d.History[len(d.History)-n:]
}
