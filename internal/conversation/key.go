// Package conversation holds per-conversation context: bounded message
// history plus the small configuration (style, memory mode) attached to
// each conversation, keyed by owner and optional sub-thread.
package conversation

import (
	"cmp"
	"log/slog"
	"strconv"
)

// Key identifies one conversation. It is comparable, so it is used
// directly as a map key; two keys are equal when all fields are equal.
//
// OwnerID is the chat the conversation belongs to. SubID is only
// meaningful when HasSub is set (forum topics, reply threads).
type Key struct {
	OwnerID int64
	SubID   int64
	HasSub  bool
}

// NewKey returns the key of the owner's main conversation.
func NewKey(ownerID int64) Key {
	return Key{OwnerID: ownerID}
}

// WithSub returns a copy of k scoped to the given sub-thread.
func (k Key) WithSub(subID int64) Key {
	k.SubID = subID
	k.HasSub = true
	return k
}

// String renders the key for logs and admin output: "owner" or "owner/sub".
// It is not meant to be parsed back.
func (k Key) String() string {
	s := strconv.FormatInt(k.OwnerID, 10)
	if k.HasSub {
		s += "/" + strconv.FormatInt(k.SubID, 10)
	}
	return s
}

// LogValue implements slog.LogValuer.
func (k Key) LogValue() slog.Value {
	if !k.HasSub {
		return slog.GroupValue(slog.Int64("owner_id", k.OwnerID))
	}
	return slog.GroupValue(
		slog.Int64("owner_id", k.OwnerID),
		slog.Int64("sub_id", k.SubID),
	)
}

// compareKeys orders keys by owner, then main conversation before
// sub-threads, then sub-thread id.
func compareKeys(a, b Key) int {
	if c := cmp.Compare(a.OwnerID, b.OwnerID); c != 0 {
		return c
	}
	if a.HasSub != b.HasSub {
		if !a.HasSub {
			return -1
		}
		return 1
	}
	return cmp.Compare(a.SubID, b.SubID)
}
