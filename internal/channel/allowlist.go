package channel

import "github.com/flemzord/chatmem/pkg/message"

// AllowList controls which users and groups are permitted to interact with
// a channel. An empty non-nil AllowList denies everyone.
type AllowList struct {
	users  map[int64]struct{}
	groups map[int64]struct{}
}

// NewAllowList creates an AllowList from user and chat ids. It returns nil
// when both lists are empty, meaning the channel applies no filtering.
func NewAllowList(users, groups []int64) *AllowList {
	if len(users) == 0 && len(groups) == 0 {
		return nil
	}
	a := &AllowList{
		users:  make(map[int64]struct{}, len(users)),
		groups: make(map[int64]struct{}, len(groups)),
	}
	for _, u := range users {
		a.users[u] = struct{}{}
	}
	for _, g := range groups {
		a.groups[g] = struct{}{}
	}
	return a
}

// IsAllowed reports whether the message sender or chat is permitted.
//
// Rules:
//   - A nil AllowList allows everyone.
//   - If the sender's ID matches a user entry → allow.
//   - If the chat's ID matches a group entry → allow.
//   - Otherwise → deny.
func (a *AllowList) IsAllowed(msg message.InboundMessage) bool {
	if a == nil {
		return true
	}
	if _, ok := a.users[msg.Sender.ID]; ok {
		return true
	}
	if _, ok := a.groups[msg.Chat.ID]; ok {
		return true
	}
	return false
}
