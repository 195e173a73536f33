package channel

import "errors"

var (
	// ErrNoChannel is returned by the Dispatcher when a reply or typing
	// indicator names a channel that was never registered.
	ErrNoChannel = errors.New("channel: unknown channel")

	// ErrDuplicateChannel is returned when two modules register under one name.
	ErrDuplicateChannel = errors.New("channel: duplicate channel name")

	// ErrNoInbox is returned when a channel receives a message before the
	// router has been wired with SetInbox.
	ErrNoInbox = errors.New("channel: inbox not set")

	// ErrDenied marks a message from a chat outside the allow-list.
	ErrDenied = errors.New("channel: sender not allowed")
)
