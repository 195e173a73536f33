// Package telegram implements the Telegram Bot API channel.
//
// Updates are received by long polling (getUpdates) and converted to
// message.InboundMessage: the chat id becomes the conversation owner and
// the forum topic, when the update belongs to one, its sub-thread.
// Replies go out through sendMessage, split at the 4096 byte limit, and
// typing indicators through sendChatAction.
//
// The module registers itself as "channel.telegram" and talks to the Bot
// API over net/http + encoding/json.
package telegram
