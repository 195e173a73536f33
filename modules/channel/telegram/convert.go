package telegram

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flemzord/chatmem/pkg/message"
)

// errNoText marks updates that carry nothing the bot can answer: stickers,
// photos without caption, service messages.
var errNoText = errors.New("telegram: update has no text")

// convertInbound turns a new or edited message into an InboundMessage for
// the router. The caption stands in for the text of media messages.
func convertInbound(update *Update, channelName string) (message.InboundMessage, error) {
	msg := update.Message
	if msg == nil {
		msg = update.EditedMessage
	}
	if msg == nil {
		return message.InboundMessage{}, fmt.Errorf("telegram: update %d contains no message", update.UpdateID)
	}

	text := cmp.Or(msg.Text, msg.Caption)
	if text == "" {
		return message.InboundMessage{}, errNoText
	}

	raw, err := json.Marshal(update)
	if err != nil {
		return message.InboundMessage{}, fmt.Errorf("telegram: marshal update: %w", err)
	}

	in := message.InboundMessage{
		ID:        msg.MessageID,
		Timestamp: time.Unix(msg.Date, 0),
		Channel:   channelName,
		Sender:    msg.From.sender(),
		Chat: message.Chat{
			ID:    msg.Chat.ID,
			Type:  mapChatType(msg.Chat.Type),
			Title: cmp.Or(msg.Chat.Title, msg.Chat.Username),
		},
		Text: text,
		Raw:  raw,
	}
	// Replies in ordinary groups carry message_thread_id too; only forum
	// topics are separate conversations.
	if msg.IsTopicMessage {
		in.ThreadID = msg.MessageThreadID
	}
	return in, nil
}

func (u *User) sender() message.Sender {
	if u == nil {
		return message.Sender{}
	}
	return message.Sender{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: strings.TrimSpace(u.FirstName + " " + u.LastName),
	}
}

// mapChatType folds supergroups into groups. Unknown types are treated
// as groups, which keeps them behind the group allowlist.
func mapChatType(tgType string) message.ChatType {
	switch tgType {
	case "private":
		return message.ChatDM
	case "channel":
		return message.ChatBroadcast
	default:
		return message.ChatGroup
	}
}
