package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/flemzord/chatmem/internal/channel"
	"github.com/flemzord/chatmem/pkg/message"
)

// sendOutbound splits msg to the Telegram length limit and sends every
// chunk in order. It stops at the first failed chunk.
func (t *Telegram) sendOutbound(ctx context.Context, msg message.OutboundMessage) error {
	chunks := channel.SplitMessage(msg, channel.ChunkConfig{
		MaxLength:      t.config.MaxMessageLength,
		PreserveBlocks: true,
	})

	for i, chunk := range chunks {
		if err := t.sendChunk(ctx, chunk); err != nil {
			return fmt.Errorf("telegram: send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// sendChunk sends one chunk. When Telegram cannot parse the requested
// formatting the chunk is resent as plain text.
func (t *Telegram) sendChunk(ctx context.Context, chunk message.OutboundMessage) error {
	req := SendMessageRequest{
		ChatID:          chunk.Chat.ID,
		Text:            chunk.Text,
		MessageThreadID: chunk.ThreadID,
	}
	if chunk.ReplyToID != 0 {
		req.ReplyParameters = &ReplyParameters{
			MessageID:                chunk.ReplyToID,
			AllowSendingWithoutReply: true,
		}
	}
	if h := chunk.Hints; h != nil {
		req.ParseMode = h.ParseMode
		req.DisableNotification = h.DisableNotification
		if h.DisablePreview {
			req.LinkPreviewOptions = &LinkPreviewOptions{IsDisabled: true}
		}
	}

	_, err := t.client.SendMessage(ctx, req)
	var apiErr *APIError
	if req.ParseMode != "" && errors.As(err, &apiErr) && apiErr.IsParseError() {
		t.logger.Debug("telegram: formatting rejected, resending as plain text",
			"chat_id", req.ChatID,
			"parse_mode", req.ParseMode,
		)
		req.ParseMode = ""
		_, err = t.client.SendMessage(ctx, req)
	}
	return err
}
