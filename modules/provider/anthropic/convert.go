package anthropic

import (
	"cmp"
	"log/slog"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/flemzord/chatmem/internal/provider"
)

// convertRequest builds Messages API parameters. The system prompt that
// chatmem places first goes into the System field; a system message after
// the first turn has no place in the API and is dropped with a warning.
// Request values win over the configured max_tokens and temperature.
func convertRequest(req provider.CompletionRequest, cfg *Config, logger *slog.Logger) sdkanthropic.MessageNewParams {
	params := sdkanthropic.MessageNewParams{
		Model:     sdkanthropic.Model(cfg.Model),
		MaxTokens: int64(cmp.Or(req.MaxTokens, cfg.MaxTokens)),
		Messages:  make([]sdkanthropic.MessageParam, 0, len(req.Messages)),
	}
	if t := cmp.Or(req.Temperature, cfg.Temperature); t != nil {
		params.Temperature = sdkanthropic.Float(*t)
	}

	preamble := true
	for i, m := range req.Messages {
		block := sdkanthropic.NewTextBlock(m.Content)
		switch m.Role {
		case provider.MessageRoleSystem:
			if preamble {
				params.System = append(params.System, sdkanthropic.TextBlockParam{Text: m.Content})
			} else if logger != nil {
				logger.Warn("anthropic: dropping non-leading system message", "index", i)
			}
			continue
		case provider.MessageRoleUser:
			params.Messages = append(params.Messages, sdkanthropic.NewUserMessage(block))
		case provider.MessageRoleAssistant:
			params.Messages = append(params.Messages, sdkanthropic.NewAssistantMessage(block))
		}
		preamble = false
	}
	return params
}

// convertResponse joins the text blocks of msg with newlines.
func convertResponse(msg *sdkanthropic.Message) provider.CompletionResponse {
	var parts []string
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(sdkanthropic.TextBlock); ok {
			parts = append(parts, v.Text)
		}
	}

	return provider.CompletionResponse{
		Content:      strings.Join(parts, "\n"),
		FinishReason: convertStopReason(msg.StopReason),
		Usage: provider.TokenUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}

// convertStopReason maps an Anthropic stop reason to a FinishReason.
func convertStopReason(reason sdkanthropic.StopReason) provider.FinishReason {
	switch reason {
	case sdkanthropic.StopReasonEndTurn, sdkanthropic.StopReasonStopSequence:
		return provider.FinishReasonStop
	case sdkanthropic.StopReasonMaxTokens:
		return provider.FinishReasonLength
	case sdkanthropic.StopReasonRefusal:
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReason(reason)
	}
}
