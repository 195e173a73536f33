package channel

import (
	"strings"
	"unicode/utf16"

	"github.com/flemzord/chatmem/pkg/message"
)

// ChunkConfig controls how long replies are split.
type ChunkConfig struct {
	// MaxLength is the chunk limit in UTF-16 code units, the unit Telegram
	// counts: Latin and Cyrillic take one, most emoji two. <= 0 disables
	// splitting.
	MaxLength int

	// PreserveBlocks keeps a fenced code block in one chunk as long as the
	// chunk stays under twice MaxLength; beyond that it is cut like text.
	PreserveBlocks bool
}

// TextLength measures s the way ChunkConfig.MaxLength does.
func TextLength(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

func runeUnits(r rune) int {
	if w := utf16.RuneLen(r); w > 0 {
		return w
	}
	return 1
}

// SplitMessage cuts msg into messages of at most cfg.MaxLength, preferring
// line boundaries. Every chunk keeps the chat and thread; only the first
// keeps ReplyToID so the quote is not repeated.
func SplitMessage(msg message.OutboundMessage, cfg ChunkConfig) []message.OutboundMessage {
	if cfg.MaxLength <= 0 || TextLength(msg.Text) <= cfg.MaxLength {
		return []message.OutboundMessage{msg}
	}

	parts := splitLines(msg.Text, cfg)
	out := make([]message.OutboundMessage, len(parts))
	for i, part := range parts {
		out[i] = msg
		out[i].Text = part
		if i > 0 {
			out[i].ReplyToID = 0
		}
	}
	return out
}

func splitLines(text string, cfg ChunkConfig) []string {
	var (
		parts   []string
		buf     strings.Builder
		bufLen  int
		inFence bool
	)
	flush := func() {
		s := strings.TrimRight(buf.String(), "\n")
		buf.Reset()
		bufLen = 0
		if s != "" {
			parts = append(parts, hardSplit(s, cfg.MaxLength)...)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		n := TextLength(line) + 1
		// A closing fence still belongs to its block.
		insideBlock := inFence
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}

		if bufLen+n > cfg.MaxLength {
			if cfg.PreserveBlocks && insideBlock && bufLen+n <= 2*cfg.MaxLength {
				buf.WriteString(line + "\n")
				bufLen += n
				continue
			}
			flush()
			if n > cfg.MaxLength {
				parts = append(parts, hardSplit(line, cfg.MaxLength)...)
				continue
			}
		}
		buf.WriteString(line + "\n")
		bufLen += n
	}
	flush()
	return parts
}

// hardSplit cuts s every max units, never inside a rune. A single rune
// wider than max gets a chunk of its own.
func hardSplit(s string, max int) []string {
	if TextLength(s) <= max {
		return []string{s}
	}
	var parts []string
	start, n := 0, 0
	for i, r := range s {
		w := runeUnits(r)
		if n > 0 && n+w > max {
			parts = append(parts, s[start:i])
			start, n = i, 0
		}
		n += w
	}
	return append(parts, s[start:])
}
