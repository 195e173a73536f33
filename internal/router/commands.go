package router

import (
	"fmt"
	"strings"

	"github.com/flemzord/chatmem/internal/conversation"
)

// Command is a parsed slash command.
type Command struct {
	// Name is lowercased, without the leading slash or @bot suffix.
	Name string
	// Args is the trimmed remainder of the message.
	Args string
}

// Known command names.
const (
	CommandStart  = "start"
	CommandHelp   = "help"
	CommandReset  = "reset"
	CommandMemory = "memory"
	CommandStyle  = "style"
	CommandStyles = "styles"
	CommandStats  = "stats"
)

const (
	replyGreeting  = "I'm alive 🤍\nWrite me something."
	replyReset     = "The context of this conversation has been reset ✨"
	replyMemoryOn  = "Memory is on. I will remember this conversation."
	replyMemoryOff = "Memory is off. Nothing is remembered until you send /memory again."
	replyUnknown   = "Unknown command. Send /help for the list of commands."
)

const helpText = `Commands:
/start - greeting
/help - this message
/reset - forget this conversation
/memory - turn memory on or off
/style - show the current style
/style <name> - change the response style
/styles - list available styles
/stats - conversation statistics`

// ParseCommand recognises "/name[@bot] [args]". It reports false for
// anything that does not start with a slash followed by a name.
func ParseCommand(text string) (Command, bool) {
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}
	rest := text[1:]
	head, args := rest, ""
	if i := strings.IndexAny(rest, " \t\n"); i >= 0 {
		head, args = rest[:i], rest[i+1:]
	}
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	if head == "" {
		return Command{}, false
	}
	return Command{
		Name: strings.ToLower(head),
		Args: strings.TrimSpace(args),
	}, true
}

func (c Command) known() bool {
	switch c.Name {
	case CommandStart, CommandHelp, CommandReset, CommandMemory,
		CommandStyle, CommandStyles, CommandStats:
		return true
	default:
		return false
	}
}

// metricLabel bounds the label cardinality of chatmem_commands_total.
func (c Command) metricLabel() string {
	if c.known() {
		return c.Name
	}
	return "unknown"
}

// handleCommand applies one command to the store and returns the reply.
// Each command is a single store operation and does not take the lane.
func (p *Pipeline) handleCommand(key conversation.Key, cmd Command) string {
	store := p.cfg.Store
	styles := p.cfg.Builder.Styles()

	switch cmd.Name {
	case CommandStart:
		store.GetOrCreate(key)
		return replyGreeting
	case CommandHelp:
		return helpText
	case CommandReset:
		store.Reset(key)
		return replyReset
	case CommandMemory:
		if store.ToggleMemory(key) {
			return replyMemoryOn
		}
		return replyMemoryOff
	case CommandStyle:
		if cmd.Args == "" {
			return fmt.Sprintf("Current style: %s\nAvailable: %s",
				store.Style(key), strings.Join(styles.Names(), ", "))
		}
		name := cmd.Args
		if !styles.Has(name) {
			return fmt.Sprintf("Unknown style %q. Available styles: %s",
				cmd.Args, strings.Join(styles.Names(), ", "))
		}
		store.SetStyle(key, name)
		return fmt.Sprintf("Style set to %s.", name)
	case CommandStyles:
		var b strings.Builder
		b.WriteString("Available styles:")
		for _, name := range styles.Names() {
			fmt.Fprintf(&b, "\n- %s", name)
			if name == styles.DefaultKey() {
				b.WriteString(" (default)")
			}
		}
		return b.String()
	case CommandStats:
		st := store.Stats()
		return fmt.Sprintf("Dialogs: %d\nMessages: %d\nMemory on: %d\nMemory off: %d",
			st.Dialogs, st.Messages, st.MemoryOn, st.MemoryOff)
	default:
		return replyUnknown
	}
}
