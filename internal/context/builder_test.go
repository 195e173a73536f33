package ctxengine

import (
	"testing"

	"github.com/flemzord/chatmem/internal/conversation"
	"github.com/flemzord/chatmem/internal/provider"
)

func dialogWith(style string, memory bool, history ...string) conversation.Dialog {
	d := conversation.Dialog{
		Key:           conversation.NewKey(1),
		Style:         style,
		MemoryEnabled: memory,
	}
	for i, text := range history {
		role := provider.MessageRoleUser
		if i%2 == 1 {
			role = provider.MessageRoleAssistant
		}
		d.History = append(d.History, conversation.Message{Role: role, Content: text})
	}
	return d
}

func roles(msgs []provider.LLMMessage) []provider.MessageRole {
	out := make([]provider.MessageRole, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

func TestBuild_WithHistory(t *testing.T) {
	t.Parallel()

	b := NewBuilder(nil)
	d := dialogWith("coder", true, "What is Go?", "A language.", "Who made it?", "Google.")

	got := b.Build(d, "When?", 4)
	if len(got) != 6 {
		t.Fatalf("len = %d, want 6", len(got))
	}
	if got[0].Role != provider.MessageRoleSystem || got[0].Content != DefaultStyles()["coder"] {
		t.Errorf("system = %+v", got[0])
	}
	if got[1].Content != "What is Go?" || got[4].Content != "Google." {
		t.Errorf("history out of order: %q ... %q", got[1].Content, got[4].Content)
	}
	if last := got[len(got)-1]; last.Role != provider.MessageRoleUser || last.Content != "When?" {
		t.Errorf("last = %+v", last)
	}
}

func TestBuild_WindowsHistory(t *testing.T) {
	t.Parallel()

	b := NewBuilder(nil)
	d := dialogWith("default", true, "u1", "a1", "u2", "a2", "u3", "a3")

	got := b.Build(d, "next", 2)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4 (maxHistory+2)", len(got))
	}
	if got[1].Content != "u3" || got[2].Content != "a3" {
		t.Errorf("window = %q, %q; want u3, a3", got[1].Content, got[2].Content)
	}
}

func TestBuild_MemoryOff(t *testing.T) {
	t.Parallel()

	b := NewBuilder(nil)
	d := dialogWith("default", false, "u1", "a1")

	got := b.Build(d, "hello", 20)
	want := []provider.MessageRole{provider.MessageRoleSystem, provider.MessageRoleUser}
	if r := roles(got); len(r) != 2 || r[0] != want[0] || r[1] != want[1] {
		t.Errorf("roles = %v, want %v", r, want)
	}
}

func TestBuild_UnknownStyleFallsBack(t *testing.T) {
	t.Parallel()

	b := NewBuilder(NewStyleTable("default", DefaultStyles()))
	got := b.Build(dialogWith("pirate", true), "hi", 20)
	if got[0].Content != "You are a helpful assistant." {
		t.Errorf("system = %q, want default prompt", got[0].Content)
	}
}

func TestBuild_DoesNotModifyDialog(t *testing.T) {
	t.Parallel()

	b := NewBuilder(nil)
	d := dialogWith("default", true, "u1", "a1")
	_ = b.Build(d, "u2", 20)

	if len(d.History) != 2 {
		t.Errorf("History len = %d, want 2", len(d.History))
	}
}

// Reproduces the three-turn walkthrough with a history bound of four.
func TestBuild_EndToEndWithStore(t *testing.T) {
	t.Parallel()

	store := conversation.NewStore(conversation.Config{MaxHistoryMessages: 4})
	b := NewBuilder(nil)
	key := conversation.NewKey(100)

	turns := []struct{ user, reply string }{
		{"Hi", "Hello!"},
		{"What is Go?", "A language."},
		{"Who made it?", "Google."},
	}
	wantLens := []int{2, 4, 6}
	for i, turn := range turns {
		d, _ := store.GetOrCreate(key)
		msgs := b.Build(d, turn.user, store.MaxHistoryMessages())
		if len(msgs) != wantLens[i] {
			t.Fatalf("turn %d: len = %d, want %d", i+1, len(msgs), wantLens[i])
		}
		store.AppendTurn(key, turn.user, turn.reply)
	}

	d, _ := store.GetOrCreate(key)
	msgs := b.Build(d, "When?", store.MaxHistoryMessages())
	want := []string{"You are a helpful assistant.", "What is Go?", "A language.", "Who made it?", "Google.", "When?"}
	if len(msgs) != len(want) {
		t.Fatalf("len = %d, want %d", len(msgs), len(want))
	}
	for i := range want {
		if msgs[i].Content != want[i] {
			t.Errorf("msgs[%d] = %q, want %q", i, msgs[i].Content, want[i])
		}
	}
}
