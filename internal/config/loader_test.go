package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_DefaultsAndEnv(t *testing.T) {
	t.Setenv("CHATMEM_TEST_TOKEN", "123:abc")

	raw := []byte(`
version: "1"
conversation:
  ttl: 2h
  max_dialogs_per_owner: -1
  styles:
    pirate: "You talk like a pirate."
modules:
  channel.telegram:
    token: "${CHATMEM_TEST_TOKEN}"
    mode: "${CHATMEM_UNSET_VAR:-polling}"
`)
	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Conversation.TTL != 2*time.Hour {
		t.Errorf("TTL = %v, want 2h", cfg.Conversation.TTL)
	}
	if cfg.Conversation.MaxDialogsPerOwner != -1 {
		t.Errorf("MaxDialogsPerOwner = %d, want -1 (disabled)", cfg.Conversation.MaxDialogsPerOwner)
	}
	if cfg.Conversation.MaxHistoryMessages != DefaultMaxHistoryMessages {
		t.Errorf("MaxHistoryMessages = %d, want default", cfg.Conversation.MaxHistoryMessages)
	}
	if cfg.Router.GenerationTimeout != DefaultGenerationTimeout {
		t.Errorf("GenerationTimeout = %v, want default", cfg.Router.GenerationTimeout)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want info/text", cfg.Logging)
	}
	if cfg.Conversation.Styles["pirate"] == "" {
		t.Error("custom style not decoded")
	}

	var mod struct {
		Token string `yaml:"token"`
		Mode  string `yaml:"mode"`
	}
	node := cfg.Modules["channel.telegram"]
	if err := node.Decode(&mod); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if mod.Token != "123:abc" {
		t.Errorf("token = %q, want expanded env value", mod.Token)
	}
	if mod.Mode != "polling" {
		t.Errorf("mode = %q, want default value", mod.Mode)
	}
}

func TestParse_UnresolvedVariables(t *testing.T) {
	raw := []byte(`
version: "1"
modules:
  channel.telegram:
    token: "${CHATMEM_MISSING_A}"
    other: "${CHATMEM_MISSING_B}"
`)
	_, err := Parse(raw)
	if err == nil {
		t.Fatal("expected error for unresolved variables")
	}
	for _, name := range []string{"CHATMEM_MISSING_A", "CHATMEM_MISSING_B"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should mention %s: %v", name, err)
		}
	}
}

func TestLoad_FileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("version: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestFind_XDGFirst(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := os.MkdirAll(filepath.Join(dir, "chatmem"), 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "chatmem", FileName)
	if err := os.WriteFile(want, []byte(`version: "1"`), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := Find()
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got != want {
		t.Errorf("Find() = %q, want %q", got, want)
	}
}

func TestStarter_RendersValidYAML(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "x")
	t.Setenv("GROQ_API_KEY", "y")
	t.Setenv("ADMIN_TOKEN", "z")

	raw, err := Starter(StarterOptions{EnableGateway: true})
	if err != nil {
		t.Fatalf("Starter: %v", err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse(starter): %v\n%s", err, raw)
	}
	for _, id := range []string{"channel.telegram", "provider.openai_compatible", "gateway.http"} {
		if _, ok := cfg.Modules[id]; !ok {
			t.Errorf("starter config missing module %s", id)
		}
	}
	if got := SelectedProvider(cfg); got != "provider.openai_compatible" {
		t.Errorf("SelectedProvider() = %q", got)
	}
}

func TestStarter_Anthropic(t *testing.T) {
	raw, err := Starter(StarterOptions{Provider: "anthropic"})
	if err != nil {
		t.Fatalf("Starter: %v", err)
	}
	s := string(raw)
	if !strings.Contains(s, "provider.anthropic:") || strings.Contains(s, "provider.openai_compatible") {
		t.Errorf("unexpected provider section:\n%s", s)
	}
	if strings.Contains(s, "gateway.http") {
		t.Error("gateway should be omitted unless enabled")
	}
}
