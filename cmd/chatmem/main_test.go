package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/chatmem/internal/config"
	"github.com/flemzord/chatmem/internal/conversation"
	"github.com/flemzord/chatmem/internal/gateway"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion_ListsModules(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	for _, want := range []string{"chatmem dev", "channel.telegram", "provider.anthropic", "provider.openai_compatible", "gateway.http"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInit_NonInteractive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", config.FileName)

	out, err := execute(t, "config", "init", "-y", "-o", path, "--provider", "anthropic", "--gateway")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote "+path) {
		t.Errorf("output = %q", out)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{"provider.anthropic:", "gateway.http:", "channel.telegram:"} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("starter missing %q:\n%s", want, raw)
		}
	}

	if _, err := execute(t, "config", "init", "-y", "-o", path); err == nil {
		t.Fatal("expected error when the file already exists")
	}
	if _, err := execute(t, "config", "init", "-y", "-o", path, "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
}

func TestConfigCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.FileName)
	if _, err := execute(t, "config", "init", "-y", "-o", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	t.Setenv("TELEGRAM_TOKEN", "123456:ABC-def_ghi")
	t.Setenv("GROQ_API_KEY", "gsk-test")

	out, err := execute(t, "config", "check", path)
	if err != nil {
		t.Fatalf("config check: %v\n%s", err, out)
	}
	for _, want := range []string{"Configuration OK", "channel.telegram", "Provider: provider.openai_compatible"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCheck_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.FileName)
	if err := os.WriteFile(path, []byte("version: \"1\"\nmodules: {}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := execute(t, "config", "check", path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestStatus(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/status":
			_ = json.NewEncoder(w).Encode(gateway.StatusResponse{
				UptimeSeconds: 90,
				StartedAt:     started,
				Stats:         conversation.Stats{Dialogs: 2, Messages: 6, MemoryOn: 1, MemoryOff: 1},
			})
		case "/api/dialogs":
			_ = json.NewEncoder(w).Encode([]dialogRow{
				{Key: "42", Style: "default", MemoryEnabled: true, HistoryLen: 6, LastUsed: "2026-01-02T03:05:00Z"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	out, err := execute(t, "status", "--addr", srv.URL+"/", "--token", "tok", "--dialogs")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"1m30s", "2026-01-02T03:04:05Z", "Messages", "default", "on"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatus_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := execute(t, "status", "--addr", srv.URL)
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("status error = %v, want 401", err)
	}
}
