package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/chatmem/internal/conversation"
	"github.com/flemzord/chatmem/internal/core"
	"github.com/flemzord/chatmem/internal/cron"
	"github.com/flemzord/chatmem/internal/metrics"
)

const testToken = "admin-token"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustYAMLNode(t *testing.T, raw string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	return doc.Content[0]
}

// fixture is a gateway wired to a real store, metrics and maintenance.
type fixture struct {
	gw     *Gateway
	store  *conversation.Store
	server *httptest.Server
}

func newFixture(t *testing.T, auth AuthConfig) *fixture {
	t.Helper()

	store := conversation.NewStore(conversation.Config{MaxHistoryMessages: 4})
	m := metrics.New(func() (int, int) {
		st := store.Stats()
		return st.Dialogs, st.Messages
	})
	maint := &cron.Maintenance{
		Sweep:    &cron.DialogSweepJob{Store: store, TTL: time.Hour, Metrics: m, Logger: quietLogger()},
		Capacity: &cron.DialogCapacityJob{Store: store, Limit: 1, Metrics: m, Logger: quietLogger()},
	}

	appCtx := core.NewAppContext(quietLogger())
	appCtx.RegisterService(ServiceStore, store)
	appCtx.RegisterService(ServiceMetrics, m)
	appCtx.RegisterService(ServiceMaintenance, maint)

	g := &Gateway{config: Config{Auth: auth}}
	g.config.defaults()
	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	g.resolveServices()
	g.startedAt = time.Now()

	srv := httptest.NewServer(g.buildRouter())
	t.Cleanup(srv.Close)
	return &fixture{gw: g, store: store, server: srv}
}

func (f *fixture) do(t *testing.T, method, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, f.server.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
