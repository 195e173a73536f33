package core

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
)

// orderModule records Start/Stop calls into a shared log.
type orderModule struct {
	id       ModuleID
	log      *callLog
	startErr error
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

func (m *orderModule) ModuleInfo() ModuleInfo {
	id, log, startErr := m.id, m.log, m.startErr
	return ModuleInfo{
		ID:  id,
		New: func() Module { return &orderModule{id: id, log: log, startErr: startErr} },
	}
}

func (m *orderModule) Start() error {
	if m.startErr != nil {
		return m.startErr
	}
	m.log.add("start " + string(m.id))
	return nil
}

func (m *orderModule) Stop(context.Context) error {
	m.log.add("stop " + string(m.id))
	return nil
}

func TestApp_StartStopOrder(t *testing.T) {
	t.Cleanup(resetRegistry)

	log := &callLog{}
	RegisterModule(&orderModule{id: "test.a", log: log})
	RegisterModule(&orderModule{id: "test.b", log: log})

	app := NewApp(NewAppContext(nil))
	if err := app.LoadModules([]string{"test.a", "test.b"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	if len(app.Modules()) != 2 {
		t.Fatalf("Modules() len = %d, want 2", len(app.Modules()))
	}
	if err := app.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	app.Stop()

	want := []string{"start test.a", "start test.b", "stop test.b", "stop test.a"}
	if got := log.get(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestApp_StartFailureRollsBack(t *testing.T) {
	t.Cleanup(resetRegistry)

	log := &callLog{}
	boom := errors.New("boom")
	RegisterModule(&orderModule{id: "test.ok", log: log})
	RegisterModule(&orderModule{id: "test.fail", log: log, startErr: boom})

	app := NewApp(NewAppContext(nil))
	if err := app.LoadModules([]string{"test.ok", "test.fail"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	if err := app.Start(); !errors.Is(err, boom) {
		t.Fatalf("Start() = %v, want boom", err)
	}

	want := []string{"start test.ok", "stop test.ok"}
	if got := log.get(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestApp_AppendModule(t *testing.T) {
	t.Cleanup(resetRegistry)

	log := &callLog{}
	RegisterModule(&orderModule{id: "test.a", log: log})

	app := NewApp(NewAppContext(nil))
	if err := app.LoadModules([]string{"test.a"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	app.AppendModule("router", &orderModule{id: "router", log: log})

	if _, ok := app.Module("router"); !ok {
		t.Fatal("Module(router) not found")
	}
	if _, ok := app.Module("test.missing"); ok {
		t.Fatal("Module(test.missing) found")
	}
	if err := app.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	app.Stop()

	want := []string{"start test.a", "start router", "stop router", "stop test.a"}
	if got := log.get(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestApp_LoadModulesUnknown(t *testing.T) {
	t.Cleanup(resetRegistry)

	app := NewApp(NewAppContext(nil))
	err := app.LoadModules([]string{"nope.missing"})
	if !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("LoadModules() = %v, want ErrUnknownModule", err)
	}
}

func TestRegistry_Namespace(t *testing.T) {
	t.Cleanup(resetRegistry)

	log := &callLog{}
	RegisterModule(&orderModule{id: "provider.b", log: log})
	RegisterModule(&orderModule{id: "provider.a", log: log})
	RegisterModule(&orderModule{id: "channel.x", log: log})

	got := GetModulesByNamespace("provider")
	if len(got) != 2 || got[0].ID != "provider.a" || got[1].ID != "provider.b" {
		t.Errorf("GetModulesByNamespace(provider) = %v", got)
	}
	if all := GetModules(); len(all) != 3 {
		t.Errorf("GetModules() len = %d, want 3", len(all))
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(&orderModule{id: "test.dup", log: &callLog{}})
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	RegisterModule(&orderModule{id: "test.dup", log: &callLog{}})
}

func TestRegistry_InvalidIDPanics(t *testing.T) {
	t.Cleanup(resetRegistry)

	for _, id := range []ModuleID{"", "bare", ".telegram", "channel."} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("RegisterModule(%q) did not panic", id)
				}
			}()
			RegisterModule(&orderModule{id: id, log: &callLog{}})
		}()
	}
}

func TestModuleID(t *testing.T) {
	tests := []struct {
		id        ModuleID
		namespace string
		name      string
	}{
		{"channel.telegram", "channel", "telegram"},
		{"provider.openai_compatible", "provider", "openai_compatible"},
		{"bare", "bare", "bare"},
	}
	for _, tt := range tests {
		if got := tt.id.Namespace(); got != tt.namespace {
			t.Errorf("%s.Namespace() = %q, want %q", tt.id, got, tt.namespace)
		}
		if got := tt.id.Name(); got != tt.name {
			t.Errorf("%s.Name() = %q, want %q", tt.id, got, tt.name)
		}
	}
}
