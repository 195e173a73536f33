package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// stopBudget bounds the whole shutdown, shared by every Stopper.
const stopBudget = 30 * time.Second

// App owns the modules of one chatmem process: the ones loaded from
// configuration followed by the ones wired in code (router, cron).
type App struct {
	ctx     *AppContext
	logger  *slog.Logger
	modules []*loaded
}

type loaded struct {
	id      ModuleID
	module  Module
	running bool
}

// NewApp creates an App that loads modules through ctx.
func NewApp(ctx *AppContext) *App {
	return &App{ctx: ctx, logger: ctx.Logger.With("component", "core")}
}

// LoadModules loads ids in order. On the first failure every module loaded
// so far is given a chance to release what Provision acquired, and the App
// is left empty.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.teardown(len(a.modules)-1, true)
			a.modules = nil
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		a.modules = append(a.modules, &loaded{id: mod.ModuleInfo().ID, module: mod})
		a.logger.Info("module loaded", "module", id)
	}
	return nil
}

// AppendModule adds a module built outside the registry. It starts after
// everything already present and stops before it.
func (a *App) AppendModule(id string, mod Module) {
	a.modules = append(a.modules, &loaded{id: ModuleID(id), module: mod})
}

// Modules returns every module in start order.
func (a *App) Modules() []Module {
	out := make([]Module, 0, len(a.modules))
	for _, l := range a.modules {
		out = append(out, l.module)
	}
	return out
}

// Module looks a module up by id.
func (a *App) Module(id string) (Module, bool) {
	for _, l := range a.modules {
		if string(l.id) == id {
			return l.module, true
		}
	}
	return nil, false
}

// Start calls Start on each Starter in order. When one fails, the ones
// already running are stopped in reverse and the error is returned.
func (a *App) Start() error {
	for i, l := range a.modules {
		s, ok := l.module.(Starter)
		if !ok {
			continue
		}
		a.logger.Info("starting module", "module", string(l.id))
		if err := s.Start(); err != nil {
			a.logger.Error("module start failed", "module", string(l.id), "error", err)
			a.teardown(i-1, false)
			return fmt.Errorf("starting module %s: %w", l.id, err)
		}
		l.running = true
	}
	a.logger.Info("all modules started", "count", len(a.modules))
	return nil
}

// Stop stops running modules in reverse start order. Errors are logged;
// Stop always visits every module.
func (a *App) Stop() {
	a.teardown(len(a.modules)-1, false)
}

// teardown walks modules[from..0]. With all set it also stops modules that
// never started, which is how a failed load releases provisioned resources.
func (a *App) teardown(from int, all bool) {
	ctx, cancel := context.WithTimeout(context.Background(), stopBudget)
	defer cancel()

	for i := from; i >= 0; i-- {
		l := a.modules[i]
		if !l.running && !all {
			continue
		}
		l.running = false
		s, ok := l.module.(Stopper)
		if !ok {
			continue
		}
		a.logger.Info("stopping module", "module", string(l.id))
		if err := s.Stop(ctx); err != nil {
			a.logger.Error("module stop error", "module", string(l.id), "error", err)
		}
	}
}
