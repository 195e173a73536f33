// Package core is chatmem's module system: a registry filled from init(),
// a load sequence driven by chatmem.yaml and an App that starts and stops
// the loaded modules in order.
package core

import (
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/yaml.v3"
)

// AppContext is what a module sees while it loads and runs. Every context
// derived from the same root shares one service table and one secret sink,
// so the gateway can find the store the bootstrap registered.
type AppContext struct {
	// Logger carries a module=<id> attribute once scoped with ForModule.
	Logger *slog.Logger

	root       *slog.Logger
	sections   map[string]yaml.Node
	services   *services
	secretSink func(string)
}

type services struct {
	mu   sync.RWMutex
	byID map[string]any
}

// NewAppContext returns a root context. A nil logger means slog.Default.
func NewAppContext(logger *slog.Logger) *AppContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppContext{
		Logger:   logger,
		root:     logger,
		services: &services{byID: make(map[string]any)},
	}
}

// WithModuleConfigs returns a copy that hands sections[id] to the
// Configure method of module id.
func (ctx *AppContext) WithModuleConfigs(sections map[string]yaml.Node) *AppContext {
	cp := *ctx
	cp.sections = sections
	return &cp
}

// WithSecretSink returns a copy whose RegisterSecret forwards to fn,
// normally the log redactor.
func (ctx *AppContext) WithSecretSink(fn func(string)) *AppContext {
	cp := *ctx
	cp.secretSink = fn
	return &cp
}

// ForModule scopes the logger to id. Scoping is always relative to the
// root logger, never to an already scoped one.
func (ctx *AppContext) ForModule(id ModuleID) *AppContext {
	cp := *ctx
	cp.Logger = ctx.root.With("module", string(id))
	return &cp
}

// RegisterService publishes svc under name, replacing any earlier value.
func (ctx *AppContext) RegisterService(name string, svc any) {
	ctx.services.mu.Lock()
	defer ctx.services.mu.Unlock()
	ctx.services.byID[name] = svc
}

// GetService returns the value published under name.
func (ctx *AppContext) GetService(name string) (any, bool) {
	ctx.services.mu.RLock()
	defer ctx.services.mu.RUnlock()
	svc, ok := ctx.services.byID[name]
	return svc, ok
}

// RegisterSecret asks for value to be scrubbed from every log line.
func (ctx *AppContext) RegisterSecret(value string) {
	if value != "" && ctx.secretSink != nil {
		ctx.secretSink(value)
	}
}

// LoadModule builds module id and runs its optional hooks in order:
//
//	New -> Configure (only when chatmem.yaml has a section) -> Provision -> Validate
//
// Provision receives a context scoped to the module.
func (ctx *AppContext) LoadModule(id string) (Module, error) {
	info, ok := GetModule(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	mod := info.New()

	if c, ok := mod.(Configurable); ok {
		if section, found := ctx.sections[id]; found {
			if err := c.Configure(&section); err != nil {
				return nil, fmt.Errorf("configuring module %s: %w", id, err)
			}
		}
	}
	if p, ok := mod.(Provisioner); ok {
		if err := p.Provision(ctx.ForModule(info.ID)); err != nil {
			return nil, fmt.Errorf("provisioning module %s: %w", id, err)
		}
	}
	if v, ok := mod.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validating module %s: %w", id, err)
		}
	}
	return mod, nil
}
