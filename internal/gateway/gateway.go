// Package gateway provides the admin HTTP server: health, Prometheus metrics,
// store status and dialog maintenance. It binds to loopback by default and
// follows the module system pattern.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/chatmem/internal/conversation"
	"github.com/flemzord/chatmem/internal/core"
	"github.com/flemzord/chatmem/internal/cron"
	"github.com/flemzord/chatmem/internal/metrics"
)

// ModuleID is the id the gateway registers under.
const ModuleID = "gateway.http"

// Service names resolved from the AppContext at Start.
const (
	ServiceStore       = "conversation.store"
	ServiceMetrics     = "metrics"
	ServiceMaintenance = "cron.maintenance"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// Gateway is the HTTP gateway module. It is a leaf module; nothing imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time

	// Resolved lazily at Start() via the service registry.
	store       *conversation.Store
	metrics     *metrics.Metrics
	maintenance *cron.Maintenance
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	ctx.RegisterSecret(g.config.Auth.BearerToken)
	ctx.RegisterSecret(g.config.Auth.BasicPass)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	return g.config.validate()
}

// resolveServices binds the optional collaborators. Missing services
// degrade the matching endpoints instead of failing startup.
func (g *Gateway) resolveServices() {
	if svc, ok := g.appCtx.GetService(ServiceStore); ok {
		g.store, _ = svc.(*conversation.Store)
	}
	if svc, ok := g.appCtx.GetService(ServiceMetrics); ok {
		g.metrics, _ = svc.(*metrics.Metrics)
	}
	if svc, ok := g.appCtx.GetService(ServiceMaintenance); ok {
		g.maintenance, _ = svc.(*cron.Maintenance)
	}
}

// Start implements core.Starter. It resolves dependencies from the service
// registry and starts the HTTP server.
func (g *Gateway) Start() error {
	g.resolveServices()
	if !g.config.Auth.IsConfigured() {
		g.logger.Warn("gateway: no auth configured, admin endpoints disabled")
	}

	g.startedAt = time.Now()
	g.server = &http.Server{
		Addr:              g.config.Bind,
		Handler:           g.buildRouter(),
		ReadTimeout:       g.config.ReadTimeout,
		ReadHeaderTimeout: g.config.ReadTimeout,
		WriteTimeout:      g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()
	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
