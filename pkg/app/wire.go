package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/chatmem/internal/channel"
	"github.com/flemzord/chatmem/internal/config"
	ctxengine "github.com/flemzord/chatmem/internal/context"
	"github.com/flemzord/chatmem/internal/conversation"
	"github.com/flemzord/chatmem/internal/core"
	"github.com/flemzord/chatmem/internal/cron"
	"github.com/flemzord/chatmem/internal/gateway"
	"github.com/flemzord/chatmem/internal/metrics"
	"github.com/flemzord/chatmem/internal/provider"
	"github.com/flemzord/chatmem/internal/router"
	"github.com/flemzord/chatmem/internal/security"
)

// routerModule wraps a *router.Router to satisfy core.Module, core.Starter,
// and core.Stopper, so the router participates in the App lifecycle.
type routerModule struct {
	router *router.Router
	ctx    context.Context
}

func (m *routerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "router"}
}

func (m *routerModule) Start() error {
	m.router.Start(m.ctx)
	return nil
}

func (m *routerModule) Stop(ctx context.Context) error {
	return m.router.Stop(ctx)
}

// schedulerModule runs the maintenance scheduler inside the App lifecycle.
type schedulerModule struct {
	scheduler *cron.Scheduler
}

func (m *schedulerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "cron"}
}

func (m *schedulerModule) Start() error {
	return m.scheduler.Start()
}

func (m *schedulerModule) Stop(ctx context.Context) error {
	return m.scheduler.Stop(ctx)
}

// shared groups the process-wide collaborators built before modules load.
type shared struct {
	store   *conversation.Store
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// newShared builds the conversation store and its metrics.
func newShared(cfg *config.Config, tracer trace.Tracer, logger *slog.Logger) *shared {
	store := conversation.NewStore(conversation.Config{
		MaxHistoryMessages: cfg.Conversation.MaxHistoryMessages,
		DefaultStyle:       cfg.Conversation.DefaultStyle,
	})
	m := metrics.New(func() (int, int) {
		st := store.Stats()
		return st.Dialogs, st.Messages
	})
	return &shared{store: store, metrics: m, tracer: tracer, logger: logger}
}

// registerServices publishes the shared collaborators for modules that
// resolve them at Start, such as the gateway.
func (s *shared) registerServices(appCtx *core.AppContext) {
	appCtx.RegisterService(gateway.ServiceStore, s.store)
	appCtx.RegisterService(gateway.ServiceMetrics, s.metrics)
}

// wireRouter creates the Router and Dispatcher, wires them to every loaded
// channel, and appends the router to the app lifecycle.
// Must be called after LoadModules and before Start.
func wireRouter(app *core.App, cfg *config.Config, s *shared) (*router.Router, error) {
	dispatcher := channel.NewDispatcher()
	var channels []channel.Channel

	for _, mod := range app.Modules() {
		ch, ok := mod.(channel.Channel)
		if !ok {
			continue
		}
		// Register under the full module ID (e.g. "channel.telegram") because
		// that is what the channel sets as msg.Channel in inbound messages.
		id := string(mod.ModuleInfo().ID)
		if err := dispatcher.Register(id, ch); err != nil {
			return nil, fmt.Errorf("registering channel %s: %w", id, err)
		}
		channels = append(channels, ch)
		s.logger.Info("router: registered channel", "channel", id)
	}

	if len(channels) == 0 {
		s.logger.Warn("router: no channels configured, nothing will be received")
	}

	p, err := selectProvider(app, cfg)
	if err != nil {
		return nil, err
	}

	styles := ctxengine.NewStyleTable(cfg.Conversation.DefaultStyle, ctxengine.MergeStyles(cfg.Conversation.Styles))

	r, err := router.NewRouter(router.Config{
		WorkerCount:       cfg.Router.Workers,
		InboxSize:         cfg.Router.InboxSize,
		GenerationTimeout: cfg.Router.GenerationTimeout,
		Store:             s.store,
		Builder:           ctxengine.NewBuilder(styles),
		Provider:          p,
		Sender:            dispatcher,
		Typer:             dispatcher,
		RateLimiter:       security.NewRateLimiter(cfg.Router.RateLimit),
		Metrics:           s.metrics,
		Tracer:            s.tracer,
		Logger:            s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	for _, ch := range channels {
		ch.SetInbox(r.Submit)
	}

	app.AppendModule("router", &routerModule{
		router: r,
		ctx:    context.Background(),
	})

	s.logger.Info("router: wired", "channels", dispatcher.Channels(), "model", p.ModelName())
	return r, nil
}

// selectProvider returns the loaded provider module chosen by the config.
func selectProvider(app *core.App, cfg *config.Config) (provider.Provider, error) {
	id := config.SelectedProvider(cfg)
	if id == "" {
		return nil, fmt.Errorf("router: no provider selected")
	}
	mod, ok := app.Module(id)
	if !ok {
		return nil, fmt.Errorf("router: provider module %s is not loaded", id)
	}
	p, ok := mod.(provider.Provider)
	if !ok {
		return nil, fmt.Errorf("router: module %s is not a provider", id)
	}
	return p, nil
}

// wireMaintenance registers the eviction jobs on a scheduler, publishes
// the on-demand Maintenance service and appends the scheduler to the app
// lifecycle. Must be called after wireRouter and before Start.
func wireMaintenance(app *core.App, appCtx *core.AppContext, cfg *config.Config, s *shared, lanes cron.LaneCleaner) (*cron.Maintenance, error) {
	conv := cfg.Conversation
	maint := &cron.Maintenance{
		Sweep: &cron.DialogSweepJob{
			Store:        s.store,
			TTL:          conv.TTL,
			Lanes:        lanes,
			Metrics:      s.metrics,
			Logger:       s.logger,
			ScheduleExpr: conv.SweepSchedule,
		},
		Capacity: &cron.DialogCapacityJob{
			Store:        s.store,
			Limit:        conv.MaxDialogsPerOwner,
			Lanes:        lanes,
			Metrics:      s.metrics,
			Logger:       s.logger,
			ScheduleExpr: conv.SweepSchedule,
		},
	}

	scheduler := cron.NewScheduler(s.logger)
	if conv.TTL > 0 {
		if err := scheduler.RegisterJob(maint.Sweep); err != nil {
			return nil, fmt.Errorf("registering %s: %w", maint.Sweep.Name(), err)
		}
	}
	if conv.MaxDialogsPerOwner > 0 {
		if err := scheduler.RegisterJob(maint.Capacity); err != nil {
			return nil, fmt.Errorf("registering %s: %w", maint.Capacity.Name(), err)
		}
	}

	appCtx.RegisterService(gateway.ServiceMaintenance, maint)
	app.AppendModule("cron", &schedulerModule{scheduler: scheduler})

	s.logger.Info("cron: maintenance wired", "jobs", scheduler.Jobs(), "schedule", conv.SweepSchedule)
	return maint, nil
}
