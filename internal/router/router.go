package router

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/flemzord/chatmem/internal/conversation"
	ctxengine "github.com/flemzord/chatmem/internal/context"
	"github.com/flemzord/chatmem/internal/metrics"
	"github.com/flemzord/chatmem/internal/provider"
	"github.com/flemzord/chatmem/internal/security"
	"github.com/flemzord/chatmem/pkg/message"
)

const (
	defaultInboxSize         = 256
	defaultGenerationTimeout = 60 * time.Second
)

// Sender delivers outbound messages. channel.Dispatcher satisfies it.
type Sender interface {
	Send(ctx context.Context, msg message.OutboundMessage) error
}

// Typer shows a typing indicator on a named channel.
// channel.Dispatcher satisfies it.
type Typer interface {
	SendTyping(ctx context.Context, channelName string, chat message.Chat, threadID int64) error
}

// Config holds the configuration for a Router.
type Config struct {
	WorkerCount       int
	InboxSize         int
	GenerationTimeout time.Duration

	Store    *conversation.Store
	Builder  *ctxengine.Builder
	Provider provider.Provider
	Sender   Sender

	// Typer, if non-nil, shows "typing..." while the provider generates.
	Typer Typer

	// RateLimiter, if non-nil, limits text turns per owner.
	RateLimiter *security.RateLimiter

	Metrics *metrics.Metrics
	Tracer  trace.Tracer
	Logger  *slog.Logger
}

// withDefaults returns a copy of the config with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = DefaultWorkerCount
	}
	if c.InboxSize <= 0 {
		c.InboxSize = defaultInboxSize
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = defaultGenerationTimeout
	}
	if c.Builder == nil {
		c.Builder = ctxengine.NewBuilder(nil)
	}
	if c.Tracer == nil {
		c.Tracer = noop.NewTracerProvider().Tracer("")
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Router accepts inbound messages, queues them and hands them to a fixed
// pool of workers running the turn pipeline.
type Router struct {
	config   Config
	inbox    chan envelope
	inboxMu  sync.RWMutex
	laneLock *LaneLock
	pool     *WorkerPool
	pipeline *Pipeline
	cancel   context.CancelFunc
	stopOnce sync.Once
	logger   *slog.Logger
	stopped  atomic.Bool
}

// NewRouter creates a new Router with the given configuration.
func NewRouter(cfg Config) (*Router, error) {
	cfg = cfg.withDefaults()

	if cfg.Store == nil {
		return nil, ErrNoStore
	}
	if cfg.Provider == nil {
		return nil, ErrNoProvider
	}
	if cfg.Sender == nil {
		return nil, ErrNoSender
	}

	laneLock := NewLaneLock()
	pipeline := NewPipeline(PipelineConfig{
		Store:             cfg.Store,
		Builder:           cfg.Builder,
		Provider:          cfg.Provider,
		Sender:            cfg.Sender,
		Typer:             cfg.Typer,
		LaneLock:          laneLock,
		RateLimiter:       cfg.RateLimiter,
		GenerationTimeout: cfg.GenerationTimeout,
		Metrics:           cfg.Metrics,
		Tracer:            cfg.Tracer,
		Logger:            cfg.Logger,
	})

	return &Router{
		config:   cfg,
		inbox:    make(chan envelope, cfg.InboxSize),
		laneLock: laneLock,
		pool:     NewWorkerPool(cfg.WorkerCount, cfg.Logger),
		pipeline: pipeline,
		logger:   cfg.Logger,
	}, nil
}

// Start launches the worker pool and begins processing messages.
func (r *Router) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.inboxMu.Lock()
	if r.stopped.Load() {
		r.inboxMu.Unlock()
		cancel()
		r.logger.Warn("router: start ignored, router already stopped")
		return
	}
	r.cancel = cancel
	r.inboxMu.Unlock()

	r.pool.Start(ctx, r.inbox, func(ctx context.Context, env envelope) {
		r.pipeline.Execute(ctx, env)
	})
	r.logger.Info("router: started",
		"workers", r.config.WorkerCount,
		"inbox_size", r.config.InboxSize,
		"model", r.config.Provider.ModelName(),
	)
}

// Submit enqueues an inbound message for processing. It never blocks:
// when the inbox is full the message is dropped and ErrInboxFull returned.
func (r *Router) Submit(msg message.InboundMessage) error {
	r.inboxMu.RLock()
	defer r.inboxMu.RUnlock()

	if r.stopped.Load() {
		return ErrRouterStopped
	}

	key := KeyFromMessage(msg)
	select {
	case r.inbox <- envelope{Message: msg, Key: key}:
		return nil
	default:
		r.config.Metrics.IncInboxDropped()
		r.logger.Warn("router: inbox full, message dropped", "key", key)
		return ErrInboxFull
	}
}

// Stop closes the inbox, cancels in-flight turns and waits for the
// workers to exit. Queued messages are still taken off the inbox but fail
// fast on the cancelled context. When ctx ends first, Stop returns its error
// and the workers finish in the background.
func (r *Router) Stop(ctx context.Context) error {
	var err error
	r.stopOnce.Do(func() {
		r.logger.Info("router: stopping", "busy", r.pool.Busy())

		r.inboxMu.Lock()
		r.stopped.Store(true)
		close(r.inbox)
		cancel := r.cancel
		r.inboxMu.Unlock()

		if cancel != nil {
			cancel()
		}

		done := make(chan struct{})
		go func() {
			r.pool.Wait()
			close(done)
		}()
		select {
		case <-done:
			r.logger.Info("router: stopped")
		case <-ctx.Done():
			err = ctx.Err()
			r.logger.Warn("router: workers still running at shutdown deadline", "busy", r.pool.Busy())
		}
	})
	return err
}

// CleanupLanes drops lanes of conversations no longer held by the store.
// It is run after every eviction pass.
func (r *Router) CleanupLanes() {
	keys := r.config.Store.Keys()
	active := make(map[conversation.Key]struct{}, len(keys))
	for _, k := range keys {
		active[k] = struct{}{}
	}
	r.laneLock.Cleanup(active)
}

