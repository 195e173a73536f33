package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/flemzord/chatmem/internal/channel"
	"github.com/flemzord/chatmem/internal/conversation"
	ctxengine "github.com/flemzord/chatmem/internal/context"
	"github.com/flemzord/chatmem/internal/metrics"
	"github.com/flemzord/chatmem/internal/provider"
	"github.com/flemzord/chatmem/internal/security"
	"github.com/flemzord/chatmem/pkg/message"
)

// User-facing replies for failed turns. The detailed error is only logged.
const (
	replyGenerationFailed = "Something went wrong while generating a reply. Please try again."
	replyRateLimited      = "You are sending messages too fast. Please wait a moment."
)

// replyParseMode is the formatting applied to model replies.
const replyParseMode = "Markdown"

// PipelineConfig groups the dependencies of the turn pipeline.
type PipelineConfig struct {
	Store             *conversation.Store
	Builder           *ctxengine.Builder
	Provider          provider.Provider
	Sender            Sender
	Typer             Typer
	LaneLock          *LaneLock
	RateLimiter       *security.RateLimiter
	GenerationTimeout time.Duration

	// TypingInterval overrides channel.DefaultTypingInterval.
	TypingInterval time.Duration

	Metrics *metrics.Metrics
	Tracer  trace.Tracer
	Logger  *slog.Logger
}

// PipelineResult contains the outcome of one Execute call.
type PipelineResult struct {
	// Command is the handled command name, empty for text turns.
	Command string
	// Reply is the text sent back to the user.
	Reply   string
	Error   error
	Skipped bool
}

// Pipeline runs commands and text turns for queued messages.
type Pipeline struct {
	cfg PipelineConfig
}

// NewPipeline creates a new pipeline with the given configuration.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Builder == nil {
		cfg.Builder = ctxengine.NewBuilder(nil)
	}
	if cfg.LaneLock == nil {
		cfg.LaneLock = NewLaneLock()
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = defaultGenerationTimeout
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{cfg: cfg}
}

// Execute handles a single message.
func (p *Pipeline) Execute(ctx context.Context, env envelope) PipelineResult {
	text := strings.TrimSpace(env.Message.Text)
	if text == "" {
		p.cfg.Logger.Debug("pipeline: empty message skipped", "key", env.Key)
		return PipelineResult{Skipped: true}
	}

	if cmd, ok := ParseCommand(text); ok {
		return p.runCommand(ctx, env, cmd)
	}
	return p.runTurn(ctx, env, text)
}

func (p *Pipeline) runCommand(ctx context.Context, env envelope, cmd Command) PipelineResult {
	reply := p.handleCommand(env.Key, cmd)
	p.cfg.Metrics.IncCommand(cmd.metricLabel())
	p.cfg.Logger.Info("pipeline: command handled", "key", env.Key, "command", cmd.Name)

	err := p.send(ctx, message.ReplyTo(env.Message, reply))
	return PipelineResult{Command: cmd.Name, Reply: reply, Error: err}
}

// runTurn executes one generation turn. The lane of the conversation is
// held for the whole turn so that concurrent messages of one conversation
// commit in order. History is only written after a successful generation.
func (p *Pipeline) runTurn(ctx context.Context, env envelope, text string) PipelineResult {
	logger := p.cfg.Logger.With("key", env.Key)

	if err := p.cfg.RateLimiter.Allow(env.Key.OwnerID); err != nil {
		p.cfg.Metrics.ObserveTurn(metrics.OutcomeRateLimited)
		logger.Warn("pipeline: turn rate limited")
		p.sendError(ctx, env.Message, replyRateLimited)
		return PipelineResult{Reply: replyRateLimited, Error: err}
	}

	ctx, span := p.cfg.Tracer.Start(ctx, "turn", trace.WithAttributes(
		attribute.Int64("owner_id", env.Key.OwnerID),
		attribute.Int64("sub_id", env.Key.SubID),
	))
	defer span.End()

	p.cfg.LaneLock.Acquire(env.Key)
	defer p.cfg.LaneLock.Release(env.Key)

	dialog, created := p.cfg.Store.GetOrCreate(env.Key)
	if created {
		logger.Debug("pipeline: dialog created", "style", dialog.Style)
	}
	msgs := p.cfg.Builder.Build(dialog, text, p.cfg.Store.MaxHistoryMessages())
	span.SetAttributes(
		attribute.Int("history_len", len(msgs)-2),
		attribute.Bool("memory_enabled", dialog.MemoryEnabled),
		attribute.String("style", dialog.Style),
	)

	stopTyping := p.startTyping(ctx, env.Message)
	resp, err := p.generate(ctx, msgs)
	stopTyping()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		p.cfg.Metrics.ObserveTurn(metrics.OutcomeError)
		logger.Error("pipeline: generation failed", "error", err, "retryable", provider.IsRetryable(err))
		p.sendError(ctx, env.Message, replyGenerationFailed)
		return PipelineResult{Reply: replyGenerationFailed, Error: err}
	}

	p.cfg.Store.AppendTurn(env.Key, text, resp.Content)

	reply := message.ReplyTo(env.Message, resp.Content)
	reply.Hints = &message.OutboundHints{ParseMode: replyParseMode}
	if err := p.send(ctx, reply); err != nil {
		span.RecordError(err)
		p.cfg.Metrics.ObserveTurn(metrics.OutcomeError)
		return PipelineResult{Reply: resp.Content, Error: err}
	}

	p.cfg.Metrics.ObserveTurn(metrics.OutcomeOK)
	return PipelineResult{Reply: resp.Content}
}

// generate calls the provider under the generation timeout. No store lock
// is held here.
func (p *Pipeline) generate(ctx context.Context, msgs []provider.LLMMessage) (provider.CompletionResponse, error) {
	ctx, span := p.cfg.Tracer.Start(ctx, "generate", trace.WithAttributes(
		attribute.String("model", p.cfg.Provider.ModelName()),
		attribute.Int("messages", len(msgs)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	resp, err := p.cfg.Provider.Complete(ctx, provider.CompletionRequest{Messages: msgs})
	p.cfg.Metrics.ObserveGeneration(time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return provider.CompletionResponse{}, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		span.SetStatus(codes.Error, provider.ErrEmptyResponse.Error())
		return provider.CompletionResponse{}, provider.ErrEmptyResponse
	}

	usage := resp.Usage
	span.SetAttributes(
		attribute.Int("tokens.prompt", usage.PromptTokens),
		attribute.Int("tokens.completion", usage.CompletionTokens),
	)
	p.cfg.Metrics.AddTokens(usage.PromptTokens, usage.CompletionTokens)
	p.cfg.Logger.Info("pipeline: tokens",
		"input", usage.PromptTokens,
		"output", usage.CompletionTokens,
		"total", usage.TotalTokens,
		"finish_reason", resp.FinishReason,
	)
	return resp, nil
}

// startTyping shows a typing indicator until the returned func is called.
func (p *Pipeline) startTyping(ctx context.Context, msg message.InboundMessage) context.CancelFunc {
	if p.cfg.Typer == nil {
		return func() {}
	}
	typingCtx, cancel := context.WithCancel(ctx)
	channel.StartTypingLoop(typingCtx, namedTyper{typer: p.cfg.Typer, channel: msg.Channel}, msg.Chat, msg.ThreadID, p.cfg.TypingInterval)
	return cancel
}

func (p *Pipeline) send(ctx context.Context, msg message.OutboundMessage) error {
	if err := p.cfg.Sender.Send(ctx, msg); err != nil {
		if !errors.Is(err, context.Canceled) {
			p.cfg.Logger.Error("pipeline: send failed", "chat_id", msg.Chat.ID, "error", err)
		}
		return err
	}
	return nil
}

// sendError sends a user-friendly error message. Never panics.
func (p *Pipeline) sendError(ctx context.Context, original message.InboundMessage, text string) {
	_ = p.send(ctx, message.ReplyTo(original, text))
}

// namedTyper binds a Typer to one channel as a channel.Typer.
type namedTyper struct {
	typer   Typer
	channel string
}

func (n namedTyper) SendTyping(ctx context.Context, chat message.Chat, threadID int64) error {
	return n.typer.SendTyping(ctx, n.channel, chat, threadID)
}
