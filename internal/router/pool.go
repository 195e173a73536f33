package router

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/flemzord/chatmem/internal/conversation"
	"github.com/flemzord/chatmem/pkg/message"
)

// DefaultWorkerCount is the number of workers when no size is specified.
const DefaultWorkerCount = 10

// envelope pairs an inbound message with its resolved conversation key.
type envelope struct {
	Message message.InboundMessage
	Key     conversation.Key
}

// WorkerPool runs a fixed number of goroutines draining the inbox. A
// handler panic is logged and the worker moves on to the next envelope.
type WorkerPool struct {
	size   int
	logger *slog.Logger
	busy   atomic.Int32
	wg     sync.WaitGroup
}

// NewWorkerPool creates a pool with the given size.
// If size <= 0, DefaultWorkerCount is used.
func NewWorkerPool(size int, logger *slog.Logger) *WorkerPool {
	if size <= 0 {
		size = DefaultWorkerCount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{size: size, logger: logger}
}

// Start launches the workers. They exit once the inbox is closed and empty.
func (p *WorkerPool) Start(ctx context.Context, inbox <-chan envelope, handler func(context.Context, envelope)) {
	for range p.size {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for env := range inbox {
				p.handle(ctx, env, handler)
			}
		}()
	}
}

func (p *WorkerPool) handle(ctx context.Context, env envelope, handler func(context.Context, envelope)) {
	p.busy.Add(1)
	defer p.busy.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("router: worker recovered from panic", "key", env.Key, "panic", r)
		}
	}()
	handler(ctx, env)
}

// Busy returns the number of envelopes being handled right now.
func (p *WorkerPool) Busy() int {
	return int(p.busy.Load())
}

// Wait blocks until all workers have exited.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
