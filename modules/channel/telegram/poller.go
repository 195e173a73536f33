package telegram

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/flemzord/chatmem/internal/channel"
	"github.com/flemzord/chatmem/pkg/message"
)

// Backoff between failed getUpdates calls: one second, doubling up to
// thirty.
const (
	firstPollBackoff = time.Second
	maxPollBackoff   = 30 * time.Second
)

// Poller long-polls getUpdates and hands each new, allowed text message
// to the inbox. Offsets are kept in memory only.
type Poller struct {
	client      *Client
	inbox       func(message.InboundMessage) error
	allowList   *channel.AllowList
	logger      *slog.Logger
	channelName string
	config      Config

	// seen remembers recent update ids. Telegram redelivers an update when
	// the offset acknowledging it is lost, for example after a restart.
	seen *lru.Cache[int, struct{}]

	backoff, maxBackoff time.Duration

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewPoller creates a new Poller.
func NewPoller(client *Client, inbox func(message.InboundMessage) error, allowList *channel.AllowList, logger *slog.Logger, channelName string, config Config) (*Poller, error) {
	size := config.DedupeSize
	if size <= 0 {
		size = defaultDedupeSize
	}
	seen, err := lru.New[int, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &Poller{
		client:      client,
		inbox:       inbox,
		allowList:   allowList,
		logger:      logger,
		channelName: channelName,
		config:      config,
		seen:        seen,
		backoff:     firstPollBackoff,
		maxBackoff:  maxPollBackoff,
		done:        make(chan struct{}),
	}, nil
}

// Start launches the polling loop in a goroutine.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)
}

// Stop cancels the in-flight getUpdates call and waits for the loop to
// exit. It is safe to call Stop multiple times.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel == nil {
			close(p.done)
			return
		}
		p.cancel()
	})
	<-p.done
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	offset := 0
	failures := 0
	for ctx.Err() == nil {
		updates, err := p.client.GetUpdates(ctx, GetUpdatesRequest{
			Offset:         offset,
			Timeout:        p.config.PollingTimeout,
			AllowedUpdates: p.config.AllowedUpdates,
		})
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			failures++
			wait := p.retryDelay(failures)
			p.logger.Error("telegram: getUpdates failed", "error", err, "failures", failures, "retry_in", wait)
			if sleep(ctx, wait) != nil {
				return
			}
			continue
		}
		if failures > 0 {
			p.logger.Info("telegram: polling recovered", "failures", failures)
			failures = 0
		}

		for i := range updates {
			offset = updates[i].UpdateID + 1
			p.handleUpdate(&updates[i])
		}
	}
}

// retryDelay is the wait after the n-th consecutive failure.
func (p *Poller) retryDelay(n int) time.Duration {
	d := p.backoff
	for i := 1; i < n && d < p.maxBackoff; i++ {
		d *= 2
	}
	return min(d, p.maxBackoff)
}

// handleUpdate drops redelivered and denied updates and forwards the rest.
func (p *Poller) handleUpdate(update *Update) {
	if ok, _ := p.seen.ContainsOrAdd(update.UpdateID, struct{}{}); ok {
		p.logger.Debug("telegram: duplicate update dropped", "update_id", update.UpdateID)
		return
	}

	msg, err := convertInbound(update, p.channelName)
	if err != nil {
		p.logger.Debug("telegram: skipping update", "update_id", update.UpdateID, "reason", err)
		return
	}

	if !p.allowList.IsAllowed(msg) {
		p.logger.Debug("telegram: update denied by allow list",
			"update_id", update.UpdateID,
			"sender", msg.Sender.ID,
			"chat", msg.Chat.ID,
		)
		return
	}

	if err := p.inbox(msg); err != nil {
		p.logger.Warn("telegram: failed to deliver update to inbox",
			"update_id", update.UpdateID,
			"chat_id", msg.Chat.ID,
			"error", err,
		)
	}
}
