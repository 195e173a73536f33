package channel

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/flemzord/chatmem/pkg/message"
)

// Dispatcher is the router's outbound side: replies and typing indicators
// go to the channel whose module ID matches msg.Channel.
type Dispatcher struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{channels: make(map[string]Channel)}
}

// Register adds ch under name, failing with ErrDuplicateChannel when the
// name is taken.
func (d *Dispatcher) Register(name string, ch Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, taken := d.channels[name]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, name)
	}
	d.channels[name] = ch
	return nil
}

// Get returns the channel registered under name.
func (d *Dispatcher) Get(name string) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.channels[name]
	return ch, ok
}

func (d *Dispatcher) lookup(name string) (Channel, error) {
	ch, ok := d.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoChannel, name)
	}
	return ch, nil
}

// Send delivers msg through the channel named by msg.Channel.
func (d *Dispatcher) Send(ctx context.Context, msg message.OutboundMessage) error {
	ch, err := d.lookup(msg.Channel)
	if err != nil {
		return err
	}
	return ch.Send(ctx, msg)
}

// SendTyping shows a typing indicator in chat. Channels that do not
// implement TypingChannel are skipped without error.
func (d *Dispatcher) SendTyping(ctx context.Context, channelName string, chat message.Chat, threadID int64) error {
	ch, err := d.lookup(channelName)
	if err != nil {
		return err
	}
	if tc, ok := ch.(TypingChannel); ok {
		return tc.SendTyping(ctx, chat, threadID)
	}
	return nil
}

// Channels returns the registered names in sorted order.
func (d *Dispatcher) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Sorted(maps.Keys(d.channels))
}
