package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/chatmem/internal/channel"
	"github.com/flemzord/chatmem/pkg/message"
)

type recordingInbox struct {
	mu   sync.Mutex
	msgs []message.InboundMessage
}

func (r *recordingInbox) push(msg message.InboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingInbox) waitFor(t *testing.T, n int) []message.InboundMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		if len(r.msgs) >= n {
			out := append([]message.InboundMessage(nil), r.msgs...)
			r.mu.Unlock()
			return out
		}
		r.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d inbound messages", n)
	return nil
}

func newTestPoller(t *testing.T, api *fakeBotAPI, inbox func(message.InboundMessage) error, allow *channel.AllowList) *Poller {
	t.Helper()
	cfg := Config{DedupeSize: 16}
	p, err := NewPoller(NewClient("TOKEN", api.srv.URL), inbox, allow, discardLogger(), ModuleID, cfg)
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	return p
}

func TestPollerReceivesUpdates(t *testing.T) {
	t.Parallel()

	api := newFakeBotAPI(t, []Update{textUpdate(1, 200, 100, "hello"), textUpdate(2, 200, 100, "again")})
	inbox := &recordingInbox{}
	p := newTestPoller(t, api, inbox.push, nil)

	p.Start(context.Background())
	got := inbox.waitFor(t, 2)
	p.Stop()

	if got[0].Text != "hello" || got[1].Text != "again" {
		t.Errorf("texts = %q, %q", got[0].Text, got[1].Text)
	}

	api.mu.Lock()
	offsets := append([]int(nil), api.offsets...)
	api.mu.Unlock()
	if len(offsets) < 2 || offsets[0] != 0 || offsets[1] != 3 {
		t.Errorf("offsets = %v, want [0 3 ...]", offsets)
	}
}

func TestPollerDropsDuplicateUpdates(t *testing.T) {
	t.Parallel()

	dup := textUpdate(7, 1, 1, "once")
	api := newFakeBotAPI(t, []Update{dup}, []Update{dup, textUpdate(8, 1, 1, "twice")})
	inbox := &recordingInbox{}
	p := newTestPoller(t, api, inbox.push, nil)

	p.Start(context.Background())
	got := inbox.waitFor(t, 2)
	p.Stop()

	if len(got) != 2 || got[0].Text != "once" || got[1].Text != "twice" {
		t.Errorf("inbound = %+v, want once then twice", got)
	}
}

func TestPollerDeniesUnallowedUsers(t *testing.T) {
	t.Parallel()

	api := newFakeBotAPI(t, []Update{textUpdate(1, 999, 999, "hack"), textUpdate(2, 100, 100, "legit")})
	inbox := &recordingInbox{}
	p := newTestPoller(t, api, inbox.push, channel.NewAllowList([]int64{100}, nil))

	p.Start(context.Background())
	got := inbox.waitFor(t, 1)
	p.Stop()

	if len(got) != 1 || got[0].Sender.ID != 100 {
		t.Errorf("inbound = %+v, want only sender 100", got)
	}
}

func TestPollerStopIsIdempotent(t *testing.T) {
	t.Parallel()

	api := newFakeBotAPI(t)
	p := newTestPoller(t, api, (&recordingInbox{}).push, nil)
	p.Start(context.Background())

	done := make(chan struct{})
	go func() {
		p.Stop()
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not cancel the pending long poll")
	}
}

func TestPollerStopWithoutStart(t *testing.T) {
	t.Parallel()

	api := newFakeBotAPI(t)
	p := newTestPoller(t, api, (&recordingInbox{}).push, nil)
	p.Stop()
}

func TestPollerRetryDelay(t *testing.T) {
	t.Parallel()

	p := &Poller{backoff: time.Second, maxBackoff: 30 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second, 30 * time.Second}
	for i, w := range want {
		if got := p.retryDelay(i + 1); got != w {
			t.Errorf("retryDelay(%d) = %v, want %v", i+1, got, w)
		}
	}
}
