package router

import (
	"sync"

	"github.com/flemzord/chatmem/internal/conversation"
)

// LaneLock serializes turns of the same conversation while turns of
// different conversations run in parallel. The map mutex is held only
// to look up or create a lane; waiting happens on the lane itself.
type LaneLock struct {
	mu    sync.Mutex
	lanes map[conversation.Key]*lane
}

// refs counts goroutines holding or waiting on the lane. A stale lane
// is removed once refs drops to zero.
type lane struct {
	mu    sync.Mutex
	refs  int
	stale bool
}

// NewLaneLock creates a ready-to-use LaneLock.
func NewLaneLock() *LaneLock {
	return &LaneLock{
		lanes: make(map[conversation.Key]*lane),
	}
}

// Acquire locks the lane of key. The caller must call Release with the
// same key when done.
func (l *LaneLock) Acquire(key conversation.Key) {
	l.mu.Lock()
	ln, ok := l.lanes[key]
	if !ok {
		ln = &lane{}
		l.lanes[key] = ln
	}
	ln.refs++
	ln.stale = false
	l.mu.Unlock()

	ln.mu.Lock()
}

// Release unlocks the lane of key.
func (l *LaneLock) Release(key conversation.Key) {
	l.mu.Lock()
	ln, ok := l.lanes[key]
	if !ok {
		l.mu.Unlock()
		return
	}
	ln.refs--
	if ln.refs == 0 && ln.stale {
		delete(l.lanes, key)
	}
	l.mu.Unlock()

	ln.mu.Unlock()
}

// Len returns the number of tracked lanes.
func (l *LaneLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}

// Cleanup drops lanes whose conversation is no longer in the store.
// Lanes still in use are marked stale and removed on their last Release.
func (l *LaneLock) Cleanup(active map[conversation.Key]struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, ln := range l.lanes {
		if _, ok := active[key]; !ok {
			ln.stale = true
			if ln.refs == 0 {
				delete(l.lanes, key)
			}
			continue
		}
		ln.stale = false
	}
}
