package conversation

import (
	"slices"
	"sync"
	"time"

	"github.com/flemzord/chatmem/internal/provider"
)

const (
	// DefaultMaxHistoryMessages bounds a dialog's history when Config leaves it unset.
	DefaultMaxHistoryMessages = 20

	// DefaultStyle is the style assigned to new dialogs when Config leaves it unset.
	DefaultStyle = "default"
)

// Config holds the tuning knobs for a Store.
type Config struct {
	// MaxHistoryMessages caps the number of messages kept per dialog.
	// Oldest messages are dropped first.
	MaxHistoryMessages int

	// DefaultStyle is the style key given to newly created dialogs.
	DefaultStyle string
}

// withDefaults returns a copy of the config with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.MaxHistoryMessages <= 0 {
		c.MaxHistoryMessages = DefaultMaxHistoryMessages
	}
	if c.DefaultStyle == "" {
		c.DefaultStyle = DefaultStyle
	}
	return c
}

// Stats is an aggregate view over all live dialogs.
type Stats struct {
	Dialogs   int `json:"dialogs"`
	Messages  int `json:"messages"`
	MemoryOn  int `json:"memory_on"`
	MemoryOff int `json:"memory_off"`
}

// entry wraps a dialog with its own lock. removed is set, under mu,
// when the evictor deletes the entry from the map; holders of a stale
// pointer must look the key up again.
type entry struct {
	mu      sync.Mutex
	dialog  Dialog
	seq     uint64
	removed bool
}

// touch advances LastUsed, never moving it backwards.
func (e *entry) touch(now time.Time) {
	if now.After(e.dialog.LastUsed) {
		e.dialog.LastUsed = now
	}
}

// Store is a concurrency-safe, in-memory collection of dialogs.
//
// Lock order: the map lock (mu) is never held while waiting for an
// entry lock. Operations look the entry up, release mu, then lock the
// entry. Only removal takes mu while an entry lock is held.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]*entry
	seq     uint64

	cfg Config

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// NewStore creates a ready-to-use store.
func NewStore(cfg Config) *Store {
	return &Store{
		entries: make(map[Key]*entry),
		cfg:     cfg.withDefaults(),
		now:     time.Now,
	}
}

// MaxHistoryMessages returns the configured history bound.
func (s *Store) MaxHistoryMessages() int {
	return s.cfg.MaxHistoryMessages
}

// acquire returns the locked entry for key, creating it if needed, and
// touches it. The bool is true when this call created the dialog.
// The caller must unlock the entry.
func (s *Store) acquire(key Key) (*entry, bool) {
	for {
		s.mu.RLock()
		e, ok := s.entries[key]
		s.mu.RUnlock()

		created := false
		if !ok {
			s.mu.Lock()
			if e, ok = s.entries[key]; !ok {
				now := s.now()
				s.seq++
				e = &entry{
					seq: s.seq,
					dialog: Dialog{
						Key:           key,
						Style:         s.cfg.DefaultStyle,
						MemoryEnabled: true,
						CreatedAt:     now,
						LastUsed:      now,
					},
				}
				s.entries[key] = e
				created = true
			}
			s.mu.Unlock()
		}

		e.mu.Lock()
		if e.removed {
			// Evicted between lookup and lock; start over with a fresh dialog.
			e.mu.Unlock()
			continue
		}
		e.touch(s.now())
		return e, created
	}
}

// with runs fn on the dialog for key while holding its lock.
func (s *Store) with(key Key, fn func(d *Dialog)) {
	e, _ := s.acquire(key)
	defer e.mu.Unlock()
	fn(&e.dialog)
}

// GetOrCreate returns a copy of the dialog for key, creating a fresh one
// (default style, memory on, empty history) if none exists. The bool is
// true when the dialog was created by this call.
func (s *Store) GetOrCreate(key Key) (Dialog, bool) {
	e, created := s.acquire(key)
	defer e.mu.Unlock()
	return e.dialog.Clone(), created
}

// SetStyle sets the dialog's style. The name is stored as given; unknown
// names resolve to the default prompt when the context is built.
func (s *Store) SetStyle(key Key, style string) {
	s.with(key, func(d *Dialog) { d.Style = style })
}

// Style returns the dialog's style key.
func (s *Store) Style(key Key) string {
	var style string
	s.with(key, func(d *Dialog) { style = d.Style })
	return style
}

// ToggleMemory flips the dialog's memory mode and returns the new state.
// History is preserved either way.
func (s *Store) ToggleMemory(key Key) bool {
	var enabled bool
	s.with(key, func(d *Dialog) {
		d.MemoryEnabled = !d.MemoryEnabled
		enabled = d.MemoryEnabled
	})
	return enabled
}

// MemoryEnabled reports whether the dialog records and uses history.
func (s *Store) MemoryEnabled(key Key) bool {
	var enabled bool
	s.with(key, func(d *Dialog) { enabled = d.MemoryEnabled })
	return enabled
}

// AppendTurn records one completed turn: the user message followed by the
// assistant reply. It does nothing when memory is disabled. The history is
// trimmed to MaxHistoryMessages afterwards, dropping the oldest entries.
func (s *Store) AppendTurn(key Key, userText, assistantText string) {
	s.with(key, func(d *Dialog) {
		if !d.MemoryEnabled {
			return
		}
		now := s.now()
		d.History = append(d.History,
			Message{Role: provider.MessageRoleUser, Content: userText, CreatedAt: now},
			Message{Role: provider.MessageRoleAssistant, Content: assistantText, CreatedAt: now},
		)
		if over := len(d.History) - s.cfg.MaxHistoryMessages; over > 0 {
			d.History = slices.Clone(d.History[over:])
		}
	})
}

// Reset empties the dialog's history. Style and memory mode are kept.
func (s *Store) Reset(key Key) {
	s.with(key, func(d *Dialog) { d.History = nil })
}

// Len returns the number of live dialogs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Keys returns the keys of all live dialogs, ordered by owner then
// sub-thread. It does not touch any dialog.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	keys := make([]Key, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	slices.SortFunc(keys, compareKeys)
	return keys
}

// Stats aggregates counts over all live dialogs. It does not touch any dialog.
func (s *Store) Stats() Stats {
	var st Stats
	for _, e := range s.snapshotEntries() {
		e.mu.Lock()
		if !e.removed {
			st.Dialogs++
			st.Messages += len(e.dialog.History)
			if e.dialog.MemoryEnabled {
				st.MemoryOn++
			} else {
				st.MemoryOff++
			}
		}
		e.mu.Unlock()
	}
	return st
}

// Snapshot returns copies of all live dialogs ordered like Keys.
// It does not touch any dialog.
func (s *Store) Snapshot() []Dialog {
	entries := s.snapshotEntries()
	out := make([]Dialog, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed {
			out = append(out, e.dialog.Clone())
		}
		e.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b Dialog) int { return compareKeys(a.Key, b.Key) })
	return out
}

// snapshotEntries copies the entry pointers so they can be locked
// without holding the map lock.
func (s *Store) snapshotEntries() []*entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// removeLocked deletes e from the map. The caller must hold e.mu.
func (s *Store) removeLocked(e *entry) {
	e.removed = true

	s.mu.Lock()
	if s.entries[e.dialog.Key] == e {
		delete(s.entries, e.dialog.Key)
	}
	s.mu.Unlock()
}
