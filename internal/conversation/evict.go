package conversation

import (
	"cmp"
	"slices"
	"time"
)

// SweepExpired deletes every dialog that has not been used for longer
// than ttl and returns the number removed. Deleted dialogs lose their
// style and memory mode; the next access recreates them with defaults.
// A non-positive ttl disables the sweep.
func (s *Store) SweepExpired(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}

	now := s.now()
	removed := 0
	for _, e := range s.snapshotEntries() {
		e.mu.Lock()
		if !e.removed && now.Sub(e.dialog.LastUsed) > ttl {
			s.removeLocked(e)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// candidate is an entry captured for capacity ordering.
type candidate struct {
	e        *entry
	lastUsed time.Time
	seq      uint64
}

// EnforceCapacity keeps at most limit dialogs for ownerID, deleting the
// least recently used ones. Ties on LastUsed are broken by creation order,
// earliest created first. It returns the number removed. A non-positive
// limit disables the policy.
func (s *Store) EnforceCapacity(ownerID int64, limit int) int {
	if limit <= 0 {
		return 0
	}

	var owned []*entry
	for _, e := range s.snapshotEntries() {
		// Keys never change after creation, so reading it unlocked is safe.
		if e.dialog.Key.OwnerID == ownerID {
			owned = append(owned, e)
		}
	}
	if len(owned) <= limit {
		return 0
	}
	return s.evictOldest(owned, limit)
}

// EnforceCapacityAll applies EnforceCapacity to every owner and returns
// the total number of dialogs removed.
func (s *Store) EnforceCapacityAll(limit int) int {
	if limit <= 0 {
		return 0
	}

	byOwner := make(map[int64][]*entry)
	for _, e := range s.snapshotEntries() {
		owner := e.dialog.Key.OwnerID
		byOwner[owner] = append(byOwner[owner], e)
	}

	removed := 0
	for _, owned := range byOwner {
		if len(owned) > limit {
			removed += s.evictOldest(owned, limit)
		}
	}
	return removed
}

// evictOldest deletes entries from owned until at most limit remain.
// Ordering is decided on a snapshot of LastUsed taken under each entry lock.
func (s *Store) evictOldest(owned []*entry, limit int) int {
	cands := make([]candidate, 0, len(owned))
	for _, e := range owned {
		e.mu.Lock()
		if !e.removed {
			cands = append(cands, candidate{e: e, lastUsed: e.dialog.LastUsed, seq: e.seq})
		}
		e.mu.Unlock()
	}

	excess := len(cands) - limit
	if excess <= 0 {
		return 0
	}

	slices.SortFunc(cands, func(a, b candidate) int {
		if c := a.lastUsed.Compare(b.lastUsed); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	removed := 0
	for _, c := range cands[:excess] {
		c.e.mu.Lock()
		if !c.e.removed {
			s.removeLocked(c.e)
			removed++
		}
		c.e.mu.Unlock()
	}
	return removed
}
