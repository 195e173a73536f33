package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/flemzord/chatmem/internal/conversation"
)

// dialogJSON is a serializable dialog summary. Message contents are
// never exposed.
type dialogJSON struct {
	Key           string `json:"key"`
	OwnerID       int64  `json:"owner_id"`
	SubID         *int64 `json:"sub_id,omitempty"`
	Style         string `json:"style"`
	MemoryEnabled bool   `json:"memory_enabled"`
	HistoryLen    int    `json:"history_len"`
	CreatedAt     string `json:"created_at"`
	LastUsed      string `json:"last_used"`
}

func toDialogJSON(d conversation.Dialog) dialogJSON {
	out := dialogJSON{
		Key:           d.Key.String(),
		OwnerID:       d.Key.OwnerID,
		Style:         d.Style,
		MemoryEnabled: d.MemoryEnabled,
		HistoryLen:    len(d.History),
		CreatedAt:     d.CreatedAt.UTC().Format(time.RFC3339),
		LastUsed:      d.LastUsed.UTC().Format(time.RFC3339),
	}
	if d.Key.HasSub {
		sub := d.Key.SubID
		out.SubID = &sub
	}
	return out
}

// handleListDialogs returns a summary of every live dialog.
func (g *Gateway) handleListDialogs() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		dialogs := []dialogJSON{}
		if g.store != nil {
			for _, d := range g.store.Snapshot() {
				dialogs = append(dialogs, toDialogJSON(d))
			}
		}
		writeJSON(w, http.StatusOK, dialogs)
	}
}

// handleResetDialog clears the history of the dialog named by the owner
// and optional sub query parameters. Resetting an unknown dialog creates
// an empty one, like the /reset command.
func (g *Gateway) handleResetDialog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.store == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store not available"})
			return
		}

		key, err := keyFromQuery(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		g.store.Reset(key)
		g.logger.Info("gateway: dialog reset", "key", key)
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "key": key.String()})
	}
}

// handleSweep runs the TTL and capacity policies immediately.
func (g *Gateway) handleSweep() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.maintenance == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "maintenance not available"})
			return
		}

		expired, overCapacity := g.maintenance.RunNow()
		writeJSON(w, http.StatusOK, map[string]int{
			"expired":       expired,
			"over_capacity": overCapacity,
		})
	}
}

type queryError string

func (e queryError) Error() string { return string(e) }

// keyFromQuery parses ?owner=<id>[&sub=<id>].
func keyFromQuery(r *http.Request) (conversation.Key, error) {
	q := r.URL.Query()
	rawOwner := q.Get("owner")
	if rawOwner == "" {
		return conversation.Key{}, queryError("owner is required")
	}
	owner, err := strconv.ParseInt(rawOwner, 10, 64)
	if err != nil {
		return conversation.Key{}, queryError("owner must be an integer")
	}

	key := conversation.NewKey(owner)
	if rawSub := q.Get("sub"); rawSub != "" {
		sub, err := strconv.ParseInt(rawSub, 10, 64)
		if err != nil {
			return conversation.Key{}, queryError("sub must be an integer")
		}
		key = key.WithSub(sub)
	}
	return key, nil
}
