package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/flemzord/chatmem/internal/conversation"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds int64              `json:"uptime_seconds"`
	StartedAt     time.Time          `json:"started_at"`
	Stats         conversation.Stats `json:"stats"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			UptimeSeconds: int64(time.Since(g.startedAt) / time.Second),
			StartedAt:     g.startedAt.UTC(),
		}
		if g.store != nil {
			resp.Stats = g.store.Stats()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
