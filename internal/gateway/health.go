package gateway

import (
	"net/http"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Dialogs int    `json:"dialogs"`
}

// handleHealth returns an http.HandlerFunc for GET /health. The process is
// healthy as long as it serves requests.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}
		if g.store != nil {
			resp.Dialogs = g.store.Len()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
