package httpx

import (
	"net/http"
	"time"
)

type healthPayload struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

// healthHandler reports readiness. It never touches sessions or the backend.
func healthHandler(now func() time.Time) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			return
		}
		WriteJSON(w, http.StatusOK, healthPayload{
			Status:    "ok",
			Timestamp: now().UTC().Format(time.RFC3339),
			Service:   ServiceName,
		})
	}
}
