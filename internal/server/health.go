package server

import (
	"context"
	"net/http"

	"testhub/backend/internal/server/respond"
)

// Pinger reports readiness of a backing store (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// healthHandler serves /healthz for load balancers and orchestration probes.
// A nil pinger reports liveness only.
func healthHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			if err := p.PingContext(r.Context()); err != nil {
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
				})
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
