package server

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Pinger is the slice of *sql.DB the health endpoint needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ComponentStatus represents the health of an individual component.
type ComponentStatus string

const (
	ComponentStatusUp   ComponentStatus = "up"
	ComponentStatusDown ComponentStatus = "down"
)

// healthResp is the JSON body of GET /health.
type healthResp struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentStatus `json:"components"`
}

// healthHandler probes the credential store connection and the blob
// store. Any DOWN component turns the response into a 503 so load
// balancers stop routing here.
func (cfg Config) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		components := map[string]ComponentStatus{}

		if cfg.Pinger != nil {
			components["database"] = ComponentStatusUp
			if err := cfg.Pinger.PingContext(ctx); err != nil {
				components["database"] = ComponentStatusDown
			}
		}

		// Probing an improbable name exercises the real read path;
		// "not found" is the healthy answer.
		components["storage"] = ComponentStatusUp
		if _, err := cfg.Blobs.Get(ctx, "healthcheck-nonexistent"); err != nil && !errors.Is(err, ErrBlobNotFound) {
			components["storage"] = ComponentStatusDown
		}

		status := "ok"
		code := http.StatusOK
		for _, c := range components {
			if c == ComponentStatusDown {
				status = "degraded"
				code = http.StatusServiceUnavailable
				break
			}
		}

		writeJSON(w, code, healthResp{
			Status:     status,
			Timestamp:  time.Now().UTC(),
			Components: components,
		})
	}
}
