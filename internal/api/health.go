package api

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kvistgaard/agentlab/internal/log"
)

// healthHandler is the liveness probe: 200 whenever the process runs.
func healthHandler(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}

// readinessHandler is the readiness probe. With a pool configured it
// pings Postgres; without one, readiness equals liveness.
func readinessHandler(pool *pgxpool.Pool, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			if err := pool.Ping(r.Context()); err != nil {
				logger.Error("readiness check failed", "error", err)
				writeError(w, http.StatusServiceUnavailable, "not_ready", "database not ready", logger)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, logger)
	}
}
