package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/reelgen-api/internal/api/shared"
	"github.com/phrazzld/reelgen-api/internal/platform/logger"
)

// Pinger reports whether a dependency is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthTimeout bounds the database ping of a health check.
const HealthTimeout = 2 * time.Second

// HealthHandler returns the GET /health handler. A nil db only reports that
// the process is up.
func HealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), HealthTimeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			logger.FromContextOrDefault(r.Context(), slog.Default()).
				Warn("health check failed", slog.String("error", err.Error()))
			shared.RespondWithJSON(w, r, http.StatusServiceUnavailable, HealthResponse{
				Status:   "degraded",
				Database: "unreachable",
			})
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok", Database: "ok"})
	}
}
