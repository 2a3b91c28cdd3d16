package http

import (
	"context"
	nethttp "net/http"
	"time"

	"go-indexing-qa-console/internal/connectors/appstore"
	"go-indexing-qa-console/internal/connectors/backenddb"
	"go-indexing-qa-console/internal/poller"
)

// backendStatusHandler serves the last polled backend health. It never calls the backend inline.
func backendStatusHandler(health *poller.HealthMonitor) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		if health == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, errDisabled)
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"data": health.Status()})
	}
}

func servicesStatusHandler(health *poller.HealthMonitor, store *appstore.Store, db *backenddb.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
		defer cancel()

		services := map[string]any{
			"backend":    backendStatus(health),
			"backend_db": backendDBStatus(ctx, db),
			"app_store":  map[string]any{"enabled": store != nil, "ok": store != nil},
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"generated_at": time.Now().UTC(),
			"services":     services,
		})
	}
}

func backendStatus(health *poller.HealthMonitor) map[string]any {
	if health == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "backend integration disabled"}
	}
	st := health.Status()
	out := map[string]any{"enabled": true, "ok": st.Online, "status": st}
	if st.LastError != "" {
		out["error"] = st.LastError
	}
	return out
}

func backendDBStatus(ctx context.Context, db *backenddb.Store) map[string]any {
	if db == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "backend database integration disabled"}
	}

	start := time.Now()
	stats, err := db.ServiceStats(ctx)
	recordDBQuery("backenddb", "ServiceStats", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true, "stats": stats}
}
