package http

import (
	"errors"
	"io"
	nethttp "net/http"

	"go.uber.org/zap"

	"go-indexing-qa-console/internal/connectors/appstore"
	"go-indexing-qa-console/internal/views"
)

// apiTestRouter lists the API console calls and runs one per POST /api/v1/api-test/{call}.
func apiTestRouter(c *views.APIConsole, store *appstore.Store, logger *zap.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if c == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, errDisabled)
			return
		}

		parts := subPath(r.URL.EscapedPath(), "/api/v1/api-test")
		switch len(parts) {
		case 0:
			if r.Method != nethttp.MethodGet {
				writeMethodNotAllowed(w)
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": c.Calls()})
		case 1:
			if r.Method != nethttp.MethodPost {
				writeMethodNotAllowed(w)
				return
			}
			raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid request body"})
				return
			}
			res, err := c.Call(r.Context(), parts[0], raw)
			if err != nil {
				writeActionError(w, "api test call rejected", err)
				return
			}
			var callErr error
			if !res.OK {
				callErr = errors.New(res.Error)
			}
			journal(r.Context(), store, logger, "api_test."+parts[0], res.Path, "admin", callErr)
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": pageMeta(res.Error, map[string]any{"latency_ms": res.LatencyMS}),
				"data": res,
			})
		default:
			nethttp.NotFound(w, r)
		}
	}
}
