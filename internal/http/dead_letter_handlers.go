package http

import (
	nethttp "net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"go-indexing-qa-console/internal/connectors/appstore"
	"go-indexing-qa-console/internal/qa"
	"go-indexing-qa-console/internal/views"
)

func deadLettersRouter(defaultLimit int, dl *views.DeadLetters, store *appstore.Store, logger *zap.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if dl == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, errDisabled)
			return
		}

		parts := subPath(r.URL.EscapedPath(), "/api/v1/dead-letters")
		switch {
		case len(parts) == 0:
			if r.Method != nethttp.MethodGet {
				writeMethodNotAllowed(w)
				return
			}
			state := dl.Load(r.Context(), parseDeadLetterQuery(r, defaultLimit))
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": pageMeta(state.Error, map[string]any{
					"page":          state.Query.Page,
					"limit":         state.Query.Limit,
					"total":         state.Total,
					"stats_derived": state.StatsDerived,
				}),
				"data": state,
			})
		case len(parts) == 1 && parts[0] == "filter-options":
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": dl.LoadOptions(r.Context())})
		case len(parts) == 1:
			if r.Method != nethttp.MethodDelete {
				writeMethodNotAllowed(w)
				return
			}
			deadLetterAction(w, r, dl, store, logger, parts[0], "delete")
		case len(parts) == 2 && (parts[1] == "retry" || parts[1] == "resolve"):
			if r.Method != nethttp.MethodPost {
				writeMethodNotAllowed(w)
				return
			}
			deadLetterAction(w, r, dl, store, logger, parts[0], parts[1])
		default:
			nethttp.NotFound(w, r)
		}
	}
}

func deadLetterAction(w nethttp.ResponseWriter, r *nethttp.Request, dl *views.DeadLetters, store *appstore.Store, logger *zap.Logger, id, action string) {
	var req actionRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	var err error
	switch action {
	case "retry":
		err = dl.Retry(r.Context(), id)
	case "resolve":
		err = dl.Resolve(r.Context(), id)
	case "delete":
		err = dl.Delete(r.Context(), id)
	}
	journal(r.Context(), store, logger, "dead_letter."+action, id, req.actor(), err)
	if err != nil {
		writeActionError(w, "failed to "+action+" dead letter", err)
		return
	}
	state := dl.State()
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"meta": pageMeta(state.Error, map[string]any{"total": state.Total}),
		"data": state.LastAction,
	})
}

func parseDeadLetterQuery(r *nethttp.Request, defaultLimit int) qa.DeadLetterQuery {
	q := r.URL.Query()
	out := qa.DeadLetterQuery{
		ErrorType:       strings.TrimSpace(q.Get("error_type")),
		SourceConnector: strings.TrimSpace(q.Get("source_connector")),
		Search:          strings.TrimSpace(q.Get("search")),
		Page:            parsePage(r),
		Limit:           parseLimit(r, defaultLimit),
	}
	if v, err := strconv.ParseBool(q.Get("resolved")); err == nil {
		out.Resolved = &v
	}
	if v, err := strconv.Atoi(q.Get("hours_back")); err == nil && v > 0 {
		out.HoursBack = v
	}
	return out
}

func issuesRouter(ic *views.Issues, store *appstore.Store, logger *zap.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if ic == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, errDisabled)
			return
		}

		parts := subPath(r.URL.EscapedPath(), "/api/v1/issues")
		switch {
		case len(parts) == 0:
			if r.Method != nethttp.MethodGet {
				writeMethodNotAllowed(w)
				return
			}
			state := ic.Load(r.Context())
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": pageMeta(state.Error, map[string]any{
					"count":        len(state.Issues),
					"auto_fixable": state.AutoFixable,
				}),
				"data": state,
			})
		case len(parts) == 1 && parts[0] == "auto-fix":
			if r.Method != nethttp.MethodPost {
				writeMethodNotAllowed(w)
				return
			}
			var req struct {
				IDs  []string `json:"ids"`
				User string   `json:"user"`
			}
			if err := decodeBody(r, &req); err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			res := ic.AutoFixAll(r.Context(), req.IDs)
			actor := actionRequest{User: req.User}.actor()
			for _, id := range res.Fixed {
				journal(r.Context(), store, logger, "issue.auto_fix", id, actor, nil)
			}
			status := nethttp.StatusOK
			if res.Failed {
				status = nethttp.StatusBadGateway
			}
			writeJSON(w, status, map[string]any{"data": res})
		case len(parts) == 2 && parts[1] == "auto-fix":
			if r.Method != nethttp.MethodPost {
				writeMethodNotAllowed(w)
				return
			}
			var req actionRequest
			if err := decodeBody(r, &req); err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			err := ic.AutoFix(r.Context(), parts[0])
			journal(r.Context(), store, logger, "issue.auto_fix", parts[0], req.actor(), err)
			if err != nil {
				writeActionError(w, "failed to auto-fix issue", err)
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": map[string]any{"id": parts[0], "fixed": true}})
		default:
			nethttp.NotFound(w, r)
		}
	}
}
