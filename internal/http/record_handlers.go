package http

import (
	nethttp "net/http"

	"go.uber.org/zap"

	"go-indexing-qa-console/internal/connectors/appstore"
	"go-indexing-qa-console/internal/qa"
	"go-indexing-qa-console/internal/views"
)

func recordsRouter(defaultLimit int, rc *views.Records, store *appstore.Store, logger *zap.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if rc == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, errDisabled)
			return
		}

		parts := subPath(r.URL.EscapedPath(), "/api/v1/records")
		switch {
		case len(parts) == 0:
			if r.Method != nethttp.MethodGet {
				writeMethodNotAllowed(w)
				return
			}
			listRecords(w, r, defaultLimit, rc)
		case len(parts) == 1 && parts[0] == "filter-options":
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": rc.LoadOptions(r.Context())})
		case len(parts) == 1 && parts[0] == "tag-suggestions":
			if r.Method != nethttp.MethodPost {
				writeMethodNotAllowed(w)
				return
			}
			var req actionRequest
			if err := decodeBody(r, &req); err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			tags, err := rc.SuggestTags(r.Context(), req.Content, req.Tags.String())
			if err != nil {
				writeActionError(w, "failed to fetch tag suggestions", err)
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": tags})
		case len(parts) == 1:
			record, ok, err := rc.Find(r.Context(), parts[0])
			if err != nil {
				writeActionError(w, "failed to fetch record", err)
				return
			}
			if !ok {
				writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "record not found"})
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": record})
		case len(parts) == 2:
			recordAction(w, r, rc, store, logger, parts[0], parts[1])
		default:
			nethttp.NotFound(w, r)
		}
	}
}

func listRecords(w nethttp.ResponseWriter, r *nethttp.Request, defaultLimit int, rc *views.Records) {
	p := qa.Pagination{Page: parsePage(r), Limit: parseLimit(r, defaultLimit)}
	state := rc.Load(r.Context(), parseRecordFilters(r.URL.Query()), p)
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"meta": pageMeta(state.Error, map[string]any{
			"page":  state.Pagination.Page,
			"limit": state.Pagination.Limit,
			"total": state.Total,
			"count": len(state.Records),
		}),
		"data": state.Records,
	})
}

func recordAction(w nethttp.ResponseWriter, r *nethttp.Request, rc *views.Records, store *appstore.Store, logger *zap.Logger, id, action string) {
	switch action {
	case "audit-trail":
		entries, err := rc.AuditTrail(r.Context(), id)
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": pageMeta(errText(err), map[string]any{"count": len(entries)}),
			"data": entries,
		})
		return
	case "llm":
		card, err := rc.LLMCardFor(r.Context(), id)
		if err != nil {
			writeActionError(w, "failed to load llm evaluation", err)
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"data": card})
		return
	}

	allowed := r.Method == nethttp.MethodPost || (action == "content" && r.Method == nethttp.MethodPut)
	if !allowed {
		if action == "approve" || action == "flag" || action == "reprocess" || action == "content" {
			writeMethodNotAllowed(w)
			return
		}
		nethttp.NotFound(w, r)
		return
	}

	var req actionRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	user := req.actor()

	var err error
	switch action {
	case "approve":
		err = rc.Approve(r.Context(), id, user, req.Reason)
	case "flag":
		err = rc.Flag(r.Context(), id, user, req.Reason)
	case "reprocess":
		err = rc.Reprocess(r.Context(), id, req.Content, req.Tags.String(), user, req.Reason)
	case "content":
		err = rc.EditContent(r.Context(), id, req.Content, req.Tags.String(), user, req.Reason)
	default:
		nethttp.NotFound(w, r)
		return
	}
	journal(r.Context(), store, logger, "record."+action, id, user, err)
	if err != nil {
		writeActionError(w, "failed to "+action+" record", err)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{"data": rc.State().LastAction})
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
