package http

import (
	"errors"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"go-indexing-qa-console/internal/connectors/appstore"
	"go-indexing-qa-console/internal/qa"
)

var errStoreDisabled = map[string]any{
	"error": "app store disabled (set APP_STORE_SQLITE_PATH)",
}

func savedViewsRouter(defaultLimit int, store *appstore.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, errStoreDisabled)
			return
		}

		parts := subPath(r.URL.EscapedPath(), "/api/v1/views")
		switch {
		case len(parts) == 0 && r.Method == nethttp.MethodGet:
			start := time.Now()
			list, err := store.ListViews(r.Context(), strings.TrimSpace(r.URL.Query().Get("page")), parseLimit(r, defaultLimit))
			recordDBQuery("appstore", "ListViews", time.Since(start).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to list saved views", "detail": err.Error()})
				return
			}
			if list == nil {
				list = []appstore.SavedView{}
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{"meta": map[string]any{"count": len(list)}, "data": list})
		case len(parts) == 0 && r.Method == nethttp.MethodPost:
			var req struct {
				Name    string           `json:"name"`
				Page    string           `json:"page"`
				Filters qa.RecordFilters `json:"filters"`
			}
			if err := decodeBody(r, &req); err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			start := time.Now()
			id, err := store.SaveView(r.Context(), req.Name, req.Page, req.Filters)
			recordDBQuery("appstore", "SaveView", time.Since(start).Seconds(), err)
			if err != nil {
				status := nethttp.StatusInternalServerError
				if errors.Is(err, appstore.ErrInvalidView) {
					status = nethttp.StatusBadRequest
				}
				writeJSON(w, status, map[string]any{"error": "failed to save view", "detail": err.Error()})
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": map[string]any{"id": id, "name": strings.TrimSpace(req.Name)}})
		case len(parts) == 1 && r.Method == nethttp.MethodDelete:
			id, err := strconv.ParseInt(parts[0], 10, 64)
			if err != nil || id <= 0 {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid view id"})
				return
			}
			start := time.Now()
			n, err := store.DeleteView(r.Context(), id)
			recordDBQuery("appstore", "DeleteView", time.Since(start).Seconds(), err)
			if err != nil {
				writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to delete view", "detail": err.Error()})
				return
			}
			if n == 0 {
				writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "view not found"})
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
		case len(parts) <= 1:
			writeMethodNotAllowed(w)
		default:
			nethttp.NotFound(w, r)
		}
	}
}

func journalHandler(defaultLimit int, store *appstore.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, errStoreDisabled)
			return
		}
		if r.Method != nethttp.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		limit := parseLimit(r, defaultLimit)
		offset := parseOffset(r)
		start := time.Now()
		entries, err := store.Journal(r.Context(), strings.TrimSpace(r.URL.Query().Get("action")), limit, offset)
		recordDBQuery("appstore", "Journal", time.Since(start).Seconds(), err)
		if err != nil {
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to read journal", "detail": err.Error()})
			return
		}
		if entries == nil {
			entries = []appstore.JournalEntry{}
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{"limit": limit, "offset": offset, "count": len(entries)},
			"data": entries,
		})
	}
}
