package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-indexing-qa-console/internal/backend"
	"go-indexing-qa-console/internal/connectors/appstore"
	"go-indexing-qa-console/internal/qa"
	"go-indexing-qa-console/internal/settings"
	"go-indexing-qa-console/internal/views"
)

const maxBodyBytes = 1 << 20

var errDisabled = map[string]any{
	"error": "backend integration disabled (set APP_BACKEND_URL)",
}

// actionRequest is the body shared by review and dead letter actions.
type actionRequest struct {
	User    string  `json:"user"`
	Reason  string  `json:"reason"`
	Content string  `json:"content"`
	Tags    tagList `json:"tags"`
}

// tagList accepts tags as a JSON array or as comma separated text.
type tagList []string

func (t *tagList) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*t = list
		return nil
	}
	var text string
	if err := json.Unmarshal(b, &text); err != nil {
		return err
	}
	*t = qa.SplitList(text)
	return nil
}

func (t tagList) String() string { return strings.Join(t, ",") }

func (a actionRequest) actor() string {
	if u := strings.TrimSpace(a.User); u != "" {
		return u
	}
	return "admin"
}

func dashboardHandler(d *views.Dashboard) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if d == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, errDisabled)
			return
		}
		if r.Method != nethttp.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		filters := dashboardFilters(r.URL.Query())
		view := d.Load(r.Context(), filters)
		meta := map[string]any{"active_filters": filters.Active()}
		if len(view.Errors) > 0 {
			meta["error"] = "one or more dashboard sections failed to load"
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"meta": meta, "data": view})
	}
}

// dashboardFilters builds the selection of one dashboard request. The page resends
// its whole selection; toggle and clear apply on top of it and the response echoes the result.
func dashboardFilters(q url.Values) *views.Filters {
	filters := views.NewFilters()
	if q.Get("clear") == "1" || q.Get("clear") == "true" {
		return filters
	}
	for _, dim := range views.Dimensions {
		if _, ok := q[string(dim)]; ok {
			filters.Set(dim, listParam(q, string(dim)))
		}
	}
	filters.SetSearch(q.Get("search"))
	filters.SetDateRange(q.Get("date_from"), q.Get("date_to"))
	if toggle := strings.TrimSpace(q.Get("toggle")); toggle != "" {
		if dim, value, ok := strings.Cut(toggle, ":"); ok {
			filters.Toggle(views.Dimension(dim), value)
		}
	}
	return filters
}

func analyticsHandler(a *views.Analytics) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if a == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, errDisabled)
			return
		}
		if r.Method != nethttp.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		q := r.URL.Query()
		days, _ := strconv.Atoi(q.Get("days"))
		view := a.Load(r.Context(), days, strings.TrimSpace(q.Get("company")), strings.TrimSpace(q.Get("connector")))
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": pageMeta(view.Error, map[string]any{"window": view.Window, "records": view.RecordCount}),
			"data": view,
		})
	}
}

func backendTestHandler(b *views.BackendTest) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if b == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, errDisabled)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		report := b.Run(ctx)
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"endpoint": report.Endpoint,
				"passed":   report.Passed,
				"failed":   report.Failed,
			},
			"data": report.Results,
		})
	}
}

// pageMeta builds the meta block of a page GET. Page loads never fail hard,
// a failed load is reported in meta.error next to empty data.
func pageMeta(loadErr string, extra map[string]any) map[string]any {
	meta := map[string]any{}
	for k, v := range extra {
		meta[k] = v
	}
	if loadErr != "" {
		meta["error"] = loadErr
	}
	return meta
}

// statusForError maps client, editor and view errors onto HTTP statuses.
func statusForError(err error) int {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, settings.ErrInvalidJSON),
		errors.Is(err, settings.ErrInvalidRange),
		errors.Is(err, settings.ErrUnknownThreshold),
		errors.Is(err, settings.ErrUnknownMode),
		errors.Is(err, settings.ErrUnknownField),
		errors.Is(err, views.ErrInvalidPayload):
		return nethttp.StatusBadRequest
	case errors.Is(err, views.ErrRecordNotFound),
		errors.Is(err, views.ErrUnknownCall):
		return nethttp.StatusNotFound
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status <= 599 {
			return apiErr.Status
		}
		return nethttp.StatusBadGateway
	default:
		return nethttp.StatusBadGateway
	}
}

func writeActionError(w nethttp.ResponseWriter, msg string, err error) {
	payload := map[string]any{
		"error":  msg,
		"detail": err.Error(),
	}
	var partial *settings.PartialSaveError
	if errors.As(err, &partial) {
		payload["applied"] = partial.Applied
		payload["failed"] = partial.Failed
	}
	if status := backend.StatusOf(err); status != 0 {
		payload["backend_status"] = status
	}
	writeJSON(w, statusForError(err), payload)
}

func writeMethodNotAllowed(w nethttp.ResponseWriter) {
	writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
}

func decodeBody(r *nethttp.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// journal records a console mutation when the app store is configured.
func journal(ctx context.Context, store *appstore.Store, logger *zap.Logger, action, target, actor string, err error) {
	if store == nil {
		return
	}
	entry := appstore.JournalEntry{Action: action, Target: target, Actor: actor, OK: err == nil}
	if err != nil {
		entry.Detail = err.Error()
	}
	start := time.Now()
	jerr := store.Record(ctx, entry)
	recordDBQuery("appstore", "Record", time.Since(start).Seconds(), jerr)
	if jerr != nil && logger != nil {
		logger.Warn("journal write failed", zap.String("action", action), zap.Error(jerr))
	}
}

// listParam reads repeated and comma separated values of the first present key.
func listParam(q url.Values, keys ...string) []string {
	for _, key := range keys {
		raw, ok := q[key]
		if !ok {
			continue
		}
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			out = append(out, qa.SplitList(v)...)
		}
		return out
	}
	return nil
}

func parseRecordFilters(q url.Values) qa.RecordFilters {
	f := qa.RecordFilters{
		Statuses:   listParam(q, "status"),
		Companies:  listParam(q, "company"),
		Connectors: listParam(q, "source_connector", "connector"),
		Tags:       listParam(q, "tags", "tag"),
		Authors:    listParam(q, "author"),
		Search:     strings.TrimSpace(q.Get("search")),
		DateFrom:   strings.TrimSpace(q.Get("date_from")),
		DateTo:     strings.TrimSpace(q.Get("date_to")),
	}
	if v, err := strconv.ParseFloat(q.Get("min_quality"), 64); err == nil {
		f.MinQuality = &v
	}
	if v, err := strconv.ParseFloat(q.Get("max_quality"), 64); err == nil {
		f.MaxQuality = &v
	}
	return f
}

func parsePage(r *nethttp.Request) int {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed > 0 {
			page = parsed
		}
	}
	return page
}

func parseLimit(r *nethttp.Request, defaultLimit int) int {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	return limit
}

func parseOffset(r *nethttp.Request) int {
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return offset
}

// subPath splits the escaped path below prefix into its segments and unescapes
// each one, so ids may carry encoded slashes or percent signs.
func subPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	parts := strings.Split(rest, "/")
	for i, p := range parts {
		if un, err := url.PathUnescape(p); err == nil {
			parts[i] = un
		}
	}
	return parts
}
