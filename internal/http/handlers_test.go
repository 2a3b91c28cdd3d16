package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go-indexing-qa-console/internal/backend"
	"go-indexing-qa-console/internal/connectors/appstore"
	"go-indexing-qa-console/internal/poller"
	"go-indexing-qa-console/internal/settings"
	"go-indexing-qa-console/internal/views"
)

// fakeBackend serves the subset of the QA backend API the handlers touch.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/quality-records":
			fmt.Fprint(w, `{"records":[{"id":"r1","content":"hello","tags":["a"],"status":"under_review","qualityScore":72.5}],"total":1}`)
		case r.Method == http.MethodPost && r.URL.Path == "/records/r1/approve":
			fmt.Fprint(w, `{"ok":true}`)
		case r.Method == http.MethodPost && (r.URL.Path == "/records/50%25/approve" || r.URL.Path == "/records/a/b/approve"):
			fmt.Fprint(w, `{"ok":true}`)
		case r.Method == http.MethodPut && r.URL.Path == "/records/r1/content":
			fmt.Fprint(w, `{"ok":true}`)
		case r.Method == http.MethodPost && r.URL.Path == "/records/broken/approve":
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"detail":"boom"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/dead-letters":
			fmt.Fprint(w, `{"dead_letters":[{"id":"d1","error_type":"timeout","retry_count":2,"resolved":false}],"total":1}`)
		case r.Method == http.MethodGet && r.URL.Path == "/dead-letters/stats":
			w.WriteHeader(http.StatusServiceUnavailable)
		case r.Method == http.MethodPost && r.URL.Path == "/dead-letters/missing/retry":
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"detail":"not found"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/issues":
			fmt.Fprint(w, `[{"id":"i1","type":"empty_tags","severity":"low","autoFixable":true},{"id":"i2","type":"spam","severity":"critical"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestStore(t *testing.T) *appstore.Store {
	t.Helper()
	store, err := appstore.NewSQLiteStore(filepath.Join(t.TempDir(), "console.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v (%s)", err, rr.Body.String())
	}
	return payload
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlers_BackendDisabled(t *testing.T) {
	cases := map[string]http.Handler{
		"/api/v1/dashboard":    dashboardHandler(nil),
		"/api/v1/records":      recordsRouter(50, nil, nil, nil),
		"/api/v1/analytics":    analyticsHandler(nil),
		"/api/v1/issues":       issuesRouter(nil, nil, nil),
		"/api/v1/dead-letters": deadLettersRouter(50, nil, nil, nil),
		"/api/v1/settings":     settingsRouter(nil, nil, nil),
		"/api/v1/backend-test": backendTestHandler(nil),
		"/api/v1/api-test":     apiTestRouter(nil, nil, nil),
		"/api/v1/views":        savedViewsRouter(50, nil),
		"/api/v1/journal":      journalHandler(50, nil),
	}
	for path, h := range cases {
		rr := serve(h, http.MethodGet, path, "")
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected status %d, got %d", path, http.StatusServiceUnavailable, rr.Code)
		}
		if decode(t, rr)["error"] == nil {
			t.Fatalf("%s: expected error field in response", path)
		}
	}
}

func TestRecordsRouter_ListReturnsMeta(t *testing.T) {
	client := backend.NewClient(fakeBackend(t).URL, 5*time.Second)
	h := recordsRouter(50, views.NewRecords(client, nil, 50), nil, nil)

	rr := serve(h, http.MethodGet, "/api/v1/records?page=1&limit=20&status=under_review", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	payload := decode(t, rr)
	meta := payload["meta"].(map[string]any)
	if meta["total"].(float64) != 1 || meta["limit"].(float64) != 20 {
		t.Fatalf("unexpected meta: %v", meta)
	}
	if _, ok := meta["error"]; ok {
		t.Fatalf("unexpected meta.error: %v", meta["error"])
	}
	if len(payload["data"].([]any)) != 1 {
		t.Fatalf("expected one record, got %v", payload["data"])
	}
}

func TestRecordsRouter_LoadFailureStillReturnsOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	client := backend.NewClient(srv.URL, 5*time.Second)
	h := recordsRouter(50, views.NewRecords(client, nil, 50), nil, nil)

	rr := serve(h, http.MethodGet, "/api/v1/records", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	payload := decode(t, rr)
	if payload["meta"].(map[string]any)["error"] == nil {
		t.Fatalf("expected meta.error on failed load")
	}
	if data, ok := payload["data"].([]any); !ok || len(data) != 0 {
		t.Fatalf("expected empty data, got %v", payload["data"])
	}
}

func TestRecordsRouter_ApproveIsJournaled(t *testing.T) {
	client := backend.NewClient(fakeBackend(t).URL, 5*time.Second)
	store := newTestStore(t)
	h := recordsRouter(50, views.NewRecords(client, nil, 50), store, nil)

	rr := serve(h, http.MethodPost, "/api/v1/records/r1/approve", `{"user":"jane","reason":"looks good"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	rr = serve(h, http.MethodPost, "/api/v1/records/broken/approve", `{}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	if decode(t, rr)["backend_status"].(float64) != 500 {
		t.Fatalf("expected backend_status 500")
	}

	entries, err := store.Journal(context.Background(), "record.approve", 10, 0)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 journal entries, got %d", len(entries))
	}
	if entries[0].Target != "broken" || entries[0].OK || entries[0].Actor != "admin" {
		t.Fatalf("unexpected newest entry: %+v", entries[0])
	}
	if entries[1].Target != "r1" || !entries[1].OK || entries[1].Actor != "jane" {
		t.Fatalf("unexpected oldest entry: %+v", entries[1])
	}
}

func TestRecordsRouter_RoutingErrors(t *testing.T) {
	client := backend.NewClient(fakeBackend(t).URL, 5*time.Second)
	h := recordsRouter(50, views.NewRecords(client, nil, 50), nil, nil)

	if rr := serve(h, http.MethodGet, "/api/v1/records/r1/approve", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
	if rr := serve(h, http.MethodPost, "/api/v1/records/r1/unknown", "{}"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
	if rr := serve(h, http.MethodGet, "/api/v1/records/a/b/c", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
	if rr := serve(h, http.MethodGet, "/api/v1/records/nope/llm", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
	if rr := serve(h, http.MethodGet, "/api/v1/records/r1/content", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
	if rr := serve(h, http.MethodPut, "/api/v1/records/r1/approve", "{}"); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestRecordsRouter_ContentAcceptsPostAndPut(t *testing.T) {
	client := backend.NewClient(fakeBackend(t).URL, 5*time.Second)
	h := recordsRouter(50, views.NewRecords(client, nil, 50), nil, nil)

	for _, method := range []string{http.MethodPost, http.MethodPut} {
		rr := serve(h, method, "/api/v1/records/r1/content", `{"content":"fixed","tags":"a,b"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s content: expected status %d, got %d (%s)", method, http.StatusOK, rr.Code, rr.Body.String())
		}
	}
}

func TestRecordsRouter_IDsAreUnescapedOnce(t *testing.T) {
	client := backend.NewClient(fakeBackend(t).URL, 5*time.Second)
	h := recordsRouter(50, views.NewRecords(client, nil, 50), nil, nil)

	for _, target := range []string{"/api/v1/records/50%2525/approve", "/api/v1/records/a%2Fb/approve"} {
		rr := serve(h, http.MethodPost, target, "{}")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d (%s)", target, http.StatusOK, rr.Code, rr.Body.String())
		}
	}
}

func TestSubPath(t *testing.T) {
	cases := map[string][]string{
		"/api/v1/records":                 nil,
		"/api/v1/records/":                nil,
		"/api/v1/records/r1/approve":      {"r1", "approve"},
		"/api/v1/records/50%2525/approve": {"50%25", "approve"},
		"/api/v1/records/a%2Fb":           {"a/b"},
	}
	for in, want := range cases {
		got := subPath(in, "/api/v1/records")
		if fmt.Sprint(got) != fmt.Sprint(want) || len(got) != len(want) {
			t.Fatalf("subPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeadLettersRouter_DerivedStatsAndStatusPassthrough(t *testing.T) {
	client := backend.NewClient(fakeBackend(t).URL, 5*time.Second)
	h := deadLettersRouter(50, views.NewDeadLetters(client, nil, 0), nil, nil)

	rr := serve(h, http.MethodGet, "/api/v1/dead-letters?resolved=false", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	meta := decode(t, rr)["meta"].(map[string]any)
	if meta["stats_derived"] != true {
		t.Fatalf("expected derived stats when the stats call fails, got %v", meta)
	}

	rr = serve(h, http.MethodPost, "/api/v1/dead-letters/missing/retry", "{}")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}

	if rr := serve(h, http.MethodGet, "/api/v1/dead-letters/d1/retry", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestIssuesRouter_ListsBySeverity(t *testing.T) {
	client := backend.NewClient(fakeBackend(t).URL, 5*time.Second)
	h := issuesRouter(views.NewIssues(client, nil, 2), nil, nil)

	rr := serve(h, http.MethodGet, "/api/v1/issues", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	payload := decode(t, rr)
	if payload["meta"].(map[string]any)["auto_fixable"].(float64) != 1 {
		t.Fatalf("unexpected meta: %v", payload["meta"])
	}
	issues := payload["data"].(map[string]any)["issues"].([]any)
	if first := issues[0].(map[string]any); first["severity"] != "critical" {
		t.Fatalf("expected critical issue first, got %v", first)
	}
}

func TestSettingsRouter_SimulateRejectsInvalidJSON(t *testing.T) {
	client := backend.NewClient("", time.Second)
	h := settingsRouter(views.NewSettings(client, nil), nil, nil)

	rr := serve(h, http.MethodPost, "/api/v1/settings/llm/simulate", `{"sample":"{not json"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if detail, _ := decode(t, rr)["detail"].(string); !strings.HasPrefix(detail, "Invalid JSON") {
		t.Fatalf("expected Invalid JSON detail, got %q", detail)
	}

	if rr := serve(h, http.MethodDelete, "/api/v1/settings/llm", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestSavedViewsRouter_Lifecycle(t *testing.T) {
	h := savedViewsRouter(50, newTestStore(t))

	rr := serve(h, http.MethodPost, "/api/v1/views", `{"name":"flagged acme","page":"records","filters":{"statuses":["flagged"]}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	id := decode(t, rr)["data"].(map[string]any)["id"].(float64)

	rr = serve(h, http.MethodGet, "/api/v1/views?page=records", "")
	if got := decode(t, rr)["meta"].(map[string]any)["count"].(float64); got != 1 {
		t.Fatalf("expected one saved view, got %v", got)
	}

	if rr := serve(h, http.MethodPost, "/api/v1/views", `{"name":"x","page":"transfers"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if rr := serve(h, http.MethodDelete, fmt.Sprintf("/api/v1/views/%d", int64(id)), ""); rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr := serve(h, http.MethodDelete, fmt.Sprintf("/api/v1/views/%d", int64(id)), ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
	if rr := serve(h, http.MethodDelete, "/api/v1/views/abc", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestReadyHandler_NotReadyUntilBackendAnswers(t *testing.T) {
	health := poller.NewHealthMonitor(backend.NewClient("", time.Second), time.Minute, time.Second, nil)
	rr := serve(readyHandler(health), http.MethodGet, "/ready", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}

	rr = serve(backendStatusHandler(health), http.MethodGet, "/api/v1/status/backend", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestConsoleHandler(t *testing.T) {
	rr := serve(http.HandlerFunc(consoleHandler), http.MethodGet, "/", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Indexing QA Console") {
		t.Fatalf("expected console page, got %d", rr.Code)
	}
	if rr := serve(http.HandlerFunc(consoleHandler), http.MethodGet, "/nope", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", settings.ErrInvalidRange), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", views.ErrRecordNotFound), http.StatusNotFound},
		{fmt.Errorf("wrap: %w", views.ErrInvalidPayload), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", views.ErrUnknownCall), http.StatusNotFound},
		{&backend.APIError{Status: http.StatusConflict}, http.StatusConflict},
		{&backend.APIError{Status: 302}, http.StatusBadGateway},
		{errors.New("network down"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		if got := statusForError(tc.err); got != tc.want {
			t.Fatalf("statusForError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestTagListAcceptsArrayAndText(t *testing.T) {
	var a, b actionRequest
	if err := json.Unmarshal([]byte(`{"tags":["x","y"]}`), &a); err != nil {
		t.Fatalf("array: %v", err)
	}
	if err := json.Unmarshal([]byte(`{"tags":" x, y ,"}`), &b); err != nil {
		t.Fatalf("text: %v", err)
	}
	if a.Tags.String() != "x,y" || b.Tags.String() != "x,y" {
		t.Fatalf("unexpected tags %q and %q", a.Tags.String(), b.Tags.String())
	}
}

func TestNormalizeMetricPath(t *testing.T) {
	cases := map[string]string{
		"/":                               "/",
		"/api/v1/records/abc-123/approve": "/api/v1/records/{id}/approve",
		"/api/v1/records/filter-options":  "/api/v1/records/filter-options",
		"/api/v1/dead-letters/d1":         "/api/v1/dead-letters/{id}",
		"/api/v1/issues/auto-fix":         "/api/v1/issues/auto-fix",
		"/thresholds/min_content_length":  "/thresholds/{name}",
		"/dead-letters/stats":             "/dead-letters/stats",
		"/api/v1/settings/llm/simulate":   "/api/v1/settings/llm/simulate",
	}
	for in, want := range cases {
		if got := normalizeMetricPath(in); got != want {
			t.Fatalf("normalizeMetricPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDashboardHandler_FiltersAreScopedToRequest(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []url.Values
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/quality-records" {
			mu.Lock()
			queries = append(queries, r.URL.Query())
			mu.Unlock()
			fmt.Fprint(w, `{"records":[],"total":0}`)
			return
		}
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()
	h := dashboardHandler(views.NewDashboard(backend.NewClient(srv.URL, 5*time.Second), nil, 50))

	rr := serve(h, http.MethodGet, "/api/v1/dashboard?company=Acme&date_from=2024-01-01&toggle=status:flagged", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	payload := decode(t, rr)
	if got := payload["meta"].(map[string]any)["active_filters"].(float64); got != 3 {
		t.Fatalf("expected 3 active filters, got %v", got)
	}
	echoed := payload["data"].(map[string]any)["filters"].(map[string]any)
	if fmt.Sprint(echoed["status"]) != "[flagged]" {
		t.Fatalf("expected toggled status to be echoed, got %v", echoed)
	}

	rr = serve(h, http.MethodGet, "/api/v1/dashboard", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(queries) != 2 {
		t.Fatalf("expected 2 record queries, got %d", len(queries))
	}
	first, second := queries[0], queries[1]
	if first.Get("company") != "Acme" || first.Get("status") != "flagged" || first.Get("date_from") != "2024-01-01" {
		t.Fatalf("first request lost its filters: %v", first)
	}
	if second.Get("company") != "" || second.Get("status") != "" || second.Get("date_from") != "" {
		t.Fatalf("second request inherited filters: %v", second)
	}
}

// settingsBackend serves thresholds and LLM settings and records write calls.
func settingsBackend(t *testing.T, writes *[]string) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/thresholds":
			fmt.Fprint(w, `{"thresholds":[{"name":"spam_score","current_value":0.5,"default_value":0.5,"min_value":0,"max_value":1}]}`)
		case r.Method == http.MethodGet && r.URL.Path == "/settings/llm-mode":
			fmt.Fprint(w, `{"settings":{"mode":"binary"}}`)
		case r.Method == http.MethodPut && r.URL.Path == "/thresholds/spam_score",
			r.Method == http.MethodPost && r.URL.Path == "/settings/llm-mode/simulate":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			*writes = append(*writes, fmt.Sprintf("%s %s %v", r.Method, r.URL.Path, body))
			mu.Unlock()
			if strings.HasSuffix(r.URL.Path, "/simulate") {
				fmt.Fprint(w, `{"decision":{"should_invoke_llm":false,"reason":"remote says skip","mode_used":"binary"}}`)
				return
			}
			fmt.Fprint(w, `{"success":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSettingsRouter_SavesSingleThreshold(t *testing.T) {
	var writes []string
	client := backend.NewClient(settingsBackend(t, &writes).URL, 5*time.Second)
	store := newTestStore(t)
	h := settingsRouter(views.NewSettings(client, nil), store, nil)

	rr := serve(h, http.MethodPut, "/api/v1/settings/thresholds/spam_score", `{"value":3,"user":"jane","reason":"tighten"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	payload := decode(t, rr)
	if data := payload["data"].(map[string]any); data["value"].(float64) != 1 || data["name"] != "spam_score" {
		t.Fatalf("expected clamped value 1, got %v", data)
	}
	if payload["meta"].(map[string]any)["saved"] != true {
		t.Fatalf("expected saved meta, got %v", payload["meta"])
	}
	if len(writes) != 1 || !strings.HasPrefix(writes[0], "PUT /thresholds/spam_score") || !strings.Contains(writes[0], "changed_by:jane") {
		t.Fatalf("expected one single-threshold PUT, got %v", writes)
	}

	entries, err := store.Journal(context.Background(), "settings.threshold", 10, 0)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if len(entries) != 1 || entries[0].Target != "spam_score" || entries[0].Actor != "jane" {
		t.Fatalf("unexpected journal entries: %+v", entries)
	}

	if rr := serve(h, http.MethodPut, "/api/v1/settings/thresholds/missing", `{"value":1}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for unknown threshold, got %d", http.StatusBadRequest, rr.Code)
	}
	if rr := serve(h, http.MethodPut, "/api/v1/settings/thresholds/spam_score", `{}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d without value, got %d", http.StatusBadRequest, rr.Code)
	}
	if rr := serve(h, http.MethodGet, "/api/v1/settings/thresholds/spam_score", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestSettingsRouter_RemoteSimulateUsesBackend(t *testing.T) {
	var writes []string
	client := backend.NewClient(settingsBackend(t, &writes).URL, 5*time.Second)
	h := settingsRouter(views.NewSettings(client, nil), nil, nil)

	rr := serve(h, http.MethodPost, "/api/v1/settings/llm/simulate", `{"remote":true,"sample":{"quality_checks":[]}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if reason := decode(t, rr)["data"].(map[string]any)["reason"]; reason != "remote says skip" {
		t.Fatalf("expected backend decision, got %v", reason)
	}
	if len(writes) != 1 || !strings.HasPrefix(writes[0], "POST /settings/llm-mode/simulate") {
		t.Fatalf("expected one simulate call, got %v", writes)
	}

	rr = serve(h, http.MethodPost, "/api/v1/settings/llm/simulate", `{"sample":{"quality_checks":[]}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if len(writes) != 1 {
		t.Fatalf("local simulation reached the backend: %v", writes)
	}
}

func TestAPITestRouter(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies = map[string]map[string]any{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/llm/analyze" {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"detail":"model offline"}`)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		bodies[r.Method+" "+r.URL.Path] = body
		mu.Unlock()
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()
	store := newTestStore(t)
	h := apiTestRouter(views.NewAPIConsole(backend.NewClient(srv.URL, 5*time.Second), nil), store, nil)

	rr := serve(h, http.MethodGet, "/api/v1/api-test", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if calls := decode(t, rr)["data"].([]any); len(calls) != 6 {
		t.Fatalf("expected 6 calls, got %v", calls)
	}

	rr = serve(h, http.MethodPost, "/api/v1/api-test/ingest", `{"content":"hello"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	res := decode(t, rr)["data"].(map[string]any)
	if res["ok"] != true || res["path"] != "/ingest" {
		t.Fatalf("unexpected ingest result: %v", res)
	}
	mu.Lock()
	ingest := bodies["POST /ingest"]
	mu.Unlock()
	if id, _ := ingest["record_id"].(string); !strings.HasPrefix(id, "api-test-") || ingest["content"] != "hello" {
		t.Fatalf("unexpected ingest body: %v", ingest)
	}

	rr = serve(h, http.MethodPost, "/api/v1/api-test/llm", `{"content":"x"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	payload := decode(t, rr)
	res = payload["data"].(map[string]any)
	if res["ok"] != false || res["status"].(float64) != 500 {
		t.Fatalf("expected failed llm result, got %v", res)
	}
	if payload["meta"].(map[string]any)["error"] == nil {
		t.Fatalf("expected meta.error for failed call")
	}

	if rr := serve(h, http.MethodPost, "/api/v1/api-test/feedback", `{"rating":5}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d without record_id, got %d", http.StatusBadRequest, rr.Code)
	}
	if rr := serve(h, http.MethodPost, "/api/v1/api-test/rules", `{not json`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for bad json, got %d", http.StatusBadRequest, rr.Code)
	}
	if rr := serve(h, http.MethodPost, "/api/v1/api-test/nope", `{}`); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d for unknown call, got %d", http.StatusNotFound, rr.Code)
	}
	if rr := serve(h, http.MethodGet, "/api/v1/api-test/ingest", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}

	entries, err := store.Journal(context.Background(), "", 10, 0)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if len(entries) != 2 || entries[0].Action != "api_test.llm" || entries[0].OK || entries[1].Action != "api_test.ingest" {
		t.Fatalf("unexpected journal entries: %+v", entries)
	}
}
