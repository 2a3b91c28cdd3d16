package http

import (
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

const metricPrefix = "qa_console_"

var (
	appStartedAtUnix = time.Now().Unix()
	inFlightRequests int64
	metricsMu        sync.Mutex
	httpSeries       = map[httpMetricKey]*httpMetricSeries{}
	dbQuerySeries    = map[dbMetricKey]*dbMetricSeries{}
	backendSeries    = map[backendMetricKey]*backendMetricSeries{}
	alertRunSeries   = map[alertRunMetricKey]*alertRunMetricSeries{}
)

func metricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		metricsMu.Lock()
		keys := make([]httpMetricKey, 0, len(httpSeries))
		for k := range httpSeries {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Method != keys[j].Method {
				return keys[i].Method < keys[j].Method
			}
			if keys[i].Path != keys[j].Path {
				return keys[i].Path < keys[j].Path
			}
			return keys[i].Status < keys[j].Status
		})
		snapshot := make([]struct {
			Key    httpMetricKey
			Series httpMetricSeries
		}, 0, len(keys))
		for _, k := range keys {
			snapshot = append(snapshot, struct {
				Key    httpMetricKey
				Series httpMetricSeries
			}{Key: k, Series: *httpSeries[k]})
		}

		dbKeys := make([]dbMetricKey, 0, len(dbQuerySeries))
		for k := range dbQuerySeries {
			dbKeys = append(dbKeys, k)
		}
		sort.Slice(dbKeys, func(i, j int) bool {
			if dbKeys[i].Connector != dbKeys[j].Connector {
				return dbKeys[i].Connector < dbKeys[j].Connector
			}
			return dbKeys[i].Operation < dbKeys[j].Operation
		})
		dbSnapshot := make([]struct {
			Key    dbMetricKey
			Series dbMetricSeries
		}, 0, len(dbKeys))
		for _, k := range dbKeys {
			dbSnapshot = append(dbSnapshot, struct {
				Key    dbMetricKey
				Series dbMetricSeries
			}{k, *dbQuerySeries[k]})
		}

		beKeys := make([]backendMetricKey, 0, len(backendSeries))
		for k := range backendSeries {
			beKeys = append(beKeys, k)
		}
		sort.Slice(beKeys, func(i, j int) bool {
			if beKeys[i].Path != beKeys[j].Path {
				return beKeys[i].Path < beKeys[j].Path
			}
			return beKeys[i].Method < beKeys[j].Method
		})
		beSnapshot := make([]struct {
			Key    backendMetricKey
			Series backendMetricSeries
		}, 0, len(beKeys))
		for _, k := range beKeys {
			beSnapshot = append(beSnapshot, struct {
				Key    backendMetricKey
				Series backendMetricSeries
			}{k, *backendSeries[k]})
		}

		alertKeys := make([]alertRunMetricKey, 0, len(alertRunSeries))
		for k := range alertRunSeries {
			alertKeys = append(alertKeys, k)
		}
		sort.Slice(alertKeys, func(i, j int) bool {
			return alertKeys[i].Outcome < alertKeys[j].Outcome
		})
		alertSnapshot := make([]struct {
			Key    alertRunMetricKey
			Series alertRunMetricSeries
		}, 0, len(alertKeys))
		for _, k := range alertKeys {
			alertSnapshot = append(alertSnapshot, struct {
				Key    alertRunMetricKey
				Series alertRunMetricSeries
			}{k, *alertRunSeries[k]})
		}
		metricsMu.Unlock()

		writeHelp(w, "http_requests_total", "counter", "Total HTTP requests handled by the console.")
		for _, it := range snapshot {
			_, _ = fmt.Fprintf(w, metricPrefix+"http_requests_total{method=%q,path=%q,status=%q} %d\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), escapeLabel(it.Key.Status), it.Series.Count)
		}
		writeHelp(w, "http_request_duration_seconds_sum", "counter", "Total duration in seconds for observed requests.")
		for _, it := range snapshot {
			_, _ = fmt.Fprintf(w, metricPrefix+"http_request_duration_seconds_sum{method=%q,path=%q,status=%q} %.9f\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), escapeLabel(it.Key.Status), it.Series.DurationSecondsSum)
		}
		writeHelp(w, "http_in_flight_requests", "gauge", "In-flight HTTP requests currently served by the console.")
		_, _ = fmt.Fprintf(w, metricPrefix+"http_in_flight_requests %d\n", atomic.LoadInt64(&inFlightRequests))

		writeHelp(w, "backend_requests_total", "counter", "Requests issued to the QA backend by method/path.")
		for _, it := range beSnapshot {
			_, _ = fmt.Fprintf(w, metricPrefix+"backend_requests_total{method=%q,path=%q} %d\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), it.Series.Count)
		}
		writeHelp(w, "backend_request_errors_total", "counter", "Failed QA backend requests by method/path.")
		for _, it := range beSnapshot {
			_, _ = fmt.Fprintf(w, metricPrefix+"backend_request_errors_total{method=%q,path=%q} %d\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), it.Series.Errors)
		}
		writeHelp(w, "backend_request_duration_seconds_sum", "counter", "QA backend request duration sum in seconds by method/path.")
		for _, it := range beSnapshot {
			_, _ = fmt.Fprintf(w, metricPrefix+"backend_request_duration_seconds_sum{method=%q,path=%q} %.9f\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), it.Series.DurationSecondsSum)
		}

		writeHelp(w, "db_query_duration_seconds_sum", "counter", "Database query duration sum in seconds by connector/operation.")
		for _, it := range dbSnapshot {
			_, _ = fmt.Fprintf(w, metricPrefix+"db_query_duration_seconds_sum{connector=%q,operation=%q} %.9f\n",
				escapeLabel(it.Key.Connector), escapeLabel(it.Key.Operation), it.Series.DurationSecondsSum)
		}
		writeHelp(w, "db_query_duration_seconds_count", "counter", "Database query observation count by connector/operation.")
		for _, it := range dbSnapshot {
			_, _ = fmt.Fprintf(w, metricPrefix+"db_query_duration_seconds_count{connector=%q,operation=%q} %d\n",
				escapeLabel(it.Key.Connector), escapeLabel(it.Key.Operation), it.Series.Count)
		}
		writeHelp(w, "db_query_errors_total", "counter", "Database query errors by connector/operation.")
		for _, it := range dbSnapshot {
			_, _ = fmt.Fprintf(w, metricPrefix+"db_query_errors_total{connector=%q,operation=%q} %d\n",
				escapeLabel(it.Key.Connector), escapeLabel(it.Key.Operation), it.Series.Errors)
		}

		writeHelp(w, "alert_checks_total", "counter", "Dead letter backlog checks by outcome.")
		for _, it := range alertSnapshot {
			_, _ = fmt.Fprintf(w, metricPrefix+"alert_checks_total{outcome=%q} %d\n", escapeLabel(it.Key.Outcome), it.Series.Count)
		}
		writeHelp(w, "dead_letter_backlog", "gauge", "Unresolved dead letters seen by the last backlog check.")
		_, _ = fmt.Fprintf(w, metricPrefix+"dead_letter_backlog %d\n", atomic.LoadInt64(&lastBacklog))

		uptime := time.Now().Unix() - appStartedAtUnix
		writeHelp(w, "uptime_seconds", "gauge", "Process uptime in seconds.")
		_, _ = fmt.Fprintf(w, metricPrefix+"uptime_seconds %d\n", uptime)

		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		writeHelp(w, "runtime_goroutines", "gauge", "Number of goroutines.")
		_, _ = fmt.Fprintf(w, metricPrefix+"runtime_goroutines %d\n", runtime.NumGoroutine())
		writeHelp(w, "runtime_memory_alloc_bytes", "gauge", "Heap allocation bytes.")
		_, _ = fmt.Fprintf(w, metricPrefix+"runtime_memory_alloc_bytes %d\n", ms.Alloc)
		writeHelp(w, "runtime_gc_total", "counter", "Total GC runs since process start.")
		_, _ = fmt.Fprintf(w, metricPrefix+"runtime_gc_total %d\n", ms.NumGC)

		if cpuSec, ok := processCPUSeconds(); ok {
			writeHelp(w, "runtime_cpu_seconds_total", "counter", "Total CPU time consumed by this process in seconds.")
			_, _ = fmt.Fprintf(w, metricPrefix+"runtime_cpu_seconds_total %.6f\n", cpuSec)
		}
		if io := processIOStats(); io != nil {
			writeHelp(w, "runtime_io_read_bytes_total", "counter", "Bytes read by this process from storage.")
			_, _ = fmt.Fprintf(w, metricPrefix+"runtime_io_read_bytes_total %d\n", io.ReadBytes)
			writeHelp(w, "runtime_io_write_bytes_total", "counter", "Bytes written by this process to storage.")
			_, _ = fmt.Fprintf(w, metricPrefix+"runtime_io_write_bytes_total %d\n", io.WriteBytes)
		}
	})
}

func writeHelp(w http.ResponseWriter, name, kind, help string) {
	_, _ = fmt.Fprintf(w, "# HELP %s%s %s\n", metricPrefix, name, help)
	_, _ = fmt.Fprintf(w, "# TYPE %s%s %s\n", metricPrefix, name, kind)
}

func appMetricsSummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type endpointRow struct {
			Method  string  `json:"method"`
			Path    string  `json:"path"`
			Status  string  `json:"status,omitempty"`
			Count   uint64  `json:"count"`
			Errors  uint64  `json:"errors,omitempty"`
			AvgMS   float64 `json:"avg_ms"`
			TotalMS float64 `json:"total_ms"`
		}

		metricsMu.Lock()
		httpRows := make([]endpointRow, 0, len(httpSeries))
		for k, s := range httpSeries {
			httpRows = append(httpRows, endpointRow{
				Method:  k.Method,
				Path:    k.Path,
				Status:  k.Status,
				Count:   s.Count,
				AvgMS:   avgMS(s.DurationSecondsSum, s.Count),
				TotalMS: s.DurationSecondsSum * 1000.0,
			})
		}

		backendRows := make([]endpointRow, 0, len(backendSeries))
		backendErrors := uint64(0)
		for k, s := range backendSeries {
			backendRows = append(backendRows, endpointRow{
				Method:  k.Method,
				Path:    k.Path,
				Count:   s.Count,
				Errors:  s.Errors,
				AvgMS:   avgMS(s.DurationSecondsSum, s.Count),
				TotalMS: s.DurationSecondsSum * 1000.0,
			})
			backendErrors += s.Errors
		}

		dbErrors := uint64(0)
		for _, s := range dbQuerySeries {
			dbErrors += s.Errors
		}
		metricsMu.Unlock()

		sort.Slice(httpRows, func(i, j int) bool { return httpRows[i].AvgMS > httpRows[j].AvgMS })
		sort.Slice(backendRows, func(i, j int) bool { return backendRows[i].AvgMS > backendRows[j].AvgMS })

		topHTTP := httpRows
		if len(topHTTP) > 5 {
			topHTTP = topHTTP[:5]
		}
		topBackend := backendRows
		if len(topBackend) > 5 {
			topBackend = topBackend[:5]
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"meta": map[string]any{
				"generated_at": time.Now().UTC(),
			},
			"data": map[string]any{
				"top_http_slowest_avg_ms":    topHTTP,
				"top_backend_slowest_avg_ms": topBackend,
				"errors": map[string]any{
					"backend_request_total": backendErrors,
					"db_query_total":        dbErrors,
				},
			},
		})
	}
}

func avgMS(sumSeconds float64, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return (sumSeconds / float64(count)) * 1000.0
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func observabilityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		atomic.AddInt64(&inFlightRequests, 1)
		defer atomic.AddInt64(&inFlightRequests, -1)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		recordHTTPMetric(r.Method, normalizeMetricPath(r.URL.Path), rec.status, time.Since(start).Seconds())
	})
}

// idCollections are path segments whose next segment is an identifier.
var idCollections = map[string]string{
	"records":      "{id}",
	"dead-letters": "{id}",
	"issues":       "{id}",
	"views":        "{id}",
	"thresholds":   "{name}",
}

var fixedSegments = map[string]struct{}{
	"filter-options":  {},
	"tag-suggestions": {},
	"auto-fix":        {},
	"stats":           {},
}

// normalizeMetricPath collapses identifiers so console and backend paths keep a bounded label set.
func normalizeMetricPath(path string) string {
	if path == "/" || path == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		placeholder, ok := idCollections[parts[i]]
		if !ok {
			continue
		}
		if _, fixed := fixedSegments[parts[i+1]]; fixed {
			continue
		}
		parts[i+1] = placeholder
		i++
	}
	return "/" + strings.Join(parts, "/")
}

type httpMetricKey struct {
	Method string
	Path   string
	Status string
}

type httpMetricSeries struct {
	Count              uint64
	DurationSecondsSum float64
}

type dbMetricKey struct {
	Connector string
	Operation string
}

type dbMetricSeries struct {
	Count              uint64
	Errors             uint64
	DurationSecondsSum float64
}

type backendMetricKey struct {
	Method string
	Path   string
}

type backendMetricSeries struct {
	Count              uint64
	Errors             uint64
	DurationSecondsSum float64
}

type alertRunMetricKey struct {
	Outcome string
}

type alertRunMetricSeries struct {
	Count uint64
}

var lastBacklog int64

func recordHTTPMetric(method, path string, status int, durationSeconds float64) {
	key := httpMetricKey{
		Method: method,
		Path:   path,
		Status: strconv.Itoa(status),
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := httpSeries[key]
	if !ok {
		row = &httpMetricSeries{}
		httpSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
}

func recordDBQuery(connector, operation string, durationSeconds float64, err error) {
	if connector == "" || operation == "" {
		return
	}
	key := dbMetricKey{Connector: connector, Operation: operation}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := dbQuerySeries[key]
	if !ok {
		row = &dbMetricSeries{}
		dbQuerySeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
	if err != nil {
		row.Errors++
	}
}

// recordBackendCall matches the signature of backend.Client.Observe.
func recordBackendCall(method, path string, d time.Duration, err error) {
	key := backendMetricKey{Method: method, Path: normalizeMetricPath(path)}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := backendSeries[key]
	if !ok {
		row = &backendMetricSeries{}
		backendSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += d.Seconds()
	if err != nil {
		row.Errors++
	}
}

func recordAlertRun(outcome string, backlog int) {
	outcome = strings.TrimSpace(strings.ToLower(outcome))
	if outcome == "" {
		outcome = "unknown"
	}
	key := alertRunMetricKey{Outcome: outcome}
	metricsMu.Lock()
	row, ok := alertRunSeries[key]
	if !ok {
		row = &alertRunMetricSeries{}
		alertRunSeries[key] = row
	}
	row.Count++
	metricsMu.Unlock()
	if outcome != "error" {
		atomic.StoreInt64(&lastBacklog, int64(backlog))
	}
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}

func processCPUSeconds() (float64, bool) {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0, false
	}
	user := float64(ru.Utime.Sec) + (float64(ru.Utime.Usec) / 1_000_000.0)
	sys := float64(ru.Stime.Sec) + (float64(ru.Stime.Usec) / 1_000_000.0)
	return user + sys, true
}

type ioStats struct {
	ReadBytes     uint64
	WriteBytes    uint64
	SysReadCalls  uint64
	SysWriteCalls uint64
}

func processIOStats() *ioStats {
	b, err := os.ReadFile("/proc/self/io")
	if err != nil {
		return nil
	}
	out := &ioStats{}
	lines := strings.Split(string(b), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		valRaw := strings.TrimSpace(parts[1])
		v, err := strconv.ParseUint(valRaw, 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "read_bytes":
			out.ReadBytes = v
		case "write_bytes":
			out.WriteBytes = v
		case "syscr":
			out.SysReadCalls = v
		case "syscw":
			out.SysWriteCalls = v
		}
	}
	return out
}
