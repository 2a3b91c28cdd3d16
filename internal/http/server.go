package http

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"time"

	"go.uber.org/zap"

	"go-indexing-qa-console/internal/alerts"
	"go-indexing-qa-console/internal/backend"
	"go-indexing-qa-console/internal/config"
	"go-indexing-qa-console/internal/connectors/appstore"
	"go-indexing-qa-console/internal/connectors/backenddb"
	"go-indexing-qa-console/internal/poller"
	"go-indexing-qa-console/internal/views"
)

// Server wraps an HTTP server and route handlers.
type Server struct {
	httpServer *nethttp.Server
	logger     *zap.Logger
	client     *backend.Client
	health     *poller.HealthMonitor
	appStore   *appstore.Store
	backendDB  *backenddb.Store
	alertJob   *alerts.BacklogJob
	alertSpec  string
	cancel     context.CancelFunc
}

// pages holds one controller per console page.
type pages struct {
	dashboard   *views.Dashboard
	records     *views.Records
	analytics   *views.Analytics
	issues      *views.Issues
	deadLetters *views.DeadLetters
	settings    *views.Settings
	apiConsole  *views.APIConsole
	backendTest *views.BackendTest
}

func newPages(client *backend.Client, cfg config.Config, logger *zap.Logger) pages {
	return pages{
		dashboard:   views.NewDashboard(client, logger, 100),
		records:     views.NewRecords(client, logger, cfg.DefaultPageLimit),
		analytics:   views.NewAnalytics(client, logger),
		issues:      views.NewIssues(client, logger, 4),
		deadLetters: views.NewDeadLetters(client, logger, 0),
		settings:    views.NewSettings(client, logger),
		apiConsole:  views.NewAPIConsole(client, logger),
		backendTest: views.NewBackendTest(client, client.Endpoint(), logger),
	}
}

// NewServer creates a configured HTTP server with v1 endpoints.
func NewServer(cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	client.Observe(recordBackendCall)

	var store *appstore.Store
	if cfg.AppStorePath != "" {
		created, err := appstore.NewSQLiteStore(cfg.AppStorePath)
		if err != nil {
			return nil, err
		}
		store = created
	}
	var db *backenddb.Store
	if cfg.DBEnabled {
		created, err := backenddb.NewStore(cfg)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		db = created
	}

	health := poller.NewHealthMonitor(client, cfg.HealthInterval, cfg.BackendTimeout, logger)

	var job *alerts.BacklogJob
	if cfg.AlertsEnabled {
		var fallback alerts.BacklogSource
		if db != nil {
			fallback = db
		}
		job = &alerts.BacklogJob{
			Source:    alerts.FirstOf{alerts.APIBacklog{API: client}, fallback},
			Manager:   alerts.NewManager(alerts.NewSlackNotifier(cfg.SlackWebhookURL, cfg.SlackChannel), cfg.AlertThrottle, logger),
			Threshold: cfg.DeadLetterBacklogLimit,
			Logger:    logger,
			OnCheck:   recordAlertRun,
		}
	}

	p := newPages(client, cfg, logger)
	mux := routes(cfg, p, health, store, db, logger)

	httpServer := &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      loggingMiddleware(logger, observabilityMiddleware(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		httpServer: httpServer,
		logger:     logger,
		client:     client,
		health:     health,
		appStore:   store,
		backendDB:  db,
		alertJob:   job,
		alertSpec:  cfg.AlertSchedule,
	}, nil
}

func routes(cfg config.Config, p pages, health *poller.HealthMonitor, store *appstore.Store, db *backenddb.Store, logger *zap.Logger) *nethttp.ServeMux {
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/", consoleHandler)
	mux.HandleFunc("/favicon.ico", faviconHandler)
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/api/v1/metrics/app", appMetricsSummaryHandler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(health))
	mux.HandleFunc("/api/v1/status/backend", backendStatusHandler(health))
	mux.HandleFunc("/api/v1/status/services", servicesStatusHandler(health, store, db))
	mux.HandleFunc("/api/v1/dashboard", dashboardHandler(p.dashboard))
	mux.HandleFunc("/api/v1/records", recordsRouter(cfg.DefaultPageLimit, p.records, store, logger))
	mux.HandleFunc("/api/v1/records/", recordsRouter(cfg.DefaultPageLimit, p.records, store, logger))
	mux.HandleFunc("/api/v1/analytics", analyticsHandler(p.analytics))
	mux.HandleFunc("/api/v1/issues", issuesRouter(p.issues, store, logger))
	mux.HandleFunc("/api/v1/issues/", issuesRouter(p.issues, store, logger))
	mux.HandleFunc("/api/v1/dead-letters", deadLettersRouter(cfg.DefaultPageLimit, p.deadLetters, store, logger))
	mux.HandleFunc("/api/v1/dead-letters/", deadLettersRouter(cfg.DefaultPageLimit, p.deadLetters, store, logger))
	mux.HandleFunc("/api/v1/settings", settingsRouter(p.settings, store, logger))
	mux.HandleFunc("/api/v1/settings/", settingsRouter(p.settings, store, logger))
	mux.HandleFunc("/api/v1/backend-test", backendTestHandler(p.backendTest))
	mux.HandleFunc("/api/v1/api-test", apiTestRouter(p.apiConsole, store, logger))
	mux.HandleFunc("/api/v1/api-test/", apiTestRouter(p.apiConsole, store, logger))
	mux.HandleFunc("/api/v1/views", savedViewsRouter(cfg.DefaultPageLimit, store))
	mux.HandleFunc("/api/v1/views/", savedViewsRouter(cfg.DefaultPageLimit, store))
	mux.HandleFunc("/api/v1/journal", journalHandler(cfg.DefaultPageLimit, store))
	return mux
}

// ListenAndServe starts the background pollers and the HTTP server.
func (s *Server) ListenAndServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.health.Start(ctx)
	if s.alertJob != nil {
		sched, err := alerts.ParseSchedule(s.alertSpec)
		if err != nil {
			s.logger.Error("invalid alert schedule, backlog alerts disabled", zap.String("schedule", s.alertSpec), zap.Error(err))
		} else {
			s.logger.Info("dead letter backlog alerts scheduled", zap.String("cron", s.alertSpec))
			go s.alertJob.Run(ctx, sched)
		}
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.health.Stop()
	err := s.httpServer.Shutdown(ctx)
	if s.appStore != nil {
		_ = s.appStore.Close()
	}
	if s.backendDB != nil {
		_ = s.backendDB.Close()
	}
	return err
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// readyHandler reports ready once the backend has answered at least once.
func readyHandler(health *poller.HealthMonitor) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		if health == nil {
			writeJSON(w, nethttp.StatusOK, map[string]any{"status": "ready"})
			return
		}
		st := health.Status()
		if !st.Online {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"status":  "not_ready",
				"backend": st,
			})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"status": "ready"})
	}
}

func loggingMiddleware(logger *zap.Logger, next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
