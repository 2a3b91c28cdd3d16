package views

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-indexing-qa-console/internal/backend"
	"go-indexing-qa-console/internal/qa"
)

// ConnectivityAPI is every read endpoint the connectivity page exercises.
type ConnectivityAPI interface {
	GetHealth(ctx context.Context) (map[string]any, error)
	GetStats(ctx context.Context) (qa.Stats, error)
	GetQualityRecords(ctx context.Context, f qa.RecordFilters, p qa.Pagination) (qa.RecordPage, error)
	GetIssues(ctx context.Context) ([]qa.QualityIssue, error)
	GetDeadLetters(ctx context.Context, q qa.DeadLetterQuery) (qa.DeadLetterPage, error)
	GetDeadLettersStats(ctx context.Context, hoursBack int) (qa.DeadLetterStats, error)
	GetLLMSettings(ctx context.Context) (qa.LLMInvocationSettings, error)
	GetThresholds(ctx context.Context) ([]qa.Threshold, error)
	GetFilterOptions(ctx context.Context) (backend.FilterOptions, error)
	GetDashboardAnalytics(ctx context.Context) (map[string]any, error)
	GetCompanies(ctx context.Context) ([]qa.FilterOption, error)
	GetConnectors(ctx context.Context) ([]qa.FilterOption, error)
}

// EndpointResult is the outcome of one endpoint check.
type EndpointResult struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	OK        bool   `json:"ok"`
	Status    int    `json:"status,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// BackendTestReport is what the connectivity page renders.
type BackendTestReport struct {
	Endpoint string        `json:"endpoint"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Results  []EndpointResult `json:"results"`
}

type endpointCheck struct {
	name string
	path string
	fn   func(ctx context.Context) error
}

// BackendTest calls each read endpoint and reports per-endpoint results.
type BackendTest struct {
	api      ConnectivityAPI
	endpoint string
	logger   *zap.Logger
}

func NewBackendTest(api ConnectivityAPI, endpoint string, logger *zap.Logger) *BackendTest {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackendTest{api: api, endpoint: endpoint, logger: logger}
}

func (b *BackendTest) checks() []endpointCheck {
	a := b.api
	return []endpointCheck{
		{"health", "/health", func(ctx context.Context) error { _, err := a.GetHealth(ctx); return err }},
		{"stats", "/stats", func(ctx context.Context) error { _, err := a.GetStats(ctx); return err }},
		{"quality records", "/quality-records", func(ctx context.Context) error {
			_, err := a.GetQualityRecords(ctx, qa.RecordFilters{}, qa.Pagination{Page: 1, Limit: 1})
			return err
		}},
		{"issues", "/issues", func(ctx context.Context) error { _, err := a.GetIssues(ctx); return err }},
		{"dead letters", "/dead-letters", func(ctx context.Context) error {
			_, err := a.GetDeadLetters(ctx, qa.DeadLetterQuery{Limit: 1})
			return err
		}},
		{"dead letter stats", "/dead-letters/stats", func(ctx context.Context) error { _, err := a.GetDeadLettersStats(ctx, 24); return err }},
		{"llm settings", "/settings/llm-mode", func(ctx context.Context) error { _, err := a.GetLLMSettings(ctx); return err }},
		{"thresholds", "/thresholds", func(ctx context.Context) error { _, err := a.GetThresholds(ctx); return err }},
		{"filter options", "/filter-options", func(ctx context.Context) error { _, err := a.GetFilterOptions(ctx); return err }},
		{"dashboard analytics", "/analytics/dashboard", func(ctx context.Context) error { _, err := a.GetDashboardAnalytics(ctx); return err }},
		{"companies", "/companies", func(ctx context.Context) error { _, err := a.GetCompanies(ctx); return err }},
		{"connectors", "/connectors", func(ctx context.Context) error { _, err := a.GetConnectors(ctx); return err }},
	}
}

// Run calls every endpoint concurrently. Results keep the check order.
func (b *BackendTest) Run(ctx context.Context) BackendTestReport {
	checks := b.checks()
	results := make([]EndpointResult, len(checks))

	var g errgroup.Group
	g.SetLimit(4)
	for i, p := range checks {
		i, p := i, p
		g.Go(func() error {
			start := time.Now()
			err := p.fn(ctx)
			r := EndpointResult{Name: p.name, Path: p.path, OK: err == nil, LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				r.Error = err.Error()
				r.Status = backend.StatusOf(err)
				if errors.Is(err, backend.ErrUnavailable) {
					r.Status = 0
				}
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()

	report := BackendTestReport{Endpoint: b.endpoint, Results: results}
	for _, r := range results {
		if r.OK {
			report.Passed++
		} else {
			report.Failed++
		}
	}
	if report.Failed > 0 {
		b.logger.Warn("backend test found failing endpoints", zap.Int("failed", report.Failed), zap.Int("passed", report.Passed))
	}
	return report
}
