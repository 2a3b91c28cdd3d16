package views

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-indexing-qa-console/internal/analytics"
	"go-indexing-qa-console/internal/qa"
)

// DashboardAPI is the client surface the dashboard uses.
type DashboardAPI interface {
	GetStats(ctx context.Context) (qa.Stats, error)
	GetDashboardAnalytics(ctx context.Context) (map[string]any, error)
	GetQualityRecords(ctx context.Context, f qa.RecordFilters, p qa.Pagination) (qa.RecordPage, error)
}

// DashboardView is what the dashboard renders. Errors are keyed by section.
type DashboardView struct {
	Stats     qa.Stats              `json:"stats"`
	Summary   analytics.Summary     `json:"summary"`
	Analytics map[string]any        `json:"analytics"`
	Recent    []qa.QualityRecord    `json:"recent"`
	Trend     []analytics.DayBucket `json:"trend"`
	Filters   map[string][]string   `json:"filters"`
	DateFrom  string                `json:"date_from,omitempty"`
	DateTo    string                `json:"date_to,omitempty"`
	Errors    map[string]string     `json:"errors,omitempty"`
}

// Dashboard controls the landing page. It holds no filter state: every Load
// receives the selection of the calling page.
type Dashboard struct {
	api         DashboardAPI
	logger      *zap.Logger
	recentLimit int
	now         func() time.Time
}

func NewDashboard(api DashboardAPI, logger *zap.Logger, recentLimit int) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recentLimit <= 0 {
		recentLimit = 100
	}
	return &Dashboard{api: api, logger: logger, recentLimit: recentLimit, now: time.Now}
}

// Load fetches the three dashboard sections concurrently. A failing section
// degrades to its zero value without affecting the others. A nil selection means no filters.
func (d *Dashboard) Load(ctx context.Context, filters *Filters) DashboardView {
	if filters == nil {
		filters = NewFilters()
	}
	rf := filters.RecordFilters()
	view := DashboardView{
		Analytics: map[string]any{},
		Recent:    []qa.QualityRecord{},
		Filters:   filters.Snapshot(),
		DateFrom:  rf.DateFrom,
		DateTo:    rf.DateTo,
		Errors:    map[string]string{},
	}
	var mu sync.Mutex
	fail := func(section string, err error) {
		d.logger.Warn("dashboard section failed", zap.String("section", section), zap.Error(err))
		mu.Lock()
		view.Errors[section] = err.Error()
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := d.api.GetStats(gctx)
		if err != nil {
			fail("stats", err)
			return nil
		}
		mu.Lock()
		view.Stats = stats
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		a, err := d.api.GetDashboardAnalytics(gctx)
		if err != nil {
			fail("analytics", err)
			return nil
		}
		if a != nil {
			mu.Lock()
			view.Analytics = a
			mu.Unlock()
		}
		return nil
	})
	g.Go(func() error {
		page, err := d.api.GetQualityRecords(gctx, rf, qa.Pagination{Page: 1, Limit: d.recentLimit})
		if err != nil {
			fail("records", err)
			return nil
		}
		mu.Lock()
		view.Recent = page.Records
		mu.Unlock()
		return nil
	})
	_ = g.Wait()

	view.Summary = analytics.Summarize(view.Recent)
	view.Trend = analytics.DailyTrend(view.Recent, 7, d.now())
	if view.Stats.TotalRecords == 0 && view.Summary.Total > 0 {
		view.Stats.TotalRecords = view.Summary.Total
		view.Stats.ApprovedRecords = view.Summary.Approved
		view.Stats.FlaggedRecords = view.Summary.Flagged
		view.Stats.RejectedRecords = view.Summary.Rejected
		view.Stats.UnderReview = view.Summary.UnderReview
		view.Stats.AvgQualityScore = view.Summary.AvgQuality
	}
	return view
}
