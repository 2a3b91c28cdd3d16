package views

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go-indexing-qa-console/internal/analytics"
	"go-indexing-qa-console/internal/qa"
)

// AnalyticsRecordCap bounds how many records the analytics page aggregates.
const AnalyticsRecordCap = 1000

// RecordSource lists records.
type RecordSource interface {
	GetQualityRecords(ctx context.Context, f qa.RecordFilters, p qa.Pagination) (qa.RecordPage, error)
}

// AnalyticsView is what the analytics page renders.
type AnalyticsView struct {
	Window      int                         `json:"window"`
	Company     string                      `json:"company,omitempty"`
	Connector   string                      `json:"connector,omitempty"`
	RecordCount int                         `json:"record_count"`
	Summary     analytics.Summary           `json:"summary"`
	Trend       []analytics.DayBucket       `json:"trend"`
	Histogram   []analytics.HistogramBucket `json:"histogram"`
	ByCompany   []analytics.Group           `json:"by_company"`
	ByConnector []analytics.Group           `json:"by_connector"`
	ByTag       []analytics.Group           `json:"by_tag"`
	ByFileType  []analytics.Group           `json:"by_file_type"`
	Error       string                      `json:"error,omitempty"`
}

// Analytics controls the analytics page.
type Analytics struct {
	api    RecordSource
	logger *zap.Logger
	now    func() time.Time
}

func NewAnalytics(api RecordSource, logger *zap.Logger) *Analytics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analytics{api: api, logger: logger, now: time.Now}
}

// Load fetches up to AnalyticsRecordCap records and aggregates them for the window.
func (a *Analytics) Load(ctx context.Context, days int, company, connector string) AnalyticsView {
	page, err := a.api.GetQualityRecords(ctx, qa.RecordFilters{}, qa.Pagination{Page: 1, Limit: AnalyticsRecordCap})
	view := BuildAnalytics(nil, days, company, connector, a.now())
	if err != nil {
		a.logger.Error("load analytics records failed", zap.Error(err))
		view.Error = err.Error()
		return view
	}
	return BuildAnalytics(page.Records, days, company, connector, a.now())
}

// BuildAnalytics applies the aggregation functions to records.
func BuildAnalytics(records []qa.QualityRecord, days int, company, connector string, now time.Time) AnalyticsView {
	filtered := analytics.Filter(records, company, connector)
	return AnalyticsView{
		Window:      analytics.NormalizeWindow(days),
		Company:     company,
		Connector:   connector,
		RecordCount: len(filtered),
		Summary:     analytics.Summarize(filtered),
		Trend:       analytics.DailyTrend(filtered, days, now),
		Histogram:   analytics.QualityHistogram(filtered),
		ByCompany:   analytics.GroupByCompany(filtered),
		ByConnector: analytics.GroupByConnector(filtered),
		ByTag:       analytics.GroupByTag(filtered),
		ByFileType:  analytics.GroupByFileType(filtered),
	}
}
