package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-indexing-qa-console/internal/qa"
)

func at(t time.Time) qa.Timestamp { return qa.Timestamp{Time: t} }

func TestDailyTrendProducesFullWindow(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	records := []qa.QualityRecord{
		{CreatedAt: at(now.Add(-1 * time.Hour)), QualityScore: 80, Status: qa.StatusApproved},
		{CreatedAt: at(now.Add(-2 * time.Hour)), QualityScore: 60, Status: qa.StatusFlagged},
		{CreatedAt: at(now.AddDate(0, 0, -2)), QualityScore: 50},
		{CreatedAt: at(now.AddDate(0, 0, -5)), QualityScore: 90, Status: qa.StatusApproved},
		{CreatedAt: at(now.AddDate(0, 0, -30)), QualityScore: 10},
		{QualityScore: 99},
	}

	buckets := DailyTrend(records, 7, now)
	require.Len(t, buckets, 7)
	assert.Equal(t, "2024-05-04", buckets[0].Date)
	assert.Equal(t, "2024-05-10", buckets[6].Date)

	assert.Equal(t, 2, buckets[6].Count)
	assert.Equal(t, 70.0, buckets[6].AvgQuality)
	assert.Equal(t, 1, buckets[6].Approved)
	assert.Equal(t, 1, buckets[6].Flagged)
	assert.Equal(t, 1, buckets[4].Count)
	assert.Equal(t, 1, buckets[1].Count)

	zero := 0
	for _, b := range buckets {
		if b.Count == 0 {
			zero++
			assert.Zero(t, b.AvgQuality)
		}
	}
	assert.Equal(t, 4, zero)
}

func TestDailyTrendClampsWindow(t *testing.T) {
	now := time.Now()
	assert.Len(t, DailyTrend(nil, 30, now), 30)
	assert.Len(t, DailyTrend(nil, 90, now), 90)
	assert.Len(t, DailyTrend(nil, 12, now), 7)
}

func TestQualityHistogramBoundaries(t *testing.T) {
	records := []qa.QualityRecord{
		{QualityScore: 89},
		{QualityScore: 89.9},
		{QualityScore: 90},
		{QualityScore: 100},
		{QualityScore: 0},
		{QualityScore: -4},
		{QualityScore: 130},
	}
	buckets := QualityHistogram(records)
	require.Len(t, buckets, 10)
	assert.Equal(t, "80-89", buckets[8].Label)
	assert.Equal(t, "90-100", buckets[9].Label)
	assert.Equal(t, 2, buckets[8].Count)
	assert.Equal(t, 3, buckets[9].Count)
	assert.Equal(t, 2, buckets[0].Count)
}

func TestGroupByCompanyUnknownFallback(t *testing.T) {
	records := []qa.QualityRecord{
		{CompanyName: "Acme", QualityScore: 80, Status: qa.StatusApproved,
			QualityChecks: []qa.QualityCheck{{Status: qa.CheckPass}, {Status: qa.CheckFail}}},
		{Company: "Acme", QualityScore: 60},
		{QualityScore: 40},
	}
	groups := GroupByCompany(records)
	require.Len(t, groups, 2)
	assert.Equal(t, "Acme", groups[0].Key)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, 70.0, groups[0].AvgQuality)
	assert.Equal(t, 50.0, groups[0].ReliabilityPct)
	assert.Equal(t, 25.0, groups[0].RelevancyPct)
	assert.Equal(t, "Unknown", groups[1].Key)
}

func TestGroupByConnectorAndTag(t *testing.T) {
	records := []qa.QualityRecord{
		{SourceConnectorName: "Jira", Tags: []string{"a", "b", "a"}},
		{SourceConnector: "Jira", Tags: []string{"b"}},
	}
	conn := GroupByConnector(records)
	require.Len(t, conn, 1)
	assert.Equal(t, 2, conn[0].Count)

	tags := GroupByTag(records)
	require.Len(t, tags, 2)
	assert.Equal(t, "b", tags[0].Key)
	assert.Equal(t, 2, tags[0].Count)
	assert.Equal(t, 1, tags[1].Count)
}

func TestFileTypeOf(t *testing.T) {
	cases := map[string]map[string]any{
		"pdf":     {"file_type": ".PDF"},
		"docx":    {"file_name": "report.docx"},
		"html":    {"url": "https://example.com/a/page.html?x=1"},
		"unknown": {"title": "Quarterly report"},
	}
	for want, meta := range cases {
		assert.Equal(t, want, FileTypeOf(qa.QualityRecord{Metadata: meta}), want)
	}
	assert.Equal(t, "unknown", FileTypeOf(qa.QualityRecord{}))
}

func TestDeadLetterStatsFromRecordsAllUnresolved(t *testing.T) {
	records := make([]qa.DeadLetterRecord, 4)
	for i := range records {
		records[i] = qa.DeadLetterRecord{ID: "x", ErrorType: "validation_error", RetryCount: i}
	}
	stats := DeadLetterStatsFromRecords(records)
	assert.Equal(t, 4, stats.TotalCount)
	assert.Equal(t, 4, stats.UnresolvedCount)
	assert.Equal(t, 0, stats.ResolvedCount)
	assert.Equal(t, 4, stats.ByErrorType["validation_error"])
	assert.Equal(t, 4, stats.ByConnector["Unknown"])
	assert.Equal(t, 1.5, stats.AvgRetryCount)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]qa.QualityRecord{
		{Status: qa.StatusApproved, QualityScore: 90},
		{Status: qa.StatusRejected, QualityScore: 20},
		{Status: qa.StatusUnderReview, QualityScore: 40, Issues: []qa.QualityIssue{{ID: "i"}}},
		{Status: qa.StatusFlagged, QualityScore: 50},
	})
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 50.0, s.AvgQuality)
	assert.Equal(t, 25.0, s.ApprovalRate)
	assert.Equal(t, 1, s.IssueCount)
	assert.Zero(t, Summarize(nil).AvgQuality)
}

func TestFilter(t *testing.T) {
	records := []qa.QualityRecord{
		{CompanyName: "Acme", SourceConnectorName: "Jira"},
		{CompanyName: "Acme", SourceConnectorName: "Confluence"},
		{CompanyName: "Beta"},
	}
	assert.Len(t, Filter(records, "", ""), 3)
	assert.Len(t, Filter(records, "acme", ""), 2)
	assert.Len(t, Filter(records, "Acme", "Jira"), 1)
	assert.Len(t, Filter(records, "", "Unknown"), 1)
}
