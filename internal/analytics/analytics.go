// Package analytics aggregates fetched records into the trend, breakdown and
// distribution views of the console. All functions are pure.
package analytics

import (
	"fmt"
	"math"
	"path"
	"sort"
	"strings"
	"time"

	"go-indexing-qa-console/internal/qa"
)

// Windows are the selectable trend windows in days.
var Windows = []int{7, 30, 90}

// NormalizeWindow returns days when it is a selectable window, else 7.
func NormalizeWindow(days int) int {
	for _, w := range Windows {
		if days == w {
			return days
		}
	}
	return 7
}

// DayBucket is one day of the quality trend.
type DayBucket struct {
	Date       string  `json:"date"`
	Count      int     `json:"count"`
	AvgQuality float64 `json:"avg_quality"`
	Approved   int     `json:"approved"`
	Flagged    int     `json:"flagged"`
}

// DailyTrend buckets records by UTC creation day over the window ending at now.
// It always returns exactly NormalizeWindow(days) buckets, oldest first.
func DailyTrend(records []qa.QualityRecord, days int, now time.Time) []DayBucket {
	days = NormalizeWindow(days)
	today := now.UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))

	buckets := make([]DayBucket, days)
	sums := make([]float64, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i).Format("2006-01-02")
		buckets[i].Date = d
		index[d] = i
	}

	for _, r := range records {
		if r.CreatedAt.IsZero() {
			continue
		}
		i, ok := index[r.CreatedAt.UTC().Format("2006-01-02")]
		if !ok {
			continue
		}
		buckets[i].Count++
		sums[i] += float64(r.QualityScore)
		switch r.Status {
		case qa.StatusApproved:
			buckets[i].Approved++
		case qa.StatusFlagged:
			buckets[i].Flagged++
		}
	}
	for i := range buckets {
		if buckets[i].Count > 0 {
			buckets[i].AvgQuality = round1(sums[i] / float64(buckets[i].Count))
		}
	}
	return buckets
}

// Group is an aggregate over the records sharing one key.
type Group struct {
	Key            string  `json:"key"`
	Count          int     `json:"count"`
	AvgQuality     float64 `json:"avg_quality"`
	Approved       int     `json:"approved"`
	Flagged        int     `json:"flagged"`
	ReliabilityPct float64 `json:"reliability_pct"`
	RelevancyPct   float64 `json:"relevancy_pct"`
}

type groupAcc struct {
	count, approved, flagged int
	qualitySum, passSum      float64
}

func groupBy(records []qa.QualityRecord, keys func(qa.QualityRecord) []string) []Group {
	acc := make(map[string]*groupAcc)
	for _, r := range records {
		ratio := r.CheckPassRatio()
		for _, k := range keys(r) {
			a, ok := acc[k]
			if !ok {
				a = &groupAcc{}
				acc[k] = a
			}
			a.count++
			a.qualitySum += float64(r.QualityScore)
			a.passSum += ratio
			switch r.Status {
			case qa.StatusApproved:
				a.approved++
			case qa.StatusFlagged:
				a.flagged++
			}
		}
	}

	out := make([]Group, 0, len(acc))
	for k, a := range acc {
		n := float64(a.count)
		out = append(out, Group{
			Key:            k,
			Count:          a.count,
			AvgQuality:     round1(a.qualitySum / n),
			Approved:       a.approved,
			Flagged:        a.flagged,
			ReliabilityPct: round1(float64(a.approved) / n * 100),
			RelevancyPct:   round1(a.passSum / n * 100),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func GroupByCompany(records []qa.QualityRecord) []Group {
	return groupBy(records, func(r qa.QualityRecord) []string { return []string{qa.CompanyOf(r)} })
}

func GroupByConnector(records []qa.QualityRecord) []Group {
	return groupBy(records, func(r qa.QualityRecord) []string { return []string{qa.ConnectorOf(r)} })
}

// GroupByTag counts a record once under each distinct tag it carries.
func GroupByTag(records []qa.QualityRecord) []Group {
	return groupBy(records, func(r qa.QualityRecord) []string {
		seen := make(map[string]struct{}, len(r.Tags))
		out := make([]string, 0, len(r.Tags))
		for _, t := range r.Tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
		return out
	})
}

func GroupByFileType(records []qa.QualityRecord) []Group {
	return groupBy(records, func(r qa.QualityRecord) []string { return []string{FileTypeOf(r)} })
}

// FileTypeOf infers a record's file type from metadata: file_type, then the
// extension of file_name, title or url, else "unknown".
func FileTypeOf(r qa.QualityRecord) string {
	if v, ok := r.Metadata["file_type"].(string); ok {
		if v = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(v), ".")); v != "" {
			return v
		}
	}
	for _, key := range []string{"file_name", "title", "url"} {
		v, ok := r.Metadata[key].(string)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if i := strings.IndexAny(v, "?#"); i >= 0 {
			v = v[:i]
		}
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(v), "."))
		if ext != "" && len(ext) <= 5 && !strings.ContainsAny(ext, " /") {
			return ext
		}
	}
	return "unknown"
}

// HistogramBucket is one range of the quality distribution.
type HistogramBucket struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// QualityHistogram counts records into 0-9, 10-19 ... 80-89, 90-100.
func QualityHistogram(records []qa.QualityRecord) []HistogramBucket {
	buckets := make([]HistogramBucket, 10)
	for i := range buckets {
		lo, hi := i*10, i*10+9
		if i == 9 {
			hi = 100
		}
		buckets[i] = HistogramBucket{Label: fmt.Sprintf("%d-%d", lo, hi), Min: lo, Max: hi}
	}
	for _, r := range records {
		buckets[histogramIndex(float64(r.QualityScore))].Count++
	}
	return buckets
}

func histogramIndex(score float64) int {
	if math.IsNaN(score) || score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	i := int(math.Floor(score)) / 10
	if i > 9 {
		i = 9
	}
	return i
}

// DeadLetterStatsFromRecords computes queue stats from loaded records when the
// stats endpoint is unavailable.
func DeadLetterStatsFromRecords(records []qa.DeadLetterRecord) qa.DeadLetterStats {
	stats := qa.DefaultDeadLetterStats()
	stats.TotalCount = len(records)
	retries := 0
	for _, r := range records {
		if r.Resolved {
			stats.ResolvedCount++
		} else {
			stats.UnresolvedCount++
		}
		errType := strings.TrimSpace(r.ErrorType)
		if errType == "" {
			errType = qa.Unknown
		}
		stats.ByErrorType[errType]++
		conn := strings.TrimSpace(r.SourceConnector)
		if conn == "" {
			conn = qa.Unknown
		}
		stats.ByConnector[conn]++
		retries += r.RetryCount
	}
	if len(records) > 0 {
		stats.AvgRetryCount = round1(float64(retries) / float64(len(records)))
	}
	return stats
}

// Summary holds the dashboard metric cards.
type Summary struct {
	Total        int     `json:"total"`
	Approved     int     `json:"approved"`
	Flagged      int     `json:"flagged"`
	Rejected     int     `json:"rejected"`
	UnderReview  int     `json:"under_review"`
	AvgQuality   float64 `json:"avg_quality"`
	ApprovalRate float64 `json:"approval_rate"`
	IssueCount   int     `json:"issue_count"`
}

func Summarize(records []qa.QualityRecord) Summary {
	var s Summary
	sum := 0.0
	for _, r := range records {
		s.Total++
		sum += float64(r.QualityScore)
		s.IssueCount += len(r.Issues)
		switch r.Status {
		case qa.StatusApproved:
			s.Approved++
		case qa.StatusFlagged:
			s.Flagged++
		case qa.StatusRejected:
			s.Rejected++
		case qa.StatusUnderReview:
			s.UnderReview++
		}
	}
	if s.Total > 0 {
		s.AvgQuality = round1(sum / float64(s.Total))
		s.ApprovalRate = round1(float64(s.Approved) / float64(s.Total) * 100)
	}
	return s
}

// Filter keeps records matching the company and connector; empty values match all.
func Filter(records []qa.QualityRecord, company, connector string) []qa.QualityRecord {
	company = strings.TrimSpace(company)
	connector = strings.TrimSpace(connector)
	if company == "" && connector == "" {
		return records
	}
	out := make([]qa.QualityRecord, 0, len(records))
	for _, r := range records {
		if company != "" && !strings.EqualFold(qa.CompanyOf(r), company) {
			continue
		}
		if connector != "" && !strings.EqualFold(qa.ConnectorOf(r), connector) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
