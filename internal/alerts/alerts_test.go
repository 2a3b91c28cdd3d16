package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-indexing-qa-console/internal/qa"
)

type recordingNotifier struct {
	alerts []Alert
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, a Alert) error {
	r.alerts = append(r.alerts, a)
	return r.err
}

type fixedBacklog struct {
	n   int
	err error
}

func (f fixedBacklog) DeadLetterBacklog(context.Context) (int, error) { return f.n, f.err }

func TestManagerThrottlesSameKey(t *testing.T) {
	n := &recordingNotifier{}
	m := NewManager(n, 30*time.Minute, nil)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	a := Alert{Type: TypeDeadLetterBacklog, Severity: SeverityHigh, Message: "backlog"}
	sent, err := m.Send(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, sent)

	clock = clock.Add(10 * time.Minute)
	sent, _ = m.Send(context.Background(), a)
	assert.False(t, sent)

	other := a
	other.Severity = SeverityCritical
	sent, _ = m.Send(context.Background(), other)
	assert.True(t, sent)

	clock = clock.Add(31 * time.Minute)
	sent, _ = m.Send(context.Background(), a)
	assert.True(t, sent)
	assert.Len(t, n.alerts, 3)
}

func TestBacklogJobThresholds(t *testing.T) {
	n := &recordingNotifier{}
	job := &BacklogJob{Source: fixedBacklog{n: 99}, Manager: NewManager(n, time.Minute, nil), Threshold: 100}

	count, sent, err := job.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 99, count)
	assert.False(t, sent)

	job.Source = fixedBacklog{n: 100}
	_, sent, err = job.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, n.alerts, 1)
	assert.Equal(t, SeverityHigh, n.alerts[0].Severity)

	job.Source = fixedBacklog{n: 250}
	_, sent, _ = job.Check(context.Background())
	assert.True(t, sent)
	assert.Equal(t, SeverityCritical, n.alerts[1].Severity)
}

type stubStats struct {
	err error
}

func (s stubStats) GetDeadLettersStats(context.Context, int) (qa.DeadLetterStats, error) {
	if s.err != nil {
		return qa.DeadLetterStats{}, s.err
	}
	return qa.DeadLetterStats{UnresolvedCount: 7}, nil
}

func TestFirstOfFallsBack(t *testing.T) {
	src := FirstOf{APIBacklog{API: stubStats{err: errors.New("down")}}, fixedBacklog{n: 3}}
	n, err := src.DeadLetterBacklog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = FirstOf{APIBacklog{API: stubStats{}}}.DeadLetterBacklog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = FirstOf{nil}.DeadLetterBacklog(context.Background())
	assert.Error(t, err)
}

func TestSlackNotifierPostsAttachment(t *testing.T) {
	var got slack.WebhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSlackNotifier(srv.URL, "#qa-alerts")
	require.True(t, s.Enabled())
	err := s.Notify(context.Background(), Alert{
		Type:     TypeDeadLetterBacklog,
		Severity: SeverityCritical,
		Message:  "too many",
		Details:  map[string]any{"unresolved": 250},
	})
	require.NoError(t, err)

	assert.Equal(t, "#qa-alerts", got.Channel)
	require.Len(t, got.Attachments, 1)
	att := got.Attachments[0]
	assert.Equal(t, "#ff0000", att.Color)
	assert.Equal(t, "Dead Letter Backlog", att.Title)
	require.Len(t, att.Fields, 3)
	assert.Equal(t, "CRITICAL", att.Fields[0].Value)
}

func TestDisabledSlackNotifierIsNoop(t *testing.T) {
	s := NewSlackNotifier(" ", "")
	assert.False(t, s.Enabled())
	assert.NoError(t, s.Notify(context.Background(), Alert{}))
}

func TestParseSchedule(t *testing.T) {
	sched, err := ParseSchedule("*/5 * * * *")
	require.NoError(t, err)
	from := time.Date(2024, 1, 1, 12, 1, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 5, 0, 0, time.UTC), sched.Next(from))

	_, err = ParseSchedule("not a schedule")
	assert.Error(t, err)
}

func TestBacklogJobReportsOutcomes(t *testing.T) {
	var outcomes []string
	n := &recordingNotifier{}
	job := &BacklogJob{
		Source:    fixedBacklog{n: 150},
		Manager:   NewManager(n, time.Hour, nil),
		Threshold: 100,
		OnCheck:   func(outcome string, _ int) { outcomes = append(outcomes, outcome) },
	}
	_, _, _ = job.Check(context.Background())
	_, _, _ = job.Check(context.Background())
	job.Source = fixedBacklog{n: 5}
	_, _, _ = job.Check(context.Background())
	job.Source = fixedBacklog{err: errors.New("down")}
	_, _, _ = job.Check(context.Background())
	assert.Equal(t, []string{"sent", "throttled", "below_threshold", "error"}, outcomes)
}

func TestBacklogJobThrottlesDriftingBacklog(t *testing.T) {
	n := &recordingNotifier{}
	m := NewManager(n, 30*time.Minute, nil)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	job := &BacklogJob{Manager: m, Threshold: 100}

	for _, backlog := range []int{150, 151, 152} {
		job.Source = fixedBacklog{n: backlog}
		_, _, err := job.Check(context.Background())
		require.NoError(t, err)
		clock = clock.Add(5 * time.Minute)
	}
	require.Len(t, n.alerts, 1)
	assert.Equal(t, 150, n.alerts[0].Details["unresolved"])

	clock = clock.Add(30 * time.Minute)
	job.Source = fixedBacklog{n: 160}
	_, sent, err := job.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestManagerRetriesAfterFailedDelivery(t *testing.T) {
	n := &recordingNotifier{err: errors.New("webhook down")}
	m := NewManager(n, 30*time.Minute, nil)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	a := Alert{Type: TypeDeadLetterBacklog, Severity: SeverityHigh, Message: "backlog"}

	sent, err := m.Send(context.Background(), a)
	assert.Error(t, err)
	assert.False(t, sent)

	n.err = nil
	clock = clock.Add(time.Minute)
	sent, err = m.Send(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, sent)

	clock = clock.Add(time.Minute)
	sent, _ = m.Send(context.Background(), a)
	assert.False(t, sent)
	assert.Len(t, n.alerts, 2)
}
