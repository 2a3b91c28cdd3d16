package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"go-indexing-qa-console/internal/qa"
)

// BacklogSource reports how many dead letters are still unresolved.
type BacklogSource interface {
	DeadLetterBacklog(ctx context.Context) (int, error)
}

// StatsAPI is the backend stats endpoint used as the primary backlog source.
type StatsAPI interface {
	GetDeadLettersStats(ctx context.Context, hoursBack int) (qa.DeadLetterStats, error)
}

// APIBacklog reads the backlog from the backend stats endpoint.
type APIBacklog struct {
	API StatsAPI
}

func (b APIBacklog) DeadLetterBacklog(ctx context.Context) (int, error) {
	stats, err := b.API.GetDeadLettersStats(ctx, 0)
	if err != nil {
		return 0, err
	}
	return stats.UnresolvedCount, nil
}

// FirstOf tries each source in order and returns the first answer.
type FirstOf []BacklogSource

func (f FirstOf) DeadLetterBacklog(ctx context.Context) (int, error) {
	var errs []error
	for _, src := range f {
		if src == nil {
			continue
		}
		n, err := src.DeadLetterBacklog(ctx)
		if err == nil {
			return n, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return 0, errors.New("no backlog source configured")
	}
	return 0, errors.Join(errs...)
}

// BacklogJob raises an alert when the dead letter backlog reaches the threshold.
type BacklogJob struct {
	Source    BacklogSource
	Manager   *Manager
	Threshold int
	Logger    *zap.Logger

	// OnCheck, when set, receives the outcome of every check:
	// error, below_threshold, sent, throttled or notify_error.
	OnCheck func(outcome string, backlog int)
}

// Check measures the backlog once and alerts when it is at or above the threshold.
func (j *BacklogJob) Check(ctx context.Context) (int, bool, error) {
	n, err := j.Source.DeadLetterBacklog(ctx)
	if err != nil {
		j.logger().Warn("dead letter backlog check failed", zap.Error(err))
		j.report("error", 0)
		return 0, false, err
	}
	threshold := j.Threshold
	if threshold <= 0 {
		threshold = 100
	}
	if n < threshold {
		j.report("below_threshold", n)
		return n, false, nil
	}
	sev := SeverityHigh
	if n >= 2*threshold {
		sev = SeverityCritical
	}
	sent, err := j.Manager.Send(ctx, Alert{
		Type:     TypeDeadLetterBacklog,
		Severity: sev,
		Message:  fmt.Sprintf("Dead letter backlog at %d unresolved records (threshold %d)", n, threshold),
		Details:  map[string]any{"unresolved": n, "threshold": threshold},
		Group:    "backlog_over_threshold",
	})
	switch {
	case err != nil:
		j.report("notify_error", n)
	case sent:
		j.report("sent", n)
	default:
		j.report("throttled", n)
	}
	return n, sent, err
}

func (j *BacklogJob) report(outcome string, backlog int) {
	if j.OnCheck != nil {
		j.OnCheck(outcome, backlog)
	}
}

func (j *BacklogJob) logger() *zap.Logger {
	if j.Logger == nil {
		return zap.NewNop()
	}
	return j.Logger
}

// ParseSchedule parses a standard 5-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(strings.TrimSpace(expr))
}

// Run calls j.Check at every activation of schedule until ctx is cancelled.
func (j *BacklogJob) Run(ctx context.Context, schedule cron.Schedule) {
	for {
		now := time.Now()
		next := schedule.Next(now)
		j.logger().Debug("next backlog check", zap.Time("at", next))
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			_, _, _ = j.Check(ctx)
		}
	}
}
