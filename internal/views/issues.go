package views

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-indexing-qa-console/internal/qa"
)

// IssuesAPI is the client surface the issues page uses.
type IssuesAPI interface {
	GetIssues(ctx context.Context) ([]qa.QualityIssue, error)
	AutoFixIssue(ctx context.Context, id string) (map[string]any, error)
}

// IssuesState is what the issues page renders.
type IssuesState struct {
	Issues      []qa.QualityIssue   `json:"issues"`
	BySeverity  map[qa.Severity]int `json:"by_severity"`
	AutoFixable int                 `json:"auto_fixable"`
	Error       string              `json:"error,omitempty"`
}

// BulkResult is the outcome of a bulk auto-fix. Failed is set when any item failed.
type BulkResult struct {
	Requested int               `json:"requested"`
	Fixed     []string          `json:"fixed"`
	Errors    map[string]string `json:"errors,omitempty"`
	Failed    bool              `json:"failed"`
}

var severityRank = map[qa.Severity]int{
	qa.SeverityCritical: 0,
	qa.SeverityHigh:     1,
	qa.SeverityMedium:   2,
	qa.SeverityLow:      3,
}

// Issues controls the issues page.
type Issues struct {
	mu          sync.Mutex
	api         IssuesAPI
	logger      *zap.Logger
	concurrency int
	state       IssuesState
}

func NewIssues(api IssuesAPI, logger *zap.Logger, concurrency int) *Issues {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Issues{
		api:         api,
		logger:      logger,
		concurrency: concurrency,
		state:       IssuesState{Issues: []qa.QualityIssue{}, BySeverity: map[qa.Severity]int{}},
	}
}

// Load fetches the issues, most severe first.
func (c *Issues) Load(ctx context.Context) IssuesState {
	issues, err := c.api.GetIssues(ctx)
	state := IssuesState{Issues: []qa.QualityIssue{}, BySeverity: map[qa.Severity]int{}}
	if err != nil {
		c.logger.Error("load issues failed", zap.Error(err))
		state.Error = err.Error()
	} else {
		sort.SliceStable(issues, func(i, j int) bool {
			return rank(issues[i].Severity) < rank(issues[j].Severity)
		})
		state.Issues = issues
		for _, is := range issues {
			state.BySeverity[is.Severity]++
			if is.AutoFixable {
				state.AutoFixable++
			}
		}
	}
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	return state
}

func rank(s qa.Severity) int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// AutoFix fixes one issue and reloads the list on success.
func (c *Issues) AutoFix(ctx context.Context, id string) error {
	if _, err := c.api.AutoFixIssue(ctx, id); err != nil {
		c.logger.Error("auto-fix failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("auto-fix issue %s: %w", id, err)
	}
	c.Load(ctx)
	return nil
}

// AutoFixAll fixes the given issues concurrently. Any failure marks the whole batch failed.
// An empty ids list means every auto-fixable issue of the last load.
func (c *Issues) AutoFixAll(ctx context.Context, ids []string) BulkResult {
	if len(ids) == 0 {
		c.mu.Lock()
		for _, is := range c.state.Issues {
			if is.AutoFixable {
				ids = append(ids, is.ID)
			}
		}
		c.mu.Unlock()
	}

	res := BulkResult{Requested: len(ids), Fixed: []string{}, Errors: map[string]string{}}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := c.api.AutoFixIssue(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors[id] = err.Error()
				return err
			}
			res.Fixed = append(res.Fixed, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		res.Failed = true
		c.logger.Error("bulk auto-fix failed", zap.Int("requested", res.Requested), zap.Int("failed", len(res.Errors)), zap.Error(err))
	}
	sort.Strings(res.Fixed)
	if len(ids) > 0 {
		c.Load(ctx)
	}
	return res
}

func (c *Issues) State() IssuesState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
