package views

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-indexing-qa-console/internal/analytics"
	"go-indexing-qa-console/internal/qa"
)

// DeadLettersAPI is the client surface the dead letter page uses.
type DeadLettersAPI interface {
	GetDeadLetters(ctx context.Context, q qa.DeadLetterQuery) (qa.DeadLetterPage, error)
	GetDeadLettersStats(ctx context.Context, hoursBack int) (qa.DeadLetterStats, error)
	GetDeadLettersFilterOptions(ctx context.Context) (qa.DeadLetterFilterOptions, error)
	RetryDeadLetter(ctx context.Context, id string) (map[string]any, error)
	ResolveDeadLetter(ctx context.Context, id string) (map[string]any, error)
	DeleteDeadLetter(ctx context.Context, id string) error
}

// ActionResult describes the outcome of the last mutation.
type ActionResult struct {
	Action string    `json:"action"`
	ID     string    `json:"id"`
	OK     bool      `json:"ok"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

// DeadLettersState is what the dead letter page renders.
type DeadLettersState struct {
	Records      []qa.DeadLetterRecord      `json:"records"`
	Total        int                        `json:"total"`
	Stats        qa.DeadLetterStats         `json:"stats"`
	StatsDerived bool                       `json:"stats_derived"`
	Options      qa.DeadLetterFilterOptions `json:"options"`
	Query        qa.DeadLetterQuery         `json:"query"`
	Error        string                     `json:"error,omitempty"`
	LastAction   *ActionResult              `json:"last_action,omitempty"`
}

// DeadLetters controls the dead letter queue page.
type DeadLetters struct {
	mu        sync.Mutex
	api       DeadLettersAPI
	logger    *zap.Logger
	hoursBack int
	state     DeadLettersState
}

func NewDeadLetters(api DeadLettersAPI, logger *zap.Logger, hoursBack int) *DeadLetters {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadLetters{
		api:       api,
		logger:    logger,
		hoursBack: hoursBack,
		state: DeadLettersState{
			Records: []qa.DeadLetterRecord{},
			Stats:   qa.DefaultDeadLetterStats(),
		},
	}
}

// Load fetches the list and the stats for q.
func (d *DeadLetters) Load(ctx context.Context, q qa.DeadLetterQuery) DeadLettersState {
	d.mu.Lock()
	d.state.Query = q
	d.mu.Unlock()
	d.refresh(ctx)
	return d.State()
}

// LoadOptions fetches the filter dropdown values.
func (d *DeadLetters) LoadOptions(ctx context.Context) qa.DeadLetterFilterOptions {
	opts, err := d.api.GetDeadLettersFilterOptions(ctx)
	if err != nil {
		d.logger.Warn("load dead letter filter options failed", zap.Error(err))
		opts = qa.DeadLetterFilterOptions{ErrorTypes: []qa.FilterOption{}, SourceConnectors: []qa.FilterOption{}}
	}
	d.mu.Lock()
	d.state.Options = opts
	d.mu.Unlock()
	return opts
}

// refresh issues exactly one list call and one stats call. When the stats call
// fails the stats are derived from the listed records.
func (d *DeadLetters) refresh(ctx context.Context) {
	d.mu.Lock()
	q := d.state.Query
	d.mu.Unlock()

	page, listErr := d.api.GetDeadLetters(ctx, q)
	if listErr != nil {
		d.logger.Error("load dead letters failed", zap.Error(listErr))
		page = qa.DeadLetterPage{Records: []qa.DeadLetterRecord{}}
	}

	hours := q.HoursBack
	if hours <= 0 {
		hours = d.hoursBack
	}
	stats, statsErr := d.api.GetDeadLettersStats(ctx, hours)
	derived := false
	if statsErr != nil {
		d.logger.Warn("load dead letter stats failed, deriving from records", zap.Error(statsErr))
		stats = analytics.DeadLetterStatsFromRecords(page.Records)
		derived = true
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Records = page.Records
	d.state.Total = page.Total
	d.state.Stats = stats
	d.state.StatsDerived = derived
	d.state.Error = ""
	if listErr != nil {
		d.state.Error = listErr.Error()
	}
}

func (d *DeadLetters) Retry(ctx context.Context, id string) error {
	return d.mutate(ctx, "retry", id, func() error {
		_, err := d.api.RetryDeadLetter(ctx, id)
		return err
	})
}

func (d *DeadLetters) Resolve(ctx context.Context, id string) error {
	return d.mutate(ctx, "resolve", id, func() error {
		_, err := d.api.ResolveDeadLetter(ctx, id)
		return err
	})
}

func (d *DeadLetters) Delete(ctx context.Context, id string) error {
	return d.mutate(ctx, "delete", id, func() error {
		return d.api.DeleteDeadLetter(ctx, id)
	})
}

// mutate runs fn and refreshes only on success. A failure leaves the records untouched.
func (d *DeadLetters) mutate(ctx context.Context, action, id string, fn func() error) error {
	err := fn()
	result := &ActionResult{Action: action, ID: id, OK: err == nil, At: time.Now().UTC()}
	if err != nil {
		d.logger.Error("dead letter action failed", zap.String("action", action), zap.String("id", id), zap.Error(err))
		result.Error = err.Error()
		d.mu.Lock()
		d.state.LastAction = result
		d.mu.Unlock()
		return fmt.Errorf("%s dead letter %s: %w", action, id, err)
	}
	d.refresh(ctx)
	d.mu.Lock()
	d.state.LastAction = result
	d.mu.Unlock()
	return nil
}

// State returns a copy of the current page state.
func (d *DeadLetters) State() DeadLettersState {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.state
	out.Records = append([]qa.DeadLetterRecord(nil), d.state.Records...)
	if out.Records == nil {
		out.Records = []qa.DeadLetterRecord{}
	}
	return out
}
