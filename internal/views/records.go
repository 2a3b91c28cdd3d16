package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-indexing-qa-console/internal/backend"
	"go-indexing-qa-console/internal/qa"
)

// RecordsAPI is the client surface the record review page uses.
type RecordsAPI interface {
	GetQualityRecords(ctx context.Context, f qa.RecordFilters, p qa.Pagination) (qa.RecordPage, error)
	GetFilterOptions(ctx context.Context) (backend.FilterOptions, error)
	ApproveRecord(ctx context.Context, id, user, reason string) (map[string]any, error)
	FlagRecord(ctx context.Context, id, user, reason string) (map[string]any, error)
	UpdateRecordContent(ctx context.Context, id, content string, tags []string, user, reason string) (map[string]any, error)
	ReprocessRecord(ctx context.Context, id, content string, tags []string, user, reason string) (map[string]any, error)
	GetAuditTrail(ctx context.Context, id string) ([]qa.AuditEntry, error)
	GetTagSuggestions(ctx context.Context, content string, tags []string) ([]string, error)
}

// ErrRecordNotFound is returned when the backend has no record with the requested id.
var ErrRecordNotFound = errors.New("record not found")

// RecordsState is what the record review page renders.
type RecordsState struct {
	Records    []qa.QualityRecord    `json:"records"`
	Total      int                   `json:"total"`
	Filters    qa.RecordFilters      `json:"filters"`
	Pagination qa.Pagination         `json:"pagination"`
	Options    backend.FilterOptions `json:"options"`
	Error      string                `json:"error,omitempty"`
	LastAction *ActionResult         `json:"last_action,omitempty"`
}

// LLMCard is the LLM section of the record detail modal.
type LLMCard struct {
	RecordID        string            `json:"record_id"`
	Triggered       bool              `json:"triggered"`
	LLMConfidence   float64           `json:"llm_confidence"`
	RulesConfidence float64           `json:"rules_confidence"`
	QualityScore    float64           `json:"quality_score"`
	Status          qa.RecordStatus   `json:"status"`
	Suggestions     []string          `json:"suggestions"`
	Checks          []qa.QualityCheck `json:"checks"`
}

// Records controls the record review page.
type Records struct {
	mu        sync.Mutex
	api       RecordsAPI
	logger    *zap.Logger
	pageLimit int
	state     RecordsState
}

func NewRecords(api RecordsAPI, logger *zap.Logger, pageLimit int) *Records {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageLimit <= 0 {
		pageLimit = 50
	}
	return &Records{
		api:       api,
		logger:    logger,
		pageLimit: pageLimit,
		state:     RecordsState{Records: []qa.QualityRecord{}},
	}
}

// Load fetches one page of records for the given filters.
func (c *Records) Load(ctx context.Context, f qa.RecordFilters, p qa.Pagination) RecordsState {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 || p.Limit > 1000 {
		p.Limit = c.pageLimit
	}
	page, err := c.api.GetQualityRecords(ctx, f, p)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Filters = f
	c.state.Pagination = p
	if err != nil {
		c.logger.Error("load records failed", zap.Error(err))
		c.state.Records = []qa.QualityRecord{}
		c.state.Total = 0
		c.state.Error = err.Error()
		return c.copyState()
	}
	c.state.Records = page.Records
	c.state.Total = page.Total
	c.state.Error = ""
	return c.copyState()
}

// LoadOptions fetches the filter dropdown values.
func (c *Records) LoadOptions(ctx context.Context) backend.FilterOptions {
	opts, err := c.api.GetFilterOptions(ctx)
	if err != nil {
		c.logger.Warn("load filter options failed", zap.Error(err))
		opts = backend.FilterOptions{}
	}
	c.mu.Lock()
	c.state.Options = opts
	c.mu.Unlock()
	return opts
}

// Find returns a record by id, searching the loaded page first and then the backend.
func (c *Records) Find(ctx context.Context, id string) (qa.QualityRecord, bool, error) {
	c.mu.Lock()
	for _, r := range c.state.Records {
		if r.ID == id || r.RecordID == id {
			c.mu.Unlock()
			return r, true, nil
		}
	}
	c.mu.Unlock()

	page, err := c.api.GetQualityRecords(ctx, qa.RecordFilters{Search: id}, qa.Pagination{Page: 1, Limit: c.pageLimit})
	if err != nil {
		return qa.QualityRecord{}, false, err
	}
	for _, r := range page.Records {
		if r.ID == id || r.RecordID == id {
			return r, true, nil
		}
	}
	return qa.QualityRecord{}, false, nil
}

// LLMCardFor fetches a fresh copy of the record and summarizes its LLM evaluation.
func (c *Records) LLMCardFor(ctx context.Context, id string) (LLMCard, error) {
	page, err := c.api.GetQualityRecords(ctx, qa.RecordFilters{Search: id}, qa.Pagination{Page: 1, Limit: c.pageLimit})
	if err != nil {
		return LLMCard{}, err
	}
	for _, r := range page.Records {
		if r.ID == id || r.RecordID == id {
			c.replace(r)
			return BuildLLMCard(r), nil
		}
	}
	return LLMCard{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
}

// BuildLLMCard extracts the LLM evaluation summary from a record.
func BuildLLMCard(r qa.QualityRecord) LLMCard {
	card := LLMCard{
		RecordID:        r.ID,
		LLMConfidence:   float64(r.LLMConfidence),
		RulesConfidence: float64(r.RulesEngineConfidence),
		QualityScore:    float64(r.QualityScore),
		Status:          r.Status,
		Suggestions:     []string{},
		Checks:          []qa.QualityCheck{},
	}
	card.Triggered = card.LLMConfidence > 0
	for _, check := range r.QualityChecks {
		if !strings.HasPrefix(check.CheckName, "llm") && check.CheckMetadata["llm_suggestions"] == nil {
			continue
		}
		card.Triggered = true
		card.Checks = append(card.Checks, check)
		card.Suggestions = append(card.Suggestions, check.LLMSuggestions()...)
	}
	return card
}

func (c *Records) Approve(ctx context.Context, id, user, reason string) error {
	return c.review(ctx, "approve", id, qa.StatusApproved, func() error {
		_, err := c.api.ApproveRecord(ctx, id, user, reason)
		return err
	})
}

func (c *Records) Flag(ctx context.Context, id, user, reason string) error {
	return c.review(ctx, "flag", id, qa.StatusFlagged, func() error {
		_, err := c.api.FlagRecord(ctx, id, user, reason)
		return err
	})
}

// EditContent saves new content and tags. Tags arrive as comma separated text.
func (c *Records) EditContent(ctx context.Context, id, content, tags, user, reason string) error {
	tagList := qa.SplitList(tags)
	return c.review(ctx, "edit", id, "", func() error {
		_, err := c.api.UpdateRecordContent(ctx, id, content, tagList, user, reason)
		if err == nil {
			c.updateLocal(id, func(r *qa.QualityRecord) {
				r.Content = content
				r.Tags = tagList
			})
		}
		return err
	})
}

// Reprocess resubmits the record through the quality pipeline.
func (c *Records) Reprocess(ctx context.Context, id, content, tags, user, reason string) error {
	return c.review(ctx, "reprocess", id, qa.StatusUnderReview, func() error {
		_, err := c.api.ReprocessRecord(ctx, id, content, qa.SplitList(tags), user, reason)
		return err
	})
}

func (c *Records) review(_ context.Context, action, id string, status qa.RecordStatus, fn func() error) error {
	err := fn()
	result := &ActionResult{Action: action, ID: id, OK: err == nil, At: time.Now().UTC()}
	if err != nil {
		c.logger.Error("record action failed", zap.String("action", action), zap.String("id", id), zap.Error(err))
		result.Error = err.Error()
	} else if status != "" {
		c.updateLocal(id, func(r *qa.QualityRecord) { r.Status = status })
	}
	c.mu.Lock()
	c.state.LastAction = result
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%s record %s: %w", action, id, err)
	}
	return nil
}

func (c *Records) updateLocal(id string, fn func(*qa.QualityRecord)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.state.Records {
		if c.state.Records[i].ID == id {
			fn(&c.state.Records[i])
		}
	}
}

func (c *Records) replace(r qa.QualityRecord) {
	c.updateLocal(r.ID, func(dst *qa.QualityRecord) { *dst = r })
}

func (c *Records) AuditTrail(ctx context.Context, id string) ([]qa.AuditEntry, error) {
	entries, err := c.api.GetAuditTrail(ctx, id)
	if err != nil {
		c.logger.Warn("load audit trail failed", zap.String("id", id), zap.Error(err))
		return []qa.AuditEntry{}, err
	}
	return entries, nil
}

// SuggestTags returns backend suggestions that are not already on the record.
func (c *Records) SuggestTags(ctx context.Context, content, tags string) ([]string, error) {
	existing := qa.SplitList(tags)
	suggestions, err := c.api.GetTagSuggestions(ctx, content, existing)
	if err != nil {
		c.logger.Warn("tag suggestions failed", zap.Error(err))
		return []string{}, err
	}
	have := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		have[strings.ToLower(t)] = struct{}{}
	}
	out := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		if _, dup := have[strings.ToLower(s)]; dup {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *Records) State() RecordsState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyState()
}

func (c *Records) copyState() RecordsState {
	out := c.state
	out.Records = append([]qa.QualityRecord(nil), c.state.Records...)
	if out.Records == nil {
		out.Records = []qa.QualityRecord{}
	}
	return out
}
