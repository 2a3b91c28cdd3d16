// Package settings implements the threshold and LLM invocation editor.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"go-indexing-qa-console/internal/backend"
	"go-indexing-qa-console/internal/qa"
)

var (
	ErrInvalidRange     = errors.New("range minimum must not exceed range maximum")
	ErrUnknownThreshold = errors.New("unknown threshold")
	ErrUnknownMode      = errors.New("unknown llm mode")
	ErrUnknownField     = errors.New("unknown llm threshold field")
)

// PartialSaveError reports a save where the first step was applied and a later one failed.
type PartialSaveError struct {
	Applied string
	Failed  string
	Err     error
}

func (e *PartialSaveError) Error() string {
	return fmt.Sprintf("llm settings partially saved: %s applied, %s failed: %v", e.Applied, e.Failed, e.Err)
}

func (e *PartialSaveError) Unwrap() error { return e.Err }

// Backend is the part of the API client the editor needs.
type Backend interface {
	GetThresholds(ctx context.Context) ([]qa.Threshold, error)
	BulkUpdateThresholds(ctx context.Context, updates []qa.ThresholdUpdate, user, reason string) (map[string]bool, error)
	UpdateThreshold(ctx context.Context, name string, value float64, user, reason string) (map[string]any, error)
	GetLLMSettings(ctx context.Context) (qa.LLMInvocationSettings, error)
	UpdateLLMMode(ctx context.Context, mode qa.LLMMode, user, reason string) (map[string]any, error)
	UpdateLLMThresholds(ctx context.Context, patch backend.ThresholdPatch, user, reason string) (map[string]any, error)
	ResetLLMSettings(ctx context.Context) (map[string]any, error)
}

// Tab names one independently loaded section of the editor.
type Tab string

const (
	TabThresholds Tab = "thresholds"
	TabLLM        Tab = "llm"
	TabSimulation Tab = "simulation"
)

// LLM threshold field names, as sent to the backend.
const (
	FieldPercentage = "percentage_threshold"
	FieldWeighted   = "weighted_threshold"
	FieldRangeMin   = "range_min_threshold"
	FieldRangeMax   = "range_max_threshold"
)

// State is a snapshot of the editor for rendering.
type State struct {
	Thresholds []qa.Threshold           `json:"thresholds"`
	Changed    []string                 `json:"changed"`
	LLM        qa.LLMInvocationSettings `json:"llm"`
	LLMDirty   bool                     `json:"llm_dirty"`
	Loaded     map[Tab]bool             `json:"loaded"`
	Errors     map[Tab]string           `json:"errors"`
	Defaults   qa.LLMInvocationSettings `json:"defaults"`
	Decision   *qa.LLMDecision          `json:"decision,omitempty"`
}

// Editor holds the working copy of thresholds and LLM settings between load and save.
type Editor struct {
	mu     sync.Mutex
	api    Backend
	logger *zap.Logger

	thresholds []qa.Threshold
	edits      map[string]float64
	saved      qa.LLMInvocationSettings
	draft      qa.LLMInvocationSettings
	decision   *qa.LLMDecision
	loaded     map[Tab]bool
	errs       map[Tab]string
}

func NewEditor(api Backend, logger *zap.Logger) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := qa.DefaultLLMSettings()
	return &Editor{
		api:    api,
		logger: logger,
		edits:  map[string]float64{},
		saved:  defaults,
		draft:  defaults.Clone(),
		loaded: map[Tab]bool{TabSimulation: true},
		errs:   map[Tab]string{},
	}
}

// LoadThresholds refreshes the thresholds tab and drops pending edits.
func (e *Editor) LoadThresholds(ctx context.Context) error {
	thresholds, err := e.api.GetThresholds(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.errs[TabThresholds] = err.Error()
		e.logger.Warn("load thresholds failed", zap.Error(err))
		return err
	}
	sort.Slice(thresholds, func(i, j int) bool {
		if thresholds[i].Category != thresholds[j].Category {
			return thresholds[i].Category < thresholds[j].Category
		}
		return thresholds[i].Name < thresholds[j].Name
	})
	e.thresholds = thresholds
	e.edits = map[string]float64{}
	e.loaded[TabThresholds] = true
	delete(e.errs, TabThresholds)
	return nil
}

// LoadLLM refreshes the LLM tab, replacing the draft.
func (e *Editor) LoadLLM(ctx context.Context) error {
	s, err := e.api.GetLLMSettings(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.errs[TabLLM] = err.Error()
		e.logger.Warn("load llm settings failed", zap.Error(err))
		return err
	}
	if _, ok := qa.ParseMode(string(s.Mode)); !ok {
		s.Mode = qa.ModeBinary
	}
	e.saved = s.Clone()
	e.draft = s.Clone()
	e.loaded[TabLLM] = true
	delete(e.errs, TabLLM)
	return nil
}

// Load refreshes both backend-backed tabs independently; one failing does not block the other.
func (e *Editor) Load(ctx context.Context) error {
	return errors.Join(e.LoadThresholds(ctx), e.LoadLLM(ctx))
}

// SetThreshold edits one threshold, clamping into its range, and returns the stored value.
func (e *Editor) SetThreshold(name string, value float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.findThreshold(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownThreshold, name)
	}
	v := t.Clamp(value)
	if v == t.CurrentValue {
		delete(e.edits, name)
	} else {
		e.edits[name] = v
	}
	return v, nil
}

// ResetThreshold moves one threshold back to its default value.
func (e *Editor) ResetThreshold(name string) error {
	e.mu.Lock()
	t, ok := e.findThreshold(name)
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownThreshold, name)
	}
	_, err := e.SetThreshold(name, t.DefaultValue)
	return err
}

func (e *Editor) findThreshold(name string) (qa.Threshold, bool) {
	for _, t := range e.thresholds {
		if t.Name == name {
			return t, true
		}
	}
	return qa.Threshold{}, false
}

// Changes lists the pending threshold edits, sorted by name.
func (e *Editor) Changes() []qa.ThresholdUpdate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.changesLocked()
}

func (e *Editor) changesLocked() []qa.ThresholdUpdate {
	out := make([]qa.ThresholdUpdate, 0, len(e.edits))
	for name, v := range e.edits {
		out = append(out, qa.ThresholdUpdate{Name: name, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SaveThresholds sends every pending edit in one bulk call. Edits the backend
// accepted are folded into the loaded values; rejected ones stay pending.
func (e *Editor) SaveThresholds(ctx context.Context, user, reason string) (map[string]bool, error) {
	e.mu.Lock()
	updates := e.changesLocked()
	e.mu.Unlock()
	if len(updates) == 0 {
		return map[string]bool{}, nil
	}

	results, err := e.api.BulkUpdateThresholds(ctx, updates, user, reason)
	if err != nil {
		e.logger.Error("save thresholds failed", zap.Int("changes", len(updates)), zap.Error(err))
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, u := range updates {
		if !results[u.Name] {
			continue
		}
		for i := range e.thresholds {
			if e.thresholds[i].Name == u.Name {
				e.thresholds[i].CurrentValue = u.Value
				e.thresholds[i].UpdatedBy = user
			}
		}
		delete(e.edits, u.Name)
	}
	return results, nil
}

// SaveThreshold persists the pending edit of one threshold on its own, leaving
// other edits pending. It reports false when name has nothing to save.
func (e *Editor) SaveThreshold(ctx context.Context, name, user, reason string) (bool, error) {
	e.mu.Lock()
	_, known := e.findThreshold(name)
	value, pending := e.edits[name]
	e.mu.Unlock()
	if !known {
		return false, fmt.Errorf("%w: %s", ErrUnknownThreshold, name)
	}
	if !pending {
		return false, nil
	}

	if _, err := e.api.UpdateThreshold(ctx, name, value, user, reason); err != nil {
		e.logger.Error("save threshold failed", zap.String("name", name), zap.Error(err))
		return false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.thresholds {
		if e.thresholds[i].Name == name {
			e.thresholds[i].CurrentValue = value
			e.thresholds[i].UpdatedBy = user
		}
	}
	delete(e.edits, name)
	return true, nil
}

// SetMode changes only the active mode. Thresholds of the other modes are kept.
func (e *Editor) SetMode(mode qa.LLMMode) error {
	m, ok := qa.ParseMode(string(mode))
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	e.mu.Lock()
	e.draft.Mode = m
	e.mu.Unlock()
	return nil
}

// SetLLMThreshold edits one per-mode threshold, clamped to its valid range.
func (e *Editor) SetLLMThreshold(field string, value float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch field {
	case FieldPercentage:
		e.draft.PercentageThreshold = clamp(value, 0, 100)
		return e.draft.PercentageThreshold, nil
	case FieldWeighted:
		e.draft.WeightedThreshold = clamp(value, 0, 1)
		return e.draft.WeightedThreshold, nil
	case FieldRangeMin:
		e.draft.RangeMinThreshold = clamp(value, 0, 100)
		return e.draft.RangeMinThreshold, nil
	case FieldRangeMax:
		e.draft.RangeMaxThreshold = clamp(value, 0, 100)
		return e.draft.RangeMaxThreshold, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
}

// SetRuleWeight sets the weighted-mode weight of one rule.
func (e *Editor) SetRuleWeight(rule string, weight float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft.RuleWeights == nil {
		e.draft.RuleWeights = map[string]float64{}
	}
	e.draft.RuleWeights[rule] = clamp(weight, 0, 10)
}

// LLM returns a copy of the draft settings.
func (e *Editor) LLM() qa.LLMInvocationSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Clone()
}

// Validate checks the draft before any call is issued.
func (e *Editor) Validate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return validate(e.draft)
}

func validate(s qa.LLMInvocationSettings) error {
	if s.Mode == qa.ModeRange && s.RangeMinThreshold > s.RangeMaxThreshold {
		return fmt.Errorf("%w: %.1f > %.1f", ErrInvalidRange, s.RangeMinThreshold, s.RangeMaxThreshold)
	}
	return nil
}

// SaveLLM stores the draft with two sequential calls, mode then thresholds.
// A failure of the second call returns a *PartialSaveError; the mode change is not rolled back.
func (e *Editor) SaveLLM(ctx context.Context, user, reason string) error {
	e.mu.Lock()
	draft := e.draft.Clone()
	e.mu.Unlock()

	if err := validate(draft); err != nil {
		return err
	}

	if _, err := e.api.UpdateLLMMode(ctx, draft.Mode, user, reason); err != nil {
		e.logger.Error("save llm mode failed", zap.String("mode", string(draft.Mode)), zap.Error(err))
		return fmt.Errorf("save llm mode: %w", err)
	}

	patch := backend.ThresholdPatch{
		PercentageThreshold: &draft.PercentageThreshold,
		WeightedThreshold:   &draft.WeightedThreshold,
		RangeMinThreshold:   &draft.RangeMinThreshold,
		RangeMaxThreshold:   &draft.RangeMaxThreshold,
		RuleWeights:         draft.RuleWeights,
	}
	if _, err := e.api.UpdateLLMThresholds(ctx, patch, user, reason); err != nil {
		e.logger.Error("save llm thresholds failed after mode was applied", zap.String("mode", string(draft.Mode)), zap.Error(err))
		e.mu.Lock()
		e.saved.Mode = draft.Mode
		e.mu.Unlock()
		return &PartialSaveError{Applied: "mode", Failed: "thresholds", Err: err}
	}

	e.mu.Lock()
	e.saved = draft
	e.mu.Unlock()
	return nil
}

// ResetLLM asks the backend to restore defaults and reloads the tab.
func (e *Editor) ResetLLM(ctx context.Context) error {
	if _, err := e.api.ResetLLMSettings(ctx); err != nil {
		e.logger.Error("reset llm settings failed", zap.Error(err))
		return err
	}
	return e.LoadLLM(ctx)
}

// DiscardLLM drops unsaved LLM edits.
func (e *Editor) DiscardLLM() {
	e.mu.Lock()
	e.draft = e.saved.Clone()
	e.mu.Unlock()
}

// Simulate evaluates the draft settings against a JSON sample.
func (e *Editor) Simulate(raw []byte) (qa.LLMDecision, error) {
	sample, err := ParseSample(raw)
	if err != nil {
		return qa.LLMDecision{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	d := Simulate(e.draft, sample)
	e.decision = &d
	return d, nil
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	thresholds := make([]qa.Threshold, len(e.thresholds))
	copy(thresholds, e.thresholds)
	for i := range thresholds {
		if v, ok := e.edits[thresholds[i].Name]; ok {
			thresholds[i].CurrentValue = v
		}
	}
	changed := make([]string, 0, len(e.edits))
	for _, u := range e.changesLocked() {
		changed = append(changed, u.Name)
	}
	loaded := make(map[Tab]bool, len(e.loaded))
	for k, v := range e.loaded {
		loaded[k] = v
	}
	errs := make(map[Tab]string, len(e.errs))
	for k, v := range e.errs {
		errs[k] = v
	}
	return State{
		Thresholds: thresholds,
		Changed:    changed,
		LLM:        e.draft.Clone(),
		LLMDirty:   !sameSettings(e.draft, e.saved),
		Loaded:     loaded,
		Errors:     errs,
		Defaults:   qa.DefaultLLMSettings(),
		Decision:   e.decision,
	}
}

func sameSettings(a, b qa.LLMInvocationSettings) bool {
	if a.Mode != b.Mode || a.PercentageThreshold != b.PercentageThreshold ||
		a.WeightedThreshold != b.WeightedThreshold || a.RangeMinThreshold != b.RangeMinThreshold ||
		a.RangeMaxThreshold != b.RangeMaxThreshold || len(a.RuleWeights) != len(b.RuleWeights) {
		return false
	}
	for k, v := range a.RuleWeights {
		if w, ok := b.RuleWeights[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
