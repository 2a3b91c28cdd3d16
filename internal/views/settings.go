package views

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"go-indexing-qa-console/internal/backend"
	"go-indexing-qa-console/internal/qa"
	"go-indexing-qa-console/internal/settings"
)

// SettingsAPI is the client surface the settings page uses.
type SettingsAPI interface {
	settings.Backend
	GetLLMSettingsHistory(ctx context.Context) ([]qa.SettingsChange, error)
	SimulateLLMDecision(ctx context.Context, req backend.SimulationRequest) (qa.LLMDecision, error)
}

// SettingsPage is what the settings page renders.
type SettingsPage struct {
	settings.State
	History      []qa.SettingsChange `json:"history"`
	HistoryError string              `json:"history_error,omitempty"`
}

// LLMUpdate is a requested change of the LLM invocation settings. Nil fields are kept.
type LLMUpdate struct {
	Mode                *qa.LLMMode        `json:"mode,omitempty"`
	PercentageThreshold *float64           `json:"percentage_threshold,omitempty"`
	WeightedThreshold   *float64           `json:"weighted_threshold,omitempty"`
	RangeMinThreshold   *float64           `json:"range_min_threshold,omitempty"`
	RangeMaxThreshold   *float64           `json:"range_max_threshold,omitempty"`
	RuleWeights         map[string]float64 `json:"rule_weights,omitempty"`
}

// Settings controls the settings page. Each request works on a fresh editor
// loaded from the backend, so concurrent operators never share a draft.
type Settings struct {
	api    SettingsAPI
	logger *zap.Logger
}

func NewSettings(api SettingsAPI, logger *zap.Logger) *Settings {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Settings{api: api, logger: logger}
}

// Editor returns an editor bound to the backend, not yet loaded.
func (s *Settings) Editor() *settings.Editor {
	return settings.NewEditor(s.api, s.logger)
}

// Page loads every tab plus the LLM history. Tabs fail independently.
func (s *Settings) Page(ctx context.Context) SettingsPage {
	ed := s.Editor()
	_ = ed.Load(ctx)
	page := SettingsPage{State: ed.State(), History: []qa.SettingsChange{}}
	history, err := s.api.GetLLMSettingsHistory(ctx)
	if err != nil {
		s.logger.Warn("load llm settings history failed", zap.Error(err))
		page.HistoryError = err.Error()
	} else {
		page.History = history
	}
	return page
}

// History returns the LLM settings change log.
func (s *Settings) History(ctx context.Context) ([]qa.SettingsChange, error) {
	return s.api.GetLLMSettingsHistory(ctx)
}

// ApplyLLM loads the current settings, applies upd and saves with the two-step flow.
func (s *Settings) ApplyLLM(ctx context.Context, upd LLMUpdate, user, reason string) (qa.LLMInvocationSettings, error) {
	ed := s.Editor()
	if err := ed.LoadLLM(ctx); err != nil {
		return qa.LLMInvocationSettings{}, err
	}
	if upd.Mode != nil {
		if err := ed.SetMode(*upd.Mode); err != nil {
			return qa.LLMInvocationSettings{}, err
		}
	}
	fields := []struct {
		name string
		v    *float64
	}{
		{settings.FieldPercentage, upd.PercentageThreshold},
		{settings.FieldWeighted, upd.WeightedThreshold},
		{settings.FieldRangeMin, upd.RangeMinThreshold},
		{settings.FieldRangeMax, upd.RangeMaxThreshold},
	}
	for _, f := range fields {
		if f.v == nil {
			continue
		}
		if _, err := ed.SetLLMThreshold(f.name, *f.v); err != nil {
			return qa.LLMInvocationSettings{}, err
		}
	}
	for rule, w := range upd.RuleWeights {
		ed.SetRuleWeight(rule, w)
	}
	if err := ed.SaveLLM(ctx, user, reason); err != nil {
		return ed.LLM(), err
	}
	return ed.LLM(), nil
}

// ApplyThresholds loads the thresholds, applies the updates and saves changed ones in one call.
func (s *Settings) ApplyThresholds(ctx context.Context, updates []qa.ThresholdUpdate, user, reason string) (map[string]bool, error) {
	ed := s.Editor()
	if err := ed.LoadThresholds(ctx); err != nil {
		return nil, err
	}
	var errs []error
	for _, u := range updates {
		if _, err := ed.SetThreshold(u.Name, u.Value); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ed.SaveThresholds(ctx, user, reason)
}

// Reset restores the backend defaults and returns the reloaded settings.
func (s *Settings) Reset(ctx context.Context) (qa.LLMInvocationSettings, error) {
	ed := s.Editor()
	if err := ed.ResetLLM(ctx); err != nil {
		return qa.LLMInvocationSettings{}, err
	}
	return ed.LLM(), nil
}

// ApplyThreshold clamps and saves a single threshold with its own backend call.
// It returns the stored value and whether a save was needed.
func (s *Settings) ApplyThreshold(ctx context.Context, name string, value float64, user, reason string) (float64, bool, error) {
	ed := s.Editor()
	if err := ed.LoadThresholds(ctx); err != nil {
		return 0, false, err
	}
	stored, err := ed.SetThreshold(name, value)
	if err != nil {
		return 0, false, err
	}
	saved, err := ed.SaveThreshold(ctx, name, user, reason)
	return stored, saved, err
}

// Simulate evaluates raw against the current backend settings, optionally overridden by upd.
// Malformed samples fail with settings.ErrInvalidJSON before any backend call.
func (s *Settings) Simulate(ctx context.Context, upd LLMUpdate, raw []byte) (qa.LLMDecision, error) {
	ed, err := s.draft(ctx, upd, raw)
	if err != nil {
		return qa.LLMDecision{}, err
	}
	return ed.Simulate(raw)
}

// SimulateRemote asks the backend to evaluate the same draft, so operators can
// compare its decision with the local one.
func (s *Settings) SimulateRemote(ctx context.Context, upd LLMUpdate, raw []byte) (qa.LLMDecision, error) {
	ed, err := s.draft(ctx, upd, raw)
	if err != nil {
		return qa.LLMDecision{}, err
	}
	llm := ed.LLM()
	decision, err := s.api.SimulateLLMDecision(ctx, backend.SimulationRequest{
		Mode:        llm.Mode,
		Threshold:   settings.ThresholdFor(llm),
		SampleInput: json.RawMessage(bytes.TrimSpace(raw)),
		RuleWeights: llm.RuleWeights,
	})
	if err != nil {
		s.logger.Warn("backend simulation failed", zap.Error(err))
		return qa.LLMDecision{}, err
	}
	return decision, nil
}

// draft loads the backend settings into a fresh editor and applies upd on top.
func (s *Settings) draft(ctx context.Context, upd LLMUpdate, raw []byte) (*settings.Editor, error) {
	if _, err := settings.ParseSample(raw); err != nil {
		return nil, err
	}
	ed := s.Editor()
	if err := ed.LoadLLM(ctx); err != nil {
		s.logger.Warn("simulate with default settings", zap.Error(err))
	}
	if upd.Mode != nil {
		if err := ed.SetMode(*upd.Mode); err != nil {
			return nil, err
		}
	}
	if upd.PercentageThreshold != nil {
		_, _ = ed.SetLLMThreshold(settings.FieldPercentage, *upd.PercentageThreshold)
	}
	if upd.WeightedThreshold != nil {
		_, _ = ed.SetLLMThreshold(settings.FieldWeighted, *upd.WeightedThreshold)
	}
	if upd.RangeMinThreshold != nil {
		_, _ = ed.SetLLMThreshold(settings.FieldRangeMin, *upd.RangeMinThreshold)
	}
	if upd.RangeMaxThreshold != nil {
		_, _ = ed.SetLLMThreshold(settings.FieldRangeMax, *upd.RangeMaxThreshold)
	}
	for rule, w := range upd.RuleWeights {
		ed.SetRuleWeight(rule, w)
	}
	return ed, nil
}
