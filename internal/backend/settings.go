package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go-indexing-qa-console/internal/qa"
)

// ThresholdPatch carries the per-mode thresholds to change. Nil fields are left alone.
type ThresholdPatch struct {
	PercentageThreshold *float64           `json:"percentage_threshold,omitempty"`
	WeightedThreshold   *float64           `json:"weighted_threshold,omitempty"`
	RangeMinThreshold   *float64           `json:"range_min_threshold,omitempty"`
	RangeMaxThreshold   *float64           `json:"range_max_threshold,omitempty"`
	RuleWeights         map[string]float64 `json:"rule_weights,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ThresholdPatch) Empty() bool {
	return p.PercentageThreshold == nil && p.WeightedThreshold == nil &&
		p.RangeMinThreshold == nil && p.RangeMaxThreshold == nil && len(p.RuleWeights) == 0
}

// SimulationRequest asks the backend to evaluate an invocation policy against a sample.
type SimulationRequest struct {
	Mode        qa.LLMMode         `json:"mode"`
	Threshold   float64            `json:"threshold"`
	SampleInput json.RawMessage    `json:"sample_input"`
	RuleWeights map[string]float64 `json:"rule_weights,omitempty"`
}

func (c *Client) GetLLMSettings(ctx context.Context) (qa.LLMInvocationSettings, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/settings/llm-mode", nil, &raw); err != nil {
		return qa.LLMInvocationSettings{}, err
	}
	settings := qa.DefaultLLMSettings()
	if err := json.Unmarshal(unwrapObject(raw, "settings", "data"), &settings); err != nil {
		return qa.LLMInvocationSettings{}, fmt.Errorf("decode /settings/llm-mode: %w", err)
	}
	if settings.RuleWeights == nil {
		settings.RuleWeights = map[string]float64{}
	}
	return settings, nil
}

func (c *Client) GetLLMSettingsHistory(ctx context.Context) ([]qa.SettingsChange, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/settings/llm-mode/history", nil, &raw); err != nil {
		return nil, err
	}
	changes, _, err := decodeList[qa.SettingsChange](raw, "history", "changes")
	return changes, err
}

func (c *Client) UpdateLLMMode(ctx context.Context, mode qa.LLMMode, user, reason string) (map[string]any, error) {
	body := map[string]any{
		"mode":       mode,
		"changed_by": user,
		"reason":     reason,
	}
	var out map[string]any
	err := c.do(ctx, http.MethodPost, "/settings/llm-mode", nil, body, &out)
	return out, err
}

func (c *Client) UpdateLLMThresholds(ctx context.Context, patch ThresholdPatch, user, reason string) (map[string]any, error) {
	body := struct {
		ThresholdPatch
		ChangedBy string `json:"changed_by"`
		Reason    string `json:"reason,omitempty"`
	}{ThresholdPatch: patch, ChangedBy: user, Reason: reason}
	var out map[string]any
	err := c.do(ctx, http.MethodPatch, "/settings/llm-thresholds", nil, body, &out)
	return out, err
}

func (c *Client) ResetLLMSettings(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, "/settings/llm-mode/reset", nil, nil, &out)
	return out, err
}

func (c *Client) SimulateLLMDecision(ctx context.Context, req SimulationRequest) (qa.LLMDecision, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/settings/llm-mode/simulate", nil, req, &raw); err != nil {
		return qa.LLMDecision{}, err
	}
	var decision qa.LLMDecision
	if err := json.Unmarshal(unwrapObject(raw, "decision", "data"), &decision); err != nil {
		return qa.LLMDecision{}, fmt.Errorf("decode simulate: %w", err)
	}
	return decision, nil
}

func (c *Client) GetThresholds(ctx context.Context) ([]qa.Threshold, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/thresholds", nil, &raw); err != nil {
		return nil, err
	}
	thresholds, _, err := decodeList[qa.Threshold](raw, "thresholds")
	return thresholds, err
}

func (c *Client) UpdateThreshold(ctx context.Context, name string, value float64, user, reason string) (map[string]any, error) {
	body := map[string]any{
		"new_value":  value,
		"changed_by": user,
		"reason":     reason,
	}
	var out map[string]any
	err := c.do(ctx, http.MethodPut, "/thresholds/"+url.PathEscape(name), nil, body, &out)
	return out, err
}

// BulkUpdateThresholds saves several thresholds in one call and returns per-name success.
func (c *Client) BulkUpdateThresholds(ctx context.Context, updates []qa.ThresholdUpdate, user, reason string) (map[string]bool, error) {
	type wireUpdate struct {
		Name  string  `json:"threshold_name"`
		Value float64 `json:"new_value"`
	}
	wire := make([]wireUpdate, 0, len(updates))
	for _, u := range updates {
		wire = append(wire, wireUpdate{Name: u.Name, Value: u.Value})
	}
	body := map[string]any{
		"updates":    wire,
		"changed_by": user,
		"reason":     reason,
	}
	var out struct {
		Results map[string]bool `json:"results"`
	}
	if err := c.do(ctx, http.MethodPut, "/thresholds", nil, body, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = map[string]bool{}
	}
	return out.Results, nil
}
