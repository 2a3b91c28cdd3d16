package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go-indexing-qa-console/internal/qa"
)

// ErrInvalidJSON is returned when a simulation sample does not parse.
var ErrInvalidJSON = errors.New("Invalid JSON")

// Sample is the input of a local decision simulation.
type Sample struct {
	QualityChecks []qa.QualityCheck `json:"quality_checks"`
}

// ParseSample accepts {"quality_checks":[...]}, {"checks":[...]} or a bare array of checks.
func ParseSample(raw []byte) (Sample, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Sample{}, fmt.Errorf("%w: empty sample", ErrInvalidJSON)
	}
	if raw[0] == '[' {
		var checks []qa.QualityCheck
		if err := json.Unmarshal(raw, &checks); err != nil {
			return Sample{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		return Sample{QualityChecks: checks}, nil
	}
	var obj struct {
		QualityChecks []qa.QualityCheck `json:"quality_checks"`
		Checks        []qa.QualityCheck `json:"checks"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if len(obj.QualityChecks) == 0 {
		obj.QualityChecks = obj.Checks
	}
	return Sample{QualityChecks: obj.QualityChecks}, nil
}

// ThresholdFor returns the threshold the given mode compares against.
func ThresholdFor(s qa.LLMInvocationSettings) float64 {
	switch s.Mode {
	case qa.ModePercentage:
		return s.PercentageThreshold
	case qa.ModeWeighted:
		return s.WeightedThreshold
	case qa.ModeRange:
		return s.RangeMinThreshold
	default:
		return 100
	}
}

// Simulate decides locally whether the backend would add the LLM check for sample.
// Skipped checks do not count.
func Simulate(s qa.LLMInvocationSettings, sample Sample) qa.LLMDecision {
	d := qa.LLMDecision{ModeUsed: s.Mode, ThresholdUsed: ThresholdFor(s)}

	var weightTotal, weightPassed float64
	for _, c := range sample.QualityChecks {
		if c.Status == qa.CheckSkipped {
			continue
		}
		w := 1.0
		if v, ok := s.RuleWeights[c.CheckName]; ok {
			w = v
		}
		d.TotalChecks++
		weightTotal += w
		if c.Passed() {
			d.PassedChecks++
			weightPassed += w
		}
	}
	if d.TotalChecks == 0 {
		d.Reason = "no quality checks in sample"
		return d
	}

	passPct := float64(d.PassedChecks) / float64(d.TotalChecks) * 100
	d.Confidence = round2(passPct / 100)

	switch s.Mode {
	case qa.ModePercentage:
		d.Score = round2(passPct)
		d.ShouldInvokeLLM = passPct >= s.PercentageThreshold
		d.Reason = fmt.Sprintf("%.1f%% of rules passed, threshold %.1f%%", passPct, s.PercentageThreshold)
	case qa.ModeWeighted:
		ratio := 0.0
		if weightTotal > 0 {
			ratio = weightPassed / weightTotal
		}
		d.Score = round2(ratio)
		d.ShouldInvokeLLM = ratio >= s.WeightedThreshold
		d.Reason = fmt.Sprintf("weighted pass ratio %.2f, threshold %.2f", ratio, s.WeightedThreshold)
	case qa.ModeRange:
		d.Score = round2(passPct)
		d.ShouldInvokeLLM = passPct >= s.RangeMinThreshold && passPct <= s.RangeMaxThreshold
		if d.ShouldInvokeLLM {
			d.Reason = fmt.Sprintf("%.1f%% is inside the gray zone %.1f-%.1f%%", passPct, s.RangeMinThreshold, s.RangeMaxThreshold)
		} else {
			d.Reason = fmt.Sprintf("%.1f%% is outside the gray zone %.1f-%.1f%%", passPct, s.RangeMinThreshold, s.RangeMaxThreshold)
		}
	default:
		d.ModeUsed = qa.ModeBinary
		d.Score = round2(passPct)
		d.ShouldInvokeLLM = d.PassedChecks == d.TotalChecks
		if d.ShouldInvokeLLM {
			d.Reason = "all rules passed"
		} else {
			d.Reason = fmt.Sprintf("%d of %d rules failed", d.TotalChecks-d.PassedChecks, d.TotalChecks)
		}
	}
	return d
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
