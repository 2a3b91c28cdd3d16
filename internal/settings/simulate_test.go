package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-indexing-qa-console/internal/qa"
)

func checks(statuses ...qa.CheckStatus) Sample {
	s := Sample{}
	names := []string{"empty_tags", "spam_patterns", "text_quality", "tag_count_validation", "stopwords_detection"}
	for i, st := range statuses {
		s.QualityChecks = append(s.QualityChecks, qa.QualityCheck{CheckName: names[i%len(names)], Status: st})
	}
	return s
}

func TestSimulateBinary(t *testing.T) {
	s := qa.DefaultLLMSettings()
	assert.True(t, Simulate(s, checks(qa.CheckPass, qa.CheckPass)).ShouldInvokeLLM)

	d := Simulate(s, checks(qa.CheckPass, qa.CheckFail))
	assert.False(t, d.ShouldInvokeLLM)
	assert.Equal(t, "1 of 2 rules failed", d.Reason)
}

func TestSimulatePercentage(t *testing.T) {
	s := qa.DefaultLLMSettings()
	s.Mode = qa.ModePercentage
	s.PercentageThreshold = 80

	d := Simulate(s, checks(qa.CheckPass, qa.CheckPass, qa.CheckPass, qa.CheckPass, qa.CheckFail))
	assert.True(t, d.ShouldInvokeLLM)
	assert.Equal(t, 80.0, d.Score)

	d = Simulate(s, checks(qa.CheckPass, qa.CheckPass, qa.CheckPass, qa.CheckFail, qa.CheckFail))
	assert.False(t, d.ShouldInvokeLLM)
}

func TestSimulateWeightedDefaultsMissingWeights(t *testing.T) {
	s := qa.DefaultLLMSettings()
	s.Mode = qa.ModeWeighted
	s.WeightedThreshold = 0.7
	s.RuleWeights = map[string]float64{"spam_patterns": 3}

	// empty_tags passes (1.0), spam_patterns fails (3.0): 1/4.
	d := Simulate(s, checks(qa.CheckPass, qa.CheckFail))
	assert.False(t, d.ShouldInvokeLLM)
	assert.Equal(t, 0.25, d.Score)

	d = Simulate(s, checks(qa.CheckFail, qa.CheckPass))
	assert.True(t, d.ShouldInvokeLLM)
	assert.Equal(t, 0.75, d.Score)
}

func TestSimulateRangeGrayZone(t *testing.T) {
	s := qa.DefaultLLMSettings()
	s.Mode = qa.ModeRange
	s.RangeMinThreshold = 60
	s.RangeMaxThreshold = 80

	inside := Simulate(s, checks(qa.CheckPass, qa.CheckPass, qa.CheckPass, qa.CheckPass, qa.CheckFail))
	assert.True(t, inside.ShouldInvokeLLM)

	above := Simulate(s, checks(qa.CheckPass, qa.CheckPass))
	assert.False(t, above.ShouldInvokeLLM)

	below := Simulate(s, checks(qa.CheckPass, qa.CheckFail, qa.CheckFail))
	assert.False(t, below.ShouldInvokeLLM)
}

func TestSimulateSkipsSkippedChecks(t *testing.T) {
	d := Simulate(qa.DefaultLLMSettings(), checks(qa.CheckPass, qa.CheckSkipped))
	assert.True(t, d.ShouldInvokeLLM)
	assert.Equal(t, 1, d.TotalChecks)

	empty := Simulate(qa.DefaultLLMSettings(), Sample{})
	assert.False(t, empty.ShouldInvokeLLM)
	assert.NotEmpty(t, empty.Reason)
}

func TestParseSampleShapes(t *testing.T) {
	s, err := ParseSample([]byte(`{"checks":[{"check_name":"a","status":"pass"}]}`))
	require.NoError(t, err)
	require.Len(t, s.QualityChecks, 1)
	assert.Equal(t, qa.CheckPass, s.QualityChecks[0].Status)

	_, err = ParseSample([]byte("  "))
	assert.ErrorIs(t, err, ErrInvalidJSON)

	_, err = ParseSample([]byte(`{nope}`))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}
