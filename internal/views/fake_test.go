package views

import (
	"context"
	"errors"
	"sync"

	"go-indexing-qa-console/internal/backend"
	"go-indexing-qa-console/internal/qa"
)

var errBoom = errors.New("boom")

// fakeAPI implements every view interface with canned data and call counting.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	deadLetters  []qa.DeadLetterRecord
	records      []qa.QualityRecord
	issues       []qa.QualityIssue
	failing      map[string]error
	failFixIDs   map[string]bool
	llm          qa.LLMInvocationSettings
	thresholds   []qa.Threshold
	lastFilters  qa.RecordFilters
	lastTagInput []string

	lastIngest     backend.IngestRequest
	lastPayload    map[string]any
	lastSimulation backend.SimulationRequest
	singleUpdates  []qa.ThresholdUpdate
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls:      map[string]int{},
		failing:    map[string]error{},
		failFixIDs: map[string]bool{},
		llm:        qa.DefaultLLMSettings(),
	}
}

func (f *fakeAPI) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.failing[name]
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) GetDeadLetters(context.Context, qa.DeadLetterQuery) (qa.DeadLetterPage, error) {
	if err := f.hit("GetDeadLetters"); err != nil {
		return qa.DeadLetterPage{}, err
	}
	return qa.DeadLetterPage{Records: append([]qa.DeadLetterRecord(nil), f.deadLetters...), Total: len(f.deadLetters)}, nil
}

func (f *fakeAPI) GetDeadLettersStats(context.Context, int) (qa.DeadLetterStats, error) {
	if err := f.hit("GetDeadLettersStats"); err != nil {
		return qa.DeadLetterStats{}, err
	}
	s := qa.DefaultDeadLetterStats()
	s.TotalCount = len(f.deadLetters)
	s.UnresolvedCount = len(f.deadLetters)
	return s, nil
}

func (f *fakeAPI) GetDeadLettersFilterOptions(context.Context) (qa.DeadLetterFilterOptions, error) {
	if err := f.hit("GetDeadLettersFilterOptions"); err != nil {
		return qa.DeadLetterFilterOptions{}, err
	}
	return qa.DeadLetterFilterOptions{ErrorTypes: []qa.FilterOption{{Value: "validation_error", Label: "validation_error"}}}, nil
}

func (f *fakeAPI) RetryDeadLetter(_ context.Context, id string) (map[string]any, error) {
	if err := f.hit("RetryDeadLetter"); err != nil {
		return nil, err
	}
	f.removeDeadLetter(id)
	return map[string]any{"success": true}, nil
}

func (f *fakeAPI) ResolveDeadLetter(_ context.Context, id string) (map[string]any, error) {
	if err := f.hit("ResolveDeadLetter"); err != nil {
		return nil, err
	}
	f.removeDeadLetter(id)
	return map[string]any{"success": true}, nil
}

func (f *fakeAPI) DeleteDeadLetter(_ context.Context, id string) error {
	if err := f.hit("DeleteDeadLetter"); err != nil {
		return err
	}
	f.removeDeadLetter(id)
	return nil
}

func (f *fakeAPI) removeDeadLetter(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.deadLetters[:0]
	for _, d := range f.deadLetters {
		if d.ID != id {
			out = append(out, d)
		}
	}
	f.deadLetters = out
}

func (f *fakeAPI) GetQualityRecords(_ context.Context, filters qa.RecordFilters, _ qa.Pagination) (qa.RecordPage, error) {
	if err := f.hit("GetQualityRecords"); err != nil {
		return qa.RecordPage{}, err
	}
	f.mu.Lock()
	f.lastFilters = filters
	f.mu.Unlock()
	return qa.RecordPage{Records: append([]qa.QualityRecord(nil), f.records...), Total: len(f.records)}, nil
}

func (f *fakeAPI) GetFilterOptions(context.Context) (backend.FilterOptions, error) {
	if err := f.hit("GetFilterOptions"); err != nil {
		return backend.FilterOptions{}, err
	}
	return backend.FilterOptions{Companies: []qa.FilterOption{{Value: "Acme", Label: "Acme"}}}, nil
}

func (f *fakeAPI) ApproveRecord(context.Context, string, string, string) (map[string]any, error) {
	return nil, f.hit("ApproveRecord")
}

func (f *fakeAPI) FlagRecord(context.Context, string, string, string) (map[string]any, error) {
	return nil, f.hit("FlagRecord")
}

func (f *fakeAPI) UpdateRecordContent(_ context.Context, _ string, _ string, tags []string, _, _ string) (map[string]any, error) {
	f.mu.Lock()
	f.lastTagInput = tags
	f.mu.Unlock()
	return nil, f.hit("UpdateRecordContent")
}

func (f *fakeAPI) ReprocessRecord(context.Context, string, string, []string, string, string) (map[string]any, error) {
	return nil, f.hit("ReprocessRecord")
}

func (f *fakeAPI) GetAuditTrail(context.Context, string) ([]qa.AuditEntry, error) {
	if err := f.hit("GetAuditTrail"); err != nil {
		return nil, err
	}
	return []qa.AuditEntry{{Action: "approve", User: "admin"}}, nil
}

func (f *fakeAPI) GetTagSuggestions(context.Context, string, []string) ([]string, error) {
	if err := f.hit("GetTagSuggestions"); err != nil {
		return nil, err
	}
	return []string{"Finance", "Payroll", "budget"}, nil
}

func (f *fakeAPI) GetIssues(context.Context) ([]qa.QualityIssue, error) {
	if err := f.hit("GetIssues"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]qa.QualityIssue(nil), f.issues...), nil
}

func (f *fakeAPI) AutoFixIssue(_ context.Context, id string) (map[string]any, error) {
	if err := f.hit("AutoFixIssue"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFixIDs[id] {
		return nil, errBoom
	}
	return map[string]any{"fixed": id}, nil
}

func (f *fakeAPI) GetStats(context.Context) (qa.Stats, error) {
	if err := f.hit("GetStats"); err != nil {
		return qa.Stats{}, err
	}
	return qa.Stats{TotalRecords: 42}, nil
}

func (f *fakeAPI) GetDashboardAnalytics(context.Context) (map[string]any, error) {
	if err := f.hit("GetDashboardAnalytics"); err != nil {
		return nil, err
	}
	return map[string]any{"quality_trend": []any{}}, nil
}

func (f *fakeAPI) GetHealth(context.Context) (map[string]any, error) {
	if err := f.hit("GetHealth"); err != nil {
		return nil, err
	}
	return map[string]any{"status": "healthy"}, nil
}

func (f *fakeAPI) GetLLMSettings(context.Context) (qa.LLMInvocationSettings, error) {
	if err := f.hit("GetLLMSettings"); err != nil {
		return qa.LLMInvocationSettings{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.llm.Clone(), nil
}

func (f *fakeAPI) GetLLMSettingsHistory(context.Context) ([]qa.SettingsChange, error) {
	if err := f.hit("GetLLMSettingsHistory"); err != nil {
		return nil, err
	}
	return []qa.SettingsChange{{Mode: qa.ModeBinary, ChangedBy: "admin"}}, nil
}

func (f *fakeAPI) UpdateLLMMode(_ context.Context, mode qa.LLMMode, _, _ string) (map[string]any, error) {
	if err := f.hit("UpdateLLMMode"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.llm.Mode = mode
	f.mu.Unlock()
	return map[string]any{}, nil
}

func (f *fakeAPI) UpdateLLMThresholds(_ context.Context, p backend.ThresholdPatch, _, _ string) (map[string]any, error) {
	if err := f.hit("UpdateLLMThresholds"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.PercentageThreshold != nil {
		f.llm.PercentageThreshold = *p.PercentageThreshold
	}
	if p.RangeMinThreshold != nil {
		f.llm.RangeMinThreshold = *p.RangeMinThreshold
	}
	if p.RangeMaxThreshold != nil {
		f.llm.RangeMaxThreshold = *p.RangeMaxThreshold
	}
	return map[string]any{}, nil
}

func (f *fakeAPI) ResetLLMSettings(context.Context) (map[string]any, error) {
	if err := f.hit("ResetLLMSettings"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.llm = qa.DefaultLLMSettings()
	f.mu.Unlock()
	return map[string]any{}, nil
}

func (f *fakeAPI) GetThresholds(context.Context) ([]qa.Threshold, error) {
	if err := f.hit("GetThresholds"); err != nil {
		return nil, err
	}
	return append([]qa.Threshold(nil), f.thresholds...), nil
}

func (f *fakeAPI) BulkUpdateThresholds(_ context.Context, updates []qa.ThresholdUpdate, _, _ string) (map[string]bool, error) {
	if err := f.hit("BulkUpdateThresholds"); err != nil {
		return nil, err
	}
	out := map[string]bool{}
	for _, u := range updates {
		out[u.Name] = true
	}
	return out, nil
}

func (f *fakeAPI) GetCompanies(context.Context) ([]qa.FilterOption, error) {
	if err := f.hit("GetCompanies"); err != nil {
		return nil, err
	}
	return []qa.FilterOption{}, nil
}

func (f *fakeAPI) GetConnectors(context.Context) ([]qa.FilterOption, error) {
	if err := f.hit("GetConnectors"); err != nil {
		return nil, err
	}
	return []qa.FilterOption{}, nil
}

func (f *fakeAPI) UpdateThreshold(_ context.Context, name string, value float64, _, _ string) (map[string]any, error) {
	if err := f.hit("UpdateThreshold"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.singleUpdates = append(f.singleUpdates, qa.ThresholdUpdate{Name: name, Value: value})
	f.mu.Unlock()
	return map[string]any{"success": true}, nil
}

func (f *fakeAPI) SimulateLLMDecision(_ context.Context, req backend.SimulationRequest) (qa.LLMDecision, error) {
	if err := f.hit("SimulateLLMDecision"); err != nil {
		return qa.LLMDecision{}, err
	}
	f.mu.Lock()
	f.lastSimulation = req
	f.mu.Unlock()
	return qa.LLMDecision{ShouldInvokeLLM: true, ModeUsed: req.Mode, ThresholdUsed: req.Threshold, Reason: "backend"}, nil
}

func (f *fakeAPI) GetRecords(_ context.Context, filters qa.RecordFilters, p qa.Pagination) (qa.RecordPage, error) {
	if err := f.hit("GetRecords"); err != nil {
		return qa.RecordPage{}, err
	}
	f.mu.Lock()
	f.lastFilters = filters
	f.mu.Unlock()
	return qa.RecordPage{Records: append([]qa.QualityRecord(nil), f.records...), Total: len(f.records), Page: p.Page, Limit: p.Limit}, nil
}

func (f *fakeAPI) IngestContent(_ context.Context, req backend.IngestRequest) (map[string]any, error) {
	if err := f.hit("IngestContent"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastIngest = req
	f.mu.Unlock()
	return map[string]any{"record_id": req.RecordID, "status": "under_review"}, nil
}

func (f *fakeAPI) payloadCall(name string, payload map[string]any) (map[string]any, error) {
	if err := f.hit(name); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastPayload = payload
	f.mu.Unlock()
	return map[string]any{"endpoint": name}, nil
}

func (f *fakeAPI) CheckRules(_ context.Context, p map[string]any) (map[string]any, error) {
	return f.payloadCall("CheckRules", p)
}

func (f *fakeAPI) AnalyzeLLM(_ context.Context, p map[string]any) (map[string]any, error) {
	return f.payloadCall("AnalyzeLLM", p)
}

func (f *fakeAPI) RedTeamAnalysis(_ context.Context, p map[string]any) (map[string]any, error) {
	return f.payloadCall("RedTeamAnalysis", p)
}

func (f *fakeAPI) SubmitFeedback(_ context.Context, p map[string]any) (map[string]any, error) {
	return f.payloadCall("SubmitFeedback", p)
}
