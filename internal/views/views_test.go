package views

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-indexing-qa-console/internal/backend"
	"go-indexing-qa-console/internal/qa"
	"go-indexing-qa-console/internal/settings"
)

func deadLetterFixture() []qa.DeadLetterRecord {
	return []qa.DeadLetterRecord{
		{ID: "dl-1", ErrorType: "validation_error", SourceConnector: "Jira"},
		{ID: "dl-2", ErrorType: "timeout", SourceConnector: "Jira", RetryCount: 2},
		{ID: "dl-3", ErrorType: "timeout"},
	}
}

func TestDeadLettersRetrySuccessRefreshesOnce(t *testing.T) {
	api := newFakeAPI()
	api.deadLetters = deadLetterFixture()
	c := NewDeadLetters(api, nil, 24)

	c.Load(context.Background(), qa.DeadLetterQuery{})
	require.Equal(t, 1, api.count("GetDeadLetters"))
	require.Equal(t, 1, api.count("GetDeadLettersStats"))

	require.NoError(t, c.Retry(context.Background(), "dl-2"))
	assert.Equal(t, 2, api.count("GetDeadLetters"))
	assert.Equal(t, 2, api.count("GetDeadLettersStats"))

	st := c.State()
	assert.Len(t, st.Records, 2)
	require.NotNil(t, st.LastAction)
	assert.True(t, st.LastAction.OK)
	assert.Equal(t, "retry", st.LastAction.Action)
}

func TestDeadLettersFailedMutationDoesNotRefresh(t *testing.T) {
	api := newFakeAPI()
	api.deadLetters = deadLetterFixture()
	c := NewDeadLetters(api, nil, 24)
	c.Load(context.Background(), qa.DeadLetterQuery{})

	api.failing["ResolveDeadLetter"] = &backend.APIError{Status: 404, Body: "not found"}
	err := c.Resolve(context.Background(), "dl-1")
	require.Error(t, err)
	assert.Equal(t, 404, backend.StatusOf(err))

	assert.Equal(t, 1, api.count("GetDeadLetters"))
	assert.Equal(t, 1, api.count("GetDeadLettersStats"))
	st := c.State()
	assert.Len(t, st.Records, 3)
	require.NotNil(t, st.LastAction)
	assert.False(t, st.LastAction.OK)
	assert.NotEmpty(t, st.LastAction.Error)
}

func TestDeadLettersDeleteAndResolve(t *testing.T) {
	api := newFakeAPI()
	api.deadLetters = deadLetterFixture()
	c := NewDeadLetters(api, nil, 24)

	require.NoError(t, c.Delete(context.Background(), "dl-1"))
	require.NoError(t, c.Resolve(context.Background(), "dl-3"))
	assert.Len(t, c.State().Records, 1)
	assert.Equal(t, 2, api.count("GetDeadLettersStats"))
}

func TestDeadLettersStatsFallback(t *testing.T) {
	api := newFakeAPI()
	api.deadLetters = deadLetterFixture()
	api.failing["GetDeadLettersStats"] = errBoom
	c := NewDeadLetters(api, nil, 24)

	st := c.Load(context.Background(), qa.DeadLetterQuery{})
	assert.True(t, st.StatsDerived)
	assert.Equal(t, 3, st.Stats.UnresolvedCount)
	assert.Equal(t, 0, st.Stats.ResolvedCount)
	assert.Equal(t, 2, st.Stats.ByErrorType["timeout"])
	assert.Empty(t, st.Error)
}

func TestDeadLettersListFailureDegrades(t *testing.T) {
	api := newFakeAPI()
	api.failing["GetDeadLetters"] = errBoom
	c := NewDeadLetters(api, nil, 24)

	st := c.Load(context.Background(), qa.DeadLetterQuery{})
	assert.NotNil(t, st.Records)
	assert.Empty(t, st.Records)
	assert.Equal(t, "boom", st.Error)

	opts := c.LoadOptions(context.Background())
	assert.Len(t, opts.ErrorTypes, 1)
}

func TestFiltersToggleAndSet(t *testing.T) {
	f := NewFilters()
	assert.Equal(t, []string{"Acme"}, f.Toggle(DimCompany, "Acme"))
	assert.Equal(t, []string{"Acme", "Beta"}, f.Toggle(DimCompany, "Beta"))
	assert.Equal(t, []string{"Beta"}, f.Toggle(DimCompany, "Acme"))
	assert.Equal(t, []string{"flagged"}, f.Set(DimStatus, []string{"flagged", " ", "flagged"}))
	f.SetSearch("  payroll ")

	rf := f.RecordFilters()
	assert.Equal(t, []string{"Beta"}, rf.Companies)
	assert.Equal(t, "payroll", rf.Search)
	assert.Equal(t, 3, f.Active())

	f.Clear()
	assert.Zero(t, f.Active())
	assert.Nil(t, f.Selected(DimCompany))
}

func TestDashboardAppliesCallerFilters(t *testing.T) {
	api := newFakeAPI()
	api.records = []qa.QualityRecord{{ID: "r1", Status: qa.StatusApproved, QualityScore: 90}}
	filters := NewFilters()
	filters.Toggle(DimConnector, "Jira")
	filters.SetDateRange("2024-01-01", " 2024-01-31 ")
	d := NewDashboard(api, nil, 50)

	view := d.Load(context.Background(), filters)
	assert.Equal(t, 42, view.Stats.TotalRecords)
	assert.Equal(t, 1, view.Summary.Approved)
	assert.Len(t, view.Trend, 7)
	assert.Equal(t, []string{"Jira"}, api.lastFilters.Connectors)
	assert.Equal(t, "2024-01-01", api.lastFilters.DateFrom)
	assert.Equal(t, "2024-01-31", api.lastFilters.DateTo)
	assert.Equal(t, "2024-01-31", view.DateTo)
	assert.Equal(t, 2, filters.Active())
	assert.Empty(t, view.Errors)

	d.Load(context.Background(), nil)
	assert.Empty(t, api.lastFilters.Connectors, "a load without a selection is unfiltered")
	assert.Empty(t, api.lastFilters.DateFrom)
}

func TestDashboardSectionFailureIsIsolated(t *testing.T) {
	api := newFakeAPI()
	api.records = []qa.QualityRecord{{ID: "r1", Status: qa.StatusFlagged, QualityScore: 40}}
	api.failing["GetStats"] = errBoom
	d := NewDashboard(api, nil, 50)

	view := d.Load(context.Background(), nil)
	assert.Equal(t, "boom", view.Errors["stats"])
	assert.Equal(t, 1, view.Stats.TotalRecords, "stats fall back to the summary")
	assert.Equal(t, 1, view.Stats.FlaggedRecords)
	assert.NotNil(t, view.Analytics)
}

func TestIssuesBulkAutoFixAnyFailureFailsBatch(t *testing.T) {
	api := newFakeAPI()
	api.issues = []qa.QualityIssue{
		{ID: "i1", Severity: qa.SeverityLow, AutoFixable: true},
		{ID: "i2", Severity: qa.SeverityCritical, AutoFixable: true},
		{ID: "i3", Severity: qa.SeverityHigh},
	}
	api.failFixIDs["i2"] = true
	c := NewIssues(api, nil, 2)

	st := c.Load(context.Background())
	assert.Equal(t, "i2", st.Issues[0].ID)
	assert.Equal(t, 2, st.AutoFixable)

	res := c.AutoFixAll(context.Background(), nil)
	assert.True(t, res.Failed)
	assert.Equal(t, 2, res.Requested)
	assert.Equal(t, []string{"i1"}, res.Fixed)
	assert.Contains(t, res.Errors, "i2")
}

func TestIssuesAutoFixReloads(t *testing.T) {
	api := newFakeAPI()
	api.issues = []qa.QualityIssue{{ID: "i1", AutoFixable: true}}
	c := NewIssues(api, nil, 0)

	require.NoError(t, c.AutoFix(context.Background(), "i1"))
	assert.Equal(t, 1, api.count("GetIssues"))

	res := c.AutoFixAll(context.Background(), []string{"i1"})
	assert.False(t, res.Failed)
	assert.Equal(t, []string{"i1"}, res.Fixed)
}

func TestRecordsActionsUpdateLocalState(t *testing.T) {
	api := newFakeAPI()
	api.records = []qa.QualityRecord{{ID: "r1", Status: qa.StatusUnderReview}}
	c := NewRecords(api, nil, 0)
	st := c.Load(context.Background(), qa.RecordFilters{}, qa.Pagination{})
	assert.Equal(t, 50, st.Pagination.Limit)
	assert.Equal(t, 1, st.Pagination.Page)

	require.NoError(t, c.Approve(context.Background(), "r1", "admin", "ok"))
	assert.Equal(t, qa.StatusApproved, c.State().Records[0].Status)

	require.NoError(t, c.EditContent(context.Background(), "r1", "new body", "a, b,", "admin", ""))
	assert.Equal(t, []string{"a", "b"}, api.lastTagInput)
	assert.Equal(t, "new body", c.State().Records[0].Content)

	api.failing["FlagRecord"] = errBoom
	require.Error(t, c.Flag(context.Background(), "r1", "admin", ""))
	assert.Equal(t, qa.StatusApproved, c.State().Records[0].Status)
	assert.False(t, c.State().LastAction.OK)
}

func TestRecordsSuggestTagsDropsExisting(t *testing.T) {
	c := NewRecords(newFakeAPI(), nil, 10)
	got, err := c.SuggestTags(context.Background(), "content", "finance")
	require.NoError(t, err)
	assert.Equal(t, []string{"Payroll", "budget"}, got)
}

func TestBuildLLMCard(t *testing.T) {
	r := qa.QualityRecord{
		ID:            "r1",
		LLMConfidence: 0,
		QualityChecks: []qa.QualityCheck{
			{CheckName: "empty_tags", Status: qa.CheckPass},
			{CheckName: "llm_semantic_validation", Status: qa.CheckPass,
				CheckMetadata: map[string]any{"llm_suggestions": []any{"add a summary"}}},
		},
	}
	card := BuildLLMCard(r)
	assert.True(t, card.Triggered)
	assert.Equal(t, []string{"add a summary"}, card.Suggestions)
	assert.Len(t, card.Checks, 1)

	assert.False(t, BuildLLMCard(qa.QualityRecord{ID: "x"}).Triggered)
}

func TestAnalyticsLoadAppliesWindowAndFilters(t *testing.T) {
	api := newFakeAPI()
	now := time.Now()
	api.records = []qa.QualityRecord{
		{CompanyName: "Acme", CreatedAt: qa.Timestamp{Time: now}, QualityScore: 80},
		{CompanyName: "Beta", CreatedAt: qa.Timestamp{Time: now}, QualityScore: 20},
	}
	a := NewAnalytics(api, nil)

	view := a.Load(context.Background(), 30, "Acme", "")
	assert.Equal(t, 30, view.Window)
	assert.Len(t, view.Trend, 30)
	assert.Equal(t, 1, view.RecordCount)

	api.failing["GetQualityRecords"] = errBoom
	view = a.Load(context.Background(), 5, "", "")
	assert.Equal(t, 7, view.Window)
	assert.Len(t, view.Trend, 7)
	assert.Equal(t, "boom", view.Error)
}

func TestSettingsApplyLLMAndPage(t *testing.T) {
	api := newFakeAPI()
	api.thresholds = []qa.Threshold{{Name: "t1", CurrentValue: 1, MinValue: 0, MaxValue: 10}}
	s := NewSettings(api, nil)

	mode := qa.ModeRange
	lo, hi := 65.0, 75.0
	got, err := s.ApplyLLM(context.Background(), LLMUpdate{Mode: &mode, RangeMinThreshold: &lo, RangeMaxThreshold: &hi}, "admin", "")
	require.NoError(t, err)
	assert.Equal(t, qa.ModeRange, got.Mode)
	assert.Equal(t, 65.0, api.llm.RangeMinThreshold)

	inverted := 90.0
	_, err = s.ApplyLLM(context.Background(), LLMUpdate{RangeMinThreshold: &inverted}, "admin", "")
	assert.ErrorIs(t, err, settings.ErrInvalidRange)

	res, err := s.ApplyThresholds(context.Background(), []qa.ThresholdUpdate{{Name: "t1", Value: 5}}, "admin", "")
	require.NoError(t, err)
	assert.True(t, res["t1"])

	_, err = s.ApplyThresholds(context.Background(), []qa.ThresholdUpdate{{Name: "nope", Value: 5}}, "admin", "")
	assert.ErrorIs(t, err, settings.ErrUnknownThreshold)

	page := s.Page(context.Background())
	assert.True(t, page.Loaded[settings.TabLLM])
	assert.Len(t, page.History, 1)
}

func TestSettingsSimulateRejectsBadJSONBeforeBackend(t *testing.T) {
	api := newFakeAPI()
	s := NewSettings(api, nil)
	_, err := s.Simulate(context.Background(), LLMUpdate{}, []byte("{"))
	assert.ErrorIs(t, err, settings.ErrInvalidJSON)
	assert.Zero(t, api.count("GetLLMSettings"))
}

func TestSettingsApplyThresholdUsesSingleCall(t *testing.T) {
	api := newFakeAPI()
	api.thresholds = []qa.Threshold{
		{Name: "t1", CurrentValue: 1, MinValue: 0, MaxValue: 10},
		{Name: "t2", CurrentValue: 2, MinValue: 0, MaxValue: 10},
	}
	s := NewSettings(api, nil)

	stored, saved, err := s.ApplyThreshold(context.Background(), "t2", 42, "admin", "cap")
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, 10.0, stored)
	assert.Equal(t, []qa.ThresholdUpdate{{Name: "t2", Value: 10}}, api.singleUpdates)
	assert.Zero(t, api.count("BulkUpdateThresholds"))

	_, saved, err = s.ApplyThreshold(context.Background(), "t1", 1, "admin", "")
	require.NoError(t, err)
	assert.False(t, saved, "unchanged value is not sent")
	assert.Equal(t, 1, api.count("UpdateThreshold"))

	_, _, err = s.ApplyThreshold(context.Background(), "nope", 1, "admin", "")
	assert.ErrorIs(t, err, settings.ErrUnknownThreshold)
}

func TestSettingsSimulateRemoteSendsDraft(t *testing.T) {
	api := newFakeAPI()
	s := NewSettings(api, nil)
	mode := qa.ModeWeighted
	weighted := 0.6
	sample := []byte(` [{"check_name":"a","status":"PASS"}] `)

	d, err := s.SimulateRemote(context.Background(), LLMUpdate{Mode: &mode, WeightedThreshold: &weighted, RuleWeights: map[string]float64{"a": 2}}, sample)
	require.NoError(t, err)
	assert.Equal(t, "backend", d.Reason)
	assert.Equal(t, qa.ModeWeighted, api.lastSimulation.Mode)
	assert.Equal(t, 0.6, api.lastSimulation.Threshold)
	assert.Equal(t, 2.0, api.lastSimulation.RuleWeights["a"])
	assert.JSONEq(t, `[{"check_name":"a","status":"PASS"}]`, string(api.lastSimulation.SampleInput))

	_, err = s.SimulateRemote(context.Background(), LLMUpdate{}, []byte("nope"))
	assert.ErrorIs(t, err, settings.ErrInvalidJSON)
	assert.Equal(t, 1, api.count("SimulateLLMDecision"))
}

func TestAPIConsoleCalls(t *testing.T) {
	api := newFakeAPI()
	api.records = []qa.QualityRecord{{ID: "r1"}}
	c := NewAPIConsole(api, nil)
	ctx := context.Background()
	assert.Equal(t, []string{"feedback", "ingest", "llm", "records", "red-team", "rules"}, c.Calls())

	res, err := c.Call(ctx, "ingest", []byte(`{"content":"quarterly budget","tags":["finance"]}`))
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "/ingest", res.Path)
	assert.Contains(t, api.lastIngest.RecordID, "api-test-")
	assert.Equal(t, []string{"finance"}, api.lastIngest.Tags)

	_, err = c.Call(ctx, "ingest", []byte(`{"tags":["x"]}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Equal(t, 1, api.count("IngestContent"))

	for name, method := range map[string]string{"rules": "CheckRules", "llm": "AnalyzeLLM", "red-team": "RedTeamAnalysis"} {
		res, err = c.Call(ctx, name, []byte(`{"content":"hello"}`))
		require.NoError(t, err, name)
		assert.True(t, res.OK, name)
		assert.Equal(t, 1, api.count(method), name)
		assert.Equal(t, "hello", api.lastPayload["content"], name)
	}
	_, err = c.Call(ctx, "rules", []byte(`{}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = c.Call(ctx, "feedback", []byte(`{"decision":"approve"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
	res, err = c.Call(ctx, "feedback", []byte(`{"record_id":"r1","decision":"approve"}`))
	require.NoError(t, err)
	assert.True(t, res.OK)

	res, err = c.Call(ctx, "records", nil)
	require.NoError(t, err)
	page, ok := res.Response.(qa.RecordPage)
	require.True(t, ok)
	assert.Equal(t, 10, page.Limit)
	assert.Len(t, page.Records, 1)

	api.failing["AnalyzeLLM"] = &backend.APIError{Status: 422}
	res, err = c.Call(ctx, "llm", []byte(`{"content":"x"}`))
	require.NoError(t, err, "backend failures are reported in the result")
	assert.False(t, res.OK)
	assert.Equal(t, 422, res.Status)
	assert.Nil(t, res.Response)

	_, err = c.Call(ctx, "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownCall)
}

func TestBackendTestReportsPerEndpoint(t *testing.T) {
	api := newFakeAPI()
	api.failing["GetThresholds"] = &backend.APIError{Status: 500}
	api.failing["GetHealth"] = backend.ErrUnavailable
	bt := NewBackendTest(api, "http://backend", nil)

	report := bt.Run(context.Background())
	assert.Equal(t, "http://backend", report.Endpoint)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, len(report.Results)-2, report.Passed)
	assert.Equal(t, "health", report.Results[0].Name)
	assert.False(t, report.Results[0].OK)
	assert.Zero(t, report.Results[0].Status)
	for _, r := range report.Results {
		if r.Name == "thresholds" {
			assert.Equal(t, 500, r.Status)
		}
	}
}
