package qa

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// RecordStatus is the review state of an ingested record.
type RecordStatus string

const (
	StatusApproved    RecordStatus = "approved"
	StatusRejected    RecordStatus = "rejected"
	StatusFlagged     RecordStatus = "flagged"
	StatusUnderReview RecordStatus = "under_review"
)

// CheckStatus is the outcome of one rule evaluation.
type CheckStatus string

const (
	CheckPass    CheckStatus = "PASS"
	CheckFail    CheckStatus = "FAIL"
	CheckError   CheckStatus = "ERROR"
	CheckSkipped CheckStatus = "SKIPPED"
)

// UnmarshalJSON accepts both upper and lower case spellings.
func (s *CheckStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = CheckStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return nil
}

// Severity of a detected issue.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// LLMMode selects when the backend adds an LLM semantic check.
type LLMMode string

const (
	ModeBinary     LLMMode = "binary"
	ModePercentage LLMMode = "percentage"
	ModeWeighted   LLMMode = "weighted"
	ModeRange      LLMMode = "range"
)

// Modes lists the invocation modes in display order.
var Modes = []LLMMode{ModeBinary, ModePercentage, ModeWeighted, ModeRange}

// ParseMode validates a mode string.
func ParseMode(raw string) (LLMMode, bool) {
	m := LLMMode(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Modes {
		if m == known {
			return m, true
		}
	}
	return "", false
}

// Timestamp decodes the handful of layouts the backend emits, with or without a zone.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses s using the backend layouts. Zone-less values are UTC.
func ParseTimestamp(s string) (Timestamp, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t.UTC()}, true
		}
	}
	return Timestamp{}, false
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		// Unparseable timestamps are treated as absent.
		*t = Timestamp{}
		return nil
	}
	parsed, _ := ParseTimestamp(raw)
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// FlexFloat accepts numbers, numeric strings and sentinel strings such as "Not Triggered" (read as 0).
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// QualityCheck is one rule evaluation attached to a record.
type QualityCheck struct {
	CheckName       string         `json:"check_name"`
	Status          CheckStatus    `json:"status"`
	ConfidenceScore FlexFloat      `json:"confidence_score"`
	FailureReason   string         `json:"failure_reason,omitempty"`
	CheckMetadata   map[string]any `json:"check_metadata,omitempty"`
}

// Passed reports whether the check counts as passing.
func (c QualityCheck) Passed() bool {
	return c.Status == CheckPass
}

// LLMSuggestions returns suggestions the LLM check stored in its metadata.
func (c QualityCheck) LLMSuggestions() []string {
	raw, ok := c.CheckMetadata["llm_suggestions"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, it := range v {
			if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		return SplitList(v)
	default:
		return nil
	}
}

// IssueRecordRef is the record summary attached to an issue.
type IssueRecordRef struct {
	ID                  string   `json:"id"`
	Content             string   `json:"content,omitempty"`
	Tags                []string `json:"tags,omitempty"`
	CompanyName         string   `json:"companyName,omitempty"`
	SourceConnectorName string   `json:"sourceConnectorName,omitempty"`
}

// QualityIssue is a detected problem on a record.
type QualityIssue struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Severity    Severity        `json:"severity"`
	Description string          `json:"description"`
	Suggestion  string          `json:"suggestion,omitempty"`
	AutoFixable bool            `json:"autoFixable"`
	Category    string          `json:"category,omitempty"`
	Confidence  FlexFloat       `json:"confidence"`
	Record      *IssueRecordRef `json:"record,omitempty"`
}

// QualityRecord is a piece of ingested content as returned by the backend.
type QualityRecord struct {
	ID                    string         `json:"id"`
	RecordID              string         `json:"recordId,omitempty"`
	TraceID               string         `json:"trace_id,omitempty"`
	Content               string         `json:"content"`
	Tags                  []string       `json:"tags"`
	CompanyName           string         `json:"companyName,omitempty"`
	Company               string         `json:"company,omitempty"`
	SourceConnectorName   string         `json:"sourceConnectorName,omitempty"`
	SourceConnector       string         `json:"source_connector,omitempty"`
	Status                RecordStatus   `json:"status"`
	QualityScore          FlexFloat      `json:"qualityScore"`
	ConfidenceScore       FlexFloat      `json:"confidenceScore"`
	RulesEngineConfidence FlexFloat      `json:"rules_engine_confidence"`
	LLMConfidence         FlexFloat      `json:"llm_confidence"`
	Issues                []QualityIssue `json:"issues,omitempty"`
	QualityChecks         []QualityCheck `json:"quality_checks,omitempty"`
	Metadata              map[string]any `json:"metadata,omitempty"`
	CreatedAt             Timestamp      `json:"createdAt"`
	UpdatedAt             Timestamp      `json:"updatedAt"`
}

// UnmarshalJSON folds the backend's snake_case aliases into the canonical fields.
func (r *QualityRecord) UnmarshalJSON(b []byte) error {
	type plain QualityRecord
	var aux struct {
		plain
		RecordIDSnake   string         `json:"record_id"`
		QualityScoreAlt *FlexFloat     `json:"quality_score"`
		CreatedAtSnake  Timestamp      `json:"created_at"`
		UpdatedAtSnake  Timestamp      `json:"updated_at"`
		ContentMetadata map[string]any `json:"content_metadata"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = QualityRecord(aux.plain)
	if r.RecordID == "" {
		r.RecordID = aux.RecordIDSnake
	}
	if r.ID == "" {
		r.ID = r.RecordID
	}
	if r.QualityScore == 0 && aux.QualityScoreAlt != nil {
		r.QualityScore = *aux.QualityScoreAlt
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = aux.CreatedAtSnake
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = aux.UpdatedAtSnake
	}
	if r.Metadata == nil && aux.ContentMetadata != nil {
		r.Metadata = aux.ContentMetadata
	}
	r.Status = RecordStatus(strings.ToLower(strings.TrimSpace(string(r.Status))))
	return nil
}

// CheckPassRatio is the share of passing checks, or 0 when the record has none.
func (r QualityRecord) CheckPassRatio() float64 {
	if len(r.QualityChecks) == 0 {
		return 0
	}
	passed := 0
	for _, c := range r.QualityChecks {
		if c.Passed() {
			passed++
		}
	}
	return float64(passed) / float64(len(r.QualityChecks))
}

// DeadLetterRecord is a failed ingestion event.
type DeadLetterRecord struct {
	ID              string          `json:"id"`
	TraceID         string          `json:"trace_id,omitempty"`
	RawInput        json.RawMessage `json:"raw_input,omitempty"`
	ErrorMessage    string          `json:"error_message"`
	ErrorType       string          `json:"error_type"`
	SourceConnector string          `json:"source_connector,omitempty"`
	RetryCount      int             `json:"retry_count"`
	FailedAt        Timestamp       `json:"failed_at"`
	CreatedAt       Timestamp       `json:"created_at"`
	LastRetryAt     Timestamp       `json:"last_retry_at"`
	ResolvedAt      Timestamp       `json:"resolved_at"`
	Resolved        bool            `json:"resolved"`
}

// DeadLetterStats summarizes the dead letter queue.
type DeadLetterStats struct {
	TotalCount      int            `json:"total_count"`
	ResolvedCount   int            `json:"resolved_count"`
	UnresolvedCount int            `json:"unresolved_count"`
	ByErrorType     map[string]int `json:"error_types"`
	ByConnector     map[string]int `json:"source_connectors"`
	AvgRetryCount   float64        `json:"avg_retry_count"`
	HoursBack       int            `json:"hours_back,omitempty"`
}

// DefaultDeadLetterStats is the empty stats object shown when nothing could be loaded.
func DefaultDeadLetterStats() DeadLetterStats {
	return DeadLetterStats{
		ByErrorType: map[string]int{},
		ByConnector: map[string]int{},
	}
}

// DeadLetterFilterOptions are the selectable values on the dead letter view.
type DeadLetterFilterOptions struct {
	ErrorTypes       []FilterOption `json:"error_types"`
	SourceConnectors []FilterOption `json:"source_connectors"`
}

// Threshold is a named numeric control.
type Threshold struct {
	Name         string    `json:"name"`
	CurrentValue float64   `json:"current_value"`
	DefaultValue float64   `json:"default_value"`
	MinValue     float64   `json:"min_value"`
	MaxValue     float64   `json:"max_value"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category,omitempty"`
	Unit         string    `json:"unit,omitempty"`
	UpdatedBy    string    `json:"updated_by,omitempty"`
	UpdatedAt    Timestamp `json:"updated_at"`
}

// Clamp bounds v into the threshold range. A degenerate range leaves v unchanged.
func (t Threshold) Clamp(v float64) float64 {
	if t.MaxValue <= t.MinValue {
		return v
	}
	if v < t.MinValue {
		return t.MinValue
	}
	if v > t.MaxValue {
		return t.MaxValue
	}
	return v
}

// ThresholdUpdate is one entry of a bulk threshold save.
type ThresholdUpdate struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// LLMInvocationSettings holds the active mode and every per-mode threshold.
type LLMInvocationSettings struct {
	Mode                LLMMode            `json:"mode"`
	PercentageThreshold float64            `json:"percentage_threshold"`
	WeightedThreshold   float64            `json:"weighted_threshold"`
	RangeMinThreshold   float64            `json:"range_min_threshold"`
	RangeMaxThreshold   float64            `json:"range_max_threshold"`
	RuleWeights         map[string]float64 `json:"rule_weights"`
	CreatedBy           string             `json:"created_by,omitempty"`
	UpdatedAt           Timestamp          `json:"updated_at"`
}

// DefaultLLMSettings mirrors the backend's factory defaults.
func DefaultLLMSettings() LLMInvocationSettings {
	return LLMInvocationSettings{
		Mode:                ModeBinary,
		PercentageThreshold: 85.0,
		WeightedThreshold:   0.8,
		RangeMinThreshold:   70.0,
		RangeMaxThreshold:   80.0,
		RuleWeights:         map[string]float64{},
	}
}

// Clone returns a deep copy.
func (s LLMInvocationSettings) Clone() LLMInvocationSettings {
	out := s
	out.RuleWeights = make(map[string]float64, len(s.RuleWeights))
	for k, v := range s.RuleWeights {
		out.RuleWeights[k] = v
	}
	return out
}

// SettingsChange is one entry of the LLM settings history.
type SettingsChange struct {
	Mode      LLMMode        `json:"mode"`
	ChangedBy string         `json:"changed_by"`
	Reason    string         `json:"reason,omitempty"`
	Timestamp Timestamp      `json:"timestamp"`
	Settings  map[string]any `json:"settings,omitempty"`
}

// LLMDecision is the outcome of evaluating an invocation policy against a sample.
type LLMDecision struct {
	ShouldInvokeLLM bool    `json:"should_invoke_llm"`
	Confidence      float64 `json:"confidence"`
	Reason          string  `json:"reason"`
	ModeUsed        LLMMode `json:"mode_used"`
	ThresholdUsed   float64 `json:"threshold_used"`
	Score           float64 `json:"score"`
	PassedChecks    int     `json:"passed_checks"`
	TotalChecks     int     `json:"total_checks"`
}

// AuditEntry is one change applied to a record.
type AuditEntry struct {
	Action    string         `json:"action"`
	User      string         `json:"user"`
	Reason    string         `json:"reason,omitempty"`
	Timestamp Timestamp      `json:"timestamp"`
	Changes   map[string]any `json:"changes,omitempty"`
}

// FilterOption is one selectable value in a filter dropdown.
type FilterOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count,omitempty"`
}

// Stats are the headline counters shown on the dashboard.
type Stats struct {
	TotalRecords     int     `json:"total_records"`
	ApprovedRecords  int     `json:"approved_records"`
	FlaggedRecords   int     `json:"flagged_records"`
	RejectedRecords  int     `json:"rejected_records"`
	UnderReview      int     `json:"under_review_records"`
	AvgQualityScore  float64 `json:"avg_quality_score"`
	DeadLetterCount  int     `json:"dead_letter_count"`
	ProcessedLast24h int     `json:"processed_last_24h"`
}

// RecordFilters narrow a record listing.
type RecordFilters struct {
	Statuses   []string `json:"statuses,omitempty"`
	Companies  []string `json:"companies,omitempty"`
	Connectors []string `json:"connectors,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Authors    []string `json:"authors,omitempty"`
	Search     string   `json:"search,omitempty"`
	DateFrom   string   `json:"date_from,omitempty"`
	DateTo     string   `json:"date_to,omitempty"`
	MinQuality *float64 `json:"min_quality,omitempty"`
	MaxQuality *float64 `json:"max_quality,omitempty"`
}

// Pagination selects one page of results.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// RecordPage is one page of records plus the total count.
type RecordPage struct {
	Records []QualityRecord `json:"records"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

// DeadLetterQuery narrows a dead letter listing.
type DeadLetterQuery struct {
	ErrorType       string `json:"error_type,omitempty"`
	SourceConnector string `json:"source_connector,omitempty"`
	Resolved        *bool  `json:"resolved,omitempty"`
	Search          string `json:"search,omitempty"`
	HoursBack       int    `json:"hours_back,omitempty"`
	Page            int    `json:"page,omitempty"`
	Limit           int    `json:"limit,omitempty"`
}

// DeadLetterPage is one page of dead letters plus the total count.
type DeadLetterPage struct {
	Records []DeadLetterRecord `json:"dead_letters"`
	Total   int                `json:"total"`
}
