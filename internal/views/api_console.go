package views

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-indexing-qa-console/internal/backend"
	"go-indexing-qa-console/internal/qa"
)

// ErrUnknownCall is returned for a call name the API console does not know.
var ErrUnknownCall = errors.New("unknown api call")

// ErrInvalidPayload is returned when a call payload does not decode or misses required fields.
var ErrInvalidPayload = errors.New("invalid payload")

// ConsoleAPI is the write and analysis surface of the backend the API console exercises.
type ConsoleAPI interface {
	GetRecords(ctx context.Context, f qa.RecordFilters, p qa.Pagination) (qa.RecordPage, error)
	IngestContent(ctx context.Context, req backend.IngestRequest) (map[string]any, error)
	CheckRules(ctx context.Context, payload map[string]any) (map[string]any, error)
	AnalyzeLLM(ctx context.Context, payload map[string]any) (map[string]any, error)
	RedTeamAnalysis(ctx context.Context, payload map[string]any) (map[string]any, error)
	SubmitFeedback(ctx context.Context, payload map[string]any) (map[string]any, error)
}

// CallResult is the outcome of one API console call.
type CallResult struct {
	Call      string `json:"call"`
	Path      string `json:"path"`
	OK        bool   `json:"ok"`
	Status    int    `json:"status,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	Response  any    `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
}

type consoleCall struct {
	path string
	fn   func(ctx context.Context, raw []byte) (any, error)
}

// APIConsole sends hand written payloads to the backend's analysis endpoints.
type APIConsole struct {
	api    ConsoleAPI
	logger *zap.Logger
	calls  map[string]consoleCall
}

func NewAPIConsole(api ConsoleAPI, logger *zap.Logger) *APIConsole {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &APIConsole{api: api, logger: logger}
	c.calls = map[string]consoleCall{
		"records":  {"/records", c.records},
		"ingest":   {"/ingest", c.ingest},
		"rules":    {"/rules/check", c.passthrough(api.CheckRules)},
		"llm":      {"/llm/analyze", c.passthrough(api.AnalyzeLLM)},
		"red-team": {"/red-team/analyze", c.passthrough(api.RedTeamAnalysis)},
		"feedback": {"/feedback", c.feedback},
	}
	return c
}

// Calls lists the known call names.
func (c *APIConsole) Calls() []string {
	names := make([]string, 0, len(c.calls))
	for name := range c.calls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs one named call with a JSON payload. Unknown names and malformed
// payloads are errors; backend failures are reported in the result.
func (c *APIConsole) Call(ctx context.Context, name string, raw []byte) (CallResult, error) {
	call, ok := c.calls[name]
	if !ok {
		return CallResult{}, fmt.Errorf("%w: %s", ErrUnknownCall, name)
	}
	start := time.Now()
	resp, err := call.fn(ctx, bytes.TrimSpace(raw))
	if errors.Is(err, ErrInvalidPayload) {
		return CallResult{}, err
	}
	res := CallResult{Call: name, Path: call.path, OK: err == nil, LatencyMS: time.Since(start).Milliseconds()}
	if err == nil {
		res.Response = resp
	} else {
		c.logger.Warn("api console call failed", zap.String("call", name), zap.Error(err))
		res.Error = err.Error()
		if !errors.Is(err, backend.ErrUnavailable) {
			res.Status = backend.StatusOf(err)
		}
	}
	return res, nil
}

func decodePayload(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func (c *APIConsole) passthrough(fn func(context.Context, map[string]any) (map[string]any, error)) func(context.Context, []byte) (any, error) {
	return func(ctx context.Context, raw []byte) (any, error) {
		payload := map[string]any{}
		if err := decodePayload(raw, &payload); err != nil {
			return nil, err
		}
		if len(payload) == 0 {
			return nil, fmt.Errorf("%w: empty object", ErrInvalidPayload)
		}
		return fn(ctx, payload)
	}
}

func (c *APIConsole) records(ctx context.Context, raw []byte) (any, error) {
	var req struct {
		qa.RecordFilters
		Page  int `json:"page"`
		Limit int `json:"limit"`
	}
	if err := decodePayload(raw, &req); err != nil {
		return nil, err
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 10
	}
	return c.api.GetRecords(ctx, req.RecordFilters, qa.Pagination{Page: req.Page, Limit: req.Limit})
}

func (c *APIConsole) ingest(ctx context.Context, raw []byte) (any, error) {
	var req backend.IngestRequest
	if err := decodePayload(raw, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidPayload)
	}
	if req.RecordID == "" {
		req.RecordID = "api-test-" + uuid.NewString()
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}
	return c.api.IngestContent(ctx, req)
}

func (c *APIConsole) feedback(ctx context.Context, raw []byte) (any, error) {
	payload := map[string]any{}
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	id, _ := payload["record_id"].(string)
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: record_id is required", ErrInvalidPayload)
	}
	return c.api.SubmitFeedback(ctx, payload)
}
