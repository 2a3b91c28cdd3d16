package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go-indexing-qa-console/internal/qa"
)

// FilterOptions are the record filter dropdown values.
type FilterOptions struct {
	Companies  []qa.FilterOption `json:"companies"`
	Connectors []qa.FilterOption `json:"connectors"`
	Tags       []qa.FilterOption `json:"tags"`
	Statuses   []qa.FilterOption `json:"statuses"`
	Authors    []qa.FilterOption `json:"authors"`
}

// IngestRequest submits one piece of content for quality checks.
type IngestRequest struct {
	RecordID        string         `json:"record_id"`
	Content         string         `json:"content"`
	Tags            []string       `json:"tags"`
	SourceConnector string         `json:"source_connector,omitempty"`
	ContentMetadata map[string]any `json:"content_metadata,omitempty"`
}

func (c *Client) GetHealth(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.getJSON(ctx, "/health", nil, &out)
	return out, err
}

func (c *Client) GetIssues(ctx context.Context) ([]qa.QualityIssue, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/issues", nil, &raw); err != nil {
		return nil, err
	}
	issues, _, err := decodeList[qa.QualityIssue](raw, "issues")
	return issues, err
}

func (c *Client) AutoFixIssue(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, "/issues/"+url.PathEscape(id)+"/auto-fix", nil, nil, &out)
	return out, err
}

func (c *Client) GetDashboardAnalytics(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.getJSON(ctx, "/analytics/dashboard", nil, &out)
	return out, err
}

func (c *Client) GetFilterOptions(ctx context.Context) (FilterOptions, error) {
	var raw map[string]json.RawMessage
	if err := c.getJSON(ctx, "/filter-options", nil, &raw); err != nil {
		return FilterOptions{}, err
	}
	return FilterOptions{
		Companies:  optionsAt(raw, "companies"),
		Connectors: optionsAt(raw, "connectors", "source_connectors"),
		Tags:       optionsAt(raw, "tags"),
		Statuses:   optionsAt(raw, "statuses", "status"),
		Authors:    optionsAt(raw, "authors"),
	}, nil
}

func optionsAt(raw map[string]json.RawMessage, keys ...string) []qa.FilterOption {
	for _, key := range keys {
		blob, ok := raw[key]
		if !ok {
			continue
		}
		var items []any
		if err := json.Unmarshal(blob, &items); err != nil {
			continue
		}
		return qa.NormalizeOptions(items)
	}
	return []qa.FilterOption{}
}

func (c *Client) GetStats(ctx context.Context) (qa.Stats, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/stats", nil, &raw); err != nil {
		return qa.Stats{}, err
	}
	var stats qa.Stats
	if err := json.Unmarshal(unwrapObject(raw, "stats", "data"), &stats); err != nil {
		return qa.Stats{}, fmt.Errorf("decode /stats: %w", err)
	}
	return stats, nil
}

func (c *Client) listOptions(ctx context.Context, path string, keys ...string) ([]qa.FilterOption, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, path, nil, &raw); err != nil {
		return nil, err
	}
	list, _ := unwrapList(raw, keys...)
	var items []any
	if err := json.Unmarshal(list, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return qa.NormalizeOptions(items), nil
}

func (c *Client) GetCompanies(ctx context.Context) ([]qa.FilterOption, error) {
	return c.listOptions(ctx, "/companies", "companies")
}

func (c *Client) GetConnectors(ctx context.Context) ([]qa.FilterOption, error) {
	return c.listOptions(ctx, "/connectors", "connectors")
}

// GetTagSuggestions asks the backend for tags that fit the content.
func (c *Client) GetTagSuggestions(ctx context.Context, content string, tags []string) ([]string, error) {
	body := map[string]any{"content": content, "existing_tags": tags}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/tags/suggest", nil, body, &raw); err != nil {
		return nil, err
	}
	list, _ := unwrapList(raw, "suggestions", "tags", "suggested_tags")
	var items []any
	if err := json.Unmarshal(list, &items); err != nil {
		return nil, fmt.Errorf("decode /tags/suggest: %w", err)
	}
	opts := qa.NormalizeOptions(items)
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Value)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, path, nil, payload, &out)
	return out, err
}

func (c *Client) SubmitFeedback(ctx context.Context, payload map[string]any) (map[string]any, error) {
	return c.post(ctx, "/feedback", payload)
}

func (c *Client) IngestContent(ctx context.Context, req IngestRequest) (map[string]any, error) {
	return c.post(ctx, "/ingest", req)
}

func (c *Client) CheckRules(ctx context.Context, payload map[string]any) (map[string]any, error) {
	return c.post(ctx, "/rules/check", payload)
}

func (c *Client) AnalyzeLLM(ctx context.Context, payload map[string]any) (map[string]any, error) {
	return c.post(ctx, "/llm/analyze", payload)
}

func (c *Client) RedTeamAnalysis(ctx context.Context, payload map[string]any) (map[string]any, error) {
	return c.post(ctx, "/red-team/analyze", payload)
}
