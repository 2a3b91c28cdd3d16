package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go-indexing-qa-console/internal/qa"
)

// EncodeDeadLetterQuery renders a dead letter query as backend parameters.
func EncodeDeadLetterQuery(q qa.DeadLetterQuery) url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(q.ErrorType); s != "" {
		v.Set("error_type", s)
	}
	if s := strings.TrimSpace(q.SourceConnector); s != "" {
		v.Set("source_connector", s)
	}
	if q.Resolved != nil {
		v.Set("resolved", strconv.FormatBool(*q.Resolved))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if q.HoursBack > 0 {
		v.Set("hours_back", strconv.Itoa(q.HoursBack))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func deadLetterPath(id, action string) string {
	p := "/dead-letters/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) GetDeadLetters(ctx context.Context, q qa.DeadLetterQuery) (qa.DeadLetterPage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/dead-letters", EncodeDeadLetterQuery(q), &raw); err != nil {
		return qa.DeadLetterPage{}, err
	}
	records, total, err := decodeList[qa.DeadLetterRecord](raw, "dead_letters", "records")
	if err != nil {
		return qa.DeadLetterPage{}, fmt.Errorf("decode /dead-letters: %w", err)
	}
	return qa.DeadLetterPage{Records: records, Total: total}, nil
}

func (c *Client) GetDeadLettersStats(ctx context.Context, hoursBack int) (qa.DeadLetterStats, error) {
	var query url.Values
	if hoursBack > 0 {
		query = url.Values{"hours_back": []string{strconv.Itoa(hoursBack)}}
	}
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/dead-letters/stats", query, &raw); err != nil {
		return qa.DeadLetterStats{}, err
	}
	stats := qa.DefaultDeadLetterStats()
	if err := json.Unmarshal(unwrapObject(raw, "stats", "data"), &stats); err != nil {
		return qa.DeadLetterStats{}, fmt.Errorf("decode /dead-letters/stats: %w", err)
	}
	if stats.ByErrorType == nil {
		stats.ByErrorType = map[string]int{}
	}
	if stats.ByConnector == nil {
		stats.ByConnector = map[string]int{}
	}
	if stats.TotalCount == 0 {
		stats.TotalCount = stats.ResolvedCount + stats.UnresolvedCount
	}
	return stats, nil
}

func (c *Client) GetDeadLettersFilterOptions(ctx context.Context) (qa.DeadLetterFilterOptions, error) {
	var raw struct {
		ErrorTypes       []any `json:"error_types"`
		SourceConnectors []any `json:"source_connectors"`
	}
	if err := c.getJSON(ctx, "/dead-letters/filter-options", nil, &raw); err != nil {
		return qa.DeadLetterFilterOptions{}, err
	}
	return qa.DeadLetterFilterOptions{
		ErrorTypes:       qa.NormalizeOptions(raw.ErrorTypes),
		SourceConnectors: qa.NormalizeOptions(raw.SourceConnectors),
	}, nil
}

func (c *Client) RetryDeadLetter(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, deadLetterPath(id, "retry"), nil, nil, &out)
	return out, err
}

func (c *Client) ResolveDeadLetter(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, deadLetterPath(id, "resolve"), nil, nil, &out)
	return out, err
}

func (c *Client) DeleteDeadLetter(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, deadLetterPath(id, ""), nil, nil, nil)
}
