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

// ReviewAction is the body shared by approve and flag.
type ReviewAction struct {
	User   string `json:"user"`
	Reason string `json:"reason,omitempty"`
}

// ContentUpdate is the body of content edits and reprocess requests.
type ContentUpdate struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	User    string   `json:"user"`
	Reason  string   `json:"reason,omitempty"`
}

// EncodeRecordFilters renders filters and pagination as backend query parameters.
func EncodeRecordFilters(f qa.RecordFilters, p qa.Pagination) url.Values {
	q := url.Values{}
	setJoined(q, "status", f.Statuses)
	setJoined(q, "company", f.Companies)
	setJoined(q, "source_connector", f.Connectors)
	setJoined(q, "tags", f.Tags)
	setJoined(q, "author", f.Authors)
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	if f.DateFrom != "" {
		q.Set("date_from", f.DateFrom)
	}
	if f.DateTo != "" {
		q.Set("date_to", f.DateTo)
	}
	if f.MinQuality != nil {
		q.Set("min_quality", strconv.FormatFloat(*f.MinQuality, 'f', -1, 64))
	}
	if f.MaxQuality != nil {
		q.Set("max_quality", strconv.FormatFloat(*f.MaxQuality, 'f', -1, 64))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

func setJoined(q url.Values, key string, values []string) {
	clean := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			clean = append(clean, v)
		}
	}
	if len(clean) > 0 {
		q.Set(key, strings.Join(clean, ","))
	}
}

func recordPath(id, action string) string {
	p := "/records/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) listRecords(ctx context.Context, path string, f qa.RecordFilters, p qa.Pagination) (qa.RecordPage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, path, EncodeRecordFilters(f, p), &raw); err != nil {
		return qa.RecordPage{}, err
	}
	records, total, err := decodeList[qa.QualityRecord](raw, "records", "quality_records")
	if err != nil {
		return qa.RecordPage{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return qa.RecordPage{Records: records, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

// GetRecords lists processed records.
func (c *Client) GetRecords(ctx context.Context, f qa.RecordFilters, p qa.Pagination) (qa.RecordPage, error) {
	return c.listRecords(ctx, "/records", f, p)
}

// GetQualityRecords lists records with their quality checks attached.
func (c *Client) GetQualityRecords(ctx context.Context, f qa.RecordFilters, p qa.Pagination) (qa.RecordPage, error) {
	return c.listRecords(ctx, "/quality-records", f, p)
}

func (c *Client) UpdateRecordContent(ctx context.Context, id, content string, tags []string, user, reason string) (map[string]any, error) {
	var out map[string]any
	body := ContentUpdate{Content: content, Tags: tags, User: user, Reason: reason}
	err := c.do(ctx, http.MethodPut, recordPath(id, "content"), nil, body, &out)
	return out, err
}

func (c *Client) ApproveRecord(ctx context.Context, id, user, reason string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, recordPath(id, "approve"), nil, ReviewAction{User: user, Reason: reason}, &out)
	return out, err
}

func (c *Client) FlagRecord(ctx context.Context, id, user, reason string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, recordPath(id, "flag"), nil, ReviewAction{User: user, Reason: reason}, &out)
	return out, err
}

func (c *Client) ReprocessRecord(ctx context.Context, id, content string, tags []string, user, reason string) (map[string]any, error) {
	var out map[string]any
	body := ContentUpdate{Content: content, Tags: tags, User: user, Reason: reason}
	err := c.do(ctx, http.MethodPost, recordPath(id, "reprocess"), nil, body, &out)
	return out, err
}

// GetAuditTrail returns the change history of one record.
func (c *Client) GetAuditTrail(ctx context.Context, id string) ([]qa.AuditEntry, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, recordPath(id, "audit-trail"), nil, &raw); err != nil {
		return nil, err
	}
	entries, _, err := decodeList[qa.AuditEntry](raw, "audit_trail", "entries")
	return entries, err
}
