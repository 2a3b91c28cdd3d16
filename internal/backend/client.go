package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnavailable marks transport failures (connection refused, timeouts, DNS).
var ErrUnavailable = errors.New("backend unavailable")

// APIError is returned when the backend answers with a non-2xx status.
type APIError struct {
	Status int
	Body   string
	Method string
	Path   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend %s %s status=%d body=%s", e.Method, e.Path, e.Status, e.Body)
}

// StatusOf returns the HTTP status carried by err, or 0 when it is not an APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Client is a thin typed client for the QA backend REST API.
type Client struct {
	endpoint string
	http     *http.Client
	observe  func(method, path string, d time.Duration, err error)
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

// Observe registers fn to be called after every request with its outcome.
func (c *Client) Observe(fn func(method, path string, d time.Duration, err error)) {
	c.observe = fn
}

func (c *Client) Enabled() bool {
	return c != nil && c.endpoint != ""
}

// Endpoint returns the configured base URL.
func (c *Client) Endpoint() string {
	if c == nil {
		return ""
	}
	return c.endpoint
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) (err error) {
	if c.observe != nil {
		start := time.Now()
		defer func() { c.observe(method, path, time.Since(start), err) }()
	}
	if !c.Enabled() {
		return fmt.Errorf("%w: no endpoint configured", ErrUnavailable)
	}

	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(blob)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		blob, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(blob)),
			Method: method,
			Path:   path,
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %v", ErrUnavailable, method, path, err)
	}
	if len(bytes.TrimSpace(blob)) == 0 {
		return nil
	}
	if err := json.Unmarshal(blob, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// unwrapList extracts a JSON array from a bare array or from the first of keys
// (then "data") present in an object envelope.
func unwrapList(raw json.RawMessage, keys ...string) (json.RawMessage, int) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("[]"), -1
	}
	if trimmed[0] == '[' {
		return trimmed, -1
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return json.RawMessage("[]"), -1
	}
	total := -1
	for _, key := range []string{"total", "total_count", "count"} {
		if v, ok := envelope[key]; ok {
			var n float64
			if json.Unmarshal(v, &n) == nil {
				total = int(n)
				break
			}
		}
	}
	candidates := append(append([]string{}, keys...), "data", "items", "results")
	for _, key := range candidates {
		v, ok := envelope[key]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		if len(v) > 0 && v[0] == '[' {
			return v, total
		}
		if len(v) > 0 && v[0] == '{' {
			// Nested envelope such as {"data":{"records":[...],"total":n}}.
			inner, innerTotal := unwrapList(v, keys...)
			if innerTotal >= 0 {
				total = innerTotal
			}
			return inner, total
		}
	}
	return json.RawMessage("[]"), total
}

// unwrapObject returns the object under key when present, else raw itself.
func unwrapObject(raw json.RawMessage, keys ...string) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}")
	}
	if trimmed[0] != '{' {
		return trimmed
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	for _, key := range keys {
		if v, ok := envelope[key]; ok {
			v = bytes.TrimSpace(v)
			if len(v) > 0 && v[0] == '{' {
				return v
			}
		}
	}
	return trimmed
}

func decodeList[T any](raw json.RawMessage, keys ...string) ([]T, int, error) {
	list, total := unwrapList(raw, keys...)
	out := make([]T, 0)
	if err := json.Unmarshal(list, &out); err != nil {
		return nil, 0, err
	}
	if total < 0 {
		total = len(out)
	}
	return out, total, nil
}
