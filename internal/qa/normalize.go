package qa

import (
	"fmt"
	"strings"
)

// Unknown is the group key used when a record carries no value for a dimension.
const Unknown = "Unknown"

// CompanyOf resolves the record's company: companyName, then company, then Unknown.
func CompanyOf(r QualityRecord) string {
	if v := strings.TrimSpace(r.CompanyName); v != "" {
		return v
	}
	if v := strings.TrimSpace(r.Company); v != "" {
		return v
	}
	return Unknown
}

// ConnectorOf resolves the record's connector: sourceConnectorName, then source_connector, then Unknown.
func ConnectorOf(r QualityRecord) string {
	if v := strings.TrimSpace(r.SourceConnectorName); v != "" {
		return v
	}
	if v := strings.TrimSpace(r.SourceConnector); v != "" {
		return v
	}
	return Unknown
}

// SplitList splits comma-separated free text, trimming entries and dropping empties.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeOptions turns a filter-option payload of mixed shapes into options.
// Each element resolves its value as value, then label, then the element itself
// when it is a string or number. Elements that resolve to nothing are dropped,
// and the first occurrence of a value wins.
func NormalizeOptions(raw []any) []FilterOption {
	out := make([]FilterOption, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		opt, ok := normalizeOption(item)
		if !ok {
			continue
		}
		if _, dup := seen[opt.Value]; dup {
			continue
		}
		seen[opt.Value] = struct{}{}
		out = append(out, opt)
	}
	return out
}

func normalizeOption(item any) (FilterOption, bool) {
	switch v := item.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return FilterOption{}, false
		}
		return FilterOption{Value: s, Label: s}, true
	case float64:
		s := fmt.Sprintf("%g", v)
		return FilterOption{Value: s, Label: s}, true
	case map[string]any:
		value := scalarString(v["value"])
		label := scalarString(v["label"])
		if value == "" {
			value = label
		}
		if value == "" {
			value = scalarString(v["name"])
		}
		if value == "" {
			return FilterOption{}, false
		}
		if label == "" {
			label = value
		}
		count := 0
		if c, ok := v["count"].(float64); ok {
			count = int(c)
		}
		return FilterOption{Value: value, Label: label, Count: count}, true
	default:
		return FilterOption{}, false
	}
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return fmt.Sprintf("%g", x)
	default:
		return ""
	}
}
