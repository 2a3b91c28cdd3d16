// Package views holds the page controllers of the console. Each controller
// fetches on demand, keeps its last state and degrades to empty data on error.
package views

import (
	"sort"
	"strings"
	"sync"

	"go-indexing-qa-console/internal/qa"
)

// Dimension is one multi-select filter.
type Dimension string

const (
	DimStatus    Dimension = "status"
	DimCompany   Dimension = "company"
	DimConnector Dimension = "connector"
	DimTag       Dimension = "tag"
	DimAuthor    Dimension = "author"
)

// Dimensions lists the filter dimensions in display order.
var Dimensions = []Dimension{DimStatus, DimCompany, DimConnector, DimTag, DimAuthor}

// Filters is one record filter selection. The console server builds one per
// request from the query string the page sends.
type Filters struct {
	mu       sync.RWMutex
	selected map[Dimension][]string
	search   string
	dateFrom string
	dateTo   string
}

func NewFilters() *Filters {
	return &Filters{selected: map[Dimension][]string{}}
}

// Toggle adds value to the selection of dim, or removes it when present.
func (f *Filters) Toggle(dim Dimension, value string) []string {
	value = strings.TrimSpace(value)
	f.mu.Lock()
	defer f.mu.Unlock()
	if value == "" {
		return clone(f.selected[dim])
	}
	cur := f.selected[dim]
	next := make([]string, 0, len(cur)+1)
	found := false
	for _, v := range cur {
		if v == value {
			found = true
			continue
		}
		next = append(next, v)
	}
	if !found {
		next = append(next, value)
	}
	f.store(dim, next)
	return clone(next)
}

// Set replaces the selection of dim.
func (f *Filters) Set(dim Dimension, values []string) []string {
	seen := make(map[string]struct{}, len(values))
	next := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		next = append(next, v)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store(dim, next)
	return clone(next)
}

func (f *Filters) store(dim Dimension, values []string) {
	if len(values) == 0 {
		delete(f.selected, dim)
		return
	}
	f.selected[dim] = values
}

func (f *Filters) Selected(dim Dimension) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return clone(f.selected[dim])
}

func (f *Filters) SetSearch(s string) {
	f.mu.Lock()
	f.search = strings.TrimSpace(s)
	f.mu.Unlock()
}

func (f *Filters) SetDateRange(from, to string) {
	f.mu.Lock()
	f.dateFrom = strings.TrimSpace(from)
	f.dateTo = strings.TrimSpace(to)
	f.mu.Unlock()
}

// Clear drops every selection.
func (f *Filters) Clear() {
	f.mu.Lock()
	f.selected = map[Dimension][]string{}
	f.search, f.dateFrom, f.dateTo = "", "", ""
	f.mu.Unlock()
}

// Active counts the selected values across all dimensions.
func (f *Filters) Active() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, v := range f.selected {
		n += len(v)
	}
	if f.search != "" {
		n++
	}
	if f.dateFrom != "" || f.dateTo != "" {
		n++
	}
	return n
}

// RecordFilters converts the selection into backend query filters.
func (f *Filters) RecordFilters() qa.RecordFilters {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return qa.RecordFilters{
		Statuses:   clone(f.selected[DimStatus]),
		Companies:  clone(f.selected[DimCompany]),
		Connectors: clone(f.selected[DimConnector]),
		Tags:       clone(f.selected[DimTag]),
		Authors:    clone(f.selected[DimAuthor]),
		Search:     f.search,
		DateFrom:   f.dateFrom,
		DateTo:     f.dateTo,
	}
}

// Snapshot returns the selection keyed by dimension name, sorted for stable output.
func (f *Filters) Snapshot() map[string][]string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string][]string, len(f.selected))
	for k, v := range f.selected {
		c := clone(v)
		sort.Strings(c)
		out[string(k)] = c
	}
	return out
}

func clone(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
