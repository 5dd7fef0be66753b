package domain

import (
	"fmt"
	"sort"
	"strings"
)

// CategoryAll selects every category.
const CategoryAll = "all"

// CategoryFilter restricts a query to a set of category values.
type CategoryFilter struct {
	All    bool     `json:"all"`
	Values []string `json:"values,omitempty"`
}

// ParseCategoryFilter accepts "all" (any case) or a comma-separated list.
// Empty input selects all categories.
func ParseCategoryFilter(s string) (CategoryFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, CategoryAll) {
		return CategoryFilter{All: true}, nil
	}

	seen := make(map[string]bool)
	var values []string
	for _, part := range strings.Split(s, ",") {
		v := strings.TrimSpace(part)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	if len(values) == 0 {
		return CategoryFilter{}, fmt.Errorf("%w: %q has no category values", ErrInvalidCategories, s)
	}
	return CategoryFilter{Values: values}, nil
}

// Key is a stable representation used in cache keys.
func (f CategoryFilter) Key() string {
	if f.All {
		return CategoryAll
	}
	sorted := append([]string(nil), f.Values...)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

// Matches reports whether a category value passes the filter.
func (f CategoryFilter) Matches(v string) bool {
	if f.All {
		return true
	}
	for _, c := range f.Values {
		if c == v {
			return true
		}
	}
	return false
}
