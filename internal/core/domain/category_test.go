package domain_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/samirrijal/poigeo/internal/core/domain"
)

func TestParseCategoryFilter(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		all    bool
		values []string
	}{
		{"all lower", "all", true, nil},
		{"all upper", "ALL", true, nil},
		{"all padded", "  All ", true, nil},
		{"empty", "", true, nil},
		{"single", "restaurant", false, []string{"restaurant"}},
		{"list", "restaurant,cafe", false, []string{"restaurant", "cafe"}},
		{"trimmed", " restaurant , cafe ", false, []string{"restaurant", "cafe"}},
		{"empty entries dropped", "restaurant,,cafe,", false, []string{"restaurant", "cafe"}},
		{"duplicates dropped", "cafe,restaurant,cafe", false, []string{"cafe", "restaurant"}},
		{"quote kept verbatim", "o'brien", false, []string{"o'brien"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := domain.ParseCategoryFilter(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.All != tt.all {
				t.Errorf("expected All=%v, got %v", tt.all, f.All)
			}
			if !reflect.DeepEqual(f.Values, tt.values) {
				t.Errorf("expected values %v, got %v", tt.values, f.Values)
			}
		})
	}
}

func TestParseCategoryFilter_OnlySeparators(t *testing.T) {
	_, err := domain.ParseCategoryFilter(" , ,")
	if !errors.Is(err, domain.ErrInvalidCategories) {
		t.Fatalf("expected ErrInvalidCategories, got %v", err)
	}
}

func TestCategoryFilter_Key(t *testing.T) {
	a, _ := domain.ParseCategoryFilter("restaurant,cafe")
	b, _ := domain.ParseCategoryFilter("cafe,restaurant")
	if a.Key() != b.Key() {
		t.Errorf("expected order-independent keys, got %q and %q", a.Key(), b.Key())
	}

	all, _ := domain.ParseCategoryFilter("all")
	if all.Key() != "all" {
		t.Errorf("expected key 'all', got %q", all.Key())
	}
}

func TestCategoryFilter_Matches(t *testing.T) {
	all := domain.CategoryFilter{All: true}
	some := domain.CategoryFilter{Values: []string{"cafe"}}

	if !all.Matches("anything") {
		t.Error("expected 'all' to match everything")
	}
	if !some.Matches("cafe") || some.Matches("restaurant") {
		t.Error("expected filter to match only listed values")
	}
}
