package domain_test

import (
	"errors"
	"testing"

	"github.com/samirrijal/poigeo/internal/core/domain"
)

func TestParseBounds_Valid(t *testing.T) {
	b, err := domain.ParseBounds("8.5,47.3,8.6,47.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.Bounds{MinLon: 8.5, MinLat: 47.3, MaxLon: 8.6, MaxLat: 47.4}
	if b != want {
		t.Errorf("expected %+v, got %+v", want, b)
	}
}

func TestParseBounds_Whitespace(t *testing.T) {
	b, err := domain.ParseBounds(" 8.5 , 47.3,8.6 ,47.4 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.MaxLat != 47.4 {
		t.Errorf("expected max lat 47.4, got %v", b.MaxLat)
	}
}

func TestParseBounds_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"three values", "8.5,47.3,8.6"},
		{"five values", "8.5,47.3,8.6,47.4,1"},
		{"non numeric", "8.5,abc,8.6,47.4"},
		{"empty component", "8.5,,8.6,47.4"},
		{"nan", "NaN,47.3,8.6,47.4"},
		{"inf", "8.5,47.3,Inf,47.4"},
		{"lng reversed", "8.6,47.3,8.5,47.4"},
		{"lat reversed", "8.5,47.4,8.6,47.3"},
		{"lng out of range", "-181,47.3,8.6,47.4"},
		{"lat out of range", "8.5,47.3,8.6,91"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.ParseBounds(tt.in)
			if err == nil {
				t.Fatalf("expected error for %q", tt.in)
			}
			if !errors.Is(err, domain.ErrInvalidBounds) {
				t.Errorf("expected ErrInvalidBounds, got %v", err)
			}
			if !domain.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestParseBounds_DegenerateBoxAllowed(t *testing.T) {
	b, err := domain.ParseBounds("8.55,47.35,8.55,47.35")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.Contains(8.55, 47.35) {
		t.Error("expected degenerate box to contain its own point")
	}
}

func TestBounds_Contains(t *testing.T) {
	b := domain.Bounds{MinLon: 8.5, MinLat: 47.3, MaxLon: 8.6, MaxLat: 47.4}

	if !b.Contains(8.55, 47.35) {
		t.Error("expected inner point to be contained")
	}
	if !b.Contains(8.5, 47.4) {
		t.Error("expected edge point to be contained")
	}
	if b.Contains(9.0, 47.35) {
		t.Error("expected 9.0,47.35 to be outside")
	}
}

func TestBounds_StringRoundTrip(t *testing.T) {
	b := domain.Bounds{MinLon: -2.95, MinLat: 43.25, MaxLon: -2.9, MaxLat: 43.27}
	parsed, err := domain.ParseBounds(b.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != b {
		t.Errorf("expected %+v, got %+v", b, parsed)
	}
}
