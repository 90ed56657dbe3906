package domain

import (
	"errors"
	"testing"
)

func intp(v int) *int { return &v }

func TestFieldCount(t *testing.T) {
	tests := []struct {
		name string
		f    FilterSet
		want int
	}{
		{"empty", FilterSet{}, 0},
		{"model only", FilterSet{Model: "Toyota Camry"}, 1},
		{"price range counts once", FilterSet{MinPrice: intp(1), MaxPrice: intp(2)}, 1},
		{"max price only", FilterSet{MaxPrice: intp(5000000)}, 1},
		{"mileage range counts once", FilterSet{MinMileage: intp(0), MaxMileage: intp(100000)}, 1},
		{"year pref counts", FilterSet{YearPref: YearNewest}, 1},
		{"exact year counts", FilterSet{Year: 2020}, 1},
		{
			"all fields",
			FilterSet{
				Model:      "Lexus RX",
				MaxPrice:   intp(20000000),
				MinMileage: intp(1000),
				Color:      Token{Value: "gray", Canonical: true},
				City:       Token{Value: "Алматы", Canonical: true},
				Year:       2021,
				Engine:     "3.5 (бензин)",
			},
			7,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.FieldCount(); got != tt.want {
				t.Errorf("FieldCount() = %d, want %d", got, tt.want)
			}
			if tt.f.IsEmpty() != (tt.want == 0) {
				t.Errorf("IsEmpty() = %v with %d fields", tt.f.IsEmpty(), tt.want)
			}
		})
	}
}

func TestHasExact(t *testing.T) {
	if (FilterSet{Model: "Camry"}).HasExact() {
		t.Error("model alone is loose, not exact")
	}
	if (FilterSet{YearPref: YearNewest}).HasExact() {
		t.Error("year preference is a sort hint, not an exact filter")
	}
	for name, f := range map[string]FilterSet{
		"max price": {MaxPrice: intp(5000000)},
		"color":     {Color: Token{Value: "silver", Canonical: true}},
		"city":      {City: Token{Value: "Астана", Canonical: true}},
		"year":      {Year: 2019},
		"engine":    {Engine: "2.5 (бензин)"},
		"mileage":   {MaxMileage: intp(50000)},
	} {
		if !f.HasExact() {
			t.Errorf("%s: expected HasExact", name)
		}
	}
}

func TestValidateQuestion(t *testing.T) {
	if err := ValidateQuestion("Find a red Honda Accord"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateQuestion("   "); !errors.Is(err, ErrQuestionEmpty) {
		t.Errorf("expected ErrQuestionEmpty, got %v", err)
	}
	if err := ValidateQuestion("ok"); !errors.Is(err, ErrQuestionTooShort) {
		t.Errorf("expected ErrQuestionTooShort, got %v", err)
	}
	// Non-Latin questions are counted in runes, not bytes.
	if err := ValidateQuestion("джип"); err != nil {
		t.Errorf("unexpected error for cyrillic question: %v", err)
	}
}

func TestClampTopK(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 1}, {-5, 1}, {1, 1}, {5, 5}, {20, 20}, {21, 20}, {1000, 20},
	}
	for _, tt := range tests {
		if got := ClampTopK(tt.in); got != tt.want {
			t.Errorf("ClampTopK(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeRanges(t *testing.T) {
	// Inverted price range drops both bounds.
	f := SanitizeRanges(FilterSet{MinPrice: intp(10), MaxPrice: intp(5)})
	if f.MinPrice != nil || f.MaxPrice != nil {
		t.Error("inverted price range should drop both bounds")
	}

	// Valid range survives.
	f = SanitizeRanges(FilterSet{MinPrice: intp(5), MaxPrice: intp(10)})
	if f.MinPrice == nil || f.MaxPrice == nil {
		t.Error("valid price range should survive")
	}

	// Negative bounds are cleared before the inversion check.
	f = SanitizeRanges(FilterSet{MinMileage: intp(-1), MaxMileage: intp(100)})
	if f.MinMileage != nil {
		t.Error("negative mileage bound should be dropped")
	}
	if f.MaxMileage == nil {
		t.Error("positive mileage bound should survive")
	}

	// Inverted mileage range drops both bounds.
	f = SanitizeRanges(FilterSet{MinMileage: intp(200000), MaxMileage: intp(100)})
	if f.MinMileage != nil || f.MaxMileage != nil {
		t.Error("inverted mileage range should drop both bounds")
	}
}

func TestStageError(t *testing.T) {
	err := NewStageError(StageEmbed, ErrSearchUnavailable)
	if !errors.Is(err, ErrSearchUnavailable) {
		t.Error("StageError should unwrap to its cause")
	}
	if err.Error() != "stage embed: search unavailable" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
