package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	minQuestionLength = 3

	// MinTopK and MaxTopK bound the requested result count. Values outside
	// the range are clamped, not rejected: a search that runs beats a 400.
	MinTopK = 1
	MaxTopK = 20

	// DefaultTopK is applied by the boundary layer when top_k is omitted.
	DefaultTopK = 5
)

// ValidateQuestion checks a user question at pipeline entry.
func ValidateQuestion(q string) error {
	text := strings.TrimSpace(q)
	if text == "" {
		return NewValidationError("question", text, ErrQuestionEmpty)
	}
	if utf8.RuneCountInString(text) < minQuestionLength {
		return NewValidationError("question", text, ErrQuestionTooShort)
	}
	return nil
}

// ClampTopK forces k into [MinTopK, MaxTopK].
func ClampTopK(k int) int {
	if k < MinTopK {
		return MinTopK
	}
	if k > MaxTopK {
		return MaxTopK
	}
	return k
}

// SanitizeRanges drops invalid numeric bounds from a FilterSet: negative
// values are cleared and inverted ranges lose both bounds. The extractor
// must never emit min > max downstream of this call.
func SanitizeRanges(f FilterSet) FilterSet {
	f.MinPrice = dropNegative(f.MinPrice)
	f.MaxPrice = dropNegative(f.MaxPrice)
	f.MinMileage = dropNegative(f.MinMileage)
	f.MaxMileage = dropNegative(f.MaxMileage)

	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		f.MinPrice, f.MaxPrice = nil, nil
	}
	if f.MinMileage != nil && f.MaxMileage != nil && *f.MinMileage > *f.MaxMileage {
		f.MinMileage, f.MaxMileage = nil, nil
	}
	return f
}

func dropNegative(v *int) *int {
	if v != nil && *v < 0 {
		return nil
	}
	return v
}
