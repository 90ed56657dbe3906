// Package domain defines core domain types, constants, and validation for the
// MotorMind search pipeline. It acts as the validation gate at pipeline entry points.
package domain

// Token is a color or city value that has passed through the normalization
// table. Canonical is false when the raw value had no known mapping; exact
// matching then degrades to literal comparison on the raw value.
type Token struct {
	Value     string `json:"value"`
	Canonical bool   `json:"canonical"`
}

// IsZero reports whether the token is unset.
func (t Token) IsZero() bool { return t.Value == "" }

// YearPreference is a soft ordering hint extracted from the question.
type YearPreference string

const (
	YearAny    YearPreference = ""
	YearNewest YearPreference = "newest"
	YearOldest YearPreference = "oldest"
)

// FilterSet is the structured output of filter extraction. Every field is
// optional; the zero value means "no constraint" (pure semantic search).
type FilterSet struct {
	Model      string         `json:"model,omitempty"`
	MinPrice   *int           `json:"min_price,omitempty"`
	MaxPrice   *int           `json:"max_price,omitempty"`
	MinMileage *int           `json:"min_mileage,omitempty"`
	MaxMileage *int           `json:"max_mileage,omitempty"`
	Color      Token          `json:"color,omitempty"`
	City       Token          `json:"city,omitempty"`
	Year       int            `json:"year,omitempty"`
	YearPref   YearPreference `json:"year_preference,omitempty"`
	Engine     string         `json:"engine,omitempty"`
}

// IsEmpty reports whether no filter field is set.
func (f FilterSet) IsEmpty() bool { return f.FieldCount() == 0 }

// FieldCount returns the number of active filter fields. A price range
// counts once whether one or both bounds are set; same for mileage. Model,
// color, city, engine, and year (exact or preference) count one each.
func (f FilterSet) FieldCount() int {
	n := 0
	if f.Model != "" {
		n++
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		n++
	}
	if f.MinMileage != nil || f.MaxMileage != nil {
		n++
	}
	if !f.Color.IsZero() {
		n++
	}
	if !f.City.IsZero() {
		n++
	}
	if f.Year != 0 || f.YearPref != YearAny {
		n++
	}
	if f.Engine != "" {
		n++
	}
	return n
}

// HasExact reports whether any exact-match filter is present. Model is
// excluded: it is loosely matched and does not support exact scanning on
// its own. A year preference is a sort hint, not a filter.
func (f FilterSet) HasExact() bool {
	return f.MinPrice != nil || f.MaxPrice != nil ||
		f.MinMileage != nil || f.MaxMileage != nil ||
		!f.Color.IsZero() || !f.City.IsZero() ||
		f.Year != 0 || f.Engine != ""
}

// VehicleRecord is one inventory item. Records are immutable once ingested;
// the pipeline only reads them.
type VehicleRecord struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	Generation string `json:"generation,omitempty"`
	Price      int    `json:"price"`
	Mileage    int    `json:"mileage"`
	Color      string `json:"color"`
	City       string `json:"city"`
	Engine     string `json:"engine"`
	ModelYear  int    `json:"model_year"`
	URL        string `json:"url,omitempty"`
}

// SearchResult pairs a VehicleRecord with its similarity score. Scanned
// results satisfy every active filter exactly and carry maximal relevance.
type SearchResult struct {
	Record  VehicleRecord `json:"record"`
	Score   float32       `json:"score"`
	Scanned bool          `json:"scanned,omitempty"`
}

// Strategy tags the retrieval strategy chosen for a request.
type Strategy string

const (
	StrategyVectorSearch Strategy = "vector_search"
	StrategyFilteredScan Strategy = "filtered_scan"
)

// ResolvedQuery is the per-request pipeline state. It is created per
// request, never persisted, and never shared across requests.
type ResolvedQuery struct {
	Question  string         `json:"question"`
	Filters   FilterSet      `json:"filters"`
	Threshold float32        `json:"threshold"`
	Strategy  Strategy       `json:"strategy"`
	Results   []SearchResult `json:"results"`
}
