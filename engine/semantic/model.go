package semantic

// VectorRecord is a single embedded vehicle to store in Qdrant.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any // description plus the VehicleRecord fields
}

// ScanFilter holds the exact-match predicates for a filtered scan. Numeric
// ranges are inclusive; string fields are canonical-token equality except
// Model, which uses full-text matching. Zero values mean "no predicate".
type ScanFilter struct {
	MinPrice   *int
	MaxPrice   *int
	MinMileage *int
	MaxMileage *int
	Color      string
	City       string
	Engine     string
	Model      string
	Year       int
}

// Payload field keys in the cars collection.
const (
	fieldModel      = "model"
	fieldGeneration = "generation"
	fieldPrice      = "price"
	fieldMileage    = "mileage"
	fieldColor      = "color"
	fieldCity       = "city"
	fieldEngine     = "engine"
	fieldModelYear  = "model_year"
	fieldURL        = "url"
	fieldContent    = "content"
)
