package ingest

import "github.com/MotorMindAI/motormind-mvp/engine/domain"

// CarInput is one entry of the cars dataset file.
type CarInput struct {
	Model      string `json:"model"`
	Generation string `json:"generation"`
	ModelYear  int    `json:"modelYear"`
	Color      string `json:"color"`
	Engine     string `json:"engine"`
	Mileage    int    `json:"mileage"`
	City       string `json:"city"`
	Price      int    `json:"price"`
	URL        string `json:"url"`
}

// DescribedCar pairs a canonicalized record with its semantic description.
type DescribedCar struct {
	Record      domain.VehicleRecord
	Description string
}

// EmbeddedCar is a described car with its embedding, ready to store.
type EmbeddedCar struct {
	DescribedCar
	Embedding []float32
}
