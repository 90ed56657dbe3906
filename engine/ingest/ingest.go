// Package ingest builds the cars collection: it canonicalizes dataset
// entries, generates a semantic description per car, embeds the description,
// and upserts the result into the vector store. Descriptions carry the
// meaning; exact values live in the payload for filtering.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MotorMindAI/motormind-mvp/engine/domain"
	"github.com/MotorMindAI/motormind-mvp/engine/normalize"
	"github.com/MotorMindAI/motormind-mvp/engine/semantic"
	"github.com/MotorMindAI/motormind-mvp/pkg/fn"
	"github.com/MotorMindAI/motormind-mvp/pkg/openai"
)

const (
	// DefaultCollection is the Qdrant collection holding the inventory.
	DefaultCollection = "cars"
	// DefaultEmbeddingModel produces DefaultVectorSize-dimensional vectors.
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultVectorSize     = 1536

	// SubjectInventoryUpdated is published after a successful ingestion run.
	SubjectInventoryUpdated = "inventory.updated"

	// DefaultWorkers bounds describe/embed concurrency per run.
	DefaultWorkers = 4
	// UpsertBatchSize is the max points per upsert call.
	UpsertBatchSize = 64
)

// InventoryUpdate is the message published on SubjectInventoryUpdated.
type InventoryUpdate struct {
	Collection string `json:"collection"`
	Count      int    `json:"count"`
	At         string `json:"at"`
}

// ChatClient generates semantic descriptions.
type ChatClient interface {
	ChatCompletion(ctx context.Context, req openai.ChatRequest) (string, error)
}

// Embedder embeds descriptions.
type Embedder interface {
	Embedding(ctx context.Context, model, input string) ([]float32, error)
}

// Storer is the slice of the vector store ingestion writes to.
type Storer interface {
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Deps holds the external dependencies for an ingestion run.
type Deps struct {
	Chat           ChatClient
	Embed          Embedder
	Store          Storer
	Table          *normalize.Table
	ChatModel      string
	EmbeddingModel string
	Workers        int
	Logger         *slog.Logger
}

// NewCanonicalize returns the stage that validates a dataset entry and
// canonicalizes its color and city. The point ID is derived from the listing
// URL so re-ingesting the same dataset overwrites instead of duplicating.
func NewCanonicalize(table *normalize.Table) fn.Stage[CarInput, domain.VehicleRecord] {
	return func(_ context.Context, car CarInput) fn.Result[domain.VehicleRecord] {
		if strings.TrimSpace(car.Model) == "" {
			return fn.Err[domain.VehicleRecord](domain.NewValidationError("model", car.Model, errors.New("model is required")))
		}
		if car.Price <= 0 {
			return fn.Err[domain.VehicleRecord](domain.NewValidationError("price", fmt.Sprint(car.Price), errors.New("price must be positive")))
		}

		key := car.URL
		if key == "" {
			key = fmt.Sprintf("%s|%s|%d|%d", car.Model, car.City, car.ModelYear, car.Price)
		}

		return fn.Ok(domain.VehicleRecord{
			ID:         uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String(),
			Model:      strings.TrimSpace(car.Model),
			Generation: strings.TrimSpace(car.Generation),
			Price:      car.Price,
			Mileage:    car.Mileage,
			Color:      table.Canonicalize(car.Color, normalize.Color).Value,
			City:       table.Canonicalize(car.City, normalize.City).Value,
			Engine:     strings.TrimSpace(car.Engine),
			ModelYear:  car.ModelYear,
			URL:        car.URL,
		})
	}
}

const describeSystemMessage = "You are a helpful assistant that creates natural, semantic descriptions of cars for search purposes."

const describePromptTemplate = `Create a natural, semantic description of this car for search purposes.
Focus on describing the car in a way that would help someone find it through natural language queries.

Car details:
- Model: %s
- Generation: %s
- Year: %d
- Color: %s
- Engine: %s
- Mileage: %d
- City: %s
- Price: %d

Write a natural, conversational description that captures the essence of this car.
Focus on semantic meaning - describe what kind of car it is, its characteristics, and what someone might search for.
Do NOT include exact numeric values like specific prices or mileage numbers in the description.
Instead, describe them semantically (e.g., "affordable", "low mileage", "recent model", etc.).

Keep it concise (2-3 sentences) and natural. Write in English.`

// NewDescribe returns the stage that asks the chat model for a semantic
// description. A model failure degrades to a template description rather
// than failing the car.
func NewDescribe(chat ChatClient, model string, logger *slog.Logger) fn.Stage[domain.VehicleRecord, DescribedCar] {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, rec domain.VehicleRecord) fn.Result[DescribedCar] {
		prompt := fmt.Sprintf(describePromptTemplate,
			rec.Model, rec.Generation, rec.ModelYear, rec.Color,
			rec.Engine, rec.Mileage, rec.City, rec.Price)

		text, err := chat.ChatCompletion(ctx, openai.ChatRequest{
			Model: model,
			Messages: []openai.ChatMessage{
				{Role: "system", Content: describeSystemMessage},
				{Role: "user", Content: prompt},
			},
			Temperature: 0.3,
			MaxTokens:   150,
		})
		if err != nil {
			logger.Warn("describe failed, using template description", "model", rec.Model, "error", err)
			return fn.Ok(DescribedCar{Record: rec, Description: templateDescription(rec)})
		}
		return fn.Ok(DescribedCar{Record: rec, Description: strings.TrimSpace(text)})
	}
}

func templateDescription(rec domain.VehicleRecord) string {
	parts := []string{rec.Model}
	if rec.Generation != "" {
		parts = append(parts, rec.Generation)
	}
	if rec.Color != "" {
		parts = append(parts, "in "+rec.Color+" color")
	}
	if rec.Engine != "" {
		parts = append(parts, "with "+rec.Engine+" engine")
	}
	if rec.City != "" {
		parts = append(parts, "located in "+rec.City)
	}
	return strings.Join(parts, " ")
}

var embedRetry = fn.RetryOpts{
	MaxAttempts: 3,
	InitialWait: 200 * time.Millisecond,
	MaxWait:     2 * time.Second,
	Jitter:      true,
}

// NewEmbed returns the stage that embeds the description, with retries.
func NewEmbed(embed Embedder, model string) fn.Stage[DescribedCar, EmbeddedCar] {
	return func(ctx context.Context, car DescribedCar) fn.Result[EmbeddedCar] {
		return fn.Retry(ctx, embedRetry, func(ctx context.Context) fn.Result[EmbeddedCar] {
			vec, err := embed.Embedding(ctx, model, car.Description)
			if err != nil {
				return fn.Err[EmbeddedCar](fmt.Errorf("ingest: embed %s: %w", car.Record.ID, err))
			}
			return fn.Ok(EmbeddedCar{DescribedCar: car, Embedding: vec})
		})
	}
}

// NewPipeline wires canonicalize, describe, and embed for one car, with a
// span per stage.
func NewPipeline(deps Deps) fn.Stage[CarInput, EmbeddedCar] {
	described := fn.Then(
		fn.TracedStage("ingest.canonicalize", NewCanonicalize(deps.Table)),
		fn.TracedStage("ingest.describe", NewDescribe(deps.Chat, deps.ChatModel, deps.Logger)),
	)
	return fn.Then(described, fn.TracedStage("ingest.embed", NewEmbed(deps.Embed, deps.EmbeddingModel)))
}

// Run ingests a dataset. Cars that fail their stage are logged and skipped;
// the run only fails when the store rejects an upsert. Returns the number of
// cars stored.
func Run(ctx context.Context, deps Deps, cars []CarInput) (int, error) {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	if deps.ChatModel == "" {
		deps.ChatModel = "gpt-4o-mini"
	}
	if deps.EmbeddingModel == "" {
		deps.EmbeddingModel = DefaultEmbeddingModel
	}
	workers := deps.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	pipeline := NewPipeline(deps)
	results := fn.ParMapResult(cars, workers, func(car CarInput) fn.Result[EmbeddedCar] {
		return pipeline(ctx, car)
	})

	embedded := fn.FilterMap(results, func(r fn.Result[EmbeddedCar]) (EmbeddedCar, bool) {
		if r.IsErr() {
			_, err := r.Unwrap()
			log.Warn("ingest: car skipped", "error", err)
			return EmbeddedCar{}, false
		}
		v, _ := r.Unwrap()
		return v, true
	})

	records := fn.Map(embedded, func(car EmbeddedCar) semantic.VectorRecord {
		return semantic.VectorRecord{
			ID:        car.Record.ID,
			Embedding: car.Embedding,
			Payload:   semantic.RecordPayload(car.Record, car.Description),
		}
	})

	stored := 0
	for _, batch := range fn.Chunk(records, UpsertBatchSize) {
		if err := deps.Store.Upsert(ctx, batch); err != nil {
			return stored, fmt.Errorf("ingest: upsert: %w", err)
		}
		stored += len(batch)
	}

	log.Info("ingest run done", "input", len(cars), "stored", stored, "skipped", len(cars)-stored)
	return stored, nil
}
