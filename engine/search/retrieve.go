package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MotorMindAI/motormind-mvp/engine/domain"
	"github.com/MotorMindAI/motormind-mvp/engine/normalize"
	"github.com/MotorMindAI/motormind-mvp/engine/semantic"
)

// Embedder is the slice of the OpenAI client the retriever needs.
type Embedder interface {
	Embedding(ctx context.Context, model, input string) ([]float32, error)
}

// Store abstracts the vector store.
type Store interface {
	Search(ctx context.Context, embedding []float32, limit int) ([]domain.SearchResult, error)
	Scroll(ctx context.Context, filter semantic.ScanFilter, limit int) ([]domain.SearchResult, error)
}

// Retriever runs the chosen strategy against the store and applies the
// post-filter and threshold cut for the vector branch.
type Retriever struct {
	embed      Embedder
	store      Store
	embedModel string
	cfg        Config
	logger     *slog.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(embed Embedder, store Store, embedModel string, cfg Config, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embed: embed, store: store, embedModel: embedModel, cfg: cfg, logger: logger}
}

// Retrieve fetches candidates for the question. Results are unordered and
// untrimmed; ranking happens upstream. The returned strategy is the one
// actually executed, which may differ from the initial choice when the
// embedding collaborator is down and a scan can stand in.
func (r *Retriever) Retrieve(ctx context.Context, question string, f domain.FilterSet, threshold float32) ([]domain.SearchResult, domain.Strategy, error) {
	if Choose(f) == domain.StrategyFilteredScan {
		results, err := r.scan(ctx, f)
		return results, domain.StrategyFilteredScan, err
	}

	embedding, err := r.embed.Embedding(ctx, r.embedModel, question)
	if err != nil {
		if f.FieldCount() > 0 {
			r.logger.Warn("embedding failed, degrading to filtered scan", "error", err)
			results, scanErr := r.scan(ctx, f)
			return results, domain.StrategyFilteredScan, scanErr
		}
		return nil, domain.StrategyVectorSearch,
			domain.NewStageError(domain.StageEmbed, fmt.Errorf("%w: %v", domain.ErrSearchUnavailable, err))
	}

	candidates, err := r.store.Search(ctx, embedding, r.cfg.CandidateLimit)
	if err != nil {
		return nil, domain.StrategyVectorSearch,
			domain.NewStageError(domain.StageRetrieve, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err))
	}

	results := make([]domain.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= threshold && matchRecord(c.Record, f) {
			results = append(results, c)
		}
	}
	return results, domain.StrategyVectorSearch, nil
}

func (r *Retriever) scan(ctx context.Context, f domain.FilterSet) ([]domain.SearchResult, error) {
	results, err := r.store.Scroll(ctx, scanFilter(f), r.cfg.ScanLimit)
	if err != nil {
		return nil, domain.NewStageError(domain.StageRetrieve, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err))
	}
	return results, nil
}

// scanFilter translates a FilterSet into store predicates.
func scanFilter(f domain.FilterSet) semantic.ScanFilter {
	return semantic.ScanFilter{
		MinPrice:   f.MinPrice,
		MaxPrice:   f.MaxPrice,
		MinMileage: f.MinMileage,
		MaxMileage: f.MaxMileage,
		Color:      f.Color.Value,
		City:       f.City.Value,
		Engine:     f.Engine,
		Model:      f.Model,
		Year:       f.Year,
	}
}

// matchRecord applies the filter set to a vector-search candidate. Color and
// city compare as canonical tokens; model and engine match loosely so "Camry"
// finds "Toyota Camry 70"; ranges are inclusive.
func matchRecord(rec domain.VehicleRecord, f domain.FilterSet) bool {
	if f.MinPrice != nil && rec.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && rec.Price > *f.MaxPrice {
		return false
	}
	if f.MinMileage != nil && rec.Mileage < *f.MinMileage {
		return false
	}
	if f.MaxMileage != nil && rec.Mileage > *f.MaxMileage {
		return false
	}
	if !f.Color.IsZero() && !strings.EqualFold(rec.Color, f.Color.Value) {
		return false
	}
	if !f.City.IsZero() && !strings.EqualFold(rec.City, f.City.Value) {
		return false
	}
	if f.Model != "" && !looseContains(rec.Model, f.Model) {
		return false
	}
	if f.Engine != "" && !looseContains(rec.Engine, f.Engine) {
		return false
	}
	if f.Year != 0 && rec.ModelYear != f.Year {
		return false
	}
	return true
}

// looseContains reports whether the folded haystack contains the folded
// needle in either direction.
func looseContains(hay, needle string) bool {
	h, n := normalize.Fold(hay), normalize.Fold(needle)
	return strings.Contains(h, n) || strings.Contains(n, h)
}
