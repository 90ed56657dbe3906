// Package rag orchestrates the query resolution pipeline. It validates the
// question, classifies it, extracts filters, computes the similarity
// threshold, retrieves candidates under the chosen strategy, ranks them, and
// composes the final recommendation text.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MotorMindAI/motormind-mvp/engine/domain"
	"github.com/MotorMindAI/motormind-mvp/engine/search"
	"github.com/MotorMindAI/motormind-mvp/pkg/openai"
)

// FilterExtractor turns a question into a FilterSet. It must not fail;
// degraded extraction yields an empty set.
type FilterExtractor interface {
	Extract(ctx context.Context, question string) domain.FilterSet
}

// Retriever fetches candidates under the chosen strategy.
type Retriever interface {
	Retrieve(ctx context.Context, question string, f domain.FilterSet, threshold float32) ([]domain.SearchResult, domain.Strategy, error)
}

// ChatClient is the slice of the OpenAI client the composer needs.
type ChatClient interface {
	ChatCompletion(ctx context.Context, req openai.ChatRequest) (string, error)
}

// Options configures the pipeline behaviour.
type Options struct {
	ChatModel          string
	ComposeTemperature float32
	ComposeMaxTokens   int
	ClassifyEnabled    bool
	RetrieveTimeout    time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		ChatModel:          "gpt-4o-mini",
		ComposeTemperature: 0.7,
		ComposeMaxTokens:   1000,
		ClassifyEnabled:    true,
		RetrieveTimeout:    10 * time.Second,
	}
}

// Service is the query resolution service. It is stateless per request and
// safe for concurrent use.
type Service struct {
	extract FilterExtractor
	search  Retriever
	chat    ChatClient
	cfg     search.Config
	opts    Options
	logger  *slog.Logger
}

// New creates a Service.
func New(extract FilterExtractor, retriever Retriever, chat ChatClient, cfg search.Config, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		extract: extract,
		search:  retriever,
		chat:    chat,
		cfg:     cfg,
		opts:    opts,
		logger:  logger,
	}
}

// Answer is the structured response of the pipeline.
type Answer struct {
	Text      string                `json:"text"`
	Query     domain.ResolvedQuery  `json:"query"`
	Results   []domain.SearchResult `json:"results"`
	QueryType string                `json:"query_type"`
}

// Query types.
const (
	QueryTypeGeneral        = "general"
	QueryTypeRecommendation = "recommendation"
)

// Resolve runs the full pipeline for a user question.
func (s *Service) Resolve(ctx context.Context, question string, topK int) (*Answer, error) {
	question = strings.TrimSpace(question)
	if err := domain.ValidateQuestion(question); err != nil {
		return nil, err
	}
	topK = domain.ClampTopK(topK)

	start := time.Now()
	s.logger.Info("resolve start", "question_len", len(question), "top_k", topK)

	// 1. Classification. A general question short-circuits the pipeline
	// with a generated reply; classification failures are treated as
	// search questions so retrieval is never blocked.
	if s.opts.ClassifyEnabled {
		if kind, reply := s.classify(ctx, question); kind == QueryTypeGeneral && reply != "" {
			s.logger.Info("resolve classified general", "duration", time.Since(start))
			return &Answer{Text: reply, QueryType: QueryTypeGeneral}, nil
		}
	}

	// 2. Filter extraction. Never fails.
	filters := s.extract.Extract(ctx, question)

	// 3. Threshold.
	threshold := s.cfg.Threshold(filters)

	// 4. Retrieval.
	retrieveCtx, cancel := context.WithTimeout(ctx, s.opts.RetrieveTimeout)
	defer cancel()

	results, strategy, err := s.search.Retrieve(retrieveCtx, question, filters, threshold)
	if err != nil {
		return nil, fmt.Errorf("rag: retrieve: %w", err)
	}

	// 5. Ranking.
	results = search.RankAndTrim(results, filters.YearPref, topK)

	// 6. Composition.
	text := s.compose(ctx, question, results)

	s.logger.Info("resolve done",
		"strategy", strategy,
		"filters", filters.FieldCount(),
		"threshold", threshold,
		"results", len(results),
		"duration", time.Since(start),
	)

	return &Answer{
		Text: text,
		Query: domain.ResolvedQuery{
			Question:  question,
			Filters:   filters,
			Threshold: threshold,
			Strategy:  strategy,
			Results:   results,
		},
		Results:   results,
		QueryType: QueryTypeRecommendation,
	}, nil
}
