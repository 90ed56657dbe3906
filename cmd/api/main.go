// Package main implements the MotorMind search API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/MotorMindAI/motormind-mvp/engine/domain"
	"github.com/MotorMindAI/motormind-mvp/engine/extract"
	"github.com/MotorMindAI/motormind-mvp/engine/ingest"
	"github.com/MotorMindAI/motormind-mvp/engine/normalize"
	"github.com/MotorMindAI/motormind-mvp/engine/rag"
	"github.com/MotorMindAI/motormind-mvp/engine/search"
	"github.com/MotorMindAI/motormind-mvp/engine/semantic"
	"github.com/MotorMindAI/motormind-mvp/pkg/metrics"
	"github.com/MotorMindAI/motormind-mvp/pkg/mid"
	"github.com/MotorMindAI/motormind-mvp/pkg/natsutil"
	"github.com/MotorMindAI/motormind-mvp/pkg/openai"
	"github.com/MotorMindAI/motormind-mvp/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port           string
	OpenAIKey      string
	OpenAIBaseURL  string
	ChatModel      string
	EmbeddingModel string
	QdrantURL      string
	Collection     string
	NATSURL        string
	CORSOrigin     string
	SynonymsFile   string

	BaseThreshold  float32
	ThresholdStep  float32
	ThresholdFloor float32
	CandidateLimit int
}

func loadConfig() Config {
	defaults := search.DefaultConfig()
	return Config{
		Port:           envOr("PORT", "8080"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		ChatModel:      envOr("CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel: envOr("EMBEDDING_MODEL", ingest.DefaultEmbeddingModel),
		QdrantURL:      envOr("QDRANT_URL", "localhost:6334"),
		Collection:     envOr("QDRANT_COLLECTION", ingest.DefaultCollection),
		NATSURL:        os.Getenv("NATS_URL"),
		CORSOrigin:     envOr("CORS_ORIGIN", "*"),
		SynonymsFile:   os.Getenv("SYNONYMS_FILE"),
		BaseThreshold:  envFloat("BASE_THRESHOLD", defaults.BaseThreshold),
		ThresholdStep:  envFloat("THRESHOLD_STEP", defaults.ThresholdStep),
		ThresholdFloor: envFloat("THRESHOLD_FLOOR", defaults.ThresholdFloor),
		CandidateLimit: envInt("CANDIDATE_LIMIT", defaults.CandidateLimit),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()
	if cfg.OpenAIKey == "" {
		logger.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Normalization table ---
	table := normalize.Default()
	if cfg.SynonymsFile != "" {
		var err error
		if table, err = normalize.Load(cfg.SynonymsFile); err != nil {
			return fmt.Errorf("load synonyms: %w", err)
		}
	}

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	// --- OpenAI client behind a circuit breaker ---
	ai := openai.New(openai.Options{BaseURL: cfg.OpenAIBaseURL, APIKey: cfg.OpenAIKey})
	breaker := resilience.NewBreaker(resilience.DefaultBreakerOpts)
	guarded := &guardedAI{client: ai, breaker: breaker}

	// --- Metrics ---
	reg := metrics.New()
	resolveSeconds := reg.Histogram("resolve_seconds", "End-to-end query resolution latency.", nil)
	inventorySize := reg.Gauge("inventory_size", "Cars in the collection, from inventory.updated events.")

	// --- Build the pipeline ---
	searchCfg := search.Config{
		BaseThreshold:  cfg.BaseThreshold,
		ThresholdStep:  cfg.ThresholdStep,
		ThresholdFloor: cfg.ThresholdFloor,
		CandidateLimit: cfg.CandidateLimit,
		ScanLimit:      search.DefaultConfig().ScanLimit,
	}

	extractOpts := extract.DefaultOptions()
	extractOpts.Model = cfg.ChatModel
	extractor := extract.New(guarded, table, extractOpts, logger)

	retriever := search.NewRetriever(guarded, vectorStore, cfg.EmbeddingModel, searchCfg, logger)

	ragOpts := rag.DefaultOptions()
	ragOpts.ChatModel = cfg.ChatModel
	ragSvc := rag.New(extractor, retriever, guarded, searchCfg, ragOpts, logger)

	// --- NATS inventory updates (optional) ---
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()

		_, err = natsutil.Subscribe(nc, ingest.SubjectInventoryUpdated, func(_ context.Context, upd ingest.InventoryUpdate) {
			logger.Info("inventory updated", "collection", upd.Collection, "count", upd.Count)
			inventorySize.Set(int64(upd.Count))
		})
		if err != nil {
			return fmt.Errorf("nats subscribe: %w", err)
		}
	}

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth(vectorStore))
	mux.HandleFunc("POST /api/search", handleSearch(ragSvc, reg, resolveSeconds, logger))
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.OTel("motormind-api"),
		mid.CORS(cfg.CORSOrigin),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "collection", cfg.Collection)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// guardedAI routes OpenAI calls through the circuit breaker.
type guardedAI struct {
	client  *openai.Client
	breaker *resilience.Breaker
}

func (g *guardedAI) ChatCompletion(ctx context.Context, req openai.ChatRequest) (string, error) {
	var out string
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = g.client.ChatCompletion(ctx, req)
		return callErr
	})
	return out, err
}

func (g *guardedAI) Embedding(ctx context.Context, model, input string) ([]float32, error) {
	var out []float32
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = g.client.Embedding(ctx, model, input)
		return callErr
	})
	return out, err
}

// --- Handlers ---

func handleHealth(store *semantic.VectorStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		qdrant := "up"
		status := "ok"
		code := http.StatusOK
		if err := store.Ping(ctx); err != nil {
			qdrant = "down"
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status, "qdrant": qdrant})
	}
}

// SearchRequest is the JSON body for POST /api/search.
type SearchRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// SearchResult is one car in the response.
type SearchResult struct {
	domain.VehicleRecord
	Score float32 `json:"score"`
}

// SearchResponse is the JSON response for POST /api/search.
type SearchResponse struct {
	Answer    string           `json:"answer"`
	QueryType string           `json:"query_type"`
	Strategy  domain.Strategy  `json:"strategy,omitempty"`
	Threshold float32          `json:"threshold,omitempty"`
	Filters   domain.FilterSet `json:"filters"`
	Results   []SearchResult   `json:"results"`
}

func handleSearch(ragSvc *rag.Service, reg *metrics.Registry, resolveSeconds *metrics.Histogram, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.TopK == 0 {
			req.TopK = domain.DefaultTopK
		}

		start := time.Now()
		answer, err := ragSvc.Resolve(r.Context(), req.Question, req.TopK)
		resolveSeconds.Since(start)
		if err != nil {
			writeSearchError(w, reg, logger, err)
			return
		}

		if answer.QueryType == rag.QueryTypeRecommendation {
			reg.Counter(metrics.WithLabels("search_strategy_total",
				"strategy", string(answer.Query.Strategy)), "Searches by strategy.").Inc()
		}

		results := make([]SearchResult, len(answer.Results))
		for i, res := range answer.Results {
			results[i] = SearchResult{VehicleRecord: res.Record, Score: res.Score}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SearchResponse{
			Answer:    answer.Text,
			QueryType: answer.QueryType,
			Strategy:  answer.Query.Strategy,
			Threshold: answer.Query.Threshold,
			Filters:   answer.Query.Filters,
			Results:   results,
		})
	}
}

func writeSearchError(w http.ResponseWriter, reg *metrics.Registry, logger *slog.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Wrapped.Error())
	case errors.Is(err, domain.ErrSearchUnavailable),
		errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, resilience.ErrCircuitOpen):
		reg.Counter("search_unavailable_total", "Searches rejected because a collaborator is down.").Inc()
		logger.Error("search unavailable", "err", err)
		writeError(w, http.StatusServiceUnavailable, "search is temporarily unavailable, please retry")
	default:
		logger.Error("search failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
