// Package main implements the dataset ingestion command. It reads a cars
// JSON file, builds semantic descriptions and embeddings, upserts them into
// Qdrant, and announces the refreshed inventory over NATS.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/MotorMindAI/motormind-mvp/engine/ingest"
	"github.com/MotorMindAI/motormind-mvp/engine/normalize"
	"github.com/MotorMindAI/motormind-mvp/engine/semantic"
	"github.com/MotorMindAI/motormind-mvp/pkg/natsutil"
	"github.com/MotorMindAI/motormind-mvp/pkg/openai"
)

func main() {
	_ = godotenv.Load()

	var (
		file       = flag.String("file", "cars.json", "path to the cars dataset JSON file")
		collection = flag.String("collection", envOr("QDRANT_COLLECTION", ingest.DefaultCollection), "Qdrant collection name")
		reset      = flag.Bool("reset", false, "drop and recreate the collection before ingesting")
		workers    = flag.Int("workers", ingest.DefaultWorkers, "describe/embed concurrency")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(*file, *collection, *reset, *workers, logger); err != nil {
		logger.Error("ingest failed", "err", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(file, collection string, reset bool, workers int, logger *slog.Logger) error {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	ctx := context.Background()

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read dataset: %w", err)
	}
	var cars []ingest.CarInput
	if err := json.Unmarshal(data, &cars); err != nil {
		return fmt.Errorf("parse dataset: %w", err)
	}
	logger.Info("dataset loaded", "file", file, "cars", len(cars))

	table := normalize.Default()
	if path := os.Getenv("SYNONYMS_FILE"); path != "" {
		if table, err = normalize.Load(path); err != nil {
			return fmt.Errorf("load synonyms: %w", err)
		}
	}

	store, err := semantic.New(envOr("QDRANT_URL", "localhost:6334"), collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	if reset {
		logger.Info("resetting collection", "collection", collection)
		if err := store.DeleteCollection(ctx); err != nil {
			logger.Warn("delete collection", "err", err)
		}
	}
	if err := store.EnsureCollection(ctx, ingest.DefaultVectorSize); err != nil {
		return err
	}

	ai := openai.New(openai.Options{
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		APIKey:  apiKey,
	})

	start := time.Now()
	stored, err := ingest.Run(ctx, ingest.Deps{
		Chat:           ai,
		Embed:          ai,
		Store:          store,
		Table:          table,
		ChatModel:      envOr("CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel: envOr("EMBEDDING_MODEL", ingest.DefaultEmbeddingModel),
		Workers:        workers,
		Logger:         logger,
	}, cars)
	if err != nil {
		return err
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		nc, err := nats.Connect(natsURL)
		if err != nil {
			logger.Warn("nats connect", "err", err)
		} else {
			defer nc.Drain()
			upd := ingest.InventoryUpdate{
				Collection: collection,
				Count:      stored,
				At:         time.Now().UTC().Format(time.RFC3339),
			}
			if err := natsutil.Publish(ctx, nc, ingest.SubjectInventoryUpdated, upd); err != nil {
				logger.Warn("publish inventory update", "err", err)
			}
		}
	}

	logger.Info("ingest complete", "stored", stored, "skipped", len(cars)-stored, "duration", time.Since(start))
	return nil
}
