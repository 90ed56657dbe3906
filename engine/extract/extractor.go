// Package extract turns a natural-language car search question into a
// structured FilterSet. The primary path asks the chat model to emit JSON at
// low temperature; when the model call or the parse fails, a regex heuristic
// pass runs instead, so extraction itself never fails the pipeline.
package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/MotorMindAI/motormind-mvp/engine/domain"
	"github.com/MotorMindAI/motormind-mvp/engine/normalize"
	"github.com/MotorMindAI/motormind-mvp/pkg/openai"
)

// ChatClient is the slice of the OpenAI client the extractor needs.
type ChatClient interface {
	ChatCompletion(ctx context.Context, req openai.ChatRequest) (string, error)
}

// Options configures the extraction call.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultOptions returns sensible defaults. The low temperature keeps the
// JSON output stable across runs.
func DefaultOptions() Options {
	return Options{
		Model:       "gpt-4o-mini",
		Temperature: 0.1,
		MaxTokens:   200,
		Timeout:     8 * time.Second,
	}
}

// Extractor extracts filters from questions.
type Extractor struct {
	chat   ChatClient
	table  *normalize.Table
	opts   Options
	logger *slog.Logger
}

// New creates an Extractor.
func New(chat ChatClient, table *normalize.Table, opts Options, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{chat: chat, table: table, opts: opts, logger: logger}
}

const extractSystemMessage = "You are a helpful assistant that extracts structured data from queries. Return only valid JSON."

const extractPromptTemplate = `Extract filters from this car search query in JSON format.
Query: "%s"

Extract the following information if mentioned:
- model: Car model name
- max_price: Maximum price in tenge (extract numeric value, e.g., "до 15 000 000 тенге" -> 15000000)
- min_price: Minimum price in tenge
- max_mileage: Maximum mileage in km (extract numeric value)
- min_mileage: Minimum mileage in km
- color: Car color (exact match)
- city: City name (exact match)
- year_preference: "newest", "oldest", or specific year (e.g., 2020)
- engine: Engine type (e.g., "2.5 (бензин)")

Return ONLY valid JSON in this format:
{
    "model": null or string,
    "max_price": null or number,
    "min_price": null or number,
    "max_mileage": null or number,
    "min_mileage": null or number,
    "color": null or string,
    "city": null or string,
    "year_preference": null or "newest" or "oldest" or year number,
    "engine": null or string
}

If a filter is not mentioned, use null. Return ONLY the JSON, no other text.`

// rawFilters mirrors the JSON shape the model is asked to produce. Numbers
// arrive as floats; year_preference is either a string or a number.
type rawFilters struct {
	Model          *string  `json:"model"`
	MaxPrice       *float64 `json:"max_price"`
	MinPrice       *float64 `json:"min_price"`
	MaxMileage     *float64 `json:"max_mileage"`
	MinMileage     *float64 `json:"min_mileage"`
	Color          *string  `json:"color"`
	City           *string  `json:"city"`
	YearPreference any      `json:"year_preference"`
	Engine         *string  `json:"engine"`
}

var fenceRe = regexp.MustCompile("```(?:json)?\\s*")

// Extract returns the FilterSet for a question. It never returns an error:
// if the model call fails or produces garbage the heuristic pass runs, and
// if that finds nothing the result is simply empty.
func (e *Extractor) Extract(ctx context.Context, question string) domain.FilterSet {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	content, err := e.chat.ChatCompletion(ctx, openai.ChatRequest{
		Model: e.opts.Model,
		Messages: []openai.ChatMessage{
			{Role: "system", Content: extractSystemMessage},
			{Role: "user", Content: strings.Replace(extractPromptTemplate, "%s", question, 1)},
		},
		Temperature: e.opts.Temperature,
		MaxTokens:   e.opts.MaxTokens,
	})
	if err != nil {
		e.logger.Warn("filter extraction failed, using heuristics", "error", err)
		return e.heuristic(question)
	}

	var raw rawFilters
	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(content, ""))
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		e.logger.Warn("filter extraction returned invalid JSON, using heuristics", "error", err)
		return e.heuristic(question)
	}

	return e.fromRaw(raw)
}

// fromRaw converts the model's JSON into a sanitized, canonicalized FilterSet.
func (e *Extractor) fromRaw(raw rawFilters) domain.FilterSet {
	var f domain.FilterSet

	if raw.Model != nil {
		f.Model = strings.TrimSpace(*raw.Model)
	}
	if raw.Engine != nil {
		f.Engine = strings.TrimSpace(*raw.Engine)
	}
	f.MinPrice = floatToIntPtr(raw.MinPrice)
	f.MaxPrice = floatToIntPtr(raw.MaxPrice)
	f.MinMileage = floatToIntPtr(raw.MinMileage)
	f.MaxMileage = floatToIntPtr(raw.MaxMileage)

	if raw.Color != nil && *raw.Color != "" {
		f.Color = e.table.Canonicalize(*raw.Color, normalize.Color)
	}
	if raw.City != nil && *raw.City != "" {
		f.City = e.table.Canonicalize(*raw.City, normalize.City)
	}

	switch pref := raw.YearPreference.(type) {
	case string:
		switch strings.ToLower(strings.TrimSpace(pref)) {
		case "newest":
			f.YearPref = domain.YearNewest
		case "oldest":
			f.YearPref = domain.YearOldest
		}
	case float64:
		if y := int(pref); y >= 1900 && y <= 2100 {
			f.Year = y
		}
	}

	return domain.SanitizeRanges(f)
}

func floatToIntPtr(v *float64) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}
