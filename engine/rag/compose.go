package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MotorMindAI/motormind-mvp/engine/domain"
	"github.com/MotorMindAI/motormind-mvp/pkg/openai"
)

const composeSystemMessage = "You are an expert car consultant. Your role is to help customers find the best car that " +
	"matches their needs and preferences. You provide clear, helpful recommendations based on the available inventory."

const composePromptTemplate = `A customer is asking: "%s"

Below are cars from our inventory that match their query (sorted by relevance):

%s

Please provide a helpful recommendation following these guidelines:
1. Analyze the customer's question and identify their key requirements (price range, mileage, color, location, etc.)
2. Recommend the best matching car(s) from the list above
3. For each recommended car, clearly state why it matches their needs
4. Format your response in a friendly, conversational manner
5. Include the URL for each recommended car so the customer can view more details

If no cars truly match the customer's requirements, politely explain this and suggest alternative criteria.`

const noMatchesFallback = "Unfortunately, nothing in our current inventory matches your request. " +
	"Try relaxing the price or mileage limits, or a different color or city, and we will look again."

// compose turns ranked results into the recommendation text. A composer
// failure never fails the request: the formatted inventory list stands in.
func (s *Service) compose(ctx context.Context, question string, results []domain.SearchResult) string {
	if len(results) == 0 {
		return s.composeNoMatches(ctx, question)
	}

	text, err := s.chat.ChatCompletion(ctx, openai.ChatRequest{
		Model: s.opts.ChatModel,
		Messages: []openai.ChatMessage{
			{Role: "system", Content: composeSystemMessage},
			{Role: "user", Content: fmt.Sprintf(composePromptTemplate, question, formatResults(results))},
		},
		Temperature: s.opts.ComposeTemperature,
		MaxTokens:   s.opts.ComposeMaxTokens,
	})
	if err != nil {
		s.logger.Warn("compose failed, returning inventory list", "error", err)
		return "Here is what matches your request:\n\n" + formatResults(results)
	}
	return strings.TrimSpace(text)
}

const noMatchesPromptTemplate = `A customer is asking: "%s"

Nothing in our inventory matched their query. Politely explain this and
suggest which criteria (price range, mileage, color, city, year) they could
relax. Keep it to 2-3 sentences, no placeholders or template variables.`

func (s *Service) composeNoMatches(ctx context.Context, question string) string {
	text, err := s.chat.ChatCompletion(ctx, openai.ChatRequest{
		Model: s.opts.ChatModel,
		Messages: []openai.ChatMessage{
			{Role: "system", Content: composeSystemMessage},
			{Role: "user", Content: fmt.Sprintf(noMatchesPromptTemplate, question)},
		},
		Temperature: s.opts.ComposeTemperature,
		MaxTokens:   200,
	})
	if err != nil {
		s.logger.Warn("no-matches compose failed, returning fallback", "error", err)
		return noMatchesFallback
	}
	return strings.TrimSpace(text)
}

// formatResults renders results as the numbered inventory list fed to the
// composer prompt.
func formatResults(results []domain.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		rec := r.Record
		fmt.Fprintf(&b, "%d. %s", i+1, rec.Model)
		if rec.Generation != "" {
			fmt.Fprintf(&b, " (%s)", rec.Generation)
		}
		if rec.ModelYear != 0 {
			fmt.Fprintf(&b, ", %d", rec.ModelYear)
		}
		if rec.Price != 0 {
			fmt.Fprintf(&b, ", %d ₸", rec.Price)
		}
		if rec.Mileage != 0 {
			fmt.Fprintf(&b, ", %d km", rec.Mileage)
		}
		if rec.Color != "" {
			fmt.Fprintf(&b, ", %s", rec.Color)
		}
		if rec.City != "" {
			fmt.Fprintf(&b, ", %s", rec.City)
		}
		if rec.Engine != "" {
			fmt.Fprintf(&b, ", %s", rec.Engine)
		}
		if rec.URL != "" {
			fmt.Fprintf(&b, "\n   URL: %s", rec.URL)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

const classifySystemMessage = `You are an expert car consultant for an online car showroom.
Decide whether the client is asking a general question or searching for a car.
Respond with a JSON object with these fields:
- type: "general" or "recommendation"
- message: empty if type is "recommendation", otherwise a polite reply that
  explains we only help with choosing cars in our showroom.
Do not provide any information unrelated to our services.`

type classifyResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// classify detects whether a question is a car search at all. Any failure
// defaults to the recommendation path so retrieval is never blocked.
func (s *Service) classify(ctx context.Context, question string) (string, string) {
	content, err := s.chat.ChatCompletion(ctx, openai.ChatRequest{
		Model: s.opts.ChatModel,
		Messages: []openai.ChatMessage{
			{Role: "system", Content: classifySystemMessage},
			{Role: "user", Content: question},
		},
		Temperature: 0.1,
		MaxTokens:   100,
	})
	if err != nil {
		s.logger.Warn("classification failed, assuming search question", "error", err)
		return QueryTypeRecommendation, ""
	}

	cleaned := strings.TrimSpace(strings.NewReplacer("```json", "", "```", "").Replace(content))
	var resp classifyResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		s.logger.Warn("classification returned invalid JSON, assuming search question", "error", err)
		return QueryTypeRecommendation, ""
	}
	if resp.Type == QueryTypeGeneral {
		return QueryTypeGeneral, strings.TrimSpace(resp.Message)
	}
	return QueryTypeRecommendation, ""
}
