package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"nile/internal/planner"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements LLMProvider using Google's Gemini models.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiProvider initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	model := client.GenerativeModel(modelName)

	// Force JSON response for structured parsing.
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.6)

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

// Plan sends the turn with prior history as a chat session and decodes the JSON reply.
func (p *GeminiProvider) Plan(ctx context.Context, in PlanInput) (*planner.Response, error) {
	cs := p.model.StartChat()
	for _, turn := range in.History {
		cs.History = append(cs.History, &genai.Content{
			Role:  string(turn.Role),
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}

	// Time and profile are sent with every turn.
	fullPrompt := fmt.Sprintf("%s\n\nUser Message: %s", buildSystemPrompt(in), in.Message)

	resp, err := cs.SendMessage(ctx, genai.Text(fullPrompt))
	if err != nil {
		return nil, planner.NewTransportError(0, fmt.Errorf("gemini generation error: %w", err))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, planner.NewMalformedResponseError(nil, fmt.Errorf("no response candidates from Gemini"))
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}
	return planner.DecodeResponse([]byte(cleanJSONString(responseText.String())))
}

// buildSystemPrompt constructs the instructions for the model.
func buildSystemPrompt(in PlanInput) string {
	currentTime := "UNKNOWN_TIME"
	if !in.Now.IsZero() {
		currentTime = in.Now.Format("2006-01-02 15:04 (Monday)")
	}
	profile := "NONE"
	if len(in.UserContext) > 0 {
		if b, err := json.Marshal(in.UserContext); err == nil {
			profile = string(b)
		}
	}

	return fmt.Sprintf(`Role: You are the trip planner for "Nile", an assistant that plans accessible trips in Egypt.
Context:
- Current Cairo Time: %s
- Traveler Profile (JSON): %s

RULES:

1. MODE SELECTION:
   - Use "mode": "itinerary" ONLY when the traveler asks for a plan or has given enough detail
     (interests, pace, or dates) to build one. A message starting with
     "Please create a day-by-day itinerary" always gets an itinerary.
   - Otherwise use "mode": "chat" and ask ONE short follow-up question.

2. ACCESSIBILITY FIRST:
   - Respect every entry of "accessibility_needs" and "accessibility_flags".
   - For wheelchair or limited mobility travelers avoid stairs-only sites (e.g. inside the
     Great Pyramid) and prefer step-free alternatives.
   - "accessibility_rating" is 1 (hard) to 5 (fully accessible). Explain the rating in
     "accessibility_notes".

3. PLAN SHAPE:
   - 2 to 4 activities per day, ordered by start time, realistic travel between them.
   - Times are 24h "HH:MM". Costs are per person, numbers only, with "currency"
     ("EGP" or "USD").
   - "best_time_reason" says why the slot suits this traveler.
   - Match "interests"; honour "dietary_restrictions" for food stops.

4. SUGGESTIONS:
   - In chat mode add up to 3 short "suggestions" the traveler could tap as a reply.

5. Output JSON Schema:
{
  "mode": "chat" | "itinerary",
  "message": "string (user facing, no markdown)",
  "suggestions": ["string"],
  "itinerary": {
    "daily_plans": [{
      "day": integer (from 1),
      "date": "YYYY-MM-DD or empty",
      "title": "string",
      "activities": [{
        "title": "string",
        "location_name": "string",
        "start_time": "HH:MM",
        "end_time": "HH:MM",
        "estimated_cost_min": number,
        "estimated_cost_max": number,
        "currency": "string",
        "tags": ["string"],
        "category": "string",
        "best_time_reason": "string",
        "description": "string",
        "accessibility_rating": integer,
        "accessibility_notes": "string"
      }]
    }]
  } | null
}
`, currentTime, profile)
}

// cleanJSONString removes markdown code blocks if present (e.g. ```json ... ```)
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
