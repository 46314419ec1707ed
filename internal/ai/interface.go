// README: LLM provider contract for the in-process planner backend.
package ai

import (
	"context"

	"nile/internal/planner"
)

// LLMProvider answers one planner turn. Providers return the response without a
// conversation id; the planner service owns conversation ids and history.
// This interface allows swapping Gemini for the mock or another model.
type LLMProvider interface {
	Plan(ctx context.Context, in PlanInput) (*planner.Response, error)
}
