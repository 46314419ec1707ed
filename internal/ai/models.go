package ai

import (
	"time"

	"nile/internal/modules/conversation"
)

// PlanInput is everything a provider sees for one turn.
type PlanInput struct {
	// Message is the user's latest text.
	Message string

	// UserContext is the compacted profile sent with the request (may be nil).
	UserContext map[string]any

	// History holds earlier turns of the conversation, oldest first.
	History []conversation.Turn

	// Now anchors relative dates ("tomorrow") in the Cairo timezone.
	Now time.Time
}
