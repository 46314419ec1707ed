// README: Planning phases and the pure (phase, event) -> (phase, effects) transition function.
package session

import "fmt"

type Phase string

const (
	PhaseChat       Phase = "chat"
	PhaseGenerating Phase = "generating"
	PhaseReview     Phase = "review"
	PhaseConfirmed  Phase = "confirmed"
)

// AllowedTransitions represents the planning flow as code.
var AllowedTransitions = map[Phase][]Phase{
	PhaseChat:       {PhaseGenerating},
	PhaseGenerating: {PhaseReview, PhaseChat},
	PhaseReview:     {PhaseConfirmed, PhaseGenerating, PhaseChat},
	PhaseConfirmed:  {PhaseGenerating, PhaseChat},
}

func CanTransition(from, to Phase) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, p := range next {
		if p == to {
			return true
		}
	}
	return false
}

type EventKind string

const (
	// EventPreferencesComplete fires when the last onboarding step is answered.
	EventPreferencesComplete EventKind = "preferences_complete"
	// EventItinerarySignalled fires when a chat reply already carries a plan.
	EventItinerarySignalled  EventKind = "itinerary_signalled"
	EventGenerationSucceeded EventKind = "generation_succeeded"
	EventGenerationChatOnly  EventKind = "generation_chat_only"
	EventGenerationFailed    EventKind = "generation_failed"
	EventConfirm             EventKind = "confirm"
	EventSaveAcked           EventKind = "save_acked"
	EventSaveFailed          EventKind = "save_failed"
	EventRegenerate          EventKind = "regenerate"
	// EventRestartPreferences is regenerate when collected preferences are not reused.
	EventRestartPreferences EventKind = "restart_preferences"
)

type Event struct {
	Kind EventKind
	// AcceptedCount guards EventConfirm.
	AcceptedCount int
	// Saving guards EventConfirm and EventRegenerate while a commit is in flight.
	Saving bool
	// Err is the failure detail for EventGenerationFailed and EventSaveFailed.
	Err error
}

type Effect string

const (
	EffectRequestGeneration Effect = "request_generation"
	EffectPopulateItems     Effect = "populate_items"
	EffectStartReveal       Effect = "start_reveal"
	EffectAppendReply       Effect = "append_reply"
	EffectAppendError       Effect = "append_error"
	EffectCallGateway       Effect = "call_gateway"
	EffectMarkApplied       Effect = "mark_applied"
	EffectNotify            Effect = "notify"
	EffectClearItems        Effect = "clear_items"
	EffectStartPreferences  Effect = "start_preferences"
)

// Transition is the whole phase machine. It has no side effects; the controller
// performs the returned effects in order. A confirm stays in review until the
// gateway acknowledges it.
func Transition(from Phase, ev Event) (Phase, []Effect, error) {
	switch ev.Kind {
	case EventPreferencesComplete:
		return move(from, PhaseChat, PhaseGenerating, EffectRequestGeneration)
	case EventItinerarySignalled:
		return move(from, PhaseChat, PhaseGenerating)
	case EventGenerationSucceeded:
		return move(from, PhaseGenerating, PhaseReview, EffectPopulateItems, EffectStartReveal)
	case EventGenerationChatOnly:
		return move(from, PhaseGenerating, PhaseChat, EffectAppendReply)
	case EventGenerationFailed:
		return move(from, PhaseGenerating, PhaseChat, EffectAppendError)
	case EventConfirm:
		if from != PhaseReview {
			return from, nil, invalid(from, ev.Kind)
		}
		if ev.Saving {
			return from, nil, ErrBusy
		}
		if ev.AcceptedCount <= 0 {
			return from, nil, ErrNothingAccepted
		}
		return PhaseReview, []Effect{EffectCallGateway}, nil
	case EventSaveAcked:
		return move(from, PhaseReview, PhaseConfirmed, EffectMarkApplied, EffectNotify)
	case EventSaveFailed:
		if from != PhaseReview {
			return from, nil, invalid(from, ev.Kind)
		}
		return PhaseReview, []Effect{EffectNotify}, nil
	case EventRegenerate, EventRestartPreferences:
		if from != PhaseReview && from != PhaseConfirmed {
			return from, nil, invalid(from, ev.Kind)
		}
		if ev.Saving {
			return from, nil, ErrBusy
		}
		if ev.Kind == EventRegenerate {
			return PhaseGenerating, []Effect{EffectClearItems, EffectRequestGeneration}, nil
		}
		return PhaseChat, []Effect{EffectClearItems, EffectStartPreferences}, nil
	}
	return from, nil, fmt.Errorf("%w: unknown event %q", ErrInvalidPhase, ev.Kind)
}

func move(from, want, to Phase, effects ...Effect) (Phase, []Effect, error) {
	if from != want || !CanTransition(from, to) {
		return from, nil, fmt.Errorf("%w: cannot go from %s to %s", ErrInvalidPhase, from, to)
	}
	return to, effects, nil
}

func invalid(from Phase, kind EventKind) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidPhase, kind, from)
}
