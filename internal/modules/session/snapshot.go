// README: Read-only copy of a session for handlers and tests.
package session

import (
	"nile/internal/modules/chatlog"
	"nile/internal/modules/itinerary"
	"nile/internal/modules/preference"
	"nile/internal/types"
)

type PromptState struct {
	ID        types.ID `json:"id"`
	Step      string   `json:"step"`
	Multi     bool     `json:"multi_select"`
	Selected  []string `json:"selected"`
	CanSubmit bool     `json:"can_submit"`
}

type Snapshot struct {
	ID             types.ID           `json:"id"`
	UserID         string             `json:"user_id,omitempty"`
	Phase          Phase              `json:"phase"`
	ConversationID string             `json:"conversation_id,omitempty"`
	Composing      bool               `json:"composing"`
	Entries        []chatlog.Entry    `json:"entries"`
	Profile        preference.Profile `json:"profile"`
	// Items is the full generated list; only the first RevealCount are shown.
	Items         []itinerary.Item `json:"items"`
	RevealCount   int              `json:"reveal_count"`
	AcceptedCount int              `json:"accepted_count"`
	CanConfirm    bool             `json:"can_confirm"`
	Saving        bool             `json:"saving"`
	ActivePrompt  *PromptState     `json:"active_prompt,omitempty"`
	LastError     string           `json:"last_error,omitempty"`
	Notice        string           `json:"notice,omitempty"`
	ItineraryID   string           `json:"itinerary_id,omitempty"`
}

// VisibleItems returns the items the reveal has reached so far.
func (s Snapshot) VisibleItems() []itinerary.Item {
	n := s.RevealCount
	if n > len(s.Items) {
		n = len(s.Items)
	}
	return s.Items[:n]
}

func (c *Controller) snapshot() Snapshot {
	snap := Snapshot{
		ID:             c.id,
		UserID:         c.userID,
		Phase:          c.phase,
		ConversationID: c.conversationID,
		Composing:      c.composing,
		Entries:        c.log.Entries(),
		Profile:        c.collector.Profile(),
		Items:          c.ledger.Items(),
		RevealCount:    c.sequencer.Count(),
		AcceptedCount:  c.ledger.AcceptedCount(),
		Saving:         c.saving,
		LastError:      c.lastError,
		Notice:         c.notice,
		ItineraryID:    c.itineraryID,
	}
	snap.CanConfirm = c.phase == PhaseReview && !c.saving && c.ledger.CanConfirm()
	if p := c.collector.ActivePrompt(); p != nil {
		q := p.Question()
		snap.ActivePrompt = &PromptState{
			ID:        p.ID,
			Step:      q.Key,
			Multi:     q.MultiSelect,
			Selected:  p.SelectedValues(),
			CanSubmit: p.CanSubmit(),
		}
	}
	return snap
}
