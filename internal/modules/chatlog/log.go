// README: Append-only chat log; only saved flags and plan actions mutate in place.
package chatlog

import (
	"errors"
	"time"

	"nile/internal/types"
)

var (
	ErrNotFound = errors.New("chat entry not found")
	ErrApplied  = errors.New("plan action already applied")
)

// Log is owned by a single session goroutine and is not safe for concurrent use.
type Log struct {
	entries []Entry
	now     func() time.Time
}

func New() *Log {
	return &Log{now: time.Now}
}

func (l *Log) append(e Entry) Entry {
	e.ID = types.NewID()
	e.At = l.now().UTC()
	l.entries = append(l.entries, e)
	return e.clone()
}

func (l *Log) AppendMessage(sender Sender, text string, prompt *QuickReplyPrompt) Entry {
	return l.append(Entry{
		Kind:    KindMessage,
		Message: &Message{Text: text, Sender: sender, QuickReplies: prompt},
	})
}

func (l *Log) AppendCard(card SuggestionCard) Entry {
	return l.append(Entry{Kind: KindSuggestionCard, Card: &card})
}

func (l *Log) AppendDivider(label string) Entry {
	return l.append(Entry{Kind: KindSectionDivider, Divider: &SectionDivider{Label: label}})
}

func (l *Log) AppendPlanAction(planID types.ID, label string) Entry {
	return l.append(Entry{Kind: KindPlanAction, Action: &PlanAction{PlanID: planID, Label: label}})
}

// SetSaved flips the saved flag on the most recent card for activityID.
func (l *Log) SetSaved(activityID string, saved bool) error {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if c := l.entries[i].Card; c != nil && c.ActivityID == activityID {
			c.Saved = saved
			return nil
		}
	}
	return ErrNotFound
}

// MarkApplied marks the plan action applied and swaps its label. It can only happen once.
func (l *Log) MarkApplied(planID types.ID, label string) error {
	for i := len(l.entries) - 1; i >= 0; i-- {
		a := l.entries[i].Action
		if a == nil || a.PlanID != planID {
			continue
		}
		if a.Applied {
			return ErrApplied
		}
		a.Applied = true
		a.Label = label
		return nil
	}
	return ErrNotFound
}

// Prompt finds a quick-reply prompt by id.
func (l *Log) Prompt(id types.ID) (*QuickReplyPrompt, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		m := l.entries[i].Message
		if m != nil && m.QuickReplies != nil && m.QuickReplies.ID == id {
			return m.QuickReplies, true
		}
	}
	return nil, false
}

func (l *Log) Len() int {
	return len(l.entries)
}

// Entries returns a deep copy safe to hand to other goroutines.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.clone()
	}
	return out
}
