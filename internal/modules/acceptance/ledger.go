// README: Acceptance ledger; per-item accept/decline flags frozen once the plan is committed.
package acceptance

import (
	"errors"

	"nile/internal/modules/itinerary"
)

var (
	ErrUnknownItem     = errors.New("itinerary item not found")
	ErrFrozen          = errors.New("itinerary already confirmed")
	ErrNothingAccepted = errors.New("accept at least one activity before confirming")
)

// Ledger holds the current generated items. Not safe for concurrent use.
type Ledger struct {
	items  []itinerary.Item
	index  map[string]int
	frozen bool
}

func NewLedger() *Ledger {
	return &Ledger{index: map[string]int{}}
}

// Load replaces the item list. acceptAll seeds every item as accepted.
func (l *Ledger) Load(items []itinerary.Item, acceptAll bool) {
	l.items = make([]itinerary.Item, len(items))
	l.index = make(map[string]int, len(items))
	for i, item := range items {
		item = item.Clone()
		item.Accepted = acceptAll
		l.items[i] = item
		l.index[item.ID] = i
	}
	l.frozen = false
}

func (l *Ledger) Clear() {
	l.Load(nil, false)
}

// Toggle sets the flag unconditionally, so repeating a toggle is a no-op.
func (l *Ledger) Toggle(id string, accepted bool) error {
	if l.frozen {
		return ErrFrozen
	}
	i, ok := l.index[id]
	if !ok {
		return ErrUnknownItem
	}
	l.items[i].Accepted = accepted
	return nil
}

func (l *Ledger) AcceptedCount() int {
	n := 0
	for _, item := range l.items {
		if item.Accepted {
			n++
		}
	}
	return n
}

func (l *Ledger) CanConfirm() bool {
	return !l.frozen && l.AcceptedCount() > 0
}

// Accepted returns the accepted subset in plan order.
func (l *Ledger) Accepted() []itinerary.Item {
	var out []itinerary.Item
	for _, item := range l.items {
		if item.Accepted {
			out = append(out, item.Clone())
		}
	}
	return out
}

func (l *Ledger) Items() []itinerary.Item {
	out := make([]itinerary.Item, len(l.items))
	for i, item := range l.items {
		out[i] = item.Clone()
	}
	return out
}

func (l *Ledger) Len() int {
	return len(l.items)
}

// Begin freezes the ledger for a commit and returns the accepted subset.
func (l *Ledger) Begin() ([]itinerary.Item, error) {
	if l.frozen {
		return nil, ErrFrozen
	}
	accepted := l.Accepted()
	if len(accepted) == 0 {
		return nil, ErrNothingAccepted
	}
	l.frozen = true
	return accepted, nil
}

// Abort reopens the ledger after a failed commit.
func (l *Ledger) Abort() {
	l.frozen = false
}

func (l *Ledger) Frozen() bool {
	return l.frozen
}
