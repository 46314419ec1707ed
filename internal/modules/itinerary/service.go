// README: Itinerary service validates and commits accepted plans.
package itinerary

import (
	"context"
	"errors"
	"strings"
	"time"

	"nile/internal/types"
)

var (
	ErrNotFound   = errors.New("itinerary not found")
	ErrEmpty      = errors.New("itinerary has no items")
	ErrBadRequest = errors.New("bad request")
)

const maxListLimit = 50

type Repository interface {
	Create(ctx context.Context, it *Itinerary) error
	Get(ctx context.Context, id types.ID) (*Itinerary, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Itinerary, error)
}

type Service struct {
	store Repository
	now   func() time.Time
}

func NewService(store Repository) *Service {
	return &Service{store: store, now: time.Now}
}

type SaveCommand struct {
	UserID         string
	ConversationID string
	Items          []Item
}

func (s *Service) Save(ctx context.Context, cmd SaveCommand) (*Itinerary, error) {
	if len(cmd.Items) == 0 {
		return nil, ErrEmpty
	}
	seen := make(map[string]bool, len(cmd.Items))
	items := make([]Item, len(cmd.Items))
	for i, item := range cmd.Items {
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" || seen[item.ID] || item.Day < 1 {
			return nil, ErrBadRequest
		}
		seen[item.ID] = true
		item = item.Clone()
		item.Accepted = true
		item.AccessibilityRating = ClampRating(item.AccessibilityRating)
		items[i] = item
	}

	it := &Itinerary{
		ID:             types.NewID(),
		ConversationID: cmd.ConversationID,
		UserID:         cmd.UserID,
		Items:          items,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.Create(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Itinerary, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	return s.store.Get(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]Itinerary, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	return s.store.ListByUser(ctx, userID, limit)
}
