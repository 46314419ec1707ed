// README: Profile lookup for planner user_context enrichment.
package profile

import (
	"context"
	"errors"

	"nile/internal/observability"
)

type Reader interface {
	Get(ctx context.Context, userID string) (*Profile, error)
}

type Service struct {
	store Reader
	cache *Cache
}

// NewService accepts a nil cache.
func NewService(store Reader, cache *Cache) *Service {
	return &Service{store: store, cache: cache}
}

// UserContext returns the compacted profile context, or nil for unknown users.
func (s *Service) UserContext(ctx context.Context, userID string) (map[string]any, error) {
	if userID == "" {
		return nil, nil
	}
	p, err := s.lookup(ctx, userID)
	if err != nil || p == nil {
		return nil, err
	}
	return Compact(p.Context()), nil
}

func (s *Service) lookup(ctx context.Context, userID string) (*Profile, error) {
	if s.cache != nil {
		p, hit, err := s.cache.Get(ctx, userID)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn("profile cache read failed", "user_id", userID, "error", err)
		} else if hit {
			return p, nil
		}
	}

	p, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		p, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, p); err != nil {
			observability.LoggerFromContext(ctx).Warn("profile cache write failed", "user_id", userID, "error", err)
		}
	}
	return p, nil
}
