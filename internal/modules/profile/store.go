// README: Traveler profile store backed by PostgreSQL.
package profile

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("profile not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := s.db.QueryRow(ctx, `
        SELECT user_id, accessibility_flags, dietary_restrictions,
               budget_min, budget_max, budget_currency, languages, travel_pace, updated_at
        FROM traveler_profiles
        WHERE user_id = $1`, userID,
	).Scan(
		&p.UserID, &p.AccessibilityFlags, &p.DietaryRestrictions,
		&p.BudgetMin, &p.BudgetMax, &p.BudgetCurrency, &p.Languages, &p.TravelPace, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
