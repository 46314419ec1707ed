// README: Itinerary store backed by PostgreSQL; items are kept as JSONB rows in plan order.
package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nile/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, it *Itinerary) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
        INSERT INTO itineraries (id, user_id, conversation_id, created_at)
        VALUES ($1, $2, $3, $4)`,
		string(it.ID), it.UserID, it.ConversationID, it.CreatedAt,
	); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, item := range it.Items {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode item %s: %w", item.ID, err)
		}
		batch.Queue(`
            INSERT INTO itinerary_items (itinerary_id, position, item_id, day, title, payload)
            VALUES ($1, $2, $3, $4, $5, $6)`,
			string(it.ID), i, item.ID, item.Day, item.Title, payload,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Itinerary, error) {
	var it Itinerary
	err := s.db.QueryRow(ctx, `
        SELECT id, user_id, conversation_id, created_at
        FROM itineraries
        WHERE id = $1`, string(id),
	).Scan(&it.ID, &it.UserID, &it.ConversationID, &it.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := s.items(ctx, id)
	if err != nil {
		return nil, err
	}
	it.Items = items
	return &it, nil
}

func (s *Store) items(ctx context.Context, id types.ID) ([]Item, error) {
	rows, err := s.db.Query(ctx, `
        SELECT payload
        FROM itinerary_items
        WHERE itinerary_id = $1
        ORDER BY position`, string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var item Item
		if err := json.Unmarshal(payload, &item); err != nil {
			return nil, fmt.Errorf("decode item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListByUser returns the newest itineraries first, without items.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]Itinerary, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, user_id, conversation_id, created_at
        FROM itineraries
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Itinerary
	for rows.Next() {
		var it Itinerary
		if err := rows.Scan(&it.ID, &it.UserID, &it.ConversationID, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
