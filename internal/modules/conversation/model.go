// README: Planner conversation history (turns keyed by conversation id).
package conversation

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// MaxTurns bounds the history kept per conversation.
const MaxTurns = 40

var ErrEmptyID = errors.New("conversation id is required")

type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

type Store interface {
	Append(ctx context.Context, conversationID string, turns ...Turn) error
	// History returns at most limit of the newest turns, oldest first. limit <= 0 returns all kept turns.
	History(ctx context.Context, conversationID string, limit int) ([]Turn, error)
}
