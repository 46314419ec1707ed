// README: Identifier type and generator.
package types

import "github.com/google/uuid"

type ID string

func NewID() ID {
	return ID(uuid.NewString())
}

// TimeWindow holds wall-clock strings as the planner sends them ("09:00").
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
