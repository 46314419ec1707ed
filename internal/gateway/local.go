package gateway

import (
	"context"
	"fmt"

	"nile/internal/modules/itinerary"
)

// Saver is the itinerary service as seen by the local gateway.
type Saver interface {
	Save(ctx context.Context, cmd itinerary.SaveCommand) (*itinerary.Itinerary, error)
}

// Local commits straight into the itinerary store, skipping HTTP.
type Local struct {
	saver Saver
}

func NewLocal(saver Saver) *Local {
	return &Local{saver: saver}
}

func (l *Local) Save(ctx context.Context, in SaveRequest) (*Ack, error) {
	it, err := l.saver.Save(ctx, itinerary.SaveCommand{
		UserID:         CallerFromContext(ctx).UID,
		ConversationID: in.ConversationID,
		Items:          in.Itinerary.Items,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return &Ack{ID: string(it.ID)}, nil
}
