// README: Chat entry variants (message, suggestion card, section divider, plan action).
package chatlog

import (
	"time"

	"nile/internal/types"
)

type Kind string

const (
	KindMessage        Kind = "message"
	KindSuggestionCard Kind = "suggestion_card"
	KindSectionDivider Kind = "section_divider"
	KindPlanAction     Kind = "plan_action"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type QuickReplyOption struct {
	Label         string `json:"label"`
	Value         string `json:"value"`
	IsMultiSelect bool   `json:"is_multi_select"`
}

// QuickReplyPrompt is always attached to a Message.
type QuickReplyPrompt struct {
	ID          types.ID           `json:"id"`
	Options     []QuickReplyOption `json:"options"`
	MultiSelect bool               `json:"multi_select"`
}

type Message struct {
	Text         string            `json:"text"`
	Sender       Sender            `json:"sender"`
	QuickReplies *QuickReplyPrompt `json:"quick_replies,omitempty"`
}

type SuggestionCard struct {
	ActivityID string   `json:"activity_id"`
	Title      string   `json:"title"`
	Subtitle   string   `json:"subtitle"`
	Location   string   `json:"location"`
	PriceLabel string   `json:"price_label"`
	Rating     float64  `json:"rating"`
	Tags       []string `json:"tags"`
	Day        int      `json:"day,omitempty"`
	StartTime  string   `json:"start_time,omitempty"`
	EndTime    string   `json:"end_time,omitempty"`
	ReasonNote string   `json:"reason_note,omitempty"`
	Saved      bool     `json:"saved"`
}

type SectionDivider struct {
	Label string `json:"label"`
}

type PlanAction struct {
	PlanID  types.ID `json:"plan_id"`
	Label   string   `json:"label"`
	Applied bool     `json:"applied"`
}

// Entry is one row of the log. Exactly one variant pointer is set, matching Kind.
type Entry struct {
	ID      types.ID        `json:"id"`
	Kind    Kind            `json:"kind"`
	At      time.Time       `json:"at"`
	Message *Message        `json:"message,omitempty"`
	Card    *SuggestionCard `json:"card,omitempty"`
	Divider *SectionDivider `json:"divider,omitempty"`
	Action  *PlanAction     `json:"action,omitempty"`
}

func (e Entry) clone() Entry {
	out := e
	if e.Message != nil {
		m := *e.Message
		if m.QuickReplies != nil {
			qr := *m.QuickReplies
			qr.Options = append([]QuickReplyOption(nil), qr.Options...)
			m.QuickReplies = &qr
		}
		out.Message = &m
	}
	if e.Card != nil {
		c := *e.Card
		c.Tags = append([]string(nil), c.Tags...)
		out.Card = &c
	}
	if e.Divider != nil {
		d := *e.Divider
		out.Divider = &d
	}
	if e.Action != nil {
		a := *e.Action
		out.Action = &a
	}
	return out
}
