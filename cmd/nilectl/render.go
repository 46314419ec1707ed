package main

import (
	"fmt"
	"io"
	"strings"

	"nile/internal/modules/chatlog"
	"nile/internal/modules/session"
)

// printEntries writes entries to w, numbering quick-reply options so they can be picked by index.
func printEntries(w io.Writer, entries []chatlog.Entry) {
	for _, e := range entries {
		switch e.Kind {
		case chatlog.KindMessage:
			m := e.Message
			who := "nile"
			if m.Sender == chatlog.SenderUser {
				who = "you"
			}
			fmt.Fprintf(w, "%s> %s\n", who, m.Text)
			if m.QuickReplies != nil {
				for i, o := range m.QuickReplies.Options {
					fmt.Fprintf(w, "     [%d] %s\n", i+1, o.Label)
				}
			}
		case chatlog.KindSectionDivider:
			fmt.Fprintf(w, "---- %s ----\n", e.Divider.Label)
		case chatlog.KindSuggestionCard:
			c := e.Card
			mark := " "
			if c.Saved {
				mark = "*"
			}
			fmt.Fprintf(w, "  %s %s  %s\n", mark, c.ActivityID, c.Title)
			fmt.Fprintf(w, "      %s | %s | %s | access %.0f/5\n", c.Subtitle, c.Location, c.PriceLabel, c.Rating)
			if c.ReasonNote != "" {
				fmt.Fprintf(w, "      %s\n", c.ReasonNote)
			}
		case chatlog.KindPlanAction:
			state := "pending"
			if e.Action.Applied {
				state = "applied"
			}
			fmt.Fprintf(w, "  [%s] (%s)\n", e.Action.Label, state)
		}
	}
}

func printItems(w io.Writer, snap *session.Snapshot) {
	items := snap.VisibleItems()
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "itinerary (%d/%d accepted):\n", snap.AcceptedCount, len(snap.Items))
	for _, it := range items {
		mark := "[ ]"
		if it.Accepted {
			mark = "[x]"
		}
		fmt.Fprintf(w, "  %s %-10s day %d %s-%s %s\n", mark, it.ID, it.Day, it.TimeWindow.Start, it.TimeWindow.End, it.Title)
	}
}

func printStatus(w io.Writer, snap *session.Snapshot) {
	parts := []string{"phase=" + string(snap.Phase)}
	if snap.ItineraryID != "" {
		parts = append(parts, "itinerary="+snap.ItineraryID)
	}
	if snap.CanConfirm {
		parts = append(parts, "confirmable")
	}
	fmt.Fprintf(w, "(%s)\n", strings.Join(parts, " "))
	if snap.Notice != "" {
		fmt.Fprintf(w, "! %s\n", snap.Notice)
	}
	if snap.LastError != "" {
		fmt.Fprintf(w, "! error: %s\n", snap.LastError)
	}
}

// activeOptions returns the options of the prompt the collector is waiting on.
func activeOptions(snap *session.Snapshot) []chatlog.QuickReplyOption {
	if snap.ActivePrompt == nil {
		return nil
	}
	for i := len(snap.Entries) - 1; i >= 0; i-- {
		m := snap.Entries[i].Message
		if m != nil && m.QuickReplies != nil && m.QuickReplies.ID == snap.ActivePrompt.ID {
			return m.QuickReplies.Options
		}
	}
	return nil
}
