// README: Preference profile built by the onboarding collector.
package preference

import (
	"fmt"
	"strings"
)

// Profile holds option labels. The sets keep catalog order.
type Profile struct {
	IdentityPreference string   `json:"identity_preference,omitempty"`
	AccessibilityNeeds []string `json:"accessibility_needs"`
	Interests          []string `json:"interests"`
}

func (p Profile) IsEmpty() bool {
	return p.IdentityPreference == "" && len(p.AccessibilityNeeds) == 0 && len(p.Interests) == 0
}

func (p Profile) Clone() Profile {
	return Profile{
		IdentityPreference: p.IdentityPreference,
		AccessibilityNeeds: append([]string(nil), p.AccessibilityNeeds...),
		Interests:          append([]string(nil), p.Interests...),
	}
}

// Context is the profile part of the planner user_context.
func (p Profile) Context() map[string]any {
	return map[string]any{
		"identity_preference": p.IdentityPreference,
		"accessibility_needs": append([]string(nil), p.AccessibilityNeeds...),
		"interests":           append([]string(nil), p.Interests...),
	}
}

// GenerationPrompt is the message sent to the planner once onboarding is complete.
func (p Profile) GenerationPrompt() string {
	var b strings.Builder
	b.WriteString("Please create a day-by-day itinerary for my trip.")
	if p.IdentityPreference != "" {
		fmt.Fprintf(&b, " I identify as: %s.", p.IdentityPreference)
	}
	if len(p.AccessibilityNeeds) > 0 {
		fmt.Fprintf(&b, " Accessibility needs: %s.", strings.Join(p.AccessibilityNeeds, ", "))
	}
	if len(p.Interests) > 0 {
		fmt.Fprintf(&b, " Interests: %s.", strings.Join(p.Interests, ", "))
	}
	return b.String()
}
