// README: Three-step onboarding collector (identity, accessibility, interests).
package preference

import (
	"errors"
	"strings"

	"nile/internal/modules/chatlog"
	"nile/internal/types"
)

var (
	ErrNotActive      = errors.New("preference collection is not active")
	ErrStalePrompt    = errors.New("quick reply prompt is no longer active")
	ErrUnknownOption  = errors.New("unknown option")
	ErrEmptySelection = errors.New("select at least one option")
	ErrSingleSelect   = errors.New("prompt is single-select")
	ErrMultiSelect    = errors.New("prompt is multi-select; toggle and submit")
)

// Ask is a question to append to the log as an assistant message.
type Ask struct {
	Text   string
	Prompt chatlog.QuickReplyPrompt
}

// Outcome of answering a step.
type Outcome struct {
	// Echo is the user's selection rendered as a user message.
	Echo string
	// Next is nil once the last step is answered.
	Next *Ask
	Done bool
}

// Prompt is the active step. Its selection set is discarded when the step ends.
type Prompt struct {
	ID       types.ID
	question *Question
	selected map[string]bool
}

func (p *Prompt) Question() Question {
	return *p.question
}

// Selected returns the chosen options in catalog order.
func (p *Prompt) Selected() []Option {
	out := make([]Option, 0, len(p.selected))
	for _, o := range p.question.Options {
		if p.selected[o.Value] {
			out = append(out, o)
		}
	}
	return out
}

func (p *Prompt) SelectedValues() []string {
	opts := p.Selected()
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}

func (p *Prompt) CanSubmit() bool {
	return p.question.MultiSelect && len(p.selected) > 0
}

func (p *Prompt) toggle(value string) error {
	if _, ok := p.question.option(value); !ok {
		return ErrUnknownOption
	}
	if p.selected[value] {
		delete(p.selected, value)
		return nil
	}
	if ex := p.question.Exclusive; ex != "" {
		if value == ex {
			p.selected = map[string]bool{}
		} else {
			delete(p.selected, ex)
		}
	}
	p.selected[value] = true
	return nil
}

// Collector walks the catalog steps in order. Not safe for concurrent use.
type Collector struct {
	catalog *Catalog
	step    int
	prompt  *Prompt
	profile Profile
}

func NewCollector(catalog *Catalog) *Collector {
	return &Collector{catalog: catalog, step: -1}
}

func (c *Collector) Active() bool {
	return c.prompt != nil
}

func (c *Collector) Done() bool {
	return c.step >= len(c.catalog.Steps)
}

func (c *Collector) Profile() Profile {
	return c.profile.Clone()
}

// ActivePrompt is nil when no step is waiting for input.
func (c *Collector) ActivePrompt() *Prompt {
	return c.prompt
}

// Owns reports whether promptID is the prompt currently asked by the collector.
func (c *Collector) Owns(promptID types.ID) bool {
	return c.prompt != nil && c.prompt.ID == promptID
}

// Start clears any previous answers and asks the first question.
func (c *Collector) Start() Ask {
	c.profile = Profile{}
	c.step = 0
	return c.ask()
}

// Reset forgets everything, including the profile.
func (c *Collector) Reset() {
	c.profile = Profile{}
	c.step = -1
	c.prompt = nil
}

func (c *Collector) ask() Ask {
	q := &c.catalog.Steps[c.step]
	c.prompt = &Prompt{ID: types.NewID(), question: q, selected: map[string]bool{}}
	opts := make([]chatlog.QuickReplyOption, len(q.Options))
	for i, o := range q.Options {
		opts[i] = chatlog.QuickReplyOption{Label: o.Label, Value: o.Value, IsMultiSelect: q.MultiSelect}
	}
	return Ask{
		Text: q.Prompt,
		Prompt: chatlog.QuickReplyPrompt{
			ID:          c.prompt.ID,
			Options:     opts,
			MultiSelect: q.MultiSelect,
		},
	}
}

// Choose answers a single-select step and advances immediately.
func (c *Collector) Choose(promptID types.ID, value string) (Outcome, error) {
	if err := c.check(promptID); err != nil {
		return Outcome{}, err
	}
	q := c.prompt.question
	if q.MultiSelect {
		return Outcome{}, ErrMultiSelect
	}
	opt, ok := q.option(value)
	if !ok {
		return Outcome{}, ErrUnknownOption
	}
	c.record(q.Key, []Option{opt})
	return c.advance(opt.Label), nil
}

// Toggle flips one option of a multi-select step.
func (c *Collector) Toggle(promptID types.ID, value string) error {
	if err := c.check(promptID); err != nil {
		return err
	}
	if !c.prompt.question.MultiSelect {
		return ErrSingleSelect
	}
	return c.prompt.toggle(value)
}

// Submit commits the selection of a multi-select step and advances.
func (c *Collector) Submit(promptID types.ID) (Outcome, error) {
	if err := c.check(promptID); err != nil {
		return Outcome{}, err
	}
	if !c.prompt.question.MultiSelect {
		return Outcome{}, ErrSingleSelect
	}
	selected := c.prompt.Selected()
	if len(selected) == 0 {
		return Outcome{}, ErrEmptySelection
	}
	c.record(c.prompt.question.Key, selected)
	labels := make([]string, len(selected))
	for i, o := range selected {
		labels[i] = o.Label
	}
	return c.advance(strings.Join(labels, ", ")), nil
}

func (c *Collector) check(promptID types.ID) error {
	if c.prompt == nil {
		return ErrNotActive
	}
	if c.prompt.ID != promptID {
		return ErrStalePrompt
	}
	return nil
}

func (c *Collector) record(key string, opts []Option) {
	labels := make([]string, len(opts))
	for i, o := range opts {
		labels[i] = o.Label
	}
	switch key {
	case StepIdentity:
		c.profile.IdentityPreference = labels[0]
	case StepAccessibility:
		c.profile.AccessibilityNeeds = labels
	case StepInterests:
		c.profile.Interests = labels
	}
}

func (c *Collector) advance(echo string) Outcome {
	c.prompt = nil
	c.step++
	if c.Done() {
		return Outcome{Echo: echo, Done: true}
	}
	next := c.ask()
	return Outcome{Echo: echo, Next: &next}
}
