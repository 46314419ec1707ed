// README: Planning session controller; one goroutine owns all session state and is the only planner caller.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"nile/internal/config"
	"nile/internal/gateway"
	"nile/internal/metrics"
	"nile/internal/modules/acceptance"
	"nile/internal/modules/chatlog"
	"nile/internal/modules/preference"
	"nile/internal/modules/profile"
	"nile/internal/modules/reveal"
	"nile/internal/observability"
	"nile/internal/planner"
	"nile/internal/types"
)

const (
	mailboxSize = 32

	planActionLabel   = "Apply this plan"
	planAppliedLabel  = "Plan applied"
	savedNotice       = "Your itinerary has been saved."
	defaultPlanReply  = "Here is a plan based on what you told me."
	apologyPrefix     = "Sorry, I couldn't get a response from the planner"
	saveFailurePrefix = "Couldn't save your itinerary"
)

// ContextSource supplies external profile data for the planner user_context.
type ContextSource interface {
	UserContext(ctx context.Context, userID string) (map[string]any, error)
}

type Deps struct {
	Planner planner.Planner
	Gateway gateway.Gateway
	Catalog *preference.Catalog
	// Profiles is optional.
	Profiles ContextSource
	Engine   config.EngineConfig
	// TickerFactory overrides the reveal ticker (tests).
	TickerFactory reveal.TickerFactory
}

// Controller is a single planning session. Exported methods post commands to the
// session goroutine and wait for them; network calls run on their own goroutines
// and post their completions back.
type Controller struct {
	id     types.ID
	userID string
	deps   Deps
	logger *slog.Logger

	mailbox chan func()
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc

	lastActive atomic.Int64

	// Everything below is owned by the run goroutine.
	closed         bool
	phase          Phase
	conversationID string
	log            *chatlog.Log
	collector      *preference.Collector
	ledger         *acceptance.Ledger
	sequencer      *reveal.Sequencer
	planID         types.ID
	suggestions    map[types.ID]bool

	composing      bool
	chatSeq        uint64
	appliedChatSeq uint64
	genSeq         uint64
	saveSeq        uint64
	saving         bool
	caller         gateway.Caller

	lastError   string
	notice      string
	itineraryID string
}

func NewController(userID string, deps Deps) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:          types.NewID(),
		userID:      userID,
		deps:        deps,
		mailbox:     make(chan func(), mailboxSize),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		phase:       PhaseChat,
		log:         chatlog.New(),
		collector:   preference.NewCollector(deps.Catalog),
		ledger:      acceptance.NewLedger(),
		suggestions: map[types.ID]bool{},
	}
	c.logger = observability.WithFields("session_id", string(c.id))
	opts := []reveal.Option{}
	if deps.TickerFactory != nil {
		opts = append(opts, reveal.WithTickerFactory(deps.TickerFactory))
	}
	c.sequencer = reveal.NewSequencer(deps.Engine.RevealTick, c.onRevealTick, opts...)
	c.touch()
	go c.run()
	return c
}

func (c *Controller) ID() types.ID {
	return c.id
}

func (c *Controller) UserID() string {
	return c.userID
}

// Done is closed once the session goroutine has stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// LastActive is safe to call from any goroutine.
func (c *Controller) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *Controller) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

func (c *Controller) run() {
	defer c.shutdown()
	for {
		select {
		case <-c.ctx.Done():
			return
		case fn := <-c.mailbox:
			// select picks randomly when both are ready; teardown wins.
			if c.ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}

func (c *Controller) shutdown() {
	c.closed = true
	c.sequencer.Stop()
	close(c.done)
}

// post hands a completion to the session goroutine, dropping it after teardown.
func (c *Controller) post(kind string, fn func()) {
	select {
	case c.mailbox <- fn:
	case <-c.done:
		metrics.StaleResponses.WithLabelValues(kind).Inc()
	}
}

// do runs fn on the session goroutine and waits for its result.
func (c *Controller) do(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	select {
	case c.mailbox <- func() {
		if c.closed {
			errCh <- ErrClosed
			return
		}
		errCh <- fn()
	}:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errCh:
		c.touch()
		return err
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Teardown stops the session. In-flight responses are discarded.
func (c *Controller) Teardown() {
	c.cancel()
	<-c.done
}

// SendMessage appends the user's text and asks the planner for a reply.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	if text == "" {
		return ErrBadRequest
	}
	return c.do(ctx, func() error {
		if c.phase != PhaseChat {
			return fmt.Errorf("%w: send while %s", ErrInvalidPhase, c.phase)
		}
		c.notice = ""
		c.log.AppendMessage(chatlog.SenderUser, text, nil)
		c.sendChat(text)
		return nil
	})
}

func (c *Controller) sendChat(text string) {
	c.chatSeq++
	seq := c.chatSeq
	c.composing = true
	req := planner.Request{Message: text, ConversationID: c.conversationID}
	base := c.profileContext()
	go func() {
		req.UserContext = c.userContext(base)
		resp, err := c.deps.Planner.Send(c.ctx, req)
		c.post("chat", func() { c.onChatResponse(seq, resp, err) })
	}()
}

func (c *Controller) onChatResponse(seq uint64, resp *planner.Response, err error) {
	if c.closed || seq <= c.appliedChatSeq {
		metrics.StaleResponses.WithLabelValues("chat").Inc()
		return
	}
	c.appliedChatSeq = seq
	if seq == c.chatSeq {
		c.composing = false
	}
	if err != nil {
		c.recordPlannerError("chat", err)
		c.appendApology(err)
		return
	}
	metrics.PlannerRequests.WithLabelValues("chat", metrics.OutcomeOK).Inc()
	c.lastError = ""
	c.adoptConversation(resp)

	if !resp.HasItinerary() || c.phase != PhaseChat {
		c.appendReply(resp)
		return
	}
	if err := c.apply(Event{Kind: EventItinerarySignalled}, resp); err != nil {
		c.logger.Warn("itinerary from chat rejected", "error", err)
		return
	}
	if err := c.apply(Event{Kind: EventGenerationSucceeded}, resp); err != nil {
		c.logger.Warn("itinerary from chat rejected", "error", err)
	}
}

// StartPreferences asks the first onboarding question.
func (c *Controller) StartPreferences(ctx context.Context) error {
	return c.do(ctx, func() error {
		if c.phase != PhaseChat {
			return fmt.Errorf("%w: preferences while %s", ErrInvalidPhase, c.phase)
		}
		c.notice = ""
		c.askFirstQuestion()
		return nil
	})
}

func (c *Controller) askFirstQuestion() {
	ask := c.collector.Start()
	prompt := ask.Prompt
	c.log.AppendMessage(chatlog.SenderAssistant, ask.Text, &prompt)
}

// SelectQuickReply picks an option. Single-select onboarding steps advance, multi-select
// steps toggle membership, and planner suggestions are sent as the user's message.
func (c *Controller) SelectQuickReply(ctx context.Context, promptID types.ID, value string) error {
	return c.do(ctx, func() error {
		c.notice = ""
		if c.collector.Owns(promptID) {
			if c.phase != PhaseChat {
				return fmt.Errorf("%w: preferences while %s", ErrInvalidPhase, c.phase)
			}
			if c.collector.ActivePrompt().Question().MultiSelect {
				return c.collector.Toggle(promptID, value)
			}
			out, err := c.collector.Choose(promptID, value)
			if err != nil {
				return err
			}
			return c.handleOutcome(out)
		}
		if c.suggestions[promptID] {
			if c.phase != PhaseChat {
				return fmt.Errorf("%w: suggestion while %s", ErrInvalidPhase, c.phase)
			}
			label, ok := c.suggestionLabel(promptID, value)
			if !ok {
				return preference.ErrUnknownOption
			}
			delete(c.suggestions, promptID)
			c.log.AppendMessage(chatlog.SenderUser, label, nil)
			c.sendChat(label)
			return nil
		}
		return preference.ErrStalePrompt
	})
}

func (c *Controller) suggestionLabel(promptID types.ID, value string) (string, bool) {
	p, ok := c.log.Prompt(promptID)
	if !ok {
		return "", false
	}
	for _, o := range p.Options {
		if o.Value == value {
			return o.Label, true
		}
	}
	return "", false
}

// SubmitQuickReplies commits a multi-select onboarding step.
func (c *Controller) SubmitQuickReplies(ctx context.Context, promptID types.ID) error {
	return c.do(ctx, func() error {
		if c.collector.Owns(promptID) && c.phase != PhaseChat {
			return fmt.Errorf("%w: preferences while %s", ErrInvalidPhase, c.phase)
		}
		c.notice = ""
		out, err := c.collector.Submit(promptID)
		if err != nil {
			return err
		}
		return c.handleOutcome(out)
	})
}

func (c *Controller) handleOutcome(out preference.Outcome) error {
	c.log.AppendMessage(chatlog.SenderUser, out.Echo, nil)
	if out.Next != nil {
		prompt := out.Next.Prompt
		c.log.AppendMessage(chatlog.SenderAssistant, out.Next.Text, &prompt)
		return nil
	}
	if !out.Done {
		return nil
	}
	return c.apply(Event{Kind: EventPreferencesComplete}, nil)
}

func (c *Controller) requestGeneration() {
	c.genSeq++
	seq := c.genSeq
	c.composing = true
	prof := c.collector.Profile()
	req := planner.Request{Message: prof.GenerationPrompt(), ConversationID: c.conversationID}
	base := c.profileContext()
	go func() {
		req.UserContext = c.userContext(base)
		resp, err := c.deps.Planner.Send(c.ctx, req)
		c.post("generation", func() { c.onGenerationResponse(seq, resp, err) })
	}()
}

func (c *Controller) onGenerationResponse(seq uint64, resp *planner.Response, err error) {
	if c.closed || seq != c.genSeq || c.phase != PhaseGenerating {
		metrics.StaleResponses.WithLabelValues("generation").Inc()
		return
	}
	c.composing = c.chatSeq > c.appliedChatSeq
	if err != nil {
		c.recordPlannerError("generation", err)
		_ = c.apply(Event{Kind: EventGenerationFailed, Err: err}, nil)
		return
	}
	metrics.PlannerRequests.WithLabelValues("generation", metrics.OutcomeOK).Inc()
	c.lastError = ""
	c.adoptConversation(resp)
	if resp.HasItinerary() {
		_ = c.apply(Event{Kind: EventGenerationSucceeded}, resp)
		return
	}
	_ = c.apply(Event{Kind: EventGenerationChatOnly}, resp)
}

// ToggleItem accepts or declines one generated activity.
func (c *Controller) ToggleItem(ctx context.Context, itemID string, accepted bool) error {
	return c.do(ctx, func() error {
		switch c.phase {
		case PhaseReview:
		case PhaseConfirmed:
			return acceptance.ErrFrozen
		default:
			return fmt.Errorf("%w: toggle while %s", ErrInvalidPhase, c.phase)
		}
		c.notice = ""
		return c.ledger.Toggle(itemID, accepted)
	})
}

// Confirm commits the accepted activities through the gateway. The phase moves
// to confirmed only when the gateway acknowledges.
func (c *Controller) Confirm(ctx context.Context) error {
	caller := gateway.CallerFromContext(ctx)
	return c.do(ctx, func() error {
		c.caller = caller
		return c.apply(Event{Kind: EventConfirm, AcceptedCount: c.ledger.AcceptedCount(), Saving: c.saving}, nil)
	})
}

func (c *Controller) callGateway() error {
	items, err := c.ledger.Begin()
	if err != nil {
		return err
	}
	if c.caller.UID == "" {
		c.caller.UID = c.userID
	}
	c.saving = true
	c.notice = ""
	c.saveSeq++
	seq := c.saveSeq
	req := gateway.SaveRequest{Itinerary: gateway.Payload{Items: items}, ConversationID: c.conversationID}
	saveCtx := gateway.WithCaller(c.ctx, c.caller)
	go func() {
		ack, err := c.deps.Gateway.Save(saveCtx, req)
		c.post("save", func() { c.onSaveResult(seq, ack, err) })
	}()
	return nil
}

func (c *Controller) onSaveResult(seq uint64, ack *gateway.Ack, err error) {
	if c.closed || seq != c.saveSeq || !c.saving {
		metrics.StaleResponses.WithLabelValues("save").Inc()
		return
	}
	c.saving = false
	if err != nil {
		metrics.Confirmations.WithLabelValues(metrics.OutcomeError).Inc()
		c.logger.Warn("itinerary save failed", "error", err)
		c.ledger.Abort()
		c.lastError = err.Error()
		_ = c.apply(Event{Kind: EventSaveFailed, Err: err}, nil)
		return
	}
	metrics.Confirmations.WithLabelValues(metrics.OutcomeOK).Inc()
	if ack != nil {
		c.itineraryID = ack.ID
	}
	c.lastError = ""
	_ = c.apply(Event{Kind: EventSaveAcked}, nil)
}

// Regenerate discards the current plan and asks for a new one. With
// RegenerateKeepsProfile off it restarts onboarding instead.
func (c *Controller) Regenerate(ctx context.Context) error {
	return c.do(ctx, func() error {
		kind := EventRegenerate
		if !c.deps.Engine.RegenerateKeepsProfile {
			kind = EventRestartPreferences
		}
		c.notice = ""
		return c.apply(Event{Kind: kind, Saving: c.saving}, nil)
	})
}

// SaveCard flips the saved flag on a suggestion card.
func (c *Controller) SaveCard(ctx context.Context, activityID string, saved bool) error {
	return c.do(ctx, func() error {
		return c.log.SetSaved(activityID, saved)
	})
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, func() error {
		snap = c.snapshot()
		return nil
	})
	return snap, err
}

// apply runs one event through the phase machine and performs its effects.
func (c *Controller) apply(ev Event, resp *planner.Response) error {
	from := c.phase
	to, effects, err := Transition(from, ev)
	if err != nil {
		return err
	}
	for _, eff := range effects {
		if err := c.perform(eff, ev, resp); err != nil {
			return err
		}
	}
	c.phase = to
	if from != to {
		c.logger.Debug("phase changed", "from", from, "to", to, "event", ev.Kind)
	}
	return nil
}

func (c *Controller) perform(eff Effect, ev Event, resp *planner.Response) error {
	switch eff {
	case EffectRequestGeneration:
		c.requestGeneration()
	case EffectPopulateItems:
		c.populate(resp)
	case EffectStartReveal:
		c.sequencer.Start(c.ctx, c.ledger.Len())
		metrics.RevealSequences.Inc()
	case EffectAppendReply:
		c.appendReply(resp)
	case EffectAppendError:
		c.appendApology(ev.Err)
	case EffectCallGateway:
		return c.callGateway()
	case EffectMarkApplied:
		if err := c.log.MarkApplied(c.planID, planAppliedLabel); err != nil {
			c.logger.Warn("plan action not updated", "plan_id", c.planID, "error", err)
		}
	case EffectNotify:
		if ev.Err != nil {
			c.notice = fmt.Sprintf("%s: %v", saveFailurePrefix, ev.Err)
		} else {
			c.notice = savedNotice
		}
	case EffectClearItems:
		c.saveSeq++
		c.sequencer.Reset()
		c.ledger.Clear()
		c.planID = ""
		c.itineraryID = ""
	case EffectStartPreferences:
		c.collector.Reset()
		c.askFirstQuestion()
	}
	return nil
}

func (c *Controller) populate(resp *planner.Response) {
	items := planner.Flatten(resp.Itinerary)
	c.ledger.Load(items, c.deps.Engine.AcceptPolicy == config.AcceptSeeded)

	text := resp.Message
	if text == "" {
		text = defaultPlanReply
	}
	c.log.AppendMessage(chatlog.SenderAssistant, text, nil)

	day := 0
	for _, item := range items {
		if item.Day != day {
			day = item.Day
			c.log.AppendDivider(dayLabel(item.Day, item.Date))
		}
		c.log.AppendCard(cardFor(item))
	}
	c.planID = types.NewID()
	c.log.AppendPlanAction(c.planID, planActionLabel)
}

func (c *Controller) appendReply(resp *planner.Response) {
	var prompt *chatlog.QuickReplyPrompt
	if len(resp.Suggestions) > 0 {
		opts := make([]chatlog.QuickReplyOption, 0, len(resp.Suggestions))
		for _, s := range resp.Suggestions {
			if s == "" {
				continue
			}
			opts = append(opts, chatlog.QuickReplyOption{Label: s, Value: s})
		}
		if len(opts) > 0 {
			prompt = &chatlog.QuickReplyPrompt{ID: types.NewID(), Options: opts}
			c.suggestions[prompt.ID] = true
		}
	}
	if resp.Message == "" && prompt == nil {
		return
	}
	c.log.AppendMessage(chatlog.SenderAssistant, resp.Message, prompt)
}

func (c *Controller) appendApology(err error) {
	c.log.AppendMessage(chatlog.SenderAssistant, fmt.Sprintf("%s: %v", apologyPrefix, err), nil)
}

func (c *Controller) adoptConversation(resp *planner.Response) {
	if resp.ConversationID != "" {
		c.conversationID = resp.ConversationID
	}
}

func (c *Controller) recordPlannerError(kind string, err error) {
	outcome := metrics.OutcomeError
	switch {
	case planner.IsTransport(err):
		outcome = metrics.OutcomeTransport
	case planner.IsMalformed(err):
		outcome = metrics.OutcomeMalformed
	}
	metrics.PlannerRequests.WithLabelValues(kind, outcome).Inc()
	c.lastError = err.Error()
	c.logger.Warn("planner request failed", "kind", kind, "outcome", outcome, "error", err)
}

// profileContext is captured on the session goroutine before the request leaves it.
func (c *Controller) profileContext() map[string]any {
	prof := c.collector.Profile()
	if prof.IsEmpty() {
		return nil
	}
	return prof.Context()
}

// userContext runs on the request goroutine; the profile lookup may block.
func (c *Controller) userContext(base map[string]any) map[string]any {
	var external map[string]any
	if c.deps.Profiles != nil && c.userID != "" {
		ext, err := c.deps.Profiles.UserContext(c.ctx, c.userID)
		if err != nil {
			c.logger.Warn("profile lookup failed", "error", err)
		}
		external = ext
	}
	ctx := profile.Merge(external, base)
	if len(ctx) == 0 {
		return nil
	}
	return ctx
}

func (c *Controller) onRevealTick(seq uint64) {
	c.post("reveal", func() {
		if c.closed {
			return
		}
		c.sequencer.Advance(seq)
	})
}
