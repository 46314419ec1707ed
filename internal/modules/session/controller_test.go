// README: Controller tests driven by a scripted planner and gateway.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"nile/internal/config"
	"nile/internal/gateway"
	"nile/internal/metrics"
	"nile/internal/modules/acceptance"
	"nile/internal/modules/chatlog"
	"nile/internal/modules/preference"
	"nile/internal/planner"
	"nile/internal/types"
)

const waitTimeout = 2 * time.Second

type reply struct {
	resp *planner.Response
	err  error
}

type plannerCall struct {
	req   planner.Request
	reply chan reply
}

func (c plannerCall) respond(resp *planner.Response, err error) {
	c.reply <- reply{resp: resp, err: err}
}

// scriptedPlanner hands every request to the test and blocks until it answers.
type scriptedPlanner struct {
	calls chan plannerCall
}

func newScriptedPlanner() *scriptedPlanner {
	return &scriptedPlanner{calls: make(chan plannerCall, 8)}
}

func (p *scriptedPlanner) Send(ctx context.Context, req planner.Request) (*planner.Response, error) {
	call := plannerCall{req: req, reply: make(chan reply, 1)}
	select {
	case p.calls <- call:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-call.reply:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *scriptedPlanner) next(t *testing.T) plannerCall {
	t.Helper()
	select {
	case call := <-p.calls:
		return call
	case <-time.After(waitTimeout):
		t.Fatal("planner was not called")
	}
	return plannerCall{}
}

func (p *scriptedPlanner) assertIdle(t *testing.T) {
	t.Helper()
	select {
	case call := <-p.calls:
		t.Fatalf("unexpected planner call: %q", call.req.Message)
	case <-time.After(20 * time.Millisecond):
	}
}

type stubGateway struct {
	mu     sync.Mutex
	err    error
	saves  []gateway.SaveRequest
	caller []gateway.Caller
}

func (g *stubGateway) Save(ctx context.Context, req gateway.SaveRequest) (*gateway.Ack, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saves = append(g.saves, req)
	g.caller = append(g.caller, gateway.CallerFromContext(ctx))
	if g.err != nil {
		return nil, g.err
	}
	return &gateway.Ack{ID: "itn_1"}, nil
}

func (g *stubGateway) setErr(err error) {
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
}

func (g *stubGateway) calls() []gateway.SaveRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gateway.SaveRequest(nil), g.saves...)
}

type fixture struct {
	ctrl    *Controller
	planner *scriptedPlanner
	gateway *stubGateway
}

func newFixture(t *testing.T, mutate func(*config.EngineConfig)) *fixture {
	t.Helper()
	engine := config.EngineConfig{
		RevealTick:             time.Millisecond,
		AcceptPolicy:           config.AcceptReview,
		RegenerateKeepsProfile: true,
	}
	if mutate != nil {
		mutate(&engine)
	}
	f := &fixture{planner: newScriptedPlanner(), gateway: &stubGateway{}}
	f.ctrl = NewController("traveler_1", Deps{
		Planner: f.planner,
		Gateway: f.gateway,
		Catalog: preference.MustDefaultCatalog(),
		Engine:  engine,
	})
	t.Cleanup(f.ctrl.Teardown)
	return f
}

func (f *fixture) snapshot(t *testing.T) Snapshot {
	t.Helper()
	snap, err := f.ctrl.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return snap
}

func (f *fixture) waitFor(t *testing.T, what string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for {
		snap := f.snapshot(t)
		if cond(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; phase=%s reveal=%d notice=%q", what, snap.Phase, snap.RevealCount, snap.Notice)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func itineraryResponse(titles ...string) *planner.Response {
	plans := []planner.DailyPlan{{Day: 1}, {Day: 2}}
	for i, title := range titles {
		d := i % 2
		plans[d].Activities = append(plans[d].Activities, planner.Activity{
			Title:            title,
			LocationName:     "Cairo",
			StartTime:        "09:00",
			EndTime:          "11:00",
			EstimatedCostMin: 10,
			EstimatedCostMax: 20,
			Tags:             []string{"history"},
			BestTimeReason:   "Cooler in the morning",
		})
	}
	return &planner.Response{
		ConversationID: "conv-1",
		Mode:           planner.ModeItinerary,
		Message:        "Here is your trip.",
		Itinerary:      &planner.Itinerary{DailyPlans: plans},
	}
}

func hasMessage(snap Snapshot, sender chatlog.Sender, text string) bool {
	for _, e := range snap.Entries {
		if e.Kind == chatlog.KindMessage && e.Message.Sender == sender && e.Message.Text == text {
			return true
		}
	}
	return false
}

func countKind(snap Snapshot, kind chatlog.Kind) int {
	n := 0
	for _, e := range snap.Entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func revealed(n int) func(Snapshot) bool {
	return func(s Snapshot) bool { return s.Phase == PhaseReview && s.RevealCount == n }
}

// completePreferences answers the three onboarding steps and returns the generation call.
func completePreferences(t *testing.T, f *fixture) plannerCall {
	t.Helper()
	ctx := context.Background()
	if err := f.ctrl.StartPreferences(ctx); err != nil {
		t.Fatalf("StartPreferences: %v", err)
	}
	prompt := f.snapshot(t).ActivePrompt
	if prompt == nil || prompt.Step != preference.StepIdentity || prompt.Multi {
		t.Fatalf("unexpected first prompt: %+v", prompt)
	}
	if err := f.ctrl.SelectQuickReply(ctx, prompt.ID, "female"); err != nil {
		t.Fatalf("choose identity: %v", err)
	}

	prompt = f.snapshot(t).ActivePrompt
	if prompt == nil || prompt.Step != preference.StepAccessibility {
		t.Fatalf("expected accessibility prompt, got %+v", prompt)
	}
	if err := f.ctrl.SelectQuickReply(ctx, prompt.ID, "wheelchair"); err != nil {
		t.Fatalf("toggle wheelchair: %v", err)
	}
	if err := f.ctrl.SubmitQuickReplies(ctx, prompt.ID); err != nil {
		t.Fatalf("submit accessibility: %v", err)
	}

	prompt = f.snapshot(t).ActivePrompt
	if prompt == nil || prompt.Step != preference.StepInterests {
		t.Fatalf("expected interests prompt, got %+v", prompt)
	}
	for _, v := range []string{"food", "ancient_history"} {
		if err := f.ctrl.SelectQuickReply(ctx, prompt.ID, v); err != nil {
			t.Fatalf("toggle %s: %v", v, err)
		}
	}
	if err := f.ctrl.SubmitQuickReplies(ctx, prompt.ID); err != nil {
		t.Fatalf("submit interests: %v", err)
	}
	return f.planner.next(t)
}

func TestPreferencesToConfirmedItinerary(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	call := completePreferences(t, f)
	want := "Please create a day-by-day itinerary for my trip. I identify as: Female. " +
		"Accessibility needs: Wheelchair Access. Interests: Ancient History, Food & Culinary."
	if call.req.Message != want {
		t.Errorf("generation message = %q", call.req.Message)
	}
	if call.req.UserContext["identity_preference"] != "Female" {
		t.Errorf("user_context = %#v", call.req.UserContext)
	}

	snap := f.snapshot(t)
	if snap.Phase != PhaseGenerating || !snap.Composing {
		t.Fatalf("phase=%s composing=%v, want generating and composing", snap.Phase, snap.Composing)
	}
	for _, echo := range []string{"Female", "Wheelchair Access", "Ancient History, Food & Culinary"} {
		if !hasMessage(snap, chatlog.SenderUser, echo) {
			t.Errorf("missing user echo %q", echo)
		}
	}

	call.respond(itineraryResponse("Giza Pyramids", "Khan el-Khalili", "Egyptian Museum"), nil)
	snap = f.waitFor(t, "reveal", revealed(3))
	if snap.Composing || snap.ConversationID != "conv-1" {
		t.Errorf("composing=%v conversation=%q", snap.Composing, snap.ConversationID)
	}
	if snap.AcceptedCount != 0 || snap.CanConfirm {
		t.Errorf("review policy should start with nothing accepted: %+v", snap)
	}
	if got := countKind(snap, chatlog.KindSuggestionCard); got != 3 {
		t.Errorf("cards = %d, want 3", got)
	}
	if got := countKind(snap, chatlog.KindSectionDivider); got != 2 {
		t.Errorf("dividers = %d, want 2", got)
	}
	if snap.Items[0].ID != "act_1" || snap.Items[0].Day != 1 || snap.Items[2].Day != 2 {
		t.Errorf("items not flattened by day: %+v", snap.Items)
	}

	for _, id := range []string{"act_1", "act_3"} {
		if err := f.ctrl.ToggleItem(ctx, id, true); err != nil {
			t.Fatalf("toggle %s: %v", id, err)
		}
	}
	caller := gateway.Caller{UID: "traveler_1", Token: "tok"}
	if err := f.ctrl.Confirm(gateway.WithCaller(ctx, caller)); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	snap = f.waitFor(t, "confirmed", func(s Snapshot) bool { return s.Phase == PhaseConfirmed })
	if snap.Notice != savedNotice || snap.ItineraryID != "itn_1" {
		t.Errorf("notice=%q itinerary=%q", snap.Notice, snap.ItineraryID)
	}
	saves := f.gateway.calls()
	if len(saves) != 1 || len(saves[0].Itinerary.Items) != 2 {
		t.Fatalf("gateway saves = %+v", saves)
	}
	if saves[0].ConversationID != "conv-1" || f.gateway.caller[0] != caller {
		t.Errorf("save request missing conversation or caller: %+v %+v", saves[0], f.gateway.caller[0])
	}
	for _, item := range saves[0].Itinerary.Items {
		if !item.Accepted {
			t.Errorf("committed item %s not accepted", item.ID)
		}
	}

	applied := false
	for _, e := range snap.Entries {
		if e.Kind == chatlog.KindPlanAction && e.Action.Applied && e.Action.Label == planAppliedLabel {
			applied = true
		}
	}
	if !applied {
		t.Error("plan action was not marked applied")
	}
	if err := f.ctrl.ToggleItem(ctx, "act_2", true); !errors.Is(err, acceptance.ErrFrozen) {
		t.Errorf("toggle after confirm: expected ErrFrozen, got %v", err)
	}
}

// chatToReview reaches review through a chat reply that already carries a plan.
func chatToReview(t *testing.T, f *fixture, titles ...string) Snapshot {
	t.Helper()
	if err := f.ctrl.SendMessage(context.Background(), "Plan three days in Cairo"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	f.planner.next(t).respond(itineraryResponse(titles...), nil)
	return f.waitFor(t, "review", revealed(len(titles)))
}

func TestChatItineraryGoesStraightToReview(t *testing.T) {
	f := newFixture(t, nil)
	snap := chatToReview(t, f, "Giza Pyramids", "Saqqara")
	f.planner.assertIdle(t)
	if !hasMessage(snap, chatlog.SenderAssistant, "Here is your trip.") {
		t.Error("planner message was not appended")
	}
}

func TestConfirmWithNothingAccepted(t *testing.T) {
	f := newFixture(t, nil)
	chatToReview(t, f, "Giza Pyramids", "Saqqara", "Memphis")

	err := f.ctrl.Confirm(context.Background())
	if !errors.Is(err, ErrNothingAccepted) {
		t.Fatalf("expected ErrNothingAccepted, got %v", err)
	}
	if snap := f.snapshot(t); snap.Phase != PhaseReview || snap.Saving {
		t.Errorf("phase=%s saving=%v after rejected confirm", snap.Phase, snap.Saving)
	}
	if n := len(f.gateway.calls()); n != 0 {
		t.Errorf("gateway called %d times", n)
	}
}

func TestStaleChatResponseIsDropped(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	stale := metrics.StaleResponses.WithLabelValues("chat")
	before := promtest.ToFloat64(stale)

	if err := f.ctrl.SendMessage(ctx, "first"); err != nil {
		t.Fatal(err)
	}
	first := f.planner.next(t)
	if err := f.ctrl.SendMessage(ctx, "second"); err != nil {
		t.Fatal(err)
	}
	second := f.planner.next(t)
	if first.req.Message != "first" {
		first, second = second, first
	}

	second.respond(&planner.Response{Mode: planner.ModeChat, Message: "reply B"}, nil)
	f.waitFor(t, "reply B", func(s Snapshot) bool { return hasMessage(s, chatlog.SenderAssistant, "reply B") })

	first.respond(&planner.Response{Mode: planner.ModeChat, Message: "reply A"}, nil)
	deadline := time.Now().Add(waitTimeout)
	for promtest.ToFloat64(stale) <= before {
		if time.Now().After(deadline) {
			t.Fatal("stale response was not counted")
		}
		time.Sleep(2 * time.Millisecond)
	}
	snap := f.snapshot(t)
	if hasMessage(snap, chatlog.SenderAssistant, "reply A") {
		t.Error("superseded reply was applied")
	}
	if snap.Composing {
		t.Error("composing should be false once the latest reply landed")
	}
}

func TestGenerationFailureReturnsToChat(t *testing.T) {
	f := newFixture(t, nil)
	call := completePreferences(t, f)
	call.respond(nil, planner.NewTransportError(502, errors.New("bad gateway")))

	snap := f.waitFor(t, "chat", func(s Snapshot) bool { return s.Phase == PhaseChat })
	if snap.Composing || snap.LastError == "" {
		t.Errorf("composing=%v lastError=%q", snap.Composing, snap.LastError)
	}
	last := snap.Entries[len(snap.Entries)-1]
	if last.Message == nil || !strings.HasPrefix(last.Message.Text, apologyPrefix) {
		t.Errorf("expected apology, got %+v", last)
	}
}

func TestGenerationChatOnlyReturnsToChat(t *testing.T) {
	f := newFixture(t, nil)
	call := completePreferences(t, f)
	call.respond(&planner.Response{Mode: planner.ModeItinerary, Message: "Which city first?"}, nil)

	snap := f.waitFor(t, "chat", func(s Snapshot) bool { return s.Phase == PhaseChat })
	if !hasMessage(snap, chatlog.SenderAssistant, "Which city first?") || len(snap.Items) != 0 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestSaveFailureStaysInReview(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	chatToReview(t, f, "Giza Pyramids", "Saqqara")
	f.gateway.setErr(gateway.ErrRejected)

	_ = f.ctrl.ToggleItem(ctx, "act_2", true)
	if err := f.ctrl.Confirm(ctx); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	snap := f.waitFor(t, "save failure", func(s Snapshot) bool { return strings.HasPrefix(s.Notice, saveFailurePrefix) })
	if snap.Phase != PhaseReview || snap.Saving {
		t.Fatalf("phase=%s saving=%v", snap.Phase, snap.Saving)
	}
	if err := f.ctrl.ToggleItem(ctx, "act_1", true); err != nil {
		t.Fatalf("ledger should be editable after a failed save: %v", err)
	}

	f.gateway.setErr(nil)
	if err := f.ctrl.Confirm(ctx); err != nil {
		t.Fatalf("retry Confirm: %v", err)
	}
	f.waitFor(t, "confirmed", func(s Snapshot) bool { return s.Phase == PhaseConfirmed })
	saves := f.gateway.calls()
	if len(saves) != 2 || len(saves[1].Itinerary.Items) != 2 {
		t.Errorf("retry should commit both items: %+v", saves)
	}
	// the gateway caller falls back to the session owner
	if f.gateway.caller[0].UID != "traveler_1" {
		t.Errorf("caller = %+v", f.gateway.caller[0])
	}
}

func TestRegenerateKeepsProfile(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first := completePreferences(t, f)
	first.respond(itineraryResponse("Giza Pyramids", "Saqqara", "Memphis"), nil)
	f.waitFor(t, "reveal", revealed(3))
	_ = f.ctrl.ToggleItem(ctx, "act_1", true)

	if err := f.ctrl.Regenerate(ctx); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	snap := f.snapshot(t)
	if snap.Phase != PhaseGenerating || len(snap.Items) != 0 || snap.RevealCount != 0 {
		t.Fatalf("regenerate should clear items: phase=%s items=%d", snap.Phase, len(snap.Items))
	}
	second := f.planner.next(t)
	if second.req.Message != first.req.Message || second.req.ConversationID != "conv-1" {
		t.Errorf("regenerate request = %+v", second.req)
	}
	second.respond(itineraryResponse("Luxor Temple", "Karnak"), nil)
	snap = f.waitFor(t, "second reveal", revealed(2))
	if snap.AcceptedCount != 0 || countKind(snap, chatlog.KindPlanAction) != 2 {
		t.Errorf("accepted=%d actions=%d", snap.AcceptedCount, countKind(snap, chatlog.KindPlanAction))
	}
}

func TestRegenerateRestartsPreferences(t *testing.T) {
	f := newFixture(t, func(e *config.EngineConfig) { e.RegenerateKeepsProfile = false })
	chatToReview(t, f, "Giza Pyramids")

	if err := f.ctrl.Regenerate(context.Background()); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	snap := f.snapshot(t)
	if snap.Phase != PhaseChat || snap.ActivePrompt == nil || snap.ActivePrompt.Step != preference.StepIdentity {
		t.Fatalf("expected onboarding restart, got phase=%s prompt=%+v", snap.Phase, snap.ActivePrompt)
	}
	f.planner.assertIdle(t)
}

func TestSeededPolicyAcceptsEverything(t *testing.T) {
	f := newFixture(t, func(e *config.EngineConfig) { e.AcceptPolicy = config.AcceptSeeded })
	snap := chatToReview(t, f, "Giza Pyramids", "Saqqara", "Memphis")
	if snap.AcceptedCount != 3 || !snap.CanConfirm {
		t.Errorf("accepted=%d canConfirm=%v", snap.AcceptedCount, snap.CanConfirm)
	}
}

func TestSuggestionIsSentAsUserMessage(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if err := f.ctrl.SendMessage(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	f.planner.next(t).respond(&planner.Response{
		ConversationID: "conv-9",
		Mode:           planner.ModeChat,
		Message:        "Where would you like to go?",
		Suggestions:    []string{"Show me Luxor", ""},
	}, nil)
	snap := f.waitFor(t, "suggestions", func(s Snapshot) bool {
		return hasMessage(s, chatlog.SenderAssistant, "Where would you like to go?")
	})

	var promptID types.ID
	for _, e := range snap.Entries {
		if e.Message != nil && e.Message.QuickReplies != nil {
			promptID = e.Message.QuickReplies.ID
			if n := len(e.Message.QuickReplies.Options); n != 1 {
				t.Errorf("options = %d, want 1", n)
			}
		}
	}
	if promptID == "" {
		t.Fatal("no suggestion prompt in log")
	}
	if err := f.ctrl.SelectQuickReply(ctx, promptID, "Show me Luxor"); err != nil {
		t.Fatalf("SelectQuickReply: %v", err)
	}
	call := f.planner.next(t)
	if call.req.Message != "Show me Luxor" || call.req.ConversationID != "conv-9" {
		t.Errorf("request = %+v", call.req)
	}
	if !hasMessage(f.snapshot(t), chatlog.SenderUser, "Show me Luxor") {
		t.Error("suggestion not echoed as user message")
	}
	if err := f.ctrl.SelectQuickReply(ctx, promptID, "Show me Luxor"); !errors.Is(err, preference.ErrStalePrompt) {
		t.Errorf("second select: expected ErrStalePrompt, got %v", err)
	}
}

func TestCommandValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if err := f.ctrl.SendMessage(ctx, ""); !errors.Is(err, ErrBadRequest) {
		t.Errorf("empty text: %v", err)
	}
	if err := f.ctrl.ToggleItem(ctx, "act_1", true); !errors.Is(err, ErrInvalidPhase) {
		t.Errorf("toggle in chat: %v", err)
	}
	if err := f.ctrl.Regenerate(ctx); !errors.Is(err, ErrInvalidPhase) {
		t.Errorf("regenerate in chat: %v", err)
	}
	chatToReview(t, f, "Giza Pyramids")
	if err := f.ctrl.SendMessage(ctx, "more"); !errors.Is(err, ErrInvalidPhase) {
		t.Errorf("send in review: %v", err)
	}
	if err := f.ctrl.ToggleItem(ctx, "act_9", true); !errors.Is(err, acceptance.ErrUnknownItem) {
		t.Errorf("unknown item: %v", err)
	}
	if err := f.ctrl.SaveCard(ctx, "act_1", true); err != nil {
		t.Errorf("SaveCard: %v", err)
	}
}

func TestTeardownDropsInFlightResponses(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.ctrl.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	call := f.planner.next(t)
	f.ctrl.Teardown()
	call.respond(&planner.Response{Mode: planner.ModeChat, Message: "too late"}, nil)

	if _, err := f.ctrl.Snapshot(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Snapshot after teardown: %v", err)
	}
	if err := f.ctrl.SendMessage(context.Background(), "again"); !errors.Is(err, ErrClosed) {
		t.Errorf("SendMessage after teardown: %v", err)
	}
}
