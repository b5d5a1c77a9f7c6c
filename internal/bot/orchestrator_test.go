package bot

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edgard/lovebot/internal/analysis"
	"github.com/edgard/lovebot/internal/command"
	"github.com/edgard/lovebot/internal/config"
	"github.com/edgard/lovebot/internal/domain/model"
	"github.com/edgard/lovebot/internal/events"
	"github.com/edgard/lovebot/internal/memory"
	"github.com/edgard/lovebot/internal/moderation"
	"github.com/edgard/lovebot/internal/transport"
)

const hostile = "I hate you, you never listen, this is awful"

type fakeStore struct {
	mu         sync.Mutex
	messages   []model.Message
	feedback   []model.Feedback
	saveErr    error
	saveCalls  int
	historyErr error
	// stuck makes SaveMessage and History wait until their context ends.
	stuck bool
}

func (s *fakeStore) SaveMessage(ctx context.Context, m *model.Message) error {
	if s.stuck {
		s.mu.Lock()
		s.saveCalls++
		s.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.messages = append(s.messages, *m)
	return nil
}

func (s *fakeStore) History(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if s.stuck {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	var out []model.Message
	for i := len(s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if s.messages[i].ConversationID == conversationID {
			out = append(out, s.messages[i])
		}
	}
	return out, nil
}

func (s *fakeStore) Search(_ context.Context, terms []string, conversationID string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if m.ConversationID != conversationID {
			continue
		}
		for _, term := range terms {
			if strings.Contains(strings.ToLower(m.Content), term) {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

func (s *fakeStore) SaveFeedback(_ context.Context, f *model.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, *f)
	return nil
}

type sent struct{ to, text string }

type fakeTransport struct {
	mu      sync.Mutex
	sent    []sent
	sendErr []error
	fail    bool
	handler transport.Handler
}

func (t *fakeTransport) Name() string { return "fake" }

func (t *fakeTransport) Send(ctx context.Context, to, text string) model.DeliveryResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, sent{to: to, text: text})
	t.sendErr = append(t.sendErr, ctx.Err())
	if t.fail {
		return model.DeliveryResult{Reason: "unreachable"}
	}
	return model.DeliveryResult{Success: true, ExternalID: "ext-1"}
}

func (t *fakeTransport) Subscribe(h transport.Handler) { t.handler = h }

func (t *fakeTransport) sentTexts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.sent))
	for i, s := range t.sent {
		out[i] = s.text
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type panicPipeline struct{}

func (panicPipeline) Process(context.Context, model.Message, []model.Message) model.ProcessedMessage {
	panic("analysis exploded")
}

type fixture struct {
	orch      *Orchestrator
	store     *fakeStore
	transport *fakeTransport
	events    *fakePublisher
	registry  *moderation.Registry
	memory    *memory.Manager
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	store := &fakeStore{}
	registry := moderation.NewRegistry()
	policy := moderation.NewThresholdPolicy(config.DefaultInterventionThreshold, registry)
	mem := memory.NewManager(config.DefaultContextCapacity)
	pub := &fakePublisher{}

	router := command.NewRouter(command.HandlerDeps{
		Store:           store,
		Registry:        registry,
		Policy:          policy,
		Messages:        config.DefaultMessages,
		ContextCapacity: config.DefaultContextCapacity,
		Prefix:          config.DefaultCommandPrefix,
		Timeout:         time.Second,
	})

	orch := NewOrchestrator(OrchestratorDeps{
		Store:    store,
		Router:   router,
		Pipeline: analysis.NewProcessor(analysis.NewLexicon(256, analysis.DefaultThresholds), mem, store, nil),
		Policy:   policy,
		Events:   pub,
		Moderation: config.ModerationConfig{
			ReplyText:      config.DefaultReplyText,
			MessageTimeout: 5 * time.Second,
			StoreRetries:   2,
		},
		HistoryLimit: 50,
	})

	return fixture{
		orch:      orch,
		store:     store,
		transport: &fakeTransport{},
		events:    pub,
		registry:  registry,
		memory:    mem,
	}
}

func (f fixture) handle(content string) State {
	return f.orch.HandleInbound(context.Background(), f.transport, model.Message{
		SenderID:       "alice",
		ConversationID: "group-1",
		Content:        content,
	})
}

func TestHostileMessageTriggersIntervention(t *testing.T) {
	f := newFixture(t)

	if got := f.handle(hostile); got != StateResponded {
		t.Fatalf("state = %q, want %q", got, StateResponded)
	}

	texts := f.transport.sentTexts()
	if len(texts) != 1 || texts[0] != config.DefaultReplyText {
		t.Fatalf("sent = %v, want the intervention reply", texts)
	}
	if f.transport.sent[0].to != "group-1" {
		t.Errorf("reply sent to %q, want group-1", f.transport.sent[0].to)
	}

	if len(f.store.messages) != 1 {
		t.Fatalf("stored %d messages, want 1", len(f.store.messages))
	}
	if f.store.messages[0].ID == "" || f.store.messages[0].Timestamp.IsZero() {
		t.Errorf("stored message missing id or timestamp: %+v", f.store.messages[0])
	}

	ev := f.events.events
	if len(ev) != 1 || ev[0].Type != events.TypeIntervention || ev[0].Score == nil || *ev[0].Score >= -0.7 {
		t.Errorf("events = %+v", ev)
	}
}

func TestNeutralMessageIsSuppressed(t *testing.T) {
	f := newFixture(t)

	if got := f.handle("are we still on for dinner tonight?"); got != StateSuppressed {
		t.Fatalf("state = %q, want %q", got, StateSuppressed)
	}
	if len(f.transport.sentTexts()) != 0 {
		t.Errorf("unexpected replies: %v", f.transport.sentTexts())
	}
	if len(f.store.messages) != 1 {
		t.Errorf("stored %d messages, want 1", len(f.store.messages))
	}
	if f.memory.Len("group-1") != 1 {
		t.Errorf("context window length = %d, want 1", f.memory.Len("group-1"))
	}
}

func TestPauseResumeFlow(t *testing.T) {
	f := newFixture(t)

	if got := f.handle("#lovebot pause"); got != StateCommandHandled {
		t.Fatalf("pause state = %q", got)
	}
	if !f.registry.IsPaused("group-1") {
		t.Fatal("conversation should be paused")
	}
	if got := f.handle(hostile); got != StateSuppressed {
		t.Errorf("hostile while paused state = %q, want suppressed", got)
	}

	if got := f.handle("#lovebot resume"); got != StateCommandHandled {
		t.Fatalf("resume state = %q", got)
	}
	if got := f.handle(hostile); got != StateResponded {
		t.Errorf("hostile after resume state = %q, want responded", got)
	}

	want := []string{config.DefaultMessages.Paused, config.DefaultMessages.Resumed, config.DefaultReplyText}
	got := f.transport.sentTexts()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("sent = %q, want %q", got, want)
	}

	if len(f.store.messages) != 4 {
		t.Errorf("stored %d messages, want all 4 including commands", len(f.store.messages))
	}

	types := f.events.types()
	sort.Strings(types)
	if strings.Join(types, ",") != "command,command,intervention" {
		t.Errorf("event types = %v", types)
	}
}

func TestCommandsAreNotAnalyzed(t *testing.T) {
	f := newFixture(t)

	f.handle("#lovebot help")
	if f.memory.Len("group-1") != 0 {
		t.Error("command messages should not enter the context window")
	}
}

func TestUnknownCommandFallsThroughToAnalysis(t *testing.T) {
	f := newFixture(t)

	if got := f.handle("#lovebot dance"); got != StateSuppressed {
		t.Fatalf("state = %q, want %q", got, StateSuppressed)
	}
	if f.memory.Len("group-1") != 1 {
		t.Error("unknown command should be analyzed like a normal message")
	}
}

func TestStoreFailureDoesNotStopPipeline(t *testing.T) {
	f := newFixture(t)
	f.store.saveErr = errors.New("disk full")

	if got := f.handle(hostile); got != StateResponded {
		t.Fatalf("state = %q, want %q", got, StateResponded)
	}
	if f.store.saveCalls != 2 {
		t.Errorf("save attempts = %d, want 2", f.store.saveCalls)
	}
}

func TestHistoryFailureDegradesToEmpty(t *testing.T) {
	f := newFixture(t)
	f.store.historyErr = errors.New("timeout")

	if got := f.handle(hostile); got != StateResponded {
		t.Fatalf("state = %q, want %q", got, StateResponded)
	}
}

func TestDeliveryFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.transport.fail = true

	if got := f.handle(hostile); got != StateResponded {
		t.Fatalf("state = %q, want %q", got, StateResponded)
	}
	if types := f.events.types(); len(types) != 1 || types[0] != events.TypeDelivery {
		t.Errorf("event types = %v, want delivery_failed", types)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	f := newFixture(t)
	f.orch.deps.Pipeline = panicPipeline{}

	if got := f.handle("hello"); got != StateFailed {
		t.Fatalf("state = %q, want %q", got, StateFailed)
	}
	if got := f.handle("#lovebot help"); got != StateCommandHandled {
		t.Errorf("pipeline should keep working after a panic, state = %q", got)
	}
}

func TestAttachRoutesTransportMessages(t *testing.T) {
	f := newFixture(t)
	f.orch.Attach(f.transport)

	if f.transport.handler == nil {
		t.Fatal("Attach did not subscribe")
	}
	f.transport.handler(context.Background(), model.Message{SenderID: "bob", ConversationID: "dm:bob", Content: hostile})

	if len(f.transport.sent) != 1 || f.transport.sent[0].to != "dm:bob" {
		t.Errorf("sent = %+v, want reply to dm:bob", f.transport.sent)
	}
}

func TestRelevantContextFromEarlierMessages(t *testing.T) {
	f := newFixture(t)
	var captured model.ProcessedMessage
	f.orch.deps.Pipeline = pipelineFunc(func(ctx context.Context, msg model.Message, history []model.Message) model.ProcessedMessage {
		captured = analysis.NewProcessor(analysis.NewLexicon(256, analysis.DefaultThresholds), f.memory, f.store, nil).Process(ctx, msg, history)
		return captured
	})

	f.handle("we need to talk about the rent and the budget")
	f.handle("the bills are late again and money is tight")

	if len(captured.RelevantContext) == 0 {
		t.Fatal("expected earlier finance message as relevant context")
	}
	if !strings.Contains(captured.RelevantContext[0].Content, "rent") {
		t.Errorf("relevant = %+v", captured.RelevantContext)
	}
}

type pipelineFunc func(ctx context.Context, msg model.Message, history []model.Message) model.ProcessedMessage

func (fn pipelineFunc) Process(ctx context.Context, msg model.Message, history []model.Message) model.ProcessedMessage {
	return fn(ctx, msg, history)
}

func TestStuckStoreIsBoundedByStoreTimeout(t *testing.T) {
	f := newFixture(t)
	f.store.stuck = true
	f.orch.deps.StoreTimeout = 50 * time.Millisecond

	start := time.Now()
	got := f.handle(hostile)
	elapsed := time.Since(start)

	if got != StateResponded {
		t.Fatalf("state = %q, want %q", got, StateResponded)
	}
	if elapsed > 2*time.Second {
		t.Errorf("HandleInbound took %v, want it bounded by the store timeout", elapsed)
	}
	if f.store.saveCalls != 2 {
		t.Errorf("save attempts = %d, want 2", f.store.saveCalls)
	}
	if f.memory.Len("group-1") != 1 {
		t.Error("message should still be analyzed without storage")
	}
}

func TestStuckStoreConsumingMessageBudgetStillReplies(t *testing.T) {
	f := newFixture(t)
	f.store.stuck = true
	f.orch.deps.Moderation.MessageTimeout = 100 * time.Millisecond
	f.orch.deps.StoreTimeout = 100 * time.Millisecond

	start := time.Now()
	got := f.handle(hostile)
	elapsed := time.Since(start)

	if got != StateResponded {
		t.Fatalf("state = %q, want %q", got, StateResponded)
	}
	if elapsed > 2*time.Second {
		t.Errorf("HandleInbound took %v, want it bounded by the message timeout", elapsed)
	}
	if len(f.transport.sendErr) != 1 || f.transport.sendErr[0] != nil {
		t.Errorf("reply context errors = %v, want a live context", f.transport.sendErr)
	}
}

func TestSlowAnalysisStillDeliversIntervention(t *testing.T) {
	f := newFixture(t)
	f.orch.deps.Moderation.MessageTimeout = 100 * time.Millisecond
	f.orch.deps.Pipeline = pipelineFunc(func(ctx context.Context, msg model.Message, _ []model.Message) model.ProcessedMessage {
		<-ctx.Done()
		return model.ProcessedMessage{
			Original:        msg,
			Analysis:        model.AnalysisResult{Intent: model.IntentUnknown, Topics: []string{}},
			Sentiment:       model.SentimentResult{Score: -0.9, IsNegative: true},
			RelevantContext: []model.Message{},
		}
	})

	start := time.Now()
	got := f.handle(hostile)
	elapsed := time.Since(start)

	if got != StateResponded {
		t.Fatalf("state = %q, want %q", got, StateResponded)
	}
	if elapsed > 2*time.Second {
		t.Errorf("HandleInbound took %v, want it bounded by the message timeout", elapsed)
	}
	if len(f.transport.sendErr) != 1 || f.transport.sendErr[0] != nil {
		t.Errorf("reply context errors = %v, want a live context", f.transport.sendErr)
	}
	if types := f.events.types(); len(types) != 1 || types[0] != events.TypeIntervention {
		t.Errorf("event types = %v, want intervention", types)
	}
}
