package command

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/edgard/lovebot/internal/config"
	"github.com/edgard/lovebot/internal/domain/model"
	"github.com/edgard/lovebot/internal/moderation"
)

type sent struct {
	to, text string
}

type fakeReplier struct {
	mu   sync.Mutex
	sent []sent
	fail bool
}

func (f *fakeReplier) Send(_ context.Context, to, text string) model.DeliveryResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{to, text})
	if f.fail {
		return model.DeliveryResult{Reason: "offline"}
	}
	return model.DeliveryResult{Success: true, ExternalID: "SM1"}
}

func (f *fakeReplier) last() sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sent{}
	}
	return f.sent[len(f.sent)-1]
}

type fakeFeedbackStore struct {
	saved []model.Feedback
	err   error
}

func (f *fakeFeedbackStore) SaveFeedback(_ context.Context, fb *model.Feedback) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, *fb)
	return nil
}

type fixture struct {
	router   *Router
	replier  *fakeReplier
	store    *fakeFeedbackStore
	registry *moderation.Registry
}

func newFixture() fixture {
	registry := moderation.NewRegistry()
	replier := &fakeReplier{}
	store := &fakeFeedbackStore{}
	router := NewRouter(HandlerDeps{
		Store:           store,
		Registry:        registry,
		Policy:          moderation.NewThresholdPolicy(-0.7, registry),
		Messages:        config.DefaultMessages,
		ContextCapacity: 50,
		Prefix:          "#lovebot",
	})
	return fixture{router: router, replier: replier, store: store, registry: registry}
}

func message(content string) model.Message {
	return model.Message{ID: "m1", ConversationID: "group-1", SenderID: "alice", Content: content}
}

func TestParse(t *testing.T) {
	tests := []struct {
		content string
		cmd     Command
		args    []string
		ok      bool
	}{
		{"#lovebot help", Help, []string{}, true},
		{"#lovebot   PAUSE  ", Pause, []string{}, true},
		{"#LoveBot resume", Resume, []string{}, true},
		{"#lovebot settings threshold -0.5", Settings, []string{"threshold", "-0.5"}, true},
		{"#lovebot feedback  more  hugs", Feedback, []string{"more", "hugs"}, true},
		{"  #lovebot help", Help, []string{}, true},
		{"#lovebot pause\nnow", Pause, []string{"now"}, true},
		{"#lovebot\tsettings\tthreshold\t-0.5", Settings, []string{"threshold", "-0.5"}, true},
		{"#lovebot feedback\nsofter\r\nreplies", Feedback, []string{"softer", "replies"}, true},
		{"#lovebot dance", "", nil, false},
		{"#lovebot", "", nil, false},
		{"#lovebot   ", "", nil, false},
		{"#lovebothelp", "", nil, false},
		{"hello #lovebot help", "", nil, false},
		{"", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			cmd, args, ok := parse("#lovebot", tt.content)
			if ok != tt.ok || cmd != tt.cmd || !reflect.DeepEqual(args, tt.args) {
				t.Errorf("parse(%q) = (%q, %v, %v), want (%q, %v, %v)", tt.content, cmd, args, ok, tt.cmd, tt.args, tt.ok)
			}
		})
	}
}

func TestTryHandleUnknownFallsThrough(t *testing.T) {
	f := newFixture()
	if f.router.TryHandle(context.Background(), message("#lovebot dance"), f.replier) {
		t.Fatal("unknown command must not be handled")
	}
	if f.router.TryHandle(context.Background(), message("just chatting"), f.replier) {
		t.Fatal("plain message must not be handled")
	}
	if len(f.replier.sent) != 0 {
		t.Errorf("unexpected replies: %+v", f.replier.sent)
	}
}

func TestHelp(t *testing.T) {
	f := newFixture()
	if !f.router.TryHandle(context.Background(), message("#lovebot help"), f.replier) {
		t.Fatal("help not handled")
	}
	got := f.replier.last()
	if got.to != "group-1" {
		t.Errorf("reply sent to %q", got.to)
	}
	for _, c := range Commands {
		if !strings.Contains(got.text, "#lovebot "+string(c)) {
			t.Errorf("help text missing %q: %q", c, got.text)
		}
	}
}

func TestPauseResume(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.router.TryHandle(ctx, message("#lovebot pause"), f.replier)
	if !f.registry.IsPaused("group-1") {
		t.Fatal("conversation not paused")
	}
	if f.replier.last().text != config.DefaultMessages.Paused {
		t.Errorf("pause reply = %q", f.replier.last().text)
	}

	f.router.TryHandle(ctx, message("#lovebot resume"), f.replier)
	if f.registry.IsPaused("group-1") {
		t.Fatal("conversation still paused")
	}
}

func TestSettings(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.router.TryHandle(ctx, message("#lovebot settings"), f.replier)
	if text := f.replier.last().text; !strings.Contains(text, "active") || !strings.Contains(text, "-0.70") || !strings.Contains(text, "50") {
		t.Errorf("settings reply = %q", text)
	}

	f.router.TryHandle(ctx, message("#lovebot settings threshold -0.4"), f.replier)
	if got := f.registry.Threshold("group-1", -0.7); got != -0.4 {
		t.Errorf("threshold = %v, want -0.4", got)
	}

	f.router.TryHandle(ctx, message("#lovebot settings threshold 2"), f.replier)
	if f.replier.last().text != config.DefaultMessages.SettingsUsage {
		t.Errorf("invalid value reply = %q", f.replier.last().text)
	}
	if got := f.registry.Threshold("group-1", -0.7); got != -0.4 {
		t.Errorf("invalid value changed threshold to %v", got)
	}

	f.router.TryHandle(ctx, message("#lovebot settings threshold reset"), f.replier)
	if got := f.registry.Threshold("group-1", -0.7); got != -0.7 {
		t.Errorf("threshold after reset = %v", got)
	}
}

func TestFeedback(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.router.TryHandle(ctx, message("#lovebot feedback please be gentler"), f.replier)
	if len(f.store.saved) != 1 || f.store.saved[0].Content != "please be gentler" || f.store.saved[0].SenderID != "alice" {
		t.Fatalf("saved feedback = %+v", f.store.saved)
	}
	if f.replier.last().text != config.DefaultMessages.FeedbackThanks {
		t.Errorf("reply = %q", f.replier.last().text)
	}

	f.router.TryHandle(ctx, message("#lovebot feedback"), f.replier)
	if len(f.store.saved) != 1 {
		t.Error("empty feedback must not be saved")
	}
	if f.replier.last().text != config.DefaultMessages.FeedbackEmpty {
		t.Errorf("reply = %q", f.replier.last().text)
	}
}

func TestHandlerFailureStillHandled(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("db down")
	f.replier.fail = true

	if !f.router.TryHandle(context.Background(), message("#lovebot feedback hi"), f.replier) {
		t.Fatal("failing command should still report handled")
	}
	if !f.router.TryHandle(context.Background(), message("#lovebot help"), f.replier) {
		t.Fatal("undeliverable reply should still report handled")
	}
}
