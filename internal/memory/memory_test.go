package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/edgard/lovebot/internal/domain/model"
)

func msg(conv, id, content string) model.Message {
	return model.Message{ID: id, ConversationID: conv, SenderID: "alice", Content: content}
}

func topics(ts ...string) model.AnalysisResult {
	return model.AnalysisResult{Intent: model.IntentUnknown, Topics: ts}
}

func TestRelevantSharesTopicNewestFirst(t *testing.T) {
	m := NewManager(10)
	m.Record(msg("g", "1", "rent is due"), topics("finance"), model.SentimentResult{IsNeutral: true})
	m.Record(msg("g", "2", "dishes again"), topics("chores"), model.SentimentResult{IsNeutral: true})
	m.Record(msg("g", "3", "groceries cost a lot"), topics("finance", "chores"), model.SentimentResult{IsNeutral: true})
	m.Record(msg("other", "4", "budget"), topics("finance"), model.SentimentResult{IsNeutral: true})

	got := m.Relevant("g", topics("finance"))
	if len(got) != 2 || got[0].ID != "3" || got[1].ID != "1" {
		t.Fatalf("Relevant = %+v, want ids 3,1", got)
	}
}

func TestRelevantEmpty(t *testing.T) {
	m := NewManager(5)
	if got := m.Relevant("missing", topics("finance")); got == nil || len(got) != 0 {
		t.Errorf("unknown conversation: %#v", got)
	}
	m.Record(msg("g", "1", "hi"), topics("family"), model.SentimentResult{IsNeutral: true})
	if got := m.Relevant("g", topics()); len(got) != 0 {
		t.Errorf("no topics: %#v", got)
	}
	if got := m.Relevant("g", topics("work")); len(got) != 0 {
		t.Errorf("no overlap: %#v", got)
	}
}

func TestWindowEvictsOldest(t *testing.T) {
	const capacity = 4
	m := NewManager(capacity)
	for i := 0; i < capacity+5; i++ {
		m.Record(msg("g", fmt.Sprint(i), "x"), topics("finance"), model.SentimentResult{IsNeutral: true})
	}

	if got := m.Len("g"); got != capacity {
		t.Fatalf("Len = %d, want %d", got, capacity)
	}

	entries := m.Entries("g")
	want := []string{"8", "7", "6", "5"}
	for i, e := range entries {
		if e.Message.ID != want[i] {
			t.Errorf("entry %d = %s, want %s", i, e.Message.ID, want[i])
		}
	}
	for _, r := range m.Relevant("g", topics("finance")) {
		if r.ID == "0" || r.ID == "4" {
			t.Errorf("evicted message %s still returned", r.ID)
		}
	}
}

func TestPrune(t *testing.T) {
	m := NewManager(3)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Record(msg("old", "1", "x"), topics(), model.SentimentResult{IsNeutral: true})
	now = now.Add(2 * time.Hour)
	m.Record(msg("fresh", "2", "y"), topics(), model.SentimentResult{IsNeutral: true})

	if removed := m.Prune(time.Hour); removed != 1 {
		t.Fatalf("Prune removed %d, want 1", removed)
	}
	if m.Len("old") != 0 || m.Len("fresh") != 1 || m.Conversations() != 1 {
		t.Errorf("unexpected state after prune: old=%d fresh=%d conversations=%d", m.Len("old"), m.Len("fresh"), m.Conversations())
	}
}

func TestConcurrentRecord(t *testing.T) {
	m := NewManager(50)
	var wg sync.WaitGroup
	for c := 0; c < 8; c++ {
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(conv string, i int) {
				defer wg.Done()
				m.Record(msg(conv, fmt.Sprint(i), "x"), topics("work"), model.SentimentResult{IsNeutral: true})
				_ = m.Relevant(conv, topics("work"))
			}(fmt.Sprintf("conv-%d", c), i)
		}
	}
	wg.Wait()

	for c := 0; c < 8; c++ {
		if got := m.Len(fmt.Sprintf("conv-%d", c)); got != 50 {
			t.Errorf("conv-%d Len = %d, want 50", c, got)
		}
	}
}

func TestWarmOnceOnlySeedsEmptyWindow(t *testing.T) {
	m := NewManager(10)
	seed := func() []Entry {
		return []Entry{
			{Message: msg("g", "1", "old"), Analysis: topics("finance")},
			{Message: msg("g", "2", "newer"), Analysis: topics("chores")},
		}
	}

	if !m.WarmOnce("g", seed) {
		t.Fatal("first WarmOnce should load")
	}
	if m.WarmOnce("g", seed) {
		t.Error("second WarmOnce should not load into a non-empty window")
	}
	entries := m.Entries("g")
	if len(entries) != 2 || entries[0].Message.ID != "2" || entries[1].Message.ID != "1" {
		t.Errorf("entries = %+v, want ids 2,1", entries)
	}
}

func TestRecordSkipsDuplicateID(t *testing.T) {
	m := NewManager(10)
	m.Record(msg("g", "1", "rent"), topics("finance"), model.SentimentResult{IsNeutral: true})
	m.Record(msg("g", "1", "rent"), topics("finance"), model.SentimentResult{IsNeutral: true})
	if got := m.Len("g"); got != 1 {
		t.Errorf("Len = %d, want 1", got)
	}
}
