// Package memory keeps a bounded, per-conversation window of recently analyzed
// messages and answers "what earlier messages relate to this one" queries.
package memory

import (
	"sync"
	"time"

	"github.com/edgard/lovebot/internal/domain/model"
)

// Entry is one remembered message together with its analysis.
type Entry struct {
	Message   model.Message
	Analysis  model.AnalysisResult
	Sentiment model.SentimentResult
}

// window is a fixed-capacity ring buffer. The oldest entry is overwritten first.
type window struct {
	mu       sync.Mutex
	entries  []Entry
	next     int
	size     int
	lastSeen time.Time
}

func newWindow(capacity int) *window {
	return &window{entries: make([]Entry, capacity)}
}

func (w *window) add(e Entry, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.addLocked(e, now)
}

// addLocked appends e unless a message with the same ID is already held.
// The caller must hold w.mu.
func (w *window) addLocked(e Entry, now time.Time) {
	w.lastSeen = now
	if id := e.Message.ID; id != "" {
		dup := false
		w.newestFirst(func(held Entry) bool {
			dup = held.Message.ID == id
			return !dup
		})
		if dup {
			return
		}
	}

	w.entries[w.next] = e
	w.next = (w.next + 1) % len(w.entries)
	if w.size < len(w.entries) {
		w.size++
	}
}

// newestFirst calls fn for each entry from newest to oldest until fn returns false.
// The caller must hold w.mu.
func (w *window) newestFirst(fn func(Entry) bool) {
	for i := 1; i <= w.size; i++ {
		idx := (w.next - i + len(w.entries)) % len(w.entries)
		if !fn(w.entries[idx]) {
			return
		}
	}
}

// Manager owns one window per conversation. Operations on different
// conversations only contend on the index lock while looking up a window.
type Manager struct {
	capacity int
	now      func() time.Time

	mu      sync.RWMutex
	windows map[string]*window
}

// NewManager creates a Manager whose windows hold at most capacity entries.
func NewManager(capacity int) *Manager {
	if capacity <= 0 {
		capacity = 1
	}
	return &Manager{
		capacity: capacity,
		now:      time.Now,
		windows:  make(map[string]*window),
	}
}

// Capacity returns the per-conversation window size.
func (m *Manager) Capacity() int {
	return m.capacity
}

func (m *Manager) get(conversationID string) *window {
	m.mu.RLock()
	w := m.windows[conversationID]
	m.mu.RUnlock()
	return w
}

func (m *Manager) getOrCreate(conversationID string) *window {
	if w := m.get(conversationID); w != nil {
		return w
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.windows[conversationID]; ok {
		return w
	}
	w := newWindow(m.capacity)
	w.lastSeen = m.now()
	m.windows[conversationID] = w
	return w
}

// Record appends a message to its conversation window, evicting the oldest entry when full.
// A message whose ID is already in the window is not added again.
func (m *Manager) Record(msg model.Message, analysis model.AnalysisResult, sentiment model.SentimentResult) {
	m.getOrCreate(msg.ConversationID).add(Entry{Message: msg, Analysis: analysis, Sentiment: sentiment}, m.now())
}

// WarmOnce seeds an empty conversation window with the entries returned by
// load, oldest first. The window stays locked while load runs, so concurrent
// callers for the same conversation warm it at most once. It reports whether
// load was called.
func (m *Manager) WarmOnce(conversationID string, load func() []Entry) bool {
	w := m.getOrCreate(conversationID)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.size > 0 {
		return false
	}
	now := m.now()
	for _, e := range load() {
		w.addLocked(e, now)
	}
	w.lastSeen = now
	return true
}

// Relevant returns earlier messages of the conversation that share at least one
// topic with analysis, newest first. It returns an empty slice when nothing matches.
func (m *Manager) Relevant(conversationID string, analysis model.AnalysisResult) []model.Message {
	out := []model.Message{}
	if len(analysis.Topics) == 0 {
		return out
	}
	w := m.get(conversationID)
	if w == nil {
		return out
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.newestFirst(func(e Entry) bool {
		if e.Analysis.SharesTopic(analysis) {
			out = append(out, e.Message)
		}
		return true
	})
	return out
}

// Entries returns a copy of a conversation's window, newest first.
func (m *Manager) Entries(conversationID string) []Entry {
	w := m.get(conversationID)
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Entry, 0, w.size)
	w.newestFirst(func(e Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Len returns how many messages are remembered for a conversation.
func (m *Manager) Len(conversationID string) int {
	w := m.get(conversationID)
	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Conversations returns the number of conversations with a window.
func (m *Manager) Conversations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.windows)
}

// Prune drops windows that have not been written to for longer than idle.
// It returns the number of windows removed.
func (m *Manager) Prune(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, w := range m.windows {
		w.mu.Lock()
		stale := w.lastSeen.Before(cutoff)
		w.mu.Unlock()
		if stale {
			delete(m.windows, id)
			removed++
		}
	}
	return removed
}
