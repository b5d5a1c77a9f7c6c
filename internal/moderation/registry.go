// Package moderation decides whether the bot should intervene in a conversation.
package moderation

import "sync"

type conversationSettings struct {
	paused    bool
	threshold *float64
}

// Registry holds per-conversation moderation settings changed through commands.
// It is safe for concurrent use and lives only in memory.
type Registry struct {
	mu       sync.RWMutex
	settings map[string]conversationSettings
}

// NewRegistry creates an empty Registry; every conversation starts active.
func NewRegistry() *Registry {
	return &Registry{settings: make(map[string]conversationSettings)}
}

// Pause suppresses interventions for a conversation.
func (r *Registry) Pause(conversationID string) {
	r.update(conversationID, func(s *conversationSettings) { s.paused = true })
}

// Resume re-enables interventions for a conversation.
func (r *Registry) Resume(conversationID string) {
	r.update(conversationID, func(s *conversationSettings) { s.paused = false })
}

// IsPaused reports whether interventions are paused for a conversation.
func (r *Registry) IsPaused(conversationID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings[conversationID].paused
}

// SetThreshold overrides the intervention threshold for a conversation.
func (r *Registry) SetThreshold(conversationID string, threshold float64) {
	r.update(conversationID, func(s *conversationSettings) { s.threshold = &threshold })
}

// ResetThreshold removes a conversation's threshold override.
func (r *Registry) ResetThreshold(conversationID string) {
	r.update(conversationID, func(s *conversationSettings) { s.threshold = nil })
}

// Threshold returns the conversation's threshold, or def when none is set.
func (r *Registry) Threshold(conversationID string, def float64) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t := r.settings[conversationID].threshold; t != nil {
		return *t
	}
	return def
}

func (r *Registry) update(conversationID string, fn func(*conversationSettings)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.settings[conversationID]
	fn(&s)
	if !s.paused && s.threshold == nil {
		delete(r.settings, conversationID)
		return
	}
	r.settings[conversationID] = s
}
