package property

import (
	"fmt"
	"sync"
)

// Behavior is the opaque bag of user-behavior signals returned by the
// backend with each chat reply. Only a couple of well-known keys are read
// for display.
type Behavior map[string]any

// Stage returns the conversation stage ("discovery", "evaluation",
// "decision"), defaulting to discovery.
func (b Behavior) Stage() string {
	if s, ok := b["conversation_stage"].(string); ok && s != "" {
		return s
	}
	return "discovery"
}

// Interests returns the interests the backend has inferred so far.
func (b Behavior) Interests() []string {
	raw, ok := b["interests"].([]any)
	if !ok {
		if ss, ok := b["interests"].([]string); ok {
			return append([]string(nil), ss...)
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

// Tracker remembers which property the conversation is about, the latest
// behavior signals and the running suggestion set. Every setter overwrites;
// nothing is merged. The tracker only stores names, never summaries.
type Tracker struct {
	mu          sync.RWMutex
	last        string
	behavior    Behavior
	suggestions []string
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// SetLastMentioned records an explicit reference. It always replaces any
// earlier value, including one resolved from text in the same interaction.
func (t *Tracker) SetLastMentioned(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = name
}

// LastMentioned returns the property currently being discussed.
func (t *Tracker) LastMentioned() (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last, t.last != ""
}

// Note resolves a mention in text against known and records it. Text that
// mentions no known property leaves the tracker untouched.
func (t *Tracker) Note(text string, known []Summary) (string, bool) {
	name, ok := ResolveMention(text, known)
	if ok {
		t.SetLastMentioned(name)
	}
	return name, ok
}

// SetBehavior replaces the behavior signals.
func (t *Tracker) SetBehavior(b Behavior) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.behavior = b
}

// Behavior returns the latest behavior signals (never nil).
func (t *Tracker) Behavior() Behavior {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.behavior == nil {
		return Behavior{}
	}
	return t.behavior
}

// SetPendingSuggestions replaces the running suggestion set.
func (t *Tracker) SetPendingSuggestions(s []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.suggestions = append([]string(nil), s...)
}

// PendingSuggestions returns a copy of the running suggestion set.
func (t *Tracker) PendingSuggestions() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string{}, t.suggestions...)
}

// Reset forgets everything.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = ""
	t.behavior = nil
	t.suggestions = nil
}
