// Package conversation holds the client-side chat log: an ordered,
// append-only list of user and assistant messages.
package conversation

import (
	"sync"
	"time"

	"github.com/zulandar/proptalk/internal/property"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the chat log. Optional collections are always
// non-nil so renderers can range over them directly.
type Message struct {
	ID          int64              `json:"id"`
	Role        Role               `json:"role"`
	Text        string             `json:"text"`
	CreatedAt   time.Time          `json:"created_at"`
	Properties  []property.Summary `json:"properties"`
	Images      []string           `json:"images"`
	Suggestions []string           `json:"suggestions"`
}

// Reply is the assistant payload to append, already normalized by the
// backend client.
type Reply struct {
	Text        string
	Properties  []property.Summary
	Images      []string
	Suggestions []string
}

// Store is the ordered message log. Messages are stored by value and copied
// on the way out, so an appended message can never change.
type Store struct {
	now func() time.Time

	mu       sync.RWMutex
	messages []Message
	lastID   int64
}

// StoreOpts holds parameters for creating a Store.
type StoreOpts struct {
	Now func() time.Time // defaults to time.Now
}

// NewStore creates an empty Store.
func NewStore(opts StoreOpts) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{now: now}
}

// AppendUser records a user message.
func (s *Store) AppendUser(text string) Message {
	return s.append(Message{Role: RoleUser, Text: text})
}

// AppendAssistant records an assistant message built from r.
func (s *Store) AppendAssistant(r Reply) Message {
	return s.append(Message{
		Role:        RoleAssistant,
		Text:        r.Text,
		Properties:  r.Properties,
		Images:      r.Images,
		Suggestions: r.Suggestions,
	})
}

func (s *Store) append(m Message) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	m.ID = s.lastID
	m.CreatedAt = s.now()
	m.Properties = append([]property.Summary{}, m.Properties...)
	m.Images = append([]string{}, m.Images...)
	m.Suggestions = append([]string{}, m.Suggestions...)
	s.messages = append(s.messages, m)
	return clone(m)
}

// Clear empties the log. Ids keep increasing afterwards so that a cached
// id never refers to a different message.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Messages returns the log in display order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = clone(m)
	}
	return out
}

// Len returns the number of messages in the log.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the newest message.
func (s *Store) Last() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return clone(s.messages[len(s.messages)-1]), true
}

// LastAssistant returns the newest assistant message.
func (s *Store) LastAssistant() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == RoleAssistant {
			return clone(s.messages[i]), true
		}
	}
	return Message{}, false
}

func clone(m Message) Message {
	m.Properties = append([]property.Summary{}, m.Properties...)
	m.Images = append([]string{}, m.Images...)
	m.Suggestions = append([]string{}, m.Suggestions...)
	return m
}
